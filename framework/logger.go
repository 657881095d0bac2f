package framework

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

const timestampFormat = "2006-01-02 15:04:05.000"

type CapturedMessage struct {
	Time    time.Time
	Message string
}

type CapturedOutput []CapturedMessage

// CapturingLogger accumulates the output of one test.
type CapturingLogger struct {
	output []CapturedMessage
	lock   sync.Mutex
}

// Append adds a message that was printed at time t. Trailing newlines are dropped.
func (l *CapturingLogger) Append(t time.Time, message string) {
	l.lock.Lock()
	l.output = append(l.output, CapturedMessage{Time: t, Message: strings.TrimRight(message, "\r\n")})
	l.lock.Unlock()
}

func (l *CapturingLogger) Output() CapturedOutput {
	l.lock.Lock()
	ret := append([]CapturedMessage(nil), l.output...)
	l.lock.Unlock()
	return ret
}

func (output CapturedOutput) Dump(dest io.Writer, prefix string) {
	for _, m := range output {
		fmt.Fprintf(dest, "%s[%s] %s\n",
			prefix,
			m.Time.Format(timestampFormat),
			m.Message,
		)
	}
}

// String returns the messages joined by newlines, without timestamps.
func (output CapturedOutput) String() string {
	lines := make([]string, 0, len(output))
	for _, m := range output {
		lines = append(lines, m.Message)
	}
	return strings.Join(lines, "\n")
}
