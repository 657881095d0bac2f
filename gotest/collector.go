package gotest

import (
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/launchdarkly/testrail-reporter/framework"
	"github.com/launchdarkly/testrail-reporter/testrail"

	"github.com/pkg/errors"
	"golang.org/x/mod/modfile"
)

const (
	directivePrefix    = "//" + testrail.MarkerName + ":"
	allPackagesPattern = "./..."
	recursiveSuffix    = "/..."
)

// Case is a top-level test function found in a _test.go file.
type Case struct {
	Package string
	Name    string
	File    string
	Line    int
	// IDs holds the values of the function's //testrail: directives. It is nil if there are none.
	IDs []string
}

// Marker implements testrail.Item.
func (c *Case) Marker(name string) *testrail.Marker {
	if name != testrail.MarkerName || c.IDs == nil {
		return nil
	}
	return &testrail.Marker{IDs: c.IDs}
}

// ID returns the identifier that the framework package uses for the test.
func (c *Case) ID() framework.TestID {
	return testID(c.Package, c.Name)
}

func testID(pkg, name string) framework.TestID {
	return framework.TestID{Path: []string{pkg, name}}
}

// Collect parses the test files of the packages matched by patterns, which are directories relative
// to dir optionally ending in "/...". Directories named testdata or vendor, or starting with "." or
// "_", are not descended into. Cases are returned in package, file and source order.
func Collect(dir string, patterns []string) ([]*Case, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	moduleRoot, modulePath, err := findModule(absDir)
	if err != nil {
		return nil, err
	}
	if len(patterns) == 0 {
		patterns = []string{allPackagesPattern}
	}

	var dirs []string
	seen := make(map[string]bool)
	for _, p := range patterns {
		matched, err := expandPattern(absDir, p)
		if err != nil {
			return nil, err
		}
		for _, d := range matched {
			if !seen[d] {
				seen[d] = true
				dirs = append(dirs, d)
			}
		}
	}

	var cases []*Case
	fset := token.NewFileSet()
	for _, d := range dirs {
		rel, err := filepath.Rel(moduleRoot, d)
		if err != nil || strings.HasPrefix(rel, "..") {
			return nil, errors.Errorf("directory %s is outside module %s", d, modulePath)
		}
		importPath := modulePath
		if rel != "." {
			importPath = path.Join(modulePath, filepath.ToSlash(rel))
		}
		found, err := collectDir(fset, d, importPath)
		if err != nil {
			return nil, err
		}
		cases = append(cases, found...)
	}
	return cases, nil
}

// findModule returns the directory containing the go.mod that governs dir, and its module path.
func findModule(dir string) (string, string, error) {
	for d := dir; ; {
		data, err := os.ReadFile(filepath.Join(d, "go.mod"))
		if err == nil {
			modulePath := modfile.ModulePath(data)
			if modulePath == "" {
				return "", "", errors.Errorf("no module path in %s", filepath.Join(d, "go.mod"))
			}
			return d, modulePath, nil
		}
		if !os.IsNotExist(err) {
			return "", "", errors.Wrap(err, "could not read go.mod")
		}
		parent := filepath.Dir(d)
		if parent == d {
			return "", "", errors.Errorf("no go.mod found in %s or any parent directory", dir)
		}
		d = parent
	}
}

func expandPattern(dir, pattern string) ([]string, error) {
	recursive := pattern == "..." || strings.HasSuffix(pattern, recursiveSuffix)
	base := filepath.Join(dir, filepath.FromSlash(strings.TrimSuffix(strings.TrimSuffix(pattern, "..."), "/")))
	info, err := os.Stat(base)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid package pattern %q", pattern)
	}
	if !info.IsDir() {
		return nil, errors.Errorf("invalid package pattern %q: not a directory", pattern)
	}
	if !recursive {
		return []string{base}, nil
	}
	var dirs []string
	err = filepath.WalkDir(base, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != base && skipDir(d.Name()) {
			return filepath.SkipDir
		}
		dirs = append(dirs, p)
		return nil
	})
	return dirs, err
}

func skipDir(name string) bool {
	return name == "testdata" || name == "vendor" ||
		strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")
}

func collectDir(fset *token.FileSet, dir, importPath string) ([]*Case, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var cases []*Case
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), "_test.go") {
			continue
		}
		filename := filepath.Join(dir, e.Name())
		f, err := parser.ParseFile(fset, filename, nil, parser.ParseComments)
		if err != nil {
			return nil, errors.Wrapf(err, "could not parse %s", filename)
		}
		for _, decl := range f.Decls {
			fd, ok := decl.(*ast.FuncDecl)
			if !ok || fd.Recv != nil || !isTestName(fd.Name.Name) {
				continue
			}
			cases = append(cases, &Case{
				Package: importPath,
				Name:    fd.Name.Name,
				File:    filename,
				Line:    fset.Position(fd.Pos()).Line,
				IDs:     directiveIDs(fd.Doc),
			})
		}
	}
	return cases, nil
}

// isTestName reports whether name is a name that go test runs: "Test" not followed by a lower-case
// letter.
func isTestName(name string) bool {
	if !strings.HasPrefix(name, "Test") {
		return false
	}
	if len(name) == len("Test") {
		return true
	}
	r, _ := utf8.DecodeRuneInString(name[len("Test"):])
	return !unicode.IsLower(r)
}

// directiveIDs returns the ids of all //testrail: lines of a doc comment, separated by commas or
// spaces.
func directiveIDs(doc *ast.CommentGroup) []string {
	if doc == nil {
		return nil
	}
	var ids []string
	for _, c := range doc.List {
		if !strings.HasPrefix(c.Text, directivePrefix) {
			continue
		}
		if ids == nil {
			ids = []string{}
		}
		ids = append(ids, strings.FieldsFunc(strings.TrimPrefix(c.Text, directivePrefix), func(r rune) bool {
			return r == ',' || unicode.IsSpace(r)
		})...)
	}
	return ids
}

// Marked returns the cases that have at least one case id.
func Marked(cases []*Case) []*Case {
	var ret []*Case
	for _, c := range cases {
		if len(c.IDs) > 0 {
			ret = append(ret, c)
		}
	}
	return ret
}
