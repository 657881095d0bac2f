package cart_test

import "testing"

//testrail:
func TestEmptyDirective(t *testing.T) {}

//testrail:C2
func TestCheckout(t *testing.T) {
	t.Run("guest", func(t *testing.T) {})
}
