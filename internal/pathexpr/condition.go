package pathexpr

import (
	"strings"

	"api-recorder/internal/util"
)

// Condition evaluates the minimal expectation language against a response
// body. The only supported shape is a single equality comparison whose left
// side is rooted at the body:
//
//	body.state == ACTIVE
//	body.status == "Running"
//
// An empty expression is vacuously true. Anything outside the supported
// subset (no "==", left side not rooted at body, unresolvable path)
// evaluates to false rather than erroring.
func Condition(body map[string]any, expr string) bool {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return true
	}
	left, right, found := strings.Cut(expr, "==")
	if !found {
		return false
	}
	left = strings.TrimSpace(left)
	if !strings.HasPrefix(left, BodyPrefix) {
		return false
	}
	expected := strings.TrimSpace(right)
	expected = strings.Trim(expected, `'"`)

	value, ok := Lookup(body, StripBody(left))
	if !ok {
		return false
	}
	return util.Stringify(value) == expected
}
