package props

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNilValue indicates an attempt to set a nil value. Nil values are
	// not representable; reset the key instead.
	ErrNilValue = errors.New("props: cannot set a nil value, use Reset instead")

	// ErrUnknownKey indicates a key-name that no typed key translates to.
	ErrUnknownKey = errors.New("props: unknown key")

	// ErrUnknownReference indicates a reference to a key with no value and
	// no inline fallback, under the MissingError policy.
	ErrUnknownReference = errors.New("props: unresolved reference")

	// ErrTooDeep indicates reference expansion exceeded the configured
	// depth bound.
	ErrTooDeep = errors.New("props: reference expansion too deep")

	// ErrNoRuleEvaluator indicates a rule evaluation was requested on a
	// Manager constructed without WithRuleEvaluator.
	ErrNoRuleEvaluator = errors.New("props: no rule evaluator configured")
)

// CyclicReferenceError reports a reference chain that revisits one of its
// own keys during evaluation.
type CyclicReferenceError struct {
	// Chain holds the key-names along the resolution path, ending with
	// the key that closed the cycle.
	Chain []string
}

func (e *CyclicReferenceError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("props: cyclic reference: %s", strings.Join(e.Chain, " -> "))
}
