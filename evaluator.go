package props

import (
	"fmt"
	"strings"
)

// MissingPolicy decides what an unresolved reference (key absent, no
// inline fallback) expands to.
type MissingPolicy int

const (
	// MissingKeep leaves the placeholder text in place. The default.
	MissingKeep MissingPolicy = iota
	// MissingEmpty substitutes an empty string.
	MissingEmpty
	// MissingError fails the evaluation with ErrUnknownReference.
	MissingError
)

// DefaultMaxDepth bounds how many nested references a single evaluation
// may traverse before failing with ErrTooDeep.
const DefaultMaxDepth = 64

// Evaluator resolves placeholder references embedded in raw value
// strings. Values are obtained through a caller-supplied Retriever, so
// the evaluator has no dependency on any particular store.
//
// An Evaluator is stateless between calls and safe for concurrent use.
type Evaluator struct {
	grammar  Grammar
	missing  MissingPolicy
	maxDepth int
}

// EvaluatorOption configures an Evaluator.
type EvaluatorOption func(*Evaluator)

// WithGrammar swaps the placeholder syntax. Defaults to DefaultGrammar.
func WithGrammar(grammar Grammar) EvaluatorOption {
	return func(e *Evaluator) {
		if grammar != nil {
			e.grammar = grammar
		}
	}
}

// WithMissingPolicy sets the unresolved-reference policy.
func WithMissingPolicy(policy MissingPolicy) EvaluatorOption {
	return func(e *Evaluator) {
		e.missing = policy
	}
}

// WithMaxDepth bounds nested reference resolution.
func WithMaxDepth(depth int) EvaluatorOption {
	return func(e *Evaluator) {
		if depth > 0 {
			e.maxDepth = depth
		}
	}
}

// NewEvaluator builds an Evaluator with the ${name} grammar, MissingKeep
// policy, and the default depth bound.
func NewEvaluator(opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{
		grammar:  DefaultGrammar(),
		missing:  MissingKeep,
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Evaluate expands every reference in raw, recursively resolving the
// referenced values through retrieve. A key revisited on its own
// resolution path fails with CyclicReferenceError; resolution deeper
// than the depth bound fails with ErrTooDeep.
func (e *Evaluator) Evaluate(raw string, retrieve Retriever) (string, error) {
	return e.expand(raw, retrieve, nil)
}

func (e *Evaluator) expand(raw string, retrieve Retriever, path []string) (string, error) {
	var out strings.Builder
	pos := 0
	for {
		ref, ok := e.grammar.Next(raw, pos)
		if !ok {
			out.WriteString(e.grammar.Unescape(raw[pos:]))
			return out.String(), nil
		}
		out.WriteString(e.grammar.Unescape(raw[pos:ref.Start]))

		resolved, err := e.resolve(raw, ref, retrieve, path)
		if err != nil {
			return "", err
		}
		out.WriteString(resolved)
		pos = ref.End
	}
}

func (e *Evaluator) resolve(raw string, ref Reference, retrieve Retriever, path []string) (string, error) {
	for _, name := range path {
		if name == ref.Name {
			return "", &CyclicReferenceError{Chain: append(append([]string{}, path...), ref.Name)}
		}
	}
	if len(path) >= e.maxDepth {
		return "", fmt.Errorf("%w: %d levels via %q", ErrTooDeep, e.maxDepth, ref.Name)
	}

	value, ok := retrieve(ref.Name)
	if !ok {
		if ref.HasFallback {
			return e.expand(ref.Fallback, retrieve, append(path, ref.Name))
		}
		switch e.missing {
		case MissingEmpty:
			return "", nil
		case MissingError:
			return "", fmt.Errorf("%w: %q", ErrUnknownReference, ref.Name)
		default:
			return raw[ref.Start:ref.End], nil
		}
	}
	return e.expand(value, retrieve, append(path, ref.Name))
}

// IsReferencing reports whether target is reachable, directly or through
// other references, from the references in raw. No substitution is
// performed; only reference names are followed.
func (e *Evaluator) IsReferencing(raw, target string, retrieve Retriever) bool {
	visited := make(map[string]struct{})
	return e.references(raw, target, retrieve, visited)
}

func (e *Evaluator) references(raw, target string, retrieve Retriever, visited map[string]struct{}) bool {
	pos := 0
	for {
		ref, ok := e.grammar.Next(raw, pos)
		if !ok {
			return false
		}
		if ref.Name == target {
			return true
		}
		if _, seen := visited[ref.Name]; !seen {
			visited[ref.Name] = struct{}{}
			if value, ok := retrieve(ref.Name); ok {
				if e.references(value, target, retrieve, visited) {
					return true
				}
			}
			if ref.HasFallback && e.references(ref.Fallback, target, retrieve, visited) {
				return true
			}
		}
		pos = ref.End
	}
}

// ReferenceAt returns the reference token beginning exactly at pos in
// raw, if one exists.
func (e *Evaluator) ReferenceAt(raw string, pos int) (Reference, bool) {
	return e.grammar.ReferenceAt(raw, pos)
}
