package props

import (
	"fmt"
	"strings"
)

// Translator converts between typed keys and the string key-names a
// property file stores. Name must be total; Key fails with ErrUnknownKey
// for names that no key translates to.
type Translator[K comparable] interface {
	Name(key K) string
	Key(name string) (K, error)
}

// TranslatorFuncs adapts plain functions into a Translator.
type TranslatorFuncs[K comparable] struct {
	NameFunc func(key K) string
	KeyFunc  func(name string) (K, error)
}

func (t TranslatorFuncs[K]) Name(key K) string {
	if t.NameFunc == nil {
		return fmt.Sprint(key)
	}
	return t.NameFunc(key)
}

func (t TranslatorFuncs[K]) Key(name string) (K, error) {
	if t.KeyFunc == nil {
		var zero K
		return zero, fmt.Errorf("%w: %q", ErrUnknownKey, name)
	}
	return t.KeyFunc(name)
}

// PropertyName converts a CONSTANT_CASE identifier into the
// lower.dot.case property name it maps to: SERVER_PORT -> server.port.
func PropertyName(ident string) string {
	return strings.ToLower(strings.ReplaceAll(ident, "_", "."))
}

// ConstantName is the inverse of PropertyName: server.port -> SERVER_PORT.
func ConstantName(name string) string {
	return strings.ToUpper(strings.ReplaceAll(name, ".", "_"))
}

// DotCase returns a Translator for string-derived key types spelled in
// CONSTANT_CASE whose property names use lower.dot.case. When known keys
// are given, Key rejects names that translate to none of them; with no
// known keys every well-formed name is accepted.
func DotCase[K ~string](known ...K) Translator[K] {
	keys := make(map[K]struct{}, len(known))
	for _, key := range known {
		keys[key] = struct{}{}
	}
	return TranslatorFuncs[K]{
		NameFunc: func(key K) string {
			return PropertyName(string(key))
		},
		KeyFunc: func(name string) (K, error) {
			key := K(ConstantName(name))
			if len(keys) > 0 {
				if _, ok := keys[key]; !ok {
					var zero K
					return zero, fmt.Errorf("%w: %q", ErrUnknownKey, name)
				}
			}
			return key, nil
		},
	}
}

// Identity returns a Translator whose keys are the property names
// themselves.
func Identity() Translator[string] {
	return TranslatorFuncs[string]{
		NameFunc: func(key string) string { return key },
		KeyFunc:  func(name string) (string, error) { return name, nil },
	}
}

var (
	_ Translator[string] = TranslatorFuncs[string]{}
)
