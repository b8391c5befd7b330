package props

// Retriever supplies the raw value for a referenced key-name. It is how
// the evaluator reaches property values without depending on the Store.
type Retriever func(name string) (string, bool)

// Reference is one parsed placeholder occurrence inside a raw value.
// References are produced by parsing on demand and never stored.
type Reference struct {
	// Start and End delimit the whole token in the raw string; End is
	// exclusive.
	Start int
	End   int

	// Name is the referenced key-name.
	Name string

	// Fallback is the inline default substituted when Name has no value.
	// HasFallback distinguishes an empty fallback from none at all.
	Fallback    string
	HasFallback bool
}

// Grammar defines the literal placeholder syntax. The evaluator's
// contract is the same for any grammar that yields Reference tokens.
type Grammar interface {
	// Next returns the first reference token at or after from.
	Next(raw string, from int) (Reference, bool)

	// ReferenceAt parses a reference token beginning exactly at pos.
	ReferenceAt(raw string, pos int) (Reference, bool)

	// Unescape rewrites escape sequences in a literal (non-reference)
	// span to the text they stand for.
	Unescape(literal string) string
}
