package props

import "strings"

// dollarGrammar is the default placeholder syntax: ${name} references
// another key, ${name:-text} supplies an inline fallback, and $$ escapes
// a literal dollar sign. Braces nest inside a fallback, so a fallback may
// itself contain references.
type dollarGrammar struct{}

// DefaultGrammar returns the ${name} placeholder grammar.
func DefaultGrammar() Grammar {
	return dollarGrammar{}
}

const fallbackSeparator = ":-"

func (dollarGrammar) Next(raw string, from int) (Reference, bool) {
	for i := from; i < len(raw)-1; i++ {
		if raw[i] != '$' {
			continue
		}
		switch raw[i+1] {
		case '$':
			i++ // skip the escaped dollar
		case '{':
			if ref, ok := parseDollarRef(raw, i); ok {
				return ref, true
			}
		}
	}
	return Reference{}, false
}

func (dollarGrammar) ReferenceAt(raw string, pos int) (Reference, bool) {
	if pos < 0 || pos >= len(raw) {
		return Reference{}, false
	}
	return parseDollarRef(raw, pos)
}

func (dollarGrammar) Unescape(literal string) string {
	return strings.ReplaceAll(literal, "$$", "$")
}

// parseDollarRef parses a ${...} token starting exactly at start. An
// unterminated token is treated as literal text.
func parseDollarRef(raw string, start int) (Reference, bool) {
	if start+1 >= len(raw) || raw[start] != '$' || raw[start+1] != '{' {
		return Reference{}, false
	}

	depth := 1
	sep := -1
	for i := start + 2; i < len(raw); i++ {
		switch {
		case raw[i] == '{':
			depth++
		case raw[i] == '}':
			depth--
			if depth == 0 {
				return makeDollarRef(raw, start, i, sep), true
			}
		case depth == 1 && sep < 0 && strings.HasPrefix(raw[i:], fallbackSeparator):
			sep = i
		}
	}
	return Reference{}, false
}

func makeDollarRef(raw string, start, end, sep int) Reference {
	ref := Reference{
		Start: start,
		End:   end + 1,
	}
	if sep < 0 {
		ref.Name = raw[start+2 : end]
		return ref
	}
	ref.Name = raw[start+2 : sep]
	ref.Fallback = raw[sep+len(fallbackSeparator) : end]
	ref.HasFallback = true
	return ref
}

var _ Grammar = dollarGrammar{}
