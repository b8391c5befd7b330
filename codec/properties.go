package codec

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// Properties reads and writes the classic .properties text format:
// key=value pairs, # or ! comment lines, backslash escapes, \uXXXX
// sequences, and backslash line continuations. Encoding is deterministic
// (sorted keys, no timestamp) so saved files diff cleanly.
type Properties struct{}

var _ Codec = Properties{}

// Decode parses a .properties document into a flat map. Later
// occurrences of a key win.
func (Properties) Decode(r io.Reader) (map[string]string, error) {
	out := make(map[string]string)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var logical strings.Builder
	lineNo := 0
	flush := func() error {
		line := logical.String()
		logical.Reset()
		if line == "" {
			return nil
		}
		key, value, err := splitPropertyLine(line)
		if err != nil {
			return fmt.Errorf("codec: line %d: %w", lineNo, err)
		}
		out[key] = value
		return nil
	}

	for scanner.Scan() {
		lineNo++
		line := strings.TrimLeft(scanner.Text(), " \t\f")
		if logical.Len() == 0 {
			if line == "" || line[0] == '#' || line[0] == '!' {
				continue
			}
		}
		if endsWithContinuation(line) {
			logical.WriteString(line[:len(line)-1])
			continue
		}
		logical.WriteString(line)
		if err := flush(); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return out, nil
}

// Encode writes values sorted by key. Comment lines are prefixed with
// "# "; embedded newlines split the comment across lines.
func (Properties) Encode(w io.Writer, values map[string]string, comment string) error {
	bw := bufio.NewWriter(w)

	if comment != "" {
		for _, line := range strings.Split(comment, "\n") {
			if _, err := fmt.Fprintf(bw, "# %s\n", line); err != nil {
				return err
			}
		}
	}

	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if _, err := fmt.Fprintf(bw, "%s=%s\n", escapePropertyKey(key), escapePropertyValue(values[key])); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// endsWithContinuation reports whether the line ends in an odd number of
// backslashes, meaning the newline is escaped.
func endsWithContinuation(line string) bool {
	n := 0
	for i := len(line) - 1; i >= 0 && line[i] == '\\'; i-- {
		n++
	}
	return n%2 == 1
}

// splitPropertyLine separates a logical line into an unescaped key and
// value. The key ends at the first unescaped '=', ':', or run of
// whitespace; an optional single separator after the whitespace is
// consumed.
func splitPropertyLine(line string) (string, string, error) {
	sep := -1
	wsOnly := false
	for i := 0; i < len(line); i++ {
		c := line[i]
		if c == '\\' {
			i++
			continue
		}
		if c == '=' || c == ':' {
			sep = i
			break
		}
		if c == ' ' || c == '\t' || c == '\f' {
			sep = i
			wsOnly = true
			break
		}
	}

	if sep < 0 {
		key, err := unescapeProperty(line)
		return key, "", err
	}

	key, err := unescapeProperty(line[:sep])
	if err != nil {
		return "", "", err
	}

	rest := line[sep:]
	if wsOnly {
		rest = strings.TrimLeft(rest, " \t\f")
		if rest != "" && (rest[0] == '=' || rest[0] == ':') {
			rest = rest[1:]
		}
	} else {
		rest = rest[1:]
	}
	rest = strings.TrimLeft(rest, " \t\f")

	value, err := unescapeProperty(rest)
	if err != nil {
		return "", "", err
	}
	return key, value, nil
}

func unescapeProperty(s string) (string, error) {
	if !strings.ContainsRune(s, '\\') {
		return s, nil
	}
	var out strings.Builder
	out.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			out.WriteByte(c)
			continue
		}
		i++
		if i >= len(s) {
			break
		}
		switch s[i] {
		case 't':
			out.WriteByte('\t')
		case 'n':
			out.WriteByte('\n')
		case 'r':
			out.WriteByte('\r')
		case 'f':
			out.WriteByte('\f')
		case 'u':
			if i+4 >= len(s) {
				return "", fmt.Errorf("truncated \\u escape in %q", s)
			}
			code, err := strconv.ParseUint(s[i+1:i+5], 16, 32)
			if err != nil {
				return "", fmt.Errorf("bad \\u escape in %q: %w", s, err)
			}
			out.WriteRune(rune(code))
			i += 4
		default:
			out.WriteByte(s[i])
		}
	}
	return out.String(), nil
}

func escapePropertyKey(key string) string {
	var out strings.Builder
	out.Grow(len(key))
	for i := 0; i < len(key); i++ {
		switch c := key[i]; c {
		case ' ', '=', ':', '#', '!':
			out.WriteByte('\\')
			out.WriteByte(c)
		default:
			writePropertyByte(&out, c)
		}
	}
	return out.String()
}

func escapePropertyValue(value string) string {
	var out strings.Builder
	out.Grow(len(value))
	for i := 0; i < len(value); i++ {
		c := value[i]
		// Leading whitespace would be stripped on read, so escape it.
		if i == 0 && (c == ' ' || c == '\t' || c == '\f') {
			out.WriteByte('\\')
			out.WriteByte(c)
			continue
		}
		writePropertyByte(&out, c)
	}
	return out.String()
}

func writePropertyByte(out *strings.Builder, c byte) {
	switch c {
	case '\\':
		out.WriteString(`\\`)
	case '\t':
		out.WriteString(`\t`)
	case '\n':
		out.WriteString(`\n`)
	case '\r':
		out.WriteString(`\r`)
	case '\f':
		out.WriteString(`\f`)
	default:
		out.WriteByte(c)
	}
}
