package codec

import (
	"fmt"
	"io"
	"sort"

	"gopkg.in/yaml.v3"
)

// YAML reads and writes the property set as a flat YAML string mapping.
// Useful when the backing file is shared with tooling that already
// speaks YAML.
type YAML struct{}

var _ Codec = YAML{}

// Decode parses a flat YAML mapping. Scalar values of other YAML types
// are accepted and kept as their string form.
func (YAML) Decode(r io.Reader) (map[string]string, error) {
	raw := make(map[string]yaml.Node)
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		if err == io.EOF {
			return map[string]string{}, nil
		}
		return nil, err
	}

	out := make(map[string]string, len(raw))
	for key, node := range raw {
		if node.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("codec: yaml key %q: value must be a scalar", key)
		}
		out[key] = node.Value
	}
	return out, nil
}

// Encode writes values as a YAML mapping, preceded by comment lines when
// a comment is given. yaml.v3 emits keys in map iteration order, so the
// mapping is marshalled through an ordered node for stable output.
func (YAML) Encode(w io.Writer, values map[string]string, comment string) error {
	doc := &yaml.Node{Kind: yaml.MappingNode}
	if comment != "" {
		doc.HeadComment = comment
	}

	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		doc.Content = append(doc.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: key},
			&yaml.Node{Kind: yaml.ScalarNode, Value: values[key]},
		)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}
