package codec

import (
	"bytes"
	"reflect"
	"strings"
	"testing"
)

func TestYAMLDecode(t *testing.T) {
	input := strings.Join([]string{
		"server.host: localhost",
		"server.port: 8080",
		"debug: false",
		`quoted: "  padded  "`,
	}, "\n")

	got, err := YAML{}.Decode(strings.NewReader(input))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	want := map[string]string{
		"server.host": "localhost",
		"server.port": "8080",
		"debug":       "false",
		"quoted":      "  padded  ",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected decode: %v", got)
	}
}

func TestYAMLDecodeEmpty(t *testing.T) {
	got, err := YAML{}.Decode(strings.NewReader(""))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty map, got %v", got)
	}
}

func TestYAMLDecodeRejectsNestedValues(t *testing.T) {
	input := "nested:\n  child: value\n"
	if _, err := (YAML{}).Decode(strings.NewReader(input)); err == nil {
		t.Fatalf("expected nested mapping to be rejected")
	}
}

func TestYAMLEncodeSortedWithComment(t *testing.T) {
	values := map[string]string{
		"b.key": "2",
		"a.key": "1",
	}

	var buf bytes.Buffer
	if err := (YAML{}).Encode(&buf, values, "generated settings"); err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "# generated settings") {
		t.Fatalf("expected comment header:\n%s", out)
	}
	if strings.Index(out, "a.key") > strings.Index(out, "b.key") {
		t.Fatalf("expected sorted keys:\n%s", out)
	}
}

func TestYAMLRoundTrip(t *testing.T) {
	values := map[string]string{
		"server.host": "localhost",
		"empty":       "",
		"spaced":      "  padded  ",
		"numeric":     "42",
	}

	var buf bytes.Buffer
	if err := (YAML{}).Encode(&buf, values, ""); err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	got, err := YAML{}.Decode(&buf)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !reflect.DeepEqual(got, values) {
		t.Fatalf("round trip mismatch:\n got %v\nwant %v", got, values)
	}
}
