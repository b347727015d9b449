package sorts

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"slava0135/smtshim/term"
)

type fileDoc struct {
	Sorts     map[string]string `yaml:"sorts"`
	Operators map[string]string `yaml:"operators"`
	Floats    string            `yaml:"floats"`
}

// LoadFile merges a registry file over the defaults.
func LoadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	t, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

func Decode(r io.Reader) (*Table, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var doc fileDoc
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	t := Default()
	if doc.Floats != "" {
		if err := t.SetFloatEncoding(FloatEncoding(doc.Floats)); err != nil {
			return nil, err
		}
		if t.floats == FloatsReal {
			t.Define(term.TagFP32, realSort)
			t.Define(term.TagFP64, realSort)
		}
	}
	for tag, sort := range doc.Sorts {
		if sort == "" {
			return nil, fmt.Errorf("empty sort for tag '%s'", tag)
		}
		t.Define(term.Tag(tag), sort)
	}
	for tag, tok := range doc.Operators {
		if tok == "" {
			return nil, fmt.Errorf("empty token for operator '%s'", tag)
		}
		t.Alias(term.Tag(tag), tok)
	}
	return t, nil
}
