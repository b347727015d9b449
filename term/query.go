package term

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

type Query struct {
	Name   string
	Assert Node
}

// QueryFile is a decoded query document. Variables are interned per file, so
// a name used in several queries is the same *Var everywhere.
type QueryFile struct {
	Arena   *Arena
	Vars    map[string]*Var
	Queries []Query
}

type queryDoc struct {
	Vars    map[string]string `yaml:"vars"`
	Queries []struct {
		Name   string   `yaml:"name"`
		Assert *nodeDoc `yaml:"assert"`
	} `yaml:"queries"`
}

type nodeDoc struct {
	Var  *string   `yaml:"var"`
	Bool *bool     `yaml:"bool"`
	I32  *int32    `yaml:"i32"`
	I64  *int64    `yaml:"i64"`
	F32  *float32  `yaml:"f32"`
	F64  *float64  `yaml:"f64"`
	Str  *string   `yaml:"string"`
	Op   *string   `yaml:"op"`
	Args []nodeDoc `yaml:"args"`
}

func LoadQueries(path string) (*QueryFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	qf, err := DecodeQueries(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return qf, nil
}

func DecodeQueries(r io.Reader) (*QueryFile, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var doc queryDoc
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty query document")
		}
		return nil, err
	}

	qf := &QueryFile{
		Arena: NewArena(),
		Vars:  make(map[string]*Var, len(doc.Vars)),
	}
	names := make([]string, 0, len(doc.Vars))
	for name := range doc.Vars {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		tag := doc.Vars[name]
		if tag == "" {
			return nil, fmt.Errorf("variable '%s' has no sort tag", name)
		}
		qf.Vars[name] = qf.Arena.NewVar(Tag(tag), name)
	}

	for i, q := range doc.Queries {
		name := q.Name
		if name == "" {
			name = fmt.Sprintf("query-%d", i+1)
		}
		if q.Assert == nil {
			return nil, fmt.Errorf("query '%s': missing assert", name)
		}
		n, err := q.Assert.build(qf.Vars)
		if err != nil {
			return nil, fmt.Errorf("query '%s': %w", name, err)
		}
		qf.Queries = append(qf.Queries, Query{Name: name, Assert: n})
	}
	return qf, nil
}

func (d *nodeDoc) build(vars map[string]*Var) (Node, error) {
	var forms []Node
	if d.Var != nil {
		v, ok := vars[*d.Var]
		if !ok {
			return nil, fmt.Errorf("undeclared variable '%s'", *d.Var)
		}
		forms = append(forms, v)
	}
	if d.Bool != nil {
		forms = append(forms, Bool(*d.Bool))
	}
	if d.I32 != nil {
		forms = append(forms, I32(*d.I32))
	}
	if d.I64 != nil {
		forms = append(forms, I64(*d.I64))
	}
	if d.F32 != nil {
		forms = append(forms, F32(*d.F32))
	}
	if d.F64 != nil {
		forms = append(forms, F64(*d.F64))
	}
	if d.Str != nil {
		forms = append(forms, Str(*d.Str))
	}
	if d.Op != nil {
		if *d.Op == "" {
			return nil, fmt.Errorf("empty operator")
		}
		args := make([]Node, 0, len(d.Args))
		for i := range d.Args {
			a, err := d.Args[i].build(vars)
			if err != nil {
				return nil, fmt.Errorf("%s arg %d: %w", *d.Op, i, err)
			}
			args = append(args, a)
		}
		forms = append(forms, Apply(Tag(*d.Op), args...))
	} else if len(d.Args) > 0 {
		return nil, fmt.Errorf("args given without op")
	}

	switch len(forms) {
	case 0:
		return nil, fmt.Errorf("empty node")
	case 1:
		return forms[0], nil
	default:
		return nil, fmt.Errorf("node mixes %d forms", len(forms))
	}
}
