package heatpump

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed params.yaml
var defaultParams string

// Params fits one heat pump model: three temperature/COP anchors (warm to
// cold) and a logarithmic capacity ratio curve a*ln(T+b)+c.
type Params struct {
	T1K  float64 `yaml:"T1_K" json:"T1_K"`
	COP1 float64 `yaml:"COP1" json:"COP1"`
	T2K  float64 `yaml:"T2_K" json:"T2_K"`
	COP2 float64 `yaml:"COP2" json:"COP2"`
	T3K  float64 `yaml:"T3_K" json:"T3_K"`
	COP3 float64 `yaml:"COP3" json:"COP3"`
	CR3  float64 `yaml:"CR3" json:"CR3"`
	A    float64 `yaml:"a" json:"a"`
	B    float64 `yaml:"b" json:"b"`
	C    float64 `yaml:"c" json:"c"`
}

func (p Params) Validate() error {
	if !(p.T1K > p.T2K && p.T2K > p.T3K) {
		return fmt.Errorf("%w: anchors must satisfy T1_K > T2_K > T3_K (got %g, %g, %g)",
			ErrConfiguration, p.T1K, p.T2K, p.T3K)
	}
	if p.CR3 <= 0 {
		return fmt.Errorf("%w: CR3 must be positive (got %g)", ErrConfiguration, p.CR3)
	}
	return nil
}

// Table holds the parameter record of every known model, keyed by model name.
type Table map[string]Params

func (t Table) Validate() error {
	for _, name := range t.Names() {
		if err := t[name].Validate(); err != nil {
			return fmt.Errorf("model %s: %w", name, err)
		}
	}
	return nil
}

// Names returns the model names in lexical order.
func (t Table) Names() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the parameters of m or ErrUnknownModel.
func (t Table) Lookup(m Model) (Params, error) {
	p, ok := t[m.String()]
	if !ok {
		return Params{}, fmt.Errorf("%w %q", ErrUnknownModel, m.String())
	}
	return p, nil
}

func LoadTable(r io.Reader) (Table, error) {
	var t Table
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil {
		return nil, fmt.Errorf("%w: parse parameter table: %v", ErrConfiguration, err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

func LoadTableFile(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open parameter table: %v", ErrConfiguration, err)
	}
	defer f.Close()
	return LoadTable(f)
}

// DefaultTable returns a fresh copy of the built-in parameter table.
func DefaultTable() Table {
	t, err := LoadTable(strings.NewReader(defaultParams))
	if err != nil {
		panic(err)
	}
	return t
}
