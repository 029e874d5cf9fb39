// Package intent keeps the keyword triggers as data: a YAML table of
// (intent, regex patterns) evaluated over normalized text. Changing a
// keyword never touches the routing code.
package intent

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Intent names a keyword trigger.
type Intent string

const (
	// Dispatch asks to send/bring the quoted order.
	Dispatch Intent = "despacho"
	// Payment asks how to pay or announces a payment.
	Payment Intent = "pago"
)

//go:embed intents.yaml
var defaultTable []byte

type fileFormat struct {
	Intents []struct {
		Name     string   `yaml:"name"`
		Patterns []string `yaml:"patterns"`
	} `yaml:"intents"`
	Categories []string `yaml:"categories"`
}

// Table is a compiled intent table. It is immutable once built.
type Table struct {
	patterns   map[Intent][]*regexp.Regexp
	categories []string
}

// Default returns the table shipped with the binary.
func Default() (*Table, error) {
	return Parse(defaultTable)
}

// Load reads a YAML table from path. An empty path returns the default.
func Load(path string) (*Table, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read intents %s: %w", path, err)
	}
	return Parse(data)
}

// Parse compiles a YAML table. Both Dispatch and Payment must be present.
func Parse(data []byte) (*Table, error) {
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse intents: %w", err)
	}

	t := &Table{
		patterns:   make(map[Intent][]*regexp.Regexp, len(f.Intents)),
		categories: f.Categories,
	}
	for _, in := range f.Intents {
		if in.Name == "" {
			return nil, fmt.Errorf("parse intents: intent without name")
		}
		for _, p := range in.Patterns {
			re, err := regexp.Compile(p)
			if err != nil {
				return nil, fmt.Errorf("intent %q: pattern %q: %w", in.Name, p, err)
			}
			t.patterns[Intent(in.Name)] = append(t.patterns[Intent(in.Name)], re)
		}
	}

	for _, required := range []Intent{Dispatch, Payment} {
		if len(t.patterns[required]) == 0 {
			return nil, fmt.Errorf("parse intents: intent %q has no patterns", required)
		}
	}
	return t, nil
}

// Matches reports whether any pattern of the intent matches the text.
func (t *Table) Matches(in Intent, normalized string) bool {
	for _, re := range t.patterns[in] {
		if re.MatchString(normalized) {
			return true
		}
	}
	return false
}

// Categories returns the generic category words.
func (t *Table) Categories() []string {
	out := make([]string, len(t.categories))
	copy(out, t.categories)
	return out
}
