// Package refdata serves ordered option lists (states, cities, relations,
// insurers, agents) to the wizard forms.
package refdata

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrUnknownKey is returned for keys no table provides.
var ErrUnknownKey = errors.New("unknown reference data key")

const citiesPrefix = "cities-for-state:"

//go:embed data/options.yaml
var defaultOptions []byte

// Static serves option lists from an in-memory table.
type Static struct {
	States []string            `yaml:"states"`
	Cities map[string][]string `yaml:"cities"`
	Lists  map[string][]string `yaml:"lists"`
}

// Default returns the built-in table.
func Default() *Static {
	s, err := LoadStatic(strings.NewReader(string(defaultOptions)))
	if err != nil {
		panic(fmt.Sprintf("refdata: embedded table: %v", err))
	}
	return s
}

func LoadStatic(r io.Reader) (*Static, error) {
	var s Static
	if err := yaml.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode reference data: %w", err)
	}
	return &s, nil
}

func LoadStaticFile(path string) (*Static, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open reference data: %w", err)
	}
	defer f.Close()
	return LoadStatic(f)
}

func (s *Static) Options(_ context.Context, key string) ([]string, error) {
	var opts []string
	var ok bool
	switch {
	case key == "states":
		opts, ok = s.States, s.States != nil
	case strings.HasPrefix(key, citiesPrefix):
		opts, ok = s.Cities[strings.TrimPrefix(key, citiesPrefix)]
	default:
		opts, ok = s.Lists[key]
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	out := make([]string, len(opts))
	copy(out, opts)
	return out, nil
}
