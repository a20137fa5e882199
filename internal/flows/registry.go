// Package flows holds the static wizard definitions used by the back office.
package flows

import (
	"fmt"
	"sort"

	"insurance-desk/internal/engine"
)

var registry = map[string]*engine.Flow{
	"customer": Customer,
	"policy":   Policy,
	"claim":    Claim,
}

func init() {
	for name, f := range registry {
		if err := f.Check(); err != nil {
			panic(fmt.Sprintf("flows: %s: %v", name, err))
		}
	}
}

func Get(name string) (*engine.Flow, bool) {
	f, ok := registry[name]
	return f, ok
}

// Names lists the registered flows in alphabetical order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
