package scrambler

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Origin locates an original identifier. Function is empty for function
// names and for every name of a flat table.
type Origin struct {
	Function string
	Name     string
}

func (o Origin) String() string {
	if o.Function == "" {
		return o.Name
	}
	return o.Function + "." + o.Name
}

// LoadMapping reads a rename table saved as YAML.
func LoadMapping(path string) (Mapping, error) {
	var m Mapping
	data, err := os.ReadFile(path)
	if err != nil {
		return m, fmt.Errorf("error reading rename map %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("error decoding rename map %s: %w", path, err)
	}
	return m, nil
}

// Origins returns every original identifier that was renamed to generated.
// In scoped mode one generated name may be used for locals of several
// functions.
func (m Mapping) Origins(generated string) []Origin {
	var out []Origin
	collect := func(fn string, names map[string]string) {
		for orig, gen := range names {
			if gen == generated {
				out = append(out, Origin{Function: fn, Name: orig})
			}
		}
	}
	collect("", m.Names)
	collect("", m.Functions)
	for fn, names := range m.Locals {
		collect(fn, names)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Function != out[j].Function {
			return out[i].Function < out[j].Function
		}
		return out[i].Name < out[j].Name
	})
	return out
}
