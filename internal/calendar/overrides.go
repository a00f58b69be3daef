package calendar

import (
	"context"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// OverrideFile is the YAML shape of a local holiday adjustment file:
//
//	add:
//	  - date: 2024-12-31
//	    name: Kurum tatili
//	remove:
//	  - 2024-10-28
type OverrideFile struct {
	Add    []OverrideEntry `yaml:"add"`
	Remove []string        `yaml:"remove"`
}

// OverrideEntry is a single added holiday.
type OverrideEntry struct {
	Date string `yaml:"date"`
	Name string `yaml:"name"`
}

// OverrideProvider applies local additions and removals on top of a base provider.
type OverrideProvider struct {
	Base  Provider
	add   Set
	drops Set
}

// LoadOverrides reads an override YAML file and wraps base with it.
func LoadOverrides(path string, base Provider) (*OverrideProvider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseOverrides(data, base)
}

// ParseOverrides decodes override YAML and wraps base with it.
func ParseOverrides(data []byte, base Provider) (*OverrideProvider, error) {
	var f OverrideFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse holiday overrides: %w", err)
	}

	p := &OverrideProvider{Base: base, add: make(Set), drops: make(Set)}
	for _, e := range f.Add {
		d, err := ParseDate(e.Date)
		if err != nil {
			return nil, err
		}
		name := e.Name
		if name == "" {
			name = "Local holiday"
		}
		p.add.Add(d, name)
	}
	for _, raw := range f.Remove {
		d, err := ParseDate(raw)
		if err != nil {
			return nil, err
		}
		p.drops.Add(d, "")
	}
	return p, nil
}

func (p *OverrideProvider) Holidays(ctx context.Context, country string, years []int) (Set, error) {
	out := make(Set)
	if p.Base != nil {
		base, err := p.Base.Holidays(ctx, country, years)
		if err != nil {
			return nil, err
		}
		for d, name := range base {
			out[d] = name
		}
	}
	for d, name := range p.add {
		if slices.Contains(years, d.Year()) {
			out[d] = name
		}
	}
	for d := range p.drops {
		delete(out, d)
	}
	return out, nil
}
