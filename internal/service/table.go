package service

import (
	"fmt"
	"strings"
)

// Table is the immutable descriptor table, kept in declaration order.
// Bulk operations iterate it in this order so runs are deterministic.
type Table struct {
	specs  []Spec
	byName map[string]int
}

// NewTable validates the specs and builds a table. Duplicate names and
// duplicate ports are rejected here rather than tolerated at runtime.
func NewTable(specs []Spec) (*Table, error) {
	t := &Table{byName: make(map[string]int, len(specs))}
	ports := make(map[uint16]string, len(specs))
	for i, s := range specs {
		if s.Name == "" {
			return nil, fmt.Errorf("service at index %d has empty name", i)
		}
		if strings.TrimSpace(s.Command) == "" {
			return nil, fmt.Errorf("service %q has no command", s.Name)
		}
		if s.Port == 0 {
			return nil, fmt.Errorf("service %q has no port", s.Name)
		}
		if _, dup := t.byName[s.Name]; dup {
			return nil, fmt.Errorf("duplicate service name %q", s.Name)
		}
		if owner, dup := ports[s.Port]; dup {
			return nil, fmt.Errorf("services %q and %q share port %d", owner, s.Name, s.Port)
		}
		t.byName[s.Name] = i
		ports[s.Port] = s.Name
		t.specs = append(t.specs, s)
	}
	return t, nil
}

// Lookup returns the spec for name.
func (t *Table) Lookup(name string) (Spec, bool) {
	i, ok := t.byName[name]
	if !ok {
		return Spec{}, false
	}
	return t.specs[i], true
}

// Specs returns the specs in declaration order. The returned slice is a copy.
func (t *Table) Specs() []Spec {
	out := make([]Spec, len(t.specs))
	copy(out, t.specs)
	return out
}

// Names returns the service names in declaration order.
func (t *Table) Names() []string {
	out := make([]string, 0, len(t.specs))
	for _, s := range t.specs {
		out = append(out, s.Name)
	}
	return out
}

// Len returns the number of services in the table.
func (t *Table) Len() int { return len(t.specs) }
