package core

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
)

var (
	registry   = make(map[MeasurementSystem]SystemDefinition)
	registryMu sync.RWMutex
)

// canonicalNameRegex matches lower_snake column names without units or symbols.
var canonicalNameRegex = regexp.MustCompile(`^[a-z0-9]+(_[a-z0-9]+)*$`)

// Register adds a system definition to the schema catalog.
// Panics if the system is already registered or a column name is not canonical.
func Register(def SystemDefinition) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[def.System]; exists {
		panic(fmt.Sprintf("system already registered: %s", def.System))
	}

	seen := make(map[string]bool, len(def.Columns))
	for _, col := range def.Columns {
		if !canonicalNameRegex.MatchString(col.Name) {
			panic(fmt.Sprintf("system %s: column %q is not a canonical name", def.System, col.Name))
		}
		if seen[col.Name] {
			panic(fmt.Sprintf("system %s: duplicate column %q", def.System, col.Name))
		}
		seen[col.Name] = true
	}

	registry[def.System] = def
}

// Get returns a system definition.
// Returns false if not found.
func Get(system MeasurementSystem) (SystemDefinition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	def, ok := registry[system]
	return def, ok
}

// All returns all registered system definitions sorted by system code.
func All() []SystemDefinition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]SystemDefinition, 0, len(registry))
	for _, def := range registry {
		result = append(result, def)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].System < result[j].System
	})

	return result
}

// SystemCount returns the number of registered systems.
func SystemCount() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}

// Clear removes all registered systems.
// Primarily useful for testing.
func Clear() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[MeasurementSystem]SystemDefinition)
}

// ParseSystem converts a system code (case-insensitive) to a MeasurementSystem.
func ParseSystem(code string) (MeasurementSystem, error) {
	sys := MeasurementSystem(strings.ToUpper(strings.TrimSpace(code)))
	switch sys {
	case SystemAMS, SystemOHL, SystemPI, SystemRC, SystemRP, SystemTG, SystemTSIGHT:
		return sys, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSystem, code)
}

// SystemFromFileName derives the system from the `<SYSTEM>_<id>_...csv` naming convention.
func SystemFromFileName(name string) (MeasurementSystem, error) {
	base := filepath.Base(name)
	if !strings.EqualFold(filepath.Ext(base), ".csv") {
		return "", fmt.Errorf("%w: %q is not a csv file", ErrUnknownSystem, base)
	}
	code, _, found := strings.Cut(base, "_")
	if !found {
		return "", fmt.Errorf("%w: file name %q does not follow <SYSTEM>_<id>_...csv", ErrUnknownSystem, base)
	}
	return ParseSystem(code)
}

// columnSet returns the catalog's column names as a set.
func (d SystemDefinition) columnSet() map[string]ColumnDescriptor {
	set := make(map[string]ColumnDescriptor, len(d.Columns))
	for _, col := range d.Columns {
		set[col.Name] = col
	}
	return set
}

// ColumnNames returns the catalog's column names in order.
func (d SystemDefinition) ColumnNames() []string {
	names := make([]string, len(d.Columns))
	for i, col := range d.Columns {
		names[i] = col.Name
	}
	return names
}
