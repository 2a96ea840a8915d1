// Package platforms registers the warehouse adapter for every sequencing
// platform.
package platforms

import (
	"fmt"

	"mlwh-sync/core/database"
	"mlwh-sync/core/reconcile"
	"mlwh-sync/feature/platforms/illumina"
	"mlwh-sync/feature/platforms/ont"
	"mlwh-sync/feature/platforms/pacbio"
)

// Adapter is a reconcile.Adapter that can also describe the warehouse
// tables it reads.
type Adapter interface {
	reconcile.Adapter
	Tables() []database.TableSpec
}

// All returns one adapter per platform in reconcile.Platforms order.
func All() []Adapter {
	return []Adapter{illumina.NewAdapter(), pacbio.NewAdapter(), ont.NewAdapter()}
}

// Select returns the adapters for the named platforms. No names selects
// every platform. Duplicates are ignored.
func Select(names []string) ([]Adapter, error) {
	if len(names) == 0 {
		return All(), nil
	}
	want := make(map[reconcile.Platform]bool, len(names))
	for _, n := range names {
		p, err := reconcile.ParsePlatform(n)
		if err != nil {
			return nil, err
		}
		want[p] = true
	}
	var out []Adapter
	for _, a := range All() {
		if want[a.Platform()] {
			out = append(out, a)
		}
	}
	return out, nil
}

// ByPlatform returns the adapter for one platform.
func ByPlatform(name string) (Adapter, error) {
	as, err := Select([]string{name})
	if err != nil {
		return nil, err
	}
	if len(as) != 1 {
		return nil, fmt.Errorf("no adapter for platform %q", name)
	}
	return as[0], nil
}

// Reconcilers narrows adapters to the engine interface.
func Reconcilers(as []Adapter) []reconcile.Adapter {
	out := make([]reconcile.Adapter, len(as))
	for i, a := range as {
		out[i] = a
	}
	return out
}

// Tables returns every table spec the adapters depend on, de-duplicated by
// table name. Shared tables keep the union of their columns.
func Tables(as []Adapter) []database.TableSpec {
	var (
		order []string
		cols  = make(map[string][]string)
		seen  = make(map[string]map[string]bool)
	)
	for _, a := range as {
		for _, spec := range a.Tables() {
			if _, ok := seen[spec.Name]; !ok {
				order = append(order, spec.Name)
				seen[spec.Name] = make(map[string]bool)
			}
			for _, c := range spec.Columns {
				if !seen[spec.Name][c] {
					seen[spec.Name][c] = true
					cols[spec.Name] = append(cols[spec.Name], c)
				}
			}
		}
	}
	out := make([]database.TableSpec, len(order))
	for i, name := range order {
		out[i] = database.TableSpec{Name: name, Columns: cols[name]}
	}
	return out
}
