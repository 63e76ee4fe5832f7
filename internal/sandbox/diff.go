package sandbox

import (
	"reflect"
	"sort"

	"gatehouse/internal/entity"
)

// Diff compares the record's staged monitored fields against the entity's
// current values and returns the names that differ, sorted. An empty result
// means the staged snapshot is already reflected in the entity and there is
// no meaningful pending change.
//
// Schema drift is tolerated in both directions: staged keys that are no
// longer monitored, or no longer present on the entity, are ignored rather
// than applied. This is pure domain logic - no I/O, no side effects.
func Diff(cfg Config, rec *Record, src entity.Entity) []string {
	var changed []string
	for name, staged := range rec.Fields {
		if !cfg.monitors(name) {
			continue
		}
		current, ok := src.Field(name)
		if !ok {
			continue
		}
		if !reflect.DeepEqual(staged, current) {
			changed = append(changed, name)
		}
	}
	sort.Strings(changed)
	return changed
}
