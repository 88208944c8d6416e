package form

import (
	"encoding/json"
	"reflect"
	"sort"

	"github.com/mohae/deepcopy"
	"github.com/tidwall/gjson"
)

// Snapshot is an immutable key/value capture of a form's value.
// Values are deep copied on capture and must not be mutated afterwards.
type Snapshot map[string]any

// Capture returns a deep copy of values as a Snapshot.
func Capture(values map[string]any) Snapshot {
	if values == nil {
		return Snapshot{}
	}
	return Snapshot(deepcopy.Copy(values).(map[string]any))
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	return Capture(s)
}

// Get returns the top-level value stored under key.
func (s Snapshot) Get(key string) (any, bool) {
	v, ok := s[key]
	return v, ok
}

// Lookup reads a nested value using gjson path syntax, e.g. "headers.accept"
// or "targets.0".
func (s Snapshot) Lookup(path string) (any, bool) {
	data, err := json.Marshal(map[string]any(s))
	if err != nil {
		return nil, false
	}
	result := gjson.GetBytes(data, path)
	if !result.Exists() {
		return nil, false
	}
	return result.Value(), true
}

// Equal reports whether two snapshots hold the same values.
// A nil snapshot equals an empty one.
func (s Snapshot) Equal(other Snapshot) bool {
	if len(s) == 0 && len(other) == 0 {
		return true
	}
	return reflect.DeepEqual(map[string]any(s), map[string]any(other))
}

// Diff returns the sorted keys whose values differ between s and other,
// including keys present on only one side.
func (s Snapshot) Diff(other Snapshot) []string {
	changed := make([]string, 0)
	for k, v := range s {
		ov, ok := other[k]
		if !ok || !reflect.DeepEqual(v, ov) {
			changed = append(changed, k)
		}
	}
	for k := range other {
		if _, ok := s[k]; !ok {
			changed = append(changed, k)
		}
	}
	sort.Strings(changed)
	return changed
}
