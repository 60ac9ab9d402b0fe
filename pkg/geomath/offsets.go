package geomath

import (
	"fmt"
	"sort"
)

// OffsetTable maps agent names to their fixed frame offsets
type OffsetTable map[string]Vector3

// Lookup returns the offset for an agent
func (t OffsetTable) Lookup(name string) (Vector3, error) {
	offset, ok := t[name]
	if !ok {
		return Vector3{}, fmt.Errorf("%w: agent %q", ErrOffsetMissing, name)
	}
	return offset, nil
}

// Validate checks that every agent in names has an offset
func (t OffsetTable) Validate(names []string) error {
	var missing []string
	for _, name := range names {
		if _, ok := t[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("%w: agents %v", ErrOffsetMissing, missing)
	}
	return nil
}

// Ordered returns the offsets for names, in order
func (t OffsetTable) Ordered(names []string) ([]Vector3, error) {
	offsets := make([]Vector3, len(names))
	for i, name := range names {
		offset, err := t.Lookup(name)
		if err != nil {
			return nil, err
		}
		offsets[i] = offset
	}
	return offsets, nil
}
