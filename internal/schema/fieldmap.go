package schema

import "fmt"

// Reserved local keys present on every record.
const (
	KeyID           = "id"
	KeyOwnerID      = "ownerId"
	KeyPlatform     = "platform"
	KeyUpdatedAt    = "updatedAt"
	KeyLastSyncedAt = "lastSyncedAt"
	KeyCreatedAt    = "createdAt"
)

// Reserved cloud columns present on every table.
const (
	ColID           = "id"
	ColUserID       = "user_id"
	ColPlatform     = "platform"
	ColUpdatedAt    = "updated_at"
	ColLastSyncedAt = "last_synced_at"
	ColCreatedAt    = "created_at"
)

// requiredColumns must be reachable through every Field Map.
var requiredColumns = []string{ColID, ColUserID, ColPlatform, ColUpdatedAt, ColLastSyncedAt}

// FieldPair binds a local field name to its cloud column.
type FieldPair struct {
	Local string
	Cloud string
}

// FieldMap is a bijection between local names and cloud columns.
type FieldMap struct {
	pairs   []FieldPair
	toCloud map[string]string
	toLocal map[string]string
}

// NewFieldMap builds a map from pairs. It returns an error on an empty name
// or when either side of a pair is already bound.
func NewFieldMap(pairs ...FieldPair) (*FieldMap, error) {
	m := &FieldMap{
		pairs:   make([]FieldPair, 0, len(pairs)),
		toCloud: make(map[string]string, len(pairs)),
		toLocal: make(map[string]string, len(pairs)),
	}
	for _, p := range pairs {
		if p.Local == "" || p.Cloud == "" {
			return nil, fmt.Errorf("empty name in pair %+v", p)
		}
		if prev, ok := m.toCloud[p.Local]; ok {
			return nil, fmt.Errorf("local field %q mapped twice (%q, %q)", p.Local, prev, p.Cloud)
		}
		if prev, ok := m.toLocal[p.Cloud]; ok {
			return nil, fmt.Errorf("cloud column %q mapped twice (%q, %q)", p.Cloud, prev, p.Local)
		}
		m.toCloud[p.Local] = p.Cloud
		m.toLocal[p.Cloud] = p.Local
		m.pairs = append(m.pairs, p)
	}
	return m, nil
}

// MustFieldMap is NewFieldMap that panics on a malformed table.
func MustFieldMap(pairs ...FieldPair) *FieldMap {
	m, err := NewFieldMap(pairs...)
	if err != nil {
		panic(fmt.Sprintf("schema: %v", err))
	}
	return m
}

// Validate reports the first required column missing from the map.
func (m *FieldMap) Validate(required ...string) error {
	for _, col := range required {
		if _, ok := m.toLocal[col]; !ok {
			return fmt.Errorf("required column %q is not mapped", col)
		}
	}
	return nil
}

// CloudName returns the column for a local field, or the name unchanged.
func (m *FieldMap) CloudName(local string) string {
	if c, ok := m.toCloud[local]; ok {
		return c
	}
	return local
}

// LocalName returns the field for a cloud column, or the name unchanged.
func (m *FieldMap) LocalName(cloud string) string {
	if l, ok := m.toLocal[cloud]; ok {
		return l
	}
	return cloud
}

// Pairs returns a copy of the declared pairs.
func (m *FieldMap) Pairs() []FieldPair {
	out := make([]FieldPair, len(m.pairs))
	copy(out, m.pairs)
	return out
}

// Len is the number of mapped fields.
func (m *FieldMap) Len() int {
	return len(m.pairs)
}
