// Package models defines the device-side record shape shared by the store,
// the gateway and the merge workflow.
package models

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/gigbook/internal/schema"
)

// Record is one entity of a collection as held on the device. Fields carries
// the entity payload under local (camelCase) names.
type Record struct {
	ID           string
	OwnerID      string
	Platform     schema.Platform
	Fields       map[string]any
	UpdatedAt    time.Time
	LastSyncedAt *time.Time
}

// Bundle is the result of a full pull, keyed by collection.
type Bundle map[schema.Collection][]*Record

// Len counts records across all collections.
func (b Bundle) Len() int {
	n := 0
	for _, recs := range b {
		n += len(recs)
	}
	return n
}

var reserved = map[string]struct{}{
	schema.KeyID:           {},
	schema.KeyOwnerID:      {},
	schema.KeyPlatform:     {},
	schema.KeyUpdatedAt:    {},
	schema.KeyLastSyncedAt: {},
}

// Clone copies the record and its Fields map; field values are shared.
func (r *Record) Clone() *Record {
	cp := *r
	cp.Fields = make(map[string]any, len(r.Fields))
	for k, v := range r.Fields {
		cp.Fields[k] = v
	}
	if r.LastSyncedAt != nil {
		t := *r.LastSyncedAt
		cp.LastSyncedAt = &t
	}
	return &cp
}

// Local flattens the record into a camelCase row, the input of
// schema.ToCloud.
func (r *Record) Local() map[string]any {
	out := make(map[string]any, len(r.Fields)+len(reserved))
	for k, v := range r.Fields {
		out[k] = v
	}
	out[schema.KeyID] = r.ID
	out[schema.KeyPlatform] = string(r.Platform)
	out[schema.KeyUpdatedAt] = FormatTime(r.UpdatedAt)
	if r.OwnerID != "" {
		out[schema.KeyOwnerID] = r.OwnerID
	}
	if r.LastSyncedAt != nil {
		out[schema.KeyLastSyncedAt] = FormatTime(*r.LastSyncedAt)
	}
	return out
}

// RecordFromLocal is the inverse of Local.
func RecordFromLocal(m map[string]any) (*Record, error) {
	id, _ := m[schema.KeyID].(string)
	if id == "" {
		return nil, fmt.Errorf("record without %s", schema.KeyID)
	}

	ps, _ := m[schema.KeyPlatform].(string)
	p, err := schema.ParsePlatform(ps)
	if err != nil {
		return nil, fmt.Errorf("record %s: %w", id, err)
	}

	r := &Record{ID: id, Platform: p, Fields: make(map[string]any, len(m))}
	r.OwnerID, _ = m[schema.KeyOwnerID].(string)

	if s, ok := m[schema.KeyUpdatedAt].(string); ok && s != "" {
		if r.UpdatedAt, err = ParseTime(s); err != nil {
			return nil, fmt.Errorf("record %s: %s: %w", id, schema.KeyUpdatedAt, err)
		}
	}
	if s, ok := m[schema.KeyLastSyncedAt].(string); ok && s != "" {
		t, err := ParseTime(s)
		if err != nil {
			return nil, fmt.Errorf("record %s: %s: %w", id, schema.KeyLastSyncedAt, err)
		}
		r.LastSyncedAt = &t
	}

	for k, v := range m {
		if _, ok := reserved[k]; ok {
			continue
		}
		r.Fields[k] = v
	}
	return r, nil
}

// timeLayout is RFC 3339 with a fixed nine-digit fraction. Unlike
// time.RFC3339Nano it keeps trailing zeros, so stored values sort
// chronologically as plain strings.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// FormatTime is the single timestamp encoding used on disk and on the wire.
func FormatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
