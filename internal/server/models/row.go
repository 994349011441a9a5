// Package models holds the server-side persistence types.
package models

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/gigbook/internal/schema"
)

// Row is one stored record of a collection table. Reserved columns are
// typed; every other column lives in Data under its cloud name.
type Row struct {
	ID           string
	UserID       string
	Platform     schema.Platform
	UpdatedAt    time.Time
	LastSyncedAt time.Time
	Data         map[string]any
}

var reserved = map[string]struct{}{
	schema.ColID:           {},
	schema.ColUserID:       {},
	schema.ColPlatform:     {},
	schema.ColUpdatedAt:    {},
	schema.ColLastSyncedAt: {},
}

// RowFromCloud splits a wire row into reserved columns and data. user_id
// and last_synced_at are ignored: the service sets both.
func RowFromCloud(m map[string]any) (*Row, error) {
	id, _ := m[schema.ColID].(string)
	if id == "" {
		return nil, fmt.Errorf("row without %s", schema.ColID)
	}

	ps, _ := m[schema.ColPlatform].(string)
	p, err := schema.ParsePlatform(ps)
	if err != nil {
		return nil, fmt.Errorf("row %s: %w", id, err)
	}

	r := &Row{ID: id, Platform: p, Data: make(map[string]any, len(m))}

	if s, ok := m[schema.ColUpdatedAt].(string); ok && s != "" {
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return nil, fmt.Errorf("row %s: %s: %w", id, schema.ColUpdatedAt, err)
		}
		r.UpdatedAt = t.UTC()
	}

	for k, v := range m {
		if _, ok := reserved[k]; ok {
			continue
		}
		r.Data[k] = v
	}
	return r, nil
}

// Cloud renders the row back into wire form.
func (r *Row) Cloud() map[string]any {
	out := make(map[string]any, len(r.Data)+len(reserved))
	for k, v := range r.Data {
		out[k] = v
	}
	out[schema.ColID] = r.ID
	out[schema.ColUserID] = r.UserID
	out[schema.ColPlatform] = string(r.Platform)
	out[schema.ColUpdatedAt] = r.UpdatedAt.UTC().Format(time.RFC3339Nano)
	if !r.LastSyncedAt.IsZero() {
		out[schema.ColLastSyncedAt] = r.LastSyncedAt.UTC().Format(time.RFC3339Nano)
	}
	return out
}
