package store

import (
	"github.com/dmitrijs2005/gigbook/internal/client/models"
	"github.com/dmitrijs2005/gigbook/internal/schema"
)

// PlatformTagger stamps new records with the platform this device runs on.
type PlatformTagger struct {
	platform schema.Platform
}

func NewPlatformTagger(p schema.Platform) (*PlatformTagger, error) {
	p, err := schema.ParsePlatform(string(p))
	if err != nil {
		return nil, err
	}
	return &PlatformTagger{platform: p}, nil
}

func (t *PlatformTagger) Platform() schema.Platform {
	return t.platform
}

// Tag sets the platform of a record that has none. An existing tag is never
// replaced.
func (t *PlatformTagger) Tag(rec *models.Record) {
	if rec.Platform == "" {
		rec.Platform = t.platform
	}
}
