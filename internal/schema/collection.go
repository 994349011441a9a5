package schema

import (
	"fmt"

	"github.com/dmitrijs2005/gigbook/internal/common"
)

// Collection names a homogeneous set of records. The name doubles as the
// cloud table name.
type Collection string

const (
	Events        Collection = "events"
	Routines      Collection = "routines"
	Blocks        Collection = "blocks"
	Categories    Collection = "categories"
	People        Collection = "people"
	LearningPaths Collection = "learning_paths"
	UserProgress  Collection = "user_progress"
	ProofOfWork   Collection = "proof_of_work"
)

// Collections returns all synced collections in push order: categories
// first since other records reference them.
func Collections() []Collection {
	return []Collection{
		Categories,
		Events,
		Routines,
		Blocks,
		People,
		LearningPaths,
		UserProgress,
		ProofOfWork,
	}
}

// ParseCollection validates a collection name.
func ParseCollection(s string) (Collection, error) {
	c := Collection(s)
	if _, ok := fieldMaps[c]; !ok {
		return "", fmt.Errorf("%w: %q", common.ErrUnknownCollection, s)
	}
	return c, nil
}

// Table returns the cloud table backing the collection.
func (c Collection) Table() string {
	return string(c)
}

func (c Collection) String() string {
	return string(c)
}
