package schema

import "fmt"

var basePairs = []FieldPair{
	{KeyID, ColID},
	{KeyOwnerID, ColUserID},
	{KeyPlatform, ColPlatform},
	{KeyUpdatedAt, ColUpdatedAt},
	{KeyLastSyncedAt, ColLastSyncedAt},
	{KeyCreatedAt, ColCreatedAt},
}

// Collection-specific pairs. Single-word fields ("title", "notes") are the
// same on both sides and still listed so the table documents the schema.
var collectionPairs = map[Collection][]FieldPair{
	Events: {
		{"title", "title"},
		{"venue", "venue"},
		{"date", "date"},
		{"startTime", "start_time"},
		{"endTime", "end_time"},
		{"categoryId", "category_id"},
		{"personIds", "person_ids"},
		{"setList", "set_list"},
		{"mediaUri", "media_uri"},
		{"notes", "notes"},
	},
	Routines: {
		{"title", "title"},
		{"steps", "steps"},
		{"durationMinutes", "duration_minutes"},
		{"categoryId", "category_id"},
		{"blockIds", "block_ids"},
		{"isArchived", "is_archived"},
	},
	Blocks: {
		{"title", "title"},
		{"blockType", "block_type"},
		{"content", "content"},
		{"mediaUri", "media_uri"},
		{"categoryId", "category_id"},
		{"sortOrder", "sort_order"},
		{"tempoBpm", "tempo_bpm"},
	},
	Categories: {
		{"name", "name"},
		{"color", "color"},
		{"icon", "icon"},
		{"sortOrder", "sort_order"},
		{"parentId", "parent_id"},
	},
	People: {
		{"name", "name"},
		{"role", "role"},
		{"email", "email"},
		{"phone", "phone"},
		{"avatarUri", "avatar_uri"},
		{"notes", "notes"},
	},
	LearningPaths: {
		{"title", "title"},
		{"description", "description"},
		{"blockIds", "block_ids"},
		{"categoryId", "category_id"},
		{"coverUri", "cover_uri"},
	},
	UserProgress: {
		{"pathId", "path_id"},
		{"blockId", "block_id"},
		{"completedAt", "completed_at"},
		{"score", "score"},
		{"attempts", "attempts"},
	},
	ProofOfWork: {
		{"title", "title"},
		{"description", "description"},
		{"mediaUri", "media_uri"},
		{"blockId", "block_id"},
		{"pathId", "path_id"},
		{"recordedAt", "recorded_at"},
	},
}

var fieldMaps = buildFieldMaps()

func buildFieldMaps() map[Collection]*FieldMap {
	out := make(map[Collection]*FieldMap, len(collectionPairs))
	for c, pairs := range collectionPairs {
		all := append(append([]FieldPair{}, basePairs...), pairs...)
		m := MustFieldMap(all...)
		if err := m.Validate(requiredColumns...); err != nil {
			panic(fmt.Sprintf("schema: %s: %v", c, err))
		}
		out[c] = m
	}
	return out
}

// FieldMapFor returns the map for c. Asking for a collection outside the
// schema is a programming error and panics.
func FieldMapFor(c Collection) *FieldMap {
	m, ok := fieldMaps[c]
	if !ok {
		panic(fmt.Sprintf("schema: no field map for collection %q", c))
	}
	return m
}
