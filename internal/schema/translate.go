package schema

// ToCloud renames every mapped key of a local row to its cloud column.
// Unmapped keys pass through under the same name unless a mapped key already
// produced that column. The input is never modified.
func ToCloud(c Collection, row map[string]any) map[string]any {
	return rename(row, FieldMapFor(c).toCloud)
}

// FromCloud is the inverse of ToCloud.
func FromCloud(c Collection, row map[string]any) map[string]any {
	return rename(row, FieldMapFor(c).toLocal)
}

func rename(row map[string]any, names map[string]string) map[string]any {
	if row == nil {
		return nil
	}
	out := make(map[string]any, len(row))
	var passthrough []string
	for k, v := range row {
		if to, ok := names[k]; ok {
			out[to] = v
			continue
		}
		passthrough = append(passthrough, k)
	}
	for _, k := range passthrough {
		if _, taken := out[k]; !taken {
			out[k] = row[k]
		}
	}
	return out
}
