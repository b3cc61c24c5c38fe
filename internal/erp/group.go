package erp

// GroupSpec describes how flat header+child rows fold into nested documents.
type GroupSpec struct {
	// Key is the header identifier shared by all rows of one document.
	Key string
	// HeaderFields are copied from the first row seen for a key.
	HeaderFields []string
	// ItemFields are copied into one child record per row.
	ItemFields []string
	// ItemKey must be non-null for a row to contribute a child record.
	ItemKey string
	// Children names the nested list field on the grouped document.
	Children string
}

// GroupRows folds denormalised rows into one document per header key.
// Documents keep first-seen order and children keep row order.
func GroupRows(rows []Document, spec GroupSpec) []Document {
	children := spec.Children
	if children == "" {
		children = "items"
	}
	index := make(map[string]int)
	out := make([]Document, 0)
	for _, row := range rows {
		key := row.String(spec.Key)
		pos, seen := index[key]
		if !seen {
			header := Document{spec.Key: row[spec.Key]}
			for _, field := range spec.HeaderFields {
				header[field] = row[field]
			}
			header[children] = []Document{}
			out = append(out, header)
			pos = len(out) - 1
			index[key] = pos
		}
		if row[spec.ItemKey] == nil {
			continue
		}
		item := make(Document, len(spec.ItemFields))
		for _, field := range spec.ItemFields {
			item[field] = row[field]
		}
		out[pos][children] = append(out[pos][children].([]Document), item)
	}
	return out
}
