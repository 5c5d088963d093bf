package pipeline

import (
	"github.com/backmassage/campaigndelta/internal/link"
	"github.com/backmassage/campaigndelta/internal/loader"
)

// VideoIDs returns the distinct video ids of the new table in row order.
// Empty ids are dropped.
func VideoIDs(t *loader.NewTable, marker string) []string {
	seen := make(map[string]bool, len(t.Rows))
	ids := make([]string, 0, len(t.Rows))
	for _, r := range t.Rows {
		id := link.VideoID(r.Link, marker)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}
