package repository

import (
	"bytes"
	"sort"

	"github.com/google/uuid"
)

// sortedIDs returns map keys in a stable order so concurrent batches lock
// product rows in the same sequence.
func sortedIDs(m map[uuid.UUID]int) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return bytes.Compare(ids[i][:], ids[j][:]) < 0
	})
	return ids
}
