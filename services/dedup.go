package services

import (
	"cricauction-scraper/models"
	"cricauction-scraper/utils"
)

// KeyIndex is the cross-run history of identity keys, seeded from the local
// store. It is distinct from the walker's per-session seen set and must not
// be shared across runs.
type KeyIndex struct {
	keys *utils.KeySet[models.IdentityKey]
}

// LoadKeyIndex builds an index from previously stored rows. Every key is
// recomputed from the raw positional fields.
func LoadKeyIndex[T any](rows [][]T) *KeyIndex {
	idx := &KeyIndex{keys: utils.NewKeySet[models.IdentityKey]()}
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		idx.keys.Add(RowKey(row))
	}
	return idx
}

// Admit records the key of r and returns true when it was not yet known.
func (i *KeyIndex) Admit(r models.Record) bool {
	return i.keys.Add(BuildIdentityKey(r))
}

// Contains reports whether key is already indexed.
func (i *KeyIndex) Contains(key models.IdentityKey) bool {
	return i.keys.Contains(key)
}

// Len returns the number of distinct keys indexed.
func (i *KeyIndex) Len() int {
	return i.keys.Size()
}
