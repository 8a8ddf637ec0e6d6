package service

import "catalog-migrator/internal/migrator/domain/model"

// CollisionFunc is told about a natural key seen twice in one listing.
type CollisionFunc func(key string, previousID, currentID int64)

// BuildKeyIndex folds records into natural key → id. On a duplicate key the
// later record in listing order wins, and onCollision (if set) is called.
func BuildKeyIndex[T model.Record](resource model.ResourceType, records []T, onCollision CollisionFunc) *model.KeyIndex {
	idx := model.NewKeyIndex(resource)
	for _, rec := range records {
		key := rec.NaturalKey()
		if previous, collided := idx.Put(key, rec.RecordID()); collided && onCollision != nil {
			onCollision(key, previous, rec.RecordID())
		}
	}
	return idx
}

// JoinOnKey builds a source id → destination id table by matching the two
// listings on natural key. Source records without a counterpart are left
// out.
func JoinOnKey[T model.Record](resource model.ResourceType, source, destination []T, onCollision CollisionFunc) *model.IDTable {
	idx := BuildKeyIndex(resource, destination, onCollision)
	table := model.NewIDTable(resource)
	for _, rec := range source {
		if id, ok := idx.Lookup(rec.NaturalKey()); ok {
			table.Put(rec.RecordID(), id)
		}
	}
	return table
}
