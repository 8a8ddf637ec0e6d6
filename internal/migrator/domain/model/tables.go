package model

import "fmt"

// IDTable maps source ids to destination ids for one resource type within
// one run. Failed records never get an entry.
type IDTable struct {
	Resource ResourceType
	ids      map[int64]int64
}

func NewIDTable(resource ResourceType) *IDTable {
	return &IDTable{Resource: resource, ids: make(map[int64]int64)}
}

func (t *IDTable) Put(sourceID, destinationID int64) {
	t.ids[sourceID] = destinationID
}

func (t *IDTable) Lookup(sourceID int64) (int64, bool) {
	id, ok := t.ids[sourceID]
	return id, ok
}

func (t *IDTable) Len() int {
	return len(t.ids)
}

// KeyIndex maps natural keys to destination ids. It is built once per
// resource type (per blog for articles) and only read afterwards.
type KeyIndex struct {
	Resource ResourceType
	ids      map[string]int64
}

func NewKeyIndex(resource ResourceType) *KeyIndex {
	return &KeyIndex{Resource: resource, ids: make(map[string]int64)}
}

// Put stores key → id. The later call wins; the previous id is returned so
// callers can report the collision.
func (k *KeyIndex) Put(key string, id int64) (previous int64, collided bool) {
	previous, collided = k.ids[key]
	k.ids[key] = id
	return previous, collided
}

func (k *KeyIndex) Lookup(key string) (int64, bool) {
	id, ok := k.ids[key]
	return id, ok
}

func (k *KeyIndex) Len() int {
	return len(k.ids)
}

// Policy decides what happens to a source record whose key already exists
// at the destination.
type Policy int

const (
	// PolicySkipExisting leaves the destination record alone.
	PolicySkipExisting Policy = iota
	// PolicyDeleteThenRecreate deletes the destination record, then migrates.
	PolicyDeleteThenRecreate
	// PolicyAlwaysRecreate migrates anyway and produces a duplicate. It is
	// what you get with neither the delete nor the skip flag set.
	PolicyAlwaysRecreate
)

// PolicyFor resolves the per-type delete flag and the global skip flag.
// Delete wins over skip.
func PolicyFor(deleteExisting, skipExisting bool) Policy {
	switch {
	case deleteExisting:
		return PolicyDeleteThenRecreate
	case skipExisting:
		return PolicySkipExisting
	default:
		return PolicyAlwaysRecreate
	}
}

func (p Policy) String() string {
	switch p {
	case PolicySkipExisting:
		return "skip-existing"
	case PolicyDeleteThenRecreate:
		return "delete-then-recreate"
	case PolicyAlwaysRecreate:
		return "always-recreate"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}
