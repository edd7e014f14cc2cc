package model

import "time"

// Lock is an advisory lock document. Inserting a second lock with the same ID fails with a
// duplicate key error, which serializes writers keyed by that ID. Expired locks are removed
// by a TTL index on expires_at. Owner is a random token issued on acquire; only
// the holder presenting it can release the lock.
type Lock struct {
	ID        string    `bson:"_id" json:"id"`
	Owner     string    `bson:"owner" json:"owner"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
