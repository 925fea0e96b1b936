package models

// Counter is a per-scope monotonically increasing sequence, mutated only by
// an atomic increment-and-read.
type Counter struct {
	ID       string `bson:"_id" json:"id"`
	Sequence int64  `bson:"sequence_value" json:"sequence"`
}
