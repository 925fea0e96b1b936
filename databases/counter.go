package databases

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/safenetshield/reportsafe-api/models"
)

const counterName = "counters"

// CounterDatabase yields per-scope sequence values with a single atomic
// increment-and-read, so concurrent submissions never share a case number.
type CounterDatabase interface {
	NextSequence(ctx context.Context, name string) (int64, error)
}

type counterDatabase struct {
	db DatabaseHelper
}

// NewCounterDatabase initializes a new instance of counter database with the
// provided db connection
func NewCounterDatabase(db DatabaseHelper) CounterDatabase {
	return &counterDatabase{db: db}
}

func (c *counterDatabase) NextSequence(ctx context.Context, name string) (int64, error) {
	upsert := true
	after := options.After
	opts := &options.FindOneAndUpdateOptions{Upsert: &upsert, ReturnDocument: &after}

	counter := &models.Counter{}
	err := c.db.Collection(counterName).FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"sequence_value": 1}},
		opts,
	).Decode(counter)
	if err != nil {
		return 0, &models.StorageError{Op: "increment counter", Err: err}
	}
	return counter.Sequence, nil
}
