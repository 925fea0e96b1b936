package databases

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/safenetshield/reportsafe-api/models"
)

const schedulerLockName = "scheduler_locks"

// SchedulerLockDatabase provides a coarse distributed lock so retention jobs
// run on one instance at a time.
type SchedulerLockDatabase interface {
	TryAcquireLock(ctx context.Context, name, instanceID string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, name, instanceID string) error
}

type schedulerLockDatabase struct {
	db DatabaseHelper
}

// NewSchedulerLockDatabase initializes a new instance of scheduler lock
// database with the provided db connection
func NewSchedulerLockDatabase(db DatabaseHelper) SchedulerLockDatabase {
	return &schedulerLockDatabase{db: db}
}

func (c *schedulerLockDatabase) TryAcquireLock(ctx context.Context, name, instanceID string, ttl time.Duration) (bool, error) {
	now := time.Now().UTC()
	upsert := true
	opts := &options.UpdateOptions{Upsert: &upsert}

	// Claim the lock when it is free, expired, or already ours. A held lock
	// surfaces as a duplicate key error on the upsert.
	filter := bson.M{
		"_id": name,
		"$or": bson.A{
			bson.M{"expiresAt": bson.M{"$lt": now}},
			bson.M{"holder": instanceID},
		},
	}
	update := bson.M{"$set": bson.M{
		"holder":    instanceID,
		"expiresAt": now.Add(ttl),
	}}

	_, err := c.db.Collection(schedulerLockName).UpdateOne(ctx, filter, update, opts)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, &models.StorageError{Op: "acquire scheduler lock", Err: err}
	}
	return true, nil
}

func (c *schedulerLockDatabase) ReleaseLock(ctx context.Context, name, instanceID string) error {
	_, err := c.db.Collection(schedulerLockName).DeleteOne(ctx, bson.M{"_id": name, "holder": instanceID})
	if err != nil {
		return &models.StorageError{Op: "release scheduler lock", Err: err}
	}
	return nil
}
