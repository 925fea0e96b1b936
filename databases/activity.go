package databases

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/safenetshield/reportsafe-api/models"
)

const activityName = "activities"

// ActivityDatabase is the append-only audit trail. Records are inserted and
// listed, never updated or deleted.
type ActivityDatabase interface {
	Create(ctx context.Context, activity models.Activity) error
	Find(ctx context.Context, filter ActivityQuery) ([]models.Activity, int64, error)
}

// ActivityQuery filters the audit listing
type ActivityQuery struct {
	AdminID      string
	Action       string
	TargetCaseID string
	Page         int
	Limit        int
}

type activityDatabase struct {
	db DatabaseHelper
}

// NewActivityDatabase initializes a new instance of activity database with
// the provided db connection
func NewActivityDatabase(db DatabaseHelper) ActivityDatabase {
	return &activityDatabase{db: db}
}

func (c *activityDatabase) Create(ctx context.Context, activity models.Activity) error {
	if activity.ID.IsZero() {
		activity.ID = primitive.NewObjectID()
	}
	if activity.Timestamp.IsZero() {
		activity.Timestamp = time.Now().UTC()
	}
	if _, err := c.db.Collection(activityName).InsertOne(ctx, activity); err != nil {
		return &models.StorageError{Op: "insert activity", Err: err}
	}
	return nil
}

func (c *activityDatabase) Find(ctx context.Context, q ActivityQuery) ([]models.Activity, int64, error) {
	filter := bson.M{}
	if q.AdminID != "" {
		filter["adminId"] = q.AdminID
	}
	if q.Action != "" {
		filter["action"] = q.Action
	}
	if q.TargetCaseID != "" {
		filter["targetCaseId"] = q.TargetCaseID
	}

	total, err := c.db.Collection(activityName).CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, &models.StorageError{Op: "count activities", Err: err}
	}

	limit := q.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	opts := options.Find().
		SetSort(bson.M{"timestamp": -1}).
		SetLimit(int64(limit)).
		SetSkip(skipFor(q.Page, limit))

	cursor, err := c.db.Collection(activityName).Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, &models.StorageError{Op: "find activities", Err: err}
	}
	var activities []models.Activity
	if err := cursor.All(ctx, &activities); err != nil {
		return nil, 0, &models.StorageError{Op: "decode activities", Err: err}
	}
	if activities == nil {
		activities = []models.Activity{}
	}
	return activities, total, nil
}
