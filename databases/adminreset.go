package databases

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/safenetshield/reportsafe-api/models"
)

const adminResetName = "admin_password_resets"

// AdminResetDatabase stores one-time password reset tokens
type AdminResetDatabase interface {
	Create(ctx context.Context, reset models.AdminPasswordReset) error
	// FindValid returns the reset matching tokenHash if it is unused and
	// not yet expired.
	FindValid(ctx context.Context, tokenHash string) (*models.AdminPasswordReset, error)
	MarkUsed(ctx context.Context, id primitive.ObjectID, at time.Time) error
}

type adminResetDatabase struct {
	db DatabaseHelper
}

// NewAdminResetDatabase initializes a new instance of admin reset database
// with the provided db connection
func NewAdminResetDatabase(db DatabaseHelper) AdminResetDatabase {
	return &adminResetDatabase{db: db}
}

func (c *adminResetDatabase) Create(ctx context.Context, reset models.AdminPasswordReset) error {
	if reset.ID.IsZero() {
		reset.ID = primitive.NewObjectID()
	}
	if _, err := c.db.Collection(adminResetName).InsertOne(ctx, reset); err != nil {
		return &models.StorageError{Op: "insert password reset", Err: err}
	}
	return nil
}

func (c *adminResetDatabase) FindValid(ctx context.Context, tokenHash string) (*models.AdminPasswordReset, error) {
	reset := &models.AdminPasswordReset{}
	err := c.db.Collection(adminResetName).FindOne(ctx, bson.M{
		"tokenHash": tokenHash,
		"usedAt":    bson.M{"$exists": false},
		"expiresAt": bson.M{"$gt": time.Now()},
	}).Decode(reset)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &models.NotFoundError{Resource: "password reset", Key: tokenHash}
		}
		return nil, &models.StorageError{Op: "find password reset", Err: err}
	}
	return reset, nil
}

func (c *adminResetDatabase) MarkUsed(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	_, err := c.db.Collection(adminResetName).UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"usedAt": at}},
	)
	if err != nil {
		return &models.StorageError{Op: "mark password reset used", Err: err}
	}
	return nil
}
