package databases

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/safenetshield/reportsafe-api/models"
)

const adminName = "admins"

// AdminDatabase contains the methods to use with the admin accounts
type AdminDatabase interface {
	FindByEmail(ctx context.Context, email string) (*models.AdminUser, error)
	FindByID(ctx context.Context, id string) (*models.AdminUser, error)
	Create(ctx context.Context, admin models.AdminUser) error
	Count(ctx context.Context) (int64, error)
	TouchLogin(ctx context.Context, id primitive.ObjectID, at time.Time) error
	UpdatePassword(ctx context.Context, id primitive.ObjectID, passwordHash string, at time.Time) error
}

type adminDatabase struct {
	db DatabaseHelper
}

// NewAdminDatabase initializes a new instance of admin database with the
// provided db connection
func NewAdminDatabase(db DatabaseHelper) AdminDatabase {
	return &adminDatabase{db: db}
}

func (c *adminDatabase) FindByEmail(ctx context.Context, email string) (*models.AdminUser, error) {
	admin := &models.AdminUser{}
	err := c.db.Collection(adminName).
		FindOne(ctx, bson.M{"email": strings.ToLower(email), "active": true}).
		Decode(admin)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &models.NotFoundError{Resource: "admin", Key: email}
		}
		return nil, &models.StorageError{Op: "find admin", Err: err}
	}
	return admin, nil
}

func (c *adminDatabase) FindByID(ctx context.Context, id string) (*models.AdminUser, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, &models.NotFoundError{Resource: "admin", Key: id}
	}
	admin := &models.AdminUser{}
	err = c.db.Collection(adminName).FindOne(ctx, bson.M{"_id": oid}).Decode(admin)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &models.NotFoundError{Resource: "admin", Key: id}
		}
		return nil, &models.StorageError{Op: "find admin", Err: err}
	}
	return admin, nil
}

func (c *adminDatabase) Create(ctx context.Context, admin models.AdminUser) error {
	if admin.ID.IsZero() {
		admin.ID = primitive.NewObjectID()
	}
	if _, err := c.db.Collection(adminName).InsertOne(ctx, admin); err != nil {
		return &models.StorageError{Op: "insert admin", Err: err}
	}
	return nil
}

func (c *adminDatabase) Count(ctx context.Context) (int64, error) {
	n, err := c.db.Collection(adminName).CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, &models.StorageError{Op: "count admins", Err: err}
	}
	return n, nil
}

func (c *adminDatabase) UpdatePassword(ctx context.Context, id primitive.ObjectID, passwordHash string, at time.Time) error {
	_, err := c.db.Collection(adminName).UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"passwordHash": passwordHash, "updatedAt": at}},
	)
	if err != nil {
		return &models.StorageError{Op: "update admin password", Err: err}
	}
	return nil
}

func (c *adminDatabase) TouchLogin(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	_, err := c.db.Collection(adminName).UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"lastLoginAt": at, "updatedAt": at}},
	)
	if err != nil {
		return &models.StorageError{Op: "touch admin login", Err: err}
	}
	return nil
}
