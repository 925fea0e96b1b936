package databases

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/safenetshield/reportsafe-api/models"
)

const moduleName = "learning_modules"

// ModuleQuery filters the module catalogue
type ModuleQuery struct {
	Category      string
	Difficulty    string
	PublishedOnly bool
	Page          int
	Limit         int
}

// ModuleDatabase contains the methods to use with the learning module catalogue
type ModuleDatabase interface {
	Find(ctx context.Context, q ModuleQuery) ([]models.LearningModule, int64, error)
	FindBySlug(ctx context.Context, slug string, publishedOnly bool) (*models.LearningModule, error)
	Create(ctx context.Context, module models.LearningModule) error
	Update(ctx context.Context, module *models.LearningModule) error
	Delete(ctx context.Context, slug string) error
	IncrementViews(ctx context.Context, slug string) error
}

type moduleDatabase struct {
	db DatabaseHelper
}

// NewModuleDatabase initializes a new instance of module database with the
// provided db connection
func NewModuleDatabase(db DatabaseHelper) ModuleDatabase {
	return &moduleDatabase{db: db}
}

func (c *moduleDatabase) Find(ctx context.Context, q ModuleQuery) ([]models.LearningModule, int64, error) {
	filter := bson.M{}
	if q.PublishedOnly {
		filter["published"] = true
	}
	if q.Category != "" {
		filter["category"] = q.Category
	}
	if q.Difficulty != "" {
		filter["difficulty"] = q.Difficulty
	}

	total, err := c.db.Collection(moduleName).CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, &models.StorageError{Op: "count modules", Err: err}
	}

	limit := q.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	opts := options.Find().
		SetSort(bson.M{"createdAt": -1}).
		SetLimit(int64(limit)).
		SetSkip(skipFor(q.Page, limit))

	cursor, err := c.db.Collection(moduleName).Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, &models.StorageError{Op: "find modules", Err: err}
	}
	var modules []models.LearningModule
	if err := cursor.All(ctx, &modules); err != nil {
		return nil, 0, &models.StorageError{Op: "decode modules", Err: err}
	}
	if modules == nil {
		modules = []models.LearningModule{}
	}
	return modules, total, nil
}

func (c *moduleDatabase) FindBySlug(ctx context.Context, slug string, publishedOnly bool) (*models.LearningModule, error) {
	filter := bson.M{"slug": slug}
	if publishedOnly {
		filter["published"] = true
	}
	module := &models.LearningModule{}
	err := c.db.Collection(moduleName).FindOne(ctx, filter).Decode(module)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &models.NotFoundError{Resource: "learning module", Key: slug}
		}
		return nil, &models.StorageError{Op: "find module", Err: err}
	}
	return module, nil
}

func (c *moduleDatabase) Create(ctx context.Context, module models.LearningModule) error {
	if module.ID.IsZero() {
		module.ID = primitive.NewObjectID()
	}
	if _, err := c.db.Collection(moduleName).InsertOne(ctx, module); err != nil {
		return &models.StorageError{Op: "insert module", Err: err}
	}
	return nil
}

func (c *moduleDatabase) Update(ctx context.Context, module *models.LearningModule) error {
	module.UpdatedAt = time.Now().UTC()
	modified, err := c.db.Collection(moduleName).UpdateOne(ctx,
		bson.M{"slug": module.Slug},
		bson.M{"$set": module},
	)
	if err != nil {
		return &models.StorageError{Op: "update module", Err: err}
	}
	if modified == 0 {
		if _, err := c.FindBySlug(ctx, module.Slug, false); err != nil {
			return err
		}
	}
	return nil
}

func (c *moduleDatabase) Delete(ctx context.Context, slug string) error {
	deleted, err := c.db.Collection(moduleName).DeleteOne(ctx, bson.M{"slug": slug})
	if err != nil {
		return &models.StorageError{Op: "delete module", Err: err}
	}
	if deleted == 0 {
		return &models.NotFoundError{Resource: "learning module", Key: slug}
	}
	return nil
}

func (c *moduleDatabase) IncrementViews(ctx context.Context, slug string) error {
	_, err := c.db.Collection(moduleName).UpdateOne(ctx,
		bson.M{"slug": slug},
		bson.M{"$inc": bson.M{"views": 1}},
	)
	if err != nil {
		return &models.StorageError{Op: "increment module views", Err: err}
	}
	return nil
}
