package databases_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/safenetshield/reportsafe-api/databases"
	"github.com/safenetshield/reportsafe-api/databases/mocks"
	"github.com/safenetshield/reportsafe-api/models"
)

func TestAdminFindByEmail(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	collection := &mocks.CollectionHelper{}
	singleResult := &mocks.SingleResultHelper{}

	singleResult.On("Decode", mock.AnythingOfType("*models.AdminUser")).
		Return(nil).
		Run(func(args mock.Arguments) {
			admin := args.Get(0).(*models.AdminUser)
			admin.ID = primitive.NewObjectID()
			admin.Email = "triage@reportsafe.org"
			admin.Active = true
		})
	collection.On("FindOne", mock.Anything, mock.Anything).Return(singleResult)
	dbHelper.On("Collection", "admins").Return(collection)

	db := databases.NewAdminDatabase(dbHelper)
	admin, err := db.FindByEmail(context.Background(), "Triage@ReportSafe.org")

	assert.NoError(t, err)
	assert.Equal(t, "triage@reportsafe.org", admin.Email)
	dbHelper.AssertExpectations(t)
	collection.AssertExpectations(t)
}

func TestAdminFindByEmailNotFound(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	collection := &mocks.CollectionHelper{}
	singleResult := &mocks.SingleResultHelper{}

	singleResult.On("Decode", mock.Anything).Return(mongo.ErrNoDocuments)
	collection.On("FindOne", mock.Anything, mock.Anything).Return(singleResult)
	dbHelper.On("Collection", "admins").Return(collection)

	db := databases.NewAdminDatabase(dbHelper)
	_, err := db.FindByEmail(context.Background(), "nobody@reportsafe.org")

	var nfe *models.NotFoundError
	assert.ErrorAs(t, err, &nfe)
}

func TestAdminUpdatePassword(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	collection := &mocks.CollectionHelper{}

	collection.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).Return(int64(1), nil)
	dbHelper.On("Collection", "admins").Return(collection)

	db := databases.NewAdminDatabase(dbHelper)
	err := db.UpdatePassword(context.Background(), primitive.NewObjectID(), "new-hash", time.Now())

	assert.NoError(t, err)
	collection.AssertExpectations(t)
}

func TestActivityCreate(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	collection := &mocks.CollectionHelper{}

	collection.On("InsertOne", mock.Anything, mock.AnythingOfType("models.Activity")).
		Return("inserted-id", nil)
	dbHelper.On("Collection", "activities").Return(collection)

	db := databases.NewActivityDatabase(dbHelper)
	err := db.Create(context.Background(), models.Activity{
		AdminID: "admin-1",
		Action:  models.ActionLogin,
	})

	assert.NoError(t, err)
	collection.AssertExpectations(t)
}

func TestCounterNextSequence(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	collection := &mocks.CollectionHelper{}
	singleResult := &mocks.SingleResultHelper{}

	singleResult.On("Decode", mock.AnythingOfType("*models.Counter")).
		Return(nil).
		Run(func(args mock.Arguments) {
			counter := args.Get(0).(*models.Counter)
			counter.ID = "caseId"
			counter.Sequence = 42
		})
	collection.On("FindOneAndUpdate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(singleResult)
	dbHelper.On("Collection", "counters").Return(collection)

	db := databases.NewCounterDatabase(dbHelper)
	n, err := db.NextSequence(context.Background(), "caseId")

	assert.NoError(t, err)
	assert.Equal(t, int64(42), n)
}

func TestAdminResetFindValidNotFound(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	collection := &mocks.CollectionHelper{}
	singleResult := &mocks.SingleResultHelper{}

	singleResult.On("Decode", mock.Anything).Return(mongo.ErrNoDocuments)
	collection.On("FindOne", mock.Anything, mock.Anything).Return(singleResult)
	dbHelper.On("Collection", "admin_password_resets").Return(collection)

	db := databases.NewAdminResetDatabase(dbHelper)
	_, err := db.FindValid(context.Background(), "deadbeef")

	var nfe *models.NotFoundError
	assert.ErrorAs(t, err, &nfe)
}

func TestAdminResetMarkUsed(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	collection := &mocks.CollectionHelper{}

	collection.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).Return(int64(1), nil)
	dbHelper.On("Collection", "admin_password_resets").Return(collection)

	db := databases.NewAdminResetDatabase(dbHelper)
	err := db.MarkUsed(context.Background(), primitive.NewObjectID(), time.Now())

	assert.NoError(t, err)
	collection.AssertExpectations(t)
}
