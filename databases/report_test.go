package databases_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/safenetshield/reportsafe-api/caseid"
	"github.com/safenetshield/reportsafe-api/databases"
	"github.com/safenetshield/reportsafe-api/databases/mocks"
	"github.com/safenetshield/reportsafe-api/models"
)

func newMongoReportDB(collection *mocks.CollectionHelper) databases.ReportDatabase {
	dbHelper := &mocks.DatabaseHelper{}
	dbHelper.On("Collection", "reports").Return(collection)
	return databases.NewReportDatabase(dbHelper, caseid.New())
}

func TestReportUpdateStatusManyPipeline(t *testing.T) {
	now := time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)
	collection := &mocks.CollectionHelper{}

	var update interface{}
	collection.On("UpdateOne", mock.Anything, bson.M{"caseId": "RS-240401-AB12CD"}, mock.Anything).
		Run(func(args mock.Arguments) { update = args.Get(2) }).
		Return(int64(1), nil)

	db := newMongoReportDB(collection)
	modified, err := db.UpdateStatusMany(context.Background(),
		[]string{"RS-240401-AB12CD"}, models.StatusResolved, "admin-1", now)

	assert.NoError(t, err)
	assert.Equal(t, int64(1), modified)

	pipeline, ok := update.(mongo.Pipeline)
	if !ok {
		t.Fatalf("unexpected update type %T", update)
	}
	assert.Len(t, pipeline, 1)
	stage := pipeline[0][0]
	assert.Equal(t, "$set", stage.Key)

	set := stage.Value.(bson.M)
	assert.Equal(t, models.StatusResolved, set["status"])
	assert.Equal(t, now, set["updatedAt"])
	// first-entry-only: the stamps only land when the document has none yet
	assert.Equal(t, bson.M{"$ifNull": bson.A{"$resolvedAt", now}}, set["resolvedAt"])
	assert.Equal(t, bson.M{"$ifNull": bson.A{"$resolvedBy", "admin-1"}}, set["resolvedBy"])
	assert.NotContains(t, set, "reviewedAt")
	assert.NotContains(t, set, "closedAt")
}

func TestReportUpdateStatusManyContinuesPastFailure(t *testing.T) {
	now := time.Now().UTC()
	collection := &mocks.CollectionHelper{}
	collection.On("UpdateOne", mock.Anything, bson.M{"caseId": "RS-240401-AAAAAA"}, mock.Anything).
		Return(int64(1), nil)
	collection.On("UpdateOne", mock.Anything, bson.M{"caseId": "RS-240401-BBBBBB"}, mock.Anything).
		Return(int64(0), errors.New("socket reset"))
	collection.On("UpdateOne", mock.Anything, bson.M{"caseId": "RS-240401-CCCCCC"}, mock.Anything).
		Return(int64(1), nil)

	db := newMongoReportDB(collection)
	modified, err := db.UpdateStatusMany(context.Background(),
		[]string{"RS-240401-AAAAAA", "RS-240401-BBBBBB", "RS-240401-CCCCCC"},
		models.StatusArchived, "admin-2", now)

	assert.NoError(t, err)
	assert.Equal(t, int64(2), modified)
	collection.AssertExpectations(t)
}

func TestReportUpdateStatusManyInvalidStatus(t *testing.T) {
	collection := &mocks.CollectionHelper{}

	db := newMongoReportDB(collection)
	_, err := db.UpdateStatusMany(context.Background(),
		[]string{"RS-240401-AAAAAA"}, "escalated", "admin-1", time.Now().UTC())

	var invalid *models.InvalidStatusError
	assert.ErrorAs(t, err, &invalid)
	collection.AssertNotCalled(t, "UpdateOne", mock.Anything, mock.Anything, mock.Anything)
}

func TestReportFindManyFilter(t *testing.T) {
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	collection := &mocks.CollectionHelper{}
	cursor := &mocks.CursorHelper{}

	var filter interface{}
	collection.On("CountDocuments", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { filter = args.Get(1) }).
		Return(int64(1), nil)
	collection.On("Find", mock.Anything, mock.Anything, mock.Anything).Return(cursor, nil)
	cursor.On("All", mock.Anything, mock.AnythingOfType("*[]models.Report")).
		Return(nil).
		Run(func(args mock.Arguments) {
			out := args.Get(1).(*[]models.Report)
			*out = []models.Report{{CaseID: "RS-240301-AB12CD"}}
		})

	db := newMongoReportDB(collection)
	reports, total, err := db.FindMany(context.Background(), databases.ReportQuery{
		Status:       models.StatusPending,
		Severity:     models.SeverityHigh,
		IncidentType: models.IncidentThreats,
		Search:       "RS-2403",
		DateFrom:     from,
		DateTo:       to,
		Page:         2,
		Limit:        20,
	})

	assert.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, reports, 1)

	f, ok := filter.(bson.M)
	if !ok {
		t.Fatalf("unexpected filter type %T", filter)
	}
	assert.Equal(t, models.StatusPending, f["status"])
	assert.Equal(t, models.SeverityHigh, f["severity"])
	assert.Equal(t, bson.M{"$in": bson.A{models.IncidentThreats}}, f["incidentTypes"])
	assert.Equal(t, bson.M{"$gte": from, "$lte": to}, f["submittedAt"])

	or, ok := f["$or"].(bson.A)
	assert.True(t, ok)
	assert.Len(t, or, 4)
	assert.Equal(t, bson.M{"caseId": primitive.Regex{Pattern: "RS-2403", Options: "i"}}, or[0])
}
