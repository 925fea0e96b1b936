package databases

import (
	"context"
	"errors"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/safenetshield/reportsafe-api/caseid"
	"github.com/safenetshield/reportsafe-api/models"
)

const reportName = "reports"

// DefaultPageSize is used when a query does not name a limit
const DefaultPageSize = 20

// ReportQuery is the filter/sort/pagination predicate for report listings
type ReportQuery struct {
	Status        string
	Statuses      []string
	Severity      string
	IncidentType  string
	Search        string
	DateFrom      time.Time
	DateTo        time.Time
	UpdatedBefore time.Time
	Page          int // 1-based, defaults to 1
	Limit         int // 0 disables pagination
	SortAscending bool
}

// ReportDatabase stores and queries Report entities independent of the
// backing store choice. Implemented by the mongo collection wrapper below and
// by the JSON file store in reportfile.go.
type ReportDatabase interface {
	// Create assigns a caseId (the report must not already carry one), stamps
	// submittedAt when unset and persists the entity.
	Create(ctx context.Context, report *models.Report) error
	FindByCaseID(ctx context.Context, caseID string) (*models.Report, error)
	FindMany(ctx context.Context, q ReportQuery) ([]models.Report, int64, error)
	// Replace persists a mutated entity, keyed by caseId.
	Replace(ctx context.Context, report *models.Report) error
	// UpdateStatusMany applies the single-report status rule to every case in
	// the set, atomically per document. A missing or failing document does not
	// block the others; the return value is the modified count.
	UpdateStatusMany(ctx context.Context, caseIDs []string, status, actorID string, now time.Time) (int64, error)
	DeleteByCaseID(ctx context.Context, caseID string) error
	// FindPurgeable returns reports eligible for retention cleanup: deletion
	// requests past the review window and delete-after-resolution reports past
	// their retention period.
	FindPurgeable(ctx context.Context, deletionRequestedBefore, resolvedBefore time.Time) ([]models.Report, error)
	Statistics(ctx context.Context, window time.Duration) (*models.Statistics, error)
}

type reportDatabase struct {
	db  DatabaseHelper
	gen *caseid.Generator
}

// NewReportDatabase initializes a mongo-backed report database with the
// provided db connection and case ID generator
func NewReportDatabase(db DatabaseHelper, gen *caseid.Generator) ReportDatabase {
	return &reportDatabase{db: db, gen: gen}
}

func (c *reportDatabase) Create(ctx context.Context, report *models.Report) error {
	if report.CaseID != "" {
		return errors.New("report already carries a case id")
	}
	incidentType := ""
	if len(report.IncidentTypes) > 0 {
		incidentType = report.IncidentTypes[0]
	}
	report.CaseID = c.gen.Generate(incidentType)
	if report.ID.IsZero() {
		report.ID = primitive.NewObjectID()
	}
	if report.SubmittedAt.IsZero() {
		report.SubmittedAt = time.Now().UTC()
		report.UpdatedAt = report.SubmittedAt
	}

	if _, err := c.db.Collection(reportName).InsertOne(ctx, report); err != nil {
		return &models.StorageError{Op: "insert report", Err: err}
	}
	return nil
}

func (c *reportDatabase) FindByCaseID(ctx context.Context, caseID string) (*models.Report, error) {
	report := &models.Report{}
	err := c.db.Collection(reportName).FindOne(ctx, bson.M{"caseId": caseID}).Decode(report)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &models.NotFoundError{Resource: "report", Key: caseID}
		}
		return nil, &models.StorageError{Op: "find report", Err: err}
	}
	return report, nil
}

func (c *reportDatabase) FindMany(ctx context.Context, q ReportQuery) ([]models.Report, int64, error) {
	filter := q.filter()

	total, err := c.db.Collection(reportName).CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, &models.StorageError{Op: "count reports", Err: err}
	}

	sortDir := -1
	if q.SortAscending {
		sortDir = 1
	}
	opts := options.Find().SetSort(bson.M{"submittedAt": sortDir})
	if q.Limit > 0 {
		opts = opts.SetLimit(int64(q.Limit)).SetSkip(skipFor(q.Page, q.Limit))
	}

	cursor, err := c.db.Collection(reportName).Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, &models.StorageError{Op: "find reports", Err: err}
	}
	var reports []models.Report
	if err := cursor.All(ctx, &reports); err != nil {
		return nil, 0, &models.StorageError{Op: "decode reports", Err: err}
	}
	if reports == nil {
		reports = []models.Report{}
	}
	return reports, total, nil
}

func (c *reportDatabase) Replace(ctx context.Context, report *models.Report) error {
	modified, err := c.db.Collection(reportName).UpdateOne(ctx,
		bson.M{"caseId": report.CaseID},
		bson.M{"$set": report},
	)
	if err != nil {
		return &models.StorageError{Op: "update report", Err: err}
	}
	if modified == 0 {
		// distinguish a no-op write from a missing document
		if _, err := c.FindByCaseID(ctx, report.CaseID); err != nil {
			return err
		}
	}
	return nil
}

// statusUpdatePipeline expresses the first-entry-only timestamp rule as an
// aggregation pipeline update so each document transition stays atomic.
func statusUpdatePipeline(status, actorID string, now time.Time) interface{} {
	set := bson.M{
		"status":    status,
		"updatedAt": now,
	}
	switch status {
	case models.StatusUnderReview:
		set["reviewedAt"] = bson.M{"$ifNull": bson.A{"$reviewedAt", now}}
		set["reviewedBy"] = bson.M{"$ifNull": bson.A{"$reviewedBy", actorID}}
	case models.StatusResolved:
		set["resolvedAt"] = bson.M{"$ifNull": bson.A{"$resolvedAt", now}}
		set["resolvedBy"] = bson.M{"$ifNull": bson.A{"$resolvedBy", actorID}}
	case models.StatusArchived:
		set["closedAt"] = bson.M{"$ifNull": bson.A{"$closedAt", now}}
		set["closedBy"] = bson.M{"$ifNull": bson.A{"$closedBy", actorID}}
	}
	return mongo.Pipeline{{{Key: "$set", Value: set}}}
}

func (c *reportDatabase) UpdateStatusMany(ctx context.Context, caseIDs []string, status, actorID string, now time.Time) (int64, error) {
	if !models.ValidStatus(status) {
		return 0, &models.InvalidStatusError{Status: status}
	}

	update := statusUpdatePipeline(status, actorID, now)
	var modified int64
	for _, id := range caseIDs {
		n, err := c.db.Collection(reportName).UpdateOne(ctx, bson.M{"caseId": id}, update)
		if err != nil {
			zap.S().Errorw("bulk status update failed for case", "caseId", id, "error", err)
			continue
		}
		modified += n
	}
	return modified, nil
}

func (c *reportDatabase) DeleteByCaseID(ctx context.Context, caseID string) error {
	deleted, err := c.db.Collection(reportName).DeleteOne(ctx, bson.M{"caseId": caseID})
	if err != nil {
		return &models.StorageError{Op: "delete report", Err: err}
	}
	if deleted == 0 {
		return &models.NotFoundError{Resource: "report", Key: caseID}
	}
	return nil
}

func (c *reportDatabase) FindPurgeable(ctx context.Context, deletionRequestedBefore, resolvedBefore time.Time) ([]models.Report, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{
			"status":              models.StatusPendingDeletion,
			"deletionRequestedAt": bson.M{"$lt": deletionRequestedBefore},
		},
		bson.M{
			"status":                        models.StatusResolved,
			"privacy.deleteAfterResolution": true,
			"resolvedAt":                    bson.M{"$lt": resolvedBefore},
		},
	}}

	cursor, err := c.db.Collection(reportName).Find(ctx, filter)
	if err != nil {
		return nil, &models.StorageError{Op: "find purgeable reports", Err: err}
	}
	var reports []models.Report
	if err := cursor.All(ctx, &reports); err != nil {
		return nil, &models.StorageError{Op: "decode purgeable reports", Err: err}
	}
	return reports, nil
}

type facetCount struct {
	ID    string `bson:"_id"`
	Count int64  `bson:"count"`
}

type statisticsFacets struct {
	Total       []struct{ Count int64 `bson:"count"` } `bson:"totalReports"`
	ByStatus    []facetCount                           `bson:"byStatus"`
	BySeverity  []facetCount                           `bson:"bySeverity"`
	ByType      []facetCount                           `bson:"byType"`
	DailyCounts []facetCount                           `bson:"dailyCounts"`
}

func (c *reportDatabase) Statistics(ctx context.Context, window time.Duration) (*models.Statistics, error) {
	since := time.Now().UTC().Add(-window)

	pipeline := mongo.Pipeline{{{Key: "$facet", Value: bson.M{
		"totalReports": bson.A{bson.M{"$count": "count"}},
		"byStatus": bson.A{
			bson.M{"$group": bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}},
		},
		"bySeverity": bson.A{
			bson.M{"$group": bson.M{"_id": "$severity", "count": bson.M{"$sum": 1}}},
		},
		"byType": bson.A{
			bson.M{"$unwind": "$incidentTypes"},
			bson.M{"$group": bson.M{"_id": "$incidentTypes", "count": bson.M{"$sum": 1}}},
			bson.M{"$sort": bson.M{"count": -1}},
		},
		"dailyCounts": bson.A{
			bson.M{"$match": bson.M{"submittedAt": bson.M{"$gte": since}}},
			bson.M{"$group": bson.M{
				"_id":   bson.M{"$dateToString": bson.M{"format": "%Y-%m-%d", "date": "$submittedAt"}},
				"count": bson.M{"$sum": 1},
			}},
			bson.M{"$sort": bson.M{"_id": 1}},
		},
	}}}}

	cursor, err := c.db.Collection(reportName).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, &models.StorageError{Op: "aggregate statistics", Err: err}
	}
	var facets []statisticsFacets
	if err := cursor.All(ctx, &facets); err != nil {
		return nil, &models.StorageError{Op: "decode statistics", Err: err}
	}

	stats := emptyStatistics()
	if len(facets) == 0 {
		return stats, nil
	}
	f := facets[0]
	if len(f.Total) > 0 {
		stats.TotalReports = f.Total[0].Count
	}
	for _, s := range f.ByStatus {
		stats.ByStatus[s.ID] = s.Count
	}
	for _, s := range f.BySeverity {
		stats.BySeverity[s.ID] = s.Count
	}
	for _, s := range f.ByType {
		stats.ByType[s.ID] = s.Count
	}
	for _, d := range f.DailyCounts {
		stats.DailyCounts = append(stats.DailyCounts, models.DailyCount{Date: d.ID, Count: d.Count})
	}
	return stats, nil
}

func emptyStatistics() *models.Statistics {
	return &models.Statistics{
		ByStatus:    map[string]int64{},
		BySeverity:  map[string]int64{},
		ByType:      map[string]int64{},
		DailyCounts: []models.DailyCount{},
	}
}

func (q ReportQuery) filter() bson.M {
	filter := bson.M{}
	if q.Status != "" {
		filter["status"] = q.Status
	}
	if len(q.Statuses) > 0 {
		filter["status"] = bson.M{"$in": q.Statuses}
	}
	if q.Severity != "" {
		filter["severity"] = q.Severity
	}
	if q.IncidentType != "" {
		filter["incidentTypes"] = bson.M{"$in": bson.A{q.IncidentType}}
	}
	submitted := bson.M{}
	if !q.DateFrom.IsZero() {
		submitted["$gte"] = q.DateFrom
	}
	if !q.DateTo.IsZero() {
		submitted["$lte"] = q.DateTo
	}
	if len(submitted) > 0 {
		filter["submittedAt"] = submitted
	}
	if !q.UpdatedBefore.IsZero() {
		filter["updatedAt"] = bson.M{"$lt": q.UpdatedBefore}
	}
	if q.Search != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(q.Search), Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"caseId": re},
			bson.M{"incident.description": re},
			bson.M{"reporter.name": re},
			bson.M{"reporter.email": re},
		}
	}
	return filter
}

func skipFor(page, limit int) int64 {
	if page < 1 {
		page = 1
	}
	return int64((page - 1) * limit)
}
