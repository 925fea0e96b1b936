package databases

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/safenetshield/reportsafe-api/caseid"
	"github.com/safenetshield/reportsafe-api/models"
)

func newFileDB(t *testing.T) *FileReportDatabase {
	t.Helper()
	db, err := NewFileReportDatabase(t.TempDir(), caseid.New())
	assert.NoError(t, err)
	return db
}

func seedReport(t *testing.T, db *FileReportDatabase, incidentType string) *models.Report {
	t.Helper()
	sub := models.ReportSubmission{
		IncidentTypes: []string{incidentType},
		Description:   "Repeated abusive messages sent over several weeks.",
		IncidentDate:  "2024-01-10",
		Platforms:     []string{"instagram"},
		Anonymous:     true,
	}
	r := sub.Report("", time.Now().UTC())
	assert.NoError(t, db.Create(context.Background(), &r))
	return &r
}

func TestFileCreateAssignsCaseID(t *testing.T) {
	db := newFileDB(t)

	r := seedReport(t, db, models.IncidentHarassment)

	assert.True(t, caseid.Validate(r.CaseID))
	assert.False(t, r.ID.IsZero())

	found, err := db.FindByCaseID(context.Background(), r.CaseID)
	assert.NoError(t, err)
	assert.Equal(t, r.CaseID, found.CaseID)
	assert.Equal(t, models.StatusPending, found.Status)
}

func TestFileCreateRejectsPresetCaseID(t *testing.T) {
	db := newFileDB(t)

	r := models.Report{CaseID: "RS-HR-202401-AB12CD"}
	assert.Error(t, db.Create(context.Background(), &r))
}

func TestFileFindByCaseIDNotFound(t *testing.T) {
	db := newFileDB(t)

	_, err := db.FindByCaseID(context.Background(), "RS-HR-202401-ZZ99XX")
	var nfe *models.NotFoundError
	assert.ErrorAs(t, err, &nfe)
}

func TestFileFindManyFilters(t *testing.T) {
	db := newFileDB(t)
	ctx := context.Background()

	a := seedReport(t, db, models.IncidentHarassment)
	b := seedReport(t, db, models.IncidentThreats)
	seedReport(t, db, models.IncidentDoxxing)

	assert.NoError(t, a.ApplyStatus(models.StatusResolved, "admin-1", time.Now().UTC()))
	assert.NoError(t, db.Replace(ctx, a))

	resolved, total, err := db.FindMany(ctx, ReportQuery{Status: models.StatusResolved})
	assert.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, a.CaseID, resolved[0].CaseID)

	high, total, err := db.FindMany(ctx, ReportQuery{Severity: models.SeverityHigh})
	assert.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, b.CaseID, high[0].CaseID)

	byType, _, err := db.FindMany(ctx, ReportQuery{IncidentType: models.IncidentDoxxing})
	assert.NoError(t, err)
	assert.Len(t, byType, 1)

	all, total, err := db.FindMany(ctx, ReportQuery{})
	assert.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, all, 3)
}

func TestFileFindManySearchAndPagination(t *testing.T) {
	db := newFileDB(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		seedReport(t, db, models.IncidentHarassment)
	}
	target := seedReport(t, db, models.IncidentHarassment)

	bySearch, total, err := db.FindMany(ctx, ReportQuery{Search: target.CaseID})
	assert.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, target.CaseID, bySearch[0].CaseID)

	page1, total, err := db.FindMany(ctx, ReportQuery{Page: 1, Limit: 4})
	assert.NoError(t, err)
	assert.Equal(t, int64(6), total)
	assert.Len(t, page1, 4)

	page2, _, err := db.FindMany(ctx, ReportQuery{Page: 2, Limit: 4})
	assert.NoError(t, err)
	assert.Len(t, page2, 2)
}

func TestFileReplacePersistsMutation(t *testing.T) {
	db := newFileDB(t)
	ctx := context.Background()

	r := seedReport(t, db, models.IncidentHarassment)
	r.AddNote("reviewed screenshots", "admin-1", true, time.Now().UTC())
	assert.NoError(t, db.Replace(ctx, r))

	found, err := db.FindByCaseID(ctx, r.CaseID)
	assert.NoError(t, err)
	assert.Len(t, found.AdminNotes, 1)
	assert.Equal(t, "reviewed screenshots", found.AdminNotes[0].Text)
}

func TestFileReplaceUnknownCase(t *testing.T) {
	db := newFileDB(t)

	err := db.Replace(context.Background(), &models.Report{CaseID: "RS-HR-202401-ZZ99XX"})
	var nfe *models.NotFoundError
	assert.ErrorAs(t, err, &nfe)
}

func TestFileUpdateStatusManySkipsMissing(t *testing.T) {
	db := newFileDB(t)
	ctx := context.Background()

	a := seedReport(t, db, models.IncidentHarassment)
	b := seedReport(t, db, models.IncidentThreats)
	ids := []string{a.CaseID, b.CaseID, "RS-HR-202401-ZZ99XX"}

	now := time.Now().UTC()
	modified, err := db.UpdateStatusMany(ctx, ids, models.StatusUnderReview, "admin-1", now)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), modified)

	found, err := db.FindByCaseID(ctx, a.CaseID)
	assert.NoError(t, err)
	assert.Equal(t, models.StatusUnderReview, found.Status)
	assert.Equal(t, "admin-1", found.ReviewedBy)
}

func TestFileUpdateStatusManyRejectsInvalidStatus(t *testing.T) {
	db := newFileDB(t)

	_, err := db.UpdateStatusMany(context.Background(), []string{"RS-HR-202401-AB12CD"}, "escalated", "admin-1", time.Now())
	var ise *models.InvalidStatusError
	assert.ErrorAs(t, err, &ise)
}

func TestFileDeleteByCaseID(t *testing.T) {
	db := newFileDB(t)
	ctx := context.Background()

	r := seedReport(t, db, models.IncidentHarassment)
	assert.NoError(t, db.DeleteByCaseID(ctx, r.CaseID))

	_, err := db.FindByCaseID(ctx, r.CaseID)
	var nfe *models.NotFoundError
	assert.ErrorAs(t, err, &nfe)

	err = db.DeleteByCaseID(ctx, r.CaseID)
	assert.ErrorAs(t, err, &nfe)
}

func TestFileFindPurgeable(t *testing.T) {
	db := newFileDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	stale := seedReport(t, db, models.IncidentHarassment)
	stale.Status = models.StatusPendingDeletion
	old := now.Add(-40 * 24 * time.Hour)
	stale.DeletionRequestedAt = &old
	assert.NoError(t, db.Replace(ctx, stale))

	expired := seedReport(t, db, models.IncidentThreats)
	expired.Privacy.DeleteAfterResolution = true
	assert.NoError(t, expired.ApplyStatus(models.StatusResolved, "admin-1", now.Add(-100*24*time.Hour)))
	assert.NoError(t, db.Replace(ctx, expired))

	fresh := seedReport(t, db, models.IncidentDoxxing)
	assert.NoError(t, fresh.ApplyStatus(models.StatusResolved, "admin-1", now))
	assert.NoError(t, db.Replace(ctx, fresh))

	purgeable, err := db.FindPurgeable(ctx, now.Add(-30*24*time.Hour), now.Add(-90*24*time.Hour))
	assert.NoError(t, err)
	assert.Len(t, purgeable, 2)
	ids := []string{purgeable[0].CaseID, purgeable[1].CaseID}
	assert.Contains(t, ids, stale.CaseID)
	assert.Contains(t, ids, expired.CaseID)
}

func TestFileStatistics(t *testing.T) {
	db := newFileDB(t)
	ctx := context.Background()

	seedReport(t, db, models.IncidentHarassment)
	seedReport(t, db, models.IncidentHarassment)
	r := seedReport(t, db, models.IncidentThreats)
	assert.NoError(t, r.ApplyStatus(models.StatusResolved, "admin-1", time.Now().UTC()))
	assert.NoError(t, db.Replace(ctx, r))

	stats, err := db.Statistics(ctx, 30*24*time.Hour)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalReports)
	assert.Equal(t, int64(2), stats.ByStatus[models.StatusPending])
	assert.Equal(t, int64(1), stats.ByStatus[models.StatusResolved])
	assert.Equal(t, int64(2), stats.ByType[models.IncidentHarassment])
	assert.Equal(t, int64(1), stats.BySeverity[models.SeverityHigh])
	assert.Len(t, stats.DailyCounts, 1)
	assert.Equal(t, int64(3), stats.DailyCounts[0].Count)
}

func TestFileStatisticsEmpty(t *testing.T) {
	db := newFileDB(t)

	stats, err := db.Statistics(context.Background(), 30*24*time.Hour)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), stats.TotalReports)
	assert.NotNil(t, stats.ByStatus)
	assert.NotNil(t, stats.BySeverity)
	assert.NotNil(t, stats.ByType)
	assert.Empty(t, stats.DailyCounts)
}

func TestFileNextSequenceIncrements(t *testing.T) {
	db := newFileDB(t)
	ctx := context.Background()

	first, err := db.NextSequence(ctx, caseid.CounterScope)
	assert.NoError(t, err)
	second, err := db.NextSequence(ctx, caseid.CounterScope)
	assert.NoError(t, err)
	assert.Equal(t, first+1, second)
}
