package scheduler

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/safenetshield/reportsafe-api/databases"
	"github.com/safenetshield/reportsafe-api/models"
	"github.com/safenetshield/reportsafe-api/storage"
)

const (
	// DeletionReviewWindow is how long a record stays in pending_deletion
	// before the purge job removes it for good.
	DeletionReviewWindow = 30 * 24 * time.Hour

	// ResolutionRetention is how long resolved reports with
	// deleteAfterResolution set are kept before purging.
	ResolutionRetention = 90 * 24 * time.Hour
)

// Scheduler handles periodic background jobs for report retention
type Scheduler struct {
	cron       *cron.Cron
	RDB        databases.ReportDatabase
	ADB        databases.ActivityDatabase
	LockDB     databases.SchedulerLockDatabase
	Evidence   storage.EvidenceStore
	instanceID string
}

// NewScheduler creates a new scheduler instance
func NewScheduler(
	rDB databases.ReportDatabase,
	aDB databases.ActivityDatabase,
	lockDB databases.SchedulerLockDatabase,
	evidence storage.EvidenceStore,
) *Scheduler {
	// Generate a unique instance ID for this pod
	instanceID := os.Getenv("DYNO") // Heroku sets this to "web.1", "web.2", etc.
	if instanceID == "" {
		instanceID = fmt.Sprintf("instance-%d", time.Now().UnixNano())
	}

	return &Scheduler{
		cron:       cron.New(cron.WithLocation(time.UTC)),
		RDB:        rDB,
		ADB:        aDB,
		LockDB:     lockDB,
		Evidence:   evidence,
		instanceID: instanceID,
	}
}

// Start begins the scheduler with all registered jobs
func (s *Scheduler) Start() {
	// Purge expired reports daily at 3 AM UTC
	_, err := s.cron.AddFunc("0 3 * * *", s.purgeExpiredReports)
	if err != nil {
		zap.S().Errorw("failed to register retention purge job", "error", err)
	}

	s.cron.Start()
	zap.S().Info("Report retention scheduler started")
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	zap.S().Info("Report retention scheduler stopped")
}

// purgeExpiredReports permanently removes reports whose retention window has
// passed: deletion requests older than the review window, and resolved
// reports the reporter asked to have erased after resolution.
func (s *Scheduler) purgeExpiredReports() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	// Try to acquire distributed lock (15 minute TTL)
	acquired, err := s.LockDB.TryAcquireLock(ctx, "retention_purge_job", s.instanceID, 15*time.Minute)
	if err != nil {
		zap.S().Errorw("failed to acquire lock for retention purge job", "error", err)
		return
	}
	if !acquired {
		zap.S().Debug("Retention purge job already running on another instance, skipping")
		return
	}
	defer s.LockDB.ReleaseLock(ctx, "retention_purge_job", s.instanceID)

	now := time.Now()
	zap.S().Infow("Running retention purge job", "instance", s.instanceID)

	purgeable, err := s.RDB.FindPurgeable(ctx, now.Add(-DeletionReviewWindow), now.Add(-ResolutionRetention))
	if err != nil {
		zap.S().Errorw("failed to find purgeable reports", "error", err)
		return
	}

	purged := 0
	for _, report := range purgeable {
		if err := s.purgeReport(ctx, report); err != nil {
			zap.S().Errorw("failed to purge report", "error", err, "caseId", report.CaseID)
			continue
		}
		purged++
	}

	zap.S().Infow("Retention purge complete",
		"candidates", len(purgeable),
		"purged", purged,
	)
}

// purgeReport removes a single report and its evidence. Evidence deletion is
// best effort; a blob that fails to delete does not block the record purge.
func (s *Scheduler) purgeReport(ctx context.Context, report models.Report) error {
	for _, ev := range report.Evidence {
		if err := s.Evidence.Delete(ctx, ev.Path); err != nil {
			zap.S().Warnw("failed to delete evidence file", "error", err, "caseId", report.CaseID, "path", ev.Path)
		}
	}

	if err := s.RDB.DeleteByCaseID(ctx, report.CaseID); err != nil {
		return err
	}

	detail := models.ActivityDetail{
		Kind: "retention_purge",
		Payload: map[string]interface{}{
			"status":        report.Status,
			"evidenceCount": len(report.Evidence),
		},
	}
	if err := s.ADB.Create(ctx, models.Activity{
		AdminID:      "system",
		Action:       models.ActionDeleteReport,
		TargetCaseID: report.CaseID,
		Detail:       detail,
		Timestamp:    time.Now(),
	}); err != nil {
		zap.S().Warnw("failed to record purge activity", "error", err, "caseId", report.CaseID)
	}

	zap.S().Infow("Purged report past retention window", "caseId", report.CaseID)
	return nil
}
