package databases

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/safenetshield/reportsafe-api/caseid"
	"github.com/safenetshield/reportsafe-api/models"
)

// FileReportDatabase is the flat-file ReportDatabase implementation. Reports
// live in reports.json, the case counter in counter.json, both under one data
// directory. All operations take a process-wide lock; the store targets
// human-paced single-instance deployments.
type FileReportDatabase struct {
	mu          sync.Mutex
	reportsPath string
	counterPath string
	gen         *caseid.Generator
}

// NewFileReportDatabase creates the data directory and seed files if missing
func NewFileReportDatabase(dataDir string, gen *caseid.Generator) (*FileReportDatabase, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, &models.StorageError{Op: "create data dir", Err: err}
	}
	f := &FileReportDatabase{
		reportsPath: filepath.Join(dataDir, "reports.json"),
		counterPath: filepath.Join(dataDir, "counter.json"),
		gen:         gen,
	}
	if _, err := os.Stat(f.reportsPath); errors.Is(err, os.ErrNotExist) {
		if err := f.writeJSON(f.reportsPath, []models.Report{}); err != nil {
			return nil, err
		}
	}
	if _, err := os.Stat(f.counterPath); errors.Is(err, os.ErrNotExist) {
		if err := f.writeJSON(f.counterPath, models.Counter{ID: caseid.CounterScope}); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// Create implements ReportDatabase
func (f *FileReportDatabase) Create(_ context.Context, report *models.Report) error {
	if report.CaseID != "" {
		return errors.New("report already carries a case id")
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	reports, err := f.load()
	if err != nil {
		return err
	}

	incidentType := ""
	if len(report.IncidentTypes) > 0 {
		incidentType = report.IncidentTypes[0]
	}
	report.CaseID = f.gen.Generate(incidentType)
	if report.ID.IsZero() {
		report.ID = primitive.NewObjectID()
	}
	if report.SubmittedAt.IsZero() {
		report.SubmittedAt = time.Now().UTC()
		report.UpdatedAt = report.SubmittedAt
	}

	reports = append(reports, *report)
	if err := f.save(reports); err != nil {
		return err
	}
	if _, err := f.nextSequenceLocked(); err != nil {
		// the counter is bookkeeping only for the random-ID strategy
		zap.S().Warnw("failed to bump report counter", "error", err)
	}
	return nil
}

// FindByCaseID implements ReportDatabase
func (f *FileReportDatabase) FindByCaseID(_ context.Context, caseID string) (*models.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	reports, err := f.load()
	if err != nil {
		return nil, err
	}
	for i := range reports {
		if reports[i].CaseID == caseID {
			r := reports[i]
			return &r, nil
		}
	}
	return nil, &models.NotFoundError{Resource: "report", Key: caseID}
}

// FindMany implements ReportDatabase
func (f *FileReportDatabase) FindMany(_ context.Context, q ReportQuery) ([]models.Report, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	reports, err := f.load()
	if err != nil {
		return nil, 0, err
	}

	matched := make([]models.Report, 0, len(reports))
	for _, r := range reports {
		if q.matches(&r) {
			matched = append(matched, r)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if q.SortAscending {
			return matched[i].SubmittedAt.Before(matched[j].SubmittedAt)
		}
		return matched[i].SubmittedAt.After(matched[j].SubmittedAt)
	})

	total := int64(len(matched))
	if q.Limit > 0 {
		start := int(skipFor(q.Page, q.Limit))
		if start > len(matched) {
			start = len(matched)
		}
		end := start + q.Limit
		if end > len(matched) {
			end = len(matched)
		}
		matched = matched[start:end]
	}
	return matched, total, nil
}

// Replace implements ReportDatabase
func (f *FileReportDatabase) Replace(_ context.Context, report *models.Report) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	reports, err := f.load()
	if err != nil {
		return err
	}
	for i := range reports {
		if reports[i].CaseID == report.CaseID {
			reports[i] = *report
			return f.save(reports)
		}
	}
	return &models.NotFoundError{Resource: "report", Key: report.CaseID}
}

// UpdateStatusMany implements ReportDatabase
func (f *FileReportDatabase) UpdateStatusMany(_ context.Context, caseIDs []string, status, actorID string, now time.Time) (int64, error) {
	if !models.ValidStatus(status) {
		return 0, &models.InvalidStatusError{Status: status}
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	reports, err := f.load()
	if err != nil {
		return 0, err
	}

	wanted := make(map[string]bool, len(caseIDs))
	for _, id := range caseIDs {
		wanted[id] = true
	}

	var modified int64
	for i := range reports {
		if !wanted[reports[i].CaseID] {
			continue
		}
		if err := reports[i].ApplyStatus(status, actorID, now); err != nil {
			zap.S().Errorw("bulk status update failed for case", "caseId", reports[i].CaseID, "error", err)
			continue
		}
		modified++
	}
	if modified > 0 {
		if err := f.save(reports); err != nil {
			return 0, err
		}
	}
	return modified, nil
}

// DeleteByCaseID implements ReportDatabase
func (f *FileReportDatabase) DeleteByCaseID(_ context.Context, caseID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	reports, err := f.load()
	if err != nil {
		return err
	}
	kept := reports[:0]
	found := false
	for _, r := range reports {
		if r.CaseID == caseID {
			found = true
			continue
		}
		kept = append(kept, r)
	}
	if !found {
		return &models.NotFoundError{Resource: "report", Key: caseID}
	}
	return f.save(kept)
}

// FindPurgeable implements ReportDatabase
func (f *FileReportDatabase) FindPurgeable(_ context.Context, deletionRequestedBefore, resolvedBefore time.Time) ([]models.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	reports, err := f.load()
	if err != nil {
		return nil, err
	}
	var out []models.Report
	for _, r := range reports {
		switch {
		case r.Status == models.StatusPendingDeletion &&
			r.DeletionRequestedAt != nil && r.DeletionRequestedAt.Before(deletionRequestedBefore):
			out = append(out, r)
		case r.Status == models.StatusResolved && r.Privacy.DeleteAfterResolution &&
			r.ResolvedAt != nil && r.ResolvedAt.Before(resolvedBefore):
			out = append(out, r)
		}
	}
	return out, nil
}

// Statistics implements ReportDatabase
func (f *FileReportDatabase) Statistics(_ context.Context, window time.Duration) (*models.Statistics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	reports, err := f.load()
	if err != nil {
		return nil, err
	}

	stats := emptyStatistics()
	stats.TotalReports = int64(len(reports))
	since := time.Now().UTC().Add(-window)
	daily := map[string]int64{}

	for _, r := range reports {
		stats.ByStatus[r.Status]++
		stats.BySeverity[r.Severity]++
		for _, t := range r.IncidentTypes {
			stats.ByType[t]++
		}
		if !r.SubmittedAt.Before(since) {
			daily[r.SubmittedAt.UTC().Format("2006-01-02")]++
		}
	}

	days := make([]string, 0, len(daily))
	for d := range daily {
		days = append(days, d)
	}
	sort.Strings(days)
	for _, d := range days {
		stats.DailyCounts = append(stats.DailyCounts, models.DailyCount{Date: d, Count: daily[d]})
	}
	return stats, nil
}

// NextSequence implements caseid.Sequencer against counter.json
func (f *FileReportDatabase) NextSequence(_ context.Context, name string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nextSequenceLocked()
}

func (f *FileReportDatabase) nextSequenceLocked() (int64, error) {
	var counter models.Counter
	data, err := os.ReadFile(f.counterPath)
	if err != nil {
		return 0, &models.StorageError{Op: "read counter", Err: err}
	}
	if err := json.Unmarshal(data, &counter); err != nil {
		return 0, &models.StorageError{Op: "decode counter", Err: err}
	}
	counter.Sequence++
	if err := f.writeJSON(f.counterPath, counter); err != nil {
		return 0, err
	}
	return counter.Sequence, nil
}

func (q ReportQuery) matches(r *models.Report) bool {
	if q.Status != "" && r.Status != q.Status {
		return false
	}
	if len(q.Statuses) > 0 && !containsString(q.Statuses, r.Status) {
		return false
	}
	if q.Severity != "" && r.Severity != q.Severity {
		return false
	}
	if q.IncidentType != "" && !containsString(r.IncidentTypes, q.IncidentType) {
		return false
	}
	if !q.DateFrom.IsZero() && r.SubmittedAt.Before(q.DateFrom) {
		return false
	}
	if !q.DateTo.IsZero() && r.SubmittedAt.After(q.DateTo) {
		return false
	}
	if !q.UpdatedBefore.IsZero() && !r.UpdatedAt.Before(q.UpdatedBefore) {
		return false
	}
	if q.Search != "" {
		term := strings.ToLower(q.Search)
		fields := []string{r.CaseID, r.Incident.Description}
		if r.Reporter != nil {
			fields = append(fields, r.Reporter.Name, r.Reporter.Email)
		}
		found := false
		for _, f := range fields {
			if strings.Contains(strings.ToLower(f), term) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func containsString(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

func (f *FileReportDatabase) load() ([]models.Report, error) {
	data, err := os.ReadFile(f.reportsPath)
	if err != nil {
		return nil, &models.StorageError{Op: "read reports file", Err: err}
	}
	var reports []models.Report
	if err := json.Unmarshal(data, &reports); err != nil {
		return nil, &models.StorageError{Op: "decode reports file", Err: err}
	}
	return reports, nil
}

func (f *FileReportDatabase) save(reports []models.Report) error {
	return f.writeJSON(f.reportsPath, reports)
}

func (f *FileReportDatabase) writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return &models.StorageError{Op: "encode " + filepath.Base(path), Err: err}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return &models.StorageError{Op: "write " + filepath.Base(path), Err: err}
	}
	return nil
}
