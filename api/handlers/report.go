package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/safenetshield/reportsafe-api/api"
	"github.com/safenetshield/reportsafe-api/caseid"
	"github.com/safenetshield/reportsafe-api/config"
	"github.com/safenetshield/reportsafe-api/databases"
	"github.com/safenetshield/reportsafe-api/models"
	"github.com/safenetshield/reportsafe-api/storage"
)

// PublicReport handles the reporter-facing report endpoints
type PublicReport struct {
	RDB      databases.ReportDatabase
	Evidence storage.EvidenceStore
	Feed     *LiveFeed
}

// errorCode maps domain errors to http status codes
func errorCode(err error) int {
	var (
		validation *models.ValidationError
		notFound   *models.NotFoundError
		status     *models.InvalidStatusError
		authz      *models.AuthorizationError
		malformed  *caseid.MalformedCaseIDError
	)
	switch {
	case errors.As(err, &validation), errors.As(err, &status), errors.As(err, &malformed):
		return http.StatusBadRequest
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &authz):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

type submitReportResponse struct {
	CaseID      string    `json:"caseId"`
	Status      string    `json:"status"`
	Severity    string    `json:"severity"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// SubmitReportHandler validates and stores a new incident report
func (p PublicReport) SubmitReportHandler(w http.ResponseWriter, r *http.Request) {
	var sub models.ReportSubmission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	if err := sub.Validate(); err != nil {
		config.ErrorStatus("invalid report submission", errorCode(err), w, err)
		return
	}

	report := sub.Report("", time.Now().UTC())

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if err := p.RDB.Create(ctx, &report); err != nil {
		config.ErrorStatus("failed to store report", errorCode(err), w, err)
		return
	}

	zap.S().Infow("report submitted",
		"caseId", report.CaseID,
		"severity", report.Severity,
		"emergency", report.IsEmergency,
	)
	p.Feed.BroadcastEvent("report_submitted", map[string]interface{}{
		"caseId":      report.CaseID,
		"severity":    report.Severity,
		"isEmergency": report.IsEmergency,
		"submittedAt": report.SubmittedAt,
	})

	b, err := json.Marshal(submitReportResponse{
		CaseID:      report.CaseID,
		Status:      report.Status,
		Severity:    report.Severity,
		SubmittedAt: report.SubmittedAt,
	})
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	w.Write(b)
}

// fetchAuthorized loads a report by case ID and enforces the reporter's
// self-service credential: the case ID alone for anonymous reports, the
// matching contact email otherwise.
func (p PublicReport) fetchAuthorized(r *http.Request, email string) (*models.Report, error) {
	caseID := mux.Vars(r)["case_id"]
	if !caseid.Validate(caseID) {
		return nil, &caseid.MalformedCaseIDError{CaseID: caseID}
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	report, err := p.RDB.FindByCaseID(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if !report.IsAnonymous {
		supplied := strings.ToLower(strings.TrimSpace(email))
		if supplied == "" || report.Reporter == nil || supplied != report.Reporter.Email {
			return nil, &models.AuthorizationError{Reason: "contact email does not match the report"}
		}
	}
	return report, nil
}

type reportStatusResponse struct {
	CaseID      string     `json:"caseId"`
	Status      string     `json:"status"`
	Severity    string     `json:"severity"`
	SubmittedAt time.Time  `json:"submittedAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	ResolvedAt  *time.Time `json:"resolvedAt,omitempty"`
}

// ReportStatusHandler returns the public status view of a report
func (p PublicReport) ReportStatusHandler(w http.ResponseWriter, r *http.Request) {
	report, err := p.fetchAuthorized(r, r.URL.Query().Get("email"))
	if err != nil {
		config.ErrorStatus("failed to get report status", errorCode(err), w, err)
		return
	}

	b, err := json.Marshal(reportStatusResponse{
		CaseID:      report.CaseID,
		Status:      report.Status,
		Severity:    report.Severity,
		SubmittedAt: report.SubmittedAt,
		UpdatedAt:   report.UpdatedAt,
		ResolvedAt:  report.ResolvedAt,
	})
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

type addEvidenceRequest struct {
	Email    string                `json:"email,omitempty"`
	Evidence []models.UploadedFile `json:"evidence"`
}

// AddEvidenceHandler appends uploaded evidence descriptors to a report.
// The evidence list only grows; removal happens with the report itself.
func (p PublicReport) AddEvidenceHandler(w http.ResponseWriter, r *http.Request) {
	var req addEvidenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if len(req.Evidence) == 0 {
		config.ErrorStatus("no evidence supplied", http.StatusBadRequest, w, nil)
		return
	}

	report, err := p.fetchAuthorized(r, req.Email)
	if err != nil {
		config.ErrorStatus("failed to add evidence", errorCode(err), w, err)
		return
	}

	now := time.Now().UTC()
	for _, f := range req.Evidence {
		report.Evidence = append(report.Evidence, models.EvidenceFile{
			Kind:         models.EvidenceKindForMime(f.MimeType),
			Path:         f.Path,
			OriginalName: f.OriginalName,
			Size:         f.Size,
			MimeType:     f.MimeType,
			UploadedAt:   now,
		})
	}
	report.UpdatedAt = now

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if err := p.RDB.Replace(ctx, report); err != nil {
		config.ErrorStatus("failed to store evidence", errorCode(err), w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"caseId":        report.CaseID,
		"evidenceCount": len(report.Evidence),
	})
}

type deletionRequest struct {
	Email  string `json:"email,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// RequestDeletionHandler handles a reporter's request to erase their data.
// Resolved reports that opted into delete-after-resolution are removed
// immediately together with their evidence; everything else is parked as
// pending_deletion for admin review.
func (p PublicReport) RequestDeletionHandler(w http.ResponseWriter, r *http.Request) {
	var req deletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	report, err := p.fetchAuthorized(r, req.Email)
	if err != nil {
		config.ErrorStatus("failed to process deletion request", errorCode(err), w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	// immediate erasure only for resolved reports that opted into it;
	// everything else is parked for admin review
	if report.Status == models.StatusResolved && report.Privacy.DeleteAfterResolution {
		for _, ev := range report.Evidence {
			if err := p.Evidence.Delete(ctx, ev.Path); err != nil {
				zap.S().Warnw("failed to delete evidence file", "caseId", report.CaseID, "path", ev.Path, "error", err)
			}
		}
		if err := p.RDB.DeleteByCaseID(ctx, report.CaseID); err != nil {
			config.ErrorStatus("failed to delete report", errorCode(err), w, err)
			return
		}
		zap.S().Infow("report deleted at reporter request", "caseId", report.CaseID)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"deleted": true}`))
		return
	}

	now := time.Now().UTC()
	report.Status = models.StatusPendingDeletion
	report.DeletionRequestedAt = &now
	report.DeletionReason = strings.TrimSpace(req.Reason)
	report.UpdatedAt = now

	if err := p.RDB.Replace(ctx, report); err != nil {
		config.ErrorStatus("failed to store deletion request", errorCode(err), w, err)
		return
	}

	zap.S().Infow("report parked for deletion review", "caseId", report.CaseID)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	w.Write([]byte(`{"deleted": false, "status": "pending_deletion"}`))
}

// PublicStatisticsHandler returns aggregate counts without any report content
func (p PublicReport) PublicStatisticsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	stats, err := p.RDB.Statistics(ctx, 30*24*time.Hour)
	if err != nil {
		config.ErrorStatus("failed to aggregate statistics", errorCode(err), w, err)
		return
	}

	// only volume figures are public
	b, err := json.Marshal(map[string]interface{}{
		"totalReports": stats.TotalReports,
		"byType":       stats.ByType,
		"dailyCounts":  stats.DailyCounts,
	})
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// IncidentTypesHandler lists the incident categories and their case ID codes
func (p PublicReport) IncidentTypesHandler(w http.ResponseWriter, r *http.Request) {
	types := []map[string]string{
		{"value": models.IncidentHarassment, "code": caseid.TypeCode(models.IncidentHarassment), "label": "Harassment"},
		{"value": models.IncidentThreats, "code": caseid.TypeCode(models.IncidentThreats), "label": "Threats"},
		{"value": models.IncidentImageAbuse, "code": caseid.TypeCode(models.IncidentImageAbuse), "label": "Image-based abuse"},
		{"value": models.IncidentCyberstalking, "code": caseid.TypeCode(models.IncidentCyberstalking), "label": "Cyberstalking"},
		{"value": models.IncidentDoxxing, "code": caseid.TypeCode(models.IncidentDoxxing), "label": "Doxxing"},
		{"value": models.IncidentDeepfake, "code": caseid.TypeCode(models.IncidentDeepfake), "label": "Deepfake"},
		{"value": models.IncidentChildExploitation, "code": caseid.TypeCode(models.IncidentChildExploitation), "label": "Child exploitation"},
		{"value": models.IncidentOther, "code": caseid.TypeCode(models.IncidentOther), "label": "Other"},
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(types)
}
