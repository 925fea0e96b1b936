package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"

	"github.com/safenetshield/reportsafe-api/caseid"
	"github.com/safenetshield/reportsafe-api/databases"
	"github.com/safenetshield/reportsafe-api/models"
	"github.com/safenetshield/reportsafe-api/storage"
)

func newTestReportDB(t *testing.T) *databases.FileReportDatabase {
	t.Helper()
	db, err := databases.NewFileReportDatabase(t.TempDir(), caseid.New())
	assert.NoError(t, err)
	return db
}

func newTestEvidenceStore(t *testing.T) *storage.DiskStore {
	t.Helper()
	store, err := storage.NewDiskStore(t.TempDir())
	assert.NoError(t, err)
	return store
}

func submissionBody() map[string]interface{} {
	return map[string]interface{}{
		"incidentType": []string{"harassment"},
		"description":  "Repeated abusive messages sent over several weeks.",
		"incidentDate": "2024-01-10",
		"platform":     []string{"instagram"},
		"name":         "Jane Doe",
		"email":        "jane.doe@example.org",
	}
}

func postJSON(handler http.HandlerFunc, target string, body interface{}) *httptest.ResponseRecorder {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(b))
	rr := httptest.NewRecorder()
	handler(rr, req)
	return rr
}

func TestSubmitReportHandler(t *testing.T) {
	db := newTestReportDB(t)
	p := PublicReport{RDB: db, Evidence: newTestEvidenceStore(t)}

	rr := postJSON(p.SubmitReportHandler, "/api/v1/reports", submissionBody())

	assert.Equal(t, http.StatusCreated, rr.Code)
	var resp struct {
		CaseID   string `json:"caseId"`
		Status   string `json:"status"`
		Severity string `json:"severity"`
	}
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.True(t, caseid.Validate(resp.CaseID))
	assert.Equal(t, models.StatusPending, resp.Status)
	assert.Equal(t, models.SeverityMedium, resp.Severity)

	stored, err := db.FindByCaseID(context.Background(), resp.CaseID)
	assert.NoError(t, err)
	assert.Equal(t, "jane.doe@example.org", stored.Reporter.Email)
}

func TestSubmitReportHandlerInvalidSubmission(t *testing.T) {
	p := PublicReport{RDB: newTestReportDB(t)}

	body := submissionBody()
	body["description"] = "short"
	rr := postJSON(p.SubmitReportHandler, "/api/v1/reports", body)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSubmitReportHandlerBadJSON(t *testing.T) {
	p := PublicReport{RDB: newTestReportDB(t)}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reports", bytes.NewReader([]byte("{not json")))
	rr := httptest.NewRecorder()
	p.SubmitReportHandler(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

// submitTestReport drives a report through the real submit handler and
// returns its case ID.
func submitTestReport(t *testing.T, p PublicReport, body map[string]interface{}) string {
	t.Helper()
	rr := postJSON(p.SubmitReportHandler, "/api/v1/reports", body)
	assert.Equal(t, http.StatusCreated, rr.Code)
	var resp struct {
		CaseID string `json:"caseId"`
	}
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp.CaseID
}

func routeWithCaseID(method, path string, handler http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	r := mux.NewRouter()
	r.HandleFunc(path, handler).Methods(method)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestReportStatusHandler(t *testing.T) {
	p := PublicReport{RDB: newTestReportDB(t)}
	caseID := submitTestReport(t, p, submissionBody())

	target := fmt.Sprintf("/api/v1/reports/%s/status?email=jane.doe@example.org", caseID)
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rr := routeWithCaseID(http.MethodGet, "/api/v1/reports/{case_id}/status", p.ReportStatusHandler, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp struct {
		CaseID string `json:"caseId"`
		Status string `json:"status"`
	}
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, caseID, resp.CaseID)
	assert.Equal(t, models.StatusPending, resp.Status)
}

func TestReportStatusHandlerWrongEmail(t *testing.T) {
	p := PublicReport{RDB: newTestReportDB(t)}
	caseID := submitTestReport(t, p, submissionBody())

	target := fmt.Sprintf("/api/v1/reports/%s/status?email=somebody.else@example.org", caseID)
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rr := routeWithCaseID(http.MethodGet, "/api/v1/reports/{case_id}/status", p.ReportStatusHandler, req)

	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestReportStatusHandlerAnonymousNeedsNoEmail(t *testing.T) {
	p := PublicReport{RDB: newTestReportDB(t)}
	body := submissionBody()
	body["anonymous"] = true
	delete(body, "email")
	caseID := submitTestReport(t, p, body)

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/reports/%s/status", caseID), nil)
	rr := routeWithCaseID(http.MethodGet, "/api/v1/reports/{case_id}/status", p.ReportStatusHandler, req)

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestReportStatusHandlerMalformedCaseID(t *testing.T) {
	p := PublicReport{RDB: newTestReportDB(t)}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports/not-a-case-id/status", nil)
	rr := routeWithCaseID(http.MethodGet, "/api/v1/reports/{case_id}/status", p.ReportStatusHandler, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestReportStatusHandlerUnknownCase(t *testing.T) {
	p := PublicReport{RDB: newTestReportDB(t)}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports/RS-HR-202401-ZZ99XX/status?email=jane.doe@example.org", nil)
	rr := routeWithCaseID(http.MethodGet, "/api/v1/reports/{case_id}/status", p.ReportStatusHandler, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAddEvidenceHandler(t *testing.T) {
	db := newTestReportDB(t)
	p := PublicReport{RDB: db}
	caseID := submitTestReport(t, p, submissionBody())

	body := map[string]interface{}{
		"email": "jane.doe@example.org",
		"evidence": []map[string]interface{}{
			{"path": "evidence/recording.mp4", "originalName": "recording.mp4", "size": 2048, "mimeType": "video/mp4"},
		},
	}
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/reports/%s/evidence", caseID), bytes.NewReader(b))
	rr := routeWithCaseID(http.MethodPost, "/api/v1/reports/{case_id}/evidence", p.AddEvidenceHandler, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	stored, err := db.FindByCaseID(context.Background(), caseID)
	assert.NoError(t, err)
	assert.Len(t, stored.Evidence, 1)
	assert.Equal(t, models.EvidenceVideo, stored.Evidence[0].Kind)
}

func TestAddEvidenceHandlerEmptyList(t *testing.T) {
	p := PublicReport{RDB: newTestReportDB(t)}

	b, _ := json.Marshal(map[string]interface{}{"evidence": []interface{}{}})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reports/RS-HR-202401-AB12CD/evidence", bytes.NewReader(b))
	rr := routeWithCaseID(http.MethodPost, "/api/v1/reports/{case_id}/evidence", p.AddEvidenceHandler, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRequestDeletionParksPendingReport(t *testing.T) {
	db := newTestReportDB(t)
	p := PublicReport{RDB: db, Evidence: newTestEvidenceStore(t)}
	caseID := submitTestReport(t, p, submissionBody())

	b, _ := json.Marshal(map[string]interface{}{"email": "jane.doe@example.org", "reason": "changed my mind"})
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/reports/%s/deletion-request", caseID), bytes.NewReader(b))
	rr := routeWithCaseID(http.MethodPost, "/api/v1/reports/{case_id}/deletion-request", p.RequestDeletionHandler, req)

	assert.Equal(t, http.StatusAccepted, rr.Code)

	stored, err := db.FindByCaseID(context.Background(), caseID)
	assert.NoError(t, err)
	assert.Equal(t, models.StatusPendingDeletion, stored.Status)
	assert.Equal(t, "changed my mind", stored.DeletionReason)
	assert.NotNil(t, stored.DeletionRequestedAt)
}

func TestRequestDeletionErasesResolvedOptIn(t *testing.T) {
	db := newTestReportDB(t)
	evidenceDir := t.TempDir()
	store, err := storage.NewDiskStore(evidenceDir)
	assert.NoError(t, err)
	p := PublicReport{RDB: db, Evidence: store}

	assert.NoError(t, os.WriteFile(filepath.Join(evidenceDir, "screenshot.png"), []byte("png"), 0o644))

	body := submissionBody()
	body["deleteAfterResolution"] = true
	body["evidence"] = []map[string]interface{}{
		{"path": "screenshot.png", "originalName": "screenshot.png", "size": 3, "mimeType": "image/png"},
	}
	caseID := submitTestReport(t, p, body)

	stored, err := db.FindByCaseID(context.Background(), caseID)
	assert.NoError(t, err)
	assert.NoError(t, stored.ApplyStatus(models.StatusResolved, "admin-1", time.Now().UTC()))
	assert.NoError(t, db.Replace(context.Background(), stored))

	b, _ := json.Marshal(map[string]interface{}{"email": "jane.doe@example.org"})
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/reports/%s/deletion-request", caseID), bytes.NewReader(b))
	rr := routeWithCaseID(http.MethodPost, "/api/v1/reports/{case_id}/deletion-request", p.RequestDeletionHandler, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"deleted": true}`, rr.Body.String())

	_, err = db.FindByCaseID(context.Background(), caseID)
	var nfe *models.NotFoundError
	assert.ErrorAs(t, err, &nfe)
	assert.False(t, store.Contains("screenshot.png"))
}

func TestPublicStatisticsHandler(t *testing.T) {
	p := PublicReport{RDB: newTestReportDB(t)}
	submitTestReport(t, p, submissionBody())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/statistics", nil)
	rr := httptest.NewRecorder()
	p.PublicStatisticsHandler(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp map[string]json.RawMessage
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Contains(t, resp, "totalReports")
	assert.Contains(t, resp, "byType")
	assert.Contains(t, resp, "dailyCounts")
	// status and severity breakdowns stay private
	assert.NotContains(t, resp, "byStatus")
	assert.NotContains(t, resp, "bySeverity")
}

func TestIncidentTypesHandler(t *testing.T) {
	p := PublicReport{}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/incident-types", nil)
	rr := httptest.NewRecorder()
	p.IncidentTypesHandler(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	var types []map[string]string
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &types))
	assert.Len(t, types, 8)
	assert.Equal(t, "harassment", types[0]["value"])
	assert.Equal(t, "HR", types[0]["code"])
}
