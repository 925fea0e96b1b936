package handlers

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/safenetshield/reportsafe-api/api"
	"github.com/safenetshield/reportsafe-api/caseid"
	"github.com/safenetshield/reportsafe-api/config"
	"github.com/safenetshield/reportsafe-api/databases"
	"github.com/safenetshield/reportsafe-api/mailer"
	"github.com/safenetshield/reportsafe-api/models"
	"github.com/safenetshield/reportsafe-api/storage"
)

// Admin handles the triage console endpoints
type Admin struct {
	RDB      databases.ReportDatabase
	ADB      databases.AdminDatabase
	ResetDB  databases.AdminResetDatabase
	ActDB    databases.ActivityDatabase
	Evidence storage.EvidenceStore
	Mail     *mailer.Mailer
	Feed     *LiveFeed
}

type adminContextKey struct{}

// adminID extracts the authenticated admin's ID from the request context
func adminID(r *http.Request) string {
	if v, ok := r.Context().Value(adminContextKey{}).(string); ok {
		return v
	}
	return ""
}

// Auth verifies the bearer JWT minted by AdminLoginHandler and threads the
// admin's ID through the request context.
func (h Admin) Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		header := r.Header.Get("Authorization")
		parts := strings.Split(header, "Bearer ")
		if len(parts) != 2 {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
			return
		}

		token, err := jwt.Parse(parts[1], func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return []byte(os.Getenv("JWT_SECRET")), nil
		})
		if err != nil || !token.Valid {
			// not a console JWT, try the cached guardian bearer tokens
			if user, gerr := api.Authenticate(r); gerr == nil {
				ctx := context.WithValue(r.Context(), adminContextKey{}, user.ID())
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
			zap.S().Debugw("rejected admin token", "error", err)
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok || claims["scope"] != "admin" {
			w.WriteHeader(http.StatusForbidden)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "forbidden"})
			return
		}

		sub, _ := claims["sub"].(string)
		ctx := context.WithValue(r.Context(), adminContextKey{}, sub)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type adminLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type adminLoginResponse struct {
	Token string `json:"token"`
	Admin struct {
		ID    string   `json:"id"`
		Email string   `json:"email"`
		Roles []string `json:"roles"`
	} `json:"admin"`
}

// AdminLoginHandler handles admin login via email/password and returns a JWT
func (h Admin) AdminLoginHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var req adminLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid request"})
		return
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" || req.Password == "" {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "email and password required"})
		return
	}

	admin, err := h.ADB.FindByEmail(r.Context(), email)
	if err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "Invalid credentials"})
		return
	}

	// Verify password
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(req.Password)); err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "Invalid credentials"})
		return
	}

	jwtSecret := []byte(os.Getenv("JWT_SECRET"))
	if len(jwtSecret) == 0 {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "server misconfigured"})
		return
	}

	claims := jwt.MapClaims{
		"sub":   admin.ID.Hex(),
		"email": admin.Email,
		"roles": admin.Roles,
		"scope": "admin",
		"typ":   "access",
		"iat":   time.Now().Unix(),
		"exp":   time.Now().Add(24 * time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(jwtSecret)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "token generation failed"})
		return
	}

	now := time.Now().UTC()
	_ = h.ADB.TouchLogin(r.Context(), admin.ID, now)
	h.recordActivity(r, models.Activity{
		AdminID: admin.ID.Hex(),
		Action:  models.ActionLogin,
	})

	var resp adminLoginResponse
	resp.Token = signed
	resp.Admin.ID = admin.ID.Hex()
	resp.Admin.Email = admin.Email
	resp.Admin.Roles = admin.Roles

	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}

type forgotRequest struct {
	Email string `json:"email"`
}

// AdminForgotPasswordHandler sends a password reset email if the admin exists (no-op otherwise)
func (h Admin) AdminForgotPasswordHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var req forgotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid request"})
		return
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "email required"})
		return
	}

	admin, err := h.ADB.FindByEmail(r.Context(), email)
	if err == nil {
		plain, hashHex, genErr := generateResetToken()
		if genErr == nil {
			_ = h.ResetDB.Create(r.Context(), models.AdminPasswordReset{
				AdminID:   admin.ID,
				TokenHash: hashHex,
				ExpiresAt: time.Now().Add(1 * time.Hour),
				CreatedAt: time.Now(),
			})
			go h.Mail.SendPasswordReset(email, buildResetLink(os.Getenv("PUBLIC_WEB_BASE_URL"), plain))
		}
	}

	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": "If that admin email exists, a reset link has been sent."})
}

type resetRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// AdminResetPasswordHandler resets the admin password with a valid token
func (h Admin) AdminResetPasswordHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var req resetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid request"})
		return
	}

	token := strings.TrimSpace(req.Token)
	password := req.Password
	if token == "" || password == "" {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "token and password required"})
		return
	}

	reset, err := h.ResetDB.FindValid(r.Context(), hashToken(token))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid or expired token"})
		return
	}

	newHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "could not update password"})
		return
	}

	if err := h.ADB.UpdatePassword(r.Context(), reset.AdminID, string(newHash), time.Now()); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "could not update password"})
		return
	}
	_ = h.ResetDB.MarkUsed(r.Context(), reset.ID, time.Now())

	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": "password updated"})
}

// helpers
func generateResetToken() (plain string, hashHex string, err error) {
	b := make([]byte, 32)
	_, err = rand.Read(b)
	if err != nil {
		return "", "", err
	}
	pln := hex.EncodeToString(b)
	return pln, hashToken(pln), nil
}

func hashToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}

func buildResetLink(baseURL, token string) string {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = "https://www.reportsafe.org"
	}
	return base + "/admin/reset-password?token=" + token
}

// recordActivity appends to the audit trail, best effort
func (h Admin) recordActivity(r *http.Request, activity models.Activity) {
	activity.IPAddress = r.RemoteAddr
	activity.UserAgent = r.UserAgent()
	activity.Timestamp = time.Now().UTC()
	if activity.AdminID == "" {
		activity.AdminID = adminID(r)
	}
	if err := h.ActDB.Create(r.Context(), activity); err != nil {
		zap.S().Warnw("failed to record activity", "action", activity.Action, "error", err)
	}
}

// Report console handlers

func reportQueryFromRequest(r *http.Request) databases.ReportQuery {
	q := databases.ReportQuery{
		Status:       r.URL.Query().Get("status"),
		Severity:     r.URL.Query().Get("severity"),
		IncidentType: r.URL.Query().Get("type"),
		Search:       r.URL.Query().Get("search"),
		Page:         getPage(1, r),
		Limit:        databases.DefaultPageSize,
	}
	if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && limit > 0 {
		q.Limit = limit
	}
	if from := r.URL.Query().Get("from"); from != "" {
		if t, err := time.Parse("2006-01-02", from); err == nil {
			q.DateFrom = t
		}
	}
	if to := r.URL.Query().Get("to"); to != "" {
		if t, err := time.Parse("2006-01-02", to); err == nil {
			q.DateTo = t.Add(24 * time.Hour)
		}
	}
	if r.URL.Query().Get("sort") == "asc" {
		q.SortAscending = true
	}
	return q
}

// ListReportsHandler returns the filtered, paginated report list
func (h Admin) ListReportsHandler(w http.ResponseWriter, r *http.Request) {
	q := reportQueryFromRequest(r)

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	reports, total, err := h.RDB.FindMany(ctx, q)
	if err != nil {
		config.ErrorStatus("failed to list reports", errorCode(err), w, err)
		return
	}

	b, err := json.Marshal(models.ListResponse{Items: reports, Total: total, Page: q.Page, Limit: q.Limit})
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// severityRank orders attention listings, most urgent first
var severityRank = map[string]int{
	models.SeverityCritical: 0,
	models.SeverityHigh:     1,
	models.SeverityMedium:   2,
	models.SeverityLow:      3,
}

// AttentionReportsHandler lists the open work for the console dashboard:
// erasure requests awaiting review first, then untriaged reports ordered by
// severity and age.
func (h Admin) AttentionReportsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	deletions, _, err := h.RDB.FindMany(ctx, databases.ReportQuery{
		Status:        models.StatusPendingDeletion,
		SortAscending: true,
	})
	if err != nil {
		config.ErrorStatus("failed to list deletion requests", errorCode(err), w, err)
		return
	}

	pending, _, err := h.RDB.FindMany(ctx, databases.ReportQuery{
		Status:        models.StatusPending,
		SortAscending: true,
	})
	if err != nil {
		config.ErrorStatus("failed to list pending reports", errorCode(err), w, err)
		return
	}
	sort.SliceStable(pending, func(i, j int) bool {
		return severityRank[pending[i].Severity] < severityRank[pending[j].Severity]
	})

	reports := append(deletions, pending...)
	b, err := json.Marshal(models.ListResponse{Items: reports, Total: int64(len(reports)), Page: 1, Limit: len(reports)})
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// ReportDetailHandler returns one report in full and records the view
func (h Admin) ReportDetailHandler(w http.ResponseWriter, r *http.Request) {
	caseID := mux.Vars(r)["case_id"]

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	report, err := h.RDB.FindByCaseID(ctx, caseID)
	if err != nil {
		config.ErrorStatus("failed to get report", errorCode(err), w, err)
		return
	}

	report.MarkViewed(time.Now().UTC())
	if err := h.RDB.Replace(ctx, report); err != nil {
		zap.S().Warnw("failed to record report view", "caseId", caseID, "error", err)
	}
	h.recordActivity(r, models.Activity{
		Action:       models.ActionViewReport,
		TargetCaseID: caseID,
	})

	b, err := json.Marshal(report)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

type updateStatusRequest struct {
	Status string `json:"status"`
	Note   string `json:"note,omitempty"`
}

// UpdateStatusHandler transitions one report through the status machine
func (h Admin) UpdateStatusHandler(w http.ResponseWriter, r *http.Request) {
	caseID := mux.Vars(r)["case_id"]

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	report, err := h.RDB.FindByCaseID(ctx, caseID)
	if err != nil {
		config.ErrorStatus("failed to get report", errorCode(err), w, err)
		return
	}

	previous := report.Status
	now := time.Now().UTC()
	actor := adminID(r)
	if err := report.ApplyStatus(req.Status, actor, now); err != nil {
		config.ErrorStatus("failed to update status", errorCode(err), w, err)
		return
	}
	if req.Note != "" {
		report.AddNote(req.Note, actor, true, now)
	}

	if err := h.RDB.Replace(ctx, report); err != nil {
		config.ErrorStatus("failed to store report", errorCode(err), w, err)
		return
	}

	h.recordActivity(r, models.Activity{
		Action:       models.ActionUpdateStatus,
		TargetCaseID: caseID,
		Detail: models.ActivityDetail{
			Kind: "status_change",
			Payload: map[string]interface{}{
				"from": previous,
				"to":   report.Status,
			},
		},
	})
	h.Feed.BroadcastEvent("status_changed", map[string]interface{}{
		"caseId": caseID,
		"from":   previous,
		"to":     report.Status,
	})

	// resolution follow-up for reporters who opted in
	if report.Status == models.StatusResolved && previous != models.StatusResolved &&
		report.Privacy.AllowFollowUp && report.Reporter != nil && report.Reporter.Email != "" {
		go h.Mail.SendResolutionFollowUp(report.Reporter.Email, report.CaseID)
	}

	b, _ := json.Marshal(report)
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

type bulkStatusRequest struct {
	CaseIDs []string `json:"caseIds"`
	Status  string   `json:"status"`
}

// BulkUpdateStatusHandler applies one status change to a set of reports.
// Each report is updated independently; the response carries the count that
// actually changed.
func (h Admin) BulkUpdateStatusHandler(w http.ResponseWriter, r *http.Request) {
	var req bulkStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if len(req.CaseIDs) == 0 {
		config.ErrorStatus("no case ids supplied", http.StatusBadRequest, w, nil)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	modified, err := h.RDB.UpdateStatusMany(ctx, req.CaseIDs, req.Status, adminID(r), time.Now().UTC())
	if err != nil {
		config.ErrorStatus("failed to bulk update status", errorCode(err), w, err)
		return
	}

	h.recordActivity(r, models.Activity{
		Action: models.ActionBulkUpdate,
		Detail: models.ActivityDetail{
			Kind: "bulk_status_change",
			Payload: map[string]interface{}{
				"requested": len(req.CaseIDs),
				"modified":  modified,
				"to":        req.Status,
			},
		},
	})
	h.Feed.BroadcastEvent("bulk_status_changed", map[string]interface{}{
		"caseIds": req.CaseIDs,
		"to":      req.Status,
	})

	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"requested": len(req.CaseIDs),
		"modified":  modified,
	})
}

type addNoteRequest struct {
	Text       string `json:"text"`
	IsInternal bool   `json:"isInternal"`
}

// AddNoteHandler appends an admin note to the report
func (h Admin) AddNoteHandler(w http.ResponseWriter, r *http.Request) {
	caseID := mux.Vars(r)["case_id"]

	var req addNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		config.ErrorStatus("note text required", http.StatusBadRequest, w, nil)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	report, err := h.RDB.FindByCaseID(ctx, caseID)
	if err != nil {
		config.ErrorStatus("failed to get report", errorCode(err), w, err)
		return
	}

	report.AddNote(strings.TrimSpace(req.Text), adminID(r), req.IsInternal, time.Now().UTC())
	if err := h.RDB.Replace(ctx, report); err != nil {
		config.ErrorStatus("failed to store note", errorCode(err), w, err)
		return
	}

	h.recordActivity(r, models.Activity{
		Action:       models.ActionUpdateReport,
		TargetCaseID: caseID,
		Detail:       models.ActivityDetail{Kind: "note_added"},
	})

	b, _ := json.Marshal(report)
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

type assignRequest struct {
	AssignedTo string `json:"assignedTo"`
}

// AssignReportHandler sets or clears the assignee of a report
func (h Admin) AssignReportHandler(w http.ResponseWriter, r *http.Request) {
	caseID := mux.Vars(r)["case_id"]

	var req assignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	report, err := h.RDB.FindByCaseID(ctx, caseID)
	if err != nil {
		config.ErrorStatus("failed to get report", errorCode(err), w, err)
		return
	}

	report.AssignedTo = strings.TrimSpace(req.AssignedTo)
	report.UpdatedAt = time.Now().UTC()
	if err := h.RDB.Replace(ctx, report); err != nil {
		config.ErrorStatus("failed to store assignment", errorCode(err), w, err)
		return
	}

	h.recordActivity(r, models.Activity{
		Action:       models.ActionAssignReport,
		TargetCaseID: caseID,
		Detail: models.ActivityDetail{
			Kind:    "assignment",
			Payload: map[string]interface{}{"assignedTo": report.AssignedTo},
		},
	})

	b, _ := json.Marshal(report)
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

type flagsRequest struct {
	Flags []string `json:"flags"`
}

// UpdateFlagsHandler replaces the flag list of a report
func (h Admin) UpdateFlagsHandler(w http.ResponseWriter, r *http.Request) {
	caseID := mux.Vars(r)["case_id"]

	var req flagsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	report, err := h.RDB.FindByCaseID(ctx, caseID)
	if err != nil {
		config.ErrorStatus("failed to get report", errorCode(err), w, err)
		return
	}

	if req.Flags == nil {
		req.Flags = []string{}
	}
	report.Flags = req.Flags
	report.UpdatedAt = time.Now().UTC()
	if err := h.RDB.Replace(ctx, report); err != nil {
		config.ErrorStatus("failed to store flags", errorCode(err), w, err)
		return
	}

	h.recordActivity(r, models.Activity{
		Action:       models.ActionUpdateReport,
		TargetCaseID: caseID,
		Detail:       models.ActivityDetail{Kind: "flags_updated"},
	})

	b, _ := json.Marshal(report)
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

type tagsRequest struct {
	Tags []string `json:"tags"`
}

// UpdateTagsHandler replaces the tag list of a report
func (h Admin) UpdateTagsHandler(w http.ResponseWriter, r *http.Request) {
	caseID := mux.Vars(r)["case_id"]

	var req tagsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	report, err := h.RDB.FindByCaseID(ctx, caseID)
	if err != nil {
		config.ErrorStatus("failed to get report", errorCode(err), w, err)
		return
	}

	if req.Tags == nil {
		req.Tags = []string{}
	}
	report.Tags = req.Tags
	report.UpdatedAt = time.Now().UTC()
	if err := h.RDB.Replace(ctx, report); err != nil {
		config.ErrorStatus("failed to store tags", errorCode(err), w, err)
		return
	}

	h.recordActivity(r, models.Activity{
		Action:       models.ActionUpdateReport,
		TargetCaseID: caseID,
		Detail:       models.ActivityDetail{Kind: "tags_updated"},
	})

	b, _ := json.Marshal(report)
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// DeleteReportHandler permanently removes a report and its evidence files
func (h Admin) DeleteReportHandler(w http.ResponseWriter, r *http.Request) {
	caseID := mux.Vars(r)["case_id"]

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	report, err := h.RDB.FindByCaseID(ctx, caseID)
	if err != nil {
		config.ErrorStatus("failed to get report", errorCode(err), w, err)
		return
	}

	// evidence removal is best effort, the record goes regardless
	for _, ev := range report.Evidence {
		if err := h.Evidence.Delete(ctx, ev.Path); err != nil {
			zap.S().Warnw("failed to delete evidence file", "caseId", caseID, "path", ev.Path, "error", err)
		}
	}

	if err := h.RDB.DeleteByCaseID(ctx, caseID); err != nil {
		config.ErrorStatus("failed to delete report", errorCode(err), w, err)
		return
	}

	h.recordActivity(r, models.Activity{
		Action:       models.ActionDeleteReport,
		TargetCaseID: caseID,
		Detail: models.ActivityDetail{
			Kind:    "admin_delete",
			Payload: map[string]interface{}{"evidenceCount": len(report.Evidence)},
		},
	})

	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]bool{"deleted": true})
}

// csvHeader is the fixed export header row
const csvHeader = "Case ID, Status, Severity, Incident Types, Submitted At, Resolved At, Admin Notes"

func csvQuote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func reportCSVRow(report models.Report) string {
	resolved := ""
	if report.ResolvedAt != nil {
		resolved = report.ResolvedAt.UTC().Format(time.RFC3339)
	}
	notes := make([]string, 0, len(report.AdminNotes))
	for _, n := range report.AdminNotes {
		notes = append(notes, n.Text)
	}
	cells := []string{
		csvQuote(report.CaseID),
		csvQuote(report.Status),
		csvQuote(report.Severity),
		csvQuote(strings.Join(report.IncidentTypes, ",")),
		csvQuote(report.SubmittedAt.UTC().Format(time.RFC3339)),
		csvQuote(resolved),
		csvQuote(strings.Join(notes, ",")),
	}
	return strings.Join(cells, ",")
}

// ExportReportsHandler renders the filtered report set as CSV or JSON
func (h Admin) ExportReportsHandler(w http.ResponseWriter, r *http.Request) {
	q := reportQueryFromRequest(r)
	q.Limit = 0 // exports are never paginated

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	reports, _, err := h.RDB.FindMany(ctx, q)
	if err != nil {
		config.ErrorStatus("failed to export reports", errorCode(err), w, err)
		return
	}

	h.recordActivity(r, models.Activity{
		Action: models.ActionExport,
		Detail: models.ActivityDetail{
			Kind:    "export",
			Payload: map[string]interface{}{"count": len(reports), "format": r.URL.Query().Get("format")},
		},
	})

	if r.URL.Query().Get("format") == "json" {
		b, err := json.MarshalIndent(reports, "", "  ")
		if err != nil {
			config.ErrorStatus("failed to marshal export", http.StatusInternalServerError, w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", `attachment; filename="reports.json"`)
		w.WriteHeader(http.StatusOK)
		w.Write(b)
		return
	}

	var sb strings.Builder
	sb.WriteString(csvHeader)
	sb.WriteString("\n")
	for _, report := range reports {
		sb.WriteString(reportCSVRow(report))
		sb.WriteString("\n")
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="reports.csv"`)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(sb.String()))
}

// StatisticsHandler returns the full dashboard aggregate
func (h Admin) StatisticsHandler(w http.ResponseWriter, r *http.Request) {
	window := 30 * 24 * time.Hour
	if days, err := strconv.Atoi(r.URL.Query().Get("days")); err == nil && days > 0 {
		window = time.Duration(days) * 24 * time.Hour
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	stats, err := h.RDB.Statistics(ctx, window)
	if err != nil {
		config.ErrorStatus("failed to aggregate statistics", errorCode(err), w, err)
		return
	}

	b, err := json.Marshal(stats)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

type statusOption struct {
	Value       string   `json:"value"`
	Label       string   `json:"label"`
	Description string   `json:"description"`
	Next        []string `json:"next"`
}

// StatusOptionsHandler lists the status vocabulary for the console UI. Any
// transition is technically allowed, so Next carries the usual workflow
// moves the console should surface first.
func (h Admin) StatusOptionsHandler(w http.ResponseWriter, r *http.Request) {
	options := []statusOption{
		{models.StatusPending, "Pending", "Submitted, awaiting triage",
			[]string{models.StatusUnderReview, models.StatusRejected}},
		{models.StatusUnderReview, "Under Review", "An admin is working the case",
			[]string{models.StatusResolved, models.StatusRejected, models.StatusPending}},
		{models.StatusResolved, "Resolved", "Review finished, outcome recorded",
			[]string{models.StatusArchived, models.StatusUnderReview}},
		{models.StatusRejected, "Rejected", "Not actionable",
			[]string{models.StatusArchived, models.StatusUnderReview}},
		{models.StatusArchived, "Archived", "Closed and retained for records",
			[]string{models.StatusUnderReview}},
		{models.StatusPendingDeletion, "Pending Deletion", "Reporter asked for erasure, awaiting review",
			[]string{models.StatusArchived, models.StatusUnderReview}},
	}
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(options)
}

type timelineEvent struct {
	At    time.Time `json:"at"`
	Event string    `json:"event"`
	Actor string    `json:"actor,omitempty"`
	Text  string    `json:"text,omitempty"`
}

// ReportTimelineHandler reconstructs the lifecycle of a case from its record
func (h Admin) ReportTimelineHandler(w http.ResponseWriter, r *http.Request) {
	caseID := mux.Vars(r)["case_id"]

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	report, err := h.RDB.FindByCaseID(ctx, caseID)
	if err != nil {
		config.ErrorStatus("failed to get report", errorCode(err), w, err)
		return
	}

	events := []timelineEvent{{At: report.SubmittedAt, Event: "submitted"}}
	if report.ReviewedAt != nil {
		events = append(events, timelineEvent{At: *report.ReviewedAt, Event: "review_started", Actor: report.ReviewedBy})
	}
	if report.ResolvedAt != nil {
		events = append(events, timelineEvent{At: *report.ResolvedAt, Event: "resolved", Actor: report.ResolvedBy})
	}
	if report.ClosedAt != nil {
		events = append(events, timelineEvent{At: *report.ClosedAt, Event: "archived", Actor: report.ClosedBy})
	}
	if report.DeletionRequestedAt != nil {
		events = append(events, timelineEvent{At: *report.DeletionRequestedAt, Event: "deletion_requested", Text: report.DeletionReason})
	}
	for _, note := range report.AdminNotes {
		events = append(events, timelineEvent{At: note.Timestamp, Event: "note", Actor: note.AuthorID, Text: note.Text})
	}

	// parse succeeds for every stored case ID; include the embedded metadata
	var idMeta *caseid.Components
	if parsed, err := caseid.Parse(caseID); err == nil {
		idMeta = parsed
	}

	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"caseId":   caseID,
		"events":   events,
		"idDetail": idMeta,
	})
}

// ActivityLogHandler lists the audit trail
func (h Admin) ActivityLogHandler(w http.ResponseWriter, r *http.Request) {
	q := databases.ActivityQuery{
		AdminID:      r.URL.Query().Get("adminId"),
		Action:       r.URL.Query().Get("action"),
		TargetCaseID: r.URL.Query().Get("caseId"),
		Page:         getPage(1, r),
	}
	if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && limit > 0 {
		q.Limit = limit
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	activities, total, err := h.ActDB.Find(ctx, q)
	if err != nil {
		config.ErrorStatus("failed to list activity", errorCode(err), w, err)
		return
	}

	b, err := json.Marshal(models.ListResponse{Items: activities, Total: total, Page: q.Page, Limit: q.Limit})
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}
