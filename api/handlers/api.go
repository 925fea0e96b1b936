package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/safenetshield/reportsafe-api/api"
	"github.com/safenetshield/reportsafe-api/api/scheduler"
	"github.com/safenetshield/reportsafe-api/caseid"
	"github.com/safenetshield/reportsafe-api/config"
	"github.com/safenetshield/reportsafe-api/databases"
	"github.com/safenetshield/reportsafe-api/mailer"
	"github.com/safenetshield/reportsafe-api/models"
	"github.com/safenetshield/reportsafe-api/storage"
)

// App stores the router and db connection, so it can be reused
type App struct {
	Router    *mux.Router
	Config    config.Config
	Scheduler *scheduler.Scheduler

	dbHelper databases.DatabaseHelper

	ReportDB   databases.ReportDatabase
	ActivityDB databases.ActivityDatabase
	AdminDB    databases.AdminDatabase
	ResetDB    databases.AdminResetDatabase
	ModuleDB   databases.ModuleDatabase
	LockDB     databases.SchedulerLockDatabase
	Evidence   storage.EvidenceStore
}

// New creates a new mux router and all the routes
func (a *App) New() *mux.Router {
	// setup go-guardian for middleware
	m := api.MiddlewareDB{DB: a.AdminDB}
	m.SetupGoGuardian()

	r := mux.NewRouter()
	r.Use(api.MetricsMiddleware)
	r.Use(api.TimeoutMiddleware(30 * time.Second))

	feed := NewLiveFeed()
	rep := PublicReport{RDB: a.ReportDB, Evidence: a.Evidence, Feed: feed}
	admin := Admin{
		RDB:      a.ReportDB,
		ADB:      a.AdminDB,
		ResetDB:  a.ResetDB,
		ActDB:    a.ActivityDB,
		Evidence: a.Evidence,
		Mail:     mailer.New(),
		Feed:     feed,
	}
	mod := Module{DB: a.ModuleDB}
	support := Support{}
	metrics := MetricsHandler{}
	cloudinaryHandler := CloudinaryHandler{}

	// healthchex
	r.HandleFunc("/health", healthCheckHandler)

	apiCreate := r.PathPrefix("/api/v1").Subrouter()

	apiCreate.Handle("/auth/token", api.Middleware(http.HandlerFunc(m.CreateToken))).Methods("POST")
	apiCreate.Handle("/auth/logout", api.Middleware(http.HandlerFunc(api.RevokeToken))).Methods("DELETE")

	// public report intake and self-service
	apiCreate.Handle("/reports", http.HandlerFunc(rep.SubmitReportHandler)).Methods("POST")
	apiCreate.Handle("/reports/{case_id}/status", http.HandlerFunc(rep.ReportStatusHandler)).Methods("GET")
	apiCreate.Handle("/reports/{case_id}/evidence", http.HandlerFunc(rep.AddEvidenceHandler)).Methods("POST")
	apiCreate.Handle("/reports/{case_id}/deletion-request", http.HandlerFunc(rep.RequestDeletionHandler)).Methods("POST")
	apiCreate.Handle("/statistics", http.HandlerFunc(rep.PublicStatisticsHandler)).Methods("GET")
	apiCreate.Handle("/incident-types", http.HandlerFunc(rep.IncidentTypesHandler)).Methods("GET")

	// learn section and support directory
	apiCreate.Handle("/learn/modules", http.HandlerFunc(mod.ListModulesHandler)).Methods("GET")
	apiCreate.Handle("/learn/modules/{slug}", http.HandlerFunc(mod.ModuleBySlugHandler)).Methods("GET")
	apiCreate.Handle("/support/resources", http.HandlerFunc(support.ResourcesHandler)).Methods("GET")

	// signed direct uploads for evidence
	apiCreate.Handle("/uploads/signature", http.HandlerFunc(cloudinaryHandler.GenerateSignature)).Methods("POST")

	// admin auth
	apiCreate.Handle("/admin/login", http.HandlerFunc(admin.AdminLoginHandler)).Methods("POST")
	apiCreate.Handle("/admin/forgot-password", http.HandlerFunc(admin.AdminForgotPasswordHandler)).Methods("POST")
	apiCreate.Handle("/admin/reset-password", http.HandlerFunc(admin.AdminResetPasswordHandler)).Methods("POST")

	// admin report console, JWT protected
	apiCreate.Handle("/admin/reports", admin.Auth(http.HandlerFunc(admin.ListReportsHandler))).Methods("GET")
	apiCreate.Handle("/admin/reports/attention", admin.Auth(http.HandlerFunc(admin.AttentionReportsHandler))).Methods("GET")
	apiCreate.Handle("/admin/reports/export", admin.Auth(http.HandlerFunc(admin.ExportReportsHandler))).Methods("GET")
	apiCreate.Handle("/admin/reports/bulk-status", admin.Auth(http.HandlerFunc(admin.BulkUpdateStatusHandler))).Methods("PUT")
	apiCreate.Handle("/admin/reports/{case_id}", admin.Auth(http.HandlerFunc(admin.ReportDetailHandler))).Methods("GET")
	apiCreate.Handle("/admin/reports/{case_id}", admin.Auth(http.HandlerFunc(admin.DeleteReportHandler))).Methods("DELETE")
	apiCreate.Handle("/admin/reports/{case_id}/status", admin.Auth(http.HandlerFunc(admin.UpdateStatusHandler))).Methods("PUT")
	apiCreate.Handle("/admin/reports/{case_id}/notes", admin.Auth(http.HandlerFunc(admin.AddNoteHandler))).Methods("POST")
	apiCreate.Handle("/admin/reports/{case_id}/assign", admin.Auth(http.HandlerFunc(admin.AssignReportHandler))).Methods("PUT")
	apiCreate.Handle("/admin/reports/{case_id}/flags", admin.Auth(http.HandlerFunc(admin.UpdateFlagsHandler))).Methods("PUT")
	apiCreate.Handle("/admin/reports/{case_id}/tags", admin.Auth(http.HandlerFunc(admin.UpdateTagsHandler))).Methods("PUT")
	apiCreate.Handle("/admin/reports/{case_id}/timeline", admin.Auth(http.HandlerFunc(admin.ReportTimelineHandler))).Methods("GET")
	apiCreate.Handle("/admin/statistics", admin.Auth(http.HandlerFunc(admin.StatisticsHandler))).Methods("GET")
	apiCreate.Handle("/admin/status-options", admin.Auth(http.HandlerFunc(admin.StatusOptionsHandler))).Methods("GET")
	apiCreate.Handle("/admin/activity", admin.Auth(http.HandlerFunc(admin.ActivityLogHandler))).Methods("GET")

	// learning module CMS
	apiCreate.Handle("/admin/learn/modules", admin.Auth(http.HandlerFunc(mod.CreateModuleHandler))).Methods("POST")
	apiCreate.Handle("/admin/learn/modules/{slug}", admin.Auth(http.HandlerFunc(mod.UpdateModuleHandler))).Methods("PUT")
	apiCreate.Handle("/admin/learn/modules/{slug}", admin.Auth(http.HandlerFunc(mod.DeleteModuleHandler))).Methods("DELETE")

	// operational metrics
	apiCreate.Handle("/admin/metrics/summary", admin.Auth(http.HandlerFunc(metrics.GetMetricsSummary))).Methods("GET")
	apiCreate.Handle("/admin/metrics/routes", admin.Auth(http.HandlerFunc(metrics.GetRouteMetrics))).Methods("GET")

	// live feed for the admin dashboard
	apiCreate.Handle("/admin/livefeed", http.HandlerFunc(feed.ServeWS)).Methods("GET")

	return r
}

// Initialize is invoked by main to connect with the database and create a router
func (a *App) Initialize() error {

	client, err := databases.NewClient(&a.Config)
	if err != nil {
		// if we fail to create a new database client, then kill the pod
		zap.S().With(err).Error("failed to create new client")
		return err
	}

	a.dbHelper = databases.NewDatabase(&a.Config, client)
	err = client.Connect()
	if err != nil {
		// if we fail to connect to the database, then kill the pod
		zap.S().With(err).Error("failed to connect to database")
		return err
	}
	zap.S().Info("reportsafe-api has connected to the database")

	gen := caseid.New()

	// The report store is swappable: mongo by default, a JSON flat file when
	// STORE_BACKEND=file. Admin accounts, audit trail and the learn catalogue
	// always live in mongo.
	switch a.Config.StoreBackend {
	case "file":
		fileDB, err := databases.NewFileReportDatabase(a.Config.DataDir, gen)
		if err != nil {
			zap.S().With(err).Error("failed to open file report store")
			return err
		}
		a.ReportDB = fileDB
	default:
		a.ReportDB = databases.NewReportDatabase(a.dbHelper, gen)
	}

	a.ActivityDB = databases.NewActivityDatabase(a.dbHelper)
	a.AdminDB = databases.NewAdminDatabase(a.dbHelper)
	a.ResetDB = databases.NewAdminResetDatabase(a.dbHelper)
	a.ModuleDB = databases.NewModuleDatabase(a.dbHelper)
	a.LockDB = databases.NewSchedulerLockDatabase(a.dbHelper)

	if os.Getenv("CLOUDINARY_URL") != "" {
		store, err := storage.NewCloudinaryStore()
		if err != nil {
			zap.S().With(err).Error("failed to initialize cloudinary store")
			return err
		}
		a.Evidence = store
	} else {
		store, err := storage.NewDiskStore(a.Config.EvidenceDir)
		if err != nil {
			zap.S().With(err).Error("failed to initialize evidence directory")
			return err
		}
		a.Evidence = store
	}

	a.seedAdminAccount()

	// retention purge job
	a.Scheduler = scheduler.NewScheduler(a.ReportDB, a.ActivityDB, a.LockDB, a.Evidence)
	a.Scheduler.Start()

	// initialize api router
	a.initializeRoutes()
	return nil

}

// seedAdminAccount bootstraps the first admin from env vars on an empty
// install, so the console is reachable without manual db edits
func (a *App) seedAdminAccount() {
	email := strings.ToLower(strings.TrimSpace(os.Getenv("ADMIN_EMAIL")))
	password := os.Getenv("ADMIN_PASSWORD")
	if email == "" || password == "" {
		return
	}

	ctx, cancel := api.WithQueryTimeout(context.Background())
	defer cancel()

	count, err := a.AdminDB.Count(ctx)
	if err != nil || count > 0 {
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		zap.S().Errorw("failed to hash seed admin password", "error", err)
		return
	}

	now := time.Now().UTC()
	err = a.AdminDB.Create(ctx, models.AdminUser{
		Email:        email,
		PasswordHash: string(hash),
		Active:       true,
		Roles:        []string{"admin"},
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		zap.S().Errorw("failed to seed admin account", "error", err)
		return
	}
	zap.S().Infow("seeded initial admin account", "email", email)
}

func (a *App) initializeRoutes() {
	a.Router = a.New()
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	b, _ := json.Marshal(models.HealthCheckResponse{
		Alive: true,
	})
	_, _ = io.WriteString(w, string(b))
}

func getPage(page int, r *http.Request) int {
	if r.URL.Query().Get("page") == "" {
		zap.S().Warnf("page not set, using default of %v", page)
	} else {
		var err error
		page, err = strconv.Atoi(r.URL.Query().Get("page"))
		if err != nil {
			zap.S().Errorf(fmt.Sprintf("error parsing page number: %v", err))
		}
		if page < 1 {
			zap.S().Warnf(fmt.Sprintf("cannot process page number less than 1. Got: %v", page))
			return 1
		}
	}
	return page
}
