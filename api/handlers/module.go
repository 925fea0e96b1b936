package handlers

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/safenetshield/reportsafe-api/api"
	"github.com/safenetshield/reportsafe-api/config"
	"github.com/safenetshield/reportsafe-api/databases"
	"github.com/safenetshield/reportsafe-api/models"
)

// Module handles the learn section catalogue
type Module struct {
	DB databases.ModuleDatabase
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// slugify derives a url-safe slug from a module title
func slugify(title string) string {
	s := slugPattern.ReplaceAllString(strings.ToLower(strings.TrimSpace(title)), "-")
	return strings.Trim(s, "-")
}

// ListModulesHandler returns the published module catalogue
func (m Module) ListModulesHandler(w http.ResponseWriter, r *http.Request) {
	q := databases.ModuleQuery{
		Category:      r.URL.Query().Get("category"),
		Difficulty:    r.URL.Query().Get("difficulty"),
		PublishedOnly: true,
		Page:          getPage(1, r),
	}
	if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && limit > 0 {
		q.Limit = limit
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	modules, total, err := m.DB.Find(ctx, q)
	if err != nil {
		config.ErrorStatus("failed to list modules", errorCode(err), w, err)
		return
	}

	b, err := json.Marshal(models.ListResponse{Items: modules, Total: total, Page: q.Page, Limit: q.Limit})
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// ModuleBySlugHandler returns one published module and counts the view
func (m Module) ModuleBySlugHandler(w http.ResponseWriter, r *http.Request) {
	slug := mux.Vars(r)["slug"]

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	module, err := m.DB.FindBySlug(ctx, slug, true)
	if err != nil {
		config.ErrorStatus("failed to get module", errorCode(err), w, err)
		return
	}

	if err := m.DB.IncrementViews(ctx, slug); err == nil {
		module.Views++
	}

	b, err := json.Marshal(module)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// CreateModuleHandler adds a module to the catalogue
func (m Module) CreateModuleHandler(w http.ResponseWriter, r *http.Request) {
	var module models.LearningModule
	if err := json.NewDecoder(r.Body).Decode(&module); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if strings.TrimSpace(module.Title) == "" {
		config.ErrorStatus("module title required", http.StatusBadRequest, w, nil)
		return
	}

	if module.Slug == "" {
		module.Slug = slugify(module.Title)
	}
	now := time.Now().UTC()
	module.CreatedAt = now
	module.UpdatedAt = now
	module.Views = 0
	module.CreatedBy = adminID(r)

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	// slugs are unique per catalogue
	if _, err := m.DB.FindBySlug(ctx, module.Slug, false); err == nil {
		config.ErrorStatus("module slug already exists", http.StatusConflict, w, nil)
		return
	}

	if err := m.DB.Create(ctx, module); err != nil {
		config.ErrorStatus("failed to store module", errorCode(err), w, err)
		return
	}

	b, _ := json.Marshal(module)
	w.WriteHeader(http.StatusCreated)
	w.Write(b)
}

// UpdateModuleHandler replaces a module's content
func (m Module) UpdateModuleHandler(w http.ResponseWriter, r *http.Request) {
	slug := mux.Vars(r)["slug"]

	var module models.LearningModule
	if err := json.NewDecoder(r.Body).Decode(&module); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	existing, err := m.DB.FindBySlug(ctx, slug, false)
	if err != nil {
		config.ErrorStatus("failed to get module", errorCode(err), w, err)
		return
	}

	module.ID = existing.ID
	module.Slug = slug
	module.Views = existing.Views
	module.CreatedAt = existing.CreatedAt
	module.CreatedBy = existing.CreatedBy

	if err := m.DB.Update(ctx, &module); err != nil {
		config.ErrorStatus("failed to update module", errorCode(err), w, err)
		return
	}

	b, _ := json.Marshal(module)
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// DeleteModuleHandler removes a module from the catalogue
func (m Module) DeleteModuleHandler(w http.ResponseWriter, r *http.Request) {
	slug := mux.Vars(r)["slug"]

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if err := m.DB.Delete(ctx, slug); err != nil {
		config.ErrorStatus("failed to delete module", errorCode(err), w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]bool{"deleted": true})
}
