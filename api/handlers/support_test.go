package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/safenetshield/reportsafe-api/models"
)

func TestResourcesHandler(t *testing.T) {
	s := Support{}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/support/resources", nil)
	rr := httptest.NewRecorder()
	s.ResourcesHandler(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	var resources []models.SupportResource
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resources))
	assert.Len(t, resources, 6)
}

func TestResourcesHandlerCategoryFilter(t *testing.T) {
	s := Support{}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/support/resources?category=crisis", nil)
	rr := httptest.NewRecorder()
	s.ResourcesHandler(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	var resources []models.SupportResource
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resources))
	assert.Len(t, resources, 2)
	for _, r := range resources {
		assert.Equal(t, "crisis", r.Category)
	}
}

func TestResourcesHandlerSearch(t *testing.T) {
	s := Support{}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/support/resources?search=stalking", nil)
	rr := httptest.NewRecorder()
	s.ResourcesHandler(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	var resources []models.SupportResource
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resources))
	assert.Len(t, resources, 1)
	assert.Equal(t, "stalking", resources[0].Category)
}

func TestResourcesHandlerUnknownCategory(t *testing.T) {
	s := Support{}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/support/resources?category=unlisted", nil)
	rr := httptest.NewRecorder()
	s.ResourcesHandler(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, "[]", rr.Body.String())
}
