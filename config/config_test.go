package config

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	os.Setenv("DB_URI", "mongodb://127.0.0.1:27017")
	os.Setenv("DB_NAME", "test")
	conf := New()

	assert.NotEmpty(t, conf)
	assert.Equal(t, "mongodb://127.0.0.1:27017", conf.URL)
	assert.Equal(t, "test", conf.DatabaseName)
}

func TestErrorStatus(t *testing.T) {

	ErrorStatus("error it borked", http.StatusBadRequest, httptest.NewRecorder(), errors.New("bad request"))
	assert.True(t, true)
}

func TestErrorStatusHidesServerDetail(t *testing.T) {
	rr := httptest.NewRecorder()
	ErrorStatus("failed to list reports", http.StatusInternalServerError, rr,
		errors.New(`dial tcp 127.0.0.1:27017: connect: connection refused`))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	var body map[string]string
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "failed to list reports", body["response"])
}

func TestErrorStatusKeepsClientDetailAsValidJSON(t *testing.T) {
	rr := httptest.NewRecorder()
	ErrorStatus("invalid report", http.StatusBadRequest, rr,
		errors.New(`field "description" is required`))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	var body map[string]string
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Contains(t, body["response"], `field "description"`)
}
