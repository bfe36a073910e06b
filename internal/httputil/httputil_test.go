package httputil

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"multilingual-qa/internal/app"
	"multilingual-qa/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusCreated, map[string]string{"id": "abc"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "abc", body["id"])
}

func TestHealthHandler(t *testing.T) {
	deps := app.Deps{Log: discardLogger(), Model: &model.Handle{Name: "extractive-baseline", Device: "cpu"}}
	rec := httptest.NewRecorder()
	HealthHandler(deps)(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "extractive-baseline", body["model"])
	assert.Equal(t, "cpu", body["device"])
}

func TestRecoverer(t *testing.T) {
	h := Recoverer(discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestFail_DefaultsTo500(t *testing.T) {
	rec := httptest.NewRecorder()
	Fail(discardLogger(), rec, "something broke", assert.AnError, 0)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "something broke")
}

func TestValidationError_ReportsJSONFieldNames(t *testing.T) {
	type payload struct {
		Language  string `json:"language" validate:"oneof=English German"`
		MaxLength int    `json:"max_length" validate:"min=0,max=512"`
	}
	err := Validator.Struct(payload{Language: "French", MaxLength: 1000})
	require.Error(t, err)

	rec := httptest.NewRecorder()
	ValidationError(discardLogger(), rec, err)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "validation failed", body.Error)
	assert.Equal(t, "oneof=English German", body.Fields["language"])
	assert.Equal(t, "max=512", body.Fields["max_length"])
}

func TestValidationError_NonValidatorError(t *testing.T) {
	rec := httptest.NewRecorder()
	ValidationError(discardLogger(), rec, assert.AnError)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
