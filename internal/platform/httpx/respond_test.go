package httpx

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProblemUsesProblemJSONMediaType(t *testing.T) {
	rec := httptest.NewRecorder()
	Problem(rec, http.StatusConflict, "Conflict", "already active")

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

	var pd ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pd))
	assert.Equal(t, "Conflict", pd.Title)
	assert.Equal(t, http.StatusConflict, pd.Status)
	assert.Equal(t, "already active", pd.Detail)
}

func TestRespondErrorTaxonomy(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{ErrNotFound, http.StatusNotFound},
		{ErrConflict, http.StatusConflict},
		{ErrUnauthorized, http.StatusUnauthorized},
		{ErrInvalidTransition, http.StatusConflict},
		{ErrInvalidState, http.StatusConflict},
		{ErrOutOfOrder, http.StatusUnprocessableEntity},
		{ErrValidation, http.StatusBadRequest},
		{ErrUnavailable, http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		RespondError(rec, tc.err)
		assert.Equal(t, tc.status, rec.Code, "error %v", tc.err)
	}
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"patient_id":"p-1","bogus":1}`))

	var target struct {
		PatientID string `json:"patient_id"`
	}
	err := DecodeJSON(req, &target)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bogus")
}

func TestDecodeJSONAcceptsKnownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"patient_id":"p-1"}`))

	var target struct {
		PatientID string `json:"patient_id"`
	}
	require.NoError(t, DecodeJSON(req, &target))
	assert.Equal(t, "p-1", target.PatientID)
}
