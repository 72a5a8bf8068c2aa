package helpers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventparticipation/internal/domain"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestStatusForError(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{fmt.Errorf("%w: bad date", domain.ErrValidation), http.StatusBadRequest, ErrCodeBadRequest},
		{fmt.Errorf("%w: event 1", domain.ErrNotFound), http.StatusNotFound, ErrCodeNotFound},
		{domain.ErrForbidden, http.StatusForbidden, ErrCodeForbidden},
		{fmt.Errorf("%w: full", domain.ErrParticipantLimitReached), http.StatusConflict, ErrCodeConflict},
		{errors.New("db down"), http.StatusInternalServerError, ErrCodeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			status, code := StatusForError(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCode, code)
		})
	}
}

func TestWriteServiceResult_CarriesDataAndError(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPatch, "/x", nil)
	WriteServiceResult(w, r, testLogger, map[string]int{"confirmed": 2}, domain.ErrParticipantLimitReached)

	require.Equal(t, http.StatusConflict, w.Code)
	var resp struct {
		Data  map[string]int `json:"data"`
		Error *APIError      `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Data["confirmed"])
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeConflict, resp.Error.Code)
}

func TestWriteServiceError_HidesInternalMessage(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/x", nil)
	WriteServiceError(w, r, testLogger, errors.New("pq: password authentication failed"))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "password")
}

type sample struct {
	Name  string   `json:"name" validate:"max=5"`
	Kind  string   `json:"kind" validate:"omitempty,oneof=a b"`
	IDs   []string `json:"ids" validate:"dive,uuid"`
	Point struct {
		Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	} `json:"point"`
}

func (s sample) Validate() []string {
	if strings.TrimSpace(s.Name) == "" {
		return []string{"name is required"}
	}
	return nil
}

func TestDecodeAndValidate(t *testing.T) {
	tests := []struct {
		name string
		body string
		ok   bool
	}{
		{"valid", `{"name":"x"}`, true},
		{"unknown field", `{"name":"x","extra":1}`, false},
		{"fails validation", `{"name":"  "}`, false},
		{"too long", `{"name":"abcdef"}`, false},
		{"not one of", `{"name":"x","kind":"c"}`, false},
		{"bad id", `{"name":"x","ids":["1"]}`, false},
		{"nested range", `{"name":"x","point":{"lat":91}}`, false},
		{"malformed", `{`, false},
		{"two objects", `{"name":"x"}{"name":"y"}`, false},
		{"too large", `{"name":"` + strings.Repeat("x", MaxBodyBytes) + `"}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(tt.body))
			var dest sample
			assert.Equal(t, tt.ok, DecodeAndValidate(w, r, &dest))
			if !tt.ok {
				assert.Equal(t, http.StatusBadRequest, w.Code)
			}
		})
	}
}

func TestDecodeAndValidate_Messages(t *testing.T) {
	w := httptest.NewRecorder()
	body := `{"name":"abcdef","kind":"c","ids":["1"],"point":{"lat":-91}}`
	r := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(body))
	var dest sample
	require.False(t, DecodeAndValidate(w, r, &dest))

	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	msg := resp.Error.Message
	assert.Contains(t, msg, "name must be at most 5 characters")
	assert.Contains(t, msg, "kind must be one of a, b")
	assert.Contains(t, msg, "ids[0] must be a UUID")
	assert.Contains(t, msg, "point.lat must be greater than or equal to -90")
}

func TestPathUUID(t *testing.T) {
	mux := http.NewServeMux()
	var got string
	var ok bool
	mux.HandleFunc("GET /events/{eventID}", func(w http.ResponseWriter, r *http.Request) {
		got, ok = PathUUID(w, r, "eventID")
	})

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/events/3f2b8c1e-8a4d-4c55-9b0e-2d7f1a6c9e01", nil))
	assert.True(t, ok)
	assert.Equal(t, "3f2b8c1e-8a4d-4c55-9b0e-2d7f1a6c9e01", got)

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/events/42", nil))
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestParsePagination(t *testing.T) {
	tests := []struct {
		query string
		want  domain.PaginationParams
	}{
		{"", domain.PaginationParams{From: 0, Size: DefaultSize}},
		{"from=20&size=5", domain.PaginationParams{From: 20, Size: 5}},
		{"from=-1&size=0", domain.PaginationParams{From: 0, Size: DefaultSize}},
		{"size=1000", domain.PaginationParams{From: 0, Size: MaxSize}},
		{"from=abc", domain.PaginationParams{From: 0, Size: DefaultSize}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/events?"+tt.query, nil)
			assert.Equal(t, tt.want, ParsePagination(r))
		})
	}
}
