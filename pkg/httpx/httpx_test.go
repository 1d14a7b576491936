package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/storefront/pkg/apperr"
	"github.com/dmehra2102/storefront/pkg/logging"
)

func TestWriteError_StatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", apperr.Validation("Item 1: quantity must be at least 1"), http.StatusBadRequest},
		{"stock", &apperr.StockError{Shortages: []apperr.Shortage{{ProductID: "p", Requested: 2}}}, http.StatusBadRequest},
		{"transition", &apperr.InvalidTransitionError{From: "completed", To: "cancelled"}, http.StatusBadRequest},
		{"not found", apperr.NotFound("product", "a", "b"), http.StatusNotFound},
		{"denied", apperr.AccessDenied("not owner"), http.StatusForbidden},
		{"unauthenticated", apperr.Unauthenticated(""), http.StatusUnauthorized},
		{"conflict", &apperr.ConflictError{Resource: "order", ID: "x"}, http.StatusConflict},
		{"wrapped", fmt.Errorf("create order: %w", apperr.NotFound("product", "a")), http.StatusNotFound},
		{"unknown", errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			WriteError(rec, req, logging.Discard(), tc.err)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestWriteError_ItemizedDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	WriteError(rec, req, logging.Discard(), &apperr.StockError{Shortages: []apperr.Shortage{
		{ProductID: "p1", Name: "Lamp", Requested: 3, Available: 1},
		{ProductID: "p2", Name: "Desk", Requested: 2, Available: 0},
	}})

	var body struct {
		Error   string            `json:"error"`
		Details []apperr.Shortage `json:"details"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Insufficient stock", body.Error)
	assert.Len(t, body.Details, 2)
	assert.Equal(t, 1, body.Details[0].Available)
}

func TestWriteError_InternalHidesCause(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	WriteError(rec, req, logging.Discard(), errors.New("password=hunter2"))

	assert.NotContains(t, rec.Body.String(), "hunter2")
}

func TestDecode(t *testing.T) {
	var v struct {
		Name string `json:"name"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x"}`))
	require.NoError(t, Decode(req, &v))
	assert.Equal(t, "x", v.Name)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))
	var ve *apperr.ValidationError
	assert.ErrorAs(t, Decode(req, &v), &ve)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(``))
	assert.ErrorAs(t, Decode(req, &v), &ve)
}
