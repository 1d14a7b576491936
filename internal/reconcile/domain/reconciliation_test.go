package domain

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogValue_CarriesWholeRecord(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))

	rec := StockReconciliation{
		ID:        "r-1",
		OrderID:   "o-1",
		Reason:    "order persistence failed",
		Items:     []Item{{ProductID: "p-1", Quantity: 3}},
		Status:    StatusPending,
		CreatedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	log.Error("unrecorded", "reconciliation", rec)

	var line struct {
		Reconciliation struct {
			ID      string `json:"id"`
			OrderID string `json:"order_id"`
			Items   []Item `json:"items"`
		} `json:"reconciliation"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "r-1", line.Reconciliation.ID)
	assert.Equal(t, "o-1", line.Reconciliation.OrderID)
	assert.Equal(t, []Item{{ProductID: "p-1", Quantity: 3}}, line.Reconciliation.Items)
}
