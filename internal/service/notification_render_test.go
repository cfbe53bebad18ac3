package service

import (
	"encoding/json"
	"testing"

	"backend/internal/event"
	"backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}

func TestRenderMessage(t *testing.T) {
	tests := []struct {
		name      string
		eventType string
		payload   []byte
		contains  []string
	}{
		{
			name:      "request created",
			eventType: model.EventTypeRequestCreated,
			payload: mustJSON(t, event.RequestCreated{
				RequestKind:   event.KindItemRequest,
				RequestNumber: "REQ-20260830-00001",
				Department:    "Civil Division",
				Lines:         []event.Line{{Name: "Office Chair", Quantity: 2, Unit: "pcs"}},
			}),
			contains: []string{"REQ-20260830-00001", "awaiting approval", "Office Chair: 2 pcs"},
		},
		{
			name:      "approval needed",
			eventType: model.EventTypeApprovalNeeded,
			payload: mustJSON(t, event.ApprovalNeeded{
				RequestKind:   event.KindItemRequest,
				RequestNumber: "REQ-20260830-00002",
				NextLevel:     2,
			}),
			contains: []string{"REQ-20260830-00002", "level 2"},
		},
		{
			name:      "rejection carries the reason",
			eventType: model.EventTypeRequestUpdate,
			payload: mustJSON(t, event.RequestUpdate{
				RequestKind:   event.KindSupplyRequest,
				RequestNumber: "SUP-20260830-00001",
				Status:        model.SupplyStatusRejected,
				Reason:        "not budgeted",
			}),
			contains: []string{"office-supply", "REJECTED", "Reason: not budgeted"},
		},
		{
			name:      "reorder alert",
			eventType: model.EventTypeReorderAlert,
			payload: mustJSON(t, event.ReorderPointAlert{
				Name:      "Toner Cartridge",
				Quantity:  2,
				Threshold: 5,
				Unit:      "pcs",
			}),
			contains: []string{"Toner Cartridge", "down to 2 pcs", "threshold: 5"},
		},
		{
			name:      "low stock digest",
			eventType: model.EventTypeLowStockDigest,
			payload: mustJSON(t, LowStockDigestPayload{
				Entries: []LowStockEntry{
					{Name: "A4 Paper", Quantity: 3, Threshold: 10, Unit: "ream"},
					{Name: "Staples", Quantity: 1, Threshold: 4, Unit: "box"},
				},
			}),
			contains: []string{"Daily low-stock summary", "A4 Paper: 3 ream", "Staples: 1 box"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := RenderMessage(tt.eventType, tt.payload)
			require.NoError(t, err)
			for _, want := range tt.contains {
				assert.Contains(t, msg, want)
			}
		})
	}
}

func TestRenderMessageUnknownType(t *testing.T) {
	_, err := RenderMessage("SOMETHING_ELSE", []byte("{}"))
	assert.ErrorContains(t, err, "unknown event type")
}

func TestRenderMessageMalformedPayload(t *testing.T) {
	_, err := RenderMessage(model.EventTypeReorderAlert, []byte("{not json"))
	assert.ErrorContains(t, err, "failed to decode")
}
