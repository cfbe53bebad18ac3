package service

import (
	"encoding/json"
	"fmt"
	"strings"

	"backend/internal/event"
	"backend/internal/model"
)

// LowStockDigestPayload is the payload of the daily digest job. The request
// and alert jobs carry the event structs themselves.
type LowStockDigestPayload struct {
	Entries []LowStockEntry `json:"entries"`
}

type LowStockEntry struct {
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	Threshold int    `json:"threshold"`
	Unit      string `json:"unit"`
}

// RenderMessage turns a stored outbox payload back into the outbound WhatsApp
// text for its event type. Unknown types are a programming error: the event
// union is closed, so this fails loudly rather than retrying.
func RenderMessage(eventType string, payload []byte) (string, error) {
	switch eventType {
	case model.EventTypeRequestCreated:
		var ev event.RequestCreated
		if err := json.Unmarshal(payload, &ev); err != nil {
			return "", fmt.Errorf("failed to decode %s payload: %w", eventType, err)
		}
		var b strings.Builder
		fmt.Fprintf(&b, "Your %s request %s has been submitted and is awaiting approval.\n",
			kindLabel(ev.RequestKind), ev.RequestNumber)
		fmt.Fprintf(&b, "Department: %s\nItems:\n", ev.Department)
		for _, line := range ev.Lines {
			fmt.Fprintf(&b, "- %s: %d %s\n", line.Name, line.Quantity, line.Unit)
		}
		return b.String(), nil

	case model.EventTypeApprovalNeeded:
		var ev event.ApprovalNeeded
		if err := json.Unmarshal(payload, &ev); err != nil {
			return "", fmt.Errorf("failed to decode %s payload: %w", eventType, err)
		}
		return fmt.Sprintf("Your %s request %s passed an approval gate and now awaits level %d approval.",
			kindLabel(ev.RequestKind), ev.RequestNumber, ev.NextLevel), nil

	case model.EventTypeRequestUpdate:
		var ev event.RequestUpdate
		if err := json.Unmarshal(payload, &ev); err != nil {
			return "", fmt.Errorf("failed to decode %s payload: %w", eventType, err)
		}
		msg := fmt.Sprintf("Your %s request %s is now %s.", kindLabel(ev.RequestKind), ev.RequestNumber, ev.Status)
		if ev.Reason != "" {
			msg += " Reason: " + ev.Reason
		}
		return msg, nil

	case model.EventTypeReorderAlert:
		var ev event.ReorderPointAlert
		if err := json.Unmarshal(payload, &ev); err != nil {
			return "", fmt.Errorf("failed to decode %s payload: %w", eventType, err)
		}
		return fmt.Sprintf("Stock alert: %s is down to %d %s (reorder threshold: %d). Please restock.",
			ev.Name, ev.Quantity, ev.Unit, ev.Threshold), nil

	case model.EventTypeLowStockDigest:
		var digest LowStockDigestPayload
		if err := json.Unmarshal(payload, &digest); err != nil {
			return "", fmt.Errorf("failed to decode %s payload: %w", eventType, err)
		}
		var b strings.Builder
		b.WriteString("Daily low-stock summary:\n")
		for _, entry := range digest.Entries {
			fmt.Fprintf(&b, "- %s: %d %s (threshold %d)\n", entry.Name, entry.Quantity, entry.Unit, entry.Threshold)
		}
		return b.String(), nil
	}

	return "", fmt.Errorf("unknown event type: %s", eventType)
}

func kindLabel(kind string) string {
	if kind == event.KindSupplyRequest {
		return "office-supply"
	}
	return "item"
}
