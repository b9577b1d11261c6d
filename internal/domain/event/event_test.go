package event

import (
	"testing"
	"time"
)

func TestType_IsValid(t *testing.T) {
	tests := []struct {
		name      string
		eventType Type
		want      bool
	}{
		{name: "voucher created", eventType: TypeVoucherCreated, want: true},
		{name: "voucher submitted", eventType: TypeVoucherSubmitted, want: true},
		{name: "stage decided", eventType: TypeStageDecided, want: true},
		{name: "quorum voted", eventType: TypeQuorumVoted, want: true},
		{name: "voucher released", eventType: TypeVoucherReleased, want: true},
		{name: "voucher rejected", eventType: TypeVoucherRejected, want: true},
		{name: "voucher cancelled", eventType: TypeVoucherCancelled, want: true},
		{name: "settings updated", eventType: TypeSettingsUpdated, want: true},
		{name: "unknown type", eventType: Type("unknown.type"), want: false},
		{name: "empty string", eventType: Type(""), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.eventType.IsValid(); got != tt.want {
				t.Errorf("Type.IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestType_AdvancesWorkflow(t *testing.T) {
	if !TypeStageDecided.AdvancesWorkflow() {
		t.Error("stage decisions should advance the workflow")
	}
	if TypeVoucherReleased.AdvancesWorkflow() {
		t.Error("release has no next stage")
	}
	if TypeVoucherCancelled.AdvancesWorkflow() {
		t.Error("cancellation has no next stage")
	}
}

func TestNewEvent(t *testing.T) {
	event := NewEvent(TypeStageDecided, "v-123", map[string]interface{}{
		PayloadStage: 2,
	})

	if event == nil {
		t.Fatal("NewEvent() returned nil")
	}
	if event.ID == "" {
		t.Error("Event ID should not be empty")
	}
	if event.Type != TypeStageDecided {
		t.Errorf("Event Type = %v, want %v", event.Type, TypeStageDecided)
	}
	if event.VoucherID != "v-123" {
		t.Errorf("Event VoucherID = %v, want %v", event.VoucherID, "v-123")
	}
	if event.CorrelationID == "" || event.CorrelationID == event.ID {
		t.Error("Event CorrelationID should be set and distinct from ID")
	}
	if time.Since(event.Timestamp) > time.Second {
		t.Error("Event Timestamp should be recent")
	}
}

func TestNewEventWithCorrelation(t *testing.T) {
	event := NewEventWithCorrelation(TypeVoucherReleased, "v-789", nil, "corr-1")

	if event.CorrelationID != "corr-1" {
		t.Errorf("Event CorrelationID = %v, want corr-1", event.CorrelationID)
	}
	if event.Payload == nil {
		t.Error("nil payload should be replaced with an empty map")
	}
}

func TestEvent_WithPayload(t *testing.T) {
	original := NewEvent(TypeVoucherSubmitted, "v-1", map[string]interface{}{"key1": "value1"})
	modified := original.WithPayload("key2", "value2")

	if _, exists := original.Payload["key2"]; exists {
		t.Error("Original event should not be modified")
	}
	if modified.Payload["key1"] != "value1" || modified.Payload["key2"] != "value2" {
		t.Error("Modified event should carry both keys")
	}
	if modified.ID != original.ID || modified.VoucherID != original.VoucherID || modified.CorrelationID != original.CorrelationID {
		t.Error("Modified event should keep identity fields")
	}
}

func TestEvent_PayloadAccessors(t *testing.T) {
	event := NewEvent(TypeStageDecided, "v-1", map[string]interface{}{
		"status":  "PENDING",
		"int":     3,
		"int64":   int64(4),
		"float64": 5.0,
		"flag":    true,
	})

	tests := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{name: "string", got: event.GetPayloadString("status"), want: "PENDING"},
		{name: "string from int", got: event.GetPayloadString("int"), want: ""},
		{name: "int", got: event.GetPayloadInt("int"), want: int64(3)},
		{name: "int64", got: event.GetPayloadInt("int64"), want: int64(4)},
		{name: "float64 as int", got: event.GetPayloadInt("float64"), want: int64(5)},
		{name: "missing int", got: event.GetPayloadInt("nope"), want: int64(0)},
		{name: "bool", got: event.GetPayloadBool("flag"), want: true},
		{name: "missing bool", got: event.GetPayloadBool("nope"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}
