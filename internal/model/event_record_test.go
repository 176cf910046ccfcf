package model

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestEventRecordJSONRoundTrip(t *testing.T) {
	payload, err := json.Marshal(BoughtEvent{
		SolIn:        1_000_000_000,
		FeeLamports:  10_000_000,
		TokensOut:    181_818_181_818_182,
		SolReserve:   990_000_000,
		TokenReserve: 818_181_818_181_818,
	})
	if err != nil {
		t.Fatalf("marshal payload failed: %v", err)
	}

	original := EventRecord{
		ID:        "7a2f7a39-9a44-4a6f-8a6d-0f6f2b1d9c01",
		Sequence:  42,
		EventName: EventBought,
		Launch:    "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin",
		EmittedAt: "2026-01-01T00:00:00Z",
		Payload:   payload,
	}

	b, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded EventRecord
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if !reflect.DeepEqual(original, decoded) {
		t.Fatalf("round-trip mismatch: %+v != %+v", original, decoded)
	}
}
