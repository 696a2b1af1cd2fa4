package middleware

import (
	"encoding/json"
	"testing"
)

func TestRedactAuditBodySettle(t *testing.T) {
	body := []byte(`{"payer":"P","token_mint":"M","payer_signature":"5sig","nested":{"private_key":"k","seed":"s"}}`)
	out := redactAuditBody("/v1/bookings/abc/settle", body)

	var data map[string]interface{}
	if err := json.Unmarshal([]byte(out), &data); err != nil {
		t.Fatalf("invalid json output: %v", err)
	}
	if data["payer_signature"] == "5sig" {
		t.Fatalf("payer signature not redacted")
	}
	if data["payer"] != "P" {
		t.Fatalf("payer should be kept for audit, got %v", data["payer"])
	}
	if nested, ok := data["nested"].(map[string]interface{}); ok {
		if nested["private_key"] == "k" || nested["seed"] == "s" {
			t.Fatalf("nested secrets not redacted")
		}
	}
}

func TestRedactAuditBodyNonSensitivePath(t *testing.T) {
	body := []byte(`{"ok":true}`)
	out := redactAuditBody("/health", body)
	if out != string(body) {
		t.Fatalf("unexpected redaction on non-sensitive path")
	}
}

func TestRedactAuditBodyInvalidJSON(t *testing.T) {
	body := []byte("not-json")
	out := redactAuditBody("/v1/bookings", body)
	if out != "[redacted]" {
		t.Fatalf("expected redacted placeholder for invalid json")
	}
}
