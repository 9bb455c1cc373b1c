package audit

import "testing"

func TestRedact_MasksSensitiveKeys(t *testing.T) {
	in := map[string]interface{}{
		"api_token":  "sk-live-abcdef123456",
		"api_key":    "abc",
		"password":   "hunter2",
		"secretId":   "id-123",
		"server":     "alpha",
		"retryCount": 3,
	}

	out := Redact(in)

	for _, k := range []string{"api_token", "api_key", "password", "secretId"} {
		if out[k] != redactedPlaceholder {
			t.Errorf("expected %s to be redacted, got %v", k, out[k])
		}
	}
	if out["server"] != "alpha" {
		t.Errorf("expected non-sensitive key to pass through, got %v", out["server"])
	}
	if out["retryCount"] != 3 {
		t.Errorf("expected non-sensitive key to pass through, got %v", out["retryCount"])
	}

	for _, v := range out {
		if v == "sk-live-abcdef123456" || v == "hunter2" {
			t.Fatalf("original secret value leaked through redaction: %v", v)
		}
	}
}

func TestRedact_NestedMap(t *testing.T) {
	in := map[string]interface{}{
		"headers": map[string]interface{}{
			"Authorization": "unused-key-name", // not matched: "Authorization" contains none of the sensitive substrings
			"X-Token":       "abc123",
		},
	}
	out := Redact(in)
	nested := out["headers"].(map[string]interface{})
	if nested["X-Token"] != redactedPlaceholder {
		t.Errorf("expected nested X-Token to be redacted, got %v", nested["X-Token"])
	}
}

func TestRedact_NilIsNil(t *testing.T) {
	if Redact(nil) != nil {
		t.Error("expected Redact(nil) to return nil")
	}
}
