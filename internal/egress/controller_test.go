package egress

import "testing"

func TestIsAllowed_ExactAndSuffix(t *testing.T) {
	allowlist := []string{"example.com"}

	cases := map[string]bool{
		"example.com":       true,
		"EXAMPLE.COM":       true,
		"api.example.com":   true,
		"notexample.com":    false,
		"example.com.evil":  false,
		"evil.com":          false,
		"sub.api.example.com": true,
	}

	for host, want := range cases {
		if got := IsAllowed(host, allowlist); got != want {
			t.Errorf("IsAllowed(%q) = %v, want %v", host, got, want)
		}
	}
}

func TestValidateProbeURL(t *testing.T) {
	allowlist := []string{"example.com"}

	if !ValidateProbeURL("https://api.example.com/ping", allowlist) {
		t.Error("expected allowed host to validate")
	}
	if ValidateProbeURL("https://malicious.test/ping", allowlist) {
		t.Error("expected disallowed host to be rejected")
	}
	if ValidateProbeURL("::not a url::", allowlist) {
		t.Error("expected parse failure to return false, not panic")
	}
}

func TestCheck(t *testing.T) {
	allowlist := []string{"example.com"}
	if err := Check("example.com", allowlist); err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
	if err := Check("evil.com", allowlist); err == nil {
		t.Error("expected DeniedError")
	}
}
