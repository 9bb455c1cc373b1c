package audit

import "regexp"

// sensitiveKey is the single canonical pattern for keys whose values
// must never reach the audit log, structured logs, or HTTP responses
// in the clear (spec §4.4, §9). It supersedes the two slightly
// different redaction utilities this repo's ancestor carried; this is
// the stricter of the two and the only one that remains.
var sensitiveKey = regexp.MustCompile(`(?i)(token|key|secret|password)`)

const redactedPlaceholder = "[redacted]"

// Redact returns a shallow copy of data with the value of every key
// matching sensitiveKey replaced by redactedPlaceholder. Nested maps
// are redacted recursively; other value types pass through unchanged.
func Redact(data map[string]interface{}) map[string]interface{} {
	if data == nil {
		return nil
	}
	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		if sensitiveKey.MatchString(k) {
			out[k] = redactedPlaceholder
			continue
		}
		if nested, ok := v.(map[string]interface{}); ok {
			out[k] = Redact(nested)
			continue
		}
		out[k] = v
	}
	return out
}
