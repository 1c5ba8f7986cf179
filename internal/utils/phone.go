package utils

import "strings"

// NormalizePhone converts a Gambian phone number to the +220
// international format expected by the SMS gateway. Local 7-digit
// numbers get the country code prefixed; numbers already carrying 220
// are reformatted. An empty input stays empty so the notifier can
// treat it as a silent no-op.
func NormalizePhone(raw string) string {
	var digits strings.Builder
	for _, r := range strings.TrimSpace(raw) {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	n := digits.String()
	if n == "" {
		return ""
	}
	if strings.HasPrefix(n, "220") && len(n) > 7 {
		return "+" + n
	}
	if strings.HasPrefix(n, "0") {
		n = strings.TrimLeft(n, "0")
	}
	return "+220" + n
}
