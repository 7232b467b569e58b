package auth

import "strings"

// EmailCheck is the outcome of ValidateEmail.
type EmailCheck struct {
	Valid bool
	Error string
}

// NormalizeEmail trims and lower-cases an address for storage and lookup.
func NormalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// ValidateEmail accepts only addresses whose domain equals allowedDomain,
// compared case-insensitively.
func ValidateEmail(raw, allowedDomain string) EmailCheck {
	email := NormalizeEmail(raw)
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" || strings.Contains(domain, "@") {
		return EmailCheck{Error: "Invalid email address"}
	}
	allowed := strings.ToLower(strings.TrimSpace(allowedDomain))
	if allowed == "" || domain != allowed {
		return EmailCheck{Error: "Only @" + allowed + " email addresses are allowed"}
	}
	return EmailCheck{Valid: true}
}
