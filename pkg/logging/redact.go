package logging

import "strings"

// RedactEmail keeps the first two characters of the local part and the domain.
func RedactEmail(s string) string {
	parts := strings.Split(s, "@")
	if len(parts) != 2 {
		return "***"
	}

	local, domain := parts[0], parts[1]
	if len(local) > 2 {
		local = local[:2] + "***"
	} else {
		local = "***"
	}

	return local + "@" + domain
}

func RedactToken() string    { return "[REDACTED_TOKEN]" }
func RedactPassword() string { return "[REDACTED_PASSWORD]" }
