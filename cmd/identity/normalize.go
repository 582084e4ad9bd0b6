package identity

import "strings"

// NormalizeUsername canonicalizes usernames for case-insensitive uniqueness.
func NormalizeUsername(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeEmail lower-cases the domain part and trims surrounding space.
// The local part keeps its case.
func NormalizeEmail(s string) string {
	s = strings.TrimSpace(s)
	local, domain, ok := strings.Cut(s, "@")
	if !ok {
		return s
	}
	return local + "@" + strings.ToLower(domain)
}
