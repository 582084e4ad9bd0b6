package password

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Validate checks password against the policy. attrs are user attributes
// (username, email, names) the password must not resemble.
func (c Config) Validate(password string, attrs ...string) error {
	n := utf8.RuneCountInString(password)
	if n < c.Policy.MinLength {
		return ErrPasswordTooShort
	}
	if n > c.Policy.MaxLength {
		return ErrPasswordTooLong
	}
	if c.Policy.RejectSimilar && similarToAny(password, attrs) {
		return ErrPasswordSimilar
	}
	if c.Policy.RejectCommon && isCommon(password) {
		return ErrPasswordCommon
	}
	if c.Policy.RejectNumeric && isNumeric(password) {
		return ErrPasswordNumeric
	}
	return nil
}

func isNumeric(pw string) bool {
	for _, r := range pw {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return pw != ""
}

var common = map[string]struct{}{}

func init() {
	for _, pw := range strings.Fields(`
		password password1 password123 passw0rd 12345678 123456789 1234567890
		11111111 00000000 qwerty qwertyuiop qwerty123 abc12345 iloveyou
		sunshine princess football baseball welcome letmein monkey dragon
		trustno1 superman starwars whatever admin123 library librarian
	`) {
		common[pw] = struct{}{}
	}
}

func isCommon(pw string) bool {
	_, ok := common[strings.ToLower(strings.TrimSpace(pw))]
	return ok
}

// similarToAny compares case-insensitively against each attribute and, for
// emails, the local part. Attributes shorter than 3 runes are ignored.
func similarToAny(pw string, attrs []string) bool {
	p := strings.ToLower(pw)
	for _, a := range attrs {
		a = strings.ToLower(strings.TrimSpace(a))
		parts := []string{a}
		if local, _, ok := strings.Cut(a, "@"); ok {
			parts = append(parts, local)
		}
		for _, part := range parts {
			if utf8.RuneCountInString(part) < 3 {
				continue
			}
			if strings.Contains(p, part) || strings.Contains(part, p) {
				return true
			}
		}
	}
	return false
}
