package password

import "errors"

// Public, stable errors for callers.
var (
	ErrPasswordTooShort = errors.New("password is too short")
	ErrPasswordTooLong  = errors.New("password is too long")
	ErrPasswordNumeric  = errors.New("password is entirely numeric")
	ErrPasswordCommon   = errors.New("password is too common")
	ErrPasswordSimilar  = errors.New("password is too similar to the username or email")
	ErrInvalidHash      = errors.New("invalid password hash")
)

// IsPolicy reports whether err is one of the rule violations (as opposed to a
// hashing failure).
func IsPolicy(err error) bool {
	return errors.Is(err, ErrPasswordTooShort) ||
		errors.Is(err, ErrPasswordTooLong) ||
		errors.Is(err, ErrPasswordNumeric) ||
		errors.Is(err, ErrPasswordCommon) ||
		errors.Is(err, ErrPasswordSimilar)
}
