package password

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MinLength is the minimum password length in characters.
const MinLength = 12

// Violation names one failed strength rule.
type Violation string

const (
	ViolationTooShort      Violation = "too_short"
	ViolationNoUpper       Violation = "no_upper"
	ViolationNoLower       Violation = "no_lower"
	ViolationNoDigit       Violation = "no_digit"
	ViolationNoSpecial     Violation = "no_special"
	ViolationCommon        Violation = "common_password"
	ViolationInappropriate Violation = "inappropriate"
)

// Message is a short user-facing description of v.
func (v Violation) Message() string {
	switch v {
	case ViolationTooShort:
		return "Password must be at least 12 characters long"
	case ViolationNoUpper:
		return "Password must contain at least one uppercase letter"
	case ViolationNoLower:
		return "Password must contain at least one lowercase letter"
	case ViolationNoDigit:
		return "Password must contain at least one number"
	case ViolationNoSpecial:
		return "Password must contain at least one special character"
	case ViolationCommon:
		return "Password contains a common word or sequence"
	case ViolationInappropriate:
		return "Password contains inappropriate content"
	default:
		return "Password is not allowed"
	}
}

// DefaultDenylist holds common password fragments rejected as substrings.
var DefaultDenylist = []string{
	"password",
	"123456",
	"qwerty",
	"letmein",
	"welcome",
	"admin",
	"iloveyou",
	"abc123",
	"monkey",
	"dragon",
	"111111",
	"000000",
	"football",
	"baseball",
	"sunshine",
}

// Policy checks password strength.
type Policy struct {
	MinLength int
	// Denylist entries are matched case-insensitively as substrings.
	Denylist []string
	// Screen, when set, flags inappropriate content.
	Screen func(string) bool
}

// DefaultPolicy returns the registration policy.
func DefaultPolicy() Policy {
	return Policy{
		MinLength: MinLength,
		Denylist:  append([]string(nil), DefaultDenylist...),
	}
}

// Validate returns every rule the password breaks, in a stable order.
// An empty result means the password is acceptable.
func (p Policy) Validate(password string) []Violation {
	var out []Violation

	min := p.MinLength
	if min <= 0 {
		min = MinLength
	}
	if utf8.RuneCountInString(password) < min {
		out = append(out, ViolationTooShort)
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}
	if !hasUpper {
		out = append(out, ViolationNoUpper)
	}
	if !hasLower {
		out = append(out, ViolationNoLower)
	}
	if !hasDigit {
		out = append(out, ViolationNoDigit)
	}
	if !hasSpecial {
		out = append(out, ViolationNoSpecial)
	}

	lower := strings.ToLower(password)
	for _, word := range p.Denylist {
		if word != "" && strings.Contains(lower, strings.ToLower(word)) {
			out = append(out, ViolationCommon)
			break
		}
	}

	if p.Screen != nil && p.Screen(password) {
		out = append(out, ViolationInappropriate)
	}

	return out
}
