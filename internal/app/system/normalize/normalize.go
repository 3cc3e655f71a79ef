// internal/app/system/normalize/normalize.go
package normalize

import (
	"regexp"
	"strings"

	"github.com/dalemusser/churchhub/internal/domain/models"
)

var emailRE = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Email trims and lowercases an address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ValidEmail applies the loose address shape check used for OTP delivery.
func ValidEmail(s string) bool {
	return emailRE.MatchString(s)
}

// Name trims surrounding whitespace and preserves case.
func Name(s string) string {
	return strings.TrimSpace(s)
}

// QueryParam trims a query string value.
func QueryParam(s string) string {
	return strings.TrimSpace(s)
}

// Phone converts a Nigerian number to +234 form:
//
//	+2348031234567 → unchanged
//	2348031234567  → +2348031234567
//	08031234567    → +2348031234567
//	8031234567     → +2348031234567
//
// Anything else is returned with only digits and '+' kept.
func Phone(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '+' {
			b.WriteRune(r)
		}
	}
	p := b.String()
	switch {
	case p == "":
		return ""
	case strings.HasPrefix(p, "+234"):
		return p
	case strings.HasPrefix(p, "234"):
		return "+" + p
	case len(p) == 11 && p[0] == '0':
		return "+234" + p[1:]
	case len(p) == 10 && p[0] != '+':
		return "+234" + p
	}
	return p
}

// Role maps a role name in any case to its canonical spelling, or "" when
// the name is not a role.
func Role(s string) string {
	s = strings.TrimSpace(s)
	for _, r := range []string{models.RoleSuperAdmin, models.RoleMinistryAdmin, models.RoleUnitLeader, models.RoleMember} {
		if strings.EqualFold(s, r) {
			return r
		}
	}
	return ""
}

// Duty trims a duty name. Duties compare case-insensitively but keep the
// spelling they were assigned with.
func Duty(s string) string {
	return strings.TrimSpace(s)
}

// Slug lowercases s and joins alphanumeric runs with '-'.
func Slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
