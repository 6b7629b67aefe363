package validation

import (
	"regexp"
)

// Principals are standard ("SP...") or contract ("SP....name") identities.
var principalRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._\-]{0,127}$`)

func IsValidPrincipal(p string) bool {
	return principalRe.MatchString(p)
}
