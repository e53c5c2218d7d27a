package cache

import "strings"

// Key builds a colon-delimited cache key from its segments, e.g.
// Key("coin", "bitcoin", "details") -> "coin:bitcoin:details".
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}
