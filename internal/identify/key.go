package identify

import (
	"strconv"
	"strings"
)

// DefaultKeyPrefixLength is how many runes of the command line go into a
// cache key.
const DefaultKeyPrefixLength = 50

// CacheKey builds the cache key "pid:port:prefix" for q, where port is empty
// when unknown and prefix is at most prefixLen runes of the command line.
// Long command lines share a key once their prefixes agree, which bounds
// key size regardless of argument length.
func CacheKey(q ProcessQuery, prefixLen int) string {
	if prefixLen <= 0 {
		prefixLen = DefaultKeyPrefixLength
	}

	var b strings.Builder
	b.WriteString(strconv.Itoa(q.PID))
	b.WriteByte(':')
	if q.Port > 0 {
		b.WriteString(strconv.Itoa(q.Port))
	}
	b.WriteByte(':')

	n := 0
	for _, r := range q.Command {
		if n == prefixLen {
			break
		}
		b.WriteRune(r)
		n++
	}
	return b.String()
}
