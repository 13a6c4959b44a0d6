package news

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
)

// NormalizeURL drops the query string and any trailing slashes.
func NormalizeURL(u string) string {
	if i := strings.IndexByte(u, '?'); i >= 0 {
		u = u[:i]
	}
	return strings.TrimRight(u, "/")
}

// ArticleID returns the hex SHA-1 of the normalized URL.
func ArticleID(u string) string {
	sum := sha1.Sum([]byte(NormalizeURL(u)))
	return hex.EncodeToString(sum[:])
}
