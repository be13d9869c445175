package textutil

import (
	"regexp"
	"strings"
)

// disallowed matches every character the backend rejects in free text.
var disallowed = regexp.MustCompile(`[^\w +.:@£À-ÿāăąćĉċčđēėęěĝğģĥħĩīįİıĵķĸĺļłńņōőœŗřśŝšţŦũūŭůűųŵŷźżžơưếệ-]`)

// Sanitize replaces disallowed characters with a space.
func Sanitize(s string) string {
	return disallowed.ReplaceAllString(s, " ")
}

// SanitizeProperties sanitizes keys and values and trims surrounding space.
// Entries whose key is empty after sanitizing are dropped; keys that collapse
// onto the same sanitized key keep the value of the lexically last original key.
func SanitizeProperties(props map[string]string) map[string]string {
	if len(props) == 0 {
		return nil
	}
	out := make(map[string]string, len(props))
	origin := make(map[string]string, len(props))
	for k, v := range props {
		key := strings.TrimSpace(Sanitize(k))
		if key == "" {
			continue
		}
		if prev, ok := origin[key]; ok && prev > k {
			continue
		}
		origin[key] = k
		out[key] = strings.TrimSpace(Sanitize(v))
	}
	return out
}
