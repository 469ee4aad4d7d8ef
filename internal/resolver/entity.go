package resolver

import (
	"strings"

	"github.com/ziadkadry99/d365-plugin-assistant/internal/catalog"
)

// ResolveEntity returns the logical name of the first entity map entry whose
// key or logical name occurs in text, ignoring case. Matching is plain
// substring containment, so a short logical name can hit inside an unrelated
// word.
func ResolveEntity(text string, entities *catalog.EntityMap) string {
	if entities == nil {
		return ""
	}
	lower := strings.ToLower(text)
	var found string
	entities.Each(func(key, logical string) bool {
		if strings.Contains(lower, strings.ToLower(key)) || strings.Contains(lower, strings.ToLower(logical)) {
			found = logical
			return false
		}
		return true
	})
	return found
}
