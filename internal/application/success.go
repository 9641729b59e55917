package application

import "strings"

// SuccessPredicate decides from the landed page whether the renewal went through.
type SuccessPredicate func(url, content string) bool

// MarkerPredicate matches when the URL contains any fragment or the page text
// contains any marker.
func MarkerPredicate(urlFragments, textMarkers []string) SuccessPredicate {
	return func(url, content string) bool {
		for _, fragment := range urlFragments {
			if fragment != "" && strings.Contains(url, fragment) {
				return true
			}
		}
		for _, marker := range textMarkers {
			if marker != "" && strings.Contains(content, marker) {
				return true
			}
		}

		return false
	}
}

func truncateRunes(s string, limit int) string {
	s = strings.TrimSpace(s)
	if limit <= 0 {
		return s
	}

	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}

	return string(runes[:limit])
}
