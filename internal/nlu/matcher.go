package nlu

import "strings"

// MatchEntity resolves free text against a list of entity names
// (departments, doctors) in tiers: exact case-insensitive equality, then
// containment in either direction, then any shared word longer than two
// characters. The first tier producing a hit wins, and within a tier the
// first list element wins. There is no scoring.
func MatchEntity(input string, names []string) (int, bool) {
	needle := strings.ToLower(strings.TrimSpace(input))
	if needle == "" || len(names) == 0 {
		return 0, false
	}

	for i, name := range names {
		if strings.ToLower(strings.TrimSpace(name)) == needle {
			return i, true
		}
	}

	for i, name := range names {
		lower := strings.ToLower(name)
		if strings.Contains(lower, needle) || strings.Contains(needle, lower) {
			return i, true
		}
	}

	inputWords := strings.Fields(needle)
	for i, name := range names {
		nameWords := strings.Fields(strings.ToLower(name))
		for _, iw := range inputWords {
			if len(iw) <= 2 {
				continue
			}
			for _, nw := range nameWords {
				if len(nw) > 2 && iw == nw {
					return i, true
				}
			}
		}
	}

	return 0, false
}
