package translate

import (
	"strings"
)

// abbreviateCreators shortens given names to initials.
// "Doe, Jane; Roe, Riley" becomes "Doe, J.; Roe, R.".
// Names without a comma are left untouched.
func abbreviateCreators(creators string) string {
	if creators == "" {
		return ""
	}

	parts := strings.Split(creators, ";")
	for i, part := range parts {
		name := strings.TrimSpace(part)
		family, given, ok := strings.Cut(name, ",")
		if !ok {
			parts[i] = name
			continue
		}
		given = strings.TrimSpace(given)
		if given == "" {
			parts[i] = strings.TrimSpace(family)
			continue
		}

		var initials []string
		for _, word := range strings.Fields(given) {
			initials = append(initials, string([]rune(word)[0])+".")
		}
		parts[i] = strings.TrimSpace(family) + ", " + strings.Join(initials, " ")
	}
	return strings.Join(parts, "; ")
}
