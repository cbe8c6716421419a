// Package utils holds small generic helpers shared by the graphir packages.
package utils

import "strings"

// NormalizeIdentifier converts a node or pass name to a printable identifier: only ASCII letters, digits and
// underscores are kept, anything else becomes an underscore.
// Names starting with a digit get an underscore prefix.
func NormalizeIdentifier(name string) string {
	if name == "" {
		return ""
	}
	var sb strings.Builder
	sb.Grow(len(name) + 1)
	if name[0] >= '0' && name[0] <= '9' {
		sb.WriteByte('_')
	}
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			sb.WriteRune(r)
		} else {
			sb.WriteByte('_')
		}
	}
	return sb.String()
}
