// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package playlist

import "strings"

// FilterGroup keeps the #EXTM3U header and only the entries whose group-title
// equals group. Directive lines outside a kept entry are dropped.
func FilterGroup(lines []string, group string) []string {
	out := make([]string, 0, len(lines))
	keep := false
	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, headerDirective):
			out = append(out, line)
			keep = false
		case strings.HasPrefix(line, entryDirective):
			keep = groupTitle(line) == group
			if keep {
				out = append(out, line)
			}
		case line == "":
			continue
		case strings.HasPrefix(line, "#"):
			if keep {
				out = append(out, line)
			}
		default:
			if keep {
				out = append(out, line)
			}
			keep = false
		}
	}
	return out
}

func groupTitle(line string) string {
	for _, m := range attrPattern.FindAllStringSubmatch(line, -1) {
		if strings.EqualFold(m[1], "group-title") {
			return strings.TrimSpace(m[2])
		}
	}
	return ""
}
