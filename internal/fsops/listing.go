package fsops

import (
	"strconv"
	"strings"
)

// parseLongListing extracts entries from `ls -lA` output. BusyBox and
// coreutils agree on the columns we use: permissions, size (field 5),
// and the name tail after the date fields.
func parseLongListing(output string) []Entry {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	var entries []Entry
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "total ") {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) < 9 {
			continue
		}
		perms := parts[0]
		if len(perms) == 0 {
			continue
		}
		isDir := perms[0] == 'd'
		size, _ := strconv.ParseInt(parts[4], 10, 64)
		name := strings.Join(parts[8:], " ")
		if name == "." || name == ".." {
			continue
		}
		// Symlink listings carry a "-> target" tail.
		if perms[0] == 'l' {
			if i := strings.Index(name, " -> "); i >= 0 {
				name = name[:i]
			}
		}
		entries = append(entries, Entry{Name: name, IsDir: isDir, Size: size})
	}
	return entries
}
