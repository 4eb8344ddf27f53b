package shell

import "strings"

// addPathEntry appends dir to a sep-separated list unless an identical
// entry exists.
func addPathEntry(list, dir, sep string) (string, bool) {
	for _, e := range strings.Split(list, sep) {
		if e == dir {
			return list, false
		}
	}
	if list == "" {
		return dir, true
	}
	if strings.HasSuffix(list, sep) {
		return list + dir, true
	}
	return list + sep + dir, true
}

// removePathEntry drops every entry equal to dir from a sep-separated list.
func removePathEntry(list, dir, sep string) (string, bool) {
	if list == "" {
		return list, false
	}
	parts := strings.Split(list, sep)
	kept := parts[:0]
	removed := false
	for _, e := range parts {
		if e == dir {
			removed = true
			continue
		}
		kept = append(kept, e)
	}
	return strings.Join(kept, sep), removed
}
