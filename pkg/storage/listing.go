package storage

import "strings"

// CommonPrefix reports the delimiter-rolled-up prefix for key within a
// listing, emulating hierarchical grouping over a flat key space. When key
// contains delimiter after prefix, it returns the portion of key up to
// and including the first delimiter and true; otherwise ok is false and
// the key lists as a plain object.
func CommonPrefix(key, prefix, delimiter string) (string, bool) {
	if delimiter == "" {
		return "", false
	}
	rest := strings.TrimPrefix(key, prefix)
	idx := strings.Index(rest, delimiter)
	if idx < 0 {
		return "", false
	}
	return prefix + rest[:idx+len(delimiter)], true
}

// PageObjects assembles one page of an object listing from keys, which
// must already be sorted, prefix-matched, and filtered to fall strictly
// after the caller's cursor. Keys containing the delimiter past the
// prefix roll up into DelimitedPrefixes; entry supplies the ObjectEntry
// for each plain key.
//
// A delimiter group counts once toward the limit and is consumed whole:
// the cursor advances past the group's last key, so a continuation never
// re-emits a prefix that straddled a page boundary.
func PageObjects(keys []string, opts ObjectListOptions, entry func(key string) ObjectEntry) *ObjectListPage {
	limit := opts.Limit
	if limit <= 0 {
		limit = 1000
	}

	page := &ObjectListPage{Complete: true}
	count := 0
	for i := 0; i < len(keys); {
		if count >= limit {
			page.Complete = false
			break
		}
		key := keys[i]
		if common, ok := CommonPrefix(key, opts.Prefix, opts.Delimiter); ok {
			// Grouped keys are contiguous in sorted order; skip to the
			// end of the group before recording the cursor.
			j := i + 1
			for j < len(keys) && strings.HasPrefix(keys[j], common) {
				j++
			}
			page.DelimitedPrefixes = append(page.DelimitedPrefixes, common)
			page.Cursor = keys[j-1]
			count++
			i = j
			continue
		}
		page.Objects = append(page.Objects, entry(key))
		page.Cursor = key
		count++
		i++
	}
	if page.Complete {
		page.Cursor = ""
	}
	return page
}
