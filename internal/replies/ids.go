package replies

import (
	"regexp"
	"strconv"
)

var digitRun = regexp.MustCompile(`\d+`)

// ExtractIDs returns every run of decimal digits in text that fits in a
// uint64, in order of first appearance and without duplicates. Mentions
// such as <@123> yield their id. It returns nil when nothing was found.
func ExtractIDs(text string) []uint64 {
	var ids []uint64
	seen := make(map[uint64]struct{})
	for _, run := range digitRun.FindAllString(text, -1) {
		id, err := strconv.ParseUint(run, 10, 64)
		if err != nil {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}
