package eav

// MergeColumns returns priority with duplicates removed (first occurrence
// wins), followed by every key from keys that is not already present. Each
// name appears exactly once. The order of the suffix is the order of keys.
func MergeColumns(priority, keys []string) []string {
	seen := make(map[string]struct{}, len(priority)+len(keys))
	columns := make([]string, 0, len(priority)+len(keys))

	for _, list := range [][]string{priority, keys} {
		for _, name := range list {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			columns = append(columns, name)
		}
	}

	return columns
}
