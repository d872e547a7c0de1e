package detector

// groupAndThreshold groups items by key and keeps only groups that reach
// minCount. Items with an empty key are dropped. The territory-gap and
// prospect-cluster rules share this so their threshold logic cannot diverge.
func groupAndThreshold[T any](items []T, keyFn func(T) string, minCount int) map[string][]T {
	groups := make(map[string][]T)
	for _, item := range items {
		key := keyFn(item)
		if key == "" {
			continue
		}
		groups[key] = append(groups[key], item)
	}

	for key, group := range groups {
		if len(group) < minCount {
			delete(groups, key)
		}
	}
	return groups
}
