package tagging

// MergeTags unions matched tags into the product's current tag list without
// removing anything a merchant set by hand. Existing tags keep their order;
// new tags append in match order. changed is false when every matched tag is
// already present, which is the signal to skip the mutation entirely.
func MergeTags(current []string, matched []string) (merged []string, changed bool) {
	merged = make([]string, 0, len(current)+len(matched))
	seen := make(map[string]struct{}, len(current))

	for _, tag := range current {
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		merged = append(merged, tag)
	}

	for _, tag := range matched {
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		merged = append(merged, tag)
		changed = true
	}

	return merged, changed
}
