package contentdiff

// Diff holds the three disjoint URL sets produced by comparing two content
// snapshots. Removed ∪ Kept covers the old URLs, Added ∪ Kept the new ones.
type Diff struct {
	Removed []string
	Added   []string
	Kept    []string
}

// Compare diffs the image URLs of two content snapshots. A nil oldContent
// means create mode: everything found in newContent is Added.
func (e *Extractor) Compare(oldContent *string, newContent string) Diff {
	newSet := e.Extract(newContent)

	if oldContent == nil {
		return Diff{Added: sorted(newSet)}
	}

	oldSet := e.Extract(*oldContent)

	removed := make(map[string]struct{})
	kept := make(map[string]struct{})
	for u := range oldSet {
		if _, ok := newSet[u]; ok {
			kept[u] = struct{}{}
		} else {
			removed[u] = struct{}{}
		}
	}

	added := make(map[string]struct{})
	for u := range newSet {
		if _, ok := oldSet[u]; !ok {
			added[u] = struct{}{}
		}
	}

	return Diff{Removed: sorted(removed), Added: sorted(added), Kept: sorted(kept)}
}
