package pathway

import "sort"

// Tag is a short (key, value) pair attached to a pathway checkpoint.
type Tag struct {
	Key   string
	Value string
}

// edgeTagKeys are the tag keys carried through to the wire on a Point's
// EdgeTags.
var edgeTagKeys = map[string]bool{
	"type":      true,
	"direction": true,
	"topic":     true,
	"partition": true,
	"group":     true,
	"exchange":  true,
}

// hashableTagKeys are the subset of edge tag keys that participate in
// node hashing.
var hashableTagKeys = map[string]bool{
	"group":     true,
	"type":      true,
	"direction": true,
	"topic":     true,
	"exchange":  true,
}

// FilterEdgeTags drops any tag whose key is not in the edge tag
// whitelist, preserving input order.
func FilterEdgeTags(tags []Tag) []Tag {
	out := make([]Tag, 0, len(tags))
	for _, t := range tags {
		if edgeTagKeys[t.Key] {
			out = append(out, t)
		}
	}
	return out
}

// FilterHashableTags drops any tag whose key is not in the hashable tag
// whitelist, preserving input order.
func FilterHashableTags(tags []Tag) []Tag {
	out := make([]Tag, 0, len(tags))
	for _, t := range tags {
		if hashableTagKeys[t.Key] {
			out = append(out, t)
		}
	}
	return out
}

// SortedRendered renders tags as "k:v", sorted ascending by key. Used both
// for hash input (after filtering to hashable tags) and for the wire
// (after filtering to edge tags).
func SortedRendered(tags []Tag) []string {
	rendered := make([]string, len(tags))
	for i, t := range tags {
		rendered[i] = t.Key + ":" + t.Value
	}
	sort.Strings(rendered)
	return rendered
}
