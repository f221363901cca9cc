// Package diff computes the minimal changeset between a bag of keyed
// values freshly read from the remote tenant and the corresponding bag
// already held in the Store, for fields, comments, and attachments.
package diff

import (
	"encoding/json"
	"sort"
)

// smallBagThreshold is the size at or below which the sorted two-pointer
// merge is used in place of a hash join.
const smallBagThreshold = 64

// Entry is one keyed value in a bag being diffed: a field_id/value
// pair, a comment id/ADF-body pair, or an attachment uuid/metadata-hash
// pair, depending on the caller.
type Entry struct {
	Key   string
	Value string
}

// Result partitions a diff into the three disjoint sets a diff names:
// added, removed, changed. Changed entries carry the incoming (remote) value.
type Result struct {
	Added   []Entry
	Removed []Entry
	Changed []Entry
}

// Empty reports whether the diff found no differences at all.
func (r Result) Empty() bool {
	return len(r.Added) == 0 && len(r.Removed) == 0 && len(r.Changed) == 0
}

// Diff computes Result for remote against stored. Both slices are
// expected to already carry canonicalised values (see Canonicalize);
// equality is a plain byte-wise string compare.
func Diff(remote, stored []Entry) Result {
	if len(remote) <= smallBagThreshold && len(stored) <= smallBagThreshold {
		return diffSortedMerge(remote, stored)
	}
	return diffHashJoin(remote, stored)
}

// diffSortedMerge sorts both bags by key and walks them with two
// pointers, the small-bag path that avoids a map allocation.
func diffSortedMerge(remote, stored []Entry) Result {
	r := append([]Entry(nil), remote...)
	s := append([]Entry(nil), stored...)
	sort.Slice(r, func(i, j int) bool { return r[i].Key < r[j].Key })
	sort.Slice(s, func(i, j int) bool { return s[i].Key < s[j].Key })

	var out Result
	i, j := 0, 0
	for i < len(r) && j < len(s) {
		switch {
		case r[i].Key < s[j].Key:
			out.Added = append(out.Added, r[i])
			i++
		case r[i].Key > s[j].Key:
			out.Removed = append(out.Removed, s[j])
			j++
		default:
			if r[i].Value != s[j].Value {
				out.Changed = append(out.Changed, r[i])
			}
			i++
			j++
		}
	}
	for ; i < len(r); i++ {
		out.Added = append(out.Added, r[i])
	}
	for ; j < len(s); j++ {
		out.Removed = append(out.Removed, s[j])
	}
	return out
}

// diffHashJoin indexes stored by key in a map, the large-bag path.
func diffHashJoin(remote, stored []Entry) Result {
	storedByKey := make(map[string]string, len(stored))
	for _, e := range stored {
		storedByKey[e.Key] = e.Value
	}

	var out Result
	seen := make(map[string]struct{}, len(remote))
	for _, e := range remote {
		seen[e.Key] = struct{}{}
		if old, ok := storedByKey[e.Key]; !ok {
			out.Added = append(out.Added, e)
		} else if old != e.Value {
			out.Changed = append(out.Changed, e)
		}
	}
	for _, e := range stored {
		if _, ok := seen[e.Key]; !ok {
			out.Removed = append(out.Removed, e)
		}
	}
	return out
}

// Canonicalize reduces a JSON document to its canonical form for
// byte-wise comparison: object keys sorted, whitespace removed. Go's
// encoding/json already emits map keys in sorted order, so a
// round-trip through interface{} is sufficient.
func Canonicalize(rawJSON string) (string, error) {
	var v interface{}
	if err := json.Unmarshal([]byte(rawJSON), &v); err != nil {
		return "", err
	}
	out, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// SameUpdatedTimestamp implements the fast-path short-circuit: when
// non-empty and equal, the caller may report "no change" without
// inspecting bodies. An empty remoteUpdated never short-circuits (falls
// back to a full compare).
func SameUpdatedTimestamp(remoteUpdated, storedUpdated string) bool {
	return remoteUpdated != "" && remoteUpdated == storedUpdated
}
