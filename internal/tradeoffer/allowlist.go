// SPDX-License-Identifier: MPL-2.0

package tradeoffer

import (
	"slices"
	"strings"
)

// AllowList holds the trader identifiers whose offers are accepted
// automatically. Entries are matched as substrings of the trader's profile
// URL, so "/id/trader1" matches "https://steamcommunity.com/id/trader1/".
type AllowList struct {
	entries []string
}

// ParseAllowList splits a comma-separated list, trimming whitespace and
// dropping empty and duplicate entries. Order is kept.
func ParseAllowList(csv string) AllowList {
	var out []string
	for e := range strings.SplitSeq(csv, ",") {
		e = strings.TrimSpace(e)
		if e == "" || slices.Contains(out, e) {
			continue
		}
		out = append(out, e)
	}
	return AllowList{entries: out}
}

// Entries returns a copy of the entries in their original order.
func (a AllowList) Entries() []string {
	return slices.Clone(a.entries)
}

// Len returns the number of entries.
func (a AllowList) Len() int { return len(a.entries) }

// Match returns the first entry contained in profile.
func (a AllowList) Match(profile string) (string, bool) {
	if profile == "" {
		return "", false
	}
	for _, e := range a.entries {
		if strings.Contains(profile, e) {
			return e, true
		}
	}
	return "", false
}

// Allows reports whether profile belongs to an allow-listed trader.
// An empty profile is never allowed.
func (a AllowList) Allows(profile string) bool {
	_, ok := a.Match(profile)
	return ok
}
