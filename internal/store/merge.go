package store

import (
	"github.com/AdguardTeam/golibs/container"

	"cookiewarden/internal/domain"
)

// Merge reconciles local with a previously synced remote copy.  Counters,
// tallies and toggles come from local; whitelist and blacklist are the
// union of both sides.  The result never lists a domain in both lists.
func Merge(local, remote domain.ExtensionState) domain.ExtensionState {
	merged := local.Clone()
	merged.Whitelist = union(local.Whitelist, remote.Whitelist)
	merged.Blacklist = union(local.Blacklist, remote.Blacklist)
	enforceDisjoint(&merged)
	return merged
}

// union keeps the order of a followed by the entries of b not in a.
func union(a, b domain.StringList) domain.StringList {
	seen := container.NewMapSet[string]()
	out := make(domain.StringList, 0, len(a)+len(b))
	for _, list := range []domain.StringList{a, b} {
		for _, d := range list {
			if d == "" || seen.Has(d) {
				continue
			}
			seen.Add(d)
			out = append(out, d)
		}
	}
	return out
}

// enforceDisjoint drops whitelist entries that are also blacklisted.
func enforceDisjoint(s *domain.ExtensionState) {
	if s.Whitelist == nil {
		s.Whitelist = domain.StringList{}
	}
	if s.Blacklist == nil {
		s.Blacklist = domain.StringList{}
	}
	if len(s.Blacklist) == 0 || len(s.Whitelist) == 0 {
		return
	}

	blocked := container.NewMapSet(s.Blacklist...)
	kept := make(domain.StringList, 0, len(s.Whitelist))
	for _, d := range s.Whitelist {
		if blocked.Has(d) {
			continue
		}
		kept = append(kept, d)
	}
	s.Whitelist = kept
}
