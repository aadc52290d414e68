package domain

// CookieTally counts cookie names seen per domain.  It is used for reporting
// only.
type CookieTally map[string]map[string]uint64

// Record increments the count for name under domain.
func (t *CookieTally) Record(domain, name string) {
	if *t == nil {
		*t = make(CookieTally)
	}
	names, ok := (*t)[domain]
	if !ok {
		names = make(map[string]uint64)
		(*t)[domain] = names
	}
	names[name]++
}

// Count returns the recorded count for name under domain.
func (t CookieTally) Count(domain, name string) uint64 {
	return t[domain][name]
}

// Clone returns a deep copy of the tally.
func (t CookieTally) Clone() CookieTally {
	out := make(CookieTally, len(t))
	for d, names := range t {
		cp := make(map[string]uint64, len(names))
		for n, c := range names {
			cp[n] = c
		}
		out[d] = cp
	}
	return out
}
