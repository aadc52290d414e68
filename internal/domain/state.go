package domain

// ExtensionState is the persisted, extension-wide record of counters, lists
// and toggles.
type ExtensionState struct {
	BlockedCount        uint64      `json:"blockedCount"`
	AllowedCount        uint64      `json:"allowedCount"`
	BannersRemovedCount uint64      `json:"bannersRemovedCount"`
	Whitelist           StringList  `json:"whitelist"`
	Blacklist           StringList  `json:"blacklist"`
	Active              bool        `json:"active"`
	AutoBlockEnabled    bool        `json:"autoBlockEnabled"`
	AllowedCookieTally  CookieTally `json:"allowedCookieTally"`
	BlockedCookieTally  CookieTally `json:"blockedCookieTally"`
}

// DefaultState returns the state used on first activation.
func DefaultState() ExtensionState {
	return ExtensionState{
		Whitelist:          StringList{},
		Blacklist:          StringList{},
		Active:             true,
		AutoBlockEnabled:   true,
		AllowedCookieTally: CookieTally{},
		BlockedCookieTally: CookieTally{},
	}
}

// Clone returns a deep copy of the state.
func (s ExtensionState) Clone() ExtensionState {
	cp := s
	cp.Whitelist = s.Whitelist.Clone()
	cp.Blacklist = s.Blacklist.Clone()
	cp.AllowedCookieTally = s.AllowedCookieTally.Clone()
	cp.BlockedCookieTally = s.BlockedCookieTally.Clone()
	return cp
}

// IsWhitelisted reports whether host is covered by a whitelist entry.
func (s ExtensionState) IsWhitelisted(host string) bool {
	return MatchesAny(host, s.Whitelist)
}

// IsBlacklisted reports whether host is covered by a blacklist entry.
func (s ExtensionState) IsBlacklisted(host string) bool {
	return MatchesAny(host, s.Blacklist)
}

// StatePatch is a partial ExtensionState.  Nil fields are left untouched by
// Apply.
type StatePatch struct {
	BlockedCount        *uint64      `json:"blockedCount,omitempty"`
	AllowedCount        *uint64      `json:"allowedCount,omitempty"`
	BannersRemovedCount *uint64      `json:"bannersRemovedCount,omitempty"`
	Whitelist           *StringList  `json:"whitelist,omitempty"`
	Blacklist           *StringList  `json:"blacklist,omitempty"`
	Active              *bool        `json:"active,omitempty"`
	AutoBlockEnabled    *bool        `json:"autoBlockEnabled,omitempty"`
	AllowedCookieTally  *CookieTally `json:"allowedCookieTally,omitempty"`
	BlockedCookieTally  *CookieTally `json:"blockedCookieTally,omitempty"`
}

// Apply shallow-merges the patch into s.  List entries are normalized.
func (p StatePatch) Apply(s *ExtensionState) {
	if p.BlockedCount != nil {
		s.BlockedCount = *p.BlockedCount
	}
	if p.AllowedCount != nil {
		s.AllowedCount = *p.AllowedCount
	}
	if p.BannersRemovedCount != nil {
		s.BannersRemovedCount = *p.BannersRemovedCount
	}
	if p.Whitelist != nil {
		s.Whitelist = NormalizeDomains(*p.Whitelist)
	}
	if p.Blacklist != nil {
		s.Blacklist = NormalizeDomains(*p.Blacklist)
	}
	if p.Active != nil {
		s.Active = *p.Active
	}
	if p.AutoBlockEnabled != nil {
		s.AutoBlockEnabled = *p.AutoBlockEnabled
	}
	if p.AllowedCookieTally != nil {
		s.AllowedCookieTally = p.AllowedCookieTally.Clone()
	}
	if p.BlockedCookieTally != nil {
		s.BlockedCookieTally = p.BlockedCookieTally.Clone()
	}
}

// AffectsRules reports whether applying the patch can change the active
// blocking rule set.
func (p StatePatch) AffectsRules() bool {
	return p.Active != nil || p.AutoBlockEnabled != nil || p.Whitelist != nil || p.Blacklist != nil
}
