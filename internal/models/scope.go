package models

// ScopeKind enumerates the visibility shapes a caller can hold.
type ScopeKind int

const (
	ScopeUnrestricted ScopeKind = iota
	ScopeBranch
	ScopeEmpty
)

// ScopeFilter restricts ledger reads and writes to a set of branches.
type ScopeFilter struct {
	Kind     ScopeKind
	BranchID string
}

// UnrestrictedScope sees every branch.
func UnrestrictedScope() ScopeFilter { return ScopeFilter{Kind: ScopeUnrestricted} }

// BranchScope sees a single branch.
func BranchScope(branchID string) ScopeFilter {
	return ScopeFilter{Kind: ScopeBranch, BranchID: branchID}
}

// EmptyScope sees nothing.
func EmptyScope() ScopeFilter { return ScopeFilter{Kind: ScopeEmpty} }

// IsEmpty reports whether no rows can match.
func (s ScopeFilter) IsEmpty() bool { return s.Kind == ScopeEmpty }

// Allows reports whether a row owned by branchID is visible under the scope.
func (s ScopeFilter) Allows(branchID *string) bool {
	switch s.Kind {
	case ScopeUnrestricted:
		return true
	case ScopeBranch:
		return branchID != nil && *branchID == s.BranchID
	default:
		return false
	}
}

// BranchParam returns the SQL filter value, nil meaning no branch predicate.
func (s ScopeFilter) BranchParam() *string {
	if s.Kind != ScopeBranch {
		return nil
	}
	id := s.BranchID
	return &id
}

// CacheKey renders a stable fragment for cache keys.
func (s ScopeFilter) CacheKey() string {
	switch s.Kind {
	case ScopeUnrestricted:
		return "all"
	case ScopeBranch:
		return "branch:" + s.BranchID
	default:
		return "empty"
	}
}
