package stringunit

import "strings"

// SearchFilter selects units by case-insensitive substring. Empty fields
// are ignored.
type SearchFilter struct {
	Type     string
	FormID   string
	EditorID string
	Original string
	String   string
}

// Empty reports whether no field is set.
func (f SearchFilter) Empty() bool {
	return f == SearchFilter{}
}

// Matches reports whether u satisfies every set field. A filter on the
// editor id or translation rejects units that lack that field.
func (f SearchFilter) Matches(u Unit) bool {
	if f.Type != "" && !containsFold(u.Type, f.Type) {
		return false
	}
	if f.FormID != "" && !containsFold(u.FormID, f.FormID) {
		return false
	}
	if f.EditorID != "" && (u.EditorID == nil || !containsFold(*u.EditorID, f.EditorID)) {
		return false
	}
	if f.Original != "" && !containsFold(u.Original, f.Original) {
		return false
	}
	if f.String != "" && (u.Translated == nil || !containsFold(*u.Translated, f.String)) {
		return false
	}
	return true
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
