package plugin

import "errors"

var (
	// ErrMalformed is returned when the container structure cannot be decoded.
	ErrMalformed = errors.New("malformed plugin")
	// ErrUnknownGroupType is returned for a GRUP whose type is not 0 through 9.
	ErrUnknownGroupType = errors.New("unknown group type")
	// ErrLocalizedString is returned when text is set on a field that
	// references a string table.
	ErrLocalizedString = errors.New("field references a string table")
	// ErrNoStageIndex marks a quest log entry that precedes every INDX field.
	ErrNoStageIndex = errors.New("quest log entry without stage")
)
