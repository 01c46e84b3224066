package plugin

import (
	"fmt"
	"strconv"
)

// FormID identifies a record: the high byte indexes the plugin's master
// list, the low 24 bits are the id local to that master.
type FormID uint32

// MasterIndex returns the index into the owning plugin's master list.
func (id FormID) MasterIndex() int { return int(id >> 24) }

// LocalID returns the low 24 bits.
func (id FormID) LocalID() uint32 { return uint32(id) & 0xFFFFFF }

// String formats the id as 8 upper-case hex digits.
func (id FormID) String() string { return fmt.Sprintf("%08X", uint32(id)) }

// ParseFormID parses a hex FormID, ignoring a trailing "|Plugin.esp" part.
func ParseFormID(s string) (FormID, error) {
	for i := 0; i < len(s); i++ {
		if s[i] == '|' {
			s = s[:i]
			break
		}
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("parse form id %q: %w", s, err)
	}
	return FormID(v), nil
}
