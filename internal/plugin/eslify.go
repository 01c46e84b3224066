package plugin

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"esp-translator/internal/codec"
)

// firstLightID is the first local id a light plugin may assign.
const firstLightID = 0x800

// IsLight reports whether the plugin is a light plugin, either by its
// .esl extension or by the LightMaster header flag.
func (p *Plugin) IsLight() bool {
	return hasLightExt(p.Name) || p.Header.Flags.Has(FlagLightMaster)
}

// Eslify renumbers the records the plugin defines itself into the light
// plugin id range, starting at 0x800 in file order, and sets LightMaster.
// It returns the number of renumbered records and does nothing if the
// flag is already set.
func (p *Plugin) Eslify() int {
	if p.Header.Flags.Has(FlagLightMaster) {
		return 0
	}
	masters := len(p.Masters())
	cur := uint32(firstLightID)
	n := 0
	for _, rec := range p.Records() {
		if rec.FormID.MasterIndex() < masters {
			continue
		}
		rec.FormID = rec.FormID&^0xFFF | FormID(cur&0xFFF)
		cur++
		n++
	}
	p.Header.Flags |= FlagLightMaster
	return n
}

// IsLight checks a plugin file without parsing more than its header.
func IsLight(path string) (bool, error) {
	if hasLightExt(path) {
		return true, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("open plugin: %w", err)
	}
	defer f.Close()

	hdr := make([]byte, recordHeaderSize)
	if _, err := io.ReadFull(f, hdr); err != nil {
		return false, fmt.Errorf("read plugin header: %w", err)
	}
	return IsLightHeader(hdr)
}

// IsLightHeader reports whether the record header in data carries the
// LightMaster flag.
func IsLightHeader(data []byte) (bool, error) {
	r := codec.NewReader(data)
	if err := r.Seek(8); err != nil {
		return false, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	flags, err := r.Uint32()
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return RecordFlags(flags).Has(FlagLightMaster), nil
}

func hasLightExt(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".esl")
}
