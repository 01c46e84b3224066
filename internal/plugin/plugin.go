package plugin

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"esp-translator/internal/codec"
)

// Plugin is a parsed .esp, .esm or .esl file.
type Plugin struct {
	// Name is the file name, used for records the plugin defines itself.
	Name   string
	Header *Record
	Groups []*Group
}

// Parse decodes a whole plugin. A plugin is never returned half parsed.
func Parse(data []byte, name string, opts Options) (*Plugin, error) {
	opts = opts.withDefaults()
	r := codec.NewReader(data)

	header, err := parseRecord(r, false, &opts)
	if err != nil {
		return nil, fmt.Errorf("parse %s header: %w", name, err)
	}
	p := &Plugin{Name: name, Header: header}

	localized := header.Flags.Has(FlagLocalized)
	for !r.EOF() {
		g, err := parseGroup(r, localized, &opts)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		p.Groups = append(p.Groups, g)
	}
	return p, nil
}

// Load reads and parses the plugin at path.
func Load(path string, opts Options) (*Plugin, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plugin: %w", err)
	}
	log.Debug().Str("path", path).Int("bytes", len(data)).Msg("Parsing plugin")
	return Parse(data, filepath.Base(path), opts)
}

// Bytes serializes the plugin.
func (p *Plugin) Bytes() ([]byte, error) {
	w := codec.NewWriter()
	if err := p.Header.encode(w); err != nil {
		return nil, fmt.Errorf("encode %s header: %w", p.Name, err)
	}
	for _, g := range p.Groups {
		if err := g.encode(w); err != nil {
			return nil, fmt.Errorf("encode %s: %w", p.Name, err)
		}
	}
	return w.Bytes(), nil
}

// Save writes the serialized plugin to path.
func (p *Plugin) Save(path string) error {
	data, err := p.Bytes()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write plugin: %w", err)
	}
	return nil
}

// Masters returns the master files listed in the header, in order.
func (p *Plugin) Masters() []string {
	var out []string
	for _, sr := range p.Header.Subrecords {
		if m, ok := sr.(*Master); ok {
			out = append(out, m.File.Value)
		}
	}
	return out
}

// HeaderInfo returns the HEDR field of the header, if present.
func (p *Plugin) HeaderInfo() (*HeaderInfo, bool) {
	for _, sr := range p.Header.Subrecords {
		if h, ok := sr.(*HeaderInfo); ok {
			return h, true
		}
	}
	return nil, false
}

// Records returns every record except the header, depth first in file
// order.
func (p *Plugin) Records() []*Record {
	var out []*Record
	for _, g := range p.Groups {
		g.walk(func(r *Record) { out = append(out, r) })
	}
	return out
}

// masterName returns the file that first defines records with the given
// master index.
func (p *Plugin) masterName(masters []string, idx int) string {
	if idx < len(masters) {
		return masters[idx]
	}
	return p.Name
}
