package parser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"esp-translator/internal/plugin"
	"esp-translator/internal/stringtable"
	"esp-translator/internal/stringunit"
	"esp-translator/internal/textutil"
)

// PluginParser extracts translatable strings from .esp, .esm and .esl files.
type PluginParser struct {
	opts       plugin.Options
	localized  bool
	unfiltered bool
	language   string
	cache      UnitCache
}

// PluginOption configures a PluginParser.
type PluginOption func(*PluginParser)

// WithLocalized includes string table references, resolved through the
// Strings folder next to the plugin in the given language.
func WithLocalized(language string) PluginOption {
	return func(p *PluginParser) {
		p.localized = true
		p.language = language
	}
}

// WithUnfiltered includes strings that fail the validity filter.
func WithUnfiltered() PluginOption {
	return func(p *PluginParser) { p.unfiltered = true }
}

// WithCache looks extracted units up by content hash before parsing.
func WithCache(c UnitCache) PluginOption {
	return func(p *PluginParser) { p.cache = c }
}

func NewPluginParser(opts plugin.Options, options ...PluginOption) *PluginParser {
	p := &PluginParser{opts: opts}
	for _, o := range options {
		o(p)
	}
	return p
}

func (p *PluginParser) CanParse(ext string) bool {
	switch strings.ToLower(ext) {
	case ".esp", ".esm", ".esl":
		return true
	}
	return false
}

func (p *PluginParser) Parse(ctx context.Context, filePath string) (*ParseResult, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read plugin: %w", err)
	}
	name := filepath.Base(filePath)
	result := &ParseResult{
		FilePath: filePath,
		FileType: strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), "."),
		Hash:     p.hash(data),
	}

	if p.cache != nil {
		if units, ok := p.cache.Get(ctx, result.Hash); ok {
			log.Debug().Str("plugin", name).Int("strings", len(units)).Msg("Using cached strings")
			result.Units = units
			return result, nil
		}
	}

	plug, err := plugin.Parse(data, name, p.opts)
	if err != nil {
		return nil, err
	}
	result.Plugin = plug

	extract := plugin.ExtractOptions{Localized: p.localized, Unfiltered: p.unfiltered}
	if p.localized && plug.Header.Flags.Has(plugin.FlagLocalized) {
		table, err := stringtable.LoadForPlugin(filepath.Dir(filePath), name, p.language)
		switch {
		case err == nil:
			extract.Strings = table
		case errors.Is(err, os.ErrNotExist):
			log.Warn().Str("plugin", name).Str("language", p.language).Msg("No string tables found for localized plugin")
		default:
			return nil, err
		}
	}
	result.Units = plug.Extract(extract)

	if p.cache != nil {
		if err := p.cache.Set(ctx, result.Hash, name, result.Units); err != nil {
			log.Warn().Err(err).Str("plugin", name).Msg("Failed to cache strings")
		}
	}

	log.Debug().Str("plugin", name).Int("strings", len(result.Units)).Msg("Extracted strings")
	return result, nil
}

// hash keys the cache. The switches are part of the key because they change
// which units are extracted.
func (p *PluginParser) hash(data []byte) string {
	return textutil.Hash(fmt.Sprintf("%s:%t:%t:%s", textutil.HashBytes(data), p.localized, p.unfiltered, p.language))
}

// Reconstruct writes the translations of units into the plugin. A result
// served from the cache is parsed again first.
func (p *PluginParser) Reconstruct(result *ParseResult, units []stringunit.Unit) ([]byte, error) {
	plug := result.Plugin
	if plug == nil {
		var err error
		plug, err = plugin.Load(result.FilePath, p.opts)
		if err != nil {
			return nil, err
		}
		result.Plugin = plug
	}
	n, err := plug.ReplaceStrings(units)
	if err != nil {
		return nil, fmt.Errorf("replace strings in %s: %w", plug.Name, err)
	}
	log.Debug().Str("plugin", plug.Name).Int("replaced", n).Msg("Replaced strings")
	return plug.Bytes()
}
