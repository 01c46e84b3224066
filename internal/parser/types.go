package parser

import (
	"context"

	"esp-translator/internal/plugin"
	"esp-translator/internal/stringunit"
)

// ParseResult holds parsing output for a single file.
type ParseResult struct {
	// FilePath is the absolute path to the parsed file.
	FilePath string
	// FileType is the detected type (esp, esm, esl).
	FileType string
	// Hash is the SHA-256 of the file content and the extraction switches.
	Hash string
	// Units are the extracted translatable strings.
	Units []stringunit.Unit
	// Plugin is the decoded file, kept for reconstruction. It is nil when
	// the units came from the cache.
	Plugin *plugin.Plugin
}

// Parser is the interface for all file format parsers.
type Parser interface {
	// CanParse returns true if this parser handles the given file extension.
	CanParse(ext string) bool
	// Parse extracts translatable strings from a file.
	Parse(ctx context.Context, filePath string) (*ParseResult, error)
	// Reconstruct rebuilds the file with the translated units.
	Reconstruct(result *ParseResult, units []stringunit.Unit) ([]byte, error)
}

// UnitCache stores extracted units by content hash.
type UnitCache interface {
	Get(ctx context.Context, hash string) ([]stringunit.Unit, bool)
	Set(ctx context.Context, hash, plugin string, units []stringunit.Unit) error
}
