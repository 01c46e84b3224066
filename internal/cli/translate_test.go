package cli

import (
	"errors"
	"path/filepath"
	"testing"

	"esp-translator/internal/filewalker"
	"esp-translator/internal/parser"
	"esp-translator/internal/stringunit"
)

func parsedTask(root, rel, original string) parsedPlugin {
	return parsedPlugin{
		Input:  filewalker.FileEntry{Path: filepath.Join(root, filepath.FromSlash(rel)), Ext: ".esp"},
		Result: &parser.ParseResult{Units: []stringunit.Unit{{FormID: "00000D62|Mod.esp", Type: "WEAP FULL", Original: original}}},
		Done:   true,
	}
}

func TestCollectParsedSameNameInTwoFolders(t *testing.T) {
	root := t.TempDir()
	failed := parsedTask(root, "Broken.esp", "x")
	failed.Err = errors.New("truncated")
	failed.Result = nil

	sets, parsed := collectParsed(root, []parsedPlugin{
		parsedTask(root, "a/Mod.esp", "Iron Sword"),
		parsedTask(root, "b/Mod.esp", "Glass Bow"),
		failed,
		{Input: filewalker.FileEntry{Path: filepath.Join(root, "Skipped.esp")}},
	})
	if len(sets) != 2 || len(parsed) != 2 {
		t.Fatalf("sets = %v", sets)
	}
	if sets["a/Mod.esp"][0].Original != "Iron Sword" || sets["b/Mod.esp"][0].Original != "Glass Bow" {
		t.Fatalf("sets = %v", sets)
	}
	if got := sets["b/Mod.esp"][0].Text(); got != "Glass Bow" {
		t.Fatalf("units start translated as their original, got %q", got)
	}

	byName := byPluginName(sets)
	if len(byName) != 1 || byName["Mod.esp"][0].Original != "Iron Sword" {
		t.Fatalf("byPluginName = %v", byName)
	}
}
