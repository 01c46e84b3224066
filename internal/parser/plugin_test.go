package parser_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"esp-translator/internal/parser"
	"esp-translator/internal/plugin"
	"esp-translator/internal/stringunit"
)

func le16(v uint16) []byte { return binary.LittleEndian.AppendUint16(nil, v) }
func le32(v uint32) []byte { return binary.LittleEndian.AppendUint32(nil, v) }

func cat(parts ...[]byte) []byte { return bytes.Join(parts, nil) }

func field(tag, text string) []byte {
	data := append([]byte(text), 0)
	return cat([]byte(tag), le16(uint16(len(data))), data)
}

func record(tag string, formID uint32, fields ...[]byte) []byte {
	body := cat(fields...)
	return cat([]byte(tag), le32(uint32(len(body))), le32(0), le32(formID), le16(0), le16(0), le16(44), le16(0), body)
}

func writePlugin(t *testing.T, dir, name string) string {
	t.Helper()
	weapons := cat(
		record("WEAP", 0x00000D62, field("EDID", "IronSword"), field("FULL", "Iron Sword")),
		record("WEAP", 0x00000D63, field("EDID", "GlassBow"), field("FULL", "Glass Bow")),
	)
	data := cat(
		record("TES4", 0, field("CNAM", "Author")),
		[]byte("GRUP"), le32(uint32(len(weapons)+24)), []byte("WEAP"), le32(0), le16(0), le16(0), le32(0), weapons,
	)
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

type memCache struct {
	units map[string][]stringunit.Unit
	sets  int
}

func (c *memCache) Get(_ context.Context, hash string) ([]stringunit.Unit, bool) {
	u, ok := c.units[hash]
	return u, ok
}

func (c *memCache) Set(_ context.Context, hash, _ string, units []stringunit.Unit) error {
	c.units[hash] = units
	c.sets++
	return nil
}

func TestCanParse(t *testing.T) {
	p := parser.NewPluginParser(plugin.Options{})
	for ext, want := range map[string]bool{".esp": true, ".ESM": true, ".esl": true, ".bsa": false, ".txt": false} {
		if got := p.CanParse(ext); got != want {
			t.Errorf("CanParse(%q) = %v", ext, got)
		}
	}
}

func TestParseAndReconstruct(t *testing.T) {
	path := writePlugin(t, t.TempDir(), "Mod.esp")
	p := parser.NewPluginParser(plugin.Options{})

	res, err := p.Parse(context.Background(), path)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if res.FileType != "esp" || len(res.Units) != 2 {
		t.Fatalf("result = %+v", res)
	}
	if res.Units[0].FormID != "00000D62|Mod.esp" || res.Units[0].Original != "Iron Sword" {
		t.Fatalf("unit = %+v", res.Units[0])
	}

	units := []stringunit.Unit{res.Units[0].Clone()}
	units[0].SetTranslation("Eisenschwert")
	out, err := p.Reconstruct(res, units)
	if err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}
	again, err := plugin.Parse(out, "Mod.esp", plugin.Options{})
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	got := again.Extract(plugin.ExtractOptions{})
	if got[0].Original != "Eisenschwert" || got[1].Original != "Glass Bow" {
		t.Fatalf("patched units = %+v", got)
	}
}

func TestParseUsesCache(t *testing.T) {
	path := writePlugin(t, t.TempDir(), "Mod.esp")
	cache := &memCache{units: map[string][]stringunit.Unit{}}
	p := parser.NewPluginParser(plugin.Options{}, parser.WithCache(cache))

	first, err := p.Parse(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	second, err := p.Parse(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if cache.sets != 1 {
		t.Fatalf("cache set %d times", cache.sets)
	}
	if second.Plugin != nil || len(second.Units) != 2 || second.Hash != first.Hash {
		t.Fatalf("second parse was not served from the cache: %+v", second)
	}

	unfiltered := parser.NewPluginParser(plugin.Options{}, parser.WithCache(cache), parser.WithUnfiltered())
	third, err := unfiltered.Parse(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if third.Hash == first.Hash {
		t.Fatal("extraction switches must change the cache key")
	}

	// A cached result still reconstructs.
	if _, err := p.Reconstruct(second, second.Units); err != nil {
		t.Fatalf("Reconstruct from cache: %v", err)
	}
}

func TestParseMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Broken.esp")
	if err := os.WriteFile(path, []byte("TES4\x10\x00"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := parser.NewPluginParser(plugin.Options{}).Parse(context.Background(), path); err == nil {
		t.Fatal("expected error for truncated plugin")
	}
}
