package stringunit_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"esp-translator/internal/stringunit"
)

func unit(formID, typ, original string) stringunit.Unit {
	return stringunit.Unit{
		FormID:   formID,
		Type:     typ,
		Original: original,
		Status:   stringunit.TranslationRequired,
	}
}

func translated(u stringunit.Unit, text string, status stringunit.Status) stringunit.Unit {
	u.SetTranslation(text)
	u.Status = status
	return u
}

func TestIDFormat(t *testing.T) {
	u := unit("0400D65A|Obsidian Weathers.esp", "WTHR FULL", "Rain")
	if got, want := u.ID(), "00d65a|obsidian weathers.esp###None###WTHR FULL###None"; got != want {
		t.Fatalf("id: got %q want %q", got, want)
	}

	u.EditorID = stringunit.Ptr("RainWeather")
	u.Index = stringunit.Ptr(3)
	if got, want := u.ID(), "00d65a|obsidian weathers.esp###RainWeather###WTHR FULL###3"; got != want {
		t.Fatalf("id: got %q want %q", got, want)
	}
	if got, want := u.DisplayID(), "0400D65A|Obsidian Weathers.esp - RainWeather - WTHR FULL - 3"; got != want {
		t.Fatalf("display id: got %q want %q", got, want)
	}
}

func TestIDIgnoresMasterIndex(t *testing.T) {
	a := unit("0100ABCD|Skyrim.esm", "NPC_ FULL", "Guard")
	b := unit("0500ABCD|Skyrim.esm", "NPC_ FULL", "Guard")
	if a.ID() != b.ID() {
		t.Fatalf("ids differ: %q vs %q", a.ID(), b.ID())
	}
}

func TestValidStringFilter(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"SomeCamelCaseToken", false},
		{"attack_power_v2", false},
		{"Press [Start] to continue", true},
		{"", false},
		{"   \t", false},
		{"<p>", false},
		{"WoollyRhino", true},
		{"<Alias=Player>_reward", true},
		{"IRON", true},
		{"Iron Sword", true},
		{"Line one\nLine two", true},
		{"bell\a", false},
		{"Ab", true},
	}
	for _, tc := range tests {
		if got := stringunit.IsValid(tc.text); got != tc.want {
			t.Errorf("IsValid(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}

func TestReconcileExactMatchCopiesStatus(t *testing.T) {
	src := translated(unit("0100ABCD|Mod.esp", "WEAP FULL", "Sword"), "Schwert", stringunit.TranslationComplete)
	target := []stringunit.Unit{unit("0200ABCD|Mod.esp", "WEAP FULL", "Sword")}

	res := stringunit.NewReconciler([]stringunit.Unit{src}).Reconcile(target)
	if res.Exact != 1 {
		t.Fatalf("expected exact match, got %+v", res)
	}
	if target[0].Text() != "Schwert" || target[0].Status != stringunit.TranslationComplete {
		t.Fatalf("unexpected result %+v", target[0])
	}
}

func TestReconcileExactMatchKeepsSourceStatus(t *testing.T) {
	src := translated(unit("0100ABCD|Mod.esp", "WEAP FULL", "Sword"), "Schwert", stringunit.TranslationIncomplete)
	target := []stringunit.Unit{unit("0100ABCD|Mod.esp", "WEAP FULL", "Sword")}

	stringunit.NewReconciler([]stringunit.Unit{src}).Reconcile(target)
	if target[0].Status != stringunit.TranslationIncomplete {
		t.Fatalf("status: got %s", target[0].Status)
	}
}

func TestReconcileFallbackIsIncomplete(t *testing.T) {
	src := translated(unit("0100AAAA|Other.esp", "MESG DESC", "Hello there"), "Hallo", stringunit.TranslationComplete)
	target := []stringunit.Unit{unit("0100BBBB|Mod.esp", "DIAL FULL", "Hello there")}

	res := stringunit.NewReconciler([]stringunit.Unit{src}).Reconcile(target)
	if res.Fallback != 1 {
		t.Fatalf("expected fallback match, got %+v", res)
	}
	if target[0].Text() != "Hallo" || target[0].Status != stringunit.TranslationIncomplete {
		t.Fatalf("unexpected result %+v", target[0])
	}
}

func TestReconcileFallbackCopiesNoTranslationRequired(t *testing.T) {
	src := translated(unit("0100AAAA|Other.esp", "BOOK FULL", "XII"), "XII", stringunit.NoTranslationRequired)
	target := []stringunit.Unit{unit("0100BBBB|Mod.esp", "BOOK FULL", "XII")}

	stringunit.NewReconciler([]stringunit.Unit{src}).Reconcile(target)
	if target[0].Status != stringunit.NoTranslationRequired {
		t.Fatalf("status: got %s", target[0].Status)
	}
}

func TestReconcileIgnoresUntranslatedSourcesByText(t *testing.T) {
	src := unit("0100AAAA|Other.esp", "MESG DESC", "Hello there")
	target := []stringunit.Unit{unit("0100BBBB|Mod.esp", "DIAL FULL", "Hello there")}

	res := stringunit.NewReconciler([]stringunit.Unit{src}).Reconcile(target)
	if res.Unmatched != 1 || target[0].Translated != nil || target[0].Status != stringunit.TranslationRequired {
		t.Fatalf("expected passthrough, got %+v / %+v", res, target[0])
	}
}

func TestReconcileNoTranslationRequiredTargetUntouched(t *testing.T) {
	src := translated(unit("0100ABCD|Mod.esp", "WEAP FULL", "X"), "Y", stringunit.TranslationComplete)
	target := []stringunit.Unit{unit("0100ABCD|Mod.esp", "WEAP FULL", "X")}
	target[0].Status = stringunit.NoTranslationRequired

	res := stringunit.NewReconciler([]stringunit.Unit{src}).Reconcile(target)
	if res.Skipped != 1 || target[0].Translated != nil || target[0].Status != stringunit.NoTranslationRequired {
		t.Fatalf("unexpected result %+v / %+v", res, target[0])
	}
}

func TestReconcileAllStopsBetweenPlugins(t *testing.T) {
	rc := stringunit.NewReconciler()
	sets := map[string][]stringunit.Unit{
		"a.esp": {unit("01000001|a.esp", "WEAP FULL", "A")},
		"b.esp": {unit("01000002|b.esp", "WEAP FULL", "B")},
	}

	var seen []string
	ctx, cancel := context.WithCancel(context.Background())
	_, err := rc.ReconcileAll(ctx, sets, func(plugin string, done, total int) {
		seen = append(seen, plugin)
		cancel()
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if len(seen) != 1 || seen[0] != "a.esp" {
		t.Fatalf("unexpected progress calls %v", seen)
	}
}

func TestUniqueLastWriteWins(t *testing.T) {
	a := unit("01000001|Mod.esp", "WEAP FULL", "Sword")
	other := unit("01000002|Mod.esp", "WEAP FULL", "Axe")
	a2 := translated(a, "Schwert", stringunit.TranslationComplete)

	got := stringunit.Unique([]stringunit.Unit{a, other, a2})
	if len(got) != 2 {
		t.Fatalf("expected 2 units, got %d", len(got))
	}
	if got[0].Text() != "Schwert" || got[1].Original != "Axe" {
		t.Fatalf("unexpected order or value: %+v", got)
	}

	merged := stringunit.Merge([]stringunit.Unit{a}, []stringunit.Unit{a2})
	if len(merged) != 1 || merged[0].Text() != "Schwert" {
		t.Fatalf("merge: %+v", merged)
	}
}

func TestSearchFilter(t *testing.T) {
	u := translated(unit("0100ABCD|Mod.esp", "WEAP FULL", "Iron Sword"), "Eisenschwert", stringunit.TranslationComplete)
	u.EditorID = stringunit.Ptr("IronSword")

	tests := []struct {
		f    stringunit.SearchFilter
		want bool
	}{
		{stringunit.SearchFilter{}, true},
		{stringunit.SearchFilter{Type: "weap"}, true},
		{stringunit.SearchFilter{FormID: "abcd"}, true},
		{stringunit.SearchFilter{EditorID: "ironsw"}, true},
		{stringunit.SearchFilter{Original: "SWORD", String: "eisen"}, true},
		{stringunit.SearchFilter{Original: "axe"}, false},
	}
	for _, tc := range tests {
		if got := tc.f.Matches(u); got != tc.want {
			t.Errorf("%+v: got %v want %v", tc.f, got, tc.want)
		}
	}

	bare := unit("0100ABCD|Mod.esp", "WEAP FULL", "Iron Sword")
	if (stringunit.SearchFilter{EditorID: "iron"}).Matches(bare) {
		t.Fatal("editor id filter must reject units without editor id")
	}
	if (stringunit.SearchFilter{String: "iron"}).Matches(bare) {
		t.Fatal("string filter must reject untranslated units")
	}
}

func TestJSONFormat(t *testing.T) {
	u := translated(unit("0100ABCD|Mod.esp", "WEAP FULL", "Sword"), "Schwert", stringunit.TranslationComplete)
	u.Index = stringunit.Ptr(0)

	data, err := json.Marshal(u)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"form_id":"0100ABCD|Mod.esp","type":"WEAP FULL","index":0,"original":"Sword","string":"Schwert","status":"TranslationComplete"}`
	if string(data) != want {
		t.Fatalf("json:\n got %s\nwant %s", data, want)
	}
}

func TestJSONStringOnlyBecomesOriginal(t *testing.T) {
	var u stringunit.Unit
	err := json.Unmarshal([]byte(`{"form_id":"0100ABCD|Mod.esp","type":"WEAP FULL","string":"Sword","status":"TranslationComplete"}`), &u)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if u.Original != "Sword" || u.Translated != nil || u.Status != stringunit.TranslationRequired {
		t.Fatalf("unexpected unit %+v", u)
	}
}

func TestStatusNames(t *testing.T) {
	var s stringunit.Status
	if err := json.Unmarshal([]byte(`"TranslationIncomplete"`), &s); err != nil || s != stringunit.TranslationIncomplete {
		t.Fatalf("got %s, %v", s, err)
	}
	if err := json.Unmarshal([]byte(`"Bogus"`), &s); err == nil {
		t.Fatal("expected error for unknown status")
	}
	if s, err := stringunit.StatusFromOrdinal(3); err != nil || s != stringunit.TranslationComplete {
		t.Fatalf("ordinal 3: %s %v", s, err)
	}
}
