package interpolation

import "testing"

func TestProtectRestore(t *testing.T) {
	tests := []struct {
		name string
		in   string
		safe string
		n    int
	}{
		{"none", "Iron Sword", "Iron Sword", 0},
		{"alias", "Bring this to <Alias=Questgiver>.", "Bring this to {{var_1}}.", 1},
		{"alias field", "<Alias.ShortName=Jarl> wants <Global=GoldCost> gold.", "{{var_1}} wants {{var_2}} gold.", 2},
		{"magnitude", "Does <mag> damage for <dur> seconds.", "Does {{var_1}} damage for {{var_2}} seconds.", 2},
		{"markup", "<font color='#FF0000'>Warning</font>", "{{var_1}}Warning{{var_2}}", 2},
		{"key tag", "Press [E] to open.", "Press {{var_1}} to open.", 1},
		{"printf", "%d of %s (100%%)", "{{var_1}} of {{var_2}} (100{{var_3}})", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			safe, mappings := Protect(tt.in)
			if safe != tt.safe {
				t.Fatalf("Protect(%q) = %q, want %q", tt.in, safe, tt.safe)
			}
			if len(mappings) != tt.n {
				t.Fatalf("mappings = %+v", mappings)
			}
			if got := Restore(safe, mappings); got != tt.in {
				t.Fatalf("Restore = %q, want %q", got, tt.in)
			}
		})
	}
}

func TestRestoreReordered(t *testing.T) {
	_, mappings := Protect("<Alias=A> gives <mag> gold")
	got := Restore("{{var_2}} Gold von {{var_1}}", mappings)
	if got != "<mag> Gold von <Alias=A>" {
		t.Fatalf("Restore = %q", got)
	}
}

func TestMissing(t *testing.T) {
	_, mappings := Protect("Press [E] for <mag> points")
	missing := Missing("Drücke {{var_1}}", mappings)
	if len(missing) != 1 || missing[0] != "{{var_2}}" {
		t.Fatalf("Missing = %v", missing)
	}
}
