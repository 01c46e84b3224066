package cli

import (
	"strings"
	"testing"
)

func TestRenderTable(t *testing.T) {
	out := renderTable([]string{"Name", "Strings"}, [][]string{{"Mod.esp", "12"}, {"Short"}}, []columnAlignment{alignLeft, alignRight})
	for _, want := range []string{"Name", "Strings", "Mod.esp", "12", "Short"} {
		if !strings.Contains(out, want) {
			t.Errorf("table is missing %q:\n%s", want, out)
		}
	}
	if renderTable(nil, nil, nil) != "" {
		t.Error("a table without columns renders empty")
	}
}

func TestCommandTree(t *testing.T) {
	root := newRootCmd()
	for _, path := range [][]string{
		{"extract"}, {"verify"}, {"eslify"}, {"is-light"}, {"strings"}, {"translate"},
		{"db", "list"}, {"db", "search"}, {"db", "create"}, {"db", "delete"}, {"db", "dedupe"}, {"db", "export"},
		{"graph", "sync"}, {"graph", "dependents"},
		{"suggest", "index"}, {"suggest", "query"},
	} {
		cmd, _, err := root.Find(path)
		if err != nil || cmd.Name() != path[len(path)-1] {
			t.Errorf("command %v not found", path)
		}
	}
}
