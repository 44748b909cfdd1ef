package wizards

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pgseed/pgseed/internal/config"
	"github.com/pgseed/pgseed/pkg/pgseed"
)

func asConfigWizard(t *testing.T, m tea.Model) ConfigWizard {
	t.Helper()
	w, ok := m.(ConfigWizard)
	if !ok {
		t.Fatalf("expected ConfigWizard, got %T", m)
	}
	return w
}

func configWizardAtTables() ConfigWizard {
	return NewConfigWizard().WithConnection(pgseed.ConnectionConfig{
		Host:     "localhost",
		Port:     5432,
		Username: "postgres",
		Database: "testdb",
		SSLMode:  "prefer",
	})
}

func TestConfigWizard_InitialState(t *testing.T) {
	w := NewConfigWizard()
	if w.step != cfgStepTables {
		t.Errorf("initial step = %d, want the tables step", w.step)
	}
	if w.hasConn {
		t.Error("a fresh wizard has no connection yet")
	}
	if w.timeout != "10m" {
		t.Errorf("default timeout = %q, want 10m", w.timeout)
	}
	if len(w.tables) != 0 {
		t.Errorf("fresh wizard has %d overrides, want none", len(w.tables))
	}
}

func TestConfigWizard_WithConnection(t *testing.T) {
	w := configWizardAtTables()
	if !w.hasConn {
		t.Error("hasConn should be set")
	}
	if view := w.View(); !strings.Contains(view, "localhost:5432/testdb") {
		t.Error("tables view should show the connection banner")
	}
}

func TestConfigWizard_AddOverride(t *testing.T) {
	// The cursor starts on the "+ Add override" row of an empty list
	m, _ := pressCmd(t, configWizardAtTables(), "enter")
	if !asConfigWizard(t, m).editor.open {
		t.Fatal("enter on the add row should open the editor")
	}

	m = typeText(t, m, "shop.product")
	m = press(t, m, "tab")
	m = typeText(t, m, "store_products")
	m = press(t, m, "enter")

	w := asConfigWizard(t, m)
	if w.editor.open {
		t.Error("saving should close the editor")
	}
	if len(w.tables) != 1 {
		t.Fatalf("got %d overrides, want 1", len(w.tables))
	}
	if w.tables[0].Tag != "shop.product" || w.tables[0].Table != "store_products" {
		t.Errorf("saved override = %+v", w.tables[0])
	}
}

func TestConfigWizard_EditOverride(t *testing.T) {
	w := configWizardAtTables()
	w.tables = []tableEntry{{Tag: "shop.product", Table: "old_name"}}

	m, _ := pressCmd(t, w, "enter")
	edited := asConfigWizard(t, m)
	if !edited.editor.open {
		t.Fatal("enter on an override should open the editor")
	}
	if got := edited.editor.inputs[0].Value(); got != "shop.product" {
		t.Errorf("editor tag = %q, want the existing value", got)
	}
	if got := edited.editor.inputs[1].Value(); got != "old_name" {
		t.Errorf("editor table = %q, want the existing value", got)
	}

	m = press(t, m, "tab")
	m = typeText(t, m, "2")
	m = press(t, m, "enter")
	if got := asConfigWizard(t, m).tables[0].Table; got != "old_name2" {
		t.Errorf("edited table = %q, want old_name2", got)
	}
}

func TestConfigWizard_EmptyTagNotSaved(t *testing.T) {
	m := press(t, configWizardAtTables(), "enter", "enter")
	w := asConfigWizard(t, m)
	if w.editor.open {
		t.Error("editor should close even without a tag")
	}
	if len(w.tables) != 0 {
		t.Errorf("empty tag saved %d overrides, want none", len(w.tables))
	}
}

func TestConfigWizard_EscDiscardsEditor(t *testing.T) {
	m, _ := pressCmd(t, configWizardAtTables(), "enter")
	m = typeText(t, m, "shop.product")
	m = press(t, m, "esc")

	w := asConfigWizard(t, m)
	if w.editor.open {
		t.Error("esc should close the editor")
	}
	if len(w.tables) != 0 {
		t.Errorf("esc saved %d overrides, want none", len(w.tables))
	}
}

func TestConfigWizard_DeleteOverride(t *testing.T) {
	w := configWizardAtTables()
	w.tables = []tableEntry{
		{Tag: "a.one", Table: "t1"},
		{Tag: "b.two", Table: "t2"},
	}
	w.tableIdx = 1

	m := press(t, w, "d")
	got := asConfigWizard(t, m)
	if len(got.tables) != 1 || got.tables[0].Tag != "a.one" {
		t.Errorf("tables after delete = %+v", got.tables)
	}
	if got.tableIdx != 0 {
		t.Errorf("cursor = %d, want it pulled back to 0", got.tableIdx)
	}

	// d on the add row is a no-op
	m = press(t, m, "down", "d")
	if got := asConfigWizard(t, m); len(got.tables) != 1 {
		t.Errorf("delete on the add row removed an override, tables = %+v", got.tables)
	}
}

func TestConfigWizard_CursorBounds(t *testing.T) {
	w := configWizardAtTables()
	w.tables = []tableEntry{{Tag: "a.one", Table: "t1"}}

	m := press(t, w, "up")
	if got := asConfigWizard(t, m).tableIdx; got != 0 {
		t.Errorf("up at the top: tableIdx = %d, want 0", got)
	}
	m = press(t, m, "down", "down", "down")
	if got := asConfigWizard(t, m).tableIdx; got != 1 {
		t.Errorf("down past the add row: tableIdx = %d, want 1", got)
	}
}

func TestConfigWizard_TimeoutPresets(t *testing.T) {
	m := press(t, configWizardAtTables(), "n")
	if got := asConfigWizard(t, m).step; got != cfgStepTimeout {
		t.Fatalf("step = %d, want the timeout step", got)
	}

	m = press(t, m, "3")
	if got := asConfigWizard(t, m).timeout; got != "3m" {
		t.Errorf("timeout = %q, want 3m", got)
	}
	m = press(t, m, "0")
	if got := asConfigWizard(t, m).timeout; got != "10m" {
		t.Errorf("timeout = %q, want 10m", got)
	}

	m = press(t, m, "n")
	if got := asConfigWizard(t, m).step; got != cfgStepReview {
		t.Errorf("step = %d, want the review step", got)
	}
	m = press(t, m, "esc")
	if got := asConfigWizard(t, m).step; got != cfgStepTimeout {
		t.Errorf("esc at review: step = %d, want the timeout step", got)
	}
}

func TestConfigWizard_SaveFromReview(t *testing.T) {
	m, _ := pressCmd(t, configWizardAtTables(), "enter")
	m = typeText(t, m, "shop.product")
	m = press(t, m, "tab")
	m = typeText(t, m, "store_products")
	m = press(t, m, "enter", "n", "5", "n")

	m, cmd := pressCmd(t, m, "enter")
	w := asConfigWizard(t, m)
	if w.step != cfgStepDone {
		t.Fatalf("step = %d, want done", w.step)
	}
	if !quits(cmd) {
		t.Error("saving should quit the wizard")
	}

	r := w.Result()
	if r.SavePath != config.ConfigFileName {
		t.Errorf("SavePath = %q, want %q", r.SavePath, config.ConfigFileName)
	}
	if r.Config.Connection.Host != "localhost" || r.Config.Connection.Database != "testdb" {
		t.Errorf("connection block = %+v", r.Config.Connection)
	}
	if got := r.Config.Load.Timeout; got != "5m" {
		t.Errorf("timeout = %q, want 5m", got)
	}
	if got := r.Config.Tables["shop.product"]; got != "store_products" {
		t.Errorf("tables override = %q, want store_products", got)
	}
	if got := r.Config.Fixtures.Roots; len(got) != 1 || got[0] != "fixtures" {
		t.Errorf("fixture roots = %v, want [fixtures]", got)
	}
}

func TestConfigWizard_AssembleOmitsEmptyTables(t *testing.T) {
	w := configWizardAtTables()
	if cfg := w.assembleConfig(); cfg.Tables != nil {
		t.Errorf("no overrides should leave Tables nil, got %v", cfg.Tables)
	}
}

func TestConfigWizard_CtrlCCancels(t *testing.T) {
	m, cmd := pressCmd(t, configWizardAtTables(), "ctrl+c")
	if !asConfigWizard(t, m).result.Cancelled {
		t.Error("ctrl+c should cancel")
	}
	if !quits(cmd) {
		t.Error("ctrl+c should quit")
	}
}

func TestConfigWizard_EscAtTablesCancels(t *testing.T) {
	m, cmd := pressCmd(t, configWizardAtTables(), "esc")
	if !asConfigWizard(t, m).result.Cancelled {
		t.Error("esc at the first step should cancel")
	}
	if !quits(cmd) {
		t.Error("esc at the first step should quit")
	}
}

func TestConfigWizard_SaveConfig(t *testing.T) {
	m := press(t, configWizardAtTables(), "n", "n", "enter")
	w := asConfigWizard(t, m)

	dir := t.TempDir()
	if err := w.SaveConfig(dir); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, config.ConfigFileName))
	if err != nil {
		t.Fatalf("reading saved config: %v", err)
	}
	for _, want := range []string{"host: localhost", "database: testdb", "timeout: 10m"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("saved config missing %q:\n%s", want, data)
		}
	}
}

func TestConfigWizard_Views(t *testing.T) {
	w := configWizardAtTables()
	w.tables = []tableEntry{{Tag: "shop.product", Table: "store_products"}}

	view := w.View()
	for _, want := range []string{"Configuration Builder", "Table Overrides", "+ Add override", "shop.product"} {
		if !strings.Contains(view, want) {
			t.Errorf("tables view missing %q", want)
		}
	}

	m, _ := pressCmd(t, w, "enter")
	if view := m.View(); !strings.Contains(view, "Kind:") {
		t.Error("editor view should render the Kind label")
	}

	m = press(t, w, "n")
	if view := m.View(); !strings.Contains(view, "Timeout") {
		t.Error("timeout view should carry its heading")
	}

	m = press(t, m, "n")
	if view := m.View(); !strings.Contains(view, "Review Configuration") {
		t.Error("review view should carry its heading")
	}
	if view := m.View(); !strings.Contains(view, "host: localhost") {
		t.Error("review view should show the connection yaml")
	}
}
