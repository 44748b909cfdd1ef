package wizards

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"gopkg.in/yaml.v3"

	"github.com/pgseed/pgseed/internal/config"
	"github.com/pgseed/pgseed/internal/tui"
	"github.com/pgseed/pgseed/pkg/pgseed"
)

// ConfigResult holds the result of the config wizard.
type ConfigResult struct {
	Cancelled bool
	Config    config.ProjectConfig
	SavePath  string
}

// ConfigWizard guides users through creating pgseed.yaml.
type ConfigWizard struct {
	step configStep
	keys tui.KeyMap

	// Connection carried over from the connection wizard
	connConfig pgseed.ConnectionConfig
	hasConn    bool

	// Table overrides and the inline tag/table editor
	tables   []tableEntry
	tableIdx int
	editor   overrideEditor

	timeout string

	result ConfigResult

	width  int
	height int
}

// overrideEditor is the two-field inline editor on the tables screen.
type overrideEditor struct {
	open   bool
	inputs []textinput.Model
	focus  int
}

type configStep int

const (
	cfgStepTables configStep = iota
	cfgStepTimeout
	cfgStepReview
	cfgStepDone
)

type tableEntry struct {
	Tag   string
	Table string
}

// Timeout presets reachable with a single keystroke.
var timeoutPresets = map[string]string{
	"1": "1m",
	"3": "3m",
	"5": "5m",
	"0": "10m",
}

var timeoutChoices = []string{"1m", "3m", "5m", "10m"}

// NewConfigWizard creates a new config wizard.
func NewConfigWizard() ConfigWizard {
	return ConfigWizard{
		tables:  []tableEntry{},
		timeout: "10m",
		width:   80,
		height:  24,
		keys:    tui.DefaultKeyMap(),
	}
}

// WithConnection carries over the connection so the banner and review
// can show it.
func (w ConfigWizard) WithConnection(cfg pgseed.ConnectionConfig) ConfigWizard {
	w.connConfig = cfg
	w.hasConn = true
	return w
}

// Init implements tea.Model.
func (w ConfigWizard) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (w ConfigWizard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		w.width, w.height = msg.Width, msg.Height
		return w, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return w.cancel()
		}
		switch w.step {
		case cfgStepTables:
			return w.tablesKey(msg)
		case cfgStepTimeout:
			return w.timeoutKey(msg)
		case cfgStepReview:
			return w.reviewKey(msg)
		}
	}

	return w, nil
}

func (w ConfigWizard) cancel() (tea.Model, tea.Cmd) {
	w.result.Cancelled = true
	return w, tea.Quit
}

func (w ConfigWizard) tablesKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if w.editor.open {
		return w.editorKey(msg)
	}

	switch {
	case key.Matches(msg, w.keys.Up):
		w.tableIdx = max(w.tableIdx-1, 0)
	case key.Matches(msg, w.keys.Down):
		// One past the overrides sits the "+ Add override" row
		w.tableIdx = min(w.tableIdx+1, len(w.tables))
	case key.Matches(msg, w.keys.Select):
		return w.openEditor()
	case msg.String() == "d":
		w.deleteOverride()
	case msg.String() == "n":
		w.step = cfgStepTimeout
	case key.Matches(msg, w.keys.Back):
		return w.cancel()
	}
	return w, nil
}

// openEditor edits the override under the cursor, or a blank one when
// the cursor sits on the add row.
func (w ConfigWizard) openEditor() (tea.Model, tea.Cmd) {
	var cur tableEntry
	if w.tableIdx < len(w.tables) {
		cur = w.tables[w.tableIdx]
	}
	w.editor = overrideEditor{
		open: true,
		inputs: []textinput.Model{
			formField{placeholder: "shop.product", initial: cur.Tag, charLimit: 64, width: 30}.model(),
			formField{placeholder: "store_products", initial: cur.Table, charLimit: 64, width: 40}.model(),
		},
	}
	return w, w.editor.inputs[0].Focus()
}

func (w ConfigWizard) closeEditor() (tea.Model, tea.Cmd) {
	w.editor = overrideEditor{}
	return w, nil
}

// saveOverride commits the editor values; an empty tag discards them.
func (w *ConfigWizard) saveOverride() {
	entry := tableEntry{
		Tag:   w.editor.inputs[0].Value(),
		Table: w.editor.inputs[1].Value(),
	}
	if entry.Tag == "" {
		return
	}

	if w.tableIdx < len(w.tables) {
		w.tables[w.tableIdx] = entry
	} else {
		w.tables = append(w.tables, entry)
	}
}

func (w *ConfigWizard) deleteOverride() {
	if w.tableIdx >= len(w.tables) {
		return
	}
	w.tables = slices.Delete(w.tables, w.tableIdx, w.tableIdx+1)
	if w.tableIdx > 0 && w.tableIdx >= len(w.tables) {
		w.tableIdx--
	}
}

func (w ConfigWizard) editorKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, w.keys.Tab), msg.String() == "down":
		return w.focusKV(w.editor.focus + 1)
	case key.Matches(msg, w.keys.ShiftTab), msg.String() == "up":
		return w.focusKV(w.editor.focus - 1)
	case key.Matches(msg, w.keys.Select):
		w.saveOverride()
		return w.closeEditor()
	case key.Matches(msg, w.keys.Back):
		return w.closeEditor()
	}

	var cmd tea.Cmd
	w.editor.inputs[w.editor.focus], cmd = w.editor.inputs[w.editor.focus].Update(msg)
	return w, cmd
}

func (w ConfigWizard) focusKV(i int) (tea.Model, tea.Cmd) {
	if i < 0 || i >= len(w.editor.inputs) || i == w.editor.focus {
		return w, nil
	}
	w.editor.inputs[w.editor.focus].Blur()
	w.editor.focus = i
	return w, w.editor.inputs[i].Focus()
}

func (w ConfigWizard) timeoutKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if t, ok := timeoutPresets[msg.String()]; ok {
		w.timeout = t
	}

	switch {
	case key.Matches(msg, w.keys.Select), msg.String() == "n":
		w.step = cfgStepReview
	case key.Matches(msg, w.keys.Back):
		w.step = cfgStepTables
	}
	return w, nil
}

func (w ConfigWizard) reviewKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, w.keys.Select):
		w.result.Config = w.assembleConfig()
		w.result.SavePath = config.ConfigFileName
		w.step = cfgStepDone
		return w, tea.Quit
	case key.Matches(msg, w.keys.Back):
		w.step = cfgStepTimeout
	}
	return w, nil
}

func (w ConfigWizard) assembleConfig() config.ProjectConfig {
	tables := make(map[string]string, len(w.tables))
	for _, t := range w.tables {
		tables[t.Tag] = t.Table
	}
	if len(tables) == 0 {
		tables = nil
	}

	return config.ProjectConfig{
		Connection: config.ConnectionConfig{
			Host:     w.connConfig.Host,
			Port:     w.connConfig.Port,
			Username: w.connConfig.Username,
			Database: w.connConfig.Database,
			SSLMode:  w.connConfig.SSLMode,
		},
		Fixtures: config.FixturesConfig{
			Roots:   []string{"fixtures"},
			Exclude: pgseed.DefaultExcludedDirs,
		},
		Load:   config.LoadConfig{Timeout: w.timeout},
		Tables: tables,
	}
}

// View implements tea.Model.
func (w ConfigWizard) View() string {
	var b strings.Builder

	b.WriteString(tui.TitleStyle.Render("pgseed - Configuration Builder"))
	b.WriteString("\n")

	switch w.step {
	case cfgStepTables:
		b.WriteString(w.viewTables())
	case cfgStepTimeout:
		b.WriteString(w.viewTimeout())
	case cfgStepReview:
		b.WriteString(w.viewReview())
	}

	return b.String()
}

func (w ConfigWizard) overrideRows() []string {
	rows := make([]string, 0, len(w.tables)+1)
	for _, t := range w.tables {
		rows = append(rows, t.Tag+" "+tui.SymbolArrowRight+" "+t.Table)
	}
	return append(rows, "+ Add override")
}

func (w ConfigWizard) viewTables() string {
	var b strings.Builder

	if w.hasConn {
		b.WriteString(tui.SuccessStyle.Render(tui.SymbolCheck + " Connection: "))
		b.WriteString(fmt.Sprintf("%s:%d/%s", w.connConfig.Host, w.connConfig.Port, w.connConfig.Database))
		b.WriteString("\n\n")
	}

	b.WriteString(tui.SubtitleStyle.Render("Table Overrides"))
	b.WriteString("\n")
	b.WriteString(tui.DescriptionStyle.Render("Map kind tags to table names where the app_kind convention doesn't apply (optional)"))
	b.WriteString("\n\n")

	if w.editor.open {
		b.WriteString("Kind:  ")
		b.WriteString(w.editor.inputs[0].View())
		b.WriteString("\n")
		b.WriteString("Table: ")
		b.WriteString(w.editor.inputs[1].View())
		b.WriteString("\n\n")
		b.WriteString(tui.HelpStyle.Render("tab next • enter save • esc cancel"))
		return b.String()
	}

	for i, row := range w.overrideRows() {
		if i == w.tableIdx {
			b.WriteString(tui.SelectedStyle.Render(row))
		} else {
			b.WriteString("  ")
			b.WriteString(tui.UnselectedStyle.Render(row))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(tui.HelpStyle.Render("↑/↓ navigate • enter edit • d delete • n next step"))

	return b.String()
}

func (w ConfigWizard) viewTimeout() string {
	var b strings.Builder

	b.WriteString(tui.SubtitleStyle.Render("Timeout"))
	b.WriteString("\n")
	b.WriteString(tui.DescriptionStyle.Render("Maximum time for a load run (press 1, 3, 5, or 0 for 10m)"))
	b.WriteString("\n\n")

	for _, t := range timeoutChoices {
		marker := tui.UnselectedStyle.Render(tui.SymbolUnselected + " " + t)
		if t == w.timeout {
			marker = tui.SelectedStyle.Render(tui.SymbolSelected + " " + t)
		}
		b.WriteString("  " + marker + "\n")
	}

	b.WriteString(tui.HelpStyle.Render("\n1/3/5/0 select • n next step • esc back"))

	return b.String()
}

func (w ConfigWizard) viewReview() string {
	var b strings.Builder

	b.WriteString(tui.SubtitleStyle.Render("Review Configuration"))
	b.WriteString("\n\n")

	yamlBytes, _ := yaml.Marshal(w.assembleConfig())
	for _, line := range strings.Split(string(yamlBytes), "\n") {
		b.WriteString(tui.DescriptionStyle.Render("  " + line))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(tui.HelpStyle.Render("enter save to " + config.ConfigFileName + " • esc go back"))

	return b.String()
}

// Result reports what the finished wizard collected.
func (w ConfigWizard) Result() ConfigResult {
	return w.result
}

// SaveConfig writes the assembled configuration into dir.
func (w ConfigWizard) SaveConfig(dir string) error {
	data, err := yaml.Marshal(w.result.Config)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, config.ConfigFileName), data, 0644)
}

// RunConfigWizard executes the config wizard with an existing connection.
func RunConfigWizard(connConfig pgseed.ConnectionConfig) (ConfigResult, error) {
	final, err := runModel(NewConfigWizard().WithConnection(connConfig))
	if err != nil {
		return ConfigResult{Cancelled: true}, err
	}
	return final.Result(), nil
}
