package wizards

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/pgseed/pgseed/internal/scaffold"
	"github.com/pgseed/pgseed/internal/tui"
)

// InitResult holds the result of the init wizard.
type InitResult struct {
	Cancelled    bool
	TargetDir    string
	SetupConfig  bool
	ConfigResult ConfigResult
	ConnResult   ConnectionResult
}

// InitWizard asks whether to chain into connection setup after the
// scaffold is created. It is a single confirm screen; the file summary
// prints after the program exits, outside the alt screen.
type InitWizard struct {
	keys tui.KeyMap

	targetDir   string
	setupConfig bool

	result InitResult

	width  int
	height int
}

// NewInitWizard creates a new init wizard for targetDir.
func NewInitWizard(targetDir string) InitWizard {
	return InitWizard{
		targetDir: valueOr(targetDir, "."),
		width:     80,
		height:    24,
		keys:      tui.DefaultKeyMap(),
	}
}

// Init implements tea.Model.
func (w InitWizard) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (w InitWizard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		w.width, w.height = msg.Width, msg.Height

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, w.keys.Up), key.Matches(msg, w.keys.Down):
			w.setupConfig = !w.setupConfig
		case key.Matches(msg, w.keys.Select):
			w.result = InitResult{TargetDir: w.targetDir, SetupConfig: w.setupConfig}
			return w, tea.Quit
		case key.Matches(msg, w.keys.Back), key.Matches(msg, w.keys.Quit):
			w.result.Cancelled = true
			return w, tea.Quit
		}
	}

	return w, nil
}

// View implements tea.Model.
func (w InitWizard) View() string {
	var b strings.Builder

	b.WriteString(tui.TitleStyle.Render("pgseed init - Project Setup"))
	b.WriteString("\n")

	absPath, _ := filepath.Abs(w.targetDir)
	summary := fmt.Sprintf("Directory: %s\nFiles:     pgseed.yaml, fixtures/example.json", absPath)
	b.WriteString(tui.BoxStyle.Render(summary))
	b.WriteString("\n")

	items := []choice{
		{name: "No, I'll configure later", desc: "Creates pgseed.yaml with localhost defaults"},
		{name: "Yes, set up connection (recommended)", desc: "Walk through host, database, and auth settings"},
	}
	selected := 0
	if w.setupConfig {
		selected = 1
	}
	b.WriteString(renderChoices("Configure database connection now?", items, selected, "↑/↓ toggle • enter create project • esc cancel"))

	return b.String()
}

// Result reports what the finished wizard collected.
func (w InitWizard) Result() InitResult {
	return w.result
}

// RunInitWizard executes the init wizard, chaining into the connection
// and config wizards when the user opts in.
func RunInitWizard(targetDir string) (InitResult, error) {
	final, err := runModel(NewInitWizard(targetDir))
	if err != nil {
		return InitResult{Cancelled: true}, err
	}

	result := final.Result()
	if result.Cancelled || !result.SetupConfig {
		return result, nil
	}

	connResult, err := RunConnectionWizard()
	if err != nil {
		return result, err
	}
	result.ConnResult = connResult
	if connResult.Cancelled {
		return result, nil
	}

	cfgResult, err := RunConfigWizard(connResult.Config)
	if err != nil {
		return result, err
	}
	result.ConfigResult = cfgResult

	return result, nil
}

// ShowInitComplete displays the completion message after project creation.
// Paths in created and skipped are relative to targetDir.
func ShowInitComplete(targetDir string, created, skipped []string) {
	absPath, _ := filepath.Abs(targetDir)

	entries := make([]scaffold.TreeEntry, 0, len(created)+len(skipped))
	for _, f := range created {
		entries = append(entries, scaffold.TreeEntry{RelPath: f})
	}
	for _, f := range skipped {
		entries = append(entries, scaffold.TreeEntry{RelPath: f, Note: "kept existing"})
	}

	fmt.Println()
	fmt.Println(tui.SuccessStyle.Render(tui.SymbolCheck + " Project created successfully!"))
	fmt.Println()
	fmt.Printf("%s/\n", absPath)
	fmt.Print(scaffold.RenderFileTree(entries))

	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Printf("  1. cd %s\n", targetDir)
	fmt.Println("  2. Point the connection block in pgseed.yaml at your database")
	fmt.Println("  3. Run: pgseed load example")
	fmt.Println()
}

// DirectoryExists reports whether path is an existing directory and
// whether it already has entries.
func DirectoryExists(path string) (exists, nonEmpty bool, err error) {
	info, statErr := os.Stat(path)
	switch {
	case os.IsNotExist(statErr):
		return false, false, nil
	case statErr != nil:
		return false, false, statErr
	case !info.IsDir():
		return false, false, errors.New("path exists but is not a directory")
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return true, false, err
	}
	return true, len(entries) > 0, nil
}
