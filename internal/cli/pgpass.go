package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"

	"github.com/pgseed/pgseed/internal/tui"
	"github.com/pgseed/pgseed/pkg/pgseed"
)

// pgpassFieldEscaper quotes the two characters .pgpass assigns meaning
// inside a field.
var pgpassFieldEscaper = strings.NewReplacer(`\`, `\\`, `:`, `\:`)

// pgpassEntry is one host:port:database:username:password line, held
// with the fields already escaped.
type pgpassEntry [5]string

func newPgpassEntry(cfg *pgseed.ConnectionConfig) pgpassEntry {
	return pgpassEntry{
		pgpassFieldEscaper.Replace(cfg.Host),
		strconv.Itoa(cfg.Port),
		pgpassFieldEscaper.Replace(cfg.Database),
		pgpassFieldEscaper.Replace(cfg.Username),
		pgpassFieldEscaper.Replace(cfg.Password),
	}
}

func (e pgpassEntry) line() string { return strings.Join(e[:], ":") }

// supersedes reports whether an existing line addresses the same host,
// port, database, and user, whatever password it carries.
func (e pgpassEntry) supersedes(line string) bool {
	return strings.HasPrefix(line, strings.Join(e[:4], ":")+":")
}

// pgpassPath locates the password file libpq reads: $PGPASSFILE when
// set, pgpass.conf under %APPDATA% on Windows, ~/.pgpass elsewhere.
func pgpassPath() string {
	if path := os.Getenv("PGPASSFILE"); path != "" {
		return path
	}
	if runtime.GOOS == "windows" {
		return filepath.Join(os.Getenv("APPDATA"), "postgresql", "pgpass.conf")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".pgpass")
	}
	return ""
}

// offerSavePgpass asks, after a successful wizard run, whether to keep
// the password in .pgpass. Silent when there is no password to store or
// stdin is not a terminal.
func offerSavePgpass(cfg *pgseed.ConnectionConfig) {
	if cfg.Password == "" || !tui.IsInteractive() {
		return
	}

	fmt.Fprintln(os.Stderr)
	if !tui.PromptContinue("Store this password in .pgpass for next time?") {
		fmt.Fprintln(os.Stderr, "Tip: the password can also come from $PGPASSWORD, .pgpass, or the connection string.")
		return
	}
	if err := writePgpassEntry(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not update .pgpass: %v\n", err)
		fmt.Fprintln(os.Stderr, "Tip: pass the password via $PGPASSWORD or the connection string.")
		return
	}
	fmt.Fprintf(os.Stderr, "Password saved to %s\n", pgpassPath())
}

// writePgpassEntry rewrites .pgpass with the connection's entry,
// replacing the line for the same host/port/database/user when one
// exists and appending otherwise. The file keeps the 0600 mode
// PostgreSQL insists on.
func writePgpassEntry(cfg *pgseed.ConnectionConfig) error {
	path := pgpassPath()
	if path == "" {
		return fmt.Errorf("cannot determine home directory")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	var lines []string
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if existing := strings.TrimRight(string(data), "\n"); existing != "" {
			lines = strings.Split(existing, "\n")
		}
	case !os.IsNotExist(err):
		return fmt.Errorf("failed to read existing .pgpass: %w", err)
	}

	entry := newPgpassEntry(cfg)
	if i := slices.IndexFunc(lines, entry.supersedes); i >= 0 {
		lines[i] = entry.line()
	} else {
		lines = append(lines, entry.line())
	}

	return os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0600)
}
