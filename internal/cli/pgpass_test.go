package cli

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgseed/pgseed/pkg/pgseed"
)

// pgpassFile points PGPASSFILE at a fresh temp location and returns it.
func pgpassFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pgpass.conf")
	t.Setenv("PGPASSFILE", path)
	return path
}

func TestPgpassFieldEscaping(t *testing.T) {
	tests := map[string]string{
		"simple":               "simple",
		"pass:word":            `pass\:word`,
		`back\slash`:           `back\\slash`,
		`both\:chars`:          `both\\\:chars`,
		"":                     "",
		`\:\`:                  `\\\:\\`,
		"multi:colon:password": `multi\:colon\:password`,
	}

	for input, want := range tests {
		assert.Equal(t, want, pgpassFieldEscaper.Replace(input), "escaping %q", input)
	}
}

func TestWritePgpassEntry(t *testing.T) {
	conn := func(host string, port int, database, user, password string) *pgseed.ConnectionConfig {
		return &pgseed.ConnectionConfig{
			Host:     host,
			Port:     port,
			Database: database,
			Username: user,
			Password: password,
		}
	}

	tests := map[string]struct {
		existing string
		conn     *pgseed.ConnectionConfig
		want     string
	}{
		"creates a fresh file": {
			conn: conn("localhost", 5432, "testdb", "loader", "secret"),
			want: "localhost:5432:testdb:loader:secret\n",
		},
		"replaces the matching line in place": {
			existing: "otherhost:5432:otherdb:other:oldpass\nlocalhost:5432:testdb:loader:oldpass\n",
			conn:     conn("localhost", 5432, "testdb", "loader", "newpass"),
			want:     "otherhost:5432:otherdb:other:oldpass\nlocalhost:5432:testdb:loader:newpass\n",
		},
		"appends when no line matches": {
			existing: "otherhost:5432:otherdb:other:pass\n",
			conn:     conn("newhost", 5433, "newdb", "newuser", "newpass"),
			want:     "otherhost:5432:otherdb:other:pass\nnewhost:5433:newdb:newuser:newpass\n",
		},
		"treats a different port as a different entry": {
			existing: "localhost:5432:testdb:loader:pass\n",
			conn:     conn("localhost", 5433, "testdb", "loader", "pass2"),
			want:     "localhost:5432:testdb:loader:pass\nlocalhost:5433:testdb:loader:pass2\n",
		},
		"escapes colons and backslashes": {
			conn: conn("localhost", 5432, "db", "loader", `p:a\ss`),
			want: `localhost:5432:db:loader:p\:a\\ss` + "\n",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			path := pgpassFile(t)
			if tt.existing != "" {
				require.NoError(t, os.WriteFile(path, []byte(tt.existing), 0600))
			}

			require.NoError(t, writePgpassEntry(tt.conn))

			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(data))
		})
	}
}

func TestWritePgpassEntryRestrictsMode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file modes are not meaningful on Windows")
	}

	path := pgpassFile(t)
	cfg := &pgseed.ConnectionConfig{
		Host:     "localhost",
		Port:     5432,
		Database: "db",
		Username: "loader",
		Password: "pass",
	}
	require.NoError(t, writePgpassEntry(cfg))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestWritePgpassEntryCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "postgresql", "pgpass.conf")
	t.Setenv("PGPASSFILE", path)

	cfg := &pgseed.ConnectionConfig{
		Host:     "localhost",
		Port:     5432,
		Database: "db",
		Username: "loader",
		Password: "pass",
	}
	require.NoError(t, writePgpassEntry(cfg))
	assert.FileExists(t, path)
}

func TestPgpassPath(t *testing.T) {
	t.Run("PGPASSFILE wins", func(t *testing.T) {
		t.Setenv("PGPASSFILE", "/custom/path/pgpass")
		assert.Equal(t, "/custom/path/pgpass", pgpassPath())
	})

	t.Run("falls back to a home location", func(t *testing.T) {
		t.Setenv("PGPASSFILE", "")
		assert.NotEmpty(t, pgpassPath())
	})
}
