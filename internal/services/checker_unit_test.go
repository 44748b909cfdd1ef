package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/pgseed/pgseed/internal/checksum"
	"github.com/pgseed/pgseed/internal/files/filesystem"
	"github.com/pgseed/pgseed/pkg/pgseed"
)

const (
	usersFixture  = `[{"model": "app.user", "pk": 1, "fields": {"name": "ada"}}, {"model": "app.user", "pk": 2, "fields": {"name": "grace"}}]`
	groupsFixture = `[{"model": "app.group", "pk": null, "fields": {"slug": "admins"}}]`
)

func checkFS() filesystem.FileSystemProvider {
	fs := filesystem.NewMemoryFileSystem("/data")
	fs.AddFile("users.json", usersFixture)
	fs.AddFile("groups.json", groupsFixture)
	return fs
}

func newTestCheckService(fsProvider filesystem.FileSystemProvider, sessPreparer *mockSessionPreparer) *CheckService {
	if fsProvider == nil {
		fsProvider = checkFS()
	}
	if sessPreparer == nil {
		sessPreparer = &mockSessionPreparer{err: fmt.Errorf("mock stop")}
	}
	return NewCheckServiceWithFS(&mockLogger{}, sessPreparer, checksum.New(), fsProvider)
}

func offlineCheckConfig(names ...string) pgseed.CheckConfig {
	return pgseed.CheckConfig{
		Names:       names,
		SearchRoots: []string{"/data"},
	}
}

func TestNewCheckService_NilDeps(t *testing.T) {
	lg := &mockLogger{}
	sm := &mockSessionPreparer{}
	cs := checksum.New()
	fs := filesystem.NewMemoryFileSystem("/data")

	tests := []struct {
		name string
		fn   func()
	}{
		{"nil logger", func() { NewCheckServiceWithFS(nil, sm, cs, fs) }},
		{"nil sessionManager", func() { NewCheckServiceWithFS(lg, nil, cs, fs) }},
		{"nil checksums", func() { NewCheckServiceWithFS(lg, sm, nil, fs) }},
		{"nil fsProvider", func() { NewCheckServiceWithFS(lg, sm, cs, nil) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if r := recover(); r == nil {
					t.Error("Expected panic")
				}
			}()
			tt.fn()
		})
	}
}

func TestCheck_InvalidConfig(t *testing.T) {
	svc := newTestCheckService(nil, nil)

	_, err := svc.Check(context.Background(), pgseed.CheckConfig{})

	if !errors.Is(err, pgseed.ErrInvalidConfig) {
		t.Fatalf("error %v is not ErrInvalidConfig", err)
	}
}

func TestCheck_FixtureNotFound(t *testing.T) {
	fs := filesystem.NewMemoryFileSystem("/data")
	svc := newTestCheckService(fs, nil)

	_, err := svc.Check(context.Background(), offlineCheckConfig("users"))

	if !errors.Is(err, pgseed.ErrFixtureNotFound) {
		t.Fatalf("error %v is not ErrFixtureNotFound", err)
	}
}

func TestCheck_Offline(t *testing.T) {
	sessPreparer := &mockSessionPreparer{}
	svc := newTestCheckService(nil, sessPreparer)

	report, err := svc.Check(context.Background(), offlineCheckConfig("users", "groups"))

	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if report.Records != 3 {
		t.Errorf("Records = %d, want 3", report.Records)
	}
	if len(report.Files) != 2 {
		t.Fatalf("got %d files, want 2", len(report.Files))
	}
	for _, file := range report.Files {
		if file.Checksum != "" {
			t.Errorf("checksum computed without the flag: %s", file.Checksum)
		}
	}
	if sessPreparer.calls != 0 {
		t.Error("offline checks must not open a session")
	}
}

func TestCheck_Offline_SeriesPattern(t *testing.T) {
	fs := filesystem.NewMemoryFileSystem("/data")
	fs.AddFile("events_0.json", `[{"model": "app.event", "pk": 1, "fields": {"kind": "a"}}]`)
	fs.AddFile("events_1.json", `[{"model": "app.event", "pk": 2, "fields": {"kind": "b"}}]`)
	svc := newTestCheckService(fs, nil)

	report, err := svc.Check(context.Background(), offlineCheckConfig("events_*"))

	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if len(report.Files) != 2 {
		t.Fatalf("got %d files, want 2", len(report.Files))
	}
	if report.Records != 2 {
		t.Errorf("Records = %d, want 2", report.Records)
	}
}

func TestCheck_Offline_FillsChecksums(t *testing.T) {
	svc := newTestCheckService(nil, nil)
	config := offlineCheckConfig("users")
	config.Checksum = true

	report, err := svc.Check(context.Background(), config)

	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if len(report.Files) != 1 {
		t.Fatalf("got %d files, want 1", len(report.Files))
	}
	want := checksum.New().CalculateRaw([]byte(usersFixture))
	if report.Files[0].Checksum != want {
		t.Errorf("checksum = %s, want %s", report.Files[0].Checksum, want)
	}
}

func TestCheck_Offline_MalformedFixture(t *testing.T) {
	fs := filesystem.NewMemoryFileSystem("/data")
	fs.AddFile("users.json", `{"model": "app.user"}`)
	svc := newTestCheckService(fs, nil)

	_, err := svc.Check(context.Background(), offlineCheckConfig("users"))

	if !errors.Is(err, pgseed.ErrFixtureParse) {
		t.Fatalf("error %v is not ErrFixtureParse", err)
	}
}

func TestCheck_OnlineStopsAtSessionPreparation(t *testing.T) {
	sessPreparer := &mockSessionPreparer{err: fmt.Errorf("mock stop")}
	svc := newTestCheckService(nil, sessPreparer)
	config := offlineCheckConfig("users")
	config.ConnectionString = "postgresql://localhost/postgres"
	config.DatabaseName = "checkdb"
	config.Verbose = true

	_, err := svc.Check(context.Background(), config)

	if err == nil || !strings.Contains(err.Error(), "mock stop") {
		t.Fatalf("unexpected error: %v", err)
	}
	if sessPreparer.calls != 1 {
		t.Fatalf("PrepareSession called %d times, want 1", sessPreparer.calls)
	}
	if sessPreparer.gotConfig.Database != "checkdb" {
		t.Errorf("session database = %q, want checkdb", sessPreparer.gotConfig.Database)
	}
	if len(sessPreparer.gotFiles) != 1 || sessPreparer.gotFiles[0].Name != "users.json" {
		t.Errorf("session files = %v", sessPreparer.gotFiles)
	}
	if !sessPreparer.gotVerbose {
		t.Error("verbose flag not forwarded")
	}
}
