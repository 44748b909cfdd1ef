package services_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pgseed/pgseed/internal/checksum"
	"github.com/pgseed/pgseed/internal/db"
	"github.com/pgseed/pgseed/internal/db/manager"
	"github.com/pgseed/pgseed/internal/files/filesystem"
	"github.com/pgseed/pgseed/internal/logging"
	"github.com/pgseed/pgseed/internal/services"
	testhelpers "github.com/pgseed/pgseed/internal/testing"
	"github.com/pgseed/pgseed/pkg/pgseed"
)

const servicesDDL = `
CREATE TABLE app_author (
	id serial PRIMARY KEY,
	email text NOT NULL UNIQUE,
	name text NOT NULL
);

CREATE TABLE app_book (
	id serial PRIMARY KEY,
	author_id integer NOT NULL REFERENCES app_author (id) DEFERRABLE INITIALLY IMMEDIATE,
	title text NOT NULL,
	UNIQUE (author_id, title)
);
`

const (
	authorsFixtureJSON = `[
  {"model": "app.author", "pk": 1, "fields": {"email": "ada@example.com", "name": "Ada"}},
  {"model": "app.author", "pk": 2, "fields": {"email": "bob@example.com", "name": "Bob"}}
]`
	booksFixtureJSON = `[
  {"model": "app.book", "pk": null, "fields": {"author": ["ada@example.com"], "title": "Intro"}},
  {"model": "app.book", "pk": null, "fields": {"author": 2, "title": "Sequel"}}
]`
)

type scriptedApprover struct {
	approved bool
	plans    []pgseed.LoadPlan
}

func (a *scriptedApprover) RequestApproval(_ context.Context, plan pgseed.LoadPlan) (bool, error) {
	a.plans = append(a.plans, plan)
	return a.approved, nil
}

// newServicesDB provisions a scratch database, applies ddl, and hands back
// the management connection string plus a config aimed at the new database.
func newServicesDB(t *testing.T, dbName, ddl string) (string, *pgseed.ConnectionConfig) {
	t.Helper()
	connString := testhelpers.RequireDatabase(t)
	ctx := context.Background()

	cleanup := testhelpers.CreateTestDB(t, connString, dbName)
	t.Cleanup(cleanup)

	pool := testhelpers.GetTestPool(t, connString, dbName)
	if _, err := pool.Exec(ctx, ddl); err != nil {
		t.Fatalf("Failed to create tables: %v", err)
	}

	connConfig, err := db.ParseConnectionString(connString)
	if err != nil {
		t.Fatalf("Failed to parse connection string: %v", err)
	}
	connConfig.Database = dbName
	return connString, connConfig
}

func seedFixtureFS() filesystem.FileSystemProvider {
	fs := filesystem.NewMemoryFileSystem("/data")
	fs.AddFile("authors.json", authorsFixtureJSON)
	fs.AddFile("books.json", booksFixtureJSON)
	return fs
}

func newIntegrationLoader(fs filesystem.FileSystemProvider, approver pgseed.Approver) *services.LoadService {
	logger := logging.NewNullLogger()
	sm := services.NewSessionManagerWithFS(db.NewConnector, checksum.New(), fs, logger)
	return services.NewLoadServiceWithFS(db.NewConnector, approver, logger, sm, manager.New(), fs)
}

func newIntegrationDumper() *services.DumpService {
	logger := logging.NewNullLogger()
	sm := services.NewSessionManager(db.NewConnector, checksum.New(), logger)
	return services.NewDumpService(db.NewConnector, logger, sm, manager.New())
}

func newIntegrationChecker() *services.CheckService {
	logger := logging.NewNullLogger()
	sm := services.NewSessionManager(db.NewConnector, checksum.New(), logger)
	return services.NewCheckService(logger, sm, checksum.New())
}

func TestLoadService_Load_Integration(t *testing.T) {
	testhelpers.SkipIfShort(t)
	ctx := context.Background()

	testDB := "pgseed_test_svc_load"
	connString, _ := newServicesDB(t, testDB, servicesDDL)

	approver := &scriptedApprover{approved: true}
	svc := newIntegrationLoader(seedFixtureFS(), approver)

	report, err := svc.Load(ctx, pgseed.LoadConfig{
		Names:            []string{"authors", "books"},
		SearchRoots:      []string{"/data"},
		DatabaseName:     testDB,
		ConnectionString: connString,
	})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if report.Records != 4 || report.Inserted != 4 {
		t.Errorf("Records=%d Inserted=%d, want 4/4", report.Records, report.Inserted)
	}
	if len(report.Files) != 2 {
		t.Errorf("got %d files, want 2", len(report.Files))
	}

	if len(approver.plans) != 1 {
		t.Fatalf("approver consulted %d times, want 1", len(approver.plans))
	}
	plan := approver.plans[0]
	if plan.Database != testDB || plan.Files != 2 || plan.Records != 4 {
		t.Errorf("unexpected plan: %+v", plan)
	}

	pool := testhelpers.GetTestPool(t, connString, testDB)
	var authorID int
	err = pool.QueryRow(ctx, `SELECT author_id FROM app_book WHERE title = 'Intro'`).Scan(&authorID)
	if err != nil {
		t.Fatalf("Failed to query book: %v", err)
	}
	if authorID != 1 {
		t.Errorf("Intro bound to author %d, want 1 (ada)", authorID)
	}
}

func TestLoadService_ApprovalDenied_Integration(t *testing.T) {
	testhelpers.SkipIfShort(t)
	ctx := context.Background()

	testDB := "pgseed_test_svc_denied"
	connString, _ := newServicesDB(t, testDB, servicesDDL)

	svc := newIntegrationLoader(seedFixtureFS(), &scriptedApprover{approved: false})

	_, err := svc.Load(ctx, pgseed.LoadConfig{
		Names:            []string{"authors", "books"},
		SearchRoots:      []string{"/data"},
		DatabaseName:     testDB,
		ConnectionString: connString,
	})
	if err != pgseed.ErrApprovalDenied {
		t.Fatalf("error = %v, want ErrApprovalDenied", err)
	}

	pool := testhelpers.GetTestPool(t, connString, testDB)
	var count int
	if err := pool.QueryRow(ctx, `SELECT count(*) FROM app_author`).Scan(&count); err != nil {
		t.Fatalf("Failed to count authors: %v", err)
	}
	if count != 0 {
		t.Errorf("denied load wrote %d rows", count)
	}
}

func TestDumpAndCheckServices_Integration(t *testing.T) {
	testhelpers.SkipIfShort(t)
	ctx := context.Background()

	testDB := "pgseed_test_svc_dump"
	connString, _ := newServicesDB(t, testDB, servicesDDL)

	pool := testhelpers.GetTestPool(t, connString, testDB)
	_, err := pool.Exec(ctx, `
		INSERT INTO app_author (id, email, name) VALUES (1, 'ada@example.com', 'Ada'), (2, 'bob@example.com', 'Bob');
		INSERT INTO app_book (author_id, title) VALUES (1, 'Intro'), (2, 'Sequel');
	`)
	if err != nil {
		t.Fatalf("Failed to seed rows: %v", err)
	}

	outDir := t.TempDir()
	report, err := newIntegrationDumper().Dump(ctx, pgseed.DumpConfig{
		All:              true,
		OutputDir:        outDir,
		ChunkSize:        pgseed.DefaultChunkSize,
		NaturalKeys:      true,
		DatabaseName:     testDB,
		ConnectionString: connString,
	})
	if err != nil {
		t.Fatalf("Dump failed: %v", err)
	}

	if report.Kinds != 2 || report.Records != 4 || len(report.Files) != 2 {
		t.Errorf("Kinds=%d Records=%d Files=%d, want 2/4/2", report.Kinds, report.Records, len(report.Files))
	}

	bookData, err := os.ReadFile(filepath.Join(outDir, "app.book_0.json"))
	if err != nil {
		t.Fatalf("Failed to read dumped books: %v", err)
	}
	if !bytes.Contains(bookData, []byte(`"author": ["ada@example.com"]`)) {
		t.Errorf("natural key tuple missing from dump:\n%s", bookData)
	}

	checkReport, err := newIntegrationChecker().Check(ctx, pgseed.CheckConfig{
		Names:            []string{"app.author_*", "app.book_*"},
		SearchRoots:      []string{outDir},
		DatabaseName:     testDB,
		ConnectionString: connString,
	})
	if err != nil {
		t.Fatalf("Check of dumped fixtures failed: %v", err)
	}
	if checkReport.Records != 4 || len(checkReport.Files) != 2 {
		t.Errorf("check saw %d records in %d files, want 4 in 2", checkReport.Records, len(checkReport.Files))
	}
}

// A dump loaded into an empty database must dump back byte-identical.
func TestServices_DumpLoadDump_RoundTrip(t *testing.T) {
	testhelpers.SkipIfShort(t)
	ctx := context.Background()

	sourceDB := "pgseed_test_rt_source"
	connString, _ := newServicesDB(t, sourceDB, servicesDDL)

	sourcePool := testhelpers.GetTestPool(t, connString, sourceDB)
	_, err := sourcePool.Exec(ctx, `
		INSERT INTO app_author (id, email, name) VALUES (1, 'ada@example.com', 'Ada'), (2, 'bob@example.com', 'Bob');
		INSERT INTO app_book (id, author_id, title) VALUES (1, 1, 'Intro'), (2, 2, 'Sequel');
	`)
	if err != nil {
		t.Fatalf("Failed to seed rows: %v", err)
	}

	firstDir := t.TempDir()
	dumpConfig := pgseed.DumpConfig{
		All:              true,
		OutputDir:        firstDir,
		ChunkSize:        pgseed.DefaultChunkSize,
		NaturalKeys:      true,
		DatabaseName:     sourceDB,
		ConnectionString: connString,
	}
	if _, err := newIntegrationDumper().Dump(ctx, dumpConfig); err != nil {
		t.Fatalf("First dump failed: %v", err)
	}

	targetDB := "pgseed_test_rt_target"
	newServicesDB(t, targetDB, servicesDDL)

	logger := logging.NewNullLogger()
	sm := services.NewSessionManager(db.NewConnector, checksum.New(), logger)
	loadSvc := services.NewLoadService(db.NewConnector, &scriptedApprover{approved: true}, logger, sm, manager.New())

	loadReport, err := loadSvc.Load(ctx, pgseed.LoadConfig{
		Names:            []string{"app.author_*", "app.book_*"},
		SearchRoots:      []string{firstDir},
		DatabaseName:     targetDB,
		ConnectionString: connString,
		Force:            true,
	})
	if err != nil {
		t.Fatalf("Load of dumped fixtures failed: %v", err)
	}
	if loadReport.Inserted != 4 {
		t.Errorf("Inserted = %d, want 4", loadReport.Inserted)
	}

	secondDir := t.TempDir()
	dumpConfig.OutputDir = secondDir
	dumpConfig.DatabaseName = targetDB
	if _, err := newIntegrationDumper().Dump(ctx, dumpConfig); err != nil {
		t.Fatalf("Second dump failed: %v", err)
	}

	for _, name := range []string{"app.author_0.json", "app.book_0.json"} {
		first, err := os.ReadFile(filepath.Join(firstDir, name))
		if err != nil {
			t.Fatalf("Failed to read first dump %s: %v", name, err)
		}
		second, err := os.ReadFile(filepath.Join(secondDir, name))
		if err != nil {
			t.Fatalf("Failed to read second dump %s: %v", name, err)
		}
		if !bytes.Equal(first, second) {
			t.Errorf("%s differs between dumps:\n--- first\n%s\n--- second\n%s", name, first, second)
		}
	}
}
