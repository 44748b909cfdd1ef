package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/pgseed/pgseed/pkg/pgseed"
)

func validDumpConfig() pgseed.DumpConfig {
	return pgseed.DumpConfig{
		Kinds:            []string{"blog.entry"},
		OutputDir:        "/tmp/fixtures",
		ChunkSize:        pgseed.DefaultChunkSize,
		DatabaseName:     "testdb",
		ConnectionString: "postgresql://localhost/postgres",
	}
}

func newTestDumpService(dbMgr *mockDatabaseManager, sessPreparer *mockSessionPreparer, mgmtConn managementDBConnFunc) *DumpService {
	cf, _, lg, _, _ := validLoadDeps()
	if dbMgr == nil {
		dbMgr = &mockDatabaseManager{existsResult: true}
	}
	if sessPreparer == nil {
		sessPreparer = &mockSessionPreparer{err: fmt.Errorf("mock stop")}
	}
	svc := NewDumpService(cf, lg, sessPreparer, dbMgr)
	if mgmtConn != nil {
		svc.mgmtConnector = mgmtConn
	}
	return svc
}

// dumpSchema mirrors a small introspected model for kind resolution tests.
func dumpSchema() *pgseed.Schema {
	author := &pgseed.KindInfo{
		Kind:       "blog.author",
		Table:      "blog_author",
		PrimaryKey: "id",
		Columns:    []pgseed.ColumnInfo{{Name: "id"}, {Name: "email"}},
	}
	entry := &pgseed.KindInfo{
		Kind:       "blog.entry",
		Table:      "blog_entry",
		PrimaryKey: "id",
		Columns:    []pgseed.ColumnInfo{{Name: "id"}, {Name: "title"}},
	}
	return pgseed.NewSchema([]*pgseed.KindInfo{author, entry})
}

func TestNewDumpService_NilDeps(t *testing.T) {
	cf, _, lg, sm, dm := validLoadDeps()

	tests := []struct {
		name string
		fn   func()
	}{
		{"nil connectorFactory", func() { NewDumpService(nil, lg, sm, dm) }},
		{"nil logger", func() { NewDumpService(cf, nil, sm, dm) }},
		{"nil sessionManager", func() { NewDumpService(cf, lg, nil, dm) }},
		{"nil dbManager", func() { NewDumpService(cf, lg, sm, nil) }},
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

func TestDump_InvalidConfig(t *testing.T) {
	sessPreparer := &mockSessionPreparer{}
	svc := newTestDumpService(nil, sessPreparer, nil)

	_, err := svc.Dump(context.Background(), pgseed.DumpConfig{})

	if !errors.Is(err, pgseed.ErrInvalidConfig) {
		t.Fatalf("error %v is not ErrInvalidConfig", err)
	}
	if sessPreparer.calls != 0 {
		t.Error("session must not be prepared for invalid config")
	}
}

func TestDump_TargetDatabaseMissing(t *testing.T) {
	dbMgr := &mockDatabaseManager{existsResult: false}
	svc := newTestDumpService(dbMgr, nil, successfulMgmtConn())

	_, err := svc.Dump(context.Background(), validDumpConfig())

	if !errors.Is(err, pgseed.ErrConnectionFailed) {
		t.Fatalf("error %v is not ErrConnectionFailed", err)
	}
	if !strings.Contains(err.Error(), `target database "testdb" does not exist`) {
		t.Errorf("unexpected message: %v", err)
	}
}

func TestDump_ManagementConnectFails(t *testing.T) {
	svc := newTestDumpService(nil, nil, failingMgmtConn(fmt.Errorf("no route to host")))

	_, err := svc.Dump(context.Background(), validDumpConfig())

	if err == nil || !strings.Contains(err.Error(), "no route to host") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDump_StopsAtSessionPreparation(t *testing.T) {
	sessPreparer := &mockSessionPreparer{err: fmt.Errorf("mock stop")}
	svc := newTestDumpService(nil, sessPreparer, successfulMgmtConn())
	config := validDumpConfig()
	config.Verbose = true

	_, err := svc.Dump(context.Background(), config)

	if err == nil || !strings.Contains(err.Error(), "mock stop") {
		t.Fatalf("unexpected error: %v", err)
	}
	if sessPreparer.calls != 1 {
		t.Fatalf("PrepareSession called %d times, want 1", sessPreparer.calls)
	}
	if sessPreparer.gotConfig.Database != "testdb" {
		t.Errorf("session database = %q, want testdb", sessPreparer.gotConfig.Database)
	}
	if sessPreparer.gotFiles != nil {
		t.Errorf("dump sessions carry no fixture files, got %v", sessPreparer.gotFiles)
	}
	if !sessPreparer.gotVerbose {
		t.Error("verbose flag not forwarded")
	}
}

func TestResolveDumpKinds_All(t *testing.T) {
	config := pgseed.DumpConfig{All: true}

	kinds, err := resolveDumpKinds(dumpSchema(), config)

	if err != nil {
		t.Fatalf("resolveDumpKinds failed: %v", err)
	}
	if len(kinds) != 2 {
		t.Fatalf("got %d kinds, want 2", len(kinds))
	}
	if kinds[0].Kind != "blog.author" || kinds[1].Kind != "blog.entry" {
		t.Errorf("kinds out of order: %v, %v", kinds[0].Kind, kinds[1].Kind)
	}
}

func TestResolveDumpKinds_DeduplicatesTags(t *testing.T) {
	config := pgseed.DumpConfig{Kinds: []string{"blog.entry", "blog.entry", "blog.author"}}

	kinds, err := resolveDumpKinds(dumpSchema(), config)

	if err != nil {
		t.Fatalf("resolveDumpKinds failed: %v", err)
	}
	if len(kinds) != 2 {
		t.Fatalf("got %d kinds, want 2", len(kinds))
	}
	if kinds[0].Kind != "blog.entry" || kinds[1].Kind != "blog.author" {
		t.Errorf("request order not preserved: %v, %v", kinds[0].Kind, kinds[1].Kind)
	}
}

func TestResolveDumpKinds_InvalidTag(t *testing.T) {
	config := pgseed.DumpConfig{Kinds: []string{"notakind"}}

	_, err := resolveDumpKinds(dumpSchema(), config)

	if !errors.Is(err, pgseed.ErrInvalidConfig) {
		t.Fatalf("error %v is not ErrInvalidConfig", err)
	}
	if !strings.Contains(err.Error(), `invalid kind tag "notakind"`) {
		t.Errorf("unexpected message: %v", err)
	}
}

func TestResolveDumpKinds_UnknownKind(t *testing.T) {
	config := pgseed.DumpConfig{Kinds: []string{"blog.ghost"}}

	_, err := resolveDumpKinds(dumpSchema(), config)

	if !errors.Is(err, pgseed.ErrInvalidConfig) {
		t.Fatalf("error %v is not ErrInvalidConfig", err)
	}
	if !strings.Contains(err.Error(), "matches no table") {
		t.Errorf("unexpected message: %v", err)
	}
}
