package loader

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgseed/pgseed/pkg/pgseed"
)

// Pipeline executes one load run over an acquired connection: batched
// inserts and the first reference pass inside the main transaction,
// sequence resynchronization after its commit, then retries and
// association linking in a follow-up transaction.
type Pipeline struct {
	inserter *BulkInserter
	resolver *DeferredResolver
	linker   *ManyToManyLinker
	scope    *ConstraintScope
	logger   pgseed.Logger
}

// NewPipeline creates a Pipeline with all phases wired.
//
// Panics if logger is nil.
func NewPipeline(logger pgseed.Logger) *Pipeline {
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &Pipeline{
		inserter: NewBulkInserter(logger),
		resolver: NewDeferredResolver(logger),
		linker:   NewManyToManyLinker(logger),
		scope:    NewConstraintScope(logger),
		logger:   logger,
	}
}

// kindBatch pairs a batch with its kind's schema info.
type kindBatch struct {
	info  *pgseed.KindInfo
	batch *pgseed.EntityBatch
}

// Run loads the records and returns a report. The report is non-nil
// whenever the main transaction committed, even if a later phase failed;
// a nil report means the store is untouched.
func (p *Pipeline) Run(ctx context.Context, conn *pgxpool.Conn, schema *pgseed.Schema, records []*pgseed.EntityRecord) (*pgseed.LoadReport, error) {
	start := time.Now()

	batches, err := batchByKind(schema, records)
	if err != nil {
		return nil, err
	}
	p.logger.Verbose("Loading %d record(s) across %d kind(s)", len(records), len(batches))

	report := &pgseed.LoadReport{
		RunID:   uuid.New(),
		Records: len(records),
	}

	queue, err := p.runMainTransaction(ctx, conn, schema, records, batches, report)
	if err != nil {
		return nil, err
	}

	// The main transaction is durable from here on. Every failure below
	// still returns the report so callers can see what landed.
	infos := make([]*pgseed.KindInfo, len(batches))
	for i, kb := range batches {
		infos[i] = kb.info
	}
	report.Resynced, report.Warnings = p.scope.Resync(ctx, conn, infos)

	report.Retried = len(queue)
	if err := p.runFollowUpTransaction(ctx, conn, schema, batches, queue, report); err != nil {
		report.Duration = time.Since(start)
		return report, err
	}

	report.Duration = time.Since(start)
	return report, nil
}

// runMainTransaction primes references against pre-existing rows, inserts
// every batch, and runs the first reference pass, all under deferred
// constraints. It returns the records whose references are still open, for
// the follow-up transaction.
func (p *Pipeline) runMainTransaction(ctx context.Context, conn *pgxpool.Conn, schema *pgseed.Schema, records []*pgseed.EntityRecord, batches []kindBatch, report *pgseed.LoadReport) ([]*pgseed.EntityRecord, error) {
	tx, err := conn.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin load transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := p.scope.Defer(ctx, tx, schema); err != nil {
		return nil, err
	}

	// References into rows that predate this run resolve now, so reloaded
	// records carry real keys into their conflict checks. Only references
	// into rows this run creates stay deferred.
	primed, err := p.resolver.PrimeReferences(ctx, tx, schema, records)
	if err != nil {
		return nil, err
	}

	var queue []*pgseed.EntityRecord
	for _, kb := range batches {
		inserted, deferred, err := p.inserter.InsertBatch(ctx, tx, kb.info, kb.batch)
		if err != nil {
			return nil, err
		}
		report.Inserted += inserted
		queue = append(queue, deferred...)
	}

	patched, requeue, err := p.resolver.ResolvePass(ctx, tx, schema, queue, false)
	if err != nil {
		return nil, err
	}
	report.Patched = primed + patched

	if err := tx.Commit(ctx); err != nil {
		return nil, commitError("load", err)
	}
	return requeue, nil
}

// runFollowUpTransaction resolves the remaining references (now final:
// misses are errors) and converges associations.
func (p *Pipeline) runFollowUpTransaction(ctx context.Context, conn *pgxpool.Conn, schema *pgseed.Schema, batches []kindBatch, queue []*pgseed.EntityRecord, report *pgseed.LoadReport) error {
	linkable := false
	for _, kb := range batches {
		for _, rec := range kb.batch.Records {
			if rec.HasAssociations() {
				linkable = true
				break
			}
		}
	}
	if len(queue) == 0 && !linkable {
		return nil
	}

	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin follow-up transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, _, err := p.resolver.ResolvePass(ctx, tx, schema, queue, true); err != nil {
		return err
	}

	for _, kb := range batches {
		for _, rec := range kb.batch.Records {
			linked, err := p.linker.LinkRecord(ctx, tx, schema, rec)
			if err != nil {
				return err
			}
			report.Linked += linked
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return commitError("follow-up", err)
	}
	return nil
}

// commitError maps constraint failures surfacing at commit. Deferred
// foreign keys check there, so a 23503 at load commit means a placeholder
// or raw key never matched a real row.
func commitError(phase string, err error) error {
	if pgErr, ok := pgIntegrityError(err); ok {
		if pgErr.Code == "23503" {
			return fmt.Errorf("%w: foreign key failed at %s commit: %s", pgseed.ErrUnresolvableReference, phase, pgErr.Message)
		}
		return fmt.Errorf("%w: constraint failed at %s commit: %s", pgseed.ErrIntegrity, phase, pgErr.Message)
	}
	return fmt.Errorf("failed to commit %s transaction: %w", phase, err)
}

// batchByKind groups records into per-kind batches, ordered by first
// appearance, preserving record order within each batch.
func batchByKind(schema *pgseed.Schema, records []*pgseed.EntityRecord) ([]kindBatch, error) {
	index := make(map[pgseed.Kind]int)
	var batches []kindBatch

	for _, rec := range records {
		i, seen := index[rec.Kind]
		if !seen {
			info, ok := schema.Resolve(rec.Kind)
			if !ok {
				return nil, fmt.Errorf("record %s has unknown kind %s", rec.Ref, rec.Kind)
			}
			i = len(batches)
			index[rec.Kind] = i
			batches = append(batches, kindBatch{
				info:  info,
				batch: &pgseed.EntityBatch{Kind: rec.Kind},
			})
		}
		batches[i].batch.Records = append(batches[i].batch.Records, rec)
	}
	return batches, nil
}
