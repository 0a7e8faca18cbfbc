// Package migrate diffs schema snapshots, manages the migration file
// store, and applies pending migrations against a checksum-verified
// history under a database-enforced lock.
package migrate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/syssam/prax/dialect"
	"github.com/syssam/prax/schema"
)

// Engine drives the migration workflow: planning the directory against
// the history under the resolution protocol, applying pending files, and
// rolling the last applied one back.
type Engine struct {
	drv                    dialect.Driver
	dir                    *Dir
	history                History
	shadow                 *Shadow
	res                    *Resolutions
	source                 *schema.Schema
	target                 *schema.Schema
	dryRun                 bool
	allowDataLoss          bool
	failOnChecksumMismatch bool
	log                    *slog.Logger
	clock                  func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithDir sets the migration directory.
func WithDir(dir *Dir) Option {
	return func(e *Engine) { e.dir = dir }
}

// WithHistory overrides the history repository. The default is a
// SQLHistory on the engine's driver.
func WithHistory(h History) Option {
	return func(e *Engine) { e.history = h }
}

// WithResolutions overrides the resolution config. The default is the
// resolutions.toml next to the migration files.
func WithResolutions(r *Resolutions) Option {
	return func(e *Engine) { e.res = r }
}

// WithShadow attaches a shadow database for drift verification.
func WithShadow(s *Shadow) Option {
	return func(e *Engine) { e.shadow = s }
}

// WithSchemas attaches the schema snapshots the plan diffs; Apply then
// enforces the data-loss guard on that diff.
func WithSchemas(source, target *schema.Schema) Option {
	return func(e *Engine) { e.source, e.target = source, target }
}

// WithDryRun makes Apply and Rollback log what they would do instead of
// executing.
func WithDryRun(dryRun bool) Option {
	return func(e *Engine) { e.dryRun = dryRun }
}

// WithAllowDataLoss permits plans whose diff drops tables or columns.
func WithAllowDataLoss(allow bool) Option {
	return func(e *Engine) { e.allowDataLoss = allow }
}

// WithFailOnChecksumMismatch turns unresolved checksum mismatches from
// warnings into planning errors.
func WithFailOnChecksumMismatch(fail bool) Option {
	return func(e *Engine) { e.failOnChecksumMismatch = fail }
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithClock overrides the time source.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) { e.clock = clock }
}

// NewEngine returns an Engine on the given driver. A migration directory
// is required.
func NewEngine(drv dialect.Driver, opts ...Option) (*Engine, error) {
	e := &Engine{drv: drv, clock: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	if e.dir == nil {
		return nil, errors.New("prax: migration engine requires a directory, see WithDir")
	}
	if e.history == nil {
		e.history = NewSQLHistory(drv)
	}
	if e.log == nil {
		e.log = slog.Default()
	}
	return e, nil
}

// Dir returns the engine's migration directory.
func (e *Engine) Dir() *Dir {
	return e.dir
}

func (e *Engine) resolutions() (*Resolutions, error) {
	if e.res != nil {
		return e.res, nil
	}
	res, err := e.dir.LoadResolutions()
	if err != nil {
		return nil, err
	}
	e.res = res
	return res, nil
}

// Plan reconciles the migration directory against the history. It creates
// the history table when absent but writes nothing else; baselines are
// recorded by Apply, so planning twice yields the same plan.
func (e *Engine) Plan(ctx context.Context) (*Plan, error) {
	if err := e.history.Initialize(ctx); err != nil {
		return nil, err
	}
	applied, err := e.history.Applied(ctx)
	if err != nil {
		return nil, err
	}
	return e.plan(applied)
}

// PlanWithDiff plans like Plan and attaches the diff between the two
// schema snapshots, computed for the engine's dialect.
func (e *Engine) PlanWithDiff(ctx context.Context, source, target *schema.Schema) (*Plan, error) {
	plan, err := e.Plan(ctx)
	if err != nil {
		return nil, err
	}
	plan.Diff = DiffDialect(source, target, e.drv.Dialect())
	return plan, nil
}

// plan runs the resolution protocol over the directory files.
func (e *Engine) plan(applied []AppliedMigration) (*Plan, error) {
	res, err := e.resolutions()
	if err != nil {
		return nil, err
	}
	now := e.clock()
	byID := make(map[string]AppliedMigration, len(applied))
	for _, rec := range applied {
		byID[rec.ID] = rec
	}
	e.log.Debug("planning migrations", "files", len(e.dir.Files()), "history", historySummary(applied))

	plan := &Plan{}
	known := make(map[string]bool, len(e.dir.Files()))
	for _, f := range e.dir.Files() {
		if r, ok := res.Lookup(f.ID); ok && r.Expired(now) {
			e.log.Warn("resolution expired", "id", f.ID, "type", r.Action.Type, "expired_at", r.ExpiresAt)
		}
		eff := res.EffectiveID(f.ID, now)
		known[f.ID], known[eff] = true, true
		r := res.For(f.ID, now)
		if r != nil {
			switch r.Action.Type {
			case ActionSkip:
				plan.Skipped = append(plan.Skipped, f.ID)
				continue
			case ActionBaseline:
				if _, ok := byID[eff]; !ok {
					plan.Baselined = append(plan.Baselined, f)
					continue
				}
			case ActionForceApply:
				plan.Pending = append(plan.Pending, f)
				continue
			}
		}
		rec, ok := byID[eff]
		if !ok {
			plan.Pending = append(plan.Pending, f)
			continue
		}
		if rec.Checksum == f.Checksum {
			continue
		}
		m := &Mismatch{ID: f.ID, Expected: rec.Checksum, Actual: f.Checksum}
		if r != nil && r.Action.Type == ActionAcceptChecksum &&
			r.Action.FromChecksum == rec.Checksum && r.Action.ToChecksum == f.Checksum {
			plan.Resolved = append(plan.Resolved, m)
			continue
		}
		plan.Unresolved = append(plan.Unresolved, m)
		e.log.Warn("unresolved checksum mismatch", "id", m.ID, "expected", m.Expected, "actual", m.Actual)
		e.log.Warn("to accept the drift, add to " + ResolutionsFile + ":\n" + m.ResolutionSnippet())
	}
	for _, rec := range applied {
		if !known[rec.ID] {
			e.log.Warn("applied migration has no file on disk", "id", rec.ID)
		}
	}
	e.warnOutOfOrder(plan, applied, res, now)
	if e.failOnChecksumMismatch && len(plan.Unresolved) > 0 {
		m := plan.Unresolved[0]
		return nil, NewChecksumMismatchError(m.ID, m.Expected, m.Actual)
	}
	e.log.Info("migration plan ready", "plan", plan.Summary())
	return plan, nil
}

// warnOutOfOrder flags pending files that sort before the newest applied
// id, the signature of concurrent branches merging. A resolve_conflict
// entry acknowledges the interleave and silences the warning.
func (e *Engine) warnOutOfOrder(plan *Plan, applied []AppliedMigration, res *Resolutions, now time.Time) {
	if len(applied) == 0 {
		return
	}
	newest := applied[len(applied)-1].ID
	for _, f := range plan.Pending {
		if f.ID >= newest {
			continue
		}
		if r := res.For(f.ID, now); r != nil && r.Action.Type == ActionResolveConflict {
			e.log.Info("out-of-order migration acknowledged", "id", f.ID, "strategy", r.Action.Strategy)
			continue
		}
		e.log.Warn("migration is out of order", "id", f.ID, "newest_applied", newest)
	}
}

// Apply acquires the migration lock, re-plans, and applies the pending
// files in id order. Baselined files are recorded without executing. The
// first statement failure stops the run; everything already recorded
// stays recorded.
func (e *Engine) Apply(ctx context.Context) (plan *Plan, err error) {
	unlock, err := e.history.Lock(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { err = errors.Join(err, unlock()) }()
	if err := e.history.Initialize(ctx); err != nil {
		return nil, err
	}
	applied, err := e.history.Applied(ctx)
	if err != nil {
		return nil, err
	}
	plan, err = e.plan(applied)
	if err != nil {
		return nil, err
	}
	if e.source != nil || e.target != nil {
		plan.Diff = DiffDialect(e.source, e.target, e.drv.Dialect())
	}
	if plan.Diff != nil && plan.Diff.HasDrops() && !e.allowDataLoss {
		return nil, NewDataLossError(plan.Diff.Drops())
	}
	res, err := e.resolutions()
	if err != nil {
		return nil, err
	}
	now := e.clock()
	byID := make(map[string]bool, len(applied))
	for _, rec := range applied {
		byID[rec.ID] = true
	}
	for _, f := range plan.Baselined {
		eff := res.EffectiveID(f.ID, now)
		if e.dryRun {
			e.log.Warn("[DRY RUN] would baseline migration", "id", f.ID)
			continue
		}
		if err := e.history.RecordApplied(ctx, eff, f.Checksum, 0); err != nil {
			return nil, err
		}
		e.log.Info("baselined migration", "id", f.ID)
	}
	for _, f := range plan.Pending {
		if e.dryRun {
			e.log.Warn("[DRY RUN] would apply migration", "id", f.ID)
			continue
		}
		start := e.clock()
		if err := e.exec(ctx, f.UpSQL); err != nil {
			return nil, NewApplyError(f.ID, err)
		}
		duration := e.clock().Sub(start).Milliseconds()
		eff := res.EffectiveID(f.ID, now)
		if byID[eff] {
			// Re-applied under force_apply; replace the old row.
			if err := e.history.RecordRollback(ctx, eff); err != nil {
				return nil, err
			}
		}
		if err := e.history.RecordApplied(ctx, f.ID, f.Checksum, duration); err != nil {
			return nil, err
		}
		e.log.Info("applied migration", "id", f.ID, "duration_ms", duration)
	}
	return plan, nil
}

// Rollback reverts the most recently applied migration using its down
// script and removes its history row.
func (e *Engine) Rollback(ctx context.Context) (err error) {
	unlock, err := e.history.Lock(ctx)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, unlock()) }()
	if err := e.history.Initialize(ctx); err != nil {
		return err
	}
	last, err := e.history.LastApplied(ctx)
	if err != nil {
		return err
	}
	if last == nil {
		return ErrNothingToRollback
	}
	f, err := e.fileForRecord(last.ID)
	if err != nil {
		return err
	}
	if f.DownSQL == "" {
		return fmt.Errorf("prax: migration %s has no down script", f.ID)
	}
	if e.dryRun {
		e.log.Warn("[DRY RUN] would roll back migration", "id", f.ID)
		return nil
	}
	if err := e.exec(ctx, f.DownSQL); err != nil {
		return NewApplyError(f.ID, err)
	}
	if err := e.history.RecordRollback(ctx, last.ID); err != nil {
		return err
	}
	e.log.Info("rolled back migration", "id", f.ID)
	return nil
}

// fileForRecord finds the file backing a history id, following renames.
func (e *Engine) fileForRecord(id string) (*File, error) {
	if f, ok := e.dir.File(id); ok {
		return f, nil
	}
	res, err := e.resolutions()
	if err != nil {
		return nil, err
	}
	now := e.clock()
	for _, f := range e.dir.Files() {
		if res.EffectiveID(f.ID, now) == id {
			return f, nil
		}
	}
	return nil, fmt.Errorf("prax: migration %s has no file on disk", id)
}

// Generate diffs the two snapshots for the engine's dialect and writes a
// new migration file. The data-loss guard applies here too, so a dropped
// table never reaches the file store unnoticed.
func (e *Engine) Generate(name string, source, target *schema.Schema) (*File, error) {
	diff := DiffDialect(source, target, e.drv.Dialect())
	if diff.HasDrops() && !e.allowDataLoss {
		return nil, NewDataLossError(diff.Drops())
	}
	f, err := e.dir.generateAt(e.drv.Dialect(), name, diff, e.clock())
	if err != nil {
		return nil, err
	}
	e.log.Info("generated migration", "id", f.ID)
	return f, nil
}

// VerifyShadow replays the directory on the shadow database and diffs the
// declared target schema against the replayed one. A nil report means no
// drift. The shadow is dropped before returning.
func (e *Engine) VerifyShadow(ctx context.Context, target *schema.Schema) (report *DriftReport, err error) {
	if e.shadow == nil {
		return nil, errors.New("prax: no shadow database configured, see WithShadow")
	}
	if _, err := e.shadow.Create(ctx); err != nil {
		return nil, err
	}
	defer func() { err = errors.Join(err, e.shadow.Drop(ctx)) }()
	if err := e.shadow.ApplyMigrations(ctx, e.dir.Files()); err != nil {
		return nil, err
	}
	return e.shadow.Drift(ctx, target)
}

// exec runs a migration script statement by statement, inside one
// transaction when the dialect supports transactional DDL.
func (e *Engine) exec(ctx context.Context, script string) error {
	stmts := Statements(script)
	if !dialect.SupportsTransactionalDDL(e.drv.Dialect()) {
		for _, stmt := range stmts {
			if err := e.drv.Exec(ctx, stmt, []any{}, nil); err != nil {
				return err
			}
		}
		return nil
	}
	tx, err := e.drv.Tx(ctx)
	if err != nil {
		return err
	}
	for _, stmt := range stmts {
		if err := tx.Exec(ctx, stmt, []any{}, nil); err != nil {
			return errors.Join(err, tx.Rollback())
		}
	}
	return tx.Commit()
}
