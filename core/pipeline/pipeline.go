// Package pipeline runs the four deposit phases (prepare, ingest,
// post-process and validate) for one manifest.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cordum/depositor/core/checksum"
	"github.com/cordum/depositor/core/hierarchy"
	"github.com/cordum/depositor/core/infra/locks"
	"github.com/cordum/depositor/core/infra/logging"
	"github.com/cordum/depositor/core/infra/metrics"
	"github.com/cordum/depositor/core/manifest"
	"github.com/cordum/depositor/core/preservation"
	"github.com/cordum/depositor/core/repository"
	"github.com/cordum/depositor/core/structure"
	"github.com/cordum/depositor/core/transform"
)

const (
	component = "pipeline"

	defaultWorkers = 4
	defaultLockTTL = 30 * time.Minute
)

// Phase names used for locks, metrics and logs.
const (
	PhasePrepare     = "prepare"
	PhaseIngest      = "ingest"
	PhasePostProcess = "postprocess"
	PhaseValidate    = "validate"
)

// Options wires a Pipeline. Repository and Events are required.
type Options struct {
	Repository repository.Repository
	Events     *preservation.Recorder
	// Dispatcher defaults to transform.NewDispatcher().
	Dispatcher *transform.Dispatcher
	// Locks serializes runs over the same ledger. Nil runs unlocked.
	Locks     locks.Store
	LockTTL   time.Duration
	Metrics   metrics.Metrics
	Workers   int
	Algorithm checksum.Algorithm
	// ParentLookup selects how parentid values are resolved. Defaults to identifier search.
	ParentLookup hierarchy.By
}

// Pipeline executes deposit phases against one repository.
type Pipeline struct {
	repo       repository.Repository
	events     *preservation.Recorder
	dispatcher *transform.Dispatcher
	linker     *hierarchy.Linker
	structure  *structure.Generator
	locks      locks.Store
	lockTTL    time.Duration
	metrics    metrics.Metrics
	workers    int
	algorithm  checksum.Algorithm
}

func New(opts Options) (*Pipeline, error) {
	if opts.Repository == nil {
		return nil, errors.New("pipeline: repository required")
	}
	if opts.Events == nil {
		return nil, errors.New("pipeline: event recorder required")
	}
	p := &Pipeline{
		repo:       opts.Repository,
		events:     opts.Events,
		dispatcher: opts.Dispatcher,
		linker:     hierarchy.NewLinker(opts.Repository, opts.ParentLookup),
		structure:  structure.NewGenerator(opts.Repository),
		locks:      opts.Locks,
		lockTTL:    opts.LockTTL,
		metrics:    opts.Metrics,
		workers:    opts.Workers,
		algorithm:  opts.Algorithm,
	}
	if p.dispatcher == nil {
		p.dispatcher = transform.NewDispatcher()
	}
	if p.metrics == nil {
		p.metrics = metrics.Noop{}
	}
	if p.workers <= 0 {
		p.workers = defaultWorkers
	}
	if p.lockTTL <= 0 {
		p.lockTTL = defaultLockTTL
	}
	if p.algorithm == "" {
		p.algorithm = checksum.SHA256
	}
	return p, nil
}

// Run executes every phase in order and returns the validation report.
func (p *Pipeline) Run(ctx context.Context, m *manifest.Manifest) (*Report, error) {
	if _, err := p.Prepare(ctx, m); err != nil {
		return nil, err
	}
	if _, err := p.Ingest(ctx, m); err != nil {
		return nil, err
	}
	if _, err := p.PostProcess(ctx, m); err != nil {
		return nil, err
	}
	return p.Validate(ctx, m)
}

// phase runs fn under the ledger lock, timing and logging it.
func (p *Pipeline) phase(ctx context.Context, m *manifest.Manifest, name string, fn func(context.Context) error) error {
	resource := "ledger:" + m.MasterFile()
	start := time.Now()
	logging.Info(component, "phase started", "phase", name, "manifest", m.Path, "objects", len(m.Objects))
	err := locks.WithLock(ctx, p.locks, resource, p.lockTTL, fn)
	p.metrics.ObservePhaseDuration(name, time.Since(start).Seconds())
	if err != nil {
		logging.Error(component, "phase failed", "phase", name, "error", err)
		return err
	}
	logging.Info(component, "phase finished", "phase", name, "duration", time.Since(start).Round(time.Millisecond))
	return nil
}

func objectKey(i int, obj *manifest.Object) (string, error) {
	key, err := manifest.Key(obj)
	if err != nil {
		return "", fmt.Errorf("object %d: %w", i, err)
	}
	return key, nil
}
