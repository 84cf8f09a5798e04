package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/cordum/depositor/core/infra/buildinfo"
	"github.com/cordum/depositor/core/infra/logging"
	"github.com/cordum/depositor/core/ledger"
	"github.com/cordum/depositor/core/manifest"
	"github.com/cordum/depositor/core/model"
	"github.com/cordum/depositor/core/preservation"
	"github.com/cordum/depositor/core/repository"
	"github.com/cordum/depositor/core/transform"
)

// Step names an ingestion step.
type Step string

const (
	StepLedgerCheck  Step = "ledger-check"
	StepModel        Step = "model"
	StepCreate       Step = "create"
	StepDescMetadata Step = "descriptive-metadata"
	StepMetadata     Step = "ancillary-metadata"
	StepContent      Step = "content"
	StepParent       Step = "parent"
	StepSave         Step = "save"
	StepLedgerRecord Step = "ledger-record"
	StepEvent        Step = "event"
)

var (
	ErrAlreadyIngested = errors.New("object already ingested")
	ErrNoContentSlot   = errors.New("model has no content datastream")
)

// StepError reports the manifest entry and step that aborted ingestion.
type StepError struct {
	Index int
	Key   string
	Step  Step
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("ingest object %d (%s): %s: %v", e.Index, e.Key, e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

const ingestionLabel = "Object ingestion"

// IngestResult lists the ledger entries ingested by this run.
type IngestResult struct {
	Entries []ledger.Entry
}

// Ingest creates one repository object per manifest entry in manifest order.
// The first failure aborts the run; objects already created stay in place and
// are recorded in the saved ledger.
func (p *Pipeline) Ingest(ctx context.Context, m *manifest.Manifest) (*IngestResult, error) {
	res := &IngestResult{}
	path := m.MasterFile()
	err := p.phase(ctx, m, PhaseIngest, func(ctx context.Context) error {
		led, err := ledger.Load(path)
		if err != nil {
			return err
		}
		for i := range m.Objects {
			if err := ctx.Err(); err != nil {
				return err
			}
			entry, err := p.ingestObject(ctx, m, led, i)
			if err != nil {
				var stepErr *StepError
				if errors.As(err, &stepErr) {
					p.metrics.IncIngestFailed(string(stepErr.Step))
				}
				return err
			}
			res.Entries = append(res.Entries, entry)
		}
		return nil
	})
	if err != nil {
		return res, err
	}
	return res, nil
}

func (p *Pipeline) ingestObject(ctx context.Context, m *manifest.Manifest, led *ledger.Ledger, i int) (ledger.Entry, error) {
	obj := &m.Objects[i]
	key, err := manifest.Key(obj)
	if err != nil {
		return ledger.Entry{}, &StepError{Index: i, Step: StepLedgerCheck, Err: err}
	}
	fail := func(step Step, err error) (ledger.Entry, error) {
		return ledger.Entry{}, &StepError{Index: i, Key: key, Step: step, Err: err}
	}

	// Ledger state is checked before the repository is touched.
	switch pid, err := led.LookupRepositoryID(key); {
	case err == nil:
		return fail(StepLedgerCheck, fmt.Errorf("%w: %s", ErrAlreadyIngested, pid))
	case !errors.Is(err, ledger.ErrNoRepositoryID):
		return fail(StepLedgerCheck, err)
	}

	mdl, err := m.ObjectModel(obj)
	if err != nil {
		return fail(StepModel, err)
	}
	metadata, err := m.MetadataTypes(obj)
	if err != nil {
		return fail(StepModel, err)
	}

	ro := repository.NewObject(mdl)
	ro.Label = m.ObjectLabel(obj)
	ro.AdminPolicy = m.ObjectAdminPolicy(obj)
	ro.Identifiers = obj.Identifier.Values()
	if err := p.repo.Create(ctx, ro); err != nil {
		return fail(StepCreate, err)
	}

	var detail strings.Builder
	detail.WriteString("Batch ingest\n")
	fmt.Fprintf(&detail, "Agent: %s\n", buildinfo.Agent())
	fmt.Fprintf(&detail, "Manifest: %s\n", m.Path)
	fmt.Fprintf(&detail, "Model: %s\n", mdl)
	fmt.Fprintf(&detail, "Identifier(s): %s\n", strings.Join(obj.Identifier.Values(), ","))
	tags := make([]string, len(metadata))
	for j, t := range metadata {
		tags[j] = string(t)
	}
	fmt.Fprintf(&detail, "Metadata: %s\n", strings.Join(tags, ","))

	if m.HasMetadata(obj, model.QDC) {
		if err := p.attachDescMetadata(ro, manifest.QDCPath(m.BasePath, key), obj.Identifier.Values()); err != nil {
			return fail(StepDescMetadata, err)
		}
	}

	for _, t := range model.AncillaryTypes() {
		if !m.HasMetadata(obj, t) {
			continue
		}
		file, err := m.MetadataFile(obj, t)
		if err != nil {
			return fail(StepMetadata, err)
		}
		if err := p.attachFile(ro, t.Datastream(), file); err != nil {
			return fail(StepMetadata, err)
		}
	}

	file, declared, err := m.ContentFile(obj)
	if err != nil {
		return fail(StepContent, err)
	}
	if declared {
		if !mdl.HasContent() {
			return fail(StepContent, fmt.Errorf("%w: %s", ErrNoContentSlot, mdl))
		}
		if err := p.attachFile(ro, model.DatastreamContent, file); err != nil {
			return fail(StepContent, err)
		}
		fmt.Fprintf(&detail, "Content file: %s\n", file)
	}

	if parentID := m.ObjectParentID(obj); parentID != "" {
		if _, err := p.linker.Link(ctx, ro, parentID); err != nil {
			return fail(StepParent, err)
		}
		fmt.Fprintf(&detail, "Parent id: %s\n", parentID)
	}

	if err := p.repo.Save(ctx, ro); err != nil {
		return fail(StepSave, err)
	}

	if err := led.RecordRepositoryID(key, ro.PID); err != nil {
		return fail(StepLedgerRecord, err)
	}
	if err := led.Save(m.MasterFile()); err != nil {
		return fail(StepLedgerRecord, err)
	}

	if _, err := p.events.Record(ctx, ro.PID, preservation.EventIngestion, preservation.OutcomeSuccess, ingestionLabel, detail.String()); err != nil {
		return fail(StepEvent, err)
	}
	p.metrics.IncObjectsIngested(string(mdl))
	logging.Info(component, "ingested object", "key", key, "pid", ro.PID, "model", mdl, "parent", ro.ParentPID)
	return ledger.Entry{Identifier: key, PID: ro.PID}, nil
}

// attachDescMetadata loads prepared descriptive metadata, merges the manifest
// identifiers into it and makes the merged set the object's identifiers.
func (p *Pipeline) attachDescMetadata(ro *repository.Object, path string, ids []string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read descriptive metadata: %w", err)
	}
	q, err := transform.ParseQDC(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	q.MergeIdentifiers(ids...)
	merged, err := q.Marshal()
	if err != nil {
		return err
	}
	if err := ro.SetDatastream(model.DatastreamDescMetadata, merged, "text/xml", p.algorithm); err != nil {
		return err
	}
	ro.Identifiers = q.Identifiers()
	return nil
}

func (p *Pipeline) attachFile(ro *repository.Object, dsid, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s file: %w", dsid, err)
	}
	return ro.SetDatastream(dsid, data, "", p.algorithm)
}
