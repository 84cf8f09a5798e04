package pipeline

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/cordum/depositor/core/checksum"
	"github.com/cordum/depositor/core/infra/buildinfo"
	"github.com/cordum/depositor/core/infra/logging"
	"github.com/cordum/depositor/core/ledger"
	"github.com/cordum/depositor/core/manifest"
	"github.com/cordum/depositor/core/model"
	"github.com/cordum/depositor/core/preservation"
	"github.com/cordum/depositor/core/repository"
)

const (
	verifying = "Verifying..."
	pass      = "...PASS"
	fail      = "...FAIL"

	validationLabel = "Object ingest validation"
	fixityLabel     = "Datastream checksum validation"
)

// Check names, also used as metric labels.
const (
	CheckLedger           = "ledger"
	CheckExists           = "exists"
	CheckDatastreams      = "datastreams"
	CheckInternalChecksum = "internal_checksum"
	CheckExternalChecksum = "external_checksum"
	CheckParentChild      = "parent_child"
)

// Checks holds the six per-object validation signals. A check that does not
// apply to the object is true.
type Checks struct {
	LedgerPresent        bool
	Exists               bool
	DatastreamsPopulated bool
	ChecksumsValid       bool
	ExternalChecksum     bool
	ParentChild          bool
}

// Valid is the AND of all six checks.
func (c Checks) Valid() bool {
	return c.LedgerPresent && c.Exists && c.DatastreamsPopulated && c.ChecksumsValid && c.ExternalChecksum && c.ParentChild
}

func (c Checks) byName() map[string]bool {
	return map[string]bool{
		CheckLedger:           c.LedgerPresent,
		CheckExists:           c.Exists,
		CheckDatastreams:      c.DatastreamsPopulated,
		CheckInternalChecksum: c.ChecksumsValid,
		CheckExternalChecksum: c.ExternalChecksum,
		CheckParentChild:      c.ParentChild,
	}
}

// ObjectReport is the validation outcome for one manifest entry.
type ObjectReport struct {
	Index       int
	Key         string
	Identifiers []string
	Model       model.Model
	PID         string
	Checks      Checks
	Trace       []string

	// found is set when the repository object exists, so events can be written.
	found  bool
	fixity *fixityResult
}

// Valid reports the per-object verdict.
func (r *ObjectReport) Valid() bool {
	return r.Checks.Valid()
}

// Verdict renders the final trace line.
func (r *ObjectReport) Verdict() string {
	if r.Valid() {
		return "Object ingest...VALIDATES"
	}
	return "Object ingest...DOES NOT VALIDATE"
}

type fixityResult struct {
	valid  bool
	detail string
}

func (r *ObjectReport) record(what string, ok bool) bool {
	if ok {
		r.Trace = append(r.Trace, verifying+what+pass)
	} else {
		r.Trace = append(r.Trace, verifying+what+fail)
	}
	return ok
}

// Validate re-derives the expected state of every manifest entry and checks
// it against the ledger, the repository and the external checksum file. It
// only returns an error for configuration problems; inconsistencies become
// failed checks. Checks run concurrently; events are written afterwards in
// manifest order.
func (p *Pipeline) Validate(ctx context.Context, m *manifest.Manifest) (*Report, error) {
	var report *Report
	err := p.phase(ctx, m, PhaseValidate, func(ctx context.Context) error {
		models := make([]model.Model, len(m.Objects))
		for i := range m.Objects {
			mdl, err := m.ObjectModel(&m.Objects[i])
			if err != nil {
				return fmt.Errorf("object %d: %w", i, err)
			}
			models[i] = mdl
		}
		led, err := ledger.Load(m.MasterFile())
		if err != nil {
			return err
		}
		var sums *checksum.Manifest
		if path, ok := m.ChecksumFile(); ok {
			if sums, err = checksum.LoadManifest(path); err != nil {
				return err
			}
		}

		reports := make([]*ObjectReport, len(m.Objects))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(p.workers)
		for i := range m.Objects {
			i := i
			g.Go(func() error {
				r, err := p.validateObject(gctx, m, led, sums, i, models[i])
				if err != nil {
					return err
				}
				reports[i] = r
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		report = &Report{Manifest: m.Path, Objects: reports}
		for _, r := range reports {
			if err := p.writeValidationEvents(ctx, m, r); err != nil {
				return err
			}
			for name, ok := range r.Checks.byName() {
				p.metrics.IncCheckResult(name, string(preservation.OutcomeOf(ok)))
			}
			p.metrics.IncObjectsValidated(string(preservation.OutcomeOf(r.Valid())))
			if !r.Valid() {
				logging.Warn(component, "object does not validate", "key", r.Key, "pid", r.PID)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

func (p *Pipeline) validateObject(ctx context.Context, m *manifest.Manifest, led *ledger.Ledger, sums *checksum.Manifest, i int, mdl model.Model) (*ObjectReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	obj := &m.Objects[i]
	key, err := objectKey(i, obj)
	if err != nil {
		return nil, err
	}
	r := &ObjectReport{Index: i, Key: key, Identifiers: obj.Identifier.Values(), Model: mdl}

	pid, err := led.LookupRepositoryID(key)
	r.Checks.LedgerPresent = r.record("PID found in master file", err == nil)
	r.PID = pid

	var ro *repository.Object
	if pid != "" {
		found, err := p.repo.Find(ctx, pid)
		if err == nil && found.Model == mdl {
			ro = found
		}
		r.Checks.Exists = r.record(fmt.Sprintf("%s object found in repository", mdl), ro != nil)
	}
	r.found = ro != nil

	if ro == nil {
		// Nothing further can be observed; every applicable check fails.
		r.Checks.DatastreamsPopulated = false
		r.Checks.ChecksumsValid = false
		_, hasSums := m.ChecksumFile()
		r.Checks.ExternalChecksum = !hasSums || m.ContentSpec(obj) == nil
		r.Checks.ParentChild = m.ObjectParentID(obj) == ""
		r.Trace = append(r.Trace, r.Verdict())
		return r, nil
	}

	r.Checks.DatastreamsPopulated = true
	for _, dsid := range expectedDatastreams(m, obj) {
		ds, ok := ro.Datastream(dsid)
		populated := ok && ds.Profile(false).Size > 0
		if !r.record(dsid+" datastream present and not empty", populated) {
			r.Checks.DatastreamsPopulated = false
		}
	}

	r.Checks.ChecksumsValid = true
	for _, dsid := range ro.DatastreamIDs() {
		ds, _ := ro.Datastream(dsid)
		profile := ds.Profile(true)
		if !r.record(dsid+" datastream internal checksum", profile.ChecksumValid) {
			r.Checks.ChecksumsValid = false
		}
		if dsid == model.DatastreamContent {
			detail := fmt.Sprintf("Datastream: %s\nChecksum type: %s\nChecksum: %s\nValid: %t\n",
				dsid, profile.ChecksumType, profile.Checksum, profile.ChecksumValid)
			r.fixity = &fixityResult{valid: profile.ChecksumValid, detail: detail}
		}
	}

	// Only objects carrying content are listed in the external checksum file.
	r.Checks.ExternalChecksum = true
	if sums != nil && m.ContentSpec(obj) != nil {
		r.Checks.ExternalChecksum = r.record("content datastream external checksum", externalChecksumMatches(ro, sums, key))
	}

	r.Checks.ParentChild = true
	if parentID := m.ObjectParentID(obj); parentID != "" {
		ok, err := p.linker.Verify(ctx, ro, parentID)
		r.Checks.ParentChild = r.record("child relationship to identifier "+parentID, err == nil && ok)
	}

	r.Trace = append(r.Trace, r.Verdict())
	return r, nil
}

// externalChecksumMatches compares the digest recomputed from the stored
// content with the externally supplied value. The recorded checksum is
// covered by the internal check.
func externalChecksumMatches(ro *repository.Object, sums *checksum.Manifest, key string) bool {
	expected, ok := sums.Lookup(key)
	if !ok {
		return false
	}
	ds, ok := ro.Datastream(model.DatastreamContent)
	if !ok {
		return false
	}
	actual, err := checksum.Sum(ds.ChecksumType, ds.Content)
	if err != nil {
		return false
	}
	return checksum.Equal(actual, expected)
}

// expectedDatastreams lists DC and RELS-EXT, each declared metadata type's
// datastream, content when declared and contentMetadata when structural
// metadata is generated.
func expectedDatastreams(m *manifest.Manifest, obj *manifest.Object) []string {
	out := []string{model.DatastreamDC, model.DatastreamRelsExt}
	seen := map[string]bool{model.DatastreamDC: true, model.DatastreamRelsExt: true}
	add := func(dsid string) {
		if !seen[dsid] {
			seen[dsid] = true
			out = append(out, dsid)
		}
	}
	types, _ := m.MetadataTypes(obj)
	for _, t := range types {
		add(t.Datastream())
	}
	if m.ContentSpec(obj) != nil {
		add(model.DatastreamContent)
	}
	if m.StructureSpec(obj) != nil {
		add(model.DatastreamContentMetadata)
	}
	return out
}

func (p *Pipeline) writeValidationEvents(ctx context.Context, m *manifest.Manifest, r *ObjectReport) error {
	if !r.found {
		return nil
	}
	if r.fixity != nil {
		outcome := preservation.OutcomeOf(r.fixity.valid)
		if _, err := p.events.Record(ctx, r.PID, preservation.EventValidation, outcome, fixityLabel, r.fixity.detail); err != nil {
			return err
		}
	}
	_, err := p.events.Record(ctx, r.PID, preservation.EventValidation, preservation.OutcomeOf(r.Valid()), validationLabel, r.Detail(m.Path))
	return err
}

// Detail renders the event detail: a header followed by the trace.
func (r *ObjectReport) Detail(manifestPath string) string {
	var b strings.Builder
	b.WriteString("Validate ingest\n")
	fmt.Fprintf(&b, "Agent: %s\n", buildinfo.Agent())
	fmt.Fprintf(&b, "Manifest: %s\n", manifestPath)
	fmt.Fprintf(&b, "Identifier(s): %s\n", strings.Join(r.Identifiers, ","))
	for _, line := range r.Trace {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}
