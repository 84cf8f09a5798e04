package pipeline

import (
	"context"
	"fmt"

	"github.com/cordum/depositor/core/infra/fsutil"
	"github.com/cordum/depositor/core/infra/logging"
	"github.com/cordum/depositor/core/ledger"
	"github.com/cordum/depositor/core/manifest"
	"github.com/cordum/depositor/core/transform"
)

// PrepareResult summarizes a preparation run.
type PrepareResult struct {
	SplitFiles  []string
	QDCFiles    []string
	LedgerPath  string
	LedgerBuilt bool
}

// Prepare splits multi-record sources, builds the master ledger (unless the
// manifest says it is provided) and writes descriptive metadata for every
// object. It never touches the repository.
func (p *Pipeline) Prepare(ctx context.Context, m *manifest.Manifest) (*PrepareResult, error) {
	res := &PrepareResult{LedgerPath: m.MasterFile()}
	err := p.phase(ctx, m, PhasePrepare, func(ctx context.Context) error {
		for _, spec := range m.Split {
			written, err := transform.Split(ctx, spec, m.BasePath)
			if err != nil {
				return err
			}
			logging.Info(component, "split source", "type", spec.Type, "source", spec.Source, "units", len(written))
			res.SplitFiles = append(res.SplitFiles, written...)
		}

		var led *ledger.Ledger
		if m.MasterSource != manifest.MasterSourceProvided {
			led = ledger.New()
			for i := range m.Objects {
				key, err := objectKey(i, &m.Objects[i])
				if err != nil {
					return err
				}
				if err := led.Append(key); err != nil {
					return fmt.Errorf("object %d: %w", i, err)
				}
			}
		}

		for i := range m.Objects {
			if err := ctx.Err(); err != nil {
				return err
			}
			obj := &m.Objects[i]
			key, err := objectKey(i, obj)
			if err != nil {
				return err
			}
			q, err := p.dispatcher.Generate(ctx, m, obj)
			if err != nil {
				return fmt.Errorf("object %d (%s): %w", i, key, err)
			}
			data, err := q.Marshal()
			if err != nil {
				return err
			}
			path := manifest.QDCPath(m.BasePath, key)
			if err := fsutil.WriteFileAtomic(path, data); err != nil {
				return fmt.Errorf("write descriptive metadata for %s: %w", key, err)
			}
			res.QDCFiles = append(res.QDCFiles, path)
			source := m.ObjectQDCSource(obj)
			if source == "" {
				source = "stub"
			}
			p.metrics.IncObjectsPrepared(source)
			logging.Info(component, "prepared object", "key", key, "source", source)
		}

		if led != nil {
			if err := led.Save(res.LedgerPath); err != nil {
				return err
			}
			res.LedgerBuilt = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
