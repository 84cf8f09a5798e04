package pipeline

import (
	"context"
	"fmt"

	"github.com/cordum/depositor/core/infra/fsutil"
	"github.com/cordum/depositor/core/infra/logging"
	"github.com/cordum/depositor/core/manifest"
	"github.com/cordum/depositor/core/model"
)

// PostProcess generates structural metadata for every object that declares a
// contentstructure spec, writes it under basepath and attaches it as
// contentMetadata. It returns the number of objects updated.
func (p *Pipeline) PostProcess(ctx context.Context, m *manifest.Manifest) (int, error) {
	updated := 0
	err := p.phase(ctx, m, PhasePostProcess, func(ctx context.Context) error {
		for i := range m.Objects {
			if err := ctx.Err(); err != nil {
				return err
			}
			obj := &m.Objects[i]
			spec := m.StructureSpec(obj)
			if spec == nil {
				continue
			}
			key, err := objectKey(i, obj)
			if err != nil {
				return err
			}
			mdl, err := m.ObjectModel(obj)
			if err != nil {
				return fmt.Errorf("object %d: %w", i, err)
			}
			target, err := p.structure.Target(ctx, mdl, key)
			if err != nil {
				return err
			}
			doc, err := p.structure.Document(ctx, target, *spec)
			if err != nil {
				return fmt.Errorf("structural metadata for %s: %w", key, err)
			}
			path := manifest.StructurePath(m.BasePath, key)
			if err := fsutil.WriteFileAtomic(path, doc); err != nil {
				return fmt.Errorf("write structural metadata for %s: %w", key, err)
			}
			if err := target.SetDatastream(model.DatastreamContentMetadata, doc, "text/xml", p.algorithm); err != nil {
				return err
			}
			if err := p.repo.Save(ctx, target); err != nil {
				return fmt.Errorf("save %s: %w", target.PID, err)
			}
			updated++
			p.metrics.IncObjectsPostProcessed(string(mdl))
			logging.Info(component, "structural metadata attached", "key", key, "pid", target.PID, "path", path)
		}
		return nil
	})
	if err != nil {
		return updated, err
	}
	return updated, nil
}
