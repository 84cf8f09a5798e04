// Package transform produces descriptive metadata from source metadata formats
// and splits multi-record source documents.
package transform

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/antchfx/xmlquery"

	"github.com/cordum/depositor/core/manifest"
	"github.com/cordum/depositor/core/model"
)

var ErrMissingSource = errors.New("metadata source file missing")

// Transform converts a parsed source document into descriptive metadata.
type Transform interface {
	Transform(ctx context.Context, doc *xmlquery.Node) (*QDC, error)
}

// TransformFunc adapts a function to Transform.
type TransformFunc func(ctx context.Context, doc *xmlquery.Node) (*QDC, error)

func (f TransformFunc) Transform(ctx context.Context, doc *xmlquery.Node) (*QDC, error) {
	return f(ctx, doc)
}

// Dispatcher maps source metadata types to transforms.
type Dispatcher struct {
	mu         sync.RWMutex
	transforms map[model.MetadataType]Transform
}

// NewDispatcher returns a dispatcher with the built-in transforms registered.
func NewDispatcher() *Dispatcher {
	d := &Dispatcher{transforms: map[model.MetadataType]Transform{}}
	d.Register(model.ContentDM, TransformFunc(FromContentDM))
	d.Register(model.DigitizationGuide, TransformFunc(FromDigitizationGuide))
	d.Register(model.MARCXML, TransformFunc(FromMARCXML))
	return d
}

// Register adds or replaces the transform for a source type.
func (d *Dispatcher) Register(source model.MetadataType, t Transform) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if t == nil {
		delete(d.transforms, source)
		return
	}
	d.transforms[source] = t
}

func (d *Dispatcher) lookup(source model.MetadataType) (Transform, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	t, ok := d.transforms[source]
	return t, ok
}

// Generate builds descriptive metadata for obj. A declared generation source
// with a registered transform is read from its resolved path and transformed;
// anything else yields the stub.
func (d *Dispatcher) Generate(ctx context.Context, m *manifest.Manifest, obj *manifest.Object) (*QDC, error) {
	tag := m.ObjectQDCSource(obj)
	if tag == "" {
		return Stub(), nil
	}
	source, err := model.ParseMetadataType(tag)
	if err != nil {
		return nil, err
	}
	if !source.IsGenerationSource() {
		return Stub(), nil
	}
	t, ok := d.lookup(source)
	if !ok {
		return Stub(), nil
	}
	path, err := m.MetadataFile(obj, source)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingSource, path)
		}
		return nil, fmt.Errorf("open %s source: %w", source, err)
	}
	defer f.Close()
	q, err := run(ctx, source, t, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return q, nil
}

// Apply parses r and runs the transform registered for source.
func (d *Dispatcher) Apply(ctx context.Context, source model.MetadataType, r io.Reader) (*QDC, error) {
	t, ok := d.lookup(source)
	if !ok {
		return nil, fmt.Errorf("no transform registered for %s", source)
	}
	return run(ctx, source, t, r)
}

func run(ctx context.Context, source model.MetadataType, t Transform, r io.Reader) (*QDC, error) {
	doc, err := xmlquery.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse %s source: %w", source, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return t.Transform(ctx, doc)
}
