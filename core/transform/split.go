package transform

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/antchfx/xmlquery"

	"github.com/cordum/depositor/core/infra/fsutil"
	"github.com/cordum/depositor/core/manifest"
)

var ErrMissingSplitID = errors.New("split unit has no identifier")

// SplitSourcePath resolves a split source: absolute as is, otherwise inside the
// type folder under basepath.
func SplitSourcePath(spec manifest.SplitSpec, basepath string) string {
	if filepath.IsAbs(spec.Source) {
		return spec.Source
	}
	return filepath.Join(basepath, spec.Type, spec.Source)
}

// SplitTargetDir is where split units are written.
func SplitTargetDir(spec manifest.SplitSpec, basepath string) string {
	if strings.TrimSpace(spec.TargetPath) != "" {
		return spec.TargetPath
	}
	return filepath.Join(basepath, spec.Type)
}

// Split selects every unit matching spec.XPath in the source document and
// writes each to <target>/<id>.xml, where id is the text of spec.IDElement
// evaluated against the unit. It returns the written paths in document order.
func Split(ctx context.Context, spec manifest.SplitSpec, basepath string) ([]string, error) {
	source := SplitSourcePath(spec, basepath)
	f, err := os.Open(source)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingSource, source)
		}
		return nil, fmt.Errorf("open split source: %w", err)
	}
	defer f.Close()
	doc, err := xmlquery.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse split source %s: %w", source, err)
	}
	units, err := xmlquery.QueryAll(doc, spec.XPath)
	if err != nil {
		return nil, fmt.Errorf("split xpath %q: %w", spec.XPath, err)
	}

	target := SplitTargetDir(spec, basepath)
	written := make([]string, 0, len(units))
	for i, unit := range units {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		idNode, err := xmlquery.Query(unit, spec.IDElement)
		if err != nil {
			return written, fmt.Errorf("split id element %q: %w", spec.IDElement, err)
		}
		if idNode == nil || strings.TrimSpace(idNode.InnerText()) == "" {
			return written, fmt.Errorf("%w: unit %d of %s", ErrMissingSplitID, i, source)
		}
		id := strings.TrimSpace(idNode.InnerText())
		path := filepath.Join(target, id+".xml")
		data := []byte(`<?xml version="1.0" encoding="UTF-8"?>` + "\n" + unit.OutputXML(true) + "\n")
		if err := fsutil.WriteFileAtomic(path, data); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}
