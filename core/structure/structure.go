// Package structure generates METS structural metadata describing the
// ordered children of a composite object.
package structure

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/cordum/depositor/core/manifest"
	"github.com/cordum/depositor/core/model"
	"github.com/cordum/depositor/core/repository"
)

// TypeGenerate is the only supported contentstructure type.
const TypeGenerate = "generate"

const (
	metsNS  = "http://www.loc.gov/METS/"
	xlinkNS = "http://www.w3.org/1999/xlink"

	defaultFileGrpID  = "GRP01"
	defaultFileGrpUse = "Master Image"
	defaultDiv0ID     = "DIV01"
	defaultDiv0Type   = "image"
	defaultDiv0Label  = "Images"
)

var (
	ErrUnsupportedStructure = errors.New("structure: unsupported contentstructure type")
	ErrObjectNotFound       = errors.New("structure: object not found")
	ErrAmbiguousObject      = errors.New("structure: identifier matches more than one object")
	ErrDuplicateSequence    = errors.New("structure: children share a sequence key")
	ErrNoSequenceKey        = errors.New("structure: child has no sequence key")
)

// Part is one child reference in the generated document.
type Part struct {
	Key string
	PID string
}

// Generator builds structural metadata from repository state.
type Generator struct {
	repo repository.Repository
}

func NewGenerator(repo repository.Repository) *Generator {
	return &Generator{repo: repo}
}

// Target finds the single object of model m carrying key.
func (g *Generator) Target(ctx context.Context, m model.Model, key string) (*repository.Object, error) {
	matches, err := g.repo.FindByIdentifier(ctx, m, key)
	if err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %s %q", ErrObjectNotFound, m, key)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("%w: %s %q", ErrAmbiguousObject, m, key)
	}
}

// Document renders the METS document for parent's children.
func (g *Generator) Document(ctx context.Context, parent *repository.Object, spec manifest.StructureSpec) ([]byte, error) {
	if !strings.EqualFold(strings.TrimSpace(spec.Type), TypeGenerate) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedStructure, spec.Type)
	}
	children, err := g.repo.Children(ctx, parent.PID)
	if err != nil {
		return nil, fmt.Errorf("children of %s: %w", parent.PID, err)
	}
	parts, err := Parts(children, spec.SequenceStart, spec.SequenceLength)
	if err != nil {
		return nil, err
	}
	return Render(parts, spec)
}

// Parts derives each child's sequence key from its first identifier and
// returns the parts sorted by key.
func Parts(children []*repository.Object, start, length int) ([]Part, error) {
	seen := make(map[string]string, len(children))
	parts := make([]Part, 0, len(children))
	for _, child := range children {
		if len(child.Identifiers) == 0 {
			return nil, fmt.Errorf("%w: %s has no identifier", ErrNoSequenceKey, child.PID)
		}
		key, ok := sequenceKey(child.Identifiers[0], start, length)
		if !ok {
			return nil, fmt.Errorf("%w: %s %q", ErrNoSequenceKey, child.PID, child.Identifiers[0])
		}
		if other, dup := seen[key]; dup {
			return nil, fmt.Errorf("%w: %q (%s, %s)", ErrDuplicateSequence, key, other, child.PID)
		}
		seen[key] = child.PID
		parts = append(parts, Part{Key: key, PID: child.PID})
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i].Key < parts[j].Key })
	return parts, nil
}

// sequenceKey returns id[start:start+length], truncated at the end of id. A
// non-positive length takes the rest of id.
func sequenceKey(id string, start, length int) (string, bool) {
	if start < 0 || start >= len(id) {
		return "", false
	}
	end := len(id)
	if length > 0 && start+length < end {
		end = start + length
	}
	return id[start:end], true
}

type metsDocument struct {
	XMLName   xml.Name      `xml:"mets"`
	NS        string        `xml:"xmlns,attr"`
	XLink     string        `xml:"xmlns:xlink,attr"`
	FileSec   metsFileSec   `xml:"fileSec"`
	StructMap metsStructMap `xml:"structMap"`
}

type metsFileSec struct {
	FileGrp metsFileGrp `xml:"fileGrp"`
}

type metsFileGrp struct {
	ID    string     `xml:"ID,attr"`
	Use   string     `xml:"USE,attr"`
	Files []metsFile `xml:"file"`
}

type metsFile struct {
	ID     string     `xml:"ID,attr"`
	FLocat metsFLocat `xml:"FLocat"`
}

type metsFLocat struct {
	Href    string `xml:"xlink:href,attr"`
	LocType string `xml:"LOCTYPE,attr"`
}

type metsStructMap struct {
	Div metsDiv `xml:"div"`
}

type metsDiv struct {
	ID    string    `xml:"ID,attr,omitempty"`
	Type  string    `xml:"TYPE,attr,omitempty"`
	Label string    `xml:"LABEL,attr,omitempty"`
	Order int       `xml:"ORDER,attr,omitempty"`
	Divs  []metsDiv `xml:"div"`
	Fptr  *metsFptr `xml:"fptr,omitempty"`
}

type metsFptr struct {
	FileID string `xml:"FILEID,attr"`
}

// Render writes parts, already in order, as a METS document.
func Render(parts []Part, spec manifest.StructureSpec) ([]byte, error) {
	grp := metsFileGrp{
		ID:  orDefault(spec.FileGrpID, defaultFileGrpID),
		Use: orDefault(spec.FileGrpUse, defaultFileGrpUse),
	}
	div0 := metsDiv{
		ID:    orDefault(spec.Div0ID, defaultDiv0ID),
		Type:  orDefault(spec.Div0Type, defaultDiv0Type),
		Label: orDefault(spec.Div0Label, defaultDiv0Label),
	}
	for i, p := range parts {
		fileID := "FILE" + p.Key
		grp.Files = append(grp.Files, metsFile{
			ID:     fileID,
			FLocat: metsFLocat{Href: p.PID + "/" + model.DatastreamContent, LocType: "URL"},
		})
		div0.Divs = append(div0.Divs, metsDiv{Order: i + 1, Fptr: &metsFptr{FileID: fileID}})
	}
	doc := metsDocument{
		NS:        metsNS,
		XLink:     xlinkNS,
		FileSec:   metsFileSec{FileGrp: grp},
		StructMap: metsStructMap{Div: div0},
	}
	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal mets: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	buf.Write(body)
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func orDefault(v, fallback string) string {
	if s := strings.TrimSpace(v); s != "" {
		return s
	}
	return fallback
}
