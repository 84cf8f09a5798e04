package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/cordum/depositor/core/model"
)

const sampleManifest = `
basepath: /batch
model: Item
label: Sample batch
metadata: [qdc, marcxml]
adminpolicy: apo:1
autoparentidlength: 4
content:
  location: /batch/content/
  extension: .tif
checksum:
  location: checksums.xml
contentstructure:
  type: generate
  sequencestart: 4
  sequencelength: 3
objects:
  - identifier: item00123
  - identifier: [item00124, alias-124]
    model: Component
    label: Second
    metadata: [jhove, marcxml]
    parentid: coll1
    marcxml: custom.xml
    jhove: /elsewhere/jhove.xml
  - identifier: 42
`

func TestParseSample(t *testing.T) {
	m, err := Parse([]byte(sampleManifest))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(m.Objects) != 3 {
		t.Fatalf("expected 3 objects, got %d", len(m.Objects))
	}
	keys, err := m.KeyIdentifiers()
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if !reflect.DeepEqual(keys, []string{"item00123", "item00124", "42"}) {
		t.Fatalf("unexpected keys %v", keys)
	}

	second := &m.Objects[1]
	if got := second.Identifier.Values(); !reflect.DeepEqual(got, []string{"item00124", "alias-124"}) {
		t.Fatalf("unexpected identifiers %v", got)
	}
	if mdl, err := m.ObjectModel(second); err != nil || mdl != model.Component {
		t.Fatalf("expected Component, got %q err=%v", mdl, err)
	}
	if m.ObjectLabel(&m.Objects[0]) != "Sample batch" || m.ObjectLabel(second) != "Second" {
		t.Fatalf("unexpected labels")
	}
	if m.ObjectAdminPolicy(second) != "apo:1" {
		t.Fatalf("expected manifest admin policy")
	}
	types, err := m.MetadataTypes(second)
	if err != nil {
		t.Fatalf("metadata types: %v", err)
	}
	if !reflect.DeepEqual(types, []model.MetadataType{model.QDC, model.MARCXML, model.JHOVE}) {
		t.Fatalf("unexpected metadata order %v", types)
	}
	if path, _ := m.MetadataFile(second, model.MARCXML); path != filepath.Join("/batch", "marcxml", "custom.xml") {
		t.Fatalf("unexpected marcxml path %s", path)
	}
	if path, _ := m.MetadataFile(second, model.JHOVE); path != "/elsewhere/jhove.xml" {
		t.Fatalf("unexpected jhove path %s", path)
	}
	if path, _ := m.MetadataFile(&m.Objects[0], model.MARCXML); path != filepath.Join("/batch", "marcxml", "item00123.xml") {
		t.Fatalf("unexpected default path %s", path)
	}
	if path, ok, _ := m.ContentFile(&m.Objects[0]); !ok || path != "/batch/content/item00123.tif" {
		t.Fatalf("unexpected content file %s", path)
	}
	if path, ok := m.ChecksumFile(); !ok || path != filepath.Join("/batch", "checksum", "checksums.xml") {
		t.Fatalf("unexpected checksum file %s", path)
	}
	if m.MasterFile() != filepath.Join("/batch", "master", "master.xml") {
		t.Fatalf("unexpected master file %s", m.MasterFile())
	}
	if spec := m.StructureSpec(second); spec == nil || spec.SequenceStart != 4 || spec.SequenceLength != 3 {
		t.Fatalf("unexpected structure spec %#v", spec)
	}
}

func TestAutoParentID(t *testing.T) {
	m := &Manifest{AutoParentIDLength: 4}
	obj := &Object{Identifier: Identifier{"item00123"}}
	if got := m.ObjectParentID(obj); got != "item" {
		t.Fatalf("expected item, got %q", got)
	}
	short := &Object{Identifier: Identifier{"abc"}}
	if got := m.ObjectParentID(short); got != "abc" {
		t.Fatalf("expected whole key when shorter, got %q", got)
	}
	m.ParentID = "coll"
	if got := m.ObjectParentID(obj); got != "coll" {
		t.Fatalf("manifest default must beat auto parent, got %q", got)
	}
	obj.ParentID = "explicit"
	if got := m.ObjectParentID(obj); got != "explicit" {
		t.Fatalf("explicit id must win, got %q", got)
	}
	if got := (&Manifest{}).ObjectParentID(&Object{Identifier: Identifier{"x"}}); got != "" {
		t.Fatalf("expected no parent, got %q", got)
	}
}

func TestEmptyIdentifier(t *testing.T) {
	if _, err := (Identifier{}).Key(); !errors.Is(err, ErrEmptyIdentifier) {
		t.Fatalf("expected ErrEmptyIdentifier, got %v", err)
	}
	if _, err := (Identifier{""}).Key(); !errors.Is(err, ErrEmptyIdentifier) {
		t.Fatalf("expected ErrEmptyIdentifier, got %v", err)
	}
	_, err := Parse([]byte("basepath: /b\nobjects:\n  - identifier: [\"\"]\n"))
	if !errors.Is(err, ErrEmptyIdentifier) {
		t.Fatalf("expected ErrEmptyIdentifier from parse, got %v", err)
	}
}

func TestMultipleContentSpecs(t *testing.T) {
	doc := `
basepath: /b
content:
  - location: /a/
  - location: /b/
objects:
  - identifier: x
`
	if _, err := Parse([]byte(doc)); !errors.Is(err, ErrMultipleSpecs) {
		t.Fatalf("expected ErrMultipleSpecs, got %v", err)
	}
	single := `
basepath: /b
checksum:
  - location: sums.xml
objects:
  - identifier: x
`
	m, err := Parse([]byte(single))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if m.Checksum == nil || m.Checksum.Location != "sums.xml" {
		t.Fatalf("expected single checksum spec, got %#v", m.Checksum)
	}
}

func TestParseRejectsSchemaViolations(t *testing.T) {
	cases := map[string]string{
		"missing basepath": "objects:\n  - identifier: x\n",
		"unknown model":    "basepath: /b\nmodel: Target\nobjects:\n  - identifier: x\n",
		"unknown key":      "basepath: /b\nbogus: 1\nobjects:\n  - identifier: x\n",
		"unknown metadata": "basepath: /b\nmetadata: [mods]\nobjects:\n  - identifier: x\n",
	}
	for name, doc := range cases {
		if _, err := Parse([]byte(doc)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestLoadResolvesRelativeBasepath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.yml")
	if err := os.WriteFile(path, []byte("basepath: batch\nobjects:\n  - identifier: x\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	m, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if m.BasePath != filepath.Join(dir, "batch") {
		t.Fatalf("unexpected basepath %s", m.BasePath)
	}
	if m.Path != path {
		t.Fatalf("unexpected path %s", m.Path)
	}
}
