// Package manifest decodes deposit manifests and resolves the per-object
// values, identifiers and file paths every phase works from.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cordum/depositor/core/infra/config"
	"github.com/cordum/depositor/core/model"
)

// Master ledger sources.
const (
	MasterSourceObjects  = "objects"
	MasterSourceProvided = "provided"
)

// Manifest is one batch: shared defaults plus the ordered objects.
type Manifest struct {
	BasePath           string         `yaml:"basepath"`
	Master             string         `yaml:"master"`
	MasterSource       string         `yaml:"mastersource"`
	Model              string         `yaml:"model"`
	Label              string         `yaml:"label"`
	Metadata           []string       `yaml:"metadata"`
	QDCSource          string         `yaml:"qdcsource"`
	AdminPolicy        string         `yaml:"adminpolicy"`
	ParentID           string         `yaml:"parentid"`
	AutoParentIDLength int            `yaml:"autoparentidlength"`
	Content            *ContentSpec   `yaml:"content"`
	Checksum           *ChecksumSpec  `yaml:"checksum"`
	Split              []SplitSpec    `yaml:"split"`
	ContentStructure   *StructureSpec `yaml:"contentstructure"`
	Objects            []Object       `yaml:"objects"`

	// Path is the file the manifest was loaded from, if any.
	Path string `yaml:"-"`
}

// Object is one repository object to create and validate.
type Object struct {
	Identifier       Identifier     `yaml:"identifier"`
	Model            string         `yaml:"model"`
	Label            string         `yaml:"label"`
	Metadata         []string       `yaml:"metadata"`
	QDCSource        string         `yaml:"qdcsource"`
	AdminPolicy      string         `yaml:"adminpolicy"`
	ParentID         string         `yaml:"parentid"`
	Content          *ContentSpec   `yaml:"content"`
	ContentStructure *StructureSpec `yaml:"contentstructure"`

	// Overrides maps a metadata type to an explicit source file name or path.
	Overrides map[string]string `yaml:",inline"`
}

// Load reads, schema-validates and decodes a manifest file. A relative basepath
// is resolved against the manifest's directory.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	m.Path = path
	if !filepath.IsAbs(m.BasePath) {
		m.BasePath = filepath.Join(filepath.Dir(path), m.BasePath)
	}
	return m, nil
}

// Parse schema-validates and decodes manifest bytes.
func Parse(data []byte) (*Manifest, error) {
	if err := config.ValidateManifest(data); err != nil {
		return nil, err
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks the invariants the schema cannot express.
func (m *Manifest) Validate() error {
	if _, err := parseMetadataList(m.Metadata); err != nil {
		return err
	}
	for i := range m.Objects {
		obj := &m.Objects[i]
		if _, err := obj.Identifier.Key(); err != nil {
			return fmt.Errorf("object %d: %w", i, err)
		}
		if _, err := m.MetadataTypes(obj); err != nil {
			return fmt.Errorf("object %d: %w", i, err)
		}
		for tag := range obj.Overrides {
			if _, err := model.ParseMetadataType(tag); err != nil {
				return fmt.Errorf("object %d: override: %w", i, err)
			}
		}
	}
	return nil
}

// Key returns the key identifier of obj.
func Key(obj *Object) (string, error) {
	return obj.Identifier.Key()
}

// ObjectModel resolves the object's model, falling back to the manifest default.
func (m *Manifest) ObjectModel(obj *Object) (model.Model, error) {
	return model.Parse(firstNonEmpty(obj.Model, m.Model))
}

// ObjectLabel returns the object label, falling back to the manifest default.
func (m *Manifest) ObjectLabel(obj *Object) string {
	return firstNonEmpty(obj.Label, m.Label)
}

// ObjectAdminPolicy returns the admin policy, object level first.
func (m *Manifest) ObjectAdminPolicy(obj *Object) string {
	return firstNonEmpty(obj.AdminPolicy, m.AdminPolicy)
}

// ObjectQDCSource returns the descriptive metadata source tag, object level first.
func (m *Manifest) ObjectQDCSource(obj *Object) string {
	return firstNonEmpty(obj.QDCSource, m.QDCSource)
}

// MetadataTypes returns the manifest-level list followed by the object-level
// list, deduplicated in first-seen order.
func (m *Manifest) MetadataTypes(obj *Object) ([]model.MetadataType, error) {
	combined := make([]string, 0, len(m.Metadata)+len(obj.Metadata))
	combined = append(combined, m.Metadata...)
	combined = append(combined, obj.Metadata...)
	return parseMetadataList(combined)
}

// HasMetadata reports whether obj declares metadata type t.
func (m *Manifest) HasMetadata(obj *Object, t model.MetadataType) bool {
	types, err := m.MetadataTypes(obj)
	if err != nil {
		return false
	}
	for _, declared := range types {
		if declared == t {
			return true
		}
	}
	return false
}

// ObjectParentID derives the parent identifier: explicit, manifest default, then the
// leading autoparentidlength characters of the key identifier.
func (m *Manifest) ObjectParentID(obj *Object) string {
	if id := firstNonEmpty(obj.ParentID, m.ParentID); id != "" {
		return id
	}
	if m.AutoParentIDLength <= 0 {
		return ""
	}
	key, err := obj.Identifier.Key()
	if err != nil {
		return ""
	}
	if len(key) <= m.AutoParentIDLength {
		return key
	}
	return key[:m.AutoParentIDLength]
}

// ContentSpec returns the content spec in effect for obj, or nil.
func (m *Manifest) ContentSpec(obj *Object) *ContentSpec {
	if obj.Content != nil {
		return obj.Content
	}
	return m.Content
}

// StructureSpec returns the structural metadata spec in effect for obj, or nil.
func (m *Manifest) StructureSpec(obj *Object) *StructureSpec {
	if obj.ContentStructure != nil {
		return obj.ContentStructure
	}
	return m.ContentStructure
}

// MetadataFile returns the source file for metadata type t of obj.
func (m *Manifest) MetadataFile(obj *Object, t model.MetadataType) (string, error) {
	key, err := obj.Identifier.Key()
	if err != nil {
		return "", err
	}
	return MetadataPath(m.BasePath, t, obj.Overrides[string(t)], key), nil
}

// ContentFile returns the content file for obj and whether one is declared.
func (m *Manifest) ContentFile(obj *Object) (string, bool, error) {
	spec := m.ContentSpec(obj)
	if spec == nil {
		return "", false, nil
	}
	key, err := obj.Identifier.Key()
	if err != nil {
		return "", false, err
	}
	return ContentPath(m.BasePath, *spec, key), true, nil
}

// MasterFile returns the ledger path.
func (m *Manifest) MasterFile() string {
	return MasterPath(m.BasePath, m.Master)
}

// ChecksumFile returns the external checksum file and whether one is declared.
func (m *Manifest) ChecksumFile() (string, bool) {
	if m.Checksum == nil || strings.TrimSpace(m.Checksum.Location) == "" {
		return "", false
	}
	return ChecksumPath(m.BasePath, m.Checksum.Location), true
}

// KeyIdentifiers returns every object's key identifier in manifest order.
func (m *Manifest) KeyIdentifiers() ([]string, error) {
	keys := make([]string, 0, len(m.Objects))
	for i := range m.Objects {
		key, err := m.Objects[i].Identifier.Key()
		if err != nil {
			return nil, fmt.Errorf("object %d: %w", i, err)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func parseMetadataList(tags []string) ([]model.MetadataType, error) {
	seen := make(map[model.MetadataType]struct{}, len(tags))
	out := make([]model.MetadataType, 0, len(tags))
	for _, tag := range tags {
		t, err := model.ParseMetadataType(tag)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
