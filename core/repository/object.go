package repository

import (
	"sort"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/cordum/depositor/core/checksum"
	"github.com/cordum/depositor/core/model"
)

// Object is a repository object with its named datastreams.
type Object struct {
	PID         string                 `json:"pid"`
	Model       model.Model            `json:"model"`
	Label       string                 `json:"label,omitempty"`
	AdminPolicy string                 `json:"admin_policy,omitempty"`
	Identifiers []string               `json:"identifiers,omitempty"`
	ParentPID   string                 `json:"parent_pid,omitempty"`
	Datastreams map[string]*Datastream `json:"-"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// NewObject returns an unsaved object of model m.
func NewObject(m model.Model) *Object {
	return &Object{Model: m, Datastreams: map[string]*Datastream{}}
}

// Datastream returns the named datastream.
func (o *Object) Datastream(id string) (*Datastream, bool) {
	ds, ok := o.Datastreams[id]
	return ds, ok
}

// SetDatastream replaces the named datastream with content, recording its
// checksum with alg. An empty mimeType is detected from the content.
func (o *Object) SetDatastream(id string, content []byte, mimeType string, alg checksum.Algorithm) error {
	ds := &Datastream{ID: id}
	if err := ds.SetContent(content, mimeType, alg); err != nil {
		return err
	}
	if o.Datastreams == nil {
		o.Datastreams = map[string]*Datastream{}
	}
	o.Datastreams[id] = ds
	return nil
}

// DatastreamIDs returns datastream names in sorted order.
func (o *Object) DatastreamIDs() []string {
	ids := make([]string, 0, len(o.Datastreams))
	for id := range o.Datastreams {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// HasIdentifier reports whether id is one of the object's identifiers.
func (o *Object) HasIdentifier(id string) bool {
	for _, v := range o.Identifiers {
		if v == id {
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (o *Object) Clone() *Object {
	if o == nil {
		return nil
	}
	cp := *o
	cp.Identifiers = append([]string(nil), o.Identifiers...)
	cp.Datastreams = make(map[string]*Datastream, len(o.Datastreams))
	for id, ds := range o.Datastreams {
		dup := *ds
		dup.Content = append([]byte(nil), ds.Content...)
		cp.Datastreams[id] = &dup
	}
	return &cp
}

// Datastream is one named byte stream with its recorded fixity.
type Datastream struct {
	ID           string             `json:"id"`
	MIMEType     string             `json:"mime_type"`
	ChecksumType checksum.Algorithm `json:"checksum_type"`
	Checksum     string             `json:"checksum"`
	Content      []byte             `json:"-"`
}

// SetContent stores content and records its checksum.
func (d *Datastream) SetContent(content []byte, mimeType string, alg checksum.Algorithm) error {
	sum, err := checksum.Sum(alg, content)
	if err != nil {
		return err
	}
	if strings.TrimSpace(mimeType) == "" {
		mimeType = mimetype.Detect(content).String()
	}
	d.Content = content
	d.MIMEType = mimeType
	d.ChecksumType = alg
	d.Checksum = sum
	return nil
}

// Profile describes a datastream as the repository reports it.
type Profile struct {
	Size          int64
	MIMEType      string
	ChecksumType  checksum.Algorithm
	Checksum      string
	ChecksumValid bool
}

// Profile reports the datastream state. With validate set the checksum is
// recomputed and compared against the recorded value; otherwise ChecksumValid
// is false.
func (d *Datastream) Profile(validate bool) Profile {
	p := Profile{
		Size:         int64(len(d.Content)),
		MIMEType:     d.MIMEType,
		ChecksumType: d.ChecksumType,
		Checksum:     d.Checksum,
	}
	if validate {
		sum, err := checksum.Sum(d.ChecksumType, d.Content)
		p.ChecksumValid = err == nil && checksum.Equal(sum, d.Checksum)
	}
	return p
}
