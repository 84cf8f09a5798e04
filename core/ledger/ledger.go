// Package ledger tracks which manifest key identifiers have been created in the
// repository and under which pid.
package ledger

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/cordum/depositor/core/infra/fsutil"
)

var (
	ErrEmptyKey          = errors.New("ledger: empty key identifier")
	ErrDuplicate         = errors.New("ledger: duplicate key identifier")
	ErrNotFound          = errors.New("ledger: key identifier not found")
	ErrAlreadyRecorded   = errors.New("ledger: repository id already recorded")
	ErrNoRepositoryID    = errors.New("ledger: no repository id recorded")
	ErrEmptyRepositoryID = errors.New("ledger: empty repository id")
)

// Entry is one tracked object. PID is empty until ingestion records it.
type Entry struct {
	Identifier string
	PID        string
}

// Ledger is an insertion-ordered map from key identifier to pid. It is not safe
// for concurrent writers.
type Ledger struct {
	keys []string
	pids map[string]string
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{pids: map[string]string{}}
}

// Append registers a new key identifier.
func (l *Ledger) Append(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if _, ok := l.pids[key]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, key)
	}
	l.keys = append(l.keys, key)
	l.pids[key] = ""
	return nil
}

// RecordRepositoryID attaches pid to an existing entry. Recording the same pid
// twice is a no-op.
func (l *Ledger) RecordRepositoryID(key, pid string) error {
	if pid == "" {
		return ErrEmptyRepositoryID
	}
	current, ok := l.pids[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if current != "" && current != pid {
		return fmt.Errorf("%w: %s has %s", ErrAlreadyRecorded, key, current)
	}
	l.pids[key] = pid
	return nil
}

// LookupRepositoryID returns the pid recorded for key.
func (l *Ledger) LookupRepositoryID(key string) (string, error) {
	pid, ok := l.pids[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if pid == "" {
		return "", fmt.Errorf("%w: %s", ErrNoRepositoryID, key)
	}
	return pid, nil
}

// Has reports whether key is tracked.
func (l *Ledger) Has(key string) bool {
	_, ok := l.pids[key]
	return ok
}

// Keys returns the key identifiers in insertion order.
func (l *Ledger) Keys() []string {
	return append([]string(nil), l.keys...)
}

// Entries returns all entries in insertion order.
func (l *Ledger) Entries() []Entry {
	out := make([]Entry, 0, len(l.keys))
	for _, key := range l.keys {
		out = append(out, Entry{Identifier: key, PID: l.pids[key]})
	}
	return out
}

func (l *Ledger) Len() int {
	return len(l.keys)
}

type document struct {
	XMLName xml.Name       `xml:"objects"`
	Objects []documentItem `xml:"object"`
}

type documentItem struct {
	Identifier string `xml:"identifier"`
	PID        string `xml:"pid,omitempty"`
}

// Marshal renders the ledger document. Output depends only on the entries, so
// an untouched ledger re-marshals byte for byte.
func (l *Ledger) Marshal() ([]byte, error) {
	doc := document{Objects: make([]documentItem, 0, len(l.keys))}
	for _, key := range l.keys {
		doc.Objects = append(doc.Objects, documentItem{Identifier: key, PID: l.pids[key]})
	}
	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal ledger: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	buf.Write(body)
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// Unmarshal parses a ledger document, rejecting duplicate identifiers.
func Unmarshal(data []byte) (*Ledger, error) {
	var doc document
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse ledger: %w", err)
	}
	l := New()
	for _, item := range doc.Objects {
		if err := l.Append(item.Identifier); err != nil {
			return nil, err
		}
		if pid := strings.TrimSpace(item.PID); pid != "" {
			l.pids[item.Identifier] = pid
		}
	}
	return l, nil
}

// Load reads a ledger file.
func Load(path string) (*Ledger, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	l, err := Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return l, nil
}

// Save writes the ledger atomically, creating parent directories.
func (l *Ledger) Save(path string) error {
	data, err := l.Marshal()
	if err != nil {
		return err
	}
	return fsutil.WriteFileAtomic(path, data)
}
