package checksum

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/antchfx/xmlquery"
)

var ErrDuplicateComponent = errors.New("duplicate checksum component")

// Manifest holds externally supplied checksums keyed by component identifier.
type Manifest struct {
	values map[string]string
	order  []string
}

// ParseManifest reads a <checksums><checksum><componentid/><value/></checksum></checksums> document.
func ParseManifest(r io.Reader) (*Manifest, error) {
	doc, err := xmlquery.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse checksum manifest: %w", err)
	}
	nodes, err := xmlquery.QueryAll(doc, "/checksums/checksum")
	if err != nil {
		return nil, fmt.Errorf("query checksum manifest: %w", err)
	}
	m := &Manifest{values: make(map[string]string, len(nodes))}
	for _, node := range nodes {
		idNode := node.SelectElement("componentid")
		valueNode := node.SelectElement("value")
		if idNode == nil || valueNode == nil {
			continue
		}
		id := strings.TrimSpace(idNode.InnerText())
		if id == "" {
			continue
		}
		if _, ok := m.values[id]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateComponent, id)
		}
		m.values[id] = strings.TrimSpace(valueNode.InnerText())
		m.order = append(m.order, id)
	}
	return m, nil
}

// LoadManifest reads a checksum manifest file.
func LoadManifest(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open checksum manifest: %w", err)
	}
	defer f.Close()
	m, err := ParseManifest(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Lookup returns the checksum recorded for a component identifier.
func (m *Manifest) Lookup(componentID string) (string, bool) {
	if m == nil {
		return "", false
	}
	v, ok := m.values[componentID]
	return v, ok
}

// Components lists component identifiers in document order.
func (m *Manifest) Components() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.order...)
}

func (m *Manifest) Len() int {
	if m == nil {
		return 0
	}
	return len(m.order)
}
