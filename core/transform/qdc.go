package transform

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/antchfx/xmlquery"
)

const (
	qdcRoot       = "dc"
	dctermsPrefix = "dcterms"
	DCTermsNS     = "http://purl.org/dc/terms/"
	XSINS         = "http://www.w3.org/2001/XMLSchema-instance"
)

// Element is one descriptive term and its value.
type Element struct {
	Term  string
	Value string
}

// QDC is qualified Dublin Core descriptive metadata. Element order is preserved.
type QDC struct {
	Elements []Element
}

// Stub returns the empty descriptive metadata document.
func Stub() *QDC {
	return &QDC{}
}

// Add appends a term unless the value is blank.
func (q *QDC) Add(term, value string) {
	value = strings.TrimSpace(value)
	if term == "" || value == "" {
		return
	}
	q.Elements = append(q.Elements, Element{Term: term, Value: value})
}

// Values returns every value recorded for term.
func (q *QDC) Values(term string) []string {
	var out []string
	for _, el := range q.Elements {
		if el.Term == term {
			out = append(out, el.Value)
		}
	}
	return out
}

// Identifiers returns the identifier values in document order.
func (q *QDC) Identifiers() []string {
	return q.Values("identifier")
}

// MergeIdentifiers adds ids not already present. Existing identifiers keep
// their position and duplicates collapse.
func (q *QDC) MergeIdentifiers(ids ...string) {
	seen := map[string]struct{}{}
	for _, id := range q.Identifiers() {
		seen[id] = struct{}{}
	}
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		q.Add("identifier", id)
	}
}

// Marshal renders the document with the dcterms and xsi namespaces declared on
// the root.
func (q *QDC) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	root := xml.StartElement{
		Name: xml.Name{Local: qdcRoot},
		Attr: []xml.Attr{
			{Name: xml.Name{Local: "xmlns:" + dctermsPrefix}, Value: DCTermsNS},
			{Name: xml.Name{Local: "xmlns:xsi"}, Value: XSINS},
		},
	}
	if err := enc.EncodeToken(root); err != nil {
		return nil, fmt.Errorf("encode qdc: %w", err)
	}
	for _, el := range q.Elements {
		name := xml.Name{Local: dctermsPrefix + ":" + el.Term}
		if err := enc.EncodeElement(el.Value, xml.StartElement{Name: name}); err != nil {
			return nil, fmt.Errorf("encode qdc %s: %w", el.Term, err)
		}
	}
	if err := enc.EncodeToken(root.End()); err != nil {
		return nil, fmt.Errorf("encode qdc: %w", err)
	}
	if err := enc.Flush(); err != nil {
		return nil, fmt.Errorf("encode qdc: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// ParseQDC reads a descriptive metadata document written by Marshal or by an
// external tool using the same layout.
func ParseQDC(r io.Reader) (*QDC, error) {
	doc, err := xmlquery.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse qdc: %w", err)
	}
	root := xmlquery.FindOne(doc, "/*")
	if root == nil || root.Data != qdcRoot {
		return nil, fmt.Errorf("parse qdc: root element is not %q", qdcRoot)
	}
	q := &QDC{}
	for child := root.FirstChild; child != nil; child = child.NextSibling {
		if child.Type != xmlquery.ElementNode {
			continue
		}
		q.Add(child.Data, child.InnerText())
	}
	return q, nil
}
