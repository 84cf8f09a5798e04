package transform

import (
	"context"
	"strings"

	"github.com/antchfx/xmlquery"
)

// dcTerms maps a normalized source field name to its dcterms element.
var dcTerms = map[string]string{
	"title":        "title",
	"alternative":  "alternative",
	"creator":      "creator",
	"contributor":  "contributor",
	"subject":      "subject",
	"description":  "description",
	"abstract":     "abstract",
	"publisher":    "publisher",
	"date":         "date",
	"created":      "created",
	"datecreated":  "created",
	"issued":       "issued",
	"type":         "type",
	"format":       "format",
	"extent":       "extent",
	"medium":       "medium",
	"identifier":   "identifier",
	"source":       "source",
	"language":     "language",
	"relation":     "relation",
	"ispartof":     "isPartOf",
	"coverage":     "coverage",
	"spatial":      "spatial",
	"temporal":     "temporal",
	"rights":       "rights",
	"rightsholder": "rightsHolder",
	"provenance":   "provenance",
	"accessrights": "accessRights",
}

// Digitization guides use their own column headings.
var digitizationGuideAliases = map[string]string{
	"localid":     "identifier",
	"callnumber":  "identifier",
	"itemtitle":   "title",
	"author":      "creator",
	"notes":       "description",
	"datecreated": "created",
	"dimensions":  "extent",
	"collection":  "isPartOf",
	"box":         "",
	"folder":      "",
}

// FromContentDM maps CONTENTdm export fields whose names match dcterms
// elements. Nested field groups are flattened.
func FromContentDM(_ context.Context, doc *xmlquery.Node) (*QDC, error) {
	q := Stub()
	for _, leaf := range leafElements(doc) {
		if term, ok := dcTerms[normalizeField(leaf.Data)]; ok {
			addSplit(q, term, leaf.InnerText())
		}
	}
	return q, nil
}

// FromDigitizationGuide maps digitization guide columns, honoring the guide's
// column aliases before the dcterms names.
func FromDigitizationGuide(_ context.Context, doc *xmlquery.Node) (*QDC, error) {
	q := Stub()
	for _, leaf := range leafElements(doc) {
		field := normalizeField(leaf.Data)
		if term, ok := digitizationGuideAliases[field]; ok {
			q.Add(term, leaf.InnerText())
			continue
		}
		if term, ok := dcTerms[field]; ok {
			q.Add(term, leaf.InnerText())
		}
	}
	return q, nil
}

type marcRule struct {
	tag   string
	codes string
	term  string
}

var marcRules = []marcRule{
	{tag: "245", codes: "ab", term: "title"},
	{tag: "246", codes: "a", term: "alternative"},
	{tag: "100", codes: "a", term: "creator"},
	{tag: "110", codes: "a", term: "creator"},
	{tag: "700", codes: "a", term: "contributor"},
	{tag: "260", codes: "b", term: "publisher"},
	{tag: "264", codes: "b", term: "publisher"},
	{tag: "260", codes: "c", term: "date"},
	{tag: "264", codes: "c", term: "date"},
	{tag: "300", codes: "a", term: "extent"},
	{tag: "520", codes: "a", term: "abstract"},
	{tag: "500", codes: "a", term: "description"},
	{tag: "546", codes: "a", term: "language"},
	{tag: "650", codes: "a", term: "subject"},
	{tag: "651", codes: "a", term: "spatial"},
	{tag: "035", codes: "a", term: "identifier"},
}

// FromMARCXML maps a MARC21 slim record onto dcterms.
func FromMARCXML(_ context.Context, doc *xmlquery.Node) (*QDC, error) {
	q := Stub()
	if cf := xmlquery.FindOne(doc, "//*[local-name()='controlfield'][@tag='001']"); cf != nil {
		q.Add("identifier", cf.InnerText())
	}
	for _, rule := range marcRules {
		fields := xmlquery.Find(doc, "//*[local-name()='datafield'][@tag='"+rule.tag+"']")
		for _, field := range fields {
			var parts []string
			for _, sub := range xmlquery.Find(field, "./*[local-name()='subfield']") {
				if code := sub.SelectAttr("code"); code != "" && strings.Contains(rule.codes, code) {
					parts = append(parts, strings.TrimSpace(sub.InnerText()))
				}
			}
			q.Add(rule.term, trimISBDPunctuation(strings.Join(parts, " ")))
		}
	}
	return q, nil
}

func leafElements(doc *xmlquery.Node) []*xmlquery.Node {
	var out []*xmlquery.Node
	var walk func(n *xmlquery.Node)
	walk = func(n *xmlquery.Node) {
		hasElementChild := false
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == xmlquery.ElementNode {
				hasElementChild = true
				walk(c)
			}
		}
		if n.Type == xmlquery.ElementNode && !hasElementChild {
			out = append(out, n)
		}
	}
	walk(doc)
	return out
}

func normalizeField(name string) string {
	name = strings.ToLower(name)
	return strings.Map(func(r rune) rune {
		if r == '_' || r == '-' || r == ' ' || r == '.' {
			return -1
		}
		return r
	}, name)
}

// CONTENTdm stores repeated values in one field separated by semicolons.
func addSplit(q *QDC, term, value string) {
	for _, part := range strings.Split(value, ";") {
		q.Add(term, part)
	}
}

func trimISBDPunctuation(value string) string {
	return strings.TrimRight(strings.TrimSpace(value), " /:;,.")
}
