package repository

import (
	"bytes"
	"encoding/xml"

	"github.com/cordum/depositor/core/checksum"
	"github.com/cordum/depositor/core/model"
)

const (
	oaiDCNS  = "http://www.openarchives.org/OAI/2.0/oai_dc/"
	dcNS     = "http://purl.org/dc/elements/1.1/"
	rdfNS    = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	fedoraNS = "info:fedora/fedora-system:def/model#"
	relsNS   = "info:fedora/fedora-system:def/relations-external#"
)

// writeSystemDatastreams regenerates DC and RELS-EXT from the object fields.
func writeSystemDatastreams(obj *Object, alg checksum.Algorithm) error {
	dc, err := systemDC(obj)
	if err != nil {
		return err
	}
	if err := obj.SetDatastream(model.DatastreamDC, dc, "text/xml", alg); err != nil {
		return err
	}
	rels, err := systemRelsExt(obj)
	if err != nil {
		return err
	}
	return obj.SetDatastream(model.DatastreamRelsExt, rels, "application/rdf+xml", alg)
}

type dcDocument struct {
	XMLName     xml.Name `xml:"oai_dc:dc"`
	OAI         string   `xml:"xmlns:oai_dc,attr"`
	DC          string   `xml:"xmlns:dc,attr"`
	Title       string   `xml:"dc:title,omitempty"`
	Identifiers []string `xml:"dc:identifier"`
}

func systemDC(obj *Object) ([]byte, error) {
	doc := dcDocument{OAI: oaiDCNS, DC: dcNS, Title: obj.Label}
	doc.Identifiers = append(doc.Identifiers, obj.PID)
	doc.Identifiers = append(doc.Identifiers, obj.Identifiers...)
	return marshalSystem(doc)
}

type relsResource struct {
	Resource string `xml:"rdf:resource,attr"`
}

type relsDescription struct {
	About        string        `xml:"rdf:about,attr"`
	HasModel     relsResource  `xml:"fedora-model:hasModel"`
	IsMemberOf   *relsResource `xml:"rel:isMemberOf,omitempty"`
	IsPartOf     *relsResource `xml:"rel:isPartOf,omitempty"`
	IsGovernedBy *relsResource `xml:"rel:isGovernedBy,omitempty"`
}

type relsDocument struct {
	XMLName     xml.Name        `xml:"rdf:RDF"`
	RDF         string          `xml:"xmlns:rdf,attr"`
	Model       string          `xml:"xmlns:fedora-model,attr"`
	Rel         string          `xml:"xmlns:rel,attr"`
	Description relsDescription `xml:"rdf:Description"`
}

func systemRelsExt(obj *Object) ([]byte, error) {
	desc := relsDescription{
		About:    "info:fedora/" + obj.PID,
		HasModel: relsResource{Resource: "info:fedora/afmodel:" + string(obj.Model)},
	}
	if obj.ParentPID != "" {
		parent := &relsResource{Resource: "info:fedora/" + obj.ParentPID}
		// Items are members of collections; components are parts of items.
		if obj.Model == model.Item {
			desc.IsMemberOf = parent
		} else {
			desc.IsPartOf = parent
		}
	}
	if obj.AdminPolicy != "" {
		desc.IsGovernedBy = &relsResource{Resource: "info:fedora/" + obj.AdminPolicy}
	}
	return marshalSystem(relsDocument{RDF: rdfNS, Model: fedoraNS, Rel: relsNS, Description: desc})
}

func marshalSystem(v any) ([]byte, error) {
	body, err := xml.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	buf.Write(body)
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
