package model

import (
	"fmt"
	"strings"
)

// Datastream names written by the repository or the pipeline.
const (
	DatastreamDC              = "DC"
	DatastreamRelsExt         = "RELS-EXT"
	DatastreamContent         = "content"
	DatastreamDescMetadata    = "descMetadata"
	DatastreamContentMetadata = "contentMetadata"
)

// MetadataType tags a metadata source format.
type MetadataType string

const (
	QDC               MetadataType = "qdc"
	ContentDM         MetadataType = "contentdm"
	ContentMetadata   MetadataType = "contentmetadata"
	DigitizationGuide MetadataType = "digitizationguide"
	DPCMetadata       MetadataType = "dpcmetadata"
	FMPExport         MetadataType = "fmpexport"
	JHOVE             MetadataType = "jhove"
	MARCXML           MetadataType = "marcxml"
	TripodMETS        MetadataType = "tripodmets"
)

type metadataInfo struct {
	datastream string
	// generation sources can feed descriptive metadata generation.
	generation bool
	// ancillary types are attached verbatim during ingestion.
	ancillary bool
}

var metadataTypes = map[MetadataType]metadataInfo{
	QDC:               {datastream: DatastreamDescMetadata},
	ContentDM:         {datastream: "contentdm", generation: true, ancillary: true},
	ContentMetadata:   {datastream: DatastreamContentMetadata},
	DigitizationGuide: {datastream: "digitizationGuide", generation: true, ancillary: true},
	DPCMetadata:       {datastream: "dpcMetadata", ancillary: true},
	FMPExport:         {datastream: "fmpExport", ancillary: true},
	JHOVE:             {datastream: "jhove", ancillary: true},
	MARCXML:           {datastream: "marcXML", generation: true, ancillary: true},
	TripodMETS:        {datastream: "tripodMets", ancillary: true},
}

// ParseMetadataType resolves a manifest metadata tag. "contentstructure" is
// accepted as an alias of contentmetadata.
func ParseMetadataType(tag string) (MetadataType, error) {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "contentstructure" {
		return ContentMetadata, nil
	}
	t := MetadataType(tag)
	if _, ok := metadataTypes[t]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownMetadataType, tag)
	}
	return t, nil
}

// Datastream returns the datastream name this metadata type is stored under.
func (t MetadataType) Datastream() string {
	return metadataTypes[t].datastream
}

// IsGenerationSource reports whether descriptive metadata can be derived from t.
func (t MetadataType) IsGenerationSource() bool {
	return metadataTypes[t].generation
}

// IsAncillary reports whether t is attached as-is during ingestion.
func (t MetadataType) IsAncillary() bool {
	return metadataTypes[t].ancillary
}

// AncillaryTypes lists the ancillary metadata types in attach order.
func AncillaryTypes() []MetadataType {
	return []MetadataType{ContentDM, DigitizationGuide, DPCMetadata, FMPExport, JHOVE, MARCXML, TripodMETS}
}

func (t MetadataType) String() string {
	return string(t)
}
