package manifest

import (
	"path/filepath"
	"strings"

	"github.com/cordum/depositor/core/model"
)

const (
	masterDir       = "master"
	masterFile      = "master.xml"
	checksumDir     = "checksum"
	xmlExtension    = ".xml"
	structureFolder = "contentmetadata"
)

// MetadataPath returns the source file for a metadata type. An absolute override
// wins; a relative override names a file inside the type folder.
func MetadataPath(basepath string, t model.MetadataType, override, key string) string {
	switch {
	case override == "":
		return filepath.Join(basepath, string(t), key+xmlExtension)
	case filepath.IsAbs(override):
		return override
	default:
		return filepath.Join(basepath, string(t), override)
	}
}

// QDCPath is where preparation writes and ingestion reads descriptive metadata.
func QDCPath(basepath, key string) string {
	return MetadataPath(basepath, model.QDC, "", key)
}

// StructurePath is where post-processing writes structural metadata.
func StructurePath(basepath, key string) string {
	return filepath.Join(basepath, structureFolder, key+xmlExtension)
}

// ContentPath concatenates location, key and extension. A relative location is
// resolved under basepath.
func ContentPath(basepath string, spec ContentSpec, key string) string {
	location := spec.Location
	if !filepath.IsAbs(location) {
		resolved := filepath.Join(basepath, location)
		if strings.HasSuffix(location, "/") || location == "" {
			resolved += string(filepath.Separator)
		}
		location = resolved
	}
	return location + key + spec.Extension
}

// MasterPath resolves the ledger file.
func MasterPath(basepath, master string) string {
	switch {
	case strings.TrimSpace(master) == "":
		return filepath.Join(basepath, masterDir, masterFile)
	case filepath.IsAbs(master):
		return master
	default:
		return filepath.Join(basepath, masterDir, master)
	}
}

// ChecksumPath resolves the external checksum file.
func ChecksumPath(basepath, location string) string {
	if filepath.IsAbs(location) {
		return location
	}
	return filepath.Join(basepath, checksumDir, location)
}
