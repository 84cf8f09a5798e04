package config

import "embed"

const manifestSchemaFile = "schema/manifest.schema.json"

//go:embed schema/*.json
var configSchemaFS embed.FS
