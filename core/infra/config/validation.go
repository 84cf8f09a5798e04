package config

import (
	"fmt"
	"sync"

	configschema "github.com/cordum/depositor/core/infra/schema"
)

var (
	manifestValidatorOnce sync.Once
	manifestValidator     *configschema.Validator
	manifestValidatorErr  error
)

// ValidateManifest checks a raw manifest document against the embedded schema.
func ValidateManifest(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("manifest is empty")
	}
	return validateConfigSchema("manifest", data)
}

func validateConfigSchema(name string, data []byte) error {
	manifestValidatorOnce.Do(func() {
		schemaBytes, err := configSchemaFS.ReadFile(manifestSchemaFile)
		if err != nil {
			manifestValidatorErr = fmt.Errorf("load %s schema: %w", name, err)
			return
		}
		manifestValidator = configschema.NewValidator(name, schemaBytes)
	})
	if manifestValidatorErr != nil {
		return manifestValidatorErr
	}
	if err := manifestValidator.ValidateYAML(data); err != nil {
		return fmt.Errorf("validate %s: %w", name, err)
	}
	return nil
}
