package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/invopop/jsonschema"
)

//go:embed schema.json
var embeddedSchema string

// VerifyAgainstEmbeddedSchema checks the config against required fields and enums of the embedded JSON schema
func VerifyAgainstEmbeddedSchema(cfg *Config) error {
	var schema struct {
		Defs map[string]struct {
			Properties map[string]struct {
				Enum []string `json:"enum"`
			} `json:"properties"`
		} `json:"$defs"`
	}
	if err := json.Unmarshal([]byte(embeddedSchema), &schema); err != nil {
		return fmt.Errorf("parse embedded schema: %w", err)
	}

	if storage, ok := schema.Defs["StorageConfig"]; ok {
		if enum := storage.Properties["backend"].Enum; len(enum) > 0 && !slices.Contains(enum, cfg.Storage.Backend) {
			return fmt.Errorf("storage.backend %q not in %v", cfg.Storage.Backend, enum)
		}
	}

	if err := validateRequiredFields(cfg); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}

// validateRequiredFields performs basic validation of required fields
func validateRequiredFields(cfg *Config) error {
	if cfg.Server.Listen == "" {
		return fmt.Errorf("server.listen is required")
	}
	if cfg.Server.Timeout == 0 {
		return fmt.Errorf("server.timeout is required")
	}
	if cfg.Storage.Backend == BackendDynamo && cfg.Storage.Dynamo.Region == "" {
		return fmt.Errorf("storage.dynamo.region is required for dynamo backend")
	}
	if cfg.Storage.Backend == BackendSQLite && cfg.Storage.SQLite.DSN == "" {
		return fmt.Errorf("storage.sqlite.dsn is required for sqlite backend")
	}
	if cfg.Export.S3.Bucket != "" && cfg.Export.S3.Region == "" {
		return fmt.Errorf("export.s3.region is required when bucket is set")
	}
	return nil
}

// GenerateSchema generates a JSON schema for the Config struct
func GenerateSchema() *jsonschema.Schema {
	return jsonschema.Reflect(&Config{})
}
