package config

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

const schemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "width":     {"type": "integer", "minimum": 1},
    "height":    {"type": "integer", "minimum": 1},
    "period_ms": {"type": "integer", "minimum": 0, "maximum": 10000},
    "seed":      {"type": "integer"},
    "ui":        {"enum": ["term", "gui", "headless"]},
    "scale":     {"type": "integer", "minimum": 1, "maximum": 256},
    "log": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "level": {"enum": ["error", "warn", "info", "debug", "trace"]},
        "file":  {"type": "string"}
      }
    },
    "sinks": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "event_log": {"type": "string"},
        "index_db":  {"type": "string"},
        "observe":   {"type": "string"},
        "audio":     {"type": "boolean"}
      }
    },
    "headless": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "ticks":        {"type": "integer", "minimum": 0},
        "report_every": {"type": "string", "pattern": "^[0-9]+(\\.[0-9]+)?(ns|us|µs|ms|s|m|h)$"}
      }
    }
  }
}`

var schema = jsonschema.MustCompileString("config.schema.json", schemaJSON)

// validateYAML checks a YAML document against the config schema. The
// document goes through JSON so the validator sees plain JSON types.
func validateYAML(raw []byte) error {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return err
	}
	if doc == nil {
		return nil
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("config is not JSON-compatible: %w", err)
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	return schema.Validate(v)
}
