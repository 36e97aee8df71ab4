package ruleloader

import (
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ruleFileSchemaJSON is the structural pre-validation schema a rule
// file must satisfy before it is even unmarshaled into a document.
// Grounded on the per-tool parameter schema the teacher compiles at
// firewall allowlist time (core/pkg/firewall/firewall.go); here the
// "tool" is the rule-file format itself and the schema is fixed
// rather than per-caller-supplied.
const ruleFileSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["schema_version", "rules"],
  "properties": {
    "schema_version": {"type": "string"},
    "default_verdicts": {
      "type": "object",
      "additionalProperties": {"type": "string"}
    },
    "rules": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "verdict", "result_type", "clauses"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "description": {"type": "string"},
          "verdict": {"type": "string"},
          "result_type": {"type": "string", "minLength": 1},
          "schema_version": {"type": "string"},
          "expression": {"type": "string"},
          "platforms": {"type": "array", "items": {"type": "string"}},
          "change_types": {"type": "array", "items": {"type": "string"}},
          "clauses": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["field", "operation"],
              "properties": {
                "field": {"type": "string", "minLength": 1},
                "operation": {"type": "string", "minLength": 1},
                "data": {"type": "array", "items": {"type": "string"}},
                "dict_data": {"type": "object", "additionalProperties": {"type": "string"}},
                "label": {"type": "string"}
              }
            }
          }
        }
      }
    }
  }
}`

const ruleFileSchemaURL = "https://ruleanalyzer.local/schema/rule-file.schema.json"

var (
	schemaOnce    sync.Once
	compiledSchema   *jsonschema.Schema
	schemaLoadErr error
)

func ruleFileSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		if err := c.AddResource(ruleFileSchemaURL, strings.NewReader(ruleFileSchemaJSON)); err != nil {
			schemaLoadErr = fmt.Errorf("ruleloader: loading rule-file schema: %w", err)
			return
		}
		compiled, err := c.Compile(ruleFileSchemaURL)
		if err != nil {
			schemaLoadErr = fmt.Errorf("ruleloader: compiling rule-file schema: %w", err)
			return
		}
		compiledSchema = compiled
	})
	return compiledSchema, schemaLoadErr
}

// validateStructure runs the rule file's decoded form (a plain
// map[string]any/[]any tree, as produced by yaml.v3 or
// encoding/json) against the structural schema. This catches
// shape errors (missing required fields, wrong types) before C5's
// VerifyRules ever sees the rule, which only checks semantic grammar.
func validateStructure(decoded any) error {
	schema, err := ruleFileSchema()
	if err != nil {
		return err
	}
	if err := schema.Validate(decoded); err != nil {
		return fmt.Errorf("ruleloader: rule file failed structural validation: %w", err)
	}
	return nil
}
