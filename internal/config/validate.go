// CUE schema validation code
package config

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/encoding/yaml"
)

//go:embed schema.cue
var defaultSchema []byte

// Schema definitions checked by ValidateWithCue.
const (
	TestPlanDefinition = "#TestPlan"
	NodeMapDefinition  = "#NodeMap"
)

// SchemaBytes returns the schema at path, or the embedded schema when path is empty.
func SchemaBytes(path string) ([]byte, error) {
	if path == "" {
		return defaultSchema, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read CUE schema: %w", err)
	}
	return b, nil
}

// ValidateWithCue validates a YAML (or JSON) document against one definition
// of a CUE schema.
func ValidateWithCue(filename string, data, schema []byte, definition string) error {
	ctx := cuecontext.New()

	schemaVal := ctx.CompileBytes(schema)
	if err := schemaVal.Err(); err != nil {
		return fmt.Errorf("cannot compile CUE schema: %w", err)
	}
	def := schemaVal.LookupPath(cue.ParsePath(definition))
	if err := def.Err(); err != nil {
		return fmt.Errorf("schema has no %s: %w", definition, err)
	}

	file, err := yaml.Extract(filename, data)
	if err != nil {
		return fmt.Errorf("cannot parse %s: %w", filename, err)
	}
	docVal := ctx.BuildFile(file)
	if err := docVal.Err(); err != nil {
		return fmt.Errorf("cannot build %s: %w", filename, err)
	}

	if err := def.Unify(docVal).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}
