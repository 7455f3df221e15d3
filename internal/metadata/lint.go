package metadata

import (
	"bytes"
	"fmt"

	js "github.com/santhosh-tekuri/jsonschema/v5"
)

const lintResource = "schema.json"

// Lint compiles doc as a JSON Schema and returns an error if it is not one.
func Lint(doc []byte) error {
	compiler := js.NewCompiler()
	compiler.Draft = js.Draft7
	if err := compiler.AddResource(lintResource, bytes.NewReader(doc)); err != nil {
		return fmt.Errorf("error loading schema: %w", err)
	}
	if _, err := compiler.Compile(lintResource); err != nil {
		return fmt.Errorf("error compiling schema: %w", err)
	}
	return nil
}
