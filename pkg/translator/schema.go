package translator

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/NimbleBrainInc/nimbletools-core/pkg/errors"
)

//go:embed schema.json
var schemaJSON []byte

var serverSchema = mustCompileSchema()

func mustCompileSchema() *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
	if err != nil {
		panic(fmt.Sprintf("embedded server definition schema is invalid: %v", err))
	}
	return schema
}

// validRuntimePattern matches the closed set of runtime base image tags:
// python:X.Y, node:X, supergateway-python:X.Y, binary, adapter-legacy.
var validRuntimePattern = regexp.MustCompile(`^(python:\d+\.\d+|node:\d+|supergateway-python:\d+\.\d+|binary|adapter-legacy)$`)

// validateDocument checks the document's structural integrity against
// the embedded server definition schema.
func validateDocument(doc []byte) error {
	result, err := serverSchema.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return errors.NewInvalidInputError("server definition is not valid JSON", err).
			WithCode(CodeInvalidServerDefinition)
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}
		return errors.NewInvalidInputError(
			"server definition failed schema validation: "+strings.Join(details, "; "), nil).
			WithCode(CodeInvalidServerDefinition)
	}
	return nil
}
