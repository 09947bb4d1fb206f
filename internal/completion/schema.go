package completion

import (
	_ "embed"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/kaptinlin/jsonschema"

	"github.com/jimdaga/studymate/internal/apperr"
)

//go:embed request.schema.json
var requestSchemaJSON []byte

var requestSchema = sync.OnceValue(func() *jsonschema.Schema {
	schema, err := jsonschema.NewCompiler().Compile(requestSchemaJSON)
	if err != nil {
		panic(fmt.Sprintf("completion: failed to compile request schema: %v", err))
	}
	return schema
})

// validateRequest checks a decoded request body against the request schema.
func validateRequest(body map[string]any) error {
	result := requestSchema().Validate(body)
	if result.IsValid() {
		return nil
	}

	keys := make([]string, 0, len(result.Errors))
	for key := range result.Errors {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	fields := make([]apperr.FieldError, 0, len(keys))
	messages := make([]string, 0, len(keys))
	for _, key := range keys {
		msg := result.Errors[key].Error()
		fields = append(fields, apperr.FieldError{Field: key, Error: msg})
		messages = append(messages, fmt.Sprintf("%s: %s", key, msg))
	}
	return apperr.Validation("Invalid request: "+strings.Join(messages, "; "), fields...)
}
