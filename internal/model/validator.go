package model

import (
	_ "embed"
	"fmt"
	"slices"
	"strings"

	jss "github.com/kaptinlin/jsonschema"
)

//go:embed job.schema.json
var jobSchemaSource []byte

var jobSchema *jss.Schema

func init() {
	compiler := jss.NewCompiler()
	schema, err := compiler.Compile(jobSchemaSource)
	if err != nil {
		panic(fmt.Errorf("compiling job schema: %w", err))
	}
	jobSchema = schema
}

// ValidateEnvelope checks the JSON encoded envelope b against the job schema
// the executor accepts.
func ValidateEnvelope(b []byte) error {
	res := jobSchema.Validate(b)
	if res.Valid {
		return nil
	}
	errorMsgs := make([]string, 0, len(res.Errors))
	for _, err := range res.Errors {
		errorMsgs = append(errorMsgs, fmt.Sprintf("%s: %s", err.Keyword, err.Error()))
	}
	slices.Sort(errorMsgs)
	return fmt.Errorf("%w:\n%s", ErrInvalidEnvelope, strings.Join(errorMsgs, "\n"))
}
