package backend

import (
	"encoding/json"
	"fmt"
	"strings"

	"translatorhub/internal/models"

	"github.com/xeipuuv/gojsonschema"
)

// outputSchema is the contract shared by all three endpoints
const outputSchema = `{
	"type": "object",
	"required": ["output"],
	"properties": {
		"output": {"type": "string"}
	}
}`

var compiledOutputSchema = mustCompileSchema(outputSchema)

func mustCompileSchema(s string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(s))
	if err != nil {
		panic(fmt.Sprintf("invalid output schema: %v", err))
	}
	return schema
}

type outputResponse struct {
	Output string `json:"output"`
}

// decodeOutput validates a 2xx body and extracts its output string
func decodeOutput(body []byte) (string, error) {
	if !json.Valid(body) {
		return "", models.NewMalformedResponseError(fmt.Errorf("response is not JSON"))
	}

	result, err := compiledOutputSchema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return "", models.NewMalformedResponseError(err)
	}
	if !result.Valid() {
		var errs []string
		for _, desc := range result.Errors() {
			errs = append(errs, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
		}
		return "", models.NewMalformedResponseError(fmt.Errorf("response does not match schema: %s", strings.Join(errs, "; ")))
	}

	var resp outputResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", models.NewMalformedResponseError(err)
	}
	return resp.Output, nil
}
