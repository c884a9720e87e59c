package pollgate

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// challengeSchema is the shape a 402 challenge body must have before the
// negotiator will attempt selection. Anything else is treated as a challenge
// with no usable payment method.
const challengeSchema = `{
  "type": "object",
  "required": ["x402Version", "accepts"],
  "properties": {
    "x402Version": {"type": "integer", "minimum": 1},
    "accepts": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["scheme", "network", "payTo", "maxAmountRequired"],
        "properties": {
          "scheme": {"type": "string", "minLength": 1},
          "network": {"type": "string", "minLength": 1},
          "payTo": {"type": "string", "minLength": 1},
          "maxAmountRequired": {"type": "string", "pattern": "^[0-9]+$"},
          "asset": {"type": "string"},
          "extra": {"type": "object"}
        }
      }
    }
  }
}`

// ValidateChallengeBody checks the raw 402 body against the challenge
// schema. The returned error lists every violation.
func ValidateChallengeBody(body []byte) error {
	schemaLoader := gojsonschema.NewStringLoader(challengeSchema)
	documentLoader := gojsonschema.NewBytesLoader(body)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("challenge body is not valid JSON: %w", err)
	}
	if result.Valid() {
		return nil
	}

	violations := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		violations = append(violations, desc.String())
	}
	return fmt.Errorf("challenge body failed validation: %s", strings.Join(violations, "; "))
}
