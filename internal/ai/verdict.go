package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/xeipuuv/gojsonschema"
)

const verdictSchemaJSON = `{
  "type": "object",
  "required": ["match", "score"],
  "properties": {
    "match":  {"type": "boolean"},
    "score":  {"type": "number", "minimum": 0, "maximum": 1},
    "reason": {"type": "string"}
  }
}`

var verdictSchema = mustSchema(verdictSchemaJSON)

func mustSchema(raw string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(raw))
	if err != nil {
		panic(fmt.Sprintf("invalid verdict schema: %v", err))
	}
	return schema
}

// ParseVerdict extracts the JSON object from a model response and checks it
// against the verdict shape. Any mismatch is an error.
func ParseVerdict(raw string) (*Verdict, error) {
	cleaned := extractJSON(raw)
	if cleaned == "" {
		return nil, eris.New("response does not contain a json object")
	}

	result, err := verdictSchema.Validate(gojsonschema.NewStringLoader(cleaned))
	if err != nil {
		return nil, eris.Wrap(err, "parse verdict")
	}

	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}
		return nil, eris.Errorf("verdict does not match schema: %s", strings.Join(problems, "; "))
	}

	var verdict Verdict
	if err := json.Unmarshal([]byte(cleaned), &verdict); err != nil {
		return nil, eris.Wrap(err, "decode verdict")
	}

	verdict.Reason = strings.TrimSpace(verdict.Reason)
	verdict.Raw = raw

	return &verdict, nil
}

// extractJSON strips markdown fences and surrounding prose, returning the
// outermost {...} span.
func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end < start {
		return ""
	}

	return strings.TrimSpace(raw[start : end+1])
}
