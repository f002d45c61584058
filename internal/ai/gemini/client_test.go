package gemini

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type fakeModels struct {
	resp   *genai.GenerateContentResponse
	err    error
	model  string
	config *genai.GenerateContentConfig
	text   string
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.config = config
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		f.text = contents[0].Parts[0].Text
	}
	return f.resp, f.err
}

func TestGeneratorJoinsTextParts(t *testing.T) {
	models := &fakeModels{resp: &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			nil,
			{Content: &genai.Content{Parts: []*genai.Part{{Text: `{"match": true,`}, nil, {Text: "  "}, {Text: `"score": 1}`}}}},
		},
	}}
	g := &Generator{models: models, modelName: "gemini-test"}

	out, err := g.GenerateContent(context.Background(), "  compare these  ")
	require.NoError(t, err)

	assert.Equal(t, "{\"match\": true,\n\"score\": 1}", out)
	assert.Equal(t, "gemini-test", models.model)
	assert.Equal(t, "compare these", models.text)
	require.NotNil(t, models.config)
	assert.Equal(t, jsonMIMEType, models.config.ResponseMIMEType)
}

func TestGeneratorErrors(t *testing.T) {
	apiErr := genai.APIError{Code: http.StatusTooManyRequests, Status: "RESOURCE_EXHAUSTED"}

	g := &Generator{models: &fakeModels{err: apiErr}, modelName: "gemini-test"}
	_, err := g.GenerateContent(context.Background(), "prompt")
	require.Error(t, err)

	g = &Generator{models: &fakeModels{resp: &genai.GenerateContentResponse{}}, modelName: "gemini-test"}
	_, err = g.GenerateContent(context.Background(), "prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty response")

	_, err = g.GenerateContent(context.Background(), "   ")
	require.Error(t, err)

	var nilGen *Generator
	_, err = nilGen.GenerateContent(context.Background(), "prompt")
	require.Error(t, err)
	assert.Empty(t, nilGen.Model())
}

func TestNewGeneratorRequiresKey(t *testing.T) {
	_, err := NewGenerator(context.Background(), " ", "")
	require.Error(t, err)
}
