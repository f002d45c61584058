package ai

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	_ "embed"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/spigell/cv-verifier/internal/logger"
	"github.com/spigell/cv-verifier/internal/utils"
)

//go:embed prompt.md
var promptTemplate string

const (
	defaultMaxLogLength = 200
	defaultTimeout      = 30 * time.Second
)

// PromptComparator implements Comparator on top of any text Generator.
type PromptComparator struct {
	generator Generator
	timeout   time.Duration
	maxLogLen int
	logger    *zap.Logger
}

// NewPromptComparator wires a generator into a Comparator. Non-positive
// timeout or maxLogLength fall back to defaults.
func NewPromptComparator(generator Generator, provider string, timeout time.Duration, maxLogLength int, log *zap.Logger) *PromptComparator {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	model := ""
	if generator != nil {
		model = generator.Model()
	}

	return &PromptComparator{
		generator: generator,
		timeout:   timeout,
		maxLogLen: maxLogLength,
		logger:    logger.WithCommonFields(log, provider, model),
	}
}

func (c *PromptComparator) Compare(ctx context.Context, description, expected string) (*Verdict, error) {
	if c == nil || c.generator == nil {
		return nil, eris.New("comparator is not configured")
	}

	prompt := BuildPrompt(description, expected)

	c.logger.Debug("comparator request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, c.maxLogLen)),
	)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	raw, err := c.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, eris.Wrap(err, "generate verdict")
	}

	c.logger.Debug("comparator response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, c.maxLogLen)),
	)

	return ParseVerdict(raw)
}

// BuildPrompt renders the comparison prompt.
func BuildPrompt(description, expected string) string {
	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Description:\n{{DESCRIPTION}}\n\nExpected keywords:\n{{EXPECTED_KEYWORDS}}\n\nJSON Response:"
	}
	prompt := strings.ReplaceAll(template, "{{DESCRIPTION}}", strings.TrimSpace(description))
	return strings.ReplaceAll(prompt, "{{EXPECTED_KEYWORDS}}", strings.TrimSpace(expected))
}
