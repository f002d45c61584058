package resume

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/spigell/cv-verifier/internal/logger"
)

const (
	defaultPdfToText   = "pdftotext"
	defaultReadTimeout = 60 * time.Second
)

// TextSource returns best-effort plain text for a document. Implementations
// return an empty string on failure.
type TextSource interface {
	Text(ctx context.Context, path string) string
}

// FileText reads plain text files directly and runs PDFs through pdftotext.
type FileText struct {
	binPath string
	timeout time.Duration
	logger  *zap.Logger
}

// NewFileText creates a FileText source. An empty binPath means "pdftotext"
// from PATH.
func NewFileText(binPath string, log *zap.Logger) *FileText {
	if strings.TrimSpace(binPath) == "" {
		binPath = defaultPdfToText
	}
	return &FileText{
		binPath: binPath,
		timeout: defaultReadTimeout,
		logger:  logger.WithFields(log),
	}
}

func (f *FileText) Text(ctx context.Context, path string) string {
	text, err := f.read(ctx, path)
	if err != nil {
		f.logger.Warn("text extraction failed, continuing with empty text",
			zap.String("path", path),
			zap.Error(err),
		)
		return ""
	}
	return text
}

func (f *FileText) read(ctx context.Context, path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", eris.New("document path is empty")
	}

	if !strings.EqualFold(filepath.Ext(path), ".pdf") {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", eris.Wrapf(err, "read %s", path)
		}
		return string(data), nil
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, f.binPath, "-layout", path, "-")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", eris.Wrapf(err, "pdftotext failed for %s: %s", path, strings.TrimSpace(stderr.String()))
	}

	return stdout.String(), nil
}
