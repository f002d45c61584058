package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPrefersFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	require.NoError(t, os.WriteFile(path, []byte("  from-file \n"), 0o600))

	secret, err := Load(Source{Name: "github token", File: path, Value: "inline"})
	require.NoError(t, err)
	assert.Equal(t, "from-file", secret)
}

func TestLoadEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	require.NoError(t, os.WriteFile(path, []byte("\n"), 0o600))

	_, err := Load(Source{Name: "github token", File: path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is empty")
}

func TestLoadFallsBackToEnv(t *testing.T) {
	t.Setenv("CV_VERIFIER_TEST_SECRET", " env-value ")

	secret, err := Load(Source{Env: "CV_VERIFIER_TEST_SECRET"})
	require.NoError(t, err)
	assert.Equal(t, "env-value", secret)
}

func TestLoadNotConfigured(t *testing.T) {
	_, err := Load(Source{Name: "gemini api key"})
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotConfigured))

	secret, err := Optional(Source{Name: "gemini api key"})
	require.NoError(t, err)
	assert.Empty(t, secret)
}
