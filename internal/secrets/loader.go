package secrets

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrNotConfigured is returned when no source holds a value.
var ErrNotConfigured = eris.New("secret is not configured")

// Source describes how to load a secret value.
type Source struct {
	// Name is used in error messages to give more context about the secret.
	Name string
	// Value is an inline secret value provided via configuration or flags.
	Value string
	// File points to a file containing the secret value. When set it takes
	// precedence over Value.
	File string
	// Env names an environment variable consulted when neither File nor
	// Value is set.
	Env string
}

// Load returns the resolved, trimmed secret. File wins over Value, Value
// over Env. ErrNotConfigured is wrapped when nothing is set.
func Load(src Source) (string, error) {
	name := strings.TrimSpace(src.Name)
	if name == "" {
		name = "secret"
	}

	file := strings.TrimSpace(src.File)
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", eris.Wrapf(err, "reading %s from file %q", name, file)
		}
		secret := strings.TrimSpace(string(data))
		if secret == "" {
			return "", eris.Errorf("%s file %q is empty", name, file)
		}
		return secret, nil
	}

	if secret := strings.TrimSpace(src.Value); secret != "" {
		return secret, nil
	}

	if env := strings.TrimSpace(src.Env); env != "" {
		if secret := strings.TrimSpace(os.Getenv(env)); secret != "" {
			return secret, nil
		}
	}

	return "", eris.Wrapf(ErrNotConfigured, "%s", name)
}

// Optional is like Load but treats a missing secret as an empty value.
func Optional(src Source) (string, error) {
	secret, err := Load(src)
	if eris.Is(err, ErrNotConfigured) {
		return "", nil
	}
	return secret, err
}
