package secrets

import (
	"fmt"
	"os"
	"strings"
)

// Source describes where a secret such as the Gemini API key or the database DSN comes from.
type Source struct {
	// Name is used in error messages to give more context about the secret.
	Name string
	// Value is an inline secret value provided via configuration.
	Value string
	// File points to a file containing the secret value. It takes precedence over Value.
	File string
	// EnvFile names an environment variable holding a secret file path.
	// It is consulted only when File is empty.
	EnvFile string
}

// Load returns the trimmed secret from src. File (or the path found in EnvFile)
// wins over Value. An error is returned when no usable secret is found.
func Load(src Source) (string, error) {
	name := strings.TrimSpace(src.Name)
	if name == "" {
		name = "secret"
	}

	file := strings.TrimSpace(src.File)
	if file == "" && src.EnvFile != "" {
		file = strings.TrimSpace(os.Getenv(src.EnvFile))
	}

	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading %s from file %q: %w", name, file, err)
		}

		secret := strings.TrimSpace(string(data))
		if secret == "" {
			return "", fmt.Errorf("%s file %q is empty", name, file)
		}
		return secret, nil
	}

	secret := strings.TrimSpace(src.Value)
	if secret == "" {
		return "", fmt.Errorf("%s is not configured", name)
	}

	return secret, nil
}
