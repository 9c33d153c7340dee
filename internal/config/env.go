package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrMissingAPIKey indicates neither the environment nor the env file carries a key.
var ErrMissingAPIKey = errors.New("transcription api key not found")

// APIKey is a resolved credential and where it came from.
type APIKey struct {
	Value  string
	Source string
}

// ResolveAPIKey reads the key named by transcription.api_key_env from the process
// environment, then from the env file (default ~/.config/whispa/.env).
func ResolveAPIKey(cfg TranscriptionConfig) (APIKey, error) {
	name := strings.TrimSpace(cfg.APIKeyEnv)
	if name == "" {
		return APIKey{}, fmt.Errorf("%w: transcription.api_key_env is empty", ErrMissingAPIKey)
	}

	if value := strings.TrimSpace(os.Getenv(name)); value != "" {
		return APIKey{Value: value, Source: "env:" + name}, nil
	}

	path, err := resolveEnvFile(cfg.EnvFile)
	if err != nil {
		return APIKey{}, err
	}
	values, err := readEnvFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return APIKey{}, fmt.Errorf("%w: $%s is unset and %s does not exist", ErrMissingAPIKey, name, path)
		}
		return APIKey{}, err
	}
	if value := strings.TrimSpace(values[name]); value != "" {
		return APIKey{Value: value, Source: "file:" + path}, nil
	}
	return APIKey{}, fmt.Errorf("%w: $%s is unset and %s has no %s entry", ErrMissingAPIKey, name, path, name)
}

func resolveEnvFile(explicit string) (string, error) {
	explicit = strings.TrimSpace(explicit)
	if explicit != "" {
		if strings.HasPrefix(explicit, "~/") {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("resolve home for env file: %w", err)
			}
			return filepath.Join(home, explicit[2:]), nil
		}
		return explicit, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ".env"), nil
}

// readEnvFile parses KEY=VALUE lines; blank lines, # comments and an
// optional "export " prefix are accepted, and matching outer quotes are removed.
func readEnvFile(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("%s:%d: expected KEY=VALUE", path, lineNo)
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if len(value) >= 2 && (value[0] == '"' || value[0] == '\'') && value[len(value)-1] == value[0] {
			value = value[1 : len(value)-1]
		} else if idx := strings.Index(value, " #"); idx >= 0 {
			value = strings.TrimSpace(value[:idx])
		}
		values[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read env file %q: %w", path, err)
	}
	return values, nil
}
