package app

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

const (
	minJWTSecretBytes       = 32
	generatedJWTSecretBytes = 48
)

// SecretByteLength returns the entropy-bearing length of a configured secret.
// Hex and base64 values are measured after decoding; anything else counts as raw bytes.
func SecretByteLength(value string) int {
	v := strings.TrimSpace(value)
	if v == "" {
		return 0
	}

	if len(v)%2 == 0 {
		if decoded, err := hex.DecodeString(v); err == nil {
			return len(decoded)
		}
	}
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding} {
		if decoded, err := enc.DecodeString(v); err == nil {
			return len(decoded)
		}
	}
	return len(v)
}

// ApplyRuntimeDefaults fills settings a bare deployment cannot run without
// and returns the config keys of any secrets it generated. Generated secrets
// live only for this process.
func ApplyRuntimeDefaults(cfg *Config) ([]string, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	var generated []string
	if strings.TrimSpace(cfg.Auth.JWT.Secret) == "" {
		secret, err := randomHexSecret(generatedJWTSecretBytes)
		if err != nil {
			return nil, fmt.Errorf("generate jwt secret: %w", err)
		}
		cfg.Auth.JWT.Secret = secret
		generated = append(generated, "auth.jwt.secret")
	}
	if cfg.Projects.DefaultTeamSize <= 0 {
		cfg.Projects.DefaultTeamSize = 1
	}
	return generated, nil
}

func randomHexSecret(n int) (string, error) {
	if n <= 0 {
		return "", errors.New("secret length must be positive")
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
