package app

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSecretByteLength(t *testing.T) {
	raw := make([]byte, 32)
	for i := range raw {
		raw[i] = byte(i)
	}

	cases := []struct {
		name  string
		value string
		want  int
	}{
		{name: "empty", value: "  ", want: 0},
		{name: "hex", value: strings.Repeat("ab", 32), want: 32},
		{name: "base64", value: base64.StdEncoding.EncodeToString(raw), want: 32},
		{name: "raw base64", value: base64.RawStdEncoding.EncodeToString(raw[:31]), want: 31},
		{name: "plain", value: "not*a*key", want: 9},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, SecretByteLength(tc.value))
		})
	}
}

func TestApplyRuntimeDefaultsGeneratesMissingSecret(t *testing.T) {
	cfg := &Config{}

	generated, err := ApplyRuntimeDefaults(cfg)
	require.NoError(t, err)
	require.Equal(t, []string{"auth.jwt.secret"}, generated)
	require.Equal(t, generatedJWTSecretBytes, SecretByteLength(cfg.Auth.JWT.Secret))
	require.Equal(t, 1, cfg.Projects.DefaultTeamSize)
}

func TestApplyRuntimeDefaultsKeepsConfiguredValues(t *testing.T) {
	secret := strings.Repeat("cd", minJWTSecretBytes)
	cfg := &Config{}
	cfg.Auth.JWT.Secret = secret
	cfg.Projects.DefaultTeamSize = 4

	generated, err := ApplyRuntimeDefaults(cfg)
	require.NoError(t, err)
	require.Empty(t, generated)
	require.Equal(t, secret, cfg.Auth.JWT.Secret)
	require.Equal(t, 4, cfg.Projects.DefaultTeamSize)

	_, err = ApplyRuntimeDefaults(nil)
	require.EqualError(t, err, "config is nil")
}

func TestRandomHexSecret(t *testing.T) {
	a, err := randomHexSecret(4)
	require.NoError(t, err)
	require.Len(t, a, 8)

	b, err := randomHexSecret(4)
	require.NoError(t, err)
	require.NotEqual(t, a, b)

	_, err = randomHexSecret(0)
	require.Error(t, err)
}
