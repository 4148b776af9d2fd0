package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_PlainPassthrough(t *testing.T) {
	got, err := Resolve("sk-plain-value")
	require.NoError(t, err)
	assert.Equal(t, "sk-plain-value", got)
}

func TestResolve_EnvVar(t *testing.T) {
	t.Setenv("CCO_TEST_KEY", "resolved-value")
	got, err := Resolve("${CCO_TEST_KEY}")
	require.NoError(t, err)
	assert.Equal(t, "resolved-value", got)
}

func TestResolve_EnvVarWithDefault(t *testing.T) {
	got, err := Resolve("${CCO_TEST_MISSING:-fallback}")
	require.NoError(t, err)
	assert.Equal(t, "fallback", got)
}

func TestResolve_EnvVarPresentIgnoresDefault(t *testing.T) {
	t.Setenv("CCO_TEST_KEY2", "present")
	got, err := Resolve("${CCO_TEST_KEY2:-fallback}")
	require.NoError(t, err)
	assert.Equal(t, "present", got)
}

func TestResolve_MissingNoDefaultErrors(t *testing.T) {
	_, err := Resolve("${CCO_TEST_DEFINITELY_UNSET}")
	assert.Error(t, err)
}

func TestResolve_EmbeddedInLargerString(t *testing.T) {
	t.Setenv("CCO_TEST_HOST", "example.com")
	got, err := Resolve("https://${CCO_TEST_HOST}/v1")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/v1", got)
}

func TestResolve_Unterminated(t *testing.T) {
	_, err := Resolve("${CCO_TEST_KEY")
	assert.Error(t, err)
}
