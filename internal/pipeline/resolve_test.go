package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mihaisavezi/claude-code-open/internal/apierr"
	"github.com/mihaisavezi/claude-code-open/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Providers: []config.Provider{
			{Name: "openai", DefaultModels: []string{"gpt-4o"}},
			{Name: "anthropic", DefaultModels: []string{"claude-3-5-sonnet-20241022"}},
			{Name: "openrouter"},
		},
		Router: config.RouterConfig{
			Default:     "openrouter,anthropic/claude-3.5-sonnet",
			Think:       "openai,o1-preview",
			Background:  "anthropic,claude-3-haiku-20240307",
			LongContext: "anthropic,claude-3-5-sonnet-20241022",
		},
	}
}

func TestResolveModel_ExplicitProviderModel(t *testing.T) {
	res, err := ResolveModel("openai,gpt-4o-mini", 100, testConfig())
	require.NoError(t, err)
	assert.Equal(t, "openai", res.ProviderName)
	assert.Equal(t, "gpt-4o-mini", res.Model)
}

func TestResolveModel_ExplicitProviderUnknown(t *testing.T) {
	_, err := ResolveModel("bogus,some-model", 100, testConfig())
	require.Error(t, err)
	e, ok := apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, apierr.KindUnknownModel, e.Kind)
}

func TestResolveModel_BareModelMatchesProviderList(t *testing.T) {
	res, err := ResolveModel("gpt-4o", 100, testConfig())
	require.NoError(t, err)
	assert.Equal(t, "openai", res.ProviderName)
	assert.Equal(t, "gpt-4o", res.Model)
}

func TestResolveModel_LongContextRoute(t *testing.T) {
	res, err := ResolveModel("", 70000, testConfig())
	require.NoError(t, err)
	assert.Equal(t, "longContext", res.RouteKey)
	assert.Equal(t, "anthropic", res.ProviderName)
}

func TestResolveModel_DefaultRouteWhenNothingMatches(t *testing.T) {
	cfg := testConfig()
	cfg.Router.Think = ""
	cfg.Router.Background = ""
	cfg.Router.WebSearch = ""
	cfg.Router.LongContext = ""

	res, err := ResolveModel("some-unlisted-model", 10, cfg)
	require.NoError(t, err)
	assert.Equal(t, "default", res.RouteKey)
}

func TestResolveModel_NoRouteNoMatchErrors(t *testing.T) {
	cfg := testConfig()
	cfg.Router = config.RouterConfig{}
	_, err := ResolveModel("some-unlisted-model", 10, cfg)
	require.Error(t, err)
}
