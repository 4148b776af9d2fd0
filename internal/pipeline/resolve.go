package pipeline

import (
	"strconv"
	"strings"

	"github.com/mihaisavezi/claude-code-open/internal/apierr"
	"github.com/mihaisavezi/claude-code-open/internal/config"
)

// Resolution is the outcome of resolving a client-requested model name to
// a concrete provider and upstream model id.
type Resolution struct {
	ProviderName string
	Provider     config.Provider
	Model        string
	// RouteKey records which router.* entry (if any) selected this
	// resolution, for logging; empty when the client named a model or
	// provider,model pair explicitly.
	RouteKey string
}

// ResolveModel turns a client-supplied model string plus routing
// heuristics into a Resolution. Three forms are accepted, checked in
// order:
//
//  1. "provider,model" — explicit, used as-is.
//  2. A bare model name matching a provider's models/default_models list.
//  3. A router.* alias (think, background, longContext, webSearch) chosen
//     by heuristics, falling back to router.default.
//
// Returns an apierr KindUnknownModel error when nothing matches.
func ResolveModel(requestedModel string, inputTokens int, cfg *config.Config) (*Resolution, error) {
	if providerName, modelID, ok := strings.Cut(requestedModel, ","); ok {
		if p, found := findProviderByName(cfg, providerName); found {
			return &Resolution{ProviderName: providerName, Provider: p, Model: modelID}, nil
		}
		return nil, apierr.New(apierr.KindUnknownModel, "unknown provider: "+providerName)
	}

	if requestedModel != "" {
		if p, found := findProviderForModel(cfg, requestedModel); found {
			return &Resolution{ProviderName: p.Name, Provider: p, Model: requestedModel}, nil
		}
	}

	route, key := chooseRoute(requestedModel, inputTokens, &cfg.Router)
	if route == "" {
		return nil, apierr.New(apierr.KindUnknownModel, "no route configured and model "+strconv.Quote(requestedModel)+" matched no provider")
	}

	providerName, modelID, ok := strings.Cut(route, ",")
	if !ok {
		return nil, apierr.New(apierr.KindUnknownModel, "malformed route entry: "+route)
	}

	p, found := findProviderByName(cfg, providerName)
	if !found {
		return nil, apierr.New(apierr.KindUnknownModel, "route names unknown provider: "+providerName)
	}

	return &Resolution{ProviderName: providerName, Provider: p, Model: modelID, RouteKey: key}, nil
}

func findProviderByName(cfg *config.Config, name string) (config.Provider, bool) {
	for _, p := range cfg.Providers {
		if p.Name == name {
			return p, true
		}
	}
	return config.Provider{}, false
}

func findProviderForModel(cfg *config.Config, model string) (config.Provider, bool) {
	for _, p := range cfg.Providers {
		if !p.IsModelAllowed(model) {
			continue
		}
		for _, m := range p.DefaultModels {
			if m == model {
				return p, true
			}
		}
		for _, m := range p.Models {
			if m == model {
				return p, true
			}
		}
	}
	return config.Provider{}, false
}

// chooseRoute applies the long-context/background/think/webSearch/default
// heuristic chain used when the client gave a bare, unrecognized model
// name (or none at all).
func chooseRoute(requestedModel string, inputTokens int, r *config.RouterConfig) (route, key string) {
	switch {
	case inputTokens > 60000 && r.LongContext != "":
		return r.LongContext, "longContext"
	case strings.HasPrefix(requestedModel, "claude-3-5-haiku") && r.Background != "":
		return r.Background, "background"
	case r.Think != "":
		return r.Think, "think"
	case r.WebSearch != "":
		return r.WebSearch, "webSearch"
	default:
		return r.Default, "default"
	}
}
