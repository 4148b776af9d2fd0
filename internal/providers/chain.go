package providers

import (
	"context"
	"net/http"

	"github.com/mihaisavezi/claude-code-open/internal/config"
	"github.com/mihaisavezi/claude-code-open/internal/toolcall/kimi"
	"github.com/mihaisavezi/claude-code-open/internal/toolcall/minimax"
	"github.com/mihaisavezi/claude-code-open/internal/transform"
	"github.com/mihaisavezi/claude-code-open/internal/unified"
)

// BuildChain composes the transform.Chain for one resolved provider: a base
// OpenAI-wire stage every OpenAI-family upstream shares, plus whichever
// provider-name-driven and config-Transformer-list-driven quirk stages
// apply (spec.md §4.3 "chain composition", §4.6 provider quirks, §4.7
// tool-calling subsystems). This is the one place gateway.go asks "what
// does this provider need done to it" instead of hardcoding a switch at
// every call site.
func BuildChain(providerName string, provider config.Provider) transform.Chain {
	stages := []transform.Transformer{baseWireStage(), deepseekStage()}

	switch providerName {
	case "openai":
		stages = append(stages, gpt5Stage())
	case "openrouter":
		stages = append(stages, openRouterStage())
	}

	if hasTransformer(provider.Transformer, "kimi-k2") {
		stages = append(stages, kimiStage())
	}
	if hasTransformer(provider.Transformer, "minimax-m2") {
		stages = append(stages, minimaxStage())
	}

	return transform.NewChain(stages...)
}

func hasTransformer(names []string, want string) bool {
	for _, n := range names {
		if n == want {
			return true
		}
	}
	return false
}

// baseWireStage carries the shared OpenAI chat-completions bridge
// (ToOpenAIChatRequest/FromOpenAIChatResponse/StreamBridge already render
// the request and parse the response outside the chain; this stage's own
// hooks are no-ops, it exists so BuildChain always returns a non-empty
// chain with a recognizable anchor stage, the way RunRequestIn's doc
// describes one stage owning the real conversion and the rest being
// quirks).
func baseWireStage() transform.Transformer {
	return transform.Transformer{Name: "openai-wire"}
}

// gpt5Stage wires GPT-5 family request/response quirks (spec.md §4.6) into
// the chain: max_completion_tokens rename, temperature/verbosity handling,
// and the reasoning_content-as-tag response rule.
func gpt5Stage() transform.Transformer {
	return transform.Transformer{
		Name: "gpt5",
		WireRequestOut: func(model string, body map[string]any) map[string]any {
			return AdaptGPT5RequestBody(model, body)
		},
		WireResponseIn: func(resp *unified.UnifiedResponse) {
			reasoningContent, ok := resp.Message.Annotations["reasoning_content"].(string)
			if !ok {
				return
			}
			resp.Message.Text = AdaptGPT5ResponseMessage(resp.Model, resp.Message.Text, reasoningContent)
		},
	}
}

// openRouterStage wires OpenRouter's request body/header quirks and its
// stateful streaming quirks (numeric tool-call id remap, finish_reason
// relabel) into the chain. Its Auth hook passes an empty referer and title
// to AdaptOpenRouterHeaders, so no HTTP-Referer or X-Title header is added.
func openRouterStage() transform.Transformer {
	return transform.Transformer{
		Name: "openrouter",
		WireRequestOut: func(model string, body map[string]any) map[string]any {
			return AdaptOpenRouterRequestBody(model, body, nil)
		},
		Auth: func(_ context.Context, req *http.Request, _ string) error {
			AdaptOpenRouterHeaders(req.Header, "", "")
			return nil
		},
		NewStreamEventFilter: func() transform.StreamEventFilter {
			state := &OpenRouterQuirkState{}
			return state.Apply
		},
	}
}

// deepseekStage wires Deepseek-reasoner's reasoning_content round-trip
// requirement (spec.md §4.6) into every chain regardless of provider name,
// since the quirk is keyed off the model string, not the provider.
func deepseekStage() transform.Transformer {
	return transform.Transformer{
		Name: "deepseek",
		WireRequestOut: func(model string, body map[string]any) map[string]any {
			return AdaptDeepseekRequestBody(model, body)
		},
		WireResponseIn: func(resp *unified.UnifiedResponse) {
			resp.Message.Annotations = AdaptDeepseekResponseAnnotation(resp.Model, resp.Message.Annotations)
		},
	}
}

// kimiStage wires the Kimi-K2 tool-calling subsystem (manual marker
// parsing + id repair for non-streaming, Assembler-backed repair for
// streaming) into the chain for providers whose Transformer list names it.
func kimiStage() transform.Transformer {
	cfg := kimi.DefaultConfig()
	cfg.ManualToolParsing = true
	return transform.Transformer{
		Name: "kimi-k2",
		ToolCallPostProcess: func(msg *unified.UnifiedMessage, history []unified.UnifiedMessage) {
			kimi.ApplyManualParse(msg, cfg)
			kimi.RepairIDs(msg, history, cfg)
		},
		NewStreamToolCallRepairer: func() transform.StreamToolCallRepairer {
			return NewKimiStreamRepairer(cfg)
		},
	}
}

// minimaxStage wires the MiniMax-M2 tool-calling subsystem (XML invoke
// extraction for non-streaming, Buffer-backed extraction for streaming)
// into the chain for providers whose Transformer list names it.
func minimaxStage() transform.Transformer {
	cfg := minimax.DefaultConfig()
	return transform.Transformer{
		Name: "minimax-m2",
		ToolCallPostProcess: func(msg *unified.UnifiedMessage, _ []unified.UnifiedMessage) {
			minimax.Apply(msg, cfg)
		},
		NewStreamToolCallRepairer: func() transform.StreamToolCallRepairer {
			return NewMinimaxStreamRepairer(cfg)
		},
	}
}
