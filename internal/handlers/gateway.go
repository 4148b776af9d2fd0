package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/mihaisavezi/claude-code-open/internal/apierr"
	"github.com/mihaisavezi/claude-code-open/internal/config"
	"github.com/mihaisavezi/claude-code-open/internal/dialect/anthropic"
	"github.com/mihaisavezi/claude-code-open/internal/dialect/openai"
	"github.com/mihaisavezi/claude-code-open/internal/pipeline"
	"github.com/mihaisavezi/claude-code-open/internal/providers"
	"github.com/mihaisavezi/claude-code-open/internal/reasoning"
	"github.com/mihaisavezi/claude-code-open/internal/sse"
	"github.com/mihaisavezi/claude-code-open/internal/transform"
	"github.com/mihaisavezi/claude-code-open/internal/unified"
)

// ingressDialect is the client-facing half of one GatewayHandler instance:
// how a request body becomes a unified.UnifiedChatRequest, and how a
// unified.UnifiedResponse / stream of unified.StreamEvent becomes the bytes
// written back to that same client. POST /v1/messages and
// POST /v1/chat/completions (spec.md §6) share every other pipeline stage
// (C1-C9) and differ only in this seam.
type ingressDialect struct {
	requestIn         func(context.Context, []byte) (*unified.UnifiedChatRequest, error)
	responseOut       func(context.Context, *unified.UnifiedResponse) ([]byte, error)
	streamResponseOut func(context.Context) func(unified.StreamEvent) []byte
	errorBody         func(*apierr.Error) []byte
}

var anthropicDialect = ingressDialect{
	requestIn:         anthropic.RequestIn,
	responseOut:       anthropic.ResponseOut,
	streamResponseOut: anthropic.StreamResponseOut,
	errorBody:         (*apierr.Error).AnthropicBody,
}

var openAIDialect = ingressDialect{
	requestIn:         openai.RequestIn,
	responseOut:       openai.ResponseOut,
	streamResponseOut: openai.StreamResponseOut,
	errorBody:         (*apierr.Error).OpenAIBody,
}

// GatewayHandler runs the full C1-C9 pipeline for one ingress dialect:
// dialect.requestIn parses the body into the unified model, C8's reasoning
// package normalises thinking/reasoning-token fields, pipeline.ResolveModel
// picks an upstream provider, providers.StreamBridge or
// FromOpenAIChatResponse renders the unified response back out of the
// upstream's OpenAI-family wire format, and dialect.streamResponseOut /
// responseOut renders it back to the client in its own dialect (spec.md §6:
// POST /v1/messages and POST /v1/chat/completions are both GatewayHandlers,
// just built with a different dialect).
type GatewayHandler struct {
	config   *config.Manager
	limiters *pipeline.Limiters
	tokens   *pipeline.TokenCounter
	logger   *slog.Logger
	dialect  ingressDialect

	vertexMu     sync.Mutex
	vertexTokens map[string]*providers.VertexTokenSource
}

func NewGatewayHandler(cfgManager *config.Manager, logger *slog.Logger) *GatewayHandler {
	return newGatewayHandler(cfgManager, logger, anthropicDialect)
}

// NewChatCompletionsHandler builds the OpenAI-dialect twin of
// NewGatewayHandler, serving POST /v1/chat/completions through the same
// C1-C9 pipeline (spec.md §6).
func NewChatCompletionsHandler(cfgManager *config.Manager, logger *slog.Logger) *GatewayHandler {
	return newGatewayHandler(cfgManager, logger, openAIDialect)
}

func newGatewayHandler(cfgManager *config.Manager, logger *slog.Logger, dialect ingressDialect) *GatewayHandler {
	return &GatewayHandler{
		config:   cfgManager,
		limiters: pipeline.NewLimiters(nil),
		tokens:   pipeline.NewTokenCounter(logger),
		logger:   logger,
		dialect:  dialect,
	}
}

func (h *GatewayHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeError(w, apierr.Wrap(apierr.KindBadRequest, err, "failed to read request body"))
		return
	}

	req, err := h.dialect.requestIn(ctx, body)
	if err != nil {
		h.writeError(w, apierr.Wrap(apierr.KindBadRequest, err, "invalid request body"))
		return
	}

	req = reasoning.ApplyTokens(req)
	req = reasoning.NormalizeRequest(req)

	cfg := h.config.Get()
	if cfg == nil {
		h.writeError(w, apierr.New(apierr.KindInternal, "configuration not loaded"))
		return
	}

	inputTokens := h.tokens.Count(flattenMessageText(req.Messages))
	resolution, err := pipeline.ResolveModel(req.Model, inputTokens, cfg)
	if err != nil {
		h.writeError(w, err)
		return
	}
	req.Model = resolution.Model

	if err := h.limiters.Wait(ctx, resolution.ProviderName); err != nil {
		h.writeError(w, apierr.Wrap(apierr.KindCanceled, err, "rate limiter wait canceled"))
		return
	}

	chain := providers.BuildChain(resolution.ProviderName, resolution.Provider)

	upstreamReq, err := h.buildUpstreamRequest(ctx, resolution, chain, req, r.Header)
	if err != nil {
		h.writeError(w, apierr.Wrap(apierr.KindProviderError, err, "failed to build upstream request"))
		return
	}

	client, err := pipeline.ClientFor(resolution.Provider)
	if err != nil {
		h.writeError(w, apierr.Wrap(apierr.KindInternal, err, "failed to configure upstream client"))
		return
	}

	resp, err := client.Do(upstreamReq)
	if err != nil {
		h.writeError(w, apierr.Wrap(apierr.KindProviderError, err, "upstream request failed"))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		h.relayUpstreamError(w, resp)
		return
	}

	plain, err := pipeline.DecompressReader(resp)
	if err != nil {
		h.writeError(w, apierr.Wrap(apierr.KindUpstreamStreamError, err, "failed to decompress upstream body"))
		return
	}

	if req.Stream {
		h.handleStreaming(ctx, w, plain, chain)
		return
	}
	h.handleNonStreaming(ctx, w, plain, chain, req.Messages)
}

// buildUpstreamRequest renders the unified request into the provider's
// upstream wire format and attaches auth/forwarded headers (spec.md §4.4,
// §4.6, §6 header forwarding table). Per-provider quirks run through the
// resolved transform.Chain rather than a hardcoded switch, so a provider's
// Transformer list is what decides what happens to its wire body, not this
// function.
func (h *GatewayHandler) buildUpstreamRequest(ctx context.Context, res *pipeline.Resolution, chain transform.Chain, req *unified.UnifiedChatRequest, inbound http.Header) (*http.Request, error) {
	body, err := providers.ToOpenAIChatRequest(req)
	if err != nil {
		return nil, fmt.Errorf("render upstream body: %w", err)
	}

	body = chain.ApplyWireRequestOut(req.Model, body)

	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal upstream body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, res.Provider.APIBase, bytes.NewReader(encoded))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	pipeline.ForwardHeaders(httpReq, inbound, res.Provider)

	// Vertex auth needs GatewayHandler's token-source cache, so it stays a
	// special case rather than a chain stage (chain stages are built fresh
	// per request and have nowhere to cache a credential exchange).
	if res.ProviderName == "vertex" {
		bearer, err := h.vertexBearerHeader(ctx, res.Provider.APIKey)
		if err != nil {
			return nil, fmt.Errorf("vertex auth: %w", err)
		}
		httpReq.Header.Set("Authorization", bearer)
	} else {
		pipeline.SetAuthHeader(httpReq, res.ProviderName, res.Provider.APIKey)
	}

	if err := chain.ApplyAuth(ctx, httpReq, res.ProviderName); err != nil {
		return nil, fmt.Errorf("chain auth: %w", err)
	}

	return httpReq, nil
}

// vertexBearerHeader lazily builds and caches a VertexTokenSource per
// service-account credential blob (the provider's api_key field holds the
// raw service-account JSON for vertex providers, not a plain API key).
func (h *GatewayHandler) vertexBearerHeader(ctx context.Context, serviceAccountJSON string) (string, error) {
	h.vertexMu.Lock()
	defer h.vertexMu.Unlock()

	if h.vertexTokens == nil {
		h.vertexTokens = make(map[string]*providers.VertexTokenSource)
	}
	src, ok := h.vertexTokens[serviceAccountJSON]
	if !ok {
		var err error
		src, err = providers.NewVertexTokenSource(ctx, []byte(serviceAccountJSON))
		if err != nil {
			return "", err
		}
		h.vertexTokens[serviceAccountJSON] = src
	}
	return src.BearerHeader()
}

func (h *GatewayHandler) handleNonStreaming(_ context.Context, w http.ResponseWriter, body io.Reader, chain transform.Chain, history []unified.UnifiedMessage) {
	raw, err := io.ReadAll(body)
	if err != nil {
		h.writeError(w, apierr.Wrap(apierr.KindUpstreamStreamError, err, "failed to read upstream body"))
		return
	}

	unifiedResp, err := providers.FromOpenAIChatResponse(raw)
	if err != nil {
		h.writeError(w, apierr.Wrap(apierr.KindProviderError, err, "failed to parse upstream response"))
		return
	}

	chain.ApplyToolCallPostProcess(&unifiedResp.Message, history)
	chain.ApplyWireResponseIn(unifiedResp)
	reasoning.NormalizeResponse(&unifiedResp.Message)

	out, err := h.dialect.responseOut(context.Background(), unifiedResp)
	if err != nil {
		h.writeError(w, apierr.Wrap(apierr.KindInternal, err, "failed to render response"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

func (h *GatewayHandler) handleStreaming(ctx context.Context, w http.ResponseWriter, body io.Reader, chain transform.Chain) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)

	decoder := sse.NewDecoder()
	bridge := providers.NewStreamBridge()
	if repairer := chain.BuildStreamToolCallRepairer(); repairer != nil {
		bridge.SetToolCallRepairer(repairer)
	}
	encoder := h.dialect.streamResponseOut(ctx)
	eventFilter := chain.BuildStreamEventFilter()

	write := func(events []unified.StreamEvent) {
		if eventFilter != nil {
			events = eventFilter(events)
		}
		for _, ev := range events {
			if b := encoder(ev); b != nil {
				_, _ = w.Write(b)
			}
		}
		if flusher != nil {
			flusher.Flush()
		}
	}

	buf := make([]byte, 4096)
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			for _, ev := range decoder.Feed(buf[:n]) {
				if ev.Done {
					continue
				}
				chunkEvents, err := bridge.Observe([]byte(ev.Data))
				if err != nil {
					h.logger.Warn("failed to parse upstream stream chunk", "error", err)
					continue
				}
				write(chunkEvents)
			}
		}
		if readErr != nil {
			break
		}
		select {
		case <-ctx.Done():
			return
		default:
		}
	}

	for _, ev := range decoder.Close() {
		if ev.Done {
			continue
		}
		chunkEvents, err := bridge.Observe([]byte(ev.Data))
		if err == nil {
			write(chunkEvents)
		}
	}
}

func (h *GatewayHandler) relayUpstreamError(w http.ResponseWriter, resp *http.Response) {
	body, _ := io.ReadAll(resp.Body)
	err := apierr.New(apierr.KindProviderError, fmt.Sprintf("upstream returned %d: %s", resp.StatusCode, string(body)))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.HTTPStatus())
	_, _ = w.Write(h.dialect.errorBody(err))
}

func (h *GatewayHandler) writeError(w http.ResponseWriter, err error) {
	gwErr, ok := apierr.As(err)
	if !ok {
		gwErr = apierr.Wrap(apierr.KindInternal, err, "internal error")
	}
	h.logger.Error("gateway request failed", "kind", gwErr.Kind, "error", gwErr.Error())
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(gwErr.HTTPStatus())
	_, _ = w.Write(h.dialect.errorBody(gwErr))
}

func flattenMessageText(messages []unified.UnifiedMessage) string {
	var b bytes.Buffer
	for _, m := range messages {
		b.WriteString(m.Text)
		b.WriteByte('\n')
	}
	return b.String()
}
