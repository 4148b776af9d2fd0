package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/mihaisavezi/claude-code-open/internal/config"
)

// ModelsHandler serves the optional administrative GET /models endpoint
// (spec.md §6): it reads the live provider/model configuration straight
// out of config.Manager, with no registry round-trip, so it always
// reflects the config that would actually be used to resolve a request.
type ModelsHandler struct {
	config *config.Manager
	logger *slog.Logger
}

func NewModelsHandler(cfgManager *config.Manager, logger *slog.Logger) *ModelsHandler {
	return &ModelsHandler{config: cfgManager, logger: logger}
}

type modelEntry struct {
	ID       string `json:"id"`
	Object   string `json:"object"`
	OwnedBy  string `json:"owned_by"`
	Provider string `json:"provider"`
}

type modelsResponse struct {
	Object string       `json:"object"`
	Data   []modelEntry `json:"data"`
}

func (h *ModelsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	cfg := h.config.Get()
	if cfg == nil {
		http.Error(w, `{"error":"configuration not loaded"}`, http.StatusInternalServerError)
		return
	}

	resp := modelsResponse{Object: "list"}
	for _, p := range cfg.Providers {
		for _, model := range p.Models {
			// Emit both the bare-model id and the "provider,model" synonym
			// so a client can address a model either way, matching how
			// pipeline.ResolveModel accepts both forms on ingress.
			resp.Data = append(resp.Data, modelEntry{ID: model, Object: "model", OwnedBy: p.Name, Provider: p.Name})
			resp.Data = append(resp.Data, modelEntry{ID: fmt.Sprintf("%s,%s", p.Name, model), Object: "model", OwnedBy: p.Name, Provider: p.Name})
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("failed to encode models response", "error", err)
	}
}
