package apierr

import "encoding/json"

// anthropicKind maps an internal Kind to the string Anthropic's API uses
// in its error.type field.
func anthropicKind(k Kind) string {
	switch k {
	case KindUnknownModel, KindBadRequest:
		return "invalid_request_error"
	case KindAuth:
		return "authentication_error"
	case KindTimeout:
		return "timeout_error"
	case KindUpstreamStreamError, KindProviderError:
		return "api_error"
	case KindCanceled:
		return "request_canceled"
	default:
		return "api_error"
	}
}

// AnthropicBody renders the {"type":"error","error":{...}} shape Anthropic
// clients expect in both the non-streaming body and the data payload of a
// mid-stream `event: error`.
func (e *Error) AnthropicBody() []byte {
	body, _ := json.Marshal(map[string]any{
		"type": "error",
		"error": map[string]string{
			"type":    anthropicKind(e.Kind),
			"message": e.Message,
		},
	})
	return body
}

func openAIKind(k Kind) string {
	switch k {
	case KindUnknownModel:
		return "invalid_request_error"
	case KindBadRequest:
		return "invalid_request_error"
	case KindAuth:
		return "invalid_api_key"
	case KindTimeout:
		return "timeout"
	default:
		return "server_error"
	}
}

// OpenAIBody renders the {"error":{...}} shape OpenAI-dialect clients
// expect, for both /v1/chat/completions and the Responses API.
func (e *Error) OpenAIBody() []byte {
	body, _ := json.Marshal(map[string]any{
		"error": map[string]any{
			"message": e.Message,
			"type":    openAIKind(e.Kind),
			"code":    string(e.Kind),
		},
	})
	return body
}
