// Package kimi implements the Kimi-K2 tool-calling post-processing
// subsystem (spec.md §4.7.1): manual marker parsing for upstreams that
// emit tool calls as text markers instead of a structured tool_calls
// field, canonical tool-call id repair/normalisation, and streaming
// argument-delta assembly.
package kimi

// Config holds the per-provider Kimi tool-calling options (§4.7.1's
// option table), all defaulted the way the table specifies.
type Config struct {
	ToolChoiceDefault       string
	AcceptRoleTool          bool
	EnforceFinishReasonLoop bool
	ManualToolParsing       bool
	EmitToolCallsInJSON     bool // reserved; no-op
	AssembleToolDeltas      bool
	IDNormalization         bool
	RepairOnMismatch        bool
	IDPrefix                string
	CounterScope            string // "conversation"
	Tokens                  MarkerSet
}

// DefaultConfig returns the table's defaults.
func DefaultConfig() Config {
	return Config{
		ToolChoiceDefault:       "auto",
		AcceptRoleTool:          true,
		EnforceFinishReasonLoop: true,
		ManualToolParsing:       false,
		EmitToolCallsInJSON:     false,
		AssembleToolDeltas:      false,
		IDNormalization:         false,
		RepairOnMismatch:        true,
		IDPrefix:                "functions",
		CounterScope:            "conversation",
		Tokens:                  DefaultMarkerSet(),
	}
}
