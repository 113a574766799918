// Package smcp implements the Secure Model Context Protocol session
// engine: attested sessions, per-call Ed25519 signature verification,
// and capability evaluation against the inner MCP payload.
package smcp

import (
	"crypto/ed25519"
	"encoding/json"
	"fmt"
)

// Envelope is the signed SMCP wrapper around one MCP call:
// {security_token, signature, inner_mcp}.
type Envelope struct {
	SecurityToken string `json:"security_token"`
	Signature     []byte `json:"signature"` // raw 64-byte Ed25519 signature
	InnerMCP      []byte `json:"inner_mcp"` // raw JSON-RPC 2.0 request bytes
}

// VerifySignature checks that Signature is a valid Ed25519 signature
// over InnerMCP under publicKey. ed25519.Verify is constant-time with
// respect to the signature bytes, satisfying the "must be
// constant-time" requirement.
func (e Envelope) VerifySignature(publicKey ed25519.PublicKey) bool {
	if len(e.Signature) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(publicKey, e.InnerMCP, e.Signature)
}

// jsonRPCRequest is the inner MCP payload shape: JSON-RPC 2.0, either
// {method:"tools/call", params:{name, arguments}} or the legacy
// {method:<tool>, params:<args>} form.
type jsonRPCRequest struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
	ID     interface{}     `json:"id,omitempty"`
}

type toolsCallParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// ToolCall is the (tool name, arguments) pair extracted from an inner
// MCP payload.
type ToolCall struct {
	ToolName string
	Args     map[string]interface{}
}

// ErrMalformedPayload is returned when InnerMCP does not decode as a
// JSON-RPC 2.0 request in either supported shape.
var ErrMalformedPayload = fmt.Errorf("malformed inner mcp payload")

// ExtractToolCall decodes InnerMCP: a
// "tools/call" envelope with params.name/params.arguments, or the
// legacy method-as-tool-name form where params is the arguments
// object directly.
func (e Envelope) ExtractToolCall() (ToolCall, error) {
	var req jsonRPCRequest
	if err := json.Unmarshal(e.InnerMCP, &req); err != nil {
		return ToolCall{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if req.Method == "" {
		return ToolCall{}, ErrMalformedPayload
	}

	if req.Method == "tools/call" {
		var params toolsCallParams
		if len(req.Params) == 0 {
			return ToolCall{}, ErrMalformedPayload
		}
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return ToolCall{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		if params.Name == "" {
			return ToolCall{}, ErrMalformedPayload
		}
		if params.Arguments == nil {
			params.Arguments = map[string]interface{}{}
		}
		return ToolCall{ToolName: params.Name, Args: params.Arguments}, nil
	}

	// Legacy form: method is the tool name, params is the arguments object.
	args := map[string]interface{}{}
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &args); err != nil {
			return ToolCall{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
	}
	return ToolCall{ToolName: req.Method, Args: args}, nil
}
