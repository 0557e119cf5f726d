// Package extension implements URI-addressed discovery and invocation of
// adapter-defined custom operations. Every extension feature owns an
// absolute URI namespace; every operation URI extends that namespace.
// Argument bodies are validated against the operation's declared JSON
// schema before the adapter handler ever runs.
package extension

import (
	"encoding/json"
)

// OperationType classifies how an operation exchanges data.
type OperationType string

const (
	// OperationInvoke is a unary request/response operation. Only invoke
	// operations are dispatchable through the Invoker.
	OperationInvoke OperationType = "Invoke"
	// OperationStream is a server-push operation.
	OperationStream OperationType = "Stream"
	// OperationDuplexStream is a bidirectional streaming operation.
	OperationDuplexStream OperationType = "DuplexStream"
)

// OperationDescriptor describes a single operation under an extension
// feature's URI namespace.
type OperationDescriptor struct {
	// OperationID is the absolute operation URI, normalized to a
	// trailing path separator.
	OperationID string `json:"OperationId"`

	OperationType OperationType `json:"OperationType"`
	Name          string        `json:"Name"`
	Description   string        `json:"Description,omitempty"`

	// InputSchema and OutputSchema are JSON schema documents. An empty
	// InputSchema means the operation takes no validated input.
	InputSchema  json.RawMessage `json:"InputSchema,omitempty"`
	OutputSchema json.RawMessage `json:"OutputSchema,omitempty"`
}

// FeatureDescriptor is the discovery document for an extension feature.
type FeatureDescriptor struct {
	URI         string                `json:"Uri"`
	Name        string                `json:"Name"`
	Description string                `json:"Description,omitempty"`
	Operations  []OperationDescriptor `json:"Operations"`
}

// InvocationRequest names an operation and carries its encoded argument.
type InvocationRequest struct {
	OperationID string          `json:"OperationId"`
	Body        json.RawMessage `json:"Body,omitempty"`
}

// InvocationResponse is the uniform envelope wrapping every invocation
// result. Handler failures are carried in Error with Success false;
// resolution and validation failures never produce an envelope.
type InvocationResponse struct {
	Success bool            `json:"Success"`
	Result  json.RawMessage `json:"Result,omitempty"`
	Error   string          `json:"Error,omitempty"`
}
