package model

import (
	"errors"
	"fmt"
)

// Code is the closed taxonomy of classified failure codes shared by the
// JSON-RPC tool boundary and the legacy envelope.
type Code string

const (
	CodeBadRequest         Code = "BAD_REQUEST"
	CodeForbidden          Code = "FORBIDDEN"
	CodeNotFound           Code = "NOT_FOUND"
	CodeUnsupportedMedia   Code = "UNSUPPORTED_MEDIA"
	CodeEmbeddingFailed    Code = "EMBEDDING_FAILED"
	CodeEmbeddingInvalid   Code = "EMBEDDING_INVALID"
	CodeChatFailed         Code = "CHAT_FAILED"
	CodeQdrantUnavailable  Code = "QDRANT_UNAVAILABLE"
	CodeInternal           Code = "INTERNAL"
)

// CodeError is a classified error carrying one of the Code values above.
// Layers that know the failure class (sandbox, scope, the embedding and chat
// clients, retrieval, the tools) construct a CodeError directly; anything
// left unclassified is turned into INTERNAL by AsCodeError at the Protocol
// Dispatcher.
type CodeError struct {
	Code    Code
	Message string
	cause   error
}

func (e *CodeError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *CodeError) Unwrap() error { return e.cause }

// NewError builds a classified error with no underlying cause.
func NewError(code Code, message string) *CodeError {
	return &CodeError{Code: code, Message: message}
}

// Wrap builds a classified error around an underlying cause.
func Wrap(code Code, message string, cause error) *CodeError {
	return &CodeError{Code: code, Message: message, cause: cause}
}

// AsCodeError extracts a *CodeError from err, or classifies it as INTERNAL
// with a fixed message if it isn't one. This is the single point where
// unclassified exceptions are downgraded, per the error handling design.
func AsCodeError(err error) *CodeError {
	if err == nil {
		return nil
	}
	var ce *CodeError
	if errors.As(err, &ce) {
		return ce
	}
	return &CodeError{Code: CodeInternal, Message: "internal error", cause: err}
}
