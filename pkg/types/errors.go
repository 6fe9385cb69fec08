package types

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	// Descriptor validation errors
	ErrInvalidKnowledgeBaseID = errors.New("knowledge base id is required")
	ErrMissingRepository      = errors.New("knowledge base owner and repo are required")
	ErrMissingBranch          = errors.New("knowledge base branch is required")

	// Error taxonomy
	ErrDiscoveryFailure        = errors.New("discovery failed")
	ErrUnknownKnowledgeBase    = errors.New("unknown knowledge base")
	ErrDocumentNotFound        = errors.New("document not found")
	ErrSessionReconnectFailure = errors.New("session reconnect failed")
	ErrAuthorizationFailure    = errors.New("unauthorized")
)

// UnknownKnowledgeBaseError reports a knowledge base id missing from the registry
type UnknownKnowledgeBaseError struct {
	ID string
}

func (e *UnknownKnowledgeBaseError) Error() string {
	return fmt.Sprintf("unknown knowledge base %q", e.ID)
}

func (e *UnknownKnowledgeBaseError) Unwrap() error {
	return ErrUnknownKnowledgeBase
}

// DocumentNotFoundError reports a failed content retrieval
type DocumentNotFoundError struct {
	Name          string
	KnowledgeBase string
	Status        int // Remote HTTP status, 0 when the request never completed
}

func (e *DocumentNotFoundError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("document %q not found in %q (status %d)", e.Name, e.KnowledgeBase, e.Status)
	}
	return fmt.Sprintf("document %q not found in %q", e.Name, e.KnowledgeBase)
}

func (e *DocumentNotFoundError) Unwrap() error {
	return ErrDocumentNotFound
}
