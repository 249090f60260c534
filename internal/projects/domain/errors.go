package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("project not found")
	ErrAccessDenied = errors.New("access denied")
	ErrUnknownTool  = errors.New("unknown tool")
	ErrNoDataset    = errors.New("no dataset uploaded")
)

// ValidationError reports input the caller has to fix.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// StoreCategory is the coarse class of a document-store failure.
type StoreCategory string

const (
	StorePermission   StoreCategory = "permission"
	StoreConnectivity StoreCategory = "connectivity"
	StoreQuota        StoreCategory = "quota"
	StoreUnknown      StoreCategory = "unknown"
)

// StoreError wraps a failure from the document store.
type StoreError struct {
	Op       string
	Category StoreCategory
	Err      error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s failed (%s): %v", e.Op, e.Category, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }
