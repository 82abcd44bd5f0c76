package tracking

import "errors"

// Sentinel errors for the tracking service layer.
var (
	ErrNotFound           = errors.New("visit not found")
	ErrDisabled           = errors.New("integration is disabled")
	ErrOutOfScope         = errors.New("integration is not scoped to this page")
	ErrUnknownVendor      = errors.New("unknown integration type")
	ErrUnknownPlacement   = errors.New("unknown script placement")
	ErrInjectionPanic     = errors.New("injection panicked")
	ErrNoCommandSink      = errors.New("page has no command sink")
	ErrStorageUnavailable = errors.New("session storage unavailable")
)
