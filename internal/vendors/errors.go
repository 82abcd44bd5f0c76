package vendors

import "errors"

var (
	ErrInvalidVendorID  = errors.New("invalid vendor id")
	ErrInvalidLabel     = errors.New("invalid conversion label")
	ErrInvalidFunction  = errors.New("invalid function name")
	ErrNoCommandSink    = errors.New("no command sink")
	ErrUnsupportedEvent = errors.New("event not supported by vendor")
)
