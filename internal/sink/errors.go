package sink

import "errors"

var (
	ErrUnsupportedVersion = errors.New("unsupported message version")
	ErrEmptyEvent         = errors.New("message carries no event")
)
