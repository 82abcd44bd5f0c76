package dom

import "errors"

var (
	ErrNoHeadOrBody     = errors.New("document has no head or body")
	ErrUnknownPlacement = errors.New("unknown placement")
)
