package tracking

import "github.com/ignite/site-tracking/internal/domain"

// ScriptSpec describes a script element to create.
type ScriptSpec struct {
	// ElementID lets the document refuse a second copy of the same loader.
	ElementID string
	Src       string
	Async     bool
	Inline    string
	// Identity is the integration the element belongs to. Set by the injector.
	Identity string
}

// Effects isolates the document mutations the injector performs.
type Effects interface {
	HasElement(id string) bool
	AppendScript(target domain.Placement, spec ScriptSpec) error
	// AppendFallbackImage appends a no-script image beacon to the body.
	AppendFallbackImage(identity, src string) error
	// AppendRawBlock inserts admin-authored markup so that its scripts run.
	AppendRawBlock(target domain.Placement, identity, markup string) error
}

// CommandSink queues calls against page globals, e.g. Call("fbq", "track", "Lead").
type CommandSink interface {
	Call(fn string, args ...interface{}) error
}

// Payload is the normalized event handed to every vendor handle.
type Payload struct {
	EventType   domain.EventType `json:"event_type"`
	Value       *float64         `json:"value,omitempty"`
	Currency    string           `json:"currency"`
	ContentName string           `json:"content_name,omitempty"`
}

// Handle is the callable a vendor exposes once injected.
type Handle interface {
	Track(p Payload) error
}

// Bootstrap is what a vendor needs inserted for one integration.
type Bootstrap struct {
	Scripts       []ScriptSpec
	FallbackImage string
	Handle        Handle
}

// Vendor builds the bootstrap of one integration family.
type Vendor interface {
	Bootstrap(cfg domain.IntegrationConfig, sink CommandSink) (Bootstrap, error)
}

// VendorCatalog looks up vendors by integration type.
type VendorCatalog interface {
	Vendor(t domain.IntegrationType) (Vendor, bool)
}
