// Package tracking implements the site's tag injection and conversion
// attribution pipeline.
//
// A Page is the state of one page load: its page context, session storage,
// document effects, the set of integration identities already injected and
// the registry of vendor handles those injections made available. Mount
// fetches the enabled integrations for the page and injects each of them at
// most once. TrackConversionEvent records a business event, links it to the
// campaign visit of the current session, marks that visit converted for
// qualifying events and fans the event out to every vendor present on the
// page.
//
// Tracking is best-effort instrumentation. Public entry points never return
// errors to their callers; every step logs and contains its own failure.
//
// The service depends on the repository interfaces in repository.go and the
// effect/vendor contracts in effects.go. It never imports net/http or
// database/sql directly.
package tracking
