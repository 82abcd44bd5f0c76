// Package vendors holds the supported tracking integration families: their
// published bootstrap snippets, vendor id formats and event-name mappings.
//
// Handles never talk to a vendor directly. They queue native calls
// (fbq, ttq.track, gtag, lintrk) on a Commands queue that is rendered as
// inline JavaScript and run by the browser.
package vendors
