// Package dom is a small server-side document model used to assemble the
// tracking markup of a page.
//
// It mirrors the one browser rule the injection pipeline depends on: a
// script element runs when it is connected to the document, unless it was
// produced by the HTML parser (markup assignment), in which case it stays
// inert. Scripts that should run must be created as elements.
package dom
