package tracking

import "github.com/ignite/site-tracking/internal/domain"

// Page is the per-page-load state of the pipeline. Nothing in it is shared
// across page loads.
type Page struct {
	Context  domain.PageContext
	Session  *SessionResolver
	Effects  Effects
	Commands CommandSink
	Injected *IdentitySet
	Registry *Registry
}

// NewPage assembles the state of a fresh page load.
func NewPage(pc domain.PageContext, storage SessionStorage, effects Effects, commands CommandSink) *Page {
	return &Page{
		Context:  pc,
		Session:  NewSessionResolver(storage),
		Effects:  effects,
		Commands: commands,
		Injected: NewIdentitySet(),
		Registry: NewRegistry(),
	}
}

// PushDataLayer appends a record to the page's tag-manager data layer.
func (p *Page) PushDataLayer(record map[string]interface{}) error {
	if p.Commands == nil {
		return ErrNoCommandSink
	}
	return p.Commands.Call("dataLayer.push", record)
}
