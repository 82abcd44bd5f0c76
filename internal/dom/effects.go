package dom

import (
	"fmt"

	"golang.org/x/net/html"

	"github.com/ignite/site-tracking/internal/domain"
	"github.com/ignite/site-tracking/internal/service/tracking"
)

// IntegrationAttr marks every node inserted on behalf of an integration.
const IntegrationAttr = "data-integration"

// Effects applies injector mutations to a Document.
type Effects struct {
	doc *Document
}

var _ tracking.Effects = (*Effects)(nil)

// NewEffects binds the injector effects to doc.
func NewEffects(doc *Document) *Effects {
	return &Effects{doc: doc}
}

func (e *Effects) HasElement(id string) bool {
	return e.doc.HasElementID(id)
}

func (e *Effects) AppendScript(target domain.Placement, spec tracking.ScriptSpec) error {
	parent, err := e.target(target)
	if err != nil {
		return err
	}
	el := e.doc.CreateElement("script")
	if spec.ElementID != "" {
		setAttr(el, "id", spec.ElementID)
	}
	if spec.Async {
		setAttr(el, "async", "")
	}
	if spec.Src != "" {
		setAttr(el, "src", spec.Src)
	}
	if spec.Identity != "" {
		setAttr(el, IntegrationAttr, spec.Identity)
	}
	if spec.Inline != "" {
		el.AppendChild(e.doc.CreateText(spec.Inline))
	}
	e.doc.Append(parent, el)
	return nil
}

// AppendFallbackImage appends <noscript><img></noscript> to the body.
func (e *Effects) AppendFallbackImage(identity, src string) error {
	ns := e.doc.CreateElement("noscript")
	setAttr(ns, IntegrationAttr, identity)
	img := e.doc.CreateElement("img")
	setAttr(img, "height", "1")
	setAttr(img, "width", "1")
	setAttr(img, "style", "display:none")
	setAttr(img, "alt", "")
	setAttr(img, "src", src)
	ns.AppendChild(img)
	e.doc.Append(e.doc.Body(), ns)
	return nil
}

// AppendRawBlock parses markup into a detached list and appends it in order.
// Parsed scripts are inert, so each one is rebuilt from scratch with its
// attributes and body; everything else is cloned.
func (e *Effects) AppendRawBlock(target domain.Placement, identity, markup string) error {
	parent, err := e.target(target)
	if err != nil {
		return err
	}
	nodes, err := e.doc.ParseFragment(markup)
	if err != nil {
		return err
	}
	for _, n := range nodes {
		c := e.rebuild(n)
		if c.Type == html.ElementNode && identity != "" {
			setAttr(c, IntegrationAttr, identity)
		}
		e.doc.Append(parent, c)
	}
	return nil
}

func (e *Effects) rebuild(n *html.Node) *html.Node {
	if isScript(n) {
		s := e.doc.CreateElement("script")
		s.Attr = append([]html.Attribute(nil), n.Attr...)
		if body := textContent(n); body != "" {
			s.AppendChild(e.doc.CreateText(body))
		}
		return s
	}
	if n.Type != html.ElementNode {
		return e.doc.CloneNode(n)
	}
	c := &html.Node{Type: n.Type, Data: n.Data, DataAtom: n.DataAtom, Namespace: n.Namespace}
	c.Attr = append([]html.Attribute(nil), n.Attr...)
	e.doc.state[c] = &nodeState{}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		c.AppendChild(e.rebuild(child))
	}
	return c
}

func (e *Effects) target(p domain.Placement) (*html.Node, error) {
	switch p {
	case domain.PlacementHeader:
		return e.doc.Head(), nil
	case domain.PlacementFooter:
		return e.doc.Body(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownPlacement, p)
}

// Count returns the number of top-level nodes attributed to identity.
func (e *Effects) Count(identity string) int {
	return e.doc.CountAttr(IntegrationAttr, identity)
}
