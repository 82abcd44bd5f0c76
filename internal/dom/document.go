package dom

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const blankPage = "<!DOCTYPE html><html><head></head><body></body></html>"

// Script is what a ScriptRunner sees of a script element that started.
type Script struct {
	ID       string
	Src      string
	Type     string
	Async    bool
	Text     string
	Identity string
}

// ScriptRunner is called once for every script element that starts.
type ScriptRunner func(s Script)

type nodeState struct {
	parserInserted bool
	started        bool
}

// Document is a parsed HTML page with head and body append targets.
// Not safe for concurrent use.
type Document struct {
	root   *html.Node
	head   *html.Node
	body   *html.Node
	runner ScriptRunner
	state  map[*html.Node]*nodeState
	ran    []Script
}

// New returns an empty page.
func New(runner ScriptRunner) *Document {
	d, err := Parse(strings.NewReader(blankPage), runner)
	if err != nil {
		panic(fmt.Sprintf("dom: blank page: %v", err))
	}
	return d
}

// Parse reads a full HTML page. Scripts already in the page are treated as
// having been handled by the browser and never run again.
func Parse(r io.Reader, runner ScriptRunner) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	d := &Document{root: root, runner: runner, state: make(map[*html.Node]*nodeState)}
	walk(root, func(n *html.Node) {
		d.state[n] = &nodeState{parserInserted: true, started: isScript(n)}
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Head:
				if d.head == nil {
					d.head = n
				}
			case atom.Body:
				if d.body == nil {
					d.body = n
				}
			}
		}
	})
	if d.head == nil || d.body == nil {
		return nil, ErrNoHeadOrBody
	}
	return d, nil
}

// Head returns the head element.
func (d *Document) Head() *html.Node { return d.head }

// Body returns the body element.
func (d *Document) Body() *html.Node { return d.body }

// CreateElement returns a detached element that is not parser-inserted.
func (d *Document) CreateElement(tag string) *html.Node {
	n := &html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))}
	d.state[n] = &nodeState{}
	return n
}

// CreateText returns a detached text node.
func (d *Document) CreateText(text string) *html.Node {
	n := &html.Node{Type: html.TextNode, Data: text}
	d.state[n] = &nodeState{}
	return n
}

// ParseFragment parses markup into a detached node list. Every returned node
// is parser-inserted, so scripts among them never run when appended.
func (d *Document) ParseFragment(markup string) ([]*html.Node, error) {
	ctx := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(markup), ctx)
	if err != nil {
		return nil, fmt.Errorf("parse fragment: %w", err)
	}
	for _, n := range nodes {
		walk(n, func(c *html.Node) {
			d.state[c] = &nodeState{parserInserted: true, started: isScript(c)}
		})
	}
	return nodes, nil
}

// Append detaches n if needed, appends it to parent and, when parent is
// connected, starts every script in n's subtree that is eligible to run.
func (d *Document) Append(parent, n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
	parent.AppendChild(n)
	if !d.connected(parent) {
		return
	}
	walk(n, func(c *html.Node) {
		if isScript(c) {
			d.start(c)
		}
	})
}

// CloneNode deep-copies n. Clones keep the parser-inserted mark of their
// source, so cloning an inert script yields another inert script.
func (d *Document) CloneNode(n *html.Node) *html.Node {
	c := &html.Node{Type: n.Type, Data: n.Data, DataAtom: n.DataAtom, Namespace: n.Namespace}
	c.Attr = append([]html.Attribute(nil), n.Attr...)
	st := nodeState{}
	if src, ok := d.state[n]; ok {
		st = *src
	}
	d.state[c] = &st
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		c.AppendChild(d.CloneNode(child))
	}
	return c
}

// HasElementID reports whether an element with the given id is connected.
func (d *Document) HasElementID(id string) bool {
	return d.selectAttr("id", id).Length() > 0
}

// CountAttr counts connected elements whose attribute key equals value.
func (d *Document) CountAttr(key, value string) int {
	return d.selectAttr(key, value).Length()
}

// Identities returns the distinct integration identities already marked on
// connected elements, in document order.
func (d *Document) Identities() []string {
	var ids []string
	seen := make(map[string]bool)
	goquery.NewDocumentFromNode(d.root).Find("[" + IntegrationAttr + "]").Each(func(_ int, s *goquery.Selection) {
		if v, _ := s.Attr(IntegrationAttr); v != "" && !seen[v] {
			seen[v] = true
			ids = append(ids, v)
		}
	})
	return ids
}

func (d *Document) selectAttr(key, value string) *goquery.Selection {
	return goquery.NewDocumentFromNode(d.root).
		Find("[" + key + "]").
		FilterFunction(func(_ int, s *goquery.Selection) bool {
			v, _ := s.Attr(key)
			return v == value
		})
}

// Executed returns the scripts started so far, in start order.
func (d *Document) Executed() []Script {
	return append([]Script(nil), d.ran...)
}

// Render writes the full page.
func (d *Document) Render(w io.Writer) error {
	return html.Render(w, d.root)
}

// String renders the full page.
func (d *Document) String() string {
	var buf bytes.Buffer
	if err := d.Render(&buf); err != nil {
		return ""
	}
	return buf.String()
}

// HeadHTML renders the children of head.
func (d *Document) HeadHTML() string { return innerHTML(d.head) }

// BodyHTML renders the children of body.
func (d *Document) BodyHTML() string { return innerHTML(d.body) }

func (d *Document) start(n *html.Node) {
	st, ok := d.state[n]
	if !ok {
		st = &nodeState{}
		d.state[n] = st
	}
	if st.parserInserted || st.started || !runnableType(attr(n, "type")) {
		return
	}
	st.started = true
	s := Script{
		ID:       attr(n, "id"),
		Src:      attr(n, "src"),
		Type:     attr(n, "type"),
		Async:    hasAttr(n, "async"),
		Text:     textContent(n),
		Identity: attr(n, IntegrationAttr),
	}
	d.ran = append(d.ran, s)
	if d.runner != nil {
		d.runner(s)
	}
}

func (d *Document) connected(n *html.Node) bool {
	for ; n != nil; n = n.Parent {
		if n == d.root {
			return true
		}
	}
	return false
}

func innerHTML(n *html.Node) string {
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return buf.String()
		}
	}
	return buf.String()
}

func walk(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func isScript(n *html.Node) bool {
	return n.Type == html.ElementNode && n.DataAtom == atom.Script
}

var javaScriptTypes = map[string]bool{
	"application/ecmascript":   true,
	"application/javascript":   true,
	"application/x-ecmascript": true,
	"application/x-javascript": true,
	"text/ecmascript":          true,
	"text/javascript":          true,
	"text/javascript1.0":       true,
	"text/javascript1.1":       true,
	"text/javascript1.2":       true,
	"text/javascript1.3":       true,
	"text/javascript1.4":       true,
	"text/javascript1.5":       true,
	"text/jscript":             true,
	"text/livescript":          true,
	"text/x-ecmascript":        true,
	"text/x-javascript":        true,
}

// runnableType reports whether a script with this type attribute is executed
// by a browser. Data blocks such as application/ld+json are not.
func runnableType(t string) bool {
	t = strings.ToLower(strings.TrimSpace(t))
	if i := strings.IndexByte(t, ';'); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	return t == "" || t == "module" || javaScriptTypes[t]
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func textContent(n *html.Node) string {
	var b strings.Builder
	walk(n, func(c *html.Node) {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	})
	return b.String()
}
