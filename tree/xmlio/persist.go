package xmlio

import (
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/dbinfrago/py-capellambse/tree"
)

func declsOf(scope map[string]string) []NSDecl {
	res := make([]NSDecl, 0, len(scope))
	for prefix, uri := range scope {
		res = append(res, NSDecl{Prefix: prefix, URI: uri})
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Prefix < res[j].Prefix })
	return res
}

func (XML) Persist(w io.Writer, doc *Document) error {
	if doc == nil || doc.Root == nil {
		return fmt.Errorf("%w: nil document", ErrMalformed)
	}
	p := &printer{w: w, prefixes: map[string]string{}}
	for _, d := range doc.Decls {
		// first declaration of a URI wins for prefix selection
		if _, ok := p.prefixes[d.URI]; !ok {
			p.prefixes[d.URI] = d.Prefix
		}
	}
	p.decls = append([]NSDecl(nil), doc.Decls...)
	if _, ok := p.prefixes[xsiURI]; !ok {
		p.ensure(xsiURI)
	}
	// every type namespace in the tree needs a prefix before the root
	// element is emitted
	err := doc.Root.Walk(func(n *tree.Node, post bool) (bool, error) {
		if !post {
			p.ensure(n.Tag.NS)
		}
		return true, nil
	})
	if err != nil {
		return err
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	return p.element(doc.Root, 0)
}

type printer struct {
	w        io.Writer
	prefixes map[string]string // URI -> prefix
	decls    []NSDecl
	synth    int
}

// ensure guarantees a prefix for uri, synthesizing one if the document
// never declared it.
func (p *printer) ensure(uri string) string {
	if prefix, ok := p.prefixes[uri]; ok {
		return prefix
	}
	prefix := fmt.Sprintf("ns%d", p.synth)
	for p.taken(prefix) {
		p.synth++
		prefix = fmt.Sprintf("ns%d", p.synth)
	}
	p.synth++
	p.prefixes[uri] = prefix
	p.decls = append(p.decls, NSDecl{Prefix: prefix, URI: uri})
	return prefix
}

func (p *printer) taken(prefix string) bool {
	for _, d := range p.decls {
		if d.Prefix == prefix {
			return true
		}
	}
	return false
}

func (p *printer) element(n *tree.Node, depth int) error {
	var b strings.Builder
	b.WriteString(strings.Repeat("  ", depth))
	b.WriteByte('<')

	name := n.Role
	if depth == 0 {
		name = p.qualify(n.Tag)
	}
	b.WriteString(name)

	if depth == 0 {
		for _, d := range p.decls {
			if d.Prefix == "" {
				b.WriteString(` xmlns=`)
			} else {
				b.WriteString(" xmlns:" + d.Prefix + "=")
			}
			b.WriteString(quote(d.URI))
		}
	} else {
		b.WriteString(" " + p.prefixes[xsiURI] + ":type=" + quote(p.qualify(n.Tag)))
	}
	for _, a := range n.Attrs {
		b.WriteString(" " + a.Name + "=" + quote(a.Value))
	}

	if len(n.Children) == 0 {
		b.WriteString("/>\n")
		_, err := io.WriteString(p.w, b.String())
		return err
	}
	b.WriteString(">\n")
	if _, err := io.WriteString(p.w, b.String()); err != nil {
		return err
	}
	for _, c := range n.Children {
		if err := p.element(c, depth+1); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(p.w, "%s</%s>\n", strings.Repeat("  ", depth), name)
	return err
}

func (p *printer) qualify(q tree.QName) string {
	prefix := p.prefixes[q.NS]
	if prefix == "" {
		return q.Local
	}
	return prefix + ":" + q.Local
}

func quote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString("&quot;")
		case '&':
			b.WriteString("&amp;")
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '\n':
			b.WriteString("&#10;")
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
