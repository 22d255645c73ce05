package xmlio

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"

	"github.com/dbinfrago/py-capellambse/tree"
)

const xsiURI = "http://www.w3.org/2001/XMLSchema-instance"

var ErrMalformed = errors.New("malformed document")

// NSDecl is one xmlns declaration captured from the document root and
// replayed on persist so prefixes survive a round trip.
type NSDecl struct {
	Prefix string
	URI    string
}

// Document pairs a backing tree with the namespace declarations needed to
// serialize it again.
type Document struct {
	Root  *tree.Node
	Decls []NSDecl
}

// Loader turns raw bytes into a backing tree.
type Loader interface {
	Load(r io.Reader) (*Document, error)
}

// Persister writes a backing tree back out as bytes.
type Persister interface {
	Persist(w io.Writer, doc *Document) error
}

// Parse is shorthand for loading from a byte slice.
func Parse(data []byte) (*Document, error) {
	return XML{}.Load(bytes.NewReader(data))
}

// XML implements Loader and Persister for the tool's XML wire shape.
type XML struct{}

var (
	_ Loader    = XML{}
	_ Persister = XML{}
)

func (XML) Load(r io.Reader) (*Document, error) {
	dec := xml.NewDecoder(r)
	doc := &Document{}

	// prefix scopes, innermost last; decls on nested elements shadow
	var scopes []map[string]string
	lookup := func(prefix string) (string, bool) {
		for i := len(scopes) - 1; i >= 0; i-- {
			if uri, ok := scopes[i][prefix]; ok {
				return uri, true
			}
		}
		return "", false
	}

	var stack []*tree.Node
	for {
		tok, err := dec.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			scope := map[string]string{}
			for _, a := range t.Attr {
				if a.Name.Space == "xmlns" {
					scope[a.Name.Local] = a.Value
				} else if a.Name.Space == "" && a.Name.Local == "xmlns" {
					scope[""] = a.Value
				}
			}
			scopes = append(scopes, scope)

			var attrs []tree.Attr
			xsiType := ""
			for _, a := range t.Attr {
				switch {
				case a.Name.Space == "xmlns",
					a.Name.Space == "" && a.Name.Local == "xmlns":
					// handled above
				case a.Name.Local == "type" && prefixIs(lookup, a.Name.Space, xsiURI):
					xsiType = a.Value
				default:
					attrs = append(attrs, tree.Attr{Name: a.Name.Local, Value: a.Value})
				}
			}

			node := &tree.Node{Attrs: attrs}
			if len(stack) == 0 {
				// the root element names its own type
				nsURI, ok := lookup(t.Name.Space)
				if !ok {
					return nil, fmt.Errorf("%w: undeclared prefix %q on root", ErrMalformed, t.Name.Space)
				}
				node.Tag = tree.QName{NS: nsURI, Local: t.Name.Local}
				doc.Decls = declsOf(scope)
				doc.Root = node
			} else {
				node.Role = t.Name.Local
				if xsiType == "" {
					return nil, fmt.Errorf("%w: element %q lacks xsi:type", ErrMalformed, t.Name.Local)
				}
				prefix, local := splitPrefixed(xsiType)
				nsURI, ok := lookup(prefix)
				if !ok {
					return nil, fmt.Errorf("%w: undeclared prefix %q in xsi:type", ErrMalformed, prefix)
				}
				node.Tag = tree.QName{NS: nsURI, Local: local}
				stack[len(stack)-1].AppendChild(node)
			}
			stack = append(stack, node)
		case xml.EndElement:
			if len(stack) == 0 {
				return nil, fmt.Errorf("%w: unbalanced end element", ErrMalformed)
			}
			stack = stack[:len(stack)-1]
			scopes = scopes[:len(scopes)-1]
		case xml.CharData:
			if len(bytes.TrimSpace(t)) != 0 {
				return nil, fmt.Errorf("%w: unexpected character data", ErrMalformed)
			}
		case xml.Comment, xml.ProcInst, xml.Directive:
			// tolerated, not preserved
		}
	}
	if doc.Root == nil {
		return nil, fmt.Errorf("%w: no root element", ErrMalformed)
	}
	if len(stack) != 0 {
		return nil, fmt.Errorf("%w: unterminated element", ErrMalformed)
	}
	return doc, nil
}

func prefixIs(lookup func(string) (string, bool), prefix, want string) bool {
	if prefix == "" {
		return false
	}
	uri, ok := lookup(prefix)
	return ok && uri == want
}

// splitPrefixed splits "prefix:name"; an unprefixed name resolves against
// the default namespace.
func splitPrefixed(s string) (prefix, local string) {
	for i := 0; i < len(s); i++ {
		if s[i] == ':' {
			return s[:i], s[i+1:]
		}
	}
	return "", s
}
