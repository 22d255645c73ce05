package schema_test

import (
	"strings"
	"testing"

	"github.com/dbinfrago/py-capellambse/metamodel"
	"github.com/dbinfrago/py-capellambse/model"
	"github.com/dbinfrago/py-capellambse/schema"
	"github.com/dbinfrago/py-capellambse/tree"
)

const viewpoint = `
namespaces:
  - uri: "http://example.com/ops/{VERSION}"
    name: ops
    viewpoint: com.example.ops
    version: "1.0.0"
classes:
  - name: OpsActivity
    super: ["org.polarsys.capella.core.data.fa:SystemFunction"]
    bindings:
      - field: priority
        kind: int
        attr: priority
      - field: criticality
        kind: enum
        attr: criticality
        literals: [LOW, HIGH]
        lenient: true
      - field: reviews
        kind: containment
        tag: ownedReviews
        target: OpsReview
  - name: OpsReview
    super: ["org.polarsys.capella.core.data.capellacore:NamedElement"]
    bindings:
      - field: approved
        kind: bool
        attr: approved
      - field: subject
        kind: single
        mandatory: true
        of:
          field: ""
          kind: association
          attr: subject
          target: "org.polarsys.capella.core.data.capellacore:ModelElement"
`

// viewpointRegistry layers the YAML catalog over the compiled-in one.
func viewpointRegistry(t *testing.T) *model.Registry {
	t.Helper()
	reg := model.NewRegistry()
	if err := metamodel.Register(reg); err != nil {
		t.Fatal(err)
	}
	if err := schema.Load([]byte(viewpoint), reg); err != nil {
		t.Fatal(err)
	}
	if err := reg.Freeze(); err != nil {
		t.Fatal(err)
	}
	return reg
}

func TestLoadExtendsACompiledCatalog(t *testing.T) {
	reg := viewpointRegistry(t)

	root := tree.New(tree.QName{
		NS:    metamodel.Core.URI(metamodel.CoreVersion),
		Local: "SystemEngineering",
	})
	root.SetAttr(model.AttrID, "se-1")
	m, err := model.New(reg, root, model.WithVersion("7.0.0"))
	if err != nil {
		t.Fatal(err)
	}
	se, err := m.Root()
	if err != nil {
		t.Fatal(err)
	}
	pkg, err := se.List("function_pkgs")
	if err != nil {
		t.Fatal(err)
	}
	p, err := pkg.Create(model.Ref(metamodel.FA, "FunctionPkg"))
	if err != nil {
		t.Fatal(err)
	}

	// the YAML class instantiates anywhere its super is allowed
	cls, err := reg.Resolve("http://example.com/ops/1.0.0", "OpsActivity")
	if err != nil {
		t.Fatal(err)
	}
	fns, err := p.List("functions")
	if err != nil {
		t.Fatal(err)
	}
	act, err := fns.Create(cls.Ref())
	if err != nil {
		t.Fatal(err)
	}

	// inherited and declared fields both work
	if err := act.Set("name", "Inspect"); err != nil {
		t.Fatal(err)
	}
	if err := act.Set("priority", 3); err != nil {
		t.Fatal(err)
	}
	v, err := act.Get("criticality")
	if err != nil {
		t.Fatal(err)
	}
	if ev := v.(model.EnumValue); ev.Literal != "LOW" {
		t.Fatalf("default literal %+v", ev)
	}

	// declared containment with a mandatory single inside
	reviews, err := act.List("reviews")
	if err != nil {
		t.Fatal(err)
	}
	review, err := reviews.Create(model.Ref(cls.NS(), "OpsReview"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := review.GetElement("subject"); err == nil {
		t.Fatal("empty mandatory relation readable")
	}
	if err := review.Set("subject", act); err != nil {
		t.Fatal(err)
	}
	got, err := review.GetElement("subject")
	if err != nil {
		t.Fatal(err)
	}
	if got != act {
		t.Fatal("subject does not resolve back")
	}
	if err := review.Set("subject", nil); err == nil {
		t.Fatal("mandatory relation cleared")
	}
}

func TestLoadRejectsBadDocuments(t *testing.T) {
	cases := map[string]string{
		"not yaml":        `{{`,
		"nameless ns":     "namespaces:\n  - uri: urn:x\n",
		"duplicate ns":    "namespaces:\n  - uri: urn:x\n    name: org.polarsys.capella.core.data.fa\n",
		"orphan class":    "classes:\n  - name: Foo\n",
		"bad super":       "namespaces:\n  - uri: urn:x\n    name: x\nclasses:\n  - name: Foo\n    super: [\"nowhere:Bar\"]\n",
		"enum sans lits":  "namespaces:\n  - uri: urn:x\n    name: x\nclasses:\n  - name: Foo\n    bindings:\n      - {field: f, kind: enum, attr: a}\n",
		"unknown kind":    "namespaces:\n  - uri: urn:x\n    name: x\nclasses:\n  - name: Foo\n    bindings:\n      - {field: f, kind: blob}\n",
		"backref no path": "namespaces:\n  - uri: urn:x\n    name: x\nclasses:\n  - name: Foo\n    bindings:\n      - {field: f, kind: backref, source: Foo}\n",
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			reg := model.NewRegistry()
			if err := metamodel.Register(reg); err != nil {
				t.Fatal(err)
			}
			err := schema.Load([]byte(input), reg)
			if err == nil {
				t.Fatal("accepted")
			}
			if !strings.HasPrefix(err.Error(), "schema: ") && !strings.Contains(err.Error(), "field") && !strings.Contains(err.Error(), "class") {
				t.Fatalf("unhelpful error: %v", err)
			}
		})
	}
}
