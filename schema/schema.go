// Package schema loads declarative entity-catalog documents and compiles
// them into runtime class bindings. A schema document is YAML: it declares
// namespaces and classes with their supers and bindings of every kind the
// runtime knows. Loading is phase one of registry initialization; the
// caller freezes the registry once every document is in, which is when
// cross-namespace super references resolve.
package schema

import (
	"fmt"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/dbinfrago/py-capellambse/model"
)

// Document is the top-level shape of a schema feed.
type Document struct {
	Namespaces []NamespaceDecl `yaml:"namespaces"`
	Classes    []ClassDecl     `yaml:"classes"`
}

// NamespaceDecl declares one namespace. URI may carry a {VERSION} slot.
type NamespaceDecl struct {
	URI       string `yaml:"uri"`
	Name      string `yaml:"name"`
	Viewpoint string `yaml:"viewpoint"`
	Version   string `yaml:"version"`
}

// ClassDecl declares one class of the catalog. Namespace and class
// references use the "namespaceName:ClassName" form; an unqualified name
// refers to the declaring document's own namespace.
type ClassDecl struct {
	Namespace string        `yaml:"namespace"`
	Name      string        `yaml:"name"`
	Abstract  bool          `yaml:"abstract"`
	Since     string        `yaml:"since"`
	Until     string        `yaml:"until"`
	Super     []string      `yaml:"super"`
	Bindings  []BindingDecl `yaml:"bindings"`
}

// BindingDecl declares one binding. Kind selects which of the remaining
// fields apply.
type BindingDecl struct {
	Field string `yaml:"field"`
	Kind  string `yaml:"kind"`

	// scalars
	Attr     string   `yaml:"attr"`
	Literals []string `yaml:"literals"`
	Default  string   `yaml:"default"`
	Lenient  bool     `yaml:"lenient"`

	// relations
	Tag      string   `yaml:"tag"`
	Target   string   `yaml:"target"`
	Link     string   `yaml:"link"`
	Backattr string   `yaml:"backattr"`
	Swapped  bool     `yaml:"swapped"`
	Source   string   `yaml:"source"`
	Paths    []string `yaml:"paths"`
	Min      int      `yaml:"min"`
	Max      int      `yaml:"max"`

	// wrappers and views
	Of        *BindingDecl `yaml:"of"`
	Mandatory bool         `yaml:"mandatory"`
	Classes   []string     `yaml:"classes"`
	AliasOf   string       `yaml:"alias_of"`
}

// Load parses one schema document and registers its classes. Class
// references may point at namespaces already known to the registry, so
// catalogs can extend each other; freeze the registry after the last
// Load.
func Load(data []byte, reg *model.Registry) error {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("schema: %w", err)
	}

	names := map[string]*model.Namespace{}
	for _, ns := range reg.Namespaces() {
		names[ns.Name()] = ns
	}
	var local *model.Namespace
	for _, d := range doc.Namespaces {
		if d.URI == "" || d.Name == "" {
			return fmt.Errorf("schema: namespace needs uri and name")
		}
		if _, dup := names[d.Name]; dup {
			return fmt.Errorf("schema: namespace %q already known", d.Name)
		}
		ns := model.NewNamespace(d.URI, d.Name, d.Viewpoint, d.Version)
		names[d.Name] = ns
		if local == nil {
			local = ns
		}
	}

	for _, cd := range doc.Classes {
		cls, err := buildClass(cd, names, local)
		if err != nil {
			return err
		}
		if err := reg.Register(cls); err != nil {
			return fmt.Errorf("schema: %w", err)
		}
	}
	return nil
}

func buildClass(cd ClassDecl, names map[string]*model.Namespace, local *model.Namespace) (*model.Class, error) {
	ns := local
	if cd.Namespace != "" {
		ns = names[cd.Namespace]
	}
	if ns == nil {
		return nil, fmt.Errorf("schema: class %q has no namespace", cd.Name)
	}
	if cd.Name == "" {
		return nil, fmt.Errorf("schema: class in %s lacks a name", ns.Name())
	}
	span := model.VRange{Min: cd.Since, Max: cd.Until}
	var cls *model.Class
	if cd.Abstract {
		cls = model.NewAbstractClass(ns, cd.Name, span)
	} else {
		cls = model.NewClass(ns, cd.Name, span)
	}
	for _, s := range cd.Super {
		ref, err := parseRef(s, names, local)
		if err != nil {
			return nil, fmt.Errorf("schema: class %s: %w", cd.Name, err)
		}
		cls.Super(ref)
	}
	for _, bd := range cd.Bindings {
		b, err := buildBinding(bd, names, local)
		if err != nil {
			return nil, fmt.Errorf("schema: class %s: %w", cd.Name, err)
		}
		cls.Bind(b)
	}
	return cls, nil
}

func buildBinding(bd BindingDecl, names map[string]*model.Namespace, local *model.Namespace) (model.Binding, error) {
	ref := func(s string) (model.ClassRef, error) { return parseRef(s, names, local) }
	var bounds []model.RelOpt
	if bd.Min != 0 || bd.Max != 0 {
		bounds = append(bounds, model.WithBounds(bd.Min, bd.Max))
	}

	switch bd.Kind {
	case "string":
		return model.StringPOD(bd.Field, bd.Attr), nil
	case "bool":
		return model.BoolPOD(bd.Field, bd.Attr), nil
	case "int":
		return model.IntPOD(bd.Field, bd.Attr), nil
	case "enum":
		if len(bd.Literals) == 0 {
			return nil, fmt.Errorf("field %q: enum needs literals", bd.Field)
		}
		var opts []model.EnumOpt
		if bd.Default != "" {
			opts = append(opts, model.WithDefault(bd.Default))
		}
		if bd.Lenient {
			opts = append(opts, model.Lenient())
		}
		return model.EnumPOD(bd.Field, bd.Attr, bd.Literals, opts...), nil
	case "containment":
		target, err := ref(bd.Target)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", bd.Field, err)
		}
		return model.Containment(bd.Field, bd.Tag, target, bounds...), nil
	case "association":
		target, err := ref(bd.Target)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", bd.Field, err)
		}
		return model.Association(bd.Field, target, bd.Attr, bounds...), nil
	case "backref":
		source, err := ref(bd.Source)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", bd.Field, err)
		}
		if len(bd.Paths) == 0 {
			return nil, fmt.Errorf("field %q: backref needs paths", bd.Field)
		}
		return model.Backref(bd.Field, source, bd.Paths...), nil
	case "allocation":
		link, err := ref(bd.Link)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", bd.Field, err)
		}
		target, err := ref(bd.Target)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", bd.Field, err)
		}
		var opts []model.AllocOpt
		if bd.Swapped {
			opts = append(opts, model.Swapped())
		}
		if bd.Min != 0 || bd.Max != 0 {
			opts = append(opts, model.AllocBounds(bd.Min, bd.Max))
		}
		return model.Allocation(bd.Field, bd.Tag, link, target, bd.Attr, bd.Backattr, opts...), nil
	case "single":
		if bd.Of == nil {
			return nil, fmt.Errorf("field %q: single needs an inner binding", bd.Field)
		}
		inner, err := buildBinding(*bd.Of, names, local)
		if err != nil {
			return nil, err
		}
		var opts []model.SingleOpt
		if bd.Mandatory {
			opts = append(opts, model.Mandatory())
		}
		return model.Single(bd.Field, inner, opts...), nil
	case "filter":
		if bd.Of == nil {
			return nil, fmt.Errorf("field %q: filter needs an inner binding", bd.Field)
		}
		inner, err := buildBinding(*bd.Of, names, local)
		if err != nil {
			return nil, err
		}
		refs := make([]model.ClassRef, len(bd.Classes))
		for i, c := range bd.Classes {
			r, err := ref(c)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", bd.Field, err)
			}
			refs[i] = r
		}
		return model.Filter(bd.Field, inner, refs...), nil
	case "alias":
		return model.Alias(bd.Field, bd.AliasOf), nil
	case "deprecated":
		return model.Deprecated(bd.Field, bd.AliasOf), nil
	}
	return nil, fmt.Errorf("field %q: unknown binding kind %q", bd.Field, bd.Kind)
}

// parseRef resolves "namespaceName:ClassName"; a bare class name binds to
// the document's own namespace.
func parseRef(s string, names map[string]*model.Namespace, local *model.Namespace) (model.ClassRef, error) {
	if s == "" {
		return model.ClassRef{}, fmt.Errorf("empty class reference")
	}
	nsName, clsName := "", s
	if i := strings.LastIndexByte(s, ':'); i >= 0 {
		nsName, clsName = s[:i], s[i+1:]
	}
	ns := local
	if nsName != "" {
		ns = names[nsName]
	}
	if ns == nil {
		return model.ClassRef{}, fmt.Errorf("unknown namespace in reference %q", s)
	}
	return model.Ref(ns, clsName), nil
}
