package model

import (
	"fmt"
	"strconv"
	"strings"
)

const versionSlot = "{VERSION}"

// Namespace identifies one metamodel namespace: a version-templated URI,
// a dotted short name, the viewpoint it belongs to, and the earliest schema
// version it exists in.
type Namespace struct {
	template   string
	name       string
	viewpoint  string
	minVersion string
}

func NewNamespace(uriTemplate, name, viewpoint, minVersion string) *Namespace {
	return &Namespace{
		template:   uriTemplate,
		name:       name,
		viewpoint:  viewpoint,
		minVersion: minVersion,
	}
}

func (ns *Namespace) Name() string      { return ns.name }
func (ns *Namespace) Viewpoint() string { return ns.viewpoint }

// URI instantiates the namespace URI for a concrete schema version.
func (ns *Namespace) URI(version string) string {
	return strings.ReplaceAll(ns.template, versionSlot, version)
}

// Match reports whether uri is an instantiation of this namespace and, for
// templated namespaces, which version it carries.
func (ns *Namespace) Match(uri string) (version string, ok bool) {
	i := strings.Index(ns.template, versionSlot)
	if i < 0 {
		return "", uri == ns.template
	}
	prefix, suffix := ns.template[:i], ns.template[i+len(versionSlot):]
	if !strings.HasPrefix(uri, prefix) || !strings.HasSuffix(uri, suffix) {
		return "", false
	}
	v := uri[len(prefix) : len(uri)-len(suffix)]
	if v == "" || strings.ContainsAny(v, "/") {
		return "", false
	}
	return v, true
}

// VRange is a half-open-ended version range. Empty Min means unbounded
// below, empty Max unbounded above; both bounds are inclusive.
type VRange struct {
	Min string
	Max string
}

// Since is the common "this version and above" range.
func Since(min string) VRange { return VRange{Min: min} }

func (r VRange) Contains(v string) bool {
	if v == "" {
		// untemplated namespaces carry no version; only unconstrained
		// ranges apply
		return r.Min == "" && r.Max == ""
	}
	if r.Min != "" && compareVersions(v, r.Min) < 0 {
		return false
	}
	if r.Max != "" && compareVersions(v, r.Max) > 0 {
		return false
	}
	return true
}

func (r VRange) overlaps(o VRange) bool {
	if r.Max != "" && o.Min != "" && compareVersions(r.Max, o.Min) < 0 {
		return false
	}
	if o.Max != "" && r.Min != "" && compareVersions(o.Max, r.Min) < 0 {
		return false
	}
	return true
}

func (r VRange) String() string {
	switch {
	case r.Min == "" && r.Max == "":
		return "*"
	case r.Max == "":
		return r.Min + "+"
	case r.Min == "":
		return "<=" + r.Max
	default:
		return r.Min + ".." + r.Max
	}
}

// compareVersions compares dotted numeric versions segment by segment;
// missing segments count as zero, so "7.0" equals "7.0.0".
func compareVersions(a, b string) int {
	as, bs := strings.Split(a, "."), strings.Split(b, ".")
	for i := 0; i < len(as) || i < len(bs); i++ {
		av, bv := 0, 0
		if i < len(as) {
			av, _ = strconv.Atoi(as[i])
		}
		if i < len(bs) {
			bv, _ = strconv.Atoi(bs[i])
		}
		if av != bv {
			if av < bv {
				return -1
			}
			return 1
		}
	}
	return 0
}

// ClassRef names a class by namespace and local tag, without requiring the
// class to be registered yet. References are resolved when the registry is
// frozen or, for version-dependent lookups, at access time.
type ClassRef struct {
	NS   *Namespace
	Name string
}

func Ref(ns *Namespace, name string) ClassRef {
	return ClassRef{NS: ns, Name: name}
}

func (r ClassRef) String() string {
	if r.NS == nil {
		return r.Name
	}
	return r.NS.name + ":" + r.Name
}

func (r ClassRef) valid() error {
	if r.NS == nil || r.Name == "" {
		return fmt.Errorf("incomplete class reference %v", r)
	}
	return nil
}
