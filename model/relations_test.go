package model_test

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/dbinfrago/py-capellambse/metamodel"
	"github.com/dbinfrago/py-capellambse/model"
)

func names(t *testing.T, l *model.ElementList) []string {
	t.Helper()
	res := make([]string, 0, l.Len())
	for i := 0; i < l.Len(); i++ {
		res = append(res, mustAt(t, l, i).Name())
	}
	return res
}

func TestContainmentKeepsDocumentOrder(t *testing.T) {
	m := newTestModel(t)
	se := mustRoot(t, m)
	pkg := mustCreate(t, se, "function_pkgs", model.Ref(metamodel.FA, "FunctionPkg"))

	for _, name := range []string{"collect", "process", "emit"} {
		fn := mustCreate(t, pkg, "functions", model.Ref(metamodel.FA, "SystemFunction"))
		if err := fn.Set("name", name); err != nil {
			t.Fatal(err)
		}
	}
	fns := mustList(t, pkg, "functions")
	if diff := cmp.Diff([]string{"collect", "process", "emit"}, names(t, fns)); diff != "" {
		t.Fatalf("order (-want +got):\n%s", diff)
	}

	// positional insert lands between existing members
	mid, err := fns.CreateAt(1, model.Ref(metamodel.FA, "DutyFunction"))
	if err != nil {
		t.Fatal(err)
	}
	if err := mid.Set("name", "audit"); err != nil {
		t.Fatal(err)
	}
	fns = mustList(t, pkg, "functions")
	if diff := cmp.Diff([]string{"collect", "audit", "process", "emit"}, names(t, fns)); diff != "" {
		t.Fatalf("after insert (-want +got):\n%s", diff)
	}

	// removing the middle member keeps the rest in order and alive
	if err := fns.Remove(mid); err != nil {
		t.Fatal(err)
	}
	fns = mustList(t, pkg, "functions")
	if diff := cmp.Diff([]string{"collect", "process", "emit"}, names(t, fns)); diff != "" {
		t.Fatalf("after removal (-want +got):\n%s", diff)
	}
}

func TestContainmentRejectsWrongClassAndAttach(t *testing.T) {
	m := newTestModel(t)
	se := mustRoot(t, m)
	pkg := mustCreate(t, se, "function_pkgs", model.Ref(metamodel.FA, "FunctionPkg"))
	fns := mustList(t, pkg, "functions")

	if _, err := fns.Create(model.Ref(metamodel.FA, "FunctionPort")); !errors.Is(err, model.ErrStructure) {
		t.Fatalf("class constraint: %v", err)
	}
	other := mustCreate(t, pkg, "chains", model.Ref(metamodel.FA, "FunctionalChain"))
	if err := fns.Remove(other); !errors.Is(err, model.ErrStructure) {
		t.Fatalf("removing a non-member: %v", err)
	}
	fn := mustCreate(t, pkg, "functions", model.Ref(metamodel.FA, "SystemFunction"))
	if err := fns.Append(fn); err == nil {
		t.Fatal("containment Append accepted")
	}
}

func TestAssociationOutlivesItsTargets(t *testing.T) {
	m := newTestModel(t)
	se := mustRoot(t, m)
	pkg := mustCreate(t, se, "function_pkgs", model.Ref(metamodel.FA, "FunctionPkg"))
	fa := mustCreate(t, pkg, "functions", model.Ref(metamodel.FA, "SystemFunction"))
	fb := mustCreate(t, pkg, "functions", model.Ref(metamodel.FA, "SystemFunction"))
	fbID := fb.UUID()

	con := mustCreate(t, se, "constraints", model.Ref(metamodel.Core, "Constraint"))
	ce := mustList(t, con, "constrained_elements")
	if err := ce.Append(fa); err != nil {
		t.Fatal(err)
	}
	if err := ce.Append(fb); err != nil {
		t.Fatal(err)
	}

	// destroying a target leaves the reference behind, dangling
	if err := mustList(t, pkg, "functions").Remove(fb); err != nil {
		t.Fatal(err)
	}
	ce = mustList(t, con, "constrained_elements")
	if ce.Len() != 2 {
		t.Fatalf("reference list shrank to %d", ce.Len())
	}
	if got := mustAt(t, ce, 0); got != fa {
		t.Fatal("healthy reference broken")
	}
	_, err := ce.At(1)
	var dre *model.DanglingReferenceError
	if !errors.As(err, &dre) || dre.ID != fbID {
		t.Fatalf("dangling member: %v", err)
	}

	// dropping the dead reference needs no live target
	if err := ce.Remove(fb); err != nil {
		t.Fatal(err)
	}
	ce = mustList(t, con, "constrained_elements")
	if ce.Len() != 1 || mustAt(t, ce, 0) != fa {
		t.Fatal("pruning the dead reference broke the live one")
	}
}

func TestAssociationSetReplacesAtomically(t *testing.T) {
	m := newTestModel(t)
	se := mustRoot(t, m)
	pkg := mustCreate(t, se, "function_pkgs", model.Ref(metamodel.FA, "FunctionPkg"))
	fa := mustCreate(t, pkg, "functions", model.Ref(metamodel.FA, "SystemFunction"))
	con := mustCreate(t, se, "constraints", model.Ref(metamodel.Core, "Constraint"))

	if err := con.Set("constrained_elements", []*model.Element{fa, se}); err != nil {
		t.Fatal(err)
	}
	ce := mustList(t, con, "constrained_elements")
	if ce.Len() != 2 || mustAt(t, ce, 1) != se {
		t.Fatalf("replaced list wrong: %d members", ce.Len())
	}

	// a bad write fails whole, leaving the old value intact
	port := mustCreate(t, fa, "ports", model.Ref(metamodel.FA, "FunctionPort"))
	if err := port.Set("exchanges", fa); err == nil {
		t.Fatal("write to a read-only backref accepted")
	}
	if err := con.Set("constrained_elements", 42); err == nil {
		t.Fatal("scalar write accepted")
	}
	if got := mustList(t, con, "constrained_elements").Len(); got != 2 {
		t.Fatalf("failed write mutated the list: %d members", got)
	}

	if err := con.Set("constrained_elements", nil); err != nil {
		t.Fatal(err)
	}
	if got := mustList(t, con, "constrained_elements").Len(); got != 0 {
		t.Fatalf("clear left %d members", got)
	}
}

func TestAllocationCreatesAndDeletesLinkNodes(t *testing.T) {
	m := newTestModel(t)
	se := mustRoot(t, m)
	pkg := mustCreate(t, se, "function_pkgs", model.Ref(metamodel.FA, "FunctionPkg"))
	fn := mustCreate(t, pkg, "functions", model.Ref(metamodel.FA, "SystemFunction"))
	comp := mustCreate(t, se, "components", model.Ref(metamodel.FA, "SystemComponent"))

	if err := mustList(t, comp, "allocated_functions").Append(fn); err != nil {
		t.Fatal(err)
	}

	// the edge is realized as one owned link node wiring both ends
	links := mustList(t, comp, "functional_allocations")
	if links.Len() != 1 {
		t.Fatalf("%d link nodes", links.Len())
	}
	link := mustAt(t, links, 0)
	if tgt, err := link.GetElement("target"); err != nil || tgt != fn {
		t.Fatalf("link target: %v, %v", tgt, err)
	}
	if src, err := link.GetElement("source"); err != nil || src != comp {
		t.Fatalf("link source: %v, %v", src, err)
	}
	alloc := mustList(t, comp, "allocated_functions")
	if alloc.Len() != 1 || mustAt(t, alloc, 0) != fn {
		t.Fatal("logical members do not follow the links")
	}

	// removing the logical member deletes the link, never the target
	if err := alloc.Remove(fn); err != nil {
		t.Fatal(err)
	}
	if got := mustList(t, comp, "functional_allocations").Len(); got != 0 {
		t.Fatalf("%d links left", got)
	}
	if _, err := fn.Get("name"); err != nil {
		t.Fatalf("target died with the link: %v", err)
	}
}

func TestAllocationRejectsWrongTarget(t *testing.T) {
	m := newTestModel(t)
	se := mustRoot(t, m)
	comp := mustCreate(t, se, "components", model.Ref(metamodel.FA, "SystemComponent"))
	con := mustCreate(t, se, "constraints", model.Ref(metamodel.Core, "Constraint"))

	err := mustList(t, comp, "allocated_functions").Append(con)
	if !errors.Is(err, model.ErrStructure) {
		t.Fatalf("constraint violation: %v", err)
	}
	if got := mustList(t, comp, "functional_allocations").Len(); got != 0 {
		t.Fatalf("failed append left %d links", got)
	}
}

func TestBackrefFollowsForwardRelation(t *testing.T) {
	m := newTestModel(t)
	se := mustRoot(t, m)
	pkg := mustCreate(t, se, "function_pkgs", model.Ref(metamodel.FA, "FunctionPkg"))
	fn := mustCreate(t, pkg, "functions", model.Ref(metamodel.FA, "SystemFunction"))
	comp := mustCreate(t, se, "components", model.Ref(metamodel.FA, "SystemComponent"))

	if got := mustList(t, fn, "allocating_components").Len(); got != 0 {
		t.Fatalf("backref non-empty before allocation: %d", got)
	}
	if err := mustList(t, comp, "allocated_functions").Append(fn); err != nil {
		t.Fatal(err)
	}
	back := mustList(t, fn, "allocating_components")
	if back.Len() != 1 || mustAt(t, back, 0) != comp {
		t.Fatal("backref does not reflect the forward edge")
	}

	// the inverse is recomputed, never stored: dropping the forward edge
	// empties it immediately
	if err := mustList(t, comp, "allocated_functions").Remove(fn); err != nil {
		t.Fatal(err)
	}
	if got := mustList(t, fn, "allocating_components").Len(); got != 0 {
		t.Fatalf("backref survived edge removal: %d", got)
	}

	if err := mustList(t, fn, "allocating_components").Append(comp); err == nil {
		t.Fatal("backref accepted a write")
	}
}

func TestBackrefDottedPath(t *testing.T) {
	m := newTestModel(t)
	se := mustRoot(t, m)
	pkg := mustCreate(t, se, "function_pkgs", model.Ref(metamodel.FA, "FunctionPkg"))
	fn := mustCreate(t, pkg, "functions", model.Ref(metamodel.FA, "SystemFunction"))
	chain := mustCreate(t, pkg, "chains", model.Ref(metamodel.FA, "FunctionalChain"))

	if err := mustList(t, chain, "involved_functions").Append(fn); err != nil {
		t.Fatal(err)
	}
	inv := mustList(t, fn, "involving_chains")
	if inv.Len() != 1 || mustAt(t, inv, 0) != chain {
		t.Fatal("dotted-path backref missed the chain")
	}
}

func TestBackrefUnionsSeveralPaths(t *testing.T) {
	m := newTestModel(t)
	se := mustRoot(t, m)
	pkg := mustCreate(t, se, "function_pkgs", model.Ref(metamodel.FA, "FunctionPkg"))
	fn := mustCreate(t, pkg, "functions", model.Ref(metamodel.FA, "SystemFunction"))
	pin := mustCreate(t, fn, "ports", model.Ref(metamodel.FA, "FunctionPort"))
	pout := mustCreate(t, fn, "ports", model.Ref(metamodel.FA, "FunctionPort"))
	ex := mustCreate(t, pkg, "exchanges", model.Ref(metamodel.FA, "FunctionalExchange"))

	if err := ex.Set("source", pout); err != nil {
		t.Fatal(err)
	}
	if err := ex.Set("target", pin); err != nil {
		t.Fatal(err)
	}
	for _, port := range []*model.Element{pin, pout} {
		got := mustList(t, port, "exchanges")
		if got.Len() != 1 || mustAt(t, got, 0) != ex {
			t.Fatalf("port %s does not see the exchange", port.UUID())
		}
	}

	// an exchange looping both ends onto one port still appears once
	if err := ex.Set("target", pout); err != nil {
		t.Fatal(err)
	}
	if got := mustList(t, pout, "exchanges").Len(); got != 1 {
		t.Fatalf("looped exchange counted %d times", got)
	}
}

func TestSingleReadsAndWrites(t *testing.T) {
	m := newTestModel(t)
	se := mustRoot(t, m)
	pkg := mustCreate(t, se, "function_pkgs", model.Ref(metamodel.FA, "FunctionPkg"))
	fn := mustCreate(t, pkg, "functions", model.Ref(metamodel.FA, "SystemFunction"))
	pa := mustCreate(t, fn, "ports", model.Ref(metamodel.FA, "FunctionPort"))
	pb := mustCreate(t, fn, "ports", model.Ref(metamodel.FA, "FunctionPort"))
	ex := mustCreate(t, pkg, "exchanges", model.Ref(metamodel.FA, "FunctionalExchange"))

	if src, err := ex.GetElement("source"); err != nil || src != nil {
		t.Fatalf("absent single: %v, %v", src, err)
	}
	if err := ex.Set("source", pa); err != nil {
		t.Fatal(err)
	}
	if src, _ := ex.GetElement("source"); src != pa {
		t.Fatal("single read missed the member")
	}
	// a second write replaces, never accumulates
	if err := ex.Set("source", pb); err != nil {
		t.Fatal(err)
	}
	if src, _ := ex.GetElement("source"); src != pb {
		t.Fatal("single write did not replace")
	}
	if err := ex.Set("source", nil); err != nil {
		t.Fatal(err)
	}
	if src, _ := ex.GetElement("source"); src != nil {
		t.Fatal("clear did not empty the relation")
	}
}

func TestSingleBoundEnforcedBeforeMutation(t *testing.T) {
	m := newTestModel(t)
	se := mustRoot(t, m)
	pkg := mustCreate(t, se, "function_pkgs", model.Ref(metamodel.FA, "FunctionPkg"))
	fn := mustCreate(t, pkg, "functions", model.Ref(metamodel.FA, "SystemFunction"))
	pa := mustCreate(t, fn, "ports", model.Ref(metamodel.FA, "FunctionPort"))
	pb := mustCreate(t, fn, "ports", model.Ref(metamodel.FA, "FunctionPort"))
	ex := mustCreate(t, pkg, "exchanges", model.Ref(metamodel.FA, "FunctionalExchange"))

	src := mustList(t, ex, "source")
	if err := src.Append(pa); err != nil {
		t.Fatal(err)
	}
	err := mustList(t, ex, "source").Append(pb)
	var ce *model.CardinalityError
	if !errors.As(err, &ce) || ce.Field != "source" {
		t.Fatalf("second append: %v", err)
	}
	// the rejected append changed nothing
	got := mustList(t, ex, "source")
	if got.Len() != 1 || mustAt(t, got, 0) != pa {
		t.Fatal("failed append mutated the relation")
	}
}

func TestSingleBackrefOwner(t *testing.T) {
	m := newTestModel(t)
	se := mustRoot(t, m)
	pkg := mustCreate(t, se, "function_pkgs", model.Ref(metamodel.FA, "FunctionPkg"))
	fn := mustCreate(t, pkg, "functions", model.Ref(metamodel.FA, "SystemFunction"))
	port := mustCreate(t, fn, "ports", model.Ref(metamodel.FA, "FunctionPort"))

	owner, err := port.GetElement("owner")
	if err != nil {
		t.Fatal(err)
	}
	if owner != fn {
		t.Fatal("owner backref missed the containing function")
	}
}

func TestFilterViewNarrowsByClass(t *testing.T) {
	m := newTestModel(t)
	se := mustRoot(t, m)
	pkg := mustCreate(t, se, "function_pkgs", model.Ref(metamodel.FA, "FunctionPkg"))
	sys := mustCreate(t, pkg, "functions", model.Ref(metamodel.FA, "SystemFunction"))
	duty := mustCreate(t, pkg, "functions", model.Ref(metamodel.FA, "DutyFunction"))
	comp := mustCreate(t, se, "components", model.Ref(metamodel.FA, "SystemComponent"))

	alloc := mustList(t, comp, "allocated_functions")
	if err := alloc.Append(sys); err != nil {
		t.Fatal(err)
	}
	if err := alloc.Append(duty); err != nil {
		t.Fatal(err)
	}

	view := mustList(t, comp, "allocated_system_functions")
	if view.Len() != 1 || mustAt(t, view, 0) != sys {
		t.Fatalf("filtered view holds %d members", view.Len())
	}

	// writes pass through to the underlying relation
	if err := view.Remove(sys); err != nil {
		t.Fatal(err)
	}
	if got := mustList(t, comp, "allocated_functions").Len(); got != 1 {
		t.Fatalf("view removal left %d logical members", got)
	}
}

func TestAliasSharesState(t *testing.T) {
	m := newTestModel(t)
	se := mustRoot(t, m)
	pkg := mustCreate(t, se, "function_pkgs", model.Ref(metamodel.FA, "FunctionPkg"))
	fn := mustCreate(t, pkg, "functions", model.Ref(metamodel.FA, "SystemFunction"))
	comp := mustCreate(t, se, "components", model.Ref(metamodel.FA, "SystemComponent"))

	// appending through the alias is visible under the original name
	if err := mustList(t, comp, "deployed_functions").Append(fn); err != nil {
		t.Fatal(err)
	}
	orig := mustList(t, comp, "allocated_functions")
	if orig.Len() != 1 || mustAt(t, orig, 0) != fn {
		t.Fatal("alias and original disagree")
	}
	aliased := mustList(t, comp, "deployed_functions")
	if aliased.Len() != 1 || mustAt(t, aliased, 0) != fn {
		t.Fatal("alias does not see its own write")
	}
}

func TestDeprecatedFieldForwards(t *testing.T) {
	m := newTestModel(t)
	se := mustRoot(t, m)
	pkg := mustCreate(t, se, "function_pkgs", model.Ref(metamodel.FA, "FunctionPkg"))
	ex := mustCreate(t, pkg, "exchanges", model.Ref(metamodel.FA, "FunctionalExchange"))
	cat := mustCreate(t, pkg, "categories", model.Ref(metamodel.FA, "ExchangeCategory"))

	if err := cat.Set("exchanges", ex); err != nil {
		t.Fatal(err)
	}
	old := mustList(t, ex, "exchange_items")
	if old.Len() != 1 || mustAt(t, old, 0) != cat {
		t.Fatal("retired name does not forward to categories")
	}
}

// TestBackrefMatchesForwardOnRandomGraphs builds small random graphs and
// checks the inverse against the forward relation pairwise, through both
// an allocation and a plain association.
func TestBackrefMatchesForwardOnRandomGraphs(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for round := 0; round < 10; round++ {
		m := newTestModel(t)
		se := mustRoot(t, m)
		pkg := mustCreate(t, se, "function_pkgs", model.Ref(metamodel.FA, "FunctionPkg"))

		var fns []*model.Element
		for i := 0; i < 5; i++ {
			fns = append(fns, mustCreate(t, pkg, "functions", model.Ref(metamodel.FA, "SystemFunction")))
		}
		var comps []*model.Element
		for i := 0; i < 4; i++ {
			comps = append(comps, mustCreate(t, se, "components", model.Ref(metamodel.FA, "SystemComponent")))
		}
		for _, comp := range comps {
			alloc := mustList(t, comp, "allocated_functions")
			for _, fn := range fns {
				if rng.Intn(2) == 0 {
					if err := alloc.Append(fn); err != nil {
						t.Fatal(err)
					}
				}
			}
		}
		// drop some edges again so the inverse sees removals too
		for _, comp := range comps {
			alloc := mustList(t, comp, "allocated_functions")
			for i := alloc.Len() - 1; i >= 0; i-- {
				if rng.Intn(4) == 0 {
					if err := alloc.Remove(mustAt(t, alloc, i)); err != nil {
						t.Fatal(err)
					}
				}
			}
		}
		for ci, comp := range comps {
			fwd := mustList(t, comp, "allocated_functions")
			for fi, fn := range fns {
				back := mustList(t, fn, "allocating_components")
				if fwd.Contains(fn) != back.Contains(comp) {
					t.Fatalf("round %d: component %d / function %d: forward=%v inverse=%v",
						round, ci, fi, fwd.Contains(fn), back.Contains(comp))
				}
			}
		}

		var exs, cats []*model.Element
		for i := 0; i < 3; i++ {
			exs = append(exs, mustCreate(t, pkg, "exchanges", model.Ref(metamodel.FA, "FunctionalExchange")))
			cats = append(cats, mustCreate(t, pkg, "categories", model.Ref(metamodel.FA, "ExchangeCategory")))
		}
		for _, cat := range cats {
			members := mustList(t, cat, "exchanges")
			for _, ex := range exs {
				if rng.Intn(2) == 0 {
					if err := members.Append(ex); err != nil {
						t.Fatal(err)
					}
				}
			}
		}
		for xi, cat := range cats {
			fwd := mustList(t, cat, "exchanges")
			for ei, ex := range exs {
				back := mustList(t, ex, "categories")
				if fwd.Contains(ex) != back.Contains(cat) {
					t.Fatalf("round %d: category %d / exchange %d: forward=%v inverse=%v",
						round, xi, ei, fwd.Contains(ex), back.Contains(cat))
				}
			}
		}
	}
}
