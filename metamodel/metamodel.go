package metamodel

import "github.com/dbinfrago/py-capellambse/model"

// FunctionKind is the literal set of AbstractFunction's "kind" attribute.
var FunctionKind = []string{"FUNCTION", "DUPLICATE", "GATHER", "SELECT", "SPLIT", "ROUTE"}

// Build returns a frozen registry holding the compiled-in catalog subset.
func Build() (*model.Registry, error) {
	reg := model.NewRegistry()
	if err := Register(reg); err != nil {
		return nil, err
	}
	if err := reg.Freeze(); err != nil {
		return nil, err
	}
	return reg, nil
}

// Register adds the catalog's classes without freezing, so callers can
// layer further catalogs (for example YAML viewpoint extensions) on top
// before the registry is frozen.
func Register(reg *model.Registry) error {
	span := model.Since(CoreVersion)

	err := reg.Register(
		model.NewAbstractClass(Core, "ModelElement", span).
			Bind(
				model.StringPOD("sid", "sid"),
				model.Containment("extensions", "ownedExtensions",
					model.Ref(Core, "ModelElement")),
				model.Containment("constraints", "ownedConstraints",
					model.Ref(Core, "Constraint")),
			),

		model.NewAbstractClass(Core, "NamedElement", span).
			Super(model.Ref(Core, "ModelElement")).
			Bind(
				model.StringPOD("name", "name"),
				model.StringPOD("description", "description"),
				model.BoolPOD("is_visible_in_doc", "visibleInDoc"),
			),

		model.NewClass(Core, "Constraint", span).
			Super(model.Ref(Core, "NamedElement")).
			Bind(
				model.Association("constrained_elements",
					model.Ref(Core, "ModelElement"), "constrainedElements"),
			),

		model.NewClass(Core, "SystemEngineering", span).
			Super(model.Ref(Core, "NamedElement")).
			Bind(
				model.Containment("function_pkgs", "ownedFunctionPkgs",
					model.Ref(FA, "FunctionPkg")),
				model.Containment("components", "ownedComponents",
					model.Ref(FA, "SystemComponent")),
			),
	)
	if err != nil {
		return err
	}

	err = reg.Register(
		model.NewClass(FA, "FunctionPkg", span).
			Super(model.Ref(Core, "NamedElement")).
			Bind(
				model.Containment("functions", "ownedFunctions",
					model.Ref(FA, "AbstractFunction")),
				model.Containment("exchanges", "ownedFunctionalExchanges",
					model.Ref(FA, "FunctionalExchange")),
				model.Containment("chains", "ownedFunctionalChains",
					model.Ref(FA, "FunctionalChain")),
				model.Containment("categories", "ownedCategories",
					model.Ref(FA, "ExchangeCategory")),
			),

		model.NewAbstractClass(FA, "AbstractFunction", span).
			Super(model.Ref(Core, "NamedElement")).
			Bind(
				model.EnumPOD("kind", "kind", FunctionKind),
				model.Containment("functions", "ownedFunctions",
					model.Ref(FA, "AbstractFunction")),
				model.Containment("ports", "ownedFunctionPorts",
					model.Ref(FA, "FunctionPort")),
				model.Backref("allocating_components",
					model.Ref(FA, "SystemComponent"), "allocated_functions"),
				model.Backref("involving_chains",
					model.Ref(FA, "FunctionalChain"), "involvements.involved"),
			),

		model.NewClass(FA, "SystemFunction", span).
			Super(model.Ref(FA, "AbstractFunction")),

		model.NewClass(FA, "DutyFunction", span).
			Super(model.Ref(FA, "AbstractFunction")),

		model.NewClass(FA, "FunctionPort", span).
			Super(model.Ref(Core, "NamedElement")).
			Bind(
				model.Backref("exchanges",
					model.Ref(FA, "FunctionalExchange"), "source", "target"),
				model.Single("owner",
					model.Backref("", model.Ref(FA, "AbstractFunction"), "ports")),
			),

		model.NewClass(FA, "FunctionalExchange", span).
			Super(model.Ref(Core, "NamedElement")).
			Bind(
				model.Single("source",
					model.Association("", model.Ref(FA, "FunctionPort"), "source")),
				model.Single("target",
					model.Association("", model.Ref(FA, "FunctionPort"), "target")),
				model.Backref("categories",
					model.Ref(FA, "ExchangeCategory"), "exchanges"),
				model.Deprecated("exchange_items", "categories"),
			),

		model.NewClass(FA, "ExchangeCategory", span).
			Super(model.Ref(Core, "NamedElement")).
			Bind(
				model.Association("exchanges",
					model.Ref(FA, "FunctionalExchange"), "exchanges"),
			),

		model.NewClass(FA, "FunctionalChain", span).
			Super(model.Ref(Core, "NamedElement")).
			Bind(
				model.Containment("involvements", "ownedFunctionalChainInvolvements",
					model.Ref(FA, "FunctionalChainInvolvement")),
				model.Allocation("involved_functions",
					"ownedFunctionalChainInvolvements",
					model.Ref(FA, "FunctionalChainInvolvement"),
					model.Ref(FA, "AbstractFunction"),
					"involved", ""),
			),

		model.NewClass(FA, "FunctionalChainInvolvement", span).
			Super(model.Ref(Core, "ModelElement")).
			Bind(
				model.Single("involved",
					model.Association("", model.Ref(FA, "AbstractFunction"), "involved")),
			),

		model.NewClass(FA, "ComponentFunctionalAllocation", span).
			Super(model.Ref(Core, "ModelElement")).
			Bind(
				model.Single("source",
					model.Association("", model.Ref(FA, "SystemComponent"), "sourceElement")),
				model.Single("target",
					model.Association("", model.Ref(FA, "AbstractFunction"), "targetElement")),
			),

		model.NewClass(FA, "SystemComponent", span).
			Super(model.Ref(Core, "NamedElement")).
			Bind(
				model.Containment("components", "ownedComponents",
					model.Ref(FA, "SystemComponent")),
				model.Containment("functional_allocations", "ownedFunctionalAllocations",
					model.Ref(FA, "ComponentFunctionalAllocation")),
				model.Allocation("allocated_functions", "ownedFunctionalAllocations",
					model.Ref(FA, "ComponentFunctionalAllocation"),
					model.Ref(FA, "AbstractFunction"),
					"targetElement", "sourceElement"),
				model.Filter("allocated_system_functions",
					model.Allocation("", "ownedFunctionalAllocations",
						model.Ref(FA, "ComponentFunctionalAllocation"),
						model.Ref(FA, "AbstractFunction"),
						"targetElement", "sourceElement"),
					model.Ref(FA, "SystemFunction")),
				model.Alias("deployed_functions", "allocated_functions"),
			),
	)
	return err
}

// MustBuild is Build for package setup paths where the catalog is known
// good.
func MustBuild() *model.Registry {
	reg, err := Build()
	if err != nil {
		panic(err)
	}
	return reg
}
