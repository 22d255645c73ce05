package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/scott-cotton/cli"

	"github.com/dbinfrago/py-capellambse/libdiff"
	"github.com/dbinfrago/py-capellambse/metamodel"
	"github.com/dbinfrago/py-capellambse/model"
	"github.com/dbinfrago/py-capellambse/schema"
	"github.com/dbinfrago/py-capellambse/tree/xmlio"
)

const usageText = `capql - query model documents

Usage:
  capql search <model.xml> [Class...] [--where expr]   Find elements by class
  capql get <model.xml> <uuid>                         Show one element
  capql diff <a.xml> <b.xml>                           Diff two documents

Class names take the "namespaceName:Class" form; a bare name is tried in
every namespace. Extension catalogs load with --schema.

Examples:
  capql search model.xml org.polarsys.capella.core.data.fa:SystemFunction
  capql search model.xml SystemFunction --where 'hasPrefix(name, "Collect")'
  capql get model.xml 6b2f24bc-8b34-4ba7-9a35-95f9b6a3b80e
  capql diff before.xml after.xml`

// Root returns the capql root command.
func Root() *cli.Command {
	return cli.NewCommand("capql").
		WithSynopsis("capql - query model documents").
		WithDescription(usageText).
		WithSubs(
			SearchCommand(),
			GetCommand(),
			DiffCommand(),
		)
}

type searchConfig struct {
	*cli.Command
	Where  string `cli:"name=where desc='keep only elements matching this expression'"`
	Schema string `cli:"name=schema desc='extension catalog (YAML) to load'"`
}

// SearchCommand returns the search subcommand.
func SearchCommand() *cli.Command {
	cfg := &searchConfig{}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Command, "search").
		WithSynopsis("search <model.xml> [Class...] [--where expr] - Find elements").
		WithOpts(opts...).
		WithRun(cfg.run)
}

func (cfg *searchConfig) run(cc *cli.Context, args []string) error {
	args, err := cfg.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) < 1 {
		return fmt.Errorf("%w: search needs a model document", cli.ErrUsage)
	}
	m, _, err := loadModel(args[0], cfg.Schema)
	if err != nil {
		return err
	}
	refs, err := resolveRefs(m.Registry(), args[1:])
	if err != nil {
		return err
	}
	res := m.Search(refs...)
	if cfg.Where != "" {
		res, err = res.Where(cfg.Where)
		if err != nil {
			return err
		}
	}
	paint := painter(cc)
	for i := 0; i < res.Len(); i++ {
		e, err := res.At(i)
		if err != nil {
			return err
		}
		fmt.Fprintf(cc.Out, "%s %s %s\n",
			e.UUID(), paint(e.Class().String()), e.Name())
	}
	return nil
}

type getConfig struct {
	*cli.Command
	Schema string `cli:"name=schema desc='extension catalog (YAML) to load'"`
}

// GetCommand returns the get subcommand.
func GetCommand() *cli.Command {
	cfg := &getConfig{}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Command, "get").
		WithSynopsis("get <model.xml> <uuid> - Show one element").
		WithOpts(opts...).
		WithRun(cfg.run)
}

func (cfg *getConfig) run(cc *cli.Context, args []string) error {
	args, err := cfg.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) != 2 {
		return fmt.Errorf("%w: get needs a model document and a uuid", cli.ErrUsage)
	}
	m, _, err := loadModel(args[0], cfg.Schema)
	if err != nil {
		return err
	}
	e, err := m.ByUUID(args[1])
	if err != nil {
		return err
	}
	paint := painter(cc)
	fmt.Fprintf(cc.Out, "%s %s\n", paint(e.Class().String()), e.UUID())
	for _, field := range e.Class().Fields() {
		v, err := e.Get(field)
		if err != nil {
			fmt.Fprintf(cc.Out, "  %-28s !%v\n", field, err)
			continue
		}
		fmt.Fprintf(cc.Out, "  %-28s %s\n", field, renderValue(v))
	}
	return nil
}

type diffConfig struct {
	*cli.Command
}

// DiffCommand returns the diff subcommand.
func DiffCommand() *cli.Command {
	cfg := &diffConfig{}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Command, "diff").
		WithSynopsis("diff <a.xml> <b.xml> - Diff two documents").
		WithOpts(opts...).
		WithRun(cfg.run)
}

func (cfg *diffConfig) run(cc *cli.Context, args []string) error {
	args, err := cfg.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) != 2 {
		return fmt.Errorf("%w: diff needs two model documents", cli.ErrUsage)
	}
	from, err := loadDocument(args[0])
	if err != nil {
		return err
	}
	to, err := loadDocument(args[1])
	if err != nil {
		return err
	}
	lines, err := libdiff.Documents(from, to)
	if err != nil {
		return err
	}
	useColor := colorTerminal(cc)
	for _, l := range lines {
		switch l.Op {
		case libdiff.Insert:
			if useColor {
				fmt.Fprintln(cc.Out, color.GreenString("+%s", l.Text))
			} else {
				fmt.Fprintf(cc.Out, "+%s\n", l.Text)
			}
		case libdiff.Delete:
			if useColor {
				fmt.Fprintln(cc.Out, color.RedString("-%s", l.Text))
			} else {
				fmt.Fprintf(cc.Out, "-%s\n", l.Text)
			}
		default:
			fmt.Fprintf(cc.Out, " %s\n", l.Text)
		}
	}
	return nil
}

func loadDocument(path string) (*xmlio.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return xmlio.Parse(data)
}

func loadModel(path, schemaPath string) (*model.Model, *xmlio.Document, error) {
	doc, err := loadDocument(path)
	if err != nil {
		return nil, nil, err
	}
	reg := model.NewRegistry()
	if err := metamodel.Register(reg); err != nil {
		return nil, nil, err
	}
	if schemaPath != "" {
		data, err := os.ReadFile(schemaPath)
		if err != nil {
			return nil, nil, err
		}
		if err := schema.Load(data, reg); err != nil {
			return nil, nil, err
		}
	}
	if err := reg.Freeze(); err != nil {
		return nil, nil, err
	}
	m, err := model.New(reg, doc.Root)
	if err != nil {
		return nil, nil, err
	}
	return m, doc, nil
}

// resolveRefs maps "ns:Class" or bare "Class" names to class references.
func resolveRefs(reg *model.Registry, names []string) ([]model.ClassRef, error) {
	var refs []model.ClassRef
	for _, name := range names {
		nsName, clsName := "", name
		if i := strings.LastIndexByte(name, ':'); i >= 0 {
			nsName, clsName = name[:i], name[i+1:]
		}
		found := false
		for _, ns := range reg.Namespaces() {
			if nsName != "" && ns.Name() != nsName {
				continue
			}
			refs = append(refs, model.Ref(ns, clsName))
			found = true
		}
		if !found {
			return nil, fmt.Errorf("unknown namespace in %q", name)
		}
	}
	return refs, nil
}

func renderValue(v any) string {
	switch r := v.(type) {
	case *model.Element:
		return r.String()
	case nil:
		return "-"
	case *model.ElementList:
		parts := make([]string, 0, r.Len())
		for i := 0; i < r.Len(); i++ {
			e, err := r.At(i)
			if err != nil {
				parts = append(parts, "!dangling")
				continue
			}
			parts = append(parts, e.UUID())
		}
		return "[" + strings.Join(parts, " ") + "]"
	case model.EnumValue:
		if !r.Known {
			return r.Literal + " (unknown literal)"
		}
		return r.Literal
	}
	return fmt.Sprint(v)
}

func colorTerminal(cc *cli.Context) bool {
	f, ok := cc.Out.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}

func painter(cc *cli.Context) func(string) string {
	if colorTerminal(cc) {
		cyan := color.New(color.FgCyan)
		return func(s string) string { return cyan.Sprint(s) }
	}
	return func(s string) string { return s }
}
