package semantic

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/walteh/msbuildls/pkg/msbuild/evaluation"
	"github.com/walteh/msbuildls/pkg/position"
	"github.com/walteh/msbuildls/pkg/rangeindex"
	"github.com/walteh/msbuildls/pkg/xmllocator"
	"github.com/walteh/msbuildls/pkg/xmltree"
	"gitlab.com/tozd/go/errors"
)

// Project is what the locator needs from an evaluated project.
// *evaluation.Project implements it.
type Project interface {
	FullPath() string
	GetProperty(name string) (evaluation.Property, bool)
	Items() []evaluation.Item
	ItemsIgnoringCondition() []evaluation.Item
	Imports() []evaluation.ResolvedImport
	Targets() []evaluation.Target
	Declarations() evaluation.Declarations
}

var _ Project = (*evaluation.Project)(nil)

// Locator finds the semantic object declared at a position of one project
// document.
type Locator struct {
	project Project
	xml     *xmllocator.Locator
	index   *rangeindex.Index[Object]
	logger  zerolog.Logger
}

// NewLocator builds the objects declared in the document behind xml. Only
// constructs whose declaring file is project.FullPath() are considered.
// Constructs whose element cannot be found are logged and skipped.
func NewLocator(ctx context.Context, project Project, xml *xmllocator.Locator, logger zerolog.Logger) (*Locator, error) {
	if project == nil {
		return nil, errors.Errorf("%w: nil project", xmllocator.ErrInvalidArgument)
	}
	if xml == nil {
		return nil, errors.Errorf("%w: nil xml locator", xmllocator.ErrInvalidArgument)
	}
	if strings.TrimSpace(project.FullPath()) == "" {
		return nil, errors.Errorf("%w: project has no path", xmllocator.ErrInvalidArgument)
	}

	l := &Locator{
		project: project,
		xml:     xml,
		index:   rangeindex.New[Object](),
		logger: logger.With().
			Str("component", "semantic-locator").
			Str("project", filepath.Base(project.FullPath())).
			Logger(),
	}

	for _, step := range []func(context.Context) error{
		l.addTargets,
		l.addProperties,
		l.addItems,
		l.addImports,
	} {
		if err := step(ctx); err != nil {
			return nil, err
		}
	}
	l.index.Sort()

	l.logger.Debug().Int("objects", l.index.Len()).Msg("built semantic locator")

	return l, nil
}

func (l *Locator) Project() Project {
	return l.project
}

// Find returns the innermost object whose range contains pos, or nil.
func (l *Locator) Find(ctx context.Context, pos position.Position) (Object, error) {
	if pos.IsZero() {
		return nil, errors.Errorf("%w: zero position", xmllocator.ErrInvalidArgument)
	}
	obj, _, ok, err := l.index.Find(ctx, pos)
	if err != nil || !ok {
		return nil, err
	}
	return obj, nil
}

// AllObjects returns every object in document order.
func (l *Locator) AllObjects() []Object {
	return l.index.All()
}

func (l *Locator) inDocument(loc evaluation.Location) bool {
	return loc.InFile(l.project.FullPath())
}

// resolve finds the element declared at loc. A nil element with a nil error
// means the construct should be skipped.
func (l *Locator) resolve(ctx context.Context, what string, loc evaluation.Location) (*xmltree.Node, error) {
	if !loc.IsValid() {
		l.logger.Debug().Str("construct", what).Msg("no declaring location, skipping")
		return nil, nil
	}

	xl, err := l.xml.Inspect(ctx, loc.Position())
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		l.logger.Warn().Err(err).Str("construct", what).Stringer("location", loc).Msg("cannot resolve declaring element, skipping")
		return nil, nil
	}
	if xl == nil {
		l.logger.Warn().Str("construct", what).Stringer("location", loc).Msg("no element at declaring location, skipping")
		return nil, nil
	}

	el := xl.Node.Element()
	if el == nil {
		l.logger.Warn().Str("construct", what).Stringer("location", loc).Stringer("node", xl.Node).Msg("declaring node is not an element, skipping")
		return nil, nil
	}
	return el, nil
}

func (l *Locator) newBase(name string, node *xmltree.Node) base {
	return base{name: name, node: node, rng: l.xml.NodeRange(node)}
}

// add indexes obj. When another object already starts at the same position
// the one that takes part in the build wins, then the one backed by more
// evaluated constructs; otherwise the first one stays.
func (l *Locator) add(obj Object) {
	existing, existingRange, added := l.index.Add(obj.XmlRange(), obj)
	if added {
		return
	}

	kept, dropped := existing, obj
	if outranks(obj, existing) {
		if err := l.index.Replace(obj.XmlRange(), obj); err != nil {
			l.logger.Error().Err(err).Stringer("object", obj).Msg("replacing semantic object")
			return
		}
		kept, dropped = obj, existing
	}

	l.logger.Warn().
		Stringer("kept_kind", kept.Kind()).
		Stringer("kept_range", kept.XmlRange()).
		Stringer("dropped_kind", dropped.Kind()).
		Stringer("dropped_range", dropped.XmlRange()).
		Stringer("existing_range", existingRange).
		Bool("same_source", obj.source() == existing.source()).
		Msg("two semantic objects start at the same position")
}

func outranks(a, b Object) bool {
	aUsed, aWeight := a.rank()
	bUsed, bWeight := b.rank()
	if aUsed != bUsed {
		return aUsed
	}
	return aWeight > bWeight
}

func (l *Locator) addTargets(ctx context.Context) error {
	for _, t := range l.project.Targets() {
		if !l.inDocument(t.Location) {
			continue
		}
		el, err := l.resolve(ctx, "target "+t.Name, t.Location)
		if err != nil {
			return err
		}
		if el == nil {
			continue
		}
		l.add(&Target{base: l.newBase(t.Name, el), Target: t})
	}
	return nil
}

func (l *Locator) addProperties(ctx context.Context) error {
	for _, d := range l.project.Declarations().Properties {
		if !l.inDocument(d.Location) {
			continue
		}
		el, err := l.resolve(ctx, "property "+d.Name, d.Location)
		if err != nil {
			return err
		}
		if el == nil {
			continue
		}

		if prop, ok := l.project.GetProperty(d.Name); ok {
			l.add(&Property{base: l.newBase(d.Name, el), Property: prop, Declaration: d})
		} else {
			l.add(&UnusedProperty{base: l.newBase(d.Name, el), Declaration: d})
		}
	}
	return nil
}

func (l *Locator) addItems(ctx context.Context) error {
	used := map[evaluation.Location]bool{}
	for _, it := range l.project.Items() {
		used[it.Location] = true
	}

	// one element can produce many items
	var order []evaluation.Location
	groups := map[evaluation.Location][]evaluation.Item{}
	for _, it := range l.project.ItemsIgnoringCondition() {
		if !l.inDocument(it.Location) {
			continue
		}
		if _, seen := groups[it.Location]; !seen {
			order = append(order, it.Location)
		}
		groups[it.Location] = append(groups[it.Location], it)
	}

	for _, loc := range order {
		items := groups[loc]
		el, err := l.resolve(ctx, "item "+items[0].ItemType, loc)
		if err != nil {
			return err
		}
		if el == nil {
			continue
		}

		b := l.newBase(items[0].ItemType, el)
		if used[loc] {
			l.add(&ItemGroup{base: b, Items: items})
		} else {
			l.add(&UnusedItemGroup{base: b, Items: items})
		}
	}
	return nil
}

type importGroup struct {
	anchor   *xmltree.Node
	sdk      bool
	sdks     []string
	decl     evaluation.ImportDeclaration
	resolved []evaluation.ResolvedImport
}

func (l *Locator) addImports(ctx context.Context) error {
	var order []*importGroup
	byAnchor := map[xmltree.NodeID]*importGroup{}

	for _, d := range l.project.Declarations().Imports {
		if !l.inDocument(d.Location) {
			continue
		}

		anchor, err := l.importAnchor(ctx, d)
		if err != nil {
			return err
		}
		if anchor == nil {
			continue
		}

		g, ok := byAnchor[anchor.ID()]
		if !ok {
			g = &importGroup{anchor: anchor, sdk: d.Sdk != "", decl: d}
			byAnchor[anchor.ID()] = g
			order = append(order, g)
		}
		if d.Sdk != "" && !containsFold(g.sdks, d.Sdk) {
			g.sdks = append(g.sdks, d.Sdk)
		}
		for _, ri := range l.project.Imports() {
			if ri.ImportingElement != d.Location || !strings.EqualFold(ri.Sdk, d.Sdk) {
				continue
			}
			if !containsImport(g.resolved, ri) {
				g.resolved = append(g.resolved, ri)
			}
		}
	}

	for _, g := range order {
		switch {
		case g.sdk && len(g.resolved) > 0:
			l.add(&SdkImport{base: l.newBase(strings.Join(g.sdks, ";"), g.anchor), Sdks: g.sdks, Imports: g.resolved})
		case g.sdk:
			l.add(&UnresolvedSdkImport{base: l.newBase(strings.Join(g.sdks, ";"), g.anchor), Sdks: g.sdks})
		case len(g.resolved) > 0:
			l.add(&Import{base: l.newBase(g.decl.Project, g.anchor), Declaration: g.decl, Imports: g.resolved})
		default:
			l.add(&UnresolvedImport{base: l.newBase(g.decl.Project, g.anchor), Declaration: g.decl})
		}
	}
	return nil
}

// importAnchor returns the node an import is shown on. SDK imports anchor on
// the attribute naming the SDK. The evaluator reports no location for the
// imports implied by an Sdk attribute on the root element, so those are
// resolved from the start of the document.
func (l *Locator) importAnchor(ctx context.Context, d evaluation.ImportDeclaration) (*xmltree.Node, error) {
	if d.Sdk == "" {
		return l.resolve(ctx, "import "+d.Project, d.Location)
	}

	var el *xmltree.Node
	if d.Location.IsValid() {
		var err error
		if el, err = l.resolve(ctx, "sdk import "+d.Sdk, d.Location); err != nil || el == nil {
			return nil, err
		}
	} else {
		xl, err := l.xml.Inspect(ctx, position.OneBased(1, 1))
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			l.logger.Debug().Err(err).Msg("inspecting document origin")
		}
		if xl != nil {
			el = xl.Node.Element()
		}
		if el == nil || el.Name != "Project" {
			el = l.xml.Document().Root()
		}
		if el == nil {
			l.logger.Warn().Str("sdk", d.Sdk).Msg("document has no root element for sdk import, skipping")
			return nil, nil
		}
	}

	attrName := "Sdk"
	if el.Name == "Sdk" {
		attrName = "Name"
	}
	if a := el.Attribute(attrName); a != nil {
		return a, nil
	}
	return el, nil
}

func containsFold(list []string, v string) bool {
	for _, s := range list {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}

func containsImport(list []evaluation.ResolvedImport, ri evaluation.ResolvedImport) bool {
	for _, existing := range list {
		if evaluation.SamePath(existing.ImportedProject, ri.ImportedProject) {
			return true
		}
	}
	return false
}
