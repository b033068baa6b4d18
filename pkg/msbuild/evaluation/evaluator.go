package evaluation

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/walteh/msbuildls/pkg/position"
	"github.com/walteh/msbuildls/pkg/xmltree"
	"gitlab.com/tozd/go/errors"
)

// ErrNotAProject is returned when the root element of the evaluated file is
// not <Project>.
var ErrNotAProject = errors.Base("not an msbuild project")

type Options struct {
	// SdkRoots are searched in order for <root>/<Sdk>/Sdk/Sdk.props and
	// Sdk.targets.
	SdkRoots []string

	// GlobalProperties cannot be overridden by the project.
	GlobalProperties map[string]string
}

type Evaluator struct {
	fs   afero.Fs
	opts Options
}

func NewEvaluator(fs afero.Fs, opts Options) *Evaluator {
	return &Evaluator{fs: fs, opts: opts}
}

// Evaluate reads path from the filesystem and evaluates it.
func (e *Evaluator) Evaluate(ctx context.Context, path string) (*Project, error) {
	data, err := afero.ReadFile(e.fs, path)
	if err != nil {
		return nil, errors.Errorf("reading project %s: %w", path, err)
	}
	return e.EvaluateText(ctx, path, string(data))
}

// EvaluateText evaluates path using text as its content, which lets an open,
// unsaved editor buffer be evaluated. Imports are still read from the
// filesystem.
func (e *Evaluator) EvaluateText(ctx context.Context, path, text string) (*Project, error) {
	path = filepath.Clean(path)

	s := &state{
		ctx:        ctx,
		ev:         e,
		project:    &Project{fullPath: path},
		properties: make(map[string]Property),
		visited:    make(map[string]bool),
		logger:     zerolog.Ctx(ctx),
	}
	s.setReservedProperties(path)
	s.setGlobalProperties()

	if err := s.walk(newSourceFile(path, text), true); err != nil {
		return nil, err
	}
	if err := s.evaluateItems(); err != nil {
		return nil, err
	}

	s.project.properties = s.properties
	s.project.items = s.items
	s.project.itemsIgnoringCondition = s.ignoring
	s.project.targets = s.targets
	s.project.warnings = s.warnings

	s.logger.Debug().
		Str("project", path).
		Int("properties", len(s.properties)).
		Int("items", len(s.items)).
		Int("imports", len(s.project.imports)).
		Int("targets", len(s.targets)).
		Msg("evaluated project")

	return s.project, nil
}

// findSdk returns the Sdk directory of the named SDK. A version suffix
// ("Name/1.2.3") is ignored.
func (e *Evaluator) findSdk(name string) (string, bool) {
	name, _, _ = strings.Cut(strings.TrimSpace(name), "/")
	for _, root := range e.opts.SdkRoots {
		dir := filepath.Join(root, name, "Sdk")
		if ok, err := afero.DirExists(e.fs, dir); err == nil && ok {
			return dir, true
		}
	}
	return "", false
}

// glob expands an absolute pattern into the absolute paths of matching files.
func (e *Evaluator) glob(pattern string) ([]string, error) {
	base, rest := doublestar.SplitPattern(filepath.ToSlash(normalizeSeparators(pattern)))

	if ok, err := afero.DirExists(e.fs, base); err != nil || !ok {
		return nil, nil
	}

	fsys := afero.NewIOFS(afero.NewBasePathFs(e.fs, base))
	matches, err := doublestar.Glob(fsys, rest, doublestar.WithFilesOnly())
	if err != nil {
		return nil, errors.Errorf("expanding %q: %w", pattern, err)
	}

	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = filepath.Join(base, filepath.FromSlash(m))
	}
	return out, nil
}

func normalizeSeparators(p string) string {
	return strings.ReplaceAll(p, `\`, "/")
}

func hasWildcard(p string) bool {
	return strings.ContainsAny(p, "*?")
}

type sourceFile struct {
	path      string
	doc       *xmltree.Document
	positions *position.TextPositions
}

func newSourceFile(path, text string) *sourceFile {
	return &sourceFile{
		path:      path,
		doc:       xmltree.Parse(text),
		positions: position.NewTextPositions(text),
	}
}

// location is the position of the element's opening '<'.
func (f *sourceFile) location(n *xmltree.Node) Location {
	pos, err := f.positions.ToPosition(n.Span.Start)
	if err != nil {
		return Location{File: f.path}
	}
	return Location{File: f.path, Line: pos.Line, Column: pos.Column}
}

func (f *sourceFile) dir() string {
	return filepath.Dir(f.path)
}

type scopedNode struct {
	file *sourceFile
	node *xmltree.Node
}

type state struct {
	ctx     context.Context
	ev      *Evaluator
	project *Project
	logger  *zerolog.Logger

	properties map[string]Property
	items      []Item
	ignoring   []Item
	targets    []Target
	itemGroups []scopedNode
	visited    map[string]bool
	warnings   *multierror.Error
}

// projectDir is the base of relative item includes and Exists() checks,
// whichever file they appear in.
func (s *state) projectDir() string {
	return filepath.Dir(s.project.fullPath)
}

func (s *state) warn(err error) {
	s.logger.Debug().Err(err).Str("project", s.project.fullPath).Msg("evaluation warning")
	s.warnings = multierror.Append(s.warnings, err)
}

func (s *state) setReservedProperties(path string) {
	ext := filepath.Ext(path)
	for name, value := range map[string]string{
		"MSBuildProjectFullPath":  path,
		"MSBuildProjectDirectory": filepath.Dir(path),
		"MSBuildProjectFile":      filepath.Base(path),
		"MSBuildProjectName":      strings.TrimSuffix(filepath.Base(path), ext),
		"MSBuildProjectExtension": ext,
	} {
		s.properties[strings.ToLower(name)] = Property{Name: name, Value: value, UnevaluatedValue: value, Reserved: true}
	}
}

func (s *state) setGlobalProperties() {
	for name, value := range s.ev.opts.GlobalProperties {
		s.properties[strings.ToLower(name)] = Property{Name: name, Value: value, UnevaluatedValue: value, Global: true}
	}
}

func (s *state) setProperty(name, value, unevaluated string, loc Location) {
	key := strings.ToLower(name)
	if existing, ok := s.properties[key]; ok && (existing.Global || existing.Reserved) {
		return
	}
	s.properties[key] = Property{Name: name, Value: value, UnevaluatedValue: unevaluated, Location: loc}
}

type fileEnv struct {
	s    *state
	file *sourceFile
}

func (e fileEnv) expandValue(value string) string {
	return e.s.expand(e.file, value)
}

func (e fileEnv) exists(path string) bool {
	path = strings.TrimSpace(path)
	if path == "" {
		return false
	}
	path = filepath.FromSlash(normalizeSeparators(path))
	if !filepath.IsAbs(path) {
		path = filepath.Join(e.s.projectDir(), path)
	}
	ok, err := afero.Exists(e.s.ev.fs, path)
	return err == nil && ok
}

// condition evaluates the Condition attribute of n, if any.
func (s *state) condition(file *sourceFile, n *xmltree.Node) bool {
	cond, ok := n.AttributeValue("Condition")
	if !ok {
		return true
	}
	v, err := evaluateCondition(fileEnv{s: s, file: file}, cond)
	if err != nil {
		s.logger.Debug().Err(err).Stringer("location", file.location(n)).Msg("unsupported condition, assuming true")
	}
	return v
}

func attr(n *xmltree.Node, name string) string {
	v, _ := n.AttributeValue(name)
	return v
}

// innerText is the text content of a property or metadata element.
func innerText(n *xmltree.Node) string {
	var sb strings.Builder
	for _, c := range n.Children() {
		if c.Kind == xmltree.KindText || c.Kind == xmltree.KindWhitespace {
			sb.WriteString(c.Text)
		}
	}
	return strings.TrimSpace(sb.String())
}

func (s *state) walk(file *sourceFile, isRoot bool) error {
	if err := s.ctx.Err(); err != nil {
		return err
	}

	root := file.doc.Root()
	if root == nil || root.Name != "Project" {
		err := errors.Errorf("%s: %w", file.path, ErrNotAProject)
		if isRoot {
			return err
		}
		s.warn(err)
		return nil
	}
	s.visited[strings.ToLower(file.path)] = true

	var sdks []string
	if v, ok := root.AttributeValue("Sdk"); ok {
		sdks = splitList(v)
	}

	// imports implied by the root Sdk attribute have no element of their own
	implied := Location{File: file.path}
	for _, sdk := range sdks {
		if err := s.impliedSdkImport(file, isRoot, sdk, "Sdk.props", implied); err != nil {
			return err
		}
	}

	var sdkElements []scopedNode
	for _, el := range root.ChildElements() {
		var err error
		switch el.Name {
		case "PropertyGroup":
			s.walkPropertyGroup(file, isRoot, el)
		case "ItemGroup":
			s.walkItemGroup(file, isRoot, el)
		case "Import":
			err = s.walkImport(file, isRoot, el, true)
		case "ImportGroup":
			groupCond := s.condition(file, el)
			for _, imp := range el.ChildElements() {
				if imp.Name != "Import" {
					continue
				}
				if err = s.walkImport(file, isRoot, imp, groupCond); err != nil {
					break
				}
			}
		case "Sdk":
			sdkElements = append(sdkElements, scopedNode{file: file, node: el})
			err = s.impliedSdkImport(file, isRoot, attr(el, "Name"), "Sdk.props", file.location(el))
		case "Target":
			s.walkTarget(file, isRoot, el)
		}
		if err != nil {
			return err
		}
	}

	for _, sn := range sdkElements {
		if err := s.impliedSdkImport(file, isRoot, attr(sn.node, "Name"), "Sdk.targets", file.location(sn.node)); err != nil {
			return err
		}
	}
	for _, sdk := range sdks {
		if err := s.impliedSdkImport(file, isRoot, sdk, "Sdk.targets", implied); err != nil {
			return err
		}
	}

	return nil
}

func (s *state) walkPropertyGroup(file *sourceFile, isRoot bool, group *xmltree.Node) {
	groupCond := s.condition(file, group)
	for _, el := range group.ChildElements() {
		value := innerText(el)
		loc := file.location(el)

		if isRoot {
			s.project.declarations.Properties = append(s.project.declarations.Properties, PropertyDeclaration{
				Name:      el.Name,
				Value:     value,
				Condition: attr(el, "Condition"),
				Location:  loc,
			})
		}

		if !groupCond || !s.condition(file, el) {
			continue
		}
		s.setProperty(el.Name, s.expand(file, value), value, loc)
	}
}

func (s *state) walkItemGroup(file *sourceFile, isRoot bool, group *xmltree.Node) {
	s.itemGroups = append(s.itemGroups, scopedNode{file: file, node: group})
	if !isRoot {
		return
	}
	for _, el := range group.ChildElements() {
		s.project.declarations.Items = append(s.project.declarations.Items, ItemDeclaration{
			ItemType:  el.Name,
			Include:   attr(el, "Include"),
			Exclude:   attr(el, "Exclude"),
			Remove:    attr(el, "Remove"),
			Update:    attr(el, "Update"),
			Condition: attr(el, "Condition"),
			Location:  file.location(el),
		})
	}
}

func (s *state) walkTarget(file *sourceFile, isRoot bool, el *xmltree.Node) {
	t := Target{
		Name:             attr(el, "Name"),
		DependsOnTargets: attr(el, "DependsOnTargets"),
		BeforeTargets:    attr(el, "BeforeTargets"),
		AfterTargets:     attr(el, "AfterTargets"),
		Condition:        attr(el, "Condition"),
		Location:         file.location(el),
	}
	if isRoot {
		s.project.declarations.Targets = append(s.project.declarations.Targets, TargetDeclaration{
			Name:      t.Name,
			Condition: t.Condition,
			Location:  t.Location,
		})
	}
	if t.Name == "" {
		return
	}

	// a later definition replaces an earlier one
	kept := s.targets[:0]
	for _, existing := range s.targets {
		if !strings.EqualFold(existing.Name, t.Name) {
			kept = append(kept, existing)
		}
	}
	s.targets = append(kept, t)
}

func (s *state) walkImport(file *sourceFile, isRoot bool, el *xmltree.Node, parentCond bool) error {
	project, sdk := attr(el, "Project"), attr(el, "Sdk")
	loc := file.location(el)

	if isRoot {
		s.project.declarations.Imports = append(s.project.declarations.Imports, ImportDeclaration{
			Project:   project,
			Sdk:       sdk,
			Condition: attr(el, "Condition"),
			Location:  loc,
		})
	}

	if !parentCond || !s.condition(file, el) {
		return nil
	}

	if sdk != "" {
		return s.importSdk(file, sdk, project, loc)
	}
	return s.importProject(file, s.expand(file, project), loc, "")
}

func (s *state) impliedSdkImport(file *sourceFile, isRoot bool, sdk, project string, loc Location) error {
	if sdk == "" {
		return nil
	}
	if isRoot {
		s.project.declarations.Imports = append(s.project.declarations.Imports, ImportDeclaration{
			Project:  project,
			Sdk:      sdk,
			Location: loc,
			Implicit: true,
		})
	}
	return s.importSdk(file, sdk, project, loc)
}

func (s *state) importSdk(file *sourceFile, sdk, project string, loc Location) error {
	dir, ok := s.ev.findSdk(sdk)
	if !ok {
		s.warn(errors.Errorf("%s: sdk %q could not be resolved", loc, sdk))
		return nil
	}
	return s.importProject(file, filepath.Join(dir, s.expand(file, project)), loc, sdk)
}

func (s *state) importProject(file *sourceFile, pattern string, loc Location, sdk string) error {
	if strings.TrimSpace(pattern) == "" {
		s.warn(errors.Errorf("%s: import has no project", loc))
		return nil
	}

	pattern = filepath.FromSlash(normalizeSeparators(pattern))
	if !filepath.IsAbs(pattern) {
		pattern = filepath.Join(file.dir(), pattern)
	}

	paths := []string{filepath.Clean(pattern)}
	if hasWildcard(pattern) {
		var err error
		if paths, err = s.ev.glob(pattern); err != nil {
			s.warn(errors.Errorf("%s: %w", loc, err))
			return nil
		}
	}

	for _, path := range paths {
		if s.visited[strings.ToLower(path)] {
			s.warn(errors.Errorf("%s: %s is already imported", loc, path))
			continue
		}

		data, err := afero.ReadFile(s.ev.fs, path)
		if err != nil {
			s.warn(errors.Errorf("%s: importing %s: %w", loc, path, err))
			continue
		}

		child := newSourceFile(path, string(data))
		rootLoc := Location{File: path}
		if r := child.doc.Root(); r != nil {
			rootLoc = child.location(r)
		}

		s.project.imports = append(s.project.imports, ResolvedImport{
			ImportingElement: loc,
			ImportedProject:  path,
			ImportedRoot:     rootLoc,
			Sdk:              sdk,
		})

		if err := s.walk(child, false); err != nil {
			return err
		}
	}
	return nil
}

func (s *state) evaluateItems() error {
	for _, g := range s.itemGroups {
		if err := s.ctx.Err(); err != nil {
			return err
		}
		groupCond := s.condition(g.file, g.node)
		for _, el := range g.node.ChildElements() {
			s.evaluateItem(g.file, el, groupCond)
		}
	}
	return nil
}

var itemAttributes = map[string]bool{
	"Include":         true,
	"Exclude":         true,
	"Remove":          true,
	"Update":          true,
	"Condition":       true,
	"KeepMetadata":    true,
	"RemoveMetadata":  true,
	"KeepDuplicates":  true,
	"MatchOnMetadata": true,
}

func (s *state) evaluateItem(file *sourceFile, el *xmltree.Node, groupCond bool) {
	cond := groupCond && s.condition(file, el)

	if remove, ok := el.AttributeValue("Remove"); ok {
		if cond {
			s.items = removeItems(s.items, el.Name, splitList(s.expand(file, remove)))
		}
		return
	}

	include, ok := el.AttributeValue("Include")
	if !ok {
		return
	}

	metadata := map[string]string{}
	for _, a := range el.Attributes() {
		if !itemAttributes[a.Name] {
			metadata[a.Name] = s.expand(file, a.Value)
		}
	}
	for _, m := range el.ChildElements() {
		if s.condition(file, m) {
			metadata[m.Name] = s.expand(file, innerText(m))
		}
	}

	loc := file.location(el)
	for _, inc := range s.resolveIncludes(s.expand(file, include), s.expand(file, attr(el, "Exclude"))) {
		it := Item{
			ItemType:    el.Name,
			Include:     inc,
			Unevaluated: include,
			Metadata:    metadata,
			Location:    loc,
		}
		s.ignoring = append(s.ignoring, it)
		if cond {
			s.items = append(s.items, it)
		}
	}
}

func (s *state) resolveIncludes(include, exclude string) []string {
	excludes := splitList(exclude)
	excluded := func(value string) bool {
		for _, ex := range excludes {
			if ok, err := doublestar.Match(normalizeSeparators(ex), normalizeSeparators(value)); err == nil && ok {
				return true
			}
		}
		return false
	}

	var out []string
	for _, inc := range splitList(include) {
		if !hasWildcard(inc) {
			if !excluded(inc) {
				out = append(out, inc)
			}
			continue
		}

		pattern := filepath.FromSlash(normalizeSeparators(inc))
		if !filepath.IsAbs(pattern) {
			pattern = filepath.Join(s.projectDir(), pattern)
		}
		matches, err := s.ev.glob(pattern)
		if err != nil {
			s.warn(err)
			continue
		}
		for _, m := range matches {
			rel, err := filepath.Rel(s.projectDir(), m)
			if err != nil {
				rel = m
			}
			if !excluded(rel) {
				out = append(out, rel)
			}
		}
	}
	return out
}

func removeItems(items []Item, itemType string, values []string) []Item {
	kept := items[:0:0]
	for _, it := range items {
		drop := false
		if strings.EqualFold(it.ItemType, itemType) {
			for _, v := range values {
				if ok, err := doublestar.Match(normalizeSeparators(v), normalizeSeparators(it.Include)); err == nil && ok {
					drop = true
					break
				}
			}
		}
		if !drop {
			kept = append(kept, it)
		}
	}
	return kept
}
