package semantic_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/msbuildls/pkg/msbuild/evaluation"
	"github.com/walteh/msbuildls/pkg/position"
	"github.com/walteh/msbuildls/pkg/semantic"
	"github.com/walteh/msbuildls/pkg/xmllocator"
	"github.com/walteh/msbuildls/pkg/xmltree"
)

const projectPath = "/src/app.csproj"

type fakeProject struct {
	props    map[string]evaluation.Property
	items    []evaluation.Item
	ignoring []evaluation.Item
	imports  []evaluation.ResolvedImport
	targets  []evaluation.Target
	decl     evaluation.Declarations
}

func (f *fakeProject) FullPath() string { return projectPath }

func (f *fakeProject) GetProperty(name string) (evaluation.Property, bool) {
	p, ok := f.props[strings.ToLower(name)]
	return p, ok
}

func (f *fakeProject) Items() []evaluation.Item                  { return f.items }
func (f *fakeProject) ItemsIgnoringCondition() []evaluation.Item { return f.ignoring }
func (f *fakeProject) Imports() []evaluation.ResolvedImport      { return f.imports }
func (f *fakeProject) Targets() []evaluation.Target              { return f.targets }
func (f *fakeProject) Declarations() evaluation.Declarations     { return f.decl }

func at(line, col int) evaluation.Location {
	return evaluation.Location{File: projectPath, Line: line, Column: col}
}

func newXML(t *testing.T, text string) *xmllocator.Locator {
	t.Helper()
	x, err := xmllocator.New(xmltree.Parse(text), position.NewTextPositions(text), zerolog.Nop())
	require.NoError(t, err)
	return x
}

func TestPropertyAtTextPosition(t *testing.T) {
	ctx := context.Background()
	text := `<Project><PropertyGroup><OutputType>Exe</OutputType></PropertyGroup></Project>`
	x := newXML(t, text)

	project := &fakeProject{
		props: map[string]evaluation.Property{
			"outputtype": {Name: "OutputType", Value: "Exe", Location: at(1, 25)},
		},
		decl: evaluation.Declarations{
			Properties: []evaluation.PropertyDeclaration{{Name: "OutputType", Value: "Exe", Location: at(1, 25)}},
		},
	}

	loc, err := semantic.NewLocator(ctx, project, x, zerolog.Nop())
	require.NoError(t, err)

	pos := position.OneBased(1, 38)

	xl, err := x.Inspect(ctx, pos)
	require.NoError(t, err)
	assert.Equal(t, xmllocator.FlagElement|xmllocator.FlagText|xmllocator.FlagValue, xl.Flags)

	obj, err := loc.Find(ctx, pos)
	require.NoError(t, err)
	prop, ok := obj.(*semantic.Property)
	require.True(t, ok, "got %v", obj)
	assert.Equal(t, "OutputType", prop.Name())
	assert.Equal(t, "Exe", prop.Value())
	assert.False(t, prop.IsOverridden())
	assert.Equal(t, xl.Node.Parent(), prop.Xml())

	obj, err = loc.Find(ctx, position.ZeroBased(0, 10))
	require.NoError(t, err)
	assert.Nil(t, obj)
}

func TestUnusedProperty(t *testing.T) {
	text := `<Project><PropertyGroup><A Condition="false">1</A></PropertyGroup></Project>`
	project := &fakeProject{
		decl: evaluation.Declarations{
			Properties: []evaluation.PropertyDeclaration{{Name: "A", Value: "1", Condition: "false", Location: at(1, 25)}},
		},
	}

	loc, err := semantic.NewLocator(context.Background(), project, newXML(t, text), zerolog.Nop())
	require.NoError(t, err)

	objs := loc.AllObjects()
	require.Len(t, objs, 1)
	assert.Equal(t, semantic.KindUnusedProperty, objs[0].Kind())
}

const evaluatedProject = `<Project Sdk="Foo.Bar">
  <PropertyGroup>
    <OutputType>Exe</OutputType>
    <Gone Condition="false">x</Gone>
  </PropertyGroup>
  <ItemGroup>
    <Compile Include="a.cs;c.cs" />
    <Compile Include="b.cs" Condition="false" />
  </ItemGroup>
  <Import Project="missing.props" />
  <Import Project="extra.props" />
  <Target Name="Build" />
</Project>
`

func evaluatedLocator(t *testing.T) (*semantic.Locator, *xmllocator.Locator) {
	t.Helper()
	ctx := context.Background()

	fs := afero.NewMemMapFs()
	for name, content := range map[string]string{
		"/sdks/Foo.Bar/Sdk/Sdk.props":   `<Project />`,
		"/sdks/Foo.Bar/Sdk/Sdk.targets": `<Project />`,
		"/src/extra.props":              `<Project />`,
	} {
		require.NoError(t, afero.WriteFile(fs, name, []byte(content), 0o644))
	}

	project, err := evaluation.NewEvaluator(fs, evaluation.Options{SdkRoots: []string{"/sdks"}}).
		EvaluateText(ctx, projectPath, evaluatedProject)
	require.NoError(t, err)

	x := newXML(t, evaluatedProject)
	loc, err := semantic.NewLocator(ctx, project, x, zerolog.Nop())
	require.NoError(t, err)
	return loc, x
}

func TestEvaluatedProjectObjects(t *testing.T) {
	loc, _ := evaluatedLocator(t)

	type want struct {
		kind  semantic.Kind
		name  string
		start position.Position
	}
	var got []want
	for _, obj := range loc.AllObjects() {
		got = append(got, want{obj.Kind(), obj.Name(), obj.XmlRange().Start})
	}

	assert.Equal(t, []want{
		{semantic.KindSdkImport, "Foo.Bar", position.OneBased(1, 10)},
		{semantic.KindProperty, "OutputType", position.OneBased(3, 5)},
		{semantic.KindUnusedProperty, "Gone", position.OneBased(4, 5)},
		{semantic.KindItemGroup, "Compile", position.OneBased(7, 5)},
		{semantic.KindUnusedItemGroup, "Compile", position.OneBased(8, 5)},
		{semantic.KindUnresolvedImport, "missing.props", position.OneBased(10, 3)},
		{semantic.KindImport, "extra.props", position.OneBased(11, 3)},
		{semantic.KindTarget, "Build", position.OneBased(12, 3)},
	}, got)
}

func TestSdkAttributeOnRoot(t *testing.T) {
	ctx := context.Background()
	loc, _ := evaluatedLocator(t)

	obj, err := loc.Find(ctx, position.OneBased(1, 15))
	require.NoError(t, err)

	sdk, ok := obj.(*semantic.SdkImport)
	require.True(t, ok, "got %v", obj)
	assert.Equal(t, position.NewRange(position.OneBased(1, 10), position.OneBased(1, 23)), sdk.XmlRange())
	assert.Equal(t, xmltree.KindAttribute, sdk.Xml().Kind)
	assert.Equal(t, []string{"Foo.Bar"}, sdk.Sdks)
	assert.Equal(t, []string{"/sdks/Foo.Bar/Sdk/Sdk.props", "/sdks/Foo.Bar/Sdk/Sdk.targets"}, sdk.ImportedProjects())
}

func TestConditionFalseItemIsUnused(t *testing.T) {
	ctx := context.Background()
	loc, _ := evaluatedLocator(t)

	obj, err := loc.Find(ctx, position.OneBased(8, 20))
	require.NoError(t, err)
	group, ok := obj.(*semantic.UnusedItemGroup)
	require.True(t, ok, "got %v", obj)
	assert.Equal(t, []string{"b.cs"}, group.Includes())

	obj, err = loc.Find(ctx, position.OneBased(7, 20))
	require.NoError(t, err)
	used, ok := obj.(*semantic.ItemGroup)
	require.True(t, ok, "got %v", obj)
	assert.Equal(t, []string{"a.cs", "c.cs"}, used.Includes())
}

func TestObjectsMatchXmlNodes(t *testing.T) {
	loc, x := evaluatedLocator(t)

	ranges := map[position.Range]bool{}
	for _, n := range x.AllNodes() {
		ranges[x.NodeRange(n)] = true
	}

	for _, obj := range loc.AllObjects() {
		assert.True(t, ranges[obj.XmlRange()], "no xml node has the range of %s", obj)
		assert.Equal(t, x.NodeRange(obj.Xml()), obj.XmlRange())
	}
}

func TestConflictKeepsRicherObject(t *testing.T) {
	text := `<Project><ItemGroup><Compile Include="a.cs;b.cs" /></ItemGroup></Project>`
	el := at(1, 21)

	var logs bytes.Buffer
	project := &fakeProject{
		props: map[string]evaluation.Property{"compile": {Name: "Compile", Value: "x"}},
		decl: evaluation.Declarations{
			Properties: []evaluation.PropertyDeclaration{{Name: "Compile", Location: el}},
		},
		items: []evaluation.Item{
			{ItemType: "Compile", Include: "a.cs", Location: el},
			{ItemType: "Compile", Include: "b.cs", Location: el},
		},
	}
	project.ignoring = project.items

	loc, err := semantic.NewLocator(context.Background(), project, newXML(t, text), zerolog.New(&logs))
	require.NoError(t, err)

	objs := loc.AllObjects()
	require.Len(t, objs, 1)
	assert.Equal(t, semantic.KindItemGroup, objs[0].Kind())

	assert.Contains(t, logs.String(), "two semantic objects start at the same position")
	assert.Contains(t, logs.String(), `"kept_kind":"ItemGroup"`)
	assert.Contains(t, logs.String(), `"dropped_kind":"Property"`)
	assert.Contains(t, logs.String(), `"same_source":false`)
}

func TestConflictKeepsUsedObject(t *testing.T) {
	text := `<Project><ItemGroup><Compile Include="a.cs" /></ItemGroup></Project>`
	el := at(1, 21)

	project := &fakeProject{
		props: map[string]evaluation.Property{"compile": {Name: "Compile", Value: "x"}},
		decl: evaluation.Declarations{
			Properties: []evaluation.PropertyDeclaration{{Name: "Compile", Location: el}},
		},
		ignoring: []evaluation.Item{
			{ItemType: "Compile", Include: "a.cs", Location: el},
			{ItemType: "Compile", Include: "b.cs", Location: el},
		},
	}

	loc, err := semantic.NewLocator(context.Background(), project, newXML(t, text), zerolog.Nop())
	require.NoError(t, err)

	objs := loc.AllObjects()
	require.Len(t, objs, 1)
	assert.Equal(t, semantic.KindProperty, objs[0].Kind())
}

func TestSkipsForeignAndMissingDeclarations(t *testing.T) {
	text := `<Project><Target Name="A" /></Project>`
	project := &fakeProject{
		targets: []evaluation.Target{
			{Name: "A", Location: at(1, 10)},
			{Name: "Imported", Location: evaluation.Location{File: "/other.targets", Line: 1, Column: 10}},
			{Name: "Stale", Location: at(40, 1)},
			{Name: "Nowhere", Location: at(1, 40)},
		},
	}

	loc, err := semantic.NewLocator(context.Background(), project, newXML(t, text), zerolog.Nop())
	require.NoError(t, err)

	objs := loc.AllObjects()
	require.Len(t, objs, 1)
	assert.Equal(t, "A", objs[0].Name())
	assert.Equal(t, []string(nil), objs[0].(*semantic.Target).DependsOn())
}

func TestCancellation(t *testing.T) {
	text := `<Project><Target Name="A" /></Project>`
	project := &fakeProject{targets: []evaluation.Target{{Name: "A", Location: at(1, 10)}}}
	x := newXML(t, text)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := semantic.NewLocator(ctx, project, x, zerolog.Nop())
	require.ErrorIs(t, err, context.Canceled)

	loc, err := semantic.NewLocator(context.Background(), project, x, zerolog.Nop())
	require.NoError(t, err)

	_, err = loc.Find(ctx, position.OneBased(1, 12))
	require.ErrorIs(t, err, context.Canceled)

	obj, err := loc.Find(context.Background(), position.OneBased(1, 12))
	require.NoError(t, err)
	assert.Equal(t, "A", obj.Name())
}

func TestNewLocatorRejectsBadArguments(t *testing.T) {
	_, err := semantic.NewLocator(context.Background(), nil, newXML(t, "<Project/>"), zerolog.Nop())
	require.ErrorIs(t, err, xmllocator.ErrInvalidArgument)

	_, err = semantic.NewLocator(context.Background(), &fakeProject{}, nil, zerolog.Nop())
	require.ErrorIs(t, err, xmllocator.ErrInvalidArgument)
}
