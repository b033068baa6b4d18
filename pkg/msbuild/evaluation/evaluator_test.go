package evaluation_test

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/msbuildls/pkg/msbuild/evaluation"
)

const appProject = `<Project Sdk="Test.Sdk">
  <PropertyGroup>
    <OutputType>Exe</OutputType>
    <Name>$(MSBuildProjectName)-$(OutputType)</Name>
    <Skipped Condition="'$(OutputType)' == 'Library'">yes</Skipped>
    <Configuration>Release</Configuration>
  </PropertyGroup>
  <ItemGroup>
    <None Include="readme.md" Pack="true" />
    <Content Include="unused.txt" Condition="false" />
    <Compile Remove="obj/**" />
  </ItemGroup>
  <Import Project="common.props" />
  <Import Project="missing.props" />
  <Target Name="Custom" DependsOnTargets="Build" />
</Project>
`

func newFs(t *testing.T) afero.Fs {
	t.Helper()

	fs := afero.NewMemMapFs()
	files := map[string]string{
		"/src/app/app.csproj":     appProject,
		"/src/app/a.cs":           "",
		"/src/app/sub/b.cs":       "",
		"/src/app/obj/gen.cs":     "",
		"/src/app/common.props":   `<Project><PropertyGroup><Common>$(MSBuildThisFileDirectory)</Common></PropertyGroup></Project>`,
		"/sdks/Test.Sdk/Sdk/Sdk.props": `<Project>
  <PropertyGroup><SdkProp>1</SdkProp></PropertyGroup>
  <ItemGroup><Compile Include="**/*.cs" /></ItemGroup>
</Project>`,
		"/sdks/Test.Sdk/Sdk/Sdk.targets": `<Project><Target Name="Build" /></Project>`,
	}
	for name, content := range files {
		require.NoError(t, afero.WriteFile(fs, name, []byte(content), 0o644))
	}
	return fs
}

func evaluate(t *testing.T, opts evaluation.Options) *evaluation.Project {
	t.Helper()

	if opts.SdkRoots == nil {
		opts.SdkRoots = []string{"/sdks"}
	}
	p, err := evaluation.NewEvaluator(newFs(t), opts).Evaluate(context.Background(), "/src/app/app.csproj")
	require.NoError(t, err)
	return p
}

func TestEvaluateProperties(t *testing.T) {
	p := evaluate(t, evaluation.Options{})

	tests := []struct {
		name  string
		value string
		ok    bool
	}{
		{"OutputType", "Exe", true},
		{"outputtype", "Exe", true},
		{"Name", "app-Exe", true},
		{"Skipped", "", false},
		{"SdkProp", "1", true},
		{"Common", "/src/app/", true},
		{"MSBuildProjectDirectory", "/src/app", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prop, ok := p.GetProperty(tt.name)
			require.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.value, prop.Value)
		})
	}

	prop, _ := p.GetProperty("OutputType")
	assert.Equal(t, evaluation.Location{File: "/src/app/app.csproj", Line: 3, Column: 5}, prop.Location)
}

func TestEvaluateGlobalPropertiesWin(t *testing.T) {
	p := evaluate(t, evaluation.Options{GlobalProperties: map[string]string{"Configuration": "Debug"}})

	prop, ok := p.GetProperty("Configuration")
	require.True(t, ok)
	assert.Equal(t, "Debug", prop.Value)
	assert.True(t, prop.Global)
}

func TestEvaluateItems(t *testing.T) {
	p := evaluate(t, evaluation.Options{})

	var used []string
	for _, it := range p.Items() {
		used = append(used, it.ItemType+":"+it.Include)
	}
	assert.Equal(t, []string{"Compile:a.cs", "Compile:sub/b.cs", "None:readme.md"}, used)

	var all []string
	for _, it := range p.ItemsIgnoringCondition() {
		all = append(all, it.ItemType+":"+it.Include)
	}
	assert.Equal(t, []string{"Compile:a.cs", "Compile:obj/gen.cs", "Compile:sub/b.cs", "None:readme.md", "Content:unused.txt"}, all)

	none := p.ItemsOfType("none")
	require.Len(t, none, 1)
	assert.Equal(t, "true", none[0].Metadata["Pack"])
	assert.Equal(t, evaluation.Location{File: "/src/app/app.csproj", Line: 9, Column: 5}, none[0].Location)
}

func TestEvaluateImports(t *testing.T) {
	p := evaluate(t, evaluation.Options{})

	imports := p.Imports()
	require.Len(t, imports, 3)

	assert.Equal(t, "/sdks/Test.Sdk/Sdk/Sdk.props", imports[0].ImportedProject)
	assert.Equal(t, "Test.Sdk", imports[0].Sdk)
	assert.False(t, imports[0].ImportingElement.IsValid())
	assert.Equal(t, evaluation.Location{File: "/sdks/Test.Sdk/Sdk/Sdk.props", Line: 1, Column: 1}, imports[0].ImportedRoot)

	assert.Equal(t, "/src/app/common.props", imports[1].ImportedProject)
	assert.Equal(t, evaluation.Location{File: "/src/app/app.csproj", Line: 13, Column: 3}, imports[1].ImportingElement)
	assert.False(t, imports[1].IsSdkImport())

	assert.Equal(t, "/sdks/Test.Sdk/Sdk/Sdk.targets", imports[2].ImportedProject)

	require.Error(t, p.Warnings())
	assert.Contains(t, p.Warnings().Error(), "missing.props")
}

func TestEvaluateTargetsAndDeclarations(t *testing.T) {
	p := evaluate(t, evaluation.Options{})

	var names []string
	for _, tg := range p.Targets() {
		names = append(names, tg.Name)
	}
	assert.Equal(t, []string{"Custom", "Build"}, names)

	custom, ok := p.Target("custom")
	require.True(t, ok)
	assert.Equal(t, "Build", custom.DependsOnTargets)

	decl := p.Declarations()
	assert.Len(t, decl.Properties, 4)
	assert.Len(t, decl.Items, 3)
	assert.Len(t, decl.Targets, 1)

	require.Len(t, decl.Imports, 4)
	assert.True(t, decl.Imports[0].Implicit)
	assert.Equal(t, "Sdk.props", decl.Imports[0].Project)
	assert.Equal(t, "common.props", decl.Imports[1].Project)
	assert.Equal(t, "missing.props", decl.Imports[2].Project)
	assert.Equal(t, "Sdk.targets", decl.Imports[3].Project)
}

func TestEvaluateUnresolvedSdk(t *testing.T) {
	p := evaluate(t, evaluation.Options{SdkRoots: []string{"/nowhere"}})

	assert.Len(t, p.Imports(), 1)
	require.Error(t, p.Warnings())
	assert.Contains(t, p.Warnings().Error(), `sdk "Test.Sdk" could not be resolved`)
}

func TestEvaluateText(t *testing.T) {
	ev := evaluation.NewEvaluator(newFs(t), evaluation.Options{SdkRoots: []string{"/sdks"}})

	p, err := ev.EvaluateText(context.Background(), "/src/app/app.csproj", `<Project><PropertyGroup><A>unsaved</A></PropertyGroup></Project>`)
	require.NoError(t, err)

	prop, ok := p.GetProperty("A")
	require.True(t, ok)
	assert.Equal(t, "unsaved", prop.Value)
	assert.NoError(t, p.Warnings())
}

func TestEvaluateFailures(t *testing.T) {
	ev := evaluation.NewEvaluator(newFs(t), evaluation.Options{})

	_, err := ev.EvaluateText(context.Background(), "/src/app/app.csproj", `<Solution />`)
	require.ErrorIs(t, err, evaluation.ErrNotAProject)

	_, err = ev.Evaluate(context.Background(), "/src/app/none.csproj")
	require.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = ev.Evaluate(ctx, "/src/app/app.csproj")
	require.ErrorIs(t, err, context.Canceled)
}
