package diagnostic_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/msbuildls/pkg/diagnostic"
	"github.com/walteh/msbuildls/pkg/document"
	"github.com/walteh/msbuildls/pkg/msbuild/evaluation"
)

func generate(t *testing.T, text string) *diagnostic.Diagnostics {
	t.Helper()
	ws := document.NewWorkspace(afero.NewMemMapFs(), evaluation.Options{}, zerolog.Nop())
	_, gen, err := ws.Open(context.Background(), "/src/app.csproj", 1, text)
	require.NoError(t, err)

	diags, err := diagnostic.Generate(context.Background(), gen)
	require.NoError(t, err)
	return diags
}

func TestUnresolvedAndUnused(t *testing.T) {
	diags := generate(t, `<Project>
  <Import Project="missing.props" />
  <Import Project="other.props" Condition="false" />
  <PropertyGroup>
    <Skip Condition="false">1</Skip>
  </PropertyGroup>
  <ItemGroup>
    <None Include="x" Condition="false" />
  </ItemGroup>
</Project>
`)

	assert.Empty(t, diags.Errors)

	require.Len(t, diags.Warnings, 1)
	assert.Equal(t, `Import "missing.props" did not match any project file`, diags.Warnings[0].Message)
	assert.Equal(t, 2, diags.Warnings[0].Range.Start.Line)
	assert.Equal(t, diagnostic.Warning, diags.Warnings[0].Severity)

	require.Len(t, diags.Hints, 3)
	all := diags.All()
	require.Len(t, all, 4)
	lines := []int{}
	for _, d := range all {
		lines = append(lines, d.Range.Start.Line)
	}
	assert.Equal(t, []int{2, 3, 5, 8}, lines)
	assert.Equal(t, `Property "Skip" is not set: condition is false`, all[2].Message)
	assert.Equal(t, "None items are not included: condition is false", all[3].Message)
}

func TestUnresolvedSdk(t *testing.T) {
	diags := generate(t, `<Project Sdk="Nope"></Project>`)

	require.Len(t, diags.Warnings, 1)
	assert.Equal(t, `SDK "Nope" could not be resolved`, diags.Warnings[0].Message)
	assert.Equal(t, 1, diags.Warnings[0].Range.Start.Line)
}

func TestEvaluationFailure(t *testing.T) {
	diags := generate(t, `<Foo />`)

	require.Len(t, diags.Errors, 1)
	assert.Contains(t, diags.Errors[0].Message, "Could not evaluate project")
	assert.Equal(t, 1, diags.Errors[0].Range.Start.Line)
	assert.Equal(t, 1, diags.Errors[0].Range.Start.Column)
	assert.Empty(t, diags.Warnings)
	assert.Empty(t, diags.Hints)
}

func TestInvalidMarkup(t *testing.T) {
	diags := generate(t, "<Project>\n  <Foo\n</Project>")

	require.NotEmpty(t, diags.Errors)
	found := false
	for _, d := range diags.Errors {
		if d.Range.Start.Line == 2 {
			found = true
			assert.Contains(t, d.Message, "Foo")
			assert.Equal(t, diagnostic.Error, d.Severity)
		}
	}
	assert.True(t, found, "no error on the unfinished element: %v", diags.Errors)
}

func TestGenerateNil(t *testing.T) {
	_, err := diagnostic.Generate(context.Background(), nil)
	assert.Error(t, err)
}
