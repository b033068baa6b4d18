// Package hover builds markdown hover content for a position in a document.
package hover

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/walteh/msbuildls/pkg/document"
	"github.com/walteh/msbuildls/pkg/msbuild/evaluation"
	"github.com/walteh/msbuildls/pkg/position"
	"github.com/walteh/msbuildls/pkg/semantic"
	"github.com/walteh/msbuildls/pkg/solution"
	"github.com/walteh/msbuildls/pkg/xmllocator"
)

// maxListed caps item and import lists.
const maxListed = 10

// HoverInfo represents the information to be displayed in a hover tooltip
type HoverInfo struct {
	// Content is the markdown content to display
	Content []string
	// Range is the range in the document that this hover applies to
	Range position.Range
}

// Build prefers the semantic object at pos and falls back to the XML node.
func Build(ctx context.Context, gen *document.Generation, pos position.Position) (*HoverInfo, error) {
	logger := zerolog.Ctx(ctx)

	if gen.Semantic != nil {
		obj, err := gen.Semantic.Find(ctx, pos)
		if err != nil {
			return nil, err
		}
		if obj != nil {
			logger.Debug().Stringer("object", obj).Msg("hover on semantic object")
			return &HoverInfo{Content: []string{FormatObject(obj)}, Range: obj.XmlRange()}, nil
		}
	}

	if gen.Solution != nil {
		obj, err := gen.Solution.Find(ctx, pos)
		if err != nil {
			return nil, err
		}
		if obj != nil {
			return &HoverInfo{Content: []string{FormatSolutionObject(obj)}, Range: obj.XmlRange}, nil
		}
	}

	loc, err := gen.XML.Inspect(ctx, pos)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		return nil, nil
	}
	content := formatSyntax(loc)
	if content == "" {
		return nil, nil
	}
	return &HoverInfo{Content: []string{content}, Range: loc.Range()}, nil
}

// FormatObject renders a semantic object as markdown.
func FormatObject(obj semantic.Object) string {
	var sb strings.Builder

	switch o := obj.(type) {
	case *semantic.Target:
		fmt.Fprintf(&sb, "### Target `%s`\n", o.Name())
		writeList(&sb, "Depends on", o.DependsOn())
		writeList(&sb, "Runs before", o.Before())
		writeList(&sb, "Runs after", o.After())
		if o.Target.Condition != "" {
			fmt.Fprintf(&sb, "\nCondition: `%s`\n", o.Target.Condition)
		}
		writeDeclared(&sb, o.Declared())

	case *semantic.Property:
		fmt.Fprintf(&sb, "### Property `%s`\n\nValue: `%s`\n", o.Name(), o.Value())
		if o.Declaration.Value != o.Value() {
			fmt.Fprintf(&sb, "\nDeclared here as: `%s`\n", o.Declaration.Value)
		}
		if o.IsOverridden() {
			sb.WriteString("\nThe value is overridden")
			if o.Property.Location.IsValid() {
				fmt.Fprintf(&sb, " at `%s`", o.Property.Location)
			} else if o.Property.Global {
				sb.WriteString(" by a global property")
			}
			sb.WriteString(".\n")
		}

	case *semantic.UnusedProperty:
		fmt.Fprintf(&sb, "### Property `%s` (unused)\n\nDeclared as: `%s`\n", o.Name(), o.Declaration.Value)
		if o.Declaration.Condition != "" {
			fmt.Fprintf(&sb, "\nCondition `%s` is false.\n", o.Declaration.Condition)
		}

	case *semantic.ItemGroup:
		fmt.Fprintf(&sb, "### Item `%s`\n", o.ItemType())
		writeItems(&sb, o.Items)

	case *semantic.UnusedItemGroup:
		fmt.Fprintf(&sb, "### Item `%s` (unused)\n\nThe condition excluded these items:\n", o.ItemType())
		writeItems(&sb, o.Items)

	case *semantic.Import:
		fmt.Fprintf(&sb, "### Import `%s`\n", o.Declaration.Project)
		writeList(&sb, "Imported projects", o.ImportedProjects())

	case *semantic.SdkImport:
		fmt.Fprintf(&sb, "### SDK `%s`\n", strings.Join(o.Sdks, "`, `"))
		writeList(&sb, "Imported projects", o.ImportedProjects())

	case *semantic.UnresolvedImport:
		fmt.Fprintf(&sb, "### Import `%s` (unresolved)\n", o.Declaration.Project)
		if o.Declaration.Condition != "" {
			fmt.Fprintf(&sb, "\nCondition: `%s`\n", o.Declaration.Condition)
		}
		sb.WriteString("\nNo project file was imported.\n")

	case *semantic.UnresolvedSdkImport:
		fmt.Fprintf(&sb, "### SDK `%s` (unresolved)\n\nThe SDK could not be found in any SDK root.\n", strings.Join(o.Sdks, "`, `"))

	default:
		fmt.Fprintf(&sb, "### %s `%s`\n", obj.Kind(), obj.Name())
	}

	return strings.TrimRight(sb.String(), "\n")
}

func FormatSolutionObject(obj *solution.Object) string {
	var sb strings.Builder
	switch obj.Kind {
	case solution.KindProject:
		fmt.Fprintf(&sb, "### Project `%s`\n\nPath: `%s`\n", obj.Name, obj.Project.Path)
		if obj.Project.Type != "" {
			fmt.Fprintf(&sb, "\nType: `%s`\n", obj.Project.Type)
		}
		if obj.Project.Folder != "" {
			fmt.Fprintf(&sb, "\nFolder: `%s`\n", obj.Project.Folder)
		}
	case solution.KindFolder:
		fmt.Fprintf(&sb, "### Folder `%s`\n", obj.Name)
		names := make([]string, 0, len(obj.Folder.Projects))
		for _, p := range obj.Folder.Projects {
			names = append(names, p.DisplayName())
		}
		writeList(&sb, "Projects", names)
	case solution.KindConfigurationPlatform:
		cp := obj.ConfigurationPlatform
		fmt.Fprintf(&sb, "### %s mapping\n\n`%s` → `%s`\n", cp.Element, cp.Solution, cp.Project)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatSyntax(loc *xmllocator.Location) string {
	n := loc.Node
	switch {
	case loc.Flags.Has(xmllocator.FlagAttribute):
		return fmt.Sprintf("### Attribute `%s`\n\nValue: `%s`\n\nOn element `%s`", n.Name, n.Value, n.Path())
	case n.IsElement() && !loc.Flags.Has(xmllocator.FlagValue):
		s := fmt.Sprintf("### Element `<%s>`\n\nPath: `%s`", n.Name, n.Path())
		if !n.Valid {
			s += "\n\nThe element is incomplete."
		}
		return s
	}
	return ""
}

func writeList(sb *strings.Builder, title string, values []string) {
	if len(values) == 0 {
		return
	}
	fmt.Fprintf(sb, "\n%s:\n", title)
	for i, v := range values {
		if i == maxListed {
			fmt.Fprintf(sb, "- … and %d more\n", len(values)-maxListed)
			break
		}
		fmt.Fprintf(sb, "- `%s`\n", v)
	}
}

func writeItems(sb *strings.Builder, items []evaluation.Item) {
	includes := make([]string, 0, len(items))
	for _, it := range items {
		includes = append(includes, it.Include)
	}
	writeList(sb, "Includes", includes)
}

func writeDeclared(sb *strings.Builder, loc evaluation.Location) {
	if loc.IsValid() {
		fmt.Fprintf(sb, "\nDeclared at `%s`\n", loc)
	}
}
