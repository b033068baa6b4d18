package lsp

import (
	"context"
	"strings"

	"github.com/sourcegraph/jsonrpc2"
	"github.com/walteh/msbuildls/pkg/completion/providers"
	"github.com/walteh/msbuildls/pkg/document"
	"github.com/walteh/msbuildls/pkg/msbuild/evaluation"
	"github.com/walteh/msbuildls/pkg/semantic"
	"github.com/walteh/msbuildls/pkg/solution"
	"github.com/walteh/msbuildls/pkg/xmllocator"
	"github.com/walteh/msbuildls/pkg/xmltree"
	"go.lsp.dev/protocol"
)

func (s *Server) handleTextDocumentDocumentSymbol(ctx context.Context, req *jsonrpc2.Request) (any, error) {
	var params protocol.DocumentSymbolParams
	if err := decode(req, &params); err != nil {
		return nil, err
	}
	gen, err := s.current(ctx, params.TextDocument)
	if err != nil {
		return nil, err
	}
	return DocumentSymbols(gen), nil
}

// DocumentSymbols lists the semantic objects of a generation in document
// order. Without a semantic layer it outlines the element tree instead.
func DocumentSymbols(gen *document.Generation) []protocol.DocumentSymbol {
	out := []protocol.DocumentSymbol{}
	switch {
	case gen.Semantic != nil:
		for _, obj := range gen.Semantic.AllObjects() {
			out = append(out, symbol(obj.Name(), obj.Kind().String(), semanticSymbolKind(obj.Kind()), toProtocolRange(obj.XmlRange())))
		}
	case gen.Solution != nil:
		for _, obj := range gen.Solution.AllObjects() {
			out = append(out, symbol(obj.Name, obj.Kind.String(), solutionSymbolKind(obj.Kind), toProtocolRange(obj.XmlRange)))
		}
	default:
		for _, root := range gen.Syntax.Roots() {
			if sym, ok := outline(gen.XML, root); ok {
				out = append(out, sym)
			}
		}
	}
	return out
}

func symbol(name, detail string, kind protocol.SymbolKind, rng protocol.Range) protocol.DocumentSymbol {
	if name == "" {
		name = detail
	}
	return protocol.DocumentSymbol{
		Name:           name,
		Detail:         detail,
		Kind:           kind,
		Range:          rng,
		SelectionRange: rng,
	}
}

func outline(xml *xmllocator.Locator, n *xmltree.Node) (protocol.DocumentSymbol, bool) {
	if !n.IsElement() || n.Name == "" {
		return protocol.DocumentSymbol{}, false
	}
	sym := symbol(n.Name, "", protocol.SymbolKindObject, toProtocolRange(xml.NodeRange(n)))
	if name, ok := n.AttributeValue("Name"); ok && name != "" {
		sym.Detail = name
	}
	for _, c := range n.ChildElements() {
		if child, ok := outline(xml, c); ok {
			sym.Children = append(sym.Children, child)
		}
	}
	return sym, true
}

func semanticSymbolKind(k semantic.Kind) protocol.SymbolKind {
	switch k {
	case semantic.KindTarget:
		return protocol.SymbolKindFunction
	case semantic.KindProperty, semantic.KindUnusedProperty:
		return protocol.SymbolKindProperty
	case semantic.KindItemGroup, semantic.KindUnusedItemGroup:
		return protocol.SymbolKindArray
	case semantic.KindImport, semantic.KindUnresolvedImport:
		return protocol.SymbolKindModule
	case semantic.KindSdkImport, semantic.KindUnresolvedSdkImport:
		return protocol.SymbolKindPackage
	}
	return protocol.SymbolKindObject
}

func solutionSymbolKind(k solution.Kind) protocol.SymbolKind {
	switch k {
	case solution.KindProject:
		return protocol.SymbolKindFile
	case solution.KindFolder:
		return protocol.SymbolKindNamespace
	case solution.KindConfigurationPlatform:
		return protocol.SymbolKindKey
	}
	return protocol.SymbolKindObject
}

func (s *Server) handleTextDocumentDefinition(ctx context.Context, req *jsonrpc2.Request) (any, error) {
	var params protocol.DefinitionParams
	if err := decode(req, &params); err != nil {
		return nil, err
	}
	gen, err := s.current(ctx, params.TextDocument)
	if err != nil {
		return nil, err
	}
	return Definitions(ctx, gen, params.Position)
}

// Definitions resolves what the construct at pos refers to: the files an
// import pulled in, the declaration a property's final value came from, or
// the target named in a target list.
func Definitions(ctx context.Context, gen *document.Generation, at protocol.Position) ([]protocol.Location, error) {
	out := []protocol.Location{}
	if gen.Semantic == nil || gen.Project == nil {
		return out, nil
	}
	pos := toPosition(at)

	loc, err := gen.XML.Inspect(ctx, pos)
	if err != nil {
		return nil, err
	}
	if loc != nil {
		if name, ok := targetReference(loc); ok {
			if t, ok := gen.Project.Target(name); ok {
				out = append(out, toProtocolLocation(t.Location))
			}
			return out, nil
		}
	}

	obj, err := gen.Semantic.Find(ctx, pos)
	if err != nil || obj == nil {
		return out, err
	}

	switch o := obj.(type) {
	case *semantic.Import:
		out = append(out, importLocations(o.Imports)...)
	case *semantic.SdkImport:
		out = append(out, importLocations(o.Imports)...)
	case *semantic.Property:
		if o.IsOverridden() && o.Property.Location.File != "" {
			out = append(out, toProtocolLocation(o.Property.Location))
		}
	case *semantic.Target:
		// a later target with the same name replaces this one
		if t, ok := gen.Project.Target(o.Name()); ok && t.Location != o.Declared() {
			out = append(out, toProtocolLocation(t.Location))
		}
	}
	return out, nil
}

func importLocations(imports []evaluation.ResolvedImport) []protocol.Location {
	out := make([]protocol.Location, 0, len(imports))
	for _, imp := range imports {
		root := imp.ImportedRoot
		if root.File == "" {
			root.File = imp.ImportedProject
		}
		out = append(out, toProtocolLocation(root))
	}
	return out
}

// targetReference is the target name under the cursor in a target list
// attribute.
func targetReference(loc *xmllocator.Location) (string, bool) {
	attr, ok := loc.IsAttributeValue()
	if !ok {
		return "", false
	}
	el := attr.Parent()
	if el == nil {
		return "", false
	}
	switch {
	case el.Name == "Target" && (strings.EqualFold(attr.Name, "DependsOnTargets") ||
		strings.EqualFold(attr.Name, "BeforeTargets") ||
		strings.EqualFold(attr.Name, "AfterTargets")):
	case el.Name == "CallTarget" && strings.EqualFold(attr.Name, "Targets"):
	default:
		return "", false
	}

	span := providers.ListSegment(attr, loc.Offset)
	name := strings.TrimSpace(attr.Document().Text[span.Start:span.End])
	return name, name != ""
}
