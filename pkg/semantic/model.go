// Package semantic maps evaluated MSBuild constructs (targets, properties,
// items, imports) back onto the XML that declared them.
package semantic

import (
	"fmt"
	"strings"

	"github.com/walteh/msbuildls/pkg/msbuild/evaluation"
	"github.com/walteh/msbuildls/pkg/position"
	"github.com/walteh/msbuildls/pkg/xmltree"
)

type Kind uint8

const (
	KindTarget Kind = iota + 1
	KindProperty
	KindUnusedProperty
	KindItemGroup
	KindUnusedItemGroup
	KindImport
	KindSdkImport
	KindUnresolvedImport
	KindUnresolvedSdkImport
)

func (k Kind) String() string {
	switch k {
	case KindTarget:
		return "Target"
	case KindProperty:
		return "Property"
	case KindUnusedProperty:
		return "UnusedProperty"
	case KindItemGroup:
		return "ItemGroup"
	case KindUnusedItemGroup:
		return "UnusedItemGroup"
	case KindImport:
		return "Import"
	case KindSdkImport:
		return "SdkImport"
	case KindUnresolvedImport:
		return "UnresolvedImport"
	case KindUnresolvedSdkImport:
		return "UnresolvedSdkImport"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Object is one semantic construct anchored to the XML node that declares it.
// The set of implementations is closed.
type Object interface {
	Name() string
	Kind() Kind
	XmlRange() position.Range
	Xml() *xmltree.Node
	String() string

	// used objects take part in the final build; weight breaks ties between
	// objects competing for one start position
	rank() (used bool, weight int)
	// source identifies the evaluated construct behind the object
	source() string
}

type base struct {
	name string
	node *xmltree.Node
	rng  position.Range
}

func (b *base) Name() string             { return b.name }
func (b *base) Xml() *xmltree.Node       { return b.node }
func (b *base) XmlRange() position.Range { return b.rng }

func describe(o Object) string {
	return fmt.Sprintf("%s %q %s", o.Kind(), o.Name(), o.XmlRange())
}

type Target struct {
	base
	Target evaluation.Target
}

func (*Target) Kind() Kind                      { return KindTarget }
func (t *Target) String() string                { return describe(t) }
func (t *Target) rank() (bool, int)             { return true, 1 }
func (t *Target) source() string                { return "target:" + t.Target.Location.String() }
func (t *Target) DependsOn() []string           { return splitNames(t.Target.DependsOnTargets) }
func (t *Target) Before() []string              { return splitNames(t.Target.BeforeTargets) }
func (t *Target) After() []string               { return splitNames(t.Target.AfterTargets) }
func (t *Target) Declared() evaluation.Location { return t.Target.Location }

// Property is a property declaration whose name has a value in the
// evaluated project.
type Property struct {
	base
	Property    evaluation.Property
	Declaration evaluation.PropertyDeclaration
}

func (*Property) Kind() Kind          { return KindProperty }
func (p *Property) String() string    { return describe(p) }
func (p *Property) rank() (bool, int) { return true, 1 }
func (p *Property) source() string    { return "property:" + p.Declaration.Location.String() }

// Value is the final evaluated value of the property.
func (p *Property) Value() string { return p.Property.Value }

// IsOverridden reports whether the final value came from another declaration.
func (p *Property) IsOverridden() bool {
	return p.Property.Location != p.Declaration.Location
}

// UnusedProperty is a property declaration that did not contribute a value.
type UnusedProperty struct {
	base
	Declaration evaluation.PropertyDeclaration
}

func (*UnusedProperty) Kind() Kind          { return KindUnusedProperty }
func (p *UnusedProperty) String() string    { return describe(p) }
func (p *UnusedProperty) rank() (bool, int) { return false, 0 }
func (p *UnusedProperty) source() string    { return "property:" + p.Declaration.Location.String() }

// ItemGroup is an item element and the items it produced.
type ItemGroup struct {
	base
	Items []evaluation.Item
}

func (*ItemGroup) Kind() Kind          { return KindItemGroup }
func (g *ItemGroup) String() string    { return describe(g) }
func (g *ItemGroup) rank() (bool, int) { return true, len(g.Items) }
func (g *ItemGroup) source() string    { return "item:" + itemsSource(g.Items) }
func (g *ItemGroup) ItemType() string  { return g.name }

// Includes lists the evaluated includes of the group's items.
func (g *ItemGroup) Includes() []string { return includes(g.Items) }

// UnusedItemGroup is an item element whose items were all excluded by a
// condition.
type UnusedItemGroup struct {
	base
	Items []evaluation.Item
}

func (*UnusedItemGroup) Kind() Kind           { return KindUnusedItemGroup }
func (g *UnusedItemGroup) String() string     { return describe(g) }
func (g *UnusedItemGroup) rank() (bool, int)  { return false, len(g.Items) }
func (g *UnusedItemGroup) source() string     { return "item:" + itemsSource(g.Items) }
func (g *UnusedItemGroup) ItemType() string   { return g.name }
func (g *UnusedItemGroup) Includes() []string { return includes(g.Items) }

// Import is an <Import> element and the project files it pulled in.
type Import struct {
	base
	Declaration evaluation.ImportDeclaration
	Imports     []evaluation.ResolvedImport
}

func (*Import) Kind() Kind          { return KindImport }
func (i *Import) String() string    { return describe(i) }
func (i *Import) rank() (bool, int) { return true, len(i.Imports) }
func (i *Import) source() string    { return "import:" + i.Declaration.Location.String() }

func (i *Import) ImportedProjects() []string { return importedProjects(i.Imports) }

// SdkImport anchors the imports of one or more SDKs on the attribute or
// element that names them.
type SdkImport struct {
	base
	Sdks    []string
	Imports []evaluation.ResolvedImport
}

func (*SdkImport) Kind() Kind          { return KindSdkImport }
func (i *SdkImport) String() string    { return describe(i) }
func (i *SdkImport) rank() (bool, int) { return true, len(i.Imports) }
func (i *SdkImport) source() string    { return "sdk:" + strings.Join(i.Sdks, ";") }

func (i *SdkImport) ImportedProjects() []string { return importedProjects(i.Imports) }

// UnresolvedImport is an <Import> whose condition was false or whose project
// could not be found.
type UnresolvedImport struct {
	base
	Declaration evaluation.ImportDeclaration
}

func (*UnresolvedImport) Kind() Kind          { return KindUnresolvedImport }
func (i *UnresolvedImport) String() string    { return describe(i) }
func (i *UnresolvedImport) rank() (bool, int) { return false, 0 }
func (i *UnresolvedImport) source() string    { return "import:" + i.Declaration.Location.String() }

type UnresolvedSdkImport struct {
	base
	Sdks []string
}

func (*UnresolvedSdkImport) Kind() Kind          { return KindUnresolvedSdkImport }
func (i *UnresolvedSdkImport) String() string    { return describe(i) }
func (i *UnresolvedSdkImport) rank() (bool, int) { return false, 0 }
func (i *UnresolvedSdkImport) source() string    { return "sdk:" + strings.Join(i.Sdks, ";") }

func splitNames(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ";") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func includes(items []evaluation.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Include
	}
	return out
}

func itemsSource(items []evaluation.Item) string {
	if len(items) == 0 {
		return ""
	}
	return items[0].Location.String()
}

func importedProjects(imports []evaluation.ResolvedImport) []string {
	out := make([]string, len(imports))
	for i, imp := range imports {
		out[i] = imp.ImportedProject
	}
	return out
}
