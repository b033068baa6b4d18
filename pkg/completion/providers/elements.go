package providers

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

var topLevelElements = []struct {
	name   string
	detail string
	body   string // snippet body, empty for a self-closing element
	attrs  string
}{
	{"PropertyGroup", "Group of properties", "$0", ""},
	{"ItemGroup", "Group of items", "$0", ""},
	{"Target", "Named sequence of tasks", "$0", ` Name="$1"`},
	{"Import", "Import another project file", "", ` Project="$1"`},
	{"ImportGroup", "Group of imports", "$0", ""},
	{"ItemDefinitionGroup", "Default item metadata", "$0", ""},
	{"Choose", "Conditional groups", "$0", ""},
	{"Sdk", "Reference an SDK", "", ` Name="$1"`},
	{"UsingTask", "Register a task", "", ` TaskName="$1"`},
}

var wellKnownProperties = []string{
	"AssemblyName",
	"Authors",
	"Configuration",
	"Description",
	"GenerateDocumentationFile",
	"ImplicitUsings",
	"IsPackable",
	"LangVersion",
	"Nullable",
	"OutputPath",
	"OutputType",
	"PackageId",
	"Platform",
	"RootNamespace",
	"TargetFramework",
	"TargetFrameworks",
	"TreatWarningsAsErrors",
	"Version",
}

var wellKnownItemTypes = []string{
	"Compile",
	"Content",
	"EmbeddedResource",
	"Folder",
	"None",
	"PackageReference",
	"ProjectReference",
	"Reference",
}

// TopLevelElements offers the elements allowed directly under <Project>.
type TopLevelElements struct{}

func (TopLevelElements) Name() string { return "top-level-elements" }

func (TopLevelElements) Complete(_ context.Context, req *Request) ([]Item, error) {
	replace, ok := req.Location.CanCompleteElement("/Project")
	if !ok {
		return nil, nil
	}

	items := make([]Item, 0, len(topLevelElements))
	for _, el := range topLevelElements {
		item := Item{
			Label:   el.name,
			Kind:    KindElement,
			Detail:  el.detail,
			Replace: nodeRange(req, replace),
			Snippet: req.Snippets,
		}
		switch {
		case !req.Snippets:
			item.InsertText = fmt.Sprintf("<%s />", el.name)
		case el.body == "":
			item.InsertText = fmt.Sprintf("<%s%s />", el.name, el.attrs)
		default:
			item.InsertText = fmt.Sprintf("<%s%s>\n%s%s\n</%s>", el.name, el.attrs, req.Indent, el.body, el.name)
		}
		items = append(items, item)
	}
	return items, nil
}

// PropertyElements offers property names inside a <PropertyGroup>.
type PropertyElements struct{}

func (PropertyElements) Name() string { return "property-elements" }

func (PropertyElements) Complete(_ context.Context, req *Request) ([]Item, error) {
	replace, ok := req.Location.CanCompleteElement("/Project/PropertyGroup")
	if !ok {
		return nil, nil
	}

	values := map[string]string{}
	var names []string
	if req.Project != nil {
		for _, p := range req.Project.Properties() {
			if p.Reserved || p.Global {
				continue
			}
			names = append(names, p.Name)
			values[strings.ToLower(p.Name)] = p.Value
		}
	}
	if req.WellKnownProperties {
		names = append(names, wellKnownProperties...)
	}
	names = dedupe(names)
	sort.Strings(names)

	items := make([]Item, 0, len(names))
	for _, name := range names {
		item := Item{
			Label:   name,
			Kind:    KindProperty,
			Replace: nodeRange(req, replace),
			Snippet: req.Snippets,
		}
		if v, ok := values[strings.ToLower(name)]; ok {
			item.Detail = fmt.Sprintf("Current value: %q", v)
		}
		if req.Snippets {
			item.InsertText = fmt.Sprintf("<%s>$0</%s>", name, name)
		} else {
			item.InsertText = fmt.Sprintf("<%s></%s>", name, name)
		}
		items = append(items, item)
	}
	return items, nil
}

// ItemElements offers item types inside an <ItemGroup>.
type ItemElements struct{}

func (ItemElements) Name() string { return "item-elements" }

func (ItemElements) Complete(_ context.Context, req *Request) ([]Item, error) {
	replace, ok := req.Location.CanCompleteElement("/Project/ItemGroup")
	if !ok {
		return nil, nil
	}

	counts := map[string]int{}
	var types []string
	if req.Project != nil {
		for _, it := range req.Project.ItemsIgnoringCondition() {
			types = append(types, it.ItemType)
			counts[strings.ToLower(it.ItemType)]++
		}
	}
	types = append(types, wellKnownItemTypes...)
	types = dedupe(types)
	sort.Strings(types)

	items := make([]Item, 0, len(types))
	for _, t := range types {
		item := Item{
			Label:   t,
			Kind:    KindItem,
			Replace: nodeRange(req, replace),
			Snippet: req.Snippets,
		}
		if n := counts[strings.ToLower(t)]; n > 0 {
			item.Detail = fmt.Sprintf("%d item(s) in this project", n)
		}
		if req.Snippets {
			item.InsertText = fmt.Sprintf(`<%s Include="$1" />`, t)
		} else {
			item.InsertText = fmt.Sprintf(`<%s Include="" />`, t)
		}
		items = append(items, item)
	}
	return items, nil
}
