package providers

import (
	"context"
	"strings"

	"github.com/walteh/msbuildls/pkg/xmllocator"
)

// first matching path wins
var knownAttributes = []struct {
	path  string
	names []string
}{
	{"/Project", []string{"Sdk", "DefaultTargets", "InitialTargets", "ToolsVersion", "TreatAsLocalProperty"}},
	{"/Project/Target", []string{"Name", "DependsOnTargets", "BeforeTargets", "AfterTargets", "Condition", "Inputs", "Outputs", "Returns"}},
	{"Import", []string{"Project", "Sdk", "Condition"}},
	{"Sdk", []string{"Name", "Version"}},
	{"/Project/ItemGroup/*", []string{"Include", "Exclude", "Remove", "Update", "Condition"}},
	{"/Project/PropertyGroup/*", []string{"Condition"}},
	{"/Project/PropertyGroup", []string{"Condition", "Label"}},
	{"/Project/ItemGroup", []string{"Condition", "Label"}},
	{"/Project/ImportGroup", []string{"Condition", "Label"}},
	{"Target/CallTarget", []string{"Targets", "Condition"}},
}

// Attributes offers the attributes of known elements that are not already
// present.
type Attributes struct{}

func (Attributes) Name() string { return "attributes" }

func (Attributes) Complete(_ context.Context, req *Request) ([]Item, error) {
	for _, known := range knownAttributes {
		el, replace, padding, ok := req.Location.CanCompleteAttribute(known.path)
		if !ok {
			continue
		}

		present := map[string]bool{}
		for _, a := range el.Attributes() {
			if a != replace {
				present[strings.ToLower(a.Name)] = true
			}
		}

		items := []Item{}
		for _, name := range known.names {
			if present[strings.ToLower(name)] {
				continue
			}
			item := Item{Label: name, Kind: KindAttribute, Snippet: req.Snippets}
			if replace != nil {
				rng, err := req.Location.Locator().SpanRange(replace.NameSpan)
				if err != nil {
					return nil, err
				}
				item.Replace = rng
				item.InsertText = name
			} else {
				item.InsertText = attributeText(name, padding, req.Snippets)
			}
			items = append(items, item)
		}
		return items, nil
	}
	return nil, nil
}

func attributeText(name string, padding xmllocator.Padding, snippet bool) string {
	var b strings.Builder
	if padding.Leading() {
		b.WriteByte(' ')
	}
	b.WriteString(name)
	if snippet {
		b.WriteString(`="$1"`)
	} else {
		b.WriteString(`=""`)
	}
	if padding.Trailing() {
		b.WriteByte(' ')
	}
	return b.String()
}
