package providers

import (
	"context"
	"strings"

	"github.com/walteh/msbuildls/pkg/xmltree"
)

// TargetNames offers target names inside the target-list attributes.
type TargetNames struct{}

func (TargetNames) Name() string { return "target-names" }

func (TargetNames) Complete(_ context.Context, req *Request) ([]Item, error) {
	attr, ok := req.Location.CanCompleteAttributeValue("Target", "DependsOnTargets", "BeforeTargets", "AfterTargets")
	if !ok {
		if attr, ok = req.Location.CanCompleteAttributeValue("CallTarget", "Targets"); !ok {
			return nil, nil
		}
	}

	self := ""
	if el := attr.Parent(); el != nil && el.Name == "Target" {
		self, _ = el.AttributeValue("Name")
	}

	segment := ListSegment(attr, req.Location.Offset)
	rng, err := req.Location.Locator().SpanRange(segment)
	if err != nil {
		return nil, err
	}

	items := []Item{}
	for _, name := range req.TargetNames {
		if strings.EqualFold(name, self) {
			continue
		}
		items = append(items, Item{
			Label:      name,
			Kind:       KindTarget,
			InsertText: name,
			Replace:    rng,
		})
	}
	return items, nil
}

// ListSegment is the trimmed ';'-separated entry of the attribute value
// that contains off.
func ListSegment(attr *xmltree.Node, off int) xmltree.Span {
	text := attr.Document().Text
	vs := attr.ValueSpan

	start := off
	for start > vs.Start && text[start-1] != ';' {
		start--
	}
	end := off
	for end < vs.End && text[end] != ';' {
		end++
	}
	for start < off && isBlank(text[start]) {
		start++
	}
	for end > off && isBlank(text[end-1]) {
		end--
	}
	return xmltree.Span{Start: start, End: end}
}

func isBlank(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}
