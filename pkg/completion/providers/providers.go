// Package providers holds the completion sources. Each one looks at the XML
// location under the cursor and decides on its own whether it applies.
package providers

import (
	"context"
	"strings"

	"github.com/walteh/msbuildls/pkg/msbuild/evaluation"
	"github.com/walteh/msbuildls/pkg/position"
	"github.com/walteh/msbuildls/pkg/xmllocator"
	"github.com/walteh/msbuildls/pkg/xmltree"
)

type ItemKind uint8

const (
	KindElement ItemKind = iota + 1
	KindProperty
	KindItem
	KindAttribute
	KindTarget
)

// Request is what a provider sees of a completion request.
type Request struct {
	Location *xmllocator.Location

	// nil in degraded mode
	Project     *evaluation.Project
	TargetNames []string

	// one level of indentation for multi-line snippets
	Indent              string
	Snippets            bool
	WellKnownProperties bool
}

// Item is a single completion suggestion. When Replace is the zero range
// the text is inserted at the cursor.
type Item struct {
	Label         string
	Kind          ItemKind
	Detail        string
	Documentation string
	InsertText    string
	Snippet       bool
	Replace       position.Range
}

type Provider interface {
	Name() string
	Complete(ctx context.Context, req *Request) ([]Item, error)
}

func nodeRange(req *Request, n *xmltree.Node) position.Range {
	if n == nil {
		return position.Range{}
	}
	return req.Location.Locator().NodeRange(n)
}

// dedupe keeps the first of each name, ignoring case.
func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		key := strings.ToLower(n)
		if n == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, n)
	}
	return out
}
