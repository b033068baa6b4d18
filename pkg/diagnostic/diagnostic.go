// Package diagnostic derives problems from a document generation.
package diagnostic

import (
	"context"
	"fmt"
	"sort"

	"github.com/walteh/msbuildls/pkg/document"
	"github.com/walteh/msbuildls/pkg/position"
	"github.com/walteh/msbuildls/pkg/semantic"
	"github.com/walteh/msbuildls/pkg/xmltree"
	"gitlab.com/tozd/go/errors"
)

const Source = "msbuildls"

// DiagnosticSeverity represents the severity level of a diagnostic
type DiagnosticSeverity string

const (
	Error   DiagnosticSeverity = "error"
	Warning DiagnosticSeverity = "warning"
	Info    DiagnosticSeverity = "info"
	Hint    DiagnosticSeverity = "hint"
)

type Diagnostic struct {
	Message  string
	Range    position.Range
	Severity DiagnosticSeverity
}

// Diagnostics groups the diagnostics of one document by severity.
type Diagnostics struct {
	Errors   []Diagnostic
	Warnings []Diagnostic
	Hints    []Diagnostic
}

// All returns every diagnostic ordered by position.
func (d *Diagnostics) All() []Diagnostic {
	all := make([]Diagnostic, 0, len(d.Errors)+len(d.Warnings)+len(d.Hints))
	all = append(all, d.Errors...)
	all = append(all, d.Warnings...)
	all = append(all, d.Hints...)
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Range.Compare(all[j].Range) < 0
	})
	return all
}

var origin = position.NewRange(position.OneBased(1, 1), position.OneBased(1, 1))

// Generate reports invalid markup, evaluation failure, and the declarations
// that did not take part in the build.
func Generate(ctx context.Context, gen *document.Generation) (*Diagnostics, error) {
	if gen == nil {
		return nil, errors.Errorf("generation is nil")
	}

	diagnostics := &Diagnostics{
		Errors:   make([]Diagnostic, 0),
		Warnings: make([]Diagnostic, 0),
		Hints:    make([]Diagnostic, 0),
	}

	for _, n := range gen.XML.AllNodes() {
		if n.Valid {
			continue
		}
		diagnostics.Errors = append(diagnostics.Errors, Diagnostic{
			Message:  invalidMessage(n),
			Range:    gen.XML.NodeRange(n),
			Severity: Error,
		})
	}

	if gen.EvaluationErr != nil {
		diagnostics.Errors = append(diagnostics.Errors, Diagnostic{
			Message:  fmt.Sprintf("Could not evaluate %s: %v", gen.Kind, gen.EvaluationErr),
			Range:    origin,
			Severity: Error,
		})
	}

	if gen.Semantic == nil {
		return diagnostics, nil
	}

	for _, obj := range gen.Semantic.AllObjects() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		switch o := obj.(type) {
		case *semantic.UnresolvedImport:
			if o.Declaration.Condition != "" {
				diagnostics.Hints = append(diagnostics.Hints, Diagnostic{
					Message:  fmt.Sprintf("Import %q is skipped: condition is false", o.Declaration.Project),
					Range:    o.XmlRange(),
					Severity: Hint,
				})
				continue
			}
			diagnostics.Warnings = append(diagnostics.Warnings, Diagnostic{
				Message:  fmt.Sprintf("Import %q did not match any project file", o.Declaration.Project),
				Range:    o.XmlRange(),
				Severity: Warning,
			})
		case *semantic.UnresolvedSdkImport:
			for _, sdk := range o.Sdks {
				diagnostics.Warnings = append(diagnostics.Warnings, Diagnostic{
					Message:  fmt.Sprintf("SDK %q could not be resolved", sdk),
					Range:    o.XmlRange(),
					Severity: Warning,
				})
			}
		case *semantic.UnusedProperty:
			diagnostics.Hints = append(diagnostics.Hints, Diagnostic{
				Message:  fmt.Sprintf("Property %q is not set: condition is false", o.Name()),
				Range:    o.XmlRange(),
				Severity: Hint,
			})
		case *semantic.UnusedItemGroup:
			diagnostics.Hints = append(diagnostics.Hints, Diagnostic{
				Message:  fmt.Sprintf("%s items are not included: condition is false", o.ItemType()),
				Range:    o.XmlRange(),
				Severity: Hint,
			})
		}
	}

	return diagnostics, nil
}

func invalidMessage(n *xmltree.Node) string {
	switch n.Kind {
	case xmltree.KindAttribute:
		return fmt.Sprintf("Attribute %q is incomplete", n.Name)
	case xmltree.KindInvalidElement:
		if n.Name == "" {
			return "Element name expected"
		}
		return fmt.Sprintf("Element <%s> is incomplete", n.Name)
	default:
		return fmt.Sprintf("Element <%s> is not closed", n.Name)
	}
}
