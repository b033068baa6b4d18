package lsp

import (
	"strings"

	"github.com/walteh/msbuildls/pkg/diagnostic"
	"github.com/walteh/msbuildls/pkg/msbuild/evaluation"
	"github.com/walteh/msbuildls/pkg/position"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
	"gitlab.com/tozd/go/errors"
)

// pathOf converts a file URI to a filesystem path. Other schemes are
// rejected.
func pathOf(u protocol.DocumentURI) (string, error) {
	if !strings.HasPrefix(string(u), uri.FileScheme+"://") {
		return "", errors.Errorf("unsupported document uri %q", u)
	}
	return uri.URI(u).Filename(), nil
}

func uriOf(path string) protocol.DocumentURI {
	return protocol.DocumentURI(uri.File(path))
}

func toPosition(p protocol.Position) position.Position {
	return position.ZeroBased(int(p.Line), int(p.Character)).ToOneBased()
}

func toProtocolPosition(p position.Position) protocol.Position {
	p = p.ToZeroBased()
	if p.Line < 0 || p.Column < 0 {
		return protocol.Position{}
	}
	return protocol.Position{Line: uint32(p.Line), Character: uint32(p.Column)}
}

func toProtocolRange(r position.Range) protocol.Range {
	return protocol.Range{
		Start: toProtocolPosition(r.Start),
		End:   toProtocolPosition(r.End),
	}
}

// toProtocolLocation points at the start of an evaluated location, or at the
// top of its file when the location has no position of its own.
func toProtocolLocation(loc evaluation.Location) protocol.Location {
	var at protocol.Position
	if loc.IsValid() {
		at = toProtocolPosition(loc.Position())
	}
	return protocol.Location{
		URI:   uriOf(loc.File),
		Range: protocol.Range{Start: at, End: at},
	}
}

func toProtocolDiagnostic(d diagnostic.Diagnostic) protocol.Diagnostic {
	return protocol.Diagnostic{
		Range:    toProtocolRange(d.Range),
		Severity: toProtocolSeverity(d.Severity),
		Source:   diagnostic.Source,
		Message:  d.Message,
	}
}

func toProtocolSeverity(s diagnostic.DiagnosticSeverity) protocol.DiagnosticSeverity {
	switch s {
	case diagnostic.Error:
		return protocol.DiagnosticSeverityError
	case diagnostic.Warning:
		return protocol.DiagnosticSeverityWarning
	case diagnostic.Info:
		return protocol.DiagnosticSeverityInformation
	default:
		return protocol.DiagnosticSeverityHint
	}
}
