// Package evaluation is a small MSBuild evaluator. It reads a project and its
// imports through an afero filesystem and produces the evaluated properties,
// items, imports and targets together with the raw declarations of the root
// file, each tagged with the location of the element that declared it.
package evaluation

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/walteh/msbuildls/pkg/position"
)

// Location is a one-based line and column in a file. The zero Location is
// invalid and is used for constructs that have no element of their own, such
// as the imports implied by an Sdk attribute on the root element.
type Location struct {
	File   string
	Line   int
	Column int
}

func (l Location) IsValid() bool {
	return l.Line > 0 && l.Column > 0
}

// Position returns the location as a one-based position, or position.Zero
// when the location is invalid.
func (l Location) Position() position.Position {
	if !l.IsValid() {
		return position.Zero
	}
	return position.OneBased(l.Line, l.Column)
}

// InFile reports whether the location is in path, comparing paths without
// regard to case.
func (l Location) InFile(path string) bool {
	return SamePath(l.File, path)
}

func (l Location) String() string {
	if !l.IsValid() {
		return fmt.Sprintf("%s(?)", l.File)
	}
	return fmt.Sprintf("%s(%d,%d)", l.File, l.Line, l.Column)
}

// SamePath compares two file paths the way MSBuild does on case-insensitive
// filesystems.
func SamePath(a, b string) bool {
	return strings.EqualFold(filepath.Clean(a), filepath.Clean(b))
}

type Property struct {
	Name             string
	Value            string
	UnevaluatedValue string
	Location         Location
	Reserved         bool
	Global           bool
}

type Item struct {
	ItemType    string
	Include     string
	Unevaluated string
	Metadata    map[string]string
	Location    Location
}

type Target struct {
	Name             string
	DependsOnTargets string
	BeforeTargets    string
	AfterTargets     string
	Condition        string
	Location         Location
}

// ResolvedImport is one project file pulled in by an import.
type ResolvedImport struct {
	// ImportingElement is invalid for imports implied by an Sdk attribute on
	// the root element.
	ImportingElement Location
	ImportedProject  string
	ImportedRoot     Location
	Sdk              string
}

func (i ResolvedImport) IsSdkImport() bool {
	return i.Sdk != ""
}

type PropertyDeclaration struct {
	Name      string
	Value     string
	Condition string
	Location  Location
}

type ItemDeclaration struct {
	ItemType  string
	Include   string
	Exclude   string
	Remove    string
	Update    string
	Condition string
	Location  Location
}

type TargetDeclaration struct {
	Name      string
	Condition string
	Location  Location
}

type ImportDeclaration struct {
	Project   string
	Sdk       string
	Condition string
	Location  Location
	// Implicit marks imports implied by an Sdk attribute on the root element
	// or by an <Sdk> element.
	Implicit bool
}

// Declarations is the unevaluated content of the root project file.
type Declarations struct {
	Properties []PropertyDeclaration
	Items      []ItemDeclaration
	Targets    []TargetDeclaration
	Imports    []ImportDeclaration
}

// Project is the result of an evaluation.
type Project struct {
	fullPath string

	properties             map[string]Property
	items                  []Item
	itemsIgnoringCondition []Item
	imports                []ResolvedImport
	targets                []Target
	declarations           Declarations

	warnings *multierror.Error
}

func (p *Project) FullPath() string {
	return p.fullPath
}

// GetProperty looks a property up by name, ignoring case.
func (p *Project) GetProperty(name string) (Property, bool) {
	prop, ok := p.properties[strings.ToLower(name)]
	return prop, ok
}

// Properties returns every property sorted by name.
func (p *Project) Properties() []Property {
	out := make([]Property, 0, len(p.properties))
	for _, prop := range p.properties {
		out = append(out, prop)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}

// Items returns the items whose conditions all held.
func (p *Project) Items() []Item {
	return p.items
}

// ItemsIgnoringCondition returns every item that would exist if all
// conditions held.
func (p *Project) ItemsIgnoringCondition() []Item {
	return p.itemsIgnoringCondition
}

func (p *Project) ItemsOfType(itemType string) []Item {
	var out []Item
	for _, it := range p.items {
		if strings.EqualFold(it.ItemType, itemType) {
			out = append(out, it)
		}
	}
	return out
}

func (p *Project) Imports() []ResolvedImport {
	return p.imports
}

// Targets returns the final definition of every target in definition order.
func (p *Project) Targets() []Target {
	return p.targets
}

func (p *Project) Target(name string) (Target, bool) {
	for _, t := range p.targets {
		if strings.EqualFold(t.Name, name) {
			return t, true
		}
	}
	return Target{}, false
}

func (p *Project) Declarations() Declarations {
	return p.declarations
}

// Warnings returns the non-fatal problems met during evaluation, such as
// imports that could not be found, or nil.
func (p *Project) Warnings() error {
	return p.warnings.ErrorOrNil()
}
