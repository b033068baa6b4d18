package solution

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/walteh/msbuildls/pkg/position"
	"github.com/walteh/msbuildls/pkg/rangeindex"
	"github.com/walteh/msbuildls/pkg/xmllocator"
	"github.com/walteh/msbuildls/pkg/xmltree"
	"gitlab.com/tozd/go/errors"
)

type Kind uint8

const (
	KindProject Kind = iota + 1
	KindFolder
	KindConfigurationPlatform
)

func (k Kind) String() string {
	switch k {
	case KindProject:
		return "Project"
	case KindFolder:
		return "Folder"
	case KindConfigurationPlatform:
		return "ConfigurationPlatform"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Object is a solution entity anchored to its element.
type Object struct {
	Kind     Kind
	Name     string
	XmlRange position.Range
	Xml      *xmltree.Node

	// exactly one of these is set, matching Kind
	Project               *Project
	Folder                *Folder
	ConfigurationPlatform *ConfigurationPlatform
}

func (o *Object) String() string {
	return fmt.Sprintf("%s %q %s", o.Kind, o.Name, o.XmlRange)
}

type Locator struct {
	solution *Solution
	xml      *xmllocator.Locator
	index    *rangeindex.Index[*Object]
	logger   zerolog.Logger
}

// NewLocator indexes the entities of sol, which must have been read from the
// document behind xml.
func NewLocator(ctx context.Context, sol *Solution, xml *xmllocator.Locator, logger zerolog.Logger) (*Locator, error) {
	if sol == nil || xml == nil {
		return nil, errors.Errorf("%w: nil solution or xml locator", xmllocator.ErrInvalidArgument)
	}

	l := &Locator{
		solution: sol,
		xml:      xml,
		index:    rangeindex.New[*Object](),
		logger:   logger.With().Str("component", "solution-locator").Logger(),
	}

	for _, f := range sol.Folders {
		l.add(&Object{Kind: KindFolder, Name: f.Name, Xml: f.node, Folder: f})
	}
	for _, p := range sol.Projects {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		l.add(&Object{Kind: KindProject, Name: p.DisplayName(), Xml: p.node, Project: p})
		for _, cp := range p.Configurations {
			l.add(&Object{Kind: KindConfigurationPlatform, Name: cp.Element + " " + cp.Solution, Xml: cp.node, ConfigurationPlatform: cp})
		}
	}
	l.index.Sort()

	return l, nil
}

func (l *Locator) add(obj *Object) {
	if obj.Xml == nil || obj.Xml.Document() != l.xml.Document() {
		l.logger.Warn().Stringer("kind", obj.Kind).Str("name", obj.Name).Msg("solution entity is not from this document, skipping")
		return
	}
	obj.XmlRange = l.xml.NodeRange(obj.Xml)

	existing, _, added := l.index.Add(obj.XmlRange, obj)
	if !added {
		l.logger.Warn().
			Stringer("kept", existing).
			Stringer("dropped", obj).
			Bool("same_source", existing.Xml == obj.Xml).
			Msg("two solution entities start at the same position")
	}
}

func (l *Locator) Solution() *Solution {
	return l.solution
}

// Find returns the innermost entity whose range contains pos, or nil.
func (l *Locator) Find(ctx context.Context, pos position.Position) (*Object, error) {
	if pos.IsZero() {
		return nil, errors.Errorf("%w: zero position", xmllocator.ErrInvalidArgument)
	}
	obj, _, ok, err := l.index.Find(ctx, pos)
	if err != nil || !ok {
		return nil, err
	}
	return obj, nil
}

func (l *Locator) AllObjects() []*Object {
	return l.index.All()
}
