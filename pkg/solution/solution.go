// Package solution reads XML solution files (.slnx) and locates their
// entities by position.
package solution

import (
	"strings"

	"github.com/walteh/msbuildls/pkg/xmltree"
	"gitlab.com/tozd/go/errors"
)

var ErrNotASolution = errors.Base("not a solution")

type Solution struct {
	Folders    []*Folder
	Projects   []*Project
	Platforms  []string
	BuildTypes []string
}

type Folder struct {
	Name     string
	Projects []*Project

	node *xmltree.Node
}

type Project struct {
	Path string
	Type string
	// Folder is the name of the containing solution folder, if any.
	Folder         string
	Configurations []*ConfigurationPlatform

	node *xmltree.Node
}

// DisplayName is the project file name without directory or extension.
func (p *Project) DisplayName() string {
	name := p.Path
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		name = name[:i]
	}
	return name
}

// ConfigurationPlatform maps a solution configuration or platform onto the
// one a project builds with.
type ConfigurationPlatform struct {
	// Element is Platform, BuildType, Build or Deploy.
	Element  string
	Solution string
	Project  string

	node *xmltree.Node
}

// FromXML reads the solution model from a parsed .slnx document.
func FromXML(doc *xmltree.Document) (*Solution, error) {
	if doc == nil {
		return nil, errors.New("nil document")
	}
	root := doc.Root()
	if root == nil || root.Name != "Solution" {
		return nil, errors.WithStack(ErrNotASolution)
	}

	s := &Solution{}
	for _, el := range root.ChildElements() {
		switch el.Name {
		case "Configurations":
			for _, c := range el.ChildElements() {
				name, _ := c.AttributeValue("Name")
				switch c.Name {
				case "Platform":
					s.Platforms = append(s.Platforms, name)
				case "BuildType":
					s.BuildTypes = append(s.BuildTypes, name)
				}
			}
		case "Folder":
			s.readFolder(el)
		case "Project":
			s.Projects = append(s.Projects, readProject(el, ""))
		}
	}
	return s, nil
}

func (s *Solution) readFolder(el *xmltree.Node) {
	name, _ := el.AttributeValue("Name")
	f := &Folder{Name: name, node: el}
	s.Folders = append(s.Folders, f)

	for _, c := range el.ChildElements() {
		if c.Name != "Project" {
			continue
		}
		p := readProject(c, name)
		f.Projects = append(f.Projects, p)
		s.Projects = append(s.Projects, p)
	}
}

func readProject(el *xmltree.Node, folder string) *Project {
	p := &Project{Folder: folder, node: el}
	p.Path, _ = el.AttributeValue("Path")
	p.Type, _ = el.AttributeValue("Type")

	for _, c := range el.ChildElements() {
		switch c.Name {
		case "Platform", "BuildType", "Build", "Deploy":
			cp := &ConfigurationPlatform{Element: c.Name, node: c}
			cp.Solution, _ = c.AttributeValue("Solution")
			cp.Project, _ = c.AttributeValue("Project")
			p.Configurations = append(p.Configurations, cp)
		}
	}
	return p
}
