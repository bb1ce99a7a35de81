package model

import (
	"slices"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/tenantmap/pkg/domain/types"
	"gopkg.in/yaml.v3"
)

// TenantSource is one raw tenant definition as written in a sources file
type TenantSource struct {
	Tenant *TenantSpec `yaml:"tenant"`
}

// TenantsDirectory is the directory of a sources repository holding
// one subdirectory per tenant
const TenantsDirectory = "tenants"

// TenantSpec is the tenant object of a TenantSource. Name is nil when the
// key is absent; an empty name is a valid name.
type TenantSpec struct {
	Name   *string     `yaml:"name"`
	Source *SourceSpec `yaml:"source"`
}

// SourceSpec lists the projects of a tenant per connection. Only the github
// connection is read; other connections are ignored. The github node is kept
// undecoded until the tenant is folded.
type SourceSpec struct {
	GitHub *yaml.Node `yaml:"github"`
}

// HasGitHub reports whether the github connection is present and not empty
func (s *SourceSpec) HasGitHub() bool {
	if s == nil || s.GitHub == nil {
		return false
	}
	node := resolveAlias(s.GitHub)
	switch node.Kind {
	case yaml.MappingNode, yaml.SequenceNode:
		return len(node.Content) > 0
	case yaml.ScalarNode:
		return node.ShortTag() != "!!null" && node.Value != ""
	default:
		return false
	}
}

// GitHubProjects decodes the projects of the github connection per category.
// A category with a null value has no projects.
func (s *SourceSpec) GitHubProjects() (map[string]ProjectList, error) {
	if !s.HasGitHub() {
		return map[string]ProjectList{}, nil
	}

	node := resolveAlias(s.GitHub)
	if node.Kind != yaml.MappingNode {
		return nil, goerr.Wrap(types.ErrMalformedInput, "github source must be a mapping of project categories",
			goerr.V("line", node.Line),
		)
	}

	categories := make(map[string]ProjectList, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], resolveAlias(node.Content[i+1])
		if value.ShortTag() == "!!null" {
			categories[key.Value] = ProjectList{}
			continue
		}

		projects, err := DecodeProjects(value)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to decode project category", goerr.V("category", key.Value))
		}
		categories[key.Value] = projects
	}
	return categories, nil
}

// ProjectRef is either a PlainProject or an ExcludingProject
type ProjectRef interface {
	projectRef()
}

// PlainProject references a repository by name only
type PlainProject struct {
	Name string
}

// ExcludingProject references a repository and lists the usage categories
// the repository is excluded from for this tenant
type ExcludingProject struct {
	Name    string
	Exclude []string
}

func (PlainProject) projectRef()     {}
func (ExcludingProject) projectRef() {}

// Excludes reports whether category is in the exclusion list
func (p ExcludingProject) Excludes(category string) bool {
	return slices.Contains(p.Exclude, category)
}

// ProjectList is a sequence of ProjectRef decoded from YAML
type ProjectList []ProjectRef

// UnmarshalYAML decodes the list with DecodeProjects
func (l *ProjectList) UnmarshalYAML(value *yaml.Node) error {
	projects, err := DecodeProjects(value)
	if err != nil {
		return err
	}
	*l = projects
	return nil
}

// DecodeProjects decodes scalars as PlainProject and single key mappings as ExcludingProject
func DecodeProjects(value *yaml.Node) (ProjectList, error) {
	value = resolveAlias(value)
	if value.Kind != yaml.SequenceNode {
		return nil, goerr.Wrap(types.ErrMalformedInput, "project list must be a sequence",
			goerr.V("line", value.Line),
		)
	}

	projects := make(ProjectList, 0, len(value.Content))
	for _, node := range value.Content {
		ref, err := decodeProjectRef(resolveAlias(node))
		if err != nil {
			return nil, err
		}
		projects = append(projects, ref)
	}
	return projects, nil
}

func decodeProjectRef(node *yaml.Node) (ProjectRef, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.ShortTag() == "!!null" || node.Value == "" {
			return nil, goerr.Wrap(types.ErrMalformedInput, "empty project name",
				goerr.V("line", node.Line),
			)
		}
		return PlainProject{Name: node.Value}, nil

	case yaml.MappingNode:
		if len(node.Content) != 2 {
			return nil, goerr.Wrap(types.ErrMalformedInput, "project mapping must have exactly one key",
				goerr.V("line", node.Line),
				goerr.V("keys", len(node.Content)/2),
			)
		}
		key, body := node.Content[0], resolveAlias(node.Content[1])
		if key.Kind != yaml.ScalarNode || key.Value == "" {
			return nil, goerr.Wrap(types.ErrMalformedInput, "project name must be a scalar",
				goerr.V("line", key.Line),
			)
		}

		project := ExcludingProject{Name: key.Value, Exclude: []string{}}
		if body.ShortTag() == "!!null" {
			return project, nil
		}
		if body.Kind != yaml.MappingNode {
			return nil, goerr.Wrap(types.ErrMalformedInput, "project options must be a mapping",
				goerr.V("project", key.Value),
				goerr.V("line", body.Line),
			)
		}

		var opts struct {
			Exclude categoryList `yaml:"exclude"`
		}
		if err := body.Decode(&opts); err != nil {
			return nil, goerr.Wrap(err, "failed to decode project options",
				goerr.V("project", key.Value),
			)
		}
		if opts.Exclude != nil {
			project.Exclude = opts.Exclude
		}
		return project, nil

	default:
		return nil, goerr.Wrap(types.ErrMalformedInput, "project must be a name or a single key mapping",
			goerr.V("line", node.Line),
		)
	}
}

// categoryList accepts either a single category or a sequence of them
type categoryList []string

func (c *categoryList) UnmarshalYAML(value *yaml.Node) error {
	value = resolveAlias(value)
	switch value.Kind {
	case yaml.ScalarNode:
		*c = categoryList{value.Value}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := value.Decode(&list); err != nil {
			return goerr.Wrap(types.ErrMalformedInput, "exclude must be a list of names",
				goerr.V("line", value.Line),
				goerr.V("error", err.Error()),
			)
		}
		*c = list
		return nil
	default:
		return goerr.Wrap(types.ErrMalformedInput, "exclude must be a name or a list of names",
			goerr.V("line", value.Line),
		)
	}
}

func resolveAlias(node *yaml.Node) *yaml.Node {
	for node.Kind == yaml.AliasNode && node.Alias != nil {
		node = node.Alias
	}
	return node
}
