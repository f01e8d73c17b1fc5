package catalog

// Dependency is a Maven dependency coordinate
type Dependency struct {
	GroupID    string      `yaml:"groupId" json:"groupId"`
	ArtifactID string      `yaml:"artifactId" json:"artifactId"`
	Version    string      `yaml:"version,omitempty" json:"version,omitempty"`
	Type       string      `yaml:"type,omitempty" json:"type,omitempty"`
	Classifier string      `yaml:"classifier,omitempty" json:"classifier,omitempty"`
	Scope      string      `yaml:"scope,omitempty" json:"scope,omitempty"`
	Optional   bool        `yaml:"optional,omitempty" json:"optional,omitempty"`
	Exclusions []Exclusion `yaml:"exclusions,omitempty" json:"exclusions,omitempty"`
}

// Exclusion removes a transitive dependency
type Exclusion struct {
	GroupID    string `yaml:"groupId" json:"groupId"`
	ArtifactID string `yaml:"artifactId" json:"artifactId"`
}

// AsBOM returns a copy of the dependency usable as a BOM import:
// scope is forced to "import" and type to "pom".
func (d Dependency) AsBOM() Dependency {
	bom := d.clone()
	bom.Scope = "import"
	bom.Type = "pom"
	return bom
}

// Coordinates returns groupId:artifactId[:version]
func (d Dependency) Coordinates() string {
	if d.Version == "" {
		return d.GroupID + ":" + d.ArtifactID
	}
	return d.GroupID + ":" + d.ArtifactID + ":" + d.Version
}

func (d Dependency) clone() Dependency {
	c := d
	if d.Exclusions != nil {
		c.Exclusions = append([]Exclusion(nil), d.Exclusions...)
	}
	return c
}

// Plugin is a Maven build plugin
type Plugin struct {
	GroupID    string `yaml:"groupId" json:"groupId"`
	ArtifactID string `yaml:"artifactId" json:"artifactId"`
	Version    string `yaml:"version,omitempty" json:"version,omitempty"`
	Extensions bool   `yaml:"extensions,omitempty" json:"extensions,omitempty"`
	// Configuration holds simple <configuration> children; written in key order
	Configuration map[string]string `yaml:"configuration,omitempty" json:"configuration,omitempty"`
}

func (p Plugin) clone() Plugin {
	c := p
	if p.Configuration != nil {
		c.Configuration = make(map[string]string, len(p.Configuration))
		for k, v := range p.Configuration {
			c.Configuration[k] = v
		}
	}
	return c
}

func cloneDependencies(deps []Dependency) []Dependency {
	out := make([]Dependency, 0, len(deps))
	for _, d := range deps {
		out = append(out, d.clone())
	}
	return out
}

func clonePlugins(plugins []Plugin) []Plugin {
	out := make([]Plugin, 0, len(plugins))
	for _, p := range plugins {
		out = append(out, p.clone())
	}
	return out
}
