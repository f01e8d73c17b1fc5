package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// DescriptorFileName is the file name LoadAll looks for in each app subdirectory
const DescriptorFileName = "app.yaml"

// Descriptor is the declarative, serialized form of one application
// together with its generation settings.
type Descriptor struct {
	Name            string `yaml:"name" json:"name"`
	Version         string `yaml:"version" json:"version"`
	Type            string `yaml:"type" json:"type"`
	EntryPointClass string `yaml:"entryPointClass" json:"entryPointClass"`
	// ConfigClass is accepted as an alias of EntryPointClass
	ConfigClass string `yaml:"configClass,omitempty" json:"configClass,omitempty"`

	AdditionalProperties      []string `yaml:"additionalProperties,omitempty" json:"additionalProperties,omitempty"`
	MetadataSourceTypeFilters []string `yaml:"metadataSourceTypeFilters,omitempty" json:"metadataSourceTypeFilters,omitempty"`
	MetadataNameFilters       []string `yaml:"metadataNameFilters,omitempty" json:"metadataNameFilters,omitempty"`

	BOMs               []Dependency `yaml:"boms,omitempty" json:"boms,omitempty"`
	Dependencies       []Dependency `yaml:"dependencies,omitempty" json:"dependencies,omitempty"`
	GlobalDependencies []Dependency `yaml:"globalDependencies,omitempty" json:"globalDependencies,omitempty"`
	Plugins            []Plugin     `yaml:"plugins,omitempty" json:"plugins,omitempty"`

	ContainerImage ContainerImageSpec `yaml:"containerImage" json:"containerImage"`
	Binders        []string           `yaml:"binders" json:"binders"`
	Versions       VersionSpec        `yaml:"versions" json:"versions"`
}

// ContainerImageSpec configures the container image block of generated poms
type ContainerImageSpec struct {
	Format         string `yaml:"format,omitempty" json:"format,omitempty"` // Docker (default) or OCI
	OrgName        string `yaml:"orgName,omitempty" json:"orgName,omitempty"`
	Tag            string `yaml:"tag,omitempty" json:"tag,omitempty"` // defaults to the app version
	EnableMetadata bool   `yaml:"enableMetadata,omitempty" json:"enableMetadata,omitempty"`
}

// VersionSpec overrides the default version catalog
type VersionSpec struct {
	Runtime        string `yaml:"runtime,omitempty" json:"runtime,omitempty"`
	MetadataPlugin string `yaml:"metadataPlugin,omitempty" json:"metadataPlugin,omitempty"`
	SpringCloud    string `yaml:"springCloud,omitempty" json:"springCloud,omitempty"`
}

// EntryPoint returns EntryPointClass, falling back to ConfigClass
func (d *Descriptor) EntryPoint() string {
	if d.EntryPointClass != "" {
		return d.EntryPointClass
	}
	return d.ConfigClass
}

// Loader handles loading app descriptors from YAML files
type Loader struct {
	appsDir string
}

// NewLoader creates a new descriptor loader.
// appsDir is only needed for LoadAll.
func NewLoader(appsDir string) *Loader {
	return &Loader{
		appsDir: appsDir,
	}
}

// LoadAll loads every descriptor below the apps directory.
// Each app has its own subdirectory with an app.yaml file; results are sorted by name.
func (l *Loader) LoadAll() ([]*Descriptor, error) {
	return loadAll(l.appsDir, l.LoadFile)
}

func loadAll(appsDir string, loadFile func(string) (*Descriptor, error)) ([]*Descriptor, error) {
	entries, err := os.ReadDir(appsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read apps directory: %w", err)
	}

	var descriptors []*Descriptor
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		path := filepath.Join(appsDir, entry.Name(), DescriptorFileName)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		d, err := loadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", entry.Name(), err)
		}
		descriptors = append(descriptors, d)
	}

	sort.Slice(descriptors, func(i, j int) bool {
		return descriptors[i].Name < descriptors[j].Name
	})
	return descriptors, nil
}

// LoadFile loads a single descriptor from a YAML file
func (l *Loader) LoadFile(filePath string) (*Descriptor, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return ParseDescriptor(data)
}

// ParseDescriptor decodes and checks a YAML (or JSON) descriptor
func ParseDescriptor(data []byte) (*Descriptor, error) {
	var d Descriptor
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateDescriptor(&d); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return &d, nil
}

// validateDescriptor checks the fields that AppBuilder cannot report precisely
func validateDescriptor(d *Descriptor) error {
	if d.Name == "" {
		return fmt.Errorf("%w: app name is required", ErrInvalidApp)
	}
	if d.EntryPointClass != "" && d.ConfigClass != "" && d.EntryPointClass != d.ConfigClass {
		return fmt.Errorf("%w: entryPointClass and configClass disagree", ErrInvalidApp)
	}
	return nil
}
