package catalog

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrInvalidApp is returned when an application description is incomplete or malformed
var ErrInvalidApp = errors.New("invalid app definition")

// AppDefinition describes one stream application. It is built once with
// AppBuilder and never modified afterwards; slice getters return copies.
type AppDefinition struct {
	name                         string
	version                      string
	appType                      AppType
	entryPointClass              string
	additionalProperties         []string
	metadataSourceTypeFilters    []string
	metadataNameFilters          []string
	managedDependencies          []Dependency
	dependencies                 []Dependency
	plugins                      []Plugin
	containerImageFormat         ContainerImageFormat
	containerImageOrgName        string
	containerImageTag            string
	enableContainerImageMetadata bool
}

func (a *AppDefinition) Name() string { return a.name }
func (a *AppDefinition) Version() string { return a.version }
func (a *AppDefinition) Type() AppType { return a.appType }
func (a *AppDefinition) EntryPointClass() string { return a.entryPointClass }
func (a *AppDefinition) ContainerImageTag() string { return a.containerImageTag }

func (a *AppDefinition) ContainerImageFormat() ContainerImageFormat { return a.containerImageFormat }
func (a *AppDefinition) ContainerImageOrgName() string { return a.containerImageOrgName }
func (a *AppDefinition) EnableContainerImageMetadata() bool { return a.enableContainerImageMetadata }

// AdditionalProperties returns the key=value entries for application.properties
func (a *AppDefinition) AdditionalProperties() []string {
	return append([]string(nil), a.additionalProperties...)
}

// MetadataSourceTypeFilters returns the configuration-property class filters
func (a *AppDefinition) MetadataSourceTypeFilters() []string {
	return append([]string(nil), a.metadataSourceTypeFilters...)
}

// MetadataNameFilters returns the configuration-property name filters
func (a *AppDefinition) MetadataNameFilters() []string {
	return append([]string(nil), a.metadataNameFilters...)
}

// ManagedDependencies returns the BOM imports as declared (scope/type untouched)
func (a *AppDefinition) ManagedDependencies() []Dependency {
	return cloneDependencies(a.managedDependencies)
}

// Dependencies returns the app's own dependencies in declaration order
func (a *AppDefinition) Dependencies() []Dependency {
	return cloneDependencies(a.dependencies)
}

// Plugins returns the additional build plugins
func (a *AppDefinition) Plugins() []Plugin {
	return clonePlugins(a.plugins)
}

// AppBuilder collects the fields of an AppDefinition
type AppBuilder struct {
	app    AppDefinition
	tagSet bool
}

// NewAppBuilder starts an AppDefinition with the mandatory fields
func NewAppBuilder(name, version string, appType AppType, entryPointClass string) *AppBuilder {
	return &AppBuilder{
		app: AppDefinition{
			name:                 strings.TrimSpace(name),
			version:              strings.TrimSpace(version),
			appType:              appType,
			entryPointClass:      strings.TrimSpace(entryPointClass),
			containerImageFormat: ContainerImageDocker,
		},
	}
}

func (b *AppBuilder) AdditionalProperties(props ...string) *AppBuilder {
	b.app.additionalProperties = append(b.app.additionalProperties, props...)
	return b
}

func (b *AppBuilder) MetadataSourceTypeFilters(filters ...string) *AppBuilder {
	b.app.metadataSourceTypeFilters = append(b.app.metadataSourceTypeFilters, filters...)
	return b
}

func (b *AppBuilder) MetadataNameFilters(filters ...string) *AppBuilder {
	b.app.metadataNameFilters = append(b.app.metadataNameFilters, filters...)
	return b
}

func (b *AppBuilder) ManagedDependencies(deps ...Dependency) *AppBuilder {
	b.app.managedDependencies = append(b.app.managedDependencies, cloneDependencies(deps)...)
	return b
}

func (b *AppBuilder) Dependencies(deps ...Dependency) *AppBuilder {
	b.app.dependencies = append(b.app.dependencies, cloneDependencies(deps)...)
	return b
}

func (b *AppBuilder) Plugins(plugins ...Plugin) *AppBuilder {
	b.app.plugins = append(b.app.plugins, clonePlugins(plugins)...)
	return b
}

// ContainerImage sets the image format and organization. A blank org name is ignored.
func (b *AppBuilder) ContainerImage(format ContainerImageFormat, orgName string) *AppBuilder {
	if format != "" {
		b.app.containerImageFormat = format
	}
	b.app.containerImageOrgName = strings.TrimSpace(orgName)
	return b
}

// ContainerImageTag overrides the image tag, which otherwise equals the version
func (b *AppBuilder) ContainerImageTag(tag string) *AppBuilder {
	tag = strings.TrimSpace(tag)
	if tag != "" {
		b.app.containerImageTag = tag
		b.tagSet = true
	}
	return b
}

func (b *AppBuilder) EnableContainerImageMetadata(enabled bool) *AppBuilder {
	b.app.enableContainerImageMetadata = enabled
	return b
}

// Build validates the collected fields and returns an immutable AppDefinition
func (b *AppBuilder) Build() (*AppDefinition, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}

	app := b.app
	app.appType, _ = ParseAppType(string(app.appType))
	if !b.tagSet {
		app.containerImageTag = app.version
	}
	app.additionalProperties = append([]string(nil), b.app.additionalProperties...)
	app.metadataSourceTypeFilters = append([]string(nil), b.app.metadataSourceTypeFilters...)
	app.metadataNameFilters = append([]string(nil), b.app.metadataNameFilters...)
	app.managedDependencies = cloneDependencies(b.app.managedDependencies)
	app.dependencies = cloneDependencies(b.app.dependencies)
	app.plugins = clonePlugins(b.app.plugins)
	return &app, nil
}

func (b *AppBuilder) validate() error {
	a := &b.app
	if a.name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidApp)
	}
	if !IsPathSegment(a.name) {
		return fmt.Errorf("%w: name %q must be a single path segment", ErrInvalidApp, a.name)
	}
	if a.version == "" {
		return fmt.Errorf("%w: version is required", ErrInvalidApp)
	}
	if a.appType == "" {
		return fmt.Errorf("%w: type is required", ErrInvalidApp)
	}
	if _, err := ParseAppType(string(a.appType)); err != nil {
		return err
	}
	if a.entryPointClass == "" {
		return fmt.Errorf("%w: entryPointClass is required", ErrInvalidApp)
	}
	for _, prop := range a.additionalProperties {
		key, _, ok := strings.Cut(prop, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return fmt.Errorf("%w: additional property %q is not key=value", ErrInvalidApp, prop)
		}
	}
	for _, d := range append(append([]Dependency(nil), a.managedDependencies...), a.dependencies...) {
		if d.GroupID == "" || d.ArtifactID == "" {
			return fmt.Errorf("%w: dependency %q needs groupId and artifactId", ErrInvalidApp, d.Coordinates())
		}
	}
	for _, p := range a.plugins {
		if p.GroupID == "" || p.ArtifactID == "" {
			return fmt.Errorf("%w: plugin %s:%s needs groupId and artifactId", ErrInvalidApp, p.GroupID, p.ArtifactID)
		}
	}
	return nil
}

// IsPathSegment reports whether s can be used as one directory name and as
// part of a Maven artifactId. Separators, whitespace, commas and colons are
// rejected.
func IsPathSegment(s string) bool {
	if s == "" || s == "." || s == ".." {
		return false
	}
	if strings.IndexFunc(s, unicode.IsSpace) >= 0 {
		return false
	}
	return !strings.ContainsAny(s, `/\,:`)
}
