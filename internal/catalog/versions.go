package catalog

// Default versions stamped into generated projects when a descriptor does not set them
const (
	DefaultRuntimeVersion        = "2.2.4.RELEASE"
	DefaultMetadataPluginVersion = "1.0.2.RELEASE"
	// DefaultSpringCloudVersion is the release train matching DefaultRuntimeVersion
	DefaultSpringCloudVersion = "Hoxton.SR1"
)

// VersionCatalog holds the shared versions used by every generated project.
// It is immutable once constructed.
type VersionCatalog struct {
	runtimeVersion        string
	metadataPluginVersion string
	springCloudVersion    string
}

// NewVersionCatalog creates a version catalog. Blank values fall back to the defaults.
func NewVersionCatalog(runtimeVersion, metadataPluginVersion string) VersionCatalog {
	if runtimeVersion == "" {
		runtimeVersion = DefaultRuntimeVersion
	}
	if metadataPluginVersion == "" {
		metadataPluginVersion = DefaultMetadataPluginVersion
	}
	return VersionCatalog{
		runtimeVersion:        runtimeVersion,
		metadataPluginVersion: metadataPluginVersion,
		springCloudVersion:    DefaultSpringCloudVersion,
	}
}

// WithSpringCloudVersion returns a copy using the given Spring Cloud release
// train. A blank value keeps the current one.
func (v VersionCatalog) WithSpringCloudVersion(version string) VersionCatalog {
	if version != "" {
		v.springCloudVersion = version
	}
	return v
}

// RuntimeVersion is the Spring Boot version used as the project parent
func (v VersionCatalog) RuntimeVersion() string { return v.runtimeVersion }

// MetadataPluginVersion is the version of the app metadata Maven plugin
func (v VersionCatalog) MetadataPluginVersion() string { return v.metadataPluginVersion }

// SpringCloudVersion is the spring-cloud-dependencies BOM imported by every
// project; it manages the binder versions.
func (v VersionCatalog) SpringCloudVersion() string { return v.springCloudVersion }

// IsZero reports whether the catalog was never constructed
func (v VersionCatalog) IsZero() bool {
	return v.runtimeVersion == "" && v.metadataPluginVersion == "" && v.springCloudVersion == ""
}
