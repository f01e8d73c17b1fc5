package catalog

// DescriptorLoader defines the interface for loading app descriptors.
// This interface enables mocking for testing.
type DescriptorLoader interface {
	// LoadAll loads every descriptor below the apps directory
	LoadAll() ([]*Descriptor, error)

	// LoadFile loads a single descriptor file
	LoadFile(filePath string) (*Descriptor, error)
}

// Compile-time assertions
var (
	_ DescriptorLoader = (*Loader)(nil)
	_ DescriptorLoader = (*CachedLoader)(nil)
)
