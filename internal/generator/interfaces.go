package generator

import (
	"codeberg.org/streamapps/appgen/internal/catalog"
	"codeberg.org/streamapps/appgen/pkg/xmlutil"
)

// FragmentWriter turns build records into pom.xml fragments.
// The generator decides the column depth of each fragment.
type FragmentWriter interface {
	// DependencyXML renders one <dependency> element
	DependencyXML(d catalog.Dependency) (string, error)

	// PluginXML renders one <plugin> element
	PluginXML(p catalog.Plugin) (string, error)

	// Indent shifts each line of a fragment right by depth columns
	Indent(fragment string, depth int) string
}

// GeneratorInterface defines the interface for generating app projects.
// This interface enables mocking for testing.
type GeneratorInterface interface {
	// Generate writes one project per binder of the request
	Generate(req *Request) (*Result, error)
}

// Compile-time assertions
var _ FragmentWriter = (*xmlutil.FragmentWriter)(nil)
var _ GeneratorInterface = (*Generator)(nil)
