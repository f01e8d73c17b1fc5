package xmlutil

import (
	"sort"
	"strings"

	"codeberg.org/streamapps/appgen/internal/catalog"
	"github.com/beevik/etree"
)

// FragmentWriter serializes dependencies and plugins to pom.xml fragments
type FragmentWriter struct {
	indent int
}

// NewFragmentWriter creates a writer that nests child elements by four spaces,
// the usual pom.xml layout.
func NewFragmentWriter() *FragmentWriter {
	return &FragmentWriter{indent: 4}
}

// DependencyXML renders a <dependency> element. Empty fields are omitted.
func (w *FragmentWriter) DependencyXML(d catalog.Dependency) (string, error) {
	doc := etree.NewDocument()
	el := doc.CreateElement("dependency")
	addText(el, "groupId", d.GroupID)
	addText(el, "artifactId", d.ArtifactID)
	addText(el, "version", d.Version)
	addText(el, "type", d.Type)
	addText(el, "classifier", d.Classifier)
	addText(el, "scope", d.Scope)
	if d.Optional {
		addText(el, "optional", "true")
	}
	if len(d.Exclusions) > 0 {
		exclusions := el.CreateElement("exclusions")
		for _, ex := range d.Exclusions {
			exclusion := exclusions.CreateElement("exclusion")
			addText(exclusion, "groupId", ex.GroupID)
			addText(exclusion, "artifactId", ex.ArtifactID)
		}
	}
	return w.render(doc)
}

// PluginXML renders a <plugin> element with its configuration in key order
func (w *FragmentWriter) PluginXML(p catalog.Plugin) (string, error) {
	doc := etree.NewDocument()
	el := doc.CreateElement("plugin")
	addText(el, "groupId", p.GroupID)
	addText(el, "artifactId", p.ArtifactID)
	addText(el, "version", p.Version)
	if p.Extensions {
		addText(el, "extensions", "true")
	}
	if len(p.Configuration) > 0 {
		keys := make([]string, 0, len(p.Configuration))
		for k := range p.Configuration {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		cfg := el.CreateElement("configuration")
		for _, k := range keys {
			cfg.CreateElement(k).SetText(p.Configuration[k])
		}
	}
	return w.render(doc)
}

// Indent shifts every non-empty line of fragment right by depth spaces
func (w *FragmentWriter) Indent(fragment string, depth int) string {
	return Indent(fragment, depth)
}

// Indent shifts every non-empty line of fragment right by depth spaces
func Indent(fragment string, depth int) string {
	if depth <= 0 {
		return fragment
	}
	pad := strings.Repeat(" ", depth)
	lines := strings.Split(fragment, "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) != "" {
			lines[i] = pad + line
		}
	}
	return strings.Join(lines, "\n")
}

func (w *FragmentWriter) render(doc *etree.Document) (string, error) {
	doc.Indent(w.indent)
	s, err := doc.WriteToString()
	if err != nil {
		return "", err
	}
	return strings.TrimRight(s, "\n"), nil
}

func addText(parent *etree.Element, name, value string) {
	if value == "" {
		return
	}
	parent.CreateElement(name).SetText(value)
}
