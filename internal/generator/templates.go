package generator

import (
	"bytes"
	"embed"
	"encoding/xml"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

//go:embed all:static
var staticFS embed.FS

const (
	pomTemplate       = "app-pom.xml.tmpl"
	mainTemplate      = "Application.java.tmpl"
	testTemplate      = "ApplicationTests.java.tmpl"
	readmeTemplate    = "README.md.tmpl"
	staticRoot        = "static"
	generatedFileMode = 0644
)

var templates = template.Must(
	template.New("appgen").Funcs(template.FuncMap{
		"xml": xmlEscape,
	}).ParseFS(templateFS, "templates/*.tmpl"),
)

// imageData is the container image block; nil when image metadata is disabled
type imageData struct {
	Repository    string
	Tag           string
	Format        string
	PluginVersion string
	BaseImage     string
}

// Reference is the full image reference including the tag
func (i imageData) Reference() string {
	return i.Repository + ":" + i.Tag
}

type projectData struct {
	Name                  string
	Version               string
	Type                  string
	Binder                string
	GroupID               string
	ArtifactID            string
	RuntimeVersion        string
	MetadataPluginVersion string
	MainClass             string

	// Fragments, already indented
	BOMs         []string
	Dependencies []string
	Plugins      []string

	NameFilters       []string
	SourceTypeFilters []string

	Image *imageData

	EntryPointClass      string
	Package              string
	ClassName            string
	EntryPointImport     string
	EntryPointSimpleName string
}

func render(name string, data *projectData) ([]byte, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("rendering %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

// copyStatic writes every file under the embedded static tree into dir
func copyStatic(dir string) (string, error) {
	var failed string
	err := fs.WalkDir(staticFS, staticRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel := strings.TrimPrefix(strings.TrimPrefix(p, staticRoot), "/")
		target := filepath.Join(dir, filepath.FromSlash(rel))
		failed = target
		if d.IsDir() {
			return os.MkdirAll(target, 0755)
		}
		data, err := staticFS.ReadFile(p)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, generatedFileMode)
	})
	if err != nil {
		return failed, err
	}
	return "", nil
}

func xmlEscape(s string) string {
	var b strings.Builder
	if err := xml.EscapeText(&b, []byte(s)); err != nil {
		return s
	}
	return b.String()
}
