// Package generator writes one Maven project per binder for a stream application,
// plus an aggregator pom that lists every generated module.
package generator

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"codeberg.org/streamapps/appgen/internal/catalog"
	"codeberg.org/streamapps/appgen/internal/whitelist"
	"codeberg.org/streamapps/appgen/pkg/xmlutil"
	"github.com/magiconair/properties"
)

const (
	// DefaultGroupID is the groupId of generated projects and the root of their Java packages
	DefaultGroupID = "org.springframework.cloud.stream.app"

	// Column depths of pom.xml fragments
	bomDepth        = 12
	dependencyDepth = 8
	pluginDepth     = 12

	binderGroupID        = "org.springframework.cloud"
	binderArtifactPrefix = "spring-cloud-stream-binder-"
	springCloudBOM       = "spring-cloud-dependencies"

	bootGroupID     = "org.springframework.boot"
	bootTestStarter = "spring-boot-starter-test"
	testScope       = "test"

	aggregatorFile       = "pom.xml"
	aggregatorArtifactID = "apps"
	aggregatorVersion    = "0.0.1-SNAPSHOT"

	jibPluginVersion = "2.4.0"
	jibBaseImage     = "springcloud/openjdk:2.0.0.RELEASE"

	metadataFile = "dataflow-configuration-metadata.properties"
)

// Project is one generated binder project
type Project struct {
	Binder string `json:"binder"`
	// Module is the project path relative to the output folder, as listed in the aggregator
	Module string `json:"module"`
	Dir    string `json:"dir"`
}

// Result lists the projects of a successful run in binder order
type Result struct {
	Projects   []Project `json:"projects"`
	Aggregator string    `json:"aggregator"`
}

// Generator renders and writes app projects
type Generator struct {
	writer FragmentWriter
	logger *slog.Logger
}

// NewGenerator creates a generator. A nil writer uses xmlutil's etree-based writer.
func NewGenerator(writer FragmentWriter, logger *slog.Logger) *Generator {
	if writer == nil {
		writer = xmlutil.NewFragmentWriter()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{writer: writer, logger: logger}
}

// fragments holds the pom.xml pieces shared by every binder of a run
type fragments struct {
	boms         []string
	dependencies []string
	plugins      []string
}

// Generate validates req and writes one project per binder, sequentially.
// The first write failure aborts the run; projects already written stay on disk.
func (g *Generator) Generate(req *Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	app := req.App
	shared, err := g.sharedFragments(req)
	if err != nil {
		return nil, &GenerationError{Path: aggregatorFile, Err: err}
	}

	result := &Result{}
	for _, binder := range req.UniqueBinders() {
		project, err := g.generateBinder(req, binder, shared)
		if err != nil {
			return nil, err
		}
		result.Projects = append(result.Projects, project)
		g.logger.Info("Generated project", "app", app.Name(), "binder", binder, "dir", project.Dir)
	}

	modules := make([]string, 0, len(result.Projects))
	for _, p := range result.Projects {
		modules = append(modules, p.Module)
	}
	aggregator, err := g.writeAggregator(req.OutputFolder, modules)
	if err != nil {
		return nil, &GenerationError{Path: aggregator, Err: err}
	}
	result.Aggregator = aggregator

	return result, nil
}

func (g *Generator) sharedFragments(req *Request) (*fragments, error) {
	app := req.App
	f := &fragments{}

	// The release train BOM manages the binder versions unless the app imports its own
	boms := app.ManagedDependencies()
	if !hasDependency(boms, binderGroupID, springCloudBOM) {
		boms = append([]catalog.Dependency{{
			GroupID:    binderGroupID,
			ArtifactID: springCloudBOM,
			Version:    req.Catalog.SpringCloudVersion(),
		}}, boms...)
	}

	for _, bom := range boms {
		xml, err := g.writer.DependencyXML(bom.AsBOM())
		if err != nil {
			return nil, fmt.Errorf("serializing BOM %s: %w", bom.Coordinates(), err)
		}
		f.boms = append(f.boms, g.writer.Indent(xml, bomDepth))
	}

	deps := MergeDependencies(app.Dependencies(), req.GlobalDependencies)
	if !hasDependency(deps, bootGroupID, bootTestStarter) {
		deps = append(deps, catalog.Dependency{GroupID: bootGroupID, ArtifactID: bootTestStarter, Scope: testScope})
	}

	for _, dep := range deps {
		xml, err := g.writer.DependencyXML(dep)
		if err != nil {
			return nil, fmt.Errorf("serializing dependency %s: %w", dep.Coordinates(), err)
		}
		f.dependencies = append(f.dependencies, g.writer.Indent(xml, dependencyDepth))
	}

	for _, plugin := range app.Plugins() {
		xml, err := g.writer.PluginXML(plugin)
		if err != nil {
			return nil, fmt.Errorf("serializing plugin %s:%s: %w", plugin.GroupID, plugin.ArtifactID, err)
		}
		f.plugins = append(f.plugins, g.writer.Indent(xml, pluginDepth))
	}

	return f, nil
}

func (g *Generator) generateBinder(req *Request, binder string, shared *fragments) (Project, error) {
	app := req.App
	module := binder + "/" + app.Name()
	dir := filepath.Join(req.OutputFolder, binder, app.Name())
	project := Project{Binder: binder, Module: module, Dir: dir}

	fail := func(path string, err error) (Project, error) {
		return Project{}, &GenerationError{Binder: binder, Path: path, Err: err}
	}

	data, err := g.projectData(req, binder, shared)
	if err != nil {
		return fail(filepath.Join(dir, "pom.xml"), err)
	}

	files, err := projectFiles(app, data)
	if err != nil {
		return fail(dir, err)
	}

	// Regeneration starts from an empty directory so no stale files survive
	if err := os.RemoveAll(dir); err != nil {
		return fail(dir, err)
	}

	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, rel := range paths {
		target := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return fail(filepath.Dir(target), err)
		}
		if err := os.WriteFile(target, files[rel], generatedFileMode); err != nil {
			return fail(target, err)
		}
	}

	if path, err := copyStatic(dir); err != nil {
		return fail(path, err)
	}

	return project, nil
}

func (g *Generator) projectData(req *Request, binder string, shared *fragments) (*projectData, error) {
	app := req.App

	binderXML, err := g.writer.DependencyXML(catalog.Dependency{
		GroupID:    binderGroupID,
		ArtifactID: binderArtifactPrefix + binder,
	})
	if err != nil {
		return nil, fmt.Errorf("serializing binder dependency: %w", err)
	}

	deps := make([]string, 0, len(shared.dependencies)+1)
	deps = append(deps, g.writer.Indent(binderXML, dependencyDepth))
	deps = append(deps, shared.dependencies...)

	pkg := javaPackage(app.Name(), binder)
	className := camelCase(app.Name()) + camelCase(binder) + "Application"
	entryPkg, entrySimple := splitClassName(app.EntryPointClass())

	data := &projectData{
		Name:                  app.Name(),
		Version:               app.Version(),
		Type:                  string(app.Type()),
		Binder:                binder,
		GroupID:               DefaultGroupID,
		ArtifactID:            app.Name() + "-" + binder,
		RuntimeVersion:        req.Catalog.RuntimeVersion(),
		MetadataPluginVersion: req.Catalog.MetadataPluginVersion(),
		BOMs:                  shared.boms,
		Dependencies:          deps,
		Plugins:               shared.plugins,
		NameFilters:           app.MetadataNameFilters(),
		SourceTypeFilters:     app.MetadataSourceTypeFilters(),
		EntryPointClass:       app.EntryPointClass(),
		EntryPointSimpleName:  entrySimple,
		ClassName:             className,
	}

	// A class in the default package cannot be imported into a named one
	if entryPkg != "" {
		data.Package = pkg
		data.EntryPointImport = app.EntryPointClass()
		data.MainClass = pkg + "." + className
	} else {
		data.MainClass = className
	}

	if app.EnableContainerImageMetadata() {
		repository := app.Name() + "-" + binder
		if org := strings.TrimSpace(app.ContainerImageOrgName()); org != "" {
			repository = org + "/" + repository
		}
		data.Image = &imageData{
			Repository:    repository,
			Tag:           app.ContainerImageTag(),
			Format:        string(app.ContainerImageFormat()),
			PluginVersion: jibPluginVersion,
			BaseImage:     jibBaseImage,
		}
	}

	return data, nil
}

// projectFiles renders every generated file of a project, keyed by slash-separated relative path
func projectFiles(app *catalog.AppDefinition, data *projectData) (map[string][]byte, error) {
	files := make(map[string][]byte)

	javaDir := strings.ReplaceAll(data.Package, ".", "/")
	rendered := []struct {
		template string
		path     string
	}{
		{pomTemplate, "pom.xml"},
		{readmeTemplate, "README.md"},
		{mainTemplate, joinSlash("src/main/java", javaDir, data.ClassName+".java")},
		{testTemplate, joinSlash("src/test/java", javaDir, data.ClassName+"Tests.java")},
	}
	for _, r := range rendered {
		out, err := render(r.template, data)
		if err != nil {
			return nil, err
		}
		files[r.path] = out
	}

	appProps, err := applicationProperties(app.AdditionalProperties())
	if err != nil {
		return nil, err
	}
	files["src/main/resources/application.properties"] = appProps

	metadata, err := metadataProperties(data.SourceTypeFilters, data.NameFilters)
	if err != nil {
		return nil, err
	}
	if metadata != nil {
		files["src/main/resources/META-INF/"+metadataFile] = metadata
	}

	return files, nil
}

// applicationProperties writes key=value entries in declaration order
func applicationProperties(entries []string) ([]byte, error) {
	p := properties.NewProperties()
	p.DisableExpansion = true
	for _, entry := range entries {
		key, value, _ := strings.Cut(entry, "=")
		if _, _, err := p.Set(strings.TrimSpace(key), strings.TrimSpace(value)); err != nil {
			return nil, fmt.Errorf("setting property %q: %w", key, err)
		}
	}
	return writeProperties(p)
}

// metadataProperties returns nil when there are no filters to record
func metadataProperties(sourceTypes, names []string) ([]byte, error) {
	if len(sourceTypes) == 0 && len(names) == 0 {
		return nil, nil
	}
	p := properties.NewProperties()
	p.DisableExpansion = true
	if len(sourceTypes) > 0 {
		if _, _, err := p.Set(whitelist.ClassesKey, strings.Join(sourceTypes, ",")); err != nil {
			return nil, err
		}
	}
	if len(names) > 0 {
		if _, _, err := p.Set(whitelist.NamesKey, strings.Join(names, ",")); err != nil {
			return nil, err
		}
	}
	return writeProperties(p)
}

func writeProperties(p *properties.Properties) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := p.Write(&buf, properties.UTF8); err != nil {
		return nil, fmt.Errorf("writing properties: %w", err)
	}
	return buf.Bytes(), nil
}

// writeAggregator rewrites <outputFolder>/pom.xml with the union of the modules it
// already lists and the ones just generated, sorted.
func (g *Generator) writeAggregator(outputFolder string, modules []string) (string, error) {
	path := filepath.Join(outputFolder, aggregatorFile)

	all := append([]string(nil), modules...)
	existing, err := xmlutil.OpenExisting(path)
	switch {
	case err == nil:
		all = append(all, existing.ChildValues("modules", "module")...)
	case errors.Is(err, fs.ErrNotExist):
	default:
		g.logger.Warn("Replacing unreadable aggregator pom", "path", path, "error", err)
	}

	pom := xmlutil.New(path, "project")
	pom.SetIndent(4)
	pom.SetAttr("xmlns", "http://maven.apache.org/POM/4.0.0")
	pom.SetAttr("xmlns:xsi", "http://www.w3.org/2001/XMLSchema-instance")
	pom.SetAttr("xsi:schemaLocation", "http://maven.apache.org/POM/4.0.0 https://maven.apache.org/xsd/maven-4.0.0.xsd")
	pom.SetElement("modelVersion", "4.0.0")
	pom.SetElement("groupId", DefaultGroupID)
	pom.SetElement("artifactId", aggregatorArtifactID)
	pom.SetElement("version", aggregatorVersion)
	pom.SetElement("packaging", "pom")
	pom.SetChildren("modules", "module", uniqueSorted(all))

	if err := pom.Save(); err != nil {
		return path, err
	}
	return path, nil
}

func hasDependency(deps []catalog.Dependency, groupID, artifactID string) bool {
	for _, d := range deps {
		if d.GroupID == groupID && d.ArtifactID == artifactID {
			return true
		}
	}
	return false
}

func uniqueSorted(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// camelCase turns "log-sink" into "LogSink"
func camelCase(s string) string {
	var b strings.Builder
	for _, word := range splitWords(s) {
		runes := []rune(word)
		runes[0] = unicode.ToUpper(runes[0])
		b.WriteString(string(runes))
	}
	out := b.String()
	if out != "" && unicode.IsDigit([]rune(out)[0]) {
		out = "App" + out
	}
	return out
}

// javaKeywords are reserved words and literals that cannot name a package segment
var javaKeywords = map[string]struct{}{
	"abstract": {}, "assert": {}, "boolean": {}, "break": {}, "byte": {}, "case": {},
	"catch": {}, "char": {}, "class": {}, "const": {}, "continue": {}, "default": {},
	"do": {}, "double": {}, "else": {}, "enum": {}, "extends": {}, "false": {},
	"final": {}, "finally": {}, "float": {}, "for": {}, "goto": {}, "if": {},
	"implements": {}, "import": {}, "instanceof": {}, "int": {}, "interface": {}, "long": {},
	"native": {}, "new": {}, "null": {}, "package": {}, "private": {}, "protected": {},
	"public": {}, "return": {}, "short": {}, "static": {}, "strictfp": {}, "super": {},
	"switch": {}, "synchronized": {}, "this": {}, "throw": {}, "throws": {}, "transient": {},
	"true": {}, "try": {}, "void": {}, "volatile": {}, "while": {},
}

// javaPackage builds the package of the generated classes, e.g.
// org.springframework.cloud.stream.app.log.sink.rabbit. Digit-led words get a
// leading underscore and keywords a trailing one.
func javaPackage(name, binder string) string {
	parts := []string{DefaultGroupID}
	for _, word := range append(splitWords(name), splitWords(binder)...) {
		word = strings.ToLower(word)
		if unicode.IsDigit([]rune(word)[0]) {
			word = "_" + word
		}
		if _, ok := javaKeywords[word]; ok {
			word += "_"
		}
		parts = append(parts, word)
	}
	return strings.Join(parts, ".")
}

func splitWords(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// splitClassName splits a fully qualified class name into package and simple name
func splitClassName(fqcn string) (pkg, simple string) {
	i := strings.LastIndex(fqcn, ".")
	if i < 0 {
		return "", fqcn
	}
	return fqcn[:i], fqcn[i+1:]
}

func joinSlash(parts ...string) string {
	var nonEmpty []string
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, "/")
}
