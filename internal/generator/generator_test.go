package generator

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"codeberg.org/streamapps/appgen/internal/catalog"
	"codeberg.org/streamapps/appgen/pkg/xmlutil"
	"github.com/google/go-cmp/cmp"
	"github.com/magiconair/properties"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLogSink(t *testing.T, configure func(b *catalog.AppBuilder)) *catalog.AppDefinition {
	t.Helper()
	b := catalog.NewAppBuilder("log-sink", "1.0.0", catalog.AppTypeSink, "com.example.LogSinkConfiguration").
		Dependencies(catalog.Dependency{GroupID: "com.example", ArtifactID: "log-consumer", Version: "1.0.0"})
	if configure != nil {
		configure(b)
	}
	app, err := b.Build()
	require.NoError(t, err)
	return app
}

func newRequest(t *testing.T, app *catalog.AppDefinition, binders ...string) *Request {
	t.Helper()
	return &Request{
		Catalog:      catalog.NewVersionCatalog("", ""),
		App:          app,
		OutputFolder: filepath.Join(t.TempDir(), "apps"),
		Binders:      binders,
	}
}

// readTree returns every file below root keyed by slash-separated relative path
func readTree(t *testing.T, root string) map[string]string {
	t.Helper()
	files := make(map[string]string)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	require.NoError(t, err)
	return files
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestGenerate_LogSinkPerBinder(t *testing.T) {
	app := newLogSink(t, func(b *catalog.AppBuilder) {
		b.ContainerImage(catalog.ContainerImageDocker, "springcloudstream").EnableContainerImageMetadata(true)
	})
	req := newRequest(t, app, "rabbit", "kafka")

	result, err := NewGenerator(nil, nil).Generate(req)
	require.NoError(t, err)

	require.Len(t, result.Projects, 2)
	assert.Equal(t, "rabbit", result.Projects[0].Binder)
	assert.Equal(t, "kafka", result.Projects[1].Binder)
	assert.Equal(t, "rabbit/log-sink", result.Projects[0].Module)

	for _, binder := range []string{"rabbit", "kafka"} {
		dir := filepath.Join(req.OutputFolder, binder, "log-sink")
		pom := readFile(t, filepath.Join(dir, "pom.xml"))

		assert.Contains(t, pom, "<artifactId>log-sink-"+binder+"</artifactId>")
		assert.Contains(t, pom, "<version>"+catalog.DefaultRuntimeVersion+"</version>")
		assert.Contains(t, pom, "<image>springcloudstream/log-sink-"+binder+"</image>")
		assert.Contains(t, pom, "<tag>1.0.0</tag>")
		assert.Contains(t, pom, "<format>Docker</format>")

		binderDep := strings.Index(pom, "spring-cloud-stream-binder-"+binder)
		localDep := strings.Index(pom, "<artifactId>log-consumer</artifactId>")
		require.True(t, binderDep > 0 && localDep > 0)
		assert.Less(t, binderDep, localDep, "binder dependency should come first")

		class := "LogSink" + strings.ToUpper(binder[:1]) + binder[1:] + "Application"
		javaDir := "org/springframework/cloud/stream/app/log/sink/" + binder
		main := readFile(t, filepath.Join(dir, "src/main/java", javaDir, class+".java"))
		assert.Contains(t, main, "package org.springframework.cloud.stream.app.log.sink."+binder+";")
		assert.Contains(t, main, "import com.example.LogSinkConfiguration;")
		assert.Contains(t, main, "@Import(LogSinkConfiguration.class)")
		assert.Contains(t, main, "public class "+class+" {")

		assert.FileExists(t, filepath.Join(dir, "src/test/java", javaDir, class+"Tests.java"))
		assert.FileExists(t, filepath.Join(dir, ".gitignore"))
		assert.FileExists(t, filepath.Join(dir, "README.md"))
		assert.Contains(t, readFile(t, filepath.Join(dir, "README.md")), "mvn clean package")
	}

	aggregator, err := xmlutil.OpenExisting(result.Aggregator)
	require.NoError(t, err)
	assert.Equal(t, []string{"kafka/log-sink", "rabbit/log-sink"}, aggregator.ChildValues("modules", "module"))
	assert.Equal(t, "pom", aggregator.GetElement("packaging"))
}

func TestGenerate_Idempotent(t *testing.T) {
	app := newLogSink(t, func(b *catalog.AppBuilder) {
		b.AdditionalProperties("server.port=8080").
			MetadataNameFilters("log.level").
			EnableContainerImageMetadata(true)
	})
	req := newRequest(t, app, "rabbit", "kafka")
	g := NewGenerator(nil, nil)

	_, err := g.Generate(req)
	require.NoError(t, err)
	first := readTree(t, req.OutputFolder)

	stale := filepath.Join(req.OutputFolder, "rabbit", "log-sink", "stale.txt")
	require.NoError(t, os.WriteFile(stale, []byte("left over"), 0644))

	_, err = g.Generate(req)
	require.NoError(t, err)
	second := readTree(t, req.OutputFolder)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("Regenerated tree differs (-first +second):\n%s", diff)
	}
	assert.NoFileExists(t, stale)
}

func TestGenerate_FragmentDepths(t *testing.T) {
	app := newLogSink(t, func(b *catalog.AppBuilder) {
		b.ManagedDependencies(catalog.Dependency{
			GroupID:    "org.springframework.cloud",
			ArtifactID: "spring-cloud-dependencies",
			Version:    "Hoxton.SR4",
		}).Plugins(catalog.Plugin{
			GroupID:    "org.apache.maven.plugins",
			ArtifactID: "maven-surefire-plugin",
			Version:    "2.22.2",
		})
	})
	req := newRequest(t, app, "rabbit")

	_, err := NewGenerator(nil, nil).Generate(req)
	require.NoError(t, err)
	pom := readFile(t, filepath.Join(req.OutputFolder, "rabbit", "log-sink", "pom.xml"))

	bom := "            <dependency>\n" +
		"                <groupId>org.springframework.cloud</groupId>\n" +
		"                <artifactId>spring-cloud-dependencies</artifactId>\n" +
		"                <version>Hoxton.SR4</version>\n" +
		"                <type>pom</type>\n" +
		"                <scope>import</scope>\n" +
		"            </dependency>"
	assert.Contains(t, pom, bom)
	assert.Less(t, strings.Index(pom, "<dependencyManagement>"), strings.Index(pom, "\n    <dependencies>"))

	binder := "        <dependency>\n" +
		"            <groupId>org.springframework.cloud</groupId>\n" +
		"            <artifactId>spring-cloud-stream-binder-rabbit</artifactId>\n" +
		"        </dependency>"
	assert.Contains(t, pom, binder)

	plugin := "            <plugin>\n" +
		"                <groupId>org.apache.maven.plugins</groupId>\n" +
		"                <artifactId>maven-surefire-plugin</artifactId>"
	assert.Contains(t, pom, plugin)
}

func TestGenerate_DefaultPomIsBuildable(t *testing.T) {
	req := newRequest(t, newLogSink(t, nil), "rabbit")

	_, err := NewGenerator(nil, nil).Generate(req)
	require.NoError(t, err)
	dir := filepath.Join(req.OutputFolder, "rabbit", "log-sink")
	pom := readFile(t, filepath.Join(dir, "pom.xml"))

	// The release train BOM manages the unversioned binder dependency
	trainBOM := "            <dependency>\n" +
		"                <groupId>org.springframework.cloud</groupId>\n" +
		"                <artifactId>spring-cloud-dependencies</artifactId>\n" +
		"                <version>" + catalog.DefaultSpringCloudVersion + "</version>\n" +
		"                <type>pom</type>\n" +
		"                <scope>import</scope>\n" +
		"            </dependency>"
	assert.Contains(t, pom, trainBOM)
	assert.Equal(t, 1, strings.Count(pom, "<dependencyManagement>"))

	testStarter := "        <dependency>\n" +
		"            <groupId>org.springframework.boot</groupId>\n" +
		"            <artifactId>spring-boot-starter-test</artifactId>\n" +
		"            <scope>test</scope>\n" +
		"        </dependency>"
	assert.Contains(t, pom, testStarter)
	assert.Less(t, strings.Index(pom, "<artifactId>log-consumer</artifactId>"), strings.Index(pom, testStarter))

	// No wrapper config without wrapper scripts
	assert.NoDirExists(t, filepath.Join(dir, ".mvn"))
	assert.NotContains(t, readFile(t, filepath.Join(dir, "README.md")), "mvnw")
}

func TestGenerate_SpringCloudVersion(t *testing.T) {
	req := newRequest(t, newLogSink(t, nil), "kafka")
	req.Catalog = req.Catalog.WithSpringCloudVersion("Hoxton.SR8")

	_, err := NewGenerator(nil, nil).Generate(req)
	require.NoError(t, err)

	pom := readFile(t, filepath.Join(req.OutputFolder, "kafka", "log-sink", "pom.xml"))
	assert.Contains(t, pom, "<version>Hoxton.SR8</version>")
	assert.NotContains(t, pom, catalog.DefaultSpringCloudVersion)
}

func TestGenerate_ExplicitTrainAndTestStarterNotDuplicated(t *testing.T) {
	app := newLogSink(t, func(b *catalog.AppBuilder) {
		b.ManagedDependencies(catalog.Dependency{
			GroupID:    "org.springframework.cloud",
			ArtifactID: "spring-cloud-dependencies",
			Version:    "Hoxton.SR4",
		}).Dependencies(catalog.Dependency{
			GroupID:    "org.springframework.boot",
			ArtifactID: "spring-boot-starter-test",
			Scope:      "test",
		})
	})
	req := newRequest(t, app, "rabbit")

	_, err := NewGenerator(nil, nil).Generate(req)
	require.NoError(t, err)

	pom := readFile(t, filepath.Join(req.OutputFolder, "rabbit", "log-sink", "pom.xml"))
	assert.Equal(t, 1, strings.Count(pom, "<artifactId>spring-cloud-dependencies</artifactId>"))
	assert.Equal(t, 1, strings.Count(pom, "<artifactId>spring-boot-starter-test</artifactId>"))
	assert.NotContains(t, pom, catalog.DefaultSpringCloudVersion)
}

func TestGenerate_ImageDisabled(t *testing.T) {
	app := newLogSink(t, func(b *catalog.AppBuilder) {
		b.ContainerImage(catalog.ContainerImageOCI, "springcloudstream").ContainerImageTag("latest")
	})
	req := newRequest(t, app, "rabbit", "kafka")

	_, err := NewGenerator(nil, nil).Generate(req)
	require.NoError(t, err)

	for path, content := range readTree(t, req.OutputFolder) {
		assert.NotContains(t, content, "jib-maven-plugin", path)
		assert.NotContains(t, content, "springcloudstream", path)
		assert.NotContains(t, content, "OCI", path)
	}
}

func TestGenerate_ImageTag(t *testing.T) {
	tests := []struct {
		name      string
		configure func(b *catalog.AppBuilder)
		wantImage string
		wantTag   string
		wantFmt   string
	}{
		{
			name: "defaults to version without org",
			configure: func(b *catalog.AppBuilder) {
				b.EnableContainerImageMetadata(true)
			},
			wantImage: "<image>log-sink-kafka</image>",
			wantTag:   "<tag>1.0.0</tag>",
			wantFmt:   "<format>Docker</format>",
		},
		{
			name: "explicit tag and format",
			configure: func(b *catalog.AppBuilder) {
				b.ContainerImage(catalog.ContainerImageOCI, "acme").ContainerImageTag("latest").EnableContainerImageMetadata(true)
			},
			wantImage: "<image>acme/log-sink-kafka</image>",
			wantTag:   "<tag>latest</tag>",
			wantFmt:   "<format>OCI</format>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := newRequest(t, newLogSink(t, tt.configure), "kafka")

			_, err := NewGenerator(nil, nil).Generate(req)
			require.NoError(t, err)

			pom := readFile(t, filepath.Join(req.OutputFolder, "kafka", "log-sink", "pom.xml"))
			assert.Contains(t, pom, tt.wantImage)
			assert.Contains(t, pom, tt.wantTag)
			assert.Contains(t, pom, tt.wantFmt)
		})
	}
}

func TestGenerate_GlobalDependenciesAppended(t *testing.T) {
	shared := catalog.Dependency{GroupID: "com.example", ArtifactID: "shared-lib", Version: "1.0"}
	app := newLogSink(t, func(b *catalog.AppBuilder) {
		b.Dependencies(shared)
	})
	req := newRequest(t, app, "rabbit")
	req.GlobalDependencies = []catalog.Dependency{
		{GroupID: "io.micrometer", ArtifactID: "micrometer-core"},
		shared,
	}

	_, err := NewGenerator(nil, nil).Generate(req)
	require.NoError(t, err)
	pom := readFile(t, filepath.Join(req.OutputFolder, "rabbit", "log-sink", "pom.xml"))

	assert.Equal(t, 2, strings.Count(pom, "<artifactId>shared-lib</artifactId>"))

	local := strings.Index(pom, "<artifactId>log-consumer</artifactId>")
	global := strings.Index(pom, "<artifactId>micrometer-core</artifactId>")
	assert.Less(t, local, global, "global dependencies follow the app's own")
}

func TestMergeDependencies(t *testing.T) {
	a := catalog.Dependency{GroupID: "g", ArtifactID: "a"}
	b := catalog.Dependency{GroupID: "g", ArtifactID: "b"}

	got := MergeDependencies([]catalog.Dependency{a, b}, []catalog.Dependency{b, a})
	want := []catalog.Dependency{a, b, b, a}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("MergeDependencies() mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, MergeDependencies(nil, nil))
}

func TestGenerate_PropertiesFiles(t *testing.T) {
	app := newLogSink(t, func(b *catalog.AppBuilder) {
		b.AdditionalProperties("server.port=8080", "log.expression=payload").
			MetadataSourceTypeFilters("com.example.LogSinkProperties", "com.example.Other").
			MetadataNameFilters("server.port")
	})
	req := newRequest(t, app, "rabbit")

	_, err := NewGenerator(nil, nil).Generate(req)
	require.NoError(t, err)
	resources := filepath.Join(req.OutputFolder, "rabbit", "log-sink", "src", "main", "resources")

	appProps, err := properties.LoadFile(filepath.Join(resources, "application.properties"), properties.UTF8)
	require.NoError(t, err)
	assert.Equal(t, []string{"server.port", "log.expression"}, appProps.Keys())

	metadata := properties.MustLoadFile(filepath.Join(resources, "META-INF", metadataFile), properties.UTF8)
	classes, _ := metadata.Get("configuration-properties.classes")
	names, _ := metadata.Get("configuration-properties.names")
	assert.Equal(t, "com.example.LogSinkProperties,com.example.Other", classes)
	assert.Equal(t, "server.port", names)
}

func TestGenerate_NoMetadataFileWithoutFilters(t *testing.T) {
	req := newRequest(t, newLogSink(t, nil), "rabbit")

	_, err := NewGenerator(nil, nil).Generate(req)
	require.NoError(t, err)

	dir := filepath.Join(req.OutputFolder, "rabbit", "log-sink")
	assert.NoFileExists(t, filepath.Join(dir, "src", "main", "resources", "META-INF", metadataFile))
	assert.NotContains(t, readFile(t, filepath.Join(dir, "pom.xml")), "<metadataFilter>")
}

func TestGenerate_DefaultPackageEntryPoint(t *testing.T) {
	app, err := catalog.NewAppBuilder("time-source", "2.0.0", catalog.AppTypeSource, "TimeSourceConfiguration").Build()
	require.NoError(t, err)
	req := newRequest(t, app, "kafka")

	_, err = NewGenerator(nil, nil).Generate(req)
	require.NoError(t, err)

	main := readFile(t, filepath.Join(req.OutputFolder, "kafka", "time-source", "src", "main", "java", "TimeSourceKafkaApplication.java"))
	assert.False(t, strings.HasPrefix(main, "package "), "class should be in the default package")
	assert.NotContains(t, main, "import TimeSourceConfiguration;")
	assert.Contains(t, main, "@Import(TimeSourceConfiguration.class)")
}

func TestGenerate_DuplicateBindersCollapse(t *testing.T) {
	req := newRequest(t, newLogSink(t, nil), "rabbit", "rabbit", " kafka ")

	result, err := NewGenerator(nil, nil).Generate(req)
	require.NoError(t, err)

	require.Len(t, result.Projects, 2)
	assert.Equal(t, "rabbit", result.Projects[0].Binder)
	assert.Equal(t, "kafka", result.Projects[1].Binder)
}

func TestGenerate_InvalidRequestWritesNothing(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *Request)
	}{
		{"no binders", func(r *Request) { r.Binders = nil }},
		{"blank binder", func(r *Request) { r.Binders = []string{"rabbit", " "} }},
		{"binder with separator", func(r *Request) { r.Binders = []string{"a/b"} }},
		{"binder with space", func(r *Request) { r.Binders = []string{"kafka streams"} }},
		{"binder with comma", func(r *Request) { r.Binders = []string{"rabbit,kafka"} }},
		{"no app", func(r *Request) { r.App = nil }},
		{"zero app", func(r *Request) { r.App = &catalog.AppDefinition{} }},
		{"zero catalog", func(r *Request) { r.Catalog = catalog.VersionCatalog{} }},
		{"global dependency without artifact", func(r *Request) {
			r.GlobalDependencies = []catalog.Dependency{{GroupID: "g"}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := newRequest(t, newLogSink(t, nil), "rabbit")
			tt.mutate(req)

			_, err := NewGenerator(nil, nil).Generate(req)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidRequest)
			assert.NoDirExists(t, req.OutputFolder)
		})
	}

	_, err := NewGenerator(nil, nil).Generate(nil)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestGenerate_OutputFolderIsFile(t *testing.T) {
	output := filepath.Join(t.TempDir(), "apps")
	require.NoError(t, os.WriteFile(output, []byte("not a directory"), 0644))

	req := newRequest(t, newLogSink(t, nil), "rabbit")
	req.OutputFolder = output

	_, err := NewGenerator(nil, nil).Generate(req)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGeneration)

	var genErr *GenerationError
	require.True(t, errors.As(err, &genErr))
	assert.Equal(t, "rabbit", genErr.Binder)
	assert.Contains(t, err.Error(), "project generation failure")
}

type failingWriter struct {
	*xmlutil.FragmentWriter
}

func (failingWriter) PluginXML(catalog.Plugin) (string, error) {
	return "", errors.New("boom")
}

func TestGenerate_SerializationFailure(t *testing.T) {
	app := newLogSink(t, func(b *catalog.AppBuilder) {
		b.Plugins(catalog.Plugin{GroupID: "g", ArtifactID: "p"})
	})
	req := newRequest(t, app, "rabbit")

	_, err := NewGenerator(failingWriter{xmlutil.NewFragmentWriter()}, nil).Generate(req)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGeneration)
	assert.NoDirExists(t, filepath.Join(req.OutputFolder, "rabbit"))
}

func TestGenerate_AggregatorKeepsExistingModules(t *testing.T) {
	req := newRequest(t, newLogSink(t, nil), "rabbit")
	require.NoError(t, os.MkdirAll(req.OutputFolder, 0755))

	existing := xmlutil.New(filepath.Join(req.OutputFolder, "pom.xml"), "project")
	existing.SetChildren("modules", "module", []string{"kafka/http-source", "rabbit/log-sink"})
	require.NoError(t, existing.Save())

	result, err := NewGenerator(nil, nil).Generate(req)
	require.NoError(t, err)

	aggregator, err := xmlutil.OpenExisting(result.Aggregator)
	require.NoError(t, err)
	assert.Equal(t, []string{"kafka/http-source", "rabbit/log-sink"}, aggregator.ChildValues("modules", "module"))
}

func TestGenerate_AggregatorReplacesMalformed(t *testing.T) {
	req := newRequest(t, newLogSink(t, nil), "rabbit")
	require.NoError(t, os.MkdirAll(req.OutputFolder, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(req.OutputFolder, "pom.xml"), []byte("<project><modules>"), 0644))

	result, err := NewGenerator(nil, nil).Generate(req)
	require.NoError(t, err)

	aggregator, err := xmlutil.OpenExisting(result.Aggregator)
	require.NoError(t, err)
	assert.Equal(t, []string{"rabbit/log-sink"}, aggregator.ChildValues("modules", "module"))
}

func TestNameHelpers(t *testing.T) {
	assert.Equal(t, "LogSink", camelCase("log-sink"))
	assert.Equal(t, "App2fa", camelCase("2fa"))
	assert.Equal(t, "org.springframework.cloud.stream.app.log.sink.rabbit", javaPackage("log-sink", "rabbit"))
	assert.Equal(t, "org.springframework.cloud.stream.app.s3.sink.kafka.streams", javaPackage("s3-sink", "kafka_streams"))

	packages := []struct {
		name, binder string
		want         string
	}{
		{"int-processor", "rabbit", "org.springframework.cloud.stream.app.int_.processor.rabbit"},
		{"new-source", "kafka", "org.springframework.cloud.stream.app.new_.source.kafka"},
		{"Class-Sink", "rabbit", "org.springframework.cloud.stream.app.class_.sink.rabbit"},
		{"null-sink", "default", "org.springframework.cloud.stream.app.null_.sink.default_"},
		{"2fa-source", "rabbit", "org.springframework.cloud.stream.app._2fa.source.rabbit"},
		{"interval-source", "rabbit", "org.springframework.cloud.stream.app.interval.source.rabbit"},
	}
	for _, tt := range packages {
		assert.Equal(t, tt.want, javaPackage(tt.name, tt.binder), tt.name)
	}
	assert.Equal(t, "IntProcessor", camelCase("int-processor"))

	pkg, simple := splitClassName("com.example.Foo")
	assert.Equal(t, "com.example", pkg)
	assert.Equal(t, "Foo", simple)
}
