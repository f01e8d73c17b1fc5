package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"codeberg.org/streamapps/appgen/internal/catalog"
	"codeberg.org/streamapps/appgen/internal/config"
	"codeberg.org/streamapps/appgen/internal/generator"
	"github.com/peterbourgon/ff/v3"
)

// generateOptions are the flags of the generate subcommand. Each can also be
// set through an APPGEN_ prefixed environment variable.
type generateOptions struct {
	App                   string
	Binders               string
	Out                   string
	Resources             string
	BootVersion           string
	MetadataPluginVersion string
	SpringCloudVersion    string
	LogLevel              string
	JSON                  bool
}

// runGenerate handles the "generate" subcommand
// Usage:
//
//	appgen generate -app apps/log-sink/app.yaml [-binders kafka,rabbit] [-out ./apps]
func runGenerate(args []string) int {
	return generateMain(args, os.Stdout, os.Stderr)
}

func generateMain(args []string, stdout, stderr io.Writer) int {
	var opts generateOptions
	fs := flag.NewFlagSet("appgen generate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.App, "app", "", "Path to the app descriptor (app.yaml)")
	fs.StringVar(&opts.Binders, "binders", "", "Comma-separated binders, overriding the descriptor's list")
	fs.StringVar(&opts.Out, "out", generator.DefaultOutputFolder, "Output folder for the generated projects")
	fs.StringVar(&opts.Resources, "resources", "", "Resources directory holding META-INF/ (default: <descriptor dir>/resources)")
	fs.StringVar(&opts.BootVersion, "boot-version", "", "Spring Boot parent version override")
	fs.StringVar(&opts.MetadataPluginVersion, "metadata-plugin-version", "", "Metadata plugin version override")
	fs.StringVar(&opts.SpringCloudVersion, "spring-cloud-version", "", "Spring Cloud release train override")
	fs.StringVar(&opts.LogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	fs.BoolVar(&opts.JSON, "json", false, "Print the result as JSON")

	if err := ff.Parse(fs, args, ff.WithEnvVarPrefix("APPGEN")); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	level, err := config.ParseLogLevel(opts.LogLevel)
	if err != nil {
		fmt.Fprintf(stderr, "invalid -log-level: %v\n", err)
		return 2
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{
		Level: level,
	}))

	if opts.App == "" {
		fmt.Fprintln(stderr, "-app is required")
		fs.Usage()
		return 2
	}

	d, err := catalog.NewLoader("").LoadFile(opts.App)
	if err != nil {
		logger.Error("failed to load descriptor", "path", opts.App, "error", err)
		return 1
	}

	resources := opts.Resources
	if resources == "" {
		resources = filepath.Join(filepath.Dir(opts.App), "resources")
	}

	var binders []string
	for _, b := range strings.Split(opts.Binders, ",") {
		if b = strings.TrimSpace(b); b != "" {
			binders = append(binders, b)
		}
	}

	req, err := generator.Assemble(d, generator.AssembleOptions{
		OutputFolder:          opts.Out,
		ResourcesDirectory:    resources,
		Binders:               binders,
		RuntimeVersion:        opts.BootVersion,
		MetadataPluginVersion: opts.MetadataPluginVersion,
		SpringCloudVersion:    opts.SpringCloudVersion,
	}, logger)
	if err != nil {
		logger.Error("invalid generation request", "error", err)
		return 1
	}

	result, err := generator.NewGenerator(nil, logger).Generate(req)
	if err != nil {
		logger.Error("generation failed", "error", err)
		return 1
	}

	if opts.JSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			logger.Error("failed to encode result", "error", err)
			return 1
		}
		return 0
	}

	for _, p := range result.Projects {
		fmt.Fprintf(stdout, "%s\t%s\n", p.Binder, p.Dir)
	}
	fmt.Fprintf(stdout, "aggregator\t%s\n", result.Aggregator)
	return 0
}
