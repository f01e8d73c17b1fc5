package generator

import (
	"fmt"
	"log/slog"
	"strings"

	"codeberg.org/streamapps/appgen/internal/catalog"
	"codeberg.org/streamapps/appgen/internal/whitelist"
)

// DefaultOutputFolder is used when neither the options nor the caller name one
const DefaultOutputFolder = "./apps"

// AssembleOptions override descriptor settings. Zero values keep the descriptor's.
type AssembleOptions struct {
	OutputFolder          string
	ResourcesDirectory    string
	Binders               []string
	RuntimeVersion        string
	MetadataPluginVersion string
	SpringCloudVersion    string
}

// Assemble turns a descriptor into a validated Request. The project's whitelist
// resource is folded into the metadata filters first; whitelist problems are
// logged and never fail the request.
func Assemble(d *catalog.Descriptor, opts AssembleOptions, logger *slog.Logger) (*Request, error) {
	if d == nil {
		return nil, fmt.Errorf("%w: descriptor is nil", ErrInvalidRequest)
	}
	if logger == nil {
		logger = slog.Default()
	}

	sourceTypes := whitelist.NewFilterSet(d.MetadataSourceTypeFilters...)
	names := whitelist.NewFilterSet(d.MetadataNameFilters...)
	res := whitelist.Reconcile(opts.ResourcesDirectory, sourceTypes, names)
	switch {
	case res.Failed():
		logger.Warn("Ignoring metadata whitelist", "status", res.Status.String(), "path", res.Path, "error", res.Err)
	case res.Status == whitelist.StatusLoaded:
		logger.Info("Loaded metadata whitelist", "path", res.Path,
			"sourceTypes", res.AddedSourceTypes, "names", res.AddedNames)
	default:
		logger.Debug("No metadata whitelist", "status", res.Status.String(), "path", res.Path)
	}

	appType, err := catalog.ParseAppType(d.Type)
	if err != nil {
		return nil, err
	}
	format, err := catalog.ParseContainerImageFormat(d.ContainerImage.Format)
	if err != nil {
		return nil, err
	}

	app, err := catalog.NewAppBuilder(d.Name, d.Version, appType, d.EntryPoint()).
		AdditionalProperties(d.AdditionalProperties...).
		MetadataSourceTypeFilters(sourceTypes.Values()...).
		MetadataNameFilters(names.Values()...).
		ManagedDependencies(d.BOMs...).
		Dependencies(d.Dependencies...).
		Plugins(d.Plugins...).
		ContainerImage(format, firstNonEmpty(strings.TrimSpace(d.ContainerImage.OrgName), catalog.DefaultContainerImageOrgName)).
		ContainerImageTag(d.ContainerImage.Tag).
		EnableContainerImageMetadata(d.ContainerImage.EnableMetadata).
		Build()
	if err != nil {
		return nil, err
	}

	runtime := firstNonEmpty(opts.RuntimeVersion, d.Versions.Runtime)
	metadataPlugin := firstNonEmpty(opts.MetadataPluginVersion, d.Versions.MetadataPlugin)
	versions := catalog.NewVersionCatalog(runtime, metadataPlugin).
		WithSpringCloudVersion(firstNonEmpty(opts.SpringCloudVersion, d.Versions.SpringCloud))

	binders := d.Binders
	if len(opts.Binders) > 0 {
		binders = opts.Binders
	}

	req := &Request{
		Catalog:            versions,
		App:                app,
		OutputFolder:       firstNonEmpty(opts.OutputFolder, DefaultOutputFolder),
		Binders:            append([]string(nil), binders...),
		ResourcesDirectory: opts.ResourcesDirectory,
		GlobalDependencies: append([]catalog.Dependency(nil), d.GlobalDependencies...),
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return req, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
