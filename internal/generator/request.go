package generator

import (
	"errors"
	"fmt"
	"strings"

	"codeberg.org/streamapps/appgen/internal/catalog"
)

var (
	// ErrInvalidRequest is returned before any output is written when a request is incomplete
	ErrInvalidRequest = errors.New("invalid generation request")

	// ErrGeneration marks a failure while writing generated projects
	ErrGeneration = errors.New("project generation failure")
)

// GenerationError reports the binder and file that failed to be written
type GenerationError struct {
	Binder string
	Path   string
	Err    error
}

func (e *GenerationError) Error() string {
	if e.Binder == "" {
		return fmt.Sprintf("%v: %s: %v", ErrGeneration, e.Path, e.Err)
	}
	return fmt.Sprintf("%v: binder %s: %s: %v", ErrGeneration, e.Binder, e.Path, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrGeneration) match any GenerationError
func (e *GenerationError) Is(target error) bool { return target == ErrGeneration }

// Request carries everything one generation run needs. It is assembled
// (and the whitelist reconciled) before it reaches the Generator.
type Request struct {
	Catalog      catalog.VersionCatalog
	App          *catalog.AppDefinition
	OutputFolder string
	// Binders lists one project per binder; duplicates collapse to the first occurrence
	Binders []string
	// ResourcesDirectory is the source project's resources dir; informational for the engine
	ResourcesDirectory string
	// GlobalDependencies are appended after the app's own dependencies
	GlobalDependencies []catalog.Dependency
}

// UniqueBinders returns the trimmed binder names in first-occurrence order
func (r *Request) UniqueBinders() []string {
	seen := make(map[string]struct{}, len(r.Binders))
	var out []string
	for _, b := range r.Binders {
		b = strings.TrimSpace(b)
		if b == "" {
			continue
		}
		if _, ok := seen[b]; ok {
			continue
		}
		seen[b] = struct{}{}
		out = append(out, b)
	}
	return out
}

// Validate checks the request without touching the filesystem
func (r *Request) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: request is nil", ErrInvalidRequest)
	}
	if err := validateApp(r.App); err != nil {
		return err
	}
	if r.Catalog.IsZero() {
		return fmt.Errorf("%w: version catalog is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(r.OutputFolder) == "" {
		return fmt.Errorf("%w: output folder is required", ErrInvalidRequest)
	}

	for _, b := range r.Binders {
		if strings.TrimSpace(b) == "" {
			return fmt.Errorf("%w: binder names must not be blank", ErrInvalidRequest)
		}
	}
	binders := r.UniqueBinders()
	if len(binders) == 0 {
		return fmt.Errorf("%w: at least one binder is required", ErrInvalidRequest)
	}
	for _, b := range binders {
		if !catalog.IsPathSegment(b) {
			return fmt.Errorf("%w: binder %q must be a single path segment without spaces, commas or colons", ErrInvalidRequest, b)
		}
	}

	for _, d := range r.GlobalDependencies {
		if d.GroupID == "" || d.ArtifactID == "" {
			return fmt.Errorf("%w: global dependency %q needs groupId and artifactId", ErrInvalidRequest, d.Coordinates())
		}
	}
	return nil
}

// validateApp rejects definitions that did not come out of AppBuilder.Build,
// such as a zero AppDefinition.
func validateApp(app *catalog.AppDefinition) error {
	switch {
	case app == nil:
		return fmt.Errorf("%w: app definition is required", ErrInvalidRequest)
	case !catalog.IsPathSegment(app.Name()):
		return fmt.Errorf("%w: app name %q must be a single path segment", ErrInvalidRequest, app.Name())
	case strings.TrimSpace(app.Version()) == "":
		return fmt.Errorf("%w: app version is required", ErrInvalidRequest)
	case strings.TrimSpace(app.EntryPointClass()) == "":
		return fmt.Errorf("%w: app entry point class is required", ErrInvalidRequest)
	}
	if _, err := catalog.ParseAppType(string(app.Type())); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}

// MergeDependencies appends global after local. Identical coordinates are
// kept as-is; no entry is dropped or deduplicated.
func MergeDependencies(local, global []catalog.Dependency) []catalog.Dependency {
	merged := make([]catalog.Dependency, 0, len(local)+len(global))
	merged = append(merged, local...)
	merged = append(merged, global...)
	return merged
}
