package whitelist

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/magiconair/properties"
)

const (
	// FileName is the whitelist resource looked up under <resources>/META-INF
	FileName = "dataflow-configuration-metadata-whitelist.properties"

	// ClassesKey holds the comma-separated configuration-property class filters
	ClassesKey = "configuration-properties.classes"

	// NamesKey holds the comma-separated configuration-property name filters
	NamesKey = "configuration-properties.names"

	metaInfDir = "META-INF"
)

// Status describes what Reconcile found
type Status int

const (
	StatusNoResourcesDir Status = iota
	StatusNoFile
	StatusLoaded
	StatusReadError
	StatusParseError
)

func (s Status) String() string {
	switch s {
	case StatusNoResourcesDir:
		return "no-resources-dir"
	case StatusNoFile:
		return "no-file"
	case StatusLoaded:
		return "loaded"
	case StatusReadError:
		return "read-error"
	case StatusParseError:
		return "parse-error"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Result is the outcome of a best-effort whitelist read.
// Err is set only for StatusReadError and StatusParseError.
type Result struct {
	Status           Status
	Path             string
	AddedSourceTypes int
	AddedNames       int
	Err              error
}

// Failed reports whether the whitelist existed but could not be used
func (r Result) Failed() bool {
	return r.Status == StatusReadError || r.Status == StatusParseError
}

// Path returns the whitelist location for a resources directory
func Path(resourcesDir string) string {
	return filepath.Join(resourcesDir, metaInfDir, FileName)
}

// Reconcile folds the filters declared in the project's whitelist resource into
// sourceTypeFilters and nameFilters. It never fails: problems are reported in
// the Result and leave both sets untouched.
func Reconcile(resourcesDir string, sourceTypeFilters, nameFilters *FilterSet) Result {
	if resourcesDir == "" {
		return Result{Status: StatusNoResourcesDir}
	}
	if info, err := os.Stat(resourcesDir); err != nil || !info.IsDir() {
		return Result{Status: StatusNoResourcesDir, Path: resourcesDir}
	}

	path := Path(resourcesDir)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Result{Status: StatusNoFile, Path: path}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Result{Status: StatusReadError, Path: path, Err: fmt.Errorf("reading whitelist: %w", err)}
	}

	// Properties files are ISO-8859-1 by definition; ${...} is literal filter text
	loader := &properties.Loader{Encoding: properties.ISO_8859_1, DisableExpansion: true}
	props, err := loader.LoadBytes(data)
	if err != nil {
		return Result{Status: StatusParseError, Path: path, Err: fmt.Errorf("parsing whitelist: %w", err)}
	}

	res := Result{Status: StatusLoaded, Path: path}
	if classes, ok := props.Get(ClassesKey); ok {
		res.AddedSourceTypes = sourceTypeFilters.AddCSV(classes)
	}
	if names, ok := props.Get(NamesKey); ok {
		res.AddedNames = nameFilters.AddCSV(names)
	}
	return res
}
