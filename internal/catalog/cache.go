package catalog

import (
	"fmt"
	"os"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize bounds the number of parsed descriptors kept in memory
const DefaultCacheSize = 256

type cachedDescriptor struct {
	modTime    time.Time
	size       int64
	descriptor *Descriptor
}

// CachedLoader loads descriptors like Loader but keeps parsed results keyed by
// path. An entry is reused while the file's modification time and size are
// unchanged. Callers get a copy they may modify.
type CachedLoader struct {
	loader *Loader
	cache  *lru.Cache[string, cachedDescriptor]
}

// NewCachedLoader creates a loader caching up to size descriptors.
// A non-positive size uses DefaultCacheSize.
func NewCachedLoader(appsDir string, size int) (*CachedLoader, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, cachedDescriptor](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create descriptor cache: %w", err)
	}
	return &CachedLoader{
		loader: NewLoader(appsDir),
		cache:  cache,
	}, nil
}

// LoadAll loads every descriptor below the apps directory, parsing only
// files that changed since they were last seen.
func (c *CachedLoader) LoadAll() ([]*Descriptor, error) {
	return loadAll(c.loader.appsDir, c.LoadFile)
}

// LoadFile returns the cached descriptor for filePath or parses it
func (c *CachedLoader) LoadFile(filePath string) (*Descriptor, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	if entry, ok := c.cache.Get(filePath); ok &&
		entry.modTime.Equal(info.ModTime()) && entry.size == info.Size() {
		return entry.descriptor.clone(), nil
	}

	d, err := c.loader.LoadFile(filePath)
	if err != nil {
		c.cache.Remove(filePath)
		return nil, err
	}

	c.cache.Add(filePath, cachedDescriptor{
		modTime:    info.ModTime(),
		size:       info.Size(),
		descriptor: d,
	})
	return d.clone(), nil
}

// Len returns the number of cached descriptors
func (c *CachedLoader) Len() int {
	return c.cache.Len()
}

// clone deep-copies the descriptor, keeping nil slices nil
func (d *Descriptor) clone() *Descriptor {
	cp := *d
	cp.AdditionalProperties = append([]string(nil), d.AdditionalProperties...)
	cp.MetadataSourceTypeFilters = append([]string(nil), d.MetadataSourceTypeFilters...)
	cp.MetadataNameFilters = append([]string(nil), d.MetadataNameFilters...)
	cp.Binders = append([]string(nil), d.Binders...)
	if d.BOMs != nil {
		cp.BOMs = cloneDependencies(d.BOMs)
	}
	if d.Dependencies != nil {
		cp.Dependencies = cloneDependencies(d.Dependencies)
	}
	if d.GlobalDependencies != nil {
		cp.GlobalDependencies = cloneDependencies(d.GlobalDependencies)
	}
	if d.Plugins != nil {
		cp.Plugins = clonePlugins(d.Plugins)
	}
	return &cp
}
