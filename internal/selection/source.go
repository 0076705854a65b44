package selection

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Yates-Labs/permitdesk/internal/logger"
	"github.com/patrickmn/go-cache"
)

// CatalogSource yields the category/region catalog.
type CatalogSource interface {
	Load(ctx context.Context) (*Catalog, error)
	Name() string
}

// FolderLister lists the document folders known to the backend.
type FolderLister interface {
	ListFolders(ctx context.Context) ([]string, error)
}

// FileSource reads a YAML catalog file on every Load.
type FileSource struct {
	Path string
}

func (s FileSource) Load(ctx context.Context) (*Catalog, error) {
	return LoadCatalogFile(s.Path)
}

func (s FileSource) Name() string {
	return "file:" + s.Path
}

// StaticSource always returns the same catalog.
type StaticSource struct {
	Catalog *Catalog
	Label   string
}

func (s StaticSource) Load(ctx context.Context) (*Catalog, error) {
	if s.Catalog == nil {
		return nil, ErrNoCatalogSource
	}
	return s.Catalog, nil
}

func (s StaticSource) Name() string {
	if s.Label != "" {
		return s.Label
	}
	return "static"
}

const foldersCacheKey = "folders"

// FolderSource builds the category list from the backend folder listing and
// reuses the result for ttl. Regions and quick questions come from Base.
type FolderSource struct {
	lister FolderLister
	base   *Catalog
	cache  *cache.Cache
}

func NewFolderSource(lister FolderLister, base *Catalog, ttl time.Duration) *FolderSource {
	return &FolderSource{
		lister: lister,
		base:   base,
		cache:  cache.New(ttl, 2*ttl),
	}
}

func (s *FolderSource) Load(ctx context.Context) (*Catalog, error) {
	if cached, found := s.cache.Get(foldersCacheKey); found {
		return cached.(*Catalog), nil
	}

	folders, err := s.lister.ListFolders(ctx)
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	c, err := CatalogFromFolders(folders, s.base)
	if err != nil {
		return nil, err
	}

	s.cache.Set(foldersCacheKey, c, cache.DefaultExpiration)
	return c, nil
}

// Invalidate drops the cached listing so the next Load asks the backend again.
func (s *FolderSource) Invalidate() {
	s.cache.Delete(foldersCacheKey)
}

func (s *FolderSource) Name() string {
	return "backend folders"
}

// ChainSource tries each source in order and returns the first catalog that loads.
type ChainSource struct {
	Sources []CatalogSource
	Log     logger.Logger
}

// Resolve returns the catalog and the name of the source that produced it.
func (s ChainSource) Resolve(ctx context.Context) (*Catalog, string, error) {
	var errs []error
	for _, src := range s.Sources {
		c, err := src.Load(ctx)
		if err == nil {
			return c, src.Name(), nil
		}
		if s.Log != nil {
			s.Log.Warn("selection", "catalog source failed", map[string]interface{}{
				"source": src.Name(),
				"error":  err.Error(),
			})
		}
		errs = append(errs, fmt.Errorf("%s: %w", src.Name(), err))
	}
	if len(errs) == 0 {
		return nil, "", ErrNoCatalogSource
	}
	return nil, "", errors.Join(errs...)
}
