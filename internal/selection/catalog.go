package selection

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default_catalog.yaml
var defaultCatalogYAML []byte

var (
	ErrEmptyCatalog    = errors.New("catalog has no categories")
	ErrInvalidCatalog  = errors.New("invalid catalog")
	ErrUnknownCategory = errors.New("unknown category")
	ErrUnknownRegion   = errors.New("unknown region")
	ErrNoCatalogSource = errors.New("no catalog source available")
)

// CatalogEntry is one selectable category or region. ID is the value sent to the
// backend; Label is only for display.
type CatalogEntry struct {
	ID    string `yaml:"id" json:"id"`
	Label string `yaml:"label,omitempty" json:"label,omitempty"`
}

// DisplayLabel returns Label, or the last "_"-separated segment of ID
// ("신축_일반개인_다중주택" -> "다중주택").
func (e CatalogEntry) DisplayLabel() string {
	if e.Label != "" {
		return e.Label
	}
	return ShortName(e.ID)
}

// ShortName trims a folder-style identifier down to its last segment.
func ShortName(id string) string {
	id = strings.TrimRight(id, "_")
	if i := strings.LastIndex(id, "_"); i >= 0 && i < len(id)-1 {
		return id[i+1:]
	}
	return id
}

// Catalog holds the closed sets a user can pick from. It is loaded as data so new
// categories never need a rebuild.
type Catalog struct {
	Categories     []CatalogEntry `yaml:"categories" json:"categories"`
	Regions        []CatalogEntry `yaml:"regions" json:"regions"`
	QuickQuestions []string       `yaml:"quick_questions" json:"quick_questions"`
}

// ParseCatalog decodes and validates a YAML catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadCatalogFile reads a YAML catalog from disk.
func LoadCatalogFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	c, err := ParseCatalog(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

// DefaultCatalog returns the catalog compiled into the binary.
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(defaultCatalogYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog is invalid: %v", err))
	}
	return c
}

// CatalogFromFolders builds a catalog whose categories are backend folder names.
// Regions and quick questions are taken from base when it is non-nil.
func CatalogFromFolders(folders []string, base *Catalog) (*Catalog, error) {
	c := &Catalog{}
	for _, f := range folders {
		f = strings.TrimSpace(f)
		if f == "" || strings.HasPrefix(f, ".") {
			continue
		}
		entry := CatalogEntry{ID: f}
		if base != nil {
			if known, ok := base.Category(f); ok {
				entry.Label = known.Label
			}
		}
		c.Categories = append(c.Categories, entry)
	}
	if base != nil {
		c.Regions = append([]CatalogEntry(nil), base.Regions...)
		c.QuickQuestions = append([]string(nil), base.QuickQuestions...)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) validate() error {
	if len(c.Categories) == 0 {
		return ErrEmptyCatalog
	}
	if err := uniqueIDs("category", c.Categories); err != nil {
		return err
	}
	return uniqueIDs("region", c.Regions)
}

func uniqueIDs(kind string, entries []CatalogEntry) error {
	seen := make(map[string]bool, len(entries))
	for i, e := range entries {
		if strings.TrimSpace(e.ID) == "" {
			return fmt.Errorf("%w: %s #%d has an empty id", ErrInvalidCatalog, kind, i+1)
		}
		if seen[e.ID] {
			return fmt.Errorf("%w: duplicate %s %q", ErrInvalidCatalog, kind, e.ID)
		}
		seen[e.ID] = true
	}
	return nil
}

// FirstCategory is the default selection on first mount.
func (c *Catalog) FirstCategory() (string, bool) {
	if c == nil || len(c.Categories) == 0 {
		return "", false
	}
	return c.Categories[0].ID, true
}

func (c *Catalog) Category(id string) (CatalogEntry, bool) {
	return find(c.Categories, id)
}

func (c *Catalog) Region(id string) (CatalogEntry, bool) {
	return find(c.Regions, id)
}

// CategoryLabel returns the display label for id, or id itself when it is not in the catalog.
func (c *Catalog) CategoryLabel(id string) string {
	if e, ok := c.Category(id); ok {
		return e.DisplayLabel()
	}
	return id
}

func find(entries []CatalogEntry, id string) (CatalogEntry, bool) {
	for _, e := range entries {
		if e.ID == id {
			return e, true
		}
	}
	return CatalogEntry{}, false
}

// ResolveCategory matches user input against an ID, a display label, or a 1-based index.
func (c *Catalog) ResolveCategory(input string) (CatalogEntry, error) {
	if e, ok := resolve(c.Categories, input); ok {
		return e, nil
	}
	return CatalogEntry{}, fmt.Errorf("%w: %q", ErrUnknownCategory, input)
}

func (c *Catalog) ResolveRegion(input string) (CatalogEntry, error) {
	if e, ok := resolve(c.Regions, input); ok {
		return e, nil
	}
	return CatalogEntry{}, fmt.Errorf("%w: %q", ErrUnknownRegion, input)
}

func resolve(entries []CatalogEntry, input string) (CatalogEntry, bool) {
	input = strings.TrimSpace(input)
	if input == "" {
		return CatalogEntry{}, false
	}
	if e, ok := find(entries, input); ok {
		return e, true
	}
	for _, e := range entries {
		if e.DisplayLabel() == input {
			return e, true
		}
	}
	if n, err := strconv.Atoi(input); err == nil && n >= 1 && n <= len(entries) {
		return entries[n-1], true
	}
	return CatalogEntry{}, false
}
