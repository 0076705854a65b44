package selection

import (
	"fmt"
	"sync"
)

// Picker is the only writer of a State. It validates user choices against the
// current catalog. State listeners never run while mu is held, so they may
// call back into the Picker.
type Picker struct {
	state *State
	bus   *InteractionBus

	mu       sync.Mutex
	catalog  *Catalog
	dropdown *Dropdown
}

func NewPicker(state *State, catalog *Catalog, bus *InteractionBus) *Picker {
	if bus == nil {
		bus = NewInteractionBus()
	}
	return &Picker{state: state, catalog: catalog, bus: bus}
}

// Mount selects the first catalog category when none is selected yet.
func (p *Picker) Mount() error {
	p.mu.Lock()
	first, ok := p.catalog.FirstCategory()
	p.mu.Unlock()

	var empty bool
	p.state.update(func(current FilterSelection) (FilterSelection, bool) {
		if current.HasCategory() {
			return current, false
		}
		if !ok {
			empty = true
			return current, false
		}
		current.Category = &first
		return current, true
	})
	if empty {
		return ErrEmptyCatalog
	}
	return nil
}

// Unmount closes any open dropdown.
func (p *Picker) Unmount() {
	p.mu.Lock()
	d := p.dropdown
	p.mu.Unlock()
	if d != nil {
		d.Close()
	}
}

func (p *Picker) Catalog() *Catalog {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.catalog
}

// SetCatalog swaps the catalog, e.g. after the catalog file changed. The current
// selection is kept even if it is no longer listed; an empty selection is
// re-defaulted to the new first category.
func (p *Picker) SetCatalog(c *Catalog) {
	p.mu.Lock()
	p.catalog = c
	p.mu.Unlock()
	_ = p.Mount()
}

// SelectCategory accepts an ID, a label or a 1-based index.
func (p *Picker) SelectCategory(input string) error {
	p.mu.Lock()
	entry, err := p.catalog.ResolveCategory(input)
	p.mu.Unlock()
	if err != nil {
		return err
	}
	p.state.update(func(current FilterSelection) (FilterSelection, bool) {
		current.Category = &entry.ID
		return current, true
	})
	return nil
}

// SelectRegion sets the region; nil clears it and is always legal.
func (p *Picker) SelectRegion(input *string) error {
	var region *string
	if input != nil {
		p.mu.Lock()
		entry, err := p.catalog.ResolveRegion(*input)
		p.mu.Unlock()
		if err != nil {
			return err
		}
		region = &entry.ID
	}
	p.state.update(func(current FilterSelection) (FilterSelection, bool) {
		current.Region = region
		return current, true
	})
	return nil
}

// DropdownKind says which half of the filter pair a dropdown edits.
type DropdownKind string

const (
	CategoryDropdown DropdownKind = "category"
	RegionDropdown   DropdownKind = "region"
)

// Open opens a dropdown for kind. Only one dropdown is open at a time: opening
// the same kind again returns the open one, opening the other kind closes it first.
func (p *Picker) Open(kind DropdownKind) *Dropdown {
	p.mu.Lock()
	if d := p.dropdown; d != nil {
		if d.kind == kind && d.IsOpen() {
			p.mu.Unlock()
			return d
		}
		p.mu.Unlock()
		d.Close()
		p.mu.Lock()
	}

	d := &Dropdown{picker: p, kind: kind, open: true}
	d.unsubscribe = p.bus.Subscribe(func(i Interaction) {
		if i.Target != d.Target() {
			d.Close()
		}
	})
	p.dropdown = d
	p.mu.Unlock()
	return d
}

// Bus returns the interaction bus dropdowns listen on.
func (p *Picker) Bus() *InteractionBus {
	return p.bus
}

// Dropdown is an open choice list. While open it holds exactly one subscription
// on the interaction bus; any interaction targeting something else closes it.
type Dropdown struct {
	picker      *Picker
	kind        DropdownKind
	unsubscribe func()

	mu   sync.Mutex
	open bool
}

func (d *Dropdown) Kind() DropdownKind {
	return d.kind
}

// Target is the interaction target that counts as "inside" this dropdown.
func (d *Dropdown) Target() string {
	return "dropdown:" + string(d.kind)
}

func (d *Dropdown) IsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.open
}

// Options lists the entries for this dropdown's kind.
func (d *Dropdown) Options() []CatalogEntry {
	c := d.picker.Catalog()
	if d.kind == CategoryDropdown {
		return append([]CatalogEntry(nil), c.Categories...)
	}
	return append([]CatalogEntry(nil), c.Regions...)
}

// Selected returns the ID currently selected for this dropdown's kind.
func (d *Dropdown) Selected() string {
	current := d.picker.state.Current()
	if d.kind == CategoryDropdown {
		return current.CategoryValue()
	}
	return current.RegionValue()
}

// Choose applies a choice and closes the dropdown. An unknown choice leaves it open.
func (d *Dropdown) Choose(input string) error {
	if !d.IsOpen() {
		return fmt.Errorf("%s dropdown is closed", d.kind)
	}
	var err error
	if d.kind == CategoryDropdown {
		err = d.picker.SelectCategory(input)
	} else {
		err = d.picker.SelectRegion(&input)
	}
	if err != nil {
		return err
	}
	d.Close()
	return nil
}

// Close tears down the bus subscription. Safe to call repeatedly.
func (d *Dropdown) Close() {
	d.mu.Lock()
	if !d.open {
		d.mu.Unlock()
		return
	}
	d.open = false
	unsubscribe := d.unsubscribe
	d.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}

	d.picker.mu.Lock()
	if d.picker.dropdown == d {
		d.picker.dropdown = nil
	}
	d.picker.mu.Unlock()
}
