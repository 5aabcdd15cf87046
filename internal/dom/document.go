package dom

import (
	"sort"
	"sync"
)

// Document is a registry of mounted elements keyed by ID.
type Document struct {
	mu       sync.RWMutex
	elements map[string]*Element
}

// NewDocument creates an empty document.
func NewDocument() *Document {
	return &Document{
		elements: make(map[string]*Element),
	}
}

// Mount adds el to the document, replacing any element with the same ID.
func (d *Document) Mount(el *Element) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.elements[el.ID()] = el
}

// Unmount removes the element with the given ID and returns it, or nil if absent.
func (d *Document) Unmount(id string) *Element {
	d.mu.Lock()
	defer d.mu.Unlock()
	el := d.elements[id]
	delete(d.elements, id)
	return el
}

// GetElementByID returns the mounted element with the given ID.
func (d *Document) GetElementByID(id string) (*Element, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	el, ok := d.elements[id]
	if !ok {
		return nil, &ElementNotFoundError{ID: id}
	}
	return el, nil
}

// Has reports whether an element with the given ID is mounted.
func (d *Document) Has(id string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.elements[id]
	return ok
}

// IDs returns the sorted IDs of all mounted elements.
func (d *Document) IDs() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ids := make([]string, 0, len(d.elements))
	for id := range d.elements {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of mounted elements.
func (d *Document) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.elements)
}

// ErrElementNotFound is matched by errors.Is for every ElementNotFoundError.
var ErrElementNotFound = domError("element not found")

// ElementNotFoundError is returned when no element is mounted under an ID.
type ElementNotFoundError struct {
	ID string
}

func (e *ElementNotFoundError) Error() string {
	return "element not found: " + e.ID
}

// Is reports whether target is ErrElementNotFound.
func (e *ElementNotFoundError) Is(target error) bool {
	return target == ErrElementNotFound
}

type domError string

func (e domError) Error() string {
	return string(e)
}
