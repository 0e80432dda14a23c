// Package cart aggregates listings into cart lines and keeps the total in
// step with them.
package cart

import (
	"sync"

	"tiendaza/internal/domain"
	"tiendaza/internal/observe"
)

type Line struct {
	Listing  domain.Listing `json:"listing"`
	Quantity int            `json:"quantity"`
}

func (l Line) Subtotal() int64 { return l.Listing.Price * int64(l.Quantity) }

// Snapshot is what observers see after each command: the lines, their
// total and the unit count, always computed together.
type Snapshot struct {
	Lines     []Line `json:"lines"`
	Total     int64  `json:"total"`
	ItemCount int    `json:"itemCount"`
}

func (s Snapshot) clone() Snapshot {
	s.Lines = append([]Line{}, s.Lines...)
	return s
}

type Cart struct {
	mu    sync.Mutex
	lines []Line
	state *observe.Value[Snapshot]
}

func New() *Cart {
	return &Cart{state: observe.NewValue(Snapshot{Lines: []Line{}})}
}

// Add merges into the existing line for the listing id or appends a new one.
func (c *Cart) Add(l domain.Listing) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.index(l.ID); i >= 0 {
		c.lines[i].Quantity++
	} else {
		c.lines = append(c.lines, Line{Listing: l, Quantity: 1})
	}
	c.publish()
}

func (c *Cart) Remove(listingID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.remove(listingID)
	c.publish()
}

// UpdateQuantity sets the line quantity; zero or less removes the line.
func (c *Cart) UpdateQuantity(listingID int64, qty int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if qty <= 0 {
		c.remove(listingID)
	} else if i := c.index(listingID); i >= 0 {
		c.lines[i].Quantity = qty
	}
	c.publish()
}

func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = nil
	c.publish()
}

func (c *Cart) Snapshot() Snapshot { return c.state.Get().clone() }
func (c *Cart) Lines() []Line      { return c.Snapshot().Lines }
func (c *Cart) Total() int64       { return c.state.Get().Total }

// ItemCount is the number of units in the cart, not the number of lines.
func (c *Cart) ItemCount() int { return c.state.Get().ItemCount }

// Subscribe calls fn with the current snapshot and after every command.
func (c *Cart) Subscribe(fn func(Snapshot)) (cancel func()) {
	return c.state.Subscribe(func(s Snapshot) { fn(s.clone()) })
}

func (c *Cart) index(id int64) int {
	for i, ln := range c.lines {
		if ln.Listing.ID == id {
			return i
		}
	}
	return -1
}

func (c *Cart) remove(id int64) {
	if i := c.index(id); i >= 0 {
		c.lines = append(c.lines[:i:i], c.lines[i+1:]...)
	}
}

// publish must be called with mu held.
func (c *Cart) publish() {
	snap := Snapshot{Lines: append([]Line{}, c.lines...)}
	for _, ln := range c.lines {
		snap.Total += ln.Subtotal()
		snap.ItemCount += ln.Quantity
	}
	c.state.Set(snap)
}
