package cart

import (
	"sync"

	"storefront/internal/models"
)

// Cart aggregates line items keyed by (product id, customization note).
// Two lines for the same product with different notes are distinct entries.
// A line never exists with quantity below 1; reaching 0 removes it.
type Cart struct {
	mu    sync.Mutex
	lines []models.CartLine
}

// New creates an empty cart.
func New() *Cart {
	return &Cart{}
}

// AddLine merges the product into an existing line with the same
// (product id, note) or appends a new line with quantity 1.
func (c *Cart) AddLine(p models.Product, note string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.lines {
		if c.lines[i].ProductID == p.ID && c.lines[i].Note == note {
			c.lines[i].Quantity++
			return
		}
	}

	c.lines = append(c.lines, models.CartLine{
		ProductID: p.ID,
		Name:      p.Name,
		Price:     p.Price,
		Image:     p.Image,
		Category:  p.Category,
		Quantity:  1,
		Note:      note,
	})
}

// ChangeQuantity adjusts the matching line by delta, clamped at 0. A line
// reaching 0 is dropped. Missing lines are a no-op.
func (c *Cart) ChangeQuantity(productID, note string, delta int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.lines {
		if c.lines[i].ProductID == productID && c.lines[i].Note == note {
			q := c.lines[i].Quantity + delta
			if q <= 0 {
				c.lines = append(c.lines[:i], c.lines[i+1:]...)
			} else {
				c.lines[i].Quantity = q
			}
			return
		}
	}
}

// RemoveLine drops the matching line regardless of quantity.
func (c *Cart) RemoveLine(productID, note string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.lines {
		if c.lines[i].ProductID == productID && c.lines[i].Note == note {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			return
		}
	}
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = nil
}

// Replace swaps the cart contents wholesale (used when restoring a
// persisted cart snapshot).
func (c *Cart) Replace(lines []models.CartLine) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append([]models.CartLine(nil), lines...)
}

// Lines returns a copy of the current line items.
func (c *Cart) Lines() []models.CartLine {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]models.CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

// Subtotal recomputes sum(price * quantity) over current lines on demand.
func (c *Cart) Subtotal() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	var total int64
	for _, l := range c.lines {
		total += l.Price * int64(l.Quantity)
	}
	return total
}

// ItemCount recomputes the total quantity over current lines on demand.
func (c *Cart) ItemCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	var n int
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}
