package cart

import (
	"testing"

	"storefront/internal/models"

	"github.com/stretchr/testify/assert"
)

var (
	burger = models.Product{ID: "p1", Name: "Smash Burger Duplo", Price: 3290, Category: "burgers"}
	coke   = models.Product{ID: "p2", Name: "Coca-Cola Lata 350ml", Price: 600, Category: "drinks"}
)

func TestAddLineMergesByProductAndNote(t *testing.T) {
	c := New()

	c.AddLine(burger, "")
	c.AddLine(burger, "")
	c.AddLine(burger, "sem cebola")

	lines := c.Lines()
	assert.Len(t, lines, 2)
	assert.Equal(t, 2, lines[0].Quantity)
	assert.Equal(t, 1, lines[1].Quantity)
	assert.Equal(t, "sem cebola", lines[1].Note)
}

func TestChangeQuantityClampAndRemove(t *testing.T) {
	c := New()
	c.AddLine(burger, "")
	c.AddLine(coke, "")

	c.ChangeQuantity("p1", "", 2)
	assert.Equal(t, 3, c.Lines()[0].Quantity)

	// dropping to zero removes the line, never keeps it at 0
	c.ChangeQuantity("p1", "", -5)
	lines := c.Lines()
	assert.Len(t, lines, 1)
	assert.Equal(t, "p2", lines[0].ProductID)

	// missing line is a no-op
	c.ChangeQuantity("nope", "", 1)
	assert.Len(t, c.Lines(), 1)
}

func TestNoLineEverBelowOne(t *testing.T) {
	c := New()
	ops := []func(){
		func() { c.AddLine(burger, "") },
		func() { c.ChangeQuantity("p1", "", -1) },
		func() { c.AddLine(coke, "x") },
		func() { c.ChangeQuantity("p2", "x", -3) },
		func() { c.AddLine(burger, "") },
		func() { c.ChangeQuantity("p1", "", 4) },
		func() { c.RemoveLine("p1", "") },
		func() { c.AddLine(coke, "") },
	}
	for _, op := range ops {
		op()
		for _, l := range c.Lines() {
			assert.GreaterOrEqual(t, l.Quantity, 1)
		}
	}
}

func TestSubtotalRecomputedFresh(t *testing.T) {
	c := New()
	c.AddLine(burger, "")
	before := c.Subtotal()

	c.AddLine(coke, "")
	c.AddLine(coke, "")
	assert.Equal(t, before+2*600, c.Subtotal())

	// adding then fully removing a line returns subtotal to its prior value
	c.ChangeQuantity("p2", "", -2)
	assert.Equal(t, before, c.Subtotal())
}

func TestItemCount(t *testing.T) {
	c := New()
	assert.Equal(t, 0, c.ItemCount())

	c.AddLine(burger, "")
	c.AddLine(burger, "")
	c.AddLine(coke, "")
	assert.Equal(t, 3, c.ItemCount())
	assert.Equal(t, int64(2*3290+600), c.Subtotal())
}

func TestResolveFee(t *testing.T) {
	zones := []models.DeliveryZone{
		{ID: "z1", Name: "Centro", Fee: 590, Active: true},
		{ID: "z2", Name: "Jardins", Fee: 890, Active: false},
	}

	assert.Equal(t, int64(0), ResolveFee(models.ModePickup, "Centro", zones))
	assert.Equal(t, int64(590), ResolveFee(models.ModeDelivery, "Centro", zones))
	// inactive zones are not selectable
	assert.Equal(t, int64(0), ResolveFee(models.ModeDelivery, "Jardins", zones))
	// no zone selected is a pass-through, not an error
	assert.Equal(t, int64(0), ResolveFee(models.ModeDelivery, "", zones))
}

func TestPriceOut(t *testing.T) {
	c := New()
	c.AddLine(burger, "")
	c.AddLine(burger, "")

	zones := []models.DeliveryZone{{ID: "z1", Name: "Centro", Fee: 590, Active: true}}
	q := PriceOut(c.Lines(), models.ModeDelivery, "Centro", zones)

	assert.Equal(t, int64(6580), q.Subtotal)
	assert.Equal(t, int64(590), q.DeliveryFee)
	assert.Equal(t, int64(7170), q.Total)
}

func TestPriceOutIgnoresLaterCartEdits(t *testing.T) {
	c := New()
	c.AddLine(burger, "")
	snapshot := c.Lines()

	// an edit landing after the snapshot must not leak into the quote
	c.AddLine(models.Product{ID: "p2", Name: "Coca-Cola", Price: 600}, "")

	q := PriceOut(snapshot, models.ModePickup, "", nil)
	assert.Equal(t, int64(3290), q.Subtotal)
	assert.Equal(t, int64(3290), q.Total)
}
