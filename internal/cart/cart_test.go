package cart_test

import (
	"math/rand"
	"testing"

	"tiendaza/internal/cart"
	"tiendaza/internal/domain"
)

var (
	listingA = domain.Listing{ID: 1, Title: "Bicicleta", Price: 999}
	listingB = domain.Listing{ID: 2, Title: "Lampara", Price: 899}
)

func recomputed(lines []cart.Line) (total int64, units int) {
	for _, ln := range lines {
		total += ln.Listing.Price * int64(ln.Quantity)
		units += ln.Quantity
	}
	return total, units
}

func TestCart_AddMergesAndTotals(t *testing.T) {
	c := cart.New()
	c.Add(listingA)
	c.Add(listingB)
	if c.Total() != 1898 || c.ItemCount() != 2 {
		t.Fatalf("want 1898/2, got %d/%d", c.Total(), c.ItemCount())
	}

	c.Add(listingA)
	if c.Total() != 2897 || c.ItemCount() != 3 {
		t.Fatalf("want 2897/3, got %d/%d", c.Total(), c.ItemCount())
	}
	lines := c.Lines()
	if len(lines) != 2 {
		t.Fatalf("want 2 lines, got %d", len(lines))
	}
	if lines[0].Listing.ID != listingA.ID || lines[0].Quantity != 2 {
		t.Fatalf("first line should be A x2, got %+v", lines[0])
	}
	if lines[1].Listing.ID != listingB.ID || lines[1].Quantity != 1 {
		t.Fatalf("second line should be B x1, got %+v", lines[1])
	}
}

func TestCart_UpdateQuantityNonPositiveRemoves(t *testing.T) {
	for _, q := range []int{0, -5} {
		c := cart.New()
		c.Add(listingA)
		c.Add(listingB)
		c.UpdateQuantity(listingA.ID, q)

		lines := c.Lines()
		if len(lines) != 1 || lines[0].Listing.ID != listingB.ID {
			t.Fatalf("qty %d: want only B left, got %+v", q, lines)
		}
		if c.Total() != 899 {
			t.Fatalf("qty %d: want total 899, got %d", q, c.Total())
		}
	}
}

func TestCart_UpdateQuantitySetsValue(t *testing.T) {
	c := cart.New()
	c.Add(listingA)
	c.UpdateQuantity(listingA.ID, 40)
	if c.ItemCount() != 40 || c.Total() != 40*999 {
		t.Fatalf("got %d units, total %d", c.ItemCount(), c.Total())
	}

	c.UpdateQuantity(99, 3)
	if c.ItemCount() != 40 || len(c.Lines()) != 1 {
		t.Fatalf("update of absent id changed cart: %+v", c.Snapshot())
	}
}

func TestCart_RemoveAbsentIsNoop(t *testing.T) {
	c := cart.New()
	c.Add(listingA)
	before := c.Snapshot()

	c.Remove(42)
	after := c.Snapshot()
	if after.Total != before.Total || after.ItemCount != before.ItemCount || len(after.Lines) != len(before.Lines) {
		t.Fatalf("state changed: before=%+v after=%+v", before, after)
	}
}

func TestCart_Clear(t *testing.T) {
	c := cart.New()
	c.Add(listingA)
	c.Add(listingB)
	c.Add(listingB)
	c.Clear()

	s := c.Snapshot()
	if len(s.Lines) != 0 || s.Total != 0 || s.ItemCount != 0 {
		t.Fatalf("want empty cart, got %+v", s)
	}

	// clearing an empty cart is fine too
	c.Clear()
	if c.Total() != 0 {
		t.Fatalf("want 0, got %d", c.Total())
	}
}

func TestCart_SubscribersSeeConsistentSnapshots(t *testing.T) {
	c := cart.New()
	var got []cart.Snapshot
	cancel := c.Subscribe(func(s cart.Snapshot) { got = append(got, s) })
	defer cancel()

	c.Add(listingA)
	c.Add(listingB)
	c.UpdateQuantity(listingB.ID, 3)
	c.Remove(listingA.ID)
	c.Clear()

	if len(got) != 6 {
		t.Fatalf("want 6 notifications (initial + 5), got %d", len(got))
	}
	for i, s := range got {
		total, units := recomputed(s.Lines)
		if s.Total != total || s.ItemCount != units {
			t.Fatalf("notification %d inconsistent: %+v", i, s)
		}
	}
	if got[3].Total != 999+3*899 {
		t.Fatalf("after update want %d, got %d", 999+3*899, got[3].Total)
	}
}

func TestCart_SnapshotIsACopy(t *testing.T) {
	c := cart.New()
	c.Add(listingA)
	lines := c.Lines()
	lines[0].Quantity = 100

	if c.ItemCount() != 1 || c.Lines()[0].Quantity != 1 {
		t.Fatalf("mutating a snapshot leaked into the cart")
	}
}

func TestCart_RandomizedTotalsNeverDrift(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	catalog := []domain.Listing{
		listingA, listingB,
		{ID: 3, Price: 0},
		{ID: 4, Price: 15000},
		{ID: 5, Price: 1},
	}

	for round := 0; round < 50; round++ {
		c := cart.New()
		adds := 0
		onlyAdds := true
		for step := 0; step < 200; step++ {
			l := catalog[rng.Intn(len(catalog))]
			switch op := rng.Intn(10); {
			case op < 6:
				c.Add(l)
				adds++
			case op < 8:
				c.UpdateQuantity(l.ID, rng.Intn(8)-3)
				onlyAdds = false
			case op < 9:
				c.Remove(l.ID)
				onlyAdds = false
			default:
				if rng.Intn(5) == 0 {
					c.Clear()
					onlyAdds = false
				}
			}

			s := c.Snapshot()
			total, units := recomputed(s.Lines)
			if s.Total != total || c.Total() != total {
				t.Fatalf("round %d step %d: total %d, recomputed %d", round, step, s.Total, total)
			}
			if c.ItemCount() != units {
				t.Fatalf("round %d step %d: count %d, recomputed %d", round, step, c.ItemCount(), units)
			}
			seen := map[int64]bool{}
			for _, ln := range s.Lines {
				if ln.Quantity < 1 {
					t.Fatalf("line with quantity %d", ln.Quantity)
				}
				if seen[ln.Listing.ID] {
					t.Fatalf("duplicate line for %d", ln.Listing.ID)
				}
				seen[ln.Listing.ID] = true
			}
			if onlyAdds && c.ItemCount() != adds {
				t.Fatalf("item count %d, adds %d", c.ItemCount(), adds)
			}
		}
	}
}
