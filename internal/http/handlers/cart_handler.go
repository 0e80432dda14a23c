package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"tiendaza/internal/log"
	"tiendaza/internal/repos"
	"tiendaza/internal/validate"
)

type CartHandler struct{}

type addItemReq struct {
	ListingID int64 `json:"listingId"`
}

// Quantity is required; a missing field must not read as zero and drop the line.
type qtyReq struct {
	Quantity *int `json:"quantity"`
}

func (h *CartHandler) View(c *fiber.Ctx) error {
	snap := current(c).Cart.Snapshot()
	if isAPI(c) {
		return c.JSON(snap)
	}
	return render(c, "cart", fiber.Map{"Cart": snap})
}

// Add puts one unit of a listing in the cart. The listing is resolved from
// the session catalog so the cart never holds ids it cannot price.
func (h *CartHandler) Add(c *fiber.Ctx) error {
	var id int64
	var ok bool
	if isAPI(c) {
		var req addItemReq
		if err := c.BodyParser(&req); err == nil && req.ListingID > 0 {
			id, ok = req.ListingID, true
		}
	} else {
		id, ok = validate.ID(c.FormValue("listingId"))
	}
	if !ok {
		return badRequest(c, "listingId", "missing listingId")
	}

	s := current(c)
	l, err := s.Catalog().Detail(c.UserContext(), id)
	if errors.Is(err, repos.ErrNotFound) {
		return notFound(c, "This item is no longer available")
	}
	if err != nil {
		log.Error(c, "cart.add.error", err, map[string]any{"id": id})
		return upstream(c, err)
	}
	s.Cart.Add(l)
	log.Info(c, "cart.add", map[string]any{"id": id, "items": s.Cart.ItemCount()})

	if isAPI(c) {
		return c.Status(fiber.StatusCreated).JSON(s.Cart.Snapshot())
	}
	return c.Redirect("/cart")
}

// Update sets a line quantity; zero or less removes the line.
func (h *CartHandler) Update(c *fiber.Ctx) error {
	var (
		id  int64
		qty int
		ok  bool
	)
	if isAPI(c) {
		var req qtyReq
		id, ok = validate.ID(c.Params("id"))
		if ok {
			ok = c.BodyParser(&req) == nil && req.Quantity != nil
		}
		if ok {
			qty, ok = validate.Qty(strconv.Itoa(*req.Quantity))
		}
	} else {
		id, ok = validate.ID(c.FormValue("listingId"))
		if ok {
			qty, ok = validate.Qty(c.FormValue("qty"))
		}
	}
	if !ok {
		return badRequest(c, "qty", "invalid quantity")
	}

	s := current(c)
	s.Cart.UpdateQuantity(id, qty)
	if isAPI(c) {
		return c.JSON(s.Cart.Snapshot())
	}
	return c.Redirect("/cart")
}

func (h *CartHandler) Remove(c *fiber.Ctx) error {
	raw := c.FormValue("listingId")
	if isAPI(c) {
		raw = c.Params("id")
	}
	id, ok := validate.ID(raw)
	if !ok {
		return badRequest(c, "listingId", "missing listingId")
	}

	s := current(c)
	s.Cart.Remove(id)
	if isAPI(c) {
		return c.JSON(s.Cart.Snapshot())
	}
	return c.Redirect("/cart")
}

func (h *CartHandler) Clear(c *fiber.Ctx) error {
	s := current(c)
	s.Cart.Clear()
	if isAPI(c) {
		return c.JSON(s.Cart.Snapshot())
	}
	return c.Redirect("/cart")
}
