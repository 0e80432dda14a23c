package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"tiendaza/internal/domain"
	"tiendaza/internal/log"
	"tiendaza/internal/repos"
	"tiendaza/internal/validate"
)

type CatalogHandler struct{}

func (h *CatalogHandler) Home(c *fiber.Ctx) error {
	return render(c, "home", fiber.Map{"State": current(c).Catalog().State()})
}

// Refresh is the manual retry after a failed load.
func (h *CatalogHandler) Refresh(c *fiber.Ctx) error {
	s := current(c)
	s.Catalog().LoadAll(c.UserContext())
	if isAPI(c) {
		return c.JSON(s.Catalog().State())
	}
	return c.Redirect("/")
}

func (h *CatalogHandler) Search(c *fiber.Ctx) error {
	s := current(c)
	if !c.Request().URI().QueryArgs().Has("q") {
		if isAPI(c) {
			return badRequest(c, "q", "missing q")
		}
		return render(c, "search", fiber.Map{"Q": "", "State": s.Catalog().State()})
	}
	q, ok := validate.Q(c.Query("q"))
	if !ok {
		return badRequest(c, "q", "Enter a valid keyword (letters/numbers only)")
	}

	s.Catalog().Search(c.UserContext(), q)
	st := s.Catalog().State()
	if isAPI(c) {
		return c.JSON(st)
	}
	return render(c, "search", fiber.Map{"Q": q, "State": st})
}

// State returns the catalog state for API clients.
func (h *CatalogHandler) State(c *fiber.Ctx) error {
	return c.JSON(current(c).Catalog().State())
}

func (h *CatalogHandler) Detail(c *fiber.Ctx) error {
	l, ok, err := h.lookup(c)
	if !ok {
		return err
	}
	if isAPI(c) {
		return c.JSON(l)
	}
	_, isURL := l.ImageURL()
	return render(c, "listing", fiber.Map{"L": l, "ImageURL": isURL})
}

// Image serves inline images and redirects to hosted ones.
func (h *CatalogHandler) Image(c *fiber.Ctx) error {
	l, ok, err := h.lookup(c)
	if !ok {
		return err
	}
	if u, ok := l.ImageURL(); ok {
		return c.Redirect(u, fiber.StatusFound)
	}
	b, ok := l.ImageData()
	if !ok {
		return notFound(c, "no image")
	}
	c.Set(fiber.HeaderContentType, l.ImageMIME())
	c.Set(fiber.HeaderCacheControl, "private, max-age=300")
	return c.Send(b)
}

// lookup resolves :id. When ok is false the error response has already
// been written and err is the result of writing it.
func (h *CatalogHandler) lookup(c *fiber.Ctx) (l domain.Listing, ok bool, err error) {
	id, valid := validate.ID(c.Params("id"))
	if !valid {
		log.Security(c, "validation.fail", map[string]any{"field": "listing"})
		return l, false, notFound(c, "This item is no longer available")
	}
	l, err = current(c).Catalog().Detail(c.UserContext(), id)
	if errors.Is(err, repos.ErrNotFound) {
		return l, false, notFound(c, "This item is no longer available")
	}
	if err != nil {
		log.Error(c, "listing.detail.error", err, map[string]any{"id": id})
		return l, false, upstream(c, err)
	}
	return l, true, nil
}

// upstream reports a repository failure, keeping its message.
func upstream(c *fiber.Ctx, err error) error {
	msg := "Could not reach the store. Please retry."
	var ne *repos.NetworkError
	if errors.As(err, &ne) && ne.Message != "" {
		msg = ne.Message
	}
	if isAPI(c) {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": msg})
	}
	return c.Status(fiber.StatusBadGateway).Render("notfound", fiber.Map{"Message": msg})
}
