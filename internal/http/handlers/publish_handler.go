package handlers

import (
	"errors"
	"io"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"tiendaza/internal/log"
	"tiendaza/internal/repos"
	"tiendaza/internal/validate"
)

// PublishHandler backs the "sell" flow: a form with title, description,
// price and one image.
type PublishHandler struct {
	MaxUploadBytes int
}

func (h *PublishHandler) Form(c *fiber.Ctx) error {
	return render(c, "sell", nil)
}

func (h *PublishHandler) Create(c *fiber.Ctx) error {
	title, ok := validate.Title(c.FormValue("title"))
	if !ok {
		return h.reject(c, "title", "Title is required (max 80 characters)")
	}
	desc, ok := validate.Description(c.FormValue("description"))
	if !ok {
		return h.reject(c, "description", "Description is too long")
	}
	price, ok := validate.Price(c.FormValue("price"))
	if !ok {
		return h.reject(c, "price", "Enter a whole, non-negative price")
	}
	img, err := h.readImage(c)
	if err != nil {
		return h.reject(c, "image", "Attach a JPEG, PNG, WebP or GIF image")
	}
	if _, ok := validate.Image(img, h.MaxUploadBytes); !ok {
		return h.reject(c, "image", "Attach a JPEG, PNG, WebP or GIF image")
	}

	s := current(c)
	l, err := s.Catalog().CreateWithImage(c.UserContext(), title, desc, price, img)
	if err != nil {
		log.Error(c, "publish.error", err, nil)
		if isAPI(c) {
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
		}
		c.Status(fiber.StatusBadGateway)
		return render(c, "sell", fiber.Map{
			"Err": err.Error(), "Title": title, "Description": desc, "Price": price,
		})
	}
	log.Audit(c, "publish.ok", map[string]any{"id": l.ID})

	if isAPI(c) {
		return c.Status(fiber.StatusCreated).JSON(l)
	}
	return c.Redirect("/listing/" + strconv.FormatInt(l.ID, 10))
}

// editReq carries a partial edit; absent fields keep their current value.
type editReq struct {
	Title       *string `json:"titulo"`
	Description *string `json:"descripcion"`
	Price       *int64  `json:"precio"`
}

// Edit applies a partial update to a listing (API only).
func (h *PublishHandler) Edit(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return notFound(c, "This item is no longer available")
	}
	var req editReq
	if err := c.BodyParser(&req); err != nil {
		return h.reject(c, "body", "invalid JSON body")
	}

	s := current(c)
	l, err := s.Catalog().Detail(c.UserContext(), id)
	if err != nil {
		return h.writeFailure(c, "edit.error", id, err)
	}
	if req.Title != nil {
		if l.Title, ok = validate.Title(*req.Title); !ok {
			return h.reject(c, "title", "Title is required (max 80 characters)")
		}
	}
	if req.Description != nil {
		if l.Description, ok = validate.Description(*req.Description); !ok {
			return h.reject(c, "description", "Description is too long")
		}
	}
	if req.Price != nil {
		if *req.Price < 0 {
			return h.reject(c, "price", "Enter a whole, non-negative price")
		}
		l.Price = *req.Price
	}

	out, err := s.Catalog().Update(c.UserContext(), id, l)
	if err != nil {
		return h.writeFailure(c, "edit.error", id, err)
	}
	log.Audit(c, "edit.ok", map[string]any{"id": id})
	return c.JSON(out)
}

// Remove withdraws a listing (API only).
func (h *PublishHandler) Remove(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return notFound(c, "This item is no longer available")
	}
	if err := current(c).Catalog().Delete(c.UserContext(), id); err != nil {
		return h.writeFailure(c, "withdraw.error", id, err)
	}
	log.Audit(c, "withdraw.ok", map[string]any{"id": id})
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *PublishHandler) writeFailure(c *fiber.Ctx, event string, id int64, err error) error {
	var ne *repos.NetworkError
	if errors.Is(err, repos.ErrNotFound) || (errors.As(err, &ne) && ne.Status == fiber.StatusNotFound) {
		return notFound(c, "This item is no longer available")
	}
	log.Error(c, event, err, map[string]any{"id": id})
	return upstream(c, err)
}

func (h *PublishHandler) readImage(c *fiber.Ctx) ([]byte, error) {
	fh, err := c.FormFile("image")
	if err != nil {
		return nil, err
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	// one byte over the limit is enough for validate.Image to reject it
	return io.ReadAll(io.LimitReader(f, int64(h.MaxUploadBytes)+1))
}

func (h *PublishHandler) reject(c *fiber.Ctx, field, msg string) error {
	log.Security(c, "validation.fail", map[string]any{"field": field})
	if isAPI(c) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
	}
	c.Status(fiber.StatusBadRequest)
	return render(c, "sell", fiber.Map{"Err": msg})
}
