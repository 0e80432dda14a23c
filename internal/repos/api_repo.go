package repos

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/blake2b"

	"tiendaza/internal/domain"
)

// APIRepo talks to the remote listings API.
type APIRepo struct {
	base    string
	timeout time.Duration
}

func NewAPIRepo(baseURL string, timeout time.Duration) *APIRepo {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &APIRepo{base: strings.TrimRight(baseURL, "/"), timeout: timeout}
}

func (r *APIRepo) FetchAll(ctx context.Context) ([]domain.Listing, error) {
	out := []domain.Listing{}
	err := r.do(ctx, "fetch_all", fiber.Get(r.url("/publicaciones")), &out)
	return out, err
}

func (r *APIRepo) FetchByID(ctx context.Context, id int64) (domain.Listing, error) {
	var l domain.Listing
	err := r.do(ctx, "fetch_by_id", fiber.Get(r.url("/publicaciones/"+strconv.FormatInt(id, 10))), &l)
	var ne *NetworkError
	if errors.As(err, &ne) && ne.Status == fiber.StatusNotFound {
		return domain.Listing{}, ErrNotFound
	}
	return l, err
}

func (r *APIRepo) Search(ctx context.Context, query string) ([]domain.Listing, error) {
	a := fiber.Get(r.url("/publicaciones/search")).
		QueryString("query=" + url.QueryEscape(query))
	out := []domain.Listing{}
	err := r.do(ctx, "search", a, &out)
	return out, err
}

func (r *APIRepo) Create(ctx context.Context, l domain.Listing) (domain.Listing, error) {
	var created domain.Listing
	err := r.do(ctx, "create", fiber.Post(r.url("/publicaciones")).JSON(l), &created)
	return created, err
}

func (r *APIRepo) CreateWithImage(ctx context.Context, title, description string, price int64, image []byte) (domain.Listing, error) {
	args := fiber.AcquireArgs()
	defer fiber.ReleaseArgs(args)
	args.Set("titulo", title)
	args.Set("descripcion", description)
	args.Set("precio", strconv.FormatInt(price, 10))

	// files must be attached before the form is written
	a := fiber.Post(r.url("/publicaciones/con-imagen")).
		FileData(&fiber.FormFile{Fieldname: "image", Name: UploadName(image), Content: image}).
		MultipartForm(args)

	var created domain.Listing
	err := r.do(ctx, "create_with_image", a, &created)
	return created, err
}

func (r *APIRepo) Update(ctx context.Context, id int64, l domain.Listing) (domain.Listing, error) {
	var updated domain.Listing
	a := fiber.Put(r.url("/publicaciones/" + strconv.FormatInt(id, 10))).JSON(l)
	err := r.do(ctx, "update", a, &updated)
	return updated, err
}

func (r *APIRepo) Delete(ctx context.Context, id int64) error {
	return r.do(ctx, "delete", fiber.Delete(r.url("/publicaciones/"+strconv.FormatInt(id, 10))), nil)
}

// UploadName derives a stable file name for an image part from its content.
func UploadName(image []byte) string {
	sum := blake2b.Sum256(image)
	return "upload_" + hex.EncodeToString(sum[:8]) + ".jpg"
}

func (r *APIRepo) url(path string) string { return r.base + path }

func (r *APIRepo) do(ctx context.Context, op string, a *fiber.Agent, out any) error {
	timeout := r.timeout
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left < timeout {
			timeout = left
		}
	}
	if err := ctx.Err(); err != nil {
		fiber.ReleaseAgent(a)
		return &NetworkError{Op: op, Err: err}
	}
	a.Timeout(timeout)

	code, body, errs := a.Bytes()
	if len(errs) > 0 {
		return &NetworkError{Op: op, Err: errors.Join(errs...)}
	}
	if err := ctx.Err(); err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	if code < 200 || code > 299 {
		return &NetworkError{Op: op, Status: code, Message: errorMessage(code, body)}
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &NetworkError{Op: op, Err: fmt.Errorf("decode %s response: %w", op, err)}
	}
	return nil
}

// errorMessage prefers the API's own {"error"|"message": ...} text.
func errorMessage(code int, body []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &payload) == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return fmt.Sprintf("server responded %d", code)
}
