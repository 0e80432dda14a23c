package repos

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/jmoiron/sqlx"

	"tiendaza/internal/domain"
)

// LocalRepo serves listings from the bundled SQLite catalog. It stands in
// for the remote API in demos and tests.
type LocalRepo struct{ db *sqlx.DB }

func NewLocalRepo(db *sqlx.DB) *LocalRepo { return &LocalRepo{db: db} }

const listingCols = `id, title, description, price, image_ref`

func (r *LocalRepo) FetchAll(ctx context.Context) ([]domain.Listing, error) {
	out := []domain.Listing{}
	err := r.db.SelectContext(ctx, &out, `SELECT `+listingCols+` FROM listings ORDER BY id`)
	return out, wrap("fetch_all", err)
}

func (r *LocalRepo) FetchByID(ctx context.Context, id int64) (domain.Listing, error) {
	var l domain.Listing
	err := r.db.GetContext(ctx, &l, `SELECT `+listingCols+` FROM listings WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Listing{}, ErrNotFound
	}
	return l, wrap("fetch_by_id", err)
}

// Search matches titles case-insensitively; an empty query matches all.
// SQLite's LOWER only folds ASCII, so matching runs against title_lc,
// which is folded on write.
func (r *LocalRepo) Search(ctx context.Context, query string) ([]domain.Listing, error) {
	out := []domain.Listing{}
	err := r.db.SelectContext(ctx, &out, `
	  SELECT `+listingCols+` FROM listings
	  WHERE title_lc LIKE ? ESCAPE '\'
	  ORDER BY id`, "%"+likeEscaper.Replace(fold(query))+"%")
	return out, wrap("search", err)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func fold(s string) string { return strings.ToLower(s) }

func (r *LocalRepo) Create(ctx context.Context, l domain.Listing) (domain.Listing, error) {
	res, err := r.db.ExecContext(ctx, `
	  INSERT INTO listings(title, title_lc, description, price, image_ref, created_at)
	  VALUES(?, ?, ?, ?, ?, CURRENT_TIMESTAMP)`, l.Title, fold(l.Title), l.Description, l.Price, l.ImageRef)
	if err != nil {
		return domain.Listing{}, wrap("create", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Listing{}, wrap("create", err)
	}
	l.ID = id
	return l, nil
}

func (r *LocalRepo) CreateWithImage(ctx context.Context, title, description string, price int64, image []byte) (domain.Listing, error) {
	return r.Create(ctx, domain.Listing{
		Title:       title,
		Description: description,
		Price:       price,
		ImageRef:    domain.DataURI(http.DetectContentType(image), image),
	})
}

func (r *LocalRepo) Update(ctx context.Context, id int64, l domain.Listing) (domain.Listing, error) {
	res, err := r.db.ExecContext(ctx, `
	  UPDATE listings SET title = ?, title_lc = ?, description = ?, price = ?, image_ref = ?, updated_at = CURRENT_TIMESTAMP
	  WHERE id = ?`, l.Title, fold(l.Title), l.Description, l.Price, l.ImageRef, id)
	if err != nil {
		return domain.Listing{}, wrap("update", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.Listing{}, &NetworkError{Op: "update", Status: http.StatusNotFound, Message: "listing not found"}
	}
	l.ID = id
	return l, nil
}

func (r *LocalRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM listings WHERE id = ?`, id)
	return wrap("delete", err)
}

// wrap reports storage failures the same way the API client reports
// transport failures.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &NetworkError{Op: op, Err: err}
}
