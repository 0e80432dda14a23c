package repos

import (
	"log"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// OpenDB opens the local listings database, creating and seeding it when
// empty. ":memory:" gives a throwaway demo catalog.
func OpenDB(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if dsn == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}
	for _, step := range []func(*sqlx.DB) error{ping, ensureSchema, seedIfEmpty, backfillFolded} {
		if err := step(db); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return db, nil
}

func ping(db *sqlx.DB) error { return db.Ping() }

func ensureSchema(db *sqlx.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS listings(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  title TEXT NOT NULL,
  title_lc TEXT NOT NULL DEFAULT '',
  description TEXT NOT NULL DEFAULT '',
  price INTEGER NOT NULL CHECK (price >= 0),
  image_ref TEXT NOT NULL DEFAULT '',
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT
);
`
	if _, err := db.Exec(schema); err != nil {
		return err
	}
	// databases created before title_lc existed
	var has int
	if err := db.Get(&has, `SELECT COUNT(*) FROM pragma_table_info('listings') WHERE name = 'title_lc'`); err != nil {
		return err
	}
	if has == 0 {
		if _, err := db.Exec(`ALTER TABLE listings ADD COLUMN title_lc TEXT NOT NULL DEFAULT ''`); err != nil {
			return err
		}
	}
	_, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_listings_title_lc ON listings(title_lc)`)
	return err
}

// backfillFolded fills title_lc for rows written without it (seed data and
// older databases).
func backfillFolded(db *sqlx.DB) error {
	var rows []struct {
		ID    int64  `db:"id"`
		Title string `db:"title"`
	}
	if err := db.Select(&rows, `SELECT id, title FROM listings WHERE title_lc = '' AND title != ''`); err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	tx := db.MustBegin()
	defer func() { _ = tx.Rollback() }()
	for _, r := range rows {
		if _, err := tx.Exec(`UPDATE listings SET title_lc = ? WHERE id = ?`, fold(r.Title), r.ID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func seedIfEmpty(db *sqlx.DB) error {
	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM listings`); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	log.Println("[seed] inserting demo listings")

	tx := db.MustBegin()
	defer func() { _ = tx.Rollback() }()
	tx.MustExec(`INSERT INTO listings(id,title,description,price,image_ref) VALUES
	  (1,'Bicicleta de ruta','Cuadro de aluminio, talla M',999,'https://picsum.photos/seed/bici/600'),
	  (2,'Lampara de escritorio','LED regulable, poco uso',899,'https://picsum.photos/seed/lampara/600'),
	  (3,'Guitarra acustica','Incluye funda y afinador',15990,'https://picsum.photos/seed/guitarra/600')`)
	return tx.Commit()
}
