// Package bibliography keeps the reading list of books, articles and papers.
package bibliography

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/holdfast/holdfast/internal/domain"
	"github.com/rs/zerolog"
)

// Repository handles bibliography rows in ledger.db
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new bibliography repository
func NewRepository(ledgerDB *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  ledgerDB,
		log: log.With().Str("repo", "bibliography").Logger(),
	}
}

// Create inserts an item and returns it with its id
func (r *Repository) Create(ctx context.Context, item domain.BibliographyItem) (domain.BibliographyItem, error) {
	if item.AddedAt.IsZero() {
		item.AddedAt = time.Now().UTC()
	}
	item.AddedAt = item.AddedAt.Truncate(time.Second)

	var year interface{}
	if item.Year != nil {
		year = *item.Year
	}

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO bibliography (title, author, year, category, link, description, added_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, item.Title, item.Author, year, item.Category, item.Link, item.Description, item.AddedAt.Unix())
	if err != nil {
		return item, fmt.Errorf("failed to insert bibliography item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return item, fmt.Errorf("failed to get bibliography item id: %w", err)
	}
	item.ID = id
	return item, nil
}

// Get returns one item or a NotFound error
func (r *Repository) Get(ctx context.Context, id int64) (domain.BibliographyItem, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, title, author, year, category, link, description, added_at
		FROM bibliography WHERE id = ?
	`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return item, domain.NewNotFoundError("get_bibliography_item", "bibliography item %d not found", id)
	}
	if err != nil {
		return item, fmt.Errorf("failed to get bibliography item: %w", err)
	}
	return item, nil
}

// Delete removes an item; NotFound when absent
func (r *Repository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM bibliography WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete bibliography item: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return domain.NewNotFoundError("delete_bibliography_item", "bibliography item %d not found", id)
	}
	return nil
}

// List returns items newest first, optionally for one category
func (r *Repository) List(ctx context.Context, category string) ([]domain.BibliographyItem, error) {
	query := `SELECT id, title, author, year, category, link, description, added_at FROM bibliography`
	var args []interface{}
	if category != "" {
		query += " WHERE category = ?"
		args = append(args, category)
	}
	query += " ORDER BY added_at DESC, id DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list bibliography: %w", err)
	}
	defer rows.Close()

	items := make([]domain.BibliographyItem, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bibliography item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bibliography: %w", err)
	}
	return items, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanItem(row scanner) (domain.BibliographyItem, error) {
	var (
		item    domain.BibliographyItem
		year    sql.NullInt64
		addedAt int64
	)
	err := row.Scan(&item.ID, &item.Title, &item.Author, &year, &item.Category, &item.Link, &item.Description, &addedAt)
	if err != nil {
		return item, err
	}
	if year.Valid {
		y := int(year.Int64)
		item.Year = &y
	}
	item.AddedAt = time.Unix(addedAt, 0).UTC()
	return item, nil
}
