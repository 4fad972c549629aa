package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"cardbook/api/internal/util"
)

var ErrNotFound = errors.New("not found")

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) InsertBook(ctx context.Context, title, bookTypeID, cardTypeID string) (Book, error) {
	const insertBook = `
		INSERT INTO books (id, title, book_type_id, card_type_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, title, book_type_id, card_type_id, cards_per_side_rows, cards_per_side_cols, created_at
	`
	var b Book
	err := s.db.QueryRowContext(ctx, insertBook, util.NewID("book"), title, bookTypeID, cardTypeID).
		Scan(&b.ID, &b.Title, &b.BookTypeID, &b.CardTypeID, &b.CardsPerSideRows, &b.CardsPerSideCols, &b.CreatedAt)
	if err != nil {
		return Book{}, fmt.Errorf("insert book: %w", err)
	}
	return b, nil
}

func (s *PostgresStore) ListBooks(ctx context.Context) ([]Book, error) {
	const listBooks = `
		SELECT id, title, book_type_id, card_type_id, cards_per_side_rows, cards_per_side_cols, created_at
		FROM books
		ORDER BY created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, listBooks)
	if err != nil {
		if isMissingGridColumns(err) {
			return s.listBooksLegacy(ctx)
		}
		return nil, fmt.Errorf("list books: %w", err)
	}
	defer rows.Close()

	books := []Book{}
	for rows.Next() {
		var b Book
		if err := rows.Scan(&b.ID, &b.Title, &b.BookTypeID, &b.CardTypeID, &b.CardsPerSideRows, &b.CardsPerSideCols, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

// listBooksLegacy serves schemas that predate the grid override
// columns. Overrides come back nil and the book type defaults apply.
func (s *PostgresStore) listBooksLegacy(ctx context.Context) ([]Book, error) {
	const listBooks = `
		SELECT id, title, book_type_id, card_type_id, created_at
		FROM books
		ORDER BY created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, listBooks)
	if err != nil {
		return nil, fmt.Errorf("list books (legacy schema): %w", err)
	}
	defer rows.Close()

	books := []Book{}
	for rows.Next() {
		var b Book
		if err := rows.Scan(&b.ID, &b.Title, &b.BookTypeID, &b.CardTypeID, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan book (legacy schema): %w", err)
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

func (s *PostgresStore) GetBook(ctx context.Context, bookID string) (Book, error) {
	const getBook = `
		SELECT id, title, book_type_id, card_type_id, cards_per_side_rows, cards_per_side_cols, created_at
		FROM books
		WHERE id = $1
	`
	var b Book
	err := s.db.QueryRowContext(ctx, getBook, bookID).
		Scan(&b.ID, &b.Title, &b.BookTypeID, &b.CardTypeID, &b.CardsPerSideRows, &b.CardsPerSideCols, &b.CreatedAt)
	if isMissingGridColumns(err) {
		return s.getBookLegacy(ctx, bookID)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return Book{}, ErrNotFound
	}
	if err != nil {
		return Book{}, fmt.Errorf("get book: %w", err)
	}
	return b, nil
}

func (s *PostgresStore) getBookLegacy(ctx context.Context, bookID string) (Book, error) {
	const getBook = `SELECT id, title, book_type_id, card_type_id, created_at FROM books WHERE id = $1`
	var b Book
	err := s.db.QueryRowContext(ctx, getBook, bookID).
		Scan(&b.ID, &b.Title, &b.BookTypeID, &b.CardTypeID, &b.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Book{}, ErrNotFound
	}
	if err != nil {
		return Book{}, fmt.Errorf("get book (legacy schema): %w", err)
	}
	return b, nil
}

// isMissingGridColumns matches the undefined-column error a legacy
// schema produces for cards_per_side_rows/cols (pg error 42703).
func isMissingGridColumns(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "42703") ||
		strings.Contains(msg, "cards_per_side_rows") ||
		strings.Contains(msg, "cards_per_side_cols")
}

func (s *PostgresStore) UpdateBookTitle(ctx context.Context, bookID, title string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE books SET title=$2 WHERE id=$1`, bookID, title)
	if err != nil {
		return fmt.Errorf("update book title: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) UpdateBookGrid(ctx context.Context, bookID string, rows, cols *int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE books SET cards_per_side_rows=$2, cards_per_side_cols=$3 WHERE id=$1`,
		bookID, rows, cols)
	if err != nil {
		return fmt.Errorf("update book grid: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) DeleteBook(ctx context.Context, bookID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM books WHERE id=$1`, bookID)
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) ListPages(ctx context.Context, bookID string) ([]BookPage, error) {
	const listPages = `
		SELECT id, book_id, page_order, label, created_at
		FROM book_pages
		WHERE book_id = $1
		ORDER BY page_order ASC
	`
	rows, err := s.db.QueryContext(ctx, listPages, bookID)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	defer rows.Close()

	pages := []BookPage{}
	for rows.Next() {
		var p BookPage
		if err := rows.Scan(&p.ID, &p.BookID, &p.PageOrder, &p.Label, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan page: %w", err)
		}
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

// InsertPages appends pages after the book's current highest page_order,
// in one transaction. Used to seed a new book's default pages.
func (s *PostgresStore) InsertPages(ctx context.Context, bookID string, labels []string) ([]BookPage, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin insert pages: %w", err)
	}
	defer tx.Rollback()

	var next int
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(page_order)+1, 0) FROM book_pages WHERE book_id=$1`, bookID).Scan(&next)
	if err != nil {
		return nil, fmt.Errorf("next page order: %w", err)
	}

	const insertPage = `
		INSERT INTO book_pages (id, book_id, page_order, label)
		VALUES ($1, $2, $3, $4)
		RETURNING id, book_id, page_order, label, created_at
	`
	pages := make([]BookPage, 0, len(labels))
	for i, label := range labels {
		var p BookPage
		err := tx.QueryRowContext(ctx, insertPage, util.NewID("page"), bookID, next+i, label).
			Scan(&p.ID, &p.BookID, &p.PageOrder, &p.Label, &p.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("insert page: %w", err)
		}
		pages = append(pages, p)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit insert pages: %w", err)
	}
	return pages, nil
}

func (s *PostgresStore) InsertPage(ctx context.Context, bookID, label string) (BookPage, error) {
	pages, err := s.InsertPages(ctx, bookID, []string{label})
	if err != nil {
		return BookPage{}, err
	}
	return pages[0], nil
}

func (s *PostgresStore) UpdatePageLabel(ctx context.Context, pageID, label string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE book_pages SET label=$2 WHERE id=$1`, pageID, label)
	if err != nil {
		return fmt.Errorf("update page label: %w", err)
	}
	return requireRow(res)
}

// DeletePage removes a page and reindexes the book's remaining pages to
// a contiguous 0-based page_order, all in one transaction.
func (s *PostgresStore) DeletePage(ctx context.Context, pageID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete page: %w", err)
	}
	defer tx.Rollback()

	var bookID string
	err = tx.QueryRowContext(ctx, `DELETE FROM book_pages WHERE id=$1 RETURNING book_id`, pageID).Scan(&bookID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("delete page: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE book_pages bp
		SET page_order = ranked.new_order
		FROM (
			SELECT id, ROW_NUMBER() OVER (ORDER BY page_order ASC) - 1 AS new_order
			FROM book_pages
			WHERE book_id = $1
		) ranked
		WHERE bp.id = ranked.id AND bp.page_order <> ranked.new_order
	`, bookID); err != nil {
		return fmt.Errorf("reindex pages: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete page: %w", err)
	}
	return nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
