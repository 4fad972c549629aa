package store

import "time"

type Book struct {
	ID         string
	Title      string
	BookTypeID string
	CardTypeID string

	// Per-book grid overrides. Nil when the book relies on its book
	// type's default grid, and always nil on legacy schemas that
	// predate the override columns.
	CardsPerSideRows *int
	CardsPerSideCols *int

	CreatedAt time.Time
}

type BookPage struct {
	ID        string
	BookID    string
	PageOrder int
	Label     string
	CreatedAt time.Time
}
