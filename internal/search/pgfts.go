package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgFTS implements Searcher using PostgreSQL full-text search as a
// fallback. Only books and pages live in Postgres; card hits are
// available through Meilisearch only.
type PgFTS struct {
	db *sql.DB
}

// NewPgFTS creates a PostgreSQL FTS searcher.
func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true. If Postgres is down, the whole app is down.
func (p *PgFTS) Healthy() bool {
	return true
}

// Search executes a UNION ALL query over book titles and page labels
// using plainto_tsquery and ts_rank.
func (p *PgFTS) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	const tsQuery = "plainto_tsquery('english', $1)"
	args := []any{q.Text}
	argN := 2

	var subQueries []string

	if q.FilterType == "" || q.FilterType == ResultBook {
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'book'::text AS type, b.id, b.title, ''::text AS snippet, b.id AS book_id,
				ts_rank(to_tsvector('english', b.title), %s) AS rank
			FROM books b
			WHERE to_tsvector('english', b.title) @@ %s`, tsQuery, tsQuery))
	}

	if q.FilterType == "" || q.FilterType == ResultPage {
		pageWhere := fmt.Sprintf("to_tsvector('english', bp.label) @@ %s", tsQuery)
		if q.FilterBookID != "" {
			pageWhere += fmt.Sprintf(" AND bp.book_id = $%d", argN)
			args = append(args, q.FilterBookID)
			argN++
		}
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'page'::text AS type, bp.id, bp.label AS title, ''::text AS snippet, bp.book_id,
				ts_rank(to_tsvector('english', bp.label), %s) AS rank
			FROM book_pages bp
			WHERE %s`, tsQuery, pageWhere))
	}

	if len(subQueries) == 0 {
		return nil, 0, nil
	}

	query := fmt.Sprintf(`
		SELECT type, id, title, snippet, book_id
		FROM (%s) hits
		ORDER BY rank DESC
		LIMIT $%d OFFSET $%d
	`, strings.Join(subQueries, " UNION ALL "), argN, argN+1)
	args = append(args, limit, offset)

	rows, err := p.db.QueryContext(context.Background(), query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts search: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var rtyp string
		if err := rows.Scan(&rtyp, &r.ID, &r.Title, &r.Snippet, &r.BookID); err != nil {
			return nil, 0, fmt.Errorf("scan search hit: %w", err)
		}
		r.Type = ResultType(rtyp)
		results = append(results, r)
	}
	return results, len(results), rows.Err()
}
