package search

// ResultType identifies the kind of entity in a search result.
type ResultType string

const (
	ResultBook ResultType = "book"
	ResultPage ResultType = "page"
	ResultCard ResultType = "card"
)

// Result is a single search hit returned to the caller.
type Result struct {
	Type    ResultType `json:"type"`
	ID      string     `json:"id"`
	Title   string     `json:"title"`
	Snippet string     `json:"snippet"`
	BookID  string     `json:"bookId"`
}

// Query describes a search request.
type Query struct {
	Text         string
	FilterType   ResultType // empty = all types
	FilterBookID string
	Limit        int
	Offset       int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// BookRecord is the data we index for a book.
type BookRecord struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	BookTypeID string `json:"bookTypeId"`
}

// PageRecord is the data we index for a book page.
type PageRecord struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	BookID string `json:"bookId"`
}

// CardRecord is the data we index for a card. Captions and tags come
// from both sides; cards themselves live in the board cache, so the
// search index is the only place they are queryable.
type CardRecord struct {
	ID      string `json:"id"`
	Caption string `json:"caption"`
	Tags    string `json:"tags"`
	BookID  string `json:"bookId"`
}
