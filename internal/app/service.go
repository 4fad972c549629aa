package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"cardbook/api/internal/auth"
	"cardbook/api/internal/book"
	"cardbook/api/internal/config"
	"cardbook/api/internal/export"
	"cardbook/api/internal/registry"
	"cardbook/api/internal/search"
	"cardbook/api/internal/store"
	"cardbook/api/internal/upload"
)

// bookStore is the relational gateway for books and pages.
type bookStore interface {
	Ping(ctx context.Context) error
	InsertBook(ctx context.Context, title, bookTypeID, cardTypeID string) (store.Book, error)
	ListBooks(ctx context.Context) ([]store.Book, error)
	GetBook(ctx context.Context, bookID string) (store.Book, error)
	UpdateBookTitle(ctx context.Context, bookID, title string) error
	UpdateBookGrid(ctx context.Context, bookID string, rows, cols *int) error
	DeleteBook(ctx context.Context, bookID string) error
	ListPages(ctx context.Context, bookID string) ([]store.BookPage, error)
	InsertPages(ctx context.Context, bookID string, labels []string) ([]store.BookPage, error)
	InsertPage(ctx context.Context, bookID, label string) (store.BookPage, error)
	UpdatePageLabel(ctx context.Context, pageID, label string) error
	DeletePage(ctx context.Context, pageID string) error
}

// boardCache persists board snapshots per book.
type boardCache interface {
	LoadInventory(ctx context.Context, bookID string) ([]book.Card, error)
	LoadSlots(ctx context.Context, bookID string) (book.SlotAssignments, error)
	SaveInventory(ctx context.Context, bookID string, cards []book.Card) error
	SaveSlots(ctx context.Context, bookID string, slots book.SlotAssignments) error
	DeleteBook(ctx context.Context, bookID string) error
	Ping(ctx context.Context) error
}

// liveBoard serializes all access to one book's board.
type liveBoard struct {
	mu    sync.Mutex
	board *book.Board
}

type Service struct {
	cfg     config.Config
	store   bookStore
	boards  boardCache
	gate    *auth.Gate
	uploads *upload.Service // nil when object storage is not configured
	search  *search.Service
	exports *export.Service

	mu   sync.Mutex
	live map[string]*liveBoard
}

func New(cfg config.Config, dataStore *store.PostgresStore, boards boardCache, gate *auth.Gate, uploads *upload.Service, searchSvc *search.Service, exports *export.Service) *Service {
	return &Service{
		cfg:     cfg,
		store:   dataStore,
		boards:  boards,
		gate:    gate,
		uploads: uploads,
		search:  searchSvc,
		exports: exports,
		live:    make(map[string]*liveBoard),
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) PingCache(ctx context.Context) error {
	return s.boards.Ping(ctx)
}

func (s *Service) Gate() *auth.Gate {
	return s.gate
}

// BookPayload is a book with its grid resolved against the book type
// catalog and any per-book overrides.
type BookPayload struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	BookTypeID string    `json:"bookTypeId"`
	CardTypeID string    `json:"cardTypeId"`
	Rows       int       `json:"rows"`
	Cols       int       `json:"cols"`
	CreatedAt  time.Time `json:"createdAt"`
}

type PagePayload struct {
	ID        string `json:"id"`
	BookID    string `json:"bookId"`
	PageOrder int    `json:"pageOrder"`
	Label     string `json:"label"`
}

func bookPayload(b store.Book) BookPayload {
	rows, cols := registry.GridFor(b.BookTypeID, b.CardsPerSideRows, b.CardsPerSideCols)
	return BookPayload{
		ID:         b.ID,
		Title:      b.Title,
		BookTypeID: b.BookTypeID,
		CardTypeID: b.CardTypeID,
		Rows:       rows,
		Cols:       cols,
		CreatedAt:  b.CreatedAt,
	}
}

func pagePayload(p store.BookPage) PagePayload {
	return PagePayload{ID: p.ID, BookID: p.BookID, PageOrder: p.PageOrder, Label: p.Label}
}

// CreateBook inserts a book and seeds its default pages. An empty card
// type picks the book type's default.
func (s *Service) CreateBook(ctx context.Context, title, bookTypeID, cardTypeID string) (BookPayload, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return BookPayload{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "title is required", nil)
	}
	if _, ok := registry.FindBookType(bookTypeID); !ok {
		return BookPayload{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "unknown book type", map[string]any{"bookTypeId": bookTypeID})
	}
	if cardTypeID == "" {
		cardTypeID = registry.DefaultCardTypeID(bookTypeID)
	} else if !cardTypeAllowed(bookTypeID, cardTypeID) {
		return BookPayload{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "card type not allowed for this book type", map[string]any{"cardTypeId": cardTypeID})
	}

	b, err := s.store.InsertBook(ctx, title, bookTypeID, cardTypeID)
	if err != nil {
		return BookPayload{}, fmt.Errorf("create book: %w", err)
	}

	labels := make([]string, registry.DefaultBookPages)
	if _, err := s.store.InsertPages(ctx, b.ID, labels); err != nil {
		return BookPayload{}, fmt.Errorf("seed pages: %w", err)
	}

	s.search.IndexBook(search.BookRecord{ID: b.ID, Title: b.Title, BookTypeID: b.BookTypeID})
	return bookPayload(b), nil
}

func cardTypeAllowed(bookTypeID, cardTypeID string) bool {
	for _, ct := range registry.CardTypesForBookType(bookTypeID) {
		if ct.ID == cardTypeID {
			return true
		}
	}
	return false
}

func (s *Service) ListBooks(ctx context.Context) ([]BookPayload, error) {
	books, err := s.store.ListBooks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	payloads := make([]BookPayload, 0, len(books))
	for _, b := range books {
		payloads = append(payloads, bookPayload(b))
	}
	return payloads, nil
}

func (s *Service) GetBook(ctx context.Context, bookID string) (BookPayload, []PagePayload, error) {
	b, err := s.store.GetBook(ctx, bookID)
	if errors.Is(err, store.ErrNotFound) {
		return BookPayload{}, nil, domainError(http.StatusNotFound, "NOT_FOUND", "Book not found", nil)
	}
	if err != nil {
		return BookPayload{}, nil, fmt.Errorf("get book: %w", err)
	}
	pages, err := s.store.ListPages(ctx, bookID)
	if err != nil {
		return BookPayload{}, nil, fmt.Errorf("list pages: %w", err)
	}
	payloads := make([]PagePayload, 0, len(pages))
	for _, p := range pages {
		payloads = append(payloads, pagePayload(p))
	}
	return bookPayload(b), payloads, nil
}

func (s *Service) UpdateBookTitle(ctx context.Context, bookID, title string) (BookPayload, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return BookPayload{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "title is required", nil)
	}
	if err := s.store.UpdateBookTitle(ctx, bookID, title); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return BookPayload{}, domainError(http.StatusNotFound, "NOT_FOUND", "Book not found", nil)
		}
		return BookPayload{}, fmt.Errorf("update book title: %w", err)
	}
	b, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		return BookPayload{}, fmt.Errorf("reload book: %w", err)
	}
	s.search.IndexBook(search.BookRecord{ID: b.ID, Title: b.Title, BookTypeID: b.BookTypeID})
	return bookPayload(b), nil
}

// SetBookGrid stores per-book grid overrides. Nil values clear the
// override back to the book type default. The live board is evicted so
// the next load renormalizes slot sequences to the new size.
func (s *Service) SetBookGrid(ctx context.Context, bookID string, rows, cols *int) (BookPayload, error) {
	if (rows != nil && *rows < 1) || (cols != nil && *cols < 1) {
		return BookPayload{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "rows and cols must be positive", nil)
	}
	if err := s.store.UpdateBookGrid(ctx, bookID, rows, cols); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return BookPayload{}, domainError(http.StatusNotFound, "NOT_FOUND", "Book not found", nil)
		}
		return BookPayload{}, fmt.Errorf("update book grid: %w", err)
	}
	s.evictBoard(bookID)
	b, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		return BookPayload{}, fmt.Errorf("reload book: %w", err)
	}
	return bookPayload(b), nil
}

func (s *Service) DeleteBook(ctx context.Context, bookID string) error {
	if err := s.store.DeleteBook(ctx, bookID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domainError(http.StatusNotFound, "NOT_FOUND", "Book not found", nil)
		}
		return fmt.Errorf("delete book: %w", err)
	}
	s.evictBoard(bookID)
	if err := s.boards.DeleteBook(ctx, bookID); err != nil {
		log.Printf("app: delete board state for %s: %v", bookID, err)
	}
	s.search.DeleteBook(bookID)
	return nil
}

func (s *Service) ListPages(ctx context.Context, bookID string) ([]PagePayload, error) {
	if _, err := s.store.GetBook(ctx, bookID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Book not found", nil)
		}
		return nil, fmt.Errorf("get book: %w", err)
	}
	pages, err := s.store.ListPages(ctx, bookID)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	// Books that predate page storage get their default pages on first view.
	if len(pages) == 0 {
		pages, err = s.store.InsertPages(ctx, bookID, make([]string, registry.DefaultBookPages))
		if err != nil {
			return nil, fmt.Errorf("seed pages: %w", err)
		}
	}
	payloads := make([]PagePayload, 0, len(pages))
	for _, p := range pages {
		payloads = append(payloads, pagePayload(p))
	}
	return payloads, nil
}

func (s *Service) CreatePage(ctx context.Context, bookID, label string) (PagePayload, error) {
	if _, err := s.store.GetBook(ctx, bookID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return PagePayload{}, domainError(http.StatusNotFound, "NOT_FOUND", "Book not found", nil)
		}
		return PagePayload{}, fmt.Errorf("get book: %w", err)
	}
	p, err := s.store.InsertPage(ctx, bookID, label)
	if err != nil {
		return PagePayload{}, fmt.Errorf("insert page: %w", err)
	}
	s.search.IndexPage(search.PageRecord{ID: p.ID, Label: p.Label, BookID: p.BookID})
	return pagePayload(p), nil
}

func (s *Service) UpdatePageLabel(ctx context.Context, bookID, pageID, label string) (PagePayload, error) {
	if err := s.store.UpdatePageLabel(ctx, pageID, label); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return PagePayload{}, domainError(http.StatusNotFound, "NOT_FOUND", "Page not found", nil)
		}
		return PagePayload{}, fmt.Errorf("update page label: %w", err)
	}
	s.search.IndexPage(search.PageRecord{ID: pageID, Label: label, BookID: bookID})
	return PagePayload{ID: pageID, BookID: bookID, Label: label}, nil
}

// DeletePage removes a page and returns any cards placed on it to the
// inventory. Remaining pages are reindexed to a contiguous order by the
// store.
func (s *Service) DeletePage(ctx context.Context, bookID, pageID string) error {
	if err := s.store.DeletePage(ctx, pageID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domainError(http.StatusNotFound, "NOT_FOUND", "Page not found", nil)
		}
		return fmt.Errorf("delete page: %w", err)
	}

	lb, err := s.board(ctx, bookID)
	if err == nil {
		lb.mu.Lock()
		lb.board.ReleasePage(pageID)
		if perr := s.persist(ctx, lb.board); perr != nil {
			log.Printf("app: persist after page delete: %v", perr)
		}
		lb.mu.Unlock()
	}

	s.search.DeletePage(pageID)
	return nil
}

// board returns the live board for a book, loading it on first use.
// s.mu is held across the whole load so each load pairs with its own
// echo save below.
func (s *Service) board(ctx context.Context, bookID string) (*liveBoard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if lb, ok := s.live[bookID]; ok {
		return lb, nil
	}

	b, err := s.store.GetBook(ctx, bookID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Book not found", nil)
	}
	if err != nil {
		return nil, fmt.Errorf("get book: %w", err)
	}

	inventory, err := s.boards.LoadInventory(ctx, bookID)
	if err != nil {
		return nil, fmt.Errorf("load inventory: %w", err)
	}
	slots, err := s.boards.LoadSlots(ctx, bookID)
	if err != nil {
		return nil, fmt.Errorf("load slots: %w", err)
	}

	rows, cols := registry.GridFor(b.BookTypeID, b.CardsPerSideRows, b.CardsPerSideCols)
	board := book.NewBoard(bookID, rows*cols, inventory, slots)

	// The cache drops the first save after each load. Echo the loaded
	// state back now to consume that guard, so every mutation save
	// reaches Redis.
	if err := s.persist(ctx, board); err != nil {
		log.Printf("app: echo save after load for %s: %v", bookID, err)
	}

	lb := &liveBoard{board: board}
	s.live[bookID] = lb
	return lb, nil
}

func (s *Service) evictBoard(bookID string) {
	s.mu.Lock()
	delete(s.live, bookID)
	s.mu.Unlock()
}

// persist writes both board snapshots. Inventory and slots always save
// together so a mutation can never be half-recorded.
func (s *Service) persist(ctx context.Context, b *book.Board) error {
	if err := s.boards.SaveInventory(ctx, b.BookID(), b.Inventory()); err != nil {
		return err
	}
	return s.boards.SaveSlots(ctx, b.BookID(), b.Slots())
}

type BoardPayload struct {
	BookID       string               `json:"bookId"`
	SlotCount    int                  `json:"slotCount"`
	Inventory    []book.Card          `json:"inventory"`
	Slots        book.SlotAssignments `json:"slots"`
	DisplaySides map[string]book.Side `json:"displaySides"`
}

func (s *Service) GetBoard(ctx context.Context, bookID string) (BoardPayload, error) {
	lb, err := s.board(ctx, bookID)
	if err != nil {
		return BoardPayload{}, err
	}
	lb.mu.Lock()
	defer lb.mu.Unlock()

	b := lb.board
	sides := map[string]book.Side{}
	for _, c := range b.Inventory() {
		sides[c.ID] = b.DisplaySide(c.ID)
	}
	for _, entries := range b.Slots() {
		for _, entry := range entries {
			if c, ok := entry.Card(); ok {
				sides[c.ID] = b.DisplaySide(c.ID)
			}
		}
	}
	// The payload is encoded after the board lock is released, so it
	// must not share state with the live board.
	inventory := make([]book.Card, len(b.Inventory()))
	for i, c := range b.Inventory() {
		inventory[i] = c.Clone()
	}
	return BoardPayload{
		BookID:       bookID,
		SlotCount:    b.SlotCount(),
		Inventory:    inventory,
		Slots:        b.Slots().Clone(),
		DisplaySides: sides,
	}, nil
}

// CreateCard adds a fresh card to the book's inventory. An empty card
// type picks the default for the book's type.
func (s *Service) CreateCard(ctx context.Context, bookID, cardTypeID string) (book.Card, error) {
	b, err := s.store.GetBook(ctx, bookID)
	if errors.Is(err, store.ErrNotFound) {
		return book.Card{}, domainError(http.StatusNotFound, "NOT_FOUND", "Book not found", nil)
	}
	if err != nil {
		return book.Card{}, fmt.Errorf("get book: %w", err)
	}
	if cardTypeID == "" {
		cardTypeID = registry.DefaultCardTypeID(b.BookTypeID)
	} else if !cardTypeAllowed(b.BookTypeID, cardTypeID) {
		return book.Card{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "card type not allowed for this book type", map[string]any{"cardTypeId": cardTypeID})
	}

	lb, err := s.board(ctx, bookID)
	if err != nil {
		return book.Card{}, err
	}
	lb.mu.Lock()
	defer lb.mu.Unlock()

	card := lb.board.CreateCard(cardTypeID)
	if err := s.persist(ctx, lb.board); err != nil {
		return book.Card{}, fmt.Errorf("persist board: %w", err)
	}
	s.search.IndexCard(search.CardRecord{ID: card.ID, BookID: bookID})
	return card, nil
}

// DeleteCard removes a card from wherever it lives and requests
// best-effort deletion of its uploaded images.
func (s *Service) DeleteCard(ctx context.Context, bookID, cardID string) error {
	lb, err := s.board(ctx, bookID)
	if err != nil {
		return err
	}
	lb.mu.Lock()
	defer lb.mu.Unlock()

	removed, urls := lb.board.DeleteCard(cardID)
	if !removed {
		return domainError(http.StatusNotFound, "NOT_FOUND", "Card not found", nil)
	}
	if err := s.persist(ctx, lb.board); err != nil {
		return fmt.Errorf("persist board: %w", err)
	}

	if s.uploads != nil && len(urls) > 0 {
		go func(urls []string) {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			s.uploads.Delete(ctx, urls)
		}(urls)
	}
	s.search.DeleteCard(cardID)
	return nil
}

// Move types accepted by MoveCard.
const (
	MoveInventoryToSlot = "inventoryToSlot"
	MoveSlotToSlot      = "slotToSlot"
	MoveSlotToInventory = "slotToInventory"
)

type MoveInput struct {
	Type       string `json:"type"`
	CardID     string `json:"cardId"`
	FromPageID string `json:"fromPageId"`
	FromSlot   int    `json:"fromSlot"`
	ToPageID   string `json:"toPageId"`
	ToSlot     int    `json:"toSlot"`
}

type MoveResult struct {
	Changed bool `json:"changed"`
}

// MoveCard executes one placement mutation. Moves that reference
// missing cards or slots report changed=false instead of failing.
func (s *Service) MoveCard(ctx context.Context, bookID string, in MoveInput) (MoveResult, error) {
	lb, err := s.board(ctx, bookID)
	if err != nil {
		return MoveResult{}, err
	}
	lb.mu.Lock()
	defer lb.mu.Unlock()

	var changed bool
	switch in.Type {
	case MoveInventoryToSlot:
		changed = lb.board.PlaceFromInventory(in.CardID, in.ToPageID, in.ToSlot)
	case MoveSlotToSlot:
		changed = lb.board.MoveSlotToSlot(in.FromPageID, in.FromSlot, in.ToPageID, in.ToSlot)
	case MoveSlotToInventory:
		changed = lb.board.ReturnToInventory(in.FromPageID, in.FromSlot)
	default:
		return MoveResult{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "unknown move type", map[string]any{"type": in.Type})
	}

	if changed {
		if err := s.persist(ctx, lb.board); err != nil {
			return MoveResult{}, fmt.Errorf("persist board: %w", err)
		}
	}
	return MoveResult{Changed: changed}, nil
}

// FlipCard toggles which side of a card is shown. View state only,
// never persisted.
func (s *Service) FlipCard(ctx context.Context, bookID, cardID string) (book.Side, error) {
	lb, err := s.board(ctx, bookID)
	if err != nil {
		return "", err
	}
	lb.mu.Lock()
	defer lb.mu.Unlock()

	if _, ok := lb.board.FindCard(cardID); !ok {
		return "", domainError(http.StatusNotFound, "NOT_FOUND", "Card not found", nil)
	}
	return lb.board.ToggleDisplaySide(cardID), nil
}

type SettingsPayload struct {
	CardID string             `json:"cardId"`
	Draft  book.SettingsDraft `json:"draft"`
}

func (s *Service) OpenSettings(ctx context.Context, bookID, cardID string) (SettingsPayload, error) {
	lb, err := s.board(ctx, bookID)
	if err != nil {
		return SettingsPayload{}, err
	}
	lb.mu.Lock()
	defer lb.mu.Unlock()

	session := lb.board.OpenSettings(cardID)
	if session == nil {
		return SettingsPayload{}, domainError(http.StatusNotFound, "NOT_FOUND", "Card not found", nil)
	}
	return SettingsPayload{CardID: session.CardID, Draft: session.Draft}, nil
}

func (s *Service) GetSettings(ctx context.Context, bookID string) (SettingsPayload, error) {
	lb, err := s.board(ctx, bookID)
	if err != nil {
		return SettingsPayload{}, err
	}
	lb.mu.Lock()
	defer lb.mu.Unlock()

	session := lb.board.Settings()
	if session == nil {
		return SettingsPayload{}, domainError(http.StatusNotFound, "NO_SETTINGS_SESSION", "No settings session open", nil)
	}
	return SettingsPayload{CardID: session.CardID, Draft: session.Draft}, nil
}

type UpdateSettingsInput struct {
	Side string `json:"side"` // "front" or "back"

	CardTypeID    *string `json:"cardTypeId"`
	Image         *string `json:"image"`
	ClearImage    bool    `json:"clearImage"`
	FilterEnabled *bool   `json:"filterEnabled"`
	FilterColor   *string `json:"filterColor"`
	FilterOpacity *int    `json:"filterOpacity"`
	Caption       *string `json:"caption"`
	Tags          *string `json:"tags"`
}

// UpdateSettings edits the open draft. Only provided fields change; the
// live card is untouched until apply.
func (s *Service) UpdateSettings(ctx context.Context, bookID string, in UpdateSettingsInput) (SettingsPayload, error) {
	side := book.Side(in.Side)
	if !side.Valid() {
		return SettingsPayload{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "side must be front or back", nil)
	}

	lb, err := s.board(ctx, bookID)
	if err != nil {
		return SettingsPayload{}, err
	}
	lb.mu.Lock()
	defer lb.mu.Unlock()

	session := lb.board.Settings()
	if session == nil {
		return SettingsPayload{}, domainError(http.StatusNotFound, "NO_SETTINGS_SESSION", "No settings session open", nil)
	}

	if in.CardTypeID != nil {
		b, err := s.store.GetBook(ctx, bookID)
		if err != nil {
			return SettingsPayload{}, fmt.Errorf("get book: %w", err)
		}
		if !cardTypeAllowed(b.BookTypeID, *in.CardTypeID) {
			return SettingsPayload{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "card type not allowed for this book type", map[string]any{"cardTypeId": *in.CardTypeID})
		}
		session.SetCardType(side, *in.CardTypeID)
	}
	if in.ClearImage {
		session.SetImage(side, nil)
	} else if in.Image != nil {
		session.SetImage(side, in.Image)
	}
	if in.FilterEnabled != nil || in.FilterColor != nil || in.FilterOpacity != nil {
		enabled, color, opacity := currentFilter(session.Draft, side)
		if in.FilterEnabled != nil {
			enabled = *in.FilterEnabled
		}
		if in.FilterColor != nil {
			color = *in.FilterColor
		}
		if in.FilterOpacity != nil {
			opacity = *in.FilterOpacity
		}
		session.SetFilter(side, enabled, color, opacity)
	}
	if in.Caption != nil {
		session.SetCaption(side, *in.Caption)
	}
	if in.Tags != nil {
		session.SetTags(side, *in.Tags)
	}

	return SettingsPayload{CardID: session.CardID, Draft: session.Draft}, nil
}

func currentFilter(d book.SettingsDraft, side book.Side) (bool, string, int) {
	if side == book.SideBack {
		return d.BackFilterColorEnabled, d.BackFilterColor, d.BackFilterOpacity
	}
	return d.FrontFilterColorEnabled, d.FrontFilterColor, d.FrontFilterOpacity
}

type ApplyResult struct {
	Applied bool `json:"applied"`
}

// ApplySettings merges the draft into the live card and closes the
// session. A card deleted mid-session makes this a no-op.
func (s *Service) ApplySettings(ctx context.Context, bookID string) (ApplyResult, error) {
	lb, err := s.board(ctx, bookID)
	if err != nil {
		return ApplyResult{}, err
	}
	lb.mu.Lock()
	defer lb.mu.Unlock()

	session := lb.board.Settings()
	if session == nil {
		return ApplyResult{}, domainError(http.StatusNotFound, "NO_SETTINGS_SESSION", "No settings session open", nil)
	}
	cardID := session.CardID
	caption := book.Caption(session.Draft.FrontCardTypeData)
	tags := book.Tags(session.Draft.FrontCardTypeData)

	applied := lb.board.ApplySettings()
	if applied {
		if err := s.persist(ctx, lb.board); err != nil {
			return ApplyResult{}, fmt.Errorf("persist board: %w", err)
		}
		s.search.IndexCard(search.CardRecord{ID: cardID, Caption: caption, Tags: tags, BookID: bookID})
	}
	return ApplyResult{Applied: applied}, nil
}

func (s *Service) CancelSettings(ctx context.Context, bookID string) error {
	lb, err := s.board(ctx, bookID)
	if err != nil {
		return err
	}
	lb.mu.Lock()
	defer lb.mu.Unlock()
	lb.board.CloseSettings()
	return nil
}

// UploadImage stores one card image. When a settings session is open
// for the book, the upload is single-flight per side and the resulting
// URL lands in the draft.
func (s *Service) UploadImage(ctx context.Context, bookID, side, filename, contentType string, size int64, r io.Reader) (string, error) {
	if s.uploads == nil {
		return "", domainError(http.StatusServiceUnavailable, "UPLOAD_UNAVAILABLE", "Image storage not configured", nil)
	}

	lb, err := s.board(ctx, bookID)
	if err != nil {
		return "", err
	}

	var session *book.SettingsSession
	uploadSide := book.Side(side)
	lb.mu.Lock()
	if uploadSide.Valid() {
		if open := lb.board.Settings(); open != nil {
			session = open
			if err := session.BeginUpload(uploadSide); err != nil {
				lb.mu.Unlock()
				return "", domainError(http.StatusConflict, "UPLOAD_IN_FLIGHT", "An upload is already in progress for this side", nil)
			}
		}
	}
	lb.mu.Unlock()

	url, err := s.uploads.Upload(ctx, bookID, filename, contentType, size, r)

	if session != nil {
		lb.mu.Lock()
		// The session may have been replaced while the upload ran.
		if lb.board.Settings() == session {
			session.FinishUpload(uploadSide, url, err == nil)
		}
		lb.mu.Unlock()
	}

	if errors.Is(err, upload.ErrNotImage) {
		return "", domainError(http.StatusBadRequest, "INVALID_UPLOAD", "Only image uploads are accepted", nil)
	}
	if err != nil {
		return "", fmt.Errorf("upload image: %w", err)
	}
	return url, nil
}

// DeleteUploads removes uploaded images by URL, best effort.
func (s *Service) DeleteUploads(ctx context.Context, urls []string) (int, error) {
	if s.uploads == nil {
		return 0, domainError(http.StatusServiceUnavailable, "UPLOAD_UNAVAILABLE", "Image storage not configured", nil)
	}
	return s.uploads.Delete(ctx, urls), nil
}

func (s *Service) Search(q search.Query) search.Response {
	return s.search.Search(q)
}

// ExportBookPDF renders the whole book, with resolved cards in their
// slots, to a printable PDF.
func (s *Service) ExportBookPDF(ctx context.Context, bookID string) (*export.Result, error) {
	b, err := s.store.GetBook(ctx, bookID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Book not found", nil)
	}
	if err != nil {
		return nil, fmt.Errorf("get book: %w", err)
	}
	pages, err := s.store.ListPages(ctx, bookID)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}

	lb, err := s.board(ctx, bookID)
	if err != nil {
		return nil, err
	}
	lb.mu.Lock()
	rows, cols := registry.GridFor(b.BookTypeID, b.CardsPerSideRows, b.CardsPerSideCols)
	data := export.BookData{Title: b.Title, Rows: rows, Cols: cols}
	for _, p := range pages {
		page := export.PageData{Label: p.Label}
		for i := 0; i < rows*cols; i++ {
			card, ok := lb.board.ResolveSlot(p.ID, i)
			if !ok {
				page.Slots = append(page.Slots, export.SlotData{Empty: true})
				continue
			}
			side := lb.board.DisplaySide(card.ID)
			slot := export.SlotData{
				ShowImage:     card.ShowImage(side),
				Caption:       book.CaptionFromCard(card, side),
				Tags:          book.TagsFromCard(card, side),
				FilterEnabled: card.FilterEnabled(side),
				FilterColor:   card.FilterColor(side),
				FilterOpacity: card.FilterOpacity(side),
			}
			slot.ImageURL = card.Image(side)
			page.Slots = append(page.Slots, slot)
		}
		data.Pages = append(data.Pages, page)
	}
	lb.mu.Unlock()

	result, err := s.exports.ExportPDF(data)
	if errors.Is(err, export.ErrPDFDependencyMissing) {
		return nil, domainError(http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "PDF export is not available on this host", nil)
	}
	if err != nil {
		return nil, fmt.Errorf("export pdf: %w", err)
	}
	return result, nil
}
