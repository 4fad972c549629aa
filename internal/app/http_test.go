package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"cardbook/api/internal/registry"
)

type httpTest struct {
	t       *testing.T
	server  *HTTPServer
	store   *fakeStore
	service *Service
	cookie  *http.Cookie
}

func newHTTPTest(t *testing.T, password string) *httpTest {
	t.Helper()
	fs := newFakeStore()
	svc := newService(t, fs, password)
	return &httpTest{
		t:       t,
		server:  NewHTTPServer(svc, "http://localhost:3000"),
		store:   fs,
		service: svc,
	}
}

// login obtains a session cookie for subsequent requests.
func (h *httpTest) login(password string) {
	h.t.Helper()
	rec := h.do(http.MethodPost, "/api/auth/login", map[string]any{"password": password})
	if rec.Code != http.StatusOK {
		h.t.Fatalf("login returned %d: %s", rec.Code, rec.Body.String())
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == "cardbook_session" {
			h.cookie = c
			return
		}
	}
	h.t.Fatalf("login response set no session cookie")
}

func (h *httpTest) do(method, path string, body any) *httptest.ResponseRecorder {
	h.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			h.t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if h.cookie != nil {
		req.AddCookie(h.cookie)
	}
	rec := httptest.NewRecorder()
	h.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), target); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Code string `json:"code"`
	}
	decodeResponse(t, rec, &body)
	return body.Code
}

func TestHealthEndpoint(t *testing.T) {
	h := newHTTPTest(t, "pw")
	rec := h.do(http.MethodGet, "/api/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("health returned %d", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Errorf("responses should carry a request id")
	}
}

func TestReadyEndpoint(t *testing.T) {
	h := newHTTPTest(t, "pw")
	rec := h.do(http.MethodGet, "/api/ready", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("ready returned %d: %s", rec.Code, rec.Body.String())
	}

	h.store.pingFn = func(context.Context) error { return errors.New("connection refused") }
	rec = h.do(http.MethodGet, "/api/ready", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("ready with a failing database should return 503, got %d", rec.Code)
	}
	var body struct {
		Status string `json:"status"`
	}
	decodeResponse(t, rec, &body)
	if body.Status != "not_ready" {
		t.Errorf("status = %q", body.Status)
	}
}

func TestLogin(t *testing.T) {
	h := newHTTPTest(t, "secret")

	rec := h.do(http.MethodPost, "/api/auth/login", map[string]any{"password": "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong password should return 401, got %d", rec.Code)
	}

	h.login("secret")
	if h.cookie.Value == "" || !h.cookie.HttpOnly {
		t.Errorf("session cookie should be a non-empty HttpOnly cookie")
	}

	rec = h.do(http.MethodGet, "/api/auth/session", nil)
	var session struct {
		Authenticated bool `json:"authenticated"`
	}
	decodeResponse(t, rec, &session)
	if !session.Authenticated {
		t.Errorf("session endpoint should report authenticated after login")
	}
}

func TestLoginUnconfigured(t *testing.T) {
	h := newHTTPTest(t, "")
	rec := h.do(http.MethodPost, "/api/auth/login", map[string]any{"password": "anything"})
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("unconfigured login should return 503, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "AUTH_UNAVAILABLE" {
		t.Errorf("code = %q", code)
	}
}

func TestLogout(t *testing.T) {
	h := newHTTPTest(t, "secret")
	h.login("secret")

	rec := h.do(http.MethodPost, "/api/auth/logout", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout returned %d", rec.Code)
	}

	rec = h.do(http.MethodGet, "/api/books", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("revoked session should be rejected, got %d", rec.Code)
	}
}

func TestRequiresSession(t *testing.T) {
	h := newHTTPTest(t, "secret")
	rec := h.do(http.MethodGet, "/api/books", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated request should return 401, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "UNAUTHORIZED" {
		t.Errorf("code = %q", code)
	}
}

func TestBookEndpoints(t *testing.T) {
	h := newHTTPTest(t, "secret")
	h.login("secret")

	rec := h.do(http.MethodPost, "/api/books", map[string]any{"title": "  "})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("blank title should return 422, got %d", rec.Code)
	}

	rec = h.do(http.MethodPost, "/api/books", map[string]any{
		"title":      "Summer Trip",
		"bookTypeId": registry.BookTypeBasic,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create book returned %d: %s", rec.Code, rec.Body.String())
	}
	var created BookPayload
	decodeResponse(t, rec, &created)
	if created.ID == "" || created.Rows != 3 || created.Cols != 4 {
		t.Errorf("unexpected book payload: %+v", created)
	}

	rec = h.do(http.MethodGet, "/api/books", nil)
	var list struct {
		Books []BookPayload `json:"books"`
	}
	decodeResponse(t, rec, &list)
	if len(list.Books) != 1 {
		t.Errorf("expected one book, got %d", len(list.Books))
	}

	rec = h.do(http.MethodGet, "/api/books/"+created.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get book returned %d", rec.Code)
	}
	var detail struct {
		Book  BookPayload   `json:"book"`
		Pages []PagePayload `json:"pages"`
	}
	decodeResponse(t, rec, &detail)
	if len(detail.Pages) != registry.DefaultBookPages {
		t.Errorf("expected %d pages, got %d", registry.DefaultBookPages, len(detail.Pages))
	}

	rec = h.do(http.MethodPatch, "/api/books/"+created.ID, map[string]any{"title": "Winter Trip"})
	var renamed BookPayload
	decodeResponse(t, rec, &renamed)
	if renamed.Title != "Winter Trip" {
		t.Errorf("title = %q", renamed.Title)
	}

	rec = h.do(http.MethodPatch, "/api/books/"+created.ID, map[string]any{})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("empty patch should return 422, got %d", rec.Code)
	}

	rec = h.do(http.MethodGet, "/api/books/book_missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing book should return 404, got %d", rec.Code)
	}

	rec = h.do(http.MethodDelete, "/api/books/"+created.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete book returned %d", rec.Code)
	}
	rec = h.do(http.MethodGet, "/api/books/"+created.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("deleted book should return 404, got %d", rec.Code)
	}
}

func TestBoardEndpoints(t *testing.T) {
	h := newHTTPTest(t, "secret")
	h.login("secret")

	rec := h.do(http.MethodPost, "/api/books", map[string]any{
		"title":      "Trip",
		"bookTypeId": registry.BookTypeBasic,
	})
	var created BookPayload
	decodeResponse(t, rec, &created)

	rec = h.do(http.MethodGet, "/api/books/"+created.ID+"/pages", nil)
	var pages struct {
		Pages []PagePayload `json:"pages"`
	}
	decodeResponse(t, rec, &pages)
	pageID := pages.Pages[0].ID

	rec = h.do(http.MethodPost, "/api/books/"+created.ID+"/cards", map[string]any{})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create card returned %d: %s", rec.Code, rec.Body.String())
	}
	var card struct {
		ID string `json:"id"`
	}
	decodeResponse(t, rec, &card)

	rec = h.do(http.MethodPost, "/api/books/"+created.ID+"/moves", map[string]any{
		"type":     MoveInventoryToSlot,
		"cardId":   card.ID,
		"toPageId": pageID,
		"toSlot":   0,
	})
	var move MoveResult
	decodeResponse(t, rec, &move)
	if !move.Changed {
		t.Fatalf("place should report changed=true: %s", rec.Body.String())
	}

	// Ghost moves succeed without changing anything.
	rec = h.do(http.MethodPost, "/api/books/"+created.ID+"/moves", map[string]any{
		"type":     MoveInventoryToSlot,
		"cardId":   "ghost",
		"toPageId": pageID,
		"toSlot":   1,
	})
	decodeResponse(t, rec, &move)
	if rec.Code != http.StatusOK || move.Changed {
		t.Errorf("ghost move: status=%d changed=%v", rec.Code, move.Changed)
	}

	rec = h.do(http.MethodPost, "/api/books/"+created.ID+"/moves", map[string]any{"type": "teleport"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("unknown move type should return 422, got %d", rec.Code)
	}

	rec = h.do(http.MethodGet, "/api/books/"+created.ID+"/board", nil)
	var board BoardPayload
	decodeResponse(t, rec, &board)
	if board.SlotCount != 12 || len(board.Inventory) != 0 {
		t.Errorf("board after place: slotCount=%d inventory=%d", board.SlotCount, len(board.Inventory))
	}
	if c, ok := board.Slots[pageID][0].Card(); !ok || c.ID != card.ID {
		t.Errorf("card should sit in slot 0 of page %s", pageID)
	}

	rec = h.do(http.MethodPost, "/api/books/"+created.ID+"/cards/"+card.ID+"/flip", nil)
	var flip struct {
		Side string `json:"side"`
	}
	decodeResponse(t, rec, &flip)
	if flip.Side != "back" {
		t.Errorf("first flip should show the back, got %q", flip.Side)
	}

	rec = h.do(http.MethodDelete, "/api/books/"+created.ID+"/cards/"+card.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete card returned %d", rec.Code)
	}
	rec = h.do(http.MethodDelete, "/api/books/"+created.ID+"/cards/"+card.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("deleting a missing card should return 404, got %d", rec.Code)
	}
}

func TestSettingsEndpoints(t *testing.T) {
	h := newHTTPTest(t, "secret")
	h.login("secret")

	rec := h.do(http.MethodPost, "/api/books", map[string]any{
		"title":      "Trip",
		"bookTypeId": registry.BookTypeBasic,
	})
	var created BookPayload
	decodeResponse(t, rec, &created)

	rec = h.do(http.MethodGet, "/api/books/"+created.ID+"/settings", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("no open session should return 404, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "NO_SETTINGS_SESSION" {
		t.Errorf("code = %q", code)
	}

	rec = h.do(http.MethodPost, "/api/books/"+created.ID+"/cards", map[string]any{})
	var card struct {
		ID string `json:"id"`
	}
	decodeResponse(t, rec, &card)

	rec = h.do(http.MethodPost, "/api/books/"+created.ID+"/cards/"+card.ID+"/settings", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("open settings returned %d: %s", rec.Code, rec.Body.String())
	}

	rec = h.do(http.MethodPatch, "/api/books/"+created.ID+"/settings", map[string]any{
		"side":    "front",
		"caption": "sunset",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("patch settings returned %d: %s", rec.Code, rec.Body.String())
	}

	rec = h.do(http.MethodPatch, "/api/books/"+created.ID+"/settings", map[string]any{"side": "sideways"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("invalid side should return 422, got %d", rec.Code)
	}

	rec = h.do(http.MethodPost, "/api/books/"+created.ID+"/settings/apply", nil)
	var apply ApplyResult
	decodeResponse(t, rec, &apply)
	if !apply.Applied {
		t.Errorf("apply should succeed: %s", rec.Body.String())
	}

	// Session is gone after apply; cancel is still a safe no-op.
	rec = h.do(http.MethodGet, "/api/books/"+created.ID+"/settings", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("session should be closed after apply, got %d", rec.Code)
	}
	rec = h.do(http.MethodDelete, "/api/books/"+created.ID+"/settings", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("cancel without a session should still return 200, got %d", rec.Code)
	}
}

func TestUploadEndpointUnconfigured(t *testing.T) {
	h := newHTTPTest(t, "secret")
	h.login("secret")

	rec := h.do(http.MethodPost, "/api/books", map[string]any{
		"title":      "Trip",
		"bookTypeId": registry.BookTypeBasic,
	})
	var created BookPayload
	decodeResponse(t, rec, &created)

	rec = h.doMultipart("/api/upload", map[string]string{"bookId": created.ID, "side": "front"}, "a.png", "image/png")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("upload without object storage should return 503, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "UPLOAD_UNAVAILABLE" {
		t.Errorf("code = %q", code)
	}

	rec = h.doMultipart("/api/upload", map[string]string{"side": "front"}, "a.png", "image/png")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("upload without bookId should return 422, got %d", rec.Code)
	}

	rec = h.do(http.MethodDelete, "/api/upload", map[string]any{"urls": []string{"http://x/y.png"}})
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("delete uploads without object storage should return 503, got %d", rec.Code)
	}
}

func (h *httpTest) doMultipart(path string, fields map[string]string, filename, contentType string) *httptest.ResponseRecorder {
	h.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		_ = mw.WriteField(k, v)
	}
	part, err := mw.CreatePart(map[string][]string{
		"Content-Disposition": {fmt.Sprintf(`form-data; name="file"; filename=%q`, filename)},
		"Content-Type":        {contentType},
	})
	if err != nil {
		h.t.Fatalf("create part: %v", err)
	}
	_, _ = part.Write([]byte("fake image bytes"))
	if err := mw.Close(); err != nil {
		h.t.Fatalf("close multipart: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if h.cookie != nil {
		req.AddCookie(h.cookie)
	}
	rec := httptest.NewRecorder()
	h.server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestSearchEndpoint(t *testing.T) {
	h := newHTTPTest(t, "secret")
	h.login("secret")

	rec := h.do(http.MethodGet, "/api/search?q=", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("search returned %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Results []json.RawMessage `json:"results"`
	}
	decodeResponse(t, rec, &body)
	if len(body.Results) != 0 {
		t.Errorf("empty query should return no results")
	}
}

func TestUnknownRoute(t *testing.T) {
	h := newHTTPTest(t, "secret")
	h.login("secret")
	rec := h.do(http.MethodGet, "/api/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown route should return 404, got %d", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	h := newHTTPTest(t, "secret")
	rec := h.do(http.MethodOptions, "/api/books", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight returned %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
	if !strings.Contains(rec.Header().Get("Access-Control-Allow-Methods"), "PATCH") {
		t.Errorf("PATCH should be an allowed method")
	}
}
