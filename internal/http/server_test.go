package http

import (
	"context"
	"io"
	stdhttp "net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"inkwell/app/internal/cache"
	"inkwell/app/internal/db"
	"inkwell/app/internal/markdown"
	"inkwell/app/internal/wiki"
)

var csrfTokenPattern = regexp.MustCompile(`name="gorilla.csrf.Token" value="([^"]+)"`)

func TestHomeRedirectsToHomePage(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != stdhttp.StatusFound {
		t.Fatalf("expected status 302, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/wiki/home" {
		t.Fatalf("expected redirect to /wiki/home, got %q", loc)
	}
}

func TestPageRouteRendersMarkdown(t *testing.T) {
	t.Parallel()

	srv, store := newTestServer(t)

	if _, err := store.SavePage(context.Background(), wiki.PageInput{
		Name:    "alpha",
		Content: "# Alpha\n\nSome *notes*.",
	}); err != nil {
		t.Fatalf("SavePage returned error: %v", err)
	}

	req := httptest.NewRequest("GET", "/wiki/alpha", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != htmlContentType {
		t.Fatalf("expected content type %q, got %q", htmlContentType, ct)
	}

	body := rec.Body.String()
	if !strings.Contains(body, "<h1") || !strings.Contains(body, "Alpha") {
		t.Fatalf("expected rendered heading in body, got %q", body)
	}
	if !strings.Contains(body, "<em>notes</em>") {
		t.Fatalf("expected rendered emphasis in body, got %q", body)
	}
}

func TestPageRouteMatchesCaseInsensitively(t *testing.T) {
	t.Parallel()

	srv, store := newTestServer(t)

	if _, err := store.SavePage(context.Background(), wiki.PageInput{
		Name:    "My Page",
		Content: "# Hi",
	}); err != nil {
		t.Fatalf("SavePage returned error: %v", err)
	}

	req := httptest.NewRequest("GET", "/wiki/MY-PAGE", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
}

func TestMissingPageRedirectsToEditForm(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)

	req := httptest.NewRequest("GET", "/wiki/ghost", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != stdhttp.StatusFound {
		t.Fatalf("expected status 302, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/edit/ghost" {
		t.Fatalf("expected redirect to /edit/ghost, got %q", loc)
	}
}

func TestEditFormCarriesTokenAndPrefill(t *testing.T) {
	t.Parallel()

	srv, store := newTestServer(t)

	if _, err := store.SavePage(context.Background(), wiki.PageInput{
		Name:    "alpha",
		Content: "existing text",
	}); err != nil {
		t.Fatalf("SavePage returned error: %v", err)
	}

	req := httptest.NewRequest("GET", "/edit/alpha", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	body := rec.Body.String()
	if !csrfTokenPattern.MatchString(body) {
		t.Fatalf("expected anti-forgery token field in form, got %q", body)
	}
	if !strings.Contains(body, "existing text") {
		t.Fatalf("expected form to be prefilled, got %q", body)
	}
}

func TestSaveFlowCreatesPage(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)

	rec := postForm(t, srv, url.Values{
		"name":    {"My Page"},
		"content": {"# Hi"},
	})

	if rec.Code != stdhttp.StatusSeeOther {
		t.Fatalf("expected status 303, got %d: %s", rec.Code, rec.Body.String())
	}
	if loc := rec.Header().Get("Location"); loc != "/wiki/my-page" {
		t.Fatalf("expected redirect to /wiki/my-page, got %q", loc)
	}

	view := httptest.NewRequest("GET", "/wiki/my-page", nil)
	viewRec := httptest.NewRecorder()
	srv.ServeHTTP(viewRec, view)

	if viewRec.Code != stdhttp.StatusOK {
		t.Fatalf("expected saved page to render, got %d", viewRec.Code)
	}
	if !strings.Contains(viewRec.Body.String(), "Hi") {
		t.Fatalf("expected saved content in body, got %q", viewRec.Body.String())
	}
}

func TestSaveWithoutTokenIsForbidden(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)

	form := url.Values{"name": {"x"}, "content": {"y"}}
	req := httptest.NewRequest("POST", "/save", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != stdhttp.StatusForbidden {
		t.Fatalf("expected status 403, got %d", rec.Code)
	}
}

func TestSaveWithEmptyContentRerendersForm(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)

	rec := postForm(t, srv, url.Values{
		"name":    {"my-page"},
		"content": {""},
	})

	if rec.Code != stdhttp.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "enter page content") {
		t.Fatalf("expected content violation message, got %q", rec.Body.String())
	}
}

func TestSaveRejectsRenamingHomePage(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)

	rec := postForm(t, srv, url.Values{
		"name":      {"not-home"},
		"content":   {"welcome"},
		"requested": {"home"},
	})

	if rec.Code != stdhttp.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "cannot be renamed") {
		t.Fatalf("expected rename violation message, got %q", rec.Body.String())
	}
}

func TestSaveKeepingHomeNameSucceeds(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)

	rec := postForm(t, srv, url.Values{
		"name":      {"home"},
		"content":   {"welcome"},
		"requested": {"home"},
	})

	if rec.Code != stdhttp.StatusSeeOther {
		t.Fatalf("expected status 303, got %d: %s", rec.Code, rec.Body.String())
	}
	if loc := rec.Header().Get("Location"); loc != "/wiki/home" {
		t.Fatalf("expected redirect to /wiki/home, got %q", loc)
	}
}

func TestListRouteShowsPages(t *testing.T) {
	t.Parallel()

	srv, store := newTestServer(t)

	for _, name := range []string{"alpha", "beta"} {
		if _, err := store.SavePage(context.Background(), wiki.PageInput{
			Name:    name,
			Content: "content",
		}); err != nil {
			t.Fatalf("SavePage returned error: %v", err)
		}
	}

	req := httptest.NewRequest("GET", "/pages", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	body := rec.Body.String()
	for _, name := range []string{"alpha", "beta"} {
		if !strings.Contains(body, name) {
			t.Fatalf("expected %q in listing, got %q", name, body)
		}
	}
}

func TestHealthRouteReportsOK(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)

	req := httptest.NewRequest("GET", "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Fatalf("expected ok status in body, got %q", rec.Body.String())
	}
}

func TestFormRoutesShareRateLimiter(t *testing.T) {
	t.Parallel()

	srv, _ := newThrottledTestServer(t)

	first := httptest.NewRequest("GET", "/wiki/ghost", nil)
	firstRec := httptest.NewRecorder()
	srv.ServeHTTP(firstRec, first)
	if firstRec.Code != stdhttp.StatusFound {
		t.Fatalf("expected status 302 for the first request, got %d", firstRec.Code)
	}

	formReq := httptest.NewRequest("GET", "/new", nil)
	formRec := httptest.NewRecorder()
	srv.ServeHTTP(formRec, formReq)

	if formRec.Code != stdhttp.StatusTooManyRequests {
		t.Fatalf("expected status 429 on the form route with an exhausted budget, got %d", formRec.Code)
	}
	if formRec.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header on the throttled response")
	}
	if formRec.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected request id header on the form route")
	}
	if !strings.Contains(formRec.Body.String(), "too quickly") {
		t.Fatalf("expected throttle message in body, got %q", formRec.Body.String())
	}

	editReq := httptest.NewRequest("GET", "/edit/ghost", nil)
	editRec := httptest.NewRecorder()
	srv.ServeHTTP(editRec, editReq)
	if editRec.Code != stdhttp.StatusTooManyRequests {
		t.Fatalf("expected status 429 on the edit route with an exhausted budget, got %d", editRec.Code)
	}
}

func TestNewServerRequiresStore(t *testing.T) {
	t.Parallel()

	if _, err := NewServer(Options{}); err == nil {
		t.Fatalf("expected error when store missing")
	}
}

// postForm fetches the edit form to obtain an anti-forgery token and cookie,
// then submits the provided values through POST /save.
func postForm(t *testing.T, srv *Server, form url.Values) *httptest.ResponseRecorder {
	t.Helper()

	formReq := httptest.NewRequest("GET", "/new", nil)
	formRec := httptest.NewRecorder()
	srv.ServeHTTP(formRec, formReq)

	if formRec.Code != stdhttp.StatusOK {
		t.Fatalf("fetching form returned status %d", formRec.Code)
	}

	match := csrfTokenPattern.FindStringSubmatch(formRec.Body.String())
	if match == nil {
		t.Fatalf("no anti-forgery token in form body")
	}
	form.Set("gorilla.csrf.Token", match[1])

	req := httptest.NewRequest("POST", "/save", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, cookie := range formRec.Result().Cookies() {
		req.AddCookie(cookie)
	}

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func newTestServer(t *testing.T) (*Server, wiki.Store) {
	t.Helper()

	return newTestServerWithLimits(t, RateLimiterSettings{
		RequestsPerSecond: 1000,
		Burst:             1000,
		ClientTTL:         time.Minute,
	})
}

func newThrottledTestServer(t *testing.T) (*Server, wiki.Store) {
	t.Helper()

	return newTestServerWithLimits(t, RateLimiterSettings{
		RequestsPerSecond: 0.001,
		Burst:             1,
		ClientTTL:         time.Minute,
	})
}

func newTestServerWithLimits(t *testing.T, limits RateLimiterSettings) (*Server, wiki.Store) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "server.db")
	gormDB, err := db.Open(db.Options{Path: path})
	if err != nil {
		t.Fatalf("db.Open returned error: %v", err)
	}
	t.Cleanup(func() {
		if closeErr := db.Close(gormDB); closeErr != nil {
			t.Errorf("closing database failed: %v", closeErr)
		}
	})

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	if err := wiki.Migrate(context.Background(), gormDB, logger); err != nil {
		t.Fatalf("Migrate returned error: %v", err)
	}

	repo, err := wiki.NewRepository(gormDB, logger)
	if err != nil {
		t.Fatalf("NewRepository returned error: %v", err)
	}

	store, err := wiki.NewStore(wiki.StoreOptions{
		Repository: repo,
		Cache:      cache.NewMemory(time.Minute, time.Minute),
		Sanitizer:  markdown.NewSanitizer(),
		Logger:     logger,
	})
	if err != nil {
		t.Fatalf("NewStore returned error: %v", err)
	}

	srv, err := NewServer(Options{
		Store:      store,
		Markdown:   markdown.NewRenderer(),
		Database:   gormDB,
		Logger:     logger,
		HomePage:    "home",
		CSRFKey:     []byte(strings.Repeat("k", 32)),
		CSRFSecure:  false,
		RateLimiter: limits,
	})
	if err != nil {
		t.Fatalf("NewServer returned error: %v", err)
	}
	t.Cleanup(srv.Close)

	return srv, store
}
