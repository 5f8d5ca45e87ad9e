package http

import (
	"context"
	"fmt"
	"html/template"
	stdhttp "net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/sirupsen/logrus"

	"inkwell/app/internal/db"
	"inkwell/app/internal/http/templates"
	"inkwell/app/internal/wiki"
)

const (
	htmlContentType      = "text/html; charset=utf-8"
	errorFallbackMessage = "We couldn't process your request right now."
)

type htmlResponse struct {
	Status      int
	ContentType string `header:"Content-Type"`
	Location    string `header:"Location"`
	Body        []byte
}

type pageInput struct {
	Name string `path:"name"`
}

type healthResponse struct {
	Status int
	Body   struct {
		Status   string `json:"status"`
		Database string `json:"database"`
	}
}

func (s *Server) registerHomeRoute() {
	huma.Get(s.api, "/", s.homeHandler, htmlOperation("Redirect to the home page", stdhttp.StatusFound))
}

func (s *Server) registerPageRoute() {
	huma.Get(s.api, "/wiki/{name}", s.pageHandler, htmlOperation(
		"Render a wiki page",
		stdhttp.StatusFound,
		stdhttp.StatusBadRequest,
		stdhttp.StatusInternalServerError,
	))
}

func (s *Server) registerListRoute() {
	huma.Get(s.api, "/pages", s.listHandler, htmlOperation(
		"List all pages",
		stdhttp.StatusInternalServerError,
	))
}

func (s *Server) registerHealthRoute() {
	huma.Get(s.api, "/healthz", s.healthHandler, func(op *huma.Operation) {
		op.Summary = "Health check"
	})
}

func (s *Server) homeHandler(ctx context.Context, _ *struct{}) (*htmlResponse, error) {
	response := newHTMLResponse(stdhttp.StatusFound, nil)
	response.Location = "/wiki/" + url.PathEscape(s.homePage)
	return response, nil
}

// pageHandler renders an existing page, or redirects an unknown name to the
// edit form so the visitor can create it.
func (s *Server) pageHandler(ctx context.Context, input *pageInput) (*htmlResponse, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return s.renderErrorResponse(ctx, stdhttp.StatusBadRequest, "A page name is required.")
	}

	page, err := s.store.GetPage(ctx, name)
	if err != nil {
		s.recordError(ctx, err, "loading wiki page", logrus.Fields{"name": name})
		return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, errorFallbackMessage)
	}

	if page == nil {
		response := newHTMLResponse(stdhttp.StatusFound, nil)
		response.Location = "/edit/" + url.PathEscape(wiki.NormalizeName(name))
		return response, nil
	}

	rendered, err := s.markdown.Render(page.Content)
	if err != nil {
		s.recordError(ctx, err, "rendering page markdown", logrus.Fields{"name": page.Name})
		return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, "We couldn't render this page.")
	}

	data := templates.PageView{
		Title:        pageTitle(page.Name) + " • Inkwell",
		Heading:      pageTitle(page.Name),
		Name:         page.Name,
		EditURL:      "/edit/" + url.PathEscape(page.Name),
		HTML:         template.HTML(rendered),
		LastModified: page.UpdatedAt.Format("Jan 2, 2006 15:04 MST"),
		IsHome:       wiki.IsHomePage(page.Name, s.homePage),
	}

	body, err := s.views.render("page.html", data)
	if err != nil {
		s.recordError(ctx, err, "rendering page view", logrus.Fields{"name": page.Name})
		return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, "We couldn't render this page.")
	}

	return newHTMLResponse(stdhttp.StatusOK, body), nil
}

func (s *Server) listHandler(ctx context.Context, _ *struct{}) (*htmlResponse, error) {
	pages, err := s.store.ListAllPages(ctx)
	if err != nil {
		s.recordError(ctx, err, "listing pages", nil)
		return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, "We couldn't load the page list right now.")
	}

	data := templates.ListView{
		Title: "All pages • Inkwell",
		Count: len(pages),
	}
	data.Pages = make([]templates.ListItem, 0, len(pages))
	for _, page := range pages {
		data.Pages = append(data.Pages, templates.ListItem{
			Name:         page.Name,
			URL:          "/wiki/" + url.PathEscape(page.Name),
			LastModified: page.UpdatedAt.Format("Jan 2, 2006"),
		})
	}

	body, err := s.views.render("pages.html", data)
	if err != nil {
		s.recordError(ctx, err, "rendering page list", nil)
		return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, "We couldn't render the page list.")
	}

	return newHTMLResponse(stdhttp.StatusOK, body), nil
}

func (s *Server) healthHandler(ctx context.Context, _ *struct{}) (*healthResponse, error) {
	resp := &healthResponse{}
	resp.Body.Status = "ok"
	resp.Body.Database = "ok"

	sqlDB, err := db.SQLDB(s.db)
	if err != nil {
		s.recordError(ctx, err, "obtaining sql db", nil)
		resp.Body.Status = "degraded"
		resp.Body.Database = "error"
		resp.Status = stdhttp.StatusServiceUnavailable
	} else if pingErr := sqlDB.PingContext(ctx); pingErr != nil {
		s.recordError(ctx, pingErr, "pinging database", nil)
		resp.Body.Status = "degraded"
		resp.Body.Database = "error"
		resp.Status = stdhttp.StatusServiceUnavailable
	}

	if resp.Status == 0 {
		resp.Status = stdhttp.StatusOK
	}

	return resp, nil
}

func newHTMLResponse(status int, body []byte) *htmlResponse {
	return &htmlResponse{
		Status:      status,
		ContentType: htmlContentType,
		Body:        body,
	}
}

func htmlOperation(summary string, statuses ...int) func(op *huma.Operation) {
	return func(op *huma.Operation) {
		if summary != "" {
			op.Summary = summary
		}
		if op.Responses == nil {
			op.Responses = map[string]*huma.Response{}
		}

		statusCodes := append([]int{stdhttp.StatusOK}, statuses...)
		for _, status := range statusCodes {
			code := strconv.Itoa(status)
			op.Responses[code] = &huma.Response{
				Description: stdhttp.StatusText(status),
				Content: map[string]*huma.MediaType{
					htmlContentType: {
						Schema: &huma.Schema{Type: "string"},
					},
				},
			}
		}
	}
}

func (s *Server) renderErrorResponse(ctx context.Context, status int, message string) (*htmlResponse, error) {
	label := fmt.Sprintf("%d %s", status, stdhttp.StatusText(status))
	data := templates.ErrorView{
		Title:       label + " • Inkwell",
		StatusLabel: label,
		Message:     message,
	}

	body, err := s.views.render("error.html", data)
	if err != nil {
		s.recordError(ctx, err, "rendering error page", logrus.Fields{"status": status})
		fallback := []byte(fmt.Sprintf("<html><body><h1>%s</h1><p>%s</p></body></html>", label, message))
		return newHTMLResponse(status, fallback), nil
	}

	return newHTMLResponse(status, body), nil
}

// pageTitle turns a stored page name into a heading: hyphens become spaces.
func pageTitle(name string) string {
	return strings.ReplaceAll(name, "-", " ")
}
