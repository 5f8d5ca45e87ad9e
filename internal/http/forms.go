package http

import (
	stdhttp "net/http"
	"net/url"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/gorilla/csrf"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"inkwell/app/internal/http/templates"
	"inkwell/app/internal/wiki"
)

// newFormHandler serves a blank create form.
func (s *Server) newFormHandler(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	s.writeEditForm(w, r, stdhttp.StatusOK, "", wiki.PageInput{}, nil)
}

// editFormHandler serves the edit form for the named page, prefilled when
// the page already exists.
func (s *Server) editFormHandler(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	name := strings.TrimSpace(r.PathValue("name"))
	if name == "" {
		s.writeErrorPage(w, r, stdhttp.StatusBadRequest, "A page name is required.")
		return
	}

	requested := wiki.NormalizeName(name)

	input := wiki.PageInput{Name: requested}
	page, err := s.store.GetPage(r.Context(), name)
	if err != nil {
		s.recordError(r.Context(), err, "loading page for edit form", logrus.Fields{"name": name})
		s.writeErrorPage(w, r, stdhttp.StatusInternalServerError, errorFallbackMessage)
		return
	}
	if page != nil {
		requested = page.Name
		input = wiki.PageInput{ID: page.ID, Name: page.Name, Content: page.Content}
	}

	s.writeEditForm(w, r, stdhttp.StatusOK, requested, input, nil)
}

// saveHandler decodes the submitted form, validates it, and persists the
// page. Validation failures re-render the form with field messages.
func (s *Server) saveHandler(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	if err := r.ParseForm(); err != nil {
		s.writeErrorPage(w, r, stdhttp.StatusBadRequest, "We couldn't read the submitted form.")
		return
	}

	var input wiki.PageInput
	if err := s.decoder.Decode(&input, r.PostForm); err != nil {
		s.recordError(r.Context(), eris.Wrap(err, "decoding page form"), "decoding page form", nil)
		s.writeErrorPage(w, r, stdhttp.StatusBadRequest, "We couldn't read the submitted form.")
		return
	}

	requested := strings.TrimSpace(r.PostForm.Get("requested"))

	if violations := wiki.ValidateInput(input, requested, s.homePage); len(violations) > 0 {
		s.writeEditForm(w, r, stdhttp.StatusUnprocessableEntity, requested, input, violations)
		return
	}

	result, err := s.store.SavePage(r.Context(), input)
	if err != nil {
		if eris.Is(err, wiki.ErrNameTaken) {
			violations := validation.Errors{
				"name": eris.New("a page with this name already exists"),
			}
			s.writeEditForm(w, r, stdhttp.StatusUnprocessableEntity, requested, input, violations)
			return
		}

		s.recordError(r.Context(), err, "saving page", logrus.Fields{"name": input.Name})
		s.writeErrorPage(w, r, stdhttp.StatusInternalServerError, "We couldn't save the page right now.")
		return
	}

	stdhttp.Redirect(w, r, "/wiki/"+url.PathEscape(result.Page.Name), stdhttp.StatusSeeOther)
}

func (s *Server) writeEditForm(w stdhttp.ResponseWriter, r *stdhttp.Request, status int, requested string, input wiki.PageInput, violations validation.Errors) {
	heading := "Create a page"
	if input.ID != 0 {
		heading = "Edit " + pageTitle(input.Name)
	}

	data := templates.EditView{
		Title:         heading + " • Inkwell",
		Heading:       heading,
		RequestedName: requested,
		ID:            input.ID,
		Name:          input.Name,
		Content:       input.Content,
		Attachment:    input.Attachment,
		Violations:    violationMessages(violations),
		CSRFField:     csrf.TemplateField(r),
		IsHome:        wiki.IsHomePage(requested, s.homePage),
	}

	body, err := s.views.render("edit.html", data)
	if err != nil {
		s.recordError(r.Context(), err, "rendering edit form", logrus.Fields{"name": input.Name})
		s.writeErrorPage(w, r, stdhttp.StatusInternalServerError, "We couldn't render the edit form.")
		return
	}

	w.Header().Set("Content-Type", htmlContentType)
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func (s *Server) writeErrorPage(w stdhttp.ResponseWriter, r *stdhttp.Request, status int, message string) {
	resp, err := s.renderErrorResponse(r.Context(), status, message)
	if err != nil || resp == nil {
		stdhttp.Error(w, message, status)
		return
	}

	w.Header().Set("Content-Type", resp.ContentType)
	w.WriteHeader(status)
	_, _ = w.Write(resp.Body)
}

func violationMessages(violations validation.Errors) map[string]string {
	if len(violations) == 0 {
		return nil
	}

	messages := make(map[string]string, len(violations))
	for field, err := range violations {
		messages[field] = err.Error()
	}
	return messages
}
