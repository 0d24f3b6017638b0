package web

import (
	"net/http"

	"github.com/evcraddock/grammable/internal/access"
	"github.com/evcraddock/grammable/internal/auth"
	"github.com/evcraddock/grammable/internal/comment"
	"github.com/evcraddock/grammable/internal/gram"
)

type gramItem struct {
	*gram.Gram
	Comments []*comment.Comment
	Mine     bool
}

type indexData struct {
	layout
	Grams []gramItem
}

type formData struct {
	layout
	Gram    *gram.Gram
	Message string
	Error   string
}

type showData struct {
	layout
	gramItem
	CommentBody  string
	CommentError string
}

func owns(user *auth.User, g *gram.Gram) bool {
	return user != nil && g.OwnedBy(user.ID)
}

// handleIndex lists every gram, newest first, with its comments.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request, user *auth.User) {
	grams, err := s.grams.List(r.Context(), gram.ListOptions{})
	if err != nil {
		s.fail(w, r, user, err)
		return
	}

	comments, err := commentsFor(r.Context(), newCommentLoader(s.comments), grams)
	if err != nil {
		s.fail(w, r, user, err)
		return
	}

	items := make([]gramItem, len(grams))
	for i, g := range grams {
		items[i] = gramItem{Gram: g, Comments: comments[g.ID], Mine: owns(user, g)}
	}

	s.render(w, http.StatusOK, "index.html", indexData{
		layout: s.layout(w, r, user),
		Grams:  items,
	})
}

// handleNew renders an empty gram form.
func (s *Server) handleNew(w http.ResponseWriter, r *http.Request, user *auth.User) {
	if err := access.RequireIdentity(user); err != nil {
		s.fail(w, r, user, err)
		return
	}

	s.render(w, http.StatusOK, "new.html", formData{layout: s.layout(w, r, user)})
}

// handleCreate persists a new gram owned by the signed-in user.
func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request, user *auth.User) {
	if err := access.RequireIdentity(user); err != nil {
		s.fail(w, r, user, err)
		return
	}

	message := formMessage(r)
	if _, err := s.grams.Create(r.Context(), user.ID, user.Email, message); err != nil {
		if gram.IsValidationError(err) {
			s.render(w, http.StatusUnprocessableEntity, "new.html", formData{
				layout:  s.layout(w, r, user),
				Message: message,
				Error:   err.Error(),
			})
			return
		}
		s.fail(w, r, user, err)
		return
	}

	redirectWithFlash(w, r, "/", "Gram created.")
}

// handleShow renders a single gram with its comments.
func (s *Server) handleShow(w http.ResponseWriter, r *http.Request, user *auth.User) {
	g, err := s.findGram(r)
	if err != nil {
		s.fail(w, r, user, err)
		return
	}

	s.renderShow(w, r, user, g, http.StatusOK, "", "")
}

func (s *Server) renderShow(w http.ResponseWriter, r *http.Request, user *auth.User, g *gram.Gram, status int, body, commentErr string) {
	comments, err := s.comments.ListByGramID(r.Context(), g.ID)
	if err != nil {
		s.fail(w, r, user, err)
		return
	}

	s.render(w, status, "show.html", showData{
		layout:       s.layout(w, r, user),
		gramItem:     gramItem{Gram: g, Comments: comments, Mine: owns(user, g)},
		CommentBody:  body,
		CommentError: commentErr,
	})
}

// handleEdit renders the edit form for the owner.
func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request, user *auth.User) {
	g, err := s.authorizeGram(r, user)
	if err != nil {
		s.fail(w, r, user, err)
		return
	}

	s.render(w, http.StatusOK, "edit.html", formData{
		layout:  s.layout(w, r, user),
		Gram:    g,
		Message: g.Message,
	})
}

// handleUpdate replaces the message of a gram the user owns.
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request, user *auth.User) {
	g, err := s.authorizeGram(r, user)
	if err != nil {
		s.fail(w, r, user, err)
		return
	}

	message := formMessage(r)
	if _, err := s.grams.UpdateMessage(r.Context(), g.ID, message); err != nil {
		if gram.IsValidationError(err) {
			s.render(w, http.StatusUnprocessableEntity, "edit.html", formData{
				layout:  s.layout(w, r, user),
				Gram:    g,
				Message: message,
				Error:   err.Error(),
			})
			return
		}
		s.fail(w, r, user, err)
		return
	}

	redirectWithFlash(w, r, "/", "Gram updated.")
}

// handleDestroy deletes a gram the user owns.
func (s *Server) handleDestroy(w http.ResponseWriter, r *http.Request, user *auth.User) {
	g, err := s.authorizeGram(r, user)
	if err != nil {
		s.fail(w, r, user, err)
		return
	}

	if err := s.grams.Delete(r.Context(), g.ID); err != nil {
		s.fail(w, r, user, err)
		return
	}

	redirectWithFlash(w, r, "/", "Gram deleted.")
}

// formMessage reads the message field, accepting the nested gram[message]
// name when no plain message field was posted.
func formMessage(r *http.Request) string {
	message := r.PostFormValue("message")
	if _, ok := r.PostForm["message"]; !ok {
		message = r.PostFormValue("gram[message]")
	}
	return message
}

// findGram loads the gram named by the {id} parameter. Ids that cannot
// name a gram are reported as gram.ErrNotFound.
func (s *Server) findGram(r *http.Request) (*gram.Gram, error) {
	lookup, err := s.lookupGram(r)
	if err != nil {
		return nil, err
	}
	g, ok := lookup.Gram()
	if !ok {
		return nil, gram.ErrNotFound
	}
	return g, nil
}

func (s *Server) lookupGram(r *http.Request) (gram.Lookup, error) {
	id, ok := idParam(r)
	if !ok {
		return gram.NotFound(), nil
	}
	return s.grams.Find(r.Context(), id)
}

// authorizeGram runs the full guard for owner-only actions: identity,
// then lookup, then ownership.
func (s *Server) authorizeGram(r *http.Request, user *auth.User) (*gram.Gram, error) {
	if err := access.RequireIdentity(user); err != nil {
		return nil, err
	}
	lookup, err := s.lookupGram(r)
	if err != nil {
		return nil, err
	}
	return access.Authorize(user, lookup)
}
