package web

import (
	"net/http"

	"github.com/evcraddock/grammable/internal/access"
	"github.com/evcraddock/grammable/internal/auth"
	"github.com/evcraddock/grammable/internal/gram"
)

// handleCommentCreate adds a comment to a gram. Any signed-in user may
// comment on any gram.
func (s *Server) handleCommentCreate(w http.ResponseWriter, r *http.Request, user *auth.User) {
	if err := access.RequireIdentity(user); err != nil {
		s.fail(w, r, user, err)
		return
	}

	g, err := s.findGram(r)
	if err != nil {
		s.fail(w, r, user, err)
		return
	}

	body := r.PostFormValue("body")
	if _, err := s.comments.Add(r.Context(), g.ID, user.ID, user.Email, body); err != nil {
		if gram.IsValidationError(err) {
			s.renderShow(w, r, user, g, http.StatusUnprocessableEntity, body, err.Error())
			return
		}
		s.fail(w, r, user, err)
		return
	}

	redirectWithFlash(w, r, "/", "Comment added.")
}
