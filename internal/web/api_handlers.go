package web

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/evcraddock/grammable/internal/access"
	"github.com/evcraddock/grammable/internal/auth"
	"github.com/evcraddock/grammable/internal/comment"
	"github.com/evcraddock/grammable/internal/gram"
)

// apiFail writes err with its mapped status.
func apiFail(w http.ResponseWriter, err error) {
	status := access.StatusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("api request failed", "err", err)
		apiError(w, "internal error", status)
		return
	}
	apiError(w, err.Error(), status)
}

// decodeJSON reads the request body into v, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		apiError(w, "invalid JSON body", http.StatusBadRequest)
		return false
	}
	return true
}

type gramResponse struct {
	*gram.Gram
	Comments []*comment.Comment `json:"comments"`
}

// apiListGrams returns grams newest first. Supports limit, offset and
// user_id query parameters.
func (s *Server) apiListGrams(w http.ResponseWriter, r *http.Request, user *auth.User) {
	opts := gram.ListOptions{}
	q := r.URL.Query()
	for name, dst := range map[string]*int{"limit": &opts.Limit, "offset": &opts.Offset} {
		if v := q.Get(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				apiError(w, name+" must be a non-negative integer", http.StatusBadRequest)
				return
			}
			*dst = n
		}
	}
	if v := q.Get("user_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			apiError(w, "user_id must be an integer", http.StatusBadRequest)
			return
		}
		opts.UserID = id
	}

	grams, err := s.grams.List(r.Context(), opts)
	if err != nil {
		apiFail(w, err)
		return
	}
	if grams == nil {
		grams = make([]*gram.Gram, 0)
	}

	apiJSON(w, grams, http.StatusOK)
}

// apiCreateGram creates a gram owned by the caller.
func (s *Server) apiCreateGram(w http.ResponseWriter, r *http.Request, user *auth.User) {
	if err := access.RequireIdentity(user); err != nil {
		apiFail(w, err)
		return
	}

	var req struct {
		Message string `json:"message"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	g, err := s.grams.Create(r.Context(), user.ID, user.Email, req.Message)
	if err != nil {
		apiFail(w, err)
		return
	}

	apiJSON(w, g, http.StatusCreated)
}

// apiGetGram returns a gram with its comments.
func (s *Server) apiGetGram(w http.ResponseWriter, r *http.Request, user *auth.User) {
	g, err := s.findGram(r)
	if err != nil {
		apiFail(w, err)
		return
	}

	comments, err := s.comments.ListByGramID(r.Context(), g.ID)
	if err != nil {
		apiFail(w, err)
		return
	}
	if comments == nil {
		comments = make([]*comment.Comment, 0)
	}

	apiJSON(w, gramResponse{Gram: g, Comments: comments}, http.StatusOK)
}

// apiUpdateGram replaces the message of a gram the caller owns.
func (s *Server) apiUpdateGram(w http.ResponseWriter, r *http.Request, user *auth.User) {
	g, err := s.authorizeGram(r, user)
	if err != nil {
		apiFail(w, err)
		return
	}

	var req struct {
		Message string `json:"message"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	updated, err := s.grams.UpdateMessage(r.Context(), g.ID, req.Message)
	if err != nil {
		apiFail(w, err)
		return
	}

	apiJSON(w, updated, http.StatusOK)
}

// apiDeleteGram deletes a gram the caller owns.
func (s *Server) apiDeleteGram(w http.ResponseWriter, r *http.Request, user *auth.User) {
	g, err := s.authorizeGram(r, user)
	if err != nil {
		apiFail(w, err)
		return
	}

	if err := s.grams.Delete(r.Context(), g.ID); err != nil {
		apiFail(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// apiListComments returns a gram's comments, oldest first.
func (s *Server) apiListComments(w http.ResponseWriter, r *http.Request, user *auth.User) {
	g, err := s.findGram(r)
	if err != nil {
		apiFail(w, err)
		return
	}

	comments, err := s.comments.ListByGramID(r.Context(), g.ID)
	if err != nil {
		apiFail(w, err)
		return
	}
	if comments == nil {
		comments = make([]*comment.Comment, 0)
	}

	apiJSON(w, comments, http.StatusOK)
}

// apiAddComment comments on a gram as the caller.
func (s *Server) apiAddComment(w http.ResponseWriter, r *http.Request, user *auth.User) {
	if err := access.RequireIdentity(user); err != nil {
		apiFail(w, err)
		return
	}

	g, err := s.findGram(r)
	if err != nil {
		apiFail(w, err)
		return
	}

	var req struct {
		Body string `json:"body"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	c, err := s.comments.Add(r.Context(), g.ID, user.ID, user.Email, req.Body)
	if err != nil {
		apiFail(w, err)
		return
	}

	apiJSON(w, c, http.StatusCreated)
}
