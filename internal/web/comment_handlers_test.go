package web

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentCreate(t *testing.T) {
	e := newTestEnv(t)
	alice := e.signUp("alice@example.com")
	bob := e.signUp("bob@example.com")
	g := e.createGram(alice, "photo")

	w := e.form("POST", fmt.Sprintf("/grams/%d/comments", g.ID), url.Values{"body": {"nice shot"}}, &bob)
	assertRedirect(t, w, "/")

	comments, err := e.srv.comments.ListByGramID(t.Context(), g.ID)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "nice shot", comments[0].Body)
	assert.Equal(t, bob.user.ID, comments[0].UserID)
	assert.Equal(t, "bob@example.com", comments[0].Author)

	body := e.get("/", nil).Body.String()
	assert.Contains(t, body, "nice shot")
}

func TestCommentCreateRequiresSignIn(t *testing.T) {
	e := newTestEnv(t)
	alice := e.signUp("alice@example.com")
	g := e.createGram(alice, "photo")

	w := e.form("POST", fmt.Sprintf("/grams/%d/comments", g.ID), url.Values{"body": {"hi"}}, nil)
	assertRedirect(t, w, signInPath)

	comments, err := e.srv.comments.ListByGramID(t.Context(), g.ID)
	require.NoError(t, err)
	assert.Empty(t, comments)
}

func TestCommentCreateMissingGram(t *testing.T) {
	e := newTestEnv(t)
	alice := e.signUp("alice@example.com")

	w := e.form("POST", "/grams/9999/comments", url.Values{"body": {"hi"}}, &alice)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCommentCreateInvalid(t *testing.T) {
	e := newTestEnv(t)
	alice := e.signUp("alice@example.com")
	g := e.createGram(alice, "photo")

	w := e.form("POST", fmt.Sprintf("/grams/%d/comments", g.ID), url.Values{"body": {"  "}}, &alice)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "photo")

	comments, err := e.srv.comments.ListByGramID(t.Context(), g.ID)
	require.NoError(t, err)
	assert.Empty(t, comments)
}

func TestIndexGroupsCommentsByGram(t *testing.T) {
	e := newTestEnv(t)
	alice := e.signUp("alice@example.com")
	first := e.createGram(alice, "first gram")
	second := e.createGram(alice, "second gram")

	for _, c := range []struct {
		id   int64
		body string
	}{{first.ID, "on first"}, {second.ID, "on second"}, {first.ID, "also first"}} {
		_, err := e.srv.comments.Add(t.Context(), c.id, alice.user.ID, alice.user.Email, c.body)
		require.NoError(t, err)
	}

	body := e.get("/", nil).Body.String()
	// second is newer, so its article comes first
	secondAt := strings.Index(body, "second gram")
	firstAt := strings.Index(body, "first gram")
	assert.Less(t, secondAt, strings.Index(body, "on second"))
	assert.Less(t, strings.Index(body, "on second"), firstAt)
	assert.Less(t, firstAt, strings.Index(body, "on first"))
	assert.Less(t, strings.Index(body, "on first"), strings.Index(body, "also first"))
}
