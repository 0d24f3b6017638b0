package cli

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/evcraddock/grammable/internal/auth"
	"github.com/evcraddock/grammable/internal/db"
)

func TestServePostgresNeedsDSN(t *testing.T) {
	t.Setenv("GRAMMABLE_DATABASE_URL", "")
	t.Chdir(t.TempDir())

	_, err := executeCommand("serve", "--store", "postgres", "--db", filepath.Join(t.TempDir(), "s.db"))
	if err == nil {
		t.Fatal("expected error without GRAMMABLE_DATABASE_URL")
	}
}

func TestCleanupSessions(t *testing.T) {
	database, err := db.Open(filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer closeDB(database)

	ctx, cancel := context.WithCancel(context.Background())
	u, err := auth.NewUserStore(database).Register(ctx, "s@example.com", "secret123", "")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	sessions := auth.NewSessionStore(database, false, time.Nanosecond)
	if err := sessions.Create(ctx, httptest.NewRecorder(), u.ID); err != nil {
		t.Fatalf("create session: %v", err)
	}

	done := make(chan struct{})
	go func() {
		cleanupSessions(ctx, sessions, 5*time.Millisecond)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for {
		var n int
		if err := database.QueryRow("SELECT COUNT(*) FROM sessions").Scan(&n); err != nil {
			t.Fatalf("count: %v", err)
		}
		if n == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("expired session was not cleaned up")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanupSessions did not stop after cancel")
	}
}
