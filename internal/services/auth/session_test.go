package auth

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestProvider(t *testing.T) (*SessionProvider, string) {
	t.Helper()

	sessionPath := filepath.Join(t.TempDir(), "session.json")

	p, err := New(sessionPath)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	t.Cleanup(func() {
		if err := p.Close(); err != nil {
			t.Logf("Close() failed: %v", err)
		}
	})

	return p, sessionPath
}

func waitForEvent(t *testing.T, p *SessionProvider, want EventType) Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-p.Events():
			if ev.Type == want {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for event %d", want)
			return Event{}
		}
	}
}

func TestNew_NoSession(t *testing.T) {
	p, path := newTestProvider(t)

	user, err := p.CurrentUser(context.Background())
	if err != nil || user != nil {
		t.Errorf("CurrentUser() = %+v, %v; want nil, nil", user, err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("session file should not be created, stat err = %v", err)
	}

	ev := waitForEvent(t, p, EventSessionLoaded)
	if ev.User != nil {
		t.Errorf("loaded event user = %+v", ev.User)
	}
}

func TestNew_EmptyPath(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Error("expected error for empty path")
	}
}

func TestSignIn(t *testing.T) {
	p, path := newTestProvider(t)

	user, err := p.SignIn("  Me@Example.com ", "Me")
	if err != nil {
		t.Fatalf("SignIn() failed: %v", err)
	}
	if user.Email != "me@example.com" || user.DisplayName != "Me" || user.ID != UserIDFor("me@example.com") {
		t.Errorf("user = %+v", user)
	}
	if user.SignedInAt.IsZero() {
		t.Error("SignedInAt not set")
	}

	current, _ := p.CurrentUser(context.Background())
	if current == nil || current.ID != user.ID {
		t.Errorf("CurrentUser() = %+v", current)
	}

	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file left behind")
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	u, _ := reloaded.CurrentUser(context.Background())
	if u == nil || u.Email != "me@example.com" {
		t.Errorf("reloaded user = %+v", u)
	}
}

func TestSignIn_NameFromAddress(t *testing.T) {
	p, _ := newTestProvider(t)

	user, err := p.SignIn("Jo Doe <jo@example.com>", "")
	if err != nil {
		t.Fatalf("SignIn() failed: %v", err)
	}
	if user.DisplayName != "Jo Doe" || user.Email != "jo@example.com" {
		t.Errorf("user = %+v", user)
	}
}

func TestSignIn_InvalidEmail(t *testing.T) {
	p, path := newTestProvider(t)

	for _, email := range []string{"", "not-an-email", "@@"} {
		if _, err := p.SignIn(email, ""); !errors.Is(err, ErrInvalidEmail) {
			t.Errorf("SignIn(%q) err = %v, want ErrInvalidEmail", email, err)
		}
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("invalid sign-in wrote a session file")
	}
}

func TestSignOut(t *testing.T) {
	p, path := newTestProvider(t)

	if err := p.SignOut(); err != nil {
		t.Errorf("SignOut() without session failed: %v", err)
	}

	if _, err := p.SignIn("me@example.com", ""); err != nil {
		t.Fatalf("SignIn() failed: %v", err)
	}
	if err := p.SignOut(); err != nil {
		t.Fatalf("SignOut() failed: %v", err)
	}

	if u, _ := p.CurrentUser(context.Background()); u != nil {
		t.Errorf("CurrentUser() after SignOut = %+v", u)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("session file still present")
	}
}

func TestUserIDFor(t *testing.T) {
	a := UserIDFor("Me@Example.com")
	b := UserIDFor(" me@example.com")
	if a != b {
		t.Errorf("ids differ: %q vs %q", a, b)
	}
	if a == UserIDFor("you@example.com") {
		t.Error("different emails share an id")
	}
	if len(a) != len("u_")+16 {
		t.Errorf("id %q has unexpected length", a)
	}
}

func TestLoad_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for corrupt session file")
	}
}

func TestLoad_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if u, _ := p.CurrentUser(context.Background()); u != nil {
		t.Errorf("user = %+v", u)
	}
}

func TestWatch_ExternalSignIn(t *testing.T) {
	p, path := newTestProvider(t)
	waitForEvent(t, p, EventSessionLoaded)

	other, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if _, err := other.SignIn("other@example.com", ""); err != nil {
		t.Fatalf("SignIn() failed: %v", err)
	}

	ev := waitForEvent(t, p, EventSessionChanged)
	if ev.User == nil || ev.User.Email != "other@example.com" {
		t.Errorf("changed event user = %+v", ev.User)
	}

	if err := other.SignOut(); err != nil {
		t.Fatalf("SignOut() failed: %v", err)
	}
	ev = waitForEvent(t, p, EventSessionChanged)
	if ev.User != nil {
		t.Errorf("user after external sign-out = %+v", ev.User)
	}
}

func TestClose_Idempotent(t *testing.T) {
	p, err := New(filepath.Join(t.TempDir(), "session.json"))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("Close() failed: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("second Close() failed: %v", err)
	}
}
