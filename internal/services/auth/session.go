// Package auth provides the session-file auth provider with file watching.
package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/j-veylop/usage-ledger-tui/internal/logger"
	"github.com/j-veylop/usage-ledger-tui/internal/models"
	"github.com/j-veylop/usage-ledger-tui/internal/store"
)

var _ store.AuthProvider = (*SessionProvider)(nil)

// ErrInvalidEmail is returned by SignIn for addresses that do not parse.
var ErrInvalidEmail = errors.New("invalid email address")

const (
	sessionVersion   = 1
	debounceInterval = 100 * time.Millisecond
)

// SessionFile is the JSON layout of the session file.
type SessionFile struct {
	User    *models.User `json:"user"`
	Version int          `json:"version"`
}

// EventType defines the type of session event.
type EventType int

const (
	EventSessionLoaded EventType = iota
	EventSessionChanged
	EventError
)

// Event represents a session provider event.
type Event struct {
	User  *models.User
	Error error
	Type  EventType
}

// SessionProvider resolves the signed-in user from a session file and
// reports changes made to that file by other processes.
type SessionProvider struct {
	mu            sync.RWMutex
	user          *models.User
	filePath      string
	watcher       *fsnotify.Watcher
	eventChan     chan Event
	stopChan      chan struct{}
	debounceTimer *time.Timer
	closeOnce     sync.Once
}

// Load reads the session file without watching it.
func Load(filePath string) (*SessionProvider, error) {
	if filePath == "" {
		return nil, errors.New("session path is required")
	}

	p := &SessionProvider{
		filePath:  filePath,
		eventChan: make(chan Event, 16),
		stopChan:  make(chan struct{}),
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}

	user, err := readSession(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	p.user = user
	return p, nil
}

// New loads the session file and starts watching it for changes.
func New(filePath string) (*SessionProvider, error) {
	p, err := Load(filePath)
	if err != nil {
		return nil, err
	}

	if err := p.startWatcher(); err != nil {
		return nil, fmt.Errorf("failed to start file watcher: %w", err)
	}

	p.sendEvent(Event{Type: EventSessionLoaded, User: p.cloneUser()})
	return p, nil
}

// Events returns the event channel for subscribing to session changes.
func (p *SessionProvider) Events() <-chan Event {
	return p.eventChan
}

// Path returns the session file path.
func (p *SessionProvider) Path() string {
	return p.filePath
}

// CurrentUser returns the signed-in user, or nil when there is no session.
func (p *SessionProvider) CurrentUser(_ context.Context) (*models.User, error) {
	return p.cloneUser(), nil
}

// SignIn starts a session for email and writes it to disk.
func (p *SessionProvider) SignIn(email, displayName string) (*models.User, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidEmail, email)
	}

	normalized := strings.ToLower(addr.Address)
	if displayName == "" {
		displayName = addr.Name
	}

	user := &models.User{
		ID:          UserIDFor(normalized),
		Email:       normalized,
		DisplayName: displayName,
		SignedInAt:  time.Now().UTC(),
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := writeSession(p.filePath, user); err != nil {
		return nil, err
	}
	p.user = user

	u := *user
	return &u, nil
}

// SignOut removes the session file. Signing out without a session is not
// an error.
func (p *SessionProvider) SignOut() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := os.Remove(p.filePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	p.user = nil
	return nil
}

// UserIDFor derives a stable user id from an email address, so that every
// client signing in with the same address shares the same records.
func UserIDFor(email string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(email))))
	return "u_" + hex.EncodeToString(sum[:8])
}

func (p *SessionProvider) cloneUser() *models.User {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.user == nil {
		return nil
	}
	u := *p.user
	return &u
}

// readSession parses the session file. A missing file means no session.
func readSession(path string) (*models.User, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil
	}

	var file SessionFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse session file: %w", err)
	}
	if file.User == nil || file.User.ID == "" {
		return nil, nil
	}
	return file.User, nil
}

// writeSession saves the session atomically.
func writeSession(path string, user *models.User) error {
	data, err := json.MarshalIndent(SessionFile{User: user, Version: sessionVersion}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	// Write to temp file first, then rename
	tmpFile := path + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0o600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tmpFile, path); err != nil {
		if removeErr := os.Remove(tmpFile); removeErr != nil {
			logger.Error("failed to remove temp file", "error", removeErr)
		}
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// startWatcher starts the file system watcher.
func (p *SessionProvider) startWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	p.watcher = watcher

	// Watch the directory so creation and removal of the file are seen.
	if err := watcher.Add(filepath.Dir(p.filePath)); err != nil {
		if closeErr := watcher.Close(); closeErr != nil {
			logger.Error("failed to close watcher", "error", closeErr)
		}
		return err
	}

	go p.watchLoop()
	return nil
}

// watchLoop handles file system events with debouncing.
func (p *SessionProvider) watchLoop() {
	name := filepath.Base(p.filePath)

	for {
		select {
		case event, ok := <-p.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}

			p.mu.Lock()
			if p.debounceTimer != nil {
				p.debounceTimer.Stop()
			}
			p.debounceTimer = time.AfterFunc(debounceInterval, p.handleFileChange)
			p.mu.Unlock()

		case err, ok := <-p.watcher.Errors:
			if !ok {
				return
			}
			p.sendEvent(Event{Type: EventError, Error: err})

		case <-p.stopChan:
			return
		}
	}
}

// handleFileChange reloads the session after an external change and
// reports it when the user differs.
func (p *SessionProvider) handleFileChange() {
	select {
	case <-p.stopChan:
		return
	default:
	}

	user, err := readSession(p.filePath)
	if err != nil {
		p.sendEvent(Event{Type: EventError, Error: err})
		return
	}

	p.mu.Lock()
	changed := store.UserID(p.user) != store.UserID(user)
	p.user = user
	p.mu.Unlock()

	if changed {
		logger.Info("session changed", "user", store.UserID(user))
		p.sendEvent(Event{Type: EventSessionChanged, User: p.cloneUser()})
	}
}

// sendEvent sends an event to the event channel non-blocking.
func (p *SessionProvider) sendEvent(event Event) {
	select {
	case p.eventChan <- event:
	default:
		// Channel full, drop oldest event
		select {
		case <-p.eventChan:
		default:
		}
		select {
		case p.eventChan <- event:
		default:
		}
	}
}

// Close stops the file watcher and cleans up resources.
func (p *SessionProvider) Close() error {
	var err error
	p.closeOnce.Do(func() {
		close(p.stopChan)

		p.mu.Lock()
		if p.debounceTimer != nil {
			p.debounceTimer.Stop()
		}
		p.mu.Unlock()

		if p.watcher != nil {
			err = p.watcher.Close()
		}
	})
	return err
}
