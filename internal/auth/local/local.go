// Package local is an auth.Provider backed by the SQLite users table, with
// bcrypt password hashes and the current session kept in a JSON file.
package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"shopledger/internal/auth"
	"shopledger/internal/core"
	"shopledger/internal/ledger"
	applog "shopledger/internal/log"
	"shopledger/internal/storage"
)

const minPasswordLen = 6

// UserRepository is implemented by *storage.SQLiteRepository.
type UserRepository interface {
	CreateUser(ctx context.Context, u storage.User) error
	FindUserByEmail(ctx context.Context, email string) (storage.User, error)
	FindUserByID(ctx context.Context, id string) (storage.User, error)
}

type Provider struct {
	users       UserRepository
	sessionFile string
	cost        int
	newID       ledger.IDFunc
	logger      *applog.Logger

	mu     sync.Mutex
	nextID int
	subs   map[int]func(*core.Identity)
}

type Option func(*Provider)

// WithCost sets the bcrypt cost. Tests use bcrypt.MinCost.
func WithCost(cost int) Option {
	return func(p *Provider) { p.cost = cost }
}

func WithIDFunc(f ledger.IDFunc) Option {
	return func(p *Provider) { p.newID = f }
}

func WithLogger(l *applog.Logger) Option {
	return func(p *Provider) { p.logger = l }
}

func New(users UserRepository, sessionFile string, opts ...Option) *Provider {
	p := &Provider{
		users:       users,
		sessionFile: sessionFile,
		cost:        bcrypt.DefaultCost,
		newID:       ledger.NewID,
		logger:      applog.Default(applog.ComponentAuth),
		subs:        make(map[int]func(*core.Identity)),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

var _ auth.Provider = (*Provider)(nil)

func (p *Provider) SignUp(ctx context.Context, email, password, name string) (core.Identity, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return core.Identity{}, err
	}
	if len(password) < minPasswordLen {
		return core.Identity{}, &auth.Error{Kind: auth.KindInvalidInput, Msg: fmt.Sprintf("Password must be at least %d characters.", minPasswordLen)}
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = email[:strings.Index(email, "@")]
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return core.Identity{}, &auth.Error{Kind: auth.KindInvalidInput, Msg: "Password cannot be used.", Err: err}
	}
	u := storage.User{ID: p.newID(), Email: email, Name: name, PasswordHash: string(hash)}
	if err := p.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, storage.ErrEmailTaken) {
			return core.Identity{}, &auth.Error{Kind: auth.KindEmailTaken, Msg: "email already registered", Err: err}
		}
		return core.Identity{}, &auth.Error{Kind: auth.KindUnavailable, Msg: "create account", Err: err}
	}

	id := identityOf(u)
	if err := p.startSession(ctx, id); err != nil {
		return core.Identity{}, err
	}
	return id, nil
}

func (p *Provider) SignIn(ctx context.Context, email, password string) (core.Identity, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return core.Identity{}, err
	}
	u, err := p.users.FindUserByEmail(ctx, email)
	if errors.Is(err, storage.ErrUserNotFound) {
		return core.Identity{}, &auth.Error{Kind: auth.KindInvalidCredentials, Msg: "unknown email"}
	}
	if err != nil {
		return core.Identity{}, &auth.Error{Kind: auth.KindUnavailable, Msg: "look up user", Err: err}
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		p.logger.WarnContext(ctx, "Sign-in rejected", applog.FieldUserID, u.ID)
		return core.Identity{}, &auth.Error{Kind: auth.KindInvalidCredentials, Msg: "wrong password"}
	}

	id := identityOf(u)
	if err := p.startSession(ctx, id); err != nil {
		return core.Identity{}, err
	}
	return id, nil
}

func (p *Provider) SignOut(ctx context.Context) error {
	if err := os.Remove(p.sessionFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return &auth.Error{Kind: auth.KindUnavailable, Msg: "clear session", Err: err}
	}
	p.logger.InfoContext(ctx, "Signed out")
	p.notify(nil)
	return nil
}

// CurrentSession returns the persisted identity, or nil when signed out.
// A session whose account no longer exists is discarded.
func (p *Provider) CurrentSession(ctx context.Context) (*core.Identity, error) {
	data, err := os.ReadFile(p.sessionFile)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, &auth.Error{Kind: auth.KindUnavailable, Msg: "read session", Err: err}
	}
	var id core.Identity
	if err := json.Unmarshal(data, &id); err != nil || id.ID == "" {
		p.logger.WarnContext(ctx, "Discarding unreadable session file", "path", p.sessionFile)
		_ = os.Remove(p.sessionFile)
		return nil, nil
	}
	if _, err := p.users.FindUserByID(ctx, id.ID); errors.Is(err, storage.ErrUserNotFound) {
		_ = os.Remove(p.sessionFile)
		return nil, nil
	}
	return &id, nil
}

func (p *Provider) Subscribe(fn func(*core.Identity)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	key := p.nextID
	p.nextID++
	p.subs[key] = fn
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.subs, key)
	}
}

func (p *Provider) startSession(ctx context.Context, id core.Identity) error {
	data, err := json.Marshal(id)
	if err != nil {
		return &auth.Error{Kind: auth.KindUnavailable, Msg: "encode session", Err: err}
	}
	if err := os.MkdirAll(filepath.Dir(p.sessionFile), 0o700); err != nil {
		return &auth.Error{Kind: auth.KindUnavailable, Msg: "create session dir", Err: err}
	}
	if err := os.WriteFile(p.sessionFile, data, 0o600); err != nil {
		return &auth.Error{Kind: auth.KindUnavailable, Msg: "write session", Err: err}
	}
	p.logger.InfoContext(ctx, "Signed in", applog.FieldUserID, id.ID)
	p.notify(&id)
	return nil
}

// notify calls subscribers outside the lock so they may unsubscribe.
func (p *Provider) notify(id *core.Identity) {
	p.mu.Lock()
	fns := make([]func(*core.Identity), 0, len(p.subs))
	for _, fn := range p.subs {
		fns = append(fns, fn)
	}
	p.mu.Unlock()
	for _, fn := range fns {
		fn(id)
	}
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", &auth.Error{Kind: auth.KindInvalidInput, Msg: "Please enter a valid email address."}
	}
	return email, nil
}

func identityOf(u storage.User) core.Identity {
	return core.Identity{ID: u.ID, Name: u.Name, Email: u.Email}
}
