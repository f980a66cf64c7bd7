package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"shopledger/internal/advisory"
	"shopledger/internal/advisory/gemini"
	"shopledger/internal/auth/local"
	"shopledger/internal/backend"
	"shopledger/internal/cache"
	"shopledger/internal/config"
	"shopledger/internal/core"
	"shopledger/internal/ledger"
	applog "shopledger/internal/log"
	"shopledger/internal/session"
	"shopledger/internal/transfer"
)

// app is what every command runs against.
type app struct {
	cfg     *config.Config
	logger  *applog.Logger
	backend *backend.Result
	auth    *local.Provider
	gate    *session.Gate
	now     func() time.Time

	out io.Writer
	in  *bufio.Reader

	authOpts    []local.Option
	generator   advisory.Generator
	unsubscribe func()
}

type appOption func(*app)

func withLogger(l *applog.Logger) appOption {
	return func(a *app) { a.logger = l }
}

func withIO(out io.Writer, in io.Reader) appOption {
	return func(a *app) {
		a.out = out
		a.in = bufio.NewReader(in)
	}
}

func withClock(now func() time.Time) appOption {
	return func(a *app) { a.now = now }
}

func withAuthOptions(opts ...local.Option) appOption {
	return func(a *app) { a.authOpts = append(a.authOpts, opts...) }
}

// withGenerator replaces the Gemini client.
func withGenerator(g advisory.Generator) appOption {
	return func(a *app) { a.generator = g }
}

func newApp(ctx context.Context, cfg *config.Config, opts ...appOption) (*app, error) {
	a := &app{
		cfg:    cfg,
		logger: applog.Default(applog.ComponentApp),
		now:    time.Now,
		out:    os.Stdout,
		in:     bufio.NewReader(os.Stdin),
	}
	for _, o := range opts {
		o(a)
	}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(a.logger.WithComponent(applog.ComponentBackend)).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, err
	}
	a.backend = res

	a.auth = local.New(res.Users, cfg.SessionFile,
		append([]local.Option{local.WithLogger(a.logger.WithComponent(applog.ComponentAuth))}, a.authOpts...)...)

	var advisor session.Advisor
	if a.generator == nil && cfg.GeminiAPIKey != "" {
		g, err := gemini.New(ctx, gemini.Config{APIKey: cfg.GeminiAPIKey, Model: cfg.GeminiModel})
		if err != nil {
			res.Cleanup()
			return nil, err
		}
		a.generator = g
	}
	if a.generator != nil {
		advisor = advisory.NewBridge(a.generator,
			advisory.WithLanguage(cfg.AdviceLanguage),
			advisory.WithCache(cacheOrNil(cfg.AdviceCache)),
			advisory.WithLogger(a.logger.WithComponent(applog.ComponentAdvisory)))
	}

	a.gate = session.New(res.Store, advisor,
		session.WithClock(func() time.Time { return a.now() }),
		session.WithLogger(a.logger.WithComponent(applog.ComponentSession)),
		session.WithImporter(transfer.NewImporter(res.Store,
			transfer.WithLogger(a.logger.WithComponent(applog.ComponentTransfer)))))

	// sign-in, sign-up and sign-out move the gate along with the provider
	a.unsubscribe = a.auth.Subscribe(func(id *core.Identity) {
		if err := a.gate.OnIdentityChange(ctx, id); err != nil {
			a.logger.Warn("Ledger could not be loaded", applog.FieldError, err)
		}
	})
	return a, nil
}

func cacheOrNil(size int) cache.Cache[string] {
	if size <= 0 {
		return nil
	}
	return cache.NewLRUCache[string](size, time.Hour)
}

func (a *app) Close() error {
	if a.unsubscribe != nil {
		a.unsubscribe()
	}
	a.gate.Teardown()
	return a.backend.Cleanup()
}

// signedIn restores the persisted session into the gate.
func (a *app) signedIn(ctx context.Context) (core.Identity, error) {
	if id := a.gate.Identity(); id != nil {
		return *id, nil
	}
	id, err := a.auth.CurrentSession(ctx)
	if err != nil {
		return core.Identity{}, err
	}
	if id == nil {
		return core.Identity{}, session.ErrNotAuthenticated
	}
	if err := a.gate.Establish(ctx, *id); err != nil {
		return core.Identity{}, err
	}
	return *id, nil
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

// confirm asks a yes/no question on the input stream. Anything but y/yes is no.
func (a *app) confirm(question string) bool {
	a.printf("%s [y/N] ", question)
	line, _ := a.in.ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// userMessage is the single line printed for a failed command.
func userMessage(err error) string {
	var um ledger.UserMessager
	if errors.As(err, &um) {
		return um.UserMessage()
	}
	switch {
	case errors.Is(err, session.ErrNotAuthenticated):
		return "Please sign in first (ledgerctl login)."
	case errors.Is(err, session.ErrNoAdvisor):
		return "AI advice is not configured. Set GEMINI_API_KEY."
	case errors.Is(err, session.ErrInvalidPeriod):
		return "Month must look like 2024-06."
	case errors.Is(err, core.ErrInvalidAmount):
		return "Please enter a positive amount such as 12.50."
	case errors.Is(err, core.ErrInvalidType):
		return "Type must be income or expense."
	case errors.Is(err, core.ErrInvalidDate):
		return "Date must look like 2024-06-01."
	case errors.Is(err, core.ErrEmptyDescription):
		return "Please enter a description."
	}
	return ledger.UserMessage(err)
}
