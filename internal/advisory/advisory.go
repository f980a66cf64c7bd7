// Package advisory turns a ledger into a short prompt for a text model and
// returns the model's advice. Failures never reach the caller as errors;
// they become one of the fixed fallback texts.
package advisory

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"shopledger/internal/cache"
	"shopledger/internal/core"
	applog "shopledger/internal/log"
)

const (
	// MaxDigestRows caps how many records are sent to the model.
	MaxDigestRows   = 50
	DefaultLanguage = "Bengali"
)

// Default texts, in the default language.
const (
	NoDataText   = "বিশ্লেষণের জন্য এখনো কোনো লেনদেন নেই।"
	EmptyText    = "দুঃখিত, কোনো ইনসাইট তৈরি করা সম্ভব হয়নি।"
	FallbackText = "AI এই মুহূর্তে কাজ করছে না। দয়া করে পরে চেষ্টা করুন।"
)

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Error is a failed call to the model.
type Error struct {
	Model string
	Err   error
}

func (e *Error) Error() string { return fmt.Sprintf("advisory %s: %v", e.Model, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// Digest renders the first min(n, MaxDigestRows) records, one per line, as
// "date: description - type - amount".
func Digest(txs []core.Transaction, n int) string {
	if n > MaxDigestRows || n <= 0 {
		n = MaxDigestRows
	}
	if n > len(txs) {
		n = len(txs)
	}
	var b strings.Builder
	for i, t := range txs[:n] {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s: %s - %s - %s", t.Date, t.Description, t.Type, t.Amount)
	}
	return b.String()
}

// BuildPrompt wraps the digest in the consultant instructions.
func BuildPrompt(digest, language string) string {
	if language == "" {
		language = DefaultLanguage
	}
	return fmt.Sprintf(`You are a business consultant for a small shop owner.
Analyze the following recent transactions and provide 2-3 short, actionable bullet points in %[1]s for the shop owner to improve profit or manage expenses.
Be encouraging and concise.

Transactions Data:
%[2]s

Response should be entirely in %[1]s. Max 3 sentences.`, language, digest)
}

type Bridge struct {
	gen      Generator
	language string
	cache    cache.Cache[string]
	logger   *applog.Logger

	noData   string
	empty    string
	fallback string
}

type Option func(*Bridge)

func WithLanguage(lang string) Option {
	return func(b *Bridge) {
		if lang != "" {
			b.language = lang
		}
	}
}

// WithCache replaces the default answer cache. Pass nil to disable caching.
func WithCache(c cache.Cache[string]) Option {
	return func(b *Bridge) { b.cache = c }
}

func WithLogger(l *applog.Logger) Option {
	return func(b *Bridge) { b.logger = l }
}

// WithTexts overrides the no-data, empty and fallback texts.
func WithTexts(noData, empty, fallback string) Option {
	return func(b *Bridge) {
		b.noData, b.empty, b.fallback = noData, empty, fallback
	}
}

func NewBridge(gen Generator, opts ...Option) *Bridge {
	b := &Bridge{
		gen:      gen,
		language: DefaultLanguage,
		cache:    cache.NewLRUCache[string](32, time.Hour),
		logger:   applog.Default(applog.ComponentAdvisory),
		noData:   NoDataText,
		empty:    EmptyText,
		fallback: FallbackText,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Advise returns advice for txs. Identical digests are answered from cache.
func (b *Bridge) Advise(ctx context.Context, txs []core.Transaction) string {
	if len(txs) == 0 {
		return b.noData
	}
	if b.gen == nil {
		return b.fallback
	}

	prompt := BuildPrompt(Digest(txs, MaxDigestRows), b.language)
	key := promptKey(prompt)
	if b.cache != nil {
		if text, ok := b.cache.Get(key); ok {
			b.logger.DebugContext(ctx, "Advice served from cache")
			return text
		}
	}

	start := time.Now()
	text, err := b.gen.Generate(ctx, prompt)
	if err != nil {
		b.logger.WarnContext(ctx, "Advisory generation failed",
			applog.FieldError, err,
			applog.FieldDuration, time.Since(start).Milliseconds())
		return b.fallback
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return b.empty
	}
	if b.cache != nil {
		b.cache.Set(key, text)
	}
	b.logger.InfoContext(ctx, "Advice generated",
		applog.FieldCount, min(len(txs), MaxDigestRows),
		applog.FieldDuration, time.Since(start).Milliseconds())
	return text
}

// Forget drops cached answers, e.g. when the user signs out.
func (b *Bridge) Forget() {
	if b.cache != nil {
		b.cache.Purge()
	}
}

func promptKey(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:])
}
