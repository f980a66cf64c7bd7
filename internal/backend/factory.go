package backend

import (
	"context"
	"fmt"
	"io"
	"time"

	"shopledger/internal/amqp"
	"shopledger/internal/ledger"
	ledgerremote "shopledger/internal/ledger/remote"
	"shopledger/internal/ledger/snapshot"
	applog "shopledger/internal/log"
	"shopledger/internal/remote/google"
	"shopledger/internal/remote/memory"
	"shopledger/internal/services"
	"shopledger/internal/storage"
)

const defaultDialTimeout = 5 * time.Second

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger      *applog.Logger
	dialTimeout time.Duration
}

// NewFactory creates a new backend factory
func NewFactory(logger *applog.Logger) *DefaultFactory {
	if logger == nil {
		logger = applog.Default(applog.ComponentBackend)
	}
	return &DefaultFactory{
		logger:      logger,
		dialTimeout: defaultDialTimeout,
	}
}

var _ Factory = (*DefaultFactory)(nil)

// CreateBackend opens the user database, builds the selected ledger store and
// wraps it so that mutations publish ledger events when AMQP is configured.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	store, err := f.createStore(ctx, config, repo)
	if err != nil {
		repo.Close()
		return nil, err
	}

	closers := []io.Closer{repo}
	var publisher services.Publisher
	if config.AMQPURL != "" {
		if client := f.dialAMQP(ctx, config); client != nil {
			publisher = client
			closers = append([]io.Closer{client}, closers...)
		}
	}

	svc := services.NewLedgerService(store, publisher,
		services.WithLogger(f.logger.WithComponent(applog.ComponentLedger)),
		services.WithClosers(closers...))

	f.logger.Info("Initialized ledger backend",
		applog.FieldBackend, config.Type.String(),
		"events_enabled", publisher != nil)

	return &Result{
		Store:   svc,
		Users:   repo,
		Events:  publisher != nil,
		Cleanup: svc.Close,
	}, nil
}

func (f *DefaultFactory) createStore(ctx context.Context, config Config, repo *storage.SQLiteRepository) (ledger.Store, error) {
	logger := f.logger.WithComponent(applog.ComponentLedger)
	switch config.Type {
	case SnapshotBackend:
		f.logger.Info("Using snapshot ledger", "snapshot_dir", config.SnapshotDir)
		return snapshot.New(snapshot.NewFileBlobStore(config.SnapshotDir), snapshot.WithLogger(logger)), nil
	case MemoryBackend:
		// Nothing survives the process; meant for demos and tests.
		return ledgerremote.New(memory.New(),
			ledgerremote.WithBackendName(string(MemoryBackend)),
			ledgerremote.WithLogger(logger)), nil
	case SQLiteBackend:
		return ledgerremote.New(repo,
			ledgerremote.WithBackendName(string(SQLiteBackend)),
			ledgerremote.WithLogger(logger)), nil
	case SheetsBackend:
		client, err := google.New(ctx, google.Config{
			SpreadsheetID:   config.GoogleSpreadsheetID,
			SheetName:       config.GoogleSheetName,
			CredentialsJSON: config.GoogleServiceAccountJSON,
			CredentialsFile: config.GoogleServiceAccountFile,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
		}
		return ledgerremote.New(client,
			ledgerremote.WithBackendName(string(SheetsBackend)),
			ledgerremote.WithLogger(logger)), nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

// dialAMQP returns nil when the broker is unreachable; the ledger keeps
// working without events.
func (f *DefaultFactory) dialAMQP(ctx context.Context, config Config) *amqp.Client {
	dialCtx, cancel := context.WithTimeout(ctx, f.dialTimeout)
	defer cancel()
	client, err := amqp.NewClient(dialCtx, config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
	if err != nil {
		f.logger.Warn("Failed to initialize AMQP client, continuing without events", applog.FieldError, err)
		return nil
	}
	f.logger.Info("Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)
	return client
}
