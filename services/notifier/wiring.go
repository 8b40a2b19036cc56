package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	firebase "firebase.google.com/go/v4"
	embeddedpostgres "github.com/fergusstrange/embedded-postgres"

	"github.com/notifier/internal/config"
	"github.com/notifier/internal/journal"
	"github.com/notifier/internal/logger"
	"github.com/notifier/internal/push"
	"github.com/notifier/internal/startup"
	"github.com/notifier/internal/storage"
	fsstore "github.com/notifier/internal/storage/firestore"
	"github.com/notifier/internal/storage/memory"
	"github.com/notifier/internal/storage/postgres"
	"github.com/notifier/internal/ws"
)

const connectMaxWait = 60 * time.Second

// deps — всё, что создаётся при старте и закрывается при остановке.
type deps struct {
	store     storage.DocumentStore
	provider  push.Provider
	journal   journal.Journal
	retention *journal.Retention

	// webpush: реестр подписок и ключи; ws: хаб соединений
	topics storage.TopicStore
	vapid  *push.VAPIDKeys
	hub    *ws.Hub

	closers []func() error
	once    sync.Once
}

func (d *deps) onClose(f func() error) { d.closers = append(d.closers, f) }

// close закрывает ресурсы в обратном порядке создания.
func (d *deps) close() {
	if d == nil {
		return
	}
	d.once.Do(func() {
		for i := len(d.closers) - 1; i >= 0; i-- {
			if err := d.closers[i](); err != nil {
				logger.Errorf("close: %v", err)
			}
		}
	})
}

// build открывает хранилище, журнал и провайдера. При ошибке уже открытое закрывается.
func build(ctx context.Context, cfg *config.Config) (*deps, error) {
	d := &deps{}
	ok := false
	defer func() {
		if !ok {
			d.close()
		}
	}()

	// Firebase-приложение одно на Firestore и FCM; учётные данные читаются один раз.
	var app *firebase.App
	if cfg.Store.Driver == config.StoreFirestore || cfg.Push.Provider == config.ProviderFCM {
		var err error
		app, err = startup.NewFirebaseApp(ctx, cfg.Store.ProjectID, cfg.Store.CredentialsFile)
		if err != nil {
			return nil, err
		}
	}

	if err := d.openStore(ctx, cfg, app); err != nil {
		return nil, err
	}
	if err := d.openJournal(cfg); err != nil {
		return nil, err
	}
	if err := d.openProvider(ctx, cfg, app); err != nil {
		return nil, err
	}
	logger.Infof("store=%s provider=%s journal=%s", cfg.Store.Driver, d.provider.Name(), cfg.Journal.Driver)
	ok = true
	return d, nil
}

func (d *deps) openStore(ctx context.Context, cfg *config.Config, app *firebase.App) error {
	switch cfg.Store.Driver {
	case config.StoreFirestore:
		client, err := app.Firestore(ctx)
		if err != nil {
			return fmt.Errorf("firestore client: %w", err)
		}
		d.store = fsstore.New(client)
	case config.StorePostgres:
		pool, err := startup.ConnectDBWithRetry(ctx, cfg.Store.DatabaseURL, cfg.Store.DBMaxConnections, connectMaxWait)
		if err != nil {
			return err
		}
		pg := postgres.New(pool)
		d.store = pg
		if err := pg.Migrate(ctx); err != nil {
			pg.Close()
			return err
		}
	case config.StoreMemory:
		logger.Info("store: in-memory (data is lost on restart)")
		d.store = memory.New()
	default:
		return fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
	d.onClose(d.store.Close)
	return nil
}

func (d *deps) openJournal(cfg *config.Config) error {
	switch cfg.Journal.Driver {
	case config.JournalSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.Journal.Path), 0o755); err != nil {
			return fmt.Errorf("journal dir: %w", err)
		}
		j, err := journal.NewSQLite(cfg.Journal.Path)
		if err != nil {
			return err
		}
		d.journal = j
	default:
		d.journal = journal.NewMemory(cfg.Journal.Capacity)
	}
	d.onClose(d.journal.Close)

	if cfg.Journal.Retention > 0 && cfg.Journal.PruneSchedule != "" {
		r, err := journal.NewRetention(d.journal, cfg.Journal.PruneSchedule, cfg.Journal.Retention)
		if err != nil {
			return err
		}
		d.retention = r
	}
	return nil
}

func (d *deps) openProvider(ctx context.Context, cfg *config.Config, app *firebase.App) error {
	switch cfg.Push.Provider {
	case config.ProviderFCM:
		client, err := app.Messaging(ctx)
		if err != nil {
			return fmt.Errorf("fcm client: %w", err)
		}
		d.provider = push.NewFCM(client)
	case config.ProviderWebPush:
		keys, err := vapidKeys(cfg)
		if err != nil {
			return err
		}
		d.vapid = keys
		if cfg.Push.RedisURL != "" {
			client, err := startup.ConnectRedisWithRetry(ctx, cfg.Push.RedisURL, connectMaxWait)
			if err != nil {
				return err
			}
			d.topics = client
		} else {
			logger.Info("webpush: REDIS_URL not set, subscriptions kept in memory")
			d.topics = memory.NewTopics()
		}
		d.onClose(d.topics.Close)
		d.provider = push.NewWebPush(d.topics, keys, cfg.Push.VAPIDSubscriber, nil)
	case config.ProviderWS:
		d.hub = ws.NewHub(cfg.MaxWSConnections)
		d.provider = d.hub
	case config.ProviderRelay:
		d.provider = push.NewRelay(cfg.Push.RelayURL)
	case config.ProviderLog:
		d.provider = push.LogProvider{}
	default:
		return fmt.Errorf("unknown push provider %q", cfg.Push.Provider)
	}
	return nil
}

// vapidKeys: пара из env/YAML, иначе из файла (с генерацией при первом запуске).
func vapidKeys(cfg *config.Config) (*push.VAPIDKeys, error) {
	if cfg.Push.VAPIDPublicKey != "" && cfg.Push.VAPIDPrivateKey != "" {
		return &push.VAPIDKeys{PublicKey: cfg.Push.VAPIDPublicKey, PrivateKey: cfg.Push.VAPIDPrivateKey}, nil
	}
	keys, err := push.EnsureVAPIDKeys(cfg.Push.VAPIDKeysFile)
	if err != nil {
		return nil, fmt.Errorf("vapid keys: %w", err)
	}
	return keys, nil
}

// startEmbeddedPostgres поднимает локальный Postgres и переключает конфиг на него.
// Без учётных данных Firebase в dev пуши пишутся в лог.
func startEmbeddedPostgres(cfg *config.Config) (*embeddedpostgres.EmbeddedPostgres, error) {
	const (
		port     = 5433
		user     = "notifier"
		password = "notifier_secret"
		database = "notifier"
	)

	dataDir := filepath.Join(".", ".pgdata")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create pgdata dir: %w", err)
	}

	db := embeddedpostgres.NewDatabase(
		embeddedpostgres.DefaultConfig().
			Port(port).
			Username(user).
			Password(password).
			Database(database).
			DataPath(dataDir).
			RuntimePath(filepath.Join(os.TempDir(), "embedded-pg-runtime")),
	)

	logger.Info("starting embedded PostgreSQL...")
	if err := db.Start(); err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}

	cfg.Store.Driver = config.StorePostgres
	cfg.Store.DatabaseURL = fmt.Sprintf(
		"postgres://%s:%s@localhost:%d/%s?sslmode=disable",
		user, password, port, database,
	)
	if cfg.Push.Provider == config.ProviderFCM {
		cfg.Push.Provider = config.ProviderLog
	}
	logger.Infof("embedded PostgreSQL running on port %d", port)
	return db, nil
}
