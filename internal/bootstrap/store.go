package bootstrap

import (
	"context"
	"fmt"
	"time"

	firebase "firebase.google.com/go/v4"
	"github.com/redis/go-redis/v9"

	"github.com/cgscacau/green-belt-app-sub001/config"
	"github.com/cgscacau/green-belt-app-sub001/internal/auth"
	"github.com/cgscacau/green-belt-app-sub001/internal/auth/middleware"
	"github.com/cgscacau/green-belt-app-sub001/internal/docstore"
)

// Backends holds the opened document store and the token verifier. A nil
// Verifier means requests are identified by the X-User-Id header.
type Backends struct {
	Store    docstore.Store
	Pinger   docstore.Pinger
	Verifier middleware.TokenVerifier
	closers  []func() error
}

func (b *Backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		_ = b.closers[i]()
	}
}

type StoreOptions struct {
	PingTO time.Duration
}

// OpenBackends opens the store selected by STORE_BACKEND and, when
// Firebase credentials are configured, the ID token verifier.
func OpenBackends(ctx context.Context, cfg *config.Config, opt StoreOptions) (*Backends, error) {
	if opt.PingTO == 0 {
		opt.PingTO = 2 * time.Second
	}
	b := &Backends{}

	var app *firebase.App
	if cfg.Firebase.CredentialsPath != "" || cfg.Store.Backend == config.StoreFirestore {
		var err error
		app, err = auth.InitializeFirebase(ctx, &cfg.Firebase)
		if err != nil {
			return nil, err
		}
	}
	if app != nil && cfg.Firebase.CredentialsPath != "" {
		authClient, err := auth.NewAuthClient(ctx, app)
		if err != nil {
			return nil, err
		}
		b.Verifier = authClient
	}
	if b.Verifier == nil && cfg.IsProduction() {
		return nil, fmt.Errorf("FIREBASE_CREDENTIALS_PATH is required in production")
	}

	switch cfg.Store.Backend {
	case config.StoreFirestore:
		client, err := app.Firestore(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get Firestore client: %w", err)
		}
		b.closers = append(b.closers, client.Close)
		s := docstore.NewFirestoreStore(client)
		b.Store, b.Pinger = s, s
	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		b.closers = append(b.closers, client.Close)
		s := docstore.NewRedisStore(client)
		b.Store, b.Pinger = s, s
	case config.StoreMemory:
		s := docstore.NewMemoryStore()
		b.Store, b.Pinger = s, s
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}

	pctx, cancel := context.WithTimeout(ctx, opt.PingTO)
	defer cancel()
	if err := b.Pinger.Ping(pctx); err != nil {
		b.Close()
		return nil, fmt.Errorf("store ping: %w", err)
	}
	return b, nil
}
