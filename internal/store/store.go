package store

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/fjod/go_cart/storefront/internal/metrics"
)

var ErrNotFound = errors.New("key not found")

// KV is a flat string key-value store.
type KV interface {
	// Get returns ErrNotFound when the key is absent
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key, replacing any previous value
	Set(ctx context.Context, key, value string) error

	// Delete removes key; deleting a missing key is not an error
	Delete(ctx context.Context, key string) error

	// Ping checks that the backend is reachable
	Ping(ctx context.Context) error

	// Close releases the backend's resources
	Close() error
}

// Adapter stores JSON documents in a KV and never surfaces backend or
// decoding failures to the caller; they are logged and counted instead.
type Adapter struct {
	kv      KV
	log     *slog.Logger
	metrics *metrics.AppMetrics
}

func NewAdapter(kv KV, log *slog.Logger, m *metrics.AppMetrics) *Adapter {
	if log == nil {
		log = logger.Discard()
	}
	return &Adapter{kv: kv, log: log.With("component", "kv_adapter"), metrics: m}
}

// Load decodes the value stored under key into dst. It returns false when
// the key is absent, the store is unavailable or the value is corrupt; dst
// must not be used in that case.
func (a *Adapter) Load(ctx context.Context, key string, dst any) bool {
	raw, err := a.kv.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false
	}
	if err != nil {
		a.log.WarnContext(ctx, "load failed, treating as absent", "key", key, "error", err)
		a.metrics.RecordStoreError(ctx, "load")
		return false
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		a.log.WarnContext(ctx, "stored value is corrupt, treating as absent", "key", key, "error", err)
		a.metrics.RecordStoreError(ctx, "decode")
		return false
	}
	return true
}

// Save writes v under key. The write has completed when Save returns.
func (a *Adapter) Save(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		a.log.ErrorContext(ctx, "encode failed, value not saved", "key", key, "error", err)
		a.metrics.RecordStoreError(ctx, "encode")
		return
	}
	if err := a.kv.Set(ctx, key, string(data)); err != nil {
		a.log.WarnContext(ctx, "save failed", "key", key, "error", err)
		a.metrics.RecordStoreError(ctx, "save")
	}
}

func (a *Adapter) Clear(ctx context.Context, key string) {
	if err := a.kv.Delete(ctx, key); err != nil {
		a.log.WarnContext(ctx, "clear failed", "key", key, "error", err)
		a.metrics.RecordStoreError(ctx, "clear")
	}
}
