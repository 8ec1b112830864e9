package dispatcher

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// StateStore is the device state the dispatcher reads and writes.
type StateStore interface {
	GetString(ctx context.Context, key string) (string, error)
	SaveString(ctx context.Context, key, value string) error
	IncDailyCmdCounter(ctx context.Context, imei, cmd string, limit int) (bool, int64, error)
}

// Dispatcher schedules Codec12 commands to connected devices and routes their answers.
type Dispatcher struct {
	store  StateStore
	logger *slog.Logger
	now    func() time.Time

	cmdMu    sync.RWMutex
	registry map[string]Command
	order    []string

	stateMu  sync.Mutex
	cmdState map[string]map[string]*perCmdState
}

func New(store StateStore, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		store:    store,
		logger:   logger.With("component", "dispatcher"),
		now:      time.Now,
		registry: make(map[string]Command),
		cmdState: make(map[string]map[string]*perCmdState),
	}
}

// ResetSession forgets the per-connection command state of imei.
func (d *Dispatcher) ResetSession(imei string) {
	d.stateMu.Lock()
	defer d.stateMu.Unlock()
	delete(d.cmdState, imei)
}

func (d *Dispatcher) getString(ctx context.Context, key string) string {
	v, err := d.store.GetString(ctx, key)
	if err != nil {
		d.logger.Warn("state read failed", "key", key, "err", err)
		return ""
	}
	return v
}

func (d *Dispatcher) saveString(ctx context.Context, key, value string) {
	if err := d.store.SaveString(ctx, key, value); err != nil {
		d.logger.Warn("state write failed", "key", key, "err", err)
	}
}
