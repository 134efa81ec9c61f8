package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"retailcore/pkg/logger"
)

// NotifyChannel is the PostgreSQL channel catalog triggers notify on.
// The payload is the kind of the changed catalog.
const NotifyChannel = "catalog_changed"

// Listener invalidates a CatalogCache on PostgreSQL NOTIFY events.
type Listener struct {
	pool  *pgxpool.Pool
	cache *CatalogCache

	lifecycleMu sync.Mutex
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	started     bool
}

// NewListener creates a listener for cache.
func NewListener(pool *pgxpool.Pool, cache *CatalogCache) *Listener {
	return &Listener{pool: pool, cache: cache}
}

// Start begins listening in the background.
func (l *Listener) Start(ctx context.Context) {
	l.lifecycleMu.Lock()
	defer l.lifecycleMu.Unlock()
	if l.started {
		return
	}
	l.ctx, l.cancel = context.WithCancel(ctx)
	l.started = true

	l.wg.Add(1)
	go l.listenLoop()
	logger.Info(l.ctx, "catalog cache listener started")
}

// Stop ends the listener and waits for it to exit.
func (l *Listener) Stop() {
	l.lifecycleMu.Lock()
	if !l.started {
		l.lifecycleMu.Unlock()
		return
	}
	cancel := l.cancel
	l.started = false
	l.cancel = nil
	l.lifecycleMu.Unlock()

	cancel()
	l.wg.Wait()
	logger.Info(context.Background(), "catalog cache listener stopped")
}

func (l *Listener) listenLoop() {
	defer l.wg.Done()

	for {
		select {
		case <-l.ctx.Done():
			return
		default:
		}

		conn, err := l.pool.Acquire(l.ctx)
		if err != nil {
			if l.ctx.Err() != nil {
				return
			}
			logger.Error(l.ctx, "failed to acquire connection for LISTEN", "error", err)
			time.Sleep(time.Second)
			continue
		}

		if _, err := conn.Exec(l.ctx, "LISTEN "+NotifyChannel); err != nil {
			logger.Error(l.ctx, "failed to LISTEN", "error", err)
			conn.Release()
			time.Sleep(time.Second)
			continue
		}
		// Anything may have changed while we were not listening.
		l.cache.Invalidate("")

		l.waitForNotifications(conn)
		conn.Release()
	}
}

func (l *Listener) waitForNotifications(conn *pgxpool.Conn) {
	for {
		ctx, cancel := context.WithTimeout(l.ctx, 30*time.Second)
		n, err := conn.Conn().WaitForNotification(ctx)
		cancel()

		if err != nil {
			if l.ctx.Err() != nil {
				return
			}
			if ctx.Err() != nil {
				continue // timeout
			}
			logger.Warn(l.ctx, "LISTEN connection lost", "error", err)
			return
		}

		kind := strings.TrimSpace(n.Payload)
		logger.Debug(l.ctx, "catalog changed", "kind", kind)
		l.cache.Invalidate(kind)
	}
}
