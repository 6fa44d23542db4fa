package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// BlockSource reports the node's head block
type BlockSource interface {
	BlockNumber(ctx context.Context) (uint64, error)
}

type NodeStatus struct {
	ChainID   int64     `json:"chain_id"`
	LastBlock uint64    `json:"last_block"`
	CheckedAt time.Time `json:"checked_at"`
}

// Checker tracks whether the node is reachable. It is ready once a head
// block was read and the process marked itself ready.
type Checker struct {
	chainID int64
	logger  *zerolog.Logger
	ready   int32
	mu      sync.RWMutex
	status  *NodeStatus
	maxAge  time.Duration
	now     func() time.Time
}

func NewChecker(chainID int64, logger *zerolog.Logger) *Checker {
	return &Checker{chainID: chainID, logger: logger, maxAge: time.Minute, now: time.Now}
}

func (c *Checker) SetReady(ready bool) {
	if ready {
		atomic.StoreInt32(&c.ready, 1)
	} else {
		atomic.StoreInt32(&c.ready, 0)
	}
}

func (c *Checker) LivenessHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (c *Checker) ReadinessHandler(w http.ResponseWriter, _ *http.Request) {
	c.mu.RLock()
	status := c.status
	c.mu.RUnlock()

	if status == nil || atomic.LoadInt32(&c.ready) == 0 || c.now().Sub(status.CheckedAt) > c.maxAge {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("Not Ready"))

		return
	}

	response := make(map[string]interface{})
	response["status"] = "Ready"
	response["node"] = status

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response)
}

// Watch polls source every interval until ctx is done
func (c *Checker) Watch(ctx context.Context, source BlockSource, interval time.Duration) {
	if interval > 0 && 3*interval > c.maxAge {
		c.maxAge = 3 * interval
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			c.Check(ctx, source)
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}

// Check reads the head block once and records it
func (c *Checker) Check(ctx context.Context, source BlockSource) {
	head, err := source.BlockNumber(ctx)
	if err != nil {
		c.logger.Error().
			Err(err).
			Int64("chainId", c.chainID).
			Msg("Error getting latest block")
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = &NodeStatus{ChainID: c.chainID, LastBlock: head, CheckedAt: c.now().UTC()}
}
