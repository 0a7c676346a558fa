package feed

import (
	"context"
	"math/big"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	gorilla "github.com/gorilla/websocket"

	"github.com/apexmev/arbiter/pkg/websocket"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

// BlockHandler consumes each delivered block exactly once.
type BlockHandler interface {
	HandleBlock(ctx context.Context, block *ethtypes.Block) error
}

// BlockFetcher is the chain surface the feed reads from.
// *ethclient.Client satisfies it.
type BlockFetcher interface {
	BlockByNumber(ctx context.Context, number *big.Int) (*ethtypes.Block, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// wsConn is the subset of a gorilla connection the subscriber uses.
type wsConn interface {
	WriteJSON(v any) error
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
}

// Config holds the feed settings.
type Config struct {
	// WSURL enables the push subscription; empty means polling only.
	WSURL string

	// PollInterval is the height-polling cadence of the fallback path.
	PollInterval time.Duration

	// BufferSize bounds the producer-to-consumer height queue.
	BufferSize int

	// Reconnect tunes the websocket backoff. MaxAttempts > 0 makes the
	// subscription degrade to polling when exhausted.
	Reconnect websocket.ReconnectConfig

	Logger *zap.Logger
}

// Feed delivers new block heights, strictly increasing and duplicate-free,
// to a single consumer that invokes the handler per block.
type Feed struct {
	config  Config
	fetcher BlockFetcher
	handler BlockHandler
	logger  *zap.Logger

	// dial is swappable for tests.
	dial func(ctx context.Context, url string) (wsConn, error)

	mu           sync.Mutex
	running      bool
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	heights      chan uint64
	consumerGone chan struct{}

	lastHeight uint64
}

// New creates a block feed.
func New(cfg Config, fetcher BlockFetcher, handler BlockHandler) *Feed {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 64
	}
	return &Feed{
		config:  cfg,
		fetcher: fetcher,
		handler: handler,
		logger:  cfg.Logger,
		dial:    gorillaDial,
	}
}

func gorillaDial(ctx context.Context, url string) (wsConn, error) {
	conn, _, err := gorilla.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Start launches the producer and consumer. Starting a running feed is a
// no-op.
func (f *Feed) Start(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.running {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	f.running = true
	f.cancel = cancel
	f.heights = make(chan uint64, f.config.BufferSize)
	f.consumerGone = make(chan struct{})
	f.lastHeight = 0

	f.wg.Add(2)
	go f.produce(runCtx)
	go f.consume(runCtx)

	f.logger.Info("feed-started",
		zap.Bool("push", f.config.WSURL != ""),
		zap.Duration("poll-interval", f.config.PollInterval))
}

// Stop halts delivery and waits for both goroutines. Stopping a stopped
// feed is a no-op.
func (f *Feed) Stop() {
	f.mu.Lock()
	if !f.running {
		f.mu.Unlock()
		return
	}
	f.running = false
	cancel := f.cancel
	f.cancel = nil
	f.mu.Unlock()

	cancel()
	f.wg.Wait()
	f.logger.Info("feed-stopped")
}

// Running reports whether the feed is active.
func (f *Feed) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

// produce pushes new heights, preferring the websocket subscription and
// degrading to polling when it cannot be kept alive.
func (f *Feed) produce(ctx context.Context) {
	defer f.wg.Done()

	if f.config.WSURL != "" {
		if fatal := f.subscribeLoop(ctx); fatal {
			return
		}
		if ctx.Err() != nil {
			return
		}
		f.logger.Warn("subscription-unavailable-falling-back-to-polling")
	}

	f.pollLoop(ctx)
}

// subscribeLoop keeps a newHeads subscription alive until the context ends
// or the reconnect budget is exhausted. It returns true only on a fatal
// stop (consumer gone or context done).
func (f *Feed) subscribeLoop(ctx context.Context) bool {
	rm := websocket.NewReconnectManager(f.config.Reconnect, f.logger)

	for {
		conn, err := f.dial(ctx, f.config.WSURL)
		if err == nil {
			fatal, readErr := f.readSubscription(ctx, conn)
			if fatal {
				return true
			}
			f.logger.Warn("subscription-lost", zap.Error(readErr))
		}

		if ctx.Err() != nil {
			return true
		}

		err = rm.Reconnect(ctx, func(ctx context.Context) error {
			probe, dialErr := f.dial(ctx, f.config.WSURL)
			if dialErr != nil {
				return dialErr
			}
			probe.Close()
			return nil
		})
		if err != nil {
			// Budget exhausted or context done; the caller decides.
			return ctx.Err() != nil
		}
	}
}

type subscribeRequest struct {
	ID      int    `json:"id"`
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type subscriptionMessage struct {
	Method string `json:"method"`
	Params struct {
		Result struct {
			Number string `json:"number"`
		} `json:"result"`
	} `json:"params"`
}

// readSubscription issues eth_subscribe and emits each announced height.
func (f *Feed) readSubscription(ctx context.Context, conn wsConn) (fatal bool, err error) {
	defer conn.Close()

	// ReadMessage does not watch the context; closing the connection is
	// what unblocks it on shutdown.
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	err = conn.WriteJSON(subscribeRequest{
		ID:      1,
		JSONRPC: "2.0",
		Method:  "eth_subscribe",
		Params:  []any{"newHeads"},
	})
	if err != nil {
		return false, err
	}

	for {
		if ctx.Err() != nil {
			return true, ctx.Err()
		}

		_, payload, err := conn.ReadMessage()
		if err != nil {
			return false, err
		}

		var msg subscriptionMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			f.logger.Debug("head-decode-failed", zap.Error(err))
			continue
		}
		if msg.Method != "eth_subscription" || msg.Params.Result.Number == "" {
			continue
		}

		height, ok := new(big.Int).SetString(msg.Params.Result.Number[2:], 16)
		if !ok {
			f.logger.Debug("head-height-malformed",
				zap.String("number", msg.Params.Result.Number))
			continue
		}

		if stopped := f.emit(ctx, height.Uint64()); stopped {
			return true, nil
		}
	}
}

// pollLoop emits heights from eth_blockNumber on strict increase.
func (f *Feed) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(f.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			height, err := f.fetcher.BlockNumber(ctx)
			if err != nil {
				f.logger.Debug("height-poll-failed", zap.Error(err))
				continue
			}
			if stopped := f.emit(ctx, height); stopped {
				return
			}
		}
	}
}

// emit forwards a height to the consumer, enforcing strict monotonicity.
// It returns true when the producer must stop: context done or consumer
// gone.
func (f *Feed) emit(ctx context.Context, height uint64) bool {
	if height <= f.lastHeight {
		return false
	}
	f.lastHeight = height

	select {
	case f.heights <- height:
		BlocksEmittedTotal.Inc()
		return false
	case <-f.consumerGone:
		f.logger.Error("consumer-gone-stopping-producer")
		return true
	case <-ctx.Done():
		return true
	}
}

// consume drains heights one at a time and runs the handler per block.
func (f *Feed) consume(ctx context.Context) {
	defer f.wg.Done()
	defer close(f.consumerGone)

	for {
		select {
		case <-ctx.Done():
			return
		case height := <-f.heights:
			f.handleHeight(ctx, height)
		}
	}
}

func (f *Feed) handleHeight(ctx context.Context, height uint64) {
	block, err := f.fetcher.BlockByNumber(ctx, new(big.Int).SetUint64(height))
	if err != nil {
		f.logger.Warn("block-fetch-failed",
			zap.Uint64("height", height),
			zap.Error(err))
		return
	}

	if err := f.handler.HandleBlock(ctx, block); err != nil {
		f.logger.Warn("block-handler-failed",
			zap.Uint64("height", height),
			zap.Error(err))
		return
	}
	BlocksProcessedTotal.Inc()
}
