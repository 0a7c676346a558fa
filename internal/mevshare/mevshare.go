package mevshare

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/apexmev/arbiter/pkg/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"
)

// HintPreferences controls what the relay reveals about a private
// transaction to searchers.
type HintPreferences struct {
	Calldata         bool `json:"calldata"`
	ContractAddress  bool `json:"contract_address"`
	FunctionSelector bool `json:"function_selector"`
	Logs             bool `json:"logs"`
	Hash             bool `json:"hash"`
}

// defaultHints hide the calldata while revealing enough for builders to
// place the transaction.
var defaultHints = HintPreferences{
	Calldata:         false,
	ContractAddress:  true,
	FunctionSelector: true,
	Logs:             true,
	Hash:             true,
}

// Config holds the client settings.
type Config struct {
	BaseURL string
	APIKey  string
	Logger  *zap.Logger

	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
}

// Client talks to a MEV-Share relay. A client with no base URL is
// disabled: every call fails with types.ErrMEVShareDisabled.
type Client struct {
	config Config
	http   *http.Client
	logger *zap.Logger
}

// NewClient creates a relay client.
func NewClient(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{config: cfg, http: httpClient, logger: cfg.Logger}
}

// Enabled reports whether a relay endpoint is configured.
func (c *Client) Enabled() bool { return c.config.BaseURL != "" }

type sendTxRequest struct {
	Tx          string          `json:"tx"`
	Preferences HintPreferences `json:"preferences"`
}

type sendTxResponse struct {
	TxHash string `json:"txHash"`
}

// SendPrivateTransaction submits a raw signed transaction with the default
// hint preferences and returns the relay-reported hash.
func (c *Client) SendPrivateTransaction(ctx context.Context, rawTx []byte) (common.Hash, error) {
	if !c.Enabled() {
		return common.Hash{}, types.ErrMEVShareDisabled
	}

	var resp sendTxResponse
	err := c.post(ctx, "/api/v1/tx", sendTxRequest{
		Tx:          hexutil.Encode(rawTx),
		Preferences: defaultHints,
	}, &resp)
	if err != nil {
		return common.Hash{}, err
	}

	hash := common.HexToHash(resp.TxHash)
	c.logger.Info("private-transaction-sent", zap.String("hash", hash.Hex()))
	return hash, nil
}

type sendBundleRequest struct {
	Txs         []string `json:"txs"`
	BlockNumber string   `json:"blockNumber"`
}

type sendBundleResponse struct {
	BundleHash string `json:"bundleHash"`
}

// SendBundle submits an ordered set of raw transactions targeting one
// block and returns the bundle hash.
func (c *Client) SendBundle(ctx context.Context, rawTxs [][]byte, targetBlock uint64) (string, error) {
	if !c.Enabled() {
		return "", types.ErrMEVShareDisabled
	}
	if len(rawTxs) == 0 {
		return "", fmt.Errorf("bundle needs at least one transaction")
	}

	txs := make([]string, len(rawTxs))
	for i, raw := range rawTxs {
		txs[i] = hexutil.Encode(raw)
	}

	var resp sendBundleResponse
	err := c.post(ctx, "/api/v1/bundle", sendBundleRequest{
		Txs:         txs,
		BlockNumber: hexutil.EncodeUint64(targetBlock),
	}, &resp)
	if err != nil {
		return "", err
	}

	c.logger.Info("bundle-sent",
		zap.String("bundle-hash", resp.BundleHash),
		zap.Uint64("target-block", targetBlock))
	return resp.BundleHash, nil
}

// BundleStatus is the relay's view of a bundle's inclusion state.
type BundleStatus struct {
	BundleHash string `json:"bundleHash"`
	Status     string `json:"status"`
	Block      uint64 `json:"block"`
}

// GetBundleStatus fetches the current state of a bundle.
func (c *Client) GetBundleStatus(ctx context.Context, bundleHash string) (*BundleStatus, error) {
	if !c.Enabled() {
		return nil, types.ErrMEVShareDisabled
	}

	var status BundleStatus
	if err := c.get(ctx, "/api/v1/bundle/status?hash="+bundleHash, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// BundleStats aggregates a bundle's simulation and inclusion history.
type BundleStats struct {
	BundleHash     string `json:"bundleHash"`
	IsSimulated    bool   `json:"isSimulated"`
	IsHighPriority bool   `json:"isHighPriority"`
	SimulatedAt    string `json:"simulatedAt"`
	ReceivedAt     string `json:"receivedAt"`
}

// GetBundleStats fetches the relay's stats for a bundle.
func (c *Client) GetBundleStats(ctx context.Context, bundleHash string) (*BundleStats, error) {
	if !c.Enabled() {
		return nil, types.ErrMEVShareDisabled
	}

	var stats BundleStats
	if err := c.get(ctx, "/api/v1/bundle/stats?hash="+bundleHash, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// PendingTxHint is one event from the relay's pending-transaction stream.
type PendingTxHint struct {
	Hash            string `json:"hash"`
	ContractAddress string `json:"to"`
	Selector        string `json:"functionSelector"`
}

// Subscribe opens the SSE pending-transaction stream and decodes hints
// onto the returned channel. The channel closes when the stream ends or
// the context is cancelled; reconnecting is the consumer's job.
func (c *Client) Subscribe(ctx context.Context) (<-chan PendingTxHint, error) {
	if !c.Enabled() {
		return nil, types.ErrMEVShareDisabled
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/api/v1/events/transaction", nil)
	if err != nil {
		return nil, fmt.Errorf("build subscribe request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("open event stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("event stream returned status %d", resp.StatusCode)
	}

	hints := make(chan PendingTxHint, 64)
	go func() {
		defer close(hints)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if payload == "" {
				continue
			}

			var hint PendingTxHint
			if err := json.Unmarshal([]byte(payload), &hint); err != nil {
				c.logger.Debug("hint-decode-failed", zap.Error(err))
				continue
			}

			HintsReceivedTotal.Inc()
			select {
			case hints <- hint:
			case <-ctx.Done():
				return
			}
		}
	}()
	return hints, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	c.authorize(req)

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	RequestsTotal.WithLabelValues(req.URL.Path).Inc()

	resp, err := c.http.Do(req)
	if err != nil {
		RequestFailuresTotal.WithLabelValues(req.URL.Path).Inc()
		return fmt.Errorf("relay request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		RequestFailuresTotal.WithLabelValues(req.URL.Path).Inc()
		return fmt.Errorf("relay returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode relay response: %w", err)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.config.APIKey != "" {
		req.Header.Set("X-Flashbots-Signature", c.config.APIKey)
	}
}
