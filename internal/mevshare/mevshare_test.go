package mevshare

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/apexmev/arbiter/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(baseURL string) *Client {
	return NewClient(Config{BaseURL: baseURL, APIKey: "test-key", Logger: zap.NewNop()})
}

func TestDisabledClient(t *testing.T) {
	c := newTestClient("")

	_, err := c.SendPrivateTransaction(context.Background(), []byte{0x01})
	require.ErrorIs(t, err, types.ErrMEVShareDisabled)

	_, err = c.SendBundle(context.Background(), [][]byte{{0x01}}, 100)
	require.ErrorIs(t, err, types.ErrMEVShareDisabled)

	_, err = c.GetBundleStatus(context.Background(), "0xbundle")
	require.ErrorIs(t, err, types.ErrMEVShareDisabled)

	_, err = c.Subscribe(context.Background())
	require.ErrorIs(t, err, types.ErrMEVShareDisabled)
}

func TestSendPrivateTransactionHidesCalldata(t *testing.T) {
	var got sendTxRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/tx", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Flashbots-Signature"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"txHash":"0x00000000000000000000000000000000000000000000000000000000000000aa"}`))
	}))
	defer srv.Close()

	hash, err := newTestClient(srv.URL).SendPrivateTransaction(context.Background(), []byte{0xde, 0xad})
	require.NoError(t, err)
	assert.Equal(t, "0x00000000000000000000000000000000000000000000000000000000000000aa", hash.Hex())

	assert.Equal(t, "0xdead", got.Tx)
	assert.False(t, got.Preferences.Calldata, "calldata must stay hidden")
	assert.True(t, got.Preferences.Hash)
	assert.True(t, got.Preferences.ContractAddress)
	assert.True(t, got.Preferences.FunctionSelector)
	assert.True(t, got.Preferences.Logs)
}

func TestSendBundle(t *testing.T) {
	var got sendBundleRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/bundle", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"bundleHash":"0xbundle"}`))
	}))
	defer srv.Close()

	hash, err := newTestClient(srv.URL).SendBundle(context.Background(), [][]byte{{0x01}, {0x02}}, 0x1234)
	require.NoError(t, err)
	assert.Equal(t, "0xbundle", hash)
	assert.Equal(t, []string{"0x01", "0x02"}, got.Txs)
	assert.Equal(t, "0x1234", got.BlockNumber)
}

func TestSendBundleRejectsEmpty(t *testing.T) {
	_, err := newTestClient("http://relay.invalid").SendBundle(context.Background(), nil, 100)
	require.Error(t, err)
}

func TestGetBundleStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/bundle/status", r.URL.Path)
		assert.Equal(t, "0xbundle", r.URL.Query().Get("hash"))
		w.Write([]byte(`{"bundleHash":"0xbundle","status":"included","block":123}`))
	}))
	defer srv.Close()

	status, err := newTestClient(srv.URL).GetBundleStatus(context.Background(), "0xbundle")
	require.NoError(t, err)
	assert.Equal(t, "included", status.Status)
	assert.Equal(t, uint64(123), status.Block)
}

func TestGetBundleStats(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/bundle/stats", r.URL.Path)
		w.Write([]byte(`{"bundleHash":"0xbundle","isSimulated":true,"isHighPriority":false}`))
	}))
	defer srv.Close()

	stats, err := newTestClient(srv.URL).GetBundleStats(context.Background(), "0xbundle")
	require.NoError(t, err)
	assert.True(t, stats.IsSimulated)
	assert.False(t, stats.IsHighPriority)
}

func TestRelayErrorsSurface(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).SendPrivateTransaction(context.Background(), []byte{0x01})
	require.Error(t, err)
}

func TestSubscribeDecodesHints(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/events/transaction", r.URL.Path)
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))

		flusher := w.(http.Flusher)
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(": keepalive\n\n"))
		w.Write([]byte("data: {\"hash\":\"0x01\",\"to\":\"0xabc\",\"functionSelector\":\"0x12345678\"}\n\n"))
		w.Write([]byte("data: not-json\n\n"))
		w.Write([]byte("data: {\"hash\":\"0x02\"}\n\n"))
		flusher.Flush()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	hints, err := newTestClient(srv.URL).Subscribe(ctx)
	require.NoError(t, err)

	first := <-hints
	assert.Equal(t, "0x01", first.Hash)
	assert.Equal(t, "0x12345678", first.Selector)

	second := <-hints
	assert.Equal(t, "0x02", second.Hash, "malformed events are skipped, not fatal")

	_, open := <-hints
	assert.False(t, open, "channel closes when the stream ends")
}
