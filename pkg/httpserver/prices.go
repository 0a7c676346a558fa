package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/apexmev/arbiter/pkg/types"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// PriceReader serves last-published prices without blocking.
type PriceReader interface {
	PublishedPrice(address common.Address) (float64, bool)
}

// PriceHandler handles HTTP requests for the published price map.
type PriceHandler struct {
	reader PriceReader
	assets []types.TrackedAsset
	logger *zap.Logger
}

// NewPriceHandler creates a price handler.
func NewPriceHandler(reader PriceReader, assets []types.TrackedAsset, logger *zap.Logger) *PriceHandler {
	return &PriceHandler{reader: reader, assets: assets, logger: logger}
}

// AssetPrice is one entry of the price response.
type AssetPrice struct {
	Symbol   string  `json:"symbol"`
	Address  string  `json:"address"`
	PriceUSD float64 `json:"price_usd"`
}

// PricesResponse is the HTTP response for the price map.
type PricesResponse struct {
	Prices []AssetPrice `json:"prices"`
}

// HandlePrices handles GET /api/prices. Assets without a published price
// are omitted rather than reported as zero.
func (h *PriceHandler) HandlePrices(w http.ResponseWriter, r *http.Request) {
	prices := make([]AssetPrice, 0, len(h.assets))
	for _, asset := range h.assets {
		price, ok := h.reader.PublishedPrice(asset.Address)
		if !ok {
			continue
		}
		prices = append(prices, AssetPrice{
			Symbol:   asset.Symbol,
			Address:  asset.Address.Hex(),
			PriceUSD: price,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(PricesResponse{Prices: prices}); err != nil {
		h.logger.Error("failed-to-encode-response", zap.Error(err))
	}
}
