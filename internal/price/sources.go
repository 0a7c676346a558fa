package price

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	json "github.com/goccy/go-json"

	"github.com/apexmev/arbiter/internal/venue"
	"github.com/apexmev/arbiter/pkg/types"
)

// VenueSource derives USD prices from on-chain swap quotes against a
// stablecoin numeraire. One unit of the asset is priced directly against
// the stable; pairs without a direct pool are routed through WETH.
type VenueSource struct {
	name     string
	registry *venue.Registry
	stable   types.TrackedAsset
	weth     types.TrackedAsset
}

// NewVenueSource creates a quote-derived price source.
func NewVenueSource(name string, registry *venue.Registry, stable, weth types.TrackedAsset) *VenueSource {
	return &VenueSource{name: name, registry: registry, stable: stable, weth: weth}
}

// Name returns the source name.
func (s *VenueSource) Name() string { return s.name }

// Price quotes one unit of the asset into the stablecoin.
func (s *VenueSource) Price(ctx context.Context, asset types.TrackedAsset) (float64, error) {
	if asset.Address == s.stable.Address {
		return 1.0, nil
	}

	direct, err := s.registry.BestQuote(ctx, asset.Address, s.stable.Address, asset.OneUnit())
	if err == nil {
		return s.stable.ToFloat(direct.OutputAmount), nil
	}

	// No direct stable pool; hop through WETH.
	toWETH, err := s.registry.BestQuote(ctx, asset.Address, s.weth.Address, asset.OneUnit())
	if err != nil {
		return 0, fmt.Errorf("quote %s: %w", asset.Symbol, err)
	}

	wethQuote, err := s.registry.BestQuote(ctx, s.weth.Address, s.stable.Address, s.weth.OneUnit())
	if err != nil {
		return 0, fmt.Errorf("quote %s numeraire: %w", s.weth.Symbol, err)
	}

	wethUSD := s.stable.ToFloat(wethQuote.OutputAmount)
	return s.weth.ToFloat(toWETH.OutputAmount) * wethUSD, nil
}

// HTTPSource fetches USD prices from an external REST price API.
type HTTPSource struct {
	name    string
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPSource creates a REST-backed price source.
func NewHTTPSource(name, baseURL, apiKey string) *HTTPSource {
	return &HTTPSource{
		name:    name,
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

// Name returns the source name.
func (s *HTTPSource) Name() string { return s.name }

type priceResponse struct {
	Symbol   string  `json:"symbol"`
	PriceUSD float64 `json:"price_usd"`
}

// Price fetches GET {base}/v1/price?symbol=SYM and decodes the USD price.
func (s *HTTPSource) Price(ctx context.Context, asset types.TrackedAsset) (float64, error) {
	endpoint := fmt.Sprintf("%s/v1/price?symbol=%s", s.baseURL, url.QueryEscape(asset.Symbol))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	if s.apiKey != "" {
		req.Header.Set("X-API-Key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetch price: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("price api returned status %d", resp.StatusCode)
	}

	var body priceResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decode price response: %w", err)
	}
	if body.PriceUSD <= 0 {
		return 0, fmt.Errorf("price api returned non-positive price for %s", asset.Symbol)
	}
	return body.PriceUSD, nil
}
