// Package client fetches day-ahead auction results from an Elspot-style
// open data API.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/nordvolt/voltra/internal/config"
	"github.com/nordvolt/voltra/internal/market"
	"github.com/nordvolt/voltra/internal/spotprice/domain"
)

// Fetcher retrieves hourly spot quotes for one bidding zone.
type Fetcher interface {
	FetchSpotPrices(ctx context.Context, area market.PriceArea, from, to time.Time) ([]domain.Quote, error)
}

// apiTime is the zone-less timestamp layout the dataset API speaks. Values
// are UTC.
const apiTime = "2006-01-02T15:04:05"

type elspotClient struct {
	baseURL string
	client  *http.Client
	log     *zap.Logger
}

// New builds the fetcher against SPOT_BASE_URL. The ingest worker stays
// idle when the URL is unset, so an unconfigured client never sends.
func New(cfg config.Config, log *zap.Logger) Fetcher {
	return &elspotClient{
		baseURL: strings.TrimRight(cfg.SpotBaseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
		log:     log.Named("spotprice.client"),
	}
}

type recordsResponse struct {
	Total   int            `json:"total"`
	Records []elspotRecord `json:"records"`
}

type elspotRecord struct {
	HourUTC      string   `json:"HourUTC"`
	PriceArea    string   `json:"PriceArea"`
	SpotPriceDKK *float64 `json:"SpotPriceDKK"`
}

func (c *elspotClient) FetchSpotPrices(ctx context.Context, area market.PriceArea, from, to time.Time) ([]domain.Quote, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("spot price base url not configured")
	}

	filter, err := json.Marshal(map[string][]string{"PriceArea": {string(area)}})
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("start", from.UTC().Format("2006-01-02T15:04"))
	query.Set("end", to.UTC().Format("2006-01-02T15:04"))
	query.Set("filter", string(filter))
	query.Set("sort", "HourUTC ASC")

	endpoint := c.baseURL + "/dataset/Elspotprices?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch spot prices: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("spot price api returned %d: %s", resp.StatusCode, truncate(body, 200))
	}

	var payload recordsResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode spot price response: %w", err)
	}

	quotes := make([]domain.Quote, 0, len(payload.Records))
	for _, rec := range payload.Records {
		if rec.SpotPriceDKK == nil {
			// EUR-only rows show up while the DKK fixing lags.
			continue
		}
		hour, err := time.ParseInLocation(apiTime, rec.HourUTC, time.UTC)
		if err != nil {
			c.log.Warn("skipping spot record with bad timestamp",
				zap.String("hour_utc", rec.HourUTC),
				zap.String("price_area", rec.PriceArea),
			)
			continue
		}
		quotes = append(quotes, domain.Quote{
			Hour:     hour,
			PriceMWh: decimal.NewFromFloat(*rec.SpotPriceDKK),
		})
	}
	return quotes, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
