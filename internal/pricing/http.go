package pricing

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	coreconfig "github.com/m3rciful/goldbot/core/config"
	"github.com/m3rciful/goldbot/core/logger"
)

const maxPayloadBytes = 1 << 20

// HTTPSource reads the ounce price from a JSON endpoint (goldapi.io style)
// and, when configured, currency rates from a second JSON endpoint.
type HTTPSource struct {
	client     *http.Client
	catalog    Catalog
	currency   string
	endpoint   string
	authHeader string
	token      string
	pricePath  string
	fx         coreconfig.FXConfig
	now        func() time.Time
}

// NewHTTPSource builds a source from normalized pricing config.
func NewHTTPSource(cfg coreconfig.PricingConfig, cat Catalog, client *http.Client) *HTTPSource {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPSource{
		client:     client,
		catalog:    cat,
		currency:   cfg.Currency,
		endpoint:   cfg.Endpoint,
		authHeader: cfg.AuthHeader,
		token:      cfg.Token,
		pricePath:  cfg.PricePath,
		fx:         cfg.FX,
		now:        time.Now,
	}
}

// Fetch implements Source.
func (s *HTTPSource) Fetch(ctx context.Context) (Quote, error) {
	start := time.Now()
	quote, err := s.fetch(ctx)
	attrs := []slog.Attr{
		slog.String("source", "http"),
		slog.Duration("duration", time.Since(start)),
	}
	if err != nil {
		attrs = append(attrs, slog.String("status", "fail"), slog.String("err", err.Error()))
		if fe, ok := err.(*FetchError); ok {
			attrs = append(attrs, slog.String("fetch_kind", string(fe.Kind)))
		}
		logger.LogEvent(ctx, logger.Pricing, slog.LevelWarn, "pricing.fetch", attrs...)
		return Quote{}, err
	}
	attrs = append(attrs, slog.String("status", "ok"), slog.String("ounce", quote.OuncePrice.StringFixed(2)))
	logger.LogEvent(ctx, logger.Pricing, slog.LevelDebug, "pricing.fetch", attrs...)
	return quote, nil
}

func (s *HTTPSource) fetch(ctx context.Context) (Quote, error) {
	body, err := s.get(ctx, "price", s.endpoint, s.authHeader, s.token)
	if err != nil {
		return Quote{}, err
	}
	ounce, err := readPositive("price", body, s.pricePath)
	if err != nil {
		return Quote{}, err
	}

	rates := make(map[string]decimal.Decimal, len(s.fx.Static)+len(s.fx.Rates))
	for code, rate := range s.fx.Static {
		rates[strings.ToUpper(code)] = decimal.NewFromFloat(rate)
	}
	if s.fx.Endpoint != "" {
		fxBody, err := s.get(ctx, "fx", s.fx.Endpoint, s.fx.AuthHeader, s.fx.Token)
		if err != nil {
			return Quote{}, err
		}
		for code, path := range s.fx.Rates {
			rate, err := readPositive("fx", fxBody, path)
			if err != nil {
				return Quote{}, err
			}
			rates[strings.ToUpper(code)] = rate
		}
	}

	q, err := NewQuote(s.catalog, s.currency, ounce, s.now(), rates)
	if err != nil {
		return Quote{}, &FetchError{Source: "price", Kind: KindParse, Err: err}
	}
	return q, nil
}

func (s *HTTPSource) get(ctx context.Context, source, url, header, token string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{Source: source, Kind: KindNetwork, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if header != "" && token != "" {
		req.Header.Set(header, token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &FetchError{Source: source, Kind: KindNetwork, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes))
	if err != nil {
		return nil, &FetchError{Source: source, Kind: KindNetwork, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fetchErr(source, KindStatus, "unexpected status %d: %s", resp.StatusCode, logger.SanitizeLimit(string(body), 120))
	}
	if !gjson.ValidBytes(body) {
		return nil, fetchErr(source, KindPayload, "response is not valid JSON")
	}
	return body, nil
}

// readPositive reads a number (or numeric string) at path and requires it to be > 0.
func readPositive(source string, body []byte, path string) (decimal.Decimal, error) {
	res := gjson.GetBytes(body, path)
	if !res.Exists() {
		return decimal.Decimal{}, fetchErr(source, KindPayload, "field %q missing", path)
	}
	var raw string
	switch res.Type {
	case gjson.Number:
		raw = res.Raw
	case gjson.String:
		raw = strings.TrimSpace(res.Str)
	default:
		return decimal.Decimal{}, fetchErr(source, KindParse, "field %q is %s, want number", path, res.Type)
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fetchErr(source, KindParse, "field %q: %w", path, err)
	}
	if !v.IsPositive() {
		return decimal.Decimal{}, fetchErr(source, KindParse, "field %q must be positive, got %s", path, v)
	}
	return v, nil
}

var _ Source = (*HTTPSource)(nil)

func (s *HTTPSource) String() string { return fmt.Sprintf("http(%s)", s.endpoint) }
