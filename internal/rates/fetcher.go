package rates

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultEndpoint = "https://api.coingecko.com/api/v3/simple/price"

// Fetcher retrieves the native-currency price in the reference currency.
type Fetcher struct {
	client   *http.Client
	endpoint string
	currency string
}

// NewFetcher creates a new rate fetcher.
func NewFetcher(endpoint, currency string) *Fetcher {
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	if currency == "" {
		currency = "usd"
	}
	return &Fetcher{
		client:   &http.Client{Timeout: 10 * time.Second},
		endpoint: endpoint,
		currency: strings.ToLower(currency),
	}
}

// GetRate returns the reference-currency price of one payment-currency unit.
func (f *Fetcher) GetRate() (float64, error) {
	url := fmt.Sprintf("%s?ids=ethereum&vs_currencies=%s", f.endpoint, f.currency)

	resp, err := f.client.Get(url)
	if err != nil {
		return 0, fmt.Errorf("fetching rate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("rate source returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("reading rate response: %w", err)
	}

	var parsed map[string]map[string]float64
	if err := json.Unmarshal(body, &parsed); err != nil {
		return 0, fmt.Errorf("parsing rate response: %w", err)
	}

	rate, ok := parsed["ethereum"][f.currency]
	if !ok || rate <= 0 {
		return 0, fmt.Errorf("rate source returned no %s rate", f.currency)
	}
	return rate, nil
}
