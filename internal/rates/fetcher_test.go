package rates

import (
	"bytes"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedTransport serves a canned response for every request.
type fixedTransport struct {
	status int
	body   string

	lastURL string
}

func (t *fixedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.lastURL = req.URL.String()
	return &http.Response{
		StatusCode: t.status,
		Body:       io.NopCloser(bytes.NewBufferString(t.body)),
		Header:     make(http.Header),
	}, nil
}

func newTestFetcher(transport *fixedTransport) *Fetcher {
	f := NewFetcher("https://rates.test/simple/price", "usd")
	f.client = &http.Client{Transport: transport}
	return f
}

func TestGetRate(t *testing.T) {
	transport := &fixedTransport{
		status: http.StatusOK,
		body:   `{"ethereum":{"usd":2500.42}}`,
	}
	fetcher := newTestFetcher(transport)

	rate, err := fetcher.GetRate()
	require.NoError(t, err)
	assert.Equal(t, 2500.42, rate)
	assert.Equal(t, "https://rates.test/simple/price?ids=ethereum&vs_currencies=usd", transport.lastURL)
}

func TestGetRateErrorStatus(t *testing.T) {
	fetcher := newTestFetcher(&fixedTransport{
		status: http.StatusTooManyRequests,
		body:   `{"error":"rate limited"}`,
	})

	_, err := fetcher.GetRate()
	assert.ErrorContains(t, err, "status 429")
}

func TestGetRateMalformedBody(t *testing.T) {
	fetcher := newTestFetcher(&fixedTransport{
		status: http.StatusOK,
		body:   `not json`,
	})

	_, err := fetcher.GetRate()
	assert.Error(t, err)
}

func TestGetRateMissingCurrency(t *testing.T) {
	fetcher := newTestFetcher(&fixedTransport{
		status: http.StatusOK,
		body:   `{"ethereum":{"eur":2300}}`,
	})

	_, err := fetcher.GetRate()
	assert.ErrorContains(t, err, "no usd rate")
}
