package edgar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"outpost/internal/config"
)

// Package edgar proxies two read-only SEC EDGAR feeds: the company ticker
// directory and per-company filing submissions. The SEC requires a
// descriptive User-Agent and will throttle anonymous clients.

const (
	defaultTickersURL      = "https://www.sec.gov/files/company_tickers.json"
	defaultSubmissionsBase = "https://data.sec.gov/submissions/"
)

var (
	// ErrUpstreamTimeout means the SEC did not answer within the client timeout.
	ErrUpstreamTimeout = errors.New("sec request timed out")
	// ErrUpstream covers every other upstream failure (transport, non-200).
	ErrUpstream = errors.New("sec request failed")
	// ErrInvalidCIK means the caller-supplied CIK is not a number of at most
	// ten digits.
	ErrInvalidCIK = errors.New("invalid cik")
)

// Company is one entry of the SEC ticker directory.
type Company struct {
	CIK    int64  `json:"cik_str"`
	Ticker string `json:"ticker"`
	Title  string `json:"title"`
}

// Filing is one 10-K row extracted from the columnar submissions feed.
type Filing struct {
	Form                  string `json:"form"`
	AccessionNumber       string `json:"accessionNumber"`
	FilingDate            string `json:"filingDate"`
	ReportDate            string `json:"reportDate"`
	PrimaryDocument       string `json:"primaryDocument"`
	PrimaryDocDescription string `json:"primaryDocDescription"`
}

// submissionsResponse mirrors the column-oriented layout of the EDGAR
// submissions JSON: parallel arrays indexed together.
type submissionsResponse struct {
	Filings struct {
		Recent struct {
			AccessionNumber       []string `json:"accessionNumber"`
			Form                  []string `json:"form"`
			FilingDate            []string `json:"filingDate"`
			ReportDate            []string `json:"reportDate"`
			PrimaryDocument       []string `json:"primaryDocument"`
			PrimaryDocDescription []string `json:"primaryDocDescription"`
		} `json:"recent"`
	} `json:"filings"`
}

// Client fetches SEC EDGAR feeds with an explicit timeout.
type Client struct {
	hc        *http.Client
	userAgent string

	// overridable in tests
	tickersURL      string
	submissionsBase string
}

// NewClient constructs an EDGAR client from configuration.
func NewClient(cfg config.EdgarConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		hc:              &http.Client{Timeout: timeout},
		userAgent:       cfg.UserAgent,
		tickersURL:      defaultTickersURL,
		submissionsBase: defaultSubmissionsBase,
	}
}

// Tickers fetches the full company ticker directory, keyed by row index.
func (c *Client) Tickers(ctx context.Context) (map[string]Company, error) {
	var out map[string]Company
	if err := c.get(ctx, c.tickersURL, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// TenKFilings fetches a company's submissions and keeps only 10-K filings.
// The CIK may be given with or without leading zeros.
func (c *Client) TenKFilings(ctx context.Context, cik string) ([]Filing, error) {
	padded, err := PadCIK(cik)
	if err != nil {
		return nil, err
	}

	var sub submissionsResponse
	if err := c.get(ctx, c.submissionsBase+"CIK"+padded+".json", &sub); err != nil {
		return nil, err
	}

	recent := sub.Filings.Recent
	filings := make([]Filing, 0)
	for i, form := range recent.Form {
		if form != "10-K" {
			continue
		}
		f := Filing{Form: form}
		if i < len(recent.AccessionNumber) {
			f.AccessionNumber = recent.AccessionNumber[i]
		}
		if i < len(recent.FilingDate) {
			f.FilingDate = recent.FilingDate[i]
		}
		if i < len(recent.ReportDate) {
			f.ReportDate = recent.ReportDate[i]
		}
		if i < len(recent.PrimaryDocument) {
			f.PrimaryDocument = recent.PrimaryDocument[i]
		}
		if i < len(recent.PrimaryDocDescription) {
			f.PrimaryDocDescription = recent.PrimaryDocDescription[i]
		}
		filings = append(filings, f)
	}
	return filings, nil
}

// PadCIK normalizes a CIK to the ten-digit zero-padded form EDGAR expects.
func PadCIK(cik string) (string, error) {
	if cik == "" || len(cik) > 10 {
		return "", fmt.Errorf("%w: %q", ErrInvalidCIK, cik)
	}
	for _, r := range cik {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("%w: %q", ErrInvalidCIK, cik)
		}
	}
	for len(cik) < 10 {
		cik = "0" + cik
	}
	return cik, nil
}

func (c *Client) get(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		var ne net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
			return fmt.Errorf("%w: %v", ErrUpstreamTimeout, err)
		}
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode: %v", ErrUpstream, err)
	}
	return nil
}
