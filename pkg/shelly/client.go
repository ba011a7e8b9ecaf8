package shelly

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// AccessConfig holds the connection parameters of a device's local HTTP API.
// Authentication is only used when both Username and Password are set.
type AccessConfig struct {
	Host     string
	Username string
	Password string
}

type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	instrument []HTTPInstrument
}

type HTTPInstrument struct {
	RecordTime func(path string, requestTime time.Duration)
}

func NewClient(access AccessConfig, timeout time.Duration, instrument []HTTPInstrument) (*Client, error) {
	if strings.TrimSpace(access.Host) == "" {
		return nil, errors.New("shelly: device host is required")
	}
	base := &url.URL{
		Scheme: "http",
		Host:   access.Host,
		Path:   "/",
	}
	if access.Username != "" && access.Password != "" {
		base.User = url.UserPassword(access.Username, access.Password)
	}
	return &Client{
		baseURL: base,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		instrument: instrument,
	}, nil
}

// GetJSON performs a GET on path and decodes the body into dest.
// Request failures and non-2xx statuses map to *TransportError, unusable
// bodies to *DecodeError. No retries: the caller owns the poll schedule.
func (c *Client) GetJSON(path string, query url.Values, dest any) error {
	defer RecordTimer(path, c.instrument)()

	endpoint := c.baseURL.JoinPath(path)
	if len(query) > 0 {
		endpoint.RawQuery = query.Encode()
	}
	// password never appears in errors or logs
	display := endpoint.Redacted()

	resp, err := c.httpClient.Get(endpoint.String())
	if err != nil {
		return &TransportError{Endpoint: display, Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Endpoint: display, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &TransportError{Endpoint: display, StatusCode: resp.StatusCode}
	}

	body := strings.TrimSpace(string(payload))
	if body == "" || body == "null" || body == "{}" {
		return &DecodeError{Endpoint: display, Err: errors.New("empty document")}
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return &DecodeError{Endpoint: display, Err: err}
	}
	return nil
}

func RecordTimer(name string, instrument []HTTPInstrument) func() {
	if instrument == nil {
		return func() {}
	}

	start := time.Now()
	return func() {
		duration := time.Since(start)
		for i := range instrument {
			instrument[i].RecordTime(name, duration)
		}
	}
}
