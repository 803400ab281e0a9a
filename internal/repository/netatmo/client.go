package netatmo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://api.netatmo.com"

// APILimit describes one published rate limit of the Netatmo API,
// e.g. 50 requests per 10 seconds or 500 requests per hour.
type APILimit struct {
	Requests int           `mapstructure:"requests"`
	Per      time.Duration `mapstructure:"per"`
}

// client is a minimal Netatmo API client: token login, station data
// and raw measurement reads. Every API call waits on all configured
// rate limiters so the published limits are never breached.
type client struct {
	baseURL      string
	clientID     string
	clientSecret string
	username     string
	password     string

	httpClient *http.Client
	limiters   []*rate.Limiter

	mu          sync.Mutex // guards token state
	token       string
	tokenExpiry time.Time
}

func newClient(cfg Config) *client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	limiters := make([]*rate.Limiter, 0, len(cfg.APILimits))
	for _, l := range cfg.APILimits {
		if l.Requests <= 0 || l.Per <= 0 {
			continue
		}
		limiters = append(limiters, rate.NewLimiter(
			rate.Limit(float64(l.Requests)/l.Per.Seconds()), l.Requests))
	}

	return &client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		username:     cfg.Username,
		password:     cfg.Password,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		limiters:     limiters,
	}
}

// wait blocks until every limiter admits the next API call.
func (c *client) wait(ctx context.Context) error {
	for _, l := range c.limiters {
		if err := l.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// accessToken returns a valid bearer token, fetching a fresh one when
// the current token is missing or about to expire. The lock also
// serializes concurrent refreshes so only one login hits the API.
func (c *client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Until(c.tokenExpiry) > time.Minute {
		return c.token, nil
	}
	if err := c.wait(ctx); err != nil {
		return "", err
	}

	form := url.Values{
		"grant_type":    {"password"},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
		"username":      {c.username},
		"password":      {c.password},
		"scope":         {"read_station"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("netatmo login: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("netatmo login: got status %d", resp.StatusCode)
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("netatmo login: decode token: %w", err)
	}

	c.token = tok.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	return c.token, nil
}

// get performs an authenticated GET against an API endpoint and decodes
// the "body" envelope into out.
func (c *client) get(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}
	if err := c.wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("netatmo %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("netatmo %s: got status %d", endpoint, resp.StatusCode)
	}

	envelope := struct {
		Body json.RawMessage `json:"body"`
	}{}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("netatmo %s: decode response: %w", endpoint, err)
	}
	return json.Unmarshal(envelope.Body, out)
}

type stationsData struct {
	Devices []deviceData `json:"devices"`
}

type deviceData struct {
	ID          string       `json:"_id"`
	StationName string       `json:"station_name"`
	ModuleName  string       `json:"module_name"`
	DataTypes   []string     `json:"data_type"`
	Modules     []moduleData `json:"modules"`
}

type moduleData struct {
	ID         string   `json:"_id"`
	ModuleName string   `json:"module_name"`
	DataTypes  []string `json:"data_type"`
}

func (c *client) getStationsData(ctx context.Context) (*stationsData, error) {
	var data stationsData
	if err := c.get(ctx, "/api/getstationsdata", url.Values{}, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// measureBatch is one chunk of a getmeasure response: a start time, a
// step size and consecutive values.
type measureBatch struct {
	BegTime  int64        `json:"beg_time"`
	StepTime int64        `json:"step_time"`
	Value    [][]*float64 `json:"value"`
}

// getMeasure reads raw values for one measurement type in [begin, end).
// The API caps each response at 1024 values; the caller pages until the
// period is covered.
func (c *client) getMeasure(ctx context.Context, deviceID, moduleID, dataType string, begin, end time.Time) ([]measureBatch, error) {
	params := url.Values{
		"device_id":  {deviceID},
		"scale":      {"max"},
		"type":       {dataType},
		"date_begin": {strconv.FormatInt(begin.Unix(), 10)},
		"date_end":   {strconv.FormatInt(end.Unix(), 10)},
		"optimize":   {"true"},
	}
	if moduleID != "" {
		params.Set("module_id", moduleID)
	}

	var batches []measureBatch
	if err := c.get(ctx, "/api/getmeasure", params, &batches); err != nil {
		return nil, err
	}
	return batches, nil
}
