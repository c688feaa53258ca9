// Package weather provides a tool that fetches current weather conditions
// from an Open-Meteo compatible API.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolloop/encoding"
	"github.com/effective-security/toolloop/tools"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
	"github.com/hashicorp/go-retryablehttp"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/toolloop/tools", "weather")

const (
	// ToolName is the default name of the tool
	ToolName = "GetWeather"
	// DefaultBaseURL is the Open-Meteo API endpoint
	DefaultBaseURL = "https://api.open-meteo.com"
)

// Request is the tool input
type Request struct {
	Latitude  float64 `json:"latitude" yaml:"latitude" jsonschema:"title=Latitude,description=Latitude of the location" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" yaml:"longitude" jsonschema:"title=Longitude,description=Longitude of the location" validate:"gte=-180,lte=180"`
	Units     string  `json:"units,omitempty" yaml:"units,omitempty" jsonschema:"title=Units,description=Units of temperature,enum=celsius,enum=fahrenheit" validate:"omitempty,oneof=celsius fahrenheit"`
}

// Conditions are the current weather conditions
type Conditions struct {
	Latitude        float64 `json:"latitude" yaml:"latitude"`
	Longitude       float64 `json:"longitude" yaml:"longitude"`
	Time            string  `json:"time" yaml:"time"`
	Temperature     float64 `json:"temperature" yaml:"temperature"`
	TemperatureUnit string  `json:"temperature_unit" yaml:"temperature_unit"`
	WindSpeed       float64 `json:"wind_speed" yaml:"wind_speed"`
	WindSpeedUnit   string  `json:"wind_speed_unit" yaml:"wind_speed_unit"`
	WeatherCode     int     `json:"weather_code" yaml:"weather_code"`
	Description     string  `json:"description" yaml:"description"`
}

type forecastResponse struct {
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	CurrentUnits struct {
		Temperature string `json:"temperature_2m"`
		WindSpeed   string `json:"wind_speed_10m"`
	} `json:"current_units"`
	Current struct {
		Time        string  `json:"time"`
		Temperature float64 `json:"temperature_2m"`
		WindSpeed   float64 `json:"wind_speed_10m"`
		WeatherCode int     `json:"weather_code"`
	} `json:"current"`
}

type errorResponse struct {
	Error  bool   `json:"error"`
	Reason string `json:"reason"`
}

// Option configures the tool
type Option func(*Tool)

// WithBaseURL sets the API endpoint
func WithBaseURL(baseURL string) Option {
	return func(t *Tool) {
		t.baseURL = baseURL
	}
}

// WithHTTPClient sets the underlying HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(t *Tool) {
		t.httpClient = client
	}
}

// WithRetry sets the number of retries and the max wait between them
func WithRetry(maxRetries int, waitMax time.Duration) Option {
	return func(t *Tool) {
		t.maxRetries = maxRetries
		t.waitMax = waitMax
	}
}

// WithName sets the name of the tool
func WithName(name string) Option {
	return func(t *Tool) {
		t.name = name
	}
}

// Tool fetches current weather conditions for a location
type Tool struct {
	*tools.Func[Request, Conditions]

	name       string
	baseURL    string
	httpClient *http.Client
	maxRetries int
	waitMax    time.Duration
	client     *retryablehttp.Client
}

var _ tools.Tool[Request, Conditions] = (*Tool)(nil)

// New returns the tool, the result is rendered as YAML
func New(opts ...Option) (*Tool, error) {
	t := &Tool{
		name:       ToolName,
		baseURL:    DefaultBaseURL,
		maxRetries: 3,
		waitMax:    5 * time.Second,
	}
	for _, opt := range opts {
		opt(t)
	}

	c := retryablehttp.NewClient()
	c.RetryMax = t.maxRetries
	c.RetryWaitMin = t.waitMax / 10
	c.RetryWaitMax = t.waitMax
	c.CheckRetry = stopOnCancel(retryablehttp.ErrorPropagatedRetryPolicy)
	c.Logger = nil
	if t.httpClient != nil {
		c.HTTPClient = t.httpClient
	}
	t.client = c

	fn, err := tools.NewFunc(t.name,
		"Returns the current weather conditions for a location given by latitude and longitude.",
		t.fetch,
		tools.WithResultMode(encoding.ModeYAML),
	)
	if err != nil {
		return nil, err
	}
	t.Func = fn
	return t, nil
}

// stopOnCancel does not retry when the context is done.
func stopOnCancel(policy retryablehttp.CheckRetry) retryablehttp.CheckRetry {
	return func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return policy(ctx, resp, err)
	}
}

func (t *Tool) fetch(ctx context.Context, req *Request) (*Conditions, error) {
	units := values.StringsCoalesce(req.Units, "celsius")

	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(req.Latitude, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(req.Longitude, 'f', -1, 64))
	q.Set("current", "temperature_2m,wind_speed_10m,weather_code")
	q.Set("temperature_unit", units)
	u := t.baseURL + "/v1/forecast?" + q.Encode()

	hreq, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	hreq.Header.Set("Accept", "application/json")

	started := time.Now()
	r, err := t.client.Do(hreq)
	if err != nil {
		return nil, errors.Wrap(err, "send request")
	}
	defer func() { _ = r.Body.Close() }()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"status", r.StatusCode,
		"latitude", req.Latitude,
		"longitude", req.Longitude,
		"elapsed", time.Since(started).String(),
	)

	if r.StatusCode != http.StatusOK {
		msg := fmt.Sprintf("API returned unexpected status code: %d", r.StatusCode)
		var errResp errorResponse
		if err := json.Unmarshal(body, &errResp); err != nil || errResp.Reason == "" {
			return nil, errors.New(msg)
		}
		return nil, errors.Newf("%s: %s", msg, errResp.Reason)
	}

	var resp forecastResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.Wrap(err, "decode response")
	}

	return &Conditions{
		Latitude:        resp.Latitude,
		Longitude:       resp.Longitude,
		Time:            resp.Current.Time,
		Temperature:     resp.Current.Temperature,
		TemperatureUnit: resp.CurrentUnits.Temperature,
		WindSpeed:       resp.Current.WindSpeed,
		WindSpeedUnit:   resp.CurrentUnits.WindSpeed,
		WeatherCode:     resp.Current.WeatherCode,
		Description:     Describe(resp.Current.WeatherCode),
	}, nil
}

var codes = map[int]string{
	0:  "clear sky",
	1:  "mainly clear",
	2:  "partly cloudy",
	3:  "overcast",
	45: "fog",
	48: "depositing rime fog",
	51: "light drizzle",
	53: "moderate drizzle",
	55: "dense drizzle",
	61: "slight rain",
	63: "moderate rain",
	65: "heavy rain",
	71: "slight snow fall",
	73: "moderate snow fall",
	75: "heavy snow fall",
	80: "slight rain showers",
	81: "moderate rain showers",
	82: "violent rain showers",
	95: "thunderstorm",
	96: "thunderstorm with slight hail",
	99: "thunderstorm with heavy hail",
}

// Describe returns the description of the WMO weather code.
func Describe(code int) string {
	if d, ok := codes[code]; ok {
		return d
	}
	return "unknown"
}
