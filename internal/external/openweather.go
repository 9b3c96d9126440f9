package external

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/jonboulle/clockwork"

	"outagewatch/internal/types"
)

const openWeatherAPIBase = "https://api.openweathermap.org"

// OpenWeatherClientConfig holds the configuration for an OpenWeatherClient.
type OpenWeatherClientConfig struct {
	APIKey  string
	BaseURL string // defaults to openWeatherAPIBase
	Logger  *slog.Logger
	Clock   clockwork.Clock
}

// OpenWeatherClient implements WeatherProvider against the OpenWeatherMap
// current weather endpoint (/data/2.5/weather) in metric units.
type OpenWeatherClient struct {
	base    *BaseClient
	apiKey  string
	baseURL string
	logger  *slog.Logger
	clock   clockwork.Clock
}

// NewOpenWeatherClient creates a client that does not retry.
func NewOpenWeatherClient(httpClient *http.Client, cfg OpenWeatherClientConfig) *OpenWeatherClient {
	return NewOpenWeatherClientWithBase(NewBaseClient(httpClient, "openweather", NoRetryPolicy()), cfg)
}

// NewOpenWeatherClientWithBase creates a client with a caller-supplied BaseClient.
func NewOpenWeatherClientWithBase(base *BaseClient, cfg OpenWeatherClientConfig) *OpenWeatherClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = openWeatherAPIBase
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &OpenWeatherClient{
		base:    base,
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  logger,
		clock:   clock,
	}
}

// owmResponse is the subset of the current weather payload we read.
type owmResponse struct {
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity float64 `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Rain struct {
		OneHour float64 `json:"1h"`
	} `json:"rain"`
	Clouds struct {
		All float64 `json:"all"`
	} `json:"clouds"`
}

// Current fetches current conditions. The observation is stamped with the
// local clock rather than the provider's dt so that it correlates with
// outages reported against the same clock.
func (c *OpenWeatherClient) Current(ctx context.Context, lat, lon float64) (*types.WeatherObservation, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("appid", c.apiKey)
	q.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/data/2.5/weather?"+q.Encode(), nil)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to create weather request", err)
	}

	start := c.clock.Now()
	resp, err := c.base.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "weather fetch failed", "lat", lat, "lon", lon, "error", err)
		return nil, types.NewAppError(types.ErrCodeUpstreamWeather, "weather provider unavailable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, types.NewAppErrorWithDetails(
			types.ErrCodeUpstreamWeather,
			fmt.Sprintf("weather provider returned %d", resp.StatusCode),
			nil,
			map[string]any{"status": resp.StatusCode, "body": string(body)},
		)
	}

	var payload owmResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamWeather, "weather provider returned malformed payload", err)
	}

	obs := &types.WeatherObservation{
		Timestamp:             c.clock.Now().UTC(),
		Latitude:              lat,
		Longitude:             lon,
		Temperature:           payload.Main.Temp,
		Humidity:              payload.Main.Humidity,
		WindSpeed:             payload.Wind.Speed,
		PrecipitationLastHour: payload.Rain.OneHour,
		CloudCover:            payload.Clouds.All,
	}
	if len(payload.Weather) > 0 {
		obs.Condition = payload.Weather[0].Main
		obs.Description = payload.Weather[0].Description
	}

	c.logger.DebugContext(ctx, "weather fetched",
		"lat", lat,
		"lon", lon,
		"condition", obs.Condition,
		"duration_ms", c.clock.Since(start).Milliseconds(),
	)
	return obs, nil
}

var _ WeatherProvider = (*OpenWeatherClient)(nil)
