package weather

import (
	"context"
	"encoding/json"
	"net/url"
	"reflect"
	"strconv"

	"github.com/effective-security/neighborhood/httpclient"
	"github.com/effective-security/neighborhood/schema"
	"github.com/effective-security/neighborhood/tools"
	"github.com/effective-security/neighborhood/utils"
)

const ToolName = "weather"

// DefaultBaseURL is the Open-Meteo forecast API; no credential required.
const DefaultBaseURL = "https://api.open-meteo.com"

const forecastDays = 3

// Request represents the tool input.
type Request struct {
	Lat float64 `json:"lat" jsonschema:"title=Latitude,description=Latitude of the location."`
	Lon float64 `json:"lon" jsonschema:"title=Longitude,description=Longitude of the location."`
}

// Current is the current weather observation.
type Current struct {
	Temperature float64 `json:"temperature"`
	WindSpeed   float64 `json:"windspeed"`
	WeatherCode int     `json:"weathercode"`
	Time        string  `json:"time,omitempty"`
}

// Daily is the per-day forecast series.
type Daily struct {
	Time             []string  `json:"time,omitempty"`
	TemperatureMax   []float64 `json:"temperature_2m_max,omitempty"`
	TemperatureMin   []float64 `json:"temperature_2m_min,omitempty"`
	PrecipitationSum []float64 `json:"precipitation_sum,omitempty"`
	UVIndexMax       []float64 `json:"uv_index_max,omitempty"`
}

// Result is the 3-day forecast.
type Result struct {
	Status   tools.Status `json:"status"`
	Source   string       `json:"source,omitempty"`
	Timezone string       `json:"timezone,omitempty"`
	Current  *Current     `json:"current_weather,omitempty"`
	Daily    *Daily       `json:"daily,omitempty"`
	Error    string       `json:"error,omitempty"`
}

// Tool fetches a short-range forecast from Open-Meteo.
type Tool struct {
	name        string
	description string

	baseURL string
	http    *httpclient.Client
}

var _ tools.Tool[Request, Result] = (*Tool)(nil)

func New() *Tool {
	return &Tool{
		name:        ToolName,
		description: "Get a 3-day weather forecast for coordinates.",
		baseURL:     DefaultBaseURL,
		http:        httpclient.New(),
	}
}

func (t *Tool) WithBaseURL(baseURL string) *Tool {
	t.baseURL = baseURL
	return t
}

func (t *Tool) WithHTTPClient(d httpclient.Doer) *Tool {
	t.http = httpclient.New(httpclient.WithDoer(d))
	return t
}

func (t *Tool) Name() string {
	return t.name
}

func (t *Tool) Description() string {
	return t.description
}

func (t *Tool) Parameters() any {
	sc, _ := schema.New(reflect.TypeOf(Request{}))
	return sc.Parameters
}

func (t *Tool) Run(ctx context.Context, req *Request) (*Result, error) {
	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(req.Lat, 'f', -1, 64))
	params.Set("longitude", strconv.FormatFloat(req.Lon, 'f', -1, 64))
	params.Set("current_weather", "true")
	params.Set("daily", "temperature_2m_max,temperature_2m_min,precipitation_sum,uv_index_max")
	params.Set("forecast_days", strconv.Itoa(forecastDays))
	params.Set("timezone", "auto")

	body, err := t.http.Get(ctx, t.baseURL+"/v1/forecast", params, nil)
	if err != nil {
		if code := httpclient.StatusCode(err); code != 0 {
			return &Result{Status: tools.StatusAPIError, Error: err.Error()}, nil
		}
		return &Result{Status: tools.StatusError, Error: err.Error()}, nil
	}

	var resp struct {
		Timezone       string   `json:"timezone"`
		CurrentWeather *Current `json:"current_weather"`
		Daily          *Daily   `json:"daily"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return &Result{Status: tools.StatusError, Error: err.Error()}, nil
	}

	return &Result{
		Status:   tools.StatusSuccess,
		Source:   "Open-Meteo",
		Timezone: resp.Timezone,
		Current:  resp.CurrentWeather,
		Daily:    resp.Daily,
	}, nil
}

func (t *Tool) Call(ctx context.Context, input string) (string, error) {
	var req Request
	if err := json.Unmarshal(utils.CleanJSON([]byte(input)), &req); err != nil {
		return "", tools.ErrFailedUnmarshalInput
	}
	res, err := t.Run(ctx, &req)
	if err != nil {
		return "", err
	}
	return utils.ToJSON(res), nil
}
