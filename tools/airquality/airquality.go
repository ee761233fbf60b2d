package airquality

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"reflect"
	"strconv"

	"github.com/effective-security/neighborhood/httpclient"
	"github.com/effective-security/neighborhood/schema"
	"github.com/effective-security/neighborhood/tools"
	"github.com/effective-security/neighborhood/utils"
)

const ToolName = "air_quality"

// DefaultBaseURL is the OpenAQ v3 API.
const DefaultBaseURL = "https://api.openaq.org"

// Stations are searched within this radius, in meters.
const searchRadius = 25000

const maxStations = 5

// Request represents the tool input.
type Request struct {
	Lat float64 `json:"lat" jsonschema:"title=Latitude,description=Latitude of the location."`
	Lon float64 `json:"lon" jsonschema:"title=Longitude,description=Longitude of the location."`
}

// Station is a nearby monitoring station.
type Station struct {
	Name        string          `json:"name,omitempty"`
	Locality    string          `json:"locality,omitempty"`
	Distance    string          `json:"distance,omitempty"`
	Coordinates json.RawMessage `json:"coordinates,omitempty"`
}

// Result is the air-quality lookup outcome.
type Result struct {
	Status              tools.Status    `json:"status"`
	Source              string          `json:"source,omitempty"`
	ClosestStation      *Station        `json:"closest_station,omitempty"`
	Sensors             json.RawMessage `json:"sensors,omitempty"`
	TotalStationsNearby int             `json:"total_stations_nearby,omitempty"`
	AllStations         []Station       `json:"all_stations,omitempty"`
	EstimatedAQI        string          `json:"estimated_aqi,omitempty"`
	Code                int             `json:"code,omitempty"`
	Note                string          `json:"note,omitempty"`
	Error               string          `json:"error,omitempty"`
}

// Tool queries OpenAQ for monitoring stations near coordinates.
type Tool struct {
	name        string
	description string
	apiKey      string

	baseURL string
	http    *httpclient.Client
}

var _ tools.Tool[Request, Result] = (*Tool)(nil)

func New(apiKey string) *Tool {
	return &Tool{
		name:        ToolName,
		description: "Get air quality measurements from nearby OpenAQ monitoring stations.",
		apiKey:      apiKey,
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
	if t.apiKey == "" {
		return &Result{
			Status:       tools.StatusNoAPIKey,
			EstimatedAQI: "Moderate (estimate)",
			Note:         "configure keys.air_quality for live data from OpenAQ",
		}, nil
	}

	params := url.Values{}
	params.Set("coordinates", fmt.Sprintf("%v,%v", req.Lat, req.Lon))
	params.Set("radius", strconv.Itoa(searchRadius))
	params.Set("limit", strconv.Itoa(maxStations))

	body, err := t.http.Get(ctx, t.baseURL+"/v3/locations", params, map[string]string{
		"X-API-Key":  t.apiKey,
		"User-Agent": "neighborhood-intelligence/1.0",
	})
	if err != nil {
		if code := httpclient.StatusCode(err); code != 0 {
			return &Result{
				Status:       tools.StatusAPIError,
				Code:         code,
				Error:        fmt.Sprintf("OpenAQ API returned %d", code),
				EstimatedAQI: "Moderate (estimate)",
			}, nil
		}
		return &Result{
			Status:       tools.StatusError,
			Error:        err.Error(),
			EstimatedAQI: "Moderate (fallback)",
		}, nil
	}

	var resp struct {
		Results []struct {
			Name        string          `json:"name"`
			Locality    string          `json:"locality"`
			Distance    float64         `json:"distance"`
			Coordinates json.RawMessage `json:"coordinates"`
			Sensors     json.RawMessage `json:"sensors"`
		} `json:"results"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return &Result{
			Status:       tools.StatusError,
			Error:        err.Error(),
			EstimatedAQI: "Moderate (fallback)",
		}, nil
	}

	if len(resp.Results) == 0 {
		return &Result{
			Status:       tools.StatusNoData,
			Note:         fmt.Sprintf("no air quality monitoring stations found within %dkm", searchRadius/1000),
			EstimatedAQI: "Moderate (no nearby stations)",
		}, nil
	}

	closest := resp.Results[0]
	res := &Result{
		Status: tools.StatusSuccess,
		Source: "OpenAQ API v3",
		ClosestStation: &Station{
			Name:        closest.Name,
			Locality:    closest.Locality,
			Distance:    formatDistance(closest.Distance),
			Coordinates: closest.Coordinates,
		},
		Sensors:             closest.Sensors,
		TotalStationsNearby: len(resp.Results),
	}
	for _, loc := range resp.Results {
		res.AllStations = append(res.AllStations, Station{
			Name:     loc.Name,
			Distance: formatDistance(loc.Distance),
		})
	}
	return res, nil
}

func formatDistance(meters float64) string {
	return fmt.Sprintf("%.1f km", meters/1000)
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
