package commute

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"reflect"

	"github.com/effective-security/neighborhood/httpclient"
	"github.com/effective-security/neighborhood/schema"
	"github.com/effective-security/neighborhood/tools"
	"github.com/effective-security/neighborhood/utils"
	"github.com/tidwall/gjson"
)

const ToolName = "commute"

// DefaultBaseURL is the Google Maps web service root.
const DefaultBaseURL = "https://maps.googleapis.com"

// DefaultDestination is used when the request does not name one.
const DefaultDestination = "Texas A&M University, College Station"

// Request represents the tool input.
type Request struct {
	Lat         float64 `json:"lat" jsonschema:"title=Latitude,description=Latitude of the origin."`
	Lon         float64 `json:"lon" jsonschema:"title=Longitude,description=Longitude of the origin."`
	Destination string  `json:"destination,omitempty" jsonschema:"title=Destination,description=Destination address. Defaults to Texas A&M University."`
}

// Result is the commute estimate outcome.
type Result struct {
	Status        tools.Status `json:"status"`
	Source        string       `json:"source,omitempty"`
	Destination   string       `json:"destination,omitempty"`
	Mode          string       `json:"mode,omitempty"`
	Duration      string       `json:"duration,omitempty"`
	Distance      string       `json:"distance,omitempty"`
	EstimatedTime string       `json:"estimated_time,omitempty"`
	Code          int          `json:"code,omitempty"`
	Note          string       `json:"note,omitempty"`
	Error         string       `json:"error,omitempty"`
}

// Tool estimates driving commute time via the Distance Matrix API.
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
		description: "Calculate driving commute time from a location to a destination.",
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
	dest := req.Destination
	if dest == "" {
		dest = DefaultDestination
	}

	if t.apiKey == "" {
		return &Result{
			Status:        tools.StatusNoAPIKey,
			Destination:   dest,
			EstimatedTime: "15-25 minutes",
			Note:          "configure keys.google_maps for accurate commute data",
		}, nil
	}

	params := url.Values{}
	params.Set("origins", fmt.Sprintf("%v,%v", req.Lat, req.Lon))
	params.Set("destinations", dest)
	params.Set("mode", "driving")
	params.Set("key", t.apiKey)

	body, err := t.http.Get(ctx, t.baseURL+"/maps/api/distancematrix/json", params, nil)
	if err != nil {
		if code := httpclient.StatusCode(err); code != 0 {
			return &Result{
				Status:      tools.StatusAPIError,
				Destination: dest,
				Code:        code,
				Error:       fmt.Sprintf("Distance Matrix API returned %d", code),
			}, nil
		}
		return &Result{Status: tools.StatusError, Destination: dest, Error: err.Error()}, nil
	}

	element := gjson.GetBytes(body, "rows.0.elements.0")
	if element.Get("status").String() != "OK" {
		return &Result{
			Status:      tools.StatusNoData,
			Destination: dest,
			Error:       "no route found to destination",
		}, nil
	}
	return &Result{
		Status:      tools.StatusSuccess,
		Source:      "Google Distance Matrix",
		Destination: dest,
		Mode:        "driving",
		Duration:    element.Get("duration.text").String(),
		Distance:    element.Get("distance.text").String(),
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
