package amenities

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

const ToolName = "amenities"

// DefaultBaseURL is the Google Maps web service root.
const DefaultBaseURL = "https://maps.googleapis.com"

// DefaultType is the place type searched when the request omits one.
const DefaultType = "school"

const searchRadius = 2000

// Request represents the tool input.
type Request struct {
	Lat  float64 `json:"lat" jsonschema:"title=Latitude,description=Latitude of the location."`
	Lon  float64 `json:"lon" jsonschema:"title=Longitude,description=Longitude of the location."`
	Type string  `json:"type,omitempty" jsonschema:"title=Type,description=Google Places type to search for. Defaults to school."`
}

// Place is one nearby amenity.
type Place struct {
	Name     string   `json:"name"`
	Vicinity string   `json:"vicinity,omitempty"`
	Rating   float64  `json:"rating,omitempty"`
	Types    []string `json:"types,omitempty"`
}

// Result is the amenity search outcome.
type Result struct {
	Status tools.Status `json:"status"`
	Source string       `json:"source,omitempty"`
	Type   string       `json:"type,omitempty"`
	Total  int          `json:"total_found"`
	Places []Place      `json:"places,omitempty"`
	Code   int          `json:"code,omitempty"`
	Note   string       `json:"note,omitempty"`
	Error  string       `json:"error,omitempty"`
}

// Tool finds nearby amenities of a given type via Google Places.
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
		description: "Find nearby amenities (schools, parks, hospitals) around a location.",
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
	placeType := req.Type
	if placeType == "" {
		placeType = DefaultType
	}

	if t.apiKey == "" {
		return &Result{
			Status: tools.StatusNoAPIKey,
			Type:   placeType,
			Note:   "configure keys.google_maps for amenity data",
		}, nil
	}

	params := url.Values{}
	params.Set("location", fmt.Sprintf("%v,%v", req.Lat, req.Lon))
	params.Set("radius", fmt.Sprintf("%d", searchRadius))
	params.Set("type", placeType)
	params.Set("key", t.apiKey)

	body, err := t.http.Get(ctx, t.baseURL+"/maps/api/place/nearbysearch/json", params, nil)
	if err != nil {
		if code := httpclient.StatusCode(err); code != 0 {
			return &Result{
				Status: tools.StatusAPIError,
				Type:   placeType,
				Code:   code,
				Error:  fmt.Sprintf("Places API returned %d", code),
			}, nil
		}
		return &Result{Status: tools.StatusError, Type: placeType, Error: err.Error()}, nil
	}

	results := gjson.GetBytes(body, "results").Array()
	res := &Result{
		Status: tools.StatusSuccess,
		Source: "Google Places",
		Type:   placeType,
		Total:  len(results),
	}
	if len(results) > 10 {
		results = results[:10]
	}
	for _, r := range results {
		place := Place{
			Name:     r.Get("name").String(),
			Vicinity: r.Get("vicinity").String(),
			Rating:   r.Get("rating").Float(),
		}
		for _, pt := range r.Get("types").Array() {
			place.Types = append(place.Types, pt.String())
		}
		res.Places = append(res.Places, place)
	}
	return res, nil
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
