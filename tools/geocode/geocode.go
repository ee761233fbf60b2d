package geocode

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
	"github.com/tidwall/gjson"
)

const ToolName = "geocode"

// DefaultBaseURL is the public Nominatim instance.
const DefaultBaseURL = "https://nominatim.openstreetmap.org"

// Nominatim requires an identifying User-Agent.
const userAgent = "neighborhood-intelligence/1.0"

// Request represents the tool input.
type Request struct {
	Address string `json:"address" jsonschema:"title=Address,description=Street address to convert to geographic coordinates."`
}

// Result is the resolved location.
type Result struct {
	Status  tools.Status `json:"status"`
	Lat     float64      `json:"lat,omitempty"`
	Lon     float64      `json:"lon,omitempty"`
	Display string       `json:"display,omitempty"`
	Error   string       `json:"error,omitempty"`
}

// OK reports whether the address was resolved.
func (r *Result) OK() bool {
	return r.Status == tools.StatusSuccess
}

// Place is a reverse-geocoded locality, used by the housing estimates.
type Place struct {
	City  string
	State string
}

// Tool converts addresses to coordinates via Nominatim.
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
		description: "Convert an address to geographic coordinates.",
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
	if req.Address == "" {
		return &Result{Status: tools.StatusNoData, Error: "empty address"}, nil
	}

	params := url.Values{}
	params.Set("q", req.Address)
	params.Set("format", "json")
	params.Set("limit", "1")

	body, err := t.http.Get(ctx, t.baseURL+"/search", params, map[string]string{
		"User-Agent": userAgent,
	})
	if err != nil {
		return &Result{Status: tools.StatusError, Error: err.Error()}, nil
	}

	var hits []struct {
		Lat         string `json:"lat"`
		Lon         string `json:"lon"`
		DisplayName string `json:"display_name"`
	}
	if err := json.Unmarshal(body, &hits); err != nil {
		return &Result{Status: tools.StatusError, Error: err.Error()}, nil
	}
	if len(hits) == 0 {
		return &Result{Status: tools.StatusNoData, Error: "address not found"}, nil
	}

	top := hits[0]
	lat, err := strconv.ParseFloat(top.Lat, 64)
	if err != nil {
		return &Result{Status: tools.StatusError, Error: err.Error()}, nil
	}
	lon, err := strconv.ParseFloat(top.Lon, 64)
	if err != nil {
		return &Result{Status: tools.StatusError, Error: err.Error()}, nil
	}

	return &Result{
		Status:  tools.StatusSuccess,
		Lat:     lat,
		Lon:     lon,
		Display: top.DisplayName,
	}, nil
}

// Reverse resolves coordinates to a locality.
func (t *Tool) Reverse(ctx context.Context, lat, lon float64) (*Place, error) {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	params.Set("format", "json")

	body, err := t.http.Get(ctx, t.baseURL+"/reverse", params, map[string]string{
		"User-Agent": userAgent,
	})
	if err != nil {
		return nil, err
	}

	addr := gjson.GetBytes(body, "address")
	p := &Place{
		City:  addr.Get("city").String(),
		State: addr.Get("state").String(),
	}
	if p.City == "" {
		p.City = "Unknown"
	}
	if p.State == "" {
		p.State = "Unknown"
	}
	return p, nil
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
