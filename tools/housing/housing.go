package housing

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"reflect"
	"strconv"

	"github.com/effective-security/neighborhood/httpclient"
	"github.com/effective-security/neighborhood/schema"
	"github.com/effective-security/neighborhood/tools"
	"github.com/effective-security/neighborhood/tools/geocode"
	"github.com/effective-security/neighborhood/utils"
	"github.com/effective-security/xlog"
	"github.com/tidwall/gjson"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/neighborhood", "housing")

const ToolName = "housing"

const (
	// DefaultZillowBaseURL is the Zillow aggregator behind RapidAPI.
	DefaultZillowBaseURL = "https://zillow-com1.p.rapidapi.com"
	// DefaultRealtyMoleBaseURL is the Realty Mole aggregator behind RapidAPI.
	DefaultRealtyMoleBaseURL = "https://realty-mole-property-api.p.rapidapi.com"
	// DefaultAttomBaseURL is the ATTOM property API gateway.
	DefaultAttomBaseURL = "https://api.gateway.attomdata.com"
)

const (
	zillowHost     = "zillow-com1.p.rapidapi.com"
	realtyMoleHost = "realty-mole-property-api.p.rapidapi.com"
)

// regionalEstimate is the last-resort price table keyed by city.
type regionalEstimate struct {
	Price int
	Rent  int
}

var regionalEstimates = map[string]regionalEstimate{
	"College Station": {Price: 285000, Rent: 1200},
	"Bryan":           {Price: 210000, Rent: 950},
	"Austin":          {Price: 550000, Rent: 1850},
	"Houston":         {Price: 325000, Rent: 1400},
	"Dallas":          {Price: 375000, Rent: 1600},
}

var defaultEstimate = regionalEstimate{Price: 300000, Rent: 1300}

// ReverseGeocoder resolves coordinates to a city and state for the
// regional estimate fallback.
type ReverseGeocoder interface {
	Reverse(ctx context.Context, lat, lon float64) (*geocode.Place, error)
}

// Request represents the tool input.
type Request struct {
	Lat     float64 `json:"lat" jsonschema:"title=Latitude,description=Latitude of the location."`
	Lon     float64 `json:"lon" jsonschema:"title=Longitude,description=Longitude of the location."`
	Address string  `json:"address,omitempty" jsonschema:"title=Address,description=Street address used by listing-based providers."`
}

// SampleProperty is one listing in the Zillow sample.
type SampleProperty struct {
	Address   string  `json:"address,omitempty"`
	Price     float64 `json:"price,omitempty"`
	Bedrooms  float64 `json:"bedrooms,omitempty"`
	Bathrooms float64 `json:"bathrooms,omitempty"`
	Area      float64 `json:"area,omitempty"`
}

// Result is the housing data outcome. Fields are populated according
// to which provider answered.
type Result struct {
	Status tools.Status `json:"status"`
	Source string       `json:"source,omitempty"`

	MedianHomePrice    string           `json:"median_home_price,omitempty"`
	PriceRange         string           `json:"price_range,omitempty"`
	PropertiesAnalyzed int              `json:"properties_analyzed,omitempty"`
	SampleProperties   []SampleProperty `json:"sample_properties,omitempty"`

	PropertyType string  `json:"property_type,omitempty"`
	Bedrooms     float64 `json:"bedrooms,omitempty"`
	Bathrooms    float64 `json:"bathrooms,omitempty"`
	SquareFeet   float64 `json:"square_feet,omitempty"`
	YearBuilt    int     `json:"year_built,omitempty"`
	MedianRent   string  `json:"median_rent,omitempty"`

	PropertiesFound int               `json:"properties_found,omitempty"`
	Data            []json.RawMessage `json:"data,omitempty"`

	Location string `json:"location,omitempty"`
	Note     string `json:"note,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Tool resolves housing data through a chain of providers, falling
// back to regional estimates when none of them answers.
type Tool struct {
	name        string
	description string

	rapidAPIKey string
	attomKey    string
	geo         ReverseGeocoder

	zillowBaseURL string
	realtyBaseURL string
	attomBaseURL  string
	http          *httpclient.Client
}

var _ tools.Tool[Request, Result] = (*Tool)(nil)

func New(rapidAPIKey, attomKey string, geo ReverseGeocoder) *Tool {
	return &Tool{
		name:          ToolName,
		description:   "Get housing market data for a location, with regional estimates as fallback.",
		rapidAPIKey:   rapidAPIKey,
		attomKey:      attomKey,
		geo:           geo,
		zillowBaseURL: DefaultZillowBaseURL,
		realtyBaseURL: DefaultRealtyMoleBaseURL,
		attomBaseURL:  DefaultAttomBaseURL,
		http:          httpclient.New(),
	}
}

func (t *Tool) WithZillowBaseURL(baseURL string) *Tool {
	t.zillowBaseURL = baseURL
	return t
}

func (t *Tool) WithRealtyMoleBaseURL(baseURL string) *Tool {
	t.realtyBaseURL = baseURL
	return t
}

func (t *Tool) WithAttomBaseURL(baseURL string) *Tool {
	t.attomBaseURL = baseURL
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

// Run walks the provider chain in priority order. Key presence gates
// attempts; a failed attempt falls through to the next tier.
func (t *Tool) Run(ctx context.Context, req *Request) (*Result, error) {
	if t.rapidAPIKey != "" {
		if res := t.fromZillow(ctx, req.Address); res.Status == tools.StatusSuccess {
			return res, nil
		}
		if res := t.fromRealtyMole(ctx, req.Address); res.Status == tools.StatusSuccess {
			return res, nil
		}
	}
	if t.attomKey != "" {
		if res := t.fromAttom(ctx, req.Lat, req.Lon); res.Status == tools.StatusSuccess {
			return res, nil
		}
	}
	return t.estimate(ctx, req.Lat, req.Lon), nil
}

func (t *Tool) fromZillow(ctx context.Context, address string) *Result {
	params := url.Values{}
	params.Set("location", address)
	params.Set("status_type", "ForSale")

	body, err := t.http.Get(ctx, t.zillowBaseURL+"/propertyExtendedSearch", params, map[string]string{
		"X-RapidAPI-Key":  t.rapidAPIKey,
		"X-RapidAPI-Host": zillowHost,
	})
	if err != nil {
		logger.ContextKV(ctx, xlog.DEBUG, "provider", "zillow", "err", err.Error())
		return &Result{Status: tools.StatusError, Error: err.Error()}
	}

	parsed := gjson.ParseBytes(body)
	listings := parsed
	if !listings.IsArray() {
		listings = parsed.Get("props")
	}
	if !listings.IsArray() || len(listings.Array()) == 0 {
		return &Result{Status: tools.StatusNoData, Error: "no listings found"}
	}

	properties := listings.Array()
	if len(properties) > 5 {
		properties = properties[:5]
	}

	var prices []float64
	for _, p := range properties {
		if price := p.Get("price").Float(); price > 0 {
			prices = append(prices, price)
		}
	}
	if len(prices) == 0 {
		return &Result{Status: tools.StatusNoData, Error: "no priced listings found"}
	}

	var sum, minPrice, maxPrice float64
	minPrice = prices[0]
	maxPrice = prices[0]
	for _, price := range prices {
		sum += price
		minPrice = math.Min(minPrice, price)
		maxPrice = math.Max(maxPrice, price)
	}

	res := &Result{
		Status:             tools.StatusSuccess,
		Source:             "Zillow API via RapidAPI",
		MedianHomePrice:    formatUSD(sum / float64(len(prices))),
		PriceRange:         formatUSD(minPrice) + " - " + formatUSD(maxPrice),
		PropertiesAnalyzed: len(properties),
	}
	samples := properties
	if len(samples) > 3 {
		samples = samples[:3]
	}
	for _, p := range samples {
		res.SampleProperties = append(res.SampleProperties, SampleProperty{
			Address:   p.Get("address").String(),
			Price:     p.Get("price").Float(),
			Bedrooms:  p.Get("bedrooms").Float(),
			Bathrooms: p.Get("bathrooms").Float(),
			Area:      p.Get("livingArea").Float(),
		})
	}
	return res
}

func (t *Tool) fromRealtyMole(ctx context.Context, address string) *Result {
	params := url.Values{}
	params.Set("address", address)

	body, err := t.http.Get(ctx, t.realtyBaseURL+"/properties", params, map[string]string{
		"X-RapidAPI-Key":  t.rapidAPIKey,
		"X-RapidAPI-Host": realtyMoleHost,
	})
	if err != nil {
		logger.ContextKV(ctx, xlog.DEBUG, "provider", "realtymole", "err", err.Error())
		return &Result{Status: tools.StatusError, Error: err.Error()}
	}

	record := gjson.ParseBytes(body)
	if record.IsArray() {
		items := record.Array()
		if len(items) == 0 {
			return &Result{Status: tools.StatusNoData, Error: "no property record found"}
		}
		record = items[0]
	}

	assessed := record.Get("assessedValue").Float()
	return &Result{
		Status:          tools.StatusSuccess,
		Source:          "Realty Mole API",
		MedianHomePrice: formatUSD(assessed),
		PropertyType:    record.Get("propertyType").String(),
		Bedrooms:        record.Get("bedrooms").Float(),
		Bathrooms:       record.Get("bathrooms").Float(),
		SquareFeet:      record.Get("squareFootage").Float(),
		YearBuilt:       int(record.Get("yearBuilt").Int()),
		// Rough monthly rent heuristic: 0.5% of assessed value.
		MedianRent: fmt.Sprintf("Estimated %s/mo", formatUSD(assessed*0.005)),
	}
}

func (t *Tool) fromAttom(ctx context.Context, lat, lon float64) *Result {
	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	params.Set("radius", "1.0")

	body, err := t.http.Get(ctx, t.attomBaseURL+"/propertyapi/v1.0.0/property/snapshot", params, map[string]string{
		"accept": "application/json",
		"apikey": t.attomKey,
	})
	if err != nil {
		logger.ContextKV(ctx, xlog.DEBUG, "provider", "attom", "err", err.Error())
		return &Result{Status: tools.StatusError, Error: err.Error()}
	}

	properties := gjson.GetBytes(body, "property").Array()
	if len(properties) == 0 {
		return &Result{Status: tools.StatusNoData, Error: "no properties found"}
	}

	res := &Result{
		Status:          tools.StatusSuccess,
		Source:          "ATTOM Property API",
		PropertiesFound: len(properties),
	}
	if len(properties) > 5 {
		properties = properties[:5]
	}
	for _, p := range properties {
		res.Data = append(res.Data, json.RawMessage(p.Raw))
	}
	return res
}

func (t *Tool) estimate(ctx context.Context, lat, lon float64) *Result {
	place, err := t.geo.Reverse(ctx, lat, lon)
	if err != nil {
		return &Result{
			Status:          tools.StatusError,
			Error:           err.Error(),
			MedianHomePrice: formatUSD(float64(defaultEstimate.Price)) + " (estimate)",
			MedianRent:      formatUSD(float64(defaultEstimate.Rent)) + "/mo (estimate)",
		}
	}

	est, ok := regionalEstimates[place.City]
	if !ok {
		est = defaultEstimate
	}
	return &Result{
		Status:          tools.StatusEstimated,
		Source:          "Regional averages",
		Location:        place.City + ", " + place.State,
		MedianHomePrice: formatUSD(float64(est.Price)),
		MedianRent:      formatUSD(float64(est.Rent)) + "/mo",
		Note:            "configure keys.rapid_api or keys.attom for real-time data",
	}
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

// formatUSD renders a dollar amount with thousands separators and no
// fractional part, e.g. 285000 -> "$285,000".
func formatUSD(v float64) string {
	n := int64(math.Round(v))
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}
	s := strconv.FormatInt(n, 10)
	var out []byte
	for i, d := range []byte(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, d)
	}
	return sign + "$" + string(out)
}
