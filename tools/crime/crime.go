package crime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"time"

	"github.com/effective-security/neighborhood/httpclient"
	"github.com/effective-security/neighborhood/schema"
	"github.com/effective-security/neighborhood/tools"
	"github.com/effective-security/neighborhood/utils"
	"github.com/tidwall/gjson"
)

const ToolName = "crime_data"

// DefaultBaseURL is the jgentes-crime-data API behind RapidAPI.
const DefaultBaseURL = "https://jgentes-crime-data-v1.p.rapidapi.com"

const rapidAPIHost = "jgentes-Crime-Data-v1.p.rapidapi.com"

// The crime API is slower than the rest; give it more headroom.
const requestTimeout = 15 * time.Second

const (
	// DefaultStartDate and DefaultEndDate select the 2024 reporting year.
	DefaultStartDate = "1/1/2024"
	DefaultEndDate   = "12/31/2024"
)

const (
	maxBreakdown = 10
	maxTop       = 3
	maxSamples   = 5
)

// Request represents the tool input. Dates are M/D/YYYY.
type Request struct {
	Lat       float64 `json:"lat" jsonschema:"title=Latitude,description=Latitude of the location."`
	Lon       float64 `json:"lon" jsonschema:"title=Longitude,description=Longitude of the location."`
	StartDate string  `json:"start_date,omitempty" jsonschema:"title=Start Date,description=Start date (M/D/YYYY). Defaults to 1/1/2024."`
	EndDate   string  `json:"end_date,omitempty" jsonschema:"title=End Date,description=End date (M/D/YYYY). Defaults to 12/31/2024."`
}

// CategoryCount is one incident category with its frequency.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// Result is the crime statistics outcome.
type Result struct {
	Status               tools.Status      `json:"status"`
	Source               string            `json:"source,omitempty"`
	DateRange            string            `json:"date_range,omitempty"`
	TotalIncidents       int               `json:"total_incidents"`
	SafetyScore          string            `json:"safety_score,omitempty"`
	CrimeBreakdown       []CategoryCount   `json:"crime_breakdown,omitempty"`
	Top3Crimes           []CategoryCount   `json:"top_3_crimes,omitempty"`
	SampleIncidents      []json.RawMessage `json:"sample_incidents,omitempty"`
	Message              string            `json:"message,omitempty"`
	EstimatedSafetyScore string            `json:"estimated_safety_score,omitempty"`
	Code                 int               `json:"code,omitempty"`
	Note                 string            `json:"note,omitempty"`
	Error                string            `json:"error,omitempty"`
}

// SafetyTier derives the discrete safety score from the total incident
// count. The thresholds are intentionally kept as-is from the upstream
// heuristic; do not "improve" them.
func SafetyTier(total int) string {
	switch {
	case total < 50:
		return "9/10 (Very Safe)"
	case total < 150:
		return "8/10 (Safe)"
	case total < 300:
		return "7/10 (Moderately Safe)"
	case total < 500:
		return "6/10 (Average)"
	case total < 800:
		return "5/10 (Below Average)"
	default:
		return "4/10 (High Crime Area)"
	}
}

// Tool fetches crime statistics for coordinates and a date range.
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
		description: "Get crime statistics for coordinates (2024 data by default).",
		apiKey:      apiKey,
		baseURL:     DefaultBaseURL,
		http:        httpclient.New(httpclient.WithTimeout(requestTimeout)),
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
			Status:               tools.StatusNoAPIKey,
			EstimatedSafetyScore: "7/10 (estimate)",
			Note:                 "configure keys.rapid_api for live crime data",
		}, nil
	}

	start := req.StartDate
	if start == "" {
		start = DefaultStartDate
	}
	end := req.EndDate
	if end == "" {
		end = DefaultEndDate
	}
	dateRange := start + " to " + end

	params := url.Values{}
	params.Set("startdate", start)
	params.Set("enddate", end)
	params.Set("long", strconv.FormatFloat(req.Lon, 'f', -1, 64))
	params.Set("lat", strconv.FormatFloat(req.Lat, 'f', -1, 64))

	body, err := t.http.Get(ctx, t.baseURL+"/crime", params, map[string]string{
		"x-rapidapi-key":  t.apiKey,
		"x-rapidapi-host": rapidAPIHost,
	})
	if err != nil {
		if code := httpclient.StatusCode(err); code != 0 {
			return &Result{
				Status:               tools.StatusAPIError,
				Code:                 code,
				Error:                fmt.Sprintf("crime API returned %d", code),
				Note:                 "this location may not be covered by the crime database",
				EstimatedSafetyScore: "7/10 (fallback)",
			}, nil
		}
		return &Result{
			Status:               tools.StatusError,
			Error:                err.Error(),
			EstimatedSafetyScore: "7/10 (fallback)",
		}, nil
	}

	parsed := gjson.ParseBytes(body)
	if !parsed.IsArray() {
		return &Result{
			Status:               tools.StatusError,
			Error:                "unexpected data format from API",
			EstimatedSafetyScore: "7/10 (fallback)",
		}, nil
	}

	incidents := parsed.Array()
	if len(incidents) == 0 {
		// An explicit empty result is a real answer, not missing data.
		return &Result{
			Status:         tools.StatusSuccess,
			Source:         "RapidAPI jgentes-crime-data",
			DateRange:      dateRange,
			TotalIncidents: 0,
			SafetyScore:    "10/10 (No Reported Crimes)",
			Message:        "no crime incidents reported for this location and time period",
		}, nil
	}

	counts := make(map[string]int)
	for _, incident := range incidents {
		category := incident.Get("category").String()
		if category == "" {
			category = "Unknown"
		}
		counts[category]++
	}

	sorted := make([]CategoryCount, 0, len(counts))
	for category, count := range counts {
		sorted = append(sorted, CategoryCount{Category: category, Count: count})
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Count != sorted[j].Count {
			return sorted[i].Count > sorted[j].Count
		}
		return sorted[i].Category < sorted[j].Category
	})

	res := &Result{
		Status:         tools.StatusSuccess,
		Source:         "RapidAPI jgentes-crime-data",
		DateRange:      dateRange,
		TotalIncidents: len(incidents),
		SafetyScore:    SafetyTier(len(incidents)),
		CrimeBreakdown: firstN(sorted, maxBreakdown),
		Top3Crimes:     firstN(sorted, maxTop),
	}
	for _, incident := range firstNResults(incidents, maxSamples) {
		res.SampleIncidents = append(res.SampleIncidents, json.RawMessage(incident.Raw))
	}
	return res, nil
}

func firstN(list []CategoryCount, n int) []CategoryCount {
	if len(list) > n {
		list = list[:n]
	}
	return list
}

func firstNResults(list []gjson.Result, n int) []gjson.Result {
	if len(list) > n {
		list = list[:n]
	}
	return list
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
