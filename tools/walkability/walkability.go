package walkability

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"time"

	"github.com/effective-security/neighborhood/httpclient"
	"github.com/effective-security/neighborhood/schema"
	"github.com/effective-security/neighborhood/tools"
	"github.com/effective-security/neighborhood/utils"
	"github.com/effective-security/xlog"
	"github.com/tidwall/gjson"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/neighborhood", "walkability")

const ToolName = "walkability"

const (
	// DefaultWalkScoreBaseURL is the official Walk Score API.
	DefaultWalkScoreBaseURL = "https://api.walkscore.com"
	// DefaultOverpassBaseURL is the public Overpass API instance.
	DefaultOverpassBaseURL = "https://overpass-api.de"
	// DefaultPlacesBaseURL is the Google Maps web service root.
	DefaultPlacesBaseURL = "https://maps.googleapis.com"
)

// Overpass queries over a 1km radius can be slow.
const overpassTimeout = 30 * time.Second

// placeTypes are the infrastructure categories sampled for the Google
// Places score.
var placeTypes = []string{
	"restaurant", "grocery_or_supermarket", "cafe",
	"pharmacy", "bank", "library", "park",
	"transit_station", "bus_station",
}

// Request represents the tool input.
type Request struct {
	Lat     float64 `json:"lat" jsonschema:"title=Latitude,description=Latitude of the location."`
	Lon     float64 `json:"lon" jsonschema:"title=Longitude,description=Longitude of the location."`
	Address string  `json:"address,omitempty" jsonschema:"title=Address,description=Street address, used by the Walk Score API."`
}

// Breakdown itemizes the OpenStreetMap feature counts behind a score.
type Breakdown struct {
	AmenitiesNearby          int `json:"amenities_nearby"`
	ShopsNearby              int `json:"shops_nearby"`
	TransitStops             int `json:"transit_stops"`
	PedestrianInfrastructure int `json:"pedestrian_infrastructure"`
}

// Result is the walkability outcome from whichever method answered.
type Result struct {
	Status          tools.Status   `json:"status"`
	Source          string         `json:"source,omitempty"`
	WalkScore       int            `json:"walk_score"`
	WalkDescription string         `json:"walk_description,omitempty"`
	TransitScore    int            `json:"transit_score,omitempty"`
	BikeScore       int            `json:"bike_score,omitempty"`
	Breakdown       *Breakdown     `json:"breakdown,omitempty"`
	PlacesWithin800 int            `json:"places_within_800m,omitempty"`
	SourcesUsed     []string       `json:"sources_used,omitempty"`
	Individual      map[string]int `json:"individual_scores,omitempty"`
	Message         string         `json:"message,omitempty"`
	Error           string         `json:"error,omitempty"`
}

// Describe maps a 0-100 walk score onto the standard description bands.
func Describe(score int) string {
	switch {
	case score >= 90:
		return "Walker's Paradise - Daily errands do not require a car"
	case score >= 70:
		return "Very Walkable - Most errands can be accomplished on foot"
	case score >= 50:
		return "Somewhat Walkable - Some errands can be accomplished on foot"
	case score >= 25:
		return "Car-Dependent - Most errands require a car"
	default:
		return "Very Car-Dependent - Almost all errands require a car"
	}
}

// OSMScore computes the walkability score from OpenStreetMap feature
// counts. Weights are fixed; the result is truncated and clamped to
// [0, 100].
func OSMScore(amenities, shops, transit, footways int) int {
	score := minF(40, float64(amenities)*2) +
		minF(25, float64(shops)*1.5) +
		minF(20, float64(transit)*4) +
		minF(15, float64(footways))
	total := int(score)
	if total < 0 {
		total = 0
	}
	if total > 100 {
		total = 100
	}
	return total
}

func minF(limit, v float64) float64 {
	if v < limit {
		return v
	}
	return limit
}

// Tool scores walkability using the Walk Score API when a key is
// configured, falling back to an OpenStreetMap calculation, optionally
// combined with a Google Places infrastructure count.
type Tool struct {
	name        string
	description string

	walkScoreKey string
	mapsKey      string

	walkScoreBaseURL string
	overpassBaseURL  string
	placesBaseURL    string
	http             *httpclient.Client
	overpass         *httpclient.Client
}

var _ tools.Tool[Request, Result] = (*Tool)(nil)

func New(walkScoreKey, mapsKey string) *Tool {
	return &Tool{
		name:             ToolName,
		description:      "Calculate a walkability score for a location.",
		walkScoreKey:     walkScoreKey,
		mapsKey:          mapsKey,
		walkScoreBaseURL: DefaultWalkScoreBaseURL,
		overpassBaseURL:  DefaultOverpassBaseURL,
		placesBaseURL:    DefaultPlacesBaseURL,
		http:             httpclient.New(),
		overpass:         httpclient.New(httpclient.WithTimeout(overpassTimeout)),
	}
}

func (t *Tool) WithWalkScoreBaseURL(baseURL string) *Tool {
	t.walkScoreBaseURL = baseURL
	return t
}

func (t *Tool) WithOverpassBaseURL(baseURL string) *Tool {
	t.overpassBaseURL = baseURL
	return t
}

func (t *Tool) WithPlacesBaseURL(baseURL string) *Tool {
	t.placesBaseURL = baseURL
	return t
}

func (t *Tool) WithHTTPClient(d httpclient.Doer) *Tool {
	t.http = httpclient.New(httpclient.WithDoer(d))
	t.overpass = httpclient.New(httpclient.WithDoer(d))
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
	if t.walkScoreKey != "" {
		if res := t.fromWalkScore(ctx, req); res.Status == tools.StatusSuccess {
			return res, nil
		}
	}

	osm := t.fromOSM(ctx, req.Lat, req.Lon)
	if t.mapsKey != "" {
		infra := t.fromPlaces(ctx, req.Lat, req.Lon)
		return combine(osm, infra), nil
	}
	return osm, nil
}

func (t *Tool) fromWalkScore(ctx context.Context, req *Request) *Result {
	params := url.Values{}
	params.Set("format", "json")
	params.Set("lat", strconv.FormatFloat(req.Lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(req.Lon, 'f', -1, 64))
	params.Set("address", req.Address)
	params.Set("transit", "1")
	params.Set("bike", "1")
	params.Set("wsapikey", t.walkScoreKey)

	body, err := t.http.Get(ctx, t.walkScoreBaseURL+"/score", params, nil)
	if err != nil {
		logger.ContextKV(ctx, xlog.DEBUG, "provider", "walkscore", "err", err.Error())
		return &Result{Status: tools.StatusError, Error: err.Error()}
	}

	data := gjson.ParseBytes(body)
	// Walk Score signals availability through its own status field;
	// anything other than 1 means no score for this location.
	if data.Get("status").Int() != 1 {
		return &Result{
			Status: tools.StatusError,
			Error:  fmt.Sprintf("Walk Score API status %d", data.Get("status").Int()),
		}
	}
	return &Result{
		Status:          tools.StatusSuccess,
		Source:          "Walk Score API",
		WalkScore:       int(data.Get("walkscore").Int()),
		WalkDescription: data.Get("description").String(),
		TransitScore:    int(data.Get("transit.score").Int()),
		BikeScore:       int(data.Get("bike.score").Int()),
	}
}

func (t *Tool) fromOSM(ctx context.Context, lat, lon float64) *Result {
	query := fmt.Sprintf(`
[out:json][timeout:25];
(
  node["amenity"](around:1000,%[1]f,%[2]f);
  way["amenity"](around:1000,%[1]f,%[2]f);
  node["shop"](around:1000,%[1]f,%[2]f);
  way["shop"](around:1000,%[1]f,%[2]f);
  node["public_transport"](around:1000,%[1]f,%[2]f);
  way["highway"="footway"](around:1000,%[1]f,%[2]f);
  way["highway"="pedestrian"](around:1000,%[1]f,%[2]f);
);
out tags;
`, lat, lon)

	form := url.Values{}
	form.Set("data", query)

	body, err := t.overpass.PostForm(ctx, t.overpassBaseURL+"/api/interpreter", form, nil)
	if err != nil {
		return &Result{
			Status:          tools.StatusEstimated,
			WalkScore:       50,
			WalkDescription: "Unable to calculate precisely",
			Error:           err.Error(),
		}
	}

	var bd Breakdown
	for _, e := range gjson.GetBytes(body, "elements").Array() {
		tags := e.Get("tags")
		switch {
		case tags.Get("amenity").Exists():
			bd.AmenitiesNearby++
		case tags.Get("shop").Exists():
			bd.ShopsNearby++
		case tags.Get("public_transport").Exists():
			bd.TransitStops++
		case tags.Get("highway").String() == "footway" || tags.Get("highway").String() == "pedestrian":
			bd.PedestrianInfrastructure++
		}
	}

	score := OSMScore(bd.AmenitiesNearby, bd.ShopsNearby, bd.TransitStops, bd.PedestrianInfrastructure)
	return &Result{
		Status:          tools.StatusSuccess,
		Source:          "OpenStreetMap Analysis",
		WalkScore:       score,
		WalkDescription: Describe(score),
		Breakdown:       &bd,
	}
}

func (t *Tool) fromPlaces(ctx context.Context, lat, lon float64) *Result {
	total := 0
	for _, placeType := range placeTypes {
		params := url.Values{}
		params.Set("location", fmt.Sprintf("%v,%v", lat, lon))
		params.Set("radius", "800")
		params.Set("type", placeType)
		params.Set("key", t.mapsKey)

		body, err := t.http.Get(ctx, t.placesBaseURL+"/maps/api/place/nearbysearch/json", params, nil)
		if err != nil {
			return &Result{Status: tools.StatusError, Error: err.Error()}
		}
		total += len(gjson.GetBytes(body, "results").Array())
	}

	score := total * 3
	if score > 100 {
		score = 100
	}
	return &Result{
		Status:          tools.StatusSuccess,
		Source:          "Google Places Analysis",
		WalkScore:       score,
		WalkDescription: Describe(score),
		PlacesWithin800: total,
	}
}

// combine averages the scores of the methods that succeeded. A single
// surviving method still reports as calculated, naming its source.
func combine(osm, infra *Result) *Result {
	var scores []int
	var sources []string
	if osm.Status == tools.StatusSuccess {
		scores = append(scores, osm.WalkScore)
		sources = append(sources, "OpenStreetMap")
	}
	if infra.Status == tools.StatusSuccess {
		scores = append(scores, infra.WalkScore)
		sources = append(sources, "Google Places")
	}
	if len(scores) == 0 {
		return osm
	}

	sum := 0
	for _, s := range scores {
		sum += s
	}
	avg := sum / len(scores)

	individual := make(map[string]int, len(scores))
	for i, src := range sources {
		individual[src] = scores[i]
	}
	return &Result{
		Status:          tools.StatusCalculated,
		WalkScore:       avg,
		WalkDescription: Describe(avg),
		SourcesUsed:     sources,
		Individual:      individual,
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
