package walkability_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/effective-security/neighborhood/tools"
	"github.com/effective-security/neighborhood/tools/walkability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_OSMScore(t *testing.T) {
	// 40 + 15 + 12 + 5
	assert.Equal(t, 72, walkability.OSMScore(20, 10, 3, 5))
	assert.Equal(t, 0, walkability.OSMScore(0, 0, 0, 0))
	// all components capped: 40 + 25 + 20 + 15
	assert.Equal(t, 100, walkability.OSMScore(1000, 1000, 1000, 1000))
	// 1.5 shop weight truncates after summation: 2 + 4.5 -> 6
	assert.Equal(t, 6, walkability.OSMScore(1, 3, 0, 0))
}

func Test_Describe(t *testing.T) {
	tcases := []struct {
		score int
		exp   string
	}{
		{95, "Walker's Paradise - Daily errands do not require a car"},
		{90, "Walker's Paradise - Daily errands do not require a car"},
		{89, "Very Walkable - Most errands can be accomplished on foot"},
		{72, "Very Walkable - Most errands can be accomplished on foot"},
		{69, "Somewhat Walkable - Some errands can be accomplished on foot"},
		{50, "Somewhat Walkable - Some errands can be accomplished on foot"},
		{49, "Car-Dependent - Most errands require a car"},
		{25, "Car-Dependent - Most errands require a car"},
		{24, "Very Car-Dependent - Almost all errands require a car"},
		{0, "Very Car-Dependent - Almost all errands require a car"},
	}
	for _, tc := range tcases {
		assert.Equal(t, tc.exp, walkability.Describe(tc.score), "score=%d", tc.score)
	}
}

func Test_Run_WalkScoreAPI(t *testing.T) {
	h := func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/score", r.URL.Path)
		assert.Equal(t, "ws-key", r.URL.Query().Get("wsapikey"))
		assert.Equal(t, "1", r.URL.Query().Get("transit"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":1,"walkscore":73,"description":"Very Walkable","transit":{"score":45},"bike":{"score":60}}`))
	}
	server := httptest.NewServer(http.HandlerFunc(h))
	defer server.Close()

	tl := walkability.New("ws-key", "").WithWalkScoreBaseURL(server.URL)
	res, err := tl.Run(context.Background(), &walkability.Request{Lat: 30.6, Lon: -96.3, Address: "123 Main St"})
	require.NoError(t, err)

	assert.Equal(t, tools.StatusSuccess, res.Status)
	assert.Equal(t, "Walk Score API", res.Source)
	assert.Equal(t, 73, res.WalkScore)
	assert.Equal(t, "Very Walkable", res.WalkDescription)
	assert.Equal(t, 45, res.TransitScore)
	assert.Equal(t, 60, res.BikeScore)
}

func osmResponse(amenities, shops, transit, footways int) string {
	var sb strings.Builder
	sb.WriteString(`{"elements":[`)
	first := true
	add := func(tag string, n int) {
		for i := 0; i < n; i++ {
			if !first {
				sb.WriteString(",")
			}
			first = false
			sb.WriteString(`{"type":"node","tags":{` + tag + `}}`)
		}
	}
	add(`"amenity":"cafe"`, amenities)
	add(`"shop":"bakery"`, shops)
	add(`"public_transport":"platform"`, transit)
	add(`"highway":"footway"`, footways)
	sb.WriteString(`]}`)
	return sb.String()
}

func Test_Run_OSMFallback(t *testing.T) {
	h := func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/interpreter", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Contains(t, r.PostForm.Get("data"), `node["amenity"]`)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(osmResponse(20, 10, 3, 5)))
	}
	server := httptest.NewServer(http.HandlerFunc(h))
	defer server.Close()

	// unavailable Walk Score API falls through to the OSM calculation
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":40}`))
	}))
	defer down.Close()

	tl := walkability.New("ws-key", "").
		WithWalkScoreBaseURL(down.URL).
		WithOverpassBaseURL(server.URL)
	res, err := tl.Run(context.Background(), &walkability.Request{Lat: 30.6, Lon: -96.3})
	require.NoError(t, err)

	assert.Equal(t, tools.StatusSuccess, res.Status)
	assert.Equal(t, "OpenStreetMap Analysis", res.Source)
	assert.Equal(t, 72, res.WalkScore)
	assert.Equal(t, "Very Walkable - Most errands can be accomplished on foot", res.WalkDescription)
	require.NotNil(t, res.Breakdown)
	assert.Equal(t, 20, res.Breakdown.AmenitiesNearby)
	assert.Equal(t, 10, res.Breakdown.ShopsNearby)
	assert.Equal(t, 3, res.Breakdown.TransitStops)
	assert.Equal(t, 5, res.Breakdown.PedestrianInfrastructure)
}

func Test_Run_OSMUnavailable(t *testing.T) {
	tl := walkability.New("", "").WithOverpassBaseURL("http://127.0.0.1:1")
	res, err := tl.Run(context.Background(), &walkability.Request{Lat: 30.6, Lon: -96.3})
	require.NoError(t, err)

	assert.Equal(t, tools.StatusEstimated, res.Status)
	assert.Equal(t, 50, res.WalkScore)
	assert.Equal(t, "Unable to calculate precisely", res.WalkDescription)
	assert.NotEmpty(t, res.Error)
}

func Test_Run_Combined(t *testing.T) {
	overpass := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(osmResponse(20, 10, 3, 5)))
	}))
	defer overpass.Close()

	// two results per place type, nine types -> 18 places, score 54
	places := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "800", r.URL.Query().Get("radius"))
		assert.Equal(t, "maps-key", r.URL.Query().Get("key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":[{"name":"a"},{"name":"b"}]}`))
	}))
	defer places.Close()

	tl := walkability.New("", "maps-key").
		WithOverpassBaseURL(overpass.URL).
		WithPlacesBaseURL(places.URL)
	res, err := tl.Run(context.Background(), &walkability.Request{Lat: 30.6, Lon: -96.3})
	require.NoError(t, err)

	assert.Equal(t, tools.StatusCalculated, res.Status)
	assert.Equal(t, (72+54)/2, res.WalkScore)
	assert.Equal(t, []string{"OpenStreetMap", "Google Places"}, res.SourcesUsed)
	assert.Equal(t, map[string]int{"OpenStreetMap": 72, "Google Places": 54}, res.Individual)
}

func Test_Run_CombinedPlacesDown(t *testing.T) {
	overpass := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(osmResponse(20, 10, 3, 5)))
	}))
	defer overpass.Close()

	places := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer places.Close()

	tl := walkability.New("", "maps-key").
		WithOverpassBaseURL(overpass.URL).
		WithPlacesBaseURL(places.URL)
	res, err := tl.Run(context.Background(), &walkability.Request{Lat: 30.6, Lon: -96.3})
	require.NoError(t, err)

	// the surviving OSM score is still reported as a calculated result
	assert.Equal(t, tools.StatusCalculated, res.Status)
	assert.Equal(t, 72, res.WalkScore)
	assert.Equal(t, []string{"OpenStreetMap"}, res.SourcesUsed)
	assert.Equal(t, map[string]int{"OpenStreetMap": 72}, res.Individual)
}

func Test_Call(t *testing.T) {
	tl := walkability.New("", "").WithOverpassBaseURL("http://127.0.0.1:1")
	out, err := tl.Call(context.Background(), `{"lat":30.6,"lon":-96.3}`)
	require.NoError(t, err)
	assert.Contains(t, out, `"estimated"`)

	_, err = tl.Call(context.Background(), `???`)
	assert.EqualError(t, err, tools.ErrFailedUnmarshalInput.Error())
}
