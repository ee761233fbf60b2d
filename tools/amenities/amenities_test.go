package amenities_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/effective-security/neighborhood/tools"
	"github.com/effective-security/neighborhood/tools/amenities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Run_NoAPIKey(t *testing.T) {
	tl := amenities.New("")
	res, err := tl.Run(context.Background(), &amenities.Request{Lat: 30.6, Lon: -96.3})
	require.NoError(t, err)

	assert.Equal(t, tools.StatusNoAPIKey, res.Status)
	assert.Equal(t, "school", res.Type)
	assert.Contains(t, res.Note, "keys.google_maps")
}

func Test_Run_Success(t *testing.T) {
	h := func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/maps/api/place/nearbysearch/json", r.URL.Path)
		assert.Equal(t, "2000", r.URL.Query().Get("radius"))
		assert.Equal(t, "park", r.URL.Query().Get("type"))
		assert.Equal(t, "maps-key", r.URL.Query().Get("key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":[
			{"name":"Central Park","vicinity":"200 Oak St","rating":4.6,"types":["park","point_of_interest"]},
			{"name":"Riverside Trail","vicinity":"1 River Rd","rating":4.8,"types":["park"]}
		]}`))
	}
	server := httptest.NewServer(http.HandlerFunc(h))
	defer server.Close()

	tl := amenities.New("maps-key").WithBaseURL(server.URL)
	res, err := tl.Run(context.Background(), &amenities.Request{Lat: 30.6, Lon: -96.3, Type: "park"})
	require.NoError(t, err)

	assert.Equal(t, tools.StatusSuccess, res.Status)
	assert.Equal(t, 2, res.Total)
	require.Len(t, res.Places, 2)
	assert.Equal(t, "Central Park", res.Places[0].Name)
	assert.Equal(t, "200 Oak St", res.Places[0].Vicinity)
	assert.Equal(t, 4.6, res.Places[0].Rating)
	assert.Equal(t, []string{"park", "point_of_interest"}, res.Places[0].Types)
}

func Test_Run_Truncates(t *testing.T) {
	entries := make([]string, 0, 14)
	for i := 0; i < 14; i++ {
		entries = append(entries, fmt.Sprintf(`{"name":"School %d"}`, i))
	}
	h := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":[` + strings.Join(entries, ",") + `]}`))
	}
	server := httptest.NewServer(http.HandlerFunc(h))
	defer server.Close()

	tl := amenities.New("maps-key").WithBaseURL(server.URL)
	res, err := tl.Run(context.Background(), &amenities.Request{Lat: 30.6, Lon: -96.3})
	require.NoError(t, err)

	assert.Equal(t, 14, res.Total)
	assert.Len(t, res.Places, 10)
}

func Test_Run_APIError(t *testing.T) {
	h := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}
	server := httptest.NewServer(http.HandlerFunc(h))
	defer server.Close()

	tl := amenities.New("maps-key").WithBaseURL(server.URL)
	res, err := tl.Run(context.Background(), &amenities.Request{Lat: 30.6, Lon: -96.3})
	require.NoError(t, err)

	assert.Equal(t, tools.StatusAPIError, res.Status)
	assert.Equal(t, http.StatusForbidden, res.Code)
}

func Test_Call(t *testing.T) {
	tl := amenities.New("")
	out, err := tl.Call(context.Background(), `{"lat":30.6,"lon":-96.3,"type":"hospital"}`)
	require.NoError(t, err)
	assert.Contains(t, out, `"hospital"`)

	_, err = tl.Call(context.Background(), `[`)
	assert.EqualError(t, err, tools.ErrFailedUnmarshalInput.Error())
}
