package commute_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/effective-security/neighborhood/tools"
	"github.com/effective-security/neighborhood/tools/commute"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Run_NoAPIKey(t *testing.T) {
	tl := commute.New("")
	res, err := tl.Run(context.Background(), &commute.Request{Lat: 30.6, Lon: -96.3})
	require.NoError(t, err)

	assert.Equal(t, tools.StatusNoAPIKey, res.Status)
	assert.Equal(t, commute.DefaultDestination, res.Destination)
	assert.Equal(t, "15-25 minutes", res.EstimatedTime)
	assert.Contains(t, res.Note, "keys.google_maps")
}

func Test_Run_Success(t *testing.T) {
	h := func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/maps/api/distancematrix/json", r.URL.Path)
		assert.Equal(t, "30.6,-96.3", r.URL.Query().Get("origins"))
		assert.Equal(t, "Downtown Bryan", r.URL.Query().Get("destinations"))
		assert.Equal(t, "driving", r.URL.Query().Get("mode"))
		assert.Equal(t, "maps-key", r.URL.Query().Get("key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"rows":[{"elements":[{"status":"OK","duration":{"text":"18 mins"},"distance":{"text":"9.2 mi"}}]}]}`))
	}
	server := httptest.NewServer(http.HandlerFunc(h))
	defer server.Close()

	tl := commute.New("maps-key").WithBaseURL(server.URL)
	res, err := tl.Run(context.Background(), &commute.Request{Lat: 30.6, Lon: -96.3, Destination: "Downtown Bryan"})
	require.NoError(t, err)

	assert.Equal(t, tools.StatusSuccess, res.Status)
	assert.Equal(t, "18 mins", res.Duration)
	assert.Equal(t, "9.2 mi", res.Distance)
	assert.Equal(t, "driving", res.Mode)
}

func Test_Run_NoRoute(t *testing.T) {
	h := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"rows":[{"elements":[{"status":"ZERO_RESULTS"}]}]}`))
	}
	server := httptest.NewServer(http.HandlerFunc(h))
	defer server.Close()

	tl := commute.New("maps-key").WithBaseURL(server.URL)
	res, err := tl.Run(context.Background(), &commute.Request{Lat: 30.6, Lon: -96.3})
	require.NoError(t, err)

	assert.Equal(t, tools.StatusNoData, res.Status)
	assert.Equal(t, "no route found to destination", res.Error)
}

func Test_Run_APIError(t *testing.T) {
	h := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}
	server := httptest.NewServer(http.HandlerFunc(h))
	defer server.Close()

	tl := commute.New("maps-key").WithBaseURL(server.URL)
	res, err := tl.Run(context.Background(), &commute.Request{Lat: 30.6, Lon: -96.3})
	require.NoError(t, err)

	assert.Equal(t, tools.StatusAPIError, res.Status)
	assert.Equal(t, http.StatusBadRequest, res.Code)
}

func Test_Call(t *testing.T) {
	tl := commute.New("")
	out, err := tl.Call(context.Background(), `{"lat":30.6,"lon":-96.3}`)
	require.NoError(t, err)
	assert.Contains(t, out, `"no_api_key"`)

	_, err = tl.Call(context.Background(), `x`)
	assert.EqualError(t, err, tools.ErrFailedUnmarshalInput.Error())
}
