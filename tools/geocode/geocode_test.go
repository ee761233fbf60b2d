package geocode_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/neighborhood/tools"
	"github.com/effective-security/neighborhood/tools/geocode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Tool(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Texas A&M University, College Station", r.URL.Query().Get("q"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`[{"lat":"30.615011","lon":"-96.342476","display_name":"Texas A&M University, College Station, Brazos County, Texas, United States"}]`))
	}))
	defer server.Close()

	ctx := context.Background()
	tool := geocode.New().WithBaseURL(server.URL).WithHTTPClient(server.Client())

	assert.Equal(t, geocode.ToolName, tool.Name())
	assert.Contains(t, tool.Description(), "coordinates")
	assert.NotNil(t, tool.Parameters())

	res, err := tool.Run(ctx, &geocode.Request{Address: "Texas A&M University, College Station"})
	require.NoError(t, err)
	assert.Equal(t, tools.StatusSuccess, res.Status)
	assert.True(t, res.OK())
	assert.InDelta(t, 30.615011, res.Lat, 0.000001)
	assert.InDelta(t, -96.342476, res.Lon, 0.000001)
	assert.Contains(t, res.Display, "College Station")

	out, err := tool.Call(ctx, `{"address":"Texas A&M University, College Station"}`)
	require.NoError(t, err)
	assert.Contains(t, out, `"status":"success"`)

	_, err = tool.Call(ctx, `not json`)
	assert.True(t, errors.Is(err, tools.ErrFailedUnmarshalInput))
}

func Test_Tool_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	tool := geocode.New().WithBaseURL(server.URL).WithHTTPClient(server.Client())
	res, err := tool.Run(context.Background(), &geocode.Request{Address: "nowhere at all"})
	require.NoError(t, err)
	assert.Equal(t, tools.StatusNoData, res.Status)
	assert.False(t, res.OK())
	assert.Equal(t, "address not found", res.Error)
}

func Test_Tool_EmptyAddress(t *testing.T) {
	res, err := geocode.New().Run(context.Background(), &geocode.Request{})
	require.NoError(t, err)
	assert.Equal(t, tools.StatusNoData, res.Status)
	assert.False(t, res.OK())
	assert.Equal(t, "empty address", res.Error)
}

func Test_Tool_TransportError(t *testing.T) {
	tool := geocode.New().WithBaseURL("http://127.0.0.1:1")
	res, err := tool.Run(context.Background(), &geocode.Request{Address: "College Station"})
	require.NoError(t, err)
	assert.Equal(t, tools.StatusError, res.Status)
	assert.NotEmpty(t, res.Error)
}

func Test_Reverse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reverse", r.URL.Path)
		assert.NotEmpty(t, r.URL.Query().Get("lat"))
		_, _ = w.Write([]byte(`{"address":{"city":"College Station","state":"Texas"}}`))
	}))
	defer server.Close()

	tool := geocode.New().WithBaseURL(server.URL).WithHTTPClient(server.Client())
	place, err := tool.Reverse(context.Background(), 30.615, -96.342)
	require.NoError(t, err)
	assert.Equal(t, "College Station", place.City)
	assert.Equal(t, "Texas", place.State)
}

func Test_Reverse_Unknown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"address":{}}`))
	}))
	defer server.Close()

	tool := geocode.New().WithBaseURL(server.URL).WithHTTPClient(server.Client())
	place, err := tool.Reverse(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "Unknown", place.City)
	assert.Equal(t, "Unknown", place.State)
}
