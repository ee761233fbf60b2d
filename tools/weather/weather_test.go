package weather_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/effective-security/neighborhood/tools"
	"github.com/effective-security/neighborhood/tools/weather"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Tool(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/forecast", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "true", q.Get("current_weather"))
		assert.Equal(t, "3", q.Get("forecast_days"))
		assert.Equal(t, "auto", q.Get("timezone"))
		assert.Contains(t, q.Get("daily"), "uv_index_max")

		_, _ = w.Write([]byte(`{
			"timezone": "America/Chicago",
			"current_weather": {"temperature": 34.1, "windspeed": 11.2, "weathercode": 1, "time": "2024-07-01T12:00"},
			"daily": {
				"time": ["2024-07-01","2024-07-02","2024-07-03"],
				"temperature_2m_max": [36.2, 35.9, 34.8],
				"temperature_2m_min": [24.1, 23.8, 23.2],
				"precipitation_sum": [0, 0.2, 0],
				"uv_index_max": [9.1, 8.8, 9.4]
			}
		}`))
	}))
	defer server.Close()

	tool := weather.New().WithBaseURL(server.URL).WithHTTPClient(server.Client())
	res, err := tool.Run(context.Background(), &weather.Request{Lat: 30.615, Lon: -96.342})
	require.NoError(t, err)

	assert.Equal(t, tools.StatusSuccess, res.Status)
	assert.Equal(t, "America/Chicago", res.Timezone)
	require.NotNil(t, res.Current)
	assert.InDelta(t, 34.1, res.Current.Temperature, 0.001)
	require.NotNil(t, res.Daily)
	assert.Len(t, res.Daily.TemperatureMax, 3)
}

func Test_Tool_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer server.Close()

	tool := weather.New().WithBaseURL(server.URL).WithHTTPClient(server.Client())
	res, err := tool.Run(context.Background(), &weather.Request{Lat: 1, Lon: 2})
	require.NoError(t, err)
	assert.Equal(t, tools.StatusAPIError, res.Status)
}

func Test_Tool_TransportError(t *testing.T) {
	tool := weather.New().WithBaseURL("http://127.0.0.1:1")
	res, err := tool.Run(context.Background(), &weather.Request{Lat: 1, Lon: 2})
	require.NoError(t, err)
	assert.Equal(t, tools.StatusError, res.Status)

	// degraded classification is stable across identical calls
	res2, err := tool.Run(context.Background(), &weather.Request{Lat: 1, Lon: 2})
	require.NoError(t, err)
	assert.Equal(t, res.Status, res2.Status)
}
