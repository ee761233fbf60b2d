package evaluate

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/effective-security/neighborhood/schema"
	"github.com/effective-security/neighborhood/tools"
	"github.com/effective-security/neighborhood/tools/airquality"
	"github.com/effective-security/neighborhood/tools/amenities"
	"github.com/effective-security/neighborhood/tools/commute"
	"github.com/effective-security/neighborhood/tools/crime"
	"github.com/effective-security/neighborhood/tools/demographics"
	"github.com/effective-security/neighborhood/tools/geocode"
	"github.com/effective-security/neighborhood/tools/housing"
	"github.com/effective-security/neighborhood/tools/walkability"
	"github.com/effective-security/neighborhood/tools/weather"
	"github.com/effective-security/neighborhood/utils"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/neighborhood", "evaluate")

const ToolName = "evaluate"

// DefaultGoals is used when the request does not state any.
const DefaultGoals = "General neighborhood assessment"

const systemPrompt = "You are an expert in real estate and city analytics."

const promptTemplate = `You are an AI neighborhood analyst. Assess this location based on:
- Livability (walkability, amenities, weather)
- Affordability (housing costs vs income)
- Safety (crime data from 2024, air quality)
- Convenience (commute times, nearby services)

User goal: %s
Data: %s

Provide a structured evaluation with:
1. Overall livability score (1-10)
2. Top 3 pros
3. Top 3 cons
4. Recommendation (Buy/Rent/Pass)
5. Best for: (type of resident)`

// Provider is the part of a domain tool the orchestrator calls.
type Provider[I, O any] interface {
	Run(ctx context.Context, req *I) (*O, error)
}

// Completer makes a single-turn chat call. A nil Completer means AI
// reasoning is not configured.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Providers wires the domain tools the orchestrator aggregates.
type Providers struct {
	Geocode      Provider[geocode.Request, geocode.Result]
	Weather      Provider[weather.Request, weather.Result]
	AirQuality   Provider[airquality.Request, airquality.Result]
	Housing      Provider[housing.Request, housing.Result]
	Walkability  Provider[walkability.Request, walkability.Result]
	Crime        Provider[crime.Request, crime.Result]
	Amenities    Provider[amenities.Request, amenities.Result]
	Demographics Provider[demographics.Request, demographics.Result]
	Commute      Provider[commute.Request, commute.Result]
}

// Request represents the tool input.
type Request struct {
	Address string `json:"address" jsonschema:"title=Address,description=Street address to evaluate."`
	Goals   string `json:"goals,omitempty" jsonschema:"title=Goals,description=What the user is optimizing for. Defaults to a general assessment."`
}

// Payload is the aggregated data handed to the analyst model. One
// entry per domain, always present regardless of how each provider
// degraded.
type Payload struct {
	Address      string               `json:"address"`
	Geocode      *geocode.Result      `json:"geocode"`
	Weather      *weather.Result      `json:"weather"`
	AirQuality   *airquality.Result   `json:"air_quality"`
	Housing      *housing.Result      `json:"housing"`
	Walkability  *walkability.Result  `json:"walkability"`
	Crime        *crime.Result        `json:"crime"`
	Amenities    *amenities.Result    `json:"amenities"`
	Demographics *demographics.Result `json:"demographics"`
	Commute      *commute.Result      `json:"commute"`
	Goals        string               `json:"goals"`
}

// Report is the evaluation outcome. Evaluation stays null when no
// model is configured or the chat call failed; the gathered data is
// returned either way.
type Report struct {
	Error      string          `json:"error,omitempty"`
	Details    *geocode.Result `json:"details,omitempty"`
	Data       *Payload        `json:"data,omitempty"`
	Evaluation *string         `json:"evaluation"`
	Note       string          `json:"note,omitempty"`
}

// Tool aggregates all neighborhood data for an address and optionally
// asks the analyst model for a livability evaluation.
type Tool struct {
	name        string
	description string

	providers Providers
	chat      Completer
}

var _ tools.Tool[Request, Report] = (*Tool)(nil)

func New(providers Providers, chat Completer) *Tool {
	return &Tool{
		name:        ToolName,
		description: "Evaluate neighborhood livability for an address using all data sources and AI reasoning.",
		providers:   providers,
		chat:        chat,
	}
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

// Run geocodes the address, gathers every domain sequentially, and
// asks the model for an evaluation when one is configured. A failed
// geocode is terminal; nothing else runs without coordinates.
func (t *Tool) Run(ctx context.Context, req *Request) (*Report, error) {
	goals := req.Goals
	if goals == "" {
		goals = DefaultGoals
	}

	g, err := t.providers.Geocode.Run(ctx, &geocode.Request{Address: req.Address})
	if err != nil {
		return nil, err
	}
	if !g.OK() {
		return &Report{Error: "Geocoding failed", Details: g}, nil
	}

	lat, lon := g.Lat, g.Lon
	payload := &Payload{
		Address: req.Address,
		Geocode: g,
		Goals:   goals,
	}
	payload.Weather, _ = t.providers.Weather.Run(ctx, &weather.Request{Lat: lat, Lon: lon})
	payload.AirQuality, _ = t.providers.AirQuality.Run(ctx, &airquality.Request{Lat: lat, Lon: lon})
	payload.Housing, _ = t.providers.Housing.Run(ctx, &housing.Request{Lat: lat, Lon: lon, Address: req.Address})
	payload.Walkability, _ = t.providers.Walkability.Run(ctx, &walkability.Request{Lat: lat, Lon: lon, Address: req.Address})
	payload.Crime, _ = t.providers.Crime.Run(ctx, &crime.Request{
		Lat:       lat,
		Lon:       lon,
		StartDate: crime.DefaultStartDate,
		EndDate:   crime.DefaultEndDate,
	})
	payload.Amenities, _ = t.providers.Amenities.Run(ctx, &amenities.Request{Lat: lat, Lon: lon})
	payload.Demographics, _ = t.providers.Demographics.Run(ctx, &demographics.Request{Lat: lat, Lon: lon})
	payload.Commute, _ = t.providers.Commute.Run(ctx, &commute.Request{Lat: lat, Lon: lon})

	if t.chat == nil {
		return &Report{
			Data: payload,
			Note: "configure llm.token for AI reasoning",
		}, nil
	}

	prompt := fmt.Sprintf(promptTemplate, goals, utils.ToJSONIndent(payload))
	evaluation, err := t.chat.Complete(ctx, systemPrompt, prompt)
	if err != nil {
		logger.ContextKV(ctx, xlog.WARNING, "reason", "chat_failed", "err", err.Error())
		return &Report{Data: payload, Error: err.Error()}, nil
	}
	return &Report{Data: payload, Evaluation: &evaluation}, nil
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
