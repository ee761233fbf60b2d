package tools

import (
	"context"

	"github.com/cockroachdb/errors"
)

// ErrFailedUnmarshalInput is returned by Call when the input does not match
// the tool's declared schema.
var ErrFailedUnmarshalInput = errors.New("failed to unmarshal input: check the schema and try again")

// ITool is a named operation exposed through the tool server facade.
type ITool interface {
	// Name returns the name of the Tool.
	Name() string
	// Description returns the description of the tool, to be used in the catalog.
	Description() string
	// Parameters returns the parameters definition of the tool input.
	Parameters() any

	// Call executes the tool with the given JSON input and returns the
	// result serialized as JSON. If the tool fails to parse the input,
	// it returns ErrFailedUnmarshalInput.
	Call(context.Context, string) (string, error)
}

// Tool is a typed tool: Run is the directly callable provider function
// behind the Call facade.
type Tool[I any, O any] interface {
	ITool
	Run(context.Context, *I) (*O, error)
}
