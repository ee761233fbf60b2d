package tools

// Status classifies a provider result. Anything other than StatusSuccess
// means the domain fields are absent, estimated, or defaulted, and the
// result says so; estimated data is never passed off as authoritative.
type Status string

const (
	// StatusSuccess: fields populated from a real upstream response.
	StatusSuccess Status = "success"
	// StatusEstimated: static or derived estimate, no upstream involved.
	StatusEstimated Status = "estimated"
	// StatusCalculated: combined from several upstream sources.
	StatusCalculated Status = "calculated"
	// StatusNoAPIKey: feature disabled, credential missing.
	StatusNoAPIKey Status = "no_api_key"
	// StatusNoData: upstream succeeded but had nothing relevant.
	StatusNoData Status = "no_data"
	// StatusAPIError: upstream returned a failure status code.
	StatusAPIError Status = "api_error"
	// StatusError: transport or parse failure.
	StatusError Status = "error"
)
