package httptransport

// QueryRequest is the body accepted by POST /query. Length and content
// checks beyond presence are the input validator's job.
type QueryRequest struct {
	Query string `json:"query" validate:"required"`
}

// InfoResponse is returned from the root route when no static frontend is
// deployed.
type InfoResponse struct {
	Service     string            `json:"service"`
	Status      string            `json:"status"`
	Version     string            `json:"version"`
	Environment string            `json:"environment"`
	Endpoints   map[string]string `json:"endpoints"`
}
