package models

// ManagementRequest describes one control-plane REST call. Path holds the
// template form with placeholders (for example /v1/projects/{ref}/functions);
// the executed URL is produced by substituting PathParams plus the
// configured project ref.
type ManagementRequest struct {
	Method      string                 `json:"method"`
	Path        string                 `json:"path"`
	PathParams  map[string]string      `json:"path_params,omitempty"`
	QueryParams map[string]string      `json:"query_params,omitempty"`
	Body        map[string]interface{} `json:"body,omitempty"`
}

// Target returns the gate target for the request: the method and the path
// template, before parameter substitution. Two calls that differ only in
// path parameter values share a target on purpose.
func (r *ManagementRequest) Target() string {
	return r.Method + " " + r.Path
}

// SDKCall describes one admin SDK method invocation.
type SDKCall struct {
	Method string                 `json:"method"`
	Params map[string]interface{} `json:"params,omitempty"`
}
