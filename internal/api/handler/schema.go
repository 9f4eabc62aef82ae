package handler

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// messageResponse acknowledges commands that return no resource.
type messageResponse struct {
	Message string `json:"message"`
}

// PageQuery is shared by the list endpoints. Exported: the echo binder skips
// unexported embedded structs.
type PageQuery struct {
	PageNo   int `query:"pageNo"   validate:"omitempty,min=1"`
	PageSize int `query:"pageSize" validate:"omitempty,min=1,max=100"`
}
