package types

type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is one entry of an error response. Status is the HTTP status as a string.
type APIError struct {
	Status string `json:"status"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

type ErrorEnvelope struct {
	Errors []APIError `json:"errors"`
}
