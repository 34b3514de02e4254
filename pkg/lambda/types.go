package lambda

import "strings"

// Request is the part of an API Gateway proxy event the calculate function reads
type Request struct {
	Method  string
	Path    string
	Headers map[string]string
	Body    []byte
}

// Header returns the named header. API Gateway keeps the casing the client
// sent, so the lookup ignores case.
func (r *Request) Header(name string) string {
	if value, ok := r.Headers[name]; ok {
		return value
	}
	for key, value := range r.Headers {
		if strings.EqualFold(key, name) {
			return value
		}
	}
	return ""
}

// Response is turned back into an API Gateway proxy response
type Response struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
}

// JSONResponse wraps an encoded JSON body
func JSONResponse(status int, body []byte) *Response {
	return &Response{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       body,
	}
}
