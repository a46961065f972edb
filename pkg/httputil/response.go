package httputil

import (
	"encoding/json"

	"github.com/valyala/fasthttp"
)

// ErrorResponse is the body of every non-2xx JSON response
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// WriteResponse writes a successful JSON response
func WriteResponse(ctx *fasthttp.RequestCtx, data interface{}) {
	WriteResponseWithStatus(ctx, data, fasthttp.StatusOK)
}

// WriteResponseWithStatus writes a successful JSON response with custom status
func WriteResponseWithStatus(ctx *fasthttp.RequestCtx, data interface{}, status int) {
	writeJSON(ctx, data, status)
}

// WriteErrorResponse writes an error JSON response
func WriteErrorResponse(ctx *fasthttp.RequestCtx, message string, status int) {
	writeJSON(ctx, ErrorResponse{Detail: message}, status)
}

// WriteError writes an error response with error object
func WriteError(ctx *fasthttp.RequestCtx, err error, status int) {
	message := "internal server error"
	if err != nil {
		message = err.Error()
	}
	WriteErrorResponse(ctx, message, status)
}

// writeJSON writes JSON response to context
func writeJSON(ctx *fasthttp.RequestCtx, data interface{}, status int) {
	ctx.SetContentType("application/json")
	ctx.SetStatusCode(status)

	body, err := json.Marshal(data)
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		ctx.SetBody([]byte(`{"detail":"failed to marshal response"}`))
		return
	}

	ctx.SetBody(body)
}

// WriteHealthResponse writes a health check response
func WriteHealthResponse(ctx *fasthttp.RequestCtx, data interface{}, healthy bool) {
	status := fasthttp.StatusOK
	if !healthy {
		status = fasthttp.StatusServiceUnavailable
	}
	writeJSON(ctx, data, status)
}

// DecodeJSON unmarshals the request body into dst
func DecodeJSON(ctx *fasthttp.RequestCtx, dst interface{}) error {
	return json.Unmarshal(ctx.PostBody(), dst)
}
