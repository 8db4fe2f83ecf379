package errx

import (
	"github.com/gofiber/fiber/v2"
)

// HTTPErrorResponse represents a standard HTTP error response
type HTTPErrorResponse struct {
	Error     string         `json:"error"`
	Code      string         `json:"code"`
	Type      string         `json:"type"`
	Status    int            `json:"status"`
	RequestID string         `json:"request_id,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// ToHTTPResponse converts an Error to an HTTPErrorResponse
func (e *Error) ToHTTPResponse() HTTPErrorResponse {
	return HTTPErrorResponse{
		Error:   e.Message,
		Code:    e.Code,
		Type:    string(e.Type),
		Status:  e.HTTPStatus,
		Details: e.Details,
	}
}

// Respond writes err as a JSON response on the fiber context.
// Non-errx errors are reported as a generic internal error.
func Respond(c *fiber.Ctx, err error) error {
	var customErr *Error
	if !As(err, &customErr) {
		customErr = New("An unexpected error occurred", TypeInternal)
		customErr.Code = "INTERNAL_ERROR"
	}

	body := customErr.ToHTTPResponse()
	body.RequestID = requestID(c)
	if len(body.Details) == 0 {
		body.Details = nil
	}
	return c.Status(customErr.HTTPStatus).JSON(body)
}

// requestID prefers the id the requestid middleware put on the response.
func requestID(c *fiber.Ctx) string {
	if id := c.GetRespHeader(fiber.HeaderXRequestID); id != "" {
		return id
	}
	return c.Get(fiber.HeaderXRequestID)
}
