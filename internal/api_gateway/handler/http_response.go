package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/membership-ledger/internal/api_gateway/middleware"
)

// ErrorCode is the machine readable part of an error response
type ErrorCode string

const (
	CodeBadRequest         ErrorCode = "BAD_REQUEST"
	CodeUnauthorized       ErrorCode = "UNAUTHORIZED"
	CodeNotFound           ErrorCode = "NOT_FOUND"
	CodeConflict           ErrorCode = "CONFLICT"
	CodeUnprocessable      ErrorCode = "UNPROCESSABLE_ENTITY"
	CodeInternal           ErrorCode = "INTERNAL_SERVER_ERROR"
	CodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
)

// Response is the envelope of every API response. Exactly one of Data and Error is set.
type Response struct {
	Data          any       `json:"data,omitempty"`
	Error         *APIError `json:"error,omitempty"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

type APIError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func respond(c *gin.Context, status int, body Response) {
	body.CorrelationID = middleware.GetCorrelationID(c)
	c.JSON(status, body)
}

func respondErrorCode(c *gin.Context, status int, code ErrorCode, message string) {
	respond(c, status, Response{Error: &APIError{Code: code, Message: message}})
}

func RespondOK(c *gin.Context, data any) {
	respond(c, http.StatusOK, Response{Data: data})
}

func RespondCreated(c *gin.Context, data any) {
	respond(c, http.StatusCreated, Response{Data: data})
}

// RespondAccepted is used when the work is queued, not done
func RespondAccepted(c *gin.Context, data any) {
	respond(c, http.StatusAccepted, Response{Data: data})
}

func RespondBadRequest(c *gin.Context, message string) {
	respondErrorCode(c, http.StatusBadRequest, CodeBadRequest, message)
}

func RespondUnauthorized(c *gin.Context, message string) {
	respondErrorCode(c, http.StatusUnauthorized, CodeUnauthorized, message)
}

func RespondNotFound(c *gin.Context, message string) {
	respondErrorCode(c, http.StatusNotFound, CodeNotFound, message)
}

func RespondConflict(c *gin.Context, message string) {
	respondErrorCode(c, http.StatusConflict, CodeConflict, message)
}

// RespondUnprocessable reports a well-formed request the ledger refuses
func RespondUnprocessable(c *gin.Context, message string) {
	respondErrorCode(c, http.StatusUnprocessableEntity, CodeUnprocessable, message)
}

func RespondServiceUnavailable(c *gin.Context, message string) {
	respondErrorCode(c, http.StatusServiceUnavailable, CodeServiceUnavailable, message)
}

// RespondInternalError hides the cause from the client
func RespondInternalError(c *gin.Context) {
	respondErrorCode(c, http.StatusInternalServerError, CodeInternal, "An internal server error occurred")
}
