package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/C3Techie/ai-doc-summarizer-service/internal/apperr"
)

// errorBody is the envelope every failure response carries. Clients match
// on code; message is for humans.
type errorBody struct {
	Code    apperr.Code `json:"code"`
	Message string      `json:"message"`
}

func respondError(c *gin.Context, err error) {
	code := apperr.CodeOf(err)
	c.JSON(apperr.HTTPStatus(code), gin.H{
		"error": errorBody{Code: code, Message: apperr.MessageOf(err)},
	})
}
