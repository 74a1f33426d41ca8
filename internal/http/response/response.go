package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/crawler-api/internal/platform/apierr"
	"github.com/yungbote/crawler-api/internal/platform/ctxutil"
)

type APIError struct {
	Message   string `json:"message"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// RespondError writes the error envelope and aborts the handler chain.
func RespondError(c *gin.Context, status int, code string, err error) {
	if err == nil {
		err = errors.New(http.StatusText(status))
	}
	body := APIError{Message: err.Error(), Code: code}
	if meta, ok := ctxutil.RequestMetaFrom(c.Request.Context()); ok {
		body.RequestID = meta.RequestID
	}
	c.AbortWithStatusJSON(status, ErrorEnvelope{Error: body})
}

func RespondAPIError(c *gin.Context, ae *apierr.Error) {
	if ae == nil {
		ae = apierr.Internal("internal_error", nil)
	}
	RespondError(c, ae.Status, ae.Code, ae.Err)
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
