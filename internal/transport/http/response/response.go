package response

import "github.com/gin-gonic/gin"

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func OK(c *gin.Context, data interface{}) {
	c.JSON(200, data)
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(201, data)
}

func Error(c *gin.Context, httpStatus int, errMsg string) {
	c.JSON(httpStatus, ErrorBody{Error: errMsg})
}

func ErrorWithMessage(c *gin.Context, httpStatus int, errMsg, message string) {
	c.JSON(httpStatus, ErrorBody{Error: errMsg, Message: message})
}

// Abort writes the error and stops the handler chain.
func Abort(c *gin.Context, httpStatus int, errMsg string) {
	c.AbortWithStatusJSON(httpStatus, ErrorBody{Error: errMsg})
}
