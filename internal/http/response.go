package http

import "github.com/gin-gonic/gin"

// Envelope es la forma minima de toda respuesta JSON del servicio: siempre
// lleva success, los errores ademas message.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, Envelope{Success: false, Message: message})
}

func okMessage(c *gin.Context, status int, message string) {
	c.JSON(status, Envelope{Success: true, Message: message})
}

func okData(c *gin.Context, status int, data any) {
	c.JSON(status, Envelope{Success: true, Data: data})
}
