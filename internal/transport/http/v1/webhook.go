package v1

import (
	"encoding/xml"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// messagingResponse is the TwiML document the chat provider expects back
// from a webhook; the provider delivers Message to the sender.
type messagingResponse struct {
	XMLName xml.Name `xml:"Response"`
	Message string   `xml:"Message"`
}

// Webhook receives one inbound chat message from the provider and replies
// with a TwiML-wrapped response for the sender.
// POST /webhook
func (h *Handler) Webhook(c echo.Context) error {
	body := c.FormValue("Body")
	sender := strings.TrimPrefix(c.FormValue("From"), "whatsapp:")

	reply := h.service.HandleMessage(c.Request().Context(), sender, body)

	return c.XML(http.StatusOK, messagingResponse{Message: reply})
}
