package v1

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/mkamau/pesabridge/internal/domain"
)

// callbackRequest covers both payment result shapes the gateway delivers:
// flat top-level fields, and the nested Daraja stkCallback envelope with a
// metadata item list. A present top-level ResultCode selects the flat shape.
// Amounts and phone numbers arrive as mixed JSON types, so they are decoded
// loosely and coerced below.
type callbackRequest struct {
	Amount             any    `json:"Amount"`
	PhoneNumber        any    `json:"PhoneNumber"`
	MpesaReceiptNumber string `json:"MpesaReceiptNumber"`
	ResultCode         *int   `json:"ResultCode"`
	CheckoutRequestID  string `json:"CheckoutRequestID"`

	Body struct {
		StkCallback struct {
			MerchantRequestID string `json:"MerchantRequestID"`
			CheckoutRequestID string `json:"CheckoutRequestID"`
			ResultCode        int    `json:"ResultCode"`
			ResultDesc        string `json:"ResultDesc"`
			CallbackMetadata  struct {
				Item []struct {
					Name  string `json:"Name"`
					Value any    `json:"Value"`
				} `json:"Item"`
			} `json:"CallbackMetadata"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

// PaymentCallback receives the gateway's payment result. Every delivery is
// acknowledged with a 200 envelope, including undecodable ones, so the
// gateway never retries.
// POST /mpesa-callback
func (h *Handler) PaymentCallback(c echo.Context) error {
	dec := json.NewDecoder(c.Request().Body)
	// Phone numbers arrive as JSON numbers; float64 decoding would mangle
	// their digits.
	dec.UseNumber()

	var req callbackRequest
	if err := dec.Decode(&req); err != nil {
		return c.JSON(http.StatusOK, domain.CallbackAck{
			ResultCode: 1,
			ResultDesc: "Invalid callback payload",
		})
	}

	ack := h.service.HandleCallback(c.Request().Context(), toCallbackResult(req))
	return c.JSON(http.StatusOK, ack)
}

func toCallbackResult(req callbackRequest) domain.CallbackResult {
	if req.ResultCode != nil {
		result := domain.CallbackResult{
			Amount:      coerceAmount(req.Amount),
			PhoneNumber: domain.UnknownPhoneNumber,
			ReceiptID:   req.MpesaReceiptNumber,
			ResultCode:  *req.ResultCode,
			Token:       req.CheckoutRequestID,
		}
		if p := coercePhone(req.PhoneNumber); p != "" {
			result.PhoneNumber = p
		}
		return result
	}

	cb := req.Body.StkCallback
	result := domain.CallbackResult{
		PhoneNumber: domain.UnknownPhoneNumber,
		ResultCode:  cb.ResultCode,
		Token:       cb.CheckoutRequestID,
	}

	for _, item := range cb.CallbackMetadata.Item {
		switch item.Name {
		case "Amount":
			if a := coerceAmount(item.Value); a != nil {
				result.Amount = a
			}
		case "MpesaReceiptNumber":
			if s, ok := item.Value.(string); ok {
				result.ReceiptID = s
			}
		case "PhoneNumber":
			if p := coercePhone(item.Value); p != "" {
				result.PhoneNumber = p
			}
		}
	}

	return result
}

func coerceAmount(v any) *float64 {
	switch t := v.(type) {
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return &f
		}
	case string:
		if f, err := strconv.ParseFloat(t, 64); err == nil {
			return &f
		}
	}
	return nil
}

func coercePhone(v any) string {
	switch t := v.(type) {
	case json.Number:
		return t.String()
	case string:
		return t
	}
	return ""
}
