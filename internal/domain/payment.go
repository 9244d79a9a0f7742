package domain

// PaymentOutcome is the synchronous result of a payment initiation.
type PaymentOutcome struct {
	Accepted bool
	// Token correlates the asynchronous gateway callback with this
	// initiation. Set only when Accepted.
	Token string
	// Reason carries the gateway's failure description when not Accepted.
	Reason string
}

// CallbackResult is the asynchronous payment result reported by the gateway.
// Missing payload fields are represented by a nil Amount or the Unknown*
// sentinels rather than rejecting the callback.
type CallbackResult struct {
	Amount      *float64
	PhoneNumber string
	ReceiptID   string
	ResultCode  int
	Token       string
}

// Sentinels for callback fields absent from the payload.
const (
	UnknownPhoneNumber = "unknown number"
	UnknownReceiptID   = "unknown"
)

// Success reports whether the gateway marked the payment completed.
func (r CallbackResult) Success() bool {
	return r.ResultCode == 0
}

// Correlatable reports whether the callback carries enough identity to be
// matched to a conversation.
func (r CallbackResult) Correlatable() bool {
	return r.PhoneNumber != "" && r.PhoneNumber != UnknownPhoneNumber
}

// CallbackAck is the fixed envelope returned to the gateway for every
// callback, successful or not, so it does not retry delivery.
type CallbackAck struct {
	ResultCode int    `json:"ResultCode"`
	ResultDesc string `json:"ResultDesc"`
}
