package service

import (
	"fmt"
	"strconv"
)

// User-facing reply texts. The router and correlator choose among these
// deterministically from the error kind or outcome.
const (
	replyInvalidAmount   = "Invalid amount. Please enter a numeric value like: !dm pesa 100"
	replyInvalidCommand  = "Invalid command format. Use: !dm pesa [amount]"
	replyForwarded       = "Message forwarded"
	replyForwardFailed   = "Sorry, we couldn't forward your message. Please try again later."
	replyPartnerNotFound = "Could not find your conversation partner. Please try again later."
	replyFeedbackIdle    = "There are no active customer conversations. Wait for payment notifications."
	replyCustomerHelp    = "To make a payment, send: !dm pesa [amount]"
	replyInternalTrouble = "Sorry, something went wrong on our side. Please try again later."
	replyPaymentError    = "An error occurred during payment processing. Please try again later."
)

func replyPaymentPrompt(amount float64) string {
	return fmt.Sprintf("Payment request of KES %s sent to your phone. Please enter your PIN to complete.", formatAmount(amount))
}

func replyPaymentFailed(reason string) string {
	return fmt.Sprintf("Failed to initiate payment: %s", reason)
}

func replyAmountBlocked(maxAmount float64) string {
	if maxAmount > 0 {
		return fmt.Sprintf("Invalid amount. Payments must be greater than zero and at most KES %s.", formatAmount(maxAmount))
	}
	return "Invalid amount. Payments must be greater than zero."
}

func noticeNewPayment(amount float64) string {
	return fmt.Sprintf("New payment of KES %s initiated by customer. You can now chat directly with them.", formatAmount(amount))
}

func confirmCustomer(amount, receipt string) string {
	return fmt.Sprintf("Your payment of KES %s (Receipt: %s) was successful. You can now communicate directly with our support team.", amount, receipt)
}

func confirmFeedback(amount, receipt, customerNumber string) string {
	return fmt.Sprintf("Payment of KES %s (Receipt: %s) was completed by customer %s. You can now chat directly with them.", amount, receipt, customerNumber)
}

func formatAmount(amount float64) string {
	return strconv.FormatFloat(amount, 'f', -1, 64)
}
