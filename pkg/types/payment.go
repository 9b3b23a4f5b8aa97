package types

// PaymentMethod is the free-form method a subscriber chose. Only Online is
// settled asynchronously through the payment callback.
type PaymentMethod string

const (
	PaymentMethodOnline PaymentMethod = "Online"
	PaymentMethodCash   PaymentMethod = "Cash"
)

// PaidOnCreate reports whether a subscription paid with m is considered
// paid immediately.
func (m PaymentMethod) PaidOnCreate() bool {
	return m != PaymentMethodOnline
}

type PaymentCallbackStatus string

const (
	PaymentCallbackStatusReceived     PaymentCallbackStatus = "received"
	PaymentCallbackStatusHandled      PaymentCallbackStatus = "handled"
	PaymentCallbackStatusHandleFailed PaymentCallbackStatus = "handle_failed"
)
