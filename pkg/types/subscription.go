package types

type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
	SubscriptionStatusExpired   SubscriptionStatus = "expired"
)

type SubscriptionChangeReason string

const (
	SubscriptionChangeReasonSubscribe      SubscriptionChangeReason = "subscribe"
	SubscriptionChangeReasonPaymentConfirm SubscriptionChangeReason = "payment_confirm"
	SubscriptionChangeReasonCancel         SubscriptionChangeReason = "cancel"
	SubscriptionChangeReasonExpire         SubscriptionChangeReason = "expire"
)
