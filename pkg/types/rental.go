package types

type PlanType string

const (
	PlanTypeSingleBook   PlanType = "single_book"
	PlanTypeSubscription PlanType = "subscription"
)

func (t PlanType) Valid() bool {
	return t == PlanTypeSingleBook || t == PlanTypeSubscription
}

type RentalStatus string

const (
	RentalStatusActive    RentalStatus = "active"
	RentalStatusReturned  RentalStatus = "returned"
	RentalStatusCancelled RentalStatus = "cancelled"
	RentalStatusExpired   RentalStatus = "expired"
)

type RentalAction string

const (
	RentalActionRented    RentalAction = "rented"
	RentalActionRenewed   RentalAction = "renewed"
	RentalActionReturned  RentalAction = "returned"
	RentalActionCancelled RentalAction = "cancelled"
	RentalActionExpired   RentalAction = "expired"
)

// AccessSource names the entitlement that granted access to a book.
type AccessSource string

const (
	AccessSourceNone         AccessSource = ""
	AccessSourceRental       AccessSource = "rental"
	AccessSourceSubscription AccessSource = "subscription"
)

type NotificationType string

const (
	NotificationTypeRental       NotificationType = "rental"
	NotificationTypeSubscription NotificationType = "subscription"
)
