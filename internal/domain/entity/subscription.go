package entity

// Subscription represents the plan a user account is on.
type Subscription string

const (
	// SubscriptionStarter is the plan every account starts on.
	SubscriptionStarter Subscription = "starter"
	// SubscriptionPro is the intermediate paid plan.
	SubscriptionPro Subscription = "pro"
	// SubscriptionBusiness is the top paid plan.
	SubscriptionBusiness Subscription = "business"
)

// String returns the string representation of the Subscription.
func (s Subscription) String() string {
	return string(s)
}

// IsValid checks if the Subscription is a known plan.
func (s Subscription) IsValid() bool {
	switch s {
	case SubscriptionStarter, SubscriptionPro, SubscriptionBusiness:
		return true
	default:
		return false
	}
}
