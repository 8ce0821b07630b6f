package events

// Topic constants for checkout domain events.
const (
	TopicCheckoutStarted   = "checkout.started"
	TopicPromoApplied      = "promo.applied"
	TopicCheckoutSucceeded = "checkout.succeeded"
	TopicCheckoutFailed    = "checkout.failed"
)
