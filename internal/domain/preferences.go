package domain

// Keys of the key-value store.
const (
	KeyAutomaticCheckoutEnabled = "automatic_checkout_enabled"
	KeyLocationConsentGiven     = "location_consent_given"
	KeyCheckInData              = "checkin_data"
	KeyTraceData                = "trace_data"
	KeyAccessedTraceData        = "accessed_trace_data"
)
