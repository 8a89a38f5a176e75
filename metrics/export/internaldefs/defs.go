package internaldefs

import "github.com/MrEthical07/goContacts/metrics"

type CounterDef struct {
	ID   metrics.ID
	Name string
	Help string
}

type HistogramDef struct {
	ID   metrics.ID
	Name string
	Help string
}

const AuditDroppedName = "contacts_audit_dropped_total"

const AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."

var CounterDefs = []CounterDef{
	{ID: metrics.LoginSuccess, Name: "contacts_login_success_total", Help: "Successful login attempts."},
	{ID: metrics.LoginFailure, Name: "contacts_login_failure_total", Help: "Login attempts rejected for bad credentials."},
	{ID: metrics.LoginUnconfirmed, Name: "contacts_login_unconfirmed_total", Help: "Login attempts rejected for an unconfirmed email."},
	{ID: metrics.RefreshSuccess, Name: "contacts_refresh_success_total", Help: "Successful refresh rotations."},
	{ID: metrics.RefreshFailure, Name: "contacts_refresh_failure_total", Help: "Refresh attempts with an undecodable token."},
	{ID: metrics.RefreshReuseDetected, Name: "contacts_refresh_reuse_detected_total", Help: "Refresh attempts with a superseded token."},
	{ID: metrics.AuthenticateFailure, Name: "contacts_authenticate_failure_total", Help: "Rejected access tokens."},
	{ID: metrics.Logout, Name: "contacts_logout_total", Help: "Logout operations."},
	{ID: metrics.AccountCreationSuccess, Name: "contacts_account_creation_success_total", Help: "Successful account registrations."},
	{ID: metrics.AccountCreationDuplicate, Name: "contacts_account_creation_duplicate_total", Help: "Registrations rejected as duplicate."},
	{ID: metrics.EmailConfirmationRequest, Name: "contacts_email_confirmation_request_total", Help: "Confirmation emails queued."},
	{ID: metrics.EmailConfirmationSuccess, Name: "contacts_email_confirmation_success_total", Help: "Successful email confirmations."},
	{ID: metrics.EmailConfirmationFailure, Name: "contacts_email_confirmation_failure_total", Help: "Rejected confirmation tokens."},
	{ID: metrics.PasswordRehash, Name: "contacts_password_rehash_total", Help: "Stored password digests upgraded on login."},
	{ID: metrics.AvatarUpdated, Name: "contacts_avatar_updated_total", Help: "Avatar uploads."},
	{ID: metrics.RateLimitAllowed, Name: "contacts_rate_limit_allowed_total", Help: "Requests admitted by the rate limiter."},
	{ID: metrics.RateLimitDenied, Name: "contacts_rate_limit_denied_total", Help: "Requests denied by the rate limiter."},
	{ID: metrics.RateLimitStoreFailure, Name: "contacts_rate_limit_store_failure_total", Help: "Rate limiter store errors and timeouts."},
	{ID: metrics.ContactCreated, Name: "contacts_contact_created_total", Help: "Contacts created."},
	{ID: metrics.ContactDeleted, Name: "contacts_contact_deleted_total", Help: "Contacts deleted."},
}

var HistogramDefs = []HistogramDef{
	{ID: metrics.AuthenticateLatency, Name: "contacts_authenticate_latency_seconds", Help: "Access token validation latency."},
	{ID: metrics.RateLimitLatency, Name: "contacts_rate_limit_latency_seconds", Help: "Rate limiter store round-trip latency."},
}

// HistogramBounds are the upper bounds in seconds of the first seven buckets;
// the eighth bucket is +Inf.
var HistogramBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
