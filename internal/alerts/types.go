package alerts

import "time"

// Task type constants
const (
	TaskWelcomeEmail  = "email:welcome"
	TaskPasswordReset = "email:password_reset"
	TaskBidReceived   = "email:bid_received"
	TaskBidAccepted   = "email:bid_accepted"
	TaskBidDeclined   = "email:bid_declined"
	TaskMessageNew    = "email:message_new"
)

const QueueEmails = "emails"

var emailTasks = []string{
	TaskWelcomeEmail,
	TaskPasswordReset,
	TaskBidReceived,
	TaskBidAccepted,
	TaskBidDeclined,
	TaskMessageNew,
}

// EmailEnvelope is the rendered message.
type EmailEnvelope struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// EmailPayload is what every email task carries. Reference points at the
// request, bid or message that triggered it.
type EmailPayload struct {
	UserID    string        `json:"user_id"`
	Reference string        `json:"reference,omitempty"`
	Envelope  EmailEnvelope `json:"envelope"`
	QueuedAt  time.Time     `json:"queued_at"`
}
