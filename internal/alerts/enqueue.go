package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	"github.com/sudo-init-do/servicehub/internal/marketplace"
	"github.com/sudo-init-do/servicehub/internal/user"
)

// Enqueuer is the part of *asynq.Client the dispatcher uses.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Dispatcher turns account and marketplace events into queued emails. It
// satisfies both marketplace.Notifier and the auth mailer.
type Dispatcher struct {
	queue  Enqueuer
	users  user.Store
	appURL string
	now    func() time.Time
}

var _ marketplace.Notifier = (*Dispatcher)(nil)

func NewDispatcher(queue Enqueuer, users user.Store, appURL string) *Dispatcher {
	return &Dispatcher{
		queue:  queue,
		users:  users,
		appURL: strings.TrimRight(appURL, "/"),
		now:    time.Now,
	}
}

func (d *Dispatcher) enqueue(ctx context.Context, taskType string, u user.User, ref string, env EmailEnvelope) error {
	env.To = u.Email
	b, err := json.Marshal(EmailPayload{UserID: u.ID, Reference: ref, Envelope: env, QueuedAt: d.now()})
	if err != nil {
		return err
	}
	task := asynq.NewTask(taskType, b)
	if _, err := d.queue.EnqueueContext(ctx, task, asynq.Queue(QueueEmails), asynq.MaxRetry(5)); err != nil {
		return fmt.Errorf("enqueue %s: %w", taskType, err)
	}
	return nil
}

func (d *Dispatcher) recipient(ctx context.Context, id string) (user.User, error) {
	u, err := d.users.GetByID(ctx, id)
	if err != nil {
		return user.User{}, fmt.Errorf("load recipient %s: %w", id, err)
	}
	return u, nil
}

func greeting(u user.User) string {
	if u.FirstName != "" {
		return u.FirstName
	}
	return "there"
}

func (d *Dispatcher) Welcome(ctx context.Context, u user.User) error {
	return d.enqueue(ctx, TaskWelcomeEmail, u, u.ID, EmailEnvelope{
		Subject: fmt.Sprintf("Welcome to ServiceHub, %s!", greeting(u)),
		Body: fmt.Sprintf("Hi %s, thanks for joining ServiceHub.\n\nOpen ServiceHub: %s\n\nIf the link doesn't work, copy and paste the URL above.",
			greeting(u), d.appURL),
	})
}

func (d *Dispatcher) PasswordReset(ctx context.Context, u user.User, resetURL string, ttl time.Duration) error {
	return d.enqueue(ctx, TaskPasswordReset, u, u.ID, EmailEnvelope{
		Subject: "Password reset instructions",
		Body: fmt.Sprintf("Hello %s,\n\nWe received a request to reset your ServiceHub password.\n\nTo proceed, open the link below:\n%s\n\nThis link expires in %d minutes. If you did not request this, no action is required.",
			greeting(u), resetURL, int(ttl.Minutes())),
	})
}

func (d *Dispatcher) requestURL(r marketplace.ServiceRequest) string {
	return d.appURL + "/service-requests/" + r.ID
}

func (d *Dispatcher) BidSubmitted(ctx context.Context, r marketplace.ServiceRequest, b marketplace.Bid) error {
	owner, err := d.recipient(ctx, r.OwnerID)
	if err != nil {
		return err
	}
	return d.enqueue(ctx, TaskBidReceived, owner, b.ID, EmailEnvelope{
		Subject: fmt.Sprintf("New bid on %q", r.Title),
		Body: fmt.Sprintf("Hi %s,\n\n%s bid %.2f on your request %q.\n\nCompare bids: %s",
			greeting(owner), b.ProviderName, b.Price, r.Title, d.requestURL(r)),
	})
}

func (d *Dispatcher) BidAccepted(ctx context.Context, r marketplace.ServiceRequest, b marketplace.Bid) error {
	provider, err := d.recipient(ctx, b.ProviderID)
	if err != nil {
		return err
	}
	return d.enqueue(ctx, TaskBidAccepted, provider, b.ID, EmailEnvelope{
		Subject: fmt.Sprintf("Your bid on %q was accepted", r.Title),
		Body: fmt.Sprintf("Hi %s,\n\n%s accepted your bid of %.2f for %q.\n\nView the request: %s",
			greeting(provider), r.OwnerName, b.Price, r.Title, d.requestURL(r)),
	})
}

func (d *Dispatcher) BidDeclined(ctx context.Context, r marketplace.ServiceRequest, b marketplace.Bid) error {
	provider, err := d.recipient(ctx, b.ProviderID)
	if err != nil {
		return err
	}
	return d.enqueue(ctx, TaskBidDeclined, provider, b.ID, EmailEnvelope{
		Subject: fmt.Sprintf("Your bid on %q was declined", r.Title),
		Body: fmt.Sprintf("Hi %s,\n\nYour bid of %.2f for %q was declined. Other open requests are waiting at %s.",
			greeting(provider), b.Price, r.Title, d.appURL),
	})
}

// BidRejected sends nothing; losing bidders see the change on the bid thread.
func (d *Dispatcher) BidRejected(context.Context, marketplace.ServiceRequest, marketplace.Bid) error {
	return nil
}

func (d *Dispatcher) MessagePosted(ctx context.Context, r marketplace.ServiceRequest, b marketplace.Bid, m marketplace.BidMessage) error {
	to := b.ProviderID
	if m.SenderID == b.ProviderID {
		to = r.OwnerID
	}
	rcpt, err := d.recipient(ctx, to)
	if err != nil {
		return err
	}
	return d.enqueue(ctx, TaskMessageNew, rcpt, m.ID, EmailEnvelope{
		Subject: fmt.Sprintf("New message about %q", r.Title),
		Body: fmt.Sprintf("Hi %s,\n\nYou have a new message about %q:\n\n%s\n\nReply: %s",
			greeting(rcpt), r.Title, m.Message, d.requestURL(r)),
	})
}
