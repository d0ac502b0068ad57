package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudo-init-do/servicehub/internal/config"
	"github.com/sudo-init-do/servicehub/internal/marketplace"
	"github.com/sudo-init-do/servicehub/internal/user"
)

type queued struct {
	task *asynq.Task
	opts []asynq.Option
}

type fakeQueue struct {
	tasks []queued
	err   error
}

func (q *fakeQueue) EnqueueContext(_ context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if q.err != nil {
		return nil, q.err
	}
	q.tasks = append(q.tasks, queued{task: task, opts: opts})
	return &asynq.TaskInfo{}, nil
}

func (q *fakeQueue) payload(t *testing.T, i int) EmailPayload {
	t.Helper()
	require.Greater(t, len(q.tasks), i)
	var p EmailPayload
	require.NoError(t, json.Unmarshal(q.tasks[i].task.Payload(), &p))
	return p
}

var (
	owner    = user.User{ID: "u-owner", Email: "olga@example.com", FirstName: "Olga", Roles: user.Roles{user.RoleCustomer}}
	provider = user.User{ID: "u-provider", Email: "pete@example.com", FirstName: "Pete", Roles: user.Roles{user.RoleProvider}}
)

func newDispatcher(t *testing.T) (*Dispatcher, *fakeQueue) {
	t.Helper()
	users := user.NewMemStore()
	for _, u := range []user.User{owner, provider} {
		u := u
		require.NoError(t, users.Create(context.Background(), &u))
	}
	q := &fakeQueue{}
	d := NewDispatcher(q, users, "https://servicehub.test/")
	d.now = func() time.Time { return time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC) }
	return d, q
}

var (
	request = marketplace.ServiceRequest{ID: "r1", Title: "Fix the roof", OwnerID: owner.ID, OwnerName: "Olga K"}
	bid     = marketplace.Bid{ID: "b1", ServiceRequestID: "r1", ProviderID: provider.ID, ProviderName: "Pete P", Price: 450}
)

func TestDispatcherBidSubmittedGoesToOwner(t *testing.T) {
	d, q := newDispatcher(t)
	require.NoError(t, d.BidSubmitted(context.Background(), request, bid))

	require.Len(t, q.tasks, 1)
	assert.Equal(t, TaskBidReceived, q.tasks[0].task.Type())
	p := q.payload(t, 0)
	assert.Equal(t, owner.ID, p.UserID)
	assert.Equal(t, "b1", p.Reference)
	assert.Equal(t, owner.Email, p.Envelope.To)
	assert.Contains(t, p.Envelope.Subject, "Fix the roof")
	assert.Contains(t, p.Envelope.Body, "https://servicehub.test/service-requests/r1")
	assert.Contains(t, p.Envelope.Body, "450.00")
}

func TestDispatcherBidOutcomesGoToProvider(t *testing.T) {
	d, q := newDispatcher(t)
	ctx := context.Background()
	require.NoError(t, d.BidAccepted(ctx, request, bid))
	require.NoError(t, d.BidDeclined(ctx, request, bid))
	require.NoError(t, d.BidRejected(ctx, request, bid))

	require.Len(t, q.tasks, 2)
	assert.Equal(t, TaskBidAccepted, q.tasks[0].task.Type())
	assert.Equal(t, TaskBidDeclined, q.tasks[1].task.Type())
	for i := range q.tasks {
		assert.Equal(t, provider.Email, q.payload(t, i).Envelope.To)
	}
}

func TestDispatcherMessageGoesToOtherParty(t *testing.T) {
	d, q := newDispatcher(t)
	ctx := context.Background()

	fromProvider := marketplace.BidMessage{ID: "m1", BidID: "b1", SenderID: provider.ID, Message: "Can I visit Tuesday?"}
	fromOwner := marketplace.BidMessage{ID: "m2", BidID: "b1", SenderID: owner.ID, Message: "Tuesday works"}
	require.NoError(t, d.MessagePosted(ctx, request, bid, fromProvider))
	require.NoError(t, d.MessagePosted(ctx, request, bid, fromOwner))

	assert.Equal(t, owner.Email, q.payload(t, 0).Envelope.To)
	assert.Contains(t, q.payload(t, 0).Envelope.Body, "Can I visit Tuesday?")
	assert.Equal(t, provider.Email, q.payload(t, 1).Envelope.To)
}

func TestDispatcherUnknownRecipient(t *testing.T) {
	d, q := newDispatcher(t)
	orphan := request
	orphan.OwnerID = "gone"
	err := d.BidSubmitted(context.Background(), orphan, bid)
	require.Error(t, err)
	assert.Empty(t, q.tasks)
}

func TestDispatcherQueueFailure(t *testing.T) {
	d, q := newDispatcher(t)
	q.err = errors.New("redis down")
	err := d.Welcome(context.Background(), owner)
	require.Error(t, err)
	assert.Contains(t, err.Error(), TaskWelcomeEmail)
}

func TestDispatcherPasswordReset(t *testing.T) {
	d, q := newDispatcher(t)
	require.NoError(t, d.PasswordReset(context.Background(), owner, "https://servicehub.test/reset?token=abc", 30*time.Minute))
	p := q.payload(t, 0)
	assert.Equal(t, TaskPasswordReset, q.tasks[0].task.Type())
	assert.Contains(t, p.Envelope.Body, "token=abc")
	assert.Contains(t, p.Envelope.Body, "30 minutes")
}

type fakeSender struct {
	sent []EmailEnvelope
	err  error
}

func (s *fakeSender) Send(_ context.Context, env EmailEnvelope) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, env)
	return nil
}

func newTestWorker(sender Sender) *Worker {
	return NewWorker(config.AlertsConfig{RedisAddr: "127.0.0.1:0"}, sender, zerolog.Nop())
}

func task(t *testing.T, p EmailPayload) *asynq.Task {
	t.Helper()
	b, err := json.Marshal(p)
	require.NoError(t, err)
	return asynq.NewTask(TaskBidReceived, b)
}

func TestProcessTaskSends(t *testing.T) {
	s := &fakeSender{}
	w := newTestWorker(s)
	env := EmailEnvelope{To: "olga@example.com", Subject: "hi", Body: "there"}

	require.NoError(t, w.ProcessTask(context.Background(), task(t, EmailPayload{UserID: "u1", Envelope: env})))
	assert.Equal(t, []EmailEnvelope{env}, s.sent)
}

func TestProcessTaskSkipsRetryForBadPayloads(t *testing.T) {
	w := newTestWorker(&fakeSender{})

	err := w.ProcessTask(context.Background(), asynq.NewTask(TaskBidReceived, []byte("{nope")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	err = w.ProcessTask(context.Background(), task(t, EmailPayload{UserID: "u1"}))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestProcessTaskRetriesSendFailures(t *testing.T) {
	w := newTestWorker(&fakeSender{err: errors.New("smtp timeout")})
	err := w.ProcessTask(context.Background(), task(t, EmailPayload{UserID: "u1", Envelope: EmailEnvelope{To: "a@b.c"}}))
	require.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestPlunkSender(t *testing.T) {
	var got plunkSendBody
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s, err := NewPlunkSender(config.MailConfig{PlunkAPIKey: "sk_test", PlunkFrom: "hello@servicehub.test", PlunkAPIURL: srv.URL})
	require.NoError(t, err)
	require.NoError(t, s.Send(context.Background(), EmailEnvelope{To: "olga@example.com", Subject: "Hi", Body: "Body"}))

	assert.Equal(t, "Bearer sk_test", auth)
	assert.Equal(t, "olga@example.com", got.To)
	assert.Equal(t, "hello@servicehub.test", got.From)
}

func TestPlunkSenderErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"bad address"}`))
	}))
	defer srv.Close()

	s, err := NewPlunkSender(config.MailConfig{PlunkAPIKey: "k", PlunkAPIURL: srv.URL})
	require.NoError(t, err)
	err = s.Send(context.Background(), EmailEnvelope{To: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status=422")
	assert.Contains(t, err.Error(), "bad address")
}

func TestNewSender(t *testing.T) {
	s, err := NewSender(config.MailConfig{}, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, LogSender{}, s)

	_, err = NewSender(config.MailConfig{Provider: "smtp"}, zerolog.Nop())
	assert.Error(t, err)

	_, err = NewSender(config.MailConfig{Provider: "pigeon"}, zerolog.Nop())
	assert.Error(t, err)
}

func TestBuildMessage(t *testing.T) {
	msg := buildMessage("noreply@servicehub.test", "support@servicehub.test",
		EmailEnvelope{To: "olga@example.com", Subject: "Hello", Body: "plain body"})
	assert.True(t, strings.HasPrefix(msg, "From: noreply@servicehub.test\r\n"))
	assert.Contains(t, msg, "Reply-To: support@servicehub.test\r\n")
	assert.Contains(t, msg, "Content-Type: text/plain")
	assert.True(t, strings.HasSuffix(msg, "\r\n\r\nplain body\r\n"))

	html := buildMessage("a@b.c", "", EmailEnvelope{To: "x", Body: "<html><body>x</body></html>"})
	assert.Contains(t, html, "Content-Type: text/html")
	assert.NotContains(t, html, "Reply-To")
}
