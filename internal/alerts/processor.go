package alerts

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/sudo-init-do/servicehub/internal/config"
)

// Worker consumes the email queue and hands each envelope to a Sender.
type Worker struct {
	srv    *asynq.Server
	mux    *asynq.ServeMux
	sender Sender
	log    zerolog.Logger
}

func NewWorker(cfg config.AlertsConfig, sender Sender, log zerolog.Logger) *Worker {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 5
	}
	w := &Worker{sender: sender, log: log.With().Str("component", "alerts").Logger()}
	w.srv = asynq.NewServer(asynq.RedisClientOpt{Addr: cfg.RedisAddr}, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{QueueEmails: 10},
		Logger:      asynqLogger{w.log},
	})
	w.mux = asynq.NewServeMux()
	for _, t := range emailTasks {
		w.mux.HandleFunc(t, w.ProcessTask)
	}
	return w
}

// Run processes tasks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.srv.Start(w.mux); err != nil {
		return fmt.Errorf("start alerts worker: %w", err)
	}
	w.log.Info().Msg("alerts worker started")
	<-ctx.Done()
	w.srv.Shutdown()
	w.log.Info().Msg("alerts worker stopped")
	return nil
}

func (w *Worker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p EmailPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		// malformed payloads never succeed on retry
		return fmt.Errorf("decode %s: %v: %w", t.Type(), err, asynq.SkipRetry)
	}
	if p.Envelope.To == "" {
		return fmt.Errorf("%s for user %s has no recipient: %w", t.Type(), p.UserID, asynq.SkipRetry)
	}
	if err := w.sender.Send(ctx, p.Envelope); err != nil {
		w.log.Error().Err(err).Str("task", t.Type()).Str("user_id", p.UserID).Msg("email send failed")
		return err
	}
	w.log.Info().Str("task", t.Type()).Str("user_id", p.UserID).Str("reference", p.Reference).Msg("email sent")
	return nil
}

// asynqLogger routes asynq's own logging through zerolog.
type asynqLogger struct {
	log zerolog.Logger
}

func (l asynqLogger) Debug(args ...any) { l.log.Debug().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Info(args ...any)  { l.log.Info().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Warn(args ...any)  { l.log.Warn().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Error(args ...any) { l.log.Error().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Fatal(args ...any) { l.log.Fatal().Msg(fmt.Sprint(args...)) }
