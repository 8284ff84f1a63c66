package httptransport

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"io"
	"net/http"

	"cdr.dev/slog/v3"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const maxUpdateBytes = 1 << 20

// UpdateHandler consumes decoded webhook updates.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, update tgbotapi.Update) error
}

type RouterOptions struct {
	Logger  slog.Logger
	Token   string
	Updates UpdateHandler
	Metrics http.Handler
}

// NewRouter serves the health check, the webhook and, when set, metrics.
func NewRouter(opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		writeText(w, http.StatusOK, "Bot is running!")
	})
	r.Post("/webhook/{token}", webhookHandler(opts))
	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics)
	}
	return r
}

func webhookHandler(opts RouterOptions) http.HandlerFunc {
	logger := opts.Logger.Named("webhook")
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		token := chi.URLParam(r, "token")
		if opts.Token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(opts.Token)) != 1 {
			http.NotFound(w, r)
			return
		}

		var update tgbotapi.Update
		if err := json.NewDecoder(io.LimitReader(r.Body, maxUpdateBytes)).Decode(&update); err != nil {
			logger.Warn(ctx, "malformed update", slog.Error(err))
			writeText(w, http.StatusBadRequest, "bad update")
			return
		}

		// Handling errors still answer 200 so the update is not redelivered.
		if err := opts.Updates.HandleUpdate(ctx, update); err != nil {
			logger.Error(ctx, "handle update",
				slog.F("update_id", update.UpdateID),
				slog.Error(err),
			)
		}
		writeText(w, http.StatusOK, "ok")
	}
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}
