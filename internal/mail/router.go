package mail

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"docsend/internal/config"
)

var _ Dispatcher = (*Router)(nil)

// Router forwards messages to the configured provider.
type Router struct {
	provider string
	smtp     Dispatcher
	brevo    Dispatcher
}

// NewRouter builds the dispatcher for cfg.Provider ("smtp" or "brevo").
func NewRouter(cfg config.MailConfig, httpClient *http.Client) (*Router, error) {
	r := &Router{provider: strings.ToLower(cfg.Provider)}
	switch r.provider {
	case "brevo":
		b, err := NewBrevo(cfg, httpClient)
		if err != nil {
			return nil, err
		}
		r.brevo = b
	case "smtp", "":
		r.provider = "smtp"
		s, err := NewSMTP(cfg)
		if err != nil {
			return nil, err
		}
		r.smtp = s
	default:
		return nil, fmt.Errorf("unsupported mail provider %q", cfg.Provider)
	}
	return r, nil
}

func (r *Router) Send(ctx context.Context, msg Message) error {
	switch r.provider {
	case "brevo":
		return r.brevo.Send(ctx, msg)
	default:
		return r.smtp.Send(ctx, msg)
	}
}
