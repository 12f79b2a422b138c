package server

import (
	"context"
	"net/http"
	"time"

	"github.com/jrsteele09/go-storefront/guard"
	"github.com/jrsteele09/go-storefront/navigation"
)

// RequireGuard mounts g on the requested path for the visitor's auth state. The
// request waits up to the configured guard wait for a decision. A decision that
// is still pending renders the placeholder page, which refreshes itself; a
// redirect replaces the denied URL.
func (s *Server) RequireGuard(g guard.Guard) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			instance := visitorFrom(r)
			if instance == nil {
				http.Error(w, "500 - Internal Server Error", http.StatusInternalServerError)
				return
			}

			history := navigation.NewHistory(r.URL.Path)
			screen := guard.Bind(instance.Auth, g, history)
			defer screen.Close()

			ctx, cancel := context.WithTimeout(r.Context(), s.config.GetGuardWait())
			defer cancel()
			decision := awaitDecision(ctx, screen)

			switch decision.Outcome {
			case guard.Allow:
				next(w, r)
			case guard.Redirect:
				redirectSuccess(w, r, history.Path())
			default:
				s.renderPlaceholder(w, r)
			}
		}
	}
}

// awaitDecision waits until the screen's decision is no longer pending.
func awaitDecision(ctx context.Context, screen *guard.Screen) guard.Decision {
	for {
		changed := screen.Changed()
		decision := screen.Decision()
		if decision.Outcome != guard.Pending {
			return decision
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return screen.Decision()
		}
	}
}

const placeholderRefresh = 1 * time.Second
