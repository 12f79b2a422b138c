package server

import (
	"context"
	"net/http"
	"net/url"
	"sync"

	"github.com/jrsteele09/go-storefront/app"
	"github.com/jrsteele09/go-storefront/authstate"
	"github.com/rs/zerolog/log"
)

// visitorCookieName is the cookie that ties a browser to its application instance.
const visitorCookieName = "storefront_visitor"

func (s *Server) SetVisitorCookie(w http.ResponseWriter, visitorID string, r *http.Request, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     visitorCookieName,
		Value:    visitorID,
		Path:     "/",
		HttpOnly: true,
		Secure:   getScheme(r) == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
}

// redirectSuccess helper for htmx-aware success redirects. 303 never leaves the
// posting or denied URL in the browser history.
func redirectSuccess(w http.ResponseWriter, r *http.Request, path string) {
	if isHTMXRequest(r) {
		w.Header().Set("HX-Redirect", path)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
}

// redirectWithError helper for htmx-aware error redirects. extra is added to the
// query alongside the error message.
func redirectWithError(w http.ResponseWriter, r *http.Request, path, errorMsg string, extra url.Values) {
	query := url.Values{}
	for k, v := range extra {
		if len(v) > 0 && v[0] != "" {
			query[k] = v
		}
	}
	query.Set("error", errorMsg)
	redirectSuccess(w, r, path+"?"+query.Encode())
}

// isHTMXRequest checks if the request was initiated by HTMX
func isHTMXRequest(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// awaitState blocks until the instance's auth state satisfies cond or ctx is
// done, and returns the last state seen.
func awaitState(ctx context.Context, machine *authstate.Machine, cond func(authstate.State) bool) (authstate.State, bool) {
	reached := make(chan authstate.State, 1)
	var once sync.Once
	unwatch := machine.Watch(func(state authstate.State) {
		if cond(state) {
			once.Do(func() { reached <- state })
		}
	})
	defer unwatch()

	select {
	case state := <-reached:
		return state, true
	case <-ctx.Done():
		return machine.State(), false
	}
}

func signedInAs(subject string) func(authstate.State) bool {
	return func(state authstate.State) bool {
		return !state.IsLoading() && state.Session().SubjectID() == subject
	}
}

func signedOut(state authstate.State) bool {
	return state.Status() == authstate.StatusSignedOut
}

type visitorKey struct{}

func withVisitor(ctx context.Context, instance *app.Instance) context.Context {
	return context.WithValue(ctx, visitorKey{}, instance)
}

// visitorFrom returns the instance VisitorMiddleware attached to the request.
func visitorFrom(r *http.Request) *app.Instance {
	instance, _ := r.Context().Value(visitorKey{}).(*app.Instance)
	return instance
}

// VisitorMiddleware attaches the visitor's application instance, creating one
// and setting the cookie for new or expired visitors.
func (s *Server) VisitorMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var visitorID string
		if cookie, err := r.Cookie(visitorCookieName); err == nil {
			visitorID = cookie.Value
		}

		instance, created, err := s.visitors.Acquire(visitorID)
		if err != nil {
			logError(r.Method, r.URL.Path, err)
			http.Error(w, "503 - Service Unavailable", http.StatusServiceUnavailable)
			return
		}
		if created {
			log.Debug().Str("visitor", instance.ID).Msg("new visitor")
		}
		// Re-sent on every request so the cookie slides with the idle TTL.
		s.SetVisitorCookie(w, instance.ID, r, int(s.config.GetVisitorTTL().Seconds()))
		next(w, r.WithContext(withVisitor(r.Context(), instance)))
	}
}
