package server

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/jrsteele09/go-storefront/auth"
	"github.com/jrsteele09/go-storefront/authstate"
	"github.com/rs/zerolog/log"
)

const msgAccountCreated = "Account created. You can sign in now."

// LoginPageData contains data for rendering the login page
type LoginPageData struct {
	Error          string
	Notice         string
	Email          string // Preserve email on error
	OAuthProviders []string
}

// LoginPageUIHandler displays the login page (GET /login)
func (s *Server) LoginPageUIHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		s.render(w, r, http.StatusOK, pageLogin, "Sign in", LoginPageData{
			Error:          query.Get("error"),
			Notice:         query.Get("notice"),
			Email:          query.Get("email"),
			OAuthProviders: s.oauthProviders,
		})
	}
}

// LoginSubmissionHandler processes the login form submission. On success the
// visitor lands on /admin or / once their auth state has caught up with the
// new session.
func (s *Server) LoginSubmissionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}
		email := r.FormValue("email")
		instance := visitorFrom(r)

		res, err := instance.Flows.Login(r.Context(), auth.LoginParameters{
			Email:    email,
			Password: r.FormValue("password"),
		})
		if err != nil {
			redirectWithError(w, r, RouteLogin, formMessage(err), url.Values{"email": {email}})
			return
		}

		s.awaitAuth(r.Context(), instance.Auth, signedInAs(res.Session.SubjectID()))
		redirectSuccess(w, r, res.RedirectTo)
	}
}

type signupPageData struct {
	Error    string
	Fields   map[string]string
	FullName string
	Email    string
	Pending  bool
}

func (s *Server) SignupGetHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.render(w, r, http.StatusOK, pageSignup, "Sign up", signupPageData{})
	}
}

// SignupPostHandler stores the account. It never signs the visitor in.
func (s *Server) SignupPostHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}
		data := signupPageData{
			FullName: r.FormValue("full_name"),
			Email:    r.FormValue("email"),
		}

		res, err := visitorFrom(r).Flows.SignUp(r.Context(), auth.SignUpParameters{
			FullName: data.FullName,
			Email:    data.Email,
			Password: r.FormValue("password"),
		})
		if err != nil {
			data.Error = formMessage(err)
			var formErr *auth.FormError
			if errors.As(err, &formErr) {
				data.Fields = formErr.Fields
			}
			s.render(w, r, http.StatusUnprocessableEntity, pageSignup, "Sign up", data)
			return
		}

		if res.PendingConfirmation {
			data.Pending = true
			s.render(w, r, http.StatusOK, pageSignup, "Check your inbox", data)
			return
		}
		redirectSuccess(w, r, RouteLogin+"?"+url.Values{
			"notice": {msgAccountCreated},
			"email":  {data.Email},
		}.Encode())
	}
}

func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		instance := visitorFrom(r)
		instance.Auth.SignOut(r.Context())
		s.awaitAuth(r.Context(), instance.Auth, signedOut)
		redirectSuccess(w, r, RouteHome)
	}
}

// OAuthStartHandler sends the visitor to the provider's consent page.
func (s *Server) OAuthStartHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authURL, err := visitorFrom(r).Flows.StartOAuth(r.Context(), r.PathValue("provider"))
		if err != nil {
			redirectWithError(w, r, RouteLogin, formMessage(err), nil)
			return
		}
		http.Redirect(w, r, authURL, http.StatusFound)
	}
}

// OAuthCallbackHandler completes the sign-in the provider redirected back from.
func (s *Server) OAuthCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		if errCode := query.Get("error"); errCode != "" {
			log.Warn().Str("error", errCode).Str("description", query.Get("error_description")).Msg("oauth provider returned an error")
			redirectWithError(w, r, RouteLogin, auth.MsgLoginFailed, nil)
			return
		}

		instance := visitorFrom(r)
		res, err := instance.Flows.CompleteOAuth(r.Context(), query.Get("state"), query.Get("code"))
		if err != nil {
			redirectWithError(w, r, RouteLogin, formMessage(err), nil)
			return
		}

		s.awaitAuth(r.Context(), instance.Auth, signedInAs(res.Session.SubjectID()))
		redirectSuccess(w, r, res.RedirectTo)
	}
}

// awaitAuth gives the visitor's auth state up to the guard wait to reflect a
// sign-in or sign-out before redirecting.
func (s *Server) awaitAuth(ctx context.Context, machine *authstate.Machine, cond func(authstate.State) bool) {
	ctx, cancel := context.WithTimeout(ctx, s.config.GetGuardWait())
	defer cancel()
	if _, ok := awaitState(ctx, machine, cond); !ok {
		log.Debug().Msg("auth state did not settle before redirect")
	}
}

// formMessage is the text shown on a form for err.
func formMessage(err error) string {
	var formErr *auth.FormError
	if errors.As(err, &formErr) {
		return formErr.Message
	}
	return auth.MsgLoginFailed
}
