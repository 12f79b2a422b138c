// Package guard decides whether a protected screen may render for the current
// auth state.
package guard

import (
	"github.com/jrsteele09/go-storefront/authstate"
)

const (
	LoginPath = "/login"
	HomePath  = "/"
)

type Outcome int

const (
	// Pending renders a placeholder: neither content nor a redirect.
	Pending Outcome = iota
	Allow
	Redirect
)

func (o Outcome) String() string {
	switch o {
	case Pending:
		return "pending"
	case Allow:
		return "allow"
	case Redirect:
		return "redirect"
	default:
		return "unknown"
	}
}

// Decision is the result of a guard. Redirects always replace the current
// history entry so the denied route cannot be reached with Back.
type Decision struct {
	Outcome Outcome
	Target  string
	Replace bool
}

func pending() Decision { return Decision{Outcome: Pending} }
func allow() Decision { return Decision{Outcome: Allow} }

func redirect(target string) Decision {
	return Decision{Outcome: Redirect, Target: target, Replace: true}
}

type Guard interface {
	Decide(state authstate.State) Decision
}

// Authenticated admits any signed-in user.
type Authenticated struct {
	SignInPath string
}

// Admin admits signed-in users whose profile role is admin. Users without a
// session go to SignInPath; everyone else, including users whose profile could
// not be resolved, goes to ForbiddenPath.
type Admin struct {
	SignInPath    string
	ForbiddenPath string
}

func AuthenticatedGuard() Authenticated {
	return Authenticated{SignInPath: LoginPath}
}

func AdminGuard() Admin {
	return Admin{SignInPath: LoginPath, ForbiddenPath: HomePath}
}

func (g Authenticated) Decide(state authstate.State) Decision {
	switch {
	case state.IsLoading():
		return pending()
	case state.Session() == nil:
		return redirect(g.SignInPath)
	default:
		return allow()
	}
}

func (g Admin) Decide(state authstate.State) Decision {
	switch {
	case state.IsLoading():
		return pending()
	case state.Session() == nil:
		return redirect(g.SignInPath)
	case !state.IsAdmin():
		return redirect(g.ForbiddenPath)
	default:
		return allow()
	}
}
