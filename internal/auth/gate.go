package auth

import (
	"strings"

	"github.com/frahmantamala/taskdesk/internal/core/datamodel/user"
)

const (
	PathRoot     = "/"
	PathLogin    = "/login"
	PathAdmin    = "/admin"
	PathEmployee = "/employee"
)

// SessionState is where session bootstrap stands. Loading is neither
// authenticated nor unauthenticated: no redirect is decided while it lasts.
type SessionState int

const (
	SessionLoading SessionState = iota
	SessionAuthenticated
	SessionUnauthenticated
)

func (s SessionState) String() string {
	switch s {
	case SessionLoading:
		return "loading"
	case SessionAuthenticated:
		return "authenticated"
	case SessionUnauthenticated:
		return "unauthenticated"
	}
	return "unknown"
}

type Outcome int

const (
	OutcomeLoading Outcome = iota
	OutcomeAllow
	OutcomeRedirect
)

type Decision struct {
	Outcome  Outcome
	Location string
}

func allow(path string) Decision {
	return Decision{Outcome: OutcomeAllow, Location: path}
}

func redirect(path string) Decision {
	return Decision{Outcome: OutcomeRedirect, Location: path}
}

// Decide resolves a requested view. It never yields an error: views the
// identity may not see redirect to its own dashboard root, and
// unauthenticated requests redirect to the login view.
func Decide(state SessionState, identity user.Identity, path string) Decision {
	if state == SessionLoading {
		return Decision{Outcome: OutcomeLoading}
	}

	path = normalizePath(path)
	if state != SessionAuthenticated || !identity.Role.Valid() {
		if path == PathLogin {
			return allow(PathLogin)
		}
		return redirect(PathLogin)
	}

	own := CapabilitiesFor(identity.Role).Root
	switch {
	case path == PathLogin, path == PathRoot:
		return redirect(own)
	case within(path, PathAdmin), within(path, PathEmployee):
		if within(path, own) {
			return allow(path)
		}
		return redirect(own)
	}
	return redirect(own)
}

func normalizePath(path string) string {
	if path == "" {
		return PathRoot
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			return PathRoot
		}
	}
	return path
}

func within(path, root string) bool {
	return path == root || strings.HasPrefix(path, root+"/")
}
