// Package guard decides which client routes the current session may open.
package guard

import (
	"strings"

	"medbook/internal/client/session"
	"medbook/internal/domain"
)

const (
	HomeRoute  = "/"
	LoginRoute = "/login"
)

type Access int

const (
	Public Access = iota
	Authenticated
	AdminOnly
)

type Route struct {
	Pattern string
	Access  Access
}

var routes = []Route{
	{Pattern: "/", Access: Public},
	{Pattern: "/login", Access: Public},
	{Pattern: "/register", Access: Public},
	{Pattern: "/doctors", Access: Public},
	{Pattern: "/dashboard", Access: Authenticated},
	{Pattern: "/booking/:doctorId", Access: Authenticated},
	{Pattern: "/admin/*", Access: AdminOnly},
}

// Match finds the route for path and returns its named parameters.
func Match(path string) (Route, map[string]string, bool) {
	segments := split(path)
	for _, route := range routes {
		if params, ok := match(split(route.Pattern), segments); ok {
			return route, params, true
		}
	}
	return Route{}, nil, false
}

// Resolve returns the route to show for path and whether path itself is allowed.
// Unknown paths go home, protected ones send a signed-out user to the login
// page, and a user without the required role goes home.
func Resolve(snap session.Snapshot, path string) (string, bool) {
	route, _, ok := Match(path)
	if !ok {
		return HomeRoute, false
	}

	switch route.Access {
	case Authenticated:
		if !snap.IsAuthenticated {
			return LoginRoute, false
		}
	case AdminOnly:
		if !snap.IsAuthenticated {
			return LoginRoute, false
		}
		if snap.User == nil || snap.User.Role != domain.UserRoleAdmin {
			return HomeRoute, false
		}
	}

	return normalize(path), true
}

func match(pattern, segments []string) (map[string]string, bool) {
	params := map[string]string{}
	for i, p := range pattern {
		if p == "*" {
			return params, true
		}
		if i >= len(segments) {
			return nil, false
		}
		switch {
		case strings.HasPrefix(p, ":"):
			params[p[1:]] = segments[i]
		case p != segments[i]:
			return nil, false
		}
	}
	if len(pattern) != len(segments) {
		return nil, false
	}
	return params, true
}

func normalize(path string) string {
	return "/" + strings.Join(split(path), "/")
}

func split(path string) []string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	var segments []string
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	return segments
}
