// Package viewer derives the facts menu conditions can test from an HTTP
// request: who is asking, with which roles, and for which page.
//
// Identity is taken from headers set by a trusted upstream proxy; this
// package does not authenticate anyone.
package viewer

import (
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/mchmarny/menulogic/pkg/logic"
)

const (
	// DefaultUserHeader carries the authenticated user name.
	DefaultUserHeader = "X-Forwarded-User"

	// DefaultRolesHeader carries a comma-separated list of roles.
	DefaultRolesHeader = "X-Forwarded-Roles"

	// DefaultAdminRole is the role allowed to see evaluation errors.
	DefaultAdminRole = "admin"

	// PageParam names the query parameter that overrides the page being
	// rendered, for menus fetched by a page other than the one they appear on.
	PageParam = "page"
)

// Options controls how a request is mapped to a Viewer.
type Options struct {
	UserHeader  string
	RolesHeader string
	AdminRole   string
}

func (o Options) withDefaults() Options {
	if o.UserHeader == "" {
		o.UserHeader = DefaultUserHeader
	}
	if o.RolesHeader == "" {
		o.RolesHeader = DefaultRolesHeader
	}
	if o.AdminRole == "" {
		o.AdminRole = DefaultAdminRole
	}
	return o
}

// Viewer is a snapshot of the request a menu is rendered for.
type Viewer struct {
	User   string
	Roles  []string
	Page   string
	Method string
	Query  url.Values
	Header http.Header

	adminRole string
}

// FromRequest builds a Viewer from r.
func FromRequest(r *http.Request, opts Options) Viewer {
	opts = opts.withDefaults()

	page := r.URL.Path
	if p := r.URL.Query().Get(PageParam); p != "" {
		page = p
	}

	return Viewer{
		User:      strings.TrimSpace(r.Header.Get(opts.UserHeader)),
		Roles:     splitRoles(r.Header.Get(opts.RolesHeader)),
		Page:      cleanPath(page),
		Method:    r.Method,
		Query:     r.URL.Query(),
		Header:    r.Header.Clone(),
		adminRole: opts.AdminRole,
	}
}

// Build adapts FromRequest to the menu handler's context hook.
func (o Options) Build(r *http.Request) (logic.Context, bool) {
	v := FromRequest(r, o)
	return v.Context(), v.IsAdmin()
}

// IsLoggedIn reports whether the request carries a user.
func (v Viewer) IsLoggedIn() bool { return v.User != "" }

// HasRole reports whether the viewer has role, ignoring case.
func (v Viewer) HasRole(role string) bool {
	for _, r := range v.Roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the viewer is logged in with the admin role.
func (v Viewer) IsAdmin() bool {
	admin := v.adminRole
	if admin == "" {
		admin = DefaultAdminRole
	}
	return v.IsLoggedIn() && v.HasRole(admin)
}

// Context exposes the viewer to conditions.
//
// Values: path, method, user, logged_in, admin, query.<name>.
// Functions: is_logged_in(), is_admin(), has_role(name...), is_page(path...),
// in_section(prefix), query(name), header(name).
func (v Viewer) Context() logic.Context {
	query := make(map[string]any, len(v.Query))
	for k := range v.Query {
		query[k] = v.Query.Get(k)
	}

	return logic.Context{
		Values: map[string]any{
			"path":      v.Page,
			"method":    v.Method,
			"user":      v.User,
			"logged_in": v.IsLoggedIn(),
			"admin":     v.IsAdmin(),
			"query":     query,
		},
		Funcs: map[string]logic.Func{
			"is_logged_in": noArgs("is_logged_in", func() any { return v.IsLoggedIn() }),
			"is_admin":     noArgs("is_admin", func() any { return v.IsAdmin() }),
			"has_role": func(args ...any) (any, error) {
				roles, err := stringArgs("has_role", args, 1)
				if err != nil {
					return nil, err
				}
				for _, r := range roles {
					if v.HasRole(r) {
						return true, nil
					}
				}
				return false, nil
			},
			"is_page": func(args ...any) (any, error) {
				pages, err := stringArgs("is_page", args, 1)
				if err != nil {
					return nil, err
				}
				for _, p := range pages {
					if cleanPath(p) == v.Page {
						return true, nil
					}
				}
				return false, nil
			},
			"in_section": func(args ...any) (any, error) {
				prefixes, err := stringArgs("in_section", args, 1)
				if err != nil {
					return nil, err
				}
				if len(prefixes) != 1 {
					return nil, fmt.Errorf("in_section: expected 1 argument, got %d", len(prefixes))
				}
				prefix := cleanPath(prefixes[0])
				if prefix == "/" {
					return true, nil
				}
				return v.Page == prefix || strings.HasPrefix(v.Page, prefix+"/"), nil
			},
			"query": func(args ...any) (any, error) {
				names, err := stringArgs("query", args, 1)
				if err != nil {
					return nil, err
				}
				if len(names) != 1 {
					return nil, fmt.Errorf("query: expected 1 argument, got %d", len(names))
				}
				if !v.Query.Has(names[0]) {
					return nil, nil
				}
				return v.Query.Get(names[0]), nil
			},
			"header": func(args ...any) (any, error) {
				names, err := stringArgs("header", args, 1)
				if err != nil {
					return nil, err
				}
				if len(names) != 1 {
					return nil, fmt.Errorf("header: expected 1 argument, got %d", len(names))
				}
				return v.Header.Get(names[0]), nil
			},
		},
	}
}

func noArgs(name string, fn func() any) logic.Func {
	return func(args ...any) (any, error) {
		if len(args) != 0 {
			return nil, fmt.Errorf("%s: expected no arguments, got %d", name, len(args))
		}
		return fn(), nil
	}
}

func stringArgs(name string, args []any, min int) ([]string, error) {
	if len(args) < min {
		return nil, fmt.Errorf("%s: expected at least %d argument(s), got %d", name, min, len(args))
	}
	out := make([]string, 0, len(args))
	for i, a := range args {
		s, ok := a.(string)
		if !ok {
			return nil, fmt.Errorf("%s: argument %d must be a string, got %T", name, i+1, a)
		}
		out = append(out, s)
	}
	return out, nil
}

func splitRoles(raw string) []string {
	var roles []string
	for _, r := range strings.Split(raw, ",") {
		if r = strings.TrimSpace(r); r != "" {
			roles = append(roles, r)
		}
	}
	return roles
}

func cleanPath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}
