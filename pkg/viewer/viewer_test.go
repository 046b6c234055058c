package viewer

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/mchmarny/menulogic/pkg/logic"
)

func request(target string, header map[string]string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range header {
		r.Header.Set(k, v)
	}
	return r
}

func TestFromRequest(t *testing.T) {
	t.Parallel()

	r := request("/menu?page=/docs/intro/&tab=2", map[string]string{
		DefaultUserHeader:  " ada ",
		DefaultRolesHeader: "Editor, admin ,,",
	})
	v := FromRequest(r, Options{})

	want := Viewer{
		User:   "ada",
		Roles:  []string{"Editor", "admin"},
		Page:   "/docs/intro",
		Method: http.MethodGet,
	}
	if diff := cmp.Diff(want, v, cmpopts.IgnoreFields(Viewer{}, "Query", "Header"), cmpopts.IgnoreUnexported(Viewer{})); diff != "" {
		t.Fatalf("FromRequest() mismatch (-want +got):\n%s", diff)
	}
	if !v.IsLoggedIn() || !v.HasRole("editor") || !v.IsAdmin() {
		t.Fatalf("unexpected viewer facts: %+v", v)
	}
}

func TestCustomHeaders(t *testing.T) {
	t.Parallel()

	opts := Options{UserHeader: "X-User", RolesHeader: "X-Roles", AdminRole: "ops"}
	r := request("/", map[string]string{"X-User": "bob", "X-Roles": "admin"})

	ctx, privileged := opts.Build(r)
	if privileged {
		t.Fatal("admin role should not be privileged when AdminRole is ops")
	}
	if ctx.Values["user"] != "bob" {
		t.Fatalf("user = %v, want bob", ctx.Values["user"])
	}

	r.Header.Set("X-Roles", "OPS")
	if _, privileged := opts.Build(r); !privileged {
		t.Fatal("ops role should be privileged")
	}
}

func TestAnonymousIsNotAdmin(t *testing.T) {
	t.Parallel()

	v := FromRequest(request("/", map[string]string{DefaultRolesHeader: "admin"}), Options{})
	if v.IsAdmin() {
		t.Fatal("roles without a user must not grant admin")
	}
}

func TestConditions(t *testing.T) {
	t.Parallel()

	v := FromRequest(request("/blog/2024/post?tab=billing&empty=", map[string]string{
		DefaultUserHeader:  "ada",
		DefaultRolesHeader: "editor",
		"X-Tenant":         "acme",
	}), Options{})
	ctx := v.Context()
	ev := logic.New()

	tests := []struct {
		cond string
		want logic.Verdict
	}{
		{`is_logged_in()`, logic.Visible},
		{`is_admin()`, logic.Hidden},
		{`has_role("EDITOR")`, logic.Visible},
		{`has_role("author", "editor")`, logic.Visible},
		{`has_role("author")`, logic.Hidden},
		{`is_page("/blog/2024/post/")`, logic.Visible},
		{`is_page("/", "blog/2024/post")`, logic.Visible},
		{`is_page("/blog")`, logic.Hidden},
		{`in_section("/blog")`, logic.Visible},
		{`in_section("/bl")`, logic.Hidden},
		{`in_section("/")`, logic.Visible},
		{`query("tab") == "billing"`, logic.Visible},
		{`query("missing") == null`, logic.Visible},
		{`query("empty") == ""`, logic.Visible},
		{`query.tab == "billing"`, logic.Visible},
		{`header("X-Tenant") == "acme"`, logic.Visible},
		{`path == "/blog/2024/post" && method == "GET"`, logic.Visible},
		{`logged_in && !admin`, logic.Visible},
		{`user == "ada"`, logic.Visible},
	}
	for _, tc := range tests {
		got, err := ev.Evaluate(tc.cond, ctx)
		if err != nil {
			t.Fatalf("Evaluate(%q) returned error: %v", tc.cond, err)
		}
		if got != tc.want {
			t.Fatalf("Evaluate(%q) = %v, want %v", tc.cond, got, tc.want)
		}
	}
}

func TestConditionArgumentErrors(t *testing.T) {
	t.Parallel()

	ctx := FromRequest(request("/", nil), Options{}).Context()
	ev := logic.New()

	for _, cond := range []string{
		`has_role()`,
		`has_role(1)`,
		`is_logged_in("x")`,
		`in_section("/a", "/b")`,
		`query()`,
		`header(true)`,
	} {
		v, err := ev.Evaluate(cond, ctx)
		if v != logic.Errored || !errors.Is(err, logic.ErrEvaluation) {
			t.Fatalf("Evaluate(%q) = %v, %v; want evaluation error", cond, v, err)
		}
	}
}
