package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mchmarny/menulogic/pkg/config"
	"github.com/mchmarny/menulogic/pkg/logic"
	"github.com/mchmarny/menulogic/pkg/menu"
	"github.com/mchmarny/menulogic/pkg/report"
)

// viewerFlags describe the simulated viewer of an eval run.
type viewerFlags struct {
	user    string
	roles   []string
	path    string
	headers map[string]string
	values  map[string]string
	funcs   map[string]string
	logic   map[string]string
	asJSON  bool
}

func newEvalCmd(a *app) *cobra.Command {
	vf := &viewerFlags{}

	cmd := &cobra.Command{
		Use:   "eval [condition]",
		Short: "Evaluate a condition, or render the menu, for a simulated viewer",
		Example: `  menulogic eval 'has_role("editor") && in_section("/blog")' --user ada --roles editor --path /blog/post
  menulogic eval --user ada --roles admin --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := vf.context(a.cfg)
			if err != nil {
				return err
			}
			ev := a.cfg.Evaluator()
			if len(args) == 1 {
				return evalCondition(cmd.OutOrStdout(), ev, args[0], ctx)
			}
			return a.render(cmd, ev, ctx, vf.logic, vf.asJSON)
		},
	}

	f := cmd.Flags()
	f.StringVar(&vf.user, "user", "", "viewer user name, anonymous when empty")
	f.StringSliceVar(&vf.roles, "roles", nil, "viewer roles")
	f.StringVar(&vf.path, "path", "/", "page the menu is rendered on, may carry a query string")
	f.StringToStringVar(&vf.headers, "header", nil, "extra request headers, name=value")
	f.StringToStringVar(&vf.values, "value", nil, "extra context values, name=value")
	f.StringToStringVar(&vf.funcs, "func", nil, "extra zero-argument functions returning a constant, name=value")
	f.StringToStringVar(&vf.logic, "logic", nil, "replace the condition of an item for this run, id=condition")
	f.BoolVar(&vf.asJSON, "json", false, "print the rendered menu as JSON")
	return cmd
}

// context builds the evaluation context the server would build for the
// same request.
func (vf *viewerFlags) context(cfg *config.Config) (logic.Context, error) {
	target := vf.path
	if !strings.HasPrefix(target, "/") {
		target = "/" + target
	}
	r, err := http.NewRequest(http.MethodGet, "http://menulogic.local"+target, nil)
	if err != nil {
		return logic.Context{}, fmt.Errorf("invalid path %q: %w", vf.path, err)
	}

	opts := cfg.ViewerOptions()
	for k, v := range vf.headers {
		r.Header.Set(k, v)
	}
	if vf.user != "" {
		r.Header.Set(opts.UserHeader, vf.user)
	}
	if len(vf.roles) > 0 {
		r.Header.Set(opts.RolesHeader, strings.Join(vf.roles, ","))
	}

	ctx, _ := opts.Build(r)
	for k, v := range vf.values {
		ctx.Values[k] = parseValue(v)
	}
	for k, v := range vf.funcs {
		ctx.Funcs[k] = logic.Const(parseValue(v))
	}
	return ctx, nil
}

// parseValue reads a flag value as a condition literal: true, false,
// null, a number or, failing those, a string. Quoted values are always
// strings.
func parseValue(s string) any {
	switch strings.ToLower(s) {
	case "true":
		return true
	case "false":
		return false
	case "null":
		return nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if u, err := strconv.Unquote(s); err == nil {
		return u
	}
	return s
}

func evalCondition(w io.Writer, ev *logic.Evaluator, condition string, ctx logic.Context) error {
	v, err := ev.Evaluate(condition, ctx)
	fmt.Fprintln(w, v)
	if err != nil {
		return fmt.Errorf("%s error: %w", logic.KindOf(err), err)
	}
	return nil
}

func (a *app) render(cmd *cobra.Command, ev *logic.Evaluator, ctx logic.Context, overrides map[string]string, asJSON bool) error {
	m, err := config.LoadMenu(a.cfg.MenuFile)
	if err != nil {
		return err
	}
	if m.Items, err = a.conditions(cmd.Context(), m.Items, overrides); err != nil {
		return err
	}

	var errs report.Collector
	res := m.Visible(ctx, ev, report.Multi{report.NewLog(slog.Default()), &errs})

	w := cmd.OutOrStdout()
	if asJSON {
		out := struct {
			Items   []menu.Node   `json:"items"`
			Removed []menu.Report `json:"removed,omitempty"`
			Errors  []string      `json:"errors,omitempty"`
		}{Items: menu.Tree(res.Items), Removed: res.Reports, Errors: errs.Messages()}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	printTree(w, menu.Tree(res.Items), 0)
	for _, r := range res.Reports {
		fmt.Fprintf(w, "removed %s: %s\n", r.ID, r.Message())
	}
	return nil
}

func printTree(w io.Writer, nodes []menu.Node, depth int) {
	for _, n := range nodes {
		fmt.Fprintf(w, "%s%s", strings.Repeat("  ", depth), n.Title)
		if n.URL != "" {
			fmt.Fprintf(w, " (%s)", n.URL)
		}
		fmt.Fprintln(w)
		printTree(w, n.Children, depth+1)
	}
}
