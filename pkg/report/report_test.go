package report

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/mchmarny/menulogic/pkg/logic"
	"github.com/mchmarny/menulogic/pkg/menu"
)

func errored(t *testing.T) menu.Report {
	t.Helper()

	items := []menu.Item{{ID: "acct", Title: "Account", Logic: "1 +"}}
	ev := logic.New()
	res := menu.Filter(items, func(item menu.Item) (logic.Verdict, error) {
		return ev.Evaluate(item.Logic, logic.Context{})
	})
	if len(res.Reports) != 1 {
		t.Fatalf("expected one report, got %+v", res.Reports)
	}
	return res.Reports[0]
}

func TestLog(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	NewLog(slog.New(slog.NewJSONHandler(&buf, nil))).Report(errored(t))

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("record is not JSON: %v: %s", err, buf.String())
	}
	if rec["level"] != "WARN" || rec["item"] != "acct" || rec["kind"] != "parse" || rec["verdict"] != "errored" {
		t.Fatalf("unexpected record: %v", rec)
	}
	if msg, _ := rec["msg"].(string); msg == "" || !bytes.Contains([]byte(msg), []byte(`"Account"`)) {
		t.Fatalf("msg = %q, want item title", msg)
	}
}

func TestCollector(t *testing.T) {
	t.Parallel()

	c := &Collector{}
	r := errored(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Report(r)
		}()
	}
	wg.Wait()

	if got := len(c.Reports()); got != 8 {
		t.Fatalf("len(Reports()) = %d, want 8", got)
	}
	msgs := c.Messages()
	if msgs[0] != r.Message() {
		t.Fatalf("Messages()[0] = %q, want %q", msgs[0], r.Message())
	}
}

func TestMulti(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	c := &Collector{}
	m := Multi{NewLog(slog.New(slog.NewJSONHandler(&buf, nil))), nil, c}

	m.Report(errored(t))

	var ids []string
	for _, r := range c.Reports() {
		ids = append(ids, r.ID)
	}
	if diff := cmp.Diff([]string{"acct"}, ids); diff != "" {
		t.Fatalf("collector mismatch (-want +got):\n%s", diff)
	}
	if !bytes.Contains(buf.Bytes(), []byte(`"item":"acct"`)) {
		t.Fatalf("log reporter did not write the report: %s", buf.String())
	}
}
