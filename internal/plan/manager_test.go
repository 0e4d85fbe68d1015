package plan

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/safetytechsc/radar360-api/internal/config"
	"github.com/safetytechsc/radar360-api/internal/notify"
	"github.com/safetytechsc/radar360-api/internal/record"
)

// fakeNotifier records the last request and returns a canned outcome.
type fakeNotifier struct {
	last    *notify.Request
	outcome notify.Outcome
}

func (f *fakeNotifier) Send(_ context.Context, req notify.Request) notify.Outcome {
	f.last = &req
	return f.outcome
}

func newTestManager(t *testing.T) (*Manager, *record.Store, *Index, *fakeNotifier) {
	t.Helper()
	t.Setenv("EMPRESA_ID_PADRAO", "empresa-demo-1")
	t.Setenv("RADAR_FRONT_BASE", "https://front.example/radar360")

	loader, err := config.NewLoader("")
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}
	store, err := record.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	index := NewIndex(store.Root())
	fn := &fakeNotifier{outcome: notify.Skipped("not configured")}
	return NewManager(store, index, fn, loader, nil), store, index, fn
}

var idPattern = regexp.MustCompile(`^PA-\d{4}-\d{2}-\d{2}T\d{2}-\d{2}-\d{2}-\d{3}Z-[0-9a-f]{6}$`)

func TestCreateGeneratesIDAndToken(t *testing.T) {
	m, _, _, _ := newTestManager(t)

	res, err := m.Create(context.Background(), CreateInput{Origem: "Ambiente"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !idPattern.MatchString(res.PlanoID) {
		t.Errorf("plano_id %q does not match PA-<timestamp>-<6 hex>", res.PlanoID)
	}
	if ok, _ := regexp.MatchString(`^[0-9a-f]{32}$`, res.Token); !ok {
		t.Errorf("token %q is not 32 hex chars", res.Token)
	}
	if !strings.Contains(res.Link, "plano_id="+res.PlanoID) || !strings.Contains(res.Link, "token="+res.Token) {
		t.Errorf("link %q missing plano_id/token query params", res.Link)
	}
	if res.EmailStatus != "skipped" {
		t.Errorf("email_status = %q, want skipped", res.EmailStatus)
	}
}

func TestCreateIDsUniqueInTightLoop(t *testing.T) {
	m, _, _, _ := newTestManager(t)
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		res, err := m.Create(context.Background(), CreateInput{})
		if err != nil {
			t.Fatalf("Create #%d: %v", i, err)
		}
		if seen[res.PlanoID] {
			t.Fatalf("duplicate plano_id %q", res.PlanoID)
		}
		seen[res.PlanoID] = true
	}
}

func TestCreateDefaults(t *testing.T) {
	m, store, _, _ := newTestManager(t)

	res, err := m.Create(context.Background(), CreateInput{Unidade: "Planta SC"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if res.EmpresaID != "empresa-demo-1" {
		t.Errorf("empresaID = %q, want default tenant", res.EmpresaID)
	}

	items, err := store.List(record.KindPlano, record.ListOptions{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("got %d plano records, want 1", len(items))
	}
	body := items[0].Body
	if body["prioridade"] != "Alta" {
		t.Errorf("prioridade = %v, want Alta", body["prioridade"])
	}
	if body["status"] != StatusOpen {
		t.Errorf("status = %v, want %s", body["status"], StatusOpen)
	}
	if v, present := body["origem"]; !present || v != nil {
		t.Errorf("absent origem should persist as explicit null, got %v (present=%v)", v, present)
	}
}

func TestCreateNotifiesResponsible(t *testing.T) {
	m, _, _, fn := newTestManager(t)
	fn.outcome = notify.Sent("msg-1")

	res, err := m.Create(context.Background(), CreateInput{
		Origem:           "Ambiente",
		Unidade:          "Planta SC",
		ResponsavelEmail: "x@y.com",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if res.EmailStatus != "sent" {
		t.Errorf("email_status = %q, want sent", res.EmailStatus)
	}
	if fn.last == nil {
		t.Fatal("notifier was not invoked")
	}
	if fn.last.To != "x@y.com" || fn.last.Link != res.Link {
		t.Errorf("notifier got %+v", fn.last)
	}
}

func TestLookup(t *testing.T) {
	m, _, _, _ := newTestManager(t)
	res, err := m.Create(context.Background(), CreateInput{Origem: "RH"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	entry, err := m.Lookup(res.PlanoID, res.Token)
	if err != nil {
		t.Fatalf("Lookup with correct token: %v", err)
	}
	if entry.Token != res.Token {
		t.Errorf("entry token %q differs from created token %q", entry.Token, res.Token)
	}

	if _, err := m.Lookup(res.PlanoID, "wrong-token"); !errors.Is(err, ErrForbidden) {
		t.Errorf("wrong token: err = %v, want ErrForbidden", err)
	}
	if _, err := m.Lookup("PA-unknown", ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown id: err = %v, want ErrNotFound", err)
	}
	if _, err := m.Lookup(res.PlanoID, ""); err != nil {
		t.Errorf("no token supplied should succeed, got %v", err)
	}
}

func TestCloseLifecycle(t *testing.T) {
	m, store, index, _ := newTestManager(t)
	res, err := m.Create(context.Background(), CreateInput{Origem: "Ambiente"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Status outside the closed set is rejected.
	if _, err := m.Close(context.Background(), CloseInput{PlanoID: res.PlanoID, Status: "EM ANDAMENTO"}); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("open status accepted for close: err = %v", err)
	}
	// Unknown plan.
	if _, err := m.Close(context.Background(), CloseInput{PlanoID: "PA-none", Status: "CONCLUIDO"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown id: err = %v, want ErrNotFound", err)
	}
	// Wrong token, when supplied, is rejected.
	if _, err := m.Close(context.Background(), CloseInput{PlanoID: res.PlanoID, Token: "nope", Status: "CONCLUIDO"}); !errors.Is(err, ErrForbidden) {
		t.Errorf("wrong token: err = %v, want ErrForbidden", err)
	}

	out, err := m.Close(context.Background(), CloseInput{PlanoID: res.PlanoID, Token: res.Token, Status: "concluído"})
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if out.Status != StatusClosed {
		t.Errorf("close status = %q, want %q", out.Status, StatusClosed)
	}

	// A close event record exists and the index reflects the transition.
	closes, err := store.List(record.KindPlanoClose, record.ListOptions{})
	if err != nil {
		t.Fatalf("List close events: %v", err)
	}
	if len(closes) != 1 {
		t.Fatalf("got %d close events, want 1", len(closes))
	}
	entry, _, err := index.FindByID(res.PlanoID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if entry.Status != StatusClosed {
		t.Errorf("index status = %q after close, want %q", entry.Status, StatusClosed)
	}
}

func TestIsCloseStatus(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"CONCLUIDO", true},
		{"concluído", true},
		{"Concluido", true},
		{"CLOSED", true},
		{" closed ", true},
		{"ABERTO", false},
		{"EM ANÁLISE", false},
		{"", false},
		{"finalizado, concluído em parte", false}, // substring matching is gone
	}
	for _, c := range cases {
		if got := IsCloseStatus(c.in); got != c.want {
			t.Errorf("IsCloseStatus(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestBuildLinkEscapesParams(t *testing.T) {
	link := BuildLink("https://front.example/radar360", "PA-1", "a b+c")
	if link != "https://front.example/radar360/radar-acao.html?plano_id=PA-1&token=a+b%2Bc" {
		t.Errorf("unexpected link %q", link)
	}
}
