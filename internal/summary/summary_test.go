package summary

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/safetytechsc/radar360-api/internal/config"
	"github.com/safetytechsc/radar360-api/internal/notify"
	"github.com/safetytechsc/radar360-api/internal/plan"
	"github.com/safetytechsc/radar360-api/internal/record"
)

func newTestStore(t *testing.T) (*record.Store, *plan.Index) {
	t.Helper()
	store, err := record.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store, plan.NewIndex(store.Root())
}

func TestRespostas(t *testing.T) {
	store, _ := newTestStore(t)
	for i := 0; i < 3; i++ {
		if _, err := store.Save(record.KindAmbiente, map[string]interface{}{"i": float64(i)}); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	items, err := Respostas(store, "ambiente", 2)
	if err != nil {
		t.Fatalf("Respostas: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("limit ignored: got %d", len(items))
	}
	if items[0].Body["i"] != float64(2) {
		t.Errorf("newest-first expected, first item i = %v", items[0].Body["i"])
	}

	_, err = Respostas(store, "rh", 0)
	var unknown ErrUnknownForm
	if !errors.As(err, &unknown) || unknown.Form != "rh" {
		t.Errorf("rh is not a respostas form, err = %v", err)
	}
}

func TestBuildOverview(t *testing.T) {
	store, index := newTestStore(t)

	for _, score := range []float64{2, 4} {
		if _, err := store.Save(record.KindAmbiente, map[string]interface{}{
			"nota":       score,
			"comentario": "texto livre",
			"respostas":  map[string]interface{}{"iluminacao": score + 1},
		}); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	if _, err := store.Save(record.KindVoice, map[string]interface{}{"tipo": "Positivo"}); err != nil {
		t.Fatalf("Save voice: %v", err)
	}
	if err := index.Append(plan.IndexEntry{PlanoID: "PA-1", Status: plan.StatusOpen}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := index.Append(plan.IndexEntry{PlanoID: "PA-2", Status: plan.StatusClosed}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	ov, err := Build(store, index)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	amb := ov.Formularios["ambiente"]
	if amb.Count != 2 {
		t.Errorf("ambiente count = %d, want 2", amb.Count)
	}
	if math.Abs(amb.Medias["nota"]-3) > 1e-9 {
		t.Errorf("nota média = %v, want 3", amb.Medias["nota"])
	}
	if math.Abs(amb.Medias["iluminacao"]-4) > 1e-9 {
		t.Errorf("iluminacao média = %v, want 4", amb.Medias["iluminacao"])
	}
	if _, ok := amb.Medias["comentario"]; ok {
		t.Error("non-numeric field averaged")
	}
	if ov.Voice != 1 {
		t.Errorf("voice count = %d, want 1", ov.Voice)
	}
	if ov.Planos.Total != 2 || ov.Planos.Abertos != 1 || ov.Planos.Concluidos != 1 {
		t.Errorf("plan summary = %+v", ov.Planos)
	}
	if ov.Formularios["psicossocial"].Count != 0 {
		t.Errorf("empty form should count 0")
	}
}

// Build must reflect an index transition made through the manager, not
// just raw appends.
func TestOverviewSeesClosedPlans(t *testing.T) {
	t.Setenv("EMPRESA_ID_PADRAO", "empresa-demo-1")
	store, index := newTestStore(t)

	loader, err := config.NewLoader("")
	if err != nil {
		t.Fatalf("loader: %v", err)
	}
	m := plan.NewManager(store, index, noopNotifier{}, loader, nil)
	res, err := m.Create(context.Background(), plan.CreateInput{Origem: "Ambiente"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := m.Close(context.Background(), plan.CloseInput{PlanoID: res.PlanoID, Status: "CONCLUIDO"}); err != nil {
		t.Fatalf("Close: %v", err)
	}

	ov, err := Build(store, index)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if ov.Planos.Concluidos != 1 || ov.Planos.Abertos != 0 {
		t.Errorf("plan summary after close = %+v", ov.Planos)
	}
}

type noopNotifier struct{}

func (noopNotifier) Send(context.Context, notify.Request) notify.Outcome {
	return notify.Skipped("not configured")
}
