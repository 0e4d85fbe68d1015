// Package summary computes the read-side aggregations behind the
// dashboard endpoints: capped listings of survey answers and a single
// overview document with counts and simple averages.
package summary

import (
	"fmt"
	"time"

	"github.com/safetytechsc/radar360-api/internal/plan"
	"github.com/safetytechsc/radar360-api/internal/record"
)

// DefaultRespostasLimit caps /api/respostas listings when the caller does
// not ask for a specific count.
const DefaultRespostasLimit = 200

// respostaForms is the subset of kinds exposed through /api/respostas.
var respostaForms = map[string]record.Kind{
	"ambiente":     record.KindAmbiente,
	"psicossocial": record.KindPsicossocial,
	"lideranca":    record.KindLideranca,
}

// ErrUnknownForm wraps the form name that was rejected.
type ErrUnknownForm struct{ Form string }

func (e ErrUnknownForm) Error() string {
	return fmt.Sprintf("unknown form %q (allowed: ambiente, psicossocial, lideranca)", e.Form)
}

// Respostas returns the newest submissions of one survey form.
func Respostas(store *record.Store, form string, limit int) ([]record.Stored, error) {
	kind, ok := respostaForms[form]
	if !ok {
		return nil, ErrUnknownForm{Form: form}
	}
	if limit <= 0 {
		limit = DefaultRespostasLimit
	}
	return store.List(kind, record.ListOptions{NewestFirst: true, Limit: limit})
}

// FormSummary aggregates one survey form: submission count plus the mean
// of every numeric answer field.
type FormSummary struct {
	Count  int                `json:"count"`
	Medias map[string]float64 `json:"medias"`
}

// PlanSummary counts plans by lifecycle state, read from the index.
type PlanSummary struct {
	Total      int `json:"total"`
	Abertos    int `json:"abertos"`
	Concluidos int `json:"concluidos"`
}

// Overview is the /api/summary document.
type Overview struct {
	GeradoEm    string                 `json:"gerado_em"`
	Formularios map[string]FormSummary `json:"formularios"`
	Voice       int                    `json:"voice"`
	Planos      PlanSummary            `json:"planos"`
}

// Build folds every stored record into one overview. Listing errors
// propagate; individual unreadable files were already skipped by the
// store.
func Build(store *record.Store, index *plan.Index) (*Overview, error) {
	ov := &Overview{
		GeradoEm:    time.Now().UTC().Format(time.RFC3339),
		Formularios: make(map[string]FormSummary, len(respostaForms)),
	}

	for form, kind := range respostaForms {
		items, err := store.List(kind, record.ListOptions{})
		if err != nil {
			return nil, err
		}
		ov.Formularios[form] = summarizeForm(items)
	}

	voice, err := store.List(record.KindVoice, record.ListOptions{})
	if err != nil {
		return nil, err
	}
	ov.Voice = len(voice)

	entries, err := index.Load()
	if err != nil {
		return nil, err
	}
	ov.Planos.Total = len(entries)
	for _, e := range entries {
		if e.Status == plan.StatusClosed {
			ov.Planos.Concluidos++
		} else {
			ov.Planos.Abertos++
		}
	}
	return ov, nil
}

// summarizeForm averages numeric fields found at the top level of each
// submission, or nested one level under "respostas" where the forms put
// their scored answers.
func summarizeForm(items []record.Stored) FormSummary {
	sums := map[string]float64{}
	counts := map[string]int{}
	for _, it := range items {
		accumulate(it.Body, sums, counts)
		if nested, ok := it.Body["respostas"].(map[string]interface{}); ok {
			accumulate(nested, sums, counts)
		}
	}
	medias := make(map[string]float64, len(sums))
	for k, sum := range sums {
		medias[k] = sum / float64(counts[k])
	}
	return FormSummary{Count: len(items), Medias: medias}
}

func accumulate(m map[string]interface{}, sums map[string]float64, counts map[string]int) {
	for k, v := range m {
		if f, ok := v.(float64); ok {
			sums[k] += f
			counts[k]++
		}
	}
}
