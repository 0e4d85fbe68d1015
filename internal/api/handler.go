package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/safetytechsc/radar360-api/internal/config"
	"github.com/safetytechsc/radar360-api/internal/plan"
	"github.com/safetytechsc/radar360-api/internal/record"
	"github.com/safetytechsc/radar360-api/internal/summary"
	"github.com/safetytechsc/radar360-api/internal/survey"
)

// defaultPlanListLimit caps GET /api/planos when no limit is given.
const defaultPlanListLimit = 1000

// surveyKinds are the categories accepted by POST /api/radar/{categoria}.
// Voice has its own route because its records are normalized.
var surveyKinds = map[string]record.Kind{
	"ambiente":     record.KindAmbiente,
	"psicossocial": record.KindPsicossocial,
	"lideranca":    record.KindLideranca,
	"rh":           record.KindRH,
	"raiox":        record.KindRaioX,
}

// Handler holds all HTTP handler dependencies.
type Handler struct {
	store  *record.Store
	index  *plan.Index
	plans  *plan.Manager
	loader *config.Loader
	mux    *http.ServeMux
}

// New creates an HTTP handler and registers all routes.
func New(store *record.Store, index *plan.Index, plans *plan.Manager, loader *config.Loader) http.Handler {
	h := &Handler{store: store, index: index, plans: plans, loader: loader, mux: http.NewServeMux()}

	h.mux.HandleFunc("GET /{$}", h.root)
	h.mux.HandleFunc("GET /api/ping", h.ping)
	h.mux.HandleFunc("GET /api/debug-email", h.debugEmail)

	h.mux.HandleFunc("POST /api/radar/voice", h.storeVoice)
	h.mux.HandleFunc("POST /api/radar/{categoria}", h.storeSurvey)

	h.mux.HandleFunc("POST /api/planos", h.createOrClosePlan)
	h.mux.HandleFunc("GET /api/planos", h.listPlans)
	h.mux.HandleFunc("GET /api/planos/{id}", h.lookupPlan)

	h.mux.HandleFunc("GET /api/listar", h.listRecords)
	h.mux.HandleFunc("GET /api/respostas", h.listRespostas)
	h.mux.HandleFunc("GET /api/summary", h.overview)

	h.mux.HandleFunc("GET /healthz", h.healthz)
	h.mux.Handle("GET /metrics", promhttp.Handler())

	return loggingMiddleware(h.mux)
}

// GET / — plain-text banner kept for uptime checks.
func (h *Handler) root(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, "Radar360 API OK")
}

// GET /api/ping
func (h *Handler) ping(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "msg": "pong"})
}

// GET /api/debug-email — transport config without the password.
func (h *Handler) debugEmail(w http.ResponseWriter, r *http.Request) {
	smtp := h.loader.Config().SMTP
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":         true,
		"configured": smtp.Configured(),
		"host":       orNil(smtp.Host),
		"port":       smtp.Port,
		"user":       orNil(smtp.User),
		"from":       orNil(smtp.From),
	})
}

// POST /api/radar/{categoria} — store the raw submission as received,
// with only the tenant id injected.
func (h *Handler) storeSurvey(w http.ResponseWriter, r *http.Request) {
	kind, ok := surveyKinds[r.PathValue("categoria")]
	if !ok {
		writeError(w, http.StatusNotFound, "categoria_invalid")
		return
	}
	var body map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	body, tenant := survey.EnsureTenant(body, h.loader.Config().DefaultTenant)
	file, err := h.store.Save(kind, body)
	if err != nil {
		writeStorageError(w, "write_error", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok": true, "stored": file, "empresaID": tenant,
	})
}

// POST /api/radar/voice — anonymous Safety Voice report.
func (h *Handler) storeVoice(w http.ResponseWriter, r *http.Request) {
	var body map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	rec := survey.NormalizeVoice(body, time.Now(), h.loader.Config().DefaultTenant)
	file, err := h.store.Save(record.KindVoice, rec)
	if err != nil {
		writeStorageError(w, "write_error", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok": true, "stored": file, "empresaID": rec.EmpresaID,
	})
}

// POST /api/planos — a body whose status names the closed state and
// carries a plano_id closes that plan; anything else creates a new one.
func (h *Handler) createOrClosePlan(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	var probe struct {
		PlanoID string `json:"plano_id"`
		Status  string `json:"status"`
	}
	_ = json.Unmarshal(raw, &probe)

	if probe.PlanoID != "" && probe.Status != "" {
		h.closePlan(w, r, raw)
		return
	}

	var in plan.CreateInput
	if err := json.Unmarshal(raw, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	res, err := h.plans.Create(r.Context(), in)
	if err != nil {
		writeStorageError(w, "write_error", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":           true,
		"type":         "created",
		"stored":       res.Stored,
		"plano_id":     res.PlanoID,
		"token":        res.Token,
		"link":         res.Link,
		"email_status": res.EmailStatus,
		"empresaID":    res.EmpresaID,
	})
}

func (h *Handler) closePlan(w http.ResponseWriter, r *http.Request, raw json.RawMessage) {
	var in plan.CloseInput
	if err := json.Unmarshal(raw, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	res, err := h.plans.Close(r.Context(), in)
	switch {
	case errors.Is(err, plan.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, "status_invalid")
	case errors.Is(err, plan.ErrNotFound):
		writeError(w, http.StatusNotFound, "plano_not_found")
	case errors.Is(err, plan.ErrForbidden):
		writeError(w, http.StatusForbidden, "token_mismatch")
	case err != nil:
		writeStorageError(w, "write_error", err)
	default:
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"ok":       true,
			"type":     "closed",
			"plano_id": res.PlanoID,
			"status":   res.Status,
			"stored":   res.Stored,
		})
	}
}

// GET /api/planos/{id}?token= — public status check.
func (h *Handler) lookupPlan(w http.ResponseWriter, r *http.Request) {
	entry, err := h.plans.Lookup(r.PathValue("id"), r.URL.Query().Get("token"))
	switch {
	case errors.Is(err, plan.ErrNotFound):
		writeError(w, http.StatusNotFound, "plano_not_found")
	case errors.Is(err, plan.ErrForbidden):
		writeError(w, http.StatusForbidden, "token_mismatch")
	case err != nil:
		writeStorageError(w, "read_error", err)
	default:
		writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "plano": entry})
	}
}

// GET /api/planos?limit= — index entries, newest first.
func (h *Handler) listPlans(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", defaultPlanListLimit)
	entries, err := h.index.Load()
	if err != nil {
		writeStorageError(w, "read_error", err)
		return
	}
	// The index is append-ordered; newest last. Reverse and cap.
	out := make([]plan.IndexEntry, 0, len(entries))
	for i := len(entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, entries[i])
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok": true, "total": len(entries), "planos": out,
	})
}

// GET /api/listar?tipo=&empresaID= — dashboard listing of one kind.
func (h *Handler) listRecords(w http.ResponseWriter, r *http.Request) {
	tipo := r.URL.Query().Get("tipo")
	if tipo == "" {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"ok": false, "error": "tipo_required", "hint": "use ?tipo=psicossocial",
		})
		return
	}
	kind, ok := record.ParseKind(tipo)
	if !ok {
		allowed := make([]string, 0, len(record.Kinds))
		for _, k := range record.Kinds {
			allowed = append(allowed, string(k))
		}
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"ok": false, "error": "tipo_invalid", "allowed": allowed,
		})
		return
	}

	items, err := h.store.List(kind, record.ListOptions{Limit: queryInt(r, "limit", 0)})
	if err != nil {
		writeStorageError(w, "read_error", err)
		return
	}

	empresaID := r.URL.Query().Get("empresaID")
	itens := make([]map[string]interface{}, 0, len(items))
	for _, it := range items {
		if empresaID != "" {
			if id, _ := it.Body["empresaID"].(string); id != empresaID {
				continue
			}
		}
		obj := make(map[string]interface{}, len(it.Body)+1)
		obj["file"] = it.File
		for k, v := range it.Body {
			obj[k] = v
		}
		itens = append(itens, obj)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":        true,
		"tipo":      tipo,
		"empresaID": orNil(empresaID),
		"total":     len(itens),
		"itens":     itens,
	})
}

// GET /api/respostas?form=&limit= — newest survey answers for the charts.
func (h *Handler) listRespostas(w http.ResponseWriter, r *http.Request) {
	form := r.URL.Query().Get("form")
	items, err := summary.Respostas(h.store, form, queryInt(r, "limit", 0))
	if err != nil {
		var unknown summary.ErrUnknownForm
		if errors.As(err, &unknown) {
			writeError(w, http.StatusBadRequest, "form_invalid")
			return
		}
		writeStorageError(w, "read_error", err)
		return
	}
	itens := make([]map[string]interface{}, 0, len(items))
	for _, it := range items {
		itens = append(itens, it.Body)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok": true, "form": form, "total": len(itens), "itens": itens,
	})
}

// GET /api/summary — counts and averages over everything stored.
func (h *Handler) overview(w http.ResponseWriter, r *http.Request) {
	ov, err := summary.Build(h.store, h.index)
	if err != nil {
		writeStorageError(w, "read_error", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "summary": ov})
}

// GET /healthz — liveness probe.
func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func orNil(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
