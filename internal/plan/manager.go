package plan

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/safetytechsc/radar360-api/internal/config"
	"github.com/safetytechsc/radar360-api/internal/metrics"
	"github.com/safetytechsc/radar360-api/internal/notify"
	"github.com/safetytechsc/radar360-api/internal/record"
)

// Notifier delivers the access link to the responsible party. Its outcome
// is advisory; implementations never return an error.
type Notifier interface {
	Send(ctx context.Context, req notify.Request) notify.Outcome
}

// Manager runs the plan lifecycle: it generates ids and tokens, persists
// full records, keeps the index in sync and triggers notification.
type Manager struct {
	store    *record.Store
	index    *Index
	notifier Notifier
	loader   *config.Loader
	log      *slog.Logger
}

func NewManager(store *record.Store, index *Index, notifier Notifier, loader *config.Loader, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{store: store, index: index, notifier: notifier, loader: loader, log: log}
}

// Create persists a new plan, indexes it and dispatches the email. Email
// failure never fails the creation; it only shows up in EmailStatus.
func (m *Manager) Create(ctx context.Context, in CreateInput) (*CreateResult, error) {
	cfg := m.loader.Config()
	now := time.Now().UTC()

	id, err := NewID(now)
	if err != nil {
		return nil, err
	}
	token, err := NewToken()
	if err != nil {
		return nil, err
	}

	tenant := in.EmpresaID
	if tenant == "" {
		tenant = cfg.DefaultTenant
	}
	prioridade := in.Prioridade
	if prioridade == "" {
		prioridade = "Alta"
	}
	criadoEm := now.Format("2006-01-02T15:04:05.000Z07:00")

	rec := Record{
		PlanoID:          id,
		Token:            token,
		CriadoEm:         criadoEm,
		EmpresaID:        strPtr(tenant),
		Origem:           strPtr(in.Origem),
		Secao:            strPtr(in.Secao),
		Indicador:        strPtr(in.Indicador),
		Unidade:          strPtr(in.Unidade),
		RefMes:           strPtr(in.RefMes),
		ResponsavelNome:  strPtr(in.ResponsavelNome),
		ResponsavelEmail: strPtr(in.ResponsavelEmail),
		Prazo:            strPtr(in.Prazo),
		Prioridade:       prioridade,
		Acao:             strPtr(in.Acao),
		Status:           StatusOpen,
	}

	stored, err := m.store.Save(record.KindPlano, rec)
	if err != nil {
		return nil, err
	}
	entry := IndexEntry{
		PlanoID:          rec.PlanoID,
		Token:            rec.Token,
		CriadoEm:         rec.CriadoEm,
		EmpresaID:        rec.EmpresaID,
		Origem:           rec.Origem,
		Secao:            rec.Secao,
		Indicador:        rec.Indicador,
		Unidade:          rec.Unidade,
		RefMes:           rec.RefMes,
		ResponsavelNome:  rec.ResponsavelNome,
		ResponsavelEmail: rec.ResponsavelEmail,
		Status:           rec.Status,
	}
	if err := m.index.Append(entry); err != nil {
		return nil, err
	}
	metrics.PlansCreated.Inc()

	link := BuildLink(cfg.FrontBase, id, token)
	outcome := m.notifier.Send(ctx, notify.Request{
		To:        in.ResponsavelEmail,
		EmpresaID: tenant,
		Origem:    in.Origem,
		Secao:     in.Secao,
		Indicador: in.Indicador,
		Unidade:   in.Unidade,
		RefMes:    in.RefMes,
		Link:      link,
		FrontBase: cfg.FrontBase,
		PlanoID:   id,
		Token:     token,
	})

	m.log.Info("plan created",
		"plano_id", id, "empresaID", tenant, "origem", in.Origem,
		"email_status", outcome.Label())

	return &CreateResult{
		PlanoID:     id,
		Token:       token,
		Link:        link,
		Stored:      stored,
		EmpresaID:   tenant,
		EmailStatus: outcome.Label(),
	}, nil
}

// Close records the closure of an existing plan. The original record is
// left untouched: a close event is appended and the index entry's status
// is updated in place. A token, when supplied, must match.
func (m *Manager) Close(_ context.Context, in CloseInput) (*CloseResult, error) {
	if !IsCloseStatus(in.Status) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, in.Status)
	}
	entry, ok, err := m.index.FindByID(in.PlanoID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	if in.Token != "" && in.Token != entry.Token {
		return nil, ErrForbidden
	}

	ev := CloseEvent{
		PlanoID:    in.PlanoID,
		FechadoEm:  time.Now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		Status:     StatusClosed,
		Comentario: strPtr(in.Comentario),
		Evidencia:  strPtr(in.Evidencia),
	}
	stored, err := m.store.Save(record.KindPlanoClose, ev)
	if err != nil {
		return nil, err
	}
	if err := m.index.SetStatus(in.PlanoID, StatusClosed); err != nil {
		return nil, err
	}
	metrics.PlansClosed.Inc()
	m.log.Info("plan closed", "plano_id", in.PlanoID)

	return &CloseResult{PlanoID: in.PlanoID, Stored: stored, Status: StatusClosed}, nil
}

// Lookup returns the index entry for id. The token is optional; when
// supplied it must equal the stored one exactly.
func (m *Manager) Lookup(id, token string) (IndexEntry, error) {
	entry, ok, err := m.index.FindByID(id)
	if err != nil {
		return IndexEntry{}, err
	}
	if !ok {
		return IndexEntry{}, ErrNotFound
	}
	if token != "" && token != entry.Token {
		return IndexEntry{}, ErrForbidden
	}
	return entry, nil
}

// NewID generates a plan identifier: "PA-" + the timestamp in filename
// form + 3 random bytes in hex.
func NewID(t time.Time) (string, error) {
	suffix := make([]byte, 3)
	if _, err := rand.Read(suffix); err != nil {
		return "", fmt.Errorf("generate plan id: %w", err)
	}
	return fmt.Sprintf("PA-%s-%s", record.FileTimestamp(t), hex.EncodeToString(suffix)), nil
}

// NewToken generates the plan access token: 16 random bytes, hex encoded.
func NewToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// BuildLink assembles the public form URL carrying the plan id and token.
func BuildLink(frontBase, id, token string) string {
	return fmt.Sprintf("%s/radar-acao.html?plano_id=%s&token=%s",
		frontBase, url.QueryEscape(id), url.QueryEscape(token))
}
