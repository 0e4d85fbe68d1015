// Package plan implements the action-plan lifecycle: opaque id/token
// generation, the full per-event records, the shared summary index, and
// the open → closed transition.
package plan

import (
	"errors"
	"strings"
)

// Plan status values as persisted. The Portuguese forms are what the
// front end has always displayed.
const (
	StatusOpen   = "ABERTO"
	StatusClosed = "CONCLUIDO"
)

var (
	ErrNotFound      = errors.New("plano not found")
	ErrForbidden     = errors.New("token mismatch")
	ErrInvalidStatus = errors.New("status not accepted for close")
)

// Record is the full plan document written to the record store on
// creation. Optional fields are pointers so absent values persist as
// explicit JSON nulls, matching every earlier revision of the data files.
type Record struct {
	PlanoID          string  `json:"plano_id"`
	Token            string  `json:"token"`
	CriadoEm         string  `json:"criado_em"`
	EmpresaID        *string `json:"empresaID"`
	Origem           *string `json:"origem"`
	Secao            *string `json:"secao"`
	Indicador        *string `json:"indicador"`
	Unidade          *string `json:"unidade"`
	RefMes           *string `json:"ref_mes"`
	ResponsavelNome  *string `json:"responsavel_nome"`
	ResponsavelEmail *string `json:"responsavel_email"`
	Prazo            *string `json:"prazo"`
	Prioridade       string  `json:"prioridade"`
	Acao             *string `json:"acao"`
	Status           string  `json:"status"`
}

// CloseEvent is the separate document written when a plan is closed. The
// original record is never mutated; closure is its own event.
type CloseEvent struct {
	PlanoID    string  `json:"plano_id"`
	FechadoEm  string  `json:"fechado_em"`
	Status     string  `json:"status"`
	Comentario *string `json:"comentario"`
	Evidencia  *string `json:"evidencia"`
}

// IndexEntry is the summary kept in the shared planos_index.json array.
type IndexEntry struct {
	PlanoID          string  `json:"plano_id"`
	Token            string  `json:"token"`
	CriadoEm         string  `json:"criado_em"`
	EmpresaID        *string `json:"empresaID"`
	Origem           *string `json:"origem"`
	Secao            *string `json:"secao"`
	Indicador        *string `json:"indicador"`
	Unidade          *string `json:"unidade"`
	RefMes           *string `json:"ref_mes"`
	ResponsavelNome  *string `json:"responsavel_nome"`
	ResponsavelEmail *string `json:"responsavel_email"`
	Status           string  `json:"status"`
}

// CreateInput is the decoded create-plan request body. Empty strings mean
// the caller omitted the field; they are stored as nulls, never rejected.
type CreateInput struct {
	EmpresaID        string `json:"empresaID"`
	Origem           string `json:"origem"`
	Secao            string `json:"secao"`
	Indicador        string `json:"indicador"`
	Unidade          string `json:"unidade"`
	RefMes           string `json:"ref_mes"`
	ResponsavelNome  string `json:"responsavel_nome"`
	ResponsavelEmail string `json:"responsavel_email"`
	Prazo            string `json:"prazo"`
	Prioridade       string `json:"prioridade"`
	Acao             string `json:"acao"`
}

// CloseInput is the decoded close-plan request body.
type CloseInput struct {
	PlanoID    string `json:"plano_id"`
	Token      string `json:"token"`
	Status     string `json:"status"`
	Comentario string `json:"comentario"`
	Evidencia  string `json:"evidencia"`
}

// CreateResult is what a successful creation reports back.
type CreateResult struct {
	PlanoID     string
	Token       string
	Link        string
	Stored      string
	EmpresaID   string
	EmailStatus string
}

// CloseResult is what a successful closure reports back.
type CloseResult struct {
	PlanoID string
	Stored  string
	Status  string
}

// IsCloseStatus reports whether s names the closed state. Only the closed
// set is accepted: "CONCLUIDO" (with or without the accent, any case) or
// "CLOSED".
func IsCloseStatus(s string) bool {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CONCLUIDO", "CONCLUÍDO", "CLOSED":
		return true
	}
	return false
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
