// Package survey normalizes raw form submissions before they hit the
// record store. Payloads are schemaless by design; normalization only
// guarantees the tenant id and, for Safety Voice, the record shape the
// dashboard expects.
package survey

import "time"

// EnsureTenant injects the tenant id into body when the caller omitted
// it, and reports the effective tenant. A nil body is treated as empty.
func EnsureTenant(body map[string]interface{}, defaultTenant string) (map[string]interface{}, string) {
	if body == nil {
		body = map[string]interface{}{}
	}
	tenant := stringField(body, "empresaID")
	if tenant == "" {
		tenant = defaultTenant
		body["empresaID"] = tenant
	}
	return body, tenant
}

// VoiceMeta locates a voice report in time and place.
type VoiceMeta struct {
	Unidade *string `json:"unidade"`
	RefMes  string  `json:"ref_mes"`
}

// VoiceRecord is the persisted shape of an anonymous Safety Voice report.
type VoiceRecord struct {
	EmpresaID  string    `json:"empresaID"`
	CriadoEm   string    `json:"criado_em"`
	Meta       VoiceMeta `json:"meta"`
	Tipo       string    `json:"tipo"`
	Categoria  string    `json:"categoria"`
	Descricao  *string   `json:"descricao"`
	ElogioPara *string   `json:"elogio_para"`
	Origem     string    `json:"origem"`
	Status     string    `json:"status"`
	VirouPlano bool      `json:"virou_plano"`
	PlanoID    *string   `json:"plano_id"`
}

// NormalizeVoice builds the canonical voice record from an arbitrary
// submission. Meta fields may arrive nested under "meta" or at the top
// level; the reference month falls back to the current YYYY-MM.
func NormalizeVoice(body map[string]interface{}, now time.Time, defaultTenant string) VoiceRecord {
	body, tenant := EnsureTenant(body, defaultTenant)
	criadoEm := now.UTC().Format("2006-01-02T15:04:05.000Z07:00")

	meta, _ := body["meta"].(map[string]interface{})
	unidade := stringField(meta, "unidade")
	if unidade == "" {
		unidade = stringField(body, "unidade")
	}
	refMes := stringField(meta, "ref_mes")
	if refMes == "" {
		refMes = stringField(body, "ref_mes")
	}
	if refMes == "" {
		refMes = criadoEm[:7]
	}

	rec := VoiceRecord{
		EmpresaID:  tenant,
		CriadoEm:   criadoEm,
		Meta:       VoiceMeta{Unidade: optional(unidade), RefMes: refMes},
		Tipo:       withDefault(stringField(body, "tipo"), "Nao informado"),
		Categoria:  withDefault(stringField(body, "categoria"), "Não classificado"),
		Descricao:  optional(stringField(body, "descricao")),
		ElogioPara: optional(stringField(body, "elogio_para")),
		Origem:     "Safety Voice",
		Status:     withDefault(stringField(body, "status"), "ABERTO"),
		PlanoID:    optional(stringField(body, "plano_id")),
	}
	if v, ok := body["virou_plano"].(bool); ok {
		rec.VirouPlano = v
	}
	return rec
}

func stringField(m map[string]interface{}, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

func withDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
