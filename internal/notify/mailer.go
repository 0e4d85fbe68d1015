// Package notify delivers the action-plan access link to the responsible
// party by email. Delivery is best effort: a missing transport or a send
// failure degrades to an advisory outcome, never to an error on the
// request path that triggered it.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/wneessen/go-mail"

	"github.com/safetytechsc/radar360-api/internal/config"
	"github.com/safetytechsc/radar360-api/internal/metrics"
)

// Request carries everything the email template needs.
type Request struct {
	To        string
	EmpresaID string
	Origem    string
	Secao     string
	Indicador string
	Unidade   string
	RefMes    string
	Link      string
	FrontBase string
	PlanoID   string
	Token     string
}

// Outcome is the advisory delivery result reported back to the caller.
type Outcome struct {
	Status    string // "sent", "skipped" or "failed"
	MessageID string
	Reason    string
}

func Sent(id string) Outcome        { return Outcome{Status: "sent", MessageID: id} }
func Skipped(reason string) Outcome { return Outcome{Status: "skipped", Reason: reason} }
func Failed(reason string) Outcome  { return Outcome{Status: "failed", Reason: reason} }

// Label renders the outcome as the wire string clients see:
// "sent", "skipped", or "failed:<reason>".
func (o Outcome) Label() string {
	if o.Status == "failed" {
		return "failed:" + o.Reason
	}
	return o.Status
}

// Mailer sends plan-assignment emails over SMTP. It reads the transport
// settings from the config loader on every send, so rotated credentials
// take effect without a restart.
type Mailer struct {
	loader *config.Loader
	log    *slog.Logger
}

func NewMailer(loader *config.Loader, log *slog.Logger) *Mailer {
	if log == nil {
		log = slog.Default()
	}
	return &Mailer{loader: loader, log: log}
}

// Send delivers the plan link. It never returns an error: any transport
// problem is folded into the Outcome.
func (m *Mailer) Send(ctx context.Context, req Request) Outcome {
	smtp := m.loader.Config().SMTP
	if !smtp.Configured() {
		metrics.EmailOutcomes.WithLabelValues("skipped").Inc()
		return Skipped("not configured")
	}
	if req.To == "" {
		metrics.EmailOutcomes.WithLabelValues("skipped").Inc()
		return Skipped("no recipient")
	}

	msg := mail.NewMsg()
	if err := msg.From(smtp.From); err != nil {
		return m.failed(fmt.Sprintf("invalid from address: %s", err))
	}
	if err := msg.To(req.To); err != nil {
		return m.failed(fmt.Sprintf("invalid recipient: %s", err))
	}
	id := uuid.New().String()
	msg.SetMessageIDWithValue(id)
	msg.Subject(subject(req))

	body, err := renderBody(req)
	if err != nil {
		return m.failed(fmt.Sprintf("render body: %s", err))
	}
	msg.SetBodyString(mail.TypeTextHTML, body)

	opts := []mail.Option{
		mail.WithPort(smtp.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(smtp.User),
		mail.WithPassword(smtp.Pass),
	}
	if smtp.Port == 465 {
		opts = append(opts, mail.WithSSL())
	}
	client, err := mail.NewClient(smtp.Host, opts...)
	if err != nil {
		return m.failed(err.Error())
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return m.failed(err.Error())
	}

	metrics.EmailOutcomes.WithLabelValues("sent").Inc()
	m.log.Info("plan email sent", "to", req.To, "plano_id", req.PlanoID, "message_id", id)
	return Sent(id)
}

func (m *Mailer) failed(reason string) Outcome {
	metrics.EmailOutcomes.WithLabelValues("failed").Inc()
	m.log.Error("plan email failed", "reason", reason)
	return Failed(reason)
}

func subject(req Request) string {
	origem := req.Origem
	if origem == "" {
		origem = "Radar 360"
	}
	return strings.TrimSpace(fmt.Sprintf("Plano de Ação • %s • %s", origem, req.Unidade))
}

var bodyTmpl = template.Must(template.New("plan-email").Parse(`
<div style="font-family:system-ui,Segoe UI,Roboto,Arial">
  <h2>Plano de Ação atribuído</h2>
  <p><b>Empresa:</b> {{or .EmpresaID "-"}}<br/>
     <b>Origem:</b> {{or .Origem "-"}}<br/>
     <b>Seção:</b> {{or .Secao "-"}}<br/>
     <b>Indicador:</b> {{or .Indicador "-"}}<br/>
     <b>Unidade:</b> {{or .Unidade "-"}}<br/>
     {{if .RefMes}}<b>Referência:</b> {{.RefMes}}<br/>{{end}}
  </p>
  <p>Clique para abrir e concluir (anexe evidência ao finalizar):<br/>
    <a href="{{.Link}}" target="_blank">{{.Link}}</a>
  </p>
  <hr/>
  <p style="font-size:12px;color:#666">
    Se o link acima não abrir, copie e cole no navegador.<br/>
    Também funciona em: {{.FrontBase}}/radar-acao.html#plano_id={{.PlanoID}}&amp;token={{.Token}}
  </p>
</div>
`))

func renderBody(req Request) (string, error) {
	var buf bytes.Buffer
	if err := bodyTmpl.Execute(&buf, req); err != nil {
		return "", err
	}
	return buf.String(), nil
}
