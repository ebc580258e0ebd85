package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"

	"github.com/wolfman30/trading-academy/internal/observability/metrics"
	"github.com/wolfman30/trading-academy/pkg/logging"
)

// Email kinds, used as the metrics label.
const (
	KindWelcome = "welcome"
	KindGuide   = "guide"
	KindSupport = "support"
)

// WelcomeEmail is sent after an account is provisioned. TempPassword is
// empty for an existing member whose license was upgraded.
type WelcomeEmail struct {
	To           string
	Name         string
	Tier         string
	TempPassword string
}

// Mailer renders the transactional emails and hands them to an EmailSender.
type Mailer struct {
	sender   EmailSender
	loginURL string
	metrics  *metrics.Metrics
	logger   *logging.Logger
}

func NewMailer(sender EmailSender, loginURL string, m *metrics.Metrics, logger *logging.Logger) *Mailer {
	if logger == nil {
		logger = logging.Default()
	}
	if sender == nil {
		sender = NewStubEmailSender(logger)
	}
	return &Mailer{sender: sender, loginURL: loginURL, metrics: m, logger: logger}
}

var welcomeHTML = template.Must(template.New("welcome").Parse(`<p>Bonjour {{.Name}},</p>
<p>Merci pour votre achat ! Votre accès <strong>{{.Tier}}</strong> est actif.</p>
{{if .TempPassword}}<p>Identifiant : {{.To}}<br>Mot de passe temporaire : <code>{{.TempPassword}}</code></p>
<p>Pensez à le modifier après votre première connexion.</p>{{end}}
<p><a href="{{.LoginURL}}">Accéder à mon espace</a></p>`))

func (m *Mailer) SendWelcome(ctx context.Context, w WelcomeEmail) error {
	name := strings.TrimSpace(w.Name)
	if name == "" {
		name = "et bienvenue"
	}
	tier := strings.ToUpper(w.Tier)

	var text strings.Builder
	fmt.Fprintf(&text, "Bonjour %s,\n\nMerci pour votre achat ! Votre accès %s est actif.\n", name, tier)
	if w.TempPassword != "" {
		fmt.Fprintf(&text, "\nIdentifiant : %s\nMot de passe temporaire : %s\nPensez à le modifier après votre première connexion.\n", w.To, w.TempPassword)
	}
	fmt.Fprintf(&text, "\nConnexion : %s\n", m.loginURL)

	var html bytes.Buffer
	if err := welcomeHTML.Execute(&html, map[string]string{
		"Name":         name,
		"Tier":         tier,
		"To":           w.To,
		"TempPassword": w.TempPassword,
		"LoginURL":     m.loginURL,
	}); err != nil {
		return fmt.Errorf("notify: render welcome: %w", err)
	}

	return m.send(ctx, KindWelcome, EmailMessage{
		To:      w.To,
		ToName:  strings.TrimSpace(w.Name),
		Subject: "Bienvenue à la Trading Academy",
		Body:    text.String(),
		HTML:    html.String(),
	})
}

// SendGuide emails the newsletter guide PDF.
func (m *Mailer) SendGuide(ctx context.Context, to, name string, pdf []byte) error {
	greeting := "Bonjour"
	if n := strings.TrimSpace(name); n != "" {
		greeting += " " + n
	}
	return m.send(ctx, KindGuide, EmailMessage{
		To:      to,
		ToName:  strings.TrimSpace(name),
		Subject: "Votre guide du trader débutant",
		Body: greeting + ",\n\nMerci pour votre inscription à la newsletter. Vous trouverez votre guide en pièce jointe.\n\n" +
			"À très vite,\nL'équipe Trading Academy\n",
		Attachments: []Attachment{{
			Filename:    "guide-trading-academy.pdf",
			ContentType: "application/pdf",
			Data:        pdf,
		}},
	})
}

// SupportNotice tells the team inbox a visitor wrote through the contact form.
type SupportNotice struct {
	Inbox   string
	From    string
	Name    string
	Subject string
	Message string
}

func (m *Mailer) SendSupportNotice(ctx context.Context, n SupportNotice) error {
	subject := strings.TrimSpace(n.Subject)
	if subject == "" {
		subject = "(sans objet)"
	}
	return m.send(ctx, KindSupport, EmailMessage{
		To:      n.Inbox,
		Subject: "[Contact] " + subject,
		Body:    fmt.Sprintf("De : %s <%s>\n\n%s\n", strings.TrimSpace(n.Name), n.From, n.Message),
	})
}

func (m *Mailer) send(ctx context.Context, kind string, msg EmailMessage) error {
	err := m.sender.Send(ctx, msg)
	m.metrics.ObserveEmail(kind, err)
	if err != nil {
		m.logger.Error("transactional email failed", "error", err, "kind", kind)
		return err
	}
	return nil
}
