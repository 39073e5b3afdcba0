package mail

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/xavierca1/ligue-pipeline/internal/infra/logger"
	"github.com/xavierca1/ligue-pipeline/internal/usecase"
)

// Dialer é o pedaço do gomail.Dialer usado para enviar.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// AlertNotifier manda por e-mail as notificações de erro do quadro.
// Sucesso e aviso não geram e-mail.
type AlertNotifier struct {
	Dialer Dialer
	From   string
	To     string
	Log    *logger.Logger
}

func NewAlertNotifier(host string, port int, user, password, to string, log *logger.Logger) *AlertNotifier {
	if log == nil {
		log = logger.Nop()
	}
	return &AlertNotifier{
		Dialer: gomail.NewDialer(host, port, user, password),
		From:   "nao-responda@ligueclinica.com",
		To:     to,
		Log:    log.With("service", "AlertNotifier"),
	}
}

func (s *AlertNotifier) Notify(ctx context.Context, n usecase.Notification) {
	if n.Level != usecase.LevelError {
		return
	}
	// o envio SMTP é lento e não pode segurar o reload
	go func() {
		if err := s.send(n); err != nil {
			s.Log.Warn("falha ao enviar alerta por e-mail", "title", n.Title, "error", err)
		}
	}()
}

func (s *AlertNotifier) send(n usecase.Notification) error {
	m := BuildAlertMessage(s.From, s.To, n)
	if err := s.Dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("erro ao enviar email SMTP: %w", err)
	}
	return nil
}

func BuildAlertMessage(from, to string, n usecase.Notification) *gomail.Message {
	at := n.At
	if at.IsZero() {
		at = time.Now()
	}

	var body strings.Builder
	fmt.Fprintf(&body, "%s\n\n", n.Message)
	fmt.Fprintf(&body, "Ocorrido em: %s\n", at.Format("02/01/2006 15:04:05"))

	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", "[Funil] "+n.Title)
	m.SetBody("text/plain", body.String())
	return m
}
