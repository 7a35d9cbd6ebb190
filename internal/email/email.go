// Package email sends the "new booking" notice to the company a booking was
// made with.
package email

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/Domenick1991/paraglide/config"
	"github.com/Domenick1991/paraglide/internal/domain"
	"github.com/Domenick1991/paraglide/internal/i18n"
	"github.com/Domenick1991/paraglide/internal/repository"
	"go.uber.org/zap"
)

type Notice struct {
	BookingID string `json:"booking_id"`
	CompanyID string `json:"company_id"`
	From      string `json:"from"`
	To        string `json:"to"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
}

type Sender interface {
	Send(ctx context.Context, n Notice) error
}

type CompanyLookup interface {
	GetByID(ctx context.Context, id string) (*domain.Company, error)
}

type Notifier struct {
	companies CompanyLookup
	sender    Sender
	from      string
	locale    domain.Locale
	logger    *zap.Logger
}

func NewNotifier(companies CompanyLookup, sender Sender, from string, locale domain.Locale, logger *zap.Logger) *Notifier {
	return &Notifier{companies: companies, sender: sender, from: from, locale: locale, logger: logger}
}

// Handle sends a notice for a booking insert. Other events, bookings without
// a company and companies without an e-mail address are skipped.
func (n *Notifier) Handle(ctx context.Context, ev domain.ChangeEvent) error {
	if ev.Kind != domain.ChangeInsert || ev.Table != domain.TableBookings {
		return nil
	}
	companyID := ev.CompanyID()
	if companyID == "" {
		return nil
	}

	company, err := n.companies.GetByID(ctx, companyID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			n.logger.Warn("booking for unknown company", zap.String("booking_id", ev.Row.ID), zap.String("company_id", companyID))
			return nil
		}
		return fmt.Errorf("load company: %w", err)
	}
	if company.Email == "" {
		n.logger.Debug("company has no e-mail, skipping notice", zap.String("company_id", companyID))
		return nil
	}

	notice := n.compose(company, ev.Row)
	if err := n.sender.Send(ctx, notice); err != nil {
		return fmt.Errorf("send notice: %w", err)
	}
	n.logger.Info("new booking notice sent",
		zap.String("booking_id", ev.Row.ID),
		zap.String("company_id", companyID),
		zap.String("to", company.Email))
	return nil
}

func (n *Notifier) compose(company *domain.Company, b domain.Booking) Notice {
	var body strings.Builder
	fmt.Fprintf(&body, "%s\r\n\r\n", i18n.Text(n.locale, i18n.NewBooking, b.CustomerName))
	fmt.Fprintf(&body, "Phone: %s\r\n", b.Phone)
	fmt.Fprintf(&body, "Date: %s\r\n", b.SelectedDate)
	fmt.Fprintf(&body, "People: %d\r\n", b.People)
	if b.FlightTypeName != "" {
		fmt.Fprintf(&body, "Flight: %s\r\n", b.FlightTypeName)
	}
	fmt.Fprintf(&body, "Total: %.2f %s\r\n", b.TotalPrice, b.Currency)
	if b.SpecialRequest != "" {
		fmt.Fprintf(&body, "Request: %s\r\n", b.SpecialRequest)
	}

	return Notice{
		BookingID: b.ID,
		CompanyID: company.ID,
		From:      n.from,
		To:        company.Email,
		Subject:   i18n.Text(n.locale, i18n.NewBooking, b.CustomerName),
		Body:      body.String(),
	}
}

// SMTPSender delivers notices with PLAIN auth.
type SMTPSender struct {
	addr string
	auth smtp.Auth
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &SMTPSender{
		addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		auth: auth,
		send: smtp.SendMail,
	}
}

func (s *SMTPSender) Send(_ context.Context, n Notice) error {
	return s.send(s.addr, s.auth, n.From, []string{n.To}, buildMessage(n))
}

func buildMessage(n Notice) []byte {
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", headerValue(n.From))
	fmt.Fprintf(&msg, "To: %s\r\n", headerValue(n.To))
	fmt.Fprintf(&msg, "Subject: %s\r\n", headerValue(n.Subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(n.Body)
	return []byte(msg.String())
}

// headerValue folds line breaks into spaces so a value cannot start a new
// header line.
func headerValue(v string) string {
	return strings.Join(strings.FieldsFunc(v, func(r rune) bool { return r == '\r' || r == '\n' }), " ")
}

type Publisher interface {
	PublishWithRetry(ctx context.Context, topic, key string, payload interface{}, maxRetries int) error
}

// TopicSender hands notices to an external mailer through a topic.
type TopicSender struct {
	publisher  Publisher
	topic      string
	maxRetries int
}

func NewTopicSender(publisher Publisher, topic string, maxRetries int) *TopicSender {
	return &TopicSender{publisher: publisher, topic: topic, maxRetries: maxRetries}
}

func (s *TopicSender) Send(ctx context.Context, n Notice) error {
	return s.publisher.PublishWithRetry(ctx, s.topic, n.CompanyID, n, s.maxRetries)
}
