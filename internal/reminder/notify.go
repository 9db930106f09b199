package reminder

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"
)

// Channel is the notification channel every medication reminder is posted to.
const Channel = "medication_channel"

// Defaults used when a reminder payload leaves a field empty.
const (
	DefaultName = "Medication"
	DefaultTime = ":NOW!!!(1 pill) "
)

// Notification is a rendered reminder.
type Notification struct {
	Channel string
	Title   string
	Body    string
}

// Compose renders the reminder for p.
func Compose(p Payload) Notification {
	name := p.MedicationName
	if name == "" {
		name = DefaultName
	}
	at := p.MedicationTime
	if at == "" {
		at = DefaultTime
	}
	return Notification{
		Channel: Channel,
		Title:   "Medication Reminder: " + name,
		Body:    "Take at " + at,
	}
}

// Notifier delivers a notification to the user.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, n Notification) error
}

var remindersFired = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "reminders_fired_total",
		Help: "Medication reminders delivered, by notifier and outcome.",
	},
	[]string{"channel", "outcome"},
)

func init() {
	prometheus.MustRegister(remindersFired)
}

// Fanout delivers to every notifier and joins their errors. A failure in one
// notifier does not stop the others.
type Fanout []Notifier

// Name implements Notifier.
func (f Fanout) Name() string {
	names := make([]string, 0, len(f))
	for _, n := range f {
		names = append(names, n.Name())
	}
	return strings.Join(names, "+")
}

// Notify implements Notifier.
func (f Fanout) Notify(ctx context.Context, n Notification) error {
	var errs []error
	for _, nt := range f {
		err := nt.Notify(ctx, n)
		outcome := "ok"
		if err != nil {
			outcome = "error"
			errs = append(errs, fmt.Errorf("%s: %w", nt.Name(), err))
		}
		remindersFired.WithLabelValues(nt.Name(), outcome).Inc()
	}
	return errors.Join(errs...)
}

// LogNotifier writes reminders to a zerolog logger.
type LogNotifier struct {
	Log zerolog.Logger
}

// Name implements Notifier.
func (LogNotifier) Name() string { return "log" }

// Notify implements Notifier.
func (l LogNotifier) Notify(_ context.Context, n Notification) error {
	l.Log.Info().
		Str("channel", n.Channel).
		Str("title", n.Title).
		Str("body", n.Body).
		Msg("reminder")
	return nil
}

// Sender sends mail messages. *gomail.Dialer satisfies it.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// MailNotifier emails reminders over SMTP.
type MailNotifier struct {
	sender Sender
	from   string
	to     []string
}

// NewMailNotifier returns a notifier that dials host:port for every reminder.
func NewMailNotifier(host string, port int, user, password, from string, to []string) *MailNotifier {
	return NewMailNotifierWithSender(gomail.NewDialer(host, port, user, password), from, to)
}

// NewMailNotifierWithSender is NewMailNotifier with an explicit transport.
func NewMailNotifierWithSender(s Sender, from string, to []string) *MailNotifier {
	return &MailNotifier{sender: s, from: from, to: to}
}

// Name implements Notifier.
func (*MailNotifier) Name() string { return "mail" }

// Notify implements Notifier.
func (m *MailNotifier) Notify(ctx context.Context, n Notification) error {
	if len(m.to) == 0 {
		return errors.New("mail notifier: no recipients")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", m.to...)
	msg.SetHeader("Subject", n.Title)
	msg.SetHeader("X-Notification-Channel", n.Channel)
	msg.SetBody("text/plain", n.Body)
	return m.sender.DialAndSend(msg)
}
