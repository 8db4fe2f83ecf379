package authinfra

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Abraxas-365/keygate/pkg/errx"
	"github.com/Abraxas-365/keygate/pkg/iam/auth"
	"github.com/Abraxas-365/keygate/pkg/kernel"
	"github.com/Abraxas-365/keygate/pkg/logx"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher es la parte de *amqp.Channel que usa el servicio de auditoría
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPAuditService publica cada evento de auditoría como mensaje JSON
// persistente en una cola durable
type AMQPAuditService struct {
	publisher Publisher
	queue     string
	timeout   time.Duration
	now       func() time.Time
}

func NewAMQPAuditService(publisher Publisher, queue string) *AMQPAuditService {
	return &AMQPAuditService{
		publisher: publisher,
		queue:     queue,
		timeout:   5 * time.Second,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// DialAMQPAudit abre la conexión, declara la cola y devuelve el servicio junto
// con una función para cerrar los recursos
func DialAMQPAudit(url, queue string) (*AMQPAuditService, func() error, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, errx.Wrap(err, "failed to dial audit broker", errx.TypeExternal)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, errx.Wrap(err, "failed to open audit channel", errx.TypeExternal)
	}

	if _, err := ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,   // args
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, nil, errx.Wrap(err, "failed to declare audit queue", errx.TypeExternal)
	}

	closeFn := func() error {
		_ = ch.Close()
		return conn.Close()
	}
	return NewAMQPAuditService(ch, queue), closeFn, nil
}

func (s *AMQPAuditService) LogSignIn(ctx context.Context, grantType string, accountID kernel.AccountID, success bool, ip string, userAgent string) {
	s.publish(ctx, auth.Event{
		Type:      auth.EventSignIn,
		AccountID: accountID,
		GrantType: grantType,
		Success:   success,
		IP:        ip,
		UserAgent: userAgent,
	})
}

func (s *AMQPAuditService) LogSignOut(ctx context.Context, accountID kernel.AccountID, sessionID kernel.SessionID, all bool, ip string) {
	event := auth.Event{
		Type:      auth.EventSignOut,
		AccountID: accountID,
		SessionID: sessionID,
		Success:   true,
		IP:        ip,
	}
	if all {
		event.Type = auth.EventSignOutAll
	}
	s.publish(ctx, event)
}

func (s *AMQPAuditService) LogSignUp(ctx context.Context, accountID kernel.AccountID, success bool, ip string) {
	s.publish(ctx, auth.Event{
		Type:      auth.EventSignUp,
		AccountID: accountID,
		Success:   success,
		IP:        ip,
	})
}

func (s *AMQPAuditService) LogCodeIssued(ctx context.Context, accountID kernel.AccountID, ip string) {
	s.publish(ctx, auth.Event{
		Type:      auth.EventCodeIssued,
		AccountID: accountID,
		Success:   true,
		IP:        ip,
	})
}

// publish never fails the request; broker errors are logged.
func (s *AMQPAuditService) publish(ctx context.Context, event auth.Event) {
	event.Timestamp = s.now()

	body, err := json.Marshal(event)
	if err != nil {
		logx.WithError(err).Error("Failed to encode audit event")
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	err = s.publisher.PublishWithContext(ctx,
		"",      // default exchange
		s.queue, // routing key = queue name
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    event.Timestamp,
			Type:         string(event.Type),
			Body:         body,
		},
	)
	if err != nil {
		logx.WithFields(logx.Fields{
			"audit_event": event.Type,
			"queue":       s.queue,
		}).WithError(err).Warn("Failed to publish audit event")
	}
}
