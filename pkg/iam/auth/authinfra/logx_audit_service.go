package authinfra

import (
	"context"
	"time"

	"github.com/Abraxas-365/keygate/pkg/iam/auth"
	"github.com/Abraxas-365/keygate/pkg/kernel"
	"github.com/Abraxas-365/keygate/pkg/logx"
)

// LogxAuditService implements auth.AuditService using structured logx logging.
type LogxAuditService struct {
	now func() time.Time
}

func NewLogxAuditService() *LogxAuditService {
	return &LogxAuditService{now: time.Now}
}

func (s *LogxAuditService) LogSignIn(_ context.Context, grantType string, accountID kernel.AccountID, success bool, ip string, userAgent string) {
	s.log(auth.Event{
		Type:      auth.EventSignIn,
		AccountID: accountID,
		GrantType: grantType,
		Success:   success,
		IP:        ip,
		UserAgent: userAgent,
	}, "Audit: sign in")
}

func (s *LogxAuditService) LogSignOut(_ context.Context, accountID kernel.AccountID, sessionID kernel.SessionID, all bool, ip string) {
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
	s.log(event, "Audit: sign out")
}

func (s *LogxAuditService) LogSignUp(_ context.Context, accountID kernel.AccountID, success bool, ip string) {
	s.log(auth.Event{
		Type:      auth.EventSignUp,
		AccountID: accountID,
		Success:   success,
		IP:        ip,
	}, "Audit: sign up")
}

func (s *LogxAuditService) LogCodeIssued(_ context.Context, accountID kernel.AccountID, ip string) {
	s.log(auth.Event{
		Type:      auth.EventCodeIssued,
		AccountID: accountID,
		Success:   true,
		IP:        ip,
	}, "Audit: authorization code issued")
}

func (s *LogxAuditService) log(event auth.Event, msg string) {
	fields := logx.Fields{
		"audit_event": event.Type,
		"success":     event.Success,
		"ip":          event.IP,
		"timestamp":   s.now(),
	}
	if !event.AccountID.IsEmpty() {
		fields["account_id"] = event.AccountID
	}
	if !event.SessionID.IsEmpty() {
		fields["session_id"] = event.SessionID
	}
	if event.GrantType != "" {
		fields["grant_type"] = event.GrantType
	}
	if event.UserAgent != "" {
		fields["user_agent"] = event.UserAgent
	}
	logx.WithFields(fields).Info(msg)
}
