package email

import (
	"context"
	"log/slog"

	"github.com/lorrc/case-collab-backend/internal/core/ports"
)

// MockSMTPNotifier is a secondary adapter that mocks sending emails.
// It implements the ports.ContactNotifier interface.
type MockSMTPNotifier struct {
	caseRepo ports.CaseRepository
	logger   *slog.Logger
}

// NewMockSMTPNotifier creates a new mock notifier. It requires a
// CaseRepository to resolve the requester's contact details.
func NewMockSMTPNotifier(caseRepo ports.CaseRepository) ports.ContactNotifier {
	return &MockSMTPNotifier{
		caseRepo: caseRepo,
		logger:   slog.Default().With("component", "email_notifier"),
	}
}

// NewMockSMTPNotifierWithLogger creates a new mock notifier with a custom logger.
func NewMockSMTPNotifierWithLogger(caseRepo ports.CaseRepository, logger *slog.Logger) ports.ContactNotifier {
	return &MockSMTPNotifier{
		caseRepo: caseRepo,
		logger:   logger.With("component", "email_notifier"),
	}
}

// Notify logs the notification to the console instead of sending an email.
// Callers already run this off the request path; errors stay local.
func (n *MockSMTPNotifier) Notify(ctx context.Context, params ports.NotificationParams) {
	// Use a new background context in case the original request context is cancelled.
	notifyCtx := context.Background()

	c, err := n.caseRepo.GetByID(notifyCtx, params.CaseID)
	if err != nil {
		n.logger.Error("failed to get case for notification",
			"case_id", params.CaseID,
			"error", err,
		)
		return
	}

	n.logger.Info("mock email sent",
		"to_name", c.RequesterName,
		"to_email", c.RequesterEmail,
		"subject", params.Subject,
		"case_id", params.CaseID,
	)
}
