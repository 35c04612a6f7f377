package email

import (
	"context"
)

// Service sends the small set of notification mails the workflow needs.
type Service interface {
	SendApprovalNotice(ctx context.Context, to, name string, role string) error
	SendRegistrationReceived(ctx context.Context, to, name string) error
}
