package hass

import "context"

// NotifyService is one mobile-app notification target known to Home
// Assistant, e.g. ID "notify.mobile_app_myphone".
type NotifyService struct {
	ID   string
	Name string
}

// Client defines the outbound Home Assistant API surface the reminder uses.
// This decouples the application logic from the Supervisor HTTP transport.
type Client interface {
	// ListMobileNotifyServices returns the currently registered
	// notify.mobile_app_* services.
	ListMobileNotifyServices(ctx context.Context) ([]NotifyService, error)
	// SendNotification calls the given notify service (e.g.
	// "notify.mobile_app_myphone") with a plain message.
	SendNotification(ctx context.Context, service, message string) error
}
