package notifications

import "github.com/launchwatch/launchcoin-feed/internal/models"

// NotificationInterface defines the contract for notification services
type NotificationInterface interface {
	SendDigest(digest *models.Digest) error
}
