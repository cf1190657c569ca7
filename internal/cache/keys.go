package cache

import (
	"fmt"

	"github.com/google/uuid"
)

// UploadNotificationsChannel carries upload job terminal-status notifications.
const UploadNotificationsChannel = "notifications:uploads"

func ReviewKey(reviewID uuid.UUID) string {
	return fmt.Sprintf("review:%s", reviewID)
}

// ReviewConfirmKey marks a review whose import is in flight.
func ReviewConfirmKey(reviewID uuid.UUID) string {
	return fmt.Sprintf("review:%s:confirm", reviewID)
}

func RateLimitKey(keyPrefix string) string {
	return fmt.Sprintf("ratelimit:%s", keyPrefix)
}
