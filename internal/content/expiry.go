package content

import "time"

// Visible reports whether an item with the given expiry is still live at now.
// This is the single authoritative expiry rule: read queries apply it
// defensively, the sweeper applies it when flipping is_visible.
func Visible(expiresAt, now time.Time) bool {
	return now.Before(expiresAt)
}
