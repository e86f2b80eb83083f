package notification

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/forest-guardian/sentinel-scl/internal/properties"
)

type DiscordMessage struct {
	Embeds []DiscordEmbed `json:"embeds"`
}

type DiscordEmbed struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Color       int    `json:"color"`
}

// SendDiscordErrorNotification posts a failed run summary. It is a no-op when
// DISCORD_ERROR_NOTIFICATION_URL is unset.
func SendDiscordErrorNotification(errorMessage string) error {
	return sendDiscord(properties.DiscordErrorNotificationUrl(), DiscordEmbed{
		Title:       "🚨 SCL pipeline failed",
		Description: errorMessage,
		Color:       16711680, // Red color
	})
}

// SendDiscordSuccessNotification posts a completed run summary. It is a no-op
// when DISCORD_SUCCESS_NOTIFICATION_URL is unset.
func SendDiscordSuccessNotification(successMessage string) error {
	return sendDiscord(properties.DiscordSuccessNotificationUrl(), DiscordEmbed{
		Title:       "✅ SCL pipeline finished",
		Description: successMessage,
		Color:       65280, // Green color
	})
}

func sendDiscord(url string, embed DiscordEmbed) error {
	if url == "" {
		return nil
	}

	payload, err := json.Marshal(DiscordMessage{Embeds: []DiscordEmbed{embed}})
	if err != nil {
		return err
	}

	resp, err := http.Post(url, "application/json", bytes.NewBuffer(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to send Discord notification, status code: %d", resp.StatusCode)
	}

	return nil
}
