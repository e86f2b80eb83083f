package notification

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendDiscordSuccessNotification(t *testing.T) {
	var got DiscordMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	t.Setenv("DISCORD_SUCCESS_NOTIFICATION_URL", server.URL)
	require.NoError(t, SendDiscordSuccessNotification("map saved"))
	require.Len(t, got.Embeds, 1)
	assert.Equal(t, "map saved", got.Embeds[0].Description)
	assert.Equal(t, 65280, got.Embeds[0].Color)
}

func TestSendDiscordErrorNotificationStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	t.Setenv("DISCORD_ERROR_NOTIFICATION_URL", server.URL)
	assert.Error(t, SendDiscordErrorNotification("boom"))
}

func TestNotificationsDisabledWithoutURL(t *testing.T) {
	t.Setenv("DISCORD_ERROR_NOTIFICATION_URL", "")
	t.Setenv("DISCORD_SUCCESS_NOTIFICATION_URL", "")
	assert.NoError(t, SendDiscordErrorNotification("boom"))
	assert.NoError(t, SendDiscordSuccessNotification("ok"))
}
