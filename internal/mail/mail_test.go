package mail

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestResetLink(t *testing.T) {
	assert.Equal(t, "http://localhost:8080/reset-password?token=abc123",
		ResetLink("http://localhost:8080/", "abc123"))
	assert.Equal(t, "https://example.com/reset-password?token=a%26b",
		ResetLink("https://example.com", "a&b"))
}

func TestPasswordReset_EscapesInterpolatedValues(t *testing.T) {
	msg := PasswordReset("<b>eve</b>@example.com", "http://x/reset-password?token=1&a=2")

	assert.Equal(t, "<b>eve</b>@example.com", msg.To)
	assert.Contains(t, msg.HTML, "&lt;b&gt;eve&lt;/b&gt;@example.com")
	assert.NotContains(t, msg.HTML, "<b>eve")
	assert.Contains(t, msg.HTML, `href="http://x/reset-password?token=1&amp;a=2"`)
}

func TestLogSender(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	s := NewLogSender(zap.New(core))

	require.NoError(t, s.Send(context.Background(), Message{To: "a@example.com", Subject: "hi", HTML: "<p>x</p>"}))

	entries := logs.FilterMessage("simulated email").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "a@example.com", entries[0].ContextMap()["to"])
}
