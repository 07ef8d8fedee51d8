package email

import (
	"context"
	"errors"
	"net/smtp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/the-code-crafters-hackathon/worker-service/internal/domain/entity"
	"go.uber.org/zap"
)

func TestSMTPNotifierSends(t *testing.T) {
	var gotAddr string
	var gotMsg []byte
	n := NewSMTPNotifier("mail.local", 1025, "worker@local", []string{"ops@local"}, zap.NewNop())
	n.send = func(addr string, _ smtp.Auth, _ string, _ []string, msg []byte) error {
		gotAddr = addr
		gotMsg = msg
		return nil
	}

	userID := int64(3)
	sent, err := n.NotifyFailure(context.Background(), entity.FailureNotice{VideoID: 11, UserID: &userID, Error: "ffmpeg exit 1"})
	require.NoError(t, err)
	assert.True(t, sent)
	assert.Equal(t, "mail.local:1025", gotAddr)
	assert.Contains(t, string(gotMsg), "Subject: Video processing failed\r\n")
	assert.Contains(t, string(gotMsg), "Video ID: 11\r\n")
	assert.Contains(t, string(gotMsg), "User: 3\r\n")
}

func TestSMTPNotifierDisabled(t *testing.T) {
	n := NewSMTPNotifier("", 25, "worker@local", nil, zap.NewNop())
	n.send = func(string, smtp.Auth, string, []string, []byte) error {
		t.Fatal("send must not be called")
		return nil
	}

	sent, err := n.NotifyFailure(context.Background(), entity.FailureNotice{VideoID: 1})
	require.NoError(t, err)
	assert.False(t, sent)
}

func TestSMTPNotifierSendError(t *testing.T) {
	n := NewSMTPNotifier("mail.local", 25, "worker@local", []string{"ops@local"}, zap.NewNop())
	n.send = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("connection refused") }

	sent, err := n.NotifyFailure(context.Background(), entity.FailureNotice{VideoID: 1})
	assert.Error(t, err)
	assert.False(t, sent)
}
