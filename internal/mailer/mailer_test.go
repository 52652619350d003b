package mailer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/library/internal/config"
)

func TestNewSMTPMailer_RequiresConfiguration(t *testing.T) {
	_, err := NewSMTPMailer(config.SMTP{Port: 587})
	assert.True(t, errors.Is(err, ErrNotConfigured))

	_, err = NewSMTPMailer(config.SMTP{Host: "smtp.example.com", Port: 587})
	assert.True(t, errors.Is(err, ErrNotConfigured))
}

func TestSMTPMailer_ClientOptions(t *testing.T) {
	m, err := NewSMTPMailer(config.SMTP{Host: "smtp.example.com", Port: 587, From: "library@example.com", SendTimeout: time.Second})
	require.NoError(t, err)
	assert.Len(t, m.clientOptions(), 3)

	m.username = "user"
	m.password = "secret"
	assert.Len(t, m.clientOptions(), 6)
}

func TestSMTPMailer_RejectsInvalidRecipient(t *testing.T) {
	m, err := NewSMTPMailer(config.SMTP{Host: "smtp.example.com", Port: 587, From: "library@example.com"})
	require.NoError(t, err)

	err = m.Send(context.Background(), Message{To: "not an address", Subject: "x", Body: "y"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid recipient")
}
