package agents

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMailer(t *testing.T) {
	_, isLog := NewMailer(SMTPConfig{}, zerolog.Nop()).(*LogMailer)
	assert.True(t, isLog)

	_, isSMTP := NewMailer(SMTPConfig{Host: "smtp.example.com", From: "talent@acme.com"}, zerolog.Nop()).(*SMTPMailer)
	assert.True(t, isSMTP)
}

func TestSMTPMailer_Send(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{Host: "smtp.example.com", From: "talent@acme.com"}, zerolog.Nop())
	assert.Equal(t, 587, m.config.Port)

	var gotTo string
	var gotMsg []byte
	m.send = func(_ context.Context, to string, msg []byte) error {
		gotTo = to
		gotMsg = msg
		return nil
	}

	ok, message := m.Send(context.Background(), "ada@example.com", "Hello", "Line one\nLine two")
	require.True(t, ok)
	assert.Equal(t, "Email sent to ada@example.com", message)
	assert.Equal(t, "ada@example.com", gotTo)

	msg := string(gotMsg)
	assert.Contains(t, msg, "From: talent@acme.com\r\n")
	assert.Contains(t, msg, "To: ada@example.com\r\n")
	assert.Contains(t, msg, "Subject: Hello\r\n")
	assert.True(t, strings.HasSuffix(msg, "\r\n\r\nLine one\r\nLine two\r\n"))
}

func TestSMTPMailer_SendFailure(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{Host: "smtp.example.com", From: "talent@acme.com"}, zerolog.Nop())
	m.send = func(context.Context, string, []byte) error {
		return errors.New("550 mailbox unavailable")
	}

	ok, message := m.Send(context.Background(), "ada@example.com", "Hello", "Body")
	assert.False(t, ok)
	assert.Contains(t, message, "550 mailbox unavailable")
}

func TestMailers_RejectMissingAddress(t *testing.T) {
	smtpMailer := NewSMTPMailer(SMTPConfig{Host: "smtp.example.com", From: "talent@acme.com"}, zerolog.Nop())
	smtpMailer.send = func(context.Context, string, []byte) error {
		t.Fatal("send should not be called")
		return nil
	}

	for _, m := range []Mailer{smtpMailer, NewLogMailer(zerolog.Nop())} {
		ok, message := m.Send(context.Background(), "  ", "s", "b")
		assert.False(t, ok)
		assert.Equal(t, "candidate has no email address", message)
	}
}

func TestLogMailer_Send(t *testing.T) {
	ok, message := NewLogMailer(zerolog.Nop()).Send(context.Background(), "ada@example.com", "s", "b")
	assert.True(t, ok)
	assert.Contains(t, message, "ada@example.com")
}

func TestBuildMessage_SanitizesSubject(t *testing.T) {
	date := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	msg := string(buildMessage("a@x.com", "b@y.com", "Hi\r\nBcc: evil@z.com", "body", date))
	assert.Contains(t, msg, "Subject: Hi  Bcc: evil@z.com\r\n")
	assert.Contains(t, msg, "Date: Mon, 02 Mar 2026 09:00:00 +0000\r\n")
}
