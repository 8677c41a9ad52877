package mailer

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockSender is a mock implementation of the Sender interface.
type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, email *Email) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

func newTestMailer(sender Sender) *Mailer {
	renderer := NewRenderer(testTemplatesFS())
	return New(sender, renderer, Config{
		DefaultLayout:   "base.html",
		FallbackSubject: "Notification",
	})
}

func TestMailer_Send_Success(t *testing.T) {
	t.Parallel()

	sender := &MockSender{}
	m := newTestMailer(sender)

	sender.On("Send", mock.Anything, mock.MatchedBy(func(email *Email) bool {
		return email.To[0] == "alice@example.com" &&
			email.Subject == "Welcome Alice" &&
			len(email.HTML) > 0 &&
			len(email.Text) > 0
	})).Return(nil)

	err := m.Send(context.Background(), SendParams{
		To:       "alice@example.com",
		Template: "welcome.md",
		Data:     map[string]string{"Name": "Alice"},
	})

	require.NoError(t, err)
	sender.AssertExpectations(t)
}

func TestMailer_Send_SubjectOverride(t *testing.T) {
	t.Parallel()

	sender := &MockSender{}
	m := newTestMailer(sender)

	sender.On("Send", mock.Anything, mock.MatchedBy(func(email *Email) bool {
		return email.Subject == "Custom subject"
	})).Return(nil)

	err := m.Send(context.Background(), SendParams{
		To:       "alice@example.com",
		Template: "welcome.md",
		Subject:  "Custom subject",
		Data:     map[string]string{"Name": "Alice"},
	})

	require.NoError(t, err)
	sender.AssertExpectations(t)
}

func TestMailer_Send_FallbackSubject(t *testing.T) {
	t.Parallel()

	fs := fstest.MapFS{
		"layouts/base.html": &fstest.MapFile{Data: []byte(`<html>{{.Content}}</html>`)},
		"bare.md":           &fstest.MapFile{Data: []byte("No frontmatter here.\n")},
	}

	sender := &MockSender{}
	m := New(sender, NewRenderer(fs), Config{
		DefaultLayout:   "base.html",
		FallbackSubject: "Notification",
	})

	sender.On("Send", mock.Anything, mock.MatchedBy(func(email *Email) bool {
		return email.Subject == "Notification"
	})).Return(nil)

	err := m.Send(context.Background(), SendParams{
		To:       "alice@example.com",
		Template: "bare.md",
	})

	require.NoError(t, err)
	sender.AssertExpectations(t)
}

func TestMailer_Send_NoRecipient(t *testing.T) {
	t.Parallel()

	sender := &MockSender{}
	m := newTestMailer(sender)

	err := m.Send(context.Background(), SendParams{Template: "welcome.md"})

	require.ErrorIs(t, err, ErrNoRecipient)
	sender.AssertNotCalled(t, "Send")
}

func TestMailer_Send_RenderFailure(t *testing.T) {
	t.Parallel()

	sender := &MockSender{}
	m := New(sender, NewRenderer(fstest.MapFS{}), Config{DefaultLayout: "missing.html"})

	err := m.Send(context.Background(), SendParams{
		To:       "alice@example.com",
		Template: "nonexistent.md",
	})

	require.ErrorIs(t, err, ErrRenderFailed)
	sender.AssertNotCalled(t, "Send")
}

func TestMailer_Send_SenderFailure(t *testing.T) {
	t.Parallel()

	sender := &MockSender{}
	m := newTestMailer(sender)

	sendErr := errors.New("provider is down")
	sender.On("Send", mock.Anything, mock.Anything).Return(sendErr)

	err := m.Send(context.Background(), SendParams{
		To:       "alice@example.com",
		Template: "welcome.md",
		Data:     map[string]string{"Name": "Alice"},
	})

	require.ErrorIs(t, err, ErrSendFailed)
	require.ErrorIs(t, err, sendErr)
}
