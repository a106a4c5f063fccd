package mail

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docsend/internal/config"
)

type captureDispatcher struct {
	called bool
	last   Message
}

func (c *captureDispatcher) Send(ctx context.Context, msg Message) error {
	c.called = true
	c.last = msg
	return nil
}

func TestRouter_SelectsSMTP(t *testing.T) {
	r, err := NewRouter(config.MailConfig{Provider: "smtp", SMTPHost: "smtp.example.com", SMTPPort: 587}, nil)
	require.NoError(t, err)
	smtpCap := &captureDispatcher{}
	brevoCap := &captureDispatcher{}
	r.smtp = smtpCap
	r.brevo = brevoCap

	require.NoError(t, r.Send(context.Background(), Message{To: "b@y.com"}))
	assert.True(t, smtpCap.called)
	assert.False(t, brevoCap.called)
}

func TestRouter_SelectsBrevo(t *testing.T) {
	r, err := NewRouter(config.MailConfig{Provider: "Brevo", BrevoAPIKey: "key"}, nil)
	require.NoError(t, err)
	smtpCap := &captureDispatcher{}
	brevoCap := &captureDispatcher{}
	r.smtp = smtpCap
	r.brevo = brevoCap

	require.NoError(t, r.Send(context.Background(), Message{To: "b@y.com"}))
	assert.True(t, brevoCap.called)
	assert.False(t, smtpCap.called)
}

func TestNewRouter_Errors(t *testing.T) {
	_, err := NewRouter(config.MailConfig{Provider: "pigeon"}, nil)
	assert.ErrorContains(t, err, "unsupported mail provider")

	_, err = NewRouter(config.MailConfig{Provider: "smtp"}, nil)
	assert.ErrorContains(t, err, "smtp host is required")

	_, err = NewRouter(config.MailConfig{Provider: "brevo"}, nil)
	assert.ErrorContains(t, err, "brevo api key is required")
}

func TestBrevo_Send(t *testing.T) {
	var got brevoEmail
	var apiKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/smtp/email", r.URL.Path)
		apiKey = r.Header.Get("api-key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	b, err := NewBrevo(config.MailConfig{BrevoAPIKey: "secret", BrevoBaseURL: srv.URL + "/"}, srv.Client())
	require.NoError(t, err)

	err = b.Send(context.Background(), Message{
		From:        "noreply@x.com",
		ReplyTo:     "a@x.com",
		To:          "b@y.com",
		Subject:     "Your PDF Document",
		HTMLBody:    "<p>hi</p>",
		Attachments: []Attachment{{Filename: "doc.pdf", ContentType: "application/pdf", Data: []byte("%PDF")}},
	})

	require.NoError(t, err)
	assert.Equal(t, "secret", apiKey)
	assert.Equal(t, "noreply@x.com", got.Sender.Email)
	require.Len(t, got.To, 1)
	assert.Equal(t, "b@y.com", got.To[0].Email)
	require.NotNil(t, got.ReplyTo)
	assert.Equal(t, "a@x.com", got.ReplyTo.Email)
	assert.Equal(t, "<p>hi</p>", got.HTMLContent)
	require.Len(t, got.Attachment, 1)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("%PDF")), got.Attachment[0].Content)
}

func TestBrevo_SendFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	b, err := NewBrevo(config.MailConfig{BrevoAPIKey: "bad", BrevoBaseURL: srv.URL}, srv.Client())
	require.NoError(t, err)

	err = b.Send(context.Background(), Message{From: "noreply@x.com", To: "b@y.com"})
	assert.ErrorContains(t, err, "brevo send failed")
}

func TestBuildMsg(t *testing.T) {
	t.Run("renders headers, body and attachment", func(t *testing.T) {
		m, err := buildMsg(Message{
			From:        "noreply@x.com",
			ReplyTo:     "a@x.com",
			To:          "b@y.com",
			Subject:     "Your PDF Document",
			HTMLBody:    "<p>attached</p>",
			Attachments: []Attachment{{Filename: "doc.pdf", Data: []byte("%PDF-1.4")}},
		})
		require.NoError(t, err)

		var buf bytes.Buffer
		_, err = m.WriteTo(&buf)
		require.NoError(t, err)
		out := buf.String()
		assert.Contains(t, out, "Subject: Your PDF Document")
		assert.Contains(t, out, "b@y.com")
		assert.Contains(t, out, "Reply-To")
		assert.Contains(t, out, "doc.pdf")
	})

	t.Run("attachment keeps its content type", func(t *testing.T) {
		m, err := buildMsg(Message{
			From:        "noreply@x.com",
			To:          "b@y.com",
			HTMLBody:    "<p>attached</p>",
			Attachments: []Attachment{{Filename: "quarterly-report", ContentType: "application/pdf", Data: []byte("%PDF-1.4")}},
		})
		require.NoError(t, err)

		var buf bytes.Buffer
		_, err = m.WriteTo(&buf)
		require.NoError(t, err)
		assert.Contains(t, buf.String(), `Content-Type: application/pdf; name="quarterly-report"`)
		assert.NotContains(t, buf.String(), "application/octet-stream")
	})

	t.Run("invalid recipient", func(t *testing.T) {
		_, err := buildMsg(Message{From: "noreply@x.com", To: "not an address"})
		assert.ErrorContains(t, err, "invalid recipient address")
	})

	t.Run("invalid sender", func(t *testing.T) {
		_, err := buildMsg(Message{From: "", To: "b@y.com"})
		assert.ErrorContains(t, err, "invalid from address")
	})
}
