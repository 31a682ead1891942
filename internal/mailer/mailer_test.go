package mailer

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBuildMessage(t *testing.T) {
	m, err := build("Dispatch <d@x.example>", Message{
		To:          []string{"a@x.example", "b@x.example"},
		Subject:     "Weekly report",
		HTMLBody:    "<p>attached</p>",
		Attachments: []Attachment{{Filename: "report.xlsx", Content: []byte("xlsx")}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a@x.example", "b@x.example"}, m.GetHeader("To"))
	assert.Equal(t, []string{"Weekly report"}, m.GetHeader("Subject"))

	var buf bytes.Buffer
	_, err = m.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "report.xlsx")
}

func TestBuildRequiresRecipients(t *testing.T) {
	_, err := build("d@x.example", Message{Subject: "x"})
	assert.ErrorIs(t, err, ErrNoRecipients)
}

func TestLogMailer(t *testing.T) {
	l := NewLog(zap.NewNop().Sugar())
	assert.NoError(t, l.Send(context.Background(), Message{To: []string{"a@x.example"}}))
	assert.ErrorIs(t, l.Send(context.Background(), Message{}), ErrNoRecipients)
}
