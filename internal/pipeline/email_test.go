package pipeline

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEmailSender_Validation(t *testing.T) {
	_, err := NewEmailSender("", "pw", "a@example.com")
	assert.ErrorContains(t, err, "EMAIL_FROM")

	_, err = NewEmailSender("me@example.com", "", "a@example.com")
	assert.ErrorContains(t, err, "EMAIL_PASSWORD")

	_, err = NewEmailSender("me@example.com", "pw", " , ")
	assert.ErrorContains(t, err, "EMAIL_TO")

	es, err := NewEmailSender("me@example.com", "pw", "a@example.com, b@example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, es.config.To)
}

func TestBuildReportBody(t *testing.T) {
	body := buildReportBody([]string{"OMG India", "Omnicom Media Group"}, sampleResult())

	assert.True(t, strings.HasPrefix(body, "Media Tracker Report\n"))
	assert.Contains(t, body, "Run: run-1")
	assert.Contains(t, body, "Keywords: OMG India, Omnicom Media Group")
	assert.Contains(t, body, "Found 1 relevant articles")
	assert.Contains(t, body, "[1] OMG names new India lead")
	assert.Contains(t, body, "Published: 2023-05-10 | Event: 2023-05-10 | Category: Press Release")
	assert.Contains(t, body, "1 articles could not be accessed")
	assert.Contains(t, body, "- Paywalled (Unknown)")
}

func newTestSender(t *testing.T, fn func(calls int) error) (*EmailSender, *int, *[]byte) {
	t.Helper()
	es, err := NewEmailSender("me@example.com", "pw", "to@example.com")
	require.NoError(t, err)

	calls := 0
	var last []byte
	es.backoff = 0
	es.sendFunc = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		calls++
		last = msg
		assert.Equal(t, "smtp.gmail.com:587", addr)
		assert.Equal(t, "me@example.com", from)
		return fn(calls)
	}
	return es, &calls, &last
}

func TestSendRunReport_RetriesUntilSuccess(t *testing.T) {
	es, calls, last := newTestSender(t, func(n int) error {
		if n < 3 {
			return errors.New("421 try again")
		}
		return nil
	})

	require.NoError(t, es.SendRunReport(context.Background(), []string{"OMG"}, sampleResult()))
	assert.Equal(t, 3, *calls)

	msg := string(*last)
	assert.Contains(t, msg, "To: to@example.com\r\n")
	assert.Contains(t, msg, "Subject: Media Tracker - ")
	assert.Contains(t, msg, "(1 relevant, 1 inaccessible)")
	assert.Contains(t, msg, "\r\n\r\nMedia Tracker Report")
}

func TestSendRunReport_GivesUp(t *testing.T) {
	errAuth := errors.New("535 auth failed")
	es, calls, _ := newTestSender(t, func(int) error { return errAuth })

	err := es.SendRunReport(context.Background(), nil, &Result{})
	assert.ErrorIs(t, err, errAuth)
	assert.ErrorContains(t, err, "after 3 attempts")
	assert.Equal(t, 3, *calls)
}

func TestSendRunReport_Cancelled(t *testing.T) {
	es, calls, _ := newTestSender(t, func(int) error { return errors.New("down") })
	es.backoff = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := es.SendRunReport(ctx, nil, &Result{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, *calls)
}
