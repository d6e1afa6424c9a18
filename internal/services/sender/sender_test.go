package services

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/library-loans/internal/lib/smtp"
)

type writeCloserMock struct{ bytes.Buffer }

func (w *writeCloserMock) Close() error { return nil }

type clientMock struct {
	mock.Mock
	data writeCloserMock
}

func (m *clientMock) Mail(from string) error { return m.Called(from).Error(0) }
func (m *clientMock) Rcpt(to string) error   { return m.Called(to).Error(0) }
func (m *clientMock) Data() (io.WriteCloser, error) {
	args := m.Called()
	return &m.data, args.Error(0)
}
func (m *clientMock) Quit() error  { return m.Called().Error(0) }
func (m *clientMock) Close() error { return nil }

type transportMock struct {
	mock.Mock
	client *clientMock
}

func (m *transportMock) Connect() (smtp.Client, error) {
	args := m.Called()
	if args.Error(0) != nil {
		return nil, args.Error(0)
	}
	return m.client, nil
}
func (m *transportMock) GetSMTPUser() string { return "library@example.com" }

type throttleMock struct{ mock.Mock }

func (m *throttleMock) IncrementEmailCount(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func okClient() *clientMock {
	client := &clientMock{}
	client.On("Mail", "library@example.com").Return(nil)
	client.On("Rcpt", "ivan@example.com").Return(nil)
	client.On("Data").Return(nil)
	client.On("Quit").Return(nil)
	return client
}

func TestSenderService_SendLoanStarted(t *testing.T) {
	client := okClient()
	transport := &transportMock{client: client}
	transport.On("Connect").Return(nil)
	throttle := &throttleMock{}
	throttle.On("IncrementEmailCount", mock.Anything).Return(true, nil)

	service := NewSenderService(transport, throttle, newNoopLogger())
	body := []byte(`{"email":"ivan@example.com","name":"Иван Иванов","book_title":"Мастер и Маргарита","expiration_date":"` +
		time.Date(2026, 9, 7, 23, 59, 59, 0, time.UTC).Format(time.RFC3339) + `"}`)

	require.NoError(t, service.SendLoanStarted(body))
	sent := client.data.String()
	assert.Contains(t, sent, "To: ivan@example.com")
	assert.Contains(t, sent, "Мастер и Маргарита")
	assert.Contains(t, sent, "07.09.2026")
	client.AssertExpectations(t)
}

func TestSenderService_SendLoansOverdue_ListsEveryLoan(t *testing.T) {
	client := okClient()
	transport := &transportMock{client: client}
	transport.On("Connect").Return(nil)
	throttle := &throttleMock{}
	throttle.On("IncrementEmailCount", mock.Anything).Return(true, nil)

	service := NewSenderService(transport, throttle, newNoopLogger())
	body := []byte(`{"email":"ivan@example.com","name":"Иван Иванов","loans":[` +
		`{"book_title":"Мастер и Маргарита","expiration_date":"2026-08-20T23:59:59Z"},` +
		`{"book_title":"Собачье сердце","expiration_date":"2026-08-25T23:59:59Z"}]}`)

	require.NoError(t, service.SendLoansOverdue(body))
	sent := client.data.String()
	assert.Contains(t, sent, "Мастер и Маргарита")
	assert.Contains(t, sent, "Собачье сердце")
}

func TestSenderService_DropsMessageAtDailyLimit(t *testing.T) {
	transport := &transportMock{client: okClient()}
	throttle := &throttleMock{}
	throttle.On("IncrementEmailCount", mock.Anything).Return(false, nil)

	service := NewSenderService(transport, throttle, newNoopLogger())
	body := []byte(`{"email":"ivan@example.com","name":"Иван Иванов","book_title":"Мастер и Маргарита","expiration_date":"2026-09-07T23:59:59Z"}`)

	// Сообщение отбрасывается без ошибки, чтобы не зациклить повторную доставку.
	require.NoError(t, service.SendWaitlistPromoted(body))
	transport.AssertNotCalled(t, "Connect")
}

func TestSenderService_BadPayload(t *testing.T) {
	throttle := &throttleMock{}
	throttle.On("IncrementEmailCount", mock.Anything).Return(true, nil)
	service := NewSenderService(&transportMock{client: okClient()}, throttle, newNoopLogger())

	require.Error(t, service.SendLoanStarted([]byte("not json")))
}
