// Package services содержит отправку писем читателям: о выданной книге,
// о продвижении в очереди ожидания и о просроченных займах.
// Каждое письмо расходует дневной лимит менеджера уведомлений.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/magabrotheeeer/library-loans/internal/lib/sl"
	"github.com/magabrotheeeer/library-loans/internal/lib/smtp"
	"github.com/magabrotheeeer/library-loans/internal/models"
)

// Throttle ограничивает количество писем в сутки.
type Throttle interface {
	// IncrementEmailCount возвращает false, если дневной лимит исчерпан.
	IncrementEmailCount(ctx context.Context) (bool, error)
}

// SenderService читает сообщения очередей и отправляет письма через SMTP.
type SenderService struct {
	transport smtp.TransportInterface
	throttle  Throttle
	log       *slog.Logger
}

// NewSenderService создает новый экземпляр SenderService.
func NewSenderService(transport smtp.TransportInterface, throttle Throttle, log *slog.Logger) *SenderService {
	return &SenderService{
		transport: transport,
		throttle:  throttle,
		log:       log,
	}
}

// SendLoanStarted отправляет письмо о выданной книге и сроке её возврата.
func (s *SenderService) SendLoanStarted(body []byte) error {
	var message models.LoanEmailInfo
	if err := json.Unmarshal(body, &message); err != nil {
		s.log.Error("failed to unmarshal message body", sl.Err(err))
		return fmt.Errorf("error unmarshalling message: %w", err)
	}

	subject := "Книга выдана"
	bodyText := fmt.Sprintf("Здравствуйте, %s!\n\nВам выдана книга «%s».\n\nПожалуйста, верните её до %s.",
		message.Name, message.BookTitle, message.ExpirationDate.Format("02.01.2006"))

	return s.send([]string{message.Email}, subject, bodyText)
}

// SendWaitlistPromoted отправляет письмо о подошедшей очереди на книгу.
func (s *SenderService) SendWaitlistPromoted(body []byte) error {
	var message models.LoanEmailInfo
	if err := json.Unmarshal(body, &message); err != nil {
		s.log.Error("failed to unmarshal message body", sl.Err(err))
		return fmt.Errorf("error unmarshalling message: %w", err)
	}

	subject := "Подошла ваша очередь на книгу"
	bodyText := fmt.Sprintf("Здравствуйте, %s!\n\nПодошла ваша очередь на книгу «%s».\n\nЗаберите её в библиотеке до %s, иначе запрос будет отменён.",
		message.Name, message.BookTitle, message.ExpirationDate.Format("02.01.2006"))

	return s.send([]string{message.Email}, subject, bodyText)
}

// SendLoansOverdue отправляет письмо со списком просроченных займов читателя.
func (s *SenderService) SendLoansOverdue(body []byte) error {
	var message models.OverdueEmailInfo
	if err := json.Unmarshal(body, &message); err != nil {
		s.log.Error("failed to unmarshal message body", sl.Err(err))
		return fmt.Errorf("error unmarshalling message: %w", err)
	}

	var list strings.Builder
	for _, loan := range message.Loans {
		fmt.Fprintf(&list, "- «%s», срок возврата истёк %s\n",
			loan.BookTitle, loan.ExpirationDate.Format("02.01.2006"))
	}
	subject := "Просроченные займы"
	bodyText := fmt.Sprintf("Здравствуйте, %s!\n\nУ вас есть просроченные займы:\n%s\nПожалуйста, верните книги в библиотеку.",
		message.Name, list.String())

	return s.send([]string{message.Email}, subject, bodyText)
}

func (s *SenderService) send(to []string, subject, bodyText string) error {
	allowed, err := s.throttle.IncrementEmailCount(context.Background())
	if err != nil {
		s.log.Error("failed to check email quota", sl.Err(err))
		return err
	}
	if !allowed {
		// Письмо отбрасывается без повторной доставки, лимит общий на сутки.
		s.log.Warn("daily email limit reached, dropping message", "to", to)
		return nil
	}

	msg := strings.Join([]string{
		"From: " + s.transport.GetSMTPUser(),
		"To: " + strings.Join(to, ";"),
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		bodyText,
	}, "\r\n")

	client, err := s.transport.Connect()
	if err != nil {
		s.log.Error("failed to connect to SMTP server", sl.Err(err))
		return err
	}
	defer client.Close()

	if err := client.Mail(s.transport.GetSMTPUser()); err != nil {
		s.log.Error("failed to set MAIL FROM", "from", s.transport.GetSMTPUser(), sl.Err(err))
		return err
	}
	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			s.log.Error("failed to set RCPT TO", "recipient", addr, sl.Err(err))
			return err
		}
	}

	wc, err := client.Data()
	if err != nil {
		s.log.Error("failed to get data writer", sl.Err(err))
		return err
	}
	if _, err = wc.Write([]byte(msg)); err != nil {
		s.log.Error("failed to write email body", sl.Err(err))
		return err
	}
	if err = wc.Close(); err != nil {
		s.log.Error("failed to close data writer", sl.Err(err))
		return err
	}
	if err = client.Quit(); err != nil {
		s.log.Error("failed to quit SMTP client", sl.Err(err))
		return err
	}

	s.log.Info("email sent successfully", "to", to)
	return nil
}
