package email

import (
	"fmt"
	"net/smtp"
)

// Service handles email sending via SMTP
type Service struct {
	host string
	port string
	from string
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewService creates a new email service
func NewService(host, port, from string) *Service {
	return &Service{
		host: host,
		port: port,
		from: from,
		send: smtp.SendMail,
	}
}

// SendStatusUpdate tells a party that an order moved to a new status.
func (s *Service) SendStatusUpdate(to string, u StatusUpdate) error {
	subject := fmt.Sprintf("Order #%d is now %s", u.OrderID, u.Status)
	if u.PreviousStatus == "" {
		subject = fmt.Sprintf("New order #%d: %s", u.OrderID, u.ProductName)
	}
	return s.deliver(to, subject, BuildStatusUpdateBody(u))
}

// SendNotification mirrors an inbox notification by email.
func (s *Service) SendNotification(to string, m Message) error {
	return s.deliver(to, m.Title, BuildNotificationBody(m))
}

func (s *Service) deliver(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		s.from, to, subject, body)
	addr := fmt.Sprintf("%s:%s", s.host, s.port)
	return s.send(addr, nil, s.from, []string{to}, []byte(msg))
}
