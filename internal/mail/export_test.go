package mail

import "net/smtp"

func (s *SMTPMailer) SetSendFunc(f func(addr string, a smtp.Auth, from string, to []string, msg []byte) error) {
	s.send = f
}
