package gateway

import (
	"context"
	"sync"
)

type SentMail struct {
	To      string
	Subject string
	HTML    string
}

type MailerMock struct {
	lock sync.Mutex

	SendFunc func(ctx context.Context, to, subject, html string) error

	SentMails []SentMail
}

func (m *MailerMock) Send(ctx context.Context, to, subject, html string) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	if m.SendFunc != nil {
		if err := m.SendFunc(ctx, to, subject, html); err != nil {
			return err
		}
	}

	m.SentMails = append(m.SentMails, SentMail{To: to, Subject: subject, HTML: html})

	return nil
}
