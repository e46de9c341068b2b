// Package notify delivers verification codes to reporters by email.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/smtp"
)

// Sender delivers a verification code to an email address.
type Sender interface {
	SendCode(ctx context.Context, to string, code int) error
}

const codeMessage = `Subject: FindIt - Verification Code

Hello,

Your lost item report was submitted. Keep this code safe:

Verification code: %d

Enter it together with the report ID when your item has been found.

FindIt
`

// SMTPSender sends codes through an SMTP server with plain auth.
type SMTPSender struct {
	addr string
	from string
	pass string

	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPSender creates an SMTPSender. addr is host:port.
func NewSMTPSender(addr, from, pass string) *SMTPSender {
	return &SMTPSender{
		addr:     addr,
		from:     from,
		pass:     pass,
		sendMail: smtp.SendMail,
	}
}

// SendCode sends the code message. smtp.SendMail takes no context, so ctx
// is only checked before dialing.
func (s *SMTPSender) SendCode(ctx context.Context, to string, code int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	host, _, err := net.SplitHostPort(s.addr)
	if err != nil {
		return fmt.Errorf("parse smtp address: %w", err)
	}

	msg := fmt.Sprintf(codeMessage, code)
	auth := smtp.PlainAuth("", s.from, s.pass, host)
	if err := s.sendMail(s.addr, auth, s.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPSender posts codes to an email relay endpoint that answers with the
// ID of the queued message.
type HTTPSender struct {
	endpoint string
	client   HTTPClient
}

// NewHTTPSender creates an HTTPSender.
func NewHTTPSender(endpoint string, client HTTPClient) *HTTPSender {
	return &HTTPSender{endpoint: endpoint, client: client}
}

type relayRequest struct {
	To   string `json:"to"`
	Code int    `json:"code"`
}

type relayResponse struct {
	MessageID string `json:"messageId"`
}

// SendCode posts {to, code} to the relay. A response without a message ID
// counts as a failure.
func (s *HTTPSender) SendCode(ctx context.Context, to string, code int) error {
	body, err := json.Marshal(relayRequest{To: to, Code: code})
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var out relayResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64*1024)).Decode(&out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if out.MessageID == "" {
		return errors.New("relay returned no message id")
	}
	return nil
}
