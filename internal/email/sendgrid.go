package email

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

var (
	sgHost     = "https://api.sendgrid.com"
	sgEndpoint = "/v3/mail/send"
)

type SendgridService struct {
	key        string
	from       *sgmail.Email
	subjPrefix string
}

func NewSendgridService(key, fromName, fromAddr, appName string) *SendgridService {
	return &SendgridService{
		key:        key,
		from:       sgmail.NewEmail(fromName, fromAddr),
		subjPrefix: "[" + appName + "] ",
	}
}

func (s *SendgridService) Send(_ context.Context, m Message) error {
	p := sgmail.NewPersonalization()
	p.Subject = s.subjPrefix + m.Subject
	p.AddTos(sgmail.NewEmail("", m.To))

	v3 := sgmail.NewV3Mail()
	v3.SetFrom(s.from)
	v3.AddPersonalizations(p)
	v3.AddContent(sgmail.NewContent("text/plain", m.Body))

	req := sendgrid.GetRequest(s.key, sgEndpoint, sgHost)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(v3)

	res, err := sendgrid.API(req)
	if err != nil {
		return err
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid: status %d: %s", res.StatusCode, res.Body)
	}
	return nil
}
