// Package resend sends emails through the Resend API
package resend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	resend "github.com/resend/resend-go/v2"
	"gitlab.com/golang-commonmark/markdown"
	"go.uber.org/zap"

	"github.com/bububa/atomic-cookbook/schema"
	"github.com/bububa/atomic-cookbook/tools"
)

// ErrNoSender is returned when the tool has no from address
var ErrNoSender = errors.New("resend: from address not set")

// Input of the email tool
type Input struct {
	schema.Base
	// To is the recipient email address
	To string `json:"to_email" jsonschema:"title=to_email,description=The email address to send the email to." validate:"required,email"`
	// Subject of the email
	Subject string `json:"subject" jsonschema:"title=subject,description=The subject of the email." validate:"required"`
	// Body of the email in markdown
	Body string `json:"body" jsonschema:"title=body,description=The body of the email in markdown." validate:"required"`
}

func NewInput(to string, subject string, body string) *Input {
	return &Input{
		To:      to,
		Subject: subject,
		Body:    body,
	}
}

// Output of the email tool
type Output struct {
	schema.Base
	// ID is the id of the sent email
	ID string `json:"id,omitempty" jsonschema:"title=id,description=The id of the sent email."`
	// Result is the message returned to the model
	Result string `json:"result" jsonschema:"title=result,description=Result of sending the email."`
}

func (o Output) String() string {
	return o.Result
}

// Email is the Resend send email request
type Email = resend.SendEmailRequest

type Config struct {
	tools.Config
	apiKey     string
	from       string
	baseURL    string
	httpClient *http.Client
}

// Tool sends emails written by an agent
type Tool struct {
	Config
	client *resend.Client
	md     *markdown.Markdown
}

var _ tools.Tool[Input, Output] = (*Tool)(nil)

func New(opts ...Option) *Tool {
	ret := &Tool{
		md: markdown.New(markdown.XHTMLOutput(true), markdown.Linkify(true)),
	}
	for _, opt := range opts {
		opt(&ret.Config)
	}
	if ret.Title() == "" {
		ret.SetTitle("ResendTool")
	}
	if ret.Description() == "" {
		ret.SetDescription("Send an email to a recipient, the body is written in markdown.")
	}
	ret.client = resend.NewCustomClient(ret.httpClient, ret.apiKey)
	if ret.baseURL != "" {
		if u, err := url.Parse(strings.TrimRight(ret.baseURL, "/") + "/"); err == nil {
			ret.client.BaseURL = u
		}
	}
	return ret
}

// HTML renders a markdown body
func (t *Tool) HTML(body string) string {
	return t.md.RenderToString([]byte(body))
}

// Run sends the email. Failures are reported to the model as "Error: ..." outputs.
func (t *Tool) Run(ctx context.Context, input *Input) (*Output, error) {
	t.OnStart(ctx, t, input)
	id, err := t.Send(ctx, &Email{
		From:    t.from,
		To:      []string{input.To},
		Subject: input.Subject,
		Html:    t.HTML(input.Body),
		Text:    input.Body,
	})
	if err != nil {
		t.OnError(ctx, t, input, err)
		return &Output{Result: fmt.Sprintf("Error: %v", err)}, nil
	}
	t.Logger().Info("email sent", zap.String("to", input.To), zap.String("id", id))
	output := &Output{
		ID:     id,
		Result: fmt.Sprintf("Email sent to %s successfully.", input.To),
	}
	t.OnEnd(ctx, t, input, output)
	return output, nil
}

// Send posts the email to Resend and returns its id
func (t *Tool) Send(ctx context.Context, email *Email) (string, error) {
	if email.From == "" {
		return "", ErrNoSender
	}
	resp, err := t.client.Emails.SendWithContext(ctx, email)
	if err != nil {
		return "", fmt.Errorf("resend: %w", err)
	}
	return resp.Id, nil
}
