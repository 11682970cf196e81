// Package marketing implements a personalised cold email workflow
package marketing

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"go.uber.org/zap"

	"github.com/bububa/atomic-cookbook/components"
	"github.com/bububa/atomic-cookbook/schema"
	"github.com/bububa/atomic-cookbook/workflows"
)

// WorkflowName is the RunResponse workflow name
const WorkflowName = "PersonalisedMarketing"

// PersonalisedMarketing scrapes each contact's company website then writes and sends
// a personalised email. Contacts which can't be processed are logged and skipped.
// Both agents start every contact from their initial memory.
type PersonalisedMarketing struct {
	scraper      Scraper
	emailCreator EmailCreator
	contacts     []Contact
	runID        string
	logger       *zap.Logger
}

// Option configures PersonalisedMarketing
type Option func(*PersonalisedMarketing)

// WithContacts appends contacts, they are processed in order
func WithContacts(contacts ...Contact) Option {
	return func(p *PersonalisedMarketing) {
		p.contacts = append(p.contacts, contacts...)
	}
}

func WithRunID(id string) Option {
	return func(p *PersonalisedMarketing) {
		p.runID = id
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(p *PersonalisedMarketing) {
		p.logger = l
	}
}

// New returns a PersonalisedMarketing workflow
func New(scraper Scraper, emailCreator EmailCreator, opts ...Option) *PersonalisedMarketing {
	ret := &PersonalisedMarketing{
		scraper:      scraper,
		emailCreator: emailCreator,
	}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.runID == "" {
		ret.runID = workflows.NewRunID()
	}
	if ret.logger == nil {
		ret.logger = zap.NewNop()
	}
	return ret
}

func (p *PersonalisedMarketing) RunID() string {
	return p.runID
}

func (p *PersonalisedMarketing) Contacts() []Contact {
	return p.contacts
}

// Run processes every contact and yields one response per email created
func (p *PersonalisedMarketing) Run(ctx context.Context) iter.Seq[*workflows.RunResponse] {
	return func(yield func(*workflows.RunResponse) bool) {
		for _, contact := range p.contacts {
			if ctx.Err() != nil {
				p.logger.Warn("workflow cancelled", zap.String("run_id", p.runID), zap.Error(ctx.Err()))
				return
			}
			resp, ok := p.process(ctx, contact)
			if !ok {
				continue
			}
			if !yield(resp) {
				return
			}
		}
	}
}

func (p *PersonalisedMarketing) process(ctx context.Context, contact Contact) (*workflows.RunResponse, bool) {
	logger := p.logger.With(zap.String("run_id", p.runID), zap.String("company", contact.Company))
	logger.Info("Processing company")
	p.scraper.ResetMemory()
	p.emailCreator.ResetMemory()

	info, err := p.scrape(ctx, contact)
	if err != nil {
		if errors.Is(err, ErrInvalidCompanyInfo) {
			logger.Error("invalid company info, skipping", zap.Error(err))
		} else {
			logger.Warn("no data returned by scraper, skipping", zap.Error(err))
		}
		return nil, false
	}

	message := Message(info, contact)
	output := new(schema.String)
	llmResp := new(components.LLMResponse)
	if err := p.emailCreator.Run(ctx, schema.NewString(message), output, llmResp); err != nil {
		logger.Error("email creation failed, skipping", zap.Error(err))
		return nil, false
	}
	resp := workflows.NewRunResponse(p.runID, WorkflowName, workflows.EventRunResponse, output.String())
	resp.Meta = map[string]string{
		"company": contact.Company,
		"email":   contact.Email,
	}
	return resp, true
}

var errEmptyScrape = errors.New("empty scrape result")

func (p *PersonalisedMarketing) scrape(ctx context.Context, contact Contact) (*CompanyInfo, error) {
	info := new(CompanyInfo)
	if err := p.scraper.Run(ctx, schema.NewString(contact.Website), info, new(components.LLMResponse)); err != nil {
		return nil, err
	}
	if info.IsEmpty() {
		return nil, errEmptyScrape
	}
	if err := info.Validate(); err != nil {
		return nil, err
	}
	return info, nil
}

// Message describes the company and the contact person for the email creator
func Message(info *CompanyInfo, contact Contact) string {
	message := CompanyInfoToString(info, contact.Email)
	if contact.ContactName == "" {
		return message
	}
	if contact.Position != "" {
		return fmt.Sprintf("%s\nContact person: %s, %s, %s.", message, contact.ContactName, contact.Position, contact.Email)
	}
	return fmt.Sprintf("%s\nContact person: %s, %s.", message, contact.ContactName, contact.Email)
}
