package marketing

import (
	"fmt"
	"strings"

	"github.com/bububa/atomic-cookbook/agents"
	"github.com/bububa/atomic-cookbook/schema"
	"github.com/bububa/atomic-cookbook/tools"
	"github.com/bububa/atomic-cookbook/tools/resend"
	"github.com/bububa/atomic-cookbook/tools/webscraper"
)

// EmailTemplate is the default outreach email layout
const EmailTemplate = `
Subject: [SUBJECT_LINE]

Hi [RECIPIENT_NAME],

I'm [SENDER_NAME]. I was impressed by [COMPANY_NAME]'s [UNIQUE_ATTRIBUTE]. It's clear you have a strong vision for serving your customers.

At [YOUR_ORGANIZATION], we provide tailored solutions to help businesses stand out in today's competitive market. After reviewing your online presence, I noticed a few opportunities that, if optimized, could significantly boost your brand's visibility and engagement.

To showcase how we can help, I'm offering a [FREE_INITIAL_SERVICE]. This assessment will highlight key areas for growth and provide actionable steps to improve your online impact.

Let's discuss how we can work together to achieve these goals. Could we schedule a quick call? Please let me know a time that works for you or feel free to book directly here: [CALENDAR_LINK]

Best regards,

[SENDER_NAME]
[SENDER_CONTACT_INFORMATION]
`

// Contact is a person to reach out to
type Contact struct {
	Company     string `json:"company" yaml:"company"`
	Website     string `json:"website" yaml:"website"`
	Email       string `json:"email" yaml:"email"`
	ContactName string `json:"contact_name" yaml:"contact_name"`
	Position    string `json:"position" yaml:"position"`
}

// Sender is who the emails are sent as
type Sender struct {
	Name           string `json:"name" yaml:"name"`
	Email          string `json:"email" yaml:"email"`
	Organization   string `json:"organization" yaml:"organization"`
	CalendarLink   string `json:"calendar_link" yaml:"calendar_link"`
	ServiceOffered string `json:"service_offered" yaml:"service_offered"`
}

func (s Sender) String() string {
	fields := make([]string, 0, 5)
	for _, v := range []string{s.Name, s.Email, s.Organization, s.CalendarLink, s.ServiceOffered} {
		if v != "" {
			fields = append(fields, v)
		}
	}
	return strings.Join(fields, " ")
}

// Scraper extracts CompanyInfo from a website
type Scraper interface {
	agents.TypeableAgent[schema.String, CompanyInfo]
	ResetMemory()
}

// EmailCreator writes and sends an email from a company description
type EmailCreator interface {
	agents.TypeableAgent[schema.String, schema.String]
	ResetMemory()
}

// NewScraper returns a Scraper which fetches the website with the webscraper tool
// and extracts the company info from the page
func NewScraper(scraper *webscraper.Webscraper, options ...agents.Option) *agents.ToolAgent[schema.String, webscraper.Input, CompanyInfo] {
	opts := append([]agents.Option{
		agents.WithName("scraper"),
		agents.WithDescription("Given a company website, scrape the website for important information related to the company."),
	}, options...)
	return agents.NewToolAgent[schema.String, webscraper.Input, CompanyInfo](opts...).
		SetTool(tools.Anonymous[webscraper.Input, webscraper.Output](scraper))
}

// EmailInstructions returns the email creator instructions
func EmailInstructions(sender Sender, template string) []string {
	return []string{
		"You will be provided with information about a company and a contact person.",
		"Use this information to create a personalised email to reach out to the contact person.",
		"Introduce yourself and your purpose for reaching out.",
		"Be extremely polite and professional.",
		"Offer the services of your organization and suggest a meeting or call.",
		fmt.Sprintf("Send the email as: %s", sender),
		"Use the following template to structure your email:",
		template,
		"Then finally, use the resend tool to send the email.",
	}
}

// NewEmailCreator returns an EmailCreator which drafts the email then sends it with the resend tool
func NewEmailCreator(mailer *resend.Tool, sender Sender, template string, options ...agents.Option) *agents.ToolAgent[schema.String, resend.Input, schema.String] {
	if template == "" {
		template = EmailTemplate
	}
	opts := append([]agents.Option{
		agents.WithName("email_creator"),
		agents.WithInstructions(EmailInstructions(sender, template)...),
		agents.WithMarkdown(false),
	}, options...)
	return agents.NewToolAgent[schema.String, resend.Input, schema.String](opts...).
		SetTool(tools.Anonymous[resend.Input, resend.Output](mailer))
}
