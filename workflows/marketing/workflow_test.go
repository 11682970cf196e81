package marketing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/bububa/atomic-cookbook/agents"
	"github.com/bububa/atomic-cookbook/components"
	"github.com/bububa/atomic-cookbook/internal/llmtest"
	"github.com/bububa/atomic-cookbook/schema"
	"github.com/bububa/atomic-cookbook/tools/resend"
	"github.com/bububa/atomic-cookbook/tools/webscraper"
	"github.com/bububa/atomic-cookbook/workflows"
)

type fakeScraper struct {
	infos  map[string]*CompanyInfo
	errs   map[string]error
	resets int
}

func (f *fakeScraper) Name() string        { return "fake" }
func (f *fakeScraper) Description() string { return "" }
func (f *fakeScraper) ResetMemory()        { f.resets++ }

func (f *fakeScraper) Run(_ context.Context, website *schema.String, output *CompanyInfo, _ *components.LLMResponse) error {
	if err := f.errs[website.String()]; err != nil {
		return err
	}
	if info := f.infos[website.String()]; info != nil {
		*output = *info
	}
	return nil
}

type fakeEmailCreator struct {
	messages []string
	err      error
	resets   int
}

func (f *fakeEmailCreator) Name() string        { return "fake" }
func (f *fakeEmailCreator) Description() string { return "" }
func (f *fakeEmailCreator) ResetMemory()        { f.resets++ }

func (f *fakeEmailCreator) Run(_ context.Context, message *schema.String, output *schema.String, _ *components.LLMResponse) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, message.String())
	*output = schema.String("sent: " + message.String())
	return nil
}

func TestCompanyInfoToString(t *testing.T) {
	full := &CompanyInfo{
		CompanyName:        "Acme",
		Motto:              "Build things",
		CoreBusiness:       "rockets",
		UniqueSellingPoint: "fast delivery",
		EmailAddress:       "hello@acme.com",
	}
	assert.Equal(t, "Acme, whose motto is 'Build things', specializing in rockets, known for fast delivery, contactable at hello@acme.com.",
		CompanyInfoToString(full, "jane@acme.com"))
	assert.Equal(t, "Acme, contactable at jane@acme.com.", CompanyInfoToString(&CompanyInfo{CompanyName: "Acme"}, "jane@acme.com"))
}

func TestCompanyInfoValidate(t *testing.T) {
	assert.NoError(t, (&CompanyInfo{CompanyName: "Acme"}).Validate())
	assert.ErrorIs(t, (&CompanyInfo{Motto: "no name"}).Validate(), ErrInvalidCompanyInfo)
	assert.ErrorIs(t, (&CompanyInfo{CompanyName: "Acme", EmailAddress: "not-an-email"}).Validate(), ErrInvalidCompanyInfo)
	assert.True(t, (&CompanyInfo{}).IsEmpty())
	assert.False(t, (&CompanyInfo{Motto: "m"}).IsEmpty())
}

func TestRunSkipsFailures(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	scraper := &fakeScraper{
		infos: map[string]*CompanyInfo{
			"https://acme.test":    {CompanyName: "Acme", Motto: "Build things"},
			"https://invalid.test": {Motto: "no name"},
			"https://globex.test":  {CompanyName: "Globex"},
		},
		errs: map[string]error{
			"https://down.test": errors.New("connection refused"),
		},
	}
	creator := &fakeEmailCreator{}
	wf := New(scraper, creator,
		WithLogger(zap.New(core)),
		WithRunID("run-1"),
		WithContacts(
			Contact{Company: "Acme", Website: "https://acme.test", Email: "jane@acme.test", ContactName: "Jane", Position: "CTO"},
			Contact{Company: "Empty", Website: "https://empty.test", Email: "x@empty.test"},
			Contact{Company: "Invalid", Website: "https://invalid.test", Email: "x@invalid.test"},
			Contact{Company: "Down", Website: "https://down.test", Email: "x@down.test"},
			Contact{Company: "Globex", Website: "https://globex.test", Email: "hank@globex.test"},
		),
	)

	var responses []*workflows.RunResponse
	for resp := range wf.Run(context.Background()) {
		responses = append(responses, resp)
	}
	require.Len(t, responses, 2)
	assert.Equal(t, "run-1", responses[0].RunID)
	assert.Equal(t, WorkflowName, responses[0].Workflow)
	assert.Equal(t, workflows.EventRunResponse, responses[0].Event)
	assert.Equal(t, "Acme", responses[0].Meta["company"])
	assert.Equal(t, "Globex", responses[1].Meta["company"])
	assert.Equal(t, "sent: Globex, contactable at hank@globex.test.", responses[1].Content)

	require.Len(t, creator.messages, 2)
	assert.Equal(t, "Acme, whose motto is 'Build things', contactable at jane@acme.test.\nContact person: Jane, CTO, jane@acme.test.", creator.messages[0])

	assert.Equal(t, 5, logs.FilterMessage("Processing company").Len())
	assert.Equal(t, 5, scraper.resets)
	assert.Equal(t, 5, creator.resets)
	assert.Equal(t, 1, logs.FilterMessage("invalid company info, skipping").Len())
	assert.Equal(t, 2, logs.FilterMessage("no data returned by scraper, skipping").Len())
}

func TestRunEmailCreatorError(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	scraper := &fakeScraper{infos: map[string]*CompanyInfo{"https://acme.test": {CompanyName: "Acme"}}}
	wf := New(scraper, &fakeEmailCreator{err: errors.New("quota exceeded")},
		WithLogger(zap.New(core)),
		WithContacts(Contact{Company: "Acme", Website: "https://acme.test"}))
	count := 0
	for range wf.Run(context.Background()) {
		count++
	}
	assert.Zero(t, count)
	assert.NotEmpty(t, wf.RunID())
	assert.Equal(t, 1, logs.FilterMessage("email creation failed, skipping").Len())
}

func TestRunStopsEarly(t *testing.T) {
	scraper := &fakeScraper{infos: map[string]*CompanyInfo{
		"https://a.test": {CompanyName: "A"},
		"https://b.test": {CompanyName: "B"},
	}}
	creator := &fakeEmailCreator{}
	wf := New(scraper, creator, WithContacts(
		Contact{Company: "A", Website: "https://a.test"},
		Contact{Company: "B", Website: "https://b.test"},
	))
	for range wf.Run(context.Background()) {
		break
	}
	assert.Len(t, creator.messages, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	count := 0
	for range wf.Run(ctx) {
		count++
	}
	assert.Zero(t, count)
}

func TestPersonalisedMarketing(t *testing.T) {
	var sent resend.Email
	mux := http.NewServeMux()
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, `<html><head><title>Acme</title></head><body><main><h1>Acme</h1><p>Build things. We make rockets.</p></main></body></html>`)
	})
	mux.HandleFunc("POST /emails", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&sent))
		io.WriteString(w, `{"id":"email-1"}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	scraperLLM := llmtest.New(
		fmt.Sprintf(`{"url":%q}`, srv.URL),
		`{"company_name":"Acme","motto":"Build things","core_business":"rockets"}`,
	)
	emailLLM := llmtest.New(
		`{"to_email":"jane@acme.test","subject":"Hello Acme","body":"Hi **Jane**"}`,
		"The email was sent to jane@acme.test.",
	)
	sender := Sender{Name: "Bob", Email: "bob@agency.test", Organization: "Agency"}
	scraper := NewScraper(webscraper.New(webscraper.WithHttpClient(srv.Client())), agents.WithClient(scraperLLM.Client()))
	creator := NewEmailCreator(
		resend.New(resend.WithAPIKey("key"), resend.WithFrom(sender.Email), resend.WithBaseURL(srv.URL), resend.WithHttpClient(srv.Client())),
		sender, "", agents.WithClient(emailLLM.Client()))

	wf := New(scraper, creator, WithContacts(Contact{
		Company: "Acme", Website: srv.URL, Email: "jane@acme.test", ContactName: "Jane", Position: "CTO",
	}))
	var responses []*workflows.RunResponse
	for resp := range wf.Run(context.Background()) {
		responses = append(responses, resp)
	}
	require.Len(t, responses, 1)
	assert.Equal(t, "The email was sent to jane@acme.test.", responses[0].Content)
	assert.Equal(t, []string{"jane@acme.test"}, sent.To)
	assert.Equal(t, "bob@agency.test", sent.From)
	assert.Equal(t, "Hello Acme", sent.Subject)

	scraperReq := scraperLLM.LastRequest()
	assert.Contains(t, scraperReq.System, "WebscraperTool result:")
	assert.Contains(t, scraperReq.System, "We make rockets")

	emailReq := emailLLM.LastRequest()
	assert.Contains(t, emailReq.System, "Send the email as: Bob bob@agency.test Agency")
	assert.Contains(t, emailReq.System, "[CALENDAR_LINK]")
	assert.Contains(t, emailReq.Messages[len(emailReq.Messages)-1].StringifiedContent(),
		"Acme, whose motto is 'Build things', specializing in rockets, contactable at jane@acme.test.")
}

func TestPersonalisedMarketingResetsMemoryPerContact(t *testing.T) {
	var sent []resend.Email
	mux := http.NewServeMux()
	mux.HandleFunc("GET /acme", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `<html><body><main><h1>Acme</h1><p>We make rockets.</p></main></body></html>`)
	})
	mux.HandleFunc("GET /globex", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `<html><body><main><h1>Globex</h1><p>We make widgets.</p></main></body></html>`)
	})
	mux.HandleFunc("POST /emails", func(w http.ResponseWriter, r *http.Request) {
		var email resend.Email
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&email))
		sent = append(sent, email)
		fmt.Fprintf(w, `{"id":"email-%d"}`, len(sent))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	scraperLLM := llmtest.New(
		fmt.Sprintf(`{"url":%q}`, srv.URL+"/acme"),
		`{"company_name":"Acme","core_business":"rockets"}`,
		fmt.Sprintf(`{"url":%q}`, srv.URL+"/globex"),
		`{"company_name":"Globex","core_business":"widgets"}`,
	)
	emailLLM := llmtest.New(
		`{"to_email":"jane@acme.test","subject":"Hello Acme","body":"Hi Jane"}`,
		"Sent to Acme.",
		`{"to_email":"hank@globex.test","subject":"Hello Globex","body":"Hi Hank"}`,
		"Sent to Globex.",
	)
	sender := Sender{Name: "Bob", Email: "bob@agency.test"}
	scraper := NewScraper(webscraper.New(webscraper.WithHttpClient(srv.Client())), agents.WithClient(scraperLLM.Client()))
	creator := NewEmailCreator(
		resend.New(resend.WithAPIKey("key"), resend.WithFrom(sender.Email), resend.WithBaseURL(srv.URL), resend.WithHttpClient(srv.Client())),
		sender, "", agents.WithClient(emailLLM.Client()))

	wf := New(scraper, creator, WithContacts(
		Contact{Company: "Acme", Website: srv.URL + "/acme", Email: "jane@acme.test", ContactName: "Jane"},
		Contact{Company: "Globex", Website: srv.URL + "/globex", Email: "hank@globex.test", ContactName: "Hank"},
	))
	var responses []*workflows.RunResponse
	for resp := range wf.Run(context.Background()) {
		responses = append(responses, resp)
	}
	require.Len(t, responses, 2)
	assert.Equal(t, "Sent to Globex.", responses[1].Content)
	require.Len(t, sent, 2)
	assert.Equal(t, "Hello Globex", sent[1].Subject)

	for _, completer := range []*llmtest.Completer{scraperLLM, emailLLM} {
		reqs := completer.Requests()
		require.Len(t, reqs, 4)
		for _, req := range reqs[2:] {
			require.Len(t, req.Messages, 1)
			assert.NotContains(t, req.System, "Acme")
			assert.NotContains(t, req.Messages[0].StringifiedContent(), "Acme")
			assert.NotContains(t, req.Messages[0].StringifiedContent(), "acme")
		}
	}
	assert.Contains(t, scraperLLM.LastRequest().System, "We make widgets")
	assert.NotContains(t, scraperLLM.LastRequest().System, "We make rockets")
}
