package webscraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/bububa/atomic-cookbook/schema"
	"github.com/bububa/atomic-cookbook/tools"
)

// Input schema for the WebpageScraperTool.
type Input struct {
	schema.Base
	// URL of the webpage to scrape.
	URL string `json:"url,omitempty" jsonschema:"title=url,description=URL of the webpage to scrape." validate:"required,url"`
	// IncludeLinks Whether to preserve hyperlinks in the markdown output.
	IncludeLinks bool `json:"include_links,omitempty" jsonschema:"title=include_links,description=Whether to preserve hyperlinks in the markdown output."`
}

func NewInput(link string, includeLinks bool) *Input {
	return &Input{
		URL:          link,
		IncludeLinks: includeLinks,
	}
}

func (i Input) String() string {
	return i.URL
}

// Metadata Schema for webpage metadata
type Metadata struct {
	// Title is the title of the webpage.
	Title string `json:"title,omitempty" jsonschema:"title=title,description=The title of the webpage."`
	// Author is the author of the webpage content.
	Author string `json:"author,omitempty" jsonschema:"title=author,description=The Author of the webpage."`
	// Description is the meta description of the webpage.
	Description string `json:"description,omitempty" jsonschema:"title=description,description=The meta description of the webpage."`
	// Keywords is the meta keywords of the webpage.
	Keywords string `json:"keywords,omitempty" jsonschema:"title=keywords,description=The meta keywords of the webpage."`
	// SiteName is the name of the website.
	SiteName string `json:"sitename,omitempty" jsonschema:"title=sitename,description=The name of the website."`
	// Domain is the domain name of the website.
	Domain string `json:"domain,omitempty" jsonschema:"title=domain,description=The domain name of the website."`
}

// Output Schema for the output of the WebpageScraperTool.
type Output struct {
	schema.Base
	// Content The scraped content in markdown format.
	Content string `json:"content,omitempty" jsonschema:"title=content,description=The scraped content in markdown format."`
	// Metadata is metadata about the scraped webpage.
	Metadata *Metadata `json:"metadata,omitempty" jsonschema:"title=metadata,description=Metadata about the webpage."`
}

func NewOutput(content string, metadata *Metadata) *Output {
	return &Output{
		Content:  content,
		Metadata: metadata,
	}
}

func (o Output) String() string {
	return o.Content
}

type Config struct {
	tools.Config
	// userAgent User agent string to use for requests.
	userAgent string
	// timeout Timeout for HTTP requests
	timeout time.Duration
	// maxContentLength Maximum content length in bytes to process.
	maxContentLength int64
	httpClient       *http.Client
}

type Webscraper struct {
	Config
}

var _ tools.Tool[Input, Output] = (*Webscraper)(nil)

var (
	blankLinesRegex = regexp.MustCompile(`(\r?\n\s*){3,}`)
	linkRegex       = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
)

func New(opts ...Option) *Webscraper {
	ret := new(Webscraper)
	for _, opt := range opts {
		opt(&ret.Config)
	}
	if ret.Title() == "" {
		ret.SetTitle("WebscraperTool")
	}
	if ret.Description() == "" {
		ret.SetDescription("Scrape a webpage and return its main content as markdown.")
	}
	if ret.userAgent == "" {
		ret.userAgent = DefaultUserAgent
	}
	if ret.timeout <= 0 {
		ret.timeout = DefaultTimeout
	}
	if ret.maxContentLength <= 0 {
		ret.maxContentLength = DefaultMaxContentLength
	}
	if ret.httpClient == nil {
		ret.httpClient = &http.Client{Timeout: ret.timeout}
	}
	return ret
}

func (t *Webscraper) Run(ctx context.Context, input *Input) (*Output, error) {
	t.OnStart(ctx, t, input)
	ret, err := t.scrape(ctx, input)
	if err != nil {
		t.OnError(ctx, t, input, err)
		return nil, err
	}
	t.OnEnd(ctx, t, input, ret)
	return ret, nil
}

func (t *Webscraper) scrape(ctx context.Context, input *Input) (*Output, error) {
	parsedURL, err := url.ParseRequestURI(input.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	doc, err := t.fetch(ctx, input)
	if err != nil {
		return nil, err
	}
	meta := &Metadata{
		Domain: parsedURL.Host,
	}
	t.extractMetadata(doc, meta)
	mainContent := t.extractMainContent(doc)
	markdown, err := htmltomarkdown.ConvertString(
		mainContent,
		converter.WithDomain(fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)),
	)
	if err != nil {
		return nil, fmt.Errorf("convert html to markdown: %w", err)
	}
	if !input.IncludeLinks {
		markdown = linkRegex.ReplaceAllString(markdown, "$1")
	}
	t.Logger().Debug("webpage scraped", zap.String("url", input.URL), zap.Int("length", len(markdown)))
	return NewOutput(CleanMarkdown(markdown), meta), nil
}

func (t *Webscraper) fetch(ctx context.Context, input *Input) (*goquery.Document, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, input.URL, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("User-Agent", t.userAgent)
	httpReq.Header.Set("Accept", DefaultAccept)
	httpReq.Header.Set("Connection", "keep-alive")
	httpResp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", input.URL, err)
	}
	defer httpResp.Body.Close()
	if httpResp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", input.URL, httpResp.StatusCode)
	}
	if httpResp.ContentLength > t.maxContentLength {
		return nil, fmt.Errorf("content length exceeds maximum of %d bytes", t.maxContentLength)
	}
	return goquery.NewDocumentFromReader(io.LimitReader(httpResp.Body, t.maxContentLength))
}

// extractMetadata extracts metadata from the webpage
func (t *Webscraper) extractMetadata(doc *goquery.Document, meta *Metadata) {
	meta.Title = strings.TrimSpace(doc.Find("head title").Text())
	meta.Author, _ = doc.Find("meta[name='author']").Attr("content")
	meta.Description, _ = doc.Find("meta[name='description']").Attr("content")
	meta.Keywords, _ = doc.Find("meta[name='keywords']").Attr("content")
	meta.SiteName, _ = doc.Find("meta[property='og:site_name']").Attr("content")
}

// extractMainContent extracts the main content from the webpage using custom heuristics
func (t *Webscraper) extractMainContent(doc *goquery.Document) string {
	doc.Find("script, style, nav, header, footer").Remove()
	for _, selector := range []string{"main", "#content, #main", ".content, .main", "article", "body"} {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			continue
		}
		if html, err := sel.Html(); err == nil && strings.TrimSpace(html) != "" {
			return html
		}
	}
	html, _ := doc.Html()
	return html
}

// CleanMarkdown removes excessive blank lines and trailing whitespace,
// the result ends with a single newline
func CleanMarkdown(content string) string {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t\r")
	}
	content = strings.Join(lines, "\n")
	content = blankLinesRegex.ReplaceAllString(content, "\n\n")
	return strings.TrimSpace(content) + "\n"
}
