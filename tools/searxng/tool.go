package searxng

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/bububa/atomic-cookbook/schema"
	"github.com/bububa/atomic-cookbook/tools"
)

type Category = string

const (
	EmptyCategory       Category = ""
	GeneralCategory     Category = "general"
	NewsCategory        Category = "news"
	SocialMediaCategory Category = "social_media"
)

// DefaultMaxResults is the number of results returned when no limit is set
const DefaultMaxResults = 10

// Input Schema for input to a tool for searching for information, news, references, and other content using SearxNG.
// Returns a list of search results with a short description or content snippet and URLs for further exploration
type Input struct {
	schema.Base
	// Queries list of search queries.
	Queries []string `json:"queries" jsonschema:"title=queries,description=List of search queries." validate:"required"`
	// Category: Category of the search queries."
	Category Category `json:"category,omitempty" jsonschema:"title=category,enum=general,enum=news,enum=social_media,default=general,description=Category of the search queries."`
}

func NewInput(category Category, queries []string) *Input {
	return &Input{
		Queries:  queries,
		Category: category,
	}
}

func (s Input) String() string {
	bs, _ := json.Marshal(s)
	return string(bs)
}

// SearchResultItem represents a single search result item
type SearchResultItem struct {
	schema.Base
	// URL The URL of the search result
	URL string `json:"url" jsonschema:"title=url,description=The URL of the search result" validate:"required,url"`
	// Title The title of the search result
	Title string `json:"title" jsonschema:"title=title,description=The title of the search result" validate:"required"`
	// Content The content snippet of the search result
	Content string `json:"content,omitempty" jsonschema:"title=content,description=The content snippet of the search result"`
	// Query The query used to obtain this search result
	Query string `json:"query" jsonschema:"title=query,description=The query used to obtain this search result" validate:"required"`
	// Category of the search result
	Category Category `json:"category,omitempty" jsonschema:"title=category,description=Category of the search result"`
	// Metadata of the search result, usually a date
	Metadata string `json:"metadata,omitempty" jsonschema:"title=metadata,description=Metadata of the search result"`
	// PublishedDate published date of the search result
	PublishedDate string `json:"publishedDate,omitempty" jsonschema:"title=publishedDate,description=Published date of the search result"`
}

func (s SearchResultItem) String() string {
	bs, _ := json.Marshal(s)
	return string(bs)
}

// SearchResponse represents the entire response from the local search engine
type SearchResponse struct {
	Query           string             `json:"query"`
	NumberOfResults int                `json:"number_of_results"`
	Results         []SearchResultItem `json:"results"`
}

// Output represents the output of the SearxNG search tool.
type Output struct {
	schema.Base
	// Results List of search result items
	Results []SearchResultItem `json:"results,omitempty" jsonschema:"title=results,description=List of search result items"`
	// Category The category of the search results
	Category Category `json:"category,omitempty" jsonschema:"title=category,enum=general,enum=news,enum=social_media,default=general,description=Category of the search results."`
}

func (s Output) String() string {
	bs, _ := json.Marshal(s)
	return string(bs)
}

type Config struct {
	tools.Config
	language   string
	baseURL    string
	maxResults int
	httpClient *http.Client
}

// Tool is a tool for performing searches on SearxNG based on the provided queries and category.
type Tool struct {
	Config
}

var _ tools.Tool[Input, Output] = (*Tool)(nil)

func New(opts ...Option) *Tool {
	ret := new(Tool)
	for _, opt := range opts {
		opt(&ret.Config)
	}
	if ret.Title() == "" {
		ret.SetTitle("SearxngTool")
	}
	if ret.Description() == "" {
		ret.SetDescription("Search the web for information, news and references using SearxNG.")
	}
	if ret.maxResults <= 0 {
		ret.maxResults = DefaultMaxResults
	}
	if ret.httpClient == nil {
		ret.httpClient = http.DefaultClient
	}
	ret.baseURL = strings.TrimRight(ret.baseURL, "/")
	return ret
}

// Run Runs the SearxNGTool synchronously with the given parameters.
// Queries are sent concurrently, results without url, title or content are dropped,
// duplicated urls are merged, at most maxResults items are returned.
func (t *Tool) Run(ctx context.Context, input *Input) (*Output, error) {
	t.OnStart(ctx, t, input)
	var (
		wg      sync.WaitGroup
		results = make([][]SearchResultItem, len(input.Queries))
		errs    = make([]error, len(input.Queries))
	)
	for idx, query := range input.Queries {
		wg.Add(1)
		go func(idx int, query string) {
			defer wg.Done()
			results[idx], errs[idx] = t.fetchSearchResults(ctx, query, input.Category)
		}(idx, query)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			t.OnError(ctx, t, input, err)
			return nil, err
		}
	}
	output := &Output{
		Category: input.Category,
	}
	seen := make(map[string]struct{})
	for _, items := range results {
		for _, item := range items {
			if item.URL == "" || item.Title == "" || item.Content == "" {
				continue
			}
			if _, ok := seen[item.URL]; ok {
				continue
			}
			seen[item.URL] = struct{}{}
			output.Results = append(output.Results, item)
		}
	}
	if len(output.Results) > t.maxResults {
		output.Results = output.Results[:t.maxResults]
	}
	t.Logger().Debug("searxng search", zap.Strings("queries", input.Queries), zap.Int("results", len(output.Results)))
	t.OnEnd(ctx, t, input, output)
	return output, nil
}

// fetchSearchResults queries the local search engine and returns the parsed search response
func (t *Tool) fetchSearchResults(ctx context.Context, query string, category Category) ([]SearchResultItem, error) {
	values := url.Values{}
	values.Set("q", query)
	values.Set("safesearch", "0")
	values.Set("format", "json")
	values.Set("engines", "bing,duckduckgo,google,startpage,yandex")
	if t.language != "" {
		values.Set("language", t.language)
	}
	if category != "" {
		values.Set("categories", category)
	}
	searchURL := fmt.Sprintf("%s/search?%s", t.baseURL, values.Encode())
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, err
	}

	httpResp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("error querying local search engine: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("non-200 response from search engine: %d", httpResp.StatusCode)
	}

	var searchResponse SearchResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&searchResponse); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	for idx := range searchResponse.Results {
		searchResponse.Results[idx].Query = query
	}

	return searchResponse.Results, nil
}
