package dish

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"text/template"
	"time"
	"unicode/utf8"

	"myflex/internal/llm"
	"myflex/internal/shared"

	"github.com/PuerkitoBio/goquery"
)

//go:embed importer_prompt.md
var importerPrompt string

var importerTmpl = template.Must(template.New("importer").Parse(importerPrompt))

// maxContentChars bounds the page text sent to the model.
const maxContentChars = 20000

// Creator stores imported dishes.
type Creator interface {
	Create(ctx context.Context, d Dish) (Dish, error)
}

// Importer turns a recipe web page into an unverified catalog dish.
type Importer struct {
	textGen    llm.TextGenerator
	dishes     Creator
	httpClient *http.Client
}

// NewImporter creates a new Importer.
func NewImporter(textGen llm.TextGenerator, dishes Creator) *Importer {
	return &Importer{
		textGen:    textGen,
		dishes:     dishes,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type page struct {
	URL      string
	Title    string
	ImageURL string
	Content  string
}

type extractedDish struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	Origin      string `json:"origin"`
	CookingTime int    `json:"cookingTime"`
	Calories    int    `json:"calories"`
	Recipe      string `json:"recipe"`
}

// ImportURL fetches url, extracts the dish with the model and stores it
// awaiting moderation.
func (i *Importer) ImportURL(ctx context.Context, url string) (Dish, shared.AgentMeta, error) {
	start := time.Now()
	meta := shared.AgentMeta{AgentName: "DishImporter"}

	p, err := i.fetchPage(ctx, url)
	if err != nil {
		return Dish{}, meta, fmt.Errorf("failed to fetch content: %w", err)
	}

	var buf bytes.Buffer
	if err := importerTmpl.Execute(&buf, p); err != nil {
		return Dish{}, meta, fmt.Errorf("failed to build prompt: %w", err)
	}

	resp, err := i.textGen.GenerateContent(ctx, buf.String())
	if err != nil {
		return Dish{}, meta, fmt.Errorf("ai extraction failed: %w", err)
	}
	meta.Usage = resp.Usage
	meta.Latency = time.Since(start)

	var extracted extractedDish
	if err := json.Unmarshal([]byte(stripCodeFence(resp.Content)), &extracted); err != nil {
		return Dish{}, meta, fmt.Errorf("failed to parse AI response: %w", err)
	}

	d, err := i.dishes.Create(ctx, Dish{
		Name:        extracted.Name,
		Category:    extracted.Category,
		Origin:      extracted.Origin,
		CookingTime: extracted.CookingTime,
		Calories:    extracted.Calories,
		ImageURL:    p.ImageURL,
		Recipe:      extracted.Recipe,
		IsVerified:  false,
		SourceURL:   url,
	})
	if err != nil {
		return Dish{}, meta, err
	}
	return d, meta, nil
}

func (i *Importer) fetchPage(ctx context.Context, url string) (page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return page{}, err
	}
	resp, err := i.httpClient.Do(req)
	if err != nil {
		return page{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return page{}, fmt.Errorf("failed to fetch URL: status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return page{}, err
	}

	p := page{URL: url, Title: strings.TrimSpace(doc.Find("title").First().Text())}
	p.ImageURL, _ = doc.Find(`meta[property="og:image"]`).Attr("content")

	// Remove noise to save LLM tokens
	doc.Find("script, style, nav, footer, iframe, ads, .ads, #ads").Remove()

	content := strings.Join(strings.Fields(doc.Find("body").Text()), " ")
	content = truncateText(content, maxContentChars)
	p.Content = content
	return p, nil
}

// stripCodeFence removes a surrounding markdown code block some models add
// despite being asked not to.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// truncateText cuts s to at most max bytes without splitting a UTF-8
// sequence.
func truncateText(s string, max int) string {
	if len(s) <= max {
		return s
	}
	n := max
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
