package models

// Page is the extracted text of one scraped URL.
type Page struct {
	URL        string   `json:"url"`
	Title      string   `json:"title"`
	Headings   []string `json:"headings"`
	Paragraphs []string `json:"paragraphs"`
	Status     int      `json:"status"`
	RenderMS   int      `json:"render_ms"`
}

// Empty reports whether the page produced no usable text.
func (p Page) Empty() bool { return len(p.Headings) == 0 && len(p.Paragraphs) == 0 }
