package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/devraulu/newsreap/pkg/article"
)

var csvHeader = []string{
	"title", "url", "displayed_url", "snippet", "date", "published_at", "source",
	"content", "position", "is_ad", "featured", "is_video", "is_news", "query", "discovered_at",
}

func WriteJSON(w io.Writer, recs []article.Record) error {
	if recs == nil {
		recs = []article.Record{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(recs)
}

func WriteCSV(w io.Writer, recs []article.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	for _, r := range recs {
		published := ""
		if t, ok := r.PublishedAt(); ok {
			published = t.Format("2006-01-02")
		}
		row := []string{
			r.Title, r.URL, r.DisplayedURL, r.Snippet, r.Date, published, r.Source,
			r.Content, strconv.Itoa(r.Position),
			strconv.FormatBool(r.IsAd), strconv.FormatBool(r.Featured),
			strconv.FormatBool(r.IsVideo), strconv.FormatBool(r.IsNews),
			r.Query, r.DiscoveredAt.Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

type Paths struct {
	JSON string
	CSV  string
}

// WriteRun writes articles_<runID>.json and articles_<runID>.csv into dir.
func WriteRun(dir, runID string, recs []article.Record) (Paths, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Paths{}, err
	}

	p := Paths{
		JSON: filepath.Join(dir, fmt.Sprintf("articles_%s.json", runID)),
		CSV:  filepath.Join(dir, fmt.Sprintf("articles_%s.csv", runID)),
	}

	if err := writeFile(p.JSON, recs, WriteJSON); err != nil {
		return Paths{}, err
	}
	if err := writeFile(p.CSV, recs, WriteCSV); err != nil {
		return Paths{}, err
	}
	return p, nil
}

func writeFile(path string, recs []article.Record, write func(io.Writer, []article.Record) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := write(f, recs); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
