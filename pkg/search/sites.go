package search

import (
	"bufio"
	"errors"
	"log/slog"
	"os"
	"strings"
)

var (
	ErrNoSites = errors.New("no sites loaded")
)

// LoadSites reads one site filter per line. Blank lines and lines starting
// with '#' are ignored, scheme and path are dropped.
func LoadSites(path string) ([]string, error) {
	slog.Info("loading sites", "path", path)
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var sites []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		site := CleanSite(line)
		if site == "" {
			slog.Error("couldn't parse site", slog.String("line", line))
			continue
		}
		if seen[site] {
			continue
		}
		seen[site] = true
		sites = append(sites, site)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if len(sites) == 0 {
		return nil, ErrNoSites
	}

	slog.Info("loaded sites", "count", len(sites))
	return sites, nil
}

func CleanSite(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimPrefix(s, "www.")
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	return s
}
