package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	json "github.com/goccy/go-json"
	"golang.org/x/net/html"
)

// Entry is one file discovered in the data directory
type Entry struct {
	Name        string `json:"name"`
	DownloadURL string `json:"download_url"`
}

// HTTPClient abstracts the HTTP transport so tests can substitute canned
// responses
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Source resolves a directory URL to a file listing. It first parses the
// directory's HTML index page for anchors ending in the configured
// extension; if that yields nothing it falls back to a GitHub-style
// contents API returning a JSON array of {name, download_url}.
type Source struct {
	client      HTTPClient
	dirURL      string
	fallbackURL string
	ext         string
}

// NewSource creates a directory source
func NewSource(client HTTPClient, dirURL, fallbackURL, ext string) *Source {
	return &Source{
		client:      client,
		dirURL:      dirURL,
		fallbackURL: fallbackURL,
		ext:         ext,
	}
}

// List returns the directory's file entries
func (s *Source) List(ctx context.Context) ([]Entry, error) {
	entries, err := s.listIndex(ctx)
	if err == nil && len(entries) > 0 {
		return entries, nil
	}

	if s.fallbackURL == "" {
		if err != nil {
			return nil, fmt.Errorf("failed to list directory index: %w", err)
		}
		return nil, fmt.Errorf("directory index %s yielded no %s files", s.dirURL, s.ext)
	}

	fallback, ferr := s.listFallback(ctx)
	if ferr != nil {
		return nil, fmt.Errorf("failed to list directory (index and fallback): %w", ferr)
	}
	return fallback, nil
}

// listIndex fetches the directory URL and collects anchor hrefs ending in
// the file extension
func (s *Source) listIndex(ctx context.Context) ([]Entry, error) {
	body, err := s.get(ctx, s.dirURL)
	if err != nil {
		return nil, err
	}

	base, err := url.Parse(s.dirURL)
	if err != nil {
		return nil, fmt.Errorf("invalid directory URL: %w", err)
	}

	doc, err := html.Parse(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse index page: %w", err)
	}

	var entries []Entry
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key != "href" || !strings.HasSuffix(attr.Val, s.ext) {
					continue
				}
				ref, err := url.Parse(attr.Val)
				if err != nil {
					continue
				}
				abs := base.ResolveReference(ref)
				entries = append(entries, Entry{
					Name:        path.Base(abs.Path),
					DownloadURL: abs.String(),
				})
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)

	return entries, nil
}

// listFallback queries the remote listing API
func (s *Source) listFallback(ctx context.Context) ([]Entry, error) {
	body, err := s.get(ctx, s.fallbackURL)
	if err != nil {
		return nil, err
	}

	var all []Entry
	if err := json.Unmarshal(body, &all); err != nil {
		return nil, fmt.Errorf("failed to parse listing response: %w", err)
	}

	var entries []Entry
	for _, e := range all {
		if strings.HasSuffix(e.Name, s.ext) {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

func (s *Source) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch %s returned status %d", rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}
