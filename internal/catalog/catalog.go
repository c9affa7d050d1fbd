package catalog

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jengzang/cellwatch-backend-go/internal/models"
)

// tsPattern matches the fixed-width timestamp encoded in file names,
// e.g. cells_20240601_1200.geojson
var tsPattern = regexp.MustCompile(`(\d{8}_\d{4})`)

// TimestampKey extracts the YYYYMMDD_HHMM key from a file name. The second
// return value is false when the name carries no timestamp, which is a
// valid state, not an error.
func TimestampKey(fileName string) (string, bool) {
	m := tsPattern.FindString(fileName)
	return m, m != ""
}

// Catalog loads and indexes the boundary file series. Steps are ordered by
// file name ascending; the fixed-width timestamp encoding makes that
// chronological order.
type Catalog struct {
	source           *Source
	client           HTTPClient
	boundaryPrefix   string
	trajectoryPrefix string
	maxConcurrent    int

	mu        sync.RWMutex
	steps     []*models.TimeStep
	listing   []string
	loaded    bool
	lastLoad  time.Time
	lastCheck time.Time
}

// New creates a catalog over the given source
func New(source *Source, client HTTPClient, boundaryPrefix, trajectoryPrefix string, maxConcurrent int) *Catalog {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Catalog{
		source:           source,
		client:           client,
		boundaryPrefix:   boundaryPrefix,
		trajectoryPrefix: trajectoryPrefix,
		maxConcurrent:    maxConcurrent,
	}
}

// LoadAll lists the directory, fetches every boundary file concurrently,
// drops files that fail to fetch or parse, and publishes the sorted result
// as the new step sequence. The previous sequence is replaced wholesale.
func (c *Catalog) LoadAll(ctx context.Context) error {
	entries, err := c.ListBoundaries(ctx)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("no boundary files found")
	}

	// Fetch all files concurrently, bounded, and reassemble by index once
	// every fetch has resolved
	results := make([]*models.TimeStep, len(entries))
	sem := make(chan struct{}, c.maxConcurrent)
	var wg sync.WaitGroup

	for i, entry := range entries {
		wg.Add(1)
		go func(i int, entry Entry) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			body, err := c.fetch(ctx, entry.DownloadURL)
			if err != nil {
				log.Printf("Dropping %s: %v", entry.Name, err)
				return
			}
			fc, err := models.DecodeFeatureCollection(body)
			if err != nil {
				log.Printf("Dropping %s: %v", entry.Name, err)
				return
			}
			results[i] = models.NewTimeStep(entry.Name, entry.DownloadURL, fc)
		}(i, entry)
	}
	wg.Wait()

	steps := make([]*models.TimeStep, 0, len(results))
	for _, s := range results {
		if s != nil {
			steps = append(steps, s)
		}
	}
	if len(steps) == 0 {
		return fmt.Errorf("all %d boundary files failed to load", len(entries))
	}

	sort.Slice(steps, func(i, j int) bool {
		return steps[i].FileName < steps[j].FileName
	})

	c.mu.Lock()
	c.steps = steps
	c.loaded = true
	c.lastLoad = time.Now()
	c.mu.Unlock()

	log.Printf("Catalog loaded: %d of %d boundary files", len(steps), len(entries))
	return nil
}

// ListBoundaries lists the directory and keeps only boundary files,
// excluding their trajectory siblings
func (c *Catalog) ListBoundaries(ctx context.Context) ([]Entry, error) {
	entries, err := c.source.List(ctx)
	if err != nil {
		return nil, err
	}

	var out []Entry
	for _, e := range entries {
		if c.trajectoryPrefix != "" && strings.HasPrefix(e.Name, c.trajectoryPrefix) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	names := make([]string, len(out))
	for i, e := range out {
		names[i] = e.Name
	}

	c.mu.Lock()
	c.listing = names
	c.lastCheck = time.Now()
	c.mu.Unlock()

	return out, nil
}

// Listing returns the boundary file names from the most recent directory
// listing. Unlike Steps it includes files that failed to load, so a
// permanently broken file is still counted as seen.
func (c *Catalog) Listing() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.listing))
	copy(out, c.listing)
	return out
}

// Steps returns the current step sequence
func (c *Catalog) Steps() []*models.TimeStep {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*models.TimeStep, len(c.steps))
	copy(out, c.steps)
	return out
}

// Loaded reports whether the initial load has completed
func (c *Catalog) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

// Status describes the catalog for the status endpoint
type Status struct {
	Loaded    bool      `json:"loaded"`
	StepCount int       `json:"stepCount"`
	LastLoad  time.Time `json:"lastLoad"`
	LastCheck time.Time `json:"lastCheck"`
}

// Status returns the load state
func (c *Catalog) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Status{
		Loaded:    c.loaded,
		StepCount: len(c.steps),
		LastLoad:  c.lastLoad,
		LastCheck: c.lastCheck,
	}
}

// Trajectory returns the trajectory overlay for a step, fetching it on
// first use. The cache slot lives on the step itself, so a fetch that
// resolves after the user navigated away still lands in the right place.
func (c *Catalog) Trajectory(ctx context.Context, step *models.TimeStep) (*models.FeatureCollection, error) {
	if fc := step.CachedTrajectory(); fc != nil {
		return fc, nil
	}

	trajURL, err := c.trajectoryURL(step)
	if err != nil {
		return nil, err
	}

	body, err := c.fetch(ctx, trajURL)
	if err != nil {
		return nil, fmt.Errorf("failed to load trajectory for %s: %w", step.FileName, err)
	}
	fc, err := models.DecodeFeatureCollection(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse trajectory for %s: %w", step.FileName, err)
	}

	step.StoreTrajectory(fc)
	return step.CachedTrajectory(), nil
}

// trajectoryURL derives the sibling trajectory file URL from a boundary
// step by swapping the file name prefix
func (c *Catalog) trajectoryURL(step *models.TimeStep) (string, error) {
	base := path.Base(step.FileName)
	trajName := strings.Replace(base, c.boundaryPrefix, c.trajectoryPrefix, 1)
	if trajName == base {
		return "", fmt.Errorf("cannot derive trajectory file name from %s", step.FileName)
	}

	u, err := url.Parse(step.DownloadURL)
	if err != nil {
		return "", fmt.Errorf("invalid download URL for %s: %w", step.FileName, err)
	}
	u.Path = path.Join(path.Dir(u.Path), trajName)
	return u.String(), nil
}

func (c *Catalog) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch %s returned status %d", rawURL, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
