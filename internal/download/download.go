package download

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fatih/color"
	"github.com/klauspost/compress/gzhttp"
	"golang.org/x/sync/errgroup"
)

// IndexURL is the package index listing every published package with its
// latest version.
const IndexURL = "https://package.elm-lang.org/search.json"

// Package is one entry of the package index.
type Package struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type status int

const (
	cloned status = iota
	alreadyPresent
	failed
)

// Downloader populates the corpus tree: repos/<author>/<package>/<version>,
// one shallow git checkout per published package version.
type Downloader struct {
	root     string
	jobs     int
	indexURL string
	client   *http.Client
	log      *slog.Logger
}

func New(root string, jobs int, log *slog.Logger) *Downloader {
	return &Downloader{
		root:     root,
		jobs:     jobs,
		indexURL: IndexURL,
		client: &http.Client{
			Transport: gzhttp.Transport(http.DefaultTransport),
			Timeout:   time.Minute,
		},
		log: log,
	}
}

// Run fetches the package index and clones every missing checkout with
// bounded parallelism. Individual clone failures are tallied, not fatal:
// a package with a broken tag should not stop the rest of the corpus.
func (d *Downloader) Run(ctx context.Context) error {
	d.log.Info("fetching package index", "url", d.indexURL)
	packages, err := d.fetchIndex(ctx)
	if err != nil {
		return err
	}
	d.log.Info("got package index", "packages", len(packages))

	var clonedCount, presentCount, failedCount atomic.Int64

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(d.jobs)
	for _, pkg := range packages {
		pkg := pkg
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			switch d.clone(ctx, pkg) {
			case cloned:
				clonedCount.Add(1)
			case alreadyPresent:
				presentCount.Add(1)
			case failed:
				failedCount.Add(1)
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}

	color.Green("Cloned %d, errored %d, already present %d",
		clonedCount.Load(), failedCount.Load(), presentCount.Load())
	return nil
}

func (d *Downloader) fetchIndex(ctx context.Context) ([]Package, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.indexURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build index request: %w", err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch package index: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("package index returned %s", resp.Status)
	}

	var packages []Package
	if err := json.NewDecoder(resp.Body).Decode(&packages); err != nil {
		return nil, fmt.Errorf("failed to decode package index: %w", err)
	}
	return packages, nil
}

func (d *Downloader) clone(ctx context.Context, pkg Package) status {
	if !strings.Contains(pkg.Name, "/") {
		d.log.Warn("skipping unparseable package name", "name", pkg.Name)
		return failed
	}

	dest := filepath.Join(d.root, pkg.Name, pkg.Version)
	if _, err := os.Stat(dest); err == nil {
		return alreadyPresent
	}

	fmt.Printf("%s %s@%s\n",
		color.GreenString("Cloning"),
		color.BlueString(pkg.Name),
		color.BlueString(pkg.Version))

	if err := os.MkdirAll(filepath.Join(d.root, pkg.Name), 0o755); err != nil {
		d.log.Error("failed to create package dir", "name", pkg.Name, "err", err)
		return failed
	}

	// git URL to avoid username/password prompts
	url := fmt.Sprintf("git@github.com:%s.git", pkg.Name)
	cmd := exec.CommandContext(ctx, "git",
		"clone", "--quiet", "--branch", pkg.Version, "--depth", "1", url, dest)
	if err := cmd.Run(); err != nil {
		color.Red("!!! Error cloning %s", pkg.Name)
		return failed
	}
	return cloned
}
