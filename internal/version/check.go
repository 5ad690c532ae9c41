package version

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-version"
)

const (
	githubReleasesAPI = "https://api.github.com/repos/cdstail/cdstail/releases/latest"

	versionCacheFile = ".cdstail/version_cache.json"

	// only check once per day
	cacheDuration = 24 * time.Hour
)

// VersionCache stores the cached version check result
type VersionCache struct {
	LatestVersion string    `json:"latestVersion"`
	CheckedAt     time.Time `json:"checkedAt"`
}

// GitHubRelease is the part of a GitHub release response we read
type GitHubRelease struct {
	TagName string `json:"tag_name"`
	HTMLURL string `json:"html_url"`
}

// Checker looks up the latest release. The zero value checks GitHub and
// caches in the home directory.
type Checker struct {
	ReleasesURL string
	CachePath   string
	HTTPClient  *http.Client
	Now         func() time.Time
	// Current overrides Version
	Current string
}

func (c *Checker) releasesURL() string {
	if c.ReleasesURL != "" {
		return c.ReleasesURL
	}
	return githubReleasesAPI
}

func (c *Checker) cachePath() string {
	if c.CachePath != "" {
		return c.CachePath
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, versionCacheFile)
}

func (c *Checker) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *Checker) current() string {
	if c.Current != "" {
		return c.Current
	}
	return Version
}

// CheckForUpdate returns the latest version and whether it is newer than the
// running one. Network failures are not errors: the check is skipped.
func (c *Checker) CheckForUpdate(ctx context.Context) (latestVersion string, updateAvailable bool, err error) {
	if c.current() == "dev" {
		return "", false, nil
	}

	if cached, ok := c.getCachedVersion(); ok {
		return compareVersions(c.current(), cached)
	}

	latest, err := c.fetchLatestVersion(ctx)
	if err != nil {
		//nolint:nilerr // a failed check must not fail the command
		return "", false, nil
	}

	c.cacheVersion(latest)

	return compareVersions(c.current(), latest)
}

// CheckForUpdate checks GitHub with the default Checker
func CheckForUpdate(ctx context.Context) (string, bool, error) {
	return (&Checker{}).CheckForUpdate(ctx)
}

func compareVersions(currentVersion, latestVersion string) (string, bool, error) {
	current, err := version.NewVersion(strings.TrimPrefix(currentVersion, "v"))
	if err != nil {
		return latestVersion, false, fmt.Errorf("invalid current version: %w", err)
	}

	latest, err := version.NewVersion(strings.TrimPrefix(latestVersion, "v"))
	if err != nil {
		return latestVersion, false, fmt.Errorf("invalid latest version: %w", err)
	}

	return latestVersion, latest.GreaterThan(current), nil
}

func (c *Checker) fetchLatestVersion(ctx context.Context) (string, error) {
	client := c.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 3 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.releasesURL(), nil)
	if err != nil {
		return "", err
	}
	// GitHub requires a User-Agent
	req.Header.Set("User-Agent", "cdstail-cli")

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	//nolint:errcheck // Deferred close, error not actionable
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("GitHub API returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var release GitHubRelease
	if err := json.Unmarshal(body, &release); err != nil {
		return "", err
	}
	if release.TagName == "" {
		return "", fmt.Errorf("release has no tag")
	}

	return release.TagName, nil
}

func (c *Checker) getCachedVersion() (string, bool) {
	path := c.cachePath()
	if path == "" {
		return "", false
	}

	data, err := os.ReadFile(path) //nolint:gosec // Cache file in user's home directory
	if err != nil {
		return "", false
	}

	var cache VersionCache
	if err := json.Unmarshal(data, &cache); err != nil {
		return "", false
	}

	if c.now().Sub(cache.CheckedAt) > cacheDuration {
		return "", false
	}

	return cache.LatestVersion, true
}

func (c *Checker) cacheVersion(latestVersion string) {
	path := c.cachePath()
	if path == "" {
		return
	}

	//nolint:errcheck,gosec // Best effort directory creation, error not actionable
	os.MkdirAll(filepath.Dir(path), 0755)

	data, err := json.Marshal(VersionCache{
		LatestVersion: latestVersion,
		CheckedAt:     c.now(),
	})
	if err != nil {
		return
	}

	//nolint:errcheck,gosec // Best effort cache write, error not actionable
	os.WriteFile(path, data, 0644)
}

// PrintUpdateNotification prints an update notice to stderr unless
// skipVersionCheck is set
func PrintUpdateNotification(ctx context.Context, skipVersionCheck bool) {
	if skipVersionCheck {
		return
	}

	latestVersion, updateAvailable, err := CheckForUpdate(ctx)
	if err != nil || !updateAvailable {
		return
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "A new version of cdstail is available: %s (you have %s)\n", latestVersion, Version)
	fmt.Fprintf(os.Stderr, "Update with:\n")
	fmt.Fprintf(os.Stderr, "  go install github.com/cdstail/cdstail/cmd/cdstail@latest\n")
	fmt.Fprintf(os.Stderr, "\n")
}
