// Package updater checks whether a newer release of pv is published.
package updater

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/Dicklesworthstone/parts_viewer/pkg/version"
)

// DefaultURL is the GitHub endpoint for the latest release.
const DefaultURL = "https://api.github.com/repos/Dicklesworthstone/parts_viewer/releases/latest"

// Release is the part of the GitHub release payload we read.
type Release struct {
	TagName string `json:"tag_name"`
	HTMLURL string `json:"html_url"`
}

// Checker queries a release endpoint.
type Checker struct {
	URL     string
	Current string
	Client  *http.Client
}

// NewChecker returns a checker against DefaultURL for the running version.
// The short timeout keeps a slow network from holding up the command.
func NewChecker() *Checker {
	return &Checker{
		URL:     DefaultURL,
		Current: version.Version,
		Client:  &http.Client{Timeout: 2 * time.Second},
	}
}

// Latest fetches the latest published release.
func (c *Checker) Latest(ctx context.Context) (Release, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return Release{}, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return Release{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Release{}, fmt.Errorf("release endpoint returned status: %s", resp.Status)
	}

	var rel Release
	if err := json.NewDecoder(resp.Body).Decode(&rel); err != nil {
		return Release{}, fmt.Errorf("decode release: %w", err)
	}
	return rel, nil
}

// Check returns the newer release when one exists. ok is false when the
// running version is current or ahead.
func (c *Checker) Check(ctx context.Context) (rel Release, ok bool, err error) {
	rel, err = c.Latest(ctx)
	if err != nil {
		return Release{}, false, err
	}
	newer, err := Newer(rel.TagName, c.Current)
	if err != nil {
		return Release{}, false, err
	}
	return rel, newer, nil
}

// Newer reports whether candidate is a later semantic version than current.
// Both may carry a leading "v".
func Newer(candidate, current string) (bool, error) {
	cand, err := semver.NewVersion(candidate)
	if err != nil {
		return false, fmt.Errorf("parse release version %q: %w", candidate, err)
	}
	cur, err := semver.NewVersion(current)
	if err != nil {
		return false, fmt.Errorf("parse current version %q: %w", current, err)
	}
	return cand.GreaterThan(cur), nil
}
