// Package update checks Docker Hub for a newer container image in the
// background. The check is best-effort and rate-limited to once per day;
// failures are logged at debug level and never affect the run.
package update

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"

	"tagassist/internal/logger"
)

// DefaultImage is the published container image for this tool.
const DefaultImage = "tagassist/tagassist"

const stateFile = ".local_data.json"

// Checker compares the running version against the latest published tag.
type Checker struct {
	// Image is the Docker Hub repository (namespace/name).
	Image string
	// Version is the currently running version.
	Version string
	// StatePath holds the last-check date; defaults to .local_data.json
	// in the working directory.
	StatePath string

	client  *http.Client
	baseURL string
	log     zerolog.Logger
}

// NewChecker creates a checker for the given image and version.
func NewChecker(image, version string) *Checker {
	return &Checker{
		Image:     image,
		Version:   version,
		StatePath: stateFile,
		client:    &http.Client{Timeout: 5 * time.Second},
		baseURL:   "https://hub.docker.com",
		log:       logger.WithComponent("update"),
	}
}

type checkState struct {
	LastCheck string `json:"last_check"`
}

type tagsResponse struct {
	Results []struct {
		Name string `json:"name"`
	} `json:"results"`
}

// Check performs the once-per-day update check.
func (c *Checker) Check(ctx context.Context) {
	if c.checkedToday() {
		return
	}

	latest, err := c.latestTag(ctx)
	if err != nil {
		c.log.Debug().Err(err).Msg("Update check failed")
		return
	}

	if latest != "" && latest != c.Version {
		c.log.Info().
			Str("current", c.Version).
			Str("latest", latest).
			Msgf("A new container image version is available. Update with: docker pull %s:%s", c.Image, latest)
	}

	c.writeState()
}

func (c *Checker) checkedToday() bool {
	raw, err := os.ReadFile(c.StatePath)
	if err != nil {
		return false
	}
	var state checkState
	if err := json.Unmarshal(raw, &state); err != nil {
		return false
	}
	return state.LastCheck == time.Now().Format("2006-01-02")
}

func (c *Checker) writeState() {
	raw, err := json.Marshal(checkState{LastCheck: time.Now().Format("2006-01-02")})
	if err != nil {
		return
	}
	if err := os.WriteFile(c.StatePath, raw, 0o644); err != nil {
		c.log.Debug().Err(err).Msg("Failed to write update-check state")
	}
}

func (c *Checker) latestTag(ctx context.Context) (string, error) {
	url := fmt.Sprintf("%s/v2/repositories/%s/tags?page_size=1", c.baseURL, c.Image)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return "", err
	}
	if len(tags.Results) == 0 {
		return "", nil
	}
	return tags.Results[0].Name, nil
}
