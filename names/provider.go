package names

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultAPIURL is the public random-words endpoint used when no
// NAME_API_URL is configured.
const DefaultAPIURL = "https://random-words-api.kushcreates.com/api?language=en&length=7&type=lowercase&words=1"

// Provider supplies random human-readable display names. Implementations
// keep fetching until they can hand back a usable word; only a transport
// failure surfaces as an error.
type Provider interface {
	RandomWord(ctx context.Context) (string, error)
}

type apiProvider struct {
	url    string
	client *http.Client
}

// NewAPIProvider builds a Provider backed by the random-words HTTP API.
func NewAPIProvider(url string) Provider {
	if url == "" {
		url = DefaultAPIURL
	}
	return &apiProvider{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type wordResult struct {
	Word string `json:"word"`
}

func (p *apiProvider) RandomWord(ctx context.Context) (string, error) {
	for {
		word, err := p.fetch(ctx)
		if err != nil {
			return "", err
		}
		if !usable(word) {
			logrus.WithField("word", word).Debug("Discarding unusable word")
			continue
		}
		return word, nil
	}
}

func (p *apiProvider) fetch(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return "", fmt.Errorf("build word request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch word: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("word cannot be generated, API returned %d", resp.StatusCode)
	}

	var results []wordResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return "", fmt.Errorf("decode word response: %w", err)
	}
	if len(results) == 0 {
		return "", nil
	}
	return results[0].Word, nil
}

// usable rejects empty, short and multi-word results.
func usable(word string) bool {
	return word != "" && len([]rune(word)) >= 5 && !strings.Contains(word, " ")
}
