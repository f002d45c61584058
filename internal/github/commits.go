package github

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Commit is the subset of a commit record the verifier keeps.
type Commit struct {
	SHA     string `json:"sha"`
	Author  string `json:"author"`
	Date    string `json:"date"`
	Message string `json:"message"`
	URL     string `json:"url"`
}

type rawCommit struct {
	SHA     string `json:"sha"`
	HTMLURL string `json:"html_url"`
	Commit  struct {
		Author struct {
			Name string `json:"name"`
			Date string `json:"date"`
		} `json:"author"`
		Message string `json:"message"`
	} `json:"commit"`
	Author *struct {
		Login string `json:"login"`
	} `json:"author"`
}

// ListCommits returns every commit of repo ("owner/name") authored between
// since and until. Pages are requested until one comes back shorter than the
// page size.
func (c *Client) ListCommits(ctx context.Context, repo string, since, until time.Time) ([]Commit, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/commits", c.APIURL, repo)

	q := url.Values{}
	q.Set("since", since.UTC().Format(time.RFC3339))
	q.Set("until", until.UTC().Format(time.RFC3339))
	q.Set("per_page", strconv.Itoa(c.perPage))

	var commits []Commit
	for page := 1; ; page++ {
		q.Set("page", strconv.Itoa(page))

		items, err := c.getItems(ctx, endpoint, q)
		if err != nil {
			return commits, eris.Wrapf(err, "list commits of %s (page %d)", repo, page)
		}

		decoded, err := decodeCommits(items)
		if err != nil {
			return commits, eris.Wrapf(err, "decode commits of %s (page %d)", repo, page)
		}
		commits = append(commits, decoded...)

		if len(items) < c.perPage {
			break
		}

		c.logger.Debug("additional request needed",
			zap.String("repo", repo),
			zap.Int("next_page", page+1),
			zap.Int("collected", len(commits)),
		)
	}

	return commits, nil
}

func decodeCommits(items []Item) ([]Commit, error) {
	var raw []rawCommit
	cfg := &mapstructure.DecoderConfig{
		Result:  &raw,
		TagName: "json",
	}
	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(items); err != nil {
		return nil, err
	}

	commits := make([]Commit, 0, len(raw))
	for _, r := range raw {
		author := r.Commit.Author.Name
		if author == "" && r.Author != nil {
			author = r.Author.Login
		}
		commits = append(commits, Commit{
			SHA:     r.SHA,
			Author:  author,
			Date:    r.Commit.Author.Date,
			Message: r.Commit.Message,
			URL:     r.HTMLURL,
		})
	}

	return commits, nil
}
