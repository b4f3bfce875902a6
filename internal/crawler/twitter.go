// Package crawler pulls kiger and character data out of Twitter posts. Tweets
// are fetched through the vxtwitter JSON mirror and character identification
// is delegated to a vision-capable LLM.
package crawler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// TwitterUser is the slice of the vxtwitter user payload we consume.
type TwitterUser struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	ProfileImageURL string `json:"profile_image_url"`
}

// Tweet is the slice of the vxtwitter tweet payload we consume.
type Tweet struct {
	Text  string  `json:"text"`
	Media []Media `json:"media_extended"`
}

type Media struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// Images returns the URLs of the tweet's image attachments, in post order.
func (t Tweet) Images() []string {
	images := []string{}
	for _, m := range t.Media {
		if m.Type == "image" {
			images = append(images, m.URL)
		}
	}
	return images
}

// TwitterClient fetches public tweets and profiles via a vxtwitter-compatible
// mirror.
type TwitterClient struct {
	baseURL string
	client  *http.Client
}

func NewTwitterClient(baseURL string) *TwitterClient {
	return &TwitterClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// FetchUser returns the public profile of a Twitter user.
func (c *TwitterClient) FetchUser(ctx context.Context, username string) (TwitterUser, error) {
	var user TwitterUser
	err := c.getJSON(ctx, c.baseURL+"/"+url.PathEscape(username), &user)
	if err != nil {
		return TwitterUser{}, fmt.Errorf("fetch twitter user %s: %w", username, err)
	}
	return user, nil
}

// FetchTweet returns a single tweet with its media attachments.
func (c *TwitterClient) FetchTweet(ctx context.Context, username, tweetID string) (Tweet, error) {
	var tweet Tweet
	endpoint := c.baseURL + "/" + url.PathEscape(username) + "/status/" + url.PathEscape(tweetID)
	if err := c.getJSON(ctx, endpoint, &tweet); err != nil {
		return Tweet{}, fmt.Errorf("fetch tweet %s/%s: %w", username, tweetID, err)
	}
	return tweet, nil
}

func (c *TwitterClient) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
