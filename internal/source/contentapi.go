package source

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// ExternalUser is a user record as returned by the content source.
type ExternalUser struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// ExternalPost is a post record as returned by the content source.
type ExternalPost struct {
	ID     int64  `json:"id"`
	UserID int64  `json:"userId"`
	Title  string `json:"title"`
	Body   string `json:"body"`
}

// ExternalComment is a comment record as returned by the content source.
type ExternalComment struct {
	ID     int64  `json:"id"`
	PostID int64  `json:"postId"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Body   string `json:"body"`
}

// ContentClient talks to the external content source (JSONPlaceholder
// shaped). Errors surface as HTTPStatusError so the breaker's classifier
// can tell transient statuses apart from terminal ones.
type ContentClient struct {
	client *resty.Client
}

// ContentClientConfig holds configuration for the content client.
type ContentClientConfig struct {
	BaseURL string
	Timeout time.Duration
}

// NewContentClient creates a content source client.
func NewContentClient(cfg *ContentClientConfig) *ContentClient {
	client := resty.New()
	client.SetBaseURL(cfg.BaseURL)
	client.SetHeader("Accept", "application/json")
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	} else {
		client.SetTimeout(30 * time.Second)
	}
	return &ContentClient{client: client}
}

// Users fetches the full user list.
func (c *ContentClient) Users(ctx context.Context) ([]ExternalUser, error) {
	var users []ExternalUser
	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&users).
		Get("/users")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch users: %w", err)
	}
	if err := checkStatus("content source", resp); err != nil {
		return nil, err
	}
	return users, nil
}

// PostsByUser fetches all posts owned by the external user id.
func (c *ContentClient) PostsByUser(ctx context.Context, userID int64) ([]ExternalPost, error) {
	var posts []ExternalPost
	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&posts).
		Get(fmt.Sprintf("/users/%d/posts", userID))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch posts for user %d: %w", userID, err)
	}
	if err := checkStatus("content source", resp); err != nil {
		return nil, err
	}
	return posts, nil
}

// CommentsByPost fetches all comments under the external post id.
func (c *ContentClient) CommentsByPost(ctx context.Context, postID int64) ([]ExternalComment, error) {
	var comments []ExternalComment
	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&comments).
		Get(fmt.Sprintf("/posts/%d/comments", postID))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch comments for post %d: %w", postID, err)
	}
	if err := checkStatus("content source", resp); err != nil {
		return nil, err
	}
	return comments, nil
}

func checkStatus(service string, resp *resty.Response) error {
	if resp.StatusCode() >= 200 && resp.StatusCode() < 300 {
		return nil
	}
	body := string(resp.Body())
	if len(body) > 512 {
		body = body[:512]
	}
	return &HTTPStatusError{Service: service, StatusCode: resp.StatusCode(), Body: body}
}
