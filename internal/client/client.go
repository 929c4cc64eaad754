// Package client is a typed HTTP client for the FieldFinder REST API.
//
// Every method maps onto one endpoint, takes a context first and returns the
// decoded model types. Failures come back as *Error so callers can branch on
// the status with IsUnauthorized, IsNotFound and friends.
//
// The bearer token is read from a tokenstore.Store on every request, so a
// login performed through one Client is seen by the next request without
// any extra wiring.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/sakif/fieldfinder/internal/model"
	"github.com/sakif/fieldfinder/internal/tokenstore"
)

// DefaultTimeout bounds a single request.
const DefaultTimeout = 15 * time.Second

// Client talks to one FieldFinder server.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  tokenstore.Store
	logger  *slog.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client. Its transport is
// wrapped, not replaced, so tests can pass httptest.Server.Client().
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		copied := *hc
		c.http = &copied
	}
}

// New creates a Client for baseURL (for example http://localhost:8080).
func New(baseURL string, tokens tokenstore.Store, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
		tokens:  tokens,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}

	base := c.http.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	c.http.Transport = &bearerTransport{base: base, tokens: tokens, logger: logger}

	return c
}

// Tokens returns the store the client reads its bearer token from.
func (c *Client) Tokens() tokenstore.Store {
	return c.tokens
}

// errorBody mirrors the server's error response.
type errorBody struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field"`
}

// do sends one request. in, when non-nil, is encoded as the JSON body;
// out, when non-nil, receives the decoded JSON response.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("client: encoding request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("client: building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Kind: KindNetwork, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &Error{Kind: kindFor(resp.StatusCode), Status: resp.StatusCode}
		var eb errorBody
		if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&eb); err == nil {
			apiErr.Code = eb.Code
			apiErr.Message = eb.Message
			apiErr.Field = eb.Field
		}
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("client: decoding %s %s response: %w", method, path, err)
	}
	return nil
}

func pathID(format, id string) string {
	return fmt.Sprintf(format, url.PathEscape(id))
}

// ===== Auth =====

// AuthResult is a successful signup or login.
type AuthResult struct {
	User  model.User
	Token *oauth2.Token
}

type authResponse struct {
	UserID    string     `json:"userId"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	Role      model.Role `json:"role"`
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expiresAt"`
}

func (r authResponse) result() *AuthResult {
	return &AuthResult{
		User: model.User{
			ID:    r.UserID,
			Email: r.Email,
			Name:  r.Name,
			Role:  r.Role,
		},
		Token: &oauth2.Token{
			AccessToken: r.Token,
			TokenType:   "Bearer",
			Expiry:      r.ExpiresAt,
		},
	}
}

// Signup creates an account. It does not store the token; see session.
func (c *Client) Signup(ctx context.Context, email, password, name string) (*AuthResult, error) {
	var res authResponse
	err := c.do(ctx, http.MethodPost, "/auth/signup", nil, map[string]string{
		"email":    email,
		"password": password,
		"name":     name,
	}, &res)
	if err != nil {
		return nil, err
	}
	return res.result(), nil
}

// Login exchanges credentials for a token.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	var res authResponse
	err := c.do(ctx, http.MethodPost, "/auth/login", nil, map[string]string{
		"email":    email,
		"password": password,
	}, &res)
	if err != nil {
		return nil, err
	}
	return res.result(), nil
}

// Logout revokes the stored token on the server.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, nil, nil)
}

// Me returns the profile of the token's owner.
func (c *Client) Me(ctx context.Context) (*model.User, error) {
	var u model.User
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ===== Fields =====

// CreateFieldRequest is the body of POST /fields.
type CreateFieldRequest struct {
	Name      string  `json:"name"`
	Address   string  `json:"address"`
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Image     string  `json:"image"`
	GrassType string  `json:"grassType"`
	ShoeType  string  `json:"shoeType"`
}

// Fields lists approved fields.
func (c *Client) Fields(ctx context.Context) ([]model.FieldDetail, error) {
	var out []model.FieldDetail
	if err := c.do(ctx, http.MethodGet, "/fields", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Field fetches one field with its aggregates.
func (c *Client) Field(ctx context.Context, id string) (*model.FieldDetail, error) {
	var out model.FieldDetail
	if err := c.do(ctx, http.MethodGet, pathID("/fields/%s", id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SearchFields asks the server for approved fields matching keyword.
func (c *Client) SearchFields(ctx context.Context, keyword string) ([]model.FieldDetail, error) {
	var out []model.FieldDetail
	q := url.Values{"keyword": {keyword}}
	if err := c.do(ctx, http.MethodGet, "/fields/search", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateField submits a field for approval.
func (c *Client) CreateField(ctx context.Context, in CreateFieldRequest) (*model.Field, error) {
	var out model.Field
	if err := c.do(ctx, http.MethodPost, "/fields", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PendingFields lists fields awaiting approval (admin).
func (c *Client) PendingFields(ctx context.Context) ([]model.Field, error) {
	var out []model.Field
	if err := c.do(ctx, http.MethodGet, "/fields/pending", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ApproveField publishes a pending field (admin).
func (c *Client) ApproveField(ctx context.Context, id string) (*model.Field, error) {
	var out model.Field
	if err := c.do(ctx, http.MethodPatch, pathID("/fields/%s/approve", id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ===== Reviews =====

// ReviewRequest is the body of POST /fields/{id}/reviews.
type ReviewRequest struct {
	Rating          int      `json:"rating"`
	Content         string   `json:"content"`
	GrassType       string   `json:"grassType"`
	GrassConditions []string `json:"grassConditions"`
	RecommendedShoe string   `json:"recommendedShoe"`
	ShoeLink        string   `json:"shoeLink,omitempty"`
}

// ReviewUpdate is the body of PUT /reviews/{id}. Nil fields are left as they are.
type ReviewUpdate struct {
	Rating          *int      `json:"rating,omitempty"`
	Content         *string   `json:"content,omitempty"`
	GrassType       *string   `json:"grassType,omitempty"`
	GrassConditions *[]string `json:"grassConditions,omitempty"`
	RecommendedShoe *string   `json:"recommendedShoe,omitempty"`
	ShoeLink        *string   `json:"shoeLink,omitempty"`
}

// ReviewPage is one page of a field's reviews, newest first.
type ReviewPage struct {
	Reviews []model.Review `json:"reviews"`
	HasMore bool           `json:"hasMore"`
}

// Reviews fetches the page after lastID; an empty lastID starts at the newest.
func (c *Client) Reviews(ctx context.Context, fieldID, lastID string) (*ReviewPage, error) {
	var q url.Values
	if lastID != "" {
		q = url.Values{"lastId": {lastID}}
	}

	var page ReviewPage
	if err := c.do(ctx, http.MethodGet, pathID("/fields/%s/reviews", fieldID), q, nil, &page); err != nil {
		return nil, err
	}
	for i := range page.Reviews {
		fillReviewAuthor(&page.Reviews[i])
	}
	return &page, nil
}

// CreateReview posts a review on an approved field.
func (c *Client) CreateReview(ctx context.Context, fieldID string, in ReviewRequest) (*model.Review, error) {
	if in.GrassConditions == nil {
		in.GrassConditions = []string{}
	}

	var rv model.Review
	if err := c.do(ctx, http.MethodPost, pathID("/fields/%s/reviews", fieldID), nil, in, &rv); err != nil {
		return nil, err
	}
	fillReviewAuthor(&rv)
	return &rv, nil
}

// UpdateReview edits a review the caller owns.
func (c *Client) UpdateReview(ctx context.Context, id string, upd ReviewUpdate) (*model.Review, error) {
	var rv model.Review
	if err := c.do(ctx, http.MethodPut, pathID("/reviews/%s", id), nil, upd, &rv); err != nil {
		return nil, err
	}
	fillReviewAuthor(&rv)
	return &rv, nil
}

// DeleteReview removes a review and its comments.
func (c *Client) DeleteReview(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, pathID("/reviews/%s", id), nil, nil, nil)
}

// ===== Comments =====

type commentRequest struct {
	Content  string  `json:"content"`
	ParentID *string `json:"parentId,omitempty"`
}

// Comments returns the review's comments as a flat list, oldest first.
// Use thread.Build to get the reply tree.
func (c *Client) Comments(ctx context.Context, reviewID string) ([]model.Comment, error) {
	var out []model.Comment
	if err := c.do(ctx, http.MethodGet, pathID("/reviews/%s/comments", reviewID), nil, nil, &out); err != nil {
		return nil, err
	}
	for i := range out {
		fillCommentAuthor(&out[i])
	}
	return out, nil
}

// CreateComment posts a comment; a non-empty parentID makes it a reply.
func (c *Client) CreateComment(ctx context.Context, reviewID, content, parentID string) (*model.Comment, error) {
	body := commentRequest{Content: content}
	if parentID != "" {
		body.ParentID = &parentID
	}

	var out model.Comment
	if err := c.do(ctx, http.MethodPost, pathID("/reviews/%s/comments", reviewID), nil, body, &out); err != nil {
		return nil, err
	}
	fillCommentAuthor(&out)
	return &out, nil
}

// UpdateComment replaces a comment's content.
func (c *Client) UpdateComment(ctx context.Context, id, content string) (*model.Comment, error) {
	var out model.Comment
	if err := c.do(ctx, http.MethodPut, pathID("/comments/%s", id), nil, commentRequest{Content: content}, &out); err != nil {
		return nil, err
	}
	fillCommentAuthor(&out)
	return &out, nil
}

// DeleteComment removes one comment. Its replies stay on the server.
func (c *Client) DeleteComment(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, pathID("/comments/%s", id), nil, nil, nil)
}

// ===== Health =====

// Health checks that the server and its database are up.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil, nil)
}

// FallbackAuthor is shown when the server sends no author name.
func FallbackAuthor(userID string) string {
	return "User " + userID
}

func fillReviewAuthor(rv *model.Review) {
	if rv.Author == "" {
		rv.Author = FallbackAuthor(rv.UserID)
	}
}

func fillCommentAuthor(c *model.Comment) {
	if c.Author == "" {
		c.Author = FallbackAuthor(c.UserID)
	}
}
