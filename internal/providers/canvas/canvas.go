// Package canvas is a read-only client for the Canvas LMS REST API.
package canvas

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/providers"
	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/reconcile"
	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/tracker"
)

const pageSize = 100

// maxPages stops a misbehaving server from paginating forever.
const maxPages = 50

type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

func New(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP:    providers.NewHTTPClient(timeout),
	}
}

func (c *Client) Source() tracker.Source { return tracker.SourceCanvas }

func (c *Client) Name() string { return "Canvas" }

type course struct {
	ID   json.Number `json:"id"`
	Name string      `json:"name"`
}

type assignment struct {
	ID          json.Number `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	DueAt       *string     `json:"due_at"`
}

func (c *Client) Courses(ctx context.Context) ([]reconcile.Course, error) {
	var raw []course
	if err := getAll(ctx, c, c.BaseURL+"/api/v1/courses", &raw); err != nil {
		return nil, err
	}
	out := make([]reconcile.Course, 0, len(raw))
	for _, rc := range raw {
		out = append(out, reconcile.Course{ID: rc.ID.String(), Name: rc.Name})
	}
	return out, nil
}

func (c *Client) Items(ctx context.Context, co reconcile.Course) ([]reconcile.Item, error) {
	var raw []assignment
	endpoint := fmt.Sprintf("%s/api/v1/courses/%s/assignments", c.BaseURL, url.PathEscape(co.ID))
	if err := getAll(ctx, c, endpoint, &raw); err != nil {
		return nil, err
	}
	out := make([]reconcile.Item, 0, len(raw))
	for _, ra := range raw {
		out = append(out, reconcile.Item{
			ExternalID:  ra.ID.String(),
			Title:       ra.Name,
			Description: ra.Description,
			DueDate:     parseDueAt(ra.DueAt),
		})
	}
	return out, nil
}

// getAll follows Link rel="next" headers and appends every page to out.
func getAll[T any](ctx context.Context, c *Client, first string, out *[]T) error {
	next := first + "?per_page=" + fmt.Sprint(pageSize)
	for page := 0; next != ""; page++ {
		if page == maxPages {
			return fmt.Errorf("canvas: more than %d pages at %s", maxPages, first)
		}
		var batch []T
		hdr, err := providers.GetJSON(ctx, c.HTTP, next, c.Token, &batch)
		if err != nil {
			return err
		}
		*out = append(*out, batch...)
		next = nextLink(hdr.Get("Link"))
	}
	return nil
}

func parseDueAt(raw *string) *time.Time {
	if raw == nil || *raw == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, *raw)
	if err != nil {
		return nil
	}
	return &t
}

// nextLink extracts the rel="next" target of an RFC 8288 Link header.
func nextLink(header string) string {
	for _, part := range strings.Split(header, ",") {
		segments := strings.Split(part, ";")
		if len(segments) < 2 {
			continue
		}
		target := strings.TrimSpace(segments[0])
		if !strings.HasPrefix(target, "<") || !strings.HasSuffix(target, ">") {
			continue
		}
		for _, param := range segments[1:] {
			param = strings.TrimSpace(param)
			if strings.EqualFold(param, `rel="next"`) || strings.EqualFold(param, "rel=next") {
				return target[1 : len(target)-1]
			}
		}
	}
	return ""
}

var _ reconcile.Provider = (*Client)(nil)
