// Package classroom is a read-only client for the Google Classroom API.
package classroom

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/providers"
	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/reconcile"
	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/tracker"
)

const DefaultBaseURL = "https://classroom.googleapis.com"

const maxPages = 50

type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

func New(baseURL, token string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP:    providers.NewHTTPClient(timeout),
	}
}

func (c *Client) Source() tracker.Source { return tracker.SourceGoogle }

func (c *Client) Name() string { return "Google Classroom" }

type course struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type coursesPage struct {
	Courses       []course `json:"courses"`
	NextPageToken string   `json:"nextPageToken"`
}

type date struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

type timeOfDay struct {
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
}

type courseWork struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	DueDate     *date      `json:"dueDate"`
	DueTime     *timeOfDay `json:"dueTime"`
}

type courseWorkPage struct {
	CourseWork    []courseWork `json:"courseWork"`
	NextPageToken string       `json:"nextPageToken"`
}

func (c *Client) Courses(ctx context.Context) ([]reconcile.Course, error) {
	var out []reconcile.Course
	token := ""
	for page := 0; ; page++ {
		if page == maxPages {
			return nil, fmt.Errorf("classroom: more than %d pages of courses", maxPages)
		}
		var p coursesPage
		if _, err := providers.GetJSON(ctx, c.HTTP, c.pageURL("/v1/courses", token), c.Token, &p); err != nil {
			return nil, err
		}
		for _, rc := range p.Courses {
			out = append(out, reconcile.Course{ID: rc.ID, Name: rc.Name})
		}
		if token = p.NextPageToken; token == "" {
			return out, nil
		}
	}
}

func (c *Client) Items(ctx context.Context, co reconcile.Course) ([]reconcile.Item, error) {
	var out []reconcile.Item
	path := "/v1/courses/" + url.PathEscape(co.ID) + "/courseWork"
	token := ""
	for page := 0; ; page++ {
		if page == maxPages {
			return nil, fmt.Errorf("classroom: more than %d pages of course work in %s", maxPages, co.ID)
		}
		var p courseWorkPage
		if _, err := providers.GetJSON(ctx, c.HTTP, c.pageURL(path, token), c.Token, &p); err != nil {
			return nil, err
		}
		for _, w := range p.CourseWork {
			out = append(out, reconcile.Item{
				ExternalID:  w.ID,
				Title:       w.Title,
				Description: w.Description,
				DueDate:     dueInstant(w.DueDate, w.DueTime),
			})
		}
		if token = p.NextPageToken; token == "" {
			return out, nil
		}
	}
}

func (c *Client) pageURL(path, pageToken string) string {
	u := c.BaseURL + path
	if pageToken != "" {
		u += "?pageToken=" + url.QueryEscape(pageToken)
	}
	return u
}

// dueInstant combines Classroom's split date and time in UTC. A due time whose
// hours or minutes are zero is read as the end of that hour or day, so 00:00
// becomes 23:59.
func dueInstant(d *date, t *timeOfDay) *time.Time {
	if d == nil || d.Year == 0 || d.Month == 0 || d.Day == 0 {
		return nil
	}
	hour, minute := 0, 0
	if t != nil {
		hour, minute = t.Hours, t.Minutes
		if hour == 0 {
			hour = 23
		}
		if minute == 0 {
			minute = 59
		}
	}
	due := time.Date(d.Year, time.Month(d.Month), d.Day, hour, minute, 0, 0, time.UTC)
	return &due
}

var _ reconcile.Provider = (*Client)(nil)
