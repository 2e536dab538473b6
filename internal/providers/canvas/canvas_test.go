package canvas

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/providers"
	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/reconcile"
)

func newCanvasServer(t *testing.T) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/courses", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Query().Get("page") == "2" {
			_, _ = w.Write([]byte(`[{"id": 2, "name": "Marching Band"}]`))
			return
		}
		w.Header().Set("Link", fmt.Sprintf(`<%s/api/v1/courses?page=2&per_page=100>; rel="next", <%s/api/v1/courses?page=2>; rel="last"`, srv.URL, srv.URL))
		_, _ = w.Write([]byte(`[{"id": 1, "name": "AP Physics"}]`))
	})
	mux.HandleFunc("/api/v1/courses/1/assignments", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[
			{"id": 11, "name": "Lab", "description": "<p>bring goggles</p>", "due_at": "2025-01-05T23:59:00Z"},
			{"id": 12, "name": "Optional", "due_at": null},
			{"id": 13, "name": "Broken", "due_at": "someday"}
		]`))
	})
	mux.HandleFunc("/api/v1/courses/2/assignments", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestCourses(t *testing.T) {
	srv := newCanvasServer(t)
	c := New(srv.URL+"/", "tok", time.Second)

	courses, err := c.Courses(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []reconcile.Course{{ID: "1", Name: "AP Physics"}, {ID: "2", Name: "Marching Band"}}, courses)
}

func TestItems(t *testing.T) {
	srv := newCanvasServer(t)
	c := New(srv.URL, "tok", time.Second)

	items, err := c.Items(context.Background(), reconcile.Course{ID: "1", Name: "AP Physics"})
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, "11", items[0].ExternalID)
	assert.Equal(t, "Lab", items[0].Title)
	require.NotNil(t, items[0].DueDate)
	assert.True(t, items[0].DueDate.Equal(time.Date(2025, 1, 5, 23, 59, 0, 0, time.UTC)))
	assert.Nil(t, items[1].DueDate)
	assert.Nil(t, items[2].DueDate)

	_, err = c.Items(context.Background(), reconcile.Course{ID: "2"})
	var serr *providers.StatusError
	assert.ErrorAs(t, err, &serr)
}

func TestUnauthorized(t *testing.T) {
	srv := newCanvasServer(t)
	_, err := New(srv.URL, "wrong", time.Second).Courses(context.Background())
	assert.ErrorIs(t, err, providers.ErrUnauthorized)
}

func TestNextLink(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{header: "", want: ""},
		{header: `<https://x/a?page=2>; rel="next"`, want: "https://x/a?page=2"},
		{header: `<https://x/a?page=1>; rel="current", <https://x/a?page=3>; rel="next"`, want: "https://x/a?page=3"},
		{header: `<https://x/a?page=9>; rel="last"`, want: ""},
		{header: `garbage; rel="next"`, want: ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, nextLink(tt.header), tt.header)
	}
}
