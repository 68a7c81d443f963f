package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	shown []Notification
	fail  error
}

func (s *recordingSink) Show(ctx context.Context, n Notification) error {
	if s.fail != nil {
		return s.fail
	}
	s.shown = append(s.shown, n)
	return nil
}

type fakeClient struct {
	url       string
	focused   bool
	navigated string
}

func (c *fakeClient) URL() string { return c.url }
func (c *fakeClient) Focus() error {
	c.focused = true
	return nil
}
func (c *fakeClient) Navigate(url string) error {
	c.navigated = url
	return nil
}

type fakeRegistry struct {
	clients []Client
	opened  []string
}

func (r *fakeRegistry) List() []Client { return r.clients }
func (r *fakeRegistry) OpenWindow(url string) error {
	r.opened = append(r.opened, url)
	return nil
}

func TestParsePayloadDefaults(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
	}{
		{name: "empty", payload: nil},
		{name: "not_json", payload: []byte("hello there")},
		{name: "truncated_json", payload: []byte(`{"title": "Bro`)},
		{name: "empty_object", payload: []byte(`{}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := ParsePayload(tt.payload)
			assert.Equal(t, DefaultTitle, n.Title)
			assert.Equal(t, DefaultBody, n.Body)
			assert.Equal(t, DefaultIcon, n.Icon)
			assert.Equal(t, DefaultTag, n.Tag)
			assert.Empty(t, n.URL)
		})
	}
}

func TestParsePayloadMergesOverDefaults(t *testing.T) {
	n := ParsePayload([]byte(`{"title":"Price drop","url":"/house-search?property=42"}`))
	assert.Equal(t, "Price drop", n.Title)
	assert.Equal(t, DefaultBody, n.Body)
	assert.Equal(t, DefaultIcon, n.Icon)
	assert.Equal(t, DefaultTag, n.Tag)
	assert.Equal(t, "/house-search?property=42", n.URL)
}

func TestPresentAlwaysRequiresInteraction(t *testing.T) {
	sink := &recordingSink{}
	p := &Presenter{Sinks: []Sink{sink}}

	require.NoError(t, p.Present(context.Background(), []byte("not json at all")))

	require.Len(t, sink.shown, 1)
	assert.True(t, sink.shown[0].RequireInteraction)
	assert.Equal(t, DefaultTitle, sink.shown[0].Title)
}

func TestShowSinkFailureIsIsolated(t *testing.T) {
	failing := &recordingSink{fail: assert.AnError}
	working := &recordingSink{}
	p := &Presenter{Sinks: []Sink{failing, working}}

	require.NoError(t, p.Show(context.Background(), Notification{Title: "t"}))
	assert.Len(t, working.shown, 1)
}

func TestClickFocusesExistingClient(t *testing.T) {
	client := &fakeClient{url: "http://localhost:3000/budget"}
	registry := &fakeRegistry{clients: []Client{client}}
	p := &Presenter{Clients: registry, Origin: "localhost:3000"}

	n := Notification{URL: "/house-search?property=7"}
	require.NoError(t, p.Click(context.Background(), ActionView, n))

	assert.True(t, client.focused)
	assert.Equal(t, "/house-search?property=7", client.navigated)
	assert.Empty(t, registry.opened)
}

func TestClickOpensWindowWhenNoClient(t *testing.T) {
	registry := &fakeRegistry{}
	p := &Presenter{Clients: registry, Origin: "localhost:3000"}

	require.NoError(t, p.Click(context.Background(), "", Notification{URL: "/deals"}))
	assert.Equal(t, []string{"/deals"}, registry.opened)
}

func TestClickDefaultsToRoot(t *testing.T) {
	registry := &fakeRegistry{}
	p := &Presenter{Clients: registry, Origin: "localhost:3000"}

	require.NoError(t, p.Click(context.Background(), ActionView, Notification{}))
	assert.Equal(t, []string{"/"}, registry.opened)
}

func TestClickDismissIsNoop(t *testing.T) {
	registry := &fakeRegistry{}
	p := &Presenter{Clients: registry, Origin: "localhost:3000"}

	require.NoError(t, p.Click(context.Background(), ActionDismiss, Notification{URL: "/deals"}))
	assert.Empty(t, registry.opened)
}

func TestClickSkipsForeignOriginClients(t *testing.T) {
	foreign := &fakeClient{url: "http://other.example/page"}
	registry := &fakeRegistry{clients: []Client{foreign}}
	p := &Presenter{Clients: registry, Origin: "localhost:3000"}

	require.NoError(t, p.Click(context.Background(), ActionView, Notification{URL: "/x"}))
	assert.False(t, foreign.focused)
	assert.Equal(t, []string{"/x"}, registry.opened)
}
