// Package discordtest runs a fake Discord REST API for handler tests.
package discordtest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/bwmarrin/discordgo"
)

// Request is one recorded REST call.
type Request struct {
	Method string
	Path   string
	Query  string
	Body   []byte
	Header http.Header
}

// Decode unmarshals the request body into v.
func (r Request) Decode(v any) error {
	return json.Unmarshal(r.Body, v)
}

type route struct {
	method string
	prefix string
	status int
	body   string
}

// Server records every request and answers with stubbed routes or "{}".
type Server struct {
	Session *discordgo.Session

	mu       sync.Mutex
	requests []Request
	routes   []route
}

// New starts a server, points discordgo endpoints at it and returns a session
// whose state knows a bot user with ID "bot".
func New(t *testing.T) *Server {
	t.Helper()
	srv := &Server{}

	ts := httptest.NewServer(http.HandlerFunc(srv.serve))
	t.Cleanup(ts.Close)

	base := ts.URL + "/"
	saved := map[*string]string{
		&discordgo.EndpointAPI:          discordgo.EndpointAPI,
		&discordgo.EndpointWebhooks:     discordgo.EndpointWebhooks,
		&discordgo.EndpointGuilds:       discordgo.EndpointGuilds,
		&discordgo.EndpointChannels:     discordgo.EndpointChannels,
		&discordgo.EndpointUsers:        discordgo.EndpointUsers,
		&discordgo.EndpointApplications: discordgo.EndpointApplications,
	}
	discordgo.EndpointAPI = base
	discordgo.EndpointWebhooks = base + "webhooks/"
	discordgo.EndpointGuilds = base + "guilds/"
	discordgo.EndpointChannels = base + "channels/"
	discordgo.EndpointUsers = base + "users/"
	discordgo.EndpointApplications = base + "applications"
	t.Cleanup(func() {
		for ptr, v := range saved {
			*ptr = v
		}
	})

	session, err := discordgo.New("Bot test-token")
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	session.State.User = &discordgo.User{ID: "bot", Username: "arctur"}
	srv.Session = session
	return srv
}

// Stub answers requests whose method matches and whose path starts with prefix.
// Later stubs win over earlier ones.
func (s *Server) Stub(method, prefix string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes = append([]route{{method: method, prefix: prefix, status: status, body: body}}, s.routes...)
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	s.mu.Lock()
	s.requests = append(s.requests, Request{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
		Body:   body,
		Header: r.Header.Clone(),
	})
	var matched *route
	for i := range s.routes {
		rt := s.routes[i]
		if rt.method == r.Method && strings.HasPrefix(r.URL.Path, rt.prefix) {
			matched = &rt
			break
		}
	}
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if matched != nil {
		w.WriteHeader(matched.status)
		_, _ = w.Write([]byte(matched.body))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("{}"))
}

// Requests returns every recorded request.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// Find returns recorded requests with the given method whose path contains fragment.
func (s *Server) Find(method, fragment string) []Request {
	var out []Request
	for _, r := range s.Requests() {
		if r.Method == method && strings.Contains(r.Path, fragment) {
			out = append(out, r)
		}
	}
	return out
}

// Responses returns the initial interaction responses.
func (s *Server) Responses() []discordgo.InteractionResponse {
	var out []discordgo.InteractionResponse
	for _, r := range s.Find(http.MethodPost, "/callback") {
		var resp discordgo.InteractionResponse
		_ = r.Decode(&resp)
		out = append(out, resp)
	}
	return out
}

// FollowUps returns follow-up messages sent through the interaction webhook.
func (s *Server) FollowUps() []discordgo.WebhookParams {
	var out []discordgo.WebhookParams
	for _, r := range s.Find(http.MethodPost, "/webhooks/") {
		var p discordgo.WebhookParams
		_ = r.Decode(&p)
		out = append(out, p)
	}
	return out
}

// Edits returns edits of the original interaction response.
func (s *Server) Edits() []discordgo.WebhookEdit {
	var out []discordgo.WebhookEdit
	for _, r := range s.Find(http.MethodPatch, "/messages/@original") {
		var e discordgo.WebhookEdit
		_ = r.Decode(&e)
		out = append(out, e)
	}
	return out
}

// ChannelMessages returns messages posted to channelID.
func (s *Server) ChannelMessages(channelID string) []discordgo.MessageSend {
	var out []discordgo.MessageSend
	for _, r := range s.Find(http.MethodPost, "/channels/"+channelID+"/messages") {
		if strings.HasSuffix(r.Path, "/bulk-delete") {
			continue
		}
		var m discordgo.MessageSend
		_ = r.Decode(&m)
		out = append(out, m)
	}
	return out
}
