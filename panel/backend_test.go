package panel

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeBackend mimics kickoff server endpoints
type fakeBackend struct {
	mu            sync.Mutex
	streams       []Stream
	settings      Settings
	streamPosts   []Stream
	settingsPosts []Settings
	failSaves     bool
	// when set, GET streams waits for it to be closed
	gate chan struct{}
}

func (fb *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/streams":
		if fb.gate != nil {
			<-fb.gate
		}
		fb.mu.Lock()
		defer fb.mu.Unlock()
		json.NewEncoder(w).Encode(fb.streams)
	case r.Method == http.MethodGet && r.URL.Path == "/settings":
		fb.mu.Lock()
		defer fb.mu.Unlock()
		json.NewEncoder(w).Encode(fb.settings)
	case r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, "/streams/"):
		fb.mu.Lock()
		defer fb.mu.Unlock()
		if fb.failSaves {
			http.Error(w, "broken", http.StatusInternalServerError)
			return
		}
		posted := Stream{}
		if err := json.NewDecoder(r.Body).Decode(&posted); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		posted.Name = strings.TrimPrefix(r.URL.Path, "/streams/")
		fb.streamPosts = append(fb.streamPosts, posted)
		for i := range fb.streams {
			if fb.streams[i].Name == posted.Name {
				fb.streams[i].Active = posted.Active
			}
		}
	case r.Method == http.MethodPost && r.URL.Path == "/settings":
		fb.mu.Lock()
		defer fb.mu.Unlock()
		if fb.failSaves {
			http.Error(w, "broken", http.StatusInternalServerError)
			return
		}
		posted := Settings{}
		if err := json.NewDecoder(r.Body).Decode(&posted); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		fb.settingsPosts = append(fb.settingsPosts, posted)
		fb.settings = posted
	default:
		http.NotFound(w, r)
	}
}

func (fb *fakeBackend) activeNames() []string {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	names := []string{}
	for _, stream := range fb.streams {
		if stream.Active {
			names = append(names, stream.Name)
		}
	}
	return names
}

func (fb *fakeBackend) postsNum() int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return len(fb.streamPosts)
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func newTestResources(t *testing.T, fb *fakeBackend) (*Resource[Stream], *Resource[Settings]) {
	server := httptest.NewServer(fb)
	t.Cleanup(server.Close)
	client, err := NewClient(server.URL)
	if err != nil {
		t.Fatal(err)
	}
	return NewResource[Stream](client, "streams/:Name"), NewResource[Settings](client, "settings/")
}

func newTestController(t *testing.T, fb *fakeBackend, platform Detector, opts ...Option) *Controller {
	streams, settings := newTestResources(t, fb)
	return NewController(testContext(t), streams, settings, platform, opts...)
}

func defaultBackend() *fakeBackend {
	return &fakeBackend{
		streams: []Stream{
			{Name: "BBC One", Active: false},
			{Name: "Channel 4", Active: true},
			{Name: "Film4", Active: false},
		},
		settings: Settings{
			VideoWidth:   1920,
			VideoHeight:  1080,
			ExternalHost: "10.0.0.5",
			StreamPort:   8080,
		},
	}
}
