package kickoff

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/LdDl/kickoff/configuration"
	"github.com/LdDl/kickoff/storage"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfiguration() *configuration.Configuration {
	return &configuration.Configuration{
		APICfg: configuration.APIConfiguration{
			Host: "localhost",
			Port: 8080,
			Mode: "release",
		},
		VideoCfg: configuration.VideoConfiguration{
			ExternalHost:   "10.0.0.5",
			ListenHost:     "0.0.0.0",
			StreamPort:     8081,
			Width:          640,
			Height:         480,
			Codec:          "h264",
			VideoBitrate:   800,
			VideoQuality:   6,
			AudioBitrate:   128,
			CaptureCacheMs: 1000,
		},
		TranscoderCfg: configuration.TranscoderConfiguration{
			Binary: "vlc",
		},
		Streams: testStreamsConfiguration(),
	}
}

func doRequest(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestNewApplication(t *testing.T) {
	Convey("Unknown codec is refused", t, func() {
		cfg := testConfiguration()
		cfg.VideoCfg.Codec = "vp9"
		_, err := NewApplication(cfg)
		So(err, ShouldNotBeNil)
	})
	Convey("Unknown snapshot storage type is refused", t, func() {
		cfg := testConfiguration()
		cfg.StorageCfg = configuration.StorageConfiguration{Enabled: true, Type: "redis"}
		_, err := NewApplication(cfg)
		So(err, ShouldNotBeNil)
	})
}

func TestStreamsRoutes(t *testing.T) {
	Convey("Given kickoff router", t, func() {
		launcher := newFakeLauncher()
		app, err := NewApplication(testConfiguration(), WithLauncher(launcher))
		So(err, ShouldBeNil)
		router := app.Router()

		Convey("Streams are listed in configuration order", func() {
			w := doRequest(router, http.MethodGet, "/streams", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			streams := []Stream{}
			So(json.Unmarshal(w.Body.Bytes(), &streams), ShouldBeNil)
			So(streams, ShouldHaveLength, 3)
			So(streams[0].Name, ShouldEqual, "BBC One")
			So(activeNames(streams), ShouldBeEmpty)
		})

		Convey("Name from path wins over body", func() {
			w := doRequest(router, http.MethodPost, "/streams/Film4", `{"Name":"BBC One","Active":true}`)
			So(w.Code, ShouldEqual, http.StatusOK)
			applied := Stream{}
			So(json.Unmarshal(w.Body.Bytes(), &applied), ShouldBeNil)
			So(applied.Name, ShouldEqual, "Film4")
			So(applied.Active, ShouldBeTrue)
			So(activeNames(app.Streams.list()), ShouldResemble, []string{"Film4"})

			Convey("Name in body is enough for collection route", func() {
				w := doRequest(router, http.MethodPut, "/streams", `{"Name":"Channel 4","Active":true}`)
				So(w.Code, ShouldEqual, http.StatusOK)
				So(activeNames(app.Streams.list()), ShouldResemble, []string{"Channel 4"})
			})
		})

		Convey("Path segments are unescaped", func() {
			w := doRequest(router, http.MethodPost, "/streams/BBC%20One", `{"Active":true}`)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(activeNames(app.Streams.list()), ShouldResemble, []string{"BBC One"})
		})

		Convey("Escaped slash stays inside the name", func() {
			cfg := testConfiguration()
			cfg.Streams = append(cfg.Streams, configuration.SingleStreamConfiguration{Name: "BBC One/HD", URL: "http://tuner/auto/v5101"})
			app, err := NewApplication(cfg, WithLauncher(newFakeLauncher()))
			So(err, ShouldBeNil)
			w := doRequest(app.Router(), http.MethodPost, "/streams/BBC%20One%2FHD", `{"Active":true}`)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(activeNames(app.Streams.list()), ShouldResemble, []string{"BBC One/HD"})
		})

		Convey("Unknown stream is not found", func() {
			w := doRequest(router, http.MethodPost, "/streams/ITV", `{"Active":true}`)
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(w.Body.String(), ShouldContainSubstring, ErrStreamNotFound.Error())
		})

		Convey("Bad requests", func() {
			w := doRequest(router, http.MethodPost, "/streams/Film4", `{"Active":`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			w = doRequest(router, http.MethodPost, "/streams", `{"Active":true}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(activeNames(app.Streams.list()), ShouldBeEmpty)
		})
	})
}

func TestSettingsRoutes(t *testing.T) {
	Convey("Given kickoff router", t, func() {
		app, err := NewApplication(testConfiguration(), WithLauncher(newFakeLauncher()))
		So(err, ShouldBeNil)
		router := app.Router()

		Convey("Settings do not expose listen host", func() {
			w := doRequest(router, http.MethodGet, "/settings", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldNotContainSubstring, "ListenHost")
			settings := Settings{}
			So(json.Unmarshal(w.Body.Bytes(), &settings), ShouldBeNil)
			So(settings.VideoWidth, ShouldEqual, 640)
			So(settings.ExternalHost, ShouldEqual, "10.0.0.5")
			So(settings.StreamPort, ShouldEqual, 8081)
		})

		Convey("Posting resolution only keeps the rest", func() {
			w := doRequest(router, http.MethodPost, "/settings", `{"VideoWidth":1280,"VideoHeight":720,"ExternalHost":"evil","StreamPort":1}`)
			So(w.Code, ShouldEqual, http.StatusOK)
			settings := app.Settings.get()
			So(settings.VideoWidth, ShouldEqual, 1280)
			So(settings.VideoHeight, ShouldEqual, 720)
			So(settings.VideoBitrate, ShouldEqual, 800)
			So(settings.ExternalHost, ShouldEqual, "10.0.0.5")
			So(settings.StreamPort, ShouldEqual, 8081)
		})

		Convey("Bad JSON is refused", func() {
			w := doRequest(router, http.MethodPut, "/settings", `[]`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestWatchPlaylist(t *testing.T) {
	Convey("Playlist points at transcoder output", t, func() {
		app, err := NewApplication(testConfiguration(), WithLauncher(newFakeLauncher()))
		So(err, ShouldBeNil)
		router := app.Router()
		doRequest(router, http.MethodPost, "/streams/Channel%204", `{"Active":true}`)

		w := doRequest(router, http.MethodGet, "/watch.m3u8", "")
		So(w.Code, ShouldEqual, http.StatusOK)
		So(w.Header().Get("Content-Type"), ShouldEqual, "application/vnd.apple.mpegurl")
		body := w.Body.String()
		So(body, ShouldStartWith, "#EXTM3U")
		So(body, ShouldContainSubstring, "Channel 4")
		So(body, ShouldContainSubstring, "http://10.0.0.5:8081/")
		So(body, ShouldContainSubstring, "#EXT-X-ENDLIST")
	})
}

func TestBasicAuth(t *testing.T) {
	Convey("Given router with basic auth", t, func() {
		cfg := testConfiguration()
		cfg.AuthCfg = configuration.AuthConfiguration{Realm: "kickoff", User: "admin", Pass: "secret"}
		app, err := NewApplication(cfg, WithLauncher(newFakeLauncher()))
		So(err, ShouldBeNil)
		router := app.Router()

		Convey("Anonymous requests get challenge", func() {
			w := doRequest(router, http.MethodGet, "/streams", "")
			So(w.Code, ShouldEqual, http.StatusUnauthorized)
			So(w.Header().Get("WWW-Authenticate"), ShouldContainSubstring, "kickoff")
		})

		Convey("Credentials are accepted", func() {
			req := httptest.NewRequest(http.MethodGet, "/streams", nil)
			req.SetBasicAuth("admin", "secret")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			So(w.Code, ShouldEqual, http.StatusOK)
		})
	})
}

func TestStaticFiles(t *testing.T) {
	Convey("Unknown routes are served from static directory", t, func() {
		dir := t.TempDir()
		So(os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>panel</html>"), 0644), ShouldBeNil)
		cfg := testConfiguration()
		cfg.APICfg.StaticFilesPath = dir
		app, err := NewApplication(cfg, WithLauncher(newFakeLauncher()))
		So(err, ShouldBeNil)

		w := doRequest(app.Router(), http.MethodGet, "/", "")
		So(w.Code, ShouldEqual, http.StatusOK)
		So(w.Body.String(), ShouldContainSubstring, "panel")
	})
}

func TestSettingsSnapshot(t *testing.T) {
	Convey("Given filesystem snapshot storage", t, func() {
		snapshots, err := storage.NewFileSystemProvider(filepath.Join(t.TempDir(), "settings.json"))
		So(err, ShouldBeNil)
		ctx := context.Background()

		Convey("Nothing is restored before first save", func() {
			app, err := NewApplication(testConfiguration(), WithLauncher(newFakeLauncher()), WithSnapshotStorage(snapshots))
			So(err, ShouldBeNil)
			So(app.RestoreSettings(ctx), ShouldBeNil)
			So(app.Settings.get().VideoWidth, ShouldEqual, 640)
		})

		Convey("Posted settings survive restart", func() {
			app, err := NewApplication(testConfiguration(), WithLauncher(newFakeLauncher()), WithSnapshotStorage(snapshots))
			So(err, ShouldBeNil)
			w := doRequest(app.Router(), http.MethodPost, "/settings", `{"VideoWidth":1280,"VideoHeight":720,"AudioBitrate":96}`)
			So(w.Code, ShouldEqual, http.StatusOK)

			restarted, err := NewApplication(testConfiguration(), WithLauncher(newFakeLauncher()), WithSnapshotStorage(snapshots))
			So(err, ShouldBeNil)
			So(restarted.RestoreSettings(ctx), ShouldBeNil)
			settings := restarted.Settings.get()
			So(settings.VideoWidth, ShouldEqual, 1280)
			So(settings.VideoHeight, ShouldEqual, 720)
			So(settings.AudioBitrate, ShouldEqual, 96)
			So(settings.VideoBitrate, ShouldEqual, 800)
		})

		Convey("Broken snapshot is reported", func() {
			So(snapshots.Save(ctx, []byte("{")), ShouldBeNil)
			app, err := NewApplication(testConfiguration(), WithLauncher(newFakeLauncher()), WithSnapshotStorage(snapshots))
			So(err, ShouldBeNil)
			So(app.RestoreSettings(ctx), ShouldNotBeNil)
		})
	})
}

func TestRunTranscoder(t *testing.T) {
	Convey("Switching streams points transcoder at the active one", t, func() {
		launcher := newFakeLauncher()
		app, err := NewApplication(testConfiguration(), WithLauncher(launcher))
		So(err, ShouldBeNil)
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			app.RunTranscoder(ctx)
			close(done)
		}()
		defer func() {
			cancel()
			<-done
		}()

		router := app.Router()
		doRequest(router, http.MethodPost, "/streams/Film4", `{"Active":true}`)
		So(waitLaunch(launcher), ShouldEqual, "http://tuner/auto/v115")
		doRequest(router, http.MethodPost, "/streams/Channel%204", `{"Active":true}`)
		So(waitLaunch(launcher), ShouldEqual, "http://tuner/auto/v104")
	})
}

func TestStateWebSocket(t *testing.T) {
	Convey("Given connected websocket client", t, func() {
		app, err := NewApplication(testConfiguration(), WithLauncher(newFakeLauncher()))
		So(err, ShouldBeNil)
		server := httptest.NewServer(app.Router())
		defer server.Close()

		wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
		conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		So(err, ShouldBeNil)
		defer conn.Close()

		readState := func() (State, error) {
			state := State{}
			if err := conn.SetReadDeadline(time.Now().Add(5 * time.Second)); err != nil {
				return state, err
			}
			_, payload, err := conn.ReadMessage()
			if err != nil {
				return state, err
			}
			return state, json.Unmarshal(payload, &state)
		}

		Convey("Initial state comes first and every change is pushed", func() {
			initial, err := readState()
			So(err, ShouldBeNil)
			So(initial.Streams, ShouldHaveLength, 3)
			So(initial.Settings.VideoWidth, ShouldEqual, 640)
			So(app.hub.clientsNum(), ShouldEqual, 1)

			resp, err := http.Post(server.URL+"/streams/Film4", "application/json", bytes.NewBufferString(`{"Active":true}`))
			So(err, ShouldBeNil)
			resp.Body.Close()

			changed, err := readState()
			So(err, ShouldBeNil)
			So(activeNames(changed.Streams), ShouldResemble, []string{"Film4"})
		})
	})
}

func TestVerboseLevel(t *testing.T) {
	Convey("Verbose levels", t, func() {
		So(NewVerboseLevelFrom("v"), ShouldEqual, VERBOSE_SIMPLE)
		So(NewVerboseLevelFrom("VV"), ShouldEqual, VERBOSE_ADD)
		So(NewVerboseLevelFrom("vvv"), ShouldEqual, VERBOSE_ALL)
		So(NewVerboseLevelFrom("vvvv"), ShouldEqual, VERBOSE_NONE)
		So(NewVerboseLevelFrom(""), ShouldEqual, VERBOSE_NONE)
	})
	Convey("Verbose router still answers", t, func() {
		cfg := testConfiguration()
		cfg.APICfg.Verbose = "vvv"
		app, err := NewApplication(cfg, WithLauncher(newFakeLauncher()))
		So(err, ShouldBeNil)
		w := doRequest(app.Router(), http.MethodGet, "/settings", "")
		So(w.Code, ShouldEqual, http.StatusOK)
	})
}

// bucketStorage needs a bucket before it is usable
type bucketStorage struct {
	made    bool
	failure error
	payload []byte
}

func (s *bucketStorage) Type() storage.StorageType {
	return storage.STORAGE_MINIO
}

func (s *bucketStorage) MakeBucket(ctx context.Context) error {
	if s.failure != nil {
		return s.failure
	}
	s.made = true
	return nil
}

func (s *bucketStorage) Load(ctx context.Context) ([]byte, error) {
	if s.payload == nil {
		return nil, storage.ErrNoSnapshot
	}
	return s.payload, nil
}

func (s *bucketStorage) Save(ctx context.Context, payload []byte) error {
	s.payload = payload
	return nil
}

func TestSnapshotPreparation(t *testing.T) {
	Convey("Bucket is made before restoring", t, func() {
		snapshots := &bucketStorage{payload: []byte(`{"VideoWidth":320,"VideoHeight":240}`)}
		app, err := NewApplication(testConfiguration(), WithSnapshotStorage(snapshots))
		So(err, ShouldBeNil)
		So(app.RestoreSettings(context.Background()), ShouldBeNil)
		So(snapshots.made, ShouldBeTrue)
		So(app.Settings.get().VideoWidth, ShouldEqual, 320)
	})
	Convey("Failed preparation is reported", t, func() {
		snapshots := &bucketStorage{failure: errors.New("unreachable")}
		app, err := NewApplication(testConfiguration(), WithSnapshotStorage(snapshots))
		So(err, ShouldBeNil)
		So(app.RestoreSettings(context.Background()), ShouldNotBeNil)
		So(app.Settings.get().VideoWidth, ShouldEqual, 640)
	})
}
