package kickoff

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"text/template"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var (
	h264Sout = template.Must(template.New("h264").Parse(
		"#transcode{threads=3,width={{.VideoWidth}},height={{.VideoHeight}}," +
			"venc=x264{subme=3,ref=2,bframes=16,b-adapt=1,bpyramid=none,weightp=0}," +
			"vcodec=h264,vb={{.VideoBitrate}}," +
			"acodec=mp3,ab={{.AudioBitrate}},samplerate=48000,channels=2}" +
			":std{access=http,mux=ts,dst={{.ListenHost}}:{{.StreamPort}}}"))
	oggSout = template.Must(template.New("ogg").Parse(
		"#transcode{threads=3,width={{.VideoWidth}},height={{.VideoHeight}}," +
			"vcodec=theo,venc=theora{quality={{.VideoQuality}}}," +
			"acodec=vorb,ab={{.AudioBitrate}},samplerate=44100,channels=2}" +
			":std{access=http,mux=ogg,dst={{.ListenHost}}:{{.StreamPort}}}"))
)

// Process is a running transcoder
type Process interface {
	Stop() error
}

// Launcher starts transcoder processes
type Launcher interface {
	Launch(binary string, args []string) (Process, error)
}

// ExecLauncher runs real binaries
type ExecLauncher struct{}

type execProcess struct {
	cmd *exec.Cmd
}

func (ExecLauncher) Launch(binary string, args []string) (Process, error) {
	cmd := exec.Command(binary, args...)
	if err := cmd.Start(); err != nil {
		return nil, errors.Wrapf(err, "Can't start '%s'", binary)
	}
	return &execProcess{cmd: cmd}, nil
}

// Stop kills the process and reaps it. Process which has already exited is only reaped
func (p *execProcess) Stop() error {
	err := p.cmd.Process.Kill()
	if err != nil && !errors.Is(err, os.ErrProcessDone) {
		return errors.Wrap(err, "Can't kill transcoder")
	}
	// Killed process always exits with error, repeated Wait is refused
	_ = p.cmd.Wait()
	return nil
}

// BuildSout renders VLC stream output chain for the settings
func BuildSout(settings Settings) (string, error) {
	codec, ok := videoCodecExists(settings.VideoCodec)
	if !ok {
		return "", errors.Wrapf(ErrUnknownVideoCodec, "Codec is '%s'", settings.VideoCodec)
	}
	tmpl := h264Sout
	if codec == VIDEO_CODEC_OGG {
		tmpl = oggSout
	}
	sout := new(bytes.Buffer)
	if err := tmpl.Execute(sout, settings); err != nil {
		return "", errors.Wrap(err, "Can't render sout chain")
	}
	return sout.String(), nil
}

// Transcoder owns the single transcoder process: it re-broadcasts the desired source URL and nothing else
type Transcoder struct {
	binary    string
	extraArgs []string
	settings  func() Settings
	launcher  Launcher

	mu      sync.Mutex
	desired string
	restart bool
	wake    chan struct{}

	// Owned by Run
	current string
	process Process
}

// NewTranscoder prepares transcoder. Settings are read on every (re)start
func NewTranscoder(binary string, extraArgs []string, settings func() Settings, launcher Launcher) *Transcoder {
	if launcher == nil {
		launcher = ExecLauncher{}
	}
	return &Transcoder{
		binary:    binary,
		extraArgs: extraArgs,
		settings:  settings,
		launcher:  launcher,
		wake:      make(chan struct{}, 1),
	}
}

// Apply sets source URL to re-broadcast. Empty URL stops broadcasting. It never blocks
func (t *Transcoder) Apply(url string) {
	t.mu.Lock()
	t.desired = url
	t.mu.Unlock()
	t.kick()
}

// Restart makes transcoder pick up new settings for the current source
func (t *Transcoder) Restart() {
	t.mu.Lock()
	t.restart = true
	t.mu.Unlock()
	t.kick()
}

func (t *Transcoder) kick() {
	select {
	case t.wake <- struct{}{}:
	default:
	}
}

// Run reconciles process with desired URL until ctx is done. Process is stopped on exit
func (t *Transcoder) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			t.stop()
			log.Info().Str("scope", SCOPE_TRANSCODER).Str("event", EVENT_TRANSCODER_EXIT).Msg("Transcoder loop has been stopped")
			return
		case <-t.wake:
			t.reconcile()
		}
	}
}

func (t *Transcoder) reconcile() {
	t.mu.Lock()
	desired := t.desired
	restart := t.restart
	t.restart = false
	t.mu.Unlock()

	if desired == t.current && !restart {
		return
	}
	t.stop()
	t.current = desired
	if desired == "" {
		return
	}
	args, err := t.args(desired)
	if err != nil {
		log.Error().Err(err).Str("scope", SCOPE_TRANSCODER).Str("event", EVENT_TRANSCODER_START).Str("stream_url", desired).Msg("Can't prepare transcoder arguments")
		return
	}
	log.Info().Str("scope", SCOPE_TRANSCODER).Str("event", EVENT_TRANSCODER_START).Str("stream_url", desired).Str("binary", t.binary).Msg("Starting transcoder")
	process, err := t.launcher.Launch(t.binary, args)
	if err != nil {
		log.Error().Err(err).Str("scope", SCOPE_TRANSCODER).Str("event", EVENT_TRANSCODER_START).Str("stream_url", desired).Str("binary", t.binary).Msg("Can't start transcoder")
		return
	}
	t.process = process
}

func (t *Transcoder) stop() {
	if t.process == nil {
		return
	}
	log.Info().Str("scope", SCOPE_TRANSCODER).Str("event", EVENT_TRANSCODER_STOP).Str("stream_url", t.current).Msg("Stopping transcoder")
	if err := t.process.Stop(); err != nil {
		log.Error().Err(err).Str("scope", SCOPE_TRANSCODER).Str("event", EVENT_TRANSCODER_STOP).Str("stream_url", t.current).Msg("Can't stop transcoder")
	}
	t.process = nil
}

// args builds VLC command line for the source URL
func (t *Transcoder) args(url string) ([]string, error) {
	settings := t.settings()
	sout, err := BuildSout(settings)
	if err != nil {
		return nil, err
	}
	args := []string{
		"--ignore-config",
		"-v",
		"--no-interact",
		"--intf=dummy",
	}
	args = append(args, t.extraArgs...)
	args = append(args,
		url,
		"--sout",
		sout,
		fmt.Sprintf("--live-caching=%d", settings.CaptureCacheMs),
	)
	return args, nil
}
