package panel

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Controller binds streams and settings resources to a Store
type Controller struct {
	streams    *Collection[Stream]
	settings   *Instance[Settings]
	platform   Detector
	sanitizer  *LinkSanitizer
	store      *Store
	logger     zerolog.Logger
	sequential bool

	// Closed once fetch failures (if any) are published
	fetched chan struct{}

	// mu guards videoRes and watchURL and serializes switches
	mu       sync.Mutex
	videoRes string
	watchURL string
}

// Option configures Controller
type Option func(*Controller)

// WithSequentialSaves makes SwitchStream wait for every save before issuing the next one
func WithSequentialSaves() Option {
	return func(ctrl *Controller) {
		ctrl.sequential = true
	}
}

// WithSanitizer replaces the link sanitizer applied to the watch link
func WithSanitizer(sanitizer *LinkSanitizer) Option {
	return func(ctrl *Controller) {
		ctrl.sanitizer = sanitizer
	}
}

// WithStore makes controller publish into existing store
func WithStore(store *Store) Option {
	return func(ctrl *Controller) {
		ctrl.store = store
	}
}

// WithLogger sets logger for failures
func WithLogger(logger zerolog.Logger) Option {
	return func(ctrl *Controller) {
		ctrl.logger = logger
	}
}

// NewController starts fetching settings and streams. Both fetches run concurrently
func NewController(ctx context.Context, streams *Resource[Stream], settings *Resource[Settings], platform Detector, opts ...Option) *Controller {
	ctrl := &Controller{
		platform:  platform,
		sanitizer: NewLinkSanitizer(EvolvedSchemes...),
		logger:    zerolog.Nop(),
		fetched:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(ctrl)
	}
	if ctrl.store == nil {
		ctrl.store = NewStore()
	}
	ctrl.settings = settings.Get(ctx, ctrl.settingsFetched)
	ctrl.streams = streams.Query(ctx, ctrl.streamsFetched)
	go ctrl.watchFetches()
	return ctrl
}

// watchFetches publishes fetch failures: callbacks only run on populated records
func (ctrl *Controller) watchFetches() {
	defer close(ctrl.fetched)
	<-ctrl.settings.Done()
	if err := ctrl.settings.Err(); err != nil {
		ctrl.fail(EVENT_SETTINGS_FETCH, err)
	}
	<-ctrl.streams.Done()
	if err := ctrl.streams.Err(); err != nil {
		ctrl.fail(EVENT_STREAMS_FETCH, err)
	}
}

func (ctrl *Controller) settingsFetched(inst *Instance[Settings]) {
	value := inst.Value()
	videoRes := FormatResolution(value.VideoWidth, value.VideoHeight)
	watchURL := ctrl.sanitizer.Sanitize(WatchURL(value, ctrl.platform))

	ctrl.mu.Lock()
	ctrl.videoRes = videoRes
	ctrl.watchURL = watchURL
	ctrl.mu.Unlock()

	ctrl.store.Update(func(state *State) {
		state.Settings = value
		state.SettingsLoaded = true
		state.VideoRes = videoRes
		state.WatchURL = watchURL
	})
}

func (ctrl *Controller) streamsFetched(coll *Collection[Stream]) {
	ctrl.publishStreams(coll.Items())
}

func (ctrl *Controller) publishStreams(items []*Instance[Stream]) {
	streams := make([]Stream, 0, len(items))
	active := ""
	for _, item := range items {
		stream := item.Value()
		if stream.Active && active == "" {
			active = stream.Name
		}
		streams = append(streams, stream)
	}
	ctrl.store.Update(func(state *State) {
		state.Streams = streams
		state.StreamsLoaded = true
		state.ActiveStream = active
	})
}

func (ctrl *Controller) fail(event string, err error) {
	ctrl.logger.Error().Err(err).Str("scope", SCOPE_CONTROLLER).Str("event", event).Msg("Panel action failed")
	ctrl.store.Update(func(state *State) {
		state.Err = err
	})
}

func (ctrl *Controller) saved(event string) func(error) {
	return func(err error) {
		if err != nil {
			ctrl.fail(event, err)
			return
		}
		ctrl.store.Update(func(state *State) {
			state.Err = nil
		})
	}
}

// Wait blocks until both initial fetches are done. First fetch error is returned
func (ctrl *Controller) Wait(ctx context.Context) error {
	select {
	case <-ctrl.fetched:
	case <-ctx.Done():
		return ctx.Err()
	}
	errSettings := ctrl.settings.Err()
	errStreams := ctrl.streams.Err()
	if errSettings != nil {
		return errors.Wrap(errSettings, "Can't fetch settings")
	}
	if errStreams != nil {
		return errors.Wrap(errStreams, "Can't fetch streams")
	}
	return nil
}

// Store returns the state store views subscribe to
func (ctrl *Controller) Store() *Store {
	return ctrl.store
}

// Subscribe is a shorthand for Store().Subscribe
func (ctrl *Controller) Subscribe(fn func(State)) func() {
	return ctrl.store.Subscribe(fn)
}

// Streams returns fetched streams in fetch order (empty before the fetch completes)
func (ctrl *Controller) Streams() []*Instance[Stream] {
	return ctrl.streams.Items()
}

// StreamByName finds fetched stream by its name
func (ctrl *Controller) StreamByName(name string) *Instance[Stream] {
	for _, stream := range ctrl.streams.Items() {
		if stream.Value().Name == name {
			return stream
		}
	}
	return nil
}

// Settings returns the settings record (zero value before the fetch completes)
func (ctrl *Controller) Settings() Settings {
	return ctrl.settings.Value()
}

// ActiveStream returns first stream flagged as active or nil when there is none (or nothing is fetched yet)
func (ctrl *Controller) ActiveStream() *Instance[Stream] {
	for _, stream := range ctrl.streams.Items() {
		if stream.Value().Active {
			return stream
		}
	}
	return nil
}

// VideoRes returns resolution text bound to the view
func (ctrl *Controller) VideoRes() string {
	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()
	return ctrl.videoRes
}

// SetVideoRes is the view writing into resolution text. Nothing is persisted until ChangeSettings
func (ctrl *Controller) SetVideoRes(res string) {
	ctrl.mu.Lock()
	ctrl.videoRes = res
	ctrl.mu.Unlock()
	ctrl.store.Update(func(state *State) {
		state.VideoRes = res
	})
}

// WatchURL returns the (sanitized) watch link. Empty until settings are fetched
func (ctrl *Controller) WatchURL() string {
	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()
	return ctrl.watchURL
}

// SwitchStream flags target as the only active stream and saves every stream, unchanged ones included.
// Target is compared by identity: a stream which does not belong to fetched collection leaves no stream active.
// Returned call is finished when all saves are finished
func (ctrl *Controller) SwitchStream(ctx context.Context, target *Instance[Stream]) *Call {
	ctrl.mu.Lock()
	items := ctrl.streams.Items()
	for _, stream := range items {
		active := stream == target
		stream.Update(func(s *Stream) {
			s.Active = active
		})
	}
	ctrl.mu.Unlock()

	ctrl.logger.Info().Str("scope", SCOPE_CONTROLLER).Str("event", EVENT_STREAM_SWITCH).Int("streams_num", len(items)).Bool("sequential", ctrl.sequential).Msg("Switch active stream")
	ctrl.publishStreams(items)

	var call *Call
	if ctrl.sequential {
		call = saveSequentially(ctx, items)
	} else {
		calls := make([]*Call, 0, len(items))
		for _, stream := range items {
			calls = append(calls, stream.Save(ctx))
		}
		call = all(calls)
	}
	return call.Then(ctrl.saved(EVENT_STREAM_SAVE))
}

func saveSequentially(ctx context.Context, items []*Instance[Stream]) *Call {
	joined := newCall()
	go func() {
		var first error
		for _, stream := range items {
			if err := stream.Save(ctx).Wait(ctx); err != nil && first == nil {
				first = err
			}
		}
		joined.resolve(first)
	}()
	return joined
}

// ChangeSettings parses resolution text into settings and saves them.
// Malformed text is rejected with ErrMalformedResolution and nothing is saved
func (ctrl *Controller) ChangeSettings(ctx context.Context) (*Call, error) {
	width, height, err := ParseResolution(ctrl.VideoRes())
	if err != nil {
		ctrl.fail(EVENT_RESOLUTION, err)
		return nil, err
	}
	select {
	case <-ctrl.settings.Done():
	default:
		return nil, ErrNotResolved
	}
	if err := ctrl.settings.Err(); err != nil {
		return nil, errors.Wrap(err, "Settings were not fetched")
	}
	ctrl.settings.Update(func(s *Settings) {
		s.VideoWidth = width
		s.VideoHeight = height
	})
	value := ctrl.settings.Value()
	ctrl.store.Update(func(state *State) {
		state.Settings = value
	})
	return ctrl.settings.Save(ctx).Then(ctrl.saved(EVENT_SETTINGS_SAVE)), nil
}
