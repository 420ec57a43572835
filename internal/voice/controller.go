// Package voice manages per-message speech-clip preparation and playback.
// Preparations are de-duplicated against a bounded clip cache and guarded by
// per-message sequence numbers so a slow, stale synthesis response can never
// clobber a fresher one. Exactly one clip may be speaking at a time.
package voice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultCacheSize = 32

// Preparation status per message id.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusError     Status = "error"
)

var (
	// ErrNoSpeech reports a message with no speakable text after stripping.
	ErrNoSpeech = errors.New("message has no speakable text")
	// ErrSuperseded reports a preparation whose result was discarded because
	// a newer preparation started for the same message.
	ErrSuperseded = errors.New("preparation superseded")
	// ErrNotReady reports a play request for a message with no prepared clip.
	ErrNotReady = errors.New("no prepared clip for message")
)

// Synthesizer produces an audio payload for text in a language.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, language string) ([]byte, error)
}

// Clip is one cached, playable speech clip.
type Clip struct {
	Text     string
	Language string
	Audio    []byte
}

// ControllerOption configures the controller.
type ControllerOption func(*Controller)

// WithLanguage sets the synthesis target language.
func WithLanguage(language string) ControllerOption {
	return func(c *Controller) {
		c.language = language
	}
}

// WithLogger sets the logger for the controller.
func WithLogger(logger *slog.Logger) ControllerOption {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithCacheSize bounds the clip cache.
func WithCacheSize(size int) ControllerOption {
	return func(c *Controller) {
		c.cacheSize = size
	}
}

// Controller owns all voice state: the clip cache, per-message preparation
// sequence numbers and statuses, and the single active playback.
type Controller struct {
	synth     Synthesizer
	player    Player
	language  string
	logger    *slog.Logger
	cacheSize int

	mu         sync.Mutex
	clips      *lru.Cache[string, Clip]
	seq        map[string]uint64
	status     map[string]Status
	speakingID string
	playGen    uint64
	current    *guardedPlayback
}

// NewController creates a voice controller.
func NewController(synth Synthesizer, player Player, opts ...ControllerOption) *Controller {
	c := &Controller{
		synth:     synth,
		player:    player,
		language:  "en",
		logger:    slog.Default(),
		cacheSize: defaultCacheSize,
		seq:       make(map[string]uint64),
		status:    make(map[string]Status),
	}
	for _, opt := range opts {
		opt(c)
	}
	clips, err := lru.New[string, Clip](c.cacheSize)
	if err != nil {
		// Only reachable with a non-positive size option.
		clips, _ = lru.New[string, Clip](defaultCacheSize)
	}
	c.clips = clips
	return c
}

// Status returns the preparation status for a message id.
func (c *Controller) Status(messageID string) Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.status[messageID]; ok {
		return s
	}
	return StatusIdle
}

// Speaking returns the id of the currently speaking message, or "".
func (c *Controller) Speaking() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.speakingID
}

// Prepare derives the speech-safe text for a message and ensures a matching
// clip is cached. A cached clip with identical text and language is reused
// without a network call. A result arriving after a newer preparation started
// for the same message is discarded entirely.
func (c *Controller) Prepare(ctx context.Context, messageID, rawText string) error {
	text := SpeechText(rawText)

	c.mu.Lock()
	if text == "" {
		c.status[messageID] = StatusError
		c.mu.Unlock()
		return ErrNoSpeech
	}
	if clip, ok := c.clips.Get(messageID); ok && clip.Text == text && clip.Language == c.language {
		c.status[messageID] = StatusReady
		c.mu.Unlock()
		return nil
	}
	c.seq[messageID]++
	seq := c.seq[messageID]
	c.status[messageID] = StatusPreparing
	language := c.language
	c.mu.Unlock()

	audio, err := c.synth.Synthesize(ctx, text, language)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.seq[messageID] != seq {
		// A newer preparation owns this message now; neither the cache nor
		// the status may be touched by this stale result.
		return ErrSuperseded
	}
	if err != nil {
		c.status[messageID] = StatusError
		return fmt.Errorf("synthesis failed: %w", err)
	}
	c.clips.Add(messageID, Clip{Text: text, Language: language, Audio: audio})
	c.status[messageID] = StatusReady
	return nil
}

// Play starts playback of a prepared clip. Playing the currently speaking
// message stops it (toggle). Playing a different message stops the current
// one first.
func (c *Controller) Play(ctx context.Context, messageID string) error {
	c.mu.Lock()
	if c.speakingID == messageID && c.current != nil {
		c.stopLocked()
		c.mu.Unlock()
		return nil
	}
	if c.current != nil {
		c.stopLocked()
	}
	clip, ok := c.clips.Get(messageID)
	if !ok {
		c.mu.Unlock()
		return ErrNotReady
	}
	c.playGen++
	gen := c.playGen
	c.mu.Unlock()

	pb, err := c.player.Start(ctx, clip.Audio)
	if err != nil {
		return fmt.Errorf("playback failed to start: %w", err)
	}
	guarded := &guardedPlayback{inner: pb}

	c.mu.Lock()
	if c.playGen != gen {
		// Superseded while starting; release immediately.
		c.mu.Unlock()
		guarded.release()
		return nil
	}
	c.current = guarded
	c.speakingID = messageID
	c.mu.Unlock()

	go c.watch(guarded, gen, messageID)
	return nil
}

// Stop halts any active playback.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

// Reset clears all voice state for a new turn: active playback, clip cache,
// sequence counters, and statuses.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
	c.clips.Purge()
	c.seq = make(map[string]uint64)
	c.status = make(map[string]Status)
}

// watch clears the speaking indicator when playback finishes naturally or
// fails, but only if this playback is still the most recent attempt.
func (c *Controller) watch(pb *guardedPlayback, gen uint64, messageID string) {
	err := <-pb.inner.Done()
	pb.release()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.playGen != gen {
		return
	}
	c.current = nil
	c.speakingID = ""
	if err != nil {
		c.logger.Warn("playback ended with error",
			slog.String("message_id", messageID),
			slog.String("error", err.Error()),
		)
	}
}

// stopLocked releases the active playback and invalidates its watcher.
// Callers must hold mu.
func (c *Controller) stopLocked() {
	if c.current != nil {
		c.current.release()
		c.current = nil
	}
	c.speakingID = ""
	c.playGen++
}

// guardedPlayback funnels every exit path through a single release guard so
// the transient audio resource is freed exactly once.
type guardedPlayback struct {
	inner Playback
	once  sync.Once
}

func (p *guardedPlayback) release() {
	p.once.Do(p.inner.Stop)
}
