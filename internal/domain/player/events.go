package player

import (
	"github.com/edumarques81/stellar-offline-player/internal/domain/playlist"
	"github.com/edumarques81/stellar-offline-player/internal/domain/track"
)

// Kind identifies an event type.
type Kind int

// Event kinds
const (
	KindPreparing Kind = iota + 1
	KindPrepared
	KindPlaying
	KindPaused
	KindStopped
	KindStalled
	KindError
	KindBuffered
	KindProgress
	KindTrackChanged
	KindPlaylistChanged
	KindPlayModeChanged
	KindSpeedChanged
	KindRepeat
	KindSeekComplete
	KindSleepTimerStart
	KindSleepTimerEnd
	KindShutdown
)

var kindNames = map[Kind]string{
	KindPreparing:       "preparing",
	KindPrepared:        "prepared",
	KindPlaying:         "playing",
	KindPaused:          "paused",
	KindStopped:         "stopped",
	KindStalled:         "stalled",
	KindError:           "error",
	KindBuffered:        "buffered",
	KindProgress:        "progress",
	KindTrackChanged:    "track_changed",
	KindPlaylistChanged: "playlist_changed",
	KindPlayModeChanged: "play_mode_changed",
	KindSpeedChanged:    "speed_changed",
	KindRepeat:          "repeat",
	KindSeekComplete:    "seek_complete",
	KindSleepTimerStart: "sleep_timer_start",
	KindSleepTimerEnd:   "sleep_timer_end",
	KindShutdown:        "shutdown",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// KindFromString is the inverse of Kind.String.
func KindFromString(name string) (Kind, bool) {
	for k, n := range kindNames {
		if n == name {
			return k, true
		}
	}
	return 0, false
}

// Event is a lifecycle notification. Applying an event to a State is the
// only way the state changes.
type Event interface {
	Kind() Kind
	apply(s *State)
}

// Apply mutates the state according to ev. Every transition other than
// an error clears the recorded error.
func (s *State) Apply(ev Event) {
	if ev == nil {
		return
	}
	ev.apply(s)
}

func (s *State) clearError() {
	s.ErrorCode = ErrNone
	s.ErrorMessage = ""
}

// Preparing is emitted when the engine starts preparing a decoder.
type Preparing struct{}

// Prepared is emitted when the decoder is ready.
type Prepared struct {
	AudioSessionID int
}

// Playing is emitted when playback starts.
type Playing struct {
	Stalled    bool
	Progress   int64
	UpdateTime int64
}

// Paused is emitted when playback pauses.
type Paused struct {
	Progress   int64
	UpdateTime int64
}

// Stopped is emitted when playback stops and the decoder is released.
type Stopped struct {
	UpdateTime int64
}

// Stalled is emitted when the decoder starts or stops buffering.
type Stalled struct {
	Stalled    bool
	Progress   int64
	UpdateTime int64
}

// Failed is emitted when playback fails.
type Failed struct {
	Code    ErrorCode
	Message string
}

// Buffered is emitted when the buffered position changes.
type Buffered struct {
	Progress int64
}

// Progress is emitted by the progress sampler while playing.
type Progress struct {
	Progress   int64
	UpdateTime int64
}

// TrackChanged is emitted when the current track changes. Track is nil when
// the playlist became empty.
type TrackChanged struct {
	Track      *track.Track
	Position   int
	Progress   int64
	UpdateTime int64
}

// PlaylistChanged is emitted after a new playlist has been saved.
type PlaylistChanged struct {
	Position int
	Playlist playlist.Playlist
}

// PlayModeChanged is emitted when the play mode changes.
type PlayModeChanged struct {
	Mode PlayMode
}

// SpeedChanged is emitted when the playback speed changes.
type SpeedChanged struct {
	Speed float64
}

// Repeat is emitted each time a looping track restarts.
type Repeat struct {
	RepeatTime int64
}

// SeekComplete is emitted when a seek finishes.
type SeekComplete struct {
	Progress   int64
	UpdateTime int64
	Stalled    bool
}

// SleepTimerStart is emitted when a sleep timer is armed.
type SleepTimerStart struct {
	Time      int64
	StartTime int64
	Action    SleepTimerAction
}

// SleepTimerEnd is emitted when a sleep timer fires or is cancelled.
type SleepTimerEnd struct {
	TimeUp bool
}

// Shutdown is emitted when the session host goes away.
type Shutdown struct{}

func (Preparing) Kind() Kind       { return KindPreparing }
func (Prepared) Kind() Kind        { return KindPrepared }
func (Playing) Kind() Kind         { return KindPlaying }
func (Paused) Kind() Kind          { return KindPaused }
func (Stopped) Kind() Kind         { return KindStopped }
func (Stalled) Kind() Kind         { return KindStalled }
func (Failed) Kind() Kind          { return KindError }
func (Buffered) Kind() Kind        { return KindBuffered }
func (Progress) Kind() Kind        { return KindProgress }
func (TrackChanged) Kind() Kind    { return KindTrackChanged }
func (PlaylistChanged) Kind() Kind { return KindPlaylistChanged }
func (PlayModeChanged) Kind() Kind { return KindPlayModeChanged }
func (SpeedChanged) Kind() Kind    { return KindSpeedChanged }
func (Repeat) Kind() Kind          { return KindRepeat }
func (SeekComplete) Kind() Kind    { return KindSeekComplete }
func (SleepTimerStart) Kind() Kind { return KindSleepTimerStart }
func (SleepTimerEnd) Kind() Kind   { return KindSleepTimerEnd }
func (Shutdown) Kind() Kind        { return KindShutdown }

func (Preparing) apply(s *State) {
	s.clearError()
	s.Preparing = true
	s.Prepared = false
	s.Playback = StatePreparing
}

func (e Prepared) apply(s *State) {
	s.clearError()
	s.Preparing = false
	s.Prepared = true
	s.AudioSessionID = e.AudioSessionID
	s.Playback = StatePrepared
}

func (e Playing) apply(s *State) {
	s.clearError()
	s.Playback = StatePlaying
	s.Stalled = e.Stalled
	s.Progress = e.Progress
	s.ProgressUpdateTime = e.UpdateTime
}

func (e Paused) apply(s *State) {
	s.clearError()
	s.Playback = StatePaused
	s.Progress = e.Progress
	s.ProgressUpdateTime = e.UpdateTime
}

func (e Stopped) apply(s *State) {
	s.clearError()
	s.Playback = StateStopped
	s.Preparing = false
	s.Prepared = false
	s.Stalled = false
	s.Progress = 0
	s.ProgressUpdateTime = e.UpdateTime
}

func (e Stalled) apply(s *State) {
	s.Stalled = e.Stalled
	s.Progress = e.Progress
	s.ProgressUpdateTime = e.UpdateTime
}

func (e Failed) apply(s *State) {
	s.Playback = StateError
	s.Preparing = false
	s.Prepared = false
	s.Stalled = false
	s.ErrorCode = e.Code
	s.ErrorMessage = e.Message
	if s.ErrorMessage == "" {
		s.ErrorMessage = e.Code.Message()
	}
}

func (e Buffered) apply(s *State) {
	s.BufferedProgress = e.Progress
}

func (e Progress) apply(s *State) {
	s.Progress = e.Progress
	s.ProgressUpdateTime = e.UpdateTime
}

func (e TrackChanged) apply(s *State) {
	s.clearError()
	if e.Track != nil {
		s.Track = e.Track.Ptr()
	} else {
		s.Track = nil
	}
	s.Position = e.Position
	s.Progress = e.Progress
	s.ProgressUpdateTime = e.UpdateTime
	s.BufferedProgress = 0
	s.Preparing = false
	s.Prepared = false
	s.Stalled = false
	if s.Playback == StateError {
		s.Playback = StateNone
	}
}

func (e PlaylistChanged) apply(s *State) {
	s.Position = e.Position
}

func (e PlayModeChanged) apply(s *State) {
	s.Mode = e.Mode
}

func (e SpeedChanged) apply(s *State) {
	s.Speed = e.Speed
}

func (e Repeat) apply(s *State) {
	s.Progress = 0
	s.ProgressUpdateTime = e.RepeatTime
}

func (e SeekComplete) apply(s *State) {
	s.Progress = e.Progress
	s.ProgressUpdateTime = e.UpdateTime
	s.Stalled = e.Stalled
}

func (e SleepTimerStart) apply(s *State) {
	s.SleepTimer = SleepTimer{
		Started:   true,
		Time:      e.Time,
		StartTime: e.StartTime,
		Action:    e.Action,
	}
}

func (SleepTimerEnd) apply(s *State) {
	s.SleepTimer = SleepTimer{Action: s.SleepTimer.Action}
}

func (Shutdown) apply(*State) {}
