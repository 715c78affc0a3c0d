package session

import (
	"fmt"

	"github.com/edumarques81/stellar-offline-player/internal/domain/player"
	"github.com/edumarques81/stellar-offline-player/internal/domain/playlist"
)

// EncodeEvent converts an engine event into a wire message. Tracks and
// playlists travel as their binary encodings.
func EncodeEvent(ev player.Event) (Message, error) {
	msg := Message{Event: ev.Kind().String()}

	switch e := ev.(type) {
	case player.Preparing, player.Shutdown:
	case player.Prepared:
		msg.Args = Args{ArgAudioSessionID: e.AudioSessionID}
	case player.Playing:
		msg.Args = Args{ArgStalled: e.Stalled, ArgProgress: e.Progress, ArgUpdateTime: e.UpdateTime}
	case player.Paused:
		msg.Args = Args{ArgProgress: e.Progress, ArgUpdateTime: e.UpdateTime}
	case player.Stopped:
		msg.Args = Args{ArgUpdateTime: e.UpdateTime}
	case player.Stalled:
		msg.Args = Args{ArgStalled: e.Stalled, ArgProgress: e.Progress, ArgUpdateTime: e.UpdateTime}
	case player.Failed:
		msg.Args = Args{ArgCode: int(e.Code), ArgMessage: e.Message}
	case player.Buffered:
		msg.Args = Args{ArgProgress: e.Progress}
	case player.Progress:
		msg.Args = Args{ArgProgress: e.Progress, ArgUpdateTime: e.UpdateTime}
	case player.TrackChanged:
		msg.Args = Args{ArgPosition: e.Position, ArgProgress: e.Progress, ArgUpdateTime: e.UpdateTime}
		if e.Track != nil {
			data, err := player.EncodeTrack(*e.Track)
			if err != nil {
				return msg, err
			}
			msg.Args[ArgTrack] = data
		}
	case player.PlaylistChanged:
		data, err := player.EncodePlaylist(e.Playlist)
		if err != nil {
			return msg, err
		}
		msg.Args = Args{ArgPosition: e.Position, ArgPlaylist: data}
	case player.PlayModeChanged:
		msg.Args = Args{ArgMode: e.Mode.ID()}
	case player.SpeedChanged:
		msg.Args = Args{ArgSpeed: e.Speed}
	case player.Repeat:
		msg.Args = Args{ArgRepeatTime: e.RepeatTime}
	case player.SeekComplete:
		msg.Args = Args{ArgProgress: e.Progress, ArgUpdateTime: e.UpdateTime, ArgStalled: e.Stalled}
	case player.SleepTimerStart:
		msg.Args = Args{ArgTime: e.Time, ArgStartTime: e.StartTime, ArgAction: e.Action.String()}
	case player.SleepTimerEnd:
		msg.Args = Args{ArgTimeUp: e.TimeUp}
	default:
		return msg, fmt.Errorf("%w: %T", ErrUnknownEvent, ev)
	}
	return msg, nil
}

// DecodeEvent is the inverse of EncodeEvent.
func DecodeEvent(msg Message) (player.Event, error) {
	kind, ok := player.KindFromString(msg.Event)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEvent, msg.Event)
	}
	a := msg.Args
	d := decoder{args: a}

	var ev player.Event
	switch kind {
	case player.KindPreparing:
		ev = player.Preparing{}
	case player.KindShutdown:
		ev = player.Shutdown{}
	case player.KindPrepared:
		ev = player.Prepared{AudioSessionID: d.int(ArgAudioSessionID)}
	case player.KindPlaying:
		ev = player.Playing{Stalled: d.bool(ArgStalled), Progress: d.int64(ArgProgress), UpdateTime: d.int64(ArgUpdateTime)}
	case player.KindPaused:
		ev = player.Paused{Progress: d.int64(ArgProgress), UpdateTime: d.int64(ArgUpdateTime)}
	case player.KindStopped:
		ev = player.Stopped{UpdateTime: d.int64(ArgUpdateTime)}
	case player.KindStalled:
		ev = player.Stalled{Stalled: d.bool(ArgStalled), Progress: d.int64(ArgProgress), UpdateTime: d.int64(ArgUpdateTime)}
	case player.KindError:
		ev = player.Failed{Code: player.ErrorCodeFromInt(d.int(ArgCode)), Message: d.string(ArgMessage)}
	case player.KindBuffered:
		ev = player.Buffered{Progress: d.int64(ArgProgress)}
	case player.KindProgress:
		ev = player.Progress{Progress: d.int64(ArgProgress), UpdateTime: d.int64(ArgUpdateTime)}
	case player.KindTrackChanged:
		e := player.TrackChanged{Position: d.int(ArgPosition), Progress: d.int64(ArgProgress), UpdateTime: d.int64(ArgUpdateTime)}
		if a.Has(ArgTrack) {
			data := d.bytes(ArgTrack)
			if d.err == nil {
				t, err := player.DecodeTrack(data)
				if err != nil {
					return nil, err
				}
				e.Track = &t
			}
		}
		ev = e
	case player.KindPlaylistChanged:
		e := player.PlaylistChanged{Position: d.int(ArgPosition), Playlist: playlist.Empty()}
		data := d.bytes(ArgPlaylist)
		if d.err == nil {
			p, err := player.DecodePlaylist(data)
			if err != nil {
				return nil, err
			}
			e.Playlist = p
		}
		ev = e
	case player.KindPlayModeChanged:
		ev = player.PlayModeChanged{Mode: player.PlayModeFromID(d.int(ArgMode))}
	case player.KindSpeedChanged:
		ev = player.SpeedChanged{Speed: d.float(ArgSpeed)}
	case player.KindRepeat:
		ev = player.Repeat{RepeatTime: d.int64(ArgRepeatTime)}
	case player.KindSeekComplete:
		ev = player.SeekComplete{Progress: d.int64(ArgProgress), UpdateTime: d.int64(ArgUpdateTime), Stalled: d.bool(ArgStalled)}
	case player.KindSleepTimerStart:
		action, _ := player.ParseSleepTimerAction(d.string(ArgAction))
		ev = player.SleepTimerStart{Time: d.int64(ArgTime), StartTime: d.int64(ArgStartTime), Action: action}
	case player.KindSleepTimerEnd:
		ev = player.SleepTimerEnd{TimeUp: d.bool(ArgTimeUp)}
	}

	if d.err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", msg.Event, d.err)
	}
	return ev, nil
}

// SyncMessage builds the reply to a sync request.
func SyncMessage(token string, s player.State, p playlist.Playlist) (Message, error) {
	state, err := player.EncodeState(s)
	if err != nil {
		return Message{}, err
	}
	pl, err := player.EncodePlaylist(p)
	if err != nil {
		return Message{}, err
	}
	return Message{
		Event: EventSync,
		Args:  Args{ArgToken: token, ArgState: state, ArgPlaylist: pl},
	}, nil
}

// DecodeSync unpacks a sync reply.
func DecodeSync(msg Message) (string, player.State, playlist.Playlist, error) {
	d := decoder{args: msg.Args}
	token := d.string(ArgToken)
	stateData := d.bytes(ArgState)
	playlistData := d.bytes(ArgPlaylist)
	if d.err != nil {
		return "", player.State{}, playlist.Playlist{}, fmt.Errorf("failed to decode sync: %w", d.err)
	}

	s, err := player.DecodeState(stateData)
	if err != nil {
		return "", player.State{}, playlist.Playlist{}, err
	}
	p, err := player.DecodePlaylist(playlistData)
	if err != nil {
		return "", player.State{}, playlist.Playlist{}, err
	}
	return token, s, p, nil
}

// decoder reads args and keeps the first error.
type decoder struct {
	args Args
	err  error
}

func (d *decoder) keep(err error) {
	if d.err == nil {
		d.err = err
	}
}

func (d *decoder) int64(key string) int64 {
	v, err := d.args.Int64(key)
	d.keep(err)
	return v
}

func (d *decoder) int(key string) int {
	return int(d.int64(key))
}

func (d *decoder) float(key string) float64 {
	v, err := d.args.Float(key)
	d.keep(err)
	return v
}

func (d *decoder) bool(key string) bool {
	v, err := d.args.Bool(key)
	d.keep(err)
	return v
}

func (d *decoder) string(key string) string {
	v, err := d.args.String(key)
	d.keep(err)
	return v
}

func (d *decoder) bytes(key string) []byte {
	v, err := d.args.Bytes(key)
	d.keep(err)
	return v
}
