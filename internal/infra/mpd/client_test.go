package mpd_test

import (
	"bufio"
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/edumarques81/stellar-offline-player/internal/domain/player"
	"github.com/edumarques81/stellar-offline-player/internal/domain/track"
	"github.com/edumarques81/stellar-offline-player/internal/infra/mpd"
)

// fakeMPD speaks enough of the MPD line protocol for the decoder.
type fakeMPD struct {
	ln net.Listener

	mu       sync.Mutex
	commands []string
	status   map[string]string
	nextID   int
	missing  map[string]bool
}

func newFakeMPD(t *testing.T) *fakeMPD {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	f := &fakeMPD{
		ln:      ln,
		status:  map[string]string{"state": "stop", "volume": "100"},
		nextID:  1,
		missing: map[string]bool{},
	}
	t.Cleanup(func() { ln.Close() })
	go f.accept()
	return f
}

func (f *fakeMPD) port() int {
	return f.ln.Addr().(*net.TCPAddr).Port
}

func (f *fakeMPD) accept() {
	for {
		conn, err := f.ln.Accept()
		if err != nil {
			return
		}
		go f.serve(conn)
	}
}

func (f *fakeMPD) serve(conn net.Conn) {
	defer conn.Close()
	w := bufio.NewWriter(conn)
	fmt.Fprint(w, "OK MPD 0.23.5\n")
	w.Flush()

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := scanner.Text()
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "close" {
			return
		}
		fmt.Fprint(w, f.handle(fields[0], strings.TrimSpace(strings.TrimPrefix(line, fields[0]))))
		w.Flush()
	}
}

func (f *fakeMPD) handle(cmd, arg string) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	if cmd != "ping" {
		f.commands = append(f.commands, cmd)
	}
	arg = strings.Trim(arg, `"`)

	switch cmd {
	case "status":
		keys := make([]string, 0, len(f.status))
		for k := range f.status {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var b strings.Builder
		for _, k := range keys {
			fmt.Fprintf(&b, "%s: %s\n", k, f.status[k])
		}
		b.WriteString("OK\n")
		return b.String()
	case "addid":
		if f.missing[arg] {
			return "ACK [50@0] {addid} No such directory\n"
		}
		id := f.nextID
		f.nextID++
		return fmt.Sprintf("Id: %d\nOK\n", id)
	case "playid":
		f.status["state"] = "play"
		f.status["songid"] = arg
		f.status["elapsed"] = "0.000"
	case "pause":
		if arg == "1" {
			f.status["state"] = "pause"
		} else {
			f.status["state"] = "play"
		}
	case "stop":
		f.status["state"] = "stop"
		delete(f.status, "songid")
	case "seekcur":
		f.status["elapsed"] = arg
	case "setvol":
		f.status["volume"] = arg
	}
	return "OK\n"
}

func (f *fakeMPD) set(key, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if value == "" {
		delete(f.status, key)
		return
	}
	f.status[key] = value
}

func (f *fakeMPD) markMissing(uri string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.missing[uri] = true
}

func (f *fakeMPD) get(key string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status[key]
}

func (f *fakeMPD) saw(cmd string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.commands {
		if c == cmd {
			return true
		}
	}
	return false
}

type listener struct {
	mu         sync.Mutex
	prepared   int
	completed  int
	repeated   int
	seeks      int
	errors     []player.ErrorCode
	preparedCh chan struct{}
	errCh      chan struct{}
}

func newListener() *listener {
	return &listener{preparedCh: make(chan struct{}, 1), errCh: make(chan struct{}, 1)}
}

func (l *listener) OnPrepared() {
	l.mu.Lock()
	l.prepared++
	l.mu.Unlock()
	l.preparedCh <- struct{}{}
}
func (l *listener) OnCompletion()           { l.mu.Lock(); l.completed++; l.mu.Unlock() }
func (l *listener) OnRepeat()               { l.mu.Lock(); l.repeated++; l.mu.Unlock() }
func (l *listener) OnSeekComplete()         { l.mu.Lock(); l.seeks++; l.mu.Unlock() }
func (l *listener) OnStalled(bool)          {}
func (l *listener) OnBuffering(int64, bool) {}
func (l *listener) OnError(code player.ErrorCode, _ string) {
	l.mu.Lock()
	l.errors = append(l.errors, code)
	l.mu.Unlock()
	l.errCh <- struct{}{}
}

func (l *listener) counts() (completed, repeated int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.completed, l.repeated
}

func waitFor(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func setup(t *testing.T) (*fakeMPD, *mpd.Client) {
	t.Helper()
	server := newFakeMPD(t)
	client := mpd.NewClient("127.0.0.1", server.port(), "")
	if err := client.Connect(); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return server, client
}

func TestNewClient(t *testing.T) {
	client := mpd.NewClient("localhost", 6600, "")
	if client == nil {
		t.Fatal("expected non-nil client")
	}
	if err := client.Ping(); err == nil {
		t.Error("expected ping to fail before connecting")
	}
}

func TestClientConnectFailure(t *testing.T) {
	client := mpd.NewClient("127.0.0.1", 1, "")
	if err := client.Connect(); err == nil {
		t.Error("expected connection error")
	}
}

func TestDecoderPrepareAndPlay(t *testing.T) {
	server, client := setup(t)
	factory := mpd.NewFactory(client, nil)
	l := newListener()

	d, err := factory.NewDecoder("music/a.flac", track.Track{ID: "a", Duration: 200_000}, l)
	if err != nil {
		t.Fatalf("NewDecoder failed: %v", err)
	}
	if err := d.Prepare(); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	waitFor(t, l.preparedCh, "prepared")

	if !server.saw("clear") || !server.saw("addid") {
		t.Error("expected queue cleared and track added")
	}

	if err := d.SeekTo(5000); err != nil {
		t.Fatalf("SeekTo failed: %v", err)
	}
	if err := d.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !d.IsPlaying() {
		t.Error("expected playing")
	}
	if got := server.get("state"); got != "play" {
		t.Errorf("expected server state play, got %s", got)
	}
	if got := server.get("songid"); got != strconv.Itoa(d.AudioSessionID()) {
		t.Errorf("expected songid %d, got %s", d.AudioSessionID(), got)
	}
	if !server.saw("seekcur") {
		t.Error("expected restored position sought after play")
	}
	if p := d.Progress(); p < 5000 {
		t.Errorf("expected progress from 5000, got %d", p)
	}

	if err := d.Pause(); err != nil {
		t.Fatalf("Pause failed: %v", err)
	}
	if got := server.get("state"); got != "pause" {
		t.Errorf("expected server state pause, got %s", got)
	}
	if d.IsPlaying() {
		t.Error("expected not playing after pause")
	}
}

func TestDecoderCompletion(t *testing.T) {
	server, client := setup(t)
	factory := mpd.NewFactory(client, nil)
	l := newListener()

	d, _ := factory.NewDecoder("music/a.flac", track.Track{ID: "a"}, l)
	_ = d.Prepare()
	waitFor(t, l.preparedCh, "prepared")
	_ = d.Start()

	server.set("duration", "180.500")
	factory.Refresh()
	if d.Duration() != 180_500 {
		t.Errorf("expected duration from status, got %d", d.Duration())
	}
	if c, _ := l.counts(); c != 0 {
		t.Fatalf("expected no completion while playing, got %d", c)
	}

	server.set("state", "stop")
	server.set("songid", "")
	factory.Refresh()

	if c, _ := l.counts(); c != 1 {
		t.Errorf("expected 1 completion, got %d", c)
	}
	if d.IsPlaying() {
		t.Error("expected not playing after completion")
	}
}

func TestDecoderLoopingReplays(t *testing.T) {
	server, client := setup(t)
	factory := mpd.NewFactory(client, nil)
	l := newListener()

	d, _ := factory.NewDecoder("music/a.flac", track.Track{ID: "a"}, l)
	_ = d.Prepare()
	waitFor(t, l.preparedCh, "prepared")
	d.SetLooping(true)
	_ = d.Start()

	server.set("state", "stop")
	server.set("songid", "")
	factory.Refresh()

	c, r := l.counts()
	if c != 0 || r != 1 {
		t.Errorf("expected a repeat and no completion, got %d/%d", c, r)
	}
	if got := server.get("state"); got != "play" {
		t.Errorf("expected replay, got state %s", got)
	}
}

func TestDecoderReleasedIgnoresEvents(t *testing.T) {
	server, client := setup(t)
	factory := mpd.NewFactory(client, nil)
	l := newListener()

	d, _ := factory.NewDecoder("music/a.flac", track.Track{ID: "a"}, l)
	_ = d.Prepare()
	waitFor(t, l.preparedCh, "prepared")
	_ = d.Start()
	d.Release()

	server.set("state", "stop")
	factory.Refresh()
	if c, _ := l.counts(); c != 0 {
		t.Errorf("expected no completion after release, got %d", c)
	}
}

func TestDecoderMissingFile(t *testing.T) {
	server, client := setup(t)
	server.markMissing("music/gone.flac")
	factory := mpd.NewFactory(client, nil)
	l := newListener()

	d, _ := factory.NewDecoder("music/gone.flac", track.Track{ID: "gone"}, l)
	_ = d.Prepare()
	waitFor(t, l.errCh, "error")

	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.errors) != 1 || l.errors[0] != player.ErrFileNotFound {
		t.Errorf("expected FILE_NOT_FOUND, got %v", l.errors)
	}
}

func TestDecoderSpeedAndVolume(t *testing.T) {
	server, client := setup(t)
	factory := mpd.NewFactory(client, nil)
	d, _ := factory.NewDecoder("music/a.flac", track.Track{ID: "a"}, newListener())

	if err := d.SetSpeed(1); err != nil {
		t.Errorf("expected normal speed accepted, got %v", err)
	}
	if err := d.SetSpeed(1.5); err != mpd.ErrSpeedUnsupported {
		t.Errorf("expected ErrSpeedUnsupported, got %v", err)
	}

	d.SetVolume(0.4)
	if got := server.get("volume"); got != "40" {
		t.Errorf("expected volume 40, got %s", got)
	}
}

func TestFactoryReportsFormat(t *testing.T) {
	server, client := setup(t)
	server.set("audio", "96000:24:2")

	var format string
	factory := mpd.NewFactory(client, func(audio string) { format = audio })
	_, _ = factory.NewDecoder("music/a.flac", track.Track{ID: "a"}, newListener())
	factory.Refresh()

	if format != "96000:24:2" {
		t.Errorf("expected format 96000:24:2, got %q", format)
	}
}
