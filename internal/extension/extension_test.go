package extension

import (
	"bytes"
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remowork/soundswap/internal/catalog"
	"github.com/remowork/soundswap/internal/channel"
	"github.com/remowork/soundswap/internal/classifier"
	"github.com/remowork/soundswap/internal/config"
	"github.com/remowork/soundswap/internal/domain"
	domainerrors "github.com/remowork/soundswap/internal/errors"
	"github.com/remowork/soundswap/internal/interceptor"
	"github.com/remowork/soundswap/internal/page"
	"github.com/remowork/soundswap/internal/resolver"
	"github.com/remowork/soundswap/internal/service"
	"github.com/remowork/soundswap/internal/store"
	"github.com/remowork/soundswap/internal/store/sqlite"
)

const (
	assetBase   = "chrome-extension://ext/sounds"
	officeURL   = "https://remowork.biz/office/room"
	officeHTML  = `<html><head><script src="/client/app.js"></script></head><body><div id="office"></div></body></html>`
	incomingURL = "https://remowork.biz/client/incoming.mp3"
	callingURL  = "https://remowork.biz/client/calling.mp3"
)

type harness struct {
	sound *service.SoundService
	hub   *channel.Hub
	ext   *Extension
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	kv, err := store.NewInMemory(nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })

	blobs, err := sqlite.Open(filepath.Join(t.TempDir(), "sounds.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = blobs.Close() })

	presets := fstest.MapFS{"phone_incoming.mp3": {Data: []byte("ID3preset")}}

	cat := catalog.Default()
	res := resolver.New(cat, blobs, resolver.NewAssetLocator(assetBase, presets), nil)
	sound := service.NewSoundService(kv, blobs, cat, res, service.UploadLimits{
		MaxBytes:    config.DefaultUploadMaxBytes,
		MaxDuration: config.DefaultUploadMaxDuration,
	}, nil)

	hub := channel.NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Start(ctx)
	t.Cleanup(cancel)

	sound.SetPublisher(hub)
	sound.Republish(context.Background())

	ext := New(sound, hub, Options{
		RetryDelay: time.Millisecond,
		Detector:   thumbsUpDetector{},
	}, nil)
	t.Cleanup(ext.Close)

	return &harness{sound: sound, hub: hub, ext: ext}
}

func (h *harness) open(t *testing.T) (*Tab, *fakeSoundLibrary) {
	t.Helper()
	lib := &fakeSoundLibrary{}
	tab, err := h.ext.OpenPage(context.Background(), officeURL, officeHTML, interceptor.Capabilities{
		Media:     fakeMediaFactory{},
		Sounds:    lib,
		Transport: teapotTransport{},
	})
	require.NoError(t, err)
	return tab, lib
}

func (h *harness) saveSettings(t *testing.T, enabled bool, sounds map[domain.SoundID]domain.SoundSetting) {
	t.Helper()
	settings := domain.NewSettings()
	settings.Enabled = enabled
	for id, s := range sounds {
		settings.Sounds[id] = s
	}
	_, err := h.sound.SaveSettings(context.Background(), settings)
	require.NoError(t, err)
}

func (h *harness) upload(t *testing.T, id domain.SoundID) {
	t.Helper()
	wav := silentWAV(t)
	_, err := h.sound.SaveSound(context.Background(), id, service.UploadRequest{
		FileName: "ring.wav",
		MimeType: "audio/wav",
		Size:     int64(len(wav)),
		Body:     bytes.NewReader(wav),
	})
	require.NoError(t, err)
}

func silentWAV(t *testing.T) []byte {
	t.Helper()
	raw, err := base64.StdEncoding.DecodeString(
		strings.TrimPrefix(catalog.SilencePayload(), "data:audio/wav;base64,"))
	require.NoError(t, err)
	return raw
}

func TestPresetSubstitutedAtPageLoad(t *testing.T) {
	h := newHarness(t)
	h.saveSettings(t, true, map[domain.SoundID]domain.SoundSetting{
		domain.SoundIncoming: {Mode: domain.ModePreset, PresetID: "incoming_phone"},
	})

	tab, _ := h.open(t)

	m := tab.Caps.Media.NewMedia("/client/incoming.mp3")
	assert.Equal(t, assetBase+"/phone_incoming.mp3", m.Src())

	other := tab.Caps.Media.NewMedia("/client/outgoing.mp3")
	assert.Equal(t, "/client/outgoing.mp3", other.Src(), "unconfigured sounds pass through")
}

func TestDisabledAtLoad_InstallsNothing(t *testing.T) {
	h := newHarness(t)
	h.saveSettings(t, false, map[domain.SoundID]domain.SoundSetting{
		domain.SoundIncoming: {Mode: domain.ModePreset, PresetID: "incoming_phone"},
	})

	tab, lib := h.open(t)

	for _, u := range []string{incomingURL, "/unrelated/asset.mp3"} {
		_, ok := tab.Interceptor.ResolveSubstitution(u)
		assert.False(t, ok, u)
	}

	assert.Equal(t, interceptor.Capabilities{
		Media:     fakeMediaFactory{},
		Sounds:    lib,
		Transport: teapotTransport{},
	}, tab.Caps, "capabilities are handed back untouched")

	tab.Caps.Media.NewMedia(incomingURL)
	tab.Caps.Sounds.NewSound(interceptor.SoundOptions{Src: []string{incomingURL}})

	status := tab.Interceptor.Status()
	assert.False(t, status.Installed)
	assert.Zero(t, status.Overrides)

	_, err := tab.StopAllSounds()
	assert.Error(t, err, "no page globals when disabled")
}

func TestOversizedUploadRejected(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.sound.SaveSound(ctx, domain.SoundCalling, service.UploadRequest{
		FileName: "huge.mp3",
		MimeType: "audio/mpeg",
		Size:     301 << 20,
		Body:     io.LimitReader(zeros{}, 301<<20),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrPayloadTooLarge)

	_, err = h.sound.GetSound(ctx, domain.SoundCalling)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound, "no blob written")

	settings, err := h.sound.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.ModeOriginal, settings.Sound(domain.SoundCalling).Mode)
}

func TestAnswerClickStopsTrackedSounds(t *testing.T) {
	h := newHarness(t)
	h.upload(t, domain.SoundCalling)

	tab, lib := h.open(t)

	s := tab.Caps.Sounds.NewSound(interceptor.SoundOptions{Src: []string{callingURL}, Loop: true})
	s.Play()

	require.Len(t, lib.created, 1)
	assert.True(t, strings.HasPrefix(lib.created[0].opts.Src[0], "data:audio/wav;base64,"))
	assert.Equal(t, 1, tab.Interceptor.Status().TrackedSounds)

	label := page.NewElement("span", "応答")
	page.NewElement("button", "", "call-panel__btn").Append(label)
	tab.Window.Document().Click(label)

	assert.False(t, lib.created[0].Playing())
	assert.Equal(t, 1, lib.created[0].stops)
	assert.Zero(t, tab.Interceptor.Status().TrackedSounds)
}

func TestStopAllGlobal(t *testing.T) {
	h := newHarness(t)
	h.upload(t, domain.SoundCalling)

	tab, _ := h.open(t)
	tab.Caps.Sounds.NewSound(interceptor.SoundOptions{Src: []string{callingURL}}).Play()
	tab.Caps.Sounds.NewSound(interceptor.SoundOptions{Src: []string{callingURL}}).Play()

	stopped, err := tab.StopAllSounds()
	require.NoError(t, err)
	assert.Equal(t, 2, stopped)
}

func TestLiveUpdate_DoesNotTouchExistingMedia(t *testing.T) {
	h := newHarness(t)
	tab, _ := h.open(t)

	before := tab.Caps.Media.NewMedia(incomingURL)
	assert.Equal(t, incomingURL, before.Src())

	h.upload(t, domain.SoundIncoming)
	require.Eventually(t, func() bool {
		_, ok := tab.Interceptor.ResolveSubstitution(incomingURL)
		return ok
	}, 2*time.Second, 5*time.Millisecond, "custom sound reaches the page")

	assert.Equal(t, incomingURL, before.Src(), "existing media keeps its source")

	after := tab.Caps.Media.NewMedia(incomingURL)
	assert.True(t, strings.HasPrefix(after.Src(), "data:audio/wav;base64,"))
}

func TestLiveUpdate_ResetsCachedResolution(t *testing.T) {
	h := newHarness(t)
	h.saveSettings(t, true, map[domain.SoundID]domain.SoundSetting{
		domain.SoundIncoming: {Mode: domain.ModePreset, PresetID: "incoming_phone"},
	})
	tab, _ := h.open(t)

	ref, ok := tab.Interceptor.ResolveSubstitution(incomingURL)
	require.True(t, ok)
	assert.Equal(t, assetBase+"/phone_incoming.mp3", ref)

	h.saveSettings(t, true, map[domain.SoundID]domain.SoundSetting{
		domain.SoundIncoming: {Mode: domain.ModeOriginal},
	})

	assert.Eventually(t, func() bool {
		_, ok := tab.Interceptor.ResolveSubstitution(incomingURL)
		return !ok
	}, 2*time.Second, 5*time.Millisecond)
}

func TestLiveDisable_StopsSubstituting(t *testing.T) {
	h := newHarness(t)
	h.upload(t, domain.SoundCalling)
	tab, _ := h.open(t)

	resp, err := tab.Caps.Transport.RoundTrip(mustRequest(t, callingURL))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "audio/wav", resp.Header.Get("Content-Type"))

	h.saveSettings(t, false, map[domain.SoundID]domain.SoundSetting{
		domain.SoundCalling: {Mode: domain.ModeCustom},
	})

	require.Eventually(t, func() bool {
		return !tab.Interceptor.Status().Enabled
	}, 2*time.Second, 5*time.Millisecond)

	resp, err = tab.Caps.Transport.RoundTrip(mustRequest(t, callingURL))
	require.NoError(t, err)
	assert.Equal(t, http.StatusTeapot, resp.StatusCode, "request goes to the host once disabled")
}

func TestOlderHubSnapshotDoesNotRollBackPage(t *testing.T) {
	h := newHarness(t)

	// The hub keeps the revision 0 snapshot while the store moves ahead.
	h.sound.SetPublisher(nil)
	h.saveSettings(t, true, map[domain.SoundID]domain.SoundSetting{
		domain.SoundIncoming: {Mode: domain.ModePreset, PresetID: "incoming_phone"},
	})

	tab, _ := h.open(t)
	_, ok := tab.Interceptor.ResolveSubstitution(incomingURL)
	require.True(t, ok, "bootstrap carries the preset")

	assert.Never(t, func() bool {
		_, ok := tab.Interceptor.ResolveSubstitution(incomingURL)
		return !ok
	}, 200*time.Millisecond, 5*time.Millisecond)
	assert.Zero(t, tab.listener.Applied())
}

func TestUpdatesReachEveryOpenPage(t *testing.T) {
	h := newHarness(t)
	first, _ := h.open(t)
	second, _ := h.open(t)
	assert.Equal(t, 2, h.ext.Tabs())

	h.saveSettings(t, true, map[domain.SoundID]domain.SoundSetting{
		domain.SoundIncoming: {Mode: domain.ModePreset, PresetID: "incoming_phone"},
	})

	for _, tab := range []*Tab{first, second} {
		assert.Eventually(t, func() bool {
			_, ok := tab.Interceptor.ResolveSubstitution(incomingURL)
			return ok
		}, 2*time.Second, 5*time.Millisecond)
	}

	first.Close()
	assert.Equal(t, 1, h.ext.Tabs())
	assert.Eventually(t, func() bool { return h.hub.SubscriberCount() == 1 }, time.Second, 5*time.Millisecond)
}

func TestClassifierOverPagePort(t *testing.T) {
	h := newHarness(t)
	tab, _ := h.open(t)
	require.NotNil(t, tab.Classifier)

	g, err := tab.Classifier.DetectHandSign(context.Background(), classifier.Image{
		Width: 1, Height: 1, Data: []byte{0, 0, 0, 255},
	})
	require.NoError(t, err)
	require.NotNil(t, g)
	assert.Equal(t, "thumbs_up", g.Label)
}

func mustRequest(t *testing.T, u string) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, u, nil)
	require.NoError(t, err)
	return req
}

type zeros struct{}

func (zeros) Read(p []byte) (int, error) {
	clear(p)
	return len(p), nil
}
