package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/require"

	"github.com/remowork/soundswap/internal/catalog"
	"github.com/remowork/soundswap/internal/channel"
	"github.com/remowork/soundswap/internal/resolver"
	"github.com/remowork/soundswap/internal/service"
	"github.com/remowork/soundswap/internal/store"
	"github.com/remowork/soundswap/internal/store/sqlite"
)

const testAssetBase = "chrome-extension://ext/sounds"

type testServer struct {
	api    humatest.TestAPI
	server *Server
	sound  *service.SoundService
	hub    *channel.Hub
}

type testServerOptions struct {
	maxUploadBytes   int64
	uploadsPerMinute int
}

func setupTestServer(t *testing.T) *testServer {
	return setupTestServerWith(t, testServerOptions{})
}

func setupTestServerWith(t *testing.T, o testServerOptions) *testServer {
	t.Helper()

	kv, err := store.NewInMemory(nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })

	blobs, err := sqlite.Open(filepath.Join(t.TempDir(), "sounds.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = blobs.Close() })

	presets := fstest.MapFS{
		"phone_incoming.mp3": {Data: []byte("ID3preset")},
	}

	cat := catalog.Default()
	res := resolver.New(cat, blobs, resolver.NewAssetLocator(testAssetBase, presets), nil)
	sound := service.NewSoundService(kv, blobs, cat, res, service.UploadLimits{
		MaxBytes:    1 << 20,
		MaxDuration: 10 * time.Minute,
	}, nil)

	hub := channel.NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Start(ctx)
	t.Cleanup(cancel)
	sound.SetPublisher(hub)
	sound.Republish(context.Background())

	maxUpload := o.maxUploadBytes
	if maxUpload == 0 {
		maxUpload = 1 << 20
	}

	srv := NewServer(&Services{
		Sound:    sound,
		Hub:      hub,
		Stream:   channel.NewHandler(hub, nil),
		Settings: kv,
		Blobs:    blobs,
	}, Options{
		CORSOrigins:      []string{"chrome-extension://ext"},
		MaxUploadBytes:   maxUpload,
		UploadsPerMinute: o.uploadsPerMinute,
		Presets:          presets,
	}, nil)
	t.Cleanup(func() { _ = srv.Shutdown() })

	return &testServer{
		api:    humatest.Wrap(t, srv.API()),
		server: srv,
		sound:  sound,
		hub:    hub,
	}
}

func silentWAV(t *testing.T) []byte {
	t.Helper()
	raw, err := base64.StdEncoding.DecodeString(
		strings.TrimPrefix(catalog.SilencePayload(), "data:audio/wav;base64,"))
	require.NoError(t, err)
	return raw
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(body, &v))
	return v
}
