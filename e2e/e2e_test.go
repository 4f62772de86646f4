package e2e

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ayusman/airpoint/internal/capture"
	"github.com/ayusman/airpoint/internal/control"
	"github.com/ayusman/airpoint/internal/detector"
	"github.com/ayusman/airpoint/internal/server"
	"github.com/ayusman/airpoint/internal/session"
	"github.com/ayusman/airpoint/internal/store"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type harness struct {
	t        *testing.T
	store    *store.Store
	detector *detector.MockDetector
	pointer  *control.RecordingPointer
	volume   *control.RecordingVolume
	session  *session.Session
	hub      *server.Hub
	ts       *httptest.Server
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	st, err := store.New(filepath.Join(t.TempDir(), "airpoint.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	h := &harness{
		t:        t,
		store:    st,
		detector: detector.NewMockDetector(),
		pointer:  control.NewRecordingPointer(),
		volume:   control.NewRecordingVolume(control.VolumeRange{Min: -65.25, Max: 0}),
		hub:      server.NewHub(zap.NewNop()),
	}
	t.Cleanup(h.hub.Close)

	h.session, err = session.New(session.Config{
		CameraWidth:   640,
		CameraHeight:  480,
		ScreenWidth:   1920,
		ScreenHeight:  1080,
		Padding:       100,
		VolumeEnabled: true,
		Enabled:       true,
	}, session.Deps{
		Camera:   capture.NewBlankCamera(640, 480),
		Detector: h.detector,
		Pointer:  h.pointer,
		Volume:   h.volume,
		Store:    st,
		Observer: h.hub,
		Logger:   zap.NewNop(),
	})
	require.NoError(t, err)
	require.NoError(t, h.session.Start())

	h.ts = httptest.NewServer(server.New(server.Config{
		Controller: h.session,
		Store:      st,
		Hub:        h.hub,
		Logger:     zap.NewNop(),
	}))
	t.Cleanup(h.ts.Close)
	return h
}

func (h *harness) tick(hand detector.HandLandmarks) session.Report {
	h.t.Helper()
	h.detector.SetHands([]detector.HandLandmarks{hand})
	rep, err := h.session.Tick(time.Now())
	require.NoError(h.t, err)
	return rep
}

func (h *harness) status() map[string]any {
	h.t.Helper()
	resp, err := h.ts.Client().Get(h.ts.URL + "/api/status")
	require.NoError(h.t, err)
	defer resp.Body.Close()
	require.Equal(h.t, http.StatusOK, resp.StatusCode)

	var st map[string]any
	require.NoError(h.t, json.NewDecoder(resp.Body).Decode(&st))
	return st
}

func (h *harness) setEnabled(enabled bool) {
	h.t.Helper()
	body := `{"enabled": false}`
	if enabled {
		body = `{"enabled": true}`
	}
	resp, err := h.ts.Client().Post(h.ts.URL+"/api/enable", "application/json", strings.NewReader(body))
	require.NoError(h.t, err)
	resp.Body.Close()
	require.Equal(h.t, http.StatusOK, resp.StatusCode)
}

func kinds(events []control.Event) []control.EventKind {
	var out []control.EventKind
	for _, ev := range events {
		out = append(out, ev.Kind)
	}
	return out
}

func TestE2E_GestureSessionOverHTTP(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}
	h := newHarness(t)

	t.Run("open palm moves the pointer", func(t *testing.T) {
		rep := h.tick(detector.OpenPalmLandmarks())
		assert.Equal(t, control.ModePointer, rep.Mode)
		assert.Equal(t, []control.EventKind{control.EventMove}, kinds(rep.Events))

		st := h.status()
		assert.Equal(t, "pointer", st["mode"])
		assert.Equal(t, true, st["enabled"])
	})

	t.Run("pinch holds the left button", func(t *testing.T) {
		h.tick(detector.PinchLandmarks())
		assert.Equal(t, true, h.status()["left_pressed"])
	})

	t.Run("disabling over HTTP releases it", func(t *testing.T) {
		h.setEnabled(false)
		h.pointer.Reset()

		rep := h.tick(detector.PinchLandmarks())
		assert.False(t, rep.Enabled)
		assert.Equal(t, []control.EventKind{control.EventRelease}, kinds(h.pointer.Events()))

		st := h.status()
		assert.Equal(t, false, st["enabled"])
		assert.Equal(t, false, st["left_pressed"])
		assert.False(t, h.store.Settings().Bool(store.SettingEnabled, true))
	})

	t.Run("pointing scrolls once enabled again", func(t *testing.T) {
		h.setEnabled(true)
		h.pointer.Reset()

		rep := h.tick(detector.PointingLandmarks())
		assert.Equal(t, control.ModeScroll, rep.Mode)
		require.Len(t, rep.Events, 1)
		assert.Equal(t, control.EventScroll, rep.Events[0].Kind)
		assert.Positive(t, rep.Events[0].Amount)
	})

	t.Run("closing records the session", func(t *testing.T) {
		id := h.session.Status().SessionID
		require.NoError(t, h.session.Close())

		resp, err := h.ts.Client().Get(h.ts.URL + "/api/sessions/" + id)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var rec store.SessionRecord
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&rec))
		require.NotNil(t, rec.EndedAt)
		assert.Equal(t, 4, rec.Frames)
		assert.Equal(t, 4, rec.HandFrames)
		assert.Equal(t, 1, rec.Presses)
		assert.Equal(t, 1, rec.Releases)
		assert.Equal(t, 1, rec.Scrolls)
		assert.True(t, rec.VolumeEnabled)
	})
}

func TestE2E_LandmarkStream(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}
	h := newHarness(t)
	t.Cleanup(func() { _ = h.session.Close() })

	url := "ws" + strings.TrimPrefix(h.ts.URL, "http") + "/api/landmarks"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		reports, _ := h.hub.Clients()
		return reports == 1
	}, 2*time.Second, 5*time.Millisecond)

	h.tick(detector.TwoFingerLandmarks())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var rep session.Report
	require.NoError(t, json.Unmarshal(msg, &rep))
	assert.True(t, rep.Detected)
	require.NotNil(t, rep.Hand)
	assert.NotNil(t, rep.Cursor)
	assert.Equal(t, uint64(1), rep.Seq)
}
