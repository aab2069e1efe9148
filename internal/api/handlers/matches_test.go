package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/gravpool/internal/config"
	"github.com/playmatatu/gravpool/internal/game"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(maxMatches int) (*gin.Engine, *game.MatchManager) {
	cfg := &config.Config{TickRate: 60, MaxMatches: maxMatches, FrameEveryTicks: 2}
	tuning := config.DefaultTuning()
	log := zap.NewNop()
	mm := game.NewMatchManager(nil, nil, cfg, tuning, log)

	r := gin.New()
	r.GET("/health", HealthCheck(mm))
	r.GET("/config", GetConfig(cfg, tuning))
	r.POST("/matches", CreateMatch(mm, log))
	r.GET("/matches", ListMatches(mm))
	r.GET("/matches/:id", GetMatch(mm, log))
	r.GET("/matches/:id/shots", GetShotHistory(mm, log))
	r.POST("/matches/:id/shot", TakeShot(mm, log))
	r.POST("/matches/:id/drag", Drag(mm, log))
	r.POST("/matches/:id/step", Step(mm, log))
	r.POST("/matches/:id/ai", SetAI(mm, log))
	r.POST("/matches/:id/shrink", Shrink(mm, log))
	r.POST("/matches/:id/place", PlaceCueBall(mm, log))
	r.DELETE("/matches/:id", DeleteMatch(mm, log))
	return r, mm
}

func do(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func createScenario(t *testing.T, r http.Handler) game.Frame {
	t.Helper()
	w := do(t, r, http.MethodPost, "/matches", `{"layout":"scenario","manual":true}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var f game.Frame
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &f))
	return f
}

func TestHealthCheck(t *testing.T) {
	r, _ := newTestRouter(0)
	w := do(t, r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"active_matches":0`)
}

func TestConfigIncludesTuning(t *testing.T) {
	r, _ := newTestRouter(0)
	w := do(t, r, http.MethodGet, "/config", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		TickRate int           `json:"tick_rate"`
		Tuning   config.Tuning `json:"tuning"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 60, body.TickRate)
	assert.Equal(t, *config.DefaultTuning(), body.Tuning)
}

func TestCreateMatch(t *testing.T) {
	r, _ := newTestRouter(0)

	f := createScenario(t, r)
	assert.Equal(t, "scenario", f.Layout)
	assert.Len(t, f.Balls, 11)
	assert.Equal(t, game.StatusWaiting, f.Status)

	w := do(t, r, http.MethodPost, "/matches", "")
	require.Equal(t, http.StatusCreated, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Match-ID"))

	w = do(t, r, http.MethodPost, "/matches", `{"layout":"diamond"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodPost, "/matches", `{"rack_size":40}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodPost, "/matches", `{"layout":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodGet, "/matches", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2", w.Header().Get("X-Active-Matches"))
}

func TestCreateMatchLimit(t *testing.T) {
	r, _ := newTestRouter(1)
	createScenario(t, r)
	w := do(t, r, http.MethodPost, "/matches", `{}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestShotAndStep(t *testing.T) {
	r, _ := newTestRouter(0)
	f := createScenario(t, r)
	base := "/matches/" + f.MatchID

	w := do(t, r, http.MethodPost, base+"/shot", `{"x":0,"y":-80}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var shot struct {
		Shot  game.Shot  `json:"shot"`
		Frame game.Frame `json:"frame"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &shot))
	assert.Equal(t, 1, shot.Shot.Number)
	assert.Equal(t, game.StatusInProgress, shot.Frame.Status)

	w = do(t, r, http.MethodPost, base+"/step", `{"ticks":600}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var step struct {
		Result game.StepResult `json:"result"`
		Frame  game.Frame      `json:"frame"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &step))
	assert.Equal(t, 600, step.Result.Ticks)
	assert.Equal(t, 1, step.Frame.SunkCount)
	assert.Equal(t, 10, step.Frame.Score)

	w = do(t, r, http.MethodGet, base, "")
	require.Equal(t, http.StatusOK, w.Code)
	var got game.Frame
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, step.Frame.Checksum, got.Checksum)
}

func TestBadRequests(t *testing.T) {
	r, _ := newTestRouter(0)
	f := createScenario(t, r)
	base := "/matches/" + f.MatchID

	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{"shot missing y", base + "/shot", `{"x":1}`, http.StatusBadRequest},
		{"step zero ticks", base + "/step", `{"ticks":0}`, http.StatusBadRequest},
		{"step too many ticks", base + "/step", `{"ticks":100000}`, http.StatusBadRequest},
		{"ai missing flag", base + "/ai", `{}`, http.StatusBadRequest},
		{"shrink zero power", base + "/shrink", `{"x":1,"y":1,"power":0}`, http.StatusBadRequest},
		{"place off table", base + "/place", `{"x":-50,"y":10}`, http.StatusBadRequest},
		{"drag missing release", base + "/drag", `{"press":{"x":0,"y":0}}`, http.StatusBadRequest},
		{"unknown match", "/matches/nope/shot", `{"x":1,"y":1}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, r, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestAgentTurnConflict(t *testing.T) {
	r, _ := newTestRouter(0)
	f := createScenario(t, r)
	base := "/matches/" + f.MatchID

	w := do(t, r, http.MethodPost, base+"/ai", `{"enabled":true}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ai_turn":true`)

	w = do(t, r, http.MethodPost, base+"/shot", `{"x":0,"y":-50}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestDragDeadZone(t *testing.T) {
	r, _ := newTestRouter(0)
	f := createScenario(t, r)
	base := "/matches/" + f.MatchID

	w := do(t, r, http.MethodPost, base+"/drag", `{"press":{"x":0,"y":0},"release":{"x":0.2,"y":0.2}}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ignored":true}`, w.Body.String())

	w = do(t, r, http.MethodPost, base+"/drag", `{"press":{"x":0,"y":0},"release":{"x":0,"y":100}}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"shot"`)
}

func TestShrinkAndPlace(t *testing.T) {
	r, _ := newTestRouter(0)
	f := createScenario(t, r)
	base := "/matches/" + f.MatchID

	w := do(t, r, http.MethodPost, base+"/shrink", `{"x":400,"y":350,"power":1}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"hit":[1]}`, w.Body.String())

	w = do(t, r, http.MethodPost, base+"/shrink", `{"x":5,"y":5,"power":1}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"hit":[]}`, w.Body.String())

	w = do(t, r, http.MethodPost, base+"/place", `{"x":300,"y":200}`)
	require.Equal(t, http.StatusOK, w.Code)
	var frame game.Frame
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &frame))
	assert.Equal(t, 300.0, frame.Balls[0].X)
	assert.Equal(t, 200.0, frame.Balls[0].Y)
}

func TestDeleteMatch(t *testing.T) {
	r, mm := newTestRouter(0)
	f := createScenario(t, r)

	w := do(t, r, http.MethodDelete, "/matches/"+f.MatchID, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 0, mm.ActiveMatchCount())

	w = do(t, r, http.MethodDelete, "/matches/"+f.MatchID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, r, http.MethodGet, "/matches/"+f.MatchID+"/shots", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"shots":[]}`, w.Body.String())
}
