package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cfjudge/internal/judge/profile"
	"cfjudge/internal/judge/result"
	"cfjudge/internal/judge/runner"
	"cfjudge/internal/judge/service"
	"cfjudge/internal/judge/worker"
	appErr "cfjudge/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type echoRunner struct{}

func (echoRunner) Compile(ctx context.Context, req runner.CompileRequest) (result.BuildResult, error) {
	return result.BuildResult{OK: true, ArtifactPath: req.Program.SourcePath}, nil
}

func (echoRunner) Run(ctx context.Context, req runner.RunRequest) (result.RunResult, error) {
	data, err := os.ReadFile(req.InputPath)
	if err != nil {
		return result.RunResult{}, err
	}
	return result.RunResult{Stdout: string(data)}, nil
}

type envelope struct {
	Code    appErr.ErrorCode `json:"code"`
	Message string           `json:"message"`
	Data    json.RawMessage  `json:"data"`
	TraceID string           `json:"trace_id"`
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := worker.NewWorker(echoRunner{}, profile.NewResolver(profile.DefaultLanguages()), worker.Config{})
	return NewRouter(service.NewService(w, 2))
}

func newProblem(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatalf("write %s failed: %v", name, err)
		}
	}
	return dir
}

func postRun(t *testing.T, router http.Handler, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/runs", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response failed: %v (%s)", err, rec.Body.String())
	}
	return rec, env
}

func TestCreateRun(t *testing.T) {
	router := newTestRouter(t)
	dir := newProblem(t, map[string]string{
		"main.py": "", "in1.txt": "1", "out1.txt": "1", "in2.txt": "2", "out2.txt": "3",
	})
	body, _ := json.Marshal(RunRequest{Dir: dir})

	rec, env := postRun(t, router, string(body))
	if rec.Code != http.StatusOK || env.Code != appErr.Success {
		t.Fatalf("unexpected response %d: %s", rec.Code, rec.Body.String())
	}
	if env.TraceID == "" {
		t.Fatal("trace id should be set by middleware")
	}
	var report result.RunReport
	if err := json.Unmarshal(env.Data, &report); err != nil {
		t.Fatalf("decode report failed: %v", err)
	}
	if report.Status != result.StatusSomeFailed || len(report.Cases) != 2 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if strings.Contains(string(env.Data), "artifact") {
		t.Fatalf("artifact paths must not be serialized: %s", env.Data)
	}
}

func TestCreateRunErrors(t *testing.T) {
	router := newTestRouter(t)
	rustDir := newProblem(t, map[string]string{"main.rs": "", "in.txt": "", "out.txt": ""})

	cases := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   appErr.ErrorCode
	}{
		{name: "malformed body", body: "{", wantStatus: http.StatusBadRequest, wantCode: appErr.InvalidParams},
		{name: "missing dir", body: `{}`, wantStatus: http.StatusBadRequest, wantCode: appErr.ValidationFailed},
		{name: "bad compare mode", body: `{"dir":"/tmp","compare":"fuzzy"}`, wantStatus: http.StatusBadRequest, wantCode: appErr.ValidationFailed},
		{name: "unsupported language", body: `{"dir":"` + rustDir + `"}`, wantStatus: http.StatusUnprocessableEntity, wantCode: appErr.LanguageNotSupported},
		{name: "missing dir on disk", body: `{"dir":"` + filepath.Join(rustDir, "nope") + `"}`, wantStatus: http.StatusNotFound, wantCode: appErr.FileNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, env := postRun(t, router, tc.body)
			if rec.Code != tc.wantStatus || env.Code != tc.wantCode {
				t.Fatalf("expected %d/%d, got %d/%d: %s", tc.wantStatus, tc.wantCode, rec.Code, env.Code, rec.Body.String())
			}
		})
	}
}

func TestLanguagesAndHealth(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/languages", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	var data struct {
		Languages []profile.LanguageSpec `json:"languages"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode languages failed: %v", err)
	}
	if len(data.Languages) != len(profile.DefaultLanguages()) || data.Languages[0].ID != "cpp" {
		t.Fatalf("unexpected languages: %+v", data.Languages)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "ok") {
		t.Fatalf("unexpected health response %d: %s", rec.Code, rec.Body.String())
	}
}

func TestStream(t *testing.T) {
	router := newTestRouter(t)
	server := httptest.NewServer(router)
	defer server.Close()
	dir := newProblem(t, map[string]string{"main.py": "", "in.txt": "7", "out.txt": "7"})

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/runs/stream?dir=" + url.QueryEscape(dir)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	var phases []result.Phase
	var final StreamFrame
	for {
		var frame StreamFrame
		if err := conn.ReadJSON(&frame); err != nil {
			break
		}
		if frame.Type == frameStatus {
			phases = append(phases, frame.Status.Phase)
			continue
		}
		final = frame
	}
	if final.Type != frameReport || final.Report == nil || final.Report.Status != result.StatusAllPassed {
		t.Fatalf("unexpected final frame: %+v", final)
	}
	if len(phases) == 0 || phases[0] != result.PhaseBuilding || phases[len(phases)-1] != result.PhaseDone {
		t.Fatalf("unexpected phases: %v", phases)
	}
}

func TestStreamRejectsMissingDir(t *testing.T) {
	router := newTestRouter(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/runs/stream", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 before upgrade, got %d", rec.Code)
	}
}
