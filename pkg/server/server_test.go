package server

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omnikernel/kernel/pkg/config"
	"github.com/omnikernel/kernel/pkg/evolution"
	"github.com/omnikernel/kernel/pkg/harness"
	"github.com/omnikernel/kernel/pkg/immune"
	"github.com/omnikernel/kernel/pkg/kernel"
	"github.com/omnikernel/kernel/pkg/manifest"
	"github.com/omnikernel/kernel/pkg/router"
	"github.com/omnikernel/kernel/pkg/vectorstore"
)

const serverTestManifest = "---\nname: ops\nversion: \"1\"\ndescription: ops\n---\n"
const serverTestScript = `package scripts

//skill_command:name=status,category=core,description="status check"
func Status() string {
	return "ok"
}
`

func newTestServer(t *testing.T) *Server {
	t.Helper()
	root := t.TempDir()
	harness.WriteSkill(t, root, "ops", serverTestManifest, serverTestScript)
	kernel.RegisterCommand("ops.status", func(ctx context.Context, args map[string]any) (string, error) {
		return "ok", nil
	})
	k := kernel.New(root, 1)
	_, stats := k.LoadAll(context.Background())
	require.Equal(t, 1, stats.Loaded)

	rcfg := config.RouterConfig{}
	rcfg.SetDefaults()
	r, err := router.New(rcfg, vectorstore.NilProvider{}, func(string) []float32 { return nil },
		[]manifest.ToolRecord{{ToolName: "ops.status", SkillName: "ops", Description: "status check"}})
	require.NoError(t, err)

	ecfg := config.EvolutionConfig{}
	ecfg.SetDefaults()
	mgr := evolution.NewManager(ecfg, evolution.NewTraceCollector(), immune.NewSystem())

	cfg := config.ServerConfig{Address: "127.0.0.1:0"}
	return New(cfg, Dependencies{Kernel: k, Router: r, Evolution: mgr})
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, 200, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestHandleSkillsListsLoadedCommands(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, httptest.NewRequest("GET", "/skills", nil))
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "ops")
	assert.Contains(t, rec.Body.String(), "status")
}

func TestHandleCommandsSplitsCoreAndDynamic(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, httptest.NewRequest("GET", "/commands", nil))
	assert.Equal(t, 200, rec.Code)

	var body map[string][]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body["core"], "ops.status")
	assert.Empty(t, body["dynamic"])
}

func TestHandleRouteRequiresQuery(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, httptest.NewRequest("GET", "/route", nil))
	assert.Equal(t, 400, rec.Code)
}

func TestHandleRouteReturnsRoutingResult(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, httptest.NewRequest("GET", "/route?q=check+status", nil))
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "MissionBrief")
}

func TestHandleEvolutionStatusReportsTraceCount(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, httptest.NewRequest("GET", "/evolution/status", nil))
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "TraceCount")
}

func TestHandleSchemaServesConfigSchema(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, httptest.NewRequest("GET", "/api/schema", nil))
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "Omnikernel Configuration Schema")
}

func TestUnwiredDependenciesReportServiceUnavailable(t *testing.T) {
	s := New(config.ServerConfig{Address: "127.0.0.1:0"}, Dependencies{})
	for _, path := range []string{"/skills", "/commands", "/route?q=x", "/evolution/status"} {
		rec := httptest.NewRecorder()
		s.routes().ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
		assert.Equal(t, 503, rec.Code, "path %s should report unavailable with no dependencies wired", path)
	}
}
