package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/beaconhub/beacon-registry/internal/config"
	"github.com/beaconhub/beacon-registry/internal/db"
	"github.com/beaconhub/beacon-registry/internal/ratelimit"
	"github.com/beaconhub/beacon-registry/internal/security"
	"github.com/beaconhub/beacon-registry/internal/service"
	"github.com/beaconhub/beacon-registry/internal/store"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

func newTestEngine(t *testing.T, lookupLimit int) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	conn, err := db.Open("file:" + filepath.Join(t.TempDir(), "api-test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	svc := service.New(store.New(conn, nil), security.NewSecretManager(bcrypt.MinCost), nil)
	limiter := ratelimit.NewManager(config.RateLimitConfig{Limit: lookupLimit, Window: time.Minute}, nil, nil, nil)
	return NewEngine(svc, limiter, nil)
}

func doJSON(t *testing.T, engine *gin.Engine, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, errMarshal := json.Marshal(body)
		if errMarshal != nil {
			t.Fatalf("marshal: %v", errMarshal)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	out := map[string]any{}
	if w.Body.Len() > 0 && strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		if errDecode := json.Unmarshal(w.Body.Bytes(), &out); errDecode != nil {
			t.Fatalf("decode %s %s: %v (%s)", method, path, errDecode, w.Body.String())
		}
	}
	return w, out
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, w.Code, w.Body.String())
	}
}

func idOf(t *testing.T, body map[string]any) uint64 {
	t.Helper()
	id, ok := body["id"].(float64)
	if !ok {
		t.Fatalf("missing id in %v", body)
	}
	return uint64(id)
}

func TestScenario_EndToEnd(t *testing.T) {
	engine := newTestEngine(t, 0)

	w, _ := doJSON(t, engine, http.MethodPost, "/Owner", gin.H{"username": "alice"})
	expectStatus(t, w, http.StatusCreated)

	w, project := doJSON(t, engine, http.MethodPost, "/alice/Project", gin.H{"name": "P1"})
	expectStatus(t, w, http.StatusCreated)
	projectID := idOf(t, project)
	secret, _ := project["projectSecret"].(string)
	if len(secret) != 36 {
		t.Fatalf("expected 36-char secret, got %q", secret)
	}
	if loc := w.Header().Get("Location"); loc != fmt.Sprintf("/alice/Project/%d", projectID) {
		t.Fatalf("unexpected Location %q", loc)
	}

	w, fetched := doJSON(t, engine, http.MethodGet, fmt.Sprintf("/alice/Project/%d", projectID), nil)
	expectStatus(t, w, http.StatusOK)
	if _, leaked := fetched["projectSecret"]; leaked {
		t.Fatalf("secret must not be returned after creation")
	}

	beaconPath := fmt.Sprintf("/Project/%d/Beacon", projectID)
	w, beacon := doJSON(t, engine, http.MethodPost, beaconPath, gin.H{"uuid": strings.Repeat("a", 36), "major": "1", "minor": "1"})
	expectStatus(t, w, http.StatusCreated)
	beaconID := idOf(t, beacon)
	if beacon["uuid"] != strings.Repeat("A", 36) {
		t.Fatalf("expected uppercase uuid, got %v", beacon["uuid"])
	}

	w, _ = doJSON(t, engine, http.MethodPost, beaconPath, gin.H{"uuid": strings.Repeat("a", 36), "major": "1", "minor": "1"})
	expectStatus(t, w, http.StatusBadRequest)

	w, group := doJSON(t, engine, http.MethodPost, fmt.Sprintf("/Project/%d/BeaconGroup", projectID), gin.H{"name": "G1"})
	expectStatus(t, w, http.StatusCreated)
	groupPath := fmt.Sprintf("/Project/%d/BeaconGroup/%d", projectID, idOf(t, group))

	w, _ = doJSON(t, engine, http.MethodPost, fmt.Sprintf("%s/AddBeaconToGroup?beaconId=%d", groupPath, beaconID), nil)
	expectStatus(t, w, http.StatusOK)
	w, _ = doJSON(t, engine, http.MethodPost, fmt.Sprintf("%s/AddBeaconToGroup?beaconId=%d", groupPath, beaconID), nil)
	expectStatus(t, w, http.StatusConflict)

	w, members := doJSON(t, engine, http.MethodGet, groupPath+"/Beacons", nil)
	expectStatus(t, w, http.StatusOK)
	if rows, _ := members["beacons"].([]any); len(rows) != 1 {
		t.Fatalf("expected one member, got %v", members["beacons"])
	}

	w, _ = doJSON(t, engine, http.MethodDelete, groupPath, nil)
	expectStatus(t, w, http.StatusNotAcceptable)
	w, _ = doJSON(t, engine, http.MethodDelete, groupPath+"?confirm=yes", nil)
	expectStatus(t, w, http.StatusOK)

	w, stored := doJSON(t, engine, http.MethodGet, fmt.Sprintf("%s/%d", beaconPath, beaconID), nil)
	expectStatus(t, w, http.StatusOK)
	if stored["beaconGroupId"] != nil {
		t.Fatalf("expected beacon to be detached, got %v", stored["beaconGroupId"])
	}

	w, found := doJSON(t, engine, http.MethodPost, "/Query", gin.H{"uuid": strings.Repeat("a", 36), "major": "1", "minor": "1", "secret": secret})
	expectStatus(t, w, http.StatusOK)
	if idOf(t, found) != beaconID {
		t.Fatalf("expected lookup to return beacon %d, got %v", beaconID, found["id"])
	}

	w, _ = doJSON(t, engine, http.MethodDelete, fmt.Sprintf("/alice/Project/%d", projectID), nil)
	expectStatus(t, w, http.StatusPreconditionFailed)
	w, _ = doJSON(t, engine, http.MethodDelete, fmt.Sprintf("/alice/Project/%d?confirm=yes", projectID), nil)
	expectStatus(t, w, http.StatusOK)
	w, _ = doJSON(t, engine, http.MethodGet, fmt.Sprintf("/alice/Project/%d", projectID), nil)
	expectStatus(t, w, http.StatusNotFound)
	w, _ = doJSON(t, engine, http.MethodGet, fmt.Sprintf("%s/%d", beaconPath, beaconID), nil)
	expectStatus(t, w, http.StatusNotFound)
}

func TestValidationErrorListsViolations(t *testing.T) {
	engine := newTestEngine(t, 0)
	w, _ := doJSON(t, engine, http.MethodPost, "/Owner", gin.H{"username": "alice"})
	expectStatus(t, w, http.StatusCreated)

	w, body := doJSON(t, engine, http.MethodPost, "/alice/Project", gin.H{"name": strings.Repeat("x", 51)})
	expectStatus(t, w, http.StatusBadRequest)
	violations, _ := body["violations"].([]any)
	if len(violations) != 1 {
		t.Fatalf("expected one violation, got %v", body)
	}
	first, _ := violations[0].(map[string]any)
	if first["property"] != "name" || first["violation"] == "" {
		t.Fatalf("unexpected violation %v", first)
	}

	w, _ = doJSON(t, engine, http.MethodPost, "/Owner", gin.H{"username": "Query"})
	expectStatus(t, w, http.StatusBadRequest)
}

func TestProjectSearchAndOwnerScoping(t *testing.T) {
	engine := newTestEngine(t, 0)
	for _, name := range []string{"alice", "bob"} {
		w, _ := doJSON(t, engine, http.MethodPost, "/Owner", gin.H{"username": name})
		expectStatus(t, w, http.StatusCreated)
	}
	w, project := doJSON(t, engine, http.MethodPost, "/alice/Project", gin.H{"name": "Warehouse"})
	expectStatus(t, w, http.StatusCreated)

	w, list := doJSON(t, engine, http.MethodGet, "/bob/Project", nil)
	expectStatus(t, w, http.StatusOK)
	if rows, _ := list["projects"].([]any); len(rows) != 0 {
		t.Fatalf("expected bob to see no projects, got %v", rows)
	}
	w, _ = doJSON(t, engine, http.MethodGet, "/bob/Project?name=ware", nil)
	expectStatus(t, w, http.StatusNotFound)
	w, _ = doJSON(t, engine, http.MethodGet, fmt.Sprintf("/bob/Project/%d", idOf(t, project)), nil)
	expectStatus(t, w, http.StatusNotFound)

	w, list = doJSON(t, engine, http.MethodGet, "/alice/Project?name=ware", nil)
	expectStatus(t, w, http.StatusOK)
	if rows, _ := list["projects"].([]any); len(rows) != 1 {
		t.Fatalf("expected one match, got %v", rows)
	}

	w, _ = doJSON(t, engine, http.MethodGet, "/nobody/Project", nil)
	expectStatus(t, w, http.StatusNotFound)
}

func TestRemoveBeaconFromGroup_NotGrouped(t *testing.T) {
	engine := newTestEngine(t, 0)
	doJSON(t, engine, http.MethodPost, "/Owner", gin.H{"username": "alice"})
	_, project := doJSON(t, engine, http.MethodPost, "/alice/Project", gin.H{"name": "P1"})
	projectID := idOf(t, project)
	_, beacon := doJSON(t, engine, http.MethodPost, fmt.Sprintf("/Project/%d/Beacon", projectID), gin.H{"uuid": strings.Repeat("b", 36), "major": "2", "minor": "3"})
	_, group := doJSON(t, engine, http.MethodPost, fmt.Sprintf("/Project/%d/BeaconGroup", projectID), gin.H{"name": "G1"})

	path := fmt.Sprintf("/Project/%d/BeaconGroup/%d/RemoveBeaconFromGroup?beaconId=%d", projectID, idOf(t, group), idOf(t, beacon))
	w, _ := doJSON(t, engine, http.MethodDelete, path, nil)
	expectStatus(t, w, http.StatusBadRequest)

	w, _ = doJSON(t, engine, http.MethodDelete, fmt.Sprintf("/Project/%d/BeaconGroup/%d/RemoveBeaconFromGroup", projectID, idOf(t, group)), nil)
	expectStatus(t, w, http.StatusBadRequest)
	w, _ = doJSON(t, engine, http.MethodDelete, fmt.Sprintf("/Project/%d/BeaconGroup/999/RemoveBeaconFromGroup?beaconId=%d", projectID, idOf(t, beacon)), nil)
	expectStatus(t, w, http.StatusNotFound)
}

func TestLookupIsRateLimited(t *testing.T) {
	engine := newTestEngine(t, 2)
	body := gin.H{"uuid": strings.Repeat("c", 36), "major": "1", "minor": "1", "secret": "nope"}

	for i := 0; i < 2; i++ {
		w, _ := doJSON(t, engine, http.MethodPost, "/Query", body)
		expectStatus(t, w, http.StatusNotFound)
	}
	w, _ := doJSON(t, engine, http.MethodPost, "/Query", body)
	expectStatus(t, w, http.StatusTooManyRequests)
	if w.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}
}

func TestHealthAndMetrics(t *testing.T) {
	engine := newTestEngine(t, 0)
	w, body := doJSON(t, engine, http.MethodGet, "/healthz", nil)
	expectStatus(t, w, http.StatusOK)
	if body["status"] != "ok" {
		t.Fatalf("unexpected health body %v", body)
	}

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	expectStatus(t, rec, http.StatusOK)
	if !strings.Contains(rec.Body.String(), "beacon_registry_http_request_duration_seconds") {
		t.Fatalf("expected request histogram in metrics output")
	}
}

func TestIDsOutsideSignedRangeAreBadRequest(t *testing.T) {
	engine := newTestEngine(t, 0)
	doJSON(t, engine, http.MethodPost, "/Owner", gin.H{"username": "alice"})
	_, project := doJSON(t, engine, http.MethodPost, "/alice/Project", gin.H{"name": "P1"})
	projectID := idOf(t, project)
	_, group := doJSON(t, engine, http.MethodPost, fmt.Sprintf("/Project/%d/BeaconGroup", projectID), gin.H{"name": "G1"})

	cases := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/alice/Project/18446744073709551615"},
		{http.MethodGet, "/Project/18446744073709551615/BeaconGroup"},
		{http.MethodGet, "/Project/9223372036854775808/Beacon/1"},
		{http.MethodPost, fmt.Sprintf("/Project/%d/BeaconGroup/%d/AddBeaconToGroup?beaconId=18446744073709551615", projectID, idOf(t, group))},
	}
	for _, tc := range cases {
		w, _ := doJSON(t, engine, tc.method, tc.path, nil)
		expectStatus(t, w, http.StatusBadRequest)
	}

	w, _ := doJSON(t, engine, http.MethodGet, "/Project/9223372036854775807/Beacon/1", nil)
	expectStatus(t, w, http.StatusNotFound)
}
