package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/reservation-system/internal/application"
	"github.com/example/reservation-system/internal/config"
	httptransport "github.com/example/reservation-system/internal/http"
	"github.com/example/reservation-system/internal/testfixtures"
)

type testServer struct {
	handler http.Handler
	clock   *testfixtures.Clock
}

// newTestServer wires the full stack onto a temporary SQLite database and
// seeds it the same way a fresh process start would.
func newTestServer(t *testing.T) *testServer {
	t.Helper()

	harness := testfixtures.NewSQLiteHarness(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := testfixtures.NewClock(testfixtures.ReferenceTime())
	now := clock.NowFunc()
	ids := testfixtures.NewIDGenerator("id")
	tokens := testfixtures.NewIDGenerator("token")
	tokenGenerator := func() (string, error) { return tokens.Next(), nil }

	userRepo := newUserRepositoryAdapter(harness.Users)
	roomRepo := newRoomRepositoryAdapter(harness.Rooms)
	reservationStore := newReservationStoreAdapter(harness.Reservations)
	auditStore := newAuditStoreAdapter(harness.Decisions)
	sessionStore := newSessionStoreAdapter(harness.Sessions)

	reservationService := application.NewReservationServiceWithLogger(reservationStore, roomRepo, ids.Next, now, logger)
	roomService := application.NewRoomServiceWithLogger(roomRepo, ids.Next, now, logger)
	userService := application.NewUserServiceWithLogger(userRepo, ids.Next, now, logger)
	auditService := application.NewAuditServiceWithLogger(auditStore, logger)
	authService := application.NewAuthServiceWithLogger(userRepo, sessionStore, ids.Next, tokenGenerator, now, time.Hour, logger)

	cfg := config.Config{AdminUsername: "root", AdminPassword: "root-password", DefaultRoom: "room1"}
	if err := bootstrap(context.Background(), cfg, userRepo, roomRepo, ids.Next, now, logger); err != nil {
		t.Fatalf("bootstrap failed: %v", err)
	}

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Auth:         httptransport.NewAuthHandler(authService, logger),
		Users:        httptransport.NewUserHandler(userService, logger),
		Rooms:        httptransport.NewRoomHandler(roomService, logger),
		Reservations: httptransport.NewReservationHandler(reservationService, logger),
		Decisions:    httptransport.NewDecisionHandler(auditService, logger),
	})
	protected := httptransport.RequireSession(authService, logger)(router)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.EqualFold(r.URL.Path, "/sessions") && r.Method == http.MethodPost {
			router.ServeHTTP(w, r)
			return
		}
		protected.ServeHTTP(w, r)
	})

	return &testServer{handler: handler, clock: clock}
}

func (s *testServer) do(t *testing.T, method, target, token, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	recorder := httptest.NewRecorder()
	s.handler.ServeHTTP(recorder, req)
	return recorder
}

func (s *testServer) login(t *testing.T, username, password string) string {
	t.Helper()

	resp := s.do(t, http.MethodPost, "/sessions", "", fmt.Sprintf(`{"username":%q,"password":%q}`, username, password))
	if resp.Code != http.StatusCreated {
		t.Fatalf("login as %s returned %d: %s", username, resp.Code, resp.Body)
	}
	var payload struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode login response: %v", err)
	}
	if payload.Token == "" {
		t.Fatal("login response has empty token")
	}
	return payload.Token
}

func (s *testServer) createUser(t *testing.T, adminToken, username, password, role string) {
	t.Helper()

	body := fmt.Sprintf(`{"username":%q,"password":%q,"display_name":%q,"role":%q}`, username, password, username, role)
	resp := s.do(t, http.MethodPost, "/users", adminToken, body)
	if resp.Code != http.StatusCreated {
		t.Fatalf("create user %s returned %d: %s", username, resp.Code, resp.Body)
	}
}

func TestWorkflowEndToEnd(t *testing.T) {
	server := newTestServer(t)

	adminToken := server.login(t, "root", "root-password")
	server.createUser(t, adminToken, "alice", "alice-password", "member")
	server.createUser(t, adminToken, "frank", "frank-password", "approver")
	memberToken := server.login(t, "alice", "alice-password")
	approverToken := server.login(t, "frank", "frank-password")

	createBody := `{"room_name":"room1","date":"2026-03-02","start_slot":18,"end_slot":20}`
	resp := server.do(t, http.MethodPost, "/reservations", memberToken, createBody)
	if resp.Code != http.StatusCreated {
		t.Fatalf("create reservation returned %d: %s", resp.Code, resp.Body)
	}
	var created struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &created); err != nil {
		t.Fatalf("failed to decode reservation: %v", err)
	}
	if created.Status != "requested" {
		t.Errorf("new reservation status = %q, want requested", created.Status)
	}

	// An overlapping request fails while the first is still pending.
	overlapBody := `{"room_name":"room1","date":"2026-03-02","start_slot":19,"end_slot":21}`
	if resp := server.do(t, http.MethodPost, "/reservations", memberToken, overlapBody); resp.Code != http.StatusConflict {
		t.Fatalf("overlapping create returned %d, want 409", resp.Code)
	}

	// Members cannot decide.
	if resp := server.do(t, http.MethodPost, "/reservations/"+created.ID+"/approve", memberToken, ""); resp.Code != http.StatusForbidden {
		t.Fatalf("member approve returned %d, want 403", resp.Code)
	}

	resp = server.do(t, http.MethodPost, "/reservations/"+created.ID+"/approve", approverToken, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("approve returned %d: %s", resp.Code, resp.Body)
	}
	var approved struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &approved); err != nil {
		t.Fatalf("failed to decode approval: %v", err)
	}
	if approved.Status != "approved" {
		t.Errorf("approved reservation status = %q", approved.Status)
	}

	resp = server.do(t, http.MethodGet, "/reservations/"+created.ID, memberToken, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("get reservation returned %d: %s", resp.Code, resp.Body)
	}
	var fetched struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &fetched); err != nil {
		t.Fatalf("failed to decode reservation: %v", err)
	}
	if fetched.Status != "approved" {
		t.Errorf("fetched reservation status = %q, want approved", fetched.Status)
	}

	// The slot stays blocked after approval.
	if resp := server.do(t, http.MethodPost, "/reservations", memberToken, overlapBody); resp.Code != http.StatusConflict {
		t.Fatalf("create against approved returned %d, want 409", resp.Code)
	}

	// A second decision on the same reservation fails.
	if resp := server.do(t, http.MethodPost, "/reservations/"+created.ID+"/reject", approverToken, ""); resp.Code != http.StatusNotFound {
		t.Fatalf("second decision returned %d, want 404", resp.Code)
	}

	// Reject a pending reservation on a free range and verify the slot opens up.
	pendingBody := `{"room_name":"room1","date":"2026-03-02","start_slot":30,"end_slot":32}`
	resp = server.do(t, http.MethodPost, "/reservations", memberToken, pendingBody)
	if resp.Code != http.StatusCreated {
		t.Fatalf("second create returned %d: %s", resp.Code, resp.Body)
	}
	var pending struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &pending); err != nil {
		t.Fatalf("failed to decode reservation: %v", err)
	}
	if resp := server.do(t, http.MethodPost, "/reservations/"+pending.ID+"/reject", approverToken, ""); resp.Code != http.StatusOK {
		t.Fatalf("reject returned %d: %s", resp.Code, resp.Body)
	}
	if resp := server.do(t, http.MethodPost, "/reservations", memberToken, pendingBody); resp.Code != http.StatusCreated {
		t.Fatalf("create after rejection returned %d: %s", resp.Code, resp.Body)
	}

	// The ledger keeps both decisions, including the deleted rejection.
	resp = server.do(t, http.MethodGet, "/decisions", approverToken, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("list decisions returned %d: %s", resp.Code, resp.Body)
	}
	var ledger struct {
		Decisions []struct {
			ReservationID string `json:"reservation_id"`
			Outcome       string `json:"outcome"`
		} `json:"decisions"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &ledger); err != nil {
		t.Fatalf("failed to decode ledger: %v", err)
	}
	if len(ledger.Decisions) != 2 {
		t.Fatalf("ledger has %d decisions, want 2", len(ledger.Decisions))
	}
	outcomes := map[string]string{}
	for _, decision := range ledger.Decisions {
		outcomes[decision.ReservationID] = decision.Outcome
	}
	if outcomes[created.ID] != "approved" {
		t.Errorf("decision for %s = %q, want approved", created.ID, outcomes[created.ID])
	}
	if outcomes[pending.ID] != "rejected" {
		t.Errorf("decision for %s = %q, want rejected", pending.ID, outcomes[pending.ID])
	}
}

func TestCancelRespectsOwnership(t *testing.T) {
	server := newTestServer(t)

	adminToken := server.login(t, "root", "root-password")
	server.createUser(t, adminToken, "alice", "alice-password", "member")
	memberToken := server.login(t, "alice", "alice-password")

	resp := server.do(t, http.MethodPost, "/reservations", memberToken, `{"room_name":"room1","date":"2026-03-03","start_slot":10,"end_slot":12}`)
	if resp.Code != http.StatusCreated {
		t.Fatalf("create returned %d: %s", resp.Code, resp.Body)
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &created); err != nil {
		t.Fatalf("failed to decode reservation: %v", err)
	}

	// Even the admin cannot cancel someone else's reservation.
	if resp := server.do(t, http.MethodDelete, "/reservations/"+created.ID, adminToken, ""); resp.Code != http.StatusForbidden {
		t.Fatalf("foreign cancel returned %d, want 403", resp.Code)
	}
	if resp := server.do(t, http.MethodDelete, "/reservations/"+created.ID, memberToken, ""); resp.Code != http.StatusNoContent {
		t.Fatalf("owner cancel returned %d: %s", resp.Code, resp.Body)
	}
	if resp := server.do(t, http.MethodDelete, "/reservations/"+created.ID, memberToken, ""); resp.Code != http.StatusNotFound {
		t.Fatalf("repeated cancel returned %d, want 404", resp.Code)
	}

	// Cancellations leave no trace in the ledger.
	resp = server.do(t, http.MethodGet, "/decisions", adminToken, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("list decisions returned %d: %s", resp.Code, resp.Body)
	}
	var ledger struct {
		Decisions []json.RawMessage `json:"decisions"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &ledger); err != nil {
		t.Fatalf("failed to decode ledger: %v", err)
	}
	if len(ledger.Decisions) != 0 {
		t.Errorf("ledger has %d decisions after cancel, want 0", len(ledger.Decisions))
	}
}

func TestSessionLifecycleOverHTTP(t *testing.T) {
	server := newTestServer(t)

	if resp := server.do(t, http.MethodGet, "/rooms", "", ""); resp.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous request returned %d, want 401", resp.Code)
	}
	if resp := server.do(t, http.MethodPost, "/sessions", "", `{"username":"root","password":"wrong"}`); resp.Code != http.StatusUnauthorized {
		t.Fatalf("bad login returned %d, want 401", resp.Code)
	}

	token := server.login(t, "root", "root-password")
	resp := server.do(t, http.MethodGet, "/rooms", token, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("list rooms returned %d: %s", resp.Code, resp.Body)
	}
	var rooms struct {
		Rooms []struct {
			Name string `json:"name"`
		} `json:"rooms"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &rooms); err != nil {
		t.Fatalf("failed to decode rooms: %v", err)
	}
	if len(rooms.Rooms) != 1 || rooms.Rooms[0].Name != "room1" {
		t.Errorf("rooms = %+v, want the seeded room1", rooms.Rooms)
	}

	if resp := server.do(t, http.MethodDelete, "/sessions/current", token, ""); resp.Code != http.StatusNoContent {
		t.Fatalf("logout returned %d: %s", resp.Code, resp.Body)
	}
	if resp := server.do(t, http.MethodGet, "/rooms", token, ""); resp.Code != http.StatusUnauthorized {
		t.Fatalf("revoked token returned %d, want 401", resp.Code)
	}
}

func TestBootstrapIsIdempotent(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := testfixtures.NewClock(testfixtures.ReferenceTime())
	now := clock.NowFunc()
	ids := testfixtures.NewIDGenerator("seed")

	userRepo := newUserRepositoryAdapter(harness.Users)
	roomRepo := newRoomRepositoryAdapter(harness.Rooms)
	cfg := config.Config{AdminUsername: "root", AdminPassword: "root-password", DefaultRoom: "room1"}

	for i := 0; i < 2; i++ {
		if err := bootstrap(context.Background(), cfg, userRepo, roomRepo, ids.Next, now, logger); err != nil {
			t.Fatalf("bootstrap run %d failed: %v", i+1, err)
		}
	}

	users, err := userRepo.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}
	if len(users) != 1 {
		t.Fatalf("seeded %d users, want 1", len(users))
	}
	if users[0].Role != application.RoleAdmin {
		t.Errorf("seeded role = %q, want admin", users[0].Role)
	}
	rooms, err := roomRepo.ListRooms(context.Background())
	if err != nil {
		t.Fatalf("ListRooms failed: %v", err)
	}
	if len(rooms) != 1 || rooms[0].Name != "room1" {
		t.Fatalf("rooms = %+v, want the single seeded room", rooms)
	}
}

func TestRandomHex(t *testing.T) {
	first, err := randomHex(32)
	if err != nil {
		t.Fatalf("randomHex failed: %v", err)
	}
	if len(first) != 64 {
		t.Errorf("token length = %d, want 64", len(first))
	}
	second, err := randomHex(32)
	if err != nil {
		t.Fatalf("randomHex failed: %v", err)
	}
	if first == second {
		t.Error("consecutive tokens are identical")
	}
}
