package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mohamdbadhe/campus-hub/internal/config"
	"github.com/mohamdbadhe/campus-hub/internal/db"
	internalhttp "github.com/mohamdbadhe/campus-hub/internal/http"
	"github.com/mohamdbadhe/campus-hub/internal/model"
	"github.com/mohamdbadhe/campus-hub/internal/repository"
)

// openTestDB migrates and wipes the test database, then serves the full
// router over httptest. Skips unless FACILITIES_TEST_DB (or
// DATABASE_URL) points at a disposable database.
func openTestDB(t *testing.T) (string, *repository.Store) {
	t.Helper()
	dsn := os.Getenv("FACILITIES_TEST_DB")
	if dsn == "" {
		dsn = os.Getenv("DATABASE_URL")
	}
	if dsn == "" {
		t.Skip("set FACILITIES_TEST_DB to run integration tests")
	}

	if err := db.Migrate(dsn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	pool, err := db.NewPool(context.Background(), dsn)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	t.Cleanup(pool.Close)

	_, err = pool.Exec(context.Background(), `
		TRUNCATE users, profiles, role_requests, libraries, labs, classrooms,
		         resource_update_requests, fault_reports, room_requests CASCADE
	`)
	if err != nil {
		t.Fatalf("truncate: %v", err)
	}

	cfg := config.Config{
		JWTSecret:     "integration-test-secret",
		JWTIssuer:     "campus-hub",
		TokenTTL:      time.Hour,
		StatsCacheTTL: time.Second,
	}
	store := repository.NewStore(pool)
	ts := httptest.NewServer(internalhttp.NewServer(cfg, store, nil).Router())
	t.Cleanup(ts.Close)
	return ts.URL, store
}

func doReq(t *testing.T, method, url, token string, payload any) (int, []byte) {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, raw
}

// mustToken registers the account, falling back to login when it
// already exists.
func mustToken(t *testing.T, baseURL, email, password string) string {
	t.Helper()
	creds := map[string]string{"email": email, "password": password}
	status, body := doReq(t, http.MethodPost, baseURL+"/register", "", creds)
	if status == http.StatusBadRequest {
		status, body = doReq(t, http.MethodPost, baseURL+"/login", "", creds)
	}
	if status != http.StatusCreated && status != http.StatusOK {
		t.Fatalf("auth failed with status %d: %s", status, body)
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &resp); err != nil || resp.Token == "" {
		t.Fatalf("no token in response: %s", body)
	}
	return resp.Token
}

// setRole promotes an account directly through the store, the way the
// seed tool bootstraps privileged users.
func setRole(t *testing.T, store *repository.Store, email string, role model.Role) {
	t.Helper()
	ctx := context.Background()
	user, err := store.GetUserByEmail(ctx, email)
	if err != nil {
		t.Fatalf("get user %s: %v", email, err)
	}
	if _, err := store.GetProfile(ctx, user.ID); err != nil {
		t.Fatalf("get profile %s: %v", email, err)
	}
	if err := store.UpdateProfileRole(ctx, user.ID, role, nil, time.Now().UTC()); err != nil {
		t.Fatalf("set role %s: %v", email, err)
	}
}

func userID(t *testing.T, store *repository.Store, email string) string {
	t.Helper()
	user, err := store.GetUserByEmail(context.Background(), email)
	if err != nil {
		t.Fatalf("get user %s: %v", email, err)
	}
	return user.ID
}

func decodeInto(t *testing.T, raw []byte, out any) {
	t.Helper()
	if err := json.Unmarshal(raw, out); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
}

func TestRegisterLoginAndMe(t *testing.T) {
	baseURL, _ := openTestDB(t)

	token := mustToken(t, baseURL, "alice@campus.edu", "secret123")

	status, body := doReq(t, http.MethodGet, baseURL+"/me", token, nil)
	if status != http.StatusOK {
		t.Fatalf("me status %d: %s", status, body)
	}
	var me struct {
		User struct {
			Email string `json:"email"`
			Role  string `json:"role"`
		} `json:"user"`
		PendingRequest bool `json:"pending_request"`
	}
	decodeInto(t, body, &me)
	if me.User.Email != "alice@campus.edu" || me.User.Role != "student" {
		t.Fatalf("unexpected me payload: %s", body)
	}
	if me.PendingRequest {
		t.Fatalf("expected no pending request for a fresh account: %s", body)
	}

	// Duplicate registration is rejected.
	status, _ = doReq(t, http.MethodPost, baseURL+"/register", "", map[string]string{
		"email": "alice@campus.edu", "password": "other",
	})
	if status != http.StatusBadRequest {
		t.Fatalf("expected duplicate register to fail, got %d", status)
	}

	// Wrong password.
	status, _ = doReq(t, http.MethodPost, baseURL+"/login", "", map[string]string{
		"email": "alice@campus.edu", "password": "wrong",
	})
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401 on bad credentials, got %d", status)
	}

	// No token.
	status, _ = doReq(t, http.MethodGet, baseURL+"/me", "", nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", status)
	}
}

func TestRoleElevationWorkflow(t *testing.T) {
	baseURL, store := openTestDB(t)

	token := mustToken(t, baseURL, "bob@campus.edu", "secret123")
	adminToken := mustToken(t, baseURL, "admin@campus.edu", "admin123")
	setRole(t, store, "admin@campus.edu", model.RoleAdmin)

	// Manager elevation needs approval; role stays student.
	status, body := doReq(t, http.MethodPost, baseURL+"/role", token, map[string]string{"role": "manager"})
	if status != http.StatusOK {
		t.Fatalf("role request status %d: %s", status, body)
	}
	var roleResp struct {
		PendingRequest bool   `json:"pending_request"`
		RequestID      string `json:"request_id"`
		Role           string `json:"role"`
	}
	decodeInto(t, body, &roleResp)
	if !roleResp.PendingRequest || roleResp.RequestID == "" || roleResp.Role != "student" {
		t.Fatalf("unexpected role response: %s", body)
	}

	// Repeating the request dedupes onto the same pending entry.
	status, body = doReq(t, http.MethodPost, baseURL+"/role", token, map[string]string{"role": "manager"})
	if status != http.StatusOK {
		t.Fatalf("repeat role request status %d", status)
	}
	var repeat struct {
		RequestID string `json:"request_id"`
	}
	decodeInto(t, body, &repeat)
	if repeat.RequestID != roleResp.RequestID {
		t.Fatalf("expected deduped request, got %s vs %s", repeat.RequestID, roleResp.RequestID)
	}

	// Admin approves; the profile follows.
	status, body = doReq(t, http.MethodPost, baseURL+"/admin/role-requests/"+roleResp.RequestID+"/approve", adminToken, nil)
	if status != http.StatusOK {
		t.Fatalf("approve status %d: %s", status, body)
	}
	status, body = doReq(t, http.MethodGet, baseURL+"/me", token, nil)
	if status != http.StatusOK {
		t.Fatalf("me status %d", status)
	}
	var me struct {
		User struct {
			Role string `json:"role"`
		} `json:"user"`
	}
	decodeInto(t, body, &me)
	if me.User.Role != "manager" {
		t.Fatalf("expected manager after approval, got %s", me.User.Role)
	}

	// A resolved request cannot be resolved again.
	status, body = doReq(t, http.MethodPost, baseURL+"/admin/role-requests/"+roleResp.RequestID+"/approve", adminToken, nil)
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 on double approve, got %d: %s", status, body)
	}

	// Invalid role name.
	status, _ = doReq(t, http.MethodPost, baseURL+"/role", token, map[string]string{"role": "admin"})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for admin self-service, got %d", status)
	}

	// Non-admin cannot list role requests.
	status, _ = doReq(t, http.MethodGet, baseURL+"/admin/role-requests", token, nil)
	if status != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin, got %d", status)
	}

	// manager_type on a non-manager elevation is dropped.
	carolToken := mustToken(t, baseURL, "carol@campus.edu", "secret123")
	status, body = doReq(t, http.MethodPost, baseURL+"/role", carolToken, map[string]any{
		"role": "lecturer", "manager_type": "facilities",
	})
	if status != http.StatusOK {
		t.Fatalf("lecturer request status %d: %s", status, body)
	}
	var carolReq struct {
		RequestID string `json:"request_id"`
	}
	decodeInto(t, body, &carolReq)
	status, _ = doReq(t, http.MethodPost, baseURL+"/admin/role-requests/"+carolReq.RequestID+"/approve", adminToken, nil)
	if status != http.StatusOK {
		t.Fatalf("approve lecturer status %d", status)
	}
	status, body = doReq(t, http.MethodGet, baseURL+"/me", carolToken, nil)
	if status != http.StatusOK {
		t.Fatalf("me status %d", status)
	}
	var carolMe struct {
		User struct {
			Role        string  `json:"role"`
			ManagerType *string `json:"manager_type"`
		} `json:"user"`
	}
	decodeInto(t, body, &carolMe)
	if carolMe.User.Role != "lecturer" || carolMe.User.ManagerType != nil {
		t.Fatalf("expected lecturer without manager_type: %s", body)
	}

	// The admin path is a pure no-op, department included.
	status, body = doReq(t, http.MethodPost, baseURL+"/role", adminToken, map[string]any{
		"role": "student", "department": "Operations",
	})
	if status != http.StatusOK {
		t.Fatalf("admin role post status %d: %s", status, body)
	}
	var adminResp struct {
		Message string `json:"message"`
	}
	decodeInto(t, body, &adminResp)
	if adminResp.Message != "Admin role cannot be changed" {
		t.Fatalf("unexpected admin response: %s", body)
	}
	status, body = doReq(t, http.MethodGet, baseURL+"/me", adminToken, nil)
	if status != http.StatusOK {
		t.Fatalf("admin me status %d", status)
	}
	var adminMe struct {
		User struct {
			Role       string `json:"role"`
			Department string `json:"department"`
		} `json:"user"`
	}
	decodeInto(t, body, &adminMe)
	if adminMe.User.Role != "admin" || adminMe.User.Department != "" {
		t.Fatalf("expected untouched admin profile: %s", body)
	}
}

func TestLabUpdateApprovalWorkflow(t *testing.T) {
	baseURL, store := openTestDB(t)

	studentToken := mustToken(t, baseURL, "student@campus.edu", "secret123")
	managerToken := mustToken(t, baseURL, "manager@campus.edu", "secret123")
	setRole(t, store, "manager@campus.edu", model.RoleManager)

	// Students cannot create labs.
	status, _ := doReq(t, http.MethodPost, baseURL+"/labs", studentToken, map[string]any{
		"building": "B1", "room_number": "101",
	})
	if status != http.StatusForbidden {
		t.Fatalf("expected 403 for student create, got %d", status)
	}

	status, body := doReq(t, http.MethodPost, baseURL+"/labs", managerToken, map[string]any{
		"building": "B1", "room_number": "101",
	})
	if status != http.StatusCreated {
		t.Fatalf("create lab status %d: %s", status, body)
	}
	var created struct {
		Lab struct {
			ID          string `json:"id"`
			Name        string `json:"name"`
			MaxCapacity int    `json:"max_capacity"`
		} `json:"lab"`
	}
	decodeInto(t, body, &created)
	if created.Lab.Name != "Lab 101" || created.Lab.MaxCapacity != 30 {
		t.Fatalf("unexpected lab defaults: %s", body)
	}

	// Duplicate room in the same building.
	status, _ = doReq(t, http.MethodPost, baseURL+"/labs", managerToken, map[string]any{
		"building": "B1", "room_number": "101",
	})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 on duplicate lab, got %d", status)
	}

	// Empty update.
	status, _ = doReq(t, http.MethodPost, baseURL+"/lab/"+created.Lab.ID+"/update", studentToken, map[string]any{})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 on empty update, got %d", status)
	}

	// Student update goes pending and echoes the unchanged lab.
	status, body = doReq(t, http.MethodPost, baseURL+"/lab/"+created.Lab.ID+"/update", studentToken, map[string]any{
		"current_occupancy": 10,
	})
	if status != http.StatusOK {
		t.Fatalf("student update status %d: %s", status, body)
	}
	var pending struct {
		RequestID string `json:"request_id"`
		Status    string `json:"status"`
		Lab       struct {
			CurrentOccupancy int `json:"current_occupancy"`
		} `json:"lab"`
	}
	decodeInto(t, body, &pending)
	if pending.Status != "pending" || pending.Lab.CurrentOccupancy != 0 {
		t.Fatalf("expected pending request with unchanged lab: %s", body)
	}

	// The pending queue shows it. A request whose resource has vanished
	// is neither listed nor counted.
	occupancy := 5
	err := store.CreateUpdateRequest(context.Background(), model.UpdateRequest{
		ID:                 uuid.NewString(),
		ResourceKind:       model.KindLab,
		ResourceID:         uuid.NewString(),
		RequestedBy:        userID(t, store, "student@campus.edu"),
		RequestedOccupancy: &occupancy,
		Status:             model.StatusPending,
		RequestedAt:        time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("create orphan request: %v", err)
	}
	status, body = doReq(t, http.MethodGet, baseURL+"/updates/pending", managerToken, nil)
	if status != http.StatusOK {
		t.Fatalf("pending list status %d", status)
	}
	var queue struct {
		Labs         []json.RawMessage `json:"labs"`
		TotalPending int               `json:"total_pending"`
	}
	decodeInto(t, body, &queue)
	if queue.TotalPending != 1 || len(queue.Labs) != 1 {
		t.Fatalf("expected 1 listed pending update, got count %d with %d labs", queue.TotalPending, len(queue.Labs))
	}

	// Approval applies the requested occupancy and nothing else.
	status, body = doReq(t, http.MethodPost, baseURL+"/updates/lab/"+pending.RequestID+"/approve", managerToken, nil)
	if status != http.StatusOK {
		t.Fatalf("approve status %d: %s", status, body)
	}
	var approved struct {
		Lab struct {
			CurrentOccupancy int  `json:"current_occupancy"`
			IsAvailable      bool `json:"is_available"`
		} `json:"lab"`
	}
	decodeInto(t, body, &approved)
	if approved.Lab.CurrentOccupancy != 10 {
		t.Fatalf("expected occupancy 10 after approval, got %d", approved.Lab.CurrentOccupancy)
	}
	if !approved.Lab.IsAvailable {
		t.Fatalf("expected availability untouched by an occupancy-only approval: %s", body)
	}

	// Resolution is terminal.
	status, body = doReq(t, http.MethodPost, baseURL+"/updates/lab/"+pending.RequestID+"/approve", managerToken, nil)
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 on double approve, got %d: %s", status, body)
	}

	// Manager updates apply immediately.
	status, body = doReq(t, http.MethodPost, baseURL+"/lab/"+created.Lab.ID+"/update", managerToken, map[string]any{
		"is_available": false,
	})
	if status != http.StatusOK {
		t.Fatalf("manager update status %d: %s", status, body)
	}
	var direct struct {
		Lab struct {
			IsAvailable bool `json:"is_available"`
		} `json:"lab"`
	}
	decodeInto(t, body, &direct)
	if direct.Lab.IsAvailable {
		t.Fatalf("expected lab to be unavailable after direct update")
	}
}

func TestLibraryLookupAndUpdate(t *testing.T) {
	baseURL, store := openTestDB(t)

	managerToken := mustToken(t, baseURL, "manager@campus.edu", "secret123")
	setRole(t, store, "manager@campus.edu", model.RoleManager)

	status, _ := doReq(t, http.MethodGet, baseURL+"/library?name=Main%20Library", "", nil)
	if status != http.StatusNotFound {
		t.Fatalf("expected 404 for missing library, got %d", status)
	}

	status, body := doReq(t, http.MethodPost, baseURL+"/libraries", managerToken, map[string]any{
		"name": "Main Library", "max_capacity": 100,
	})
	if status != http.StatusCreated {
		t.Fatalf("create library status %d: %s", status, body)
	}

	status, _ = doReq(t, http.MethodPost, baseURL+"/libraries", managerToken, map[string]any{
		"name": "Annex", "max_capacity": 0,
	})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for zero capacity, got %d", status)
	}

	status, body = doReq(t, http.MethodGet, baseURL+"/library?name=Main%20Library", "", nil)
	if status != http.StatusOK {
		t.Fatalf("library lookup status %d", status)
	}
	var library struct {
		ID                  string  `json:"id"`
		OccupancyPercentage float64 `json:"occupancy_percentage"`
	}
	decodeInto(t, body, &library)
	if library.OccupancyPercentage != 0 {
		t.Fatalf("expected empty library, got %v%%", library.OccupancyPercentage)
	}

	// Manager updates by name through the legacy path.
	status, body = doReq(t, http.MethodPost, baseURL+"/library/update", managerToken, map[string]any{
		"name": "Main Library", "current_occupancy": 25,
	})
	if status != http.StatusOK {
		t.Fatalf("library update status %d: %s", status, body)
	}
	var updated struct {
		Library struct {
			CurrentOccupancy    int     `json:"current_occupancy"`
			OccupancyPercentage float64 `json:"occupancy_percentage"`
		} `json:"library"`
	}
	decodeInto(t, body, &updated)
	if updated.Library.CurrentOccupancy != 25 || updated.Library.OccupancyPercentage != 25 {
		t.Fatalf("unexpected library state: %s", body)
	}
}

func TestRoomBookingWorkflow(t *testing.T) {
	baseURL, store := openTestDB(t)

	lecturerToken := mustToken(t, baseURL, "lecturer@campus.edu", "secret123")
	managerToken := mustToken(t, baseURL, "manager@campus.edu", "secret123")
	setRole(t, store, "lecturer@campus.edu", model.RoleLecturer)
	setRole(t, store, "manager@campus.edu", model.RoleManager)

	status, body := doReq(t, http.MethodPost, baseURL+"/classrooms", managerToken, map[string]any{
		"building": "C2", "room_number": "204",
	})
	if status != http.StatusCreated {
		t.Fatalf("create classroom status %d: %s", status, body)
	}
	var created struct {
		Classroom struct {
			ID string `json:"id"`
		} `json:"classroom"`
	}
	decodeInto(t, body, &created)

	// Managers cannot file bookings.
	status, _ = doReq(t, http.MethodPost, baseURL+"/room-requests", managerToken, map[string]any{
		"room_type": "classroom", "purpose": "exam", "date": "2026-09-10",
		"start_time": "10:00", "end_time": "12:00",
	})
	if status != http.StatusForbidden {
		t.Fatalf("expected 403 for manager booking, got %d", status)
	}

	// Bad date format.
	status, _ = doReq(t, http.MethodPost, baseURL+"/room-requests", lecturerToken, map[string]any{
		"room_type": "classroom", "purpose": "exam", "date": "10/09/2026",
		"start_time": "10:00", "end_time": "12:00",
	})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad date, got %d", status)
	}

	status, body = doReq(t, http.MethodPost, baseURL+"/room-requests", lecturerToken, map[string]any{
		"room_type": "classroom", "purpose": "exam", "date": "2026-09-10",
		"start_time": "10:00", "end_time": "12:00", "expected_attendees": 40,
	})
	if status != http.StatusCreated {
		t.Fatalf("create booking status %d: %s", status, body)
	}
	var booking struct {
		Request struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"request"`
	}
	decodeInto(t, body, &booking)
	if booking.Request.Status != "pending" {
		t.Fatalf("expected pending booking: %s", body)
	}

	// Approval requires a room id.
	status, _ = doReq(t, http.MethodPost, baseURL+"/room-requests/"+booking.Request.ID+"/approve", managerToken, map[string]any{})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 without room_id, got %d", status)
	}

	status, body = doReq(t, http.MethodPost, baseURL+"/room-requests/"+booking.Request.ID+"/approve", managerToken, map[string]any{
		"room_id": created.Classroom.ID,
	})
	if status != http.StatusOK {
		t.Fatalf("approve booking status %d: %s", status, body)
	}
	var approved struct {
		Request struct {
			Status       string `json:"status"`
			AssignedRoom *struct {
				ID string `json:"id"`
			} `json:"assigned_room"`
		} `json:"request"`
	}
	decodeInto(t, body, &approved)
	if approved.Request.Status != "approved" || approved.Request.AssignedRoom == nil || approved.Request.AssignedRoom.ID != created.Classroom.ID {
		t.Fatalf("unexpected approval payload: %s", body)
	}

	// The room is now held.
	status, body = doReq(t, http.MethodGet, baseURL+"/classrooms", "", nil)
	if status != http.StatusOK {
		t.Fatalf("list classrooms status %d", status)
	}
	var rooms struct {
		Classrooms []struct {
			ID          string `json:"id"`
			IsAvailable bool   `json:"is_available"`
		} `json:"classrooms"`
	}
	decodeInto(t, body, &rooms)
	if len(rooms.Classrooms) != 1 || rooms.Classrooms[0].IsAvailable {
		t.Fatalf("expected booked classroom to be unavailable: %s", body)
	}

	// Terminal resolution.
	status, _ = doReq(t, http.MethodPost, baseURL+"/room-requests/"+booking.Request.ID+"/approve", managerToken, map[string]any{
		"room_id": created.Classroom.ID,
	})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 on double approve, got %d", status)
	}

	// A second booking against the held room is refused.
	status, body = doReq(t, http.MethodPost, baseURL+"/room-requests", lecturerToken, map[string]any{
		"room_type": "classroom", "purpose": "lecture", "date": "2026-09-11",
		"start_time": "09:00", "end_time": "10:00",
	})
	if status != http.StatusCreated {
		t.Fatalf("second booking status %d", status)
	}
	var second struct {
		Request struct {
			ID string `json:"id"`
		} `json:"request"`
	}
	decodeInto(t, body, &second)
	status, body = doReq(t, http.MethodPost, baseURL+"/room-requests/"+second.Request.ID+"/approve", managerToken, map[string]any{
		"room_id": created.Classroom.ID,
	})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for unavailable room, got %d: %s", status, body)
	}

	// Releasing past bookings frees the room again.
	released, err := store.ReleaseExpiredRooms(context.Background(), time.Date(2026, 9, 12, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if released != 1 {
		t.Fatalf("expected 1 released room, got %d", released)
	}
}

func TestFaultLifecycle(t *testing.T) {
	baseURL, store := openTestDB(t)

	studentToken := mustToken(t, baseURL, "student@campus.edu", "secret123")
	otherToken := mustToken(t, baseURL, "other@campus.edu", "secret123")
	managerToken := mustToken(t, baseURL, "manager@campus.edu", "secret123")
	setRole(t, store, "manager@campus.edu", model.RoleManager)

	status, _ := doReq(t, http.MethodPost, baseURL+"/faults", studentToken, map[string]any{
		"description": "no title",
	})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 without title, got %d", status)
	}
	status, _ = doReq(t, http.MethodPost, baseURL+"/faults", studentToken, map[string]any{
		"title": "Broken projector", "severity": "catastrophic",
	})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad severity, got %d", status)
	}

	status, body := doReq(t, http.MethodPost, baseURL+"/faults", studentToken, map[string]any{
		"title": "Broken projector", "category": "projector", "building": "B1", "room_number": "101",
	})
	if status != http.StatusCreated {
		t.Fatalf("create fault status %d: %s", status, body)
	}
	var created struct {
		Fault struct {
			ID       string `json:"id"`
			Severity string `json:"severity"`
			Status   string `json:"status"`
		} `json:"fault"`
	}
	decodeInto(t, body, &created)
	if created.Fault.Severity != "medium" || created.Fault.Status != "open" {
		t.Fatalf("unexpected fault defaults: %s", body)
	}

	// Other students cannot read it; the reporter and managers can.
	status, _ = doReq(t, http.MethodGet, baseURL+"/faults/"+created.Fault.ID, otherToken, nil)
	if status != http.StatusForbidden {
		t.Fatalf("expected 403 for other student, got %d", status)
	}
	status, _ = doReq(t, http.MethodGet, baseURL+"/faults/"+created.Fault.ID, studentToken, nil)
	if status != http.StatusOK {
		t.Fatalf("expected reporter access, got %d", status)
	}

	// Students cannot patch.
	status, _ = doReq(t, http.MethodPatch, baseURL+"/faults/"+created.Fault.ID, studentToken, map[string]any{
		"status": "resolved",
	})
	if status != http.StatusForbidden {
		t.Fatalf("expected 403 for student patch, got %d", status)
	}

	status, body = doReq(t, http.MethodPatch, baseURL+"/faults/"+created.Fault.ID, managerToken, map[string]any{
		"status": "resolved", "resolution_notes": "replaced bulb",
	})
	if status != http.StatusOK {
		t.Fatalf("patch status %d: %s", status, body)
	}
	var patched struct {
		Fault struct {
			Status     string  `json:"status"`
			ResolvedAt *string `json:"resolved_at"`
		} `json:"fault"`
	}
	decodeInto(t, body, &patched)
	if patched.Fault.Status != "resolved" || patched.Fault.ResolvedAt == nil {
		t.Fatalf("expected resolved with timestamp: %s", body)
	}
	firstResolvedAt := *patched.Fault.ResolvedAt

	// resolved_at is never re-stamped.
	status, body = doReq(t, http.MethodPatch, baseURL+"/faults/"+created.Fault.ID, managerToken, map[string]any{
		"status": "closed",
	})
	if status != http.StatusOK {
		t.Fatalf("second patch status %d", status)
	}
	decodeInto(t, body, &patched)
	if patched.Fault.ResolvedAt == nil || *patched.Fault.ResolvedAt != firstResolvedAt {
		t.Fatalf("expected resolved_at to stay %s, got %v", firstResolvedAt, patched.Fault.ResolvedAt)
	}

	// Listing scope: manager sees all, the other student sees none.
	status, body = doReq(t, http.MethodGet, baseURL+"/faults", managerToken, nil)
	if status != http.StatusOK {
		t.Fatalf("manager list status %d", status)
	}
	var managerList struct {
		Count int `json:"count"`
	}
	decodeInto(t, body, &managerList)
	if managerList.Count != 1 {
		t.Fatalf("expected manager to see 1 fault, got %d", managerList.Count)
	}
	status, body = doReq(t, http.MethodGet, baseURL+"/faults", otherToken, nil)
	if status != http.StatusOK {
		t.Fatalf("other list status %d", status)
	}
	var otherList struct {
		Count int `json:"count"`
	}
	decodeInto(t, body, &otherList)
	if otherList.Count != 0 {
		t.Fatalf("expected other student to see 0 faults, got %d", otherList.Count)
	}
}

func TestAdminStats(t *testing.T) {
	baseURL, store := openTestDB(t)

	adminToken := mustToken(t, baseURL, "admin@campus.edu", "admin123")
	setRole(t, store, "admin@campus.edu", model.RoleAdmin)
	studentToken := mustToken(t, baseURL, "student@campus.edu", "secret123")

	status, _ := doReq(t, http.MethodPost, baseURL+"/faults", studentToken, map[string]any{
		"title": "Flickering lights", "category": "lighting",
	})
	if status != http.StatusCreated {
		t.Fatalf("create fault status %d", status)
	}
	status, _ = doReq(t, http.MethodPost, baseURL+"/role", studentToken, map[string]string{"role": "lecturer"})
	if status != http.StatusOK {
		t.Fatalf("role request status %d", status)
	}

	status, body := doReq(t, http.MethodGet, baseURL+"/admin/stats", adminToken, nil)
	if status != http.StatusOK {
		t.Fatalf("stats status %d: %s", status, body)
	}
	var stats struct {
		TotalUsers          int `json:"total_users"`
		Students            int `json:"students"`
		Admins              int `json:"admins"`
		PendingRoleRequests int `json:"pending_role_requests"`
		TotalFaults         int `json:"total_faults"`
		OpenFaults          int `json:"open_faults"`
	}
	decodeInto(t, body, &stats)
	if stats.TotalUsers != 2 || stats.Students != 1 || stats.Admins != 1 {
		t.Fatalf("unexpected user counts: %s", body)
	}
	if stats.PendingRoleRequests != 1 || stats.TotalFaults != 1 || stats.OpenFaults != 1 {
		t.Fatalf("unexpected activity counts: %s", body)
	}

	status, _ = doReq(t, http.MethodGet, baseURL+"/admin/stats", studentToken, nil)
	if status != http.StatusForbidden {
		t.Fatalf("expected 403 for student stats, got %d", status)
	}

	status, body = doReq(t, http.MethodGet, baseURL+"/admin/users", adminToken, nil)
	if status != http.StatusOK {
		t.Fatalf("users status %d", status)
	}
	var users struct {
		Count int `json:"count"`
	}
	decodeInto(t, body, &users)
	if users.Count != 2 {
		t.Fatalf("expected 2 users, got %d", users.Count)
	}
}
