package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/saglikops/checkup-tracker/internal/checkup"
	"github.com/saglikops/checkup-tracker/internal/notify"
)

type fakeStore struct {
	patients     map[string]int64
	checkups     map[int64]*checkup.Checkup
	tasks        map[int64]*checkup.Task
	checkupTasks map[int64][]int64
	staff        []checkup.Staff
	messages     []checkup.Message
	reminders    map[int64]time.Time
	nextID       int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		patients:     make(map[string]int64),
		checkups:     make(map[int64]*checkup.Checkup),
		tasks:        make(map[int64]*checkup.Task),
		checkupTasks: make(map[int64][]int64),
		reminders:    make(map[int64]time.Time),
	}
}

func (f *fakeStore) id() int64 { f.nextID++; return f.nextID }

func (f *fakeStore) FindOrCreatePatient(ctx context.Context, name, phone string) (int64, error) {
	if id, ok := f.patients[phone]; ok {
		return id, nil
	}
	id := f.id()
	f.patients[phone] = id
	return id, nil
}

func (f *fakeStore) CreateCheckup(ctx context.Context, patientID int64, packageName string, checkDate time.Time) (int64, error) {
	id := f.id()
	f.checkups[id] = &checkup.Checkup{ID: id, PatientID: patientID, PackageName: packageName, CheckDate: checkDate}
	return id, nil
}

func (f *fakeStore) AddTasks(ctx context.Context, checkupID int64, names []string) error {
	for _, name := range names {
		id := f.id()
		f.tasks[id] = &checkup.Task{ID: id, CheckupID: checkupID, Name: name, Status: checkup.StatusPending}
		f.checkupTasks[checkupID] = append(f.checkupTasks[checkupID], id)
	}
	return nil
}

func (f *fakeStore) TasksForCheckup(ctx context.Context, checkupID int64) ([]checkup.Task, error) {
	var out []checkup.Task
	for _, id := range f.checkupTasks[checkupID] {
		out = append(out, *f.tasks[id])
	}
	return out, nil
}

func (f *fakeStore) TaskByID(ctx context.Context, id int64) (*checkup.Task, error) {
	t, ok := f.tasks[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (f *fakeStore) SetTaskStatus(ctx context.Context, taskID int64, status checkup.TaskStatus) error {
	f.tasks[taskID].Status = status
	return nil
}

func (f *fakeStore) CheckupByID(ctx context.Context, id int64) (*checkup.Checkup, error) {
	c, ok := f.checkups[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (f *fakeStore) TodayCheckups(ctx context.Context, day time.Time) ([]checkup.Checkup, error) {
	var out []checkup.Checkup
	for _, c := range f.checkups {
		if c.CheckDate.Equal(day) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeStore) ScheduleReminder(ctx context.Context, checkupID int64, department string, at time.Time) (int64, error) {
	f.reminders[checkupID] = at
	return f.id(), nil
}

func (f *fakeStore) ListStaff(ctx context.Context) ([]checkup.Staff, error) {
	return f.staff, nil
}

func (f *fakeStore) CreateStaff(ctx context.Context, st checkup.Staff) (int64, error) {
	st.ID = f.id()
	f.staff = append(f.staff, st)
	return st.ID, nil
}

func (f *fakeStore) InsertMessage(ctx context.Context, direction, sender, receiver, body string) error {
	f.messages = append(f.messages, checkup.Message{Direction: direction, Sender: sender, Receiver: receiver, Body: body})
	return nil
}

func (f *fakeStore) ListMessages(ctx context.Context, limit int) ([]checkup.Message, error) {
	if len(f.messages) > limit {
		return f.messages[:limit], nil
	}
	return f.messages, nil
}

type fakeNotifier struct {
	fired  []int64
	result notify.BatchResult
}

func (f *fakeNotifier) NotifyStatusChange(ctx context.Context, checkupID int64) (notify.BatchResult, error) {
	f.fired = append(f.fired, checkupID)
	return f.result, nil
}

type okSender struct {
	sent []string
	err  error
}

func (s *okSender) Send(ctx context.Context, to, body string) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, to)
	return nil
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		t.Fatalf("encode body: %v", err)
	}
	return &buf
}

func TestCreateCheckup(t *testing.T) {
	store := newFakeStore()
	h := NewAdminHandler(store, nil, nil, nil, time.UTC, nil)

	w := httptest.NewRecorder()
	h.CreateCheckup(w, httptest.NewRequest(http.MethodPost, "/admin/checkups", jsonBody(t, createCheckupRequest{
		Name: "Ayşe Yılmaz", Phone: "+905551112233", PackageName: "VIP", CheckDate: "2025-01-10",
	})))

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp createCheckupResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.TaskCount != len(checkup.DefaultTasks()) {
		t.Fatalf("task count = %d, want default list size", resp.TaskCount)
	}
	if len(store.checkupTasks[resp.CheckupID]) != resp.TaskCount {
		t.Fatal("tasks not attached")
	}
}

func TestCreateCheckupCustomTaskList(t *testing.T) {
	store := newFakeStore()
	h := NewAdminHandler(store, nil, nil, nil, time.UTC, nil)

	w := httptest.NewRecorder()
	h.CreateCheckup(w, httptest.NewRequest(http.MethodPost, "/admin/checkups", jsonBody(t, createCheckupRequest{
		Name: "Ali Kaya", Phone: "+905551112244", CheckDate: "2025-01-10", Tasks: []string{"MR", "Kardiyoloji"},
	})))

	var resp createCheckupResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.TaskCount != 2 {
		t.Fatalf("task count = %d, want 2", resp.TaskCount)
	}
}

func TestCreateCheckupBadDate(t *testing.T) {
	h := NewAdminHandler(newFakeStore(), nil, nil, nil, time.UTC, nil)
	w := httptest.NewRecorder()
	h.CreateCheckup(w, httptest.NewRequest(http.MethodPost, "/admin/checkups", jsonBody(t, createCheckupRequest{
		Name: "Ali Kaya", Phone: "+905551112244", CheckDate: "10.01.2025",
	})))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestToggleTaskFiresBroadcastBothDirections(t *testing.T) {
	store := newFakeStore()
	store.checkups[1] = &checkup.Checkup{ID: 1, PatientName: "Ayşe Yılmaz"}
	store.tasks[2] = &checkup.Task{ID: 2, CheckupID: 1, Name: "EKG", Status: checkup.StatusPending}
	notifier := &fakeNotifier{result: notify.BatchResult{Sent: 2}}
	h := NewAdminHandler(store, nil, notifier, nil, time.UTC, nil)

	toggle := func() toggleResponse {
		w := httptest.NewRecorder()
		r := withURLParam(httptest.NewRequest(http.MethodPost, "/admin/tasks/2/toggle", nil), "id", "2")
		h.ToggleTask(w, r)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
		}
		var resp toggleResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		return resp
	}

	resp := toggle()
	if resp.Task.Status != checkup.StatusDone || resp.Broadcast.Sent != 2 {
		t.Fatalf("unexpected toggle response: %+v", resp)
	}

	resp = toggle()
	if resp.Task.Status != checkup.StatusPending {
		t.Fatalf("second toggle should undo, got %+v", resp.Task)
	}
	if len(notifier.fired) != 2 {
		t.Fatalf("broadcast must fire on every toggle, got %d", len(notifier.fired))
	}
}

func TestToggleTaskNotFound(t *testing.T) {
	h := NewAdminHandler(newFakeStore(), nil, &fakeNotifier{}, nil, time.UTC, nil)
	w := httptest.NewRecorder()
	h.ToggleTask(w, withURLParam(httptest.NewRequest(http.MethodPost, "/admin/tasks/99/toggle", nil), "id", "99"))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestNotifyCheckup(t *testing.T) {
	store := newFakeStore()
	store.checkups[1] = &checkup.Checkup{ID: 1}
	notifier := &fakeNotifier{result: notify.BatchResult{Sent: 3, Failed: 1}}
	h := NewAdminHandler(store, nil, notifier, nil, time.UTC, nil)

	w := httptest.NewRecorder()
	h.NotifyCheckup(w, withURLParam(httptest.NewRequest(http.MethodPost, "/admin/checkups/1/notify", nil), "id", "1"))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var result notify.BatchResult
	_ = json.Unmarshal(w.Body.Bytes(), &result)
	if result.Sent != 3 || result.Failed != 1 {
		t.Fatalf("unexpected batch result: %+v", result)
	}

	w = httptest.NewRecorder()
	h.NotifyCheckup(w, withURLParam(httptest.NewRequest(http.MethodPost, "/admin/checkups/9/notify", nil), "id", "9"))
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing checkup status = %d, want 404", w.Code)
	}
}

func TestSetReminder(t *testing.T) {
	store := newFakeStore()
	store.checkups[1] = &checkup.Checkup{ID: 1}
	h := NewAdminHandler(store, nil, nil, nil, time.UTC, nil)

	w := httptest.NewRecorder()
	r := withURLParam(httptest.NewRequest(http.MethodPut, "/admin/checkups/1/reminder", jsonBody(t, setReminderRequest{
		Department: "Kardiyoloji", ScheduledAt: "2025-01-10T09:00:00Z",
	})), "id", "1")
	h.SetReminder(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if _, ok := store.reminders[1]; !ok {
		t.Fatal("reminder not scheduled")
	}
}

func TestSetReminderBadTimestamp(t *testing.T) {
	store := newFakeStore()
	store.checkups[1] = &checkup.Checkup{ID: 1}
	h := NewAdminHandler(store, nil, nil, nil, time.UTC, nil)

	w := httptest.NewRecorder()
	r := withURLParam(httptest.NewRequest(http.MethodPut, "/admin/checkups/1/reminder", jsonBody(t, setReminderRequest{
		ScheduledAt: "tomorrow at nine",
	})), "id", "1")
	h.SetReminder(w, r)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestCreateStaffDefaultsActive(t *testing.T) {
	store := newFakeStore()
	h := NewAdminHandler(store, nil, nil, nil, time.UTC, nil)

	w := httptest.NewRecorder()
	h.CreateStaff(w, httptest.NewRequest(http.MethodPost, "/admin/staff", jsonBody(t, createStaffRequest{
		Name: "Dr. Deniz", Phone: "+905550001122",
	})))
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d", w.Code)
	}
	if len(store.staff) != 1 || !store.staff[0].Active {
		t.Fatalf("staff should default to active: %+v", store.staff)
	}
}

func TestSendMessageLogsOutbound(t *testing.T) {
	store := newFakeStore()
	sender := &okSender{}
	h := NewAdminHandler(store, nil, nil, sender, time.UTC, nil)

	w := httptest.NewRecorder()
	h.SendMessage(w, httptest.NewRequest(http.MethodPost, "/admin/messages", jsonBody(t, sendMessageRequest{
		To: "+905551112233", Body: "Yarın 09:00'da bekliyoruz.",
	})))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if len(sender.sent) != 1 {
		t.Fatal("message not sent")
	}
	if len(store.messages) != 1 || store.messages[0].Direction != checkup.DirectionOutbound {
		t.Fatalf("outbound message not logged: %+v", store.messages)
	}
}

func TestListMessagesRejectsBadLimit(t *testing.T) {
	h := NewAdminHandler(newFakeStore(), nil, nil, nil, time.UTC, nil)
	w := httptest.NewRecorder()
	h.ListMessages(w, httptest.NewRequest(http.MethodGet, "/admin/messages?limit=-1", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestTodayBoard(t *testing.T) {
	store := newFakeStore()
	today := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	store.checkups[1] = &checkup.Checkup{ID: 1, PatientName: "Ayşe Yılmaz", CheckDate: today}
	store.checkups[2] = &checkup.Checkup{ID: 2, PatientName: "Ali Kaya", CheckDate: today.AddDate(0, 0, 1)}
	store.tasks[3] = &checkup.Task{ID: 3, CheckupID: 1, Name: "EKG", Status: checkup.StatusPending}
	store.checkupTasks[1] = []int64{3}

	h := NewAdminHandler(store, nil, nil, nil, time.UTC, nil)
	h.now = func() time.Time { return time.Date(2025, 1, 10, 14, 0, 0, 0, time.UTC) }

	w := httptest.NewRecorder()
	h.TodayBoard(w, httptest.NewRequest(http.MethodGet, "/admin/checkups/today", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var board []boardEntry
	if err := json.Unmarshal(w.Body.Bytes(), &board); err != nil {
		t.Fatalf("decode board: %v", err)
	}
	if len(board) != 1 || board[0].Checkup.ID != 1 || len(board[0].Tasks) != 1 {
		t.Fatalf("unexpected board: %+v", board)
	}
}
