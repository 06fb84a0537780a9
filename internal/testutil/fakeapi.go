// Package testutil provides an in-memory stand-in for the habit tracker backend.
package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"

	"github.com/julianstephens/habitual/internal/constants"
	"github.com/julianstephens/habitual/internal/models"
)

const fakeSecret = "habitual-test-secret"

type ctxKey struct{}

type fakeUser struct {
	profile  models.UserProfile
	password string
}

type failure struct {
	status    int
	detail    string
	transport bool
}

// FakeAPI serves the backend endpoints from memory. Tokens are real HS256 JWTs
// with "sub" and "exp" claims.
type FakeAPI struct {
	Server *httptest.Server

	auth *jwtauth.JWTAuth

	mu          sync.Mutex
	users       map[string]*fakeUser
	habits      []models.Habit
	logs        map[int]map[string]map[int]bool
	failures    map[string]failure
	gates       map[string]chan struct{}
	calls       map[string]int
	nextUserID  int
	nextHabitID int
}

// NewFakeAPI starts a fake backend that is shut down when the test ends
func NewFakeAPI(t *testing.T) *FakeAPI {
	t.Helper()

	f := &FakeAPI{
		auth:        jwtauth.New("HS256", []byte(fakeSecret), nil),
		users:       make(map[string]*fakeUser),
		logs:        make(map[int]map[string]map[int]bool),
		failures:    make(map[string]failure),
		gates:       make(map[string]chan struct{}),
		calls:       make(map[string]int),
		nextUserID:  1,
		nextHabitID: 1,
	}
	f.Server = httptest.NewServer(f.routes())
	t.Cleanup(f.Server.Close)
	return f
}

// URL returns the base URL of the fake backend
func (f *FakeAPI) URL() string {
	return f.Server.URL
}

func (f *FakeAPI) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(f.record)
	r.Use(f.gate)
	r.Use(f.inject)

	r.Get(constants.PathHealth, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Post(constants.PathToken, f.handleToken)
	r.Post(constants.PathRegister, f.handleRegister)

	r.Group(func(r chi.Router) {
		r.Use(jwtauth.Verifier(f.auth))
		r.Use(f.authenticate)

		r.Get(constants.PathMe, f.handleMe)
		r.Get(constants.PathHabits, f.handleListHabits)
		r.Post(constants.PathHabits, f.handleCreateHabit)
		r.Post(constants.PathHabitLog, f.handleLogHabit)
		r.Delete("/habits/{habitID}", f.handleDeleteHabit)
		r.Get("/habits/{habitID}/dates-with-status", f.handleDatesWithStatus)
	})
	return r
}

// AddUser registers a user directly and returns its profile
func (f *FakeAPI) AddUser(username, password string) models.UserProfile {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addUserLocked(username, password)
}

func (f *FakeAPI) addUserLocked(username, password string) models.UserProfile {
	profile := models.UserProfile{ID: f.nextUserID, Username: username}
	f.nextUserID++
	f.users[username] = &fakeUser{profile: profile, password: password}
	return profile
}

// SetTelegram links a telegram account to a user
func (f *FakeAPI) SetTelegram(username string, id int64, handle string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[username]; ok {
		u.profile.TelegramID = &id
		u.profile.TelegramUsername = &handle
	}
}

// IssueToken signs a token for username that expires after ttl. A negative ttl
// gives an already expired token.
func (f *FakeAPI) IssueToken(t *testing.T, username string, ttl time.Duration) string {
	t.Helper()
	token, err := f.issue(username, ttl)
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}
	return token
}

func (f *FakeAPI) issue(username string, ttl time.Duration) (string, error) {
	claims := map[string]interface{}{"sub": username}
	jwtauth.SetExpiry(claims, time.Now().Add(ttl))
	_, token, err := f.auth.Encode(claims)
	return token, err
}

// AddHabit stores a habit owned by username
func (f *FakeAPI) AddHabit(username string, in models.HabitCreate) models.Habit {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addHabitLocked(f.users[username].profile.ID, in)
}

func (f *FakeAPI) addHabitLocked(userID int, in models.HabitCreate) models.Habit {
	habit := models.Habit{
		ID:             f.nextHabitID,
		Name:           in.Name,
		Description:    in.Description,
		StartDate:      in.StartDate,
		EndDate:        in.EndDate,
		StrategyType:   in.StrategyType,
		StrategyParams: in.StrategyParams,
		UserID:         userID,
	}
	f.nextHabitID++
	f.habits = append(f.habits, habit)
	return habit
}

// Habits returns a copy of every stored habit
func (f *FakeAPI) Habits() []models.Habit {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Habit(nil), f.habits...)
}

// SetLog records a completion value for the first slot of a habit on a day
func (f *FakeAPI) SetLog(habitID int, day string, done bool) {
	f.SetSlot(habitID, day, 0, done)
}

// SetSlot records a completion value for one slot of a habit on a day
func (f *FakeAPI) SetSlot(habitID int, day string, index int, done bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setLogLocked(habitID, day, index, done)
}

func (f *FakeAPI) setLogLocked(habitID int, day string, index int, done bool) {
	if f.logs[habitID] == nil {
		f.logs[habitID] = make(map[string]map[int]bool)
	}
	if f.logs[habitID][day] == nil {
		f.logs[habitID][day] = make(map[int]bool)
	}
	f.logs[habitID][day][index] = done
}

// Log returns the stored value of the first slot for a habit on a day
func (f *FakeAPI) Log(habitID int, day string) (bool, bool) {
	return f.Slot(habitID, day, 0)
}

// Slot returns the stored value of one slot for a habit on a day
func (f *FakeAPI) Slot(habitID int, day string, index int) (bool, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	done, ok := f.logs[habitID][day][index]
	return done, ok
}

// FailPath makes every request to path answer status. An empty detail sends a
// body without the detail field.
func (f *FakeAPI) FailPath(path string, status int, detail string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[path] = failure{status: status, detail: detail}
}

// DropPath makes every request to path lose its connection before a response
func (f *FakeAPI) DropPath(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[path] = failure{transport: true}
}

// ClearFailures removes every injected failure
func (f *FakeAPI) ClearFailures() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = make(map[string]failure)
}

// Gate holds requests to path until the returned release func is called
func (f *FakeAPI) Gate(path string) (release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[path] = ch
	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.gates, path)
			f.mu.Unlock()
			close(ch)
		})
	}
}

// Calls returns how many requests reached path
func (f *FakeAPI) Calls(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[path]
}

// TotalCalls returns how many requests reached the backend at all
func (f *FakeAPI) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

func (f *FakeAPI) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.calls[r.URL.Path]++
		f.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (f *FakeAPI) gate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		ch, ok := f.gates[r.URL.Path]
		f.mu.Unlock()
		if ok {
			select {
			case <-ch:
			case <-r.Context().Done():
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (f *FakeAPI) inject(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		fail, ok := f.failures[r.URL.Path]
		f.mu.Unlock()
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		if fail.transport {
			if hj, ok := w.(http.Hijacker); ok {
				if conn, _, err := hj.Hijack(); err == nil {
					_ = conn.Close()
					return
				}
			}
			panic(http.ErrAbortHandler)
		}
		if fail.detail == "" {
			writeJSON(w, fail.status, map[string]string{"error": http.StatusText(fail.status)})
			return
		}
		writeDetail(w, fail.status, fail.detail)
	})
}

func (f *FakeAPI) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, claims, err := jwtauth.FromContext(r.Context())
		if err != nil || token == nil {
			writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}

		username, _ := claims["sub"].(string)
		f.mu.Lock()
		user, ok := f.users[username]
		f.mu.Unlock()
		if !ok {
			writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}

		ctx := context.WithValue(r.Context(), ctxKey{}, user.profile)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func currentUser(r *http.Request) models.UserProfile {
	profile, _ := r.Context().Value(ctxKey{}).(models.UserProfile)
	return profile
}

func (f *FakeAPI) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid form")
		return
	}
	username := r.PostForm.Get("username")
	password := r.PostForm.Get("password")

	f.mu.Lock()
	user, ok := f.users[username]
	f.mu.Unlock()
	if !ok || user.password != password {
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeDetail(w, http.StatusUnauthorized, "Incorrect username or password")
		return
	}

	token, err := f.issue(username, 30*time.Minute)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"access_token": token, "token_type": "bearer"})
}

func (f *FakeAPI) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Username == "" || body.Password == "" {
		writeValidation(w, "body", "field required")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.users[body.Username]; exists {
		writeDetail(w, http.StatusBadRequest, "Username already registered")
		return
	}
	profile := f.addUserLocked(body.Username, body.Password)
	writeJSON(w, http.StatusCreated, map[string]interface{}{"id": profile.ID, "username": profile.Username})
}

func (f *FakeAPI) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, currentUser(r))
}

func (f *FakeAPI) handleListHabits(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	f.mu.Lock()
	owned := []models.Habit{}
	for _, h := range f.habits {
		if h.UserID == user.ID {
			owned = append(owned, h)
		}
	}
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, owned)
}

func (f *FakeAPI) handleCreateHabit(w http.ResponseWriter, r *http.Request) {
	var in models.HabitCreate
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeValidation(w, "body", "invalid habit")
		return
	}
	if in.Name == "" || in.StrategyType == "" || in.StrategyParams == nil {
		writeValidation(w, "body", "field required")
		return
	}

	f.mu.Lock()
	habit := f.addHabitLocked(currentUser(r).ID, in)
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, habit)
}

func (f *FakeAPI) handleLogHabit(w http.ResponseWriter, r *http.Request) {
	var entry models.HabitLogEntry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		writeValidation(w, "body", "invalid log entry")
		return
	}
	if _, err := time.Parse(constants.DateFormat, entry.Date); err != nil {
		writeValidation(w, "date", "invalid date format")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if status, detail := f.checkOwnerLocked(entry.HabitID, currentUser(r).ID); status != 0 {
		writeDetail(w, status, detail)
		return
	}
	if entry.Index < 0 {
		writeValidation(w, "index", "ensure this value is greater than or equal to 0")
		return
	}
	f.setLogLocked(entry.HabitID, entry.Date, entry.Index, entry.IsDone)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (f *FakeAPI) handleDeleteHabit(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "habitID"))
	if err != nil {
		writeValidation(w, "habit_id", "value is not a valid integer")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if status, detail := f.checkOwnerLocked(id, currentUser(r).ID); status != 0 {
		writeDetail(w, status, detail)
		return
	}
	kept := f.habits[:0]
	for _, h := range f.habits {
		if h.ID != id {
			kept = append(kept, h)
		}
	}
	f.habits = kept
	delete(f.logs, id)
	w.WriteHeader(http.StatusNoContent)
}

func (f *FakeAPI) handleDatesWithStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "habitID"))
	if err != nil {
		writeValidation(w, "habit_id", "value is not a valid integer")
		return
	}
	start, err := time.Parse(constants.DateFormat, r.URL.Query().Get("start_date"))
	if err != nil {
		writeValidation(w, "start_date", "invalid date format")
		return
	}
	end, err := time.Parse(constants.DateFormat, r.URL.Query().Get("end_date"))
	if err != nil {
		writeValidation(w, "end_date", "invalid date format")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if status, detail := f.checkOwnerLocked(id, currentUser(r).ID); status != 0 {
		writeDetail(w, status, detail)
		return
	}

	days := make([]string, 0, len(f.logs[id]))
	for day := range f.logs[id] {
		days = append(days, day)
	}
	sort.Strings(days)

	frequency := 1
	for _, h := range f.habits {
		if h.ID == id {
			frequency = h.Frequency()
		}
	}

	out := make(map[string]any)
	for _, day := range days {
		d, _ := time.Parse(constants.DateFormat, day)
		if d.Before(start) || d.After(end) {
			continue
		}
		slots := f.logs[id][day]
		if frequency > 1 {
			list := make([]bool, frequency)
			for i := range list {
				list[i] = slots[i]
			}
			out[day] = list
			continue
		}
		if done, ok := slots[0]; ok {
			out[day] = done
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (f *FakeAPI) checkOwnerLocked(habitID, userID int) (int, string) {
	for _, h := range f.habits {
		if h.ID != habitID {
			continue
		}
		if h.UserID != userID {
			return http.StatusForbidden, "Not authorized to access this habit"
		}
		return 0, ""
	}
	return http.StatusNotFound, "Habit not found"
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeValidation(w http.ResponseWriter, field, msg string) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
		"detail": []map[string]interface{}{
			{"loc": []string{"query", field}, "msg": fmt.Sprintf("%s: %s", field, msg), "type": "value_error"},
		},
	})
}
