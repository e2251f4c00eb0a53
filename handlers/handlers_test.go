package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/anjiri1684/stuplan/middleware"
	"github.com/anjiri1684/stuplan/models"
	"github.com/anjiri1684/stuplan/services"
	"github.com/gofiber/fiber/v2"
)

const testSecret = "test-secret"

type memoryProfiles struct {
	mu       sync.Mutex
	profiles map[string]*models.UserProfile
	fetchErr error
	writeErr error
}

func newMemoryProfiles(profiles ...*models.UserProfile) *memoryProfiles {
	m := &memoryProfiles{profiles: make(map[string]*models.UserProfile)}
	for _, p := range profiles {
		m.profiles[p.UserID] = p
	}
	return m
}

func (m *memoryProfiles) Fetch(_ context.Context, userID string) (*models.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	if p, ok := m.profiles[userID]; ok {
		return p.Clone(), nil
	}
	return &models.UserProfile{UserID: userID}, nil
}

func (m *memoryProfiles) Write(_ context.Context, userID string, p *models.UserProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	m.profiles[userID] = p.Clone()
	return nil
}

func (m *memoryProfiles) get(userID string) *models.UserProfile {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.profiles[userID].Clone()
}

type stubImages struct {
	link     string
	err      error
	received string
}

func (s *stubImages) Upload(_ context.Context, _, filename string, r io.Reader) (string, error) {
	data, _ := io.ReadAll(r)
	s.received = filename + ":" + string(data)
	return s.link, s.err
}

type stateBody struct {
	Profile *models.UserProfile `json:"profile"`
	Loading bool                `json:"loading"`
	Status  struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"status"`
}

func newProfileApp(t *testing.T, profiles *memoryProfiles, images *stubImages) (*fiber.App, *services.SessionRegistry) {
	t.Helper()
	sessions := services.NewSessionRegistry(profiles, images, nil, nil)
	h := NewProfileHandler(sessions)

	app := fiber.New()
	profile := app.Group("/api/v1/profile", middleware.Protected(testSecret))
	profile.Get("/me", h.GetMyProfile)
	profile.Put("/me", h.UpdateMyProfile)
	profile.Get("/me/state", h.GetState)
	profile.Delete("/me/status", h.ClearStatus)
	profile.Get("/me/avatar", h.GetMyAvatar)
	profile.Post("/me/avatar", h.UploadAvatar)
	profile.Put("/me/avatar/category", h.SelectAvatarCategory)
	profile.Get("/:userId", h.GetProfile)
	return app, sessions
}

func bearer(t *testing.T, userID string) string {
	t.Helper()
	token, err := middleware.IssueToken(testSecret, userID, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	return "Bearer " + token
}

func doJSON(t *testing.T, app *fiber.App, method, path, auth string, body interface{}) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test(%s %s) error = %v", method, path, err)
	}
	return resp
}

func decodeState(t *testing.T, resp *http.Response) stateBody {
	t.Helper()
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)

	var envelope struct {
		State *stateBody `json:"state"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.State != nil {
		return *envelope.State
	}
	var st stateBody
	if err := json.Unmarshal(raw, &st); err != nil {
		t.Fatalf("decode state %q: %v", raw, err)
	}
	return st
}

func ada() *models.UserProfile {
	return models.NewUserProfile("user-1", "Ada Lovelace", "ada@example.com")
}

func TestProfileRoutesRequireToken(t *testing.T) {
	app, _ := newProfileApp(t, newMemoryProfiles(ada()), &stubImages{})

	resp := doJSON(t, app, http.MethodGet, "/api/v1/profile/me", "", nil)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("missing token status = %d", resp.StatusCode)
	}
	resp = doJSON(t, app, http.MethodGet, "/api/v1/profile/me", "Bearer garbage", nil)
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("bad token status = %d", resp.StatusCode)
	}
}

func TestGetMyProfile(t *testing.T) {
	app, _ := newProfileApp(t, newMemoryProfiles(ada()), &stubImages{})

	resp := doJSON(t, app, http.MethodGet, "/api/v1/profile/me", bearer(t, "user-1"), nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	st := decodeState(t, resp)
	if st.Profile == nil || st.Profile.DisplayName != "Ada Lovelace" {
		t.Errorf("profile = %+v", st.Profile)
	}
	if st.Loading || st.Status.Kind != "success" {
		t.Errorf("state = %+v", st)
	}
}

func TestGetMyProfileRemoteFailure(t *testing.T) {
	profiles := newMemoryProfiles()
	profiles.fetchErr = errors.New("firestore unavailable")
	app, _ := newProfileApp(t, profiles, &stubImages{})

	resp := doJSON(t, app, http.MethodGet, "/api/v1/profile/me", bearer(t, "user-1"), nil)
	if resp.StatusCode != fiber.StatusBadGateway {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	st := decodeState(t, resp)
	if st.Status.Kind != "error" || !strings.Contains(st.Status.Message, "firestore unavailable") {
		t.Errorf("status = %+v", st.Status)
	}
}

func TestUpdateMyProfile(t *testing.T) {
	profiles := newMemoryProfiles(ada())
	app, _ := newProfileApp(t, profiles, &stubImages{})
	auth := bearer(t, "user-1")

	resp := doJSON(t, app, http.MethodPut, "/api/v1/profile/me", auth, map[string]string{
		"display_name":   "Countess Ada",
		"academic_level": "Undergraduate Student",
	})
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	st := decodeState(t, resp)
	if st.Profile.DisplayName != "Countess Ada" {
		t.Errorf("display name = %q", st.Profile.DisplayName)
	}
	if stored := profiles.get("user-1"); stored.DisplayName != "Countess Ada" || stored.Email != "ada@example.com" {
		t.Errorf("stored = %+v", stored)
	}
}

func TestUpdateMyProfileRejectsInput(t *testing.T) {
	profiles := newMemoryProfiles(ada())
	app, _ := newProfileApp(t, profiles, &stubImages{})
	auth := bearer(t, "user-1")

	resp := doJSON(t, app, http.MethodPut, "/api/v1/profile/me", auth, map[string]string{})
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("empty update status = %d", resp.StatusCode)
	}

	resp = doJSON(t, app, http.MethodPut, "/api/v1/profile/me", auth, map[string]string{"email": "not-an-email"})
	if resp.StatusCode != fiber.StatusUnprocessableEntity {
		t.Fatalf("invalid email status = %d", resp.StatusCode)
	}
	st := decodeState(t, resp)
	if st.Status.Kind != "error" || st.Profile.Email != "ada@example.com" {
		t.Errorf("state after rejected update = %+v", st)
	}
	if stored := profiles.get("user-1"); stored.Email != "ada@example.com" {
		t.Errorf("stored email = %q", stored.Email)
	}
}

func TestUpdateMyProfileWriteFailureKeepsProfile(t *testing.T) {
	profiles := newMemoryProfiles(ada())
	app, _ := newProfileApp(t, profiles, &stubImages{})
	auth := bearer(t, "user-1")

	doJSON(t, app, http.MethodGet, "/api/v1/profile/me", auth, nil).Body.Close()
	profiles.writeErr = errors.New("permission denied")

	resp := doJSON(t, app, http.MethodPut, "/api/v1/profile/me", auth, map[string]string{"display_name": "Grace"})
	if resp.StatusCode != fiber.StatusBadGateway {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	st := decodeState(t, resp)
	if st.Profile.DisplayName != "Ada Lovelace" {
		t.Errorf("held profile changed to %q", st.Profile.DisplayName)
	}
}

func TestSelectAvatarCategory(t *testing.T) {
	profiles := newMemoryProfiles(ada())
	app, _ := newProfileApp(t, profiles, &stubImages{})
	auth := bearer(t, "user-1")

	resp := doJSON(t, app, http.MethodPut, "/api/v1/profile/me/avatar/category", auth, map[string]string{"category": "wizard"})
	if resp.StatusCode != fiber.StatusUnprocessableEntity {
		t.Errorf("unknown category status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doJSON(t, app, http.MethodPut, "/api/v1/profile/me/avatar/category", auth, map[string]string{"category": "artist"})
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	st := decodeState(t, resp)
	if st.Profile.AvatarRef == nil || *st.Profile.AvatarRef != "artist" {
		t.Errorf("avatar ref = %v", st.Profile.AvatarRef)
	}

	resp = doJSON(t, app, http.MethodGet, "/api/v1/profile/me/avatar", auth, nil)
	defer resp.Body.Close()
	var avatar struct {
		Kind  string `json:"kind"`
		Glyph string `json:"glyph"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&avatar); err != nil {
		t.Fatalf("decode avatar: %v", err)
	}
	if avatar.Kind != "category" || avatar.Glyph != "A" {
		t.Errorf("avatar = %+v", avatar)
	}
}

func multipartImage(t *testing.T, contentType string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="image"; filename="me.png"`)
	header.Set("Content-Type", contentType)
	part, err := w.CreatePart(header)
	if err != nil {
		t.Fatalf("CreatePart() error = %v", err)
	}
	part.Write([]byte("png-bytes"))
	w.Close()
	return body, w.FormDataContentType()
}

func uploadRequest(t *testing.T, app *fiber.App, auth, contentType string) *http.Response {
	t.Helper()
	body, formType := multipartImage(t, contentType)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/profile/me/avatar", body)
	req.Header.Set("Content-Type", formType)
	req.Header.Set("Authorization", auth)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	return resp
}

func TestUploadAvatar(t *testing.T) {
	profiles := newMemoryProfiles(ada())
	images := &stubImages{link: "https://i.imgur.com/abc.png"}
	app, _ := newProfileApp(t, profiles, images)
	auth := bearer(t, "user-1")

	resp := uploadRequest(t, app, auth, "text/plain")
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("non-image status = %d", resp.StatusCode)
	}

	resp = uploadRequest(t, app, auth, "image/png")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	st := decodeState(t, resp)
	if st.Profile.AvatarRef == nil || *st.Profile.AvatarRef != images.link {
		t.Errorf("avatar ref = %v", st.Profile.AvatarRef)
	}
	if images.received != "me.png:png-bytes" {
		t.Errorf("image host received %q", images.received)
	}
}

func TestUploadAvatarHostFailure(t *testing.T) {
	profiles := newMemoryProfiles(ada())
	images := &stubImages{err: errors.New("rate limited")}
	app, _ := newProfileApp(t, profiles, images)

	resp := uploadRequest(t, app, bearer(t, "user-1"), "image/jpeg")
	if resp.StatusCode != fiber.StatusBadGateway {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	st := decodeState(t, resp)
	if st.Profile.AvatarRef != nil {
		t.Errorf("avatar ref set after failed upload: %v", *st.Profile.AvatarRef)
	}
}

func TestGetOtherProfileThenOwnAvatar(t *testing.T) {
	grace := models.NewUserProfile("user-2", "Grace Hopper", "grace@example.com")
	app, _ := newProfileApp(t, newMemoryProfiles(ada(), grace), &stubImages{})
	auth := bearer(t, "user-1")

	resp := doJSON(t, app, http.MethodGet, "/api/v1/profile/user-2", auth, nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if st := decodeState(t, resp); st.Profile.UserID != "user-2" {
		t.Errorf("loaded %q", st.Profile.UserID)
	}

	resp = doJSON(t, app, http.MethodGet, "/api/v1/profile/me/avatar", auth, nil)
	defer resp.Body.Close()
	var avatar struct {
		Kind     string `json:"kind"`
		Initials string `json:"initials"`
	}
	json.NewDecoder(resp.Body).Decode(&avatar)
	if avatar.Kind != "initials" || avatar.Initials != "AL" {
		t.Errorf("avatar = %+v", avatar)
	}
}

func TestStateAndClearStatus(t *testing.T) {
	app, _ := newProfileApp(t, newMemoryProfiles(ada()), &stubImages{})
	auth := bearer(t, "user-1")

	st := decodeState(t, doJSON(t, app, http.MethodGet, "/api/v1/profile/me/state", auth, nil))
	if st.Profile != nil || st.Status.Kind != "idle" {
		t.Errorf("initial state = %+v", st)
	}

	doJSON(t, app, http.MethodGet, "/api/v1/profile/me", auth, nil).Body.Close()
	st = decodeState(t, doJSON(t, app, http.MethodDelete, "/api/v1/profile/me/status", auth, nil))
	if st.Status.Kind != "idle" || st.Profile == nil {
		t.Errorf("state after clear = %+v", st)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{services.ErrNotAuthenticated, fiber.StatusUnauthorized},
		{services.ErrProfileNotLoaded, fiber.StatusConflict},
		{&services.ValidationError{Field: "email", Reason: "bad"}, fiber.StatusUnprocessableEntity},
		{&services.RemoteError{Op: "load profile", Err: errors.New("x")}, fiber.StatusBadGateway},
		{errors.New("boom"), fiber.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestGetAvatarCatalog(t *testing.T) {
	app := fiber.New()
	app.Get("/catalog", GetAvatarCatalog)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/catalog", nil))
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	defer resp.Body.Close()

	var body struct {
		Categories []struct {
			Tag   string `json:"tag"`
			Glyph string `json:"glyph"`
		} `json:"categories"`
		Palette        []string `json:"palette"`
		AcademicLevels []string `json:"academic_levels"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Categories) != 10 || body.Categories[0].Tag != "default" || body.Categories[0].Glyph != "D" {
		t.Errorf("categories = %+v", body.Categories)
	}
	if len(body.Palette) != 10 || !strings.HasPrefix(body.Palette[0], "#") {
		t.Errorf("palette = %v", body.Palette)
	}
	if len(body.AcademicLevels) != 7 {
		t.Errorf("academic levels = %v", body.AcademicLevels)
	}
}

func TestGetProfileKeepsRequestedIDAcrossRequests(t *testing.T) {
	app, _ := newProfileApp(t, newMemoryProfiles(ada()), &stubImages{})
	auth := bearer(t, "user-1")
	const unknown = "zzzzzzzzzzzzzzzz"

	resp := doJSON(t, app, http.MethodGet, "/api/v1/profile/"+unknown, auth, nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if st := decodeState(t, resp); st.Profile == nil || st.Profile.UserID != unknown {
		t.Fatalf("profile = %+v", st.Profile)
	}

	for i := 0; i < 3; i++ {
		st := decodeState(t, doJSON(t, app, http.MethodGet, "/api/v1/profile/me/state", auth, nil))
		if st.Profile == nil || st.Profile.UserID != unknown {
			t.Fatalf("held profile id after request %d = %+v", i, st.Profile)
		}
	}
}
