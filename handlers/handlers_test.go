package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"SmartHealth/middlewares"
	"SmartHealth/models"
	"SmartHealth/services"
	"SmartHealth/storage"
	"SmartHealth/utils"
)

const testKey = "0123456789abcdef0123456789abcdef"

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router   *gin.Engine
	tokens   *utils.TokenMaker
	users    *memUsers
	messages *memMessages
	mailer   *memMailer
	media    storage.MediaStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	tokens, err := utils.NewTokenMaker(testKey, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	media, err := storage.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	s := &testServer{
		router:   gin.New(),
		tokens:   tokens,
		users:    &memUsers{},
		messages: &memMessages{},
		mailer:   &memMailer{sent: map[string]string{}},
		media:    media,
	}

	auth := NewAuthHandler(services.NewAuthService(s.users, nopLocker{}, &memCodes{codes: map[string]string{}}, s.mailer), tokens, false)
	s.router.POST("/register", auth.Register)
	s.router.POST("/login", auth.Login)
	s.router.POST("/logout", auth.Logout)
	s.router.POST("/password/forgot", auth.ForgotPassword)
	s.router.POST("/password/reset", auth.ResetPassword)

	protected := s.router.Group("/", middlewares.TokenAuthMiddleware(tokens))
	profiles := NewProfileHandler(services.NewProfileService(s.users, nil, nil, nil, media))
	protected.GET("/profile/patient", profiles.GetProfile(models.RolePatient))
	protected.GET("/profile/doctor", profiles.GetProfile(models.RoleDoctor))
	protected.POST("/lookup", profiles.Lookup)

	messages := NewMessageHandler(services.NewMessageService(s.messages, s.users))
	protected.GET("/messages", messages.MessageBox)
	protected.POST("/send-message", messages.Send)
	protected.POST("/delete-message/:id", messages.Delete)

	protected.GET("/media/*path", NewMediaHandler(media).Serve)
	return s
}

func (s *testServer) do(method, path string, body interface{}, user *models.User) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != nil {
		token, _ := s.tokens.GenerateAccessToken(user.ID, string(user.Role), user.UniqueID)
		req.AddCookie(&http.Cookie{Name: utils.AccessTokenCookie, Value: token})
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return body
}

func authCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == utils.AccessTokenCookie {
			return c
		}
	}
	return nil
}

func TestRegisterAndLogin(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/register", map[string]string{
		"username":         "grace",
		"email":            "Grace@Example.com",
		"phone":            "0712345678",
		"role":             "therapist",
		"password":         "adminsecret",
		"password_confirm": "adminsecret",
	}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("register: %d %s", w.Code, w.Body.String())
	}
	body := decode(t, w)
	if body["redirect"] != TherapistHomePath {
		t.Errorf("redirect = %v", body["redirect"])
	}
	data := body["data"].(map[string]interface{})
	user := data["user"].(map[string]interface{})
	if !strings.HasPrefix(user["unique_id"].(string), "THE_") {
		t.Errorf("unique_id = %v", user["unique_id"])
	}
	if _, leaked := user["password"]; leaked {
		t.Error("password hash serialized")
	}
	if c := authCookie(w); c == nil || c.Value == "" || !c.HttpOnly {
		t.Errorf("cookie = %+v", c)
	}

	w = s.do(http.MethodPost, "/login", map[string]string{"username": "grace", "password": "adminsecret"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("login: %d %s", w.Code, w.Body.String())
	}
	if body := decode(t, w); body["redirect"] != TherapistHomePath {
		t.Errorf("login redirect = %v", body["redirect"])
	}
	if authCookie(w) == nil {
		t.Error("login did not set cookie")
	}

	w = s.do(http.MethodPost, "/login", map[string]string{"username": "grace", "password": "wrong-password"}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad login: %d", w.Code)
	}
	if errs := decode(t, w)["errors"].(map[string]interface{}); errs["credentials"] == nil {
		t.Errorf("errors = %v", errs)
	}
}

func TestRegisterRejectsStaffPasswordWithoutPrefix(t *testing.T) {
	s := newTestServer(t)
	w := s.do(http.MethodPost, "/register", map[string]string{
		"username":         "house",
		"email":            "house@example.com",
		"phone":            "0700000000",
		"role":             "doctor",
		"password":         "vicodin123",
		"password_confirm": "vicodin123",
	}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	errs := decode(t, w)["errors"].(map[string]interface{})
	if errs["password"] != utils.ErrStaffPasswordPrefix.Error() {
		t.Errorf("errors = %v", errs)
	}
	if len(s.users.users) != 0 {
		t.Error("user stored despite validation failure")
	}
}

func TestLogoutClearsCookie(t *testing.T) {
	s := newTestServer(t)
	w := s.do(http.MethodPost, "/logout", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	c := authCookie(w)
	if c == nil || c.Value != "" || c.MaxAge >= 0 {
		t.Errorf("cookie = %+v", c)
	}
}

func TestPasswordResetFlow(t *testing.T) {
	s := newTestServer(t)
	w := s.do(http.MethodPost, "/register", map[string]string{
		"username":         "ada",
		"email":            "ada@example.com",
		"phone":            "0711111111",
		"role":             "patient",
		"password":         "password1",
		"password_confirm": "password1",
	}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("register: %d", w.Code)
	}

	if w := s.do(http.MethodPost, "/password/forgot", map[string]string{"email": "nobody@example.com"}, nil); w.Code != http.StatusOK {
		t.Errorf("unknown email: %d", w.Code)
	}
	if w := s.do(http.MethodPost, "/password/forgot", map[string]string{"email": "ada@example.com"}, nil); w.Code != http.StatusOK {
		t.Fatalf("forgot: %d", w.Code)
	}
	code := s.mailer.sent["ada@example.com"]
	if code == "" {
		t.Fatal("no code mailed")
	}

	w = s.do(http.MethodPost, "/password/reset", map[string]string{"email": "ada@example.com", "code": "000000x", "password": "newpassword"}, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("wrong code: %d", w.Code)
	}
	w = s.do(http.MethodPost, "/password/reset", map[string]string{"email": "ada@example.com", "code": code, "password": "newpassword"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("reset: %d %s", w.Code, w.Body.String())
	}
	if w := s.do(http.MethodPost, "/login", map[string]string{"username": "ada", "password": "newpassword"}, nil); w.Code != http.StatusOK {
		t.Errorf("login with new password: %d", w.Code)
	}
}

func TestAccessDeniedOutcomes(t *testing.T) {
	s := newTestServer(t)
	doctor := s.users.add(models.RoleDoctor, "doc")

	w := s.do(http.MethodGet, "/profile/patient", nil, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous: %d", w.Code)
	}

	w = s.do(http.MethodGet, "/profile/patient", nil, doctor)
	if w.Code != http.StatusForbidden {
		t.Fatalf("wrong role: %d", w.Code)
	}
	body := decode(t, w)
	if body["level"] != middlewares.LevelError || body["message"] != "Access denied." || body["redirect"] != middlewares.LoginPath {
		t.Errorf("body = %v", body)
	}

	w = s.do(http.MethodGet, "/profile/doctor", nil, doctor)
	if w.Code != http.StatusOK {
		t.Fatalf("own profile: %d", w.Code)
	}
}

func TestLookup(t *testing.T) {
	s := newTestServer(t)
	doctor := s.users.add(models.RoleDoctor, "doc")
	patient := s.users.add(models.RolePatient, "pat")

	w := s.do(http.MethodPost, "/lookup", map[string]string{"patient_id": strings.ToLower(patient.UniqueID)}, doctor)
	if w.Code != http.StatusOK {
		t.Fatalf("lookup: %d %s", w.Code, w.Body.String())
	}
	if body := decode(t, w); body["redirect"] != "/patient/"+patient.UniqueID {
		t.Errorf("redirect = %v", body["redirect"])
	}

	w = s.do(http.MethodPost, "/lookup", map[string]string{"patient_id": doctor.UniqueID}, doctor)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("staff id: %d", w.Code)
	}
	if errs := decode(t, w)["errors"].(map[string]interface{}); errs["patient_id"] != msgInvalidPatientID {
		t.Errorf("errors = %v", errs)
	}

	if w := s.do(http.MethodPost, "/lookup", map[string]string{"patient_id": patient.UniqueID}, patient); w.Code != http.StatusForbidden {
		t.Errorf("patient lookup: %d", w.Code)
	}
}

func TestMessagingStatuses(t *testing.T) {
	s := newTestServer(t)
	alice := s.users.add(models.RolePatient, "alice")
	bob := s.users.add(models.RoleDoctor, "bob")

	status := func(w *httptest.ResponseRecorder) interface{} {
		t.Helper()
		return decode(t, w)["status"]
	}

	if got := status(s.do(http.MethodPost, "/send-message", map[string]interface{}{"receiver_id": bob.ID, "content": "hello"}, alice)); got != statusSuccess {
		t.Errorf("send = %v", got)
	}
	if got := status(s.do(http.MethodPost, "/send-message", map[string]interface{}{"receiver_id": bob.ID, "content": "  "}, alice)); got != statusError {
		t.Errorf("blank content = %v", got)
	}
	if got := status(s.do(http.MethodPost, "/send-message", map[string]interface{}{"receiver_id": 99, "content": "hi"}, alice)); got != statusError {
		t.Errorf("unknown receiver = %v", got)
	}

	if w := s.do(http.MethodPost, "/delete-message/1", nil, bob); w.Code != http.StatusNotFound {
		t.Errorf("receiver delete: %d", w.Code)
	}
	if got := status(s.do(http.MethodPost, "/delete-message/1", nil, alice)); got != statusDeleted {
		t.Errorf("delete = %v", got)
	}
	if len(s.messages.messages) != 1 || !s.messages.messages[0].IsDeleted {
		t.Error("message should be kept with the deleted flag")
	}

	w := s.do(http.MethodGet, "/messages?role=doctor&user=2", nil, alice)
	if w.Code != http.StatusOK {
		t.Fatalf("message box: %d", w.Code)
	}
	box := decode(t, w)
	if msgs, _ := box["messages"].([]interface{}); len(msgs) != 0 {
		t.Errorf("deleted message still listed: %v", msgs)
	}
	if users, _ := box["users"].([]interface{}); len(users) != 1 {
		t.Errorf("users = %v", box["users"])
	}
}

func TestMediaServe(t *testing.T) {
	s := newTestServer(t)
	user := s.users.add(models.RolePatient, "pat")
	key, err := s.media.Save(context.Background(), storage.VisitReports, &storage.Upload{
		Filename:    "report.txt",
		ContentType: "text/plain",
		Body:        strings.NewReader("all clear"),
	})
	if err != nil {
		t.Fatal(err)
	}

	w := s.do(http.MethodGet, "/media/"+key, nil, user)
	if w.Code != http.StatusOK || w.Body.String() != "all clear" {
		t.Fatalf("serve: %d %q", w.Code, w.Body.String())
	}
	if !strings.HasPrefix(w.Header().Get("Content-Type"), "text/plain") {
		t.Errorf("content type = %q", w.Header().Get("Content-Type"))
	}

	if w := s.do(http.MethodGet, "/media/reports/missing.txt", nil, user); w.Code != http.StatusNotFound {
		t.Errorf("missing: %d", w.Code)
	}
	if w := s.do(http.MethodGet, "/media/"+key, nil, nil); w.Code != http.StatusUnauthorized {
		t.Errorf("anonymous: %d", w.Code)
	}
}

func TestMediaServeUntrustedUpload(t *testing.T) {
	s := newTestServer(t)
	user := s.users.add(models.RoleTherapist, "ther")
	key, err := s.media.Save(context.Background(), storage.VisitReports, &storage.Upload{
		Filename:    "report.html",
		ContentType: "text/html",
		Body:        strings.NewReader("<script>alert(1)</script>"),
	})
	if err != nil {
		t.Fatal(err)
	}

	w := s.do(http.MethodGet, "/media/"+key, nil, user)
	if w.Code != http.StatusOK {
		t.Fatalf("serve: %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/octet-stream" {
		t.Errorf("content type = %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.HasPrefix(cd, "attachment") {
		t.Errorf("content disposition = %q", cd)
	}
	if csp := w.Header().Get("Content-Security-Policy"); !strings.Contains(csp, "sandbox") {
		t.Errorf("content security policy = %q", csp)
	}
}
