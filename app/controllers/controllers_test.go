package controllers

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/oggatonama/oggatonama/app/models"
	"github.com/oggatonama/oggatonama/app/repository"
	"github.com/oggatonama/oggatonama/internal/pkg/env"
	"github.com/oggatonama/oggatonama/internal/pkg/middleware"
	"github.com/oggatonama/oggatonama/internal/pkg/token"
)

func init() {
	env.Env = map[string]string{"JWT_SECRET": "test-secret"}
}

// ---- in-memory repository doubles ----

type memUserRepo struct {
	mu     sync.Mutex
	nextID uint
	users  map[uint]*models.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{nextID: 1, users: map[uint]*models.User{}}
}

func (r *memUserRepo) Create(user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user.ID = r.nextID
	r.nextID++
	user.CreatedAt = time.Now()
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *memUserRepo) GetByID(id uint) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memUserRepo) GetByEmail(email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	email = strings.ToLower(email)
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memUserRepo) GetByNID(nid string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.NIDNumber == nid {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memUserRepo) Update(user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *memUserRepo) UpdateProfile(id uint, fields repository.ProfileUpdate) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	if fields.FullName != nil {
		u.FullName = *fields.FullName
	}
	if fields.ContactNumber != nil {
		u.ContactNumber = *fields.ContactNumber
	}
	if fields.PhotoURL != nil {
		u.PhotoURL = *fields.PhotoURL
	}
	cp := *u
	return &cp, nil
}

func (r *memUserRepo) Count() (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.users)), nil
}

type memReportRepo struct {
	mu      sync.Mutex
	nextID  uint
	reports map[uint]*models.Report
}

func newMemReportRepo() *memReportRepo {
	return &memReportRepo{nextID: 1, reports: map[uint]*models.Report{}}
}

func (r *memReportRepo) Create(report *models.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	report.ID = r.nextID
	r.nextID++
	report.CreatedAt = time.Now()
	cp := *report
	r.reports[report.ID] = &cp
	return nil
}

func (r *memReportRepo) GetByUUID(uuid string) (*models.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rep := range r.reports {
		if rep.UUID == uuid {
			cp := *rep
			cp.ClaimRequests = append([]models.ClaimRequest(nil), rep.ClaimRequests...)
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memReportRepo) List() ([]models.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Report, 0, len(r.reports))
	for _, rep := range r.reports {
		cp := *rep
		cp.ClaimRequests = append([]models.ClaimRequest(nil), rep.ClaimRequests...)
		out = append(out, cp)
	}
	// newest first, matching the gorm implementation
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].CreatedAt.After(out[i].CreatedAt) || (out[j].CreatedAt.Equal(out[i].CreatedAt) && out[j].ID > out[i].ID) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

func (r *memReportRepo) RequestClaim(reportID uint, claimantName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rep, ok := r.reports[reportID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for _, cr := range rep.ClaimRequests {
		if cr.ClaimantName == claimantName {
			return nil
		}
	}
	rep.ClaimRequests = append(rep.ClaimRequests, models.ClaimRequest{
		ReportID:     reportID,
		ClaimantName: claimantName,
		CreatedAt:    time.Now(),
	})
	if rep.Status == models.StatusUnclaimed {
		rep.Status = models.StatusPending
	}
	return nil
}

func (r *memReportRepo) Resolve(reportID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rep, ok := r.reports[reportID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if rep.Status != models.StatusPending {
		return repository.ErrStaleState
	}
	delete(r.reports, reportID)
	return nil
}

func (r *memReportRepo) Count() (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.reports)), nil
}

type memCarbonRepo struct {
	mu      sync.Mutex
	records []models.CarbonEmission
}

func (r *memCarbonRepo) Create(record *models.CarbonEmission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, *record)
	return nil
}

func (r *memCarbonRepo) ListSince(since time.Time) ([]models.CarbonEmission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.CarbonEmission, 0, len(r.records))
	for _, rec := range r.records {
		if !rec.CreatedAt.Before(since) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// ---- harness ----

type testEnv struct {
	app     *fiber.App
	users   *memUserRepo
	reports *memReportRepo
	carbon  *memCarbonRepo
}

func newTestEnv() *testEnv {
	te := &testEnv{
		users:   newMemUserRepo(),
		reports: newMemReportRepo(),
		carbon:  &memCarbonRepo{},
	}
	repository.SetGlobalRepositoriesForTesting(&repository.Repositories{
		User:   te.users,
		Report: te.reports,
		Carbon: te.carbon,
	})

	app := fiber.New()
	api := app.Group("/api", middleware.BearerContext)
	api.Get("/test", HandleTest)

	auth := api.Group("/auth")
	auth.Post("/signup", HandleSignUp)
	auth.Post("/signin", HandleSignIn)
	auth.Post("/forgot-password", HandleForgotPassword)
	auth.Post("/reset-password", HandleResetPassword)

	profile := api.Group("/profile", middleware.RequireAuth)
	profile.Get("/", HandleGetProfile)
	profile.Put("/", HandleUpdateProfile)

	register := api.Group("/register")
	register.Get("/", HandleListReports)
	register.Get("/:id", HandleGetReport)
	register.Post("/", middleware.RequireAuth, HandleCreateReport)
	register.Patch("/:id/claim", middleware.RequireAuth, HandleClaimReport)
	register.Post("/:id/approve", middleware.RequireAuth, HandleApproveReport)

	carbonGroup := api.Group("/carbon")
	carbonGroup.Get("/stats", HandleCarbonStats)

	te.app = app
	return te
}

func (te *testEnv) addUser(t *testing.T, name, email, nid, contact, password string) *models.User {
	t.Helper()
	user, err := models.CreateUser(name, email, nid, contact, password)
	require.NoError(t, err)
	require.NoError(t, te.users.Create(user))
	return user
}

func (te *testEnv) tokenFor(t *testing.T, u *models.User) string {
	t.Helper()
	tok, err := token.Sign(u.ID, u.FullName, u.Email, u.ContactNumber, token.DefaultTTL)
	require.NoError(t, err)
	return tok
}

func (te *testEnv) addReport(t *testing.T, reporter *models.User, division, district string, age int) *models.Report {
	t.Helper()
	report := models.NewReport(division, district, "", age, "Male", "5'6\"", "", "", reporter.FullName, reporter.ContactNumber)
	require.NoError(t, te.reports.Create(report))
	return report
}

func jsonRequest(method, target string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return req
}

func formRequest(t *testing.T, method, target string, fields map[string]string, bearer string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set(fiber.HeaderContentType, w.FormDataContentType())
	if bearer != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+bearer)
	}
	return req
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

// ---- auth ----

func TestSignUpCreatesAccount(t *testing.T) {
	te := newTestEnv()

	resp, err := te.app.Test(jsonRequest(fiber.MethodPost, "/api/auth/signup", map[string]string{
		"fullName":      "Alice Rahman",
		"email":         "Alice@Example.com",
		"nidNumber":     "1234567890",
		"contactNumber": "01700000001",
		"password":      "secret1",
	}), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.NotEmpty(t, body["token"])
	user := body["user"].(map[string]interface{})
	assert.Equal(t, "alice@example.com", user["email"])
	assert.Equal(t, "Alice Rahman", user["fullName"])
}

func TestSignUpDuplicateEmail(t *testing.T) {
	te := newTestEnv()
	te.addUser(t, "Alice Rahman", "alice@example.com", "1234567890", "01700000001", "secret1")

	resp, err := te.app.Test(jsonRequest(fiber.MethodPost, "/api/auth/signup", map[string]string{
		"fullName":      "Other Alice",
		"email":         "alice@example.com",
		"nidNumber":     "9999999999",
		"contactNumber": "01700000002",
		"password":      "secret1",
	}), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "email", body["field"])
}

func TestSignUpDuplicateNID(t *testing.T) {
	te := newTestEnv()
	te.addUser(t, "Alice Rahman", "alice@example.com", "1234567890", "01700000001", "secret1")

	resp, err := te.app.Test(jsonRequest(fiber.MethodPost, "/api/auth/signup", map[string]string{
		"fullName":      "Bob Hossain",
		"email":         "bob@example.com",
		"nidNumber":     "1234567890",
		"contactNumber": "01700000002",
		"password":      "secret1",
	}), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "nidNumber", body["field"])
}

func TestSignUpValidationNamesJSONFields(t *testing.T) {
	te := newTestEnv()

	resp, err := te.app.Test(jsonRequest(fiber.MethodPost, "/api/auth/signup", map[string]string{
		"email":         "alice@example.com",
		"nidNumber":     "1234567890",
		"contactNumber": "01700000001",
		"password":      "secret1",
	}), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "fullName is required", decodeBody(t, resp)["error"])

	resp, err = te.app.Test(jsonRequest(fiber.MethodPost, "/api/auth/signup", map[string]string{
		"fullName":      "Alice Rahman",
		"email":         "not-an-email",
		"nidNumber":     "1234567890",
		"contactNumber": "01700000001",
		"password":      "secret1",
	}), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	msg := decodeBody(t, resp)["error"].(string)
	assert.Equal(t, "email must be a valid email address", msg)
	assert.NotContains(t, msg, "User.")
}

func TestSignUpShortPassword(t *testing.T) {
	te := newTestEnv()

	resp, err := te.app.Test(jsonRequest(fiber.MethodPost, "/api/auth/signup", map[string]string{
		"fullName":      "Alice Rahman",
		"email":         "alice@example.com",
		"nidNumber":     "1234567890",
		"contactNumber": "01700000001",
		"password":      "short",
	}), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestSignInWrongPasswordAndUnknownEmailLookTheSame(t *testing.T) {
	te := newTestEnv()
	te.addUser(t, "Alice Rahman", "alice@example.com", "1234567890", "01700000001", "secret1")

	wrongPass, err := te.app.Test(jsonRequest(fiber.MethodPost, "/api/auth/signin", map[string]string{
		"email":    "alice@example.com",
		"password": "not-it",
	}), -1)
	require.NoError(t, err)
	unknown, err := te.app.Test(jsonRequest(fiber.MethodPost, "/api/auth/signin", map[string]string{
		"email":    "nobody@example.com",
		"password": "whatever",
	}), -1)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusUnauthorized, wrongPass.StatusCode)
	assert.Equal(t, fiber.StatusUnauthorized, unknown.StatusCode)
	assert.Equal(t, decodeBody(t, wrongPass)["error"], decodeBody(t, unknown)["error"])
}

func TestSignInIssuesUsableToken(t *testing.T) {
	te := newTestEnv()
	te.addUser(t, "Alice Rahman", "alice@example.com", "1234567890", "01700000001", "secret1")

	resp, err := te.app.Test(jsonRequest(fiber.MethodPost, "/api/auth/signin", map[string]string{
		"email":    "alice@example.com",
		"password": "secret1",
	}), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	tok := decodeBody(t, resp)["token"].(string)

	req := httptest.NewRequest(fiber.MethodGet, "/api/profile/", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+tok)
	profileResp, err := te.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, profileResp.StatusCode)
}

func TestForgotPasswordAnswerIsUniform(t *testing.T) {
	te := newTestEnv()
	te.addUser(t, "Alice Rahman", "alice@example.com", "1234567890", "01700000001", "secret1")

	known, err := te.app.Test(jsonRequest(fiber.MethodPost, "/api/auth/forgot-password", map[string]string{
		"email": "alice@example.com",
	}), -1)
	require.NoError(t, err)
	unknown, err := te.app.Test(jsonRequest(fiber.MethodPost, "/api/auth/forgot-password", map[string]string{
		"email": "nobody@example.com",
	}), -1)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, known.StatusCode)
	assert.Equal(t, fiber.StatusOK, unknown.StatusCode)
	assert.Equal(t, decodeBody(t, known)["message"], decodeBody(t, unknown)["message"])

	// the known account got a code persisted
	stored, err := te.users.GetByEmail("alice@example.com")
	require.NoError(t, err)
	assert.Len(t, stored.ResetCode, 6)
	require.NotNil(t, stored.ResetCodeExpiresAt)
}

func TestResetPasswordWithValidCode(t *testing.T) {
	te := newTestEnv()
	user := te.addUser(t, "Alice Rahman", "alice@example.com", "1234567890", "01700000001", "secret1")

	code, err := user.GenerateResetCode()
	require.NoError(t, err)
	require.NoError(t, te.users.Update(user))

	resp, err := te.app.Test(jsonRequest(fiber.MethodPost, "/api/auth/reset-password", map[string]string{
		"email":       "alice@example.com",
		"code":        code,
		"newPassword": "fresh-secret",
	}), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	stored, err := te.users.GetByEmail("alice@example.com")
	require.NoError(t, err)
	assert.True(t, stored.CheckPassword("fresh-secret"))
	assert.False(t, stored.CheckPassword("secret1"))
	assert.Empty(t, stored.ResetCode)
}

func TestResetPasswordRejectsBadCode(t *testing.T) {
	te := newTestEnv()
	user := te.addUser(t, "Alice Rahman", "alice@example.com", "1234567890", "01700000001", "secret1")

	_, err := user.GenerateResetCode()
	require.NoError(t, err)
	require.NoError(t, te.users.Update(user))

	resp, err := te.app.Test(jsonRequest(fiber.MethodPost, "/api/auth/reset-password", map[string]string{
		"email":       "alice@example.com",
		"code":        "000000",
		"newPassword": "fresh-secret",
	}), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	stored, err := te.users.GetByEmail("alice@example.com")
	require.NoError(t, err)
	assert.True(t, stored.CheckPassword("secret1"))
}

// ---- profile ----

func TestUpdateProfileReissuesToken(t *testing.T) {
	te := newTestEnv()
	user := te.addUser(t, "Alice Rahman", "alice@example.com", "1234567890", "01700000001", "secret1")

	resp, err := te.app.Test(formRequest(t, fiber.MethodPut, "/api/profile/", map[string]string{
		"fullName":      "Alice R. Chowdhury",
		"contactNumber": "01700000099",
	}, te.tokenFor(t, user)), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	updated := body["user"].(map[string]interface{})
	assert.Equal(t, "Alice R. Chowdhury", updated["fullName"])
	assert.Equal(t, "01700000099", updated["contactNumber"])

	claims, err := token.Parse(body["token"].(string))
	require.NoError(t, err)
	assert.Equal(t, "Alice R. Chowdhury", claims.Name)
}

// ---- reports ----

func TestCreateReportRequiresAuth(t *testing.T) {
	te := newTestEnv()

	resp, err := te.app.Test(formRequest(t, fiber.MethodPost, "/api/register/", map[string]string{
		"division": "Dhaka",
		"district": "Dhaka",
		"age":      "45",
		"gender":   "Male",
	}, ""), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestCreateReportMissingFields(t *testing.T) {
	te := newTestEnv()
	user := te.addUser(t, "Alice Rahman", "alice@example.com", "1234567890", "01700000001", "secret1")

	resp, err := te.app.Test(formRequest(t, fiber.MethodPost, "/api/register/", map[string]string{
		"division": "Dhaka",
	}, te.tokenFor(t, user)), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestCreateReportRequiresHeightAndClothing(t *testing.T) {
	te := newTestEnv()
	user := te.addUser(t, "Alice Rahman", "alice@example.com", "1234567890", "01700000001", "secret1")

	fields := map[string]string{
		"division": "Dhaka",
		"district": "Savar",
		"age":      "45",
		"gender":   "Male",
		"height":   "5'6\"",
		"clothing": "Blue shirt",
	}
	for _, missing := range []string{"height", "clothing"} {
		partial := map[string]string{}
		for k, v := range fields {
			if k != missing {
				partial[k] = v
			}
		}
		resp, err := te.app.Test(formRequest(t, fiber.MethodPost, "/api/register/", partial, te.tokenFor(t, user)), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode, "missing %s must be rejected", missing)
		assert.Equal(t, "Missing required fields", decodeBody(t, resp)["error"])
	}

	count, err := te.reports.Count()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestCreateReportRejectsBadAge(t *testing.T) {
	te := newTestEnv()
	user := te.addUser(t, "Alice Rahman", "alice@example.com", "1234567890", "01700000001", "secret1")

	resp, err := te.app.Test(formRequest(t, fiber.MethodPost, "/api/register/", map[string]string{
		"division": "Dhaka",
		"district": "Dhaka",
		"age":      "forty",
		"gender":   "Male",
	}, te.tokenFor(t, user)), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestCreateAndFetchReport(t *testing.T) {
	te := newTestEnv()
	user := te.addUser(t, "Alice Rahman", "alice@example.com", "1234567890", "01700000001", "secret1")

	resp, err := te.app.Test(formRequest(t, fiber.MethodPost, "/api/register/", map[string]string{
		"division":       "Dhaka",
		"district":       "Savar",
		"locationDetail": "Near the bus stand",
		"age":            "45",
		"gender":         "Male",
		"height":         "5'6\"",
		"clothing":       "Blue shirt",
	}, te.tokenFor(t, user)), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	id := decodeBody(t, resp)["id"].(string)
	require.NotEmpty(t, id)

	getResp, err := te.app.Test(httptest.NewRequest(fiber.MethodGet, "/api/register/"+id, nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, getResp.StatusCode)

	report := decodeBody(t, getResp)["report"].(map[string]interface{})
	assert.Equal(t, "unclaimed", report["status"])
	assert.Equal(t, "Alice Rahman", report["reporterName"])
	assert.Equal(t, "Dhaka, Savar, Near the bus stand", report["foundLocation"])
	assert.Empty(t, report["claimRequests"])
}

func TestCreateReportAcceptsLegacyCombinedLocation(t *testing.T) {
	te := newTestEnv()
	user := te.addUser(t, "Alice Rahman", "alice@example.com", "1234567890", "01700000001", "secret1")

	resp, err := te.app.Test(formRequest(t, fiber.MethodPost, "/api/register/", map[string]string{
		"foundLocation": "Chattogram, Pahartali, railway gate",
		"age":           "30",
		"gender":        "Female",
		"height":        "5'2\"",
		"clothing":      "Green saree",
	}, te.tokenFor(t, user)), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	id := decodeBody(t, resp)["id"].(string)

	getResp, err := te.app.Test(httptest.NewRequest(fiber.MethodGet, "/api/register/"+id, nil), -1)
	require.NoError(t, err)
	report := decodeBody(t, getResp)["report"].(map[string]interface{})
	assert.Equal(t, "Chattogram", report["division"])
	assert.Equal(t, "Pahartali", report["district"])
	assert.Equal(t, "railway gate", report["locationDetail"])
}

func TestGetReportNotFound(t *testing.T) {
	te := newTestEnv()

	resp, err := te.app.Test(httptest.NewRequest(fiber.MethodGet, "/api/register/no-such-id", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestListReportsFilters(t *testing.T) {
	te := newTestEnv()
	user := te.addUser(t, "Alice Rahman", "alice@example.com", "1234567890", "01700000001", "secret1")

	te.addReport(t, user, "Dhaka", "Savar", 45)
	te.addReport(t, user, "Dhaka", "Gulshan", 45)
	te.addReport(t, user, "Khulna", "Savar", 45)
	te.addReport(t, user, "Dhaka", "Savar", 72)

	resp, err := te.app.Test(httptest.NewRequest(fiber.MethodGet, "/api/register/?division=Dhaka&district=Savar&age=40-49", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, float64(1), body["count"])

	allResp, err := te.app.Test(httptest.NewRequest(fiber.MethodGet, "/api/register/?division=All&age=All", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, float64(4), decodeBody(t, allResp)["count"])
}

func TestListReportsRejectsMalformedAge(t *testing.T) {
	te := newTestEnv()

	for _, bad := range []string{"fortyish", "40-99", "40-banana", "45-54", "100", "110-119", "-10-9"} {
		resp, err := te.app.Test(httptest.NewRequest(fiber.MethodGet, "/api/register/?age="+bad, nil), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode, "age=%s must be rejected", bad)
	}

	for _, ok := range []string{"40-49", "0-9", "100%2B", "All"} {
		resp, err := te.app.Test(httptest.NewRequest(fiber.MethodGet, "/api/register/?age="+ok, nil), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode, "age=%s must be accepted", ok)
	}
}

func TestListReportsOpenEndedTopBucket(t *testing.T) {
	te := newTestEnv()
	user := te.addUser(t, "Alice Rahman", "alice@example.com", "1234567890", "01700000001", "secret1")
	te.addReport(t, user, "Dhaka", "Savar", 104)
	te.addReport(t, user, "Dhaka", "Savar", 45)

	resp, err := te.app.Test(httptest.NewRequest(fiber.MethodGet, "/api/register/?age=100%2B", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), decodeBody(t, resp)["count"])
}

// ---- claim workflow ----

func TestClaimWorkflowEndToEnd(t *testing.T) {
	te := newTestEnv()
	alice := te.addUser(t, "Alice Rahman", "alice@example.com", "1000000001", "01700000001", "secret1")
	bob := te.addUser(t, "Bob Hossain", "bob@example.com", "1000000002", "01700000002", "secret1")
	carol := te.addUser(t, "Carol Akter", "carol@example.com", "1000000003", "01700000003", "secret1")

	report := te.addReport(t, alice, "Dhaka", "Savar", 45)
	claimURL := "/api/register/" + report.UUID + "/claim"
	approveURL := "/api/register/" + report.UUID + "/approve"

	// Bob claims: unclaimed -> pending
	resp, err := te.app.Test(formRequest(t, fiber.MethodPatch, claimURL, nil, te.tokenFor(t, bob)), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	rep := decodeBody(t, resp)["report"].(map[string]interface{})
	assert.Equal(t, "pending", rep["status"])
	assert.Equal(t, []interface{}{"Bob Hossain"}, rep["claimRequests"])

	// Carol claims too: stays pending, claim appended
	resp, err = te.app.Test(formRequest(t, fiber.MethodPatch, claimURL, nil, te.tokenFor(t, carol)), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	rep = decodeBody(t, resp)["report"].(map[string]interface{})
	assert.Equal(t, "pending", rep["status"])
	assert.Equal(t, []interface{}{"Bob Hossain", "Carol Akter"}, rep["claimRequests"])

	// Bob cannot approve a report he did not file
	resp, err = te.app.Test(formRequest(t, fiber.MethodPost, approveURL, nil, te.tokenFor(t, bob)), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	// Alice approves: report leaves the active set
	resp, err = te.app.Test(formRequest(t, fiber.MethodPost, approveURL, nil, te.tokenFor(t, alice)), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	_, err = te.reports.GetByUUID(report.UUID)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	getResp, err := te.app.Test(httptest.NewRequest(fiber.MethodGet, "/api/register/"+report.UUID, nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, getResp.StatusCode)
}

func TestClaimIsIdempotentPerClaimant(t *testing.T) {
	te := newTestEnv()
	alice := te.addUser(t, "Alice Rahman", "alice@example.com", "1000000001", "01700000001", "secret1")
	bob := te.addUser(t, "Bob Hossain", "bob@example.com", "1000000002", "01700000002", "secret1")

	report := te.addReport(t, alice, "Dhaka", "Savar", 45)
	claimURL := "/api/register/" + report.UUID + "/claim"

	for i := 0; i < 2; i++ {
		resp, err := te.app.Test(formRequest(t, fiber.MethodPatch, claimURL, nil, te.tokenFor(t, bob)), -1)
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		rep := decodeBody(t, resp)["report"].(map[string]interface{})
		assert.Equal(t, []interface{}{"Bob Hossain"}, rep["claimRequests"])
	}
}

func TestApproveWithoutPendingClaimConflicts(t *testing.T) {
	te := newTestEnv()
	alice := te.addUser(t, "Alice Rahman", "alice@example.com", "1000000001", "01700000001", "secret1")

	report := te.addReport(t, alice, "Dhaka", "Savar", 45)

	resp, err := te.app.Test(formRequest(t, fiber.MethodPost, "/api/register/"+report.UUID+"/approve", nil, te.tokenFor(t, alice)), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

// staleReportRepo simulates a report changing between the controller's read
// and its conditional resolve: Resolve always reports a stale view, and with
// vanish set the follow-up read finds the report gone.
type staleReportRepo struct {
	*memReportRepo
	vanish bool
	reads  int
}

func (r *staleReportRepo) GetByUUID(uuid string) (*models.Report, error) {
	r.reads++
	if r.vanish && r.reads > 1 {
		return nil, gorm.ErrRecordNotFound
	}
	return r.memReportRepo.GetByUUID(uuid)
}

func (r *staleReportRepo) Resolve(reportID uint) error {
	return repository.ErrStaleState
}

func TestApproveStaleStateAnswersFromFreshRead(t *testing.T) {
	for _, tc := range []struct {
		name   string
		vanish bool
		status int
	}{
		{"report already resolved elsewhere", true, fiber.StatusNotFound},
		{"report still present", false, fiber.StatusConflict},
	} {
		t.Run(tc.name, func(t *testing.T) {
			te := newTestEnv()
			alice := te.addUser(t, "Alice Rahman", "alice@example.com", "1000000001", "01700000001", "secret1")
			bob := te.addUser(t, "Bob Hossain", "bob@example.com", "1000000002", "01700000002", "secret1")

			report := te.addReport(t, alice, "Dhaka", "Savar", 45)
			require.NoError(t, te.reports.RequestClaim(report.ID, bob.FullName))

			stale := &staleReportRepo{memReportRepo: te.reports, vanish: tc.vanish}
			repository.SetGlobalRepositoriesForTesting(&repository.Repositories{
				User:   te.users,
				Report: stale,
				Carbon: te.carbon,
			})

			resp, err := te.app.Test(formRequest(t, fiber.MethodPost, "/api/register/"+report.UUID+"/approve", nil, te.tokenFor(t, alice)), -1)
			require.NoError(t, err)
			assert.Equal(t, tc.status, resp.StatusCode)
		})
	}
}

func TestClaimUnknownReport(t *testing.T) {
	te := newTestEnv()
	bob := te.addUser(t, "Bob Hossain", "bob@example.com", "1000000002", "01700000002", "secret1")

	resp, err := te.app.Test(formRequest(t, fiber.MethodPatch, "/api/register/missing/claim", nil, te.tokenFor(t, bob)), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

// ---- carbon ----

func TestCarbonStatsEndpoint(t *testing.T) {
	te := newTestEnv()
	now := time.Now()
	te.carbon.records = []models.CarbonEmission{
		{Endpoint: "/api/register/", Method: "GET", BytesTransferred: 2048, CO2Grams: 0.004, EnergyJoules: 2.5, ResponseTimeMS: 12, CreatedAt: now.Add(-time.Minute)},
		{Endpoint: "/api/register/", Method: "POST", BytesTransferred: 1024, CO2Grams: 0.002, EnergyJoules: 1.2, ResponseTimeMS: 20, CreatedAt: now.Add(-2 * time.Minute)},
	}

	resp, err := te.app.Test(httptest.NewRequest(fiber.MethodGet, "/api/carbon/stats?timeframe=1h", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, true, body["success"])
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "1h", data["timeframe"])
	assert.Equal(t, float64(2), data["totalRequests"])
	assert.InDelta(t, 0.006, data["totalCO2Grams"].(float64), 1e-9)
	assert.Len(t, data["endpointBreakdown"], 2)
}

func TestApiTestEndpoint(t *testing.T) {
	te := newTestEnv()

	resp, err := te.app.Test(httptest.NewRequest(fiber.MethodGet, "/api/test", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, decodeBody(t, resp)["message"])
}
