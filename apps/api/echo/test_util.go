package echoapi

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copalsoft/copalschool/core"
	"github.com/copalsoft/copalschool/core/notification"
	"github.com/copalsoft/copalschool/core/school"
	"github.com/copalsoft/copalschool/core/student"
	"github.com/copalsoft/copalschool/core/user"
	emailsvc "github.com/copalsoft/copalschool/services/email"
	logsvc "github.com/copalsoft/copalschool/services/logger"
	smssvc "github.com/copalsoft/copalschool/services/sms"
	dummydb "github.com/copalsoft/copalschool/storage/database/dummy"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

type testApp struct {
	server Server
	usrSvc user.Service
	schSvc school.Service
	stdSvc student.Service
	notSvc notification.Service
}

func setupAPI(t *testing.T) *testApp {
	c := &core.Config{
		TestMode:                 true,
		AppName:                  "CopalSchool",
		WorkDir:                  core.Getwd(),
		SecretKey:                []byte("secret"),
		DefaultFromEmail:         mail.Address{Name: "CopalSchool", Address: "noreply@localhost"},
		PasswordResetCodeTimeout: time.Hour,
		Server: core.ServerConfig{
			JWTExpirationDelta:        10 * time.Minute,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
	}
	user.Configure(c)
	Configure(c)
	emailsvc.ClearSentMessages()
	smssvc.ClearSentSMS()

	db, err := dummydb.Open()
	require.NoError(t, err)

	logger := logsvc.NewStdLogger(log.New(os.Stdout, "TEST : ", log.LstdFlags))
	mailSvc := emailsvc.NewConsoleService(c)
	usrSvc := user.NewService(dummydb.NewUserRepository(db), mailSvc, logger)
	schSvc := school.NewService(dummydb.NewSchoolRepository(db), logger)
	stdSvc := student.NewService(dummydb.NewStudentRepository(db), usrSvc, logger)
	notSvc := notification.NewService(dummydb.NewNotificationRepository(db), usrSvc, mailSvc, smssvc.NewConsoleSender(true), logger)

	app := &testApp{
		usrSvc: usrSvc,
		schSvc: schSvc,
		stdSvc: stdSvc,
		notSvc: notSvc,
	}
	app.server = NewServer(&Options{
		Address:        "localhost:8000",
		DisableReqLogs: true,
		Logger:         logger,
		UserSvc:        usrSvc,
		SchSvc:         schSvc,
		StdSvc:         stdSvc,
		NotSvc:         notSvc,
	})
	return app
}

func (app *testApp) createUser(t *testing.T, name, uname, role, pwd string) user.User {
	usr, err := app.usrSvc.Create(user.NewUser{
		Name:            name,
		Username:        uname,
		Email:           uname + "@test.cm",
		Role:            role,
		Password:        pwd,
		PasswordConfirm: pwd,
	})
	require.NoError(t, err)
	return usr
}

// one user per portal, the usual cast of an API test
func (app *testApp) createAllRoles(t *testing.T) (admin, director, teacher, parent user.User) {
	admin = app.createUser(t, "Admin", "admin", user.RoleAdmin, "v3rys3cr3t")
	director = app.createUser(t, "Director", "director", user.RoleDirector, "v3rys3cr3t")
	teacher = app.createUser(t, "Teacher", "teacher", user.RoleTeacher, "v3rys3cr3t")
	parent = app.createUser(t, "Parent", "parent", user.RoleParent, "v3rys3cr3t")
	return
}

func (app *testApp) getToken(t *testing.T, usr user.User) string {
	token, err := GenerateToken(GetUserClaims(usr))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func (app *testApp) do(tt httpTest) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
	app.server.ServeHTTP(rec, req)
	return rec
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body = %s", rec.Code, tt.wantCode, rec.Body.String())
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %s; wantData %s", rec.Body.Bytes(), tt.wantData)
	}
}
