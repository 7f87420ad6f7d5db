package tests

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"

	echoapi "github.com/trezcool/ratiba/apps/api/echo"
	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/user"
)

func Test_userApi_userLogin(t *testing.T) {
	ta := newTestApp()

	hero := user.CreateUser(t, ta.usrRepo, "Hero", "hero01", "hero@test.cd", "LolC@t123", []string{user.RoleStudent}, true)
	_ = user.CreateUser(t, ta.usrRepo, "N Dog", "ndog", "ndog@test.cd", "LolC@t123", []string{user.RoleStudent}, false)

	reqMsg := "this field is required"
	tests := []httpTest{
		{
			name: "required fields", wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"username": reqMsg, "password": reqMsg}),
		},
		{
			name: "unknown user", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, echoapi.LoginRequest{Username: "ghost", Password: "lol"}),
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "wrong password", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, echoapi.LoginRequest{Username: "hero01", Password: "lol"}),
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "deactivated account", wantCode: http.StatusForbidden,
			body:     marchallObj(t, echoapi.LoginRequest{Username: "ndog", Password: "LolC@t123"}),
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{
			name: "login by username", wantCode: http.StatusOK,
			body: marchallObj(t, echoapi.LoginRequest{Username: "hero01", Password: "LolC@t123"}),
		},
		{
			name: "login by email (case-insensitive)", wantCode: http.StatusOK,
			body: marchallObj(t, echoapi.LoginRequest{Username: "Hero@Test.CD", Password: "LolC@t123"}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/users/login"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			ta.app.ServeHTTP(rec, req)

			// cannot guess the token.. just check that it's not empty
			if tt.wantCode == http.StatusOK {
				if rec.Code != tt.wantCode {
					t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				var respData echoapi.LoginResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
					t.Errorf("json.Unmarshal() failed! err %v", err)
				}
				if respData.Token == "" {
					t.Error("failed! empty token")
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}

	// successful login must set lastLogin
	hero, err := ta.usrRepo.GetUser(ctx, user.GetFilter{ID: hero.ID})
	if err != nil {
		t.Fatalf("GetUser(): %v", err)
	}
	if hero.LastLogin.IsZero() {
		t.Error("failed! lastLogin not set")
	}
}

func Test_userApi_userRefreshToken(t *testing.T) {
	ta := newTestApp()

	naughty := user.CreateUser(t, ta.usrRepo, "N Dog", "ndog", "ndog@test.cd", "", []string{user.RoleStudent}, false)
	student := user.CreateUser(t, ta.usrRepo, "Hero", "hero01", "hero@test.cd", "", []string{user.RoleStudent}, true)

	now := time.Now()
	unrefreshableClaims := &echoapi.Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    core.Conf.AppName,
			Subject:   student.ID,
			Audience:  "Ratiba",
			ExpiresAt: now.Add(core.Conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		OrigIssuedAt: now.Add(-2 * core.Conf.Server.JWTRefreshExpirationDelta).Unix(), // older than threshold
		IsStudent:    student.IsStudent(),
		Roles:        student.Roles,
	}
	unrefreshableToken, err := echoapi.GenerateToken(unrefreshableClaims)
	if err != nil {
		t.Fatalf("GenerateToken(): %v", err)
	}

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Inactive user not allowed", token: getToken(t, naughty), wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"})},
		{name: "Refresh period expired", token: unrefreshableToken, wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "refresh has expired"})},
		{name: "Token refreshed", token: getToken(t, student), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/users/token-refresh"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			ta.app.ServeHTTP(rec, req)

			// cannot guess new token.. just check that it's not empty
			if tt.wantCode == http.StatusOK {
				if rec.Code != tt.wantCode {
					t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				var respData echoapi.LoginResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
					t.Errorf("json.Unmarshal() failed! err %v", err)
				}
				if respData.Token == "" {
					t.Error("failed! empty token")
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_userRegister(t *testing.T) {
	ta := newTestApp()

	admin := user.CreateUser(t, ta.usrRepo, "Admin", "admin1", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	student := user.CreateUser(t, ta.usrRepo, "Hero", "hero01", "hero@test.cd", "", []string{user.RoleStudent}, true)
	adminToken := getToken(t, admin)

	newUser := func(name, uname, email string, roles ...string) []byte {
		return marchallObj(t, user.NewUser{
			Name: name, Username: uname, Email: email,
			Password: "LolC@t123", PasswordConfirm: "LolC@t123",
			Roles: roles,
		})
	}

	reqMsg := "this field is required"
	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Admin required", token: getToken(t, student), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{
			name: "required fields", token: adminToken, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"name": reqMsg, "password": "password must contain at least 8 characters", "password_confirm": reqMsg}),
		},
		{
			name: "username too short", token: adminToken, wantCode: http.StatusBadRequest,
			body:     newUser("Shorty", "st", "shorty@test.cd"),
			wantData: marchallObj(t, map[string]string{"username": "username must be at least 6 characters in length"}),
		},
		{
			name: "duplicate email", token: adminToken, wantCode: http.StatusBadRequest,
			body:     newUser("Copy Cat", "copycat", "hero@test.cd"),
			wantData: marchallObj(t, map[string]string{"email": "a user with this email already exists"}),
		},
		{
			name: "duplicate username", token: adminToken, wantCode: http.StatusBadRequest,
			body:     newUser("Copy Cat", "hero01", "copycat@test.cd"),
			wantData: marchallObj(t, map[string]string{"username": "a user with this username already exists"}),
		},
		{
			name: "cannot grant roles above own", token: adminToken, wantCode: http.StatusBadRequest,
			body:     newUser("Boss", "bigboss", "boss@test.cd", user.RoleAdminOwner),
			wantData: marchallObj(t, map[string]string{"roles": "not enough rights to set these roles"}),
		},
		{
			name: "registered", token: adminToken, wantCode: http.StatusCreated,
			body: newUser("New Kid", "newkid", "newkid@test.cd", user.RoleStudent),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/users/register"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			ta.app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusCreated {
				if rec.Code != tt.wantCode {
					t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				var usr user.User
				if err := json.Unmarshal(rec.Body.Bytes(), &usr); err != nil {
					t.Errorf("json.Unmarshal() failed! err %v", err)
				}
				if usr.ID == "" {
					t.Error("failed! empty user ID")
				}
				if usr.IsActive == nil || !*usr.IsActive {
					t.Error("failed! new user not active")
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_userQuery(t *testing.T) {
	ta := newTestApp()

	path := func(search string, isActive *bool, roles ...string) string {
		v := make(url.Values)
		if search != "" {
			v.Add("search", search)
		}
		if isActive != nil {
			v.Add("is_active", strconv.FormatBool(*isActive))
		}
		for _, r := range roles {
			v.Add("role", r)
		}
		return "/v1/users?" + v.Encode()
	}
	bPtr := func(b bool) *bool { return &b }

	now := time.Now()
	t1 := now.Add(1 * time.Second)
	t2 := now.Add(2 * time.Second)
	t3 := now.Add(3 * time.Second)
	t4 := now.Add(4 * time.Second)
	t5 := now.Add(5 * time.Second)

	usr1 := user.CreateUser(t, ta.usrRepo, "User", "awe000", "awe@test.cd", "", nil, true, now)
	student := user.CreateUser(t, ta.usrRepo, "Hero", "hero01", "hero@test.cd", "", []string{user.RoleStudent}, true, t1)
	admin := user.CreateUser(t, ta.usrRepo, "Admin", "admin1", "admin@test.cd", "", []string{user.RoleAdmin}, true, t2)
	principal := user.CreateUser(t, ta.usrRepo, "Principal", "princip", "princip@test.cd", "", []string{user.RoleAdminPrincipal}, true, t3)
	teacher := user.CreateUser(t, ta.usrRepo, "Teacher", "teach1", "teacher@test.cd", "", []string{user.RoleTeacher}, true, t4)
	naughty := user.CreateUser(t, ta.usrRepo, "N Dog", "ndog00", "ndog@test.cd", "", []string{user.RoleStudent}, false, t5)

	adminToken := getToken(t, admin)
	empty := marchallList(t, []interface{}{}...)

	tests := []httpTest{
		{name: "Auth required", path: "/v1/users", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Admin required", path: "/v1/users", token: getToken(t, student),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "Get all", path: "/v1/users", token: adminToken,
			wantData: marchallList(t, usr1, student, admin, principal, teacher, naughty),
		},
		// filtering
		{name: "search (unknown)", path: path("lol", nil), token: adminToken, wantData: empty},
		{name: "search=HER", path: path("HER", nil), token: adminToken, wantData: marchallList(t, student, teacher)},
		{name: "role (unknown)", path: path("", nil, "lol"), token: adminToken, wantData: empty},
		{name: "role=admin:", path: path("", nil, user.RoleAdmin), token: adminToken, wantData: marchallList(t, admin, principal)},
		{name: "role=teacher:", path: path("", nil, user.RoleTeacher), token: adminToken, wantData: marchallList(t, teacher)},
		{
			name: "role=teacher:,student:", path: path("", nil, user.RoleTeacher, user.RoleStudent),
			token: adminToken, wantData: marchallList(t, student, teacher, naughty),
		},
		{
			name: "is_active=true", path: path("", bPtr(true)),
			token: adminToken, wantData: marchallList(t, usr1, student, admin, principal, teacher),
		},
		{name: "is_active=false", path: path("", bPtr(false)), token: adminToken, wantData: marchallList(t, naughty)},
		{name: "combo (empty)", path: path("dog", bPtr(true), user.RoleStudent), token: adminToken, wantData: empty},
		{name: "combo (found)", path: path("dog", bPtr(false), user.RoleStudent), token: adminToken, wantData: marchallList(t, naughty)},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			ta.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_userQueryRoles(t *testing.T) {
	ta := newTestApp()

	admin := user.CreateUser(t, ta.usrRepo, "Admin", "admin1", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	student := user.CreateUser(t, ta.usrRepo, "Hero", "hero01", "hero@test.cd", "", []string{user.RoleStudent}, true)

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Admin required", token: getToken(t, student), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "Get all roles", token: getToken(t, admin), wantCode: http.StatusOK, wantData: marchallObj(t, user.Roles)},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		tt.path = "/v1/users/roles"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			ta.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_userRetrieve(t *testing.T) {
	ta := newTestApp()

	admin := user.CreateUser(t, ta.usrRepo, "Admin", "admin1", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	student := user.CreateUser(t, ta.usrRepo, "Hero", "hero01", "hero@test.cd", "", []string{user.RoleStudent}, true)
	other := user.CreateUser(t, ta.usrRepo, "Other", "other1", "other@test.cd", "", []string{user.RoleStudent}, true)

	studentToken := getToken(t, student)

	tests := []httpTest{
		{name: "Auth required", path: "/v1/users/" + student.ID, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Non-admins can only see themselves", path: "/v1/users/" + other.ID, token: studentToken,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{name: "Get self", path: "/v1/users/" + student.ID, token: studentToken, wantCode: http.StatusOK, wantData: marchallObj(t, student)},
		{name: "Admins can see anyone", path: "/v1/users/" + other.ID, token: getToken(t, admin), wantCode: http.StatusOK, wantData: marchallObj(t, other)},
		{
			name: "Not found", path: "/v1/users/4e8ff0d3-f518-4af8-9ab3-39c60ea28afb", token: getToken(t, admin),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			ta.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
