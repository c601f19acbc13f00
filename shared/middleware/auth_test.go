package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("test-secret")

func signToken(t *testing.T, secret []byte, userID string, expiresAt time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
	signed, err := token.SignedString(secret)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func signClaims(t *testing.T, claims jwt.Claims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func newAuthTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/whoami", AuthMiddleware(testSecret), func(c *gin.Context) {
		userID, _ := GetUserID(c)
		c.String(http.StatusOK, userID)
	})
	return r
}

func noneToken(t *testing.T) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		UserID:           "user-1",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func TestAuthMiddleware(t *testing.T) {
	valid := signToken(t, testSecret, "user-1", time.Now().Add(time.Hour))

	tests := []struct {
		name           string
		header         string
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "success - valid bearer token",
			header:         "Bearer " + valid,
			expectedStatus: http.StatusOK,
			expectedBody:   "user-1",
		},
		{
			name:           "unauthorized - missing header",
			header:         "",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "unauthorized - wrong scheme",
			header:         "Basic " + valid,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "unauthorized - expired token",
			header:         "Bearer " + signToken(t, testSecret, "user-1", time.Now().Add(-time.Minute)),
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "unauthorized - signed with another secret",
			header:         "Bearer " + signToken(t, []byte("other"), "user-1", time.Now().Add(time.Hour)),
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name: "success - subject claim only",
			header: "Bearer " + signClaims(t, jwt.RegisteredClaims{
				Subject:   "user-2",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			}),
			expectedStatus: http.StatusOK,
			expectedBody:   "user-2",
		},
		{
			name:           "unauthorized - token without expiry",
			header:         "Bearer " + signClaims(t, Claims{UserID: "user-1"}),
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "unauthorized - none algorithm",
			header:         "Bearer " + noneToken(t),
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "unauthorized - token without user id",
			header:         "Bearer " + signToken(t, testSecret, "", time.Now().Add(time.Hour)),
			expectedStatus: http.StatusUnauthorized,
		},
	}

	router := newAuthTestRouter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodGet, "/whoami", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d. body: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
			if tt.expectedBody != "" && w.Body.String() != tt.expectedBody {
				t.Errorf("expected body %q, got %q", tt.expectedBody, w.Body.String())
			}
		})
	}
}
