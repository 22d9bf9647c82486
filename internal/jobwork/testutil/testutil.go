// Package testutil provides shared helpers for service and handler tests.
// Tests run against the in-memory store so they need no external services.
package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bitfantasy/jobwork/internal/jobwork/entity"
	"github.com/bitfantasy/jobwork/internal/jobwork/repository"
	"github.com/bitfantasy/jobwork/internal/jobwork/repository/memory"
	"github.com/bitfantasy/jobwork/internal/jobwork/service"
	"github.com/bitfantasy/jobwork/internal/jobwork/sse"
	"github.com/bitfantasy/jobwork/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const JWTSecret = "jobwork-test-jwt-secret"

// TestEnv bundles the pieces most tests need
type TestEnv struct {
	Repos    *repository.Repositories
	Services *service.Services
	Hub      *sse.Hub
}

// Setup builds services backed by the in-memory store
func Setup(t *testing.T) *TestEnv {
	t.Helper()
	repos := memory.NewRepositories()
	hub := sse.NewHub()
	services := service.NewServices(repos, nil, hub, zap.NewNop(), service.Options{})
	return &TestEnv{Repos: repos, Services: services, Hub: hub}
}

// SetupRouter creates a gin test router
func SetupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(gin.Recovery())
	return r
}

// AuthGroup creates an API group with JWT auth middleware for testing
func AuthGroup(r *gin.Engine, path string) *gin.RouterGroup {
	return r.Group(path, middleware.JWTAuth(JWTSecret))
}

// GenerateTestToken creates a valid JWT token for testing
func GenerateTestToken(userID, name, tenantID, role string) string {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":       userID,
		"uid":       userID,
		"name":      name,
		"tenant_id": tenantID,
		"role":      role,
		"iss":       "jobwork",
		"iat":       now.Unix(),
		"exp":       now.Add(24 * time.Hour).Unix(),
		"jti":       fmt.Sprintf("test-jti-%d", now.UnixNano()),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, _ := token.SignedString([]byte(JWTSecret))
	return tokenString
}

// SupervisorToken returns a token for a supervisor in the given tenant
func SupervisorToken(tenantID string) string {
	return GenerateTestToken("test-supervisor", "Test Supervisor", tenantID, middleware.RoleSupervisor)
}

// OperatorToken returns a token for an operator in the given tenant
func OperatorToken(tenantID string) string {
	return GenerateTestToken("test-operator", "Test Operator", tenantID, middleware.RoleOperator)
}

// DoRequest executes an HTTP request against the test router
func DoRequest(r *gin.Engine, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ParseResponse parses the JSON response body into a map
func ParseResponse(w *httptest.ResponseRecorder) map[string]interface{} {
	var result map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &result)
	return result
}

// SeedMasterData creates a customer, a part with the given route, the
// referenced operation types and one machine and shift in the tenant.
func SeedMasterData(t *testing.T, repos *repository.Repositories, tenantID string, route []string) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()

	if err := repos.Master.CreateCustomer(ctx, &entity.Customer{
		ID: "cust-1", TenantID: tenantID, Name: "测试客户", CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		t.Fatalf("seed customer: %v", err)
	}
	if err := repos.Master.CreatePart(ctx, &entity.Part{
		ID: "part-1", TenantID: tenantID, Name: "测试零件",
		DefaultOperationRoute: route, CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		t.Fatalf("seed part: %v", err)
	}
	for _, opType := range route {
		if err := repos.Master.CreateOperationType(ctx, &entity.OperationType{
			ID: opType, Name: opType + "工序", CreatedAt: now, UpdatedAt: now,
		}); err != nil {
			t.Fatalf("seed operation type: %v", err)
		}
	}
	if err := repos.Master.CreateMachine(ctx, &entity.Machine{
		ID: "machine-1", TenantID: tenantID, Name: "一号机", CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		t.Fatalf("seed machine: %v", err)
	}
	if err := repos.Master.CreateShift(ctx, &entity.Shift{
		ID: "shift-day", TenantID: tenantID, Name: "白班", CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		t.Fatalf("seed shift: %v", err)
	}
}

// CreateTestJob creates a job with a generated route and returns it
func CreateTestJob(t *testing.T, env *TestEnv, tenantID string, quantity int) *entity.Job {
	t.Helper()
	job, err := env.Services.Job.CreateJob(context.Background(), service.CreateJobRequest{
		TenantID:     tenantID,
		UserID:       "test-supervisor",
		CustomerID:   "cust-1",
		PartID:       "part-1",
		Quantity:     quantity,
		ReceivedDate: "2026-08-01",
		DueDate:      "2026-12-31",
		Priority:     entity.JobPriorityMedium,
	})
	if err != nil {
		t.Fatalf("create test job: %v", err)
	}
	return job
}
