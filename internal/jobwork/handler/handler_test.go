package handler_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/bitfantasy/jobwork/internal/jobwork/handler"
	"github.com/bitfantasy/jobwork/internal/jobwork/testutil"
	"github.com/bitfantasy/jobwork/internal/middleware"
	"github.com/gin-gonic/gin"
)

var testRoute = []string{"CUT", "WELD", "PAINT"}

// setupAPI wires the job-tracking routes the way the server does
func setupAPI(t *testing.T) (*testutil.TestEnv, *gin.Engine) {
	t.Helper()
	env := testutil.Setup(t)
	testutil.SeedMasterData(t, env.Repos, "acme", testRoute)

	h := handler.NewHandlers(env.Services, env.Hub, "test")
	router := testutil.SetupRouter()
	api := testutil.AuthGroup(router, "/api/v1")

	api.POST("/jobs", middleware.RequireRole(middleware.RoleSupervisor), h.Job.Create)
	api.GET("/jobs", h.Job.List)
	api.GET("/jobs/:id", h.Job.Get)
	api.PATCH("/operations/:id/status", h.Operation.UpdateStatus)
	api.PATCH("/operations/:id/plan", middleware.RequireRole(middleware.RoleSupervisor), h.Operation.Plan)
	api.POST("/operations/:id/production", h.Operation.RecordProduction)
	api.GET("/operations/:id/production", h.Operation.ListProduction)
	api.GET("/kanban", h.Metrics.Kanban)

	return env, router
}

func TestCreateJobRBAC(t *testing.T) {
	_, router := setupAPI(t)

	body := gin.H{
		"customer_id":   "cust-1",
		"part_id":       "part-1",
		"quantity":      100,
		"received_date": "2026-08-01",
		"due_date":      "2026-12-31",
		"priority":      "HIGH",
	}

	w := testutil.DoRequest(router, "POST", "/api/v1/jobs", body, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("no token: status = %d, want 401", w.Code)
	}

	w = testutil.DoRequest(router, "POST", "/api/v1/jobs", body, testutil.OperatorToken("acme"))
	if w.Code != http.StatusForbidden {
		t.Fatalf("operator: status = %d, want 403", w.Code)
	}

	w = testutil.DoRequest(router, "POST", "/api/v1/jobs", body, testutil.SupervisorToken("acme"))
	if w.Code != http.StatusCreated {
		t.Fatalf("supervisor: status = %d, body = %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	if data["job_number"] != "JOB-ACME-0001" {
		t.Errorf("job_number = %v", data["job_number"])
	}
}

func TestJobCrossTenantHidden(t *testing.T) {
	env, router := setupAPI(t)
	job := testutil.CreateTestJob(t, env, "acme", 100)

	w := testutil.DoRequest(router, "GET", "/api/v1/jobs/"+job.ID, nil, testutil.OperatorToken("acme"))
	if w.Code != http.StatusOK {
		t.Fatalf("own tenant: status = %d", w.Code)
	}

	w = testutil.DoRequest(router, "GET", "/api/v1/jobs/"+job.ID, nil, testutil.OperatorToken("rival"))
	if w.Code != http.StatusNotFound {
		t.Fatalf("foreign tenant: status = %d, want 404", w.Code)
	}
}

func TestPlanCapacityConflictResponse(t *testing.T) {
	env, router := setupAPI(t)

	planBody := gin.H{
		"machine_id":         "machine-1",
		"shift_id":           "shift-day",
		"planned_start_date": "2026-09-01",
		"planned_end_date":   "2026-09-05",
	}

	// fill the slot to the capacity ceiling
	for i := 0; i < 3; i++ {
		job := testutil.CreateTestJob(t, env, "acme", 100)
		w := testutil.DoRequest(router, "PATCH",
			fmt.Sprintf("/api/v1/operations/%s-CUT/plan", job.ID),
			planBody, testutil.SupervisorToken("acme"))
		if w.Code != http.StatusOK {
			t.Fatalf("plan %d: status = %d, body = %s", i, w.Code, w.Body.String())
		}
	}

	job := testutil.CreateTestJob(t, env, "acme", 100)
	w := testutil.DoRequest(router, "PATCH",
		fmt.Sprintf("/api/v1/operations/%s-CUT/plan", job.ID),
		planBody, testutil.SupervisorToken("acme"))
	if w.Code != http.StatusConflict {
		t.Fatalf("over capacity: status = %d, want 409", w.Code)
	}
	resp := testutil.ParseResponse(w)
	if resp["code"].(float64) != 40901 {
		t.Errorf("code = %v, want 40901", resp["code"])
	}
	data := resp["data"].(map[string]interface{})
	clashes := data["clashes"].([]interface{})
	if len(clashes) != 3 {
		t.Errorf("clashes = %d, want 3", len(clashes))
	}

	// planning forbidden to operators regardless of capacity
	w = testutil.DoRequest(router, "PATCH",
		fmt.Sprintf("/api/v1/operations/%s-CUT/plan", job.ID),
		planBody, testutil.OperatorToken("acme"))
	if w.Code != http.StatusForbidden {
		t.Fatalf("operator plan: status = %d, want 403", w.Code)
	}
}

func TestShopFloorFlow(t *testing.T) {
	env, router := setupAPI(t)
	job := testutil.CreateTestJob(t, env, "acme", 50)
	supervisor := testutil.SupervisorToken("acme")
	operator := testutil.OperatorToken("acme")
	cutID := job.ID + "-CUT"

	w := testutil.DoRequest(router, "PATCH", "/api/v1/operations/"+cutID+"/plan", gin.H{
		"machine_id":         "machine-1",
		"shift_id":           "shift-day",
		"planned_start_date": "2026-09-01",
		"planned_end_date":   "2026-09-03",
	}, supervisor)
	if w.Code != http.StatusOK {
		t.Fatalf("plan: status = %d, body = %s", w.Code, w.Body.String())
	}

	w = testutil.DoRequest(router, "PATCH", "/api/v1/operations/"+cutID+"/status",
		gin.H{"status": "IN_PROGRESS"}, operator)
	if w.Code != http.StatusOK {
		t.Fatalf("start: status = %d, body = %s", w.Code, w.Body.String())
	}

	w = testutil.DoRequest(router, "POST", "/api/v1/operations/"+cutID+"/production",
		gin.H{"produced_qty": 20, "scrap_qty": 1}, operator)
	if w.Code != http.StatusCreated {
		t.Fatalf("record: status = %d, body = %s", w.Code, w.Body.String())
	}

	w = testutil.DoRequest(router, "PATCH", "/api/v1/operations/"+cutID+"/status",
		gin.H{"status": "COMPLETED", "quantity_completed": 49, "quantity_rejected": 1}, operator)
	if w.Code != http.StatusOK {
		t.Fatalf("complete: status = %d, body = %s", w.Code, w.Body.String())
	}

	// the job now sits in the WELD column
	w = testutil.DoRequest(router, "GET", "/api/v1/kanban", nil, operator)
	if w.Code != http.StatusOK {
		t.Fatalf("kanban: status = %d", w.Code)
	}
	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	found := ""
	for _, raw := range data["stages"].([]interface{}) {
		stage := raw.(map[string]interface{})
		for _, rawJob := range stage["jobs"].([]interface{}) {
			if rawJob.(map[string]interface{})["job_id"] == job.ID {
				found = stage["stage_id"].(string)
			}
		}
	}
	if found != "WELD" {
		t.Errorf("stage after CUT completion = %q, want WELD", found)
	}
}
