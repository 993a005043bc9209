package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/task-realtime-api/internal/models"
	"github.com/yukikurage/task-realtime-api/internal/realtime"
)

// TaskHandlerTestSuite defines the test suite for TaskHandler
type TaskHandlerTestSuite struct {
	suite.Suite
	env     *testEnv
	creator string
	other   string
}

// SetupTest runs before each test
func (suite *TaskHandlerTestSuite) SetupTest() {
	suite.env = setupTestEnv(suite.T())
	suite.creator = suite.env.createUser(suite.T(), "U1", "User One")
	suite.other = suite.env.createUser(suite.T(), "U2", "User Two")
}

func (suite *TaskHandlerTestSuite) createTask(body map[string]interface{}) map[string]interface{} {
	w, response := suite.env.request(suite.T(), http.MethodPost, "/api/v1/tasks", body, suite.creator)
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	return dataOf(suite.T(), response)["task"].(map[string]interface{})
}

func taskBody(title string) map[string]interface{} {
	return map[string]interface{}{
		"title":       title,
		"description": "desc",
		"dueDate":     "2025-12-31",
	}
}

func (suite *TaskHandlerTestSuite) TestCreateTask_Success() {
	body := taskBody("Test Task")
	body["priority"] = "HIGH"
	body["assignedToId"] = "U2"

	w, response := suite.env.request(suite.T(), http.MethodPost, "/api/v1/tasks", body, suite.creator)

	assert.Equal(suite.T(), http.StatusCreated, w.Code)
	assert.Equal(suite.T(), true, response["success"])
	assert.Equal(suite.T(), "Task created successfully", response["message"])
	task := dataOf(suite.T(), response)["task"].(map[string]interface{})
	assert.Equal(suite.T(), "HIGH", task["priority"])
	assert.Equal(suite.T(), "TODO", task["status"])
	assert.Equal(suite.T(), "U2", task["assignedToId"])
	assert.Equal(suite.T(), "User Two", task["assignedTo"].(map[string]interface{})["name"])

	suite.Require().Len(suite.env.publisher.broadcasts, 1)
	created, ok := suite.env.publisher.broadcasts[0].(realtime.TaskCreated)
	suite.Require().True(ok)
	assert.Equal(suite.T(), "Test Task", created.Task.Title)

	suite.Require().Len(suite.env.publisher.targeted, 1)
	assert.Equal(suite.T(), "U2", suite.env.publisher.targeted[0].userID)
	notification := suite.env.publisher.targeted[0].event.(realtime.NotificationNew)
	assert.Equal(suite.T(), `You have been assigned to task: "Test Task"`, notification.Message)
}

func (suite *TaskHandlerTestSuite) TestCreateTask_ValidationErrorEnvelope() {
	w, response := suite.env.request(suite.T(), http.MethodPost, "/api/v1/tasks", taskBody(strings.Repeat("x", 101)), suite.creator)

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	assert.Equal(suite.T(), false, response["success"])
	assert.Equal(suite.T(), "VALIDATION_ERROR", response["code"])
	fields := response["errors"].([]interface{})
	assert.Equal(suite.T(), "title", fields[0].(map[string]interface{})["field"])
	assert.Empty(suite.T(), suite.env.publisher.broadcasts)
}

func (suite *TaskHandlerTestSuite) TestCreateTask_UnknownAssignee() {
	body := taskBody("Task")
	body["assignedToId"] = "ghost"

	w, response := suite.env.request(suite.T(), http.MethodPost, "/api/v1/tasks", body, suite.creator)

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	fields := response["errors"].([]interface{})
	assert.Equal(suite.T(), "assignedToId", fields[0].(map[string]interface{})["field"])
}

func (suite *TaskHandlerTestSuite) TestCreateTask_RequiresAuthentication() {
	w, response := suite.env.request(suite.T(), http.MethodPost, "/api/v1/tasks", taskBody("Task"), "")

	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)
	assert.Equal(suite.T(), "UNAUTHORIZED", response["code"])
}

func (suite *TaskHandlerTestSuite) TestCreateTask_MalformedBody() {
	w, _ := suite.env.request(suite.T(), http.MethodPost, "/api/v1/tasks", "not an object", suite.creator)

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

func (suite *TaskHandlerTestSuite) TestUpdateTask_BroadcastsChanges() {
	task := suite.createTask(taskBody("Task"))
	suite.env.publisher.broadcasts = nil

	path := fmt.Sprintf("/api/v1/tasks/%s", task["id"])
	w, response := suite.env.request(suite.T(), http.MethodPut, path, map[string]interface{}{
		"status":       "IN_PROGRESS",
		"assignedToId": "U2",
	}, suite.creator)

	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	assert.Equal(suite.T(), "Task updated successfully", response["message"])
	updated := dataOf(suite.T(), response)["task"].(map[string]interface{})
	assert.Equal(suite.T(), "IN_PROGRESS", updated["status"])
	assert.Equal(suite.T(), float64(2), updated["version"])

	suite.Require().Len(suite.env.publisher.broadcasts, 1)
	event := suite.env.publisher.broadcasts[0].(realtime.TaskUpdated)
	suite.Require().Len(event.Changes, 2)
	assert.Equal(suite.T(), "status", event.Changes[0].Field)
	assert.Equal(suite.T(), "assignedToId", event.Changes[1].Field)
	assert.Equal(suite.T(), "Unassigned", event.Changes[1].OldValue)
	suite.Require().Len(suite.env.publisher.targeted, 1)
	assert.Equal(suite.T(), "U2", suite.env.publisher.targeted[0].userID)
}

func (suite *TaskHandlerTestSuite) TestUpdateTask_ExplicitNullUnassigns() {
	body := taskBody("Task")
	body["assignedToId"] = "U2"
	task := suite.createTask(body)
	suite.env.publisher.targeted = nil

	path := fmt.Sprintf("/api/v1/tasks/%s", task["id"])
	w, response := suite.env.request(suite.T(), http.MethodPut, path, map[string]interface{}{"assignedToId": nil}, suite.creator)

	suite.Require().Equal(http.StatusOK, w.Code)
	updated := dataOf(suite.T(), response)["task"].(map[string]interface{})
	assert.Nil(suite.T(), updated["assignedToId"])
	assert.Empty(suite.T(), suite.env.publisher.targeted)

	event := suite.env.publisher.broadcasts[len(suite.env.publisher.broadcasts)-1].(realtime.TaskUpdated)
	suite.Require().Len(event.Changes, 1)
	assert.Equal(suite.T(), "Unassigned", event.Changes[0].NewValue)
}

func (suite *TaskHandlerTestSuite) TestUpdateTask_EmptyPatchHasEmptyChanges() {
	task := suite.createTask(taskBody("Task"))

	path := fmt.Sprintf("/api/v1/tasks/%s", task["id"])
	w, _ := suite.env.request(suite.T(), http.MethodPut, path, map[string]interface{}{}, suite.other)

	suite.Require().Equal(http.StatusOK, w.Code)
	event := suite.env.publisher.broadcasts[len(suite.env.publisher.broadcasts)-1].(realtime.TaskUpdated)
	assert.NotNil(suite.T(), event.Changes)
	assert.Empty(suite.T(), event.Changes)
}

func (suite *TaskHandlerTestSuite) TestUpdateTask_NotFound() {
	w, response := suite.env.request(suite.T(), http.MethodPut, "/api/v1/tasks/5f0c8a3e-6a4b-4a53-9a55-1c2b3d4e5f60",
		map[string]interface{}{"title": "x"}, suite.creator)

	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
	assert.Equal(suite.T(), "Task not found", response["error"])

	w, _ = suite.env.request(suite.T(), http.MethodGet, "/api/v1/tasks/not-a-uuid", nil, suite.creator)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

func (suite *TaskHandlerTestSuite) TestDeleteTask_OnlyCreator() {
	task := suite.createTask(taskBody("Task"))
	path := fmt.Sprintf("/api/v1/tasks/%s", task["id"])
	suite.env.publisher.broadcasts = nil

	w, response := suite.env.request(suite.T(), http.MethodDelete, path, nil, suite.other)
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)
	assert.Equal(suite.T(), "FORBIDDEN", response["code"])
	assert.Empty(suite.T(), suite.env.publisher.broadcasts)

	w, response = suite.env.request(suite.T(), http.MethodDelete, path, nil, suite.creator)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Equal(suite.T(), "Task deleted successfully", response["message"])
	suite.Require().Len(suite.env.publisher.broadcasts, 1)
	assert.Equal(suite.T(), realtime.TaskDeleted{TaskID: task["id"].(string)}, suite.env.publisher.broadcasts[0])

	w, _ = suite.env.request(suite.T(), http.MethodGet, path, nil, suite.creator)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

func (suite *TaskHandlerTestSuite) TestListTasks_PaginationAndFilters() {
	for i := 0; i < 3; i++ {
		suite.createTask(taskBody(fmt.Sprintf("Task %d", i)))
	}
	high := taskBody("Important")
	high["priority"] = "HIGH"
	suite.createTask(high)

	w, response := suite.env.request(suite.T(), http.MethodGet, "/api/v1/tasks?page=2&limit=3", nil, suite.creator)
	suite.Require().Equal(http.StatusOK, w.Code)
	data := dataOf(suite.T(), response)
	assert.Equal(suite.T(), float64(4), data["total"])
	assert.Equal(suite.T(), float64(2), data["page"])
	assert.Equal(suite.T(), float64(3), data["limit"])
	assert.Equal(suite.T(), float64(2), data["totalPages"])
	assert.Len(suite.T(), data["tasks"], 1)

	w, response = suite.env.request(suite.T(), http.MethodGet, "/api/v1/tasks?priority=HIGH", nil, suite.creator)
	suite.Require().Equal(http.StatusOK, w.Code)
	tasks := dataOf(suite.T(), response)["tasks"].([]interface{})
	suite.Require().Len(tasks, 1)
	assert.Equal(suite.T(), "Important", tasks[0].(map[string]interface{})["title"])

	w, response = suite.env.request(suite.T(), http.MethodGet, "/api/v1/tasks?status=DONE&sortBy=title", nil, suite.creator)
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	assert.Len(suite.T(), response["errors"], 2)
}

func (suite *TaskHandlerTestSuite) TestAuditLogs_NewestFirst() {
	task := suite.createTask(taskBody("Task"))
	path := fmt.Sprintf("/api/v1/tasks/%s", task["id"])
	w, _ := suite.env.request(suite.T(), http.MethodPut, path, map[string]interface{}{"status": "REVIEW"}, suite.other)
	suite.Require().Equal(http.StatusOK, w.Code)

	w, response := suite.env.request(suite.T(), http.MethodGet, path+"/audit", nil, suite.creator)

	suite.Require().Equal(http.StatusOK, w.Code)
	logs := dataOf(suite.T(), response)["logs"].([]interface{})
	suite.Require().Len(logs, 2)
	latest := logs[0].(map[string]interface{})
	assert.Equal(suite.T(), string(models.AuditActionStatusChange), latest["action"])
	assert.Equal(suite.T(), "User Two", latest["user"].(map[string]interface{})["name"])
}

func (suite *TaskHandlerTestSuite) TestDashboard() {
	body := taskBody("Overdue")
	body["dueDate"] = "2000-01-01"
	suite.createTask(body)

	w, response := suite.env.request(suite.T(), http.MethodGet, "/api/v1/tasks/dashboard", nil, suite.creator)

	suite.Require().Equal(http.StatusOK, w.Code)
	data := dataOf(suite.T(), response)
	stats := data["stats"].(map[string]interface{})
	assert.Equal(suite.T(), float64(1), stats["created"])
	assert.Equal(suite.T(), float64(1), stats["overdue"])
	assert.Equal(suite.T(), float64(0), stats["inProgress"])
	assert.Len(suite.T(), data["overdue"], 1)
	assert.Len(suite.T(), data["assigned"], 0)
}

func TestTaskHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(TaskHandlerTestSuite))
}
