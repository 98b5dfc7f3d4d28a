// Package http exposes the control-plane surface consumed by UI and
// automation clients: task creation, approval, lifecycle transitions and
// schedule registration as a JSON API.
package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"github.com/shaonsikder1952/Sentinel/internal/log"
	"github.com/shaonsikder1952/Sentinel/pkg/models"
	"github.com/shaonsikder1952/Sentinel/pkg/service"
)

// StartServer wires the handlers and blocks serving the control-plane API.
func StartServer(port string, manager *service.TaskManager, scheduler *service.Scheduler) error {
	mux := NewMux(manager, scheduler)
	log.GetLogger().Infof("Starting Sentinel control plane on :%s", port)
	return http.ListenAndServe(":"+port, mux)
}

// NewMux builds the route table. Exposed for httptest-based tests.
func NewMux(manager *service.TaskManager, scheduler *service.Scheduler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", HealthHandler)
	mux.HandleFunc("/tasks", TasksHandler(manager))
	mux.HandleFunc("/tasks/", TaskByIDHandler(manager, scheduler))
	return mux
}

func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// TasksHandler serves GET /tasks (all tasks) and POST /tasks (create).
func TasksHandler(manager *service.TaskManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, manager.ListAll())
		case http.MethodPost:
			var req service.CreateTaskRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, errors.Wrap(err, "decode request"))
				return
			}
			task, err := manager.CreateTask(req)
			if err != nil {
				writeError(w, errorStatus(err), err)
				return
			}
			writeJSON(w, http.StatusCreated, task)
		default:
			writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		}
	}
}

// TaskByIDHandler serves /tasks/{id} and the operation subroutes
// /tasks/{id}/{approve|start|pause|resume|complete|fail|schedule}, plus
// GET /tasks/pending.
func TaskByIDHandler(manager *service.TaskManager, scheduler *service.Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/tasks/"), "/")
		if rest == "pending" {
			if r.Method != http.MethodGet {
				writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
				return
			}
			writeJSON(w, http.StatusOK, manager.ListPending())
			return
		}

		parts := strings.SplitN(rest, "/", 2)
		id := parts[0]
		if id == "" {
			writeError(w, http.StatusBadRequest, errors.New("missing task id"))
			return
		}

		if len(parts) == 1 {
			if r.Method != http.MethodGet {
				writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
				return
			}
			task, ok := manager.GetTask(id)
			if !ok {
				writeError(w, http.StatusNotFound, &service.NotFoundError{TaskID: id})
				return
			}
			writeJSON(w, http.StatusOK, task)
			return
		}

		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
			return
		}
		handleTaskOperation(w, r, manager, scheduler, id, parts[1])
	}
}

func handleTaskOperation(w http.ResponseWriter, r *http.Request, manager *service.TaskManager, scheduler *service.Scheduler, id, op string) {
	var err error
	switch op {
	case "approve":
		var body struct {
			Gate models.ApprovalGate `json:"gate"`
		}
		if decodeErr := json.NewDecoder(r.Body).Decode(&body); decodeErr != nil {
			writeError(w, http.StatusBadRequest, errors.Wrap(decodeErr, "decode request"))
			return
		}
		if body.Gate != models.PreApprovalGate && body.Gate != models.PostApprovalGate {
			writeError(w, http.StatusBadRequest, errors.Errorf("unknown approval gate %q", body.Gate))
			return
		}
		err = manager.Approve(id, body.Gate)
	case "start":
		err = manager.Start(id)
	case "pause":
		err = manager.Pause(id)
	case "resume":
		err = manager.Resume(id)
	case "complete":
		err = manager.Complete(id)
	case "fail":
		var body struct {
			Error string `json:"error"`
		}
		if decodeErr := json.NewDecoder(r.Body).Decode(&body); decodeErr != nil {
			writeError(w, http.StatusBadRequest, errors.Wrap(decodeErr, "decode request"))
			return
		}
		err = manager.Fail(id, body.Error)
	case "schedule":
		var body struct {
			Scheduling models.Scheduling `json:"scheduling"`
		}
		if decodeErr := json.NewDecoder(r.Body).Decode(&body); decodeErr != nil {
			writeError(w, http.StatusBadRequest, errors.Wrap(decodeErr, "decode request"))
			return
		}
		if _, ok := manager.GetTask(id); !ok {
			writeError(w, http.StatusNotFound, &service.NotFoundError{TaskID: id})
			return
		}
		scheduler.Register(id, body.Scheduling)
	default:
		writeError(w, http.StatusNotFound, errors.Errorf("unknown operation %q", op))
		return
	}

	if err != nil {
		writeError(w, errorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// errorStatus maps the service error taxonomy onto HTTP codes.
func errorStatus(err error) int {
	var (
		notFound    *service.NotFoundError
		approval    *service.ApprovalRequiredError
		transition  *service.InvalidTransitionError
		running     *service.AlreadyRunningError
		missing     *service.MissingParameterError
		storageFail *service.StorageError
	)
	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &approval), errors.As(err, &transition), errors.As(err, &running):
		return http.StatusConflict
	case errors.As(err, &missing):
		return http.StatusBadRequest
	case errors.As(err, &storageFail):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.GetLogger().Errorf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	log.GetLogger().Errorf("Request failed: %v", err)
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
