package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"jobtrack/internal/tasks"
)

// ListTasks returns the task list, incomplete first.
func (h *Handlers) ListTasks(w http.ResponseWriter, r *http.Request) {
	list, err := h.tasks.List(r.Context())
	if err != nil {
		h.sendAppError(w, err, "Failed to list tasks")
		return
	}
	if list == nil {
		list = []*tasks.Task{}
	}
	h.sendJSONResponse(w, list)
}

// CreateTask inserts a task.
func (h *Handlers) CreateTask(w http.ResponseWriter, r *http.Request) {
	var task tasks.Task
	if err := h.parseJSONRequest(r, &task); err != nil {
		h.sendAppError(w, err, "Failed to parse task")
		return
	}

	if err := h.tasks.Create(r.Context(), &task); err != nil {
		h.sendAppError(w, err, "Failed to create task")
		return
	}

	w.WriteHeader(http.StatusCreated)
	h.sendJSONResponse(w, task)
}

// UpdateTask rewrites a task.
func (h *Handlers) UpdateTask(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])

	var task tasks.Task
	if err := h.parseJSONRequest(r, &task); err != nil {
		h.sendAppError(w, err, "Failed to parse task")
		return
	}
	task.ID = id

	if err := h.tasks.Update(r.Context(), &task); err != nil {
		h.sendAppError(w, err, "Failed to update task")
		return
	}
	h.sendJSONResponse(w, task)
}

// ToggleTask flips a task's completion flag.
func (h *Handlers) ToggleTask(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])

	task, err := h.tasks.Toggle(r.Context(), id)
	if err != nil {
		h.sendAppError(w, err, "Failed to toggle task")
		return
	}
	h.sendJSONResponse(w, task)
}

// DeleteTask removes a task.
func (h *Handlers) DeleteTask(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])

	if err := h.tasks.Delete(r.Context(), id); err != nil {
		h.sendAppError(w, err, "Failed to delete task")
		return
	}
	h.sendJSONResponse(w, map[string]string{"status": "deleted"})
}
