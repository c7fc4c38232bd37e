package main

import (
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/kehindes/groupspace/internal/apperr"
	"github.com/kehindes/groupspace/internal/data"
)

const (
	maxTaskTitleRunes = 200
	maxTaskDescRunes  = 1000
	dueDateLayout     = "2006-01-02"
)

type assigneeRequest struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

type createTaskRequest struct {
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Assignee    *assigneeRequest `json:"assignee"`
	DueDate     string           `json:"dueDate"`
}

type updateTaskRequest struct {
	Title       *string          `json:"title"`
	Description *string          `json:"description"`
	Assignee    *assigneeRequest `json:"assignee"`
	DueDate     *string          `json:"dueDate"`
}

type completeTaskRequest struct {
	Completed *bool `json:"completed"`
}

func validTaskTitle(title string) bool {
	return title != "" && utf8.RuneCountInString(title) <= maxTaskTitleRunes
}

func parseAssignee(req *assigneeRequest) (*data.UserRef, error) {
	if req == nil || req.UserID == "" {
		return nil, nil
	}
	id, err := pathID(req.UserID, "assignee id")
	if err != nil {
		return nil, err
	}
	return &data.UserRef{UserID: id, DisplayName: req.DisplayName}, nil
}

func validDueDate(raw string) bool {
	_, err := time.Parse(dueDateLayout, raw)
	return err == nil
}

// taskGate parses the path ids and runs the membership check common to
// every task operation.
func (s *Server) taskGate(w http.ResponseWriter, r *http.Request, withTaskID bool) (groupID, taskID bson.ObjectID, actor data.UserRef, ok bool) {
	claims, _ := claimsFrom(r.Context())
	actor, err := claimsRef(claims)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	gid, err := pathID(chi.URLParam(r, "groupID"), "group id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if withTaskID {
		tid, err := pathID(chi.URLParam(r, "taskID"), "task id")
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		taskID = tid
	}

	ctx, cancel := opCtx(r.Context())
	defer cancel()

	if _, err := s.groups.RequireMember(ctx, gid, actor.UserID); err != nil {
		s.writeError(w, r, err)
		return
	}
	return gid, taskID, actor, true
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	groupID, _, _, ok := s.taskGate(w, r, false)
	if !ok {
		return
	}

	ctx, cancel := opCtx(r.Context())
	defer cancel()

	tasks, err := s.tasks.List(ctx, groupID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if tasks == nil {
		tasks = []*data.Task{}
	}
	s.writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	groupID, _, actor, ok := s.taskGate(w, r, false)
	if !ok {
		return
	}

	var req createTaskRequest
	if err := decodeJSON(w, r, &req, maxBodyBytes); err != nil {
		s.writeError(w, r, err)
		return
	}

	title := strings.TrimSpace(req.Title)
	fields := map[string]string{}
	if !validTaskTitle(title) {
		fields["title"] = "title must be 1-200 characters"
	}
	if utf8.RuneCountInString(req.Description) > maxTaskDescRunes {
		fields["description"] = "description must be at most 1000 characters"
	}
	if req.DueDate != "" && !validDueDate(req.DueDate) {
		fields["dueDate"] = "dueDate must be YYYY-MM-DD"
	}
	if len(fields) > 0 {
		s.writeError(w, r, apperr.Validation("invalid task", fields))
		return
	}

	assignee, err := parseAssignee(req.Assignee)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx, cancel := opCtx(r.Context())
	defer cancel()

	task, err := s.tasks.Create(ctx, &data.Task{
		GroupID:     groupID,
		Title:       title,
		Description: req.Description,
		Assignee:    assignee,
		DueDate:     req.DueDate,
		CreatedBy:   actor,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, task)
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	groupID, taskID, _, ok := s.taskGate(w, r, true)
	if !ok {
		return
	}

	var req updateTaskRequest
	if err := decodeJSON(w, r, &req, maxBodyBytes); err != nil {
		s.writeError(w, r, err)
		return
	}

	upd := data.TaskUpdate{}
	fields := map[string]string{}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if !validTaskTitle(title) {
			fields["title"] = "title must be 1-200 characters"
		}
		upd.Title = &title
	}
	if req.Description != nil {
		if utf8.RuneCountInString(*req.Description) > maxTaskDescRunes {
			fields["description"] = "description must be at most 1000 characters"
		}
		upd.Description = req.Description
	}
	if req.DueDate != nil {
		if *req.DueDate != "" && !validDueDate(*req.DueDate) {
			fields["dueDate"] = "dueDate must be YYYY-MM-DD"
		}
		upd.DueDate = req.DueDate
	}
	if len(fields) > 0 {
		s.writeError(w, r, apperr.Validation("invalid task update", fields))
		return
	}

	if req.Assignee != nil {
		if req.Assignee.UserID == "" {
			upd.ClearAssign = true
		} else {
			assignee, err := parseAssignee(req.Assignee)
			if err != nil {
				s.writeError(w, r, err)
				return
			}
			upd.Assignee = assignee
		}
	}

	ctx, cancel := opCtx(r.Context())
	defer cancel()

	task, err := s.tasks.Update(ctx, groupID, taskID, upd)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleCompleteTask(w http.ResponseWriter, r *http.Request) {
	groupID, taskID, actor, ok := s.taskGate(w, r, true)
	if !ok {
		return
	}

	var req completeTaskRequest
	if err := decodeJSON(w, r, &req, maxBodyBytes); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Completed == nil {
		s.writeError(w, r, apperr.Validation("completed is required", map[string]string{"completed": "must be true or false"}))
		return
	}

	ctx, cancel := opCtx(r.Context())
	defer cancel()

	task, err := s.tasks.SetCompleted(ctx, groupID, taskID, *req.Completed, actor)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	groupID, taskID, _, ok := s.taskGate(w, r, true)
	if !ok {
		return
	}

	ctx, cancel := opCtx(r.Context())
	defer cancel()

	if err := s.tasks.Delete(ctx, groupID, taskID); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}
