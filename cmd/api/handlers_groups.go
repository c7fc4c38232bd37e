package main

import (
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/kehindes/groupspace/internal/apperr"
	"github.com/kehindes/groupspace/internal/data"
)

type createGroupRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type joinGroupRequest struct {
	InviteCode string `json:"inviteCode"`
}

type leaveGroupResponse struct {
	Left         bool `json:"left"`
	GroupDeleted bool `json:"groupDeleted"`
}

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())
	member, err := claimsMember(claims)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var req createGroupRequest
	if err := decodeJSON(w, r, &req, maxBodyBytes); err != nil {
		s.writeError(w, r, err)
		return
	}

	name := strings.TrimSpace(req.Name)
	fields := map[string]string{}
	if name == "" || utf8.RuneCountInString(name) > 80 {
		fields["name"] = "name must be 1-80 characters"
	}
	if utf8.RuneCountInString(req.Description) > 500 {
		fields["description"] = "description must be at most 500 characters"
	}
	if len(fields) > 0 {
		s.writeError(w, r, apperr.Validation("invalid group", fields))
		return
	}

	ctx, cancel := opCtx(r.Context())
	defer cancel()

	group, err := s.groups.CreateGroup(ctx, name, req.Description, member)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.users.AddGroup(ctx, member.UserID, group.ID); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, group)
}

func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())
	userID, err := claimsUserID(claims)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx, cancel := opCtx(r.Context())
	defer cancel()

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	groups, err := s.groups.GetByIDs(ctx, user.GroupIDs)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if groups == nil {
		groups = []*data.Group{}
	}
	s.writeJSON(w, http.StatusOK, groups)
}

func (s *Server) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	s.respondGroup(w, r, func(g *data.Group) any { return g })
}

func (s *Server) handleGetMembers(w http.ResponseWriter, r *http.Request) {
	s.respondGroup(w, r, func(g *data.Group) any { return g.Members })
}

// respondGroup runs the membership gate for the {id} path group and writes
// the chosen projection of it.
func (s *Server) respondGroup(w http.ResponseWriter, r *http.Request, project func(*data.Group) any) {
	claims, _ := claimsFrom(r.Context())
	userID, err := claimsUserID(claims)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	groupID, err := pathID(chi.URLParam(r, "id"), "group id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx, cancel := opCtx(r.Context())
	defer cancel()

	group, err := s.groups.RequireMember(ctx, groupID, userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, project(group))
}

func (s *Server) handleJoinGroup(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())
	member, err := claimsMember(claims)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	groupID, err := pathID(chi.URLParam(r, "id"), "group id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var req joinGroupRequest
	if err := decodeJSON(w, r, &req, maxBodyBytes); err != nil {
		s.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.InviteCode) == "" {
		s.writeError(w, r, apperr.Validation("inviteCode is required", nil))
		return
	}

	ctx, cancel := opCtx(r.Context())
	defer cancel()

	group, err := s.groups.Join(ctx, groupID, req.InviteCode, member)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.users.AddGroup(ctx, member.UserID, group.ID); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, group)
}

func (s *Server) handleLeaveGroup(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())
	userID, err := claimsUserID(claims)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	groupID, err := pathID(chi.URLParam(r, "id"), "group id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx, cancel := opCtx(r.Context())
	defer cancel()

	deleted, err := s.groups.Leave(ctx, groupID, userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.users.RemoveGroup(ctx, userID, groupID); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, leaveGroupResponse{Left: true, GroupDeleted: deleted})
}
