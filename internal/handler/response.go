package handler

import (
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"equilibra/internal/model"
)

// Snowflake ids travel as strings over JSON: they exceed the 53-bit integer
// range a JavaScript client can represent exactly.

func idString(id int64) string {
	return strconv.FormatInt(id, 10)
}

func idStringPtr(id *int64) *string {
	if id == nil {
		return nil
	}
	s := strconv.FormatInt(*id, 10)
	return &s
}

func parseID(raw string) (int64, error) {
	return strconv.ParseInt(raw, 10, 64)
}

func parseIntQuery(raw string) (int, error) {
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, errInvalidQuery
	}
	return v, nil
}

var errInvalidQuery = errors.New("invalid query parameter")

func parseIDList(raw []string) ([]int64, error) {
	ids := make([]int64, 0, len(raw))
	for _, s := range raw {
		id, err := parseID(s)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

type projectResponse struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	GHRepoURL   []string `json:"gh_repo_url"`
	CreatedAt   string   `json:"created_at"`
}

func newProjectResponse(p *model.Project) projectResponse {
	return projectResponse{
		ID:          idString(p.ID),
		Name:        p.Name,
		Description: p.Description,
		GHRepoURL:   p.GHRepoURL,
		CreatedAt:   p.CreatedAt.UTC().Format(time.RFC3339),
	}
}

type bucketResponse struct {
	ID             string `json:"id"`
	ProjectID      string `json:"project_id"`
	Name           string `json:"name"`
	State          string `json:"state"`
	IsSystemLocked bool   `json:"is_system_locked"`
	OrderIdx       int    `json:"order_idx"`
}

func newBucketResponse(b *model.Bucket) bucketResponse {
	return bucketResponse{
		ID:             idString(b.ID),
		ProjectID:      idString(b.ProjectID),
		Name:           b.Name,
		State:          b.State,
		IsSystemLocked: b.IsSystemLocked,
		OrderIdx:       b.OrderIdx,
	}
}

type taskResponse struct {
	ID                  string  `json:"id"`
	ProjectID           string  `json:"project_id"`
	BucketID            string  `json:"bucket_id"`
	MeetingID           *string `json:"meeting_id,omitempty"`
	ParentTaskID        *string `json:"parent_task_id,omitempty"`
	LeadAssigneeID      *string `json:"lead_assignee_id,omitempty"`
	SuggestedAssigneeID *string `json:"suggested_assignee_id,omitempty"`
	Title               string  `json:"title"`
	Description         string  `json:"description,omitempty"`
	Type                string  `json:"type"`
	Weight              int     `json:"weight"`
	BranchName          string  `json:"branch_name,omitempty"`
	LastActivityAt      *string `json:"last_activity_at,omitempty"`
	OrderIdx            int     `json:"order_idx"`
	Status              string  `json:"status"`
}

func newTaskResponse(t *model.Task) taskResponse {
	resp := taskResponse{
		ID:                  idString(t.ID),
		ProjectID:           idString(t.ProjectID),
		BucketID:            idString(t.BucketID),
		MeetingID:           idStringPtr(t.MeetingID),
		ParentTaskID:        idStringPtr(t.ParentTaskID),
		LeadAssigneeID:      idStringPtr(t.LeadAssigneeID),
		SuggestedAssigneeID: idStringPtr(t.SuggestedAssigneeID),
		Title:               t.Title,
		Description:         t.Description,
		Type:                t.Type,
		Weight:              t.Weight,
		BranchName:          t.BranchName,
		OrderIdx:            t.OrderIdx,
		Status:              t.Status,
	}
	if t.LastActivityAt != nil {
		s := t.LastActivityAt.UTC().Format(time.RFC3339)
		resp.LastActivityAt = &s
	}
	return resp
}

type memberResponse struct {
	ID          string  `json:"id"`
	UserID      string  `json:"user_id"`
	ProjectID   string  `json:"project_id"`
	Role        string  `json:"role"`
	KPIScore    float64 `json:"kpi_score"`
	MaxCapacity int     `json:"max_capacity"`
	CurrentLoad int     `json:"current_load"`
}

func newMemberResponse(m *model.ProjectMember) memberResponse {
	return memberResponse{
		ID:          idString(m.ID),
		UserID:      idString(m.UserID),
		ProjectID:   idString(m.ProjectID),
		Role:        m.Role,
		KPIScore:    m.KPIScore,
		MaxCapacity: m.MaxCapacity,
		CurrentLoad: m.CurrentLoad,
	}
}

type alertResponse struct {
	ID               string   `json:"id"`
	UserID           string   `json:"user_id"`
	ContextID        *string  `json:"context_id,omitempty"`
	ProjectID        string   `json:"project_id"`
	Title            string   `json:"title"`
	Description      string   `json:"description,omitempty"`
	Type             string   `json:"type"`
	Severity         string   `json:"severity"`
	IsResolved       bool     `json:"is_resolved"`
	SuggestedActions []string `json:"suggested_actions,omitempty"`
	CreatedAt        string   `json:"created_at"`
}

func newAlertResponse(a *model.Alert) alertResponse {
	return alertResponse{
		ID:               idString(a.ID),
		UserID:           idString(a.UserID),
		ContextID:        idStringPtr(a.ContextID),
		ProjectID:        idString(a.ProjectID),
		Title:            a.Title,
		Description:      a.Description,
		Type:             a.Type,
		Severity:         a.Severity,
		IsResolved:       a.IsResolved,
		SuggestedActions: a.SuggestedActions,
		CreatedAt:        a.CreatedAt.UTC().Format(time.RFC3339),
	}
}

type activityResponse struct {
	ID        string  `json:"id"`
	ProjectID string  `json:"project_id"`
	TaskID    *string `json:"task_id,omitempty"`
	UserID    *string `json:"user_id,omitempty"`
	Action    string  `json:"action"`
	Target    string  `json:"target,omitempty"`
	CreatedAt string  `json:"created_at"`
}

func newActivityResponse(a *model.Activity) activityResponse {
	return activityResponse{
		ID:        idString(a.ID),
		ProjectID: idString(a.ProjectID),
		TaskID:    idStringPtr(a.TaskID),
		UserID:    idStringPtr(a.UserID),
		Action:    a.Action,
		Target:    a.Target,
		CreatedAt: a.CreatedAt.UTC().Format(time.RFC3339),
	}
}

type meetingResponse struct {
	ID           string          `json:"id"`
	ProjectID    string          `json:"project_id"`
	UserID       *string         `json:"user_id,omitempty"`
	Title        string          `json:"title"`
	Date         string          `json:"date,omitempty"`
	Time         string          `json:"time,omitempty"`
	Duration     string          `json:"duration,omitempty"`
	SourceType   string          `json:"source_type"`
	MomSummary   string          `json:"mom_summary,omitempty"`
	KeyDecisions []string        `json:"key_decisions,omitempty"`
	ActionItems  json.RawMessage `json:"action_items,omitempty"`
}

func newMeetingResponse(m *model.Meeting) meetingResponse {
	return meetingResponse{
		ID:           idString(m.ID),
		ProjectID:    idString(m.ProjectID),
		UserID:       idStringPtr(m.UserID),
		Title:        m.Title,
		Date:         m.Date,
		Time:         m.Time,
		Duration:     m.Duration,
		SourceType:   m.SourceType,
		MomSummary:   m.MomSummary,
		KeyDecisions: m.KeyDecisions,
		ActionItems:  json.RawMessage(m.ActionItems),
	}
}
