package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"equilibra/internal/ai"
	"equilibra/internal/model"
	"equilibra/internal/recall"
	"equilibra/internal/repository"
	"equilibra/internal/snowflake"
)

// Draft validation errors surfaced to the confirmation endpoint.
var (
	ErrDraftTitleRequired = errors.New("draft title is required")
	ErrDraftBadWeight     = errors.New("draft weight must be between 1 and 8")
	ErrDraftBadType       = errors.New("draft type is not recognized")
)

type meetingStore interface {
	Create(ctx context.Context, meeting *model.Meeting) error
	GetByProjectID(ctx context.Context, projectID int64) ([]model.Meeting, error)
}

type meetingAlertStore interface {
	Create(ctx context.Context, alert *model.Alert) error
}

type meetingTaskStore interface {
	ConfirmBatch(ctx context.Context, alertID, projectID int64, drafts []repository.TaskDraft) (int, error)
}

type meetingJudge interface {
	AnalyzeMeeting(ctx context.Context, media []byte, mimeType string) (ai.MeetingAnalysis, bool)
}

type recordingFetcher interface {
	InviteBot(ctx context.Context, meetingURL string, meta recall.BotMetadata) (string, error)
	RecordingURL(ctx context.Context, botID string) (string, error)
	Download(ctx context.Context, url string) ([]byte, error)
}

// Meetings turns meeting recordings into minutes plus a batch of draft tasks
// awaiting manager confirmation.
type Meetings struct {
	meetings meetingStore
	alerts   meetingAlertStore
	tasks    meetingTaskStore
	judge    meetingJudge
	recall   recordingFetcher
	ids      *snowflake.Generator
	now      func() time.Time
}

func NewMeetings(
	meetings meetingStore,
	alerts meetingAlertStore,
	tasks meetingTaskStore,
	judge meetingJudge,
	recall recordingFetcher,
	ids *snowflake.Generator,
) *Meetings {
	return &Meetings{
		meetings: meetings,
		alerts:   alerts,
		tasks:    tasks,
		judge:    judge,
		recall:   recall,
		ids:      ids,
		now:      time.Now,
	}
}

// Analyze runs the AI pipeline over a recording, persists the meeting with
// its minutes, and raises a draft-approval alert carrying the proposed
// tasks. The analysis degrades to fallback content rather than failing.
func (s *Meetings) Analyze(ctx context.Context, projectID int64, userID *int64, media []byte, mimeType, sourceType string) (*model.Meeting, error) {
	analysis, live := s.judge.AnalyzeMeeting(ctx, media, mimeType)
	if !live {
		log.WithField("project", projectID).Warn("meeting analysis fell back to canned content")
	}

	items, err := json.Marshal(analysis.ActionItems)
	if err != nil {
		return nil, errors.Wrap(err, "marshal action items")
	}

	now := s.now().UTC()
	meeting := &model.Meeting{
		ID:           s.ids.Next(),
		ProjectID:    projectID,
		UserID:       userID,
		Title:        analysis.Title,
		Date:         now.Format("2006-01-02"),
		Time:         now.Format("15:04"),
		SourceType:   sourceType,
		MomSummary:   analysis.Summary,
		KeyDecisions: analysis.Decisions,
		ActionItems:  items,
	}
	if err := s.meetings.Create(ctx, meeting); err != nil {
		return nil, errors.Wrap(err, "persist meeting")
	}

	if userID != nil && len(analysis.ActionItems) > 0 {
		if err := s.raiseDraftAlert(ctx, meeting, *userID, analysis.ActionItems); err != nil {
			log.WithError(err).WithField("meeting", meeting.ID).Error("draft approval alert failed")
		}
	}
	return meeting, nil
}

// raiseDraftAlert notifies the uploader that extracted tasks await review.
func (s *Meetings) raiseDraftAlert(ctx context.Context, meeting *model.Meeting, userID int64, items []ai.ActionItem) error {
	contextID := meeting.ID
	actions := make([]string, 0, len(items))
	for _, item := range items {
		actions = append(actions, item.Task)
	}

	return s.alerts.Create(ctx, &model.Alert{
		ID:               s.ids.Next(),
		UserID:           userID,
		ContextID:        &contextID,
		ProjectID:        meeting.ProjectID,
		Title:            fmt.Sprintf("%d task(s) extracted from \"%s\"", len(items), meeting.Title),
		Description:      "Review the extracted action items and confirm which should become board tasks.",
		Type:             model.AlertTypeDraftApproval,
		Severity:         model.SeverityInfo,
		SuggestedActions: actions,
	})
}

// ConfirmTasks validates the approved drafts and materializes them on the
// board, resolving the originating alert in the same transaction.
func (s *Meetings) ConfirmTasks(ctx context.Context, alertID, projectID int64, drafts []repository.TaskDraft) (int, error) {
	for i := range drafts {
		if err := validateDraft(&drafts[i]); err != nil {
			return 0, err
		}
	}
	return s.tasks.ConfirmBatch(ctx, alertID, projectID, drafts)
}

func validateDraft(d *repository.TaskDraft) error {
	if d.Title == "" {
		return ErrDraftTitleRequired
	}
	if d.Weight == 0 {
		d.Weight = model.TaskWeightMin
	}
	if d.Weight < model.TaskWeightMin || d.Weight > model.TaskWeightMax {
		return ErrDraftBadWeight
	}
	if d.Type == "" {
		d.Type = model.TaskTypeOther
	}
	switch d.Type {
	case model.TaskTypeCode, model.TaskTypeRequirement, model.TaskTypeDesign, model.TaskTypeOther:
		return nil
	default:
		return ErrDraftBadType
	}
}

// InviteBot sends the recording bot to a live meeting and returns the bot id
// to correlate the completion webhook later.
func (s *Meetings) InviteBot(ctx context.Context, meetingURL string, userID, projectID int64) (string, error) {
	return s.recall.InviteBot(ctx, meetingURL, recall.BotMetadata{UserID: userID, ProjectID: projectID})
}

// ProcessBotRecording downloads a finished bot recording and runs the
// standard analysis pipeline on it.
func (s *Meetings) ProcessBotRecording(ctx context.Context, botID string, userID, projectID int64) (*model.Meeting, error) {
	url, err := s.recall.RecordingURL(ctx, botID)
	if err != nil {
		return nil, errors.Wrap(err, "resolve recording url")
	}
	media, err := s.recall.Download(ctx, url)
	if err != nil {
		return nil, errors.Wrap(err, "download recording")
	}

	uid := userID
	return s.Analyze(ctx, projectID, &uid, media, "video/mp4", model.MeetingSourceRecallBot)
}

// List returns a project's meeting history, newest first.
func (s *Meetings) List(ctx context.Context, projectID int64) ([]model.Meeting, error) {
	return s.meetings.GetByProjectID(ctx, projectID)
}
