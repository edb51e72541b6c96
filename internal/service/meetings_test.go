package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"equilibra/internal/ai"
	"equilibra/internal/model"
	"equilibra/internal/recall"
	"equilibra/internal/repository"
	"equilibra/internal/snowflake"
)

type meetingStoreStub struct {
	created []model.Meeting
}

func (s *meetingStoreStub) Create(_ context.Context, meeting *model.Meeting) error {
	s.created = append(s.created, *meeting)
	return nil
}

func (s *meetingStoreStub) GetByProjectID(_ context.Context, _ int64) ([]model.Meeting, error) {
	return s.created, nil
}

type meetingAlertStub struct {
	alerts []model.Alert
}

func (s *meetingAlertStub) Create(_ context.Context, alert *model.Alert) error {
	s.alerts = append(s.alerts, *alert)
	return nil
}

type confirmStub struct {
	gotAlertID int64
	gotDrafts  []repository.TaskDraft
}

func (s *confirmStub) ConfirmBatch(_ context.Context, alertID, _ int64, drafts []repository.TaskDraft) (int, error) {
	s.gotAlertID = alertID
	s.gotDrafts = drafts
	return len(drafts), nil
}

type judgeStub struct {
	analysis ai.MeetingAnalysis
	live     bool
}

func (s *judgeStub) AnalyzeMeeting(_ context.Context, _ []byte, _ string) (ai.MeetingAnalysis, bool) {
	return s.analysis, s.live
}

type recallStub struct {
	media []byte
}

func (s *recallStub) InviteBot(_ context.Context, _ string, _ recall.BotMetadata) (string, error) {
	return "bot-1", nil
}

func (s *recallStub) RecordingURL(_ context.Context, _ string) (string, error) {
	return "https://recordings.example/1.mp4", nil
}

func (s *recallStub) Download(_ context.Context, _ string) ([]byte, error) {
	return s.media, nil
}

func newMeetingsFixture(t *testing.T) (*Meetings, *meetingStoreStub, *meetingAlertStub, *confirmStub) {
	meetings := &meetingStoreStub{}
	alerts := &meetingAlertStub{}
	confirm := &confirmStub{}
	ids, err := snowflake.New(1)
	require.NoError(t, err)

	svc := NewMeetings(
		meetings,
		alerts,
		confirm,
		&judgeStub{
			analysis: ai.MeetingAnalysis{
				Title:     "Sprint Planning",
				Summary:   "Planned the next sprint.",
				Decisions: []string{"Ship the search feature"},
				ActionItems: []ai.ActionItem{
					{Task: "Implement search endpoint", Priority: "high"},
					{Task: "Design results page", Priority: "medium"},
				},
			},
			live: true,
		},
		&recallStub{media: []byte("video-bytes")},
		ids,
	)
	return svc, meetings, alerts, confirm
}

func TestMeetings_Analyze(t *testing.T) {
	svc, meetings, alerts, _ := newMeetingsFixture(t)
	userID := int64(900)

	meeting, err := svc.Analyze(context.Background(), 1, &userID, []byte("audio"), "audio/mpeg", model.MeetingSourceManualUpload)
	require.NoError(t, err)

	require.Len(t, meetings.created, 1)
	assert.Equal(t, "Sprint Planning", meeting.Title)
	assert.Equal(t, "Planned the next sprint.", meeting.MomSummary)
	assert.Equal(t, model.MeetingSourceManualUpload, meeting.SourceType)
	assert.NotZero(t, meeting.ID)

	require.Len(t, alerts.alerts, 1)
	alert := alerts.alerts[0]
	assert.Equal(t, model.AlertTypeDraftApproval, alert.Type)
	assert.Equal(t, userID, alert.UserID)
	assert.Equal(t, []string{"Implement search endpoint", "Design results page"}, []string(alert.SuggestedActions))
	require.NotNil(t, alert.ContextID)
	assert.Equal(t, meeting.ID, *alert.ContextID)
}

func TestMeetings_Analyze_NoUploader(t *testing.T) {
	svc, meetings, alerts, _ := newMeetingsFixture(t)

	_, err := svc.Analyze(context.Background(), 1, nil, []byte("audio"), "audio/mpeg", model.MeetingSourceManualUpload)
	require.NoError(t, err)

	assert.Len(t, meetings.created, 1)
	assert.Empty(t, alerts.alerts, "no uploader means nobody to ask for approval")
}

func TestMeetings_ProcessBotRecording(t *testing.T) {
	svc, meetings, _, _ := newMeetingsFixture(t)

	meeting, err := svc.ProcessBotRecording(context.Background(), "bot-1", 900, 1)
	require.NoError(t, err)

	assert.Equal(t, model.MeetingSourceRecallBot, meeting.SourceType)
	assert.Len(t, meetings.created, 1)
}

func TestMeetings_ConfirmTasks(t *testing.T) {
	svc, _, _, confirm := newMeetingsFixture(t)

	count, err := svc.ConfirmTasks(context.Background(), 77, 1, []repository.TaskDraft{
		{Title: "Implement search endpoint", Type: model.TaskTypeCode, Weight: 3},
		{Title: "Design results page"},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, count)
	assert.Equal(t, int64(77), confirm.gotAlertID)
	require.Len(t, confirm.gotDrafts, 2)
	assert.Equal(t, model.TaskWeightMin, confirm.gotDrafts[1].Weight, "zero weight defaults to minimum")
	assert.Equal(t, model.TaskTypeOther, confirm.gotDrafts[1].Type, "empty type defaults to OTHER")
}

func TestMeetings_ConfirmTasks_Validation(t *testing.T) {
	svc, _, _, _ := newMeetingsFixture(t)

	cases := []struct {
		name  string
		draft repository.TaskDraft
		want  error
	}{
		{"missing title", repository.TaskDraft{Weight: 1}, ErrDraftTitleRequired},
		{"weight too high", repository.TaskDraft{Title: "x", Weight: 9}, ErrDraftBadWeight},
		{"negative weight", repository.TaskDraft{Title: "x", Weight: -1}, ErrDraftBadWeight},
		{"unknown type", repository.TaskDraft{Title: "x", Weight: 1, Type: "EPIC"}, ErrDraftBadType},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.ConfirmTasks(context.Background(), 77, 1, []repository.TaskDraft{tc.draft})
			assert.ErrorIs(t, err, tc.want)
		})
	}
}
