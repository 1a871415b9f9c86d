package service

import (
	"context"
	"testing"
	"time"

	"rental-service/internal/apperr"
	"rental-service/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustNote(t *testing.T, svc *Services, n *model.Note) *model.Note {
	t.Helper()
	if n.Content == "" {
		n.Content = "nội dung"
	}
	require.NoError(t, svc.Notes.Create(context.Background(), n))
	return n
}

func TestCreateNoteAppliesDefaults(t *testing.T) {
	svc, _ := newTestServices(t)

	note := mustNote(t, svc, &model.Note{
		Title: "  Sửa vòi nước  ",
		Tags:  []string{" Plumbing ", "", "URGENT"},
	})
	assert.Equal(t, "Sửa vòi nước", note.Title)
	assert.Equal(t, model.NoteGeneral, note.Category)
	assert.Equal(t, model.PriorityMedium, note.Priority)
	assert.Equal(t, []string{"plumbing", "urgent"}, []string(note.Tags))
}

func TestCreateNoteValidatesRelation(t *testing.T) {
	svc, _ := newTestServices(t)

	err := svc.Notes.Create(context.Background(), &model.Note{
		Title:     "Nhắc khách",
		Content:   "gọi điện",
		RelatedTo: model.RelatedTo{Type: "tenant"},
	})
	var verr *apperr.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "relatedTo", verr.Fields[0].Field)
}

func TestNotesByTagAndCategory(t *testing.T) {
	svc, _ := newTestServices(t)
	ctx := context.Background()
	mustNote(t, svc, &model.Note{Title: "a", Category: model.NoteMaintenance, Tags: []string{"plumbing"}})
	mustNote(t, svc, &model.Note{Title: "b", Tags: []string{"plumbing-old"}})
	mustNote(t, svc, &model.Note{Title: "c", Tags: []string{"wifi"}})

	notes, err := svc.Notes.ByTag(ctx, "Plumbing")
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "a", notes[0].Title)

	notes, err = svc.Notes.ByCategory(ctx, model.NoteMaintenance)
	require.NoError(t, err)
	require.Len(t, notes, 1)

	_, err = svc.Notes.ByCategory(ctx, "misc")
	var verr *apperr.ValidationError
	assert.ErrorAs(t, err, &verr)

	list, page, err := svc.Notes.List(ctx, NoteFilter{Tag: "wifi"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(1), page.TotalItems)
}

func TestNoteReminders(t *testing.T) {
	svc, _ := newTestServices(t)
	ctx := context.Background()
	past := mustNote(t, svc, &model.Note{Title: "past"})
	future := mustNote(t, svc, &model.Note{Title: "future"})

	_, err := svc.Notes.SetReminder(ctx, past.ID, testNow.Add(-time.Hour))
	require.NoError(t, err)
	got, err := svc.Notes.SetReminder(ctx, future.ID, testNow.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, model.NoteStatusScheduled, got.Status(testNow))

	_, err = svc.Notes.SetReminder(ctx, past.ID, time.Time{})
	var verr *apperr.ValidationError
	assert.ErrorAs(t, err, &verr)

	due, err := svc.Notes.DueReminders(ctx)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, past.ID, due[0].ID)

	got, err = svc.Notes.CancelReminder(ctx, past.ID)
	require.NoError(t, err)
	assert.False(t, got.IsReminder)
	assert.Nil(t, got.ReminderDate)

	due, err = svc.Notes.DueReminders(ctx)
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestCompleteNoteDropsFromImportant(t *testing.T) {
	svc, _ := newTestServices(t)
	ctx := context.Background()
	urgent := mustNote(t, svc, &model.Note{Title: "urgent", Priority: model.PriorityUrgent})
	mustNote(t, svc, &model.Note{Title: "low", Priority: model.PriorityLow})

	notes, err := svc.Notes.Important(ctx)
	require.NoError(t, err)
	require.Len(t, notes, 1)

	got, err := svc.Notes.Complete(ctx, urgent.ID)
	require.NoError(t, err)
	assert.True(t, got.IsCompleted)
	require.NotNil(t, got.CompletedAt)
	assert.True(t, got.CompletedAt.Equal(testNow))
	assert.Equal(t, model.NoteStatusCompleted, got.Status(testNow))

	notes, err = svc.Notes.Important(ctx)
	require.NoError(t, err)
	assert.Empty(t, notes)
}

func TestDeleteNote(t *testing.T) {
	svc, db := newTestServices(t)
	ctx := context.Background()
	note := mustNote(t, svc, &model.Note{Title: "x"})

	require.NoError(t, svc.Notes.Delete(ctx, note.ID))
	_, err := svc.Notes.Get(ctx, note.ID)
	assert.True(t, apperr.IsNotFound(err))
	assert.Equal(t, int64(1), count(t, db, &model.Note{}))
}

func TestNoteStats(t *testing.T) {
	svc, _ := newTestServices(t)
	ctx := context.Background()
	a := mustNote(t, svc, &model.Note{Title: "a", Tags: []string{"wifi", "billing"}})
	mustNote(t, svc, &model.Note{Title: "b", Tags: []string{"wifi"}, Priority: model.PriorityHigh})
	_, err := svc.Notes.Complete(ctx, a.ID)
	require.NoError(t, err)

	stats, err := svc.Notes.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Total)
	assert.Equal(t, int64(1), stats.Completed)
	assert.Equal(t, int64(1), stats.Pending)
	assert.Equal(t, 50.0, stats.CompletionRate)
	assert.Equal(t, int64(2), stats.CategoryStats["general"])
	assert.Equal(t, int64(1), stats.PriorityStats["high"])
	assert.Equal(t, []TagCount{{Tag: "wifi", Count: 2}, {Tag: "billing", Count: 1}}, stats.PopularTags)
}
