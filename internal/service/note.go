package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"rental-service/internal/apperr"
	"rental-service/internal/model"
	"rental-service/prometheus"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const msgNoteNotFound = "Không tìm thấy ghi chú"

var noteSort = sortSpec{
	columns: map[string]string{
		"title":        "title",
		"category":     "category",
		"priority":     "priority",
		"reminderDate": "reminder_date",
		"createdAt":    "created_at",
		"updatedAt":    "updated_at",
	},
	defaultKey:   "createdAt",
	defaultOrder: "desc",
}

// NoteService manages notes and reminders
type NoteService struct {
	*base
}

// NoteFilter narrows note lists
type NoteFilter struct {
	ListParams
	Category    string
	Priority    string
	Tag         string
	RelatedType string
	RelatedID   *uint
	IsCompleted *bool
	IsReminder  *bool
}

func tagFilter(q *gorm.DB, tag string) *gorm.DB {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" {
		return q
	}
	return q.Where("CAST(tags AS TEXT) LIKE ?", `%"`+tag+`"%`)
}

// List returns one page of notes
func (s *NoteService) List(ctx context.Context, f NoteFilter) ([]model.Note, Pagination, error) {
	defer prometheus.TrackDBOperation("note_list")(time.Now())

	q := onlyActive(s.db.WithContext(ctx).Model(&model.Note{}))
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.Priority != "" {
		q = q.Where("priority = ?", f.Priority)
	}
	if f.RelatedType != "" {
		q = q.Where("related_type = ?", f.RelatedType)
	}
	if f.RelatedID != nil {
		q = q.Where("related_id = ?", *f.RelatedID)
	}
	if f.IsCompleted != nil {
		q = q.Where("is_completed = ?", *f.IsCompleted)
	}
	if f.IsReminder != nil {
		q = q.Where("is_reminder = ?", *f.IsReminder)
	}
	q = tagFilter(q, f.Tag)
	q = searchAny(q, f.Search, "title", "content")

	var notes []model.Note
	page, err := paginate(q, f.ListParams, noteSort, &notes)
	if err != nil {
		return nil, Pagination{}, err
	}
	return notes, page, nil
}

// Get loads one note
func (s *NoteService) Get(ctx context.Context, id uint) (*model.Note, error) {
	var note model.Note
	if err := onlyActive(s.db.WithContext(ctx)).First(&note, id).Error; err != nil {
		return nil, notFound(err, msgNoteNotFound)
	}
	return &note, nil
}

// Create adds a note
func (s *NoteService) Create(ctx context.Context, n *model.Note) error {
	defer prometheus.TrackDBOperation("note_create")(time.Now())

	n.ID = 0
	n.IsActive = true
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(n).Error; err != nil {
		return dbErr(err, "create note")
	}
	prometheus.RecordOperation("note", "create")
	s.log.Info("Note created", zap.Uint("note_id", n.ID), zap.String("category", string(n.Category)))
	return nil
}

// Update merges a patch into the editable fields of a note
func (s *NoteService) Update(ctx context.Context, id uint, patch Patch[model.Note]) (*model.Note, error) {
	defer prometheus.TrackDBOperation("note_update")(time.Now())

	note, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	in, err := patched(s.db.WithContext(ctx), id, patch)
	if err != nil {
		return nil, err
	}
	note.Title = in.Title
	note.Content = in.Content
	note.Category = in.Category
	note.Priority = in.Priority
	note.Tags = in.Tags
	note.RelatedTo = in.RelatedTo
	note.ReminderDate = in.ReminderDate
	note.IsReminder = in.IsReminder
	note.IsCompleted = in.IsCompleted
	note.Attachments = in.Attachments

	return s.save(ctx, note, "update")
}

func (s *NoteService) save(ctx context.Context, note *model.Note, op string) (*model.Note, error) {
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Save(note).Error; err != nil {
		return nil, dbErr(err, op+" note")
	}
	prometheus.RecordOperation("note", op)
	s.log.Info("Note saved", zap.Uint("note_id", note.ID), zap.String("operation", op))
	return note, nil
}

// Complete marks a note as done
func (s *NoteService) Complete(ctx context.Context, id uint) (*model.Note, error) {
	note, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	note.MarkCompleted(model.Now())
	return s.save(ctx, note, "complete")
}

// SetReminder schedules a reminder on a note
func (s *NoteService) SetReminder(ctx context.Context, id uint, at time.Time) (*model.Note, error) {
	if at.IsZero() {
		return nil, apperr.Validation("reminderDate", "Ngày nhắc nhở là bắt buộc")
	}
	note, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	note.SetReminder(at)
	return s.save(ctx, note, "set_reminder")
}

// CancelReminder removes the reminder from a note
func (s *NoteService) CancelReminder(ctx context.Context, id uint) (*model.Note, error) {
	note, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	note.CancelReminder()
	return s.save(ctx, note, "cancel_reminder")
}

// Delete soft-deletes a note
func (s *NoteService) Delete(ctx context.Context, id uint) error {
	note, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Model(note).UpdateColumn("is_active", false).Error; err != nil {
		return errors.Wrap(err, "soft delete note")
	}
	prometheus.RecordOperation("note", "delete")
	s.log.Info("Note deleted", zap.Uint("note_id", id))
	return nil
}

// Important returns open high and urgent notes
func (s *NoteService) Important(ctx context.Context) ([]model.Note, error) {
	var notes []model.Note
	err := onlyActive(s.db.WithContext(ctx)).
		Where("is_completed = ? AND priority IN ?", false,
			[]model.NotePriority{model.PriorityHigh, model.PriorityUrgent}).
		Order("created_at desc").
		Find(&notes).Error
	return notes, dbErr(err, "find important notes")
}

// DueReminders returns open reminders whose date has come
func (s *NoteService) DueReminders(ctx context.Context) ([]model.Note, error) {
	var notes []model.Note
	err := onlyActive(s.db.WithContext(ctx)).
		Where("is_reminder = ? AND is_completed = ? AND reminder_date <= ?", true, false, model.Now()).
		Order("reminder_date asc").
		Find(&notes).Error
	return notes, dbErr(err, "find due reminders")
}

// ByCategory returns the notes of one category
func (s *NoteService) ByCategory(ctx context.Context, category model.NoteCategory) ([]model.Note, error) {
	if !category.Valid() {
		return nil, apperr.Validation("category", "Danh mục không hợp lệ")
	}
	var notes []model.Note
	err := onlyActive(s.db.WithContext(ctx)).
		Where("category = ?", category).
		Order("created_at desc").
		Find(&notes).Error
	return notes, dbErr(err, "find notes by category")
}

// ByTag returns the notes carrying tag
func (s *NoteService) ByTag(ctx context.Context, tag string) ([]model.Note, error) {
	var notes []model.Note
	err := tagFilter(onlyActive(s.db.WithContext(ctx)), tag).
		Order("created_at desc").
		Find(&notes).Error
	return notes, dbErr(err, "find notes by tag")
}

// TagCount is how many notes carry a tag
type TagCount struct {
	Tag   string `json:"tag"`
	Count int64  `json:"count"`
}

// NoteStats is the note overview
type NoteStats struct {
	Total          int64            `json:"total"`
	Completed      int64            `json:"completed"`
	Pending        int64            `json:"pending"`
	Reminders      int64            `json:"reminders"`
	DueReminders   int64            `json:"dueReminders"`
	CompletionRate float64          `json:"completionRate"`
	CategoryStats  map[string]int64 `json:"categoryStats"`
	PriorityStats  map[string]int64 `json:"priorityStats"`
	PopularTags    []TagCount       `json:"popularTags"`
}

// Stats builds the note overview
func (s *NoteService) Stats(ctx context.Context) (*NoteStats, error) {
	defer prometheus.TrackDBOperation("note_stats")(time.Now())

	var notes []model.Note
	if err := onlyActive(s.db.WithContext(ctx)).Find(&notes).Error; err != nil {
		return nil, dbErr(err, "load notes")
	}

	now := model.Now()
	stats := &NoteStats{
		Total:         int64(len(notes)),
		CategoryStats: map[string]int64{},
		PriorityStats: map[string]int64{},
	}
	tags := map[string]int64{}
	for i := range notes {
		n := &notes[i]
		if n.IsCompleted {
			stats.Completed++
		} else {
			stats.Pending++
		}
		if n.IsReminder {
			stats.Reminders++
		}
		if n.Status(now) == model.NoteStatusDue {
			stats.DueReminders++
		}
		stats.CategoryStats[string(n.Category)]++
		stats.PriorityStats[string(n.Priority)]++
		for _, t := range n.Tags {
			tags[t]++
		}
	}
	stats.CompletionRate = percent(stats.Completed, stats.Total)

	stats.PopularTags = make([]TagCount, 0, len(tags))
	for t, c := range tags {
		stats.PopularTags = append(stats.PopularTags, TagCount{Tag: t, Count: c})
	}
	sort.Slice(stats.PopularTags, func(i, j int) bool {
		a, b := stats.PopularTags[i], stats.PopularTags[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Tag < b.Tag
	})
	if len(stats.PopularTags) > 10 {
		stats.PopularTags = stats.PopularTags[:10]
	}
	return stats, nil
}
