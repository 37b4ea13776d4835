package adminapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/labstack/echo/v4"
	"github.com/talkbase/wadash/internal/domain"
	"github.com/talkbase/wadash/internal/store"
	"github.com/talkbase/wadash/internal/webserver"
	"github.com/talkbase/wadash/pkg/common"
)

func registerScheduleRoutes() {
	webserver.ApiGET("/schedules", listSchedules)
	webserver.ApiPOST("/schedules", createSchedule)
	webserver.ApiPOST("/schedules/:id/cancel", cancelSchedule)
	webserver.ApiGET("/reminders", listReminders)
	webserver.ApiPOST("/reminders", createReminder)
	webserver.ApiPOST("/reminders/:id/cancel", cancelReminder)
	webserver.ApiPOST("/scheduler/run", runSchedulerNow)
}

type schedulePayload struct {
	Phone       string `json:"phone"`
	Content     string `json:"content"`
	MessageType string `json:"message_type"`
	ScheduledAt string `json:"scheduled_at"`
	RepeatType  string `json:"repeat_type"`
}

func listSchedules(c echo.Context) error {
	page, pageSize := parsePagination(c)
	db := GetDB(c)

	query := db.Model(&domain.ScheduledMessage{})
	if status := strings.TrimSpace(c.QueryParam("status")); status != "" {
		query = query.Where("status = ?", status)
	}
	if phone := strings.TrimSpace(c.QueryParam("phone")); phone != "" {
		query = query.Where("phone = ?", phone)
	}

	var total int64
	query.Count(&total)
	var msgs []domain.ScheduledMessage
	if err := query.Order("scheduled_at DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&msgs).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query schedules", err.Error())
	}
	return paged(c, msgs, total, page, pageSize)
}

func createSchedule(c echo.Context) error {
	var payload schedulePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse schedule parameters", nil)
	}
	if strings.TrimSpace(payload.Phone) == "" || strings.TrimSpace(payload.Content) == "" {
		return fail(c, http.StatusBadRequest, "MISSING_FIELDS", "phone and content are required", nil)
	}
	// accept any reasonable timestamp format from the dashboard
	at, err := dateparse.ParseIn(payload.ScheduledAt, time.Local)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_TIME", "Unable to parse scheduled_at", err.Error())
	}
	switch payload.RepeatType {
	case domain.RepeatNone, domain.RepeatDaily, domain.RepeatWeekly, domain.RepeatMonthly:
	default:
		return fail(c, http.StatusBadRequest, "INVALID_REPEAT", "repeat_type must be empty, daily, weekly or monthly", nil)
	}

	m := &domain.ScheduledMessage{
		ID:          common.UUIDint64(),
		Phone:       common.NormalizePhone(payload.Phone),
		Content:     payload.Content,
		MessageType: payload.MessageType,
		ScheduledAt: at,
		Status:      domain.SchedulePending,
		RepeatType:  payload.RepeatType,
	}
	if err := store.NewSchedules(GetDB(c)).CreateMessage(m); err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create schedule", err.Error())
	}
	return ok(c, map[string]interface{}{"id": m.ID, "scheduled_at": m.ScheduledAt})
}

func cancelSchedule(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid schedule ID", nil)
	}
	done, err := store.NewSchedules(GetDB(c)).CancelMessage(id)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to cancel schedule", err.Error())
	}
	if !done {
		return fail(c, http.StatusConflict, "NOT_CANCELLABLE", "Schedule already terminal", nil)
	}
	// drop the lane item of an already promoted row so it is never sent
	purged := GetEngine(c).Queue.CancelRef(id)
	return ok(c, map[string]interface{}{"id": id, "status": domain.ScheduleCancelled, "purged": purged})
}

type reminderPayload struct {
	Phone    string `json:"phone"`
	Content  string `json:"content"`
	RemindAt string `json:"remind_at"`
}

func listReminders(c echo.Context) error {
	page, pageSize := parsePagination(c)
	db := GetDB(c)

	query := db.Model(&domain.Reminder{})
	if status := strings.TrimSpace(c.QueryParam("status")); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	query.Count(&total)
	var rems []domain.Reminder
	if err := query.Order("remind_at DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&rems).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query reminders", err.Error())
	}
	return paged(c, rems, total, page, pageSize)
}

func createReminder(c echo.Context) error {
	var payload reminderPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse reminder parameters", nil)
	}
	if strings.TrimSpace(payload.Phone) == "" || strings.TrimSpace(payload.Content) == "" {
		return fail(c, http.StatusBadRequest, "MISSING_FIELDS", "phone and content are required", nil)
	}
	at, err := dateparse.ParseIn(payload.RemindAt, time.Local)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_TIME", "Unable to parse remind_at", err.Error())
	}

	r := &domain.Reminder{
		ID:       common.UUIDint64(),
		Phone:    common.NormalizePhone(payload.Phone),
		Content:  payload.Content,
		RemindAt: at,
		Status:   domain.ReminderActive,
	}
	if err := store.NewSchedules(GetDB(c)).CreateReminder(r); err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create reminder", err.Error())
	}
	return ok(c, map[string]interface{}{"id": r.ID, "remind_at": r.RemindAt})
}

func cancelReminder(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid reminder ID", nil)
	}
	done, err := store.NewSchedules(GetDB(c)).CancelReminder(id)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to cancel reminder", err.Error())
	}
	if !done {
		return fail(c, http.StatusConflict, "NOT_CANCELLABLE", "Reminder already terminal", nil)
	}
	purged := GetEngine(c).Queue.CancelRef(id)
	return ok(c, map[string]interface{}{"id": id, "status": domain.ScheduleCancelled, "purged": purged})
}

// runSchedulerNow triggers an immediate promotion tick. Safe next to the
// periodic loop: the queued transition is conditional.
func runSchedulerNow(c echo.Context) error {
	GetEngine(c).Scheduler.Tick()
	return c.NoContent(http.StatusNoContent)
}
