package adminapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/360EntSecGroup-Skylar/excelize"
	"github.com/araddon/dateparse"
	"github.com/gocarina/gocsv"
	"github.com/labstack/echo/v4"
	"github.com/talkbase/wadash/internal/domain"
	"github.com/talkbase/wadash/internal/store"
	"github.com/talkbase/wadash/internal/webserver"
)

const exportMaxRows = 50000

func registerLogRoutes() {
	webserver.ApiGET("/logs", listLogs)
	webserver.ApiGET("/logs/export/csv", exportLogsCSV)
	webserver.ApiGET("/logs/export/xlsx", exportLogsXLSX)
}

func logFilterFromQuery(c echo.Context) store.LogFilter {
	f := store.LogFilter{
		Phone:       strings.TrimSpace(c.QueryParam("phone")),
		Status:      strings.TrimSpace(c.QueryParam("status")),
		MessageType: strings.TrimSpace(c.QueryParam("message_type")),
	}
	if since := c.QueryParam("since"); since != "" {
		if t, err := dateparse.ParseIn(since, time.Local); err == nil {
			f.Since = t
		}
	}
	if until := c.QueryParam("until"); until != "" {
		if t, err := dateparse.ParseIn(until, time.Local); err == nil {
			f.Until = t
		}
	}
	return f
}

func listLogs(c echo.Context) error {
	page, pageSize := parsePagination(c)
	logs, total, err := store.NewLogs(GetDB(c)).List(logFilterFromQuery(c), (page-1)*pageSize, pageSize)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query logs", err.Error())
	}
	return paged(c, logs, total, page, pageSize)
}

type logExportRow struct {
	Time        string `csv:"time"`
	Direction   string `csv:"direction"`
	Phone       string `csv:"phone"`
	SessionId   int64  `csv:"session_id"`
	MessageType string `csv:"message_type"`
	Status      string `csv:"status"`
	Error       string `csv:"error"`
	Content     string `csv:"content"`
}

func exportRows(logs []domain.MessageLog) []logExportRow {
	rows := make([]logExportRow, 0, len(logs))
	for _, l := range logs {
		rows = append(rows, logExportRow{
			Time:        l.CreatedAt.Format(time.RFC3339),
			Direction:   l.Direction,
			Phone:       l.Phone,
			SessionId:   l.SessionId,
			MessageType: l.MessageType,
			Status:      l.Status,
			Error:       l.ErrorMessage,
			Content:     l.Content,
		})
	}
	return rows
}

func exportLogsCSV(c echo.Context) error {
	logs, err := store.NewLogs(GetDB(c)).Export(logFilterFromQuery(c), exportMaxRows)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to export logs", err.Error())
	}
	rows := exportRows(logs)

	c.Response().Header().Set(echo.HeaderContentType, "text/csv")
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="message_logs.csv"`)
	c.Response().WriteHeader(http.StatusOK)
	return gocsv.Marshal(&rows, c.Response())
}

func exportLogsXLSX(c echo.Context) error {
	logs, err := store.NewLogs(GetDB(c)).Export(logFilterFromQuery(c), exportMaxRows)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to export logs", err.Error())
	}
	rows := exportRows(logs)

	const sheet = "Sheet1"
	f := excelize.NewFile()
	headers := []string{"time", "direction", "phone", "session_id", "message_type", "status", "error", "content"}
	for col, h := range headers {
		f.SetCellValue(sheet, fmt.Sprintf("%s1", excelize.ToAlphaString(col)), h)
	}
	for i, r := range rows {
		values := []interface{}{r.Time, r.Direction, r.Phone, r.SessionId, r.MessageType, r.Status, r.Error, r.Content}
		for col, v := range values {
			f.SetCellValue(sheet, fmt.Sprintf("%s%d", excelize.ToAlphaString(col), i+2), v)
		}
	}

	c.Response().Header().Set(echo.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="message_logs.xlsx"`)
	c.Response().WriteHeader(http.StatusOK)
	return f.Write(c.Response())
}
