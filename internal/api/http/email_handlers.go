package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/keeleklass/keeleklass/internal/email"
)

// SendEmailHandler sends one admin message to a student and records the
// outcome in the history log either way.
func SendEmailHandler(svc email.Service, logStore email.Log) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			StudentID string `json:"student_id"`
			To        string `json:"to"`
			Subject   string `json:"subject"`
			Body      string `json:"body"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		if req.To == "" || req.Subject == "" {
			http.Error(w, "to and subject required", 400)
			return
		}

		sendErr := svc.Send(r.Context(), email.Message{To: req.To, Subject: req.Subject, Body: req.Body})
		entry := email.LogEntry{
			StudentID: req.StudentID,
			To:        req.To,
			Subject:   req.Subject,
			Body:      req.Body,
			Status:    "sent",
			SentAt:    time.Now().Unix(),
		}
		if sendErr != nil {
			entry.Status = "failed"
		}
		if err := logStore.Record(r.Context(), entry); err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		if sendErr != nil {
			http.Error(w, sendErr.Error(), 502)
			return
		}
		_ = json.NewEncoder(w).Encode(entry)
	}
}

// EmailHistoryHandler lists past sends, optionally for one student.
func EmailHistoryHandler(logStore email.Log) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		out, err := logStore.History(r.Context(), r.URL.Query().Get("student_id"), limit)
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		_ = json.NewEncoder(w).Encode(out)
	}
}
