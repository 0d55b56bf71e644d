package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"inboxd/internal/domain"
	"inboxd/internal/webhook"
)

const maxBodySize = 1 << 20 // 1MB

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, detail string) {
	respondJSON(w, status, map[string]string{"detail": detail})
}

// handleWebhook ingests one signed message notification. Verification runs
// against the exact bytes received; parsing happens only after the signature
// checks out.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		respondError(w, http.StatusBadRequest, "cannot read body")
		return
	}
	defer r.Body.Close()

	if !webhook.VerifySignature(body, s.cfg.WebhookSecret, r.Header.Get("X-Signature")) {
		s.metrics.ObserveWebhookResult(string(domain.OutcomeInvalidSignature))
		annotate(r.Context(), "result", domain.OutcomeInvalidSignature)
		respondError(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	msg, err := webhook.ParsePayload(body)
	if err != nil {
		s.metrics.ObserveWebhookResult(string(domain.OutcomeValidationError))
		annotate(r.Context(), "result", domain.OutcomeValidationError)
		s.logger.Debug("webhook payload rejected", "err", err)
		respondError(w, http.StatusUnprocessableEntity, "Invalid payload")
		return
	}

	outcome, err := s.store.Insert(r.Context(), msg)
	if err != nil {
		s.logger.Error("message insert failed", "message_id", msg.MessageID, "err", err)
		respondError(w, http.StatusInternalServerError, "storage error")
		return
	}

	s.metrics.ObserveWebhookResult(string(outcome))
	annotate(r.Context(),
		"message_id", msg.MessageID,
		"dup", outcome == domain.OutcomeDuplicate,
		"result", outcome,
	)
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type messageJSON struct {
	MessageID string    `json:"message_id"`
	From      string    `json:"from_msisdn"`
	To        string    `json:"to_msisdn"`
	TS        time.Time `json:"ts"`
	Text      *string   `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

type listResponse struct {
	Data   []messageJSON `json:"data"`
	Total  int64         `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

func intParam(q url.Values, name string, fallback int) (int, error) {
	raw := q.Get(name)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit, err := intParam(q, "limit", 50)
	if err != nil || limit < 1 || limit > 100 {
		respondError(w, http.StatusBadRequest, "limit must be an integer between 1 and 100")
		return
	}
	offset, err := intParam(q, "offset", 0)
	if err != nil || offset < 0 {
		respondError(w, http.StatusBadRequest, "offset must be a non-negative integer")
		return
	}

	f := domain.Filter{
		From:   q.Get("from"),
		Q:      q.Get("q"),
		Limit:  limit,
		Offset: offset,
	}
	if raw := q.Get("since"); raw != "" {
		// An unparseable since is treated as absent, not as an error.
		if t, err := webhook.ParseTimestamp(raw); err == nil {
			f.Since = &t
		}
	}

	msgs, total, err := s.store.List(r.Context(), f)
	if err != nil {
		s.logger.Error("message query failed", "err", err)
		respondError(w, http.StatusInternalServerError, "storage error")
		return
	}

	data := make([]messageJSON, len(msgs))
	for i, m := range msgs {
		data[i] = messageJSON{
			MessageID: m.MessageID,
			From:      m.From,
			To:        m.To,
			TS:        m.TS,
			Text:      m.Text,
			CreatedAt: m.CreatedAt,
		}
	}
	respondJSON(w, http.StatusOK, listResponse{Data: data, Total: total, Limit: limit, Offset: offset})
}

type senderCountJSON struct {
	From  string `json:"from"`
	Count int64  `json:"count"`
}

type statsResponse struct {
	TotalMessages     int64             `json:"total_messages"`
	SendersCount      int64             `json:"senders_count"`
	FirstMessageTS    *time.Time        `json:"first_message_ts"`
	LastMessageTS     *time.Time        `json:"last_message_ts"`
	MessagesPerSender []senderCountJSON `json:"messages_per_sender"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.store.Stats(r.Context())
	if err != nil {
		s.logger.Error("stats query failed", "err", err)
		respondError(w, http.StatusInternalServerError, "storage error")
		return
	}

	perSender := make([]senderCountJSON, len(st.PerSender))
	for i, sc := range st.PerSender {
		perSender[i] = senderCountJSON{From: sc.From, Count: sc.Count}
	}
	respondJSON(w, http.StatusOK, statsResponse{
		TotalMessages:     st.TotalMessages,
		SendersCount:      st.SendersCount,
		FirstMessageTS:    st.FirstTS,
		LastMessageTS:     st.LastTS,
		MessagesPerSender: perSender,
	})
}

func (s *Server) handleHealthLive(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleHealthReady(w http.ResponseWriter, r *http.Request) {
	if strings.TrimSpace(s.cfg.WebhookSecret) == "" {
		respondError(w, http.StatusServiceUnavailable, "secret not configured")
		return
	}
	if err := s.store.Ping(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, "database unreachable")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
