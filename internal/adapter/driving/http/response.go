package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/honeyshell/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the JSON body of the health probe.
type HealthResponse struct {
	Status         string `json:"status"`
	Time           string `json:"time"`
	ActiveSessions int    `json:"active_sessions"`
}

// CredentialUsageResponse is the JSON representation of an attempt counter.
type CredentialUsageResponse struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Count    int64  `json:"count"`
}

// CredentialResponse is the JSON representation of a learned credential.
type CredentialResponse struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	GrantedAt string `json:"granted_at"`
}

// SessionResponse is the JSON representation of a recorded session.
type SessionResponse struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	FirstSeen string `json:"first_seen"`
	LastSeen  string `json:"last_seen"`
	Commands  int    `json:"commands"`
}

// CommandResponse is the JSON representation of one logged command.
type CommandResponse struct {
	Username  string `json:"username"`
	Timestamp string `json:"timestamp"`
	Command   string `json:"command"`
	Single    bool   `json:"single"`
}

func toCredentialUsageResponse(u model.CredentialUsage) CredentialUsageResponse {
	return CredentialUsageResponse{
		Username: u.Username,
		Password: u.Password,
		Count:    u.Count,
	}
}

func toCredentialResponse(c model.Credential) CredentialResponse {
	return CredentialResponse{
		Username:  c.Username,
		Password:  c.Password,
		GrantedAt: formatTime(c.CreatedAt),
	}
}

func toSessionResponse(s model.SessionSummary) SessionResponse {
	return SessionResponse{
		ID:        s.SessionID.String(),
		Username:  s.Username,
		FirstSeen: formatTime(s.FirstSeen),
		LastSeen:  formatTime(s.LastSeen),
		Commands:  s.Commands,
	}
}

func toCommandResponse(c model.CommandEntry) CommandResponse {
	return CommandResponse{
		Username:  c.Username,
		Timestamp: formatTime(c.Timestamp),
		Command:   c.Command,
		Single:    c.Single,
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
