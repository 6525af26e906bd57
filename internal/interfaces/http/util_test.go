package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type MockGenerator struct {
	CreateMessagesFunc func(ctx context.Context, ispb string, count int) (float64, error)
}

func (m *MockGenerator) CreateMessages(ctx context.Context, ispb string, count int) (float64, error) {
	return m.CreateMessagesFunc(ctx, ispb, count)
}

func TestHandleGenerateMessages(t *testing.T) {
	tests := []struct {
		name       string
		ispb       string
		number     string
		genTotal   float64
		genErr     error
		wantStatus int
		wantCalls  int
	}{
		{
			name:       "generates requested messages",
			ispb:       "32074986",
			number:     "10",
			genTotal:   1234.5649,
			wantStatus: http.StatusCreated,
			wantCalls:  1,
		},
		{
			name:       "invalid ispb",
			ispb:       "1234",
			number:     "5",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "number too large",
			ispb:       "32074986",
			number:     "101",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "negative number",
			ispb:       "32074986",
			number:     "-1",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "number not numeric",
			ispb:       "32074986",
			number:     "ten",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "generator failure",
			ispb:       "32074986",
			number:     "5",
			genErr:     errors.New("connection refused"),
			wantStatus: http.StatusInternalServerError,
			wantCalls:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			handler := NewUtilHandler(&MockGenerator{
				CreateMessagesFunc: func(ctx context.Context, ispb string, count int) (float64, error) {
					calls++
					if ispb != tt.ispb {
						t.Errorf("expected ispb %q, got %q", tt.ispb, ispb)
					}
					return tt.genTotal, tt.genErr
				},
			})

			r := httptest.NewRequest(http.MethodPost, "/api/util/msgs/"+tt.ispb+"/"+tt.number, nil)
			r.SetPathValue("ispb", tt.ispb)
			r.SetPathValue("number", tt.number)
			w := httptest.NewRecorder()
			handler.HandleGenerateMessages(w, r)

			if w.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
			if calls != tt.wantCalls {
				t.Errorf("expected %d generator calls, got %d", tt.wantCalls, calls)
			}
			if tt.wantStatus != http.StatusCreated {
				return
			}

			var body GenerateMessagesResponse
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if body.Status != "success" {
				t.Errorf("expected status success, got %q", body.Status)
			}
			if body.MessagesGenerated != 10 {
				t.Errorf("expected messages_generated 10, got %d", body.MessagesGenerated)
			}
			if body.ReceiverISPB != tt.ispb {
				t.Errorf("expected receiver_ispb %q, got %q", tt.ispb, body.ReceiverISPB)
			}
			if body.TotalValue != 1234.56 {
				t.Errorf("expected total rounded to 1234.56, got %f", body.TotalValue)
			}
		})
	}
}

func TestHandleGenerateMessagesRejectsGet(t *testing.T) {
	handler := NewUtilHandler(&MockGenerator{})
	r := httptest.NewRequest(http.MethodGet, "/api/util/msgs/32074986/5", nil)
	w := httptest.NewRecorder()
	handler.HandleGenerateMessages(w, r)
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status 405, got %d", w.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	HandleHealth(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %q", body["status"])
	}
}
