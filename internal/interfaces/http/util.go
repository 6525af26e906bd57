package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net/http"
	"strconv"

	"pixpull/internal/domain/message"
)

const maxGeneratedMessages = 100

// MessageGenerator seeds the store with random messages for an ISPB.
type MessageGenerator interface {
	CreateMessages(ctx context.Context, ispb string, count int) (float64, error)
}

type UtilHandler struct {
	generator MessageGenerator
}

func NewUtilHandler(generator MessageGenerator) *UtilHandler {
	return &UtilHandler{generator: generator}
}

type GenerateMessagesResponse struct {
	Status            string  `json:"status"`
	MessagesGenerated int     `json:"messages_generated"`
	ReceiverISPB      string  `json:"receiver_ispb"`
	TotalValue        float64 `json:"total_value"`
	Message           string  `json:"message"`
}

// HandleGenerateMessages creates random test messages addressed to the
// given ISPB so pollers have something to pull.
func (h *UtilHandler) HandleGenerateMessages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ispb := r.PathValue("ispb")
	if !message.IsValidISPB(ispb) {
		http.Error(w, "ISPB must be an 8-digit code", http.StatusBadRequest)
		return
	}
	number, err := strconv.Atoi(r.PathValue("number"))
	if err != nil || number < 1 || number > maxGeneratedMessages {
		http.Error(w, fmt.Sprintf("Number of messages must be between 1 and %d", maxGeneratedMessages), http.StatusBadRequest)
		return
	}

	total, err := h.generator.CreateMessages(r.Context(), ispb, number)
	if err != nil {
		log.Printf("Error generating test messages for ISPB %s: %v", ispb, err)
		http.Error(w, "Failed to generate test messages", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(GenerateMessagesResponse{
		Status:            "success",
		MessagesGenerated: number,
		ReceiverISPB:      ispb,
		TotalValue:        math.Round(total*100) / 100,
		Message:           fmt.Sprintf("Successfully generated %d test messages for ISPB %s", number, ispb),
	})
}

// HandleHealth reports service liveness.
func HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
