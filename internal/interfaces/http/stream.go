package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"pixpull/internal/domain/message"
	"pixpull/internal/domain/stream"
)

// DeliveryService is the slice of the delivery engine the handlers need.
type DeliveryService interface {
	Fetch(ctx context.Context, ispb, streamID string, maxWait time.Duration, single bool) ([]*message.PixMessage, string, error)
	Acknowledge(ctx context.Context, streamID string) error
}

// StreamDirectory resolves streams for ownership checks without
// refreshing their activity.
type StreamDirectory interface {
	Get(ctx context.Context, streamID string) (*stream.Stream, error)
}

type StreamHandler struct {
	delivery DeliveryService
	streams  StreamDirectory
	maxWait  time.Duration
}

func NewStreamHandler(delivery DeliveryService, streams StreamDirectory, maxWait time.Duration) *StreamHandler {
	return &StreamHandler{delivery: delivery, streams: streams, maxWait: maxWait}
}

// Response DTOs (the wire shape of one delivered message)

type HolderResponse struct {
	Nome              string `json:"nome"`
	CpfCnpj           string `json:"cpfCnpj"`
	ISPB              string `json:"ispb"`
	Agencia           string `json:"agencia"`
	ContaTransacional string `json:"contaTransacional"`
	TipoConta         string `json:"tipoConta"`
}

type MessageResponse struct {
	EndToEndID        string         `json:"endToEndId"`
	Valor             float64        `json:"valor"`
	Pagador           HolderResponse `json:"pagador"`
	Recebedor         HolderResponse `json:"recebedor"`
	CampoLivre        *string        `json:"campoLivre"`
	TxID              string         `json:"txId"`
	DataHoraPagamento string         `json:"dataHoraPagamento"`
}

func toHolderResponse(h *message.AccountHolder) HolderResponse {
	if h == nil {
		return HolderResponse{}
	}
	return HolderResponse{
		Nome:              h.Nome,
		CpfCnpj:           h.CpfCnpj,
		ISPB:              h.ISPB,
		Agencia:           h.Agencia,
		ContaTransacional: h.ContaTransacional,
		TipoConta:         h.TipoConta,
	}
}

func toMessageResponse(m *message.PixMessage) MessageResponse {
	return MessageResponse{
		EndToEndID:        m.EndToEndID,
		Valor:             m.Valor,
		Pagador:           toHolderResponse(m.Pagador),
		Recebedor:         toHolderResponse(m.Recebedor),
		CampoLivre:        m.CampoLivre,
		TxID:              m.TxID,
		DataHoraPagamento: m.DataHoraPagamento.Format(time.RFC3339),
	}
}

// HandleStreamStart starts a new stream for an institution and long-polls
// for its first batch of messages.
func (h *StreamHandler) HandleStreamStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.fetch(w, r, "")
}

// HandleStream routes requests against an existing stream: GET continues
// polling it, DELETE acknowledges receipt and terminates it.
func (h *StreamHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.fetch(w, r, r.PathValue("streamId"))
	case http.MethodDelete:
		h.handleTerminate(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *StreamHandler) fetch(w http.ResponseWriter, r *http.Request, streamID string) {
	ispb := r.PathValue("ispb")
	if !message.IsValidISPB(ispb) {
		http.Error(w, "ISPB must be an 8-digit code", http.StatusBadRequest)
		return
	}

	// application/json returns a single message; multipart/json an array.
	single := !strings.Contains(strings.ToLower(r.Header.Get("Accept")), "multipart/json")

	msgs, nextID, err := h.delivery.Fetch(r.Context(), ispb, streamID, h.maxWait, single)
	if err != nil {
		h.writeFetchError(w, ispb, streamID, err)
		return
	}

	w.Header().Set("Pull-Next", fmt.Sprintf("/api/pix/%s/stream/%s", ispb, nextID))

	if len(msgs) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if single {
		json.NewEncoder(w).Encode(toMessageResponse(msgs[0]))
		return
	}
	response := make([]MessageResponse, 0, len(msgs))
	for _, m := range msgs {
		response = append(response, toMessageResponse(m))
	}
	json.NewEncoder(w).Encode(response)
}

func (h *StreamHandler) writeFetchError(w http.ResponseWriter, ispb, streamID string, err error) {
	switch {
	case errors.Is(err, stream.ErrTooManyStreams):
		http.Error(w, err.Error(), http.StatusTooManyRequests)
	case errors.Is(err, stream.ErrStreamNotFound):
		http.Error(w, fmt.Sprintf("Stream %s not found", streamID), http.StatusNotFound)
	case errors.Is(err, stream.ErrStreamGone):
		http.Error(w, fmt.Sprintf("Stream %s is no longer active", streamID), http.StatusGone)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// Client went away mid-poll; nothing useful to write.
		log.Printf("Fetch for ISPB %s aborted: %v", ispb, err)
	default:
		log.Printf("Error fetching messages for ISPB %s: %v", ispb, err)
		http.Error(w, "Failed to fetch messages", http.StatusInternalServerError)
	}
}

func (h *StreamHandler) handleTerminate(w http.ResponseWriter, r *http.Request) {
	ispb := r.PathValue("ispb")
	if !message.IsValidISPB(ispb) {
		http.Error(w, "ISPB must be an 8-digit code", http.StatusBadRequest)
		return
	}
	streamID := r.PathValue("streamId")

	st, err := h.streams.Get(r.Context(), streamID)
	if err != nil {
		if errors.Is(err, stream.ErrStreamNotFound) {
			http.Error(w, fmt.Sprintf("Stream %s not found", streamID), http.StatusNotFound)
			return
		}
		log.Printf("Error resolving stream %s: %v", streamID, err)
		http.Error(w, "Failed to resolve stream", http.StatusInternalServerError)
		return
	}
	if st.ISPB != ispb {
		http.Error(w, fmt.Sprintf("Stream %s does not belong to ISPB %s", streamID, ispb), http.StatusForbidden)
		return
	}

	if err := h.delivery.Acknowledge(r.Context(), streamID); err != nil {
		log.Printf("Error terminating stream %s: %v", streamID, err)
		http.Error(w, "Failed to mark messages as delivered", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte("{}"))
}
