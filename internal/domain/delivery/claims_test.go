package delivery

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"pixpull/internal/domain/message"
	"pixpull/internal/domain/stream"
)

// fakeStore is an in-memory record store implementing both the stream
// and message repository contracts with the same claim semantics as the
// SQL implementation: selection and stamping happen under one lock, the
// per-ISPB cap is enforced inside Create, and reclamation releases
// undelivered claims.
type fakeStore struct {
	mu      sync.Mutex
	streams map[string]*stream.Stream
	msgs    []*message.PixMessage
	nextID  int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{streams: make(map[string]*stream.Stream)}
}

func (f *fakeStore) Create(ctx context.Context, ispb, streamID string, maxActive int) (*stream.Stream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	active := 0
	for _, st := range f.streams {
		if st.ISPB == ispb && st.IsActive {
			active++
		}
	}
	if active >= maxActive {
		return nil, stream.ErrTooManyStreams
	}

	st := &stream.Stream{StreamID: streamID, ISPB: ispb, CreatedAt: time.Now(), LastActive: time.Now(), IsActive: true}
	f.streams[streamID] = st
	return st, nil
}

func (f *fakeStore) GetByID(ctx context.Context, streamID string) (*stream.Stream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	st, ok := f.streams[streamID]
	if !ok {
		return nil, stream.ErrStreamNotFound
	}
	cp := *st
	return &cp, nil
}

func (f *fakeStore) Touch(ctx context.Context, streamID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if st, ok := f.streams[streamID]; ok {
		st.LastActive = time.Now()
	}
	return nil
}

func (f *fakeStore) Terminate(ctx context.Context, streamID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	st, ok := f.streams[streamID]
	if !ok {
		return stream.ErrStreamNotFound
	}
	for _, m := range f.msgs {
		if m.StreamID != nil && *m.StreamID == streamID && !m.Delivered {
			m.Delivered = true
		}
	}
	st.IsActive = false
	return nil
}

func (f *fakeStore) ReclaimExpired(ctx context.Context, cutoff time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	count := 0
	for _, st := range f.streams {
		if !st.IsActive || !st.LastActive.Before(cutoff) {
			continue
		}
		st.IsActive = false
		count++
		for _, m := range f.msgs {
			if m.StreamID != nil && *m.StreamID == st.StreamID && !m.Delivered {
				m.StreamID = nil
			}
		}
	}
	return count, nil
}

func (f *fakeStore) Insert(ctx context.Context, params message.CreateParams) (*message.PixMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++
	m := &message.PixMessage{
		ID:                f.nextID,
		EndToEndID:        params.EndToEndID,
		Valor:             params.Valor,
		TxID:              params.TxID,
		DataHoraPagamento: params.DataHoraPagamento,
		CreatedAt:         time.Now(),
		Recebedor:         &message.AccountHolder{ISPB: receiverISPBs[params.ReceiverID]},
	}
	f.msgs = append(f.msgs, m)
	return m, nil
}

// receiverISPBs lets test inserts carry the receiver institution without
// a holder table; keys are fake holder ids.
var receiverISPBs = map[int64]string{}

func (f *fakeStore) ClaimForStream(ctx context.Context, streamID, ispb string, limit int) ([]*message.PixMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var eligible []*message.PixMessage
	for _, m := range f.msgs {
		if !m.Delivered && m.StreamID == nil && m.Recebedor != nil && m.Recebedor.ISPB == ispb {
			eligible = append(eligible, m)
		}
	}
	sort.Slice(eligible, func(i, j int) bool {
		return eligible[i].DataHoraPagamento.Before(eligible[j].DataHoraPagamento)
	})
	if len(eligible) > limit {
		eligible = eligible[:limit]
	}
	out := make([]*message.PixMessage, 0, len(eligible))
	for _, m := range eligible {
		id := streamID
		m.StreamID = &id
		cp := *m
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeStore) addMessage(t *testing.T, e2e, ispb string, paidAt time.Time) {
	t.Helper()
	holderID := int64(len(receiverISPBs) + 1)
	receiverISPBs[holderID] = ispb
	_, err := f.Insert(context.Background(), message.CreateParams{
		EndToEndID:        e2e,
		Valor:             42.5,
		PayerID:           1,
		ReceiverID:        holderID,
		TxID:              "tx-" + e2e,
		DataHoraPagamento: paidAt,
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
}

func newEngine(store *fakeStore) (*Service, *stream.Service) {
	streams := stream.NewService(store, 6)
	return NewService(streams, store, 5*time.Millisecond, 50*time.Millisecond), streams
}

func TestClaimedMessageIsNotVisibleToOtherStreams(t *testing.T) {
	store := newFakeStore()
	store.addMessage(t, "e2e-a", "12345678", time.Now())
	svc, _ := newEngine(store)
	ctx := context.Background()

	got, streamA, err := svc.Fetch(ctx, "12345678", "", 0, true)
	if err != nil {
		t.Fatalf("Fetch(A) error = %v", err)
	}
	if len(got) != 1 || got[0].EndToEndID != "e2e-a" {
		t.Fatalf("Fetch(A) = %v, want the seeded message", got)
	}

	// A concurrent stream for the same institution must not see it.
	gotB, streamB, err := svc.Fetch(ctx, "12345678", "", 0, true)
	if err != nil {
		t.Fatalf("Fetch(B) error = %v", err)
	}
	if streamB == streamA {
		t.Fatal("second fetch reused the first stream")
	}
	if len(gotB) != 0 {
		t.Errorf("Fetch(B) = %d messages, want 0 (already claimed by %s)", len(gotB), streamA)
	}
}

func TestImmediateContinuationReturnsNothing(t *testing.T) {
	store := newFakeStore()
	store.addMessage(t, "e2e-once", "12345678", time.Now())
	svc, _ := newEngine(store)
	ctx := context.Background()

	got, streamID, err := svc.Fetch(ctx, "12345678", "", 0, true)
	if err != nil || len(got) != 1 {
		t.Fatalf("Fetch(start) = %v, %v; want one message", got, err)
	}

	// Same stream polls again before acknowledging: the message was
	// delivered once and must not come back.
	got, _, err = svc.Fetch(ctx, "12345678", streamID, 0, true)
	if err != nil {
		t.Fatalf("Fetch(continue) error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Fetch(continue) = %d messages, want 0", len(got))
	}
}

func TestBatchFetchOrdersByPaymentTimestamp(t *testing.T) {
	store := newFakeStore()
	base := time.Now()
	store.addMessage(t, "e2e-2", "12345678", base.Add(2*time.Minute))
	store.addMessage(t, "e2e-1", "12345678", base.Add(1*time.Minute))
	store.addMessage(t, "e2e-3", "12345678", base.Add(3*time.Minute))
	svc, _ := newEngine(store)

	got, _, err := svc.Fetch(context.Background(), "12345678", "", 0, false)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("messages = %d, want 3", len(got))
	}
	want := []string{"e2e-1", "e2e-2", "e2e-3"}
	for i, m := range got {
		if m.EndToEndID != want[i] {
			t.Errorf("messages[%d] = %q, want %q", i, m.EndToEndID, want[i])
		}
	}
}

func TestAcknowledgeMarksDeliveredAndBlocksRedelivery(t *testing.T) {
	store := newFakeStore()
	store.addMessage(t, "e2e-ack", "12345678", time.Now())
	svc, _ := newEngine(store)
	ctx := context.Background()

	_, streamID, err := svc.Fetch(ctx, "12345678", "", 0, true)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if err := svc.Acknowledge(ctx, streamID); err != nil {
		t.Fatalf("Acknowledge() error = %v", err)
	}

	for _, m := range store.msgs {
		if m.StreamID != nil && *m.StreamID == streamID && !m.Delivered {
			t.Errorf("message %s still undelivered after acknowledge", m.EndToEndID)
		}
	}

	// A brand-new stream for the institution must not receive it.
	got, _, err := svc.Fetch(ctx, "12345678", "", 0, true)
	if err != nil {
		t.Fatalf("Fetch(new stream) error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Fetch(new stream) = %d messages, want 0 after acknowledge", len(got))
	}

	// Acknowledging again is a no-op that still succeeds.
	if err := svc.Acknowledge(ctx, streamID); err != nil {
		t.Errorf("second Acknowledge() error = %v", err)
	}
}

func TestSeventhStreamIsRejected(t *testing.T) {
	store := newFakeStore()
	svc, _ := newEngine(store)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		if _, _, err := svc.Fetch(ctx, "12345678", "", 0, true); err != nil {
			t.Fatalf("Fetch() #%d error = %v", i+1, err)
		}
	}

	_, _, err := svc.Fetch(ctx, "12345678", "", 0, true)
	if err != stream.ErrTooManyStreams {
		t.Fatalf("Fetch() #7 error = %v, want ErrTooManyStreams", err)
	}

	// A different institution is not affected by the cap.
	if _, _, err := svc.Fetch(ctx, "87654321", "", 0, true); err != nil {
		t.Errorf("Fetch(other ispb) error = %v", err)
	}
}

func TestReclaimReleasesUndeliveredClaims(t *testing.T) {
	// Expiry must release a dead stream's undelivered claims, otherwise
	// the messages stay pointed at it forever and become undeliverable.
	store := newFakeStore()
	store.addMessage(t, "e2e-stale", "12345678", time.Now())
	svc, streams := newEngine(store)
	ctx := context.Background()

	got, staleStream, err := svc.Fetch(ctx, "12345678", "", 0, true)
	if err != nil || len(got) != 1 {
		t.Fatalf("Fetch() = %v, %v; want one message", got, err)
	}

	// Backdate the stream's activity past the timeout, then sweep.
	store.mu.Lock()
	store.streams[staleStream].LastActive = time.Now().Add(-time.Hour)
	store.mu.Unlock()

	count, err := streams.ReclaimExpired(ctx, 30*time.Minute)
	if err != nil {
		t.Fatalf("ReclaimExpired() error = %v", err)
	}
	if count != 1 {
		t.Fatalf("reclaimed = %d, want 1", count)
	}

	// The expired stream is gone for its client.
	if _, _, err := svc.Fetch(ctx, "12345678", staleStream, 0, true); err != stream.ErrStreamGone {
		t.Errorf("Fetch(expired stream) error = %v, want ErrStreamGone", err)
	}

	// The released message is claimable by a fresh stream.
	got, freshStream, err := svc.Fetch(ctx, "12345678", "", 0, true)
	if err != nil {
		t.Fatalf("Fetch(fresh) error = %v", err)
	}
	if len(got) != 1 || got[0].EndToEndID != "e2e-stale" {
		t.Fatalf("Fetch(fresh) = %v, want the released message", got)
	}
	if freshStream == staleStream {
		t.Error("fresh fetch reused the expired stream id")
	}
}

func TestConcurrentFetchesNeverShareAMessage(t *testing.T) {
	store := newFakeStore()
	base := time.Now()
	for i := 0; i < 20; i++ {
		store.addMessage(t, "e2e-c-"+string(rune('a'+i)), "12345678", base.Add(time.Duration(i)*time.Second))
	}
	svc, _ := newEngine(store)

	var wg sync.WaitGroup
	results := make(chan *message.PixMessage, 40)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			msgs, _, err := svc.Fetch(context.Background(), "12345678", "", 0, false)
			if err != nil {
				t.Errorf("Fetch() error = %v", err)
				return
			}
			for _, m := range msgs {
				results <- m
			}
		}()
	}
	wg.Wait()
	close(results)

	seen := map[string]bool{}
	for m := range results {
		if seen[m.EndToEndID] {
			t.Errorf("message %s claimed by two streams", m.EndToEndID)
		}
		seen[m.EndToEndID] = true
	}
}
