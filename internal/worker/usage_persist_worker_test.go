package worker

import (
	"context"
	"errors"
	"testing"

	"ajiri/internal/model"
)

type recordingStore struct {
	rows []model.APIUsage
	err  error
}

func (s *recordingStore) Create(_ context.Context, usage *model.APIUsage) error {
	if s.err != nil {
		return s.err
	}
	s.rows = append(s.rows, *usage)
	return nil
}

type recordingAck struct {
	acked   bool
	nacked  bool
	requeue bool
}

func (a *recordingAck) Ack(bool) error { a.acked = true; return nil }

func (a *recordingAck) Nack(_ bool, requeue bool) error {
	a.nacked, a.requeue = true, requeue
	return nil
}

func TestProcessStoresAndAcks(t *testing.T) {
	store := &recordingStore{}
	w := NewUsagePersistWorker(nil, store, "usage")
	ack := &recordingAck{}

	w.process(context.Background(), []byte(`{"id":99,"endpoint":"/api/chat/ask","method":"POST","status_code":200,"response_time":12}`), ack)

	if !ack.acked || ack.nacked {
		t.Fatalf("ack = %+v, want acked", ack)
	}
	if len(store.rows) != 1 || store.rows[0].Endpoint != "/api/chat/ask" || store.rows[0].ID != 0 {
		t.Fatalf("rows = %+v", store.rows)
	}
}

func TestProcessDropsUndecodable(t *testing.T) {
	w := NewUsagePersistWorker(nil, &recordingStore{}, "usage")
	ack := &recordingAck{}
	w.process(context.Background(), []byte("{"), ack)
	if !ack.nacked || ack.requeue {
		t.Fatalf("ack = %+v, want nack without requeue", ack)
	}
}

func TestProcessRequeuesStoreFailure(t *testing.T) {
	w := NewUsagePersistWorker(nil, &recordingStore{err: errors.New("locked")}, "usage")
	ack := &recordingAck{}
	w.process(context.Background(), []byte(`{"endpoint":"/api/x"}`), ack)
	if !ack.nacked || !ack.requeue {
		t.Fatalf("ack = %+v, want nack with requeue", ack)
	}
}
