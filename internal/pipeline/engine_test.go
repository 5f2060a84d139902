package pipeline

import (
	"testing"

	"main/internal/dedup"
	"main/internal/marketmodel"
	"main/internal/redundant"
	"main/internal/shmring"
	"main/internal/timeutil"
)

func TestHandleRecordSequenceDedupWritesToShm(t *testing.T) {
	symbol := marketmodel.NewSymbol("BTC", "USDT")
	store, err := shmring.Create("pipeline-test-seq", []string{symbol.String()}, marketmodel.RecordSize(marketmodel.MessageBBO), 4)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	defer store.Close()

	stream := marketmodel.StreamDef{MessageType: marketmodel.MessageBBO, ShmNames: map[marketmodel.MessageType]string{marketmodel.MessageBBO: "pipeline-test-seq"}}
	client := redundant.New(stream, 2, 60, 0.05)
	e := &Engine{stores: map[string]*shmring.Store{"pipeline-test-seq": store}}

	seqGate := dedup.NewUpdateIdDedup()
	hashGate := dedup.NewIdHashDedup()
	hist := timeutil.NewHistogram()

	updateIDs := []uint64{100, 101, 101, 102}
	for _, id := range updateIDs {
		rec := marketmodel.ParsedRecord{
			Type:        marketmodel.MessageBBO,
			Symbol:      symbol,
			ProductType: marketmodel.ProductSpotLike,
			Bookticker:  marketmodel.Bookticker{Symbol: symbol, UpdateID: id},
		}
		e.handleRecord(stream, rec, redundant.Envelope{ConnIndex: 0, RecvTsUs: 10}, seqGate, hashGate, hist, client)
	}

	idx, err := store.WriteIndex(symbol.String())
	if err != nil {
		t.Fatalf("write index: %v", err)
	}
	if idx != 3 {
		t.Fatalf("expected 3 accepted writes (100,101,102), got write_idx=%d", idx)
	}
}

func TestHandleRecordHashDedupDropsDuplicateID(t *testing.T) {
	symbol := marketmodel.NewSymbol("BTC", "USDT")
	store, err := shmring.Create("pipeline-test-hash", []string{symbol.String()}, marketmodel.RecordSize(marketmodel.MessageTrade), 4)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	defer store.Close()

	stream := marketmodel.StreamDef{
		MessageType: marketmodel.MessageTrade,
		ShmNames:    map[marketmodel.MessageType]string{marketmodel.MessageTrade: "pipeline-test-hash"},
		DedupKinds:  map[marketmodel.MessageType]marketmodel.DedupKind{marketmodel.MessageTrade: marketmodel.DedupByIDHash},
	}
	client := redundant.New(stream, 1, 60, 0.05)
	e := &Engine{stores: map[string]*shmring.Store{"pipeline-test-hash": store}}

	seqGate := dedup.NewUpdateIdDedup()
	hashGate := dedup.NewIdHashDedup()
	hist := timeutil.NewHistogram()

	ids := [][]byte{[]byte("a-uuid"), []byte("b-uuid"), []byte("a-uuid")}
	for _, id := range ids {
		rec := marketmodel.ParsedRecord{
			Type:        marketmodel.MessageTrade,
			Symbol:      symbol,
			ProductType: marketmodel.ProductSpotLike,
			Trade:       marketmodel.Trade{Symbol: symbol},
			IDBytes:     id,
		}
		e.handleRecord(stream, rec, redundant.Envelope{ConnIndex: 0, RecvTsUs: 5}, seqGate, hashGate, hist, client)
	}

	idx, err := store.WriteIndex(symbol.String())
	if err != nil {
		t.Fatalf("write index: %v", err)
	}
	if idx != 2 {
		t.Fatalf("expected 2 accepted writes (a,b), got write_idx=%d", idx)
	}
}

// TestHandleRecordPerMessageTypeDedupKind reproduces a Bybit-shaped stream:
// one StreamDef whose Trade records need the hash gate (UUID ids) while its
// BBO records still need the sequence gate (monotonic update ids). A stream
// that dedups everything by DedupKind alone would let a stale, previously
// unseen BBO update id through the hash gate and out of order into SHM.
func TestHandleRecordPerMessageTypeDedupKind(t *testing.T) {
	symbol := marketmodel.NewSymbol("BTC", "USDT")
	store, err := shmring.Create("pipeline-test-mixed", []string{symbol.String()}, marketmodel.RecordSize(marketmodel.MessageBBO), 4)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	defer store.Close()

	stream := marketmodel.StreamDef{
		ShmNames: map[marketmodel.MessageType]string{marketmodel.MessageBBO: "pipeline-test-mixed"},
		DedupKinds: map[marketmodel.MessageType]marketmodel.DedupKind{
			marketmodel.MessageTrade: marketmodel.DedupByIDHash,
		},
	}
	client := redundant.New(stream, 1, 60, 0.05)
	e := &Engine{stores: map[string]*shmring.Store{"pipeline-test-mixed": store}}

	seqGate := dedup.NewUpdateIdDedup()
	hashGate := dedup.NewIdHashDedup()
	hist := timeutil.NewHistogram()

	// A higher update id arrives first, then a stale lower one arrives late
	// (redundant-delivery jitter). If BBO were hash-gated it would be
	// "never seen before" and accepted; sequence-gated, it must be dropped.
	updateIDs := []uint64{105, 103}
	for _, id := range updateIDs {
		rec := marketmodel.ParsedRecord{
			Type:        marketmodel.MessageBBO,
			Symbol:      symbol,
			ProductType: marketmodel.ProductSpotLike,
			Bookticker:  marketmodel.Bookticker{Symbol: symbol, UpdateID: id},
		}
		e.handleRecord(stream, rec, redundant.Envelope{ConnIndex: 0, RecvTsUs: 10}, seqGate, hashGate, hist, client)
	}

	idx, err := store.WriteIndex(symbol.String())
	if err != nil {
		t.Fatalf("write index: %v", err)
	}
	if idx != 1 {
		t.Fatalf("expected the stale update id to be sequence-gated out, got write_idx=%d", idx)
	}
}
