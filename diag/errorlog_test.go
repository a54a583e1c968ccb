package diag

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/MrEthical07/qmsauth/apierr"
)

func entry(i int) Entry {
	return Entry{
		Descriptor: apierr.Descriptor{Kind: apierr.KindServer, StatusCode: 500, URL: fmt.Sprintf("/api/%d/", i)},
		RequestID:  fmt.Sprintf("req-%d", i),
		RetryCount: i % 4,
	}
}

func TestErrorLogKeepsLastEntriesInOrder(t *testing.T) {
	log := NewErrorLog(0)
	for i := 0; i < 130; i++ {
		log.Record(entry(i))
	}

	entries := log.Entries()
	if len(entries) != DefaultCapacity {
		t.Fatalf("expected %d entries, got %d", DefaultCapacity, len(entries))
	}
	if entries[0].RequestID != "req-30" || entries[len(entries)-1].RequestID != "req-129" {
		t.Fatalf("unexpected window %s..%s", entries[0].RequestID, entries[len(entries)-1].RequestID)
	}
	if log.Total() != 130 {
		t.Fatalf("expected total 130, got %d", log.Total())
	}
}

func TestErrorLogPartialFill(t *testing.T) {
	log := NewErrorLog(5)
	log.Record(entry(1))
	log.Record(entry(2))

	if log.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", log.Len())
	}
	entries := log.Entries()
	if entries[0].RequestID != "req-1" || entries[1].RequestID != "req-2" {
		t.Fatalf("unexpected order %+v", entries)
	}

	log.Clear()
	if log.Len() != 0 || log.Total() != 2 {
		t.Fatalf("clear must drop entries and keep total, len=%d total=%d", log.Len(), log.Total())
	}
}

func TestErrorLogExport(t *testing.T) {
	log := NewErrorLog(3)
	log.Record(entry(1))

	var buf bytes.Buffer
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	if err := log.Export(&buf, now); err != nil {
		t.Fatalf("Export: %v", err)
	}

	var doc struct {
		ExportedAt time.Time `json:"exported_at"`
		Total      uint64    `json:"total"`
		Entries    []Entry   `json:"entries"`
	}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("decode export: %v", err)
	}
	if !doc.ExportedAt.Equal(now) || doc.Total != 1 || len(doc.Entries) != 1 {
		t.Fatalf("unexpected export %+v", doc)
	}
	if doc.Entries[0].Descriptor.Kind != apierr.KindServer {
		t.Fatalf("descriptor lost in export: %+v", doc.Entries[0])
	}
}
