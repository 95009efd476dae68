package bootstrap

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"votingdao/contexts/governance/voting-dao/application/commands"
	"votingdao/contexts/governance/voting-dao/ports"
	"votingdao/internal/platform/config"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		ServiceName:         "votingdao-test",
		HTTPPort:            "0",
		StorageDriver:       config.StorageMemory,
		SQLitePath:          filepath.Join(t.TempDir(), "votes.db"),
		EventBus:            config.EventBusMemory,
		OutboxBatchSize:     10,
		OutboxPollInterval:  50 * time.Millisecond,
		IdempotencyTTL:      time.Hour,
		EnableEmbeddedRelay: true,
	}
}

func TestNormalizeAddr(t *testing.T) {
	cases := map[string]string{
		"":      ":8080",
		"9090":  ":9090",
		":7070": ":7070",
		" 80 ":  ":80",
	}
	for input, want := range cases {
		if got := normalizeAddr(input); got != want {
			t.Fatalf("normalizeAddr(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestBuildAPIWithSQLiteStorageRelaysOutbox(t *testing.T) {
	cfg := testConfig(t)
	cfg.StorageDriver = config.StorageSQLite

	ctx := context.Background()
	app, err := BuildAPIFromConfig(ctx, cfg)
	if err != nil {
		t.Fatalf("build api: %v", err)
	}
	defer app.Close()

	module := app.Module()
	created, err := module.Proposals.CreateProposal(ctx, commands.CreateProposalCommand{
		CreatorID:       "owner",
		Description:     "Proposal 1",
		DurationSeconds: 60,
		Now:             time.Unix(1000, 0),
	})
	if err != nil {
		t.Fatalf("create proposal: %v", err)
	}
	if created.Proposal.ProposalID != 0 {
		t.Fatalf("expected id 0, got %d", created.Proposal.ProposalID)
	}

	if err := module.OutboxRelay.RunOnce(ctx); err != nil {
		t.Fatalf("relay: %v", err)
	}
}

func TestBuildWorkerRejectsUnknownBus(t *testing.T) {
	cfg := testConfig(t)
	cfg.EventBus = "nats"

	if _, err := BuildWorkerFromConfig(context.Background(), cfg); err == nil {
		t.Fatalf("expected unsupported bus error")
	}
}

func TestAPIRunStopsOnCancel(t *testing.T) {
	cfg := testConfig(t)

	app, err := BuildAPIFromConfig(context.Background(), cfg)
	if err != nil {
		t.Fatalf("build api: %v", err)
	}
	defer app.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- app.Run(ctx)
	}()
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("api did not stop after cancel")
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestMemoryBusFeedsActivityLog(t *testing.T) {
	var out syncBuffer
	logger := slog.New(slog.NewJSONHandler(&out, nil))
	cfg := testConfig(t)

	publisher, closePublisher, err := openPublisher(context.Background(), cfg, logger)
	if err != nil {
		t.Fatalf("open publisher: %v", err)
	}
	defer closePublisher()

	if err := publisher.Publish(context.Background(), commands.EventTypeVoteCast, ports.EventEnvelope{
		EventID:   "evt-1",
		EventType: commands.EventTypeVoteCast,
		Data:      json.RawMessage(`{"proposal_id":0,"voter_id":"a","support":true,"for_votes":1}`),
	}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for !strings.Contains(out.String(), "voting_activity_vote_recorded") {
		if time.Now().After(deadline) {
			t.Fatalf("activity log never observed the event: %s", out.String())
		}
		time.Sleep(10 * time.Millisecond)
	}
}
