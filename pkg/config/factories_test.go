package config

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/datahaven/aclfs/pkg/feed"
)

func journalProbeEvent() feed.Event {
	return feed.Event{
		Type:      feed.EventGrant,
		Directory: "alice@example.com",
		Path:      "alice@example.com/docs/guide.md",
		Time:      time.Now(),
	}
}

func TestCreateJournal_Memory(t *testing.T) {
	journal, err := CreateJournal(context.Background(), &FeedConfig{
		Type:   "memory",
		Memory: map[string]any{"max_entries": 128},
	})
	if err != nil {
		t.Fatalf("Failed to create memory journal: %v", err)
	}
	defer journal.Close()

	if _, err := journal.Append(journalProbeEvent()); err != nil {
		t.Fatalf("Journal should accept events: %v", err)
	}
}

func TestCreateJournal_BadgerInMemory(t *testing.T) {
	journal, err := CreateJournal(context.Background(), &FeedConfig{
		Type:   "badger",
		Badger: map[string]any{"in_memory": true},
	})
	if err != nil {
		t.Fatalf("Failed to create badger journal: %v", err)
	}
	defer journal.Close()
}

func TestCreateJournal_BadgerOnDisk(t *testing.T) {
	journal, err := CreateJournal(context.Background(), &FeedConfig{
		Type:   "badger",
		Badger: map[string]any{"path": filepath.Join(t.TempDir(), "journal")},
	})
	if err != nil {
		t.Fatalf("Failed to create badger journal: %v", err)
	}
	defer journal.Close()
}

func TestCreateJournal_BadgerMissingPath(t *testing.T) {
	_, err := CreateJournal(context.Background(), &FeedConfig{
		Type:   "badger",
		Badger: map[string]any{},
	})
	if err == nil {
		t.Fatal("Expected error for badger journal without path")
	}
}

func TestCreateJournal_UnknownType(t *testing.T) {
	_, err := CreateJournal(context.Background(), &FeedConfig{Type: "kafka"})
	if err == nil {
		t.Fatal("Expected error for unknown journal type")
	}
}

func TestCreateArchiveStore_None(t *testing.T) {
	store, err := CreateArchiveStore(context.Background(), &ArchiveConfig{Type: "none"})
	if err != nil {
		t.Fatalf("Expected no error for type none, got: %v", err)
	}
	if store != nil {
		t.Fatal("Expected nil store for type none")
	}
}

func TestCreateArchiveStore_Filesystem(t *testing.T) {
	store, err := CreateArchiveStore(context.Background(), &ArchiveConfig{
		Type:       "filesystem",
		Filesystem: map[string]any{"path": filepath.Join(t.TempDir(), "archive")},
	})
	if err != nil {
		t.Fatalf("Failed to create filesystem archive: %v", err)
	}
	if store == nil {
		t.Fatal("Expected non-nil store")
	}
}

func TestCreateArchiveStore_FilesystemMissingPath(t *testing.T) {
	_, err := CreateArchiveStore(context.Background(), &ArchiveConfig{
		Type:       "filesystem",
		Filesystem: map[string]any{},
	})
	if err == nil {
		t.Fatal("Expected error for filesystem archive without path")
	}
}

func TestCreateArchiveStore_S3MissingBucket(t *testing.T) {
	_, err := CreateArchiveStore(context.Background(), &ArchiveConfig{
		Type: "s3",
		S3:   map[string]any{"region": "us-east-1"},
	})
	if err == nil {
		t.Fatal("Expected error for S3 archive without bucket")
	}
}

func TestCreateArchiveStore_UnknownType(t *testing.T) {
	_, err := CreateArchiveStore(context.Background(), &ArchiveConfig{Type: "tape"})
	if err == nil {
		t.Fatal("Expected error for unknown archive type")
	}
}
