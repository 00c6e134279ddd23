// Package legacy adapts the pre-server, client-local record store that
// early advisors accumulated before bookings moved server-side. The
// migration service reads it through the Store interface so it can be
// tested against a throwaway directory.
package legacy

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Storage keys used by the legacy client.
const (
	LinksKey    = "scheduling_links"
	MeetingsKey = "scheduled_meetings"
)

// ErrKeyNotFound is returned by Get when the key has no stored document.
var ErrKeyNotFound = errors.New("legacy key not found")

// Store is a minimal key → JSON-document store mirroring the legacy
// client's local storage.
type Store interface {
	Get(key string, v any) error
	Put(key string, v any) error
	Remove(key string) error
	List() ([]string, error)
}

// Link is a scheduling link as recorded by the legacy client.
type Link struct {
	Name            string `json:"name"`
	Slug            string `json:"slug"`
	Duration        int    `json:"duration"`
	MaxAdvanceDays  *int   `json:"maxAdvanceDays"`
	MaxUses         *int   `json:"maxUses"`
	ExpirationDate  string `json:"expirationDate"` // ISO date, empty when unset
	AdvisorEmail    string `json:"advisorEmail"`
	CustomQuestions []struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"customQuestions"`
}

// AnswerDoc maps question ids to answer text. Older client versions
// wrote answers as an array of {questionId, answer} pairs, newer ones
// as an object; both shapes decode to the same map.
type AnswerDoc map[string]string

// UnmarshalJSON accepts either the object or the array encoding.
func (a *AnswerDoc) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var pairs []struct {
			QuestionID string `json:"questionId"`
			Answer     string `json:"answer"`
		}
		if err := json.Unmarshal(trimmed, &pairs); err != nil {
			return err
		}
		m := make(map[string]string, len(pairs))
		for _, p := range pairs {
			m[p.QuestionID] = p.Answer
		}
		*a = m
		return nil
	}
	return json.Unmarshal(data, (*map[string]string)(a))
}

// Meeting is a booking as recorded by the legacy client.
type Meeting struct {
	LinkSlug    string    `json:"linkSlug"`
	ClientName  string    `json:"clientName"`
	ClientEmail string    `json:"clientEmail"`
	ProfileURL  string    `json:"linkedin"`
	Date        string    `json:"date"` // ISO date
	Time        string    `json:"time"` // 12-hour clock string
	Duration    int       `json:"duration"`
	Answers     AnswerDoc `json:"answers"`
}

// FileStore keeps one JSON document per key as <dir>/<key>.json.
type FileStore struct {
	dir string
}

// NewFileStore creates a FileStore rooted at dir, creating the
// directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create legacy store directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

// Get decodes the document stored under key into v.
func (s *FileStore) Get(key string, v any) error {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return ErrKeyNotFound
		}
		return fmt.Errorf("failed to read legacy key %q: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode legacy key %q: %w", key, err)
	}
	return nil
}

// Put stores v as the document under key.
func (s *FileStore) Put(key string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode legacy key %q: %w", key, err)
	}
	if err := os.WriteFile(s.path(key), data, 0o644); err != nil {
		return fmt.Errorf("failed to write legacy key %q: %w", key, err)
	}
	return nil
}

// Remove deletes the document under key. Removing an absent key is not
// an error, which keeps the migration's final cleanup idempotent.
func (s *FileStore) Remove(key string) error {
	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove legacy key %q: %w", key, err)
	}
	return nil
}

// List returns the keys that currently have documents.
func (s *FileStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list legacy store: %w", err)
	}
	var keys []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		keys = append(keys, strings.TrimSuffix(e.Name(), ".json"))
	}
	return keys, nil
}
