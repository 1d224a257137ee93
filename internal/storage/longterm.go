package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"infra_crew/pkg"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog/log"
)

// AllTopics asks Recall for every topic in the namespace
const AllTopics = "all"

// TopicMemory is a file-backed fact store. Each namespace is one JSON file
// mapping topic to its facts in commit order.
type TopicMemory struct {
	baseDir string
	now     func() time.Time
	mu      sync.Mutex
}

// NewTopicMemory stores namespaces under baseDir
func NewTopicMemory(baseDir string) *TopicMemory {
	return &TopicMemory{baseDir: baseDir, now: time.Now}
}

type topicFile map[string][]pkg.MemoryFact

func (m *TopicMemory) path(namespace string) string {
	return filepath.Join(m.baseDir, pkg.IsolatedSegment(namespace, pkg.DefaultSessionID)+".json")
}

func (m *TopicMemory) load(namespace string) (topicFile, error) {
	data, err := os.ReadFile(m.path(namespace))
	if os.IsNotExist(err) {
		return topicFile{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read topic memory file: %w", err)
	}

	facts := topicFile{}
	if err := sonic.Unmarshal(data, &facts); err != nil {
		return nil, fmt.Errorf("failed to parse topic memory file: %w", err)
	}
	return facts, nil
}

func (m *TopicMemory) write(namespace string, facts topicFile) error {
	if err := os.MkdirAll(m.baseDir, 0755); err != nil {
		return fmt.Errorf("failed to create memory directory: %w", err)
	}
	data, err := sonic.ConfigStd.MarshalIndent(facts, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal topic memory: %w", err)
	}
	if err := writeAtomic(m.path(namespace), data); err != nil {
		return fmt.Errorf("failed to write topic memory file: %w", err)
	}
	return nil
}

// writeAtomic replaces path through a temp file in the same directory so a
// crash never leaves a half-written namespace
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".memory-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return err
	}
	success = true
	return nil
}

// Commit appends fact under topic
func (m *TopicMemory) Commit(namespace, topic, fact string) (pkg.MemoryFact, error) {
	if topic == "" {
		return pkg.MemoryFact{}, fmt.Errorf("topic cannot be empty")
	}
	if fact == "" {
		return pkg.MemoryFact{}, fmt.Errorf("fact cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	facts, err := m.load(namespace)
	if err != nil {
		// the existing file is left untouched for the operator to repair
		log.Error().Err(err).Str("namespace", namespace).Msg("Refusing to overwrite unreadable topic memory")
		return pkg.MemoryFact{}, err
	}

	entry := pkg.MemoryFact{Topic: topic, Fact: fact, Timestamp: m.now()}
	facts[topic] = append(facts[topic], entry)
	if err := m.write(namespace, facts); err != nil {
		return pkg.MemoryFact{}, err
	}

	log.Debug().
		Str("namespace", namespace).
		Str("topic", topic).
		Int("facts", len(facts[topic])).
		Msg("💾 Committed fact to memory")
	return entry, nil
}

// Recall returns the facts for topic. An empty topic or AllTopics returns
// every fact, ordered by topic name then commit order.
func (m *TopicMemory) Recall(namespace, topic string) ([]pkg.MemoryFact, error) {
	m.mu.Lock()
	facts, err := m.load(namespace)
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}

	if topic != "" && topic != AllTopics {
		return facts[topic], nil
	}

	var out []pkg.MemoryFact
	for _, t := range sortedTopics(facts) {
		out = append(out, facts[t]...)
	}
	return out, nil
}

// MemoryStats provides statistics about a namespace
type MemoryStats struct {
	Namespace     string    `json:"namespace"`
	TotalFacts    int       `json:"total_facts"`
	Topics        []string  `json:"topics"`
	OldestEntry   time.Time `json:"oldest_entry"`
	NewestEntry   time.Time `json:"newest_entry"`
	FileSizeBytes int64     `json:"file_size_bytes"`
}

// Stats returns statistics about a namespace
func (m *TopicMemory) Stats(namespace string) (*MemoryStats, error) {
	m.mu.Lock()
	facts, err := m.load(namespace)
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}

	stats := &MemoryStats{Namespace: namespace, Topics: sortedTopics(facts)}
	for _, list := range facts {
		for _, f := range list {
			stats.TotalFacts++
			if stats.OldestEntry.IsZero() || f.Timestamp.Before(stats.OldestEntry) {
				stats.OldestEntry = f.Timestamp
			}
			if f.Timestamp.After(stats.NewestEntry) {
				stats.NewestEntry = f.Timestamp
			}
		}
	}

	if info, err := os.Stat(m.path(namespace)); err == nil {
		stats.FileSizeBytes = info.Size()
	}
	return stats, nil
}

// Cleanup removes facts older than maxAge and drops emptied topics.
// It returns the number of facts removed.
func (m *TopicMemory) Cleanup(namespace string, maxAge time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	facts, err := m.load(namespace)
	if err != nil {
		return 0, err
	}

	cutoff := m.now().Add(-maxAge)
	removed := 0
	for topic, list := range facts {
		kept := list[:0]
		for _, f := range list {
			if f.Timestamp.After(cutoff) {
				kept = append(kept, f)
			}
		}
		removed += len(list) - len(kept)
		if len(kept) == 0 {
			delete(facts, topic)
		} else {
			facts[topic] = kept
		}
	}

	if removed == 0 {
		return 0, nil
	}
	if err := m.write(namespace, facts); err != nil {
		return 0, err
	}

	log.Info().Int("removed", removed).Str("namespace", namespace).Msg("🧹 Cleaned up topic memory")
	return removed, nil
}

func sortedTopics(facts topicFile) []string {
	topics := make([]string, 0, len(facts))
	for t := range facts {
		topics = append(topics, t)
	}
	sort.Strings(topics)
	return topics
}
