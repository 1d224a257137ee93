package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"infra_crew/internal/storage"
	"infra_crew/pkg"
)

// memoryNamespace scopes facts to the project unless the session names a namespace
func memoryNamespace(sly pkg.SlyData) string {
	if ns := sly.String("namespace"); ns != "" {
		return ns
	}
	return sly.ProjectName()
}

type CommitToMemory struct {
	Memory *storage.TopicMemory
}

func (CommitToMemory) Name() string { return "CommitToMemory" }

func (CommitToMemory) Description() string {
	return "Remember a fact under a topic for later recall. Args: topic, new_fact."
}

func (t CommitToMemory) Invoke(_ context.Context, args map[string]any, sly pkg.SlyData) (any, error) {
	topic := stringArg(args, "topic", "")
	if topic == "" {
		return nil, missing("topic")
	}
	fact := stringArg(args, "new_fact", stringArg(args, "fact", ""))
	if fact == "" {
		return nil, missing("new_fact")
	}

	saved, err := t.Memory.Commit(memoryNamespace(sly), topic, fact)
	if err != nil {
		return nil, failure("commit to memory", err)
	}
	return fmt.Sprintf("Committed to memory under topic '%s' at %s", saved.Topic, saved.Timestamp.Format("2006-01-02 15:04:05")), nil
}

type RecallMemory struct {
	Memory *storage.TopicMemory
}

func (RecallMemory) Name() string { return "RecallMemory" }

// DefaultMemoryMaxAgeDays is the cleanup horizon when max_age_days is not given
const DefaultMemoryMaxAgeDays = 30

func (RecallMemory) Description() string {
	return "Recall remembered facts for a topic, or every topic when topic is empty or \"all\". " +
		"Args: action (recall|stats|cleanup, default recall), topic, max_age_days (cleanup, default 30)."
}

func (t RecallMemory) Invoke(_ context.Context, args map[string]any, sly pkg.SlyData) (any, error) {
	namespace := memoryNamespace(sly)
	switch action := stringArg(args, "action", "recall"); action {
	case "recall":
		return t.recall(namespace, stringArg(args, "topic", storage.AllTopics))
	case "stats":
		stats, err := t.Memory.Stats(namespace)
		if err != nil {
			return nil, failure("memory stats", err)
		}
		return stats, nil
	case "cleanup":
		days := float64(DefaultMemoryMaxAgeDays)
		if _, ok := args["max_age_days"]; ok {
			days = floatArg(args, "max_age_days")
		}
		if days < 0 {
			return nil, failure("memory cleanup", fmt.Errorf("max_age_days must not be negative"))
		}
		removed, err := t.Memory.Cleanup(namespace, time.Duration(days*float64(24*time.Hour)))
		if err != nil {
			return nil, failure("memory cleanup", err)
		}
		return fmt.Sprintf("Removed %d facts older than %g days", removed, days), nil
	default:
		return nil, unknownAction("RecallMemory", action)
	}
}

func (t RecallMemory) recall(namespace, topic string) (any, error) {
	facts, err := t.Memory.Recall(namespace, topic)
	if err != nil {
		return nil, failure("recall memory", err)
	}
	if len(facts) == 0 {
		if topic == storage.AllTopics {
			return "No memories stored yet", nil
		}
		return fmt.Sprintf("No memories found for topic '%s'", topic), nil
	}

	var b strings.Builder
	current := ""
	for _, f := range facts {
		if f.Topic != current {
			if current != "" {
				b.WriteString("\n")
			}
			fmt.Fprintf(&b, "## %s\n", f.Topic)
			current = f.Topic
		}
		fmt.Fprintf(&b, "- [%s] %s\n", f.Timestamp.Format("2006-01-02 15:04:05"), f.Fact)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}
