package chat

import (
	"regexp"
	"strings"
)

const (
	KindGUI = "gui"
	KindSay = "say"
)

// Block is one fenced section of an assistant reply
type Block struct {
	Kind    string `json:"kind"`
	Content string `json:"content"`
}

var blockPattern = regexp.MustCompile("(?s)```(gui|say)[ \\t]*\\r?\\n(.*?)```")

// ParseBlocks extracts the fenced gui and say blocks in order. A reply with no
// blocks is spoken as a whole.
func ParseBlocks(text string) []Block {
	matches := blockPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		if trimmed := strings.TrimSpace(text); trimmed != "" {
			return []Block{{Kind: KindSay, Content: trimmed}}
		}
		return nil
	}

	blocks := make([]Block, 0, len(matches))
	for _, m := range matches {
		blocks = append(blocks, Block{Kind: m[1], Content: strings.TrimSpace(m[2])})
	}
	return blocks
}

// Split joins the non-empty gui and say contents with newlines
func Split(blocks []Block) (gui, say string) {
	var guis, says []string
	for _, b := range blocks {
		if b.Content == "" {
			continue
		}
		switch b.Kind {
		case KindGUI:
			guis = append(guis, b.Content)
		case KindSay:
			says = append(says, b.Content)
		}
	}
	return strings.Join(guis, "\n"), strings.Join(says, "\n")
}
