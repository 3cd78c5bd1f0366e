package llm

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// streamEvent is one envelope on the streaming response. Only
// content_block_delta events carrying text contribute to the output; every
// other event kind is ignored.
type streamEvent struct {
	Type  string      `json:"type"`
	Delta streamDelta `json:"delta"`
}

type streamDelta struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// collectStream folds the fragment stream into the full response text.
//
// Fragments arrive one per line, optionally behind an SSE "data: " prefix.
// A malformed fragment is logged and skipped; it must never lose the text
// already accumulated. Only a stream-level read failure is an error, and
// even then the accumulated text is returned alongside it.
func (c *Client) collectStream(r io.Reader) (string, error) {
	var acc strings.Builder

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		line = bytes.TrimPrefix(line, []byte("data: "))
		if len(line) == 0 {
			continue
		}
		c.appendFragment(&acc, line)
	}
	if err := sc.Err(); err != nil {
		return acc.String(), fmt.Errorf("read response stream: %w", err)
	}
	return acc.String(), nil
}

// appendFragment parses one fragment payload and appends its content delta,
// if it has one.
func (c *Client) appendFragment(acc *strings.Builder, raw []byte) {
	var ev streamEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		c.met.RecordFragmentSkipped()
		c.log.Warnf("stream_fragment", "skipping malformed fragment: %v", err)
		return
	}
	if ev.Type == "content_block_delta" && ev.Delta.Text != "" {
		acc.WriteString(ev.Delta.Text)
	}
}
