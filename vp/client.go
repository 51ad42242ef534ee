package vp

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Client queries the synthesizer for its installed voices and emotion sets.
type Client struct {
	executable *Executable
}

// NewClient creates a client for the given executable.
func NewClient(executable *Executable) *Client {
	return &Client{executable: executable}
}

// ListNarrators returns the names of installed voice profiles.
func (c *Client) ListNarrators(ctx context.Context) ([]string, error) {
	argv := c.executable.Fill(nil)
	argv = append(argv, "--list-narrator")
	return c.collectLines(ctx, argv)
}

// ListEmotions returns the emotion names the given narrator supports.
func (c *Client) ListEmotions(ctx context.Context, narrator string) ([]string, error) {
	trimmed := strings.TrimSpace(narrator)
	if trimmed == "" {
		return nil, ErrEmptyNarrator
	}
	argv := c.executable.Fill(nil)
	argv = append(argv, "--list-emotion", trimmed)
	return c.collectLines(ctx, argv)
}

// collectLines runs the command and gathers its non-empty stdout lines.
// A nonzero exit yields no lines and an error.
func (c *Client) collectLines(ctx context.Context, argv []string) ([]string, error) {
	proc := NewProcess(argv)

	var mu sync.Mutex
	var lines []string
	proc.SubscribeStdout(func(line string) {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			return
		}
		mu.Lock()
		lines = append(lines, trimmed)
		mu.Unlock()
	})

	status, err := proc.Run(ctx)
	if err != nil {
		return nil, err
	}
	if status != 0 {
		return nil, fmt.Errorf("%s exited with status %d", argv[0], status)
	}
	return lines, nil
}
