package vendors

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/ignite/site-tracking/internal/service/tracking"
)

var fnPattern = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*(\.[A-Za-z_$][A-Za-z0-9_$]*)*$`)

// Command is one queued call against a page global.
type Command struct {
	Fn   string            `json:"fn"`
	Args []json.RawMessage `json:"args"`
}

// Commands queues vendor calls for one page and renders them as inline
// JavaScript. It is safe for concurrent use.
type Commands struct {
	mu    sync.Mutex
	queue []Command
}

var _ tracking.CommandSink = (*Commands)(nil)

// NewCommands returns an empty queue.
func NewCommands() *Commands {
	return &Commands{}
}

// Call queues fn(args...). Arguments are JSON-encoded immediately so an
// unencodable payload is reported to the caller, not to the browser.
func (c *Commands) Call(fn string, args ...interface{}) error {
	if !fnPattern.MatchString(fn) {
		return fmt.Errorf("%w: %q", ErrInvalidFunction, fn)
	}
	cmd := Command{Fn: fn, Args: make([]json.RawMessage, 0, len(args))}
	for i, a := range args {
		raw, err := json.Marshal(a)
		if err != nil {
			return fmt.Errorf("encode %s argument %d: %w", fn, i, err)
		}
		cmd.Args = append(cmd.Args, raw)
	}
	c.mu.Lock()
	c.queue = append(c.queue, cmd)
	c.mu.Unlock()
	return nil
}

// Commands returns a copy of the queue.
func (c *Commands) Commands() []Command {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Command(nil), c.queue...)
}

// Len returns the number of queued calls.
func (c *Commands) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// Script renders the queue. Each call runs only if its target is a function
// on the page and is isolated from the others by try/catch.
func (c *Commands) Script() string {
	cmds := c.Commands()
	if len(cmds) == 0 {
		return ""
	}
	var b strings.Builder
	for _, cmd := range cmds {
		if cmd.Fn == "dataLayer.push" {
			b.WriteString("window.dataLayer=window.dataLayer||[];\n")
			break
		}
	}
	for _, cmd := range cmds {
		target := "window." + cmd.Fn
		args := make([]string, len(cmd.Args))
		for i, a := range cmd.Args {
			args[i] = string(a)
		}
		fmt.Fprintf(&b, "try{if(typeof %s===\"function\"){%s(%s);}}catch(e){}\n", target, target, strings.Join(args, ","))
	}
	return b.String()
}
