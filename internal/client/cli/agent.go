package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/iudanet/probtrack/internal/protocol"
)

// runAgent запускает фоновый агент в foreground. События шины
// печатаются как JSON-строки, пока контекст не будет отменен.
func (c *Cli) runAgent(ctx context.Context) error {
	c.io.Println("Starting sync agent. Press Ctrl+C to stop.")

	events, unsubscribe := c.bus.Subscribe()
	defer unsubscribe()

	go func() {
		for event := range events {
			data, err := protocol.EncodeEvent(event)
			if err != nil {
				continue
			}
			c.io.Println(string(data))
		}
	}()

	if err := c.agent.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("agent stopped: %w", err)
	}

	c.io.Println("Agent stopped.")

	return nil
}
