package ollama

import (
	"context"

	"github.com/kirillkom/ai-image-renamer/internal/infrastructure/resilience"
)

func (c *Client) guarded(ctx context.Context, operation string, fn func(context.Context) error) error {
	var err error
	if c.executor == nil {
		err = fn(ctx)
	} else {
		err = c.executor.Execute(ctx, "ollama."+operation, fn, resilience.ClassifyHTTPError)
	}
	return resilience.WrapTemporaryIfNeeded("ollama "+operation, err)
}
