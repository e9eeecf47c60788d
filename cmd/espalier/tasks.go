package main

import (
	"context"
	"fmt"
	"time"

	"github.com/espalierhq/espalier/pkg/catalog"
	"github.com/espalierhq/espalier/pkg/domain"
)

// builtinCatalog holds the tasks flow files may reference by name.
// It is intentionally small; library users register their own.
func builtinCatalog() *catalog.Catalog {
	cat := catalog.New()

	cat.Register("print", func(ctx context.Context, shared map[string]any, attempt *domain.Attempt) (any, error) {
		msg, _ := shared["message"].(string)
		if msg == "" {
			msg = fmt.Sprintf("%v", shared)
		}
		fmt.Println(msg)
		return nil, nil
	})

	cat.Register("sleep", func(ctx context.Context, shared map[string]any, attempt *domain.Attempt) (any, error) {
		ms := 100
		switch v := shared["sleep_ms"].(type) {
		case int:
			ms = v
		case float64: // JSON numbers decode as float64
			ms = int(v)
		}
		select {
		case <-time.After(time.Duration(ms) * time.Millisecond):
			return nil, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})

	cat.Register("pause", func(ctx context.Context, shared map[string]any, attempt *domain.Attempt) (any, error) {
		return domain.Paused(map[string]any{"requested_by": "flow"}), nil
	})

	cat.Register("fail", func(ctx context.Context, shared map[string]any, attempt *domain.Attempt) (any, error) {
		return nil, fmt.Errorf("task failed on purpose")
	})

	return cat
}
