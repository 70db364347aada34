package services

import (
	"fmt"

	"github.com/yungbote/datakit-backend/internal/pkg/dbctx"
)

// cascadeStep is one child transition of an entity lifecycle change. A
// cascade is an ordered list of steps executed inside the caller's
// transaction: either all apply or none do.
type cascadeStep struct {
	name  string
	apply func(dbc dbctx.Context) error
}

func runCascade(dbc dbctx.Context, steps []cascadeStep) error {
	for _, step := range steps {
		if err := step.apply(dbc); err != nil {
			return fmt.Errorf("cascade step %s: %w", step.name, err)
		}
	}
	return nil
}
