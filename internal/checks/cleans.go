// File: internal/checks/cleans.go
package checks

import (
	"context"
	"errors"
	"fmt"

	"github.com/eonpatapon/contrail-gremlin/internal/fsck"
	"github.com/eonpatapon/contrail-gremlin/internal/remediation"
	"github.com/eonpatapon/contrail-gremlin/internal/resource"
)

// deleteResources deletes every flagged resource. Resources already gone
// are skipped silently; any other failure stops the clean.
func deleteResources(ctx context.Context, env *fsck.CleanEnv, resources []resource.Resource) error {
	for _, r := range resources {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := env.Remediator.Delete(ctx, r)
		if errors.Is(err, remediation.ErrNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to delete %s: %w", r, err)
		}
		env.Record("Deleted %s", r)
	}
	return nil
}
