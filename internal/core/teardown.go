package core

import (
	"context"

	"github.com/hashicorp/go-multierror"
	"gorm.io/gorm"

	"tx-coordinator/internal/pkg/database"
)

var pools []*gorm.DB

func setPools(opened []*gorm.DB) {
	pools = opened
}

// Teardown closes every pool opened during Setup.
func Teardown(ctx context.Context) error {
	var result *multierror.Error
	for _, db := range pools {
		if err := database.Disconnect(db); err != nil {
			result = multierror.Append(result, err)
		}
	}
	pools = nil
	return result.ErrorOrNil()
}
