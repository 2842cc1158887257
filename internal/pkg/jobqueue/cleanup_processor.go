package jobqueue

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/soutienweb/cagnotte/app/repository"
	"github.com/soutienweb/cagnotte/internal/pkg/env"
)

// DefaultInactiveAfterYears is how long an account may stay expired before
// the clearing job removes it.
const DefaultInactiveAfterYears = 3

// InactiveAfter reads the clearing threshold from the environment.
func InactiveAfter() int {
	return env.GetInt("JOBS_INACTIVE_AFTER_YEARS", DefaultInactiveAfterYears)
}

// RunInactiveSweep deletes accounts whose subscription lapsed more than the
// threshold ago. Their payments and pot usages are reassigned to the
// sentinel default account first so invoices and the pot balance survive
// the deletion. Free and sentinel accounts are never cleared.
func RunInactiveSweep(db *gorm.DB, now time.Time, inactiveYears int) (int, error) {
	repos := repository.NewRepositories(db)
	cutoff := now.AddDate(-inactiveYears, 0, 0)

	stale, err := repos.Account.ListInactiveSince(cutoff)
	if err != nil {
		return 0, fmt.Errorf("inactive sweep query failed: %w", err)
	}

	cleared := 0
	for i := range stale {
		account := stale[i]
		err := db.Transaction(func(tx *gorm.DB) error {
			txRepos := repository.NewRepositories(tx)
			sentinel, err := txRepos.Account.GetDefault()
			if err != nil {
				return err
			}
			if err := txRepos.Payment.ReassignAccount(account.ID, sentinel.ID); err != nil {
				return err
			}
			if err := txRepos.PotUsage.ReassignAccount(account.ID, sentinel.ID); err != nil {
				return err
			}
			if err := txRepos.Token.DeleteForAccount(account.ID); err != nil {
				return err
			}
			// Orphaned managed accounts become self-managed again.
			managed, err := txRepos.Account.ListManagedBy(account.ID)
			if err != nil {
				return err
			}
			for _, m := range managed {
				if err := txRepos.Account.SetManager(m.ID, nil); err != nil {
					return err
				}
			}
			return txRepos.Account.Delete(account.ID)
		})
		if err != nil {
			log.Errorf("[Jobs] purge du compte %d en echec: %v", account.ID, err)
			continue
		}
		cleared++
	}

	// Spent login tokens of surviving accounts go in the same sweep.
	purged, err := repos.Token.DeleteExpired(now)
	if err != nil {
		log.Errorf("[Jobs] purge des jetons expires en echec: %v", err)
	} else if purged > 0 {
		log.Infof("[Jobs] %d jeton(s) de connexion expire(s) purge(s)", purged)
	}

	if cleared > 0 {
		log.Infof("[Jobs] %d compte(s) inactif(s) purge(s)", cleared)
	}
	return cleared, nil
}
