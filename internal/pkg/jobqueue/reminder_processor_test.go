package jobqueue

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soutienweb/cagnotte/app/models"
	"github.com/soutienweb/cagnotte/app/repository"
)

// fakeAccountRepo covers only what the sweep touches; anything else
// panics through the embedded nil interface.
type fakeAccountRepo struct {
	repository.AccountRepository
	accounts []models.Account
	from, to time.Time
	updated  []models.Account
}

func (f *fakeAccountRepo) ListExpiringBetween(from, to time.Time) ([]models.Account, error) {
	f.from, f.to = from, to
	return f.accounts, nil
}

func (f *fakeAccountRepo) Update(account *models.Account) error {
	f.updated = append(f.updated, *account)
	return nil
}

func TestSweepRemindersMarksMailedAccounts(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	repo := &fakeAccountRepo{accounts: []models.Account{
		{Email: "a@example.org", ExpiredAt: now.Add(2 * 24 * time.Hour)},
		{Email: "b@example.org", ExpiredAt: now.Add(5 * 24 * time.Hour)},
	}}
	repo.accounts[0].ID = 1
	repo.accounts[1].ID = 2

	var mailed []string
	send := func(to, subject, body string) error {
		mailed = append(mailed, to)
		if to == "b@example.org" {
			return errors.New("smtp down")
		}
		return nil
	}

	sent, err := sweepReminders(&repository.Repositories{Account: repo}, send, now)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, []string{"a@example.org", "b@example.org"}, mailed)

	// Free accounts sit at the epoch, below the window's lower bound.
	assert.Equal(t, time.Unix(0, 0), repo.from)
	assert.Equal(t, now.Add(ReminderWindow), repo.to)

	// Only the delivered reminder gets its watermark.
	require.Len(t, repo.updated, 1)
	assert.Equal(t, uint(1), repo.updated[0].ID)
	require.NotNil(t, repo.updated[0].ReminderSentAt)
	assert.Equal(t, now, *repo.updated[0].ReminderSentAt)
}
