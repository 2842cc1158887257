package jobqueue

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/soutienweb/cagnotte/app/models"
	"github.com/soutienweb/cagnotte/app/repository"
)

// ReminderWindow is how far ahead of expiration the reminder mail goes out.
const ReminderWindow = 7 * 24 * time.Hour

// ReminderMailer sends the expiry reminder. mail.SendMail satisfies it.
type ReminderMailer func(to, subject, body string) error

// RunReminderSweep mails every account whose subscription expires within
// the reminder window, opted in, and not yet reminded for this cycle.
// ReminderSentAt is cleared on renewal, so each cycle reminds at most once.
func RunReminderSweep(db *gorm.DB, send ReminderMailer, now time.Time) (int, error) {
	return sweepReminders(repository.NewRepositories(db), send, now)
}

func sweepReminders(repos *repository.Repositories, send ReminderMailer, now time.Time) (int, error) {
	// The epoch lower bound keeps free accounts out of the window.
	accounts, err := repos.Account.ListExpiringBetween(time.Unix(0, 0), now.Add(ReminderWindow))
	if err != nil {
		return 0, fmt.Errorf("reminder sweep query failed: %w", err)
	}

	sent := 0
	for i := range accounts {
		account := &accounts[i]
		if err := send(account.Email, reminderSubject(account, now), reminderBody(account, now)); err != nil {
			log.Errorf("[Jobs] rappel pour %s en echec: %v", account.Email, err)
			continue
		}
		sentAt := now
		account.ReminderSentAt = &sentAt
		if err := repos.Account.Update(account); err != nil {
			return sent, fmt.Errorf("marking reminder for account %d failed: %w", account.ID, err)
		}
		sent++
	}
	return sent, nil
}

func reminderSubject(account *models.Account, now time.Time) string {
	if account.IsExpired(now) {
		return "Votre abonnement a expire"
	}
	return "Votre abonnement expire bientot"
}

func reminderBody(account *models.Account, now time.Time) string {
	date := account.ExpiredAt.Format("02/01/2006")
	if account.IsExpired(now) {
		return fmt.Sprintf("<p>Votre abonnement a expire le %s. Renouvelez-le pour conserver votre acces.</p>", date)
	}
	return fmt.Sprintf("<p>Votre abonnement expire le %s. Vous pouvez le renouveler des maintenant.</p>", date)
}
