package jobqueue

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/soutienweb/cagnotte/internal/pkg/env"
	"github.com/soutienweb/cagnotte/internal/pkg/payments"
)

// Deps are the collaborators the background jobs need.
type Deps struct {
	DB       *gorm.DB
	Payments *payments.Service
	Mailer   ReminderMailer
}

// Manager drives the periodic jobs: payment completion reconciliation,
// expiry reminders and inactive-account clearing. The same operations are
// callable one-shot through cmd/jobs for external cron setups.
type Manager struct {
	deps Deps

	completeTicker *time.Ticker
	reminderTicker *time.Ticker
	cleanupTicker  *time.Ticker
	stopCh         chan struct{}
	wg             sync.WaitGroup
	mu             sync.Mutex
	running        bool
}

var (
	globalManager *Manager
	managerOnce   sync.Once
)

// GetManager returns the global job manager (singleton). Configure must be
// called before Start.
func GetManager() *Manager {
	managerOnce.Do(func() {
		globalManager = &Manager{
			stopCh: make(chan struct{}),
		}
	})
	return globalManager
}

// Configure injects the job dependencies.
func (m *Manager) Configure(deps Deps) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deps = deps
}

// Start launches the periodic workers.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	// Recreate the stop channel so the manager can be restarted.
	m.stopCh = make(chan struct{})
	m.running = true
	log.Info("[Jobs] Demarrage des taches de fond")

	m.completeTicker = time.NewTicker(intervalFromEnv("JOBS_COMPLETE_INTERVAL_MIN", 2, time.Minute))
	m.wg.Add(1)
	go m.completeWorker()

	m.reminderTicker = time.NewTicker(intervalFromEnv("JOBS_REMINDER_INTERVAL_HOURS", 12, time.Hour))
	m.wg.Add(1)
	go m.reminderWorker()

	m.cleanupTicker = time.NewTicker(intervalFromEnv("JOBS_CLEANUP_INTERVAL_HOURS", 24, time.Hour))
	m.wg.Add(1)
	go m.cleanupWorker()

	log.Info("[Jobs] Taches de fond demarrees")
}

// Stop halts the periodic workers and waits for them to drain.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	log.Info("[Jobs] Arret des taches de fond...")

	if m.completeTicker != nil {
		m.completeTicker.Stop()
	}
	if m.reminderTicker != nil {
		m.reminderTicker.Stop()
	}
	if m.cleanupTicker != nil {
		m.cleanupTicker.Stop()
	}

	// The channel stays non-nil until every worker drained: a worker
	// mid-sweep re-reads m.stopCh on its next select and must still see
	// the closed channel, not nil.
	close(m.stopCh)
	m.running = false

	m.wg.Wait()

	log.Info("[Jobs] Taches de fond arretees")
}

// IsRunning returns whether the manager is currently running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Manager) completeWorker() {
	defer m.wg.Done()
	for {
		select {
		case <-m.stopCh:
			log.Info("[Jobs] Reconciliation des paiements arretee")
			return
		case <-m.completeTicker.C:
			n, err := m.deps.Payments.CompleteAllPaid(context.Background())
			if err != nil {
				log.Errorf("[Jobs] Reconciliation des paiements en echec: %v", err)
			} else if n > 0 {
				log.Infof("[Jobs] %d paiement(s) finalise(s)", n)
			}
		}
	}
}

func (m *Manager) reminderWorker() {
	defer m.wg.Done()
	for {
		select {
		case <-m.stopCh:
			log.Info("[Jobs] Envoi des rappels arrete")
			return
		case <-m.reminderTicker.C:
			n, err := RunReminderSweep(m.deps.DB, m.deps.Mailer, time.Now())
			if err != nil {
				log.Errorf("[Jobs] Envoi des rappels en echec: %v", err)
			} else if n > 0 {
				log.Infof("[Jobs] %d rappel(s) envoye(s)", n)
			}
		}
	}
}

func (m *Manager) cleanupWorker() {
	defer m.wg.Done()
	for {
		select {
		case <-m.stopCh:
			log.Info("[Jobs] Purge des comptes inactifs arretee")
			return
		case <-m.cleanupTicker.C:
			if _, err := RunInactiveSweep(m.deps.DB, time.Now(), InactiveAfter()); err != nil {
				log.Errorf("[Jobs] Purge des comptes inactifs en echec: %v", err)
			}
		}
	}
}

func intervalFromEnv(key string, fallback int, unit time.Duration) time.Duration {
	return time.Duration(env.GetInt(key, fallback)) * unit
}
