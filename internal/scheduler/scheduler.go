package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dosewise/dosewise/internal/metrics"
	"github.com/dosewise/dosewise/internal/models"
	"github.com/dosewise/dosewise/internal/notify"
	"github.com/dosewise/dosewise/internal/repository"
)

// maxEmergencyContacts caps the emergency fan-out per firing
const maxEmergencyContacts = 3

// Dispatcher delivers composed messages; satisfied by *notify.Dispatcher.
type Dispatcher interface {
	Dispatch(ctx context.Context, channel string, patient *models.Patient, msg notify.Message) bool
	DispatchEmergency(ctx context.Context, contact models.EmergencyContact, msg notify.Message) bool
}

// timerKey identifies one armed wake-up: the medication and the trigger
// instant it was armed for. A medication whose next trigger changes gets a
// new key and a new timer.
type timerKey struct {
	medicationID string
	triggerUnix  int64
}

type trackedTimer struct {
	key    timerKey
	fireAt time.Time
	timer  *time.Timer
}

// Scheduler owns the in-memory set of pending reminder timers. It arms one
// timer per schedulable medication, fans delivery out across the configured
// channels when a timer fires, recomputes and persists the next occurrence,
// and runs two periodic sweeps: reconciliation (adopts records written out of
// band by the HTTP API) and cleanup (evicts timers whose fire time elapsed).
//
// A single Scheduler instance owns all timers; running two concurrently would
// double-fire reminders.
type Scheduler struct {
	medications repository.MedicationRepository
	patients    repository.PatientRepository
	composer    *notify.Composer
	dispatcher  Dispatcher
	logger      *logrus.Logger

	reconcileInterval time.Duration
	cleanupInterval   time.Duration

	mu      sync.Mutex
	timers  map[string]*trackedTimer // keyed by medication id
	started bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Scheduler. Nothing runs until Start is called.
func New(medications repository.MedicationRepository, patients repository.PatientRepository,
	composer *notify.Composer, dispatcher Dispatcher, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		medications:       medications,
		patients:          patients,
		composer:          composer,
		dispatcher:        dispatcher,
		logger:            logger,
		reconcileInterval: time.Minute,
		cleanupInterval:   24 * time.Hour,
		timers:            make(map[string]*trackedTimer),
	}
}

// Start loads all schedulable medications, arms a timer for each, and begins
// the periodic sweeps. It is idempotent per process lifetime: a second call
// is a no-op. A load failure is logged and the scheduler continues with an
// empty tracked set; the reconciliation sweep will retry.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	meds, err := s.medications.GetSchedulable(s.ctx)
	if err != nil {
		s.logger.WithError(err).Error("failed to load schedulable medications at startup")
		meds = nil
	}
	for _, med := range meds {
		s.ScheduleMedication(med)
	}
	s.logger.Infof("Reminder scheduler started with %d medication(s) tracked", s.trackedCount())

	s.wg.Add(2)
	go s.reconcileLoop()
	go s.cleanupLoop()
}

// Stop cancels every tracked timer and clears the tracked set. Safe to call
// multiple times.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	for id, tracked := range s.timers {
		tracked.timer.Stop()
		delete(s.timers, id)
	}
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("Reminder scheduler stopped")
}

// ScheduleMedication arms a wake-up for the medication's next trigger. It is
// a no-op when the trigger is absent, in the past, or already armed for the
// same instant; otherwise any existing timer for the medication is replaced.
func (s *Scheduler) ScheduleMedication(med *models.Medication) {
	if med.NextTrigger == nil {
		return
	}
	fireAt := *med.NextTrigger
	if !fireAt.After(time.Now()) {
		return
	}

	key := timerKey{medicationID: med.ID, triggerUnix: fireAt.Unix()}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.timers[med.ID]; ok {
		if existing.key == key {
			return // already armed for this instant
		}
		existing.timer.Stop()
	}

	s.timers[med.ID] = &trackedTimer{
		key:    key,
		fireAt: fireAt,
		timer: time.AfterFunc(time.Until(fireAt), func() {
			s.fire(key)
		}),
	}

	s.logger.WithFields(logrus.Fields{
		"medication_id": med.ID,
		"fire_at":       fireAt,
	}).Debug("reminder timer armed")
}

// trackedCount returns the number of tracked timers
func (s *Scheduler) trackedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// fire handles one timer expiry: refresh the record and its patient from the
// store, fan delivery out across channels, then recompute and persist the
// next occurrence. Each firing is an independent unit of work; failures here
// never propagate to sibling timers or the sweeps.
func (s *Scheduler) fire(key timerKey) {
	s.mu.Lock()
	if tracked, ok := s.timers[key.medicationID]; ok && tracked.key == key {
		delete(s.timers, key.medicationID)
	}
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}

	log := s.logger.WithField("medication_id", key.medicationID)

	med, err := s.medications.GetByID(ctx, key.medicationID)
	if err != nil {
		log.WithError(err).Error("failed to refresh medication at fire time")
		return
	}
	if med == nil || !med.Schedulable() {
		log.Debug("medication gone or no longer schedulable, dropping")
		return
	}

	// The patient snapshot captured at schedule time is considered stale:
	// language and contact preferences may have changed since.
	patient, err := s.patients.GetByID(ctx, med.PatientID)
	if err != nil {
		log.WithError(err).Error("failed to load patient at fire time")
		return
	}
	if patient == nil {
		log.Warn("patient no longer exists, dropping reminder")
		return
	}

	metrics.RemindersFired.Inc()
	s.fanOut(ctx, med, patient)

	if med.Reminders.NotifyEmergencyContacts {
		s.alertEmergencyContacts(ctx, med, patient)
	}

	// Synchronization point: the recompute runs only after every channel has
	// been attempted.
	next := med.NextOccurrence(time.Now())
	if err := s.medications.UpdateNextTrigger(ctx, med.ID, next); err != nil {
		// Not re-armed: the stored trigger is now stale, so the record stays
		// invisible until the reconciliation sweep re-adopts it.
		log.WithError(err).Error("failed to persist next trigger, not re-arming")
		return
	}
	if next == nil {
		log.Info("schedule exhausted, no further reminders")
		return
	}

	med.NextTrigger = next
	s.ScheduleMedication(med)
}

// fanOut dispatches the reminder on every configured channel concurrently.
// Channels are independent: every channel is attempted regardless of how the
// others fare.
func (s *Scheduler) fanOut(ctx context.Context, med *models.Medication, patient *models.Patient) {
	channels := med.ChannelList()

	var wg sync.WaitGroup
	results := make([]bool, len(channels))
	for i, channel := range channels {
		wg.Add(1)
		go func(i int, channel string) {
			defer wg.Done()
			msg := s.composer.Compose(med, patient, channel)
			ok := s.dispatcher.Dispatch(ctx, channel, patient, msg)
			results[i] = ok
			if ok {
				metrics.Deliveries.WithLabelValues(channel, "ok").Inc()
			} else {
				metrics.Deliveries.WithLabelValues(channel, "failed").Inc()
			}
		}(i, channel)
	}
	wg.Wait()

	delivered := 0
	for _, ok := range results {
		if ok {
			delivered++
		}
	}
	s.logger.WithFields(logrus.Fields{
		"medication_id": med.ID,
		"channels":      len(channels),
		"delivered":     delivered,
	}).Info("reminder fan-out complete")
}

// alertEmergencyContacts sends a short alert to the first contacts by
// priority, independent of the primary fan-out's outcome.
func (s *Scheduler) alertEmergencyContacts(ctx context.Context, med *models.Medication, patient *models.Patient) {
	contacts := patient.ContactsByPriority()
	if len(contacts) > maxEmergencyContacts {
		contacts = contacts[:maxEmergencyContacts]
	}

	msg := s.composer.ComposeEmergencyAlert(med, patient)
	for _, contact := range contacts {
		metrics.EmergencyAlerts.Inc()
		s.dispatcher.DispatchEmergency(ctx, contact, msg)
	}
}

// reconcileLoop periodically re-queries the store and adopts schedulable
// medications not currently tracked. This is how records created or updated
// out of band by the HTTP API become visible to the scheduler.
func (s *Scheduler) reconcileLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.reconcileInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.reconcile()
		}
	}
}

func (s *Scheduler) reconcile() {
	meds, err := s.medications.GetSchedulable(s.ctx)
	if err != nil {
		s.logger.WithError(err).Error("reconciliation sweep query failed")
		return
	}

	adopted := 0
	for _, med := range meds {
		s.mu.Lock()
		_, tracked := s.timers[med.ID]
		s.mu.Unlock()

		s.ScheduleMedication(med)
		if !tracked {
			adopted++
			metrics.SweepAdoptions.Inc()
		}
	}
	if adopted > 0 {
		s.logger.Infof("Reconciliation sweep adopted %d medication(s)", adopted)
	}
}

// cleanupLoop periodically evicts timers whose fire instant has already
// elapsed without the timer removing itself.
func (s *Scheduler) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

func (s *Scheduler) cleanup() {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, tracked := range s.timers {
		if tracked.fireAt.Before(now) {
			tracked.timer.Stop()
			delete(s.timers, id)
			metrics.StaleTimersEvicted.Inc()
			s.logger.WithField("medication_id", id).Warn("evicted stale reminder timer")
		}
	}
}
