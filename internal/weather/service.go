package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// ErrPartialSnapshot is returned when a section failed upstream and the
// partial policy forbids publishing an incomplete record.
var ErrPartialSnapshot = errors.New("snapshot is incomplete")

// PartialPolicy decides what happens to a snapshot with degraded sections.
type PartialPolicy string

const (
	// PartialPublish publishes the record with its degraded sections marked.
	PartialPublish PartialPolicy = "publish"
	// PartialSkip aborts the invocation without publishing.
	PartialSkip PartialPolicy = "skip"
)

// Settings are the per-deployment parameters of one invocation.
type Settings struct {
	VaultAddress  string
	SecretName    string
	Location      string
	ForecastDays  int
	PartialPolicy PartialPolicy
}

// Service runs the fetch → normalize → publish pipeline once per call.
type Service struct {
	source     Source
	secrets    SecretOpener
	publishers PublisherOpener
	store      Store
	settings   Settings
	logger     *log.Entry

	now func() time.Time
}

// NewService creates a new Service.
func NewService(source Source, secrets SecretOpener, publishers PublisherOpener, store Store,
	settings Settings, logger *log.Entry,
) *Service {
	if settings.PartialPolicy == "" {
		settings.PartialPolicy = PartialPublish
	}
	return &Service{
		source:     source,
		secrets:    secrets,
		publishers: publishers,
		store:      store,
		settings:   settings,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Run executes one invocation under a freshly generated run ID.
func (s *Service) Run(ctx context.Context) error {
	_, err := s.RunWithID(ctx, uuid.NewString())
	return err
}

// RunWithID executes one invocation and returns its recorded outcome.
// Secret sessions and publishers are acquired for this run only and released
// on every exit path.
func (s *Service) RunWithID(ctx context.Context, runID string) (record RunRecord, err error) {
	logger := s.logger.WithFields(log.Fields{"run_id": runID, "location": s.settings.Location})
	record = RunRecord{
		ID:        runID,
		Location:  s.settings.Location,
		StartedAt: s.now(),
		Degraded:  []Section{},
	}
	defer func() {
		record.FinishedAt = s.now()
		if err != nil {
			record.Error = err.Error()
		}
		if s.store != nil {
			s.store.SaveRun(record)
		}
	}()

	logger.Info("weather pipeline run started")

	apiKey, err := s.fetchAPIKey(ctx, logger)
	if err != nil {
		logger.WithField("error", err).Error("unable to fetch weather api key")
		return record, err
	}

	snapshot := s.collect(ctx, apiKey, logger)
	snapshot.EventID = uuid.NewString()
	snapshot.FetchedAt = s.now()
	record.Degraded = snapshot.Degraded
	record.EventID = snapshot.EventID

	if len(snapshot.Degraded) > 0 && s.settings.PartialPolicy == PartialSkip {
		err = fmt.Errorf("%w: degraded sections %v", ErrPartialSnapshot, snapshot.Degraded)
		logger.WithField("error", err).Warn("not publishing partial snapshot")
		return record, err
	}

	payload, err := json.Marshal(snapshot)
	if err != nil {
		return record, fmt.Errorf("failed to encode snapshot: %w", err)
	}

	if err = s.publish(ctx, payload, logger); err != nil {
		logger.WithField("error", err).Error("unable to publish snapshot")
		return record, err
	}
	record.Published = true

	logger.WithFields(log.Fields{"event_id": snapshot.EventID, "degraded": snapshot.Degraded}).
		Info("weather pipeline run completed")
	return record, nil
}

func (s *Service) fetchAPIKey(ctx context.Context, logger *log.Entry) (string, error) {
	session, err := s.secrets(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to open secret session: %w", err)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			logger.WithField("error", cerr).Warn("failed to close secret session")
		}
	}()

	key, err := session.GetSecret(ctx, s.settings.VaultAddress, s.settings.SecretName)
	if err != nil {
		return "", fmt.Errorf("failed to get secret %q: %w", s.settings.SecretName, err)
	}
	return key, nil
}

// collect calls the three endpoints in sequence. A failed call leaves its
// payload nil and marks its section as degraded.
func (s *Service) collect(ctx context.Context, apiKey string, logger *log.Entry) WeatherSnapshot {
	var degraded []Section
	fail := func(section Section, err error) {
		logger.WithFields(log.Fields{"section": section, "error": err}).Warn("weather api call failed")
		degraded = append(degraded, section)
	}

	current, err := s.source.Current(ctx, apiKey, s.settings.Location)
	if err != nil {
		current = nil
		fail(SectionCurrent, err)
	}

	forecast, err := s.source.Forecast(ctx, apiKey, s.settings.Location, s.settings.ForecastDays)
	if err != nil {
		forecast = nil
		fail(SectionForecast, err)
	}

	alerts, err := s.source.Alerts(ctx, apiKey, s.settings.Location)
	if err != nil {
		alerts = nil
		fail(SectionAlerts, err)
	}

	snapshot := Normalize(current, forecast, alerts)
	if degraded != nil {
		snapshot.Degraded = degraded
	}
	return snapshot
}

func (s *Service) publish(ctx context.Context, payload []byte, logger *log.Entry) error {
	pub, err := s.publishers(ctx)
	if err != nil {
		return fmt.Errorf("failed to open publisher: %w", err)
	}
	defer func() {
		if cerr := pub.Close(ctx); cerr != nil {
			logger.WithField("error", cerr).Warn("failed to close publisher")
		}
	}()

	if err := pub.Publish(ctx, payload); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", pub.Destination(), err)
	}
	logger.WithFields(log.Fields{"destination": pub.Destination(), "bytes": len(payload)}).
		Debug("snapshot published")
	return nil
}

// GetLatest delegates to the underlying store.
func (s *Service) GetLatest() (RunRecord, error) {
	return s.store.GetLatest()
}

// GetRange delegates to the underlying store.
func (s *Service) GetRange(from, to time.Time) ([]RunRecord, error) {
	return s.store.GetRange(from, to)
}
