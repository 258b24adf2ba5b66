package cmd

import (
	"fmt"
	"time"

	"github.com/classmark/classmark/internal/backup"
	"github.com/classmark/classmark/internal/config"
	"github.com/classmark/classmark/internal/ledger"
	"github.com/classmark/classmark/internal/postgres"
	"github.com/classmark/classmark/internal/recognizer"
	"github.com/classmark/classmark/internal/registry"
	"github.com/classmark/classmark/internal/session"
	"github.com/classmark/classmark/internal/store"
)

// app bundles the wired collaborators most commands need: the selected
// storage backend, the ledger, and the backup manager hooked into both.
type app struct {
	cfg      *config.Config
	registry *registry.Registry
	ledger   *ledger.CSV
	backups  *backup.Manager

	// pool is set when POSTGRES_URL is configured; it switches the student
	// and sample stores and the prediction backend to PostgreSQL.
	pool *postgres.Pool

	// model is loaded lazily; membership changes mark it stale.
	model *recognizer.Model
}

func newApp() (*app, error) {
	cfg := config.Load()

	backups, err := backup.NewManager(cfg.BackupPath(), cfg.Backup.RetentionCount)
	if err != nil {
		return nil, fmt.Errorf("setting up backups: %w", err)
	}

	a := &app{cfg: cfg, backups: backups}

	if cfg.Postgres.URL != "" {
		pool, err := postgres.Initialize(cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("initializing PostgreSQL: %w", err)
		}
		a.pool = pool
	}

	students, samples, err := a.openStores()
	if err != nil {
		return nil, err
	}

	led, err := ledger.NewCSV(cfg.AttendanceCSVPath())
	if err != nil {
		return nil, fmt.Errorf("opening attendance ledger: %w", err)
	}
	a.ledger = led

	validator := registry.NewValidator(cfg.Academics.Branches, cfg.Academics.Sections)
	a.registry = registry.New(students, samples, validator,
		registry.WithMutationHook(func() {
			backups.TrySnapshot("students", students.Path())
		}),
		registry.WithMembershipHook(func() {
			if a.model != nil {
				a.model.MarkStale()
			}
		}),
	)

	led.SetMutationHook(func() {
		backups.TrySnapshot("attendance", led.Path())
	})

	return a, nil
}

// openStores selects the storage backend: PostgreSQL repositories when a
// pool is connected, the JSON file plus sample directory otherwise.
func (a *app) openStores() (registry.Store, registry.SampleStore, error) {
	if a.pool != nil {
		return postgres.NewStudentRepository(a.pool), postgres.NewSampleRepository(a.pool), nil
	}

	students, err := store.NewJSONFile(a.cfg.StudentDBPath())
	if err != nil {
		return nil, nil, fmt.Errorf("opening student store: %w", err)
	}
	samples, err := store.NewDirSamples(a.cfg.DatasetPath())
	if err != nil {
		return nil, nil, fmt.Errorf("opening sample store: %w", err)
	}
	return students, samples, nil
}

// predictor returns the recognition backend matching the storage selection:
// the pgvector matcher when PostgreSQL is connected, the trained gob model
// otherwise.
func (a *app) predictor() (recognizer.Predictor, error) {
	if a.pool != nil {
		return postgres.NewMatcher(a.pool, a.cfg.Recognition.ConfidenceThreshold), nil
	}
	return a.loadModel()
}

// loadModel reads the trained model from disk, caching it for the process.
func (a *app) loadModel() (*recognizer.Model, error) {
	if a.model != nil {
		return a.model, nil
	}
	model, err := recognizer.LoadModel(a.cfg.ModelPath(), a.cfg.Recognition.ConfidenceThreshold)
	if err != nil {
		return nil, fmt.Errorf("loading model (run 'classmark train' first): %w", err)
	}
	a.model = model
	return model, nil
}

// sessionManager wires a live session manager over the app's stores.
func (a *app) sessionManager(source func() (session.FrameSource, error)) *session.Manager {
	return session.NewManager(session.ManagerConfig{
		Registry:      a.registry,
		Ledger:        a.ledger,
		Detector:      recognizer.NewVarianceDetector(),
		Model:         a.predictor,
		Source:        source,
		Cooldown:      time.Duration(a.cfg.Attendance.CooldownSeconds) * time.Second,
		FrameInterval: time.Duration(float64(time.Second) / a.cfg.Camera.TargetFPS),
		ReadTimeout:   time.Duration(a.cfg.Camera.ReadTimeout) * time.Second,
		BatchSize:     a.cfg.Attendance.BatchWriteInterval,
	})
}

// frameSource opens the configured frame input, a directory of images.
func (a *app) frameSource() (session.FrameSource, error) {
	return session.NewDirSource(a.cfg.Camera.FrameDir)
}
