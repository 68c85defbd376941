// Package app is the composition root of spec §9's Design Notes:
// "Process-wide singletons... model as composition-root-owned values
// passed by reference. Keep their lifecycle explicit (init/shutdown)
// and forbid lazy global access." App builds every subsystem named in
// SPEC_FULL.md §2 dependency order, wires them by reference, and
// exposes New/Start/Shutdown — no package-level globals anywhere.
package app

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mardukros/mardukros-sub000/config"
	"github.com/mardukros/mardukros-sub000/contextcore/sourcemanager"
	"github.com/mardukros/mardukros-sub000/contextcore/sources"
	"github.com/mardukros/mardukros-sub000/coordinator"
	"github.com/mardukros/mardukros-sub000/deliberation"
	"github.com/mardukros/mardukros-sub000/embedding"
	"github.com/mardukros/mardukros-sub000/health"
	"github.com/mardukros/mardukros-sub000/llm"
	"github.com/mardukros/mardukros-sub000/memorycore"
	"github.com/mardukros/mardukros-sub000/persistence"
	"github.com/mardukros/mardukros-sub000/task"
)

// Memory groups the four typed stores of spec §3/§4.1, each owning its
// own map exclusively (spec §5).
type Memory struct {
	Factual  memorycore.FactualStore
	Event    memorycore.EventStore
	Concept  memorycore.ConceptStore
	Workflow memorycore.WorkflowStore
}

// App owns every subsystem by reference and drives the periodic
// behaviors of spec §4.8 (auto-save, validation) on its own cron
// schedule, grounded on core/trigger/cron_trigger.go's cron-driven tick;
// the §4.12 ticks (resource sampling, health rollup) run on the Health
// Monitor's own cron.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	Memory      Memory
	Embedder    *embedding.Cache
	Coordinator *coordinator.Coordinator

	Resources    *task.ResourceMonitor
	Tasks        *task.Manager
	Deferred     *task.DeferredHandler
	Deliberation *deliberation.Cycle

	Health *health.Monitor

	taskIDSeq atomic.Int64
	cron      *cron.Cron
}

// New builds an App from cfg. Construction never blocks or suspends;
// all I/O (loading persisted state, periodic saves) happens in Start
// or on demand, per spec §5's suspension-point discipline.
func New(cfg *config.Config) (*App, error) {
	logger := newLogger(cfg.Logging)

	mem, err := buildMemory(cfg.Memory)
	if err != nil {
		return nil, err
	}

	embedProvider := embedding.NewOpenAIProvider(cfg.OpenAI.APIKey, "")
	embedCache, err := embedding.NewCache(embedProvider, embedding.CacheConfig{})
	if err != nil {
		return nil, err
	}

	documents := sources.NewDocumentSource(10)
	activity := sources.NewActivitySource(5)
	srcManager := sourcemanager.New(
		sources.NewMemoryAdapter[string](mem.Factual, "factual", "memory:factual", 20, sources.FormatFactual),
		sources.NewMemoryAdapter[memorycore.EventContent](mem.Event, "event", "memory:event", 18, sources.FormatEvent),
		sources.NewMemoryAdapter[memorycore.ConceptContent](mem.Concept, "concept", "memory:concept", 15, sources.FormatConcept),
		sources.NewMemoryAdapter[memorycore.WorkflowContent](mem.Workflow, "workflow", "memory:workflow", 12, sources.FormatWorkflow),
		documents,
		activity,
	)

	cachePersist := persistence.NewStore[coordinator.CacheRecord](
		filepath.Join(cfg.Memory.DataDir, "..", "context"),
		filepath.Join(cfg.Memory.BackupDir, "..", "context"),
		persistence.Options{},
	)

	client := llm.NewOpenAIClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model)

	coord := coordinator.New(coordinator.Options{
		AI:            cfg.AI,
		SourceManager: srcManager,
		Documents:     documents,
		Embedder:      embedCache,
		Client:        client,
		Events:        mem.Event,
		CachePersist:  cachePersist,
	})

	resources := task.NewResourceMonitor()
	tasks := task.NewManager(cfg.Task, resources)
	deferred := task.NewDeferredHandler()

	notesPersist := persistence.NewStore[deliberation.SelfNote](
		filepath.Join(cfg.Memory.DataDir, "..", "notes"),
		filepath.Join(cfg.Memory.BackupDir, "..", "notes"),
		persistence.Options{},
	)

	a := &App{
		Config:      cfg,
		Logger:      logger,
		Memory:      mem,
		Embedder:    embedCache,
		Coordinator: coord,
		Resources:   resources,
		Tasks:       tasks,
		Deferred:    deferred,
		Health:      health.NewMonitor(health.DefaultConfig()),
	}
	a.taskIDSeq.Store(1)

	a.Deliberation = deliberation.New(deliberation.Options{
		Notes:      notesPersist,
		Tasks:      tasks,
		Deferred:   deferred,
		Dispatcher: newCoordinatorDispatcher(coord, a.Logger),
		NextTaskID: a.nextTaskID,
	})

	a.registerHealthCheckers()

	return a, nil
}

// nextTaskID mints unique task ids shared across deliberation-generated
// tasks and any caller-created ones (spec §4.11 "NextTaskID mints task
// IDs... shared across the Coordinator, Task Manager, and
// deliberation").
func (a *App) nextTaskID() int {
	return int(a.taskIDSeq.Add(1))
}

func buildMemory(cfg config.Memory) (Memory, error) {
	factualPersist := persistence.NewStore[memorycore.Item[string]](
		filepath.Join(cfg.DataDir, "factual"),
		filepath.Join(cfg.BackupDir, "factual"),
		persistence.Options{})
	eventPersist := persistence.NewStore[memorycore.Item[memorycore.EventContent]](
		filepath.Join(cfg.DataDir, "event"),
		filepath.Join(cfg.BackupDir, "event"),
		persistence.Options{})
	conceptPersist := persistence.NewStore[memorycore.Item[memorycore.ConceptContent]](
		filepath.Join(cfg.DataDir, "concept"),
		filepath.Join(cfg.BackupDir, "concept"),
		persistence.Options{})
	workflowPersist := persistence.NewStore[memorycore.Item[memorycore.WorkflowContent]](
		filepath.Join(cfg.DataDir, "workflow"),
		filepath.Join(cfg.BackupDir, "workflow"),
		persistence.Options{})

	return Memory{
		Factual:  memorycore.NewFactualStore(memorycore.Options[string]{Capacity: 10000, Persistence: factualPersist}),
		Event:    memorycore.NewEventStore(memorycore.Options[memorycore.EventContent]{Capacity: 10000, Persistence: eventPersist}),
		Concept:  memorycore.NewConceptStore(memorycore.Options[memorycore.ConceptContent]{Capacity: 5000, Persistence: conceptPersist}),
		Workflow: memorycore.NewWorkflowStore(memorycore.Options[memorycore.WorkflowContent]{Capacity: 5000, Persistence: workflowPersist}),
	}, nil
}

func newLogger(cfg config.Logging) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var out = os.Stderr
	if cfg.File != "" {
		if f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
			return slog.New(slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level}))
		}
	}
	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
}

// Start starts the Health Monitor, whose sampling/rollup ticks (spec
// §4.12) run on the Monitor's own cron, schedules the Coordinator's
// periodic auto-save/validation passes (spec §4.8) on the App's cron,
// and returns once scheduling is done; both crons run in their own
// goroutines until ctx is cancelled or Shutdown is called.
func (a *App) Start(ctx context.Context) error {
	a.Health.Start(ctx)

	a.cron = cron.New()
	if a.Config.AI.EnableContextPersistence {
		interval := a.Config.AI.ContextPersistenceInterval
		if interval <= 0 {
			interval = 5 * time.Minute
		}
		_, _ = a.cron.AddFunc(everySpec(interval), func() {
			if err := a.Coordinator.PersistContext(ctx); err != nil {
				a.Logger.Warn("context persistence failed", "error", err)
				a.Health.RaiseDegradedAlert("memory", "context persistence failed: "+err.Error())
			}
		})
	}
	if a.Config.AI.EnableContextValidation {
		interval := a.Config.AI.ContextValidationInterval
		if interval <= 0 {
			interval = 15 * time.Minute
		}
		_, _ = a.cron.AddFunc(everySpec(interval), func() {
			results := a.Coordinator.ValidateContextCache(a.Config.AI.AutoFixValidationIssues)
			for key, res := range results {
				if !res.IsValid {
					a.Logger.Info("context cache validation found issues", "key", key, "issues", len(res.Issues))
				}
			}
			if a.Config.AI.AutoFixValidationIssues {
				if err := a.Coordinator.PersistContext(ctx); err != nil {
					a.Logger.Warn("post-validation persistence failed", "error", err)
				}
			}
		})
	}
	a.cron.Start()

	go func() {
		<-ctx.Done()
		a.Shutdown()
	}()
	return nil
}

// Shutdown stops every background schedule. Safe to call more than
// once.
func (a *App) Shutdown() {
	if a.cron != nil {
		stopCtx := a.cron.Stop()
		<-stopCtx.Done()
	}
	a.Health.Stop()
}

func everySpec(d time.Duration) string {
	return "@every " + d.String()
}
