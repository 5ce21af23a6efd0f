// Command locomotion executes a JSON gait plan against a simulated robot,
// publishing QP controller inputs over UDP and optionally recording every
// snapshot to sqlite.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/bipedlab/locomotion/internal/config"
	"github.com/bipedlab/locomotion/internal/gait"
	"github.com/bipedlab/locomotion/internal/monitoring"
	"github.com/bipedlab/locomotion/internal/recorder"
	"github.com/bipedlab/locomotion/internal/telemetry"
	"github.com/bipedlab/locomotion/internal/timeutil"
	"github.com/bipedlab/locomotion/internal/transport"
)

func main() {
	var (
		planPath   = flag.String("plan", "", "path to the plan JSON file (required)")
		tuningPath = flag.String("tuning", "", "optional tuning JSON file")
		channel    = flag.String("channel", "QP_CONTROLLER_INPUT", "publish channel name")
		addr       = flag.String("addr", "127.0.0.1:7667", "UDP destination for published snapshots")
		rate       = flag.Float64("rate", 0, "tick rate in Hz (0 = tuning default)")
		dbPath     = flag.String("db", "", "optional sqlite snapshot database path")
		listen     = flag.String("listen", "", "optional debug/metrics HTTP listen address")
		overrun    = flag.Float64("overrun", 1.0, "seconds to keep ticking after plan completion")
	)
	flag.Parse()

	if *planPath == "" {
		fmt.Fprintln(os.Stderr, "usage: locomotion -plan <plan.json> [flags]")
		flag.PrintDefaults()
		os.Exit(1)
	}
	if err := run(*planPath, *tuningPath, *channel, *addr, *rate, *dbPath, *listen, *overrun); err != nil {
		monitoring.Logf("fatal: %v", err)
		os.Exit(1)
	}
}

func run(planPath, tuningPath, channel, addr string, rate float64, dbPath, listen string, overrun float64) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tuning := config.EmptyTuningConfig()
	if tuningPath != "" {
		loaded, err := config.LoadTuningConfig(tuningPath)
		if err != nil {
			return err
		}
		tuning = loaded
	}
	if rate <= 0 {
		rate = tuning.GetTickRateHz()
	}

	plan, err := config.LoadPlan(planPath)
	if err != nil {
		return err
	}
	monitoring.Logf("loaded plan %s: duration=%.2fs supports=%d body_motions=%d",
		planPath, plan.Duration(), len(plan.Supports), len(plan.BodyMotions))

	metrics := telemetry.NewMetrics(telemetry.Config{Enabled: listen != ""})

	pub, err := transport.NewUDPPublisher(addr, metrics, tuning.GetSendErrorLogInterval())
	if err != nil {
		return err
	}
	defer pub.Close()
	pub.Start(ctx)

	sim := newSimRobot(plan)
	o, err := gait.NewOrchestrator(sim.kin, plan, pub, channel,
		gait.WithSwingConfig(gait.SwingConfig{
			TouchdownBlend:            tuning.GetTouchdownBlend(),
			LateExtension:             tuning.GetLateExtension(),
			KinematicContactThreshold: tuning.GetKinematicContactThreshold(),
		}),
		gait.WithSwingEventHook(metrics.RecordSwingEvent))
	if err != nil {
		return err
	}

	var store *recorder.Store
	if dbPath != "" {
		store, err = recorder.Open(dbPath)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.MigrateUp(); err != nil {
			return err
		}
		if err := store.BeginExecution(o.ExecutionID(), channel, plan.Duration(), time.Now()); err != nil {
			return err
		}
		monitoring.Logf("recording execution %s to %s", o.ExecutionID(), dbPath)
	}

	// The tick loop owns the orchestrator; the debug handler reads a
	// published copy instead of touching it concurrently.
	var dbg atomic.Pointer[debugState]
	if listen != "" {
		go serveDebug(listen, metrics, &dbg)
	}

	return tickLoop(ctx, timeutil.RealClock{}, o, sim, store, metrics, &dbg, rate, overrun)
}

// debugState is the snapshot served on /debug/state.
type debugState struct {
	ExecutionID string        `json:"execution_id"`
	State       string        `json:"state"`
	PlanShift   [3]float64    `json:"plan_shift"`
	LastInput   *gait.QPInput `json:"last_input"`
}

// tickLoop drives the orchestrator at the configured rate until the plan
// completes (plus the overrun window) or the context is cancelled.
func tickLoop(ctx context.Context, clock timeutil.Clock, o *gait.Orchestrator, sim *simRobot,
	store *recorder.Store, metrics *telemetry.Metrics, dbg *atomic.Pointer[debugState], rate, overrun float64) error {

	period := time.Duration(float64(time.Second) / rate)
	ticker := clock.NewTicker(period)
	defer ticker.Stop()

	start := clock.Now()
	var completedAt time.Time

	for {
		select {
		case <-ctx.Done():
			monitoring.Logf("shutting down: %v", ctx.Err())
			return nil
		case <-ticker.C():
		}

		t := clock.Since(start).Seconds()
		q, v, contacts := sim.sample(t)

		tickStart := clock.Now()
		in, err := o.Tick(t, q, v, contacts)
		if err != nil {
			if in == nil {
				metrics.RecordTickError("kinematics")
				return fmt.Errorf("tick at t=%.3f: %w", t, err)
			}
			// Transport failure: state advanced, keep going.
			metrics.RecordTickError("transport")
			monitoring.Logf("tick t=%.3f: %v", t, err)
		}
		metrics.RecordTick(o.State().String(), in.Phase, clock.Since(tickStart))
		metrics.SetPlanShift(o.PlanShift())
		dbg.Store(&debugState{
			ExecutionID: in.ExecutionID,
			State:       o.State().String(),
			PlanShift:   o.PlanShift(),
			LastInput:   in,
		})

		if store != nil {
			if err := store.RecordSnapshot(in); err != nil {
				monitoring.Logf("recorder: %v", err)
			}
		}

		if in.Completed {
			if completedAt.IsZero() {
				completedAt = clock.Now()
				monitoring.Logf("plan completed at t=%.3f", t)
			}
			if clock.Since(completedAt) >= time.Duration(overrun*float64(time.Second)) {
				return nil
			}
		}
	}
}

// serveDebug exposes Prometheus metrics and the latest snapshot.
func serveDebug(listen string, metrics *telemetry.Metrics, dbg *atomic.Pointer[debugState]) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/debug/state", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		state := dbg.Load()
		if state == nil {
			state = &debugState{State: gait.NotStarted.String()}
		}
		json.NewEncoder(w).Encode(state)
	})
	monitoring.Logf("debug HTTP on %s", listen)
	if err := http.ListenAndServe(listen, mux); err != nil {
		monitoring.Logf("debug HTTP: %v", err)
	}
}
