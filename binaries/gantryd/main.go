package main

import (
	"context"
	"flag"
	"fmt"
	"io/ioutil"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/gantrylabs/gantry/async"
	"github.com/gantrylabs/gantry/common/endpoints"
	"github.com/gantrylabs/gantry/common/log/hooks"
	"github.com/gantrylabs/gantry/monitor"
	"github.com/gantrylabs/gantry/sched"
	"github.com/gantrylabs/gantry/sched/config"
	"github.com/gantrylabs/gantry/sched/scheduler"
	"github.com/gantrylabs/gantry/worker"
	"github.com/gantrylabs/gantry/worker/workers"
)

// Demo daemon: a resource-aware scheduler fed by a synthetic workload,
// with health and stats served over http.
//	Flags: (see "-h" for all options)
//		--http_addr [<host:port> for the admin endpoints]
//		--config [path to a sched config JSON file]
//		--demo_rate [synthetic jobs per second, 0 disables the workload]
//		--log_level [<error|info|debug> level and above should be logged]

var httpAddr = flag.String("http_addr", "localhost:9091", "address to serve http admin endpoints on")
var configFlag = flag.String("config", "", "sched config file, default config when empty")
var demoRate = flag.Float64("demo_rate", 2, "synthetic jobs submitted per second, 0 disables the demo workload")
var demoBurst = flag.Int("demo_burst", 4, "synthetic submission burst allowance")
var watchInterval = flag.Duration("watch_interval", 5*time.Second, "how often to check host health")
var logLevelFlag = flag.String("log_level", "info", "Log everything at this level and above (error|info|debug)")

func main() {
	log.AddHook(hooks.NewContextHook())
	flag.Parse()

	level, err := log.ParseLevel(*logLevelFlag)
	if err != nil {
		log.Error(err)
		return
	}
	log.SetLevel(level)

	var configText []byte
	if *configFlag != "" {
		configText, err = ioutil.ReadFile(*configFlag)
		if err != nil {
			log.Fatalf("Error reading config %s: %v", *configFlag, err)
		}
	}

	log.Info("Starting gantryd")
	sys, err := config.DefaultParser().Create(configText, &scheduler.LoggingListener{})
	if err != nil {
		log.Fatal("Error creating Gantry system: ", err)
	}

	admin := endpoints.NewAdminServer(*httpAddr, sys.Stat)
	admin.AddJobStatuses(sys.Scheduler.StatusManager())
	go func() {
		log.Fatal("Error serving admin endpoints: ", admin.Serve())
	}()

	watcher := monitor.NewWatcher(sys.Monitor, *watchInterval)
	watcher.AddListener(func(ev monitor.HealthEvent) {
		if ev.To == monitor.Critical {
			log.Warnf("Host resources critical: ram %.1f%%, cpu %.1f%%",
				ev.Metrics.RAMPercent, ev.Metrics.CPUPercent)
		}
	})
	watcher.Start()
	defer watcher.Stop()

	ctx, stopWorkload := context.WithCancel(context.Background())
	workloadDone := make(chan struct{})
	if *demoRate > 0 {
		go runDemoWorkload(ctx, sys.Scheduler, *demoRate, *demoBurst, workloadDone)
	} else {
		close(workloadDone)
	}

	sigchan := make(chan os.Signal, 1)
	signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigchan
	log.Infof("signal %s received; shutting down", sig)

	stopWorkload()
	<-workloadDone
	sys.Scheduler.Shutdown(true)
	log.Infof("Drained; %d jobs submitted over this run", sys.Scheduler.Stats().TotalSubmitted)
}

// runDemoWorkload submits short randomized jobs at the configured rate
// until ctx is cancelled. Completion waits run on their own goroutines;
// their callbacks drain through an async.Runner owned by this one.
func runDemoWorkload(ctx context.Context, s *scheduler.JobScheduler, perSec float64, burst int, done chan struct{}) {
	defer close(done)
	limiter := rate.NewLimiter(rate.Limit(perSec), burst)
	runner := async.NewRunner()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	submitted := 0

	for {
		if err := limiter.Wait(ctx); err != nil {
			break
		}
		id, err := s.SubmitJob(demoDef(rng))
		if err == sched.ErrQueueFull {
			// The limiter paces the retry.
			log.Info("Queue full, backing off")
			continue
		}
		if err != nil {
			log.Warnf("Demo submit failed: %v", err)
			break
		}
		submitted++

		jobID := id
		runner.RunAsync(func() error {
			_, err := s.WaitForStatus(jobID, worker.DONE_MASK, worker.Wait{Timeout: time.Minute})
			return err
		}, func(err error) {
			if err != nil {
				log.Warnf("Demo job %s never finished: %v", jobID, err)
			}
		})
		runner.ProcessMessages()
	}

	for runner.NumRunning() > 0 {
		runner.ProcessMessages()
		time.Sleep(10 * time.Millisecond)
	}
	log.Infof("Demo workload drained after %d submissions", submitted)
}

func demoDef(rng *rand.Rand) sched.JobDefinition {
	types := []monitor.JobType{
		monitor.JobTypeAnalysis,
		monitor.JobTypeInference,
		monitor.JobTypeNetwork,
		monitor.JobTypeIO,
		monitor.JobTypeDefault,
	}
	prios := []sched.Priority{sched.Critical, sched.High, sched.Normal, sched.Low}
	script := []string{
		fmt.Sprintf("sleep %d", 10+rng.Intn(200)),
		fmt.Sprintf("progress 1 2 %s", "halfway"),
		"complete 0",
	}
	return sched.JobDefinition{
		Worker:   workers.NewSimWorker(script...),
		Type:     types[rng.Intn(len(types))],
		Priority: prios[rng.Intn(len(prios))],
		Timeout:  time.Minute,
	}
}
