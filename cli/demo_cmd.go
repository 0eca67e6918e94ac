package cli

import (
	"fmt"
	"io/ioutil"
	"math/rand"
	"time"

	"github.com/cenkalti/backoff"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/gantrylabs/gantry/monitor"
	"github.com/gantrylabs/gantry/sched"
	"github.com/gantrylabs/gantry/sched/config"
	"github.com/gantrylabs/gantry/sched/scheduler"
	"github.com/gantrylabs/gantry/worker"
	"github.com/gantrylabs/gantry/worker/workers"
)

type demoCmd struct {
	configFile string
	numJobs    int
}

func (c *demoCmd) registerFlags() *cobra.Command {
	r := &cobra.Command{
		Use:   "demo",
		Short: "run a local scheduler and push jobs through it",
	}
	r.Flags().StringVar(&c.configFile, "config", "", "JSON config file, default config when empty")
	r.Flags().IntVar(&c.numJobs, "num_jobs", 20, "how many jobs to submit")
	return r
}

func (c *demoCmd) run(cl *simpleCLIClient, cmd *cobra.Command, args []string) error {
	var configText []byte
	if c.configFile != "" {
		var err error
		configText, err = ioutil.ReadFile(c.configFile)
		if err != nil {
			return err
		}
	}

	sys, err := config.DefaultParser().Create(configText, &scheduler.LoggingListener{})
	if err != nil {
		return err
	}
	defer sys.Scheduler.Shutdown(true)
	log.Infof("Demo scheduler up, submitting %d jobs", c.numJobs)

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	ids := make([]string, 0, c.numJobs)
	for i := 0; i < c.numJobs; i++ {
		def := demoDef(rng)
		var id string
		submit := func() error {
			var err error
			id, err = sys.Scheduler.SubmitJob(def)
			if err == sched.ErrQueueFull {
				return err
			}
			if err != nil {
				return backoff.Permanent(err)
			}
			return nil
		}
		err := backoff.Retry(submit, backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5))
		if err != nil {
			return fmt.Errorf("Error submitting demo job %d: %v", i, err)
		}
		ids = append(ids, id)
	}

	counts := map[worker.RunState]int{}
	for _, id := range ids {
		st, err := sys.Scheduler.WaitForStatus(id, worker.DONE_MASK, worker.Wait{Timeout: time.Minute})
		if err != nil {
			return fmt.Errorf("Error waiting for job %s: %v", id, err)
		}
		counts[st.State]++
	}

	fmt.Printf("Ran %d jobs:\n", len(ids))
	for _, state := range []worker.RunState{
		worker.COMPLETE, worker.FAILED, worker.TIMEDOUT, worker.DENIED, worker.ABORTED,
	} {
		if counts[state] > 0 {
			fmt.Printf(" %v: %d\n", state, counts[state])
		}
	}
	return nil
}

// demoDef builds a short randomized job.
func demoDef(rng *rand.Rand) sched.JobDefinition {
	types := []monitor.JobType{
		monitor.JobTypeAnalysis,
		monitor.JobTypeInference,
		monitor.JobTypeNetwork,
		monitor.JobTypeIO,
		monitor.JobTypeDefault,
	}
	prios := []sched.Priority{sched.Critical, sched.High, sched.Normal, sched.Low}
	script := fmt.Sprintf("sleep %d", 10+rng.Intn(200))
	return sched.JobDefinition{
		Worker:   workers.NewSimWorker(script, "complete 0"),
		Type:     types[rng.Intn(len(types))],
		Priority: prios[rng.Intn(len(prios))],
	}
}
