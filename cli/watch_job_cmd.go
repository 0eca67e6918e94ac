package cli

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

const jobPollInterval time.Duration = 3 * time.Second

type watchJobCmd struct{}

func (c *watchJobCmd) registerFlags() *cobra.Command {
	return &cobra.Command{
		Use:   "watch_job",
		Short: "watch a job until it finishes",
	}
}

func (c *watchJobCmd) run(cl *simpleCLIClient, cmd *cobra.Command, args []string) error {
	if args == nil || len(args) == 0 {
		return errors.New("a job id must be provided")
	}
	jobID := args[0]

	for {
		body, err := cl.fetch("/jobs?id=" + url.QueryEscape(jobID))
		if err != nil {
			return err
		}
		line := strings.TrimSpace(string(body))
		fmt.Println(line)

		// The finished flag is the single reliable "fully done" signal.
		if strings.Contains(line, "# Finished") {
			return nil
		}
		time.Sleep(jobPollInterval)
	}
}
