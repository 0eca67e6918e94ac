package cli

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

type jobsCmd struct {
	jobID string
}

func (c *jobsCmd) registerFlags() *cobra.Command {
	r := &cobra.Command{
		Use:   "jobs",
		Short: "list job statuses",
	}
	r.Flags().StringVar(&c.jobID, "id", "", "show only this job")
	return r
}

func (c *jobsCmd) run(cl *simpleCLIClient, cmd *cobra.Command, args []string) error {
	path := "/jobs"
	if c.jobID != "" {
		path = "/jobs?id=" + url.QueryEscape(c.jobID)
	}
	body, err := cl.fetch(path)
	if err != nil {
		return err
	}
	fmt.Printf("%s", body)
	return nil
}
