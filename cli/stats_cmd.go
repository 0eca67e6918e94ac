package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

type statsCmd struct {
	pretty bool
}

func (c *statsCmd) registerFlags() *cobra.Command {
	r := &cobra.Command{
		Use:   "stats",
		Short: "dump gantryd stats",
	}
	r.Flags().BoolVar(&c.pretty, "pretty", true, "indent the stats JSON")
	return r
}

func (c *statsCmd) run(cl *simpleCLIClient, cmd *cobra.Command, args []string) error {
	path := "/admin/metrics.json"
	if c.pretty {
		path += "?pretty=true"
	}
	body, err := cl.fetch(path)
	if err != nil {
		return err
	}
	fmt.Printf("%s\n", body)
	return nil
}
