package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

type healthCmd struct{}

func (c *healthCmd) registerFlags() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "check gantryd health",
	}
}

func (c *healthCmd) run(cl *simpleCLIClient, cmd *cobra.Command, args []string) error {
	body, err := cl.fetch("/health")
	if err != nil {
		return err
	}
	fmt.Printf("%s\n", body)
	return nil
}
