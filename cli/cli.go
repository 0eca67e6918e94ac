// Package cli implements gantryctl, a command-line client to gantryd.
package cli

import (
	"fmt"
	"io/ioutil"
	"net/http"

	"github.com/sethgrid/pester"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const defaultAdminAddr = "localhost:9091"

// Gantry client interface that includes CLI handling
type CLIClient interface {
	Exec() error
}

// Implements CLIClient - basic
type simpleCLIClient struct {
	rootCmd *cobra.Command

	addr   string
	client *pester.Client
}

func (c *simpleCLIClient) Exec() error {
	return c.rootCmd.Execute()
}

func NewSimpleCLIClient() (CLIClient, error) {
	c := &simpleCLIClient{}
	// c.addr is populated by flag

	c.rootCmd = &cobra.Command{
		Use:   "gantryctl",
		Short: "gantryctl is a command-line client to gantryd",
		Run:   func(*cobra.Command, []string) {},
	}

	c.addCmd(&healthCmd{})
	c.addCmd(&statsCmd{})
	c.addCmd(&jobsCmd{})
	c.addCmd(&watchJobCmd{})
	c.addCmd(&demoCmd{})

	return c, nil
}

// httpClient is built lazily so flag values have been parsed by then.
func (c *simpleCLIClient) httpClient() *pester.Client {
	if c.client == nil {
		c.client = pester.New()
		c.client.Backoff = pester.ExponentialBackoff
		c.client.MaxRetries = 4
		c.client.LogHook = func(e pester.ErrEntry) {
			log.Errorf("Retrying after failed attempt: %+v", e)
		}
	}
	return c.client
}

// fetch GETs path from the admin server and returns the response body.
func (c *simpleCLIClient) fetch(path string) ([]byte, error) {
	if c.addr == "" {
		c.addr = defaultAdminAddr
	}
	uri := fmt.Sprintf("http://%s%s", c.addr, path)
	resp, err := c.httpClient().Get(uri)
	if err != nil {
		return nil, fmt.Errorf("Error fetching %s: %v", uri, err)
	}
	defer resp.Body.Close()
	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Error fetching %s: %s: %s", uri, resp.Status, body)
	}
	return body, nil
}

func (c *simpleCLIClient) addCmd(cmd command) {
	cobraCmd := cmd.registerFlags()
	cobraCmd.Flags().StringVar(&c.addr, "addr", "", "gantryd admin address")
	cobraCmd.RunE = func(innerCmd *cobra.Command, args []string) error {
		return cmd.run(c, innerCmd, args)
	}
	c.rootCmd.AddCommand(cobraCmd)
}

type command interface {
	registerFlags() *cobra.Command
	run(cl *simpleCLIClient, cmd *cobra.Command, args []string) error
}
