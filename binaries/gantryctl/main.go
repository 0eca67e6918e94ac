package main

import (
	log "github.com/sirupsen/logrus"

	"github.com/gantrylabs/gantry/cli"
	"github.com/gantrylabs/gantry/common/log/hooks"
)

// CLI binary to talk to a gantryd admin server
//	Supported commands: (see "-h" for all options)
//		health
//		stats
//		jobs [--id <job id>]
//		watch_job [job id]
//		demo [--num_jobs N] [--config <file>]
//	Global flags:
//		--addr [<host:port> of the admin server]

func main() {
	log.AddHook(hooks.NewContextHook())

	cl, err := cli.NewSimpleCLIClient()
	if err != nil {
		log.Fatal("Failed to create new Gantry CLI client: ", err)
	}

	err = cl.Exec()
	if err != nil {
		log.Fatal("Error running gantryctl ", err)
	}
}
