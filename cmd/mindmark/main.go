package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/MrSnakeDoc/mindmark/internal/version"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatalf("❌ mindmark failed: %v", err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "mindmark",
		Usage:   "summarize saved bookmarks with a local language model",
		Version: version.String(),
		Action:  serveAction,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the API server and the summarization queue",
				Action: serveAction,
			},
			{
				Name:   "availability",
				Usage:  "report whether the text and vision models can be used",
				Action: availabilityAction,
			},
			{
				Name:      "enqueue",
				Usage:     "append a bookmark to the summarization queue",
				ArgsUsage: "<id>",
				Action:    enqueueAction,
			},
			{
				Name:      "retry",
				Usage:     "requeue a failed bookmark whose content is still stored",
				ArgsUsage: "<id>",
				Action:    retryAction,
			},
		},
	}
}
