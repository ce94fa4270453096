// marginctl is the terminal companion to the strategy API: it fetches an
// analysis over HTTP and renders it as text or JSON.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "marginctl",
		Usage: "fetch vendor negotiation strategies from the terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "api-url",
				Usage:   "base URL of the strategy API",
				Value:   "http://localhost:8080",
				EnvVars: []string{"MARGINMIND_API_URL"},
			},
			&cli.StringFlag{
				Name:    "api-key",
				Usage:   "API key sent in the X-API-Key header",
				EnvVars: []string{"MARGINMIND_API_KEY"},
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "output format: text or json",
				Value:   "text",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "analyze",
				Usage:     "fetch the negotiation strategy for a service",
				ArgsUsage: "<service-id>",
				Action:    runAnalyze,
			},
			{
				Name:      "renewal",
				Usage:     "fetch the renewal analysis for a service",
				ArgsUsage: "<service-id>",
				Action:    runRenewal,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func setup(c *cli.Context) (*apiClient, string, error) {
	serviceID := c.Args().First()
	if serviceID == "" {
		return nil, "", fmt.Errorf("service ID is required")
	}
	return newAPIClient(c.String("api-url"), c.String("api-key")), serviceID, nil
}

func runAnalyze(c *cli.Context) error {
	client, serviceID, err := setup(c)
	if err != nil {
		return err
	}

	resp, err := client.Strategies(c.Context, serviceID)
	if err != nil {
		return err
	}

	if c.String("output") == "json" {
		return printJSON(resp)
	}
	printStrategy(resp)
	return nil
}

func runRenewal(c *cli.Context) error {
	client, serviceID, err := setup(c)
	if err != nil {
		return err
	}

	resp, err := client.Renewal(c.Context, serviceID)
	if err != nil {
		return err
	}

	if c.String("output") == "json" {
		return printJSON(resp)
	}
	printRenewal(resp)
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
