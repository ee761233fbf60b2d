// Command neighborhood runs the neighborhood-intelligence tool server
// or a one-shot evaluation from the command line.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/neighborhood/chat"
	"github.com/effective-security/neighborhood/config"
	"github.com/effective-security/neighborhood/mcp"
	"github.com/effective-security/neighborhood/mcp/transport"
	"github.com/effective-security/neighborhood/mcp/transport/httptransport"
	"github.com/effective-security/neighborhood/mcp/transport/stdio"
	"github.com/effective-security/neighborhood/tools"
	"github.com/effective-security/neighborhood/tools/airquality"
	"github.com/effective-security/neighborhood/tools/amenities"
	"github.com/effective-security/neighborhood/tools/commute"
	"github.com/effective-security/neighborhood/tools/crime"
	"github.com/effective-security/neighborhood/tools/demographics"
	"github.com/effective-security/neighborhood/tools/evaluate"
	"github.com/effective-security/neighborhood/tools/geocode"
	"github.com/effective-security/neighborhood/tools/housing"
	"github.com/effective-security/neighborhood/tools/walkability"
	"github.com/effective-security/neighborhood/tools/weather"
	"github.com/effective-security/neighborhood/utils"
	"github.com/effective-security/xlog"
	"github.com/spf13/cobra"
)

var version = "dev"

var (
	cfgFile       string
	debug         bool
	transportName string
	addr          string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "neighborhood",
		Short: "neighborhood livability data and AI evaluation",
		Long: `
neighborhood aggregates public geo, civic and real-estate data for an
address and exposes it as directly callable tools behind a JSON-RPC
tool server, with an optional AI livability evaluation.
`,
		Version: version,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			// stdout carries protocol or report output; logs go to stderr
			xlog.SetFormatter(xlog.NewStringFormatter(os.Stderr))
			level := xlog.INFO
			if debug {
				level = xlog.DEBUG
			}
			xlog.SetGlobalLogLevel(level)
		},
	}
	rootCmd.PersistentFlags().StringVar(&cfgFile, "cfg", "", "configuration file (yaml or json)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the JSON-RPC tool server",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	serveCmd.Flags().StringVar(&transportName, "transport", "stdio", "transport to serve on: stdio or http")
	serveCmd.Flags().StringVar(&addr, "addr", ":8080", "listen address for the http transport")

	evaluateCmd := &cobra.Command{
		Use:   "evaluate <address>",
		Short: "Evaluate one address and print the report JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  runEvaluate,
	}
	evaluateCmd.Flags().String("goals", "", "what to optimize the evaluation for")

	rootCmd.AddCommand(serveCmd, evaluateCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// buildTools constructs every domain tool from the configuration.
func buildTools(cfg *config.Config) (*evaluate.Tool, []tools.ITool) {
	geo := geocode.New()
	weatherTool := weather.New()
	airTool := airquality.New(cfg.Keys.AirQuality)
	housingTool := housing.New(cfg.Keys.RapidAPI, cfg.Keys.Attom, geo)
	walkTool := walkability.New(cfg.Keys.WalkScore, cfg.Keys.GoogleMaps)
	crimeTool := crime.New(cfg.Keys.RapidAPI)
	amenitiesTool := amenities.New(cfg.Keys.GoogleMaps)
	demographicsTool := demographics.New()
	commuteTool := commute.New(cfg.Keys.GoogleMaps)

	var completer evaluate.Completer
	if c := chat.New(&cfg.LLM); c != nil {
		completer = c
	}

	evaluateTool := evaluate.New(evaluate.Providers{
		Geocode:      geo,
		Weather:      weatherTool,
		AirQuality:   airTool,
		Housing:      housingTool,
		Walkability:  walkTool,
		Crime:        crimeTool,
		Amenities:    amenitiesTool,
		Demographics: demographicsTool,
		Commute:      commuteTool,
	}, completer)

	return evaluateTool, []tools.ITool{
		geo, weatherTool, airTool, housingTool, walkTool,
		crimeTool, amenitiesTool, demographicsTool, commuteTool, evaluateTool,
	}
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	var tr transport.Transport
	switch transportName {
	case "stdio":
		tr = stdio.New()
	case "http":
		tr = httptransport.New("/rpc").WithAddr(addr)
	default:
		return errors.Errorf("unsupported transport: %s", transportName)
	}

	server := mcp.NewServer(tr).WithInfo("neighborhood-intelligence", version)
	_, all := buildTools(cfg)
	for _, tool := range all {
		if err := server.RegisterTool(tool); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		_ = server.Close()
	}()

	return server.Serve(ctx)
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	goals, _ := cmd.Flags().GetString("goals")

	evaluateTool, _ := buildTools(cfg)
	report, err := evaluateTool.Run(cmd.Context(), &evaluate.Request{
		Address: args[0],
		Goals:   goals,
	})
	if err != nil {
		return err
	}
	fmt.Println(utils.ToJSONIndent(report))
	return nil
}
