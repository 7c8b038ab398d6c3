package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/craftandculture/Craft-Culture-sub006/internal/scanner/client"
	"github.com/craftandculture/Craft-Culture-sub006/internal/scanner/health"
	"github.com/craftandculture/Craft-Culture-sub006/internal/scanner/transport"
	"github.com/craftandculture/Craft-Culture-sub006/internal/scanner/workflow"
	"github.com/craftandculture/Craft-Culture-sub006/internal/wms/service"
	"github.com/craftandculture/Craft-Culture-sub006/pkg/actor"
	"github.com/craftandculture/Craft-Culture-sub006/pkg/config"
	"github.com/craftandculture/Craft-Culture-sub006/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
)

type contextKey string

const appKey contextKey = "scanner"

// app is the wiring shared by every command
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	monitor *health.Monitor
	client  *client.Client
}

func fromContext(c *cli.Context) *app {
	return c.Context.Value(appKey).(*app)
}

func setup(c *cli.Context) error {
	cfg, err := config.LoadScanner()
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	log := logger.NewWithWriter("wms-scanner", zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		SetLevel(cfg.Server.LogLevel)

	operator := &actor.Actor{ID: cfg.Scanner.OperatorID, Name: cfg.Scanner.OperatorName}
	if id := c.String("operator"); id != "" {
		operator = &actor.Actor{ID: id}
	}
	if operator.ID == "" {
		return fmt.Errorf("operator id required: set WMS_SCANNER_OPERATOR_ID or --operator")
	}

	monitor := health.NewMonitor(cfg.Edge, log)
	local := func(baseURL string) transport.Transport {
		return transport.NewLocalTransport(baseURL, &http.Client{Timeout: cfg.Edge.RequestTimeout})
	}
	cloud := transport.NewCloudTransport(cfg.Cloud.URL, &http.Client{Timeout: cfg.Cloud.RequestTimeout})

	a := &app{
		cfg:     cfg,
		log:     log,
		monitor: monitor,
		client:  client.New(transport.NewSelectingTransport(monitor, local, cloud, log)),
	}

	ctx := actor.WithActor(c.Context, operator)
	// One-shot commands pick the backend from a single probe
	if c.Args().Present() && c.Args().First() != "watch" {
		monitor.Check(ctx)
	}
	c.Context = context.WithValue(ctx, appKey, a)
	return nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func requireArgs(c *cli.Context, n int, usage string) error {
	if c.NArg() != n {
		return cli.Exit("usage: wms-scanner "+c.Command.Name+" "+usage, 2)
	}
	return nil
}

func main() {
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "warning: could not load .env file: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cliApp := &cli.App{
		Name:  "wms-scanner",
		Usage: "Warehouse handheld: scans and moves stock through the edge server or the cloud",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "operator",
				Usage:   "Operator ID attached to every request",
				EnvVars: []string{"WMS_OPERATOR"},
			},
		},
		Before: setup,
		Commands: []*cli.Command{
			{
				Name:   "status",
				Usage:  "Probe the edge server and show which backend is in use",
				Action: statusCmd,
			},
			{
				Name:   "watch",
				Usage:  "Keep probing the edge server and log backend changes",
				Action: watchCmd,
			},
			{
				Name:      "scan-location",
				Usage:     "Show a location and the stock it holds",
				ArgsUsage: "<LOC-barcode>",
				Action:    scanLocationCmd,
			},
			{
				Name:      "scan-case",
				Usage:     "Resolve a case label or LWIN18",
				ArgsUsage: "<barcode>",
				Action:    scanCaseCmd,
			},
			{
				Name:      "putaway",
				Usage:     "Put a received case lot away: scan case, scan location, confirm",
				ArgsUsage: "<case-barcode> <LOC-barcode>",
				Action:    putawayCmd,
			},
			{
				Name:      "transfer",
				Usage:     "Move cases of a stock record to another location",
				ArgsUsage: "<stock-id> <cases> <to-location-id>",
				Action:    transferCmd,
			},
			{
				Name:      "pick-item",
				Usage:     "Confirm a pick instruction",
				ArgsUsage: "<item-id> <from-location-id> <cases>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "short", Usage: "Confirm fewer cases than suggested"},
				},
				Action: pickItemCmd,
			},
			{
				Name:      "pick-complete",
				Usage:     "Complete a pick list once every item is picked",
				ArgsUsage: "<pick-list-id>",
				Action:    pickCompleteCmd,
			},
			{
				Name:      "pick-list",
				Usage:     "Show a pick list and its items",
				ArgsUsage: "<pick-list-id>",
				Action:    pickListCmd,
			},
			{
				Name:  "pick-lists",
				Usage: "List pick lists",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "status", Usage: "pending, in_progress, completed or cancelled"},
				},
				Action: pickListsCmd,
			},
			{
				Name:      "receive",
				Usage:     "Receive a shipment: each --line is LWIN18:OWNER:EXPECTED:RECEIVED",
				ArgsUsage: "<shipment-id> <receiving-location-id>",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{Name: "line", Usage: "LWIN18:OWNER:EXPECTED:RECEIVED", Required: true},
				},
				Action: receiveCmd,
			},
		},
	}

	if err := cliApp.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func statusCmd(c *cli.Context) error {
	a := fromContext(c)
	return printJSON(a.monitor.Check(c.Context))
}

func watchCmd(c *cli.Context) error {
	a := fromContext(c)
	a.monitor.Start(c.Context)
	defer a.monitor.Stop()
	<-c.Context.Done()
	return printJSON(a.monitor.Status())
}

func scanLocationCmd(c *cli.Context) error {
	if err := requireArgs(c, 1, "<LOC-barcode>"); err != nil {
		return err
	}
	res, err := fromContext(c).client.ScanLocation(c.Context, c.Args().Get(0))
	if err != nil {
		return err
	}
	return printJSON(res)
}

func scanCaseCmd(c *cli.Context) error {
	if err := requireArgs(c, 1, "<barcode>"); err != nil {
		return err
	}
	res, err := fromContext(c).client.ScanCase(c.Context, c.Args().Get(0))
	if err != nil {
		return err
	}
	return printJSON(res)
}

func putawayCmd(c *cli.Context) error {
	if err := requireArgs(c, 2, "<case-barcode> <LOC-barcode>"); err != nil {
		return err
	}
	flow := workflow.NewPutaway(fromContext(c).client)
	if err := flow.ScanCase(c.Context, c.Args().Get(0)); err != nil {
		return err
	}
	if err := flow.ScanLocation(c.Context, c.Args().Get(1)); err != nil {
		return err
	}
	if err := flow.Confirm(c.Context); err != nil {
		return err
	}
	return printJSON(flow.State().(workflow.SuccessStep).Result)
}

func transferCmd(c *cli.Context) error {
	if err := requireArgs(c, 3, "<stock-id> <cases> <to-location-id>"); err != nil {
		return err
	}
	cases, err := strconv.Atoi(c.Args().Get(1))
	if err != nil {
		return cli.Exit("cases must be a number", 2)
	}
	res, err := fromContext(c).client.Transfer(c.Context, service.TransferRequest{
		StockID:       c.Args().Get(0),
		QuantityCases: cases,
		ToLocationID:  c.Args().Get(2),
	})
	if err != nil {
		return err
	}
	return printJSON(res)
}

func pickItemCmd(c *cli.Context) error {
	if err := requireArgs(c, 3, "<item-id> <from-location-id> <cases>"); err != nil {
		return err
	}
	cases, err := strconv.Atoi(c.Args().Get(2))
	if err != nil {
		return cli.Exit("cases must be a number", 2)
	}
	res, err := fromContext(c).client.PickItem(c.Context, service.PickRequest{
		ItemID:               c.Args().Get(0),
		PickedFromLocationID: c.Args().Get(1),
		PickedQuantity:       cases,
		Short:                c.Bool("short"),
	})
	if err != nil {
		return err
	}
	return printJSON(res)
}

func pickCompleteCmd(c *cli.Context) error {
	if err := requireArgs(c, 1, "<pick-list-id>"); err != nil {
		return err
	}
	res, err := fromContext(c).client.CompletePickList(c.Context, c.Args().Get(0))
	if err != nil {
		return err
	}
	return printJSON(res)
}

func pickListCmd(c *cli.Context) error {
	if err := requireArgs(c, 1, "<pick-list-id>"); err != nil {
		return err
	}
	res, err := fromContext(c).client.GetPickList(c.Context, c.Args().Get(0))
	if err != nil {
		return err
	}
	return printJSON(res)
}

func pickListsCmd(c *cli.Context) error {
	res, err := fromContext(c).client.ListPickLists(c.Context, c.String("status"))
	if err != nil {
		return err
	}
	return printJSON(res)
}

func receiveCmd(c *cli.Context) error {
	if err := requireArgs(c, 2, "<shipment-id> <receiving-location-id>"); err != nil {
		return err
	}

	shipment := workflow.Shipment{ID: c.Args().Get(0)}
	counts := map[string]int{}
	for _, raw := range c.StringSlice("line") {
		parts := strings.Split(raw, ":")
		if len(parts) != 4 {
			return cli.Exit("line must be LWIN18:OWNER:EXPECTED:RECEIVED, got "+raw, 2)
		}
		expected, err1 := strconv.Atoi(parts[2])
		received, err2 := strconv.Atoi(parts[3])
		if err1 != nil || err2 != nil {
			return cli.Exit("expected and received must be numbers in "+raw, 2)
		}
		shipment.Items = append(shipment.Items, workflow.ExpectedItem{
			LWIN18:        parts[0],
			OwnerID:       parts[1],
			ExpectedCases: expected,
		})
		counts[parts[0]] = received
	}

	session := workflow.NewReceiving(fromContext(c).client)
	if err := session.Start(shipment); err != nil {
		return err
	}
	for code, received := range counts {
		if err := session.Record(code, received); err != nil {
			return err
		}
	}
	for _, line := range session.Lines() {
		if v := line.Variance(); v != 0 {
			fromContext(c).log.Warn().Str("lwin18", line.LWIN18).Int("variance", v).Msg("received quantity differs from manifest")
		}
	}

	res, err := session.Submit(c.Context, c.Args().Get(1))
	if err != nil {
		return err
	}
	return printJSON(res)
}
