package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	zipgraph "github.com/dargueta/zipgraph"
	"github.com/dargueta/zipgraph/graphio"
)

var log = logrus.New()

func main() {
	app := cli.App{
		Usage: "Compress, inspect, and decompress large directed graphs",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "enable debug logging",
			},
		},
		Before: func(ctx *cli.Context) error {
			if ctx.Bool("verbose") {
				log.SetLevel(logrus.DebugLevel)
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "compress",
				Usage:     "Compress an arc-list or CSV edge list into a graph file",
				Action:    compressGraph,
				ArgsUsage: "INPUT_FILE  OUTPUT_FILE",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "properties",
						Usage: "load coder settings from a .properties file",
					},
					&cli.UintFlag{Name: "window", Usage: "reference window size", Value: 7},
					&cli.UintFlag{Name: "max-ref-chain", Usage: "reference chain bound", Value: 3},
					&cli.UintFlag{Name: "min-interval", Usage: "minimum interval length", Value: 4},
					&cli.IntFlag{Name: "workers", Usage: "parallel encode workers (0 = one per CPU)"},
					&cli.BoolFlag{Name: "csv", Usage: "treat the input as a CSV edge list"},
				},
			},
			{
				Name:      "decompress",
				Usage:     "Expand a graph file back into a plain arc list",
				Action:    decompressGraph,
				ArgsUsage: "GRAPH_FILE  OUTPUT_FILE",
			},
			{
				Name:      "successors",
				Usage:     "Print one node's outdegree and successors",
				Action:    querySuccessors,
				ArgsUsage: "GRAPH_FILE  NODE_ID",
			},
			{
				Name:      "stats",
				Usage:     "Print summary statistics for a graph file",
				Action:    printStats,
				ArgsUsage: "GRAPH_FILE",
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("fatal error: %s", err.Error())
	}
}

func loadConfig(ctx *cli.Context) (zipgraph.Config, error) {
	if path := ctx.String("properties"); path != "" {
		return zipgraph.LoadProperties(path)
	}
	cfg := zipgraph.DefaultConfig()
	cfg.WindowSize = uint32(ctx.Uint("window"))
	cfg.MaxRefChain = uint32(ctx.Uint("max-ref-chain"))
	cfg.MinIntervalLength = uint32(ctx.Uint("min-interval"))
	if cfg.WindowSize == 0 {
		cfg.MaxRefChain = 0
	}
	return cfg, cfg.Validate()
}

func compressGraph(ctx *cli.Context) error {
	if ctx.NArg() != 2 {
		return cli.Exit("expected INPUT_FILE and OUTPUT_FILE arguments", 2)
	}
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	input, err := os.Open(ctx.Args().Get(0))
	if err != nil {
		return err
	}
	defer input.Close()

	var source *graphio.AdjacencyGraph
	if ctx.Bool("csv") || strings.HasSuffix(ctx.Args().Get(0), ".csv") {
		source, err = graphio.ReadCSV(input)
	} else {
		source, err = graphio.ReadArcList(input)
	}
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"nodes": source.NodeCount(),
		"arcs":  source.ArcCount(),
	}).Info("input graph loaded")

	graph, err := zipgraph.Compress(ctx.Context, source, cfg, &zipgraph.CompressorOptions{
		Workers: ctx.Int("workers"),
		Logger:  log,
	})
	if err != nil {
		return err
	}
	return graph.Save(ctx.Args().Get(1))
}

func decompressGraph(ctx *cli.Context) error {
	if ctx.NArg() != 2 {
		return cli.Exit("expected GRAPH_FILE and OUTPUT_FILE arguments", 2)
	}
	graph, err := zipgraph.Open(ctx.Args().Get(0))
	if err != nil {
		return err
	}
	defer graph.Close()

	output, err := os.Create(ctx.Args().Get(1))
	if err != nil {
		return err
	}
	defer output.Close()
	return graphio.WriteArcList(output, graph)
}

func querySuccessors(ctx *cli.Context) error {
	if ctx.NArg() != 2 {
		return cli.Exit("expected GRAPH_FILE and NODE_ID arguments", 2)
	}
	graph, err := zipgraph.Open(ctx.Args().Get(0))
	if err != nil {
		return err
	}
	defer graph.Close()

	var node uint64
	if _, err := fmt.Sscanf(ctx.Args().Get(1), "%d", &node); err != nil {
		return cli.Exit(fmt.Sprintf("bad node id %q", ctx.Args().Get(1)), 2)
	}
	succ, err := graph.Successors(node)
	if err != nil {
		return err
	}
	fmt.Printf("node %d: outdegree %d\n", node, len(succ))
	for _, dst := range succ {
		fmt.Println(dst)
	}
	return nil
}

func printStats(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return cli.Exit("expected a GRAPH_FILE argument", 2)
	}
	graph, err := zipgraph.Open(ctx.Args().Get(0))
	if err != nil {
		return err
	}
	defer graph.Close()

	var maxDegree, emptyNodes uint64
	scanner := graph.Degrees()
	for scanner.HasNext() {
		degree, err := scanner.Next()
		if err != nil {
			return err
		}
		if degree > maxDegree {
			maxDegree = degree
		}
		if degree == 0 {
			emptyNodes++
		}
	}

	cfg := graph.Config()
	fmt.Printf("nodes:             %d\n", graph.NodeCount())
	fmt.Printf("arcs:              %d\n", graph.ArcCount())
	fmt.Printf("max outdegree:     %d\n", maxDegree)
	fmt.Printf("nodes w/o arcs:    %d\n", emptyNodes)
	fmt.Printf("window size:       %d\n", cfg.WindowSize)
	fmt.Printf("max ref chain:     %d\n", cfg.MaxRefChain)
	fmt.Printf("min interval:      %d\n", cfg.MinIntervalLength)
	if graph.NodeCount() > 0 {
		bitsPerArc := float64(0)
		if graph.ArcCount() > 0 {
			bitsPerArc = float64(scanner.Pos()) / float64(graph.ArcCount())
		}
		fmt.Printf("bits per arc:      %.2f\n", bitsPerArc)
	}
	return nil
}
