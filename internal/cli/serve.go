package cli

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/kinetic/pkg/engine"
	"github.com/matzehuels/kinetic/pkg/inspect"
	"github.com/matzehuels/kinetic/pkg/observability"
	"github.com/matzehuels/kinetic/pkg/pipeline"
)

// serveCommand creates the serve command: a real-time frame loop with the
// HTTP inspector attached.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		rankDir string
	)

	cmd := &cobra.Command{
		Use:   "serve [scene]",
		Short: "Run a scene in real time and inspect it over HTTP",
		Long: `Run a scene in real time and inspect it over HTTP.

The scene plays at its frame interval and keeps ticking after the script
ends until interrupted, so clocks keep running and commands posted to the
inspector take effect on the next frame.

Inspector endpoints:
  GET  /nodes        snapshot of every node
  GET  /nodes/{id}   one node
  GET  /graph.dot    Graphviz source with current values
  GET  /stats        graph statistics and counters
  POST /commands     JSON array of commands to enqueue`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeScenes,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), args[0], addr, rankDir)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", defaultInspectAddr, "inspector listen address")
	cmd.Flags().StringVar(&rankDir, "rankdir", "TB", "graph direction for /graph.dot")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, input, addr, rankDir string) error {
	s, err := c.loadScene(input)
	if err != nil {
		return err
	}

	counters := &observability.Counters{}
	observability.SetEngineHooks(counters)
	observability.SetHTTPHooks(counters)
	defer observability.Reset()

	e := engine.New(engine.Options{Host: logHost{logger: c.Logger}, Logger: c.Logger})
	srv := inspect.New(e, inspect.Options{Logger: c.Logger, Counters: counters, RankDir: rankDir})
	runner := pipeline.NewRunner(nil, nil, c.Logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := runner.Play(gctx, s, pipeline.PlayOptions{Realtime: true, Hold: true, Engine: e})
		return err
	})
	g.Go(func() error {
		return srv.ListenAndServe(gctx, addr, func(a net.Addr) {
			printSuccess("Serving %s", StyleHighlight.Render(s.Name))
			printKeyValue("inspector", "http://"+a.String())
			printKeyValue("frame", fmt.Sprintf("%.2f ms", s.FrameMs))
			printNewline()
			printNextStep("Graph", "curl http://"+a.String()+"/graph.dot")
		})
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		c.Logger.Info("stopped", "generation", e.Snapshot().Generation)
		return nil
	}
	return err
}
