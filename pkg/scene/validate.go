package scene

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/hashicorp/go-multierror"

	"github.com/matzehuels/kinetic/pkg/bridge"
	"github.com/matzehuels/kinetic/pkg/engine"
	"github.com/matzehuels/kinetic/pkg/errors"
)

// Validate checks the scene without playing it: script frames must lie within
// the scene and every command must apply cleanly when replayed against a
// fresh graph. All problems are reported together.
func (s *Scene) Validate() error {
	var result *multierror.Error
	for i, st := range s.Script {
		if st.Frame < 0 || st.Frame >= s.Frames {
			result = multierror.Append(result, fmt.Errorf("script[%d]: frame %d outside [0, %d)", i, st.Frame, s.Frames))
		}
	}

	setup, err := s.Setup()
	if err != nil {
		result = multierror.Append(result, err)
	} else {
		result = multierror.Append(result, s.dryRun(setup))
	}

	if err := result.ErrorOrNil(); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidScene, err, "scene %q has %d problem(s)", s.Name, len(result.Errors))
	}
	return nil
}

// dryRun replays setup and the script against a fresh engine.
func (s *Scene) dryRun(setup []bridge.Command) *multierror.Error {
	var result *multierror.Error
	e := engine.New(engine.Options{Host: bridge.NopHost{}, Logger: log.New(io.Discard)})
	ctx := context.Background()
	if err := e.ApplyBatch(ctx, setup); err != nil {
		result = multierror.Append(result, fmt.Errorf("setup: %w", err))
	}
	for _, frame := range s.ScriptFrames() {
		e.Tick(s.FrameTimestamp(frame))
		cmds, err := s.ScriptAt(frame)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		if err := e.ApplyBatch(ctx, cmds); err != nil {
			result = multierror.Append(result, fmt.Errorf("frame %d: %w", frame, err))
		}
	}

	return result
}
