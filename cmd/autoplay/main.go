// Command autoplay plays cubesweeper sessions over the REST API using the
// solver's deductions, guessing only when no safe move is known.
package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/mcp-training/cubesweeper/internal/logger"
)

const sessionFile = ".session"

// remoteGame adapts Client to the Player's Game interface
type remoteGame struct {
	*Client
}

func (g remoteGame) Act(ctx context.Context, action string, index int) (*ActionOutcome, error) {
	resp, err := g.Client.Act(ctx, action, index)
	if err != nil {
		return nil, err
	}
	return &ActionOutcome{Success: resp.Success, Reason: resp.Reason, State: resp.GameState}, nil
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "autoplay",
		Usage: "play cubesweeper sessions with the built-in solver",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:8080", Usage: "game server URL", Sources: cli.EnvVars("CUBESWEEPER_URL")},
			&cli.StringFlag{Name: "config", Usage: "preset ID (beginner-3d, expert-2d, ...)"},
			&cli.StringFlag{Name: "continue", Usage: "resume an existing session by ID"},
			&cli.IntFlag{Name: "max-moves", Value: 5000, Usage: "maximum moves per attempt"},
			&cli.IntFlag{Name: "attempts", Value: 20, Usage: "maximum attempts before giving up"},
			&cli.IntFlag{Name: "seed", Value: 1, Usage: "seed for the solver's guesses"},
			&cli.DurationFlag{Name: "delay", Usage: "pause between moves"},
			&cli.StringFlag{Name: "log-level", Value: "info", Usage: "log level", Sources: cli.EnvVars("LOG_LEVEL")},
		},
		Action: run,
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	log, err := logger.New(cmd.String("log-level"), false)
	if err != nil {
		return err
	}

	client := NewClient(cmd.String("url"))
	log.WithField("url", cmd.String("url")).Info("connecting to game server")

	if err := openSession(ctx, client, cmd.String("continue"), cmd.String("config"), log); err != nil {
		return err
	}

	player := NewPlayer(remoteGame{client},
		uint64(cmd.Int("seed")),
		int(cmd.Int("max-moves")),
		cmd.Duration("delay"),
		log.WithField("session", client.SessionID()))

	start := time.Now()
	res, attempts, err := player.PlayUntilWin(ctx, int(cmd.Int("attempts")))
	if err != nil {
		return err
	}

	entry := log.WithFields(logrus.Fields{
		"session":  client.SessionID(),
		"attempts": attempts,
		"moves":    res.Moves,
		"guesses":  res.Guesses,
		"duration": time.Since(start).Round(time.Millisecond),
	})
	if !res.Won {
		entry.Warn("failed to win")
		return cli.Exit(fmt.Sprintf("no victory after %d attempts", attempts), 1)
	}
	entry.Info("victory")
	return nil
}

// openSession resumes the requested or saved session, creating a new one
// when there is none or it has expired.
func openSession(ctx context.Context, client *Client, resume, configID string, log logrus.FieldLogger) error {
	if resume == "" {
		if data, err := os.ReadFile(sessionFile); err == nil {
			resume = string(bytes.TrimSpace(data))
		}
	}

	if resume != "" {
		state, err := client.Resume(ctx, resume)
		if err == nil {
			log.WithFields(logrus.Fields{
				"session": resume,
				"grid":    fmt.Sprintf("%dx%dx%d", state.Width, state.Height, state.Depth),
				"mines":   state.MineCount,
			}).Info("session resumed")
			return nil
		}
		log.WithError(err).Warn("failed to resume session, creating a new one")
	}

	state, err := client.CreateSession(ctx, configID)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"session": client.SessionID(),
		"config":  state.ConfigName,
		"grid":    fmt.Sprintf("%dx%dx%d", state.Width, state.Height, state.Depth),
		"mines":   state.MineCount,
	}).Info("session created")

	if err := os.WriteFile(sessionFile, []byte(client.SessionID()), 0644); err != nil {
		log.WithError(err).Warn("failed to save session ID")
	}
	return nil
}
