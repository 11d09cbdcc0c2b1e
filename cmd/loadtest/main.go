// Command loadtest drives a running gomoku server with simulated players.
//
// Every player dials the websocket endpoint, waits for its start event,
// sends a fixed number of moves and reads the same number back from its
// opponent. Players are launched together, so pairing follows arrival order
// and a player's opponent is whoever the lobby matched it with.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/gomoku-server/game/lobby"
	"golang.org/x/sync/errgroup"
)

// boardSize bounds the coordinates of generated moves.
const boardSize = 15

var (
	errUnexpectedEvent = errors.New("unexpected event")
	errOutOfOrder      = errors.New("move out of order")
)

// Move is the payload players exchange. The server relays it verbatim.
type Move struct {
	Seq int `json:"seq"`
	X   int `json:"x"`
	Y   int `json:"y"`
}

// Result is the outcome for one simulated player.
type Result struct {
	Player    int
	SessionID string
	Role      lobby.Role
	PairWait  time.Duration
	Sent      int
	Received  int
	Err       error
}

// Report aggregates the results of a run.
type Report struct {
	Players     int
	Sessions    int
	Failed      int
	Sent        int
	Received    int
	AvgPairWait time.Duration
	MaxPairWait time.Duration
	Roles       map[lobby.Role]int
	Errors      []error
}

// Options configure a run.
type Options struct {
	URL     string
	Pairs   int
	Moves   int
	Timeout time.Duration
}

func main() {
	cmd := &cli.Command{
		Name:  "loadtest",
		Usage: "Simulate players against a gomoku server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "url",
				Value: "ws://localhost:8080/ws",
				Usage: "Websocket endpoint",
			},
			&cli.IntFlag{
				Name:  "pairs",
				Value: 10,
				Usage: "Number of player pairs",
			},
			&cli.IntFlag{
				Name:  "moves",
				Value: 10,
				Usage: "Moves each player sends",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Value: 30 * time.Second,
				Usage: "Overall deadline for the run",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Print every player result",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			report := Run(ctx, Options{
				URL:     cmd.String("url"),
				Pairs:   int(cmd.Int("pairs")),
				Moves:   int(cmd.Int("moves")),
				Timeout: cmd.Duration("timeout"),
			}, func(r Result) {
				if cmd.Bool("verbose") {
					printResult(r)
				}
			})

			printReport(report)
			if report.Failed > 0 {
				return fmt.Errorf("%d of %d players failed", report.Failed, report.Players)
			}
			return nil
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Run launches 2*Pairs players at once and waits for all of them. onResult,
// when not nil, is called as each player finishes.
func Run(ctx context.Context, opts Options, onResult func(Result)) *Report {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	var (
		mu      sync.Mutex
		results []Result
		eg      errgroup.Group
	)

	for i := 0; i < opts.Pairs*2; i++ {
		eg.Go(func() error {
			r := play(ctx, opts.URL, i, opts.Moves)

			mu.Lock()
			results = append(results, r)
			mu.Unlock()

			if onResult != nil {
				onResult(r)
			}
			return nil
		})
	}
	eg.Wait()

	return summarize(results)
}

func summarize(results []Result) *Report {
	report := &Report{
		Players: len(results),
		Roles:   make(map[lobby.Role]int),
	}

	sessions := make(map[string]bool)
	var totalWait time.Duration
	var paired int

	for _, r := range results {
		report.Sent += r.Sent
		report.Received += r.Received

		if r.SessionID != "" {
			sessions[r.SessionID] = true
			report.Roles[r.Role]++
			totalWait += r.PairWait
			paired++
			if r.PairWait > report.MaxPairWait {
				report.MaxPairWait = r.PairWait
			}
		}

		if r.Err != nil {
			report.Failed++
			report.Errors = append(report.Errors, fmt.Errorf("player %d: %w", r.Player, r.Err))
		}
	}

	report.Sessions = len(sessions)
	if paired > 0 {
		report.AvgPairWait = totalWait / time.Duration(paired)
	}
	return report
}

// play runs one player to completion. Errors are reported in the result.
func play(ctx context.Context, url string, player, moves int) Result {
	r := Result{Player: player}

	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		r.Err = fmt.Errorf("dial: %w", err)
		return r
	}
	defer conn.Close()

	// Unblock reads when the run deadline passes.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	waitStart := time.Now()
	ev, err := readEvent(conn)
	if err != nil {
		r.Err = fmt.Errorf("wait for start: %w", err)
		return r
	}
	if ev.Type != lobby.EventStart {
		r.Err = fmt.Errorf("%w: %s before start", errUnexpectedEvent, ev.Type)
		return r
	}
	r.PairWait = time.Since(waitStart)
	r.SessionID = ev.SessionID
	r.Role = ev.Role

	for seq := 0; seq < moves; seq++ {
		payload, err := json.Marshal(Move{Seq: seq, X: (player + seq) % boardSize, Y: seq % boardSize})
		if err != nil {
			r.Err = err
			return r
		}
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			r.Err = fmt.Errorf("send move %d: %w", seq, err)
			return r
		}
		r.Sent++
	}

	for r.Received < moves {
		_, data, err := conn.ReadMessage()
		if err != nil {
			r.Err = fmt.Errorf("read move %d: %w", r.Received, err)
			return r
		}

		if ev, ok := parseEvent(data); ok {
			r.Err = fmt.Errorf("%w: %s after %d of %d moves", errUnexpectedEvent, ev.Type, r.Received, moves)
			return r
		}

		var m Move
		if err := json.Unmarshal(data, &m); err != nil {
			r.Err = fmt.Errorf("decode move: %w", err)
			return r
		}
		if m.Seq != r.Received {
			r.Err = fmt.Errorf("%w: got %d, want %d", errOutOfOrder, m.Seq, r.Received)
			return r
		}
		r.Received++
	}

	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return r
}

// readEvent reads frames until a lifecycle event arrives.
func readEvent(conn *websocket.Conn) (lobby.Event, error) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return lobby.Event{}, err
		}
		if ev, ok := parseEvent(data); ok {
			return ev, nil
		}
	}
}

// parseEvent reports whether data is a lifecycle event rather than a
// relayed payload.
func parseEvent(data []byte) (lobby.Event, bool) {
	var ev lobby.Event
	if err := json.Unmarshal(data, &ev); err != nil || ev.Type == "" {
		return lobby.Event{}, false
	}
	return ev, true
}

func printResult(r Result) {
	if r.Err != nil {
		fmt.Printf("player %3d  FAILED  %v\n", r.Player, r.Err)
		return
	}
	fmt.Printf("player %3d  %-10s  session %s  waited %v  sent %d  received %d\n",
		r.Player, r.Role, r.SessionID, r.PairWait.Round(time.Microsecond), r.Sent, r.Received)
}

func printReport(report *Report) {
	fmt.Printf("\n=== Load test ===\n")
	fmt.Printf("Players:        %d\n", report.Players)
	fmt.Printf("Sessions:       %d\n", report.Sessions)
	fmt.Printf("Failed:         %d\n", report.Failed)
	fmt.Printf("Moves sent:     %d\n", report.Sent)
	fmt.Printf("Moves received: %d\n", report.Received)
	fmt.Printf("Pair wait:      avg %v, max %v\n",
		report.AvgPairWait.Round(time.Microsecond), report.MaxPairWait.Round(time.Microsecond))

	roles := make([]lobby.Role, 0, len(report.Roles))
	for role := range report.Roles {
		roles = append(roles, role)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })
	for _, role := range roles {
		fmt.Printf("  %-10s    %d\n", role, report.Roles[role])
	}

	for _, err := range report.Errors {
		fmt.Printf("  error: %v\n", err)
	}
}
