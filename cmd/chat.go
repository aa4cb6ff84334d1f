package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/gregriff/huddle/configs"
	"github.com/gregriff/huddle/internal/app"
	"github.com/gregriff/huddle/internal/netw"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat [room-code]",
	Short: "Connect to a room and chat",
	Long: `Arguments:
      room-code    The code of a room you have joined (required)

Each line typed is sent as a chat message. Commands:
      /speech <text>            make an in-game statement
      /action <name> [json]     send a game action, e.g. /action vote {"target": 3}
      /status                   ask for the game status
      /quit                     leave
	`,
	Args: cobra.ExactArgs(1),
	RunE: chat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

var errQuit = errors.New("quit")

func chat(cmd *cobra.Command, args []string) error {
	roomCode := strings.ToUpper(args[0])
	out := cmd.OutOrStdout()

	return app.Run(cmd.Context(), configs.AppConfig(), func(ctx context.Context, a *app.App) error {
		if !a.Session.IsAuthenticated() {
			return app.ErrNotAuthenticated
		}
		room := a.Rooms.GetRoom(ctx, roomCode)
		if room == nil {
			return fmt.Errorf("room %s could not be fetched", roomCode)
		}

		a.Rooms.OnMessage(func(msg netw.Inbound) {
			fmt.Fprintln(out, formatInbound(msg))
		})
		a.Rooms.OnStateChange(func(s netw.State) {
			fmt.Fprintln(out, color.HiBlackString("-- %s", s))
		})
		conn, err := a.ConnectRoom(ctx, roomCode)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Joined %s (%s). /quit to leave\n", room.Name(), roomCode)

		lines := readLines(os.Stdin)
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-conn.Done():
				return errors.New("connection to room closed")
			case line, ok := <-lines:
				if !ok {
					return nil
				}
				frame, err := parseLine(line)
				if errors.Is(err, errQuit) {
					return nil
				}
				if err != nil {
					fmt.Fprintln(out, color.RedString("%v", err))
					continue
				}
				if frame == nil {
					continue
				}
				if a.Rooms.ConnectionState() != netw.StateOpen {
					fmt.Fprintln(out, color.YellowString("not connected yet, message dropped"))
					continue
				}
				a.Rooms.SendMessage(frame)
			}
		}
	})
}

// readLines sends each line of r until EOF, then closes the channel.
func readLines(r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return lines
}

// parseLine turns a line of input into an outbound frame. Blank lines yield nil.
func parseLine(line string) (any, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, nil
	}
	if !strings.HasPrefix(line, "/") {
		return netw.Chat(line), nil
	}

	command, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	switch command {
	case "/quit":
		return nil, errQuit
	case "/status":
		return netw.GetStatus(), nil
	case "/speech":
		if rest == "" {
			return nil, errors.New("usage: /speech <text>")
		}
		return netw.Speech(rest), nil
	case "/action":
		name, raw, _ := strings.Cut(rest, " ")
		if name == "" {
			return nil, errors.New("usage: /action <name> [json]")
		}
		var data any
		if raw = strings.TrimSpace(raw); raw != "" {
			if err := json.Unmarshal([]byte(raw), &data); err != nil {
				return nil, fmt.Errorf("action data is not valid JSON: %w", err)
			}
		}
		return netw.GameAction(name, data), nil
	default:
		return nil, fmt.Errorf("unknown command %s", command)
	}
}

func formatInbound(msg netw.Inbound) string {
	switch msg.Type {
	case netw.TypeChat:
		return fmt.Sprintf("%s %s", color.CyanString("[%s]", msg.UserID), msg.Message)
	case netw.TypeGameLog:
		var entry netw.GameLog
		if err := msg.Decode(&entry); err == nil && entry.Phase != "" {
			return color.MagentaString("[%s %d] %s", entry.Phase, entry.Round, entry.Message)
		}
		return color.MagentaString("%s", msg.Message)
	case netw.TypeGameStatus:
		var status netw.GameStatus
		if err := msg.Decode(&status); err != nil {
			return color.RedString("undecodable status: %v", err)
		}
		return color.GreenString("status: %s, round %d, phase %s", status.Status, status.CurrentRound, status.CurrentPhase)
	case netw.TypeGameAction:
		var action struct {
			Action string          `json:"action"`
			Data   json.RawMessage `json:"data"`
		}
		_ = msg.Decode(&action)
		return color.YellowString("[%s] %s %s", msg.UserID, action.Action, action.Data)
	case netw.TypeError:
		return color.RedString("error: %s", msg.Message)
	default:
		return color.HiBlackString("%s", msg.Message)
	}
}
