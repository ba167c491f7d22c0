// Package client contains Cobra CLI commands for eventual.
package client

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	transports "github.com/rzbill/eventual/internal/cmd/client/transports"
	"github.com/rzbill/eventual/internal/eventlog"
	"github.com/rzbill/eventual/pkg/id"
)

const defaultListLimit = 20

var ids = id.NewGenerator()

// Commands returns the client subcommands for embedding in a root command.
func Commands(addr AddrFunc) []*cobra.Command {
	return []*cobra.Command{
		newWriteCommand(addr),
		newListCommand(addr),
		newReplCommand(addr),
	}
}

// newWriteCommand constructs the `write` subcommand.
func newWriteCommand(addr AddrFunc) *cobra.Command {
	writeCmd := &cobra.Command{
		Use:   "write <stream>",
		Short: "Append an event to a stream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rawID, _ := cmd.Flags().GetString("id")
			data, _ := cmd.Flags().GetString("data")
			rawHead, _ := cmd.Flags().GetString("expect-head")

			ev := eventlog.Event{Payload: []byte(data)}
			if rawID == "" {
				ev.ID = ids.Next()
			} else {
				parsed, err := id.Parse(rawID)
				if err != nil {
					return fmt.Errorf("invalid --id: %w", err)
				}
				ev.ID = parsed
			}
			if len(ev.Payload) > eventlog.MaxPayloadSize {
				return eventlog.ErrPayloadTooLarge
			}

			t := getTransport(addr)
			var err error
			if cmd.Flags().Changed("expect-head") {
				head, perr := id.Parse(rawHead)
				if perr != nil {
					return fmt.Errorf("invalid --expect-head: %w", perr)
				}
				err = t.WriteIfHeadIs(cmd.Context(), args[0], head, ev)
			} else {
				err = t.Write(cmd.Context(), args[0], ev)
			}
			if err != nil {
				return describeWriteError(err)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "status:", "OK", ev.ID)
			return nil
		},
	}
	writeCmd.Flags().String("id", "", "Event id (UUID); generated when empty")
	writeCmd.Flags().String("data", "", "Payload data")
	writeCmd.Flags().String("expect-head", "", "Only write if the stream head is this id (nil UUID for an empty stream)")
	return writeCmd
}

// newListCommand constructs the `list` subcommand.
func newListCommand(addr AddrFunc) *cobra.Command {
	listCmd := &cobra.Command{
		Use:   "list <stream>",
		Short: "List events after a cursor as JSON lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, _ := cmd.Flags().GetString("from")
			limit, _ := cmd.Flags().GetInt("limit")
			filter, _ := cmd.Flags().GetString("filter")

			if limit <= 0 || limit > 0xFFFF {
				return fmt.Errorf("invalid --limit; use 1..65535")
			}
			cursor := uuid.Nil
			if from != "" {
				parsed, err := id.Parse(from)
				if err != nil {
					return fmt.Errorf("invalid --from: %w", err)
				}
				cursor = parsed
			}
			f, err := newCELFilter(filter)
			if err != nil {
				return fmt.Errorf("invalid --filter: %w", err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			return listEvents(cmd, getTransport(addr), args[0], cursor, limit, f, func(ev eventlog.Event) error {
				return enc.Encode(decodedEvent(ev))
			})
		},
	}
	listCmd.Flags().String("from", "", "Cursor id; events after it are listed (default: start of stream)")
	listCmd.Flags().Int("limit", defaultListLimit, "Max events to print")
	listCmd.Flags().String("filter", "", "CEL filter over id, text, size and json (client-side)")
	return listCmd
}

// listEvents pages through the stream until limit events pass f or the
// stream is exhausted.
func listEvents(cmd *cobra.Command, t transports.StreamsTransport, stream string, cursor uuid.UUID, limit int, f celFilter, emit func(eventlog.Event) error) error {
	printed := 0
	for printed < limit {
		page := uint16(limit - printed)
		if f.enabled {
			page = uint16(limit)
		}
		seen := 0
		err := t.Read(cmd.Context(), stream, cursor, page, func(ev eventlog.Event) error {
			seen++
			cursor = ev.ID
			if printed >= limit || !f.Eval(ev) {
				return nil
			}
			printed++
			return emit(ev)
		})
		if err != nil {
			return err
		}
		if seen < int(page) || !f.enabled {
			return nil
		}
	}
	return nil
}

// newReplCommand constructs the `repl` subcommand.
func newReplCommand(addr AddrFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Interactive shell: list <stream> | write <stream> <id> <text> | exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRepl(cmd, getTransport(addr), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func runRepl(cmd *cobra.Command, t transports.StreamsTransport, in io.Reader, out io.Writer) error {
	sc := bufio.NewScanner(in)
	for {
		_, _ = fmt.Fprint(out, "> ")
		if !sc.Scan() {
			return sc.Err()
		}
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		var err error
		switch fields[0] {
		case "exit":
			return nil
		case "list":
			if len(fields) < 2 {
				err = errors.New("usage: list <stream>")
				break
			}
			err = t.Read(cmd.Context(), fields[1], uuid.Nil, defaultListLimit, func(ev eventlog.Event) error {
				_, werr := fmt.Fprintf(out, "%s -> %s\n", ev.ID, ev.Payload)
				return werr
			})
		case "write":
			if len(fields) < 3 {
				err = errors.New("usage: write <stream> <id> <text>")
				break
			}
			var evID uuid.UUID
			if evID, err = id.Parse(fields[2]); err != nil {
				break
			}
			text := strings.Join(fields[3:], " ")
			err = describeWriteError(t.Write(cmd.Context(), fields[1], eventlog.Event{ID: evID, Payload: []byte(text)}))
		default:
			err = fmt.Errorf("unknown command %q", fields[0])
		}
		if err != nil {
			_, _ = fmt.Fprintln(out, "Error:", err)
		}
	}
}

func describeWriteError(err error) error {
	var we *transports.WriteError
	if errors.As(err, &we) {
		return fmt.Errorf("error writing event (%s): %s", we.ID, we.Message)
	}
	return err
}
