package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"jdbrun/internal/jdb"
	"jdbrun/internal/messages"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
)

var (
	execNATSFlag     string
	execSessionFlag  string
	execCategoryFlag string
	execTimeoutFlag  time.Duration
)

func init() {
	rootCmd.AddCommand(execCmd, categoriesCmd)
	f := execCmd.Flags()
	f.StringVar(&execNATSFlag, "nats", nats.DefaultURL, "NATS server of a running jdbrun (JDBRUN_NATS_IN_PROCESS=false)")
	f.StringVarP(&execSessionFlag, "session", "s", "", "Session id")
	f.StringVarP(&execCategoryFlag, "category", "c", "", "Command category (see jdbrun categories)")
	f.DurationVar(&execTimeoutFlag, "timeout", 30*time.Second, "How long to wait for the response")
	_ = execCmd.MarkFlagRequired("session")
	_ = execCmd.MarkFlagRequired("category")
}

var execCmd = &cobra.Command{
	Use:   "exec <jdb command...>",
	Short: "Send one command to a running session and print the response",
	Example: `  jdbrun exec -s 6f1c... -c locals locals
  jdbrun exec -s 6f1c... -c set_breakpoint stop at demo.Foo:12`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExec,
}

func runExec(cmd *cobra.Command, args []string) error {
	category, err := jdb.ParseCategory(execCategoryFlag)
	if err != nil {
		return err
	}
	msg := messages.NewDebuggerCommandMessage(execSessionFlag, strings.Join(args, " "), category)
	if err := msg.Validate(); err != nil {
		return err
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	nc, err := nats.Connect(execNATSFlag, nats.Name("jdbrun-exec"))
	if err != nil {
		return fmt.Errorf("connect %s: %w", execNATSFlag, err)
	}
	defer nc.Close()

	reply, err := nc.Request(msg.Subject(), payload, execTimeoutFlag)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	var result messages.CommandResultMessage
	if err := json.Unmarshal(reply.Data, &result); err != nil {
		return fmt.Errorf("decode reply: %w", err)
	}
	if result.Error != "" {
		return fmt.Errorf("%s", result.Error)
	}
	out := cmd.OutOrStdout()
	for _, line := range result.Lines {
		fmt.Fprintln(out, line)
	}
	return nil
}

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List command categories",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		for _, c := range jdb.Categories() {
			fmt.Fprintln(cmd.OutOrStdout(), c)
		}
	},
}
