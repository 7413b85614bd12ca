package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/petrel-labs/petrel/core"
)

var streamCmd = &cobra.Command{
	Use:   "stream [prompt]",
	Short: "Send a streaming request and print deltas as they arrive",
	Args:  cobra.ExactArgs(1),
	RunE:  runStream,
}

func init() {
	streamCmd.Flags().StringVar(&system, "system", "", "system instructions")
	rootCmd.AddCommand(streamCmd)
}

func runStream(cmd *cobra.Command, args []string) error {
	c, err := newCaller()
	if err != nil {
		return exitWithCode(ExitValidation, err)
	}

	stream, err := c.stream(cmd.Context(), args[0], system)
	if err != nil {
		return renderError(err)
	}
	defer stream.Close()

	// Print only the text that is new in each snapshot.
	printed := 0
	var final *core.Result

	for snap := range stream.Ch {
		text := snap.Text()
		if len(text) > printed {
			fmt.Print(text[printed:])
			printed = len(text)
		}
		if snap.Done {
			s := snap
			final = &s
		}
	}
	fmt.Println()

	if err, ok := <-stream.Err; ok && err != nil {
		return renderError(err)
	}
	if f, ok := <-stream.Final; ok {
		final = f
	}

	if final != nil {
		for _, call := range final.ToolCalls() {
			fmt.Printf("tool call %s(%s)\n", call.Name, call.Arguments)
		}
		if jsonOutput {
			return printJSON(final)
		}
	}
	return nil
}
