package commands

import (
	"fmt"
	"os"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/petrel-labs/petrel/core"
)

var (
	system string
)

var sendCmd = &cobra.Command{
	Use:   "send [prompt]",
	Short: "Send a non-streaming request",
	Args:  cobra.ExactArgs(1),
	RunE:  runSend,
}

func init() {
	sendCmd.Flags().StringVar(&system, "system", "", "system instructions")
	rootCmd.AddCommand(sendCmd)
}

func runSend(cmd *cobra.Command, args []string) error {
	c, err := newCaller()
	if err != nil {
		return exitWithCode(ExitValidation, err)
	}

	result, err := c.create(cmd.Context(), args[0], system)
	if err != nil {
		return renderError(err)
	}

	if jsonOutput {
		return printJSON(result)
	}
	fmt.Println(result.Text())
	for _, call := range result.ToolCalls() {
		fmt.Printf("tool call %s(%s)\n", call.Name, call.Arguments)
	}
	return nil
}

func printJSON(result *core.Result) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
