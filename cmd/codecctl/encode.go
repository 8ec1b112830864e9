package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"teltonika-codec/internal/codec"
)

var encodeJSON bool

var encodeCmd = &cobra.Command{
	Use:   "encode <text>...",
	Short: "Build a Codec12 command frame",
	Long: `Build a Codec12 command frame. Arguments are joined with single spaces, so
"codecctl encode getparam 219,220,221" encodes the text "getparam 219,220,221".`,
	Args: cobra.MinimumNArgs(1),
	RunE: runEncode,
}

func init() {
	rootCmd.AddCommand(encodeCmd)
	encodeCmd.Flags().BoolVar(&encodeJSON, "json", false, "Print device id and hex as JSON")
}

func runEncode(cmd *cobra.Command, args []string) error {
	enc, err := codec.EncodeCommand(strings.Join(args, " "), deviceID)
	if err != nil {
		return err
	}
	if encodeJSON {
		return printJSON(cmd.OutOrStdout(), enc)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), enc.Hex)
	return err
}
