package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"teltonika-codec/internal/codec"
)

var decodeCmd = &cobra.Command{
	Use:   "decode <hex>",
	Short: "Decode a telemetry frame or a command response",
	Long: `Decode a hex encoded frame. The codec id selects the decoder:
Codec8 (0x08) and Codec8E (0x8E) frames print their AVL records, Codec12 (0x0C)
frames print the response text.`,
	Args: cobra.ExactArgs(1),
	RunE: runDecode,
}

func init() {
	rootCmd.AddCommand(decodeCmd)
}

func runDecode(cmd *cobra.Command, args []string) error {
	frame, err := codec.HexToBytes(args[0])
	if err != nil {
		return err
	}
	if len(frame) < 9 {
		return fmt.Errorf("%w: frame of %d bytes has no codec id", codec.ErrTruncatedFrame, len(frame))
	}

	if codec.CodecID(frame[8]) == codec.Codec12 {
		resp, err := codec.DecodeCommandFrame(frame, deviceID)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), resp)
	}

	records, err := codec.DecodeTelemetryFrame(frame)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), records)
}
