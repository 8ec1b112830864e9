package main

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"
)

var (
	// device id attached to encoded commands and decoded responses
	deviceID string
	compact  bool
)

var rootCmd = &cobra.Command{
	Use:   "codecctl",
	Short: "Teltonika frame codec tool",
	Long: `codecctl - decode and build Teltonika AVL and command frames.

Frames are read and written as hex strings:
  decode  <hex>        Codec8/Codec8E records or a Codec12 response as JSON
  encode  <text>       Codec12 command frame for <text>
  imei    <hex>        IMEI carried by a handshake packet
  crc     <hex>        CRC-16/ARC of the bytes, or --verify a whole frame
  geohash <lat> <lon>  geohash of a position, or --decode a hash

Put -- before negative coordinates: codecctl geohash -- -33.45 -70.66`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&deviceID, "imei", "", "Device IMEI attached to commands and responses")
	rootCmd.PersistentFlags().BoolVar(&compact, "compact", false, "Print JSON on a single line")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	if !compact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
