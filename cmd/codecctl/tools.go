package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"teltonika-codec/internal/codec"
)

/* ------------------------------- imei ------------------------------- */

var imeiCmd = &cobra.Command{
	Use:   "imei <hex>",
	Short: "Extract the IMEI from a handshake packet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		imei, err := codec.IMEIFromHandshake(args[0])
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), imei)
		return err
	},
}

/* ------------------------------- crc -------------------------------- */

var crcVerify bool

var crcCmd = &cobra.Command{
	Use:   "crc <hex>",
	Short: "Compute CRC-16/ARC, or verify the CRC of a whole frame",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := codec.HexToBytes(args[0])
		if err != nil {
			return err
		}
		if crcVerify {
			if err := codec.VerifyCRC(b); err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "0x%04X\n", codec.CRC16(b))
		return err
	},
}

/* ------------------------------ geohash ----------------------------- */

var (
	geohashPrecision int
	geohashDecode    bool
)

var geohashCmd = &cobra.Command{
	Use:   "geohash [--] <lat> <lon> | --decode <hash>",
	Short: "Encode a position as a geohash, or decode a geohash",
	Args: func(cmd *cobra.Command, args []string) error {
		if geohashDecode {
			return cobra.ExactArgs(1)(cmd, args)
		}
		return cobra.ExactArgs(2)(cmd, args)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if geohashDecode {
			lat, lon, err := codec.DecodeGeoHash(args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]float64{"lat": lat, "lon": lon})
		}

		if geohashPrecision <= 0 {
			return fmt.Errorf("precision must be positive, got %d", geohashPrecision)
		}
		lat, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return fmt.Errorf("latitude %q: %w", args[0], err)
		}
		lon, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("longitude %q: %w", args[1], err)
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), codec.EncodeGeoHash(lat, lon, geohashPrecision))
		return err
	},
}

func init() {
	rootCmd.AddCommand(imeiCmd, crcCmd, geohashCmd)
	crcCmd.Flags().BoolVar(&crcVerify, "verify", false, "Treat the input as a frame and check its CRC trailer")
	geohashCmd.Flags().IntVar(&geohashPrecision, "precision", codec.GeoHashPrecision, "Geohash length")
	geohashCmd.Flags().BoolVar(&geohashDecode, "decode", false, "Decode a geohash to its cell centre")
}
