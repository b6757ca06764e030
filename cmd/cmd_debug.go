// Copyright 2025 The Clientbook Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/bufalari/clientbook/geocoding"
	"github.com/bufalari/clientbook/spatial"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Dev tools",
}

func parseCoordinates(line string) (spatial.Point, error) {
	parts := strings.FieldsFunc(line, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' })
	if len(parts) != 2 {
		return spatial.Point{}, fmt.Errorf("expected \"lat,lng\", got %q", line)
	}

	lat, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return spatial.Point{}, fmt.Errorf("parsing latitude: %w", err)
	}

	lng, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return spatial.Point{}, fmt.Errorf("parsing longitude: %w", err)
	}

	p := spatial.Point{Lat: lat, Lng: lng}
	if !p.Valid() {
		return spatial.Point{}, spatial.ErrInvalidPoint
	}

	return p, nil
}

var debugLinksCmd = &cobra.Command{
	Use:   "links",
	Short: "Print the navigation links for coordinates",
	Long: `Reads one "lat,lng" pair per line and prints the pair followed by its
navigation links.

$ echo 43.6532,-79.3832 | clientbook debug links
43.6532,-79.3832		{"googleMaps":"https://www.google.com/maps/search/?api=1&query=43.6532,-79.3832",…}
	`,
	Args: cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		input := os.Stdin
		if isTerminal(input) {
			fmt.Fprintln(os.Stderr, "Enter coordinates as lat,lng, one pair per line…")
		}

		scanner := bufio.NewScanner(input)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}

			p, err := parseCoordinates(line)
			if err != nil {
				fmt.Printf("%s\t%q\n", line, err)

				continue
			}

			s, err := json.Marshal(spatial.NavigationLinks(p.Lat, p.Lng))
			if err != nil {
				return err
			}

			fmt.Printf("%s\t\t%s\n", line, s)
		}

		if err := scanner.Err(); err != nil {
			return fmt.Errorf("reading input: %w", err)
		}

		return nil
	},
}

var debugGeocodeCmd = &cobra.Command{
	Use:   "geocode",
	Short: "Geocode addresses with the configured provider",
	Long: `Reads one address per line and prints the address followed by the
geocoding result, or the classified error.

$ echo "100 Queen St W, Toronto, ON, M5H 2N2" | clientbook debug geocode
	`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		geocoder, err := newGeocoder(ctx)
		if err != nil {
			return err
		}

		input := os.Stdin
		if isTerminal(input) {
			fmt.Fprintln(os.Stderr, "Enter addresses to geocode, one per line…")
		}

		scanner := bufio.NewScanner(input)
		for scanner.Scan() {
			address := strings.TrimSpace(scanner.Text())
			if address == "" {
				continue
			}

			res, err := geocoder.Geocode(ctx, address)
			if err != nil {
				fmt.Printf("%s\t%s\t%q\n", address, geocoding.TypeOf(err), err)

				continue
			}

			s, err := json.Marshal(res)
			if err != nil {
				return err
			}

			fmt.Printf("%s\t\t%s\n", address, s)
		}

		if err := scanner.Err(); err != nil {
			return fmt.Errorf("reading input: %w", err)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(debugCmd)
	debugCmd.AddCommand(debugLinksCmd)
	debugCmd.AddCommand(debugGeocodeCmd)
}
