package main

import (
	"fmt"
	"log"
	"os"
	"runtime"

	"github.com/bytedance/sonic"
	"github.com/qedus/osmpbf"
	"github.com/spf13/cobra"

	"venuelink/internal/osm"
)

var (
	outputFile string
	nameFilter string
)

var rootCmd = &cobra.Command{
	Use:   "venue-import <path-to-osm.pbf>",
	Short: "Extract conference venues from an OpenStreetMap extract",
	Long:  `Scan an OSM PBF extract for conference and event venues and write them as a venue catalog file for VENUES_FILE.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

func init() {
	rootCmd.Flags().StringVarP(&outputFile, "output", "o", "venues.json", "Output venue catalog file")
	rootCmd.Flags().StringVarP(&nameFilter, "name", "n", "", "Only keep venues whose name contains this text")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runImport(cmd *cobra.Command, args []string) error {
	osmFile := args[0]
	log.Printf("Processing file: %s", osmFile)

	f, err := os.Open(osmFile)
	if err != nil {
		return fmt.Errorf("open %s: %w", osmFile, err)
	}
	defer f.Close()

	decoder := osmpbf.NewDecoder(f)
	decoder.SetBufferSize(osmpbf.MaxBlobSize)

	// Use all available CPUs for parallel decoding
	numProcs := runtime.GOMAXPROCS(-1)
	if err := decoder.Start(numProcs); err != nil {
		return fmt.Errorf("start decoder: %w", err)
	}
	log.Printf("Decoder started with %d processors", numProcs)

	venues, err := osm.ExtractVenues(decoder, osm.VenueMatcher(nameFilter))
	if err != nil {
		return err
	}
	for _, v := range venues {
		log.Printf("[%s] %s (%.6f, %.6f)", v.ID, v.Name, v.Lat, v.Lon)
	}

	data, err := sonic.ConfigStd.MarshalIndent(venues, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal venues: %w", err)
	}
	if err := os.WriteFile(outputFile, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", outputFile, err)
	}

	log.Printf("Wrote %d venues to %s", len(venues), outputFile)
	return nil
}
