package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"fishdecode/pkg/assign"
	"fishdecode/pkg/codebook"
	"fishdecode/pkg/config"
	"fishdecode/pkg/decode"
	"fishdecode/pkg/labelimage"
	"fishdecode/pkg/mask"
	"fishdecode/pkg/visualization"
)

func main() {
	// Parse command line arguments
	codebookPath := flag.String("codebook", "", "Codebook JSON document")
	spotsPath := flag.String("spots", "", "Spot intensity table JSON document")
	outputPath := flag.String("output", "features.csv", "Output feature table CSV filename")
	configPath := flag.String("config", "fishdecode.yaml", "Configuration YAML file (optional)")
	labelsPath := flag.String("labels", "", "Serialized segmentation label image for cell assignment (optional)")
	masksPath := flag.String("masks", "", "Write the segmentation as a mask archive to this path (optional)")
	renderDir := flag.String("render-dir", "", "Directory to save segmentation preview PNGs (optional)")
	flag.Parse()

	// Validate inputs
	if *codebookPath == "" || *spotsPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Load the codebook
	codebookData, err := os.ReadFile(*codebookPath)
	if err != nil {
		log.Fatalf("Failed to read codebook: %v", err)
	}
	cb, err := codebook.FromJSON(codebookData)
	if err != nil {
		log.Fatalf("Failed to parse codebook: %v", err)
	}
	fmt.Printf("Loaded codebook: %d targets over %d rounds x %d channels\n",
		cb.Len(), cb.Rounds(), cb.Channels())

	// Load the spot intensity table
	spotsData, err := os.ReadFile(*spotsPath)
	if err != nil {
		log.Fatalf("Failed to read spot table: %v", err)
	}
	table, err := decode.SpotTableFromJSON(spotsData)
	if err != nil {
		log.Fatalf("Failed to parse spot table: %v", err)
	}
	fmt.Printf("Loaded %d spots\n", len(table.Spots))

	// Select the decoding method from configuration
	var method decode.Method
	switch cfg.Decoding.Method {
	case "per_round_max":
		method = decode.PerRoundMaxChannel{}
	case "metric":
		method = decode.MetricDistance{
			NormOrder:          cfg.Decoding.NormOrder,
			DistanceThreshold:  cfg.Decoding.DistanceThreshold,
			MagnitudeThreshold: cfg.Decoding.MagnitudeThreshold,
		}
	default:
		log.Fatalf("Unknown decoding method %q in configuration", cfg.Decoding.Method)
	}

	// Decode
	fmt.Printf("Decoding with the %q method...\n", cfg.Decoding.Method)
	startTime := time.Now()
	decoded, err := decode.Decode(cb, table, method)
	if err != nil {
		log.Fatalf("Decoding failed: %v", err)
	}
	fmt.Printf("Decoded %d spots in %.2f seconds: %d passed thresholds\n",
		decoded.Len(), time.Since(startTime).Seconds(), decoded.Passing())

	// Write the feature table
	outFile, err := os.Create(*outputPath)
	if err != nil {
		log.Fatalf("Failed to create output file: %v", err)
	}
	if err := decoded.WriteCSV(outFile); err != nil {
		outFile.Close()
		log.Fatalf("Failed to write feature table: %v", err)
	}
	outFile.Close()
	fmt.Printf("Feature table saved to: %s\n", *outputPath)

	// Optionally assign features to segmented cells
	if *labelsPath != "" {
		labelsData, err := os.ReadFile(*labelsPath)
		if err != nil {
			log.Fatalf("Failed to read label image: %v", err)
		}
		li, err := labelimage.Deserialize(labelsData)
		if err != nil {
			log.Fatalf("Failed to parse label image: %v", err)
		}
		fmt.Printf("Loaded segmentation with %d cells\n", len(li.Labels()))

		counts, err := assign.CountsPerCell(li, decoded)
		if err != nil {
			log.Fatalf("Cell assignment failed: %v", err)
		}
		fmt.Printf("Expression counts per cell:\n")
		for _, cell := range li.Labels() {
			fmt.Printf("  cell %d: %v\n", cell, counts[cell])
		}

		// Optionally export the segmentation as a mask archive
		if *masksPath != "" {
			collection, err := mask.FromLabelImage(li)
			if err != nil {
				log.Fatalf("Failed to build mask collection: %v", err)
			}
			if err := collection.Save(*masksPath); err != nil {
				log.Fatalf("Failed to save mask archive: %v", err)
			}
			fmt.Printf("Mask archive saved to: %s\n", *masksPath)
		}

		// Optionally render segmentation previews
		if *renderDir != "" {
			renderer := visualization.NewRenderer(li)
			if err := renderer.SavePlaneSequence(*renderDir); err != nil {
				log.Fatalf("Failed to render segmentation previews: %v", err)
			}
			fmt.Printf("Segmentation previews saved to: %s\n", *renderDir)
		}
	}
}
