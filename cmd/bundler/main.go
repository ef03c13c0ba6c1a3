package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/iudanet/probtrack/internal/bundle"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	contentDir := flag.String("content", "content", "Directory with problems/, patterns/ and assets/")
	outDir := flag.String("out", "dist/bundle", "Output directory for the archive and manifest")

	flag.Parse()

	if *showVersion {
		fmt.Printf("ProbTrack Bundler\n")
		fmt.Printf("Version:    %s\n", Version)
		fmt.Printf("Build Date: %s\n", BuildDate)
		fmt.Printf("Git Commit: %s\n", GitCommit)
		os.Exit(0)
	}

	manifest, err := bundle.NewPackager(*contentDir).Build(*outDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Bundle built: version %d, %d file(s)\n", manifest.Version, manifest.TotalFiles)
	fmt.Printf("Archive:  %s/%s\n", *outDir, bundle.ArchiveName)
	fmt.Printf("Manifest: %s/%s\n", *outDir, bundle.ManifestName)
}
