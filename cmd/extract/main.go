// extract is a command-line tool for running the document extraction
// pipeline against a PDF.
//
// Each page is classified by its text layer: born-digital pages are
// reconstructed locally with no backend call, scanned pages are rasterized
// and sent to the transcription backend. The assembled document is printed
// as plain text.
//
// Usage:
//
//	extract -pdf input.pdf [options]
//
// Required flags:
//
//	-pdf string      Path to the input PDF file
//
// Options:
//
//	-backend string  Transcription endpoint URL (required when the document
//	                 contains scanned pages)
//	-classify-only   Print each page's classification and exit
//	-verbose         Enable debug logging
//
// Example:
//
//	extract -pdf scan.pdf -backend http://localhost:8090/api/ai/transcription
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/Toumai-Digital-Solutions/Afribac-sub002/pkg/assemble"
	"github.com/Toumai-Digital-Solutions/Afribac-sub002/pkg/block"
	"github.com/Toumai-Digital-Solutions/Afribac-sub002/pkg/pagesource"
	"github.com/Toumai-Digital-Solutions/Afribac-sub002/pkg/textlayer"
	"github.com/Toumai-Digital-Solutions/Afribac-sub002/pkg/transcribe"
)

func main() {
	pdfPath := flag.String("pdf", "", "Path to the input PDF file (required)")
	backend := flag.String("backend", "", "Transcription endpoint URL")
	classifyOnly := flag.Bool("classify-only", false, "Print each page's classification and exit")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	flag.Parse()

	if *pdfPath == "" {
		fmt.Fprintln(os.Stderr, "Error: -pdf flag is required")
		flag.PrintDefaults()
		os.Exit(1)
	}

	_ = godotenv.Load()

	log := logrus.New()
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	src, err := pagesource.Open(*pdfPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening PDF: %v\n", err)
		os.Exit(1)
	}

	if *classifyOnly {
		for _, page := range src.Pages {
			fmt.Printf("page %d: %s\n", page.Index, textlayer.Classify(page.Fragments))
		}
		return
	}

	needsBackend := false
	for _, page := range src.Pages {
		if textlayer.Classify(page.Fragments) == textlayer.Scanned {
			needsBackend = true
			break
		}
	}
	if needsBackend && *backend == "" {
		fmt.Fprintln(os.Stderr, "Error: document contains scanned pages; -backend is required")
		os.Exit(1)
	}

	var client *transcribe.Client
	if *backend != "" {
		client = transcribe.NewClient(*backend, transcribe.WithLogger(log))
	}

	doc := block.NewDocument()
	assembler := assemble.New(client, log)
	if err := assembler.Run(context.Background(), src, doc, ""); err != nil {
		fmt.Fprintf(os.Stderr, "Error extracting document: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(doc.PlainText())
}
